package metrics

import "github.com/prometheus/client_golang/prometheus"

func init() { register(jobRunsTotal) }

var jobRunsTotal = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "background_job_runs_total",
		Help: "Background job ticks, labeled by job and result.",
	},
	[]string{"job", "result"}, // job='credit_expiration'|'order_reconciler'
)

func IncJob(job, result string) {
	jobRunsTotal.WithLabelValues(norm(job), norm(result)).Inc()
}
