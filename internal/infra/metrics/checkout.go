package metrics

import "github.com/prometheus/client_golang/prometheus"

func init() {
	register(
		checkoutsTotal,
		compensationsTotal,
	)
}

var (
	checkoutsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "checkouts_total",
			Help: "Checkout attempts by flow (cash/credits/mixed) and outcome.",
		},
		[]string{"flow", "result"},
	)

	compensationsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "checkout_compensations_total",
			Help: "Saga compensation steps executed, labeled by step and result.",
		},
		[]string{"step", "result"},
	)
)

func IncCheckout(flow, result string) {
	checkoutsTotal.WithLabelValues(norm(flow), norm(result)).Inc()
}

func IncCompensation(step, result string) {
	compensationsTotal.WithLabelValues(norm(step), norm(result)).Inc()
}
