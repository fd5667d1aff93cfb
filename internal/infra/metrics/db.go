package metrics

import "github.com/prometheus/client_golang/prometheus"

func init() { register(pgPoolConns) }

var pgPoolConns = prometheus.NewGaugeVec(
	prometheus.GaugeOpts{
		Name: "postgres_pool_connections",
		Help: "Connections held by the pgx pool backing orders and the ledger, by state.",
	},
	[]string{"state"}, // total|idle|acquired
)

func SetPoolConnections(total, idle, acquired int32) {
	pgPoolConns.WithLabelValues("total").Set(float64(total))
	pgPoolConns.WithLabelValues("idle").Set(float64(idle))
	pgPoolConns.WithLabelValues("acquired").Set(float64(acquired))
}
