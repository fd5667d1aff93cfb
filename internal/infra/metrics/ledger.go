package metrics

import "github.com/prometheus/client_golang/prometheus"

func init() {
	register(
		ledgerOpsTotal,
		creditsExpiredTotal,
	)
}

var (
	ledgerOpsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "credit_ledger_ops_total",
			Help: "Credit ledger writes by operation (purchase/spend/refund/bonus/expiration) and result.",
		},
		[]string{"op", "result"},
	)

	creditsExpiredTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "credits_expired_total",
			Help: "Sum of credits removed by the expiration sweep.",
		},
	)
)

func IncLedgerOp(op, result string) {
	ledgerOpsTotal.WithLabelValues(norm(op), norm(result)).Inc()
}

func AddCreditsExpired(n int64) {
	if n > 0 {
		creditsExpiredTotal.Add(float64(n))
	}
}
