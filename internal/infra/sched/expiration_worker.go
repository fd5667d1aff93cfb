package sched

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"digital-checkout/internal/infra/metrics"
	"digital-checkout/internal/usecase"
)

// ExpirationWorker periodically offsets expired credit grants via the ledger.
type ExpirationWorker struct {
	interval time.Duration
	credits  usecase.CreditUseCase
	log      *zerolog.Logger
}

func NewExpirationWorker(interval time.Duration, credits usecase.CreditUseCase, logger *zerolog.Logger) *ExpirationWorker {
	if interval <= 0 {
		interval = time.Hour
	}
	l := logger.With().Str("component", "ExpirationWorker").Logger()
	return &ExpirationWorker{interval: interval, credits: credits, log: &l}
}

// Run sweeps once immediately and then on every tick until ctx is done.
func (w *ExpirationWorker) Run(ctx context.Context) error {
	w.log.Info().Dur("interval", w.interval).Msg("Starting expiration worker")
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	w.Tick(ctx)
	for {
		select {
		case <-ctx.Done():
			w.log.Info().Msg("Stopping expiration worker")
			return ctx.Err()
		case <-ticker.C:
			w.Tick(ctx)
		}
	}
}

// Tick runs a single sweep and returns the number of expiration rows written.
func (w *ExpirationWorker) Tick(ctx context.Context) int {
	rows, err := w.credits.ProcessExpirations(ctx)
	if err != nil {
		metrics.IncJob("credit_expiration", "error")
		w.log.Error().Err(err).Int("written", len(rows)).Msg("expiration sweep failed")
		return len(rows)
	}
	metrics.IncJob("credit_expiration", "ok")
	if len(rows) > 0 {
		var total int64
		for _, r := range rows {
			total -= r.Amount
		}
		w.log.Info().Int("count", len(rows)).Int64("credits", total).Msg("expired credits processed")
	}
	return len(rows)
}
