package sched

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"

	"digital-checkout/internal/infra/metrics"
	"digital-checkout/internal/infra/worker"
	"digital-checkout/internal/usecase"
)

const reconcileBatch = 200

// OrderReconciler periodically resolves orders stuck in pending, which only
// happens when a checkout stopped between creating the order and settling it.
type OrderReconciler struct {
	orders     usecase.OrderUseCase
	checkout   usecase.CheckoutUseCase
	pool       *worker.Pool
	interval   time.Duration // how often to scan
	staleAfter time.Duration // how old a pending order must be to resolve
	log        *zerolog.Logger
}

func NewOrderReconciler(orders usecase.OrderUseCase, checkout usecase.CheckoutUseCase, pool *worker.Pool, interval, staleAfter time.Duration, logger *zerolog.Logger) *OrderReconciler {
	if interval <= 0 {
		interval = time.Minute
	}
	if staleAfter <= 0 {
		staleAfter = 15 * time.Minute
	}
	l := logger.With().Str("component", "OrderReconciler").Logger()
	return &OrderReconciler{
		orders:     orders,
		checkout:   checkout,
		pool:       pool,
		interval:   interval,
		staleAfter: staleAfter,
		log:        &l,
	}
}

func (w *OrderReconciler) Start(ctx context.Context) {
	w.log.Info().Dur("interval", w.interval).Dur("stale_after", w.staleAfter).Msg("Starting order reconciler")
	t := time.NewTicker(w.interval)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			w.log.Info().Msg("Stopping order reconciler")
			return
		case <-t.C:
			w.Tick(ctx)
		}
	}
}

// Tick resolves one batch of stale orders and returns how many were resolved.
func (w *OrderReconciler) Tick(ctx context.Context) int {
	pending, err := w.orders.ListStalePending(ctx, w.staleAfter, reconcileBatch)
	if err != nil {
		metrics.IncJob("order_reconciler", "error")
		w.log.Error().Err(err).Msg("list stale orders failed")
		return 0
	}

	var resolved atomic.Int32
	var wg sync.WaitGroup
	for _, o := range pending {
		orderID := o.ID
		wg.Add(1)
		err := w.pool.Submit(ctx, func(ctx context.Context) error {
			defer wg.Done()
			ok, err := w.checkout.ResolveStaleOrder(ctx, orderID)
			if err != nil {
				w.log.Error().Err(err).Str("order_id", orderID).Msg("resolve stale order failed")
				return nil
			}
			if ok {
				resolved.Add(1)
				w.log.Info().Str("order_id", orderID).Msg("stale order resolved")
			}
			return nil
		})
		if err != nil {
			wg.Done()
			w.log.Warn().Err(err).Msg("reconciler stopped before the batch finished")
			break
		}
	}
	done := make(chan struct{})
	go func() { wg.Wait(); close(done) }()
	select {
	case <-done:
	case <-ctx.Done():
		// queued tasks are dropped once the pool sees ctx done
		metrics.IncJob("order_reconciler", "cancelled")
		return int(resolved.Load())
	}

	metrics.IncJob("order_reconciler", "ok")
	return int(resolved.Load())
}
