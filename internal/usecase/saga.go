package usecase

import (
	"context"

	"github.com/rs/zerolog"

	"digital-checkout/internal/infra/metrics"
)

const (
	stepRefundCredits = "refund_credits"
	stepRefundCharge  = "refund_charge"
)

type compensation struct {
	name string
	ref  string
	undo func(ctx context.Context) error
}

// saga records compensations as forward steps succeed.
type saga struct {
	steps []compensation
}

func (s *saga) add(name, ref string, undo func(ctx context.Context) error) {
	s.steps = append(s.steps, compensation{name: name, ref: ref, undo: undo})
}

// unwind runs compensations newest first and returns the ones that failed.
func (s *saga) unwind(ctx context.Context, log *zerolog.Logger) []compensation {
	var failed []compensation
	for i := len(s.steps) - 1; i >= 0; i-- {
		step := s.steps[i]
		if err := step.undo(ctx); err != nil {
			log.Error().Err(err).Str("step", step.name).Str("ref", step.ref).Msg("compensation failed")
			metrics.IncCompensation(step.name, "failed")
			failed = append(failed, step)
			continue
		}
		metrics.IncCompensation(step.name, "ok")
	}
	s.steps = nil
	return failed
}
