//go:build !integration

package worker

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/rs/zerolog"
)

func TestPool(t *testing.T) {
	logger := zerolog.Nop()

	t.Run("should run every submitted task", func(t *testing.T) {
		p := NewPool(3, &logger)
		p.Start(context.Background())
		defer p.Stop()

		var ran atomic.Int32
		var wg sync.WaitGroup
		for i := 0; i < 20; i++ {
			wg.Add(1)
			err := p.Submit(context.Background(), func(ctx context.Context) error {
				defer wg.Done()
				ran.Add(1)
				if ran.Load()%5 == 0 {
					return errors.New("boom")
				}
				return nil
			})
			if err != nil {
				t.Fatalf("submit: %v", err)
			}
		}
		wg.Wait()
		if ran.Load() != 20 {
			t.Fatalf("expected 20 runs, got %d", ran.Load())
		}
	})

	t.Run("should refuse work after Stop", func(t *testing.T) {
		p := NewPool(1, &logger)
		p.Start(context.Background())
		p.Stop()
		p.Stop() // idempotent

		// fill the buffer so the send cannot succeed
		for i := 0; i < cap(p.jobs); i++ {
			p.jobs <- func(context.Context) error { return nil }
		}
		err := p.Submit(context.Background(), func(context.Context) error { return nil })
		if !errors.Is(err, ErrPoolClosed) {
			t.Fatalf("expected ErrPoolClosed, got %v", err)
		}
	})

	t.Run("should reject a nil task", func(t *testing.T) {
		p := NewPool(1, &logger)
		if err := p.Submit(context.Background(), nil); err == nil {
			t.Fatal("expected an error")
		}
	})
}
