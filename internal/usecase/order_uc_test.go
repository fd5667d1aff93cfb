//go:build !integration

package usecase_test

import (
	"context"
	"errors"
	"testing"

	"digital-checkout/internal/domain"
	"digital-checkout/internal/domain/model"
)

func newTestOrder(t *testing.T, f *fixture, userID string) *model.Order {
	t.Helper()
	p := f.product(t, "ebook", 1500, 30)
	it, _ := model.NewOrderItem(p, model.PaymentMethodCash)
	o, err := f.orders.CreateOrder(context.Background(), userID, []model.OrderItem{it}, 1500, 0)
	if err != nil {
		t.Fatalf("create order: %v", err)
	}
	return o
}

func TestOrderUseCase_StatusUpdates(t *testing.T) {
	ctx := context.Background()

	t.Run("should persist a pending order with its items", func(t *testing.T) {
		f := newFixture(t)
		o := newTestOrder(t, f, "user-1")

		got, err := f.orders.GetOrder(ctx, o.ID)
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if got.Status != model.OrderStatusPending || len(got.Items) != 1 {
			t.Errorf("unexpected order %+v", got)
		}
	})

	t.Run("should set completedAt and payment id on completion", func(t *testing.T) {
		f := newFixture(t)
		o := newTestOrder(t, f, "user-1")
		ch := "ch_42"

		if err := f.orders.UpdateOrderStatus(ctx, o.ID, model.OrderStatusCompleted, &ch); err != nil {
			t.Fatalf("expected no error, got %v", err)
		}

		got, _ := f.orders.GetOrder(ctx, o.ID)
		if got.CompletedAt == nil {
			t.Error("expected completedAt to be set")
		}
		if got.PaymentTransactionID == nil || *got.PaymentTransactionID != ch {
			t.Errorf("expected payment id %s, got %v", ch, got.PaymentTransactionID)
		}
	})

	t.Run("should fail with ErrOrderNotFound for an unknown order", func(t *testing.T) {
		f := newFixture(t)
		err := f.orders.UpdateOrderStatus(ctx, "missing", model.OrderStatusFailed, nil)
		if !errors.Is(err, domain.ErrOrderNotFound) {
			t.Errorf("expected ErrOrderNotFound, got %v", err)
		}
		if err := f.orders.GrantProductAccess(ctx, "user-1", "missing"); !errors.Is(err, domain.ErrOrderNotFound) {
			t.Errorf("expected ErrOrderNotFound, got %v", err)
		}
	})

	t.Run("should refuse to refund an order that never completed", func(t *testing.T) {
		f := newFixture(t)
		o := newTestOrder(t, f, "user-1")
		if _, err := f.orders.MarkRefunded(ctx, o.ID); !errors.Is(err, domain.ErrInvalidTransition) {
			t.Errorf("expected ErrInvalidTransition, got %v", err)
		}
	})

	t.Run("should refuse to complete a failed order", func(t *testing.T) {
		f := newFixture(t)
		o := newTestOrder(t, f, "user-1")
		_ = f.orders.UpdateOrderStatus(ctx, o.ID, model.OrderStatusFailed, nil)
		if _, err := f.orders.CompleteOrder(ctx, o.ID, nil); !errors.Is(err, domain.ErrInvalidTransition) {
			t.Errorf("expected ErrInvalidTransition, got %v", err)
		}
	})
}

func TestOrderUseCase_Access(t *testing.T) {
	ctx := context.Background()

	t.Run("should grant access once per product", func(t *testing.T) {
		f := newFixture(t)
		o := newTestOrder(t, f, "user-1")

		if err := f.orders.GrantProductAccess(ctx, "user-1", o.ID); err != nil {
			t.Fatalf("first grant: %v", err)
		}
		if err := f.orders.GrantProductAccess(ctx, "user-1", o.ID); err != nil {
			t.Fatalf("second grant must be a no-op, got %v", err)
		}

		grants, _ := f.orders.GetUserAccessibleProducts(ctx, "user-1")
		if len(grants) != 1 {
			t.Errorf("expected 1 grant, got %d", len(grants))
		}
		ok, _ := f.orders.HasAccess(ctx, "user-1", "ebook")
		if !ok {
			t.Error("expected access")
		}
		ok, _ = f.orders.HasAccess(ctx, "user-2", "ebook")
		if ok {
			t.Error("other users must not have access")
		}
	})

	t.Run("should count downloads only for entitled users", func(t *testing.T) {
		f := newFixture(t)
		o := newTestOrder(t, f, "user-1")
		_, _ = f.orders.CompleteOrder(ctx, o.ID, nil)

		if err := f.orders.IncrementDownloadCount(ctx, "user-1", "ebook"); err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if err := f.orders.IncrementDownloadCount(ctx, "user-2", "ebook"); !errors.Is(err, domain.ErrNoAccess) {
			t.Errorf("expected ErrNoAccess, got %v", err)
		}
		a, _ := f.accessRepo.Find(ctx, nil, "user-1", "ebook")
		if a.DownloadCount != 1 {
			t.Errorf("expected 1 download, got %d", a.DownloadCount)
		}
	})

	t.Run("should revoke grants when a completed order is refunded", func(t *testing.T) {
		f := newFixture(t)
		o := newTestOrder(t, f, "user-1")
		_, _ = f.orders.CompleteOrder(ctx, o.ID, nil)

		got, err := f.orders.MarkRefunded(ctx, o.ID)
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if got.Status != model.OrderStatusRefunded {
			t.Errorf("expected refunded, got %s", got.Status)
		}
		if ok, _ := f.orders.HasAccess(ctx, "user-1", "ebook"); ok {
			t.Error("expected access to be revoked")
		}
	})
}
