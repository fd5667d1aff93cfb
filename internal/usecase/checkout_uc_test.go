//go:build !integration

package usecase_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"digital-checkout/internal/domain"
	"digital-checkout/internal/domain/model"
	"digital-checkout/internal/domain/ports/adapter"
	"digital-checkout/internal/domain/ports/repository"
	"digital-checkout/internal/usecase"
)

func TestCheckoutUseCase_Credits(t *testing.T) {
	ctx := context.Background()

	t.Run("should complete a credits purchase and grant access", func(t *testing.T) {
		// --- Arrange ---
		f := newFixture(t)
		f.product(t, "item-a", 999, 30)
		f.grantCredits(t, "user-1", 100)
		f.addToCart(t, "user-1", "item-a", model.PaymentMethodCredits)

		// --- Act ---
		res, err := f.checkout.CheckoutWithCredits(ctx, "user-1")

		// --- Assert ---
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if !res.Success || res.CreditsSpent != 30 {
			t.Errorf("unexpected result %+v", res)
		}
		o, _ := f.orders.GetOrder(ctx, res.OrderID)
		if o.Status != model.OrderStatusCompleted || o.CompletedAt == nil {
			t.Errorf("expected completed order, got %s", o.Status)
		}
		if got := f.balance(t, "user-1"); got != 70 {
			t.Errorf("expected balance 70, got %d", got)
		}
		grants, _ := f.orders.GetUserAccessibleProducts(ctx, "user-1")
		if len(grants) != 1 {
			t.Errorf("expected 1 grant, got %d", len(grants))
		}
		p, _ := f.productRepo.FindByID(ctx, nil, "item-a")
		if p.Popularity != 1 {
			t.Errorf("expected popularity 1, got %d", p.Popularity)
		}
		c, _ := f.carts.GetCart(ctx, "user-1")
		if len(c.Items) != 0 {
			t.Error("expected the cart to be cleared")
		}
		if len(f.gateway.Charges) != 0 {
			t.Error("credits checkout must not touch the gateway")
		}
	})

	t.Run("should fail on an empty cart without creating an order", func(t *testing.T) {
		f := newFixture(t)
		_, err := f.checkout.CheckoutWithCredits(ctx, "user-1")
		if !errors.Is(err, domain.ErrEmptyCart) {
			t.Fatalf("expected ErrEmptyCart, got %v", err)
		}
		if n := len(f.userOrders(t, "user-1")); n != 0 {
			t.Errorf("expected no orders, got %d", n)
		}
	})

	t.Run("should fail on insufficient credits without creating an order", func(t *testing.T) {
		f := newFixture(t)
		f.product(t, "item-a", 999, 30)
		f.grantCredits(t, "user-1", 20)
		f.addToCart(t, "user-1", "item-a", model.PaymentMethodCredits)

		_, err := f.checkout.CheckoutWithCredits(ctx, "user-1")

		var ice *domain.InsufficientCreditsError
		if !errors.As(err, &ice) {
			t.Fatalf("expected InsufficientCreditsError, got %v", err)
		}
		if ice.Balance != 20 || ice.Required != 30 {
			t.Errorf("unexpected payload %+v", ice)
		}
		if n := len(f.userOrders(t, "user-1")); n != 0 {
			t.Errorf("expected no orders, got %d", n)
		}
		if got := f.balance(t, "user-1"); got != 20 {
			t.Errorf("expected balance unchanged, got %d", got)
		}
	})

	t.Run("should reject a cart holding cash items", func(t *testing.T) {
		f := newFixture(t)
		f.product(t, "item-a", 999, 30)
		f.product(t, "item-b", 500, 10)
		f.grantCredits(t, "user-1", 100)
		f.addToCart(t, "user-1", "item-a", model.PaymentMethodCredits)
		f.addToCart(t, "user-1", "item-b", model.PaymentMethodCash)

		_, err := f.checkout.CheckoutWithCredits(ctx, "user-1")

		if !errors.Is(err, domain.ErrMixedPaymentMismatch) {
			t.Fatalf("expected ErrMixedPaymentMismatch, got %v", err)
		}
		if n := len(f.userOrders(t, "user-1")); n != 0 {
			t.Errorf("expected no orders, got %d", n)
		}
	})

	t.Run("should fail with ErrProductNotFound before any mutation", func(t *testing.T) {
		f := newFixture(t)
		f.product(t, "item-a", 999, 30)
		f.grantCredits(t, "user-1", 100)
		f.addToCart(t, "user-1", "item-a", model.PaymentMethodCredits)
		_, _ = f.cartStore.Update(ctx, "user-1", func(c *model.Cart) error {
			c.Upsert("ghost", model.PaymentMethodCredits)
			return nil
		})

		_, err := f.checkout.CheckoutWithCredits(ctx, "user-1")

		if !errors.Is(err, domain.ErrProductNotFound) {
			t.Fatalf("expected ErrProductNotFound, got %v", err)
		}
		if got := f.balance(t, "user-1"); got != 100 {
			t.Errorf("expected balance unchanged, got %d", got)
		}
	})
}

func TestCheckoutUseCase_Cash(t *testing.T) {
	ctx := context.Background()

	t.Run("should charge the card and record the payment id", func(t *testing.T) {
		f := newFixture(t)
		f.product(t, "course", 4900, 90)
		f.addToCart(t, "user-1", "course", model.PaymentMethodCash)

		res, err := f.checkout.CheckoutWithCash(ctx, "user-1", testCard())

		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if res.CashCharged != 4900 || res.PaymentTransactionID != "ch_1" {
			t.Errorf("unexpected result %+v", res)
		}
		o, _ := f.orders.GetOrder(ctx, res.OrderID)
		if o.Status != model.OrderStatusCompleted {
			t.Errorf("expected completed, got %s", o.Status)
		}
		if o.PaymentTransactionID == nil || *o.PaymentTransactionID != "ch_1" {
			t.Errorf("expected payment id on order, got %v", o.PaymentTransactionID)
		}
		if len(f.gateway.Charges) != 1 || f.gateway.Charges[0] != 4900 {
			t.Errorf("expected one charge of 4900, got %v", f.gateway.Charges)
		}
	})

	t.Run("should spend credits first and charge only the cash part", func(t *testing.T) {
		f := newFixture(t)
		f.product(t, "ebook", 1500, 30)
		f.product(t, "course", 4900, 90)
		f.grantCredits(t, "user-1", 50)
		f.addToCart(t, "user-1", "ebook", model.PaymentMethodCredits)
		f.addToCart(t, "user-1", "course", model.PaymentMethodCash)

		res, err := f.checkout.CheckoutMixed(ctx, "user-1", testCard())

		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if res.CreditsSpent != 30 || res.CashCharged != 4900 {
			t.Errorf("unexpected result %+v", res)
		}
		if got := f.balance(t, "user-1"); got != 20 {
			t.Errorf("expected balance 20, got %d", got)
		}
		grants, _ := f.orders.GetUserAccessibleProducts(ctx, "user-1")
		if len(grants) != 2 {
			t.Errorf("expected 2 grants, got %d", len(grants))
		}
	})

	t.Run("should compensate credits and fail the order when the charge is declined", func(t *testing.T) {
		f := newFixture(t)
		f.product(t, "ebook", 1500, 30)
		f.product(t, "course", 4900, 90)
		f.grantCredits(t, "user-1", 50)
		f.addToCart(t, "user-1", "ebook", model.PaymentMethodCredits)
		f.addToCart(t, "user-1", "course", model.PaymentMethodCash)
		f.gateway.ChargeFunc = func(ctx context.Context, token string, amount int64, currency string) (*adapter.ChargeResult, error) {
			return &adapter.ChargeResult{Success: false, Error: "card_declined"}, nil
		}

		_, err := f.checkout.CheckoutWithCash(ctx, "user-1", testCard())

		var pde *domain.PaymentDeclinedError
		if !errors.As(err, &pde) || pde.Reason != "card_declined" {
			t.Fatalf("expected PaymentDeclinedError, got %v", err)
		}
		orders := f.userOrders(t, "user-1")
		if len(orders) != 1 || orders[0].Status != model.OrderStatusFailed {
			t.Fatalf("expected one failed order, got %+v", orders)
		}
		if got := f.balance(t, "user-1"); got != 50 {
			t.Errorf("expected credits restored to 50, got %d", got)
		}
		if grants, _ := f.orders.GetUserAccessibleProducts(ctx, "user-1"); len(grants) != 0 {
			t.Errorf("expected no grants, got %d", len(grants))
		}
		c, _ := f.carts.GetCart(ctx, "user-1")
		if len(c.Items) != 2 {
			t.Error("the cart must be left untouched on failure")
		}
	})

	t.Run("should treat a gateway timeout as a decline", func(t *testing.T) {
		f := newFixture(t)
		f.product(t, "ebook", 1500, 30)
		f.product(t, "course", 4900, 90)
		f.grantCredits(t, "user-1", 30)
		f.addToCart(t, "user-1", "ebook", model.PaymentMethodCredits)
		f.addToCart(t, "user-1", "course", model.PaymentMethodCash)
		f.gateway.ChargeFunc = func(ctx context.Context, token string, amount int64, currency string) (*adapter.ChargeResult, error) {
			<-ctx.Done()
			return nil, ctx.Err()
		}
		uc := usecase.NewCheckoutUseCase(f.carts, f.credits, f.orders, f.productRepo, f.gateway, f.locker,
			usecase.CheckoutConfig{ChargeTimeout: 20 * time.Millisecond}, newTestLogger())

		_, err := uc.CheckoutWithCash(ctx, "user-1", testCard())

		if !errors.Is(err, domain.ErrPaymentDeclined) {
			t.Fatalf("expected ErrPaymentDeclined, got %v", err)
		}
		orders := f.userOrders(t, "user-1")
		if len(orders) != 1 || orders[0].Status != model.OrderStatusFailed {
			t.Fatalf("expected one failed order, got %+v", orders)
		}
		if got := f.balance(t, "user-1"); got != 30 {
			t.Errorf("expected credits restored to 30, got %d", got)
		}
	})

	t.Run("should compensate when tokenization fails", func(t *testing.T) {
		f := newFixture(t)
		f.product(t, "course", 4900, 90)
		f.addToCart(t, "user-1", "course", model.PaymentMethodCash)
		f.gateway.TokenFunc = func(ctx context.Context, card adapter.CardInput) (*adapter.PaymentToken, error) {
			return nil, &domain.TokenizationError{Reason: "invalid card number"}
		}

		_, err := f.checkout.CheckoutWithCash(ctx, "user-1", testCard())

		if !errors.Is(err, domain.ErrTokenization) {
			t.Fatalf("expected ErrTokenization, got %v", err)
		}
		orders := f.userOrders(t, "user-1")
		if len(orders) != 1 || orders[0].Status != model.OrderStatusFailed {
			t.Errorf("expected one failed order, got %+v", orders)
		}
	})

	t.Run("should require card details before creating an order", func(t *testing.T) {
		f := newFixture(t)
		f.product(t, "course", 4900, 90)
		f.addToCart(t, "user-1", "course", model.PaymentMethodCash)

		_, err := f.checkout.CheckoutWithCash(ctx, "user-1", nil)
		if !errors.Is(err, domain.ErrCardDetailsRequired) {
			t.Fatalf("expected ErrCardDetailsRequired, got %v", err)
		}
		_, err = f.checkout.CheckoutMixed(ctx, "user-1", nil)
		if !errors.Is(err, domain.ErrCardDetailsRequired) {
			t.Fatalf("expected ErrCardDetailsRequired from mixed, got %v", err)
		}
		if n := len(f.userOrders(t, "user-1")); n != 0 {
			t.Errorf("expected no orders, got %d", n)
		}
	})

	t.Run("should route a mixed checkout without cash to the credits flow", func(t *testing.T) {
		f := newFixture(t)
		f.product(t, "ebook", 1500, 30)
		f.grantCredits(t, "user-1", 30)
		f.addToCart(t, "user-1", "ebook", model.PaymentMethodCredits)

		res, err := f.checkout.CheckoutMixed(ctx, "user-1", nil)

		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if res.CashCharged != 0 || len(f.gateway.Intents) != 0 {
			t.Errorf("expected no gateway call, got %+v", f.gateway.Intents)
		}
	})

	t.Run("should refund the charge when completion fails after payment", func(t *testing.T) {
		f := newFixture(t)
		f.product(t, "course", 4900, 90)
		f.addToCart(t, "user-1", "course", model.PaymentMethodCash)
		f.gateway.ChargeFunc = func(ctx context.Context, token string, amount int64, currency string) (*adapter.ChargeResult, error) {
			// the order gets failed behind the checkout's back
			for _, o := range f.userOrders(t, "user-1") {
				_ = f.orders.UpdateOrderStatus(ctx, o.ID, model.OrderStatusFailed, nil)
			}
			return &adapter.ChargeResult{Success: true, TransactionID: "ch_9"}, nil
		}

		_, err := f.checkout.CheckoutWithCash(ctx, "user-1", testCard())

		if !errors.Is(err, domain.ErrInvalidTransition) {
			t.Fatalf("expected ErrInvalidTransition, got %v", err)
		}
		if len(f.gateway.Refunds) != 1 || f.gateway.Refunds[0] != "ch_9" {
			t.Errorf("expected the charge to be refunded, got %v", f.gateway.Refunds)
		}
	})
}

func TestCheckoutUseCase_Serialization(t *testing.T) {
	ctx := context.Background()

	t.Run("should refuse a second checkout while one is in flight", func(t *testing.T) {
		f := newFixture(t)
		f.product(t, "item-a", 999, 30)
		f.grantCredits(t, "user-1", 100)
		f.addToCart(t, "user-1", "item-a", model.PaymentMethodCredits)
		if _, err := f.locker.TryLock(ctx, "checkout:lock:user-1", time.Minute); err != nil {
			t.Fatalf("pre-lock: %v", err)
		}

		_, err := f.checkout.CheckoutWithCredits(ctx, "user-1")

		if !errors.Is(err, domain.ErrCheckoutInProgress) {
			t.Fatalf("expected ErrCheckoutInProgress, got %v", err)
		}
		if got := f.balance(t, "user-1"); got != 100 {
			t.Errorf("expected balance unchanged, got %d", got)
		}
	})

	t.Run("should release the lock after a checkout", func(t *testing.T) {
		f := newFixture(t)
		_, _ = f.checkout.CheckoutWithCredits(ctx, "user-1")
		if _, err := f.locker.TryLock(ctx, "checkout:lock:user-1", time.Minute); err != nil {
			t.Errorf("expected the lock to be free, got %v", err)
		}
	})
}

// refundFailingCredits fails every credit refund.
type refundFailingCredits struct {
	usecase.CreditUseCase
}

func (c refundFailingCredits) AddCredits(ctx context.Context, userID string, amount int64, typ model.CreditTransactionType, ref *string, exp *time.Time) (*model.CreditTransaction, error) {
	if typ == model.CreditTypeRefund {
		return nil, errors.New("ledger unavailable")
	}
	return c.CreditUseCase.AddCredits(ctx, userID, amount, typ, ref, exp)
}

func TestCheckoutUseCase_Reconciliation(t *testing.T) {
	ctx := context.Background()

	t.Run("should leave the order pending when the credit refund fails and let reconciliation finish it", func(t *testing.T) {
		// --- Arrange ---
		f := newFixture(t)
		f.product(t, "ebook", 1500, 30)
		f.product(t, "course", 4900, 90)
		f.grantCredits(t, "user-1", 40)
		f.addToCart(t, "user-1", "ebook", model.PaymentMethodCredits)
		f.addToCart(t, "user-1", "course", model.PaymentMethodCash)
		f.gateway.ChargeFunc = func(ctx context.Context, token string, amount int64, currency string) (*adapter.ChargeResult, error) {
			return &adapter.ChargeResult{Success: false, Error: "do_not_honor"}, nil
		}
		f.rewire(refundFailingCredits{f.credits})

		// --- Act ---
		_, err := f.checkout.CheckoutWithCash(ctx, "user-1", testCard())

		// --- Assert ---
		if !errors.Is(err, domain.ErrPaymentDeclined) {
			t.Fatalf("expected ErrPaymentDeclined, got %v", err)
		}
		orders := f.userOrders(t, "user-1")
		if len(orders) != 1 || orders[0].Status != model.OrderStatusPending {
			t.Fatalf("expected one pending order, got %+v", orders)
		}
		if got := f.balance(t, "user-1"); got != 10 {
			t.Fatalf("expected the deduction to stand for now, got %d", got)
		}

		// --- Act: reconcile with a healthy ledger ---
		f.rewire(f.credits)
		resolved, err := f.checkout.ResolveStaleOrder(ctx, orders[0].ID)

		// --- Assert ---
		if err != nil || !resolved {
			t.Fatalf("expected the order to be resolved, got %v / %v", resolved, err)
		}
		o, _ := f.orders.GetOrder(ctx, orders[0].ID)
		if o.Status != model.OrderStatusFailed {
			t.Errorf("expected failed, got %s", o.Status)
		}
		if got := f.balance(t, "user-1"); got != 40 {
			t.Errorf("expected credits restored to 40, got %d", got)
		}

		again, _ := f.checkout.ResolveStaleOrder(ctx, orders[0].ID)
		if again {
			t.Error("a resolved order must not be resolved twice")
		}
	})
}

func TestCheckoutUseCase_Refund(t *testing.T) {
	ctx := context.Background()

	t.Run("should return credits and cash and revoke access", func(t *testing.T) {
		f := newFixture(t)
		f.product(t, "ebook", 1500, 30)
		f.product(t, "course", 4900, 90)
		f.grantCredits(t, "user-1", 30)
		f.addToCart(t, "user-1", "ebook", model.PaymentMethodCredits)
		f.addToCart(t, "user-1", "course", model.PaymentMethodCash)
		res, err := f.checkout.CheckoutMixed(ctx, "user-1", testCard())
		if err != nil {
			t.Fatalf("checkout: %v", err)
		}

		o, err := f.checkout.RefundOrder(ctx, "user-1", res.OrderID)

		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if o.Status != model.OrderStatusRefunded {
			t.Errorf("expected refunded, got %s", o.Status)
		}
		if got := f.balance(t, "user-1"); got != 30 {
			t.Errorf("expected credits back to 30, got %d", got)
		}
		if len(f.gateway.Refunds) != 1 {
			t.Errorf("expected one gateway refund, got %v", f.gateway.Refunds)
		}
		if ok, _ := f.orders.HasAccess(ctx, "user-1", "course"); ok {
			t.Error("expected access to be revoked")
		}
		if _, err := f.checkout.RefundOrder(ctx, "user-1", res.OrderID); !errors.Is(err, domain.ErrInvalidTransition) {
			t.Errorf("expected ErrInvalidTransition on a second refund, got %v", err)
		}
	})

	t.Run("should keep access bought again in a later order", func(t *testing.T) {
		// --- Arrange ---
		f := newFixture(t)
		f.product(t, "ebook", 1500, 30)
		f.grantCredits(t, "user-1", 60)
		f.addToCart(t, "user-1", "ebook", model.PaymentMethodCredits)
		first, err := f.checkout.CheckoutWithCredits(ctx, "user-1")
		if err != nil {
			t.Fatalf("first checkout: %v", err)
		}
		f.addToCart(t, "user-1", "ebook", model.PaymentMethodCredits)
		second, err := f.checkout.CheckoutWithCredits(ctx, "user-1")
		if err != nil {
			t.Fatalf("second checkout: %v", err)
		}

		// --- Act ---
		if _, err := f.checkout.RefundOrder(ctx, "user-1", first.OrderID); err != nil {
			t.Fatalf("refund first: %v", err)
		}

		// --- Assert ---
		if ok, _ := f.orders.HasAccess(ctx, "user-1", "ebook"); !ok {
			t.Fatal("expected access paid for by the second order to remain")
		}
		a, _ := f.accessRepo.Find(ctx, nil, "user-1", "ebook")
		if a.OrderID != second.OrderID {
			t.Errorf("expected the grant to move to %s, got %s", second.OrderID, a.OrderID)
		}
		if got := f.balance(t, "user-1"); got != 30 {
			t.Errorf("expected 30 credits returned, got %d", got)
		}

		if _, err := f.checkout.RefundOrder(ctx, "user-1", second.OrderID); err != nil {
			t.Fatalf("refund second: %v", err)
		}
		if ok, _ := f.orders.HasAccess(ctx, "user-1", "ebook"); ok {
			t.Error("expected access revoked once no completed order holds the product")
		}
	})

	t.Run("should not refund the card twice when a refund is retried", func(t *testing.T) {
		// --- Arrange ---
		f := newFixture(t)
		f.product(t, "course", 4900, 90)
		f.addToCart(t, "user-1", "course", model.PaymentMethodCash)
		res, err := f.checkout.CheckoutWithCash(ctx, "user-1", testCard())
		if err != nil {
			t.Fatalf("checkout: %v", err)
		}
		f.rewireOrders(&flakyRefunds{OrderRepository: f.orderRepo}, f.accessRepo)

		// --- Act ---
		_, firstErr := f.checkout.RefundOrder(ctx, "user-1", res.OrderID)
		o, err := f.checkout.RefundOrder(ctx, "user-1", res.OrderID)

		// --- Assert ---
		if firstErr == nil {
			t.Fatal("expected the first refund attempt to fail")
		}
		if err != nil {
			t.Fatalf("expected the retry to succeed, got %v", err)
		}
		if o.Status != model.OrderStatusRefunded {
			t.Errorf("expected refunded, got %s", o.Status)
		}
		if len(f.gateway.Refunds) != 1 {
			t.Errorf("expected exactly one gateway refund, got %v", f.gateway.Refunds)
		}
		if o.RefundTransactionID == nil || *o.RefundTransactionID != "re_1" {
			t.Errorf("expected refund id re_1, got %v", o.RefundTransactionID)
		}
	})

	t.Run("should refuse to refund another user's order", func(t *testing.T) {
		f := newFixture(t)
		f.product(t, "ebook", 1500, 30)
		f.grantCredits(t, "user-1", 30)
		f.addToCart(t, "user-1", "ebook", model.PaymentMethodCredits)
		res, _ := f.checkout.CheckoutWithCredits(ctx, "user-1")

		if _, err := f.checkout.RefundOrder(ctx, "user-2", res.OrderID); !errors.Is(err, domain.ErrForbidden) {
			t.Errorf("expected ErrForbidden, got %v", err)
		}
	})
}

// failingGrants fails the failAt-th grant (1-based).
type failingGrants struct {
	repository.ProductAccessRepository
	failAt int
	calls  int
}

func (g *failingGrants) Grant(ctx context.Context, tx repository.Tx, a *model.ProductAccess) (bool, error) {
	g.calls++
	if g.calls == g.failAt {
		return false, errors.New("access store unavailable")
	}
	return g.ProductAccessRepository.Grant(ctx, tx, a)
}

// flakyRefunds fails the first move of an order to refunded.
type flakyRefunds struct {
	repository.OrderRepository
	failed bool
}

func (r *flakyRefunds) UpdateStatus(ctx context.Context, tx repository.Tx, id string, status model.OrderStatus, paymentTxID *string, completedAt *time.Time) error {
	if status == model.OrderStatusRefunded && !r.failed {
		r.failed = true
		return errors.New("order store unavailable")
	}
	return r.OrderRepository.UpdateStatus(ctx, tx, id, status, paymentTxID, completedAt)
}

func TestCheckoutUseCase_PartialCompletion(t *testing.T) {
	ctx := context.Background()

	t.Run("should drop grants already written when completion fails midway", func(t *testing.T) {
		// --- Arrange ---
		f := newFixture(t)
		f.product(t, "ebook", 1500, 30)
		f.product(t, "course", 4900, 90)
		f.grantCredits(t, "user-1", 120)
		f.addToCart(t, "user-1", "ebook", model.PaymentMethodCredits)
		f.addToCart(t, "user-1", "course", model.PaymentMethodCredits)
		f.rewireOrders(f.orderRepo, &failingGrants{ProductAccessRepository: f.accessRepo, failAt: 2})

		// --- Act ---
		_, err := f.checkout.CheckoutWithCredits(ctx, "user-1")

		// --- Assert ---
		if err == nil {
			t.Fatal("expected the checkout to fail")
		}
		orders := f.userOrders(t, "user-1")
		if len(orders) != 1 || orders[0].Status != model.OrderStatusFailed {
			t.Fatalf("expected one failed order, got %+v", orders)
		}
		grants, _ := f.accessRepo.ListByUser(ctx, nil, "user-1")
		if len(grants) != 0 {
			t.Errorf("expected no grants left behind, got %d", len(grants))
		}
		if got := f.balance(t, "user-1"); got != 120 {
			t.Errorf("expected credits restored to 120, got %d", got)
		}
	})

	t.Run("should leave grants from earlier orders alone", func(t *testing.T) {
		// --- Arrange ---
		f := newFixture(t)
		f.product(t, "ebook", 1500, 30)
		f.product(t, "course", 4900, 90)
		f.grantCredits(t, "user-1", 150)
		f.addToCart(t, "user-1", "ebook", model.PaymentMethodCredits)
		if _, err := f.checkout.CheckoutWithCredits(ctx, "user-1"); err != nil {
			t.Fatalf("first checkout: %v", err)
		}
		f.addToCart(t, "user-1", "ebook", model.PaymentMethodCredits)
		f.addToCart(t, "user-1", "course", model.PaymentMethodCredits)
		f.rewireOrders(f.orderRepo, &failingGrants{ProductAccessRepository: f.accessRepo, failAt: 2})

		// --- Act ---
		_, err := f.checkout.CheckoutWithCredits(ctx, "user-1")

		// --- Assert ---
		if err == nil {
			t.Fatal("expected the checkout to fail")
		}
		if ok, _ := f.orders.HasAccess(ctx, "user-1", "ebook"); !ok {
			t.Error("expected the earlier ebook grant to survive")
		}
		if ok, _ := f.orders.HasAccess(ctx, "user-1", "course"); ok {
			t.Error("expected no course grant")
		}
	})
}
