package usecase

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"digital-checkout/internal/domain"
	"digital-checkout/internal/domain/model"
	"digital-checkout/internal/domain/ports/adapter"
	"digital-checkout/internal/domain/ports/repository"
	"digital-checkout/internal/infra/logging"
	"digital-checkout/internal/infra/metrics"
)

// Compile-time check
var _ CheckoutUseCase = (*checkoutUC)(nil)

// CheckoutUseCase turns a user's cart into a completed order, spending credits
// and/or charging a card. At most one checkout runs per user at a time.
type CheckoutUseCase interface {
	CheckoutWithCash(ctx context.Context, userID string, card *adapter.CardInput) (*CheckoutResult, error)
	CheckoutWithCredits(ctx context.Context, userID string) (*CheckoutResult, error)
	CheckoutMixed(ctx context.Context, userID string, card *adapter.CardInput) (*CheckoutResult, error)
	// RefundOrder reverses a completed order owned by userID.
	RefundOrder(ctx context.Context, userID, orderID string) (*model.Order, error)
	// ResolveStaleOrder fails a pending order left behind by an interrupted checkout,
	// returning any credits still deducted for it. It reports whether the order was resolved.
	ResolveStaleOrder(ctx context.Context, orderID string) (bool, error)
}

type CheckoutResult struct {
	Success              bool   `json:"success"`
	OrderID              string `json:"orderId"`
	CreditsSpent         int64  `json:"creditsSpent"`
	CashCharged          int64  `json:"cashCharged"`
	PaymentTransactionID string `json:"paymentTransactionId,omitempty"`
	Message              string `json:"message"`
}

type CheckoutConfig struct {
	Currency      string
	ChargeTimeout time.Duration // whole intent+token+charge sequence
	LockTTL       time.Duration // per-user checkout lock
}

type checkoutUC struct {
	carts    CartUseCase
	credits  CreditUseCase
	orders   OrderUseCase
	products repository.ProductRepository
	gateway  adapter.PaymentGateway
	locker   adapter.Locker
	cfg      CheckoutConfig
	log      *zerolog.Logger
}

func NewCheckoutUseCase(
	carts CartUseCase,
	credits CreditUseCase,
	orders OrderUseCase,
	products repository.ProductRepository,
	gateway adapter.PaymentGateway,
	locker adapter.Locker,
	cfg CheckoutConfig,
	logger *zerolog.Logger,
) *checkoutUC {
	if cfg.Currency == "" {
		cfg.Currency = "usd"
	}
	if cfg.ChargeTimeout <= 0 {
		cfg.ChargeTimeout = 30 * time.Second
	}
	if cfg.LockTTL <= 0 {
		cfg.LockTTL = 2 * time.Minute
	}
	l := logger.With().Str("component", "checkout").Logger()
	return &checkoutUC{
		carts:    carts,
		credits:  credits,
		orders:   orders,
		products: products,
		gateway:  gateway,
		locker:   locker,
		cfg:      cfg,
		log:      &l,
	}
}

func (u *checkoutUC) CheckoutWithCash(ctx context.Context, userID string, card *adapter.CardInput) (*CheckoutResult, error) {
	if card == nil {
		metrics.IncCheckout("cash", outcomeLabel(domain.ErrCardDetailsRequired))
		return nil, domain.ErrCardDetailsRequired
	}
	var res *CheckoutResult
	err := u.withUserLock(ctx, userID, func(ctx context.Context) error {
		cart, err := u.loadCart(ctx, userID)
		if err != nil {
			return err
		}
		if err := u.ensureBalance(ctx, userID, cart.CreditsTotal); err != nil {
			return err
		}
		res, err = u.settle(ctx, cart, card)
		if err == nil {
			res.Message = "Payment successful"
		}
		return err
	})
	metrics.IncCheckout("cash", outcomeLabel(err))
	return res, err
}

func (u *checkoutUC) CheckoutWithCredits(ctx context.Context, userID string) (*CheckoutResult, error) {
	var res *CheckoutResult
	err := u.withUserLock(ctx, userID, func(ctx context.Context) error {
		cart, err := u.loadCart(ctx, userID)
		if err != nil {
			return err
		}
		if cart.HasCashItems() {
			return domain.ErrMixedPaymentMismatch
		}
		if err := u.ensureBalance(ctx, userID, cart.CreditsTotal); err != nil {
			return err
		}
		res, err = u.settle(ctx, cart, nil)
		if err == nil {
			res.Message = "Purchase completed with credits"
		}
		return err
	})
	metrics.IncCheckout("credits", outcomeLabel(err))
	return res, err
}

// CheckoutMixed settles without a card when nothing is owed in cash,
// otherwise it requires card details and runs the cash flow.
func (u *checkoutUC) CheckoutMixed(ctx context.Context, userID string, card *adapter.CardInput) (*CheckoutResult, error) {
	var res *CheckoutResult
	err := u.withUserLock(ctx, userID, func(ctx context.Context) error {
		cart, err := u.loadCart(ctx, userID)
		if err != nil {
			return err
		}
		if cart.CashTotal > 0 && card == nil {
			return domain.ErrCardDetailsRequired
		}
		if cart.CashTotal == 0 {
			card = nil
		}
		if err := u.ensureBalance(ctx, userID, cart.CreditsTotal); err != nil {
			return err
		}
		res, err = u.settle(ctx, cart, card)
		if err == nil {
			res.Message = "Purchase completed"
		}
		return err
	})
	metrics.IncCheckout("mixed", outcomeLabel(err))
	return res, err
}

func (u *checkoutUC) loadCart(ctx context.Context, userID string) (*model.PricedCart, error) {
	cart, err := u.carts.GetCartWithTotals(ctx, userID)
	if err != nil {
		return nil, err
	}
	if cart.IsEmpty() {
		return nil, domain.ErrEmptyCart
	}
	return cart, nil
}

func (u *checkoutUC) ensureBalance(ctx context.Context, userID string, required int64) error {
	if required <= 0 {
		return nil
	}
	bal, err := u.credits.GetBalance(ctx, userID)
	if err != nil {
		return err
	}
	if bal < required {
		return &domain.InsufficientCreditsError{Balance: bal, Required: required}
	}
	return nil
}

// settle runs the mutating part of every checkout: pending order, credits
// first, then the cash charge, then completion. Any failure after the order
// exists unwinds the recorded compensations and fails the order.
func (u *checkoutUC) settle(ctx context.Context, cart *model.PricedCart, card *adapter.CardInput) (*CheckoutResult, error) {
	items, err := cart.OrderItems()
	if err != nil {
		return nil, err
	}
	order, err := u.orders.CreateOrder(ctx, cart.UserID, items, cart.CashTotal, cart.CreditsTotal)
	if err != nil {
		return nil, err
	}
	log := logging.With(ctx, u.log).With().Str("order_id", order.ID).Logger()

	var s saga
	if order.CreditsTotal > 0 {
		ref := order.ID
		if _, err := u.credits.DeductCredits(ctx, order.UserID, order.CreditsTotal, model.CreditTypeSpend, &ref); err != nil {
			return nil, u.abort(ctx, &log, order, &s, err)
		}
		s.add(stepRefundCredits, "", func(ctx context.Context) error {
			_, err := u.credits.AddCredits(ctx, order.UserID, order.CreditsTotal, model.CreditTypeRefund, &ref, nil)
			return err
		})
	}

	var paymentTxID *string
	if order.CashTotal > 0 {
		chargeID, err := u.charge(ctx, &log, order, card)
		if err != nil {
			return nil, u.abort(ctx, &log, order, &s, err)
		}
		paymentTxID = &chargeID
		s.add(stepRefundCharge, chargeID, func(ctx context.Context) error {
			_, err := u.gateway.RefundCharge(ctx, chargeID, order.CashTotal, u.cfg.Currency)
			return err
		})
	}

	done, err := u.orders.CompleteOrder(ctx, order.ID, paymentTxID)
	if err != nil {
		return nil, u.abort(ctx, &log, order, &s, err)
	}
	log.Info().Int64("credits", done.CreditsTotal).Int64("cash", done.CashTotal).Msg("checkout completed")

	u.afterCompletion(ctx, &log, cart)

	res := &CheckoutResult{
		Success:      true,
		OrderID:      done.ID,
		CreditsSpent: done.CreditsTotal,
		CashCharged:  done.CashTotal,
	}
	if paymentTxID != nil {
		res.PaymentTransactionID = *paymentTxID
	}
	return res, nil
}

// charge runs intent, tokenization and charge under one timeout. A timeout
// or transport error is reported as a decline.
func (u *checkoutUC) charge(ctx context.Context, log *zerolog.Logger, order *model.Order, card *adapter.CardInput) (string, error) {
	if card == nil {
		return "", domain.ErrCardDetailsRequired
	}
	provider := u.gateway.Name()
	cctx, cancel := context.WithTimeout(ctx, u.cfg.ChargeTimeout)
	defer cancel()
	start := time.Now()
	defer func() { metrics.ObserveGatewayLatency(provider, time.Since(start)) }()

	intent, err := u.gateway.CreatePaymentIntent(cctx, order.CashTotal, u.cfg.Currency, map[string]string{
		"orderId": order.ID,
		"userId":  order.UserID,
	})
	if err != nil {
		return "", u.declined(provider, err)
	}
	log.Debug().Str("intent_id", intent.ID).Msg("payment intent created")

	token, err := u.gateway.CreateToken(cctx, *card)
	if err != nil {
		return "", u.declined(provider, err)
	}

	res, err := u.gateway.ChargeToken(cctx, token.ID, order.CashTotal, u.cfg.Currency)
	if err != nil {
		return "", u.declined(provider, err)
	}
	if !res.Success {
		metrics.IncPayment(provider, "declined")
		return "", &domain.PaymentDeclinedError{Provider: provider, Reason: res.Error}
	}
	metrics.IncPayment(provider, "succeeded")
	metrics.AddPaymentRevenue(u.cfg.Currency, order.CashTotal)
	return res.TransactionID, nil
}

func (u *checkoutUC) declined(provider string, err error) error {
	if errors.Is(err, domain.ErrTokenization) {
		metrics.IncPayment(provider, "tokenization_failed")
		return err
	}
	reason := err.Error()
	if errors.Is(err, context.DeadlineExceeded) {
		reason = "gateway timeout"
	}
	metrics.IncPayment(provider, "failed")
	return &domain.PaymentDeclinedError{Provider: provider, Reason: reason}
}

// abort compensates and then fails the order. When the credit refund itself
// fails the order stays pending so the reconciler can finish the refund.
func (u *checkoutUC) abort(ctx context.Context, log *zerolog.Logger, order *model.Order, s *saga, cause error) error {
	cctx := context.WithoutCancel(ctx)
	failed := s.unwind(cctx, log)

	var chargeRef *string
	for _, step := range failed {
		if step.name == stepRefundCredits {
			log.Error().Err(cause).Msg("credit compensation failed, order left pending for reconciliation")
			return cause
		}
		if step.name == stepRefundCharge {
			ref := step.ref
			chargeRef = &ref
		}
	}
	if err := u.orders.FailOrder(cctx, order.ID, chargeRef); err != nil {
		log.Error().Err(err).Msg("mark order failed")
	}
	log.Warn().Err(cause).Msg("checkout failed")
	return cause
}

// afterCompletion is best effort: the order is already completed.
func (u *checkoutUC) afterCompletion(ctx context.Context, log *zerolog.Logger, cart *model.PricedCart) {
	cctx := context.WithoutCancel(ctx)
	for _, l := range cart.Lines {
		if err := u.products.IncrementPopularity(cctx, repository.NoTX, l.Product.ID); err != nil {
			log.Warn().Err(err).Str("product_id", l.Product.ID).Msg("increment popularity")
		}
	}
	if err := u.carts.ClearCart(cctx, cart.UserID); err != nil {
		log.Warn().Err(err).Msg("clear cart")
	}
}

func (u *checkoutUC) RefundOrder(ctx context.Context, userID, orderID string) (*model.Order, error) {
	var out *model.Order
	err := u.withUserLock(ctx, userID, func(ctx context.Context) error {
		o, err := u.orders.GetOrder(ctx, orderID)
		if err != nil {
			return err
		}
		if o.UserID != userID {
			return domain.ErrForbidden
		}
		if !model.CanTransition(o.Status, model.OrderStatusRefunded) {
			return fmt.Errorf("%w: %s -> %s", domain.ErrInvalidTransition, o.Status, model.OrderStatusRefunded)
		}
		if err := u.refundCash(ctx, o); err != nil {
			return err
		}
		if err := u.returnCredits(ctx, o); err != nil {
			return err
		}
		out, err = u.orders.MarkRefunded(ctx, o.ID)
		return err
	})
	return out, err
}

// refundCash refunds the card charge once. The gateway refund id is stored on
// the order so a retried refund skips the gateway.
func (u *checkoutUC) refundCash(ctx context.Context, o *model.Order) error {
	if o.CashTotal == 0 || o.PaymentTransactionID == nil || o.RefundTransactionID != nil {
		return nil
	}
	res, err := u.gateway.RefundCharge(ctx, *o.PaymentTransactionID, o.CashTotal, u.cfg.Currency)
	if err != nil {
		return fmt.Errorf("refund charge: %w", err)
	}
	metrics.IncPayment(u.gateway.Name(), "refunded")
	refundID := res.RefundID
	if refundID == "" {
		refundID = "refund:" + *o.PaymentTransactionID
	}
	if err := u.orders.RecordRefund(context.WithoutCancel(ctx), o.ID, refundID); err != nil {
		logging.With(ctx, u.log).Error().Err(err).Str("order_id", o.ID).Str("refund_id", refundID).
			Msg("card refunded but refund id not recorded")
		return fmt.Errorf("record refund: %w", err)
	}
	o.RefundTransactionID = &refundID
	return nil
}

// returnCredits puts back whatever the order still holds, so it is safe to repeat.
func (u *checkoutUC) returnCredits(ctx context.Context, o *model.Order) error {
	net, err := u.credits.NetByReference(ctx, o.UserID, o.ID)
	if err != nil {
		return err
	}
	if net >= 0 {
		return nil
	}
	ref := o.ID
	_, err = u.credits.AddCredits(ctx, o.UserID, -net, model.CreditTypeRefund, &ref, nil)
	return err
}

func (u *checkoutUC) ResolveStaleOrder(ctx context.Context, orderID string) (bool, error) {
	o, err := u.orders.GetOrder(ctx, orderID)
	if err != nil {
		return false, err
	}
	if o.Status != model.OrderStatusPending {
		return false, nil
	}
	resolved := false
	err = u.withUserLock(ctx, o.UserID, func(ctx context.Context) error {
		// re-read under the lock, a checkout may have finished it meanwhile
		o, err := u.orders.GetOrder(ctx, orderID)
		if err != nil || o.Status != model.OrderStatusPending {
			return err
		}
		if err := u.returnCredits(ctx, o); err != nil {
			return err
		}
		if err := u.orders.FailOrder(ctx, o.ID, nil); err != nil {
			return err
		}
		if o.CashTotal > 0 {
			u.log.Warn().Str("order_id", o.ID).Int64("cash", o.CashTotal).Msg("stale order failed, charge outcome unknown")
		}
		resolved = true
		return nil
	})
	if errors.Is(err, domain.ErrCheckoutInProgress) {
		return false, nil
	}
	return resolved, err
}

func lockKey(userID string) string { return "checkout:lock:" + userID }

func (u *checkoutUC) withUserLock(ctx context.Context, userID string, fn func(ctx context.Context) error) error {
	if userID == "" {
		return domain.ErrInvalidArgument
	}
	key := lockKey(userID)
	token, err := u.locker.TryLock(ctx, key, u.cfg.LockTTL)
	if err != nil {
		return err
	}
	defer func() {
		if err := u.locker.Unlock(context.WithoutCancel(ctx), key, token); err != nil {
			u.log.Warn().Err(err).Str("user_id", userID).Msg("release checkout lock")
		}
	}()
	return fn(logging.WithUserID(ctx, userID))
}

func outcomeLabel(err error) string {
	switch {
	case err == nil:
		return "completed"
	case errors.Is(err, domain.ErrPaymentDeclined), errors.Is(err, domain.ErrTokenization):
		return "declined"
	case errors.Is(err, domain.ErrCheckoutInProgress):
		return "busy"
	case errors.Is(err, domain.ErrEmptyCart), errors.Is(err, domain.ErrInsufficientCredits),
		errors.Is(err, domain.ErrMixedPaymentMismatch), errors.Is(err, domain.ErrCardDetailsRequired):
		return "rejected"
	default:
		return "error"
	}
}
