package usecase

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v4"
	"github.com/rs/zerolog"

	"digital-checkout/internal/domain"
	"digital-checkout/internal/domain/model"
	"digital-checkout/internal/domain/ports/repository"
)

// Compile-time check
var _ OrderUseCase = (*orderUC)(nil)

// OrderUseCase owns order persistence and access grants.
//
// UpdateOrderStatus does not validate the transition graph; callers must only
// request transitions allowed by model.CanTransition.
type OrderUseCase interface {
	CreateOrder(ctx context.Context, userID string, items []model.OrderItem, cashTotal, creditsTotal int64) (*model.Order, error)
	UpdateOrderStatus(ctx context.Context, orderID string, status model.OrderStatus, paymentTransactionID *string) error
	GrantProductAccess(ctx context.Context, userID, orderID string) error
	HasAccess(ctx context.Context, userID, productID string) (bool, error)

	// CompleteOrder marks the order completed and grants access for its items in one transaction.
	CompleteOrder(ctx context.Context, orderID string, paymentTransactionID *string) (*model.Order, error)
	// FailOrder marks the order failed and drops any grant it already holds, which
	// undoes a completion that only partly persisted.
	FailOrder(ctx context.Context, orderID string, paymentTransactionID *string) error
	// MarkRefunded moves a completed order to refunded and revokes its grants.
	// A grant for a product the user also owns through another completed order
	// moves to that order instead.
	MarkRefunded(ctx context.Context, orderID string) (*model.Order, error)
	RecordRefund(ctx context.Context, orderID, refundTransactionID string) error
	GetOrder(ctx context.Context, orderID string) (*model.Order, error)
	GetUserOrders(ctx context.Context, userID string, limit int) ([]*model.Order, error)
	GetUserAccessibleProducts(ctx context.Context, userID string) ([]*model.ProductAccess, error)
	IncrementDownloadCount(ctx context.Context, userID, productID string) error
	ListStalePending(ctx context.Context, olderThan time.Duration, limit int) ([]*model.Order, error)
}

type orderUC struct {
	orders repository.OrderRepository
	access repository.ProductAccessRepository
	tm     repository.TransactionManager
	log    *zerolog.Logger
}

func NewOrderUseCase(orders repository.OrderRepository, access repository.ProductAccessRepository, tm repository.TransactionManager, logger *zerolog.Logger) *orderUC {
	l := logger.With().Str("component", "orders").Logger()
	return &orderUC{orders: orders, access: access, tm: tm, log: &l}
}

func (u *orderUC) CreateOrder(ctx context.Context, userID string, items []model.OrderItem, cashTotal, creditsTotal int64) (*model.Order, error) {
	o, err := model.NewOrder(userID, items, cashTotal, creditsTotal)
	if err != nil {
		return nil, err
	}
	err = u.tm.WithTx(ctx, pgx.TxOptions{}, func(ctx context.Context, tx repository.Tx) error {
		return u.orders.Create(ctx, tx, o)
	})
	if err != nil {
		return nil, fmt.Errorf("create order: %w", err)
	}
	return o, nil
}

func (u *orderUC) UpdateOrderStatus(ctx context.Context, orderID string, status model.OrderStatus, paymentTransactionID *string) error {
	var completedAt *time.Time
	if status == model.OrderStatusCompleted {
		now := time.Now().UTC()
		completedAt = &now
	}
	err := u.orders.UpdateStatus(ctx, repository.NoTX, orderID, status, paymentTransactionID, completedAt)
	return mapOrderErr(err)
}

func (u *orderUC) GrantProductAccess(ctx context.Context, userID, orderID string) error {
	return u.tm.WithTx(ctx, pgx.TxOptions{}, func(ctx context.Context, tx repository.Tx) error {
		o, err := u.orders.FindByID(ctx, tx, orderID)
		if err != nil {
			return mapOrderErr(err)
		}
		return u.grantItems(ctx, tx, userID, o)
	})
}

func (u *orderUC) grantItems(ctx context.Context, tx repository.Tx, userID string, o *model.Order) error {
	for _, it := range o.Items {
		if _, err := u.access.Grant(ctx, tx, model.NewPermanentAccess(userID, it.ProductID, o.ID)); err != nil {
			return fmt.Errorf("grant access to %s: %w", it.ProductID, err)
		}
	}
	return nil
}

func (u *orderUC) HasAccess(ctx context.Context, userID, productID string) (bool, error) {
	a, err := u.access.Find(ctx, repository.NoTX, userID, productID)
	if errors.Is(err, domain.ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return a.IsValid(time.Now()), nil
}

func (u *orderUC) CompleteOrder(ctx context.Context, orderID string, paymentTransactionID *string) (*model.Order, error) {
	var out *model.Order
	err := u.tm.WithTx(ctx, pgx.TxOptions{}, func(ctx context.Context, tx repository.Tx) error {
		o, err := u.orders.FindByID(ctx, tx, orderID)
		if err != nil {
			return mapOrderErr(err)
		}
		if !model.CanTransition(o.Status, model.OrderStatusCompleted) {
			return fmt.Errorf("%w: %s -> %s", domain.ErrInvalidTransition, o.Status, model.OrderStatusCompleted)
		}
		now := time.Now().UTC()
		if err := u.orders.UpdateStatus(ctx, tx, o.ID, model.OrderStatusCompleted, paymentTransactionID, &now); err != nil {
			return err
		}
		if err := u.grantItems(ctx, tx, o.UserID, o); err != nil {
			return err
		}
		o.Status = model.OrderStatusCompleted
		o.CompletedAt = &now
		o.UpdatedAt = now
		if paymentTransactionID != nil {
			o.PaymentTransactionID = paymentTransactionID
		}
		out = o
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("complete order: %w", err)
	}
	return out, nil
}

func (u *orderUC) MarkRefunded(ctx context.Context, orderID string) (*model.Order, error) {
	var out *model.Order
	err := u.tm.WithTx(ctx, pgx.TxOptions{}, func(ctx context.Context, tx repository.Tx) error {
		o, err := u.orders.FindByID(ctx, tx, orderID)
		if err != nil {
			return mapOrderErr(err)
		}
		if !model.CanTransition(o.Status, model.OrderStatusRefunded) {
			return fmt.Errorf("%w: %s -> %s", domain.ErrInvalidTransition, o.Status, model.OrderStatusRefunded)
		}
		if err := u.orders.UpdateStatus(ctx, tx, o.ID, model.OrderStatusRefunded, nil, nil); err != nil {
			return err
		}
		moved, err := u.handOverGrants(ctx, tx, o)
		if err != nil {
			return err
		}
		n, err := u.access.RevokeByOrder(ctx, tx, o.UserID, o.ID)
		if err != nil {
			return err
		}
		u.log.Info().Str("order_id", o.ID).Int("revoked", n).Int("kept", moved).Msg("order refunded")
		o.Status = model.OrderStatusRefunded
		o.UpdatedAt = time.Now().UTC()
		out = o
		return nil
	})
	return out, err
}

// handOverGrants moves each grant held by o to the user's latest other
// completed order for the same product. o must already be out of completed.
func (u *orderUC) handOverGrants(ctx context.Context, tx repository.Tx, o *model.Order) (int, error) {
	moved := 0
	for _, it := range o.Items {
		other, err := u.orders.LatestCompletedWithProduct(ctx, tx, o.UserID, it.ProductID)
		if errors.Is(err, domain.ErrNotFound) {
			continue
		}
		if err != nil {
			return moved, err
		}
		ok, err := u.access.Reassign(ctx, tx, o.UserID, it.ProductID, o.ID, other)
		if err != nil {
			return moved, err
		}
		if ok {
			moved++
		}
	}
	return moved, nil
}

func (u *orderUC) FailOrder(ctx context.Context, orderID string, paymentTransactionID *string) error {
	return u.tm.WithTx(ctx, pgx.TxOptions{}, func(ctx context.Context, tx repository.Tx) error {
		o, err := u.orders.FindByID(ctx, tx, orderID)
		if err != nil {
			return mapOrderErr(err)
		}
		if o.Status.IsTerminal() {
			return fmt.Errorf("%w: %s -> %s", domain.ErrInvalidTransition, o.Status, model.OrderStatusFailed)
		}
		if err := u.orders.UpdateStatus(ctx, tx, o.ID, model.OrderStatusFailed, paymentTransactionID, nil); err != nil {
			return err
		}
		n, err := u.access.RevokeByOrder(ctx, tx, o.UserID, o.ID)
		if err != nil {
			return err
		}
		if n > 0 {
			u.log.Warn().Str("order_id", o.ID).Int("revoked", n).Msg("dropped grants of failed order")
		}
		return nil
	})
}

func (u *orderUC) RecordRefund(ctx context.Context, orderID, refundTransactionID string) error {
	if refundTransactionID == "" {
		return domain.ErrInvalidArgument
	}
	return mapOrderErr(u.orders.SetRefundTransaction(ctx, repository.NoTX, orderID, refundTransactionID))
}

func (u *orderUC) GetOrder(ctx context.Context, orderID string) (*model.Order, error) {
	o, err := u.orders.FindByID(ctx, repository.NoTX, orderID)
	if err != nil {
		return nil, mapOrderErr(err)
	}
	return o, nil
}

func (u *orderUC) GetUserOrders(ctx context.Context, userID string, limit int) ([]*model.Order, error) {
	if userID == "" {
		return nil, domain.ErrInvalidArgument
	}
	if limit <= 0 || limit > 500 {
		limit = defaultHistoryLimit
	}
	return u.orders.ListByUser(ctx, repository.NoTX, userID, limit)
}

// GetUserAccessibleProducts returns only grants that are currently valid.
func (u *orderUC) GetUserAccessibleProducts(ctx context.Context, userID string) ([]*model.ProductAccess, error) {
	all, err := u.access.ListByUser(ctx, repository.NoTX, userID)
	if err != nil {
		return nil, err
	}
	now := time.Now()
	out := make([]*model.ProductAccess, 0, len(all))
	for _, a := range all {
		if a.IsValid(now) {
			out = append(out, a)
		}
	}
	return out, nil
}

func (u *orderUC) IncrementDownloadCount(ctx context.Context, userID, productID string) error {
	ok, err := u.HasAccess(ctx, userID, productID)
	if err != nil {
		return err
	}
	if !ok {
		return domain.ErrNoAccess
	}
	return u.access.IncrementDownloads(ctx, repository.NoTX, userID, productID)
}

func (u *orderUC) ListStalePending(ctx context.Context, olderThan time.Duration, limit int) ([]*model.Order, error) {
	return u.orders.ListPendingOlderThan(ctx, repository.NoTX, time.Now().UTC().Add(-olderThan), limit)
}

func mapOrderErr(err error) error {
	if errors.Is(err, domain.ErrNotFound) {
		return domain.ErrOrderNotFound
	}
	return err
}
