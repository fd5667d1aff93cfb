package repository

import (
	"context"
	"time"

	"digital-checkout/internal/domain/model"
)

type OrderRepository interface {
	// Create persists the order and all of its items atomically.
	Create(ctx context.Context, tx Tx, o *model.Order) error
	FindByID(ctx context.Context, tx Tx, id string) (*model.Order, error)
	UpdateStatus(ctx context.Context, tx Tx, id string, status model.OrderStatus, paymentTxID *string, completedAt *time.Time) error
	ListByUser(ctx context.Context, tx Tx, userID string, limit int) ([]*model.Order, error)
	ListPendingOlderThan(ctx context.Context, tx Tx, cutoff time.Time, limit int) ([]*model.Order, error)
	// LatestCompletedWithProduct returns the id of the user's most recently
	// completed order that contains productID, or domain.ErrNotFound.
	LatestCompletedWithProduct(ctx context.Context, tx Tx, userID, productID string) (string, error)
	SetRefundTransaction(ctx context.Context, tx Tx, id, refundID string) error
}

type ProductAccessRepository interface {
	// Grant inserts the grant; it returns false when the (user, product) pair already exists.
	Grant(ctx context.Context, tx Tx, a *model.ProductAccess) (bool, error)
	Find(ctx context.Context, tx Tx, userID, productID string) (*model.ProductAccess, error)
	ListByUser(ctx context.Context, tx Tx, userID string) ([]*model.ProductAccess, error)
	IncrementDownloads(ctx context.Context, tx Tx, userID, productID string) error
	RevokeByOrder(ctx context.Context, tx Tx, userID, orderID string) (int, error)
	// Reassign moves the (user, product) grant from one order to another. It
	// reports false when the grant is not held by fromOrderID.
	Reassign(ctx context.Context, tx Tx, userID, productID, fromOrderID, toOrderID string) (bool, error)
}
