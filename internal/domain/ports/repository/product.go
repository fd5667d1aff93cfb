package repository

import (
	"context"

	"digital-checkout/internal/domain/model"
)

// ProductRepository is the catalog lookup consumed by checkout.
type ProductRepository interface {
	FindByID(ctx context.Context, tx Tx, id string) (*model.Product, error)
	Save(ctx context.Context, tx Tx, p *model.Product) error
	List(ctx context.Context, tx Tx, limit int) ([]*model.Product, error)
	IncrementPopularity(ctx context.Context, tx Tx, id string) error
}

// CartStore keeps one cart per user, last write wins.
type CartStore interface {
	// Get returns an empty cart when the user has none.
	Get(ctx context.Context, userID string) (*model.Cart, error)
	// Update applies fn to the user's cart and stores the result.
	Update(ctx context.Context, userID string, fn func(c *model.Cart) error) (*model.Cart, error)
	Clear(ctx context.Context, userID string) error
}
