package usecase

import (
	"context"
	"errors"
	"fmt"

	"digital-checkout/internal/domain"
	"digital-checkout/internal/domain/model"
	"digital-checkout/internal/domain/ports/repository"
)

// Compile-time check
var _ CartUseCase = (*cartUC)(nil)

type CartUseCase interface {
	GetCart(ctx context.Context, userID string) (*model.Cart, error)
	AddItem(ctx context.Context, userID, productID string, method model.PaymentMethod) (*model.Cart, error)
	RemoveItem(ctx context.Context, userID, productID string) (*model.Cart, error)
	UpdatePaymentMethod(ctx context.Context, userID, productID string, method model.PaymentMethod) (*model.Cart, error)
	ClearCart(ctx context.Context, userID string) error
	// GetCartWithTotals resolves every item against the catalog.
	GetCartWithTotals(ctx context.Context, userID string) (*model.PricedCart, error)
}

type cartUC struct {
	carts    repository.CartStore
	products repository.ProductRepository
}

func NewCartUseCase(carts repository.CartStore, products repository.ProductRepository) *cartUC {
	return &cartUC{carts: carts, products: products}
}

func (u *cartUC) GetCart(ctx context.Context, userID string) (*model.Cart, error) {
	if userID == "" {
		return nil, domain.ErrInvalidArgument
	}
	return u.carts.Get(ctx, userID)
}

func (u *cartUC) AddItem(ctx context.Context, userID, productID string, method model.PaymentMethod) (*model.Cart, error) {
	if userID == "" || productID == "" {
		return nil, domain.ErrInvalidArgument
	}
	if method == "" {
		method = model.PaymentMethodCash
	}
	if !method.Valid() {
		return nil, fmt.Errorf("%w: payment method %q", domain.ErrInvalidArgument, method)
	}
	if _, err := u.product(ctx, productID); err != nil {
		return nil, err
	}
	return u.carts.Update(ctx, userID, func(c *model.Cart) error {
		c.Upsert(productID, method)
		return nil
	})
}

func (u *cartUC) RemoveItem(ctx context.Context, userID, productID string) (*model.Cart, error) {
	return u.carts.Update(ctx, userID, func(c *model.Cart) error {
		c.Remove(productID)
		return nil
	})
}

func (u *cartUC) UpdatePaymentMethod(ctx context.Context, userID, productID string, method model.PaymentMethod) (*model.Cart, error) {
	if !method.Valid() {
		return nil, fmt.Errorf("%w: payment method %q", domain.ErrInvalidArgument, method)
	}
	return u.carts.Update(ctx, userID, func(c *model.Cart) error {
		for i := range c.Items {
			if c.Items[i].ProductID == productID {
				c.Items[i].PaymentMethod = method
				return nil
			}
		}
		return domain.ErrNotFound
	})
}

func (u *cartUC) ClearCart(ctx context.Context, userID string) error {
	return u.carts.Clear(ctx, userID)
}

func (u *cartUC) GetCartWithTotals(ctx context.Context, userID string) (*model.PricedCart, error) {
	c, err := u.GetCart(ctx, userID)
	if err != nil {
		return nil, err
	}
	lines := make([]model.PricedLine, 0, len(c.Items))
	for _, it := range c.Items {
		p, err := u.product(ctx, it.ProductID)
		if err != nil {
			return nil, err
		}
		method := it.PaymentMethod
		if method != model.PaymentMethodCredits {
			method = model.PaymentMethodCash
		}
		lines = append(lines, model.PricedLine{Product: p, PaymentMethod: method})
	}
	return model.NewPricedCart(userID, lines), nil
}

func (u *cartUC) product(ctx context.Context, id string) (*model.Product, error) {
	p, err := u.products.FindByID(ctx, repository.NoTX, id)
	if errors.Is(err, domain.ErrNotFound) {
		return nil, fmt.Errorf("%w: %s", domain.ErrProductNotFound, id)
	}
	return p, err
}
