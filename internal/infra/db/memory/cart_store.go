package memory

import (
	"context"
	"sync"
	"time"

	"digital-checkout/internal/domain/model"
	"digital-checkout/internal/domain/ports/repository"
)

var _ repository.CartStore = (*CartStore)(nil)

// CartStore is an in-process cart map guarded per user.
type CartStore struct {
	mu    sync.RWMutex
	carts map[string]*model.Cart
	keys  keyedMutex
}

func NewCartStore() *CartStore {
	return &CartStore{carts: map[string]*model.Cart{}}
}

func cloneCart(c *model.Cart) *model.Cart {
	cp := *c
	cp.Items = append([]model.CartItem(nil), c.Items...)
	return &cp
}

func (s *CartStore) Get(_ context.Context, userID string) (*model.Cart, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if c, ok := s.carts[userID]; ok {
		return cloneCart(c), nil
	}
	return &model.Cart{UserID: userID, Items: []model.CartItem{}}, nil
}

func (s *CartStore) Update(ctx context.Context, userID string, fn func(c *model.Cart) error) (*model.Cart, error) {
	m := s.keys.get(userID)
	m.Lock()
	defer m.Unlock()

	c, _ := s.Get(ctx, userID)
	if err := fn(c); err != nil {
		return nil, err
	}
	c.UpdatedAt = time.Now().UTC()
	s.mu.Lock()
	s.carts[userID] = cloneCart(c)
	s.mu.Unlock()
	return c, nil
}

func (s *CartStore) Clear(_ context.Context, userID string) error {
	m := s.keys.get(userID)
	m.Lock()
	defer m.Unlock()
	s.mu.Lock()
	delete(s.carts, userID)
	s.mu.Unlock()
	return nil
}
