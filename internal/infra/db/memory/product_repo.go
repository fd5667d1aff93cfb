package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"digital-checkout/internal/domain"
	"digital-checkout/internal/domain/model"
	"digital-checkout/internal/domain/ports/repository"
)

var _ repository.ProductRepository = (*ProductRepo)(nil)

type ProductRepo struct {
	mu       sync.RWMutex
	products map[string]*model.Product
}

func NewProductRepo() *ProductRepo {
	return &ProductRepo{products: map[string]*model.Product{}}
}

func (r *ProductRepo) FindByID(_ context.Context, _ repository.Tx, id string) (*model.Product, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	p, ok := r.products[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	cp := *p
	return &cp, nil
}

func (r *ProductRepo) Save(_ context.Context, _ repository.Tx, p *model.Product) error {
	if p.ID == "" {
		return domain.ErrInvalidArgument
	}
	cp := *p
	if cp.CreatedAt.IsZero() {
		cp.CreatedAt = time.Now().UTC()
	}
	cp.UpdatedAt = time.Now().UTC()
	r.mu.Lock()
	r.products[p.ID] = &cp
	r.mu.Unlock()
	return nil
}

func (r *ProductRepo) List(_ context.Context, _ repository.Tx, limit int) ([]*model.Product, error) {
	r.mu.RLock()
	out := make([]*model.Product, 0, len(r.products))
	for _, p := range r.products {
		cp := *p
		out = append(out, &cp)
	}
	r.mu.RUnlock()
	sort.Slice(out, func(i, j int) bool { return out[i].Popularity > out[j].Popularity })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (r *ProductRepo) IncrementPopularity(_ context.Context, _ repository.Tx, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.products[id]
	if !ok {
		return domain.ErrNotFound
	}
	p.Popularity++
	return nil
}
