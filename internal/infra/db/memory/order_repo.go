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

var _ repository.OrderRepository = (*OrderRepo)(nil)

type OrderRepo struct {
	mu     sync.RWMutex
	orders map[string]*model.Order
}

func NewOrderRepo() *OrderRepo {
	return &OrderRepo{orders: map[string]*model.Order{}}
}

func cloneOrder(o *model.Order) *model.Order {
	cp := *o
	cp.Items = append([]model.OrderItem(nil), o.Items...)
	return &cp
}

func (r *OrderRepo) Create(_ context.Context, _ repository.Tx, o *model.Order) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.orders[o.ID]; ok {
		return domain.ErrAlreadyExists
	}
	r.orders[o.ID] = cloneOrder(o)
	return nil
}

func (r *OrderRepo) FindByID(_ context.Context, _ repository.Tx, id string) (*model.Order, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	o, ok := r.orders[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return cloneOrder(o), nil
}

func (r *OrderRepo) UpdateStatus(_ context.Context, _ repository.Tx, id string, status model.OrderStatus, paymentTxID *string, completedAt *time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	o, ok := r.orders[id]
	if !ok {
		return domain.ErrNotFound
	}
	o.Status = status
	if paymentTxID != nil {
		v := *paymentTxID
		o.PaymentTransactionID = &v
	}
	if completedAt != nil {
		v := *completedAt
		o.CompletedAt = &v
	}
	o.UpdatedAt = time.Now().UTC()
	return nil
}

func (r *OrderRepo) ListByUser(_ context.Context, _ repository.Tx, userID string, limit int) ([]*model.Order, error) {
	r.mu.RLock()
	var out []*model.Order
	for _, o := range r.orders {
		if o.UserID == userID {
			out = append(out, cloneOrder(o))
		}
	}
	r.mu.RUnlock()
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (r *OrderRepo) ListPendingOlderThan(_ context.Context, _ repository.Tx, cutoff time.Time, limit int) ([]*model.Order, error) {
	r.mu.RLock()
	var out []*model.Order
	for _, o := range r.orders {
		if o.Status == model.OrderStatusPending && o.CreatedAt.Before(cutoff) {
			out = append(out, cloneOrder(o))
		}
	}
	r.mu.RUnlock()
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (r *OrderRepo) LatestCompletedWithProduct(_ context.Context, _ repository.Tx, userID, productID string) (string, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var best *model.Order
	for _, o := range r.orders {
		if o.UserID != userID || o.Status != model.OrderStatusCompleted || !o.Contains(productID) {
			continue
		}
		if best == nil || completedAfter(o, best) {
			best = o
		}
	}
	if best == nil {
		return "", domain.ErrNotFound
	}
	return best.ID, nil
}

func completedAfter(a, b *model.Order) bool {
	if a.CompletedAt == nil || b.CompletedAt == nil {
		return a.CreatedAt.After(b.CreatedAt)
	}
	return a.CompletedAt.After(*b.CompletedAt)
}

func (r *OrderRepo) SetRefundTransaction(_ context.Context, _ repository.Tx, id, refundID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	o, ok := r.orders[id]
	if !ok {
		return domain.ErrNotFound
	}
	v := refundID
	o.RefundTransactionID = &v
	o.UpdatedAt = time.Now().UTC()
	return nil
}
