package memory

import (
	"context"
	"sort"
	"sync"

	"digital-checkout/internal/domain"
	"digital-checkout/internal/domain/model"
	"digital-checkout/internal/domain/ports/repository"
)

var _ repository.ProductAccessRepository = (*AccessRepo)(nil)

type AccessRepo struct {
	mu     sync.RWMutex
	grants map[string]*model.ProductAccess // key: user|product
}

func NewAccessRepo() *AccessRepo {
	return &AccessRepo{grants: map[string]*model.ProductAccess{}}
}

func accessKey(userID, productID string) string { return userID + "|" + productID }

func (r *AccessRepo) Grant(_ context.Context, _ repository.Tx, a *model.ProductAccess) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	k := accessKey(a.UserID, a.ProductID)
	if _, ok := r.grants[k]; ok {
		return false, nil
	}
	cp := *a
	r.grants[k] = &cp
	return true, nil
}

func (r *AccessRepo) Find(_ context.Context, _ repository.Tx, userID, productID string) (*model.ProductAccess, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	a, ok := r.grants[accessKey(userID, productID)]
	if !ok {
		return nil, domain.ErrNotFound
	}
	cp := *a
	return &cp, nil
}

func (r *AccessRepo) ListByUser(_ context.Context, _ repository.Tx, userID string) ([]*model.ProductAccess, error) {
	r.mu.RLock()
	var out []*model.ProductAccess
	for _, a := range r.grants {
		if a.UserID == userID {
			cp := *a
			out = append(out, &cp)
		}
	}
	r.mu.RUnlock()
	sort.Slice(out, func(i, j int) bool { return out[i].GrantedAt.After(out[j].GrantedAt) })
	return out, nil
}

func (r *AccessRepo) IncrementDownloads(_ context.Context, _ repository.Tx, userID, productID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	a, ok := r.grants[accessKey(userID, productID)]
	if !ok {
		return domain.ErrNotFound
	}
	a.DownloadCount++
	return nil
}

func (r *AccessRepo) RevokeByOrder(_ context.Context, _ repository.Tx, userID, orderID string) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for k, a := range r.grants {
		if a.UserID == userID && a.OrderID == orderID {
			delete(r.grants, k)
			n++
		}
	}
	return n, nil
}

func (r *AccessRepo) Reassign(_ context.Context, _ repository.Tx, userID, productID, fromOrderID, toOrderID string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	a, ok := r.grants[accessKey(userID, productID)]
	if !ok || a.OrderID != fromOrderID {
		return false, nil
	}
	a.OrderID = toOrderID
	return true, nil
}
