package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"digital-checkout/internal/domain/model"
	"digital-checkout/internal/domain/ports/repository"
)

var _ repository.CreditTransactionRepository = (*CreditRepo)(nil)

// CreditRepo keeps each user's ledger as an append-only slice in insertion order.
type CreditRepo struct {
	mu    sync.RWMutex
	rows  map[string][]*model.CreditTransaction
	users keyedMutex
}

func NewCreditRepo() *CreditRepo {
	return &CreditRepo{rows: map[string][]*model.CreditTransaction{}}
}

func (r *CreditRepo) LockUser(ctx context.Context, tx repository.Tx, userID string) error {
	return r.users.lockIn(ctx, tx, userID)
}

func (r *CreditRepo) LatestBalance(_ context.Context, _ repository.Tx, userID string) (int64, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	rows := r.rows[userID]
	if len(rows) == 0 {
		return 0, nil
	}
	return rows[len(rows)-1].BalanceAfter, nil
}

func (r *CreditRepo) Insert(_ context.Context, _ repository.Tx, t *model.CreditTransaction) error {
	cp := *t
	r.mu.Lock()
	r.rows[t.UserID] = append(r.rows[t.UserID], &cp)
	r.mu.Unlock()
	return nil
}

func (r *CreditRepo) ListByUser(_ context.Context, _ repository.Tx, userID string, limit int) ([]*model.CreditTransaction, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	rows := r.rows[userID]
	out := make([]*model.CreditTransaction, 0, len(rows))
	for i := len(rows) - 1; i >= 0; i-- {
		if limit > 0 && len(out) == limit {
			break
		}
		cp := *rows[i]
		out = append(out, &cp)
	}
	return out, nil
}

func (r *CreditRepo) ListExpiring(_ context.Context, _ repository.Tx, userID string, from, to time.Time) ([]*model.CreditTransaction, error) {
	r.mu.RLock()
	var out []*model.CreditTransaction
	for _, t := range r.rows[userID] {
		if t.Amount > 0 && t.ExpiresAt != nil && !t.ExpiresAt.Before(from) && !t.ExpiresAt.After(to) {
			cp := *t
			out = append(out, &cp)
		}
	}
	r.mu.RUnlock()
	sort.SliceStable(out, func(i, j int) bool { return out[i].ExpiresAt.Before(*out[j].ExpiresAt) })
	return out, nil
}

func (r *CreditRepo) ListExpiredUnprocessed(_ context.Context, _ repository.Tx, now time.Time, limit int) ([]*model.CreditTransaction, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	offset := r.expiredRefsLocked()
	var out []*model.CreditTransaction
	for _, rows := range r.rows {
		for _, t := range rows {
			if t.IsExpired(now) && !offset[t.ID] {
				cp := *t
				out = append(out, &cp)
			}
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ExpiresAt.Before(*out[j].ExpiresAt) })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (r *CreditRepo) ExpirationExists(_ context.Context, _ repository.Tx, originalID string) (bool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.expiredRefsLocked()[originalID], nil
}

func (r *CreditRepo) SumByReference(_ context.Context, _ repository.Tx, userID, referenceID string) (int64, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var sum int64
	for _, t := range r.rows[userID] {
		if t.ReferenceID != nil && *t.ReferenceID == referenceID {
			sum += t.Amount
		}
	}
	return sum, nil
}

func (r *CreditRepo) expiredRefsLocked() map[string]bool {
	refs := map[string]bool{}
	for _, rows := range r.rows {
		for _, t := range rows {
			if t.Type == model.CreditTypeExpiration && t.ReferenceID != nil {
				refs[*t.ReferenceID] = true
			}
		}
	}
	return refs
}
