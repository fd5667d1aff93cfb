package memory

import (
	"context"
	"sync"

	"github.com/jackc/pgx/v4"

	"digital-checkout/internal/domain"
	"digital-checkout/internal/domain/ports/repository"
)

var _ repository.TransactionManager = (*TxManager)(nil)

// TxManager provides transaction scoping for the in-memory store.
// It has no rollback: it only scopes the per-user locks taken through
// LockUser so they are released when fn returns.
type TxManager struct{}

func NewTxManager() *TxManager { return &TxManager{} }

// Tx is the handle passed to fn.
type Tx struct {
	mu      sync.Mutex
	held    map[string]bool
	unlocks []func()
}

func (m *TxManager) WithTx(ctx context.Context, _ pgx.TxOptions, fn func(ctx context.Context, tx repository.Tx) error) error {
	tx := &Tx{held: map[string]bool{}}
	defer tx.release()
	return fn(ctx, tx)
}

func (t *Tx) release() {
	t.mu.Lock()
	defer t.mu.Unlock()
	for i := len(t.unlocks) - 1; i >= 0; i-- {
		t.unlocks[i]()
	}
	t.unlocks = nil
}

// keyedMutex hands out one mutex per key.
type keyedMutex struct {
	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

func (k *keyedMutex) get(key string) *sync.Mutex {
	k.mu.Lock()
	defer k.mu.Unlock()
	if k.locks == nil {
		k.locks = map[string]*sync.Mutex{}
	}
	m, ok := k.locks[key]
	if !ok {
		m = &sync.Mutex{}
		k.locks[key] = m
	}
	return m
}

// lockIn takes key's mutex for the lifetime of tx. Re-locking inside the same tx is a no-op.
func (k *keyedMutex) lockIn(ctx context.Context, tx repository.Tx, key string) error {
	t, ok := tx.(*Tx)
	if !ok || t == nil {
		return domain.ErrInvalidExecContext
	}
	t.mu.Lock()
	if t.held[key] {
		t.mu.Unlock()
		return nil
	}
	t.mu.Unlock()

	m := k.get(key)
	locked := make(chan struct{})
	go func() {
		m.Lock()
		close(locked)
	}()
	select {
	case <-locked:
	case <-ctx.Done():
		// release the mutex once the pending Lock eventually succeeds
		go func() { <-locked; m.Unlock() }()
		return ctx.Err()
	}

	t.mu.Lock()
	t.held[key] = true
	t.unlocks = append(t.unlocks, m.Unlock)
	t.mu.Unlock()
	return nil
}
