package memory

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"digital-checkout/internal/domain"
	"digital-checkout/internal/domain/ports/adapter"
)

var _ adapter.Locker = (*Locker)(nil)

// Locker is a single-process stand-in for the Redis locker.
type Locker struct {
	mu   sync.Mutex
	held map[string]lease
}

type lease struct {
	token   string
	expires time.Time
}

func NewLocker() *Locker { return &Locker{held: map[string]lease{}} }

func (l *Locker) TryLock(_ context.Context, key string, ttl time.Duration) (string, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	now := time.Now()
	if cur, ok := l.held[key]; ok && now.Before(cur.expires) {
		return "", domain.ErrCheckoutInProgress
	}
	token := uuid.NewString()
	l.held[key] = lease{token: token, expires: now.Add(ttl)}
	return token, nil
}

func (l *Locker) Unlock(_ context.Context, key, token string) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if cur, ok := l.held[key]; ok && cur.token == token {
		delete(l.held, key)
	}
	return nil
}
