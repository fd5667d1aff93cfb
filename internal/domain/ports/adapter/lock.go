package adapter

import (
	"context"
	"time"
)

// Locker is a keyed mutual-exclusion lock with a TTL.
// TryLock fails with domain.ErrCheckoutInProgress when the key is held.
type Locker interface {
	TryLock(ctx context.Context, key string, ttl time.Duration) (token string, err error)
	Unlock(ctx context.Context, key, token string) error
}
