package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"

	"digital-checkout/internal/domain/model"
	"digital-checkout/internal/domain/ports/repository"
)

var _ repository.CartStore = (*CartStore)(nil)

const maxCartUpdateAttempts = 10

// CartStore keeps each cart as one JSON value under cart:<userID>.
type CartStore struct {
	cli *redis.Client
	ttl time.Duration
}

func NewCartStore(c *Client, ttl time.Duration) *CartStore {
	return &CartStore{cli: c.cli, ttl: ttl}
}

func cartKey(userID string) string { return "cart:" + userID }

func (s *CartStore) Get(ctx context.Context, userID string) (*model.Cart, error) {
	return s.read(ctx, s.cli, userID)
}

type getter interface {
	Get(ctx context.Context, key string) *redis.StringCmd
}

func (s *CartStore) read(ctx context.Context, g getter, userID string) (*model.Cart, error) {
	raw, err := g.Get(ctx, cartKey(userID)).Bytes()
	if err == redis.Nil {
		return &model.Cart{UserID: userID, Items: []model.CartItem{}}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get cart: %w", err)
	}
	var c model.Cart
	if err := json.Unmarshal(raw, &c); err != nil {
		return nil, fmt.Errorf("decode cart: %w", err)
	}
	if c.Items == nil {
		c.Items = []model.CartItem{}
	}
	return &c, nil
}

// Update is an optimistic read-modify-write under WATCH; a concurrent writer
// forces a retry.
func (s *CartStore) Update(ctx context.Context, userID string, fn func(c *model.Cart) error) (*model.Cart, error) {
	key := cartKey(userID)
	var out *model.Cart
	txf := func(tx *redis.Tx) error {
		c, err := s.read(ctx, tx, userID)
		if err != nil {
			return err
		}
		if err := fn(c); err != nil {
			return err
		}
		c.UpdatedAt = time.Now().UTC()
		raw, err := json.Marshal(c)
		if err != nil {
			return err
		}
		_, err = tx.TxPipelined(ctx, func(p redis.Pipeliner) error {
			p.Set(ctx, key, raw, s.ttl)
			return nil
		})
		if err == nil {
			out = c
		}
		return err
	}
	for i := 0; i < maxCartUpdateAttempts; i++ {
		err := s.cli.Watch(ctx, txf, key)
		if errors.Is(err, redis.TxFailedErr) {
			continue
		}
		if err != nil {
			return nil, err
		}
		return out, nil
	}
	return nil, fmt.Errorf("update cart: too much contention on %s", key)
}

func (s *CartStore) Clear(ctx context.Context, userID string) error {
	return s.cli.Del(ctx, cartKey(userID)).Err()
}
