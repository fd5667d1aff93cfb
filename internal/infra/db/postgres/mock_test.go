//go:build !integration

package postgres

import (
	"context"
	"time"

	"github.com/go-redis/redis/v8"

	"digital-checkout/internal/domain/model"
	"digital-checkout/internal/domain/ports/repository"
	red "digital-checkout/internal/infra/redis"
)

// --- Mocks for Cache Decorator Tests ---

type mockInnerProductRepo struct {
	FindByIDFunc            func(ctx context.Context, tx repository.Tx, id string) (*model.Product, error)
	SaveFunc                func(ctx context.Context, tx repository.Tx, p *model.Product) error
	ListFunc                func(ctx context.Context, tx repository.Tx, limit int) ([]*model.Product, error)
	IncrementPopularityFunc func(ctx context.Context, tx repository.Tx, id string) error
}

func (m *mockInnerProductRepo) FindByID(ctx context.Context, tx repository.Tx, id string) (*model.Product, error) {
	return m.FindByIDFunc(ctx, tx, id)
}
func (m *mockInnerProductRepo) Save(ctx context.Context, tx repository.Tx, p *model.Product) error {
	return m.SaveFunc(ctx, tx, p)
}
func (m *mockInnerProductRepo) List(ctx context.Context, tx repository.Tx, limit int) ([]*model.Product, error) {
	return m.ListFunc(ctx, tx, limit)
}
func (m *mockInnerProductRepo) IncrementPopularity(ctx context.Context, tx repository.Tx, id string) error {
	return m.IncrementPopularityFunc(ctx, tx, id)
}

// mockRedisClient is an in-process map standing in for Redis.
type mockRedisClient struct {
	data    map[string]string
	GetErr  error
	Deleted []string
}

var _ red.RedisClient = (*mockRedisClient)(nil)

func newMockRedis() *mockRedisClient { return &mockRedisClient{data: map[string]string{}} }

func (m *mockRedisClient) Get(_ context.Context, key string) (string, error) {
	if m.GetErr != nil {
		return "", m.GetErr
	}
	v, ok := m.data[key]
	if !ok {
		return "", redis.Nil
	}
	return v, nil
}
func (m *mockRedisClient) Set(_ context.Context, key string, value interface{}, _ time.Duration) error {
	switch v := value.(type) {
	case []byte:
		m.data[key] = string(v)
	case string:
		m.data[key] = v
	}
	return nil
}
func (m *mockRedisClient) Del(_ context.Context, keys ...string) error {
	for _, k := range keys {
		delete(m.data, k)
	}
	m.Deleted = append(m.Deleted, keys...)
	return nil
}
func (m *mockRedisClient) Ping(context.Context) error                            { return nil }
func (m *mockRedisClient) Incr(context.Context, string) (int64, error)           { return 0, nil }
func (m *mockRedisClient) Expire(context.Context, string, time.Duration) error   { return nil }
func (m *mockRedisClient) Close() error                                          { return nil }
