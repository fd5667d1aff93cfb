package postgres

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"digital-checkout/internal/domain/model"
	"digital-checkout/internal/domain/ports/repository"
	"digital-checkout/internal/infra/metrics"
	red "digital-checkout/internal/infra/redis"
)

var _ repository.ProductRepository = (*productRepoCacheDecorator)(nil)

// productRepoCacheDecorator caches single-product lookups. Checkout snapshots
// prices from FindByID, so every write invalidates before delegating.
type productRepoCacheDecorator struct {
	inner repository.ProductRepository
	cache red.RedisClient
	ttl   time.Duration
	log   *zerolog.Logger
}

func NewProductRepoCacheDecorator(inner repository.ProductRepository, cache red.RedisClient, ttl time.Duration, logger *zerolog.Logger) repository.ProductRepository {
	if ttl <= 0 {
		ttl = time.Hour
	}
	l := logger.With().Str("component", "product_cache").Logger()
	return &productRepoCacheDecorator{inner: inner, cache: cache, ttl: ttl, log: &l}
}

func productKey(id string) string { return fmt.Sprintf("product:%s", id) }

func (d *productRepoCacheDecorator) FindByID(ctx context.Context, tx repository.Tx, id string) (*model.Product, error) {
	key := productKey(id)
	val, err := d.cache.Get(ctx, key)
	if err == nil {
		var p model.Product
		if json.Unmarshal([]byte(val), &p) == nil {
			metrics.IncCacheLookup("product", "hit")
			return &p, nil
		}
	} else if !red.IsMiss(err) {
		d.log.Warn().Err(err).Str("product_id", id).Msg("cache read failed")
	}

	metrics.IncCacheLookup("product", "miss")
	p, err := d.inner.FindByID(ctx, tx, id)
	if err != nil {
		return nil, err
	}
	if b, err := json.Marshal(p); err == nil {
		if err := d.cache.Set(ctx, key, b, d.ttl); err != nil {
			d.log.Warn().Err(err).Str("product_id", id).Msg("cache write failed")
		}
	}
	return p, nil
}

func (d *productRepoCacheDecorator) Save(ctx context.Context, tx repository.Tx, p *model.Product) error {
	d.invalidate(ctx, p.ID)
	return d.inner.Save(ctx, tx, p)
}

func (d *productRepoCacheDecorator) IncrementPopularity(ctx context.Context, tx repository.Tx, id string) error {
	d.invalidate(ctx, id)
	return d.inner.IncrementPopularity(ctx, tx, id)
}

// List is ordered by popularity, which changes on every sale; it is not cached.
func (d *productRepoCacheDecorator) List(ctx context.Context, tx repository.Tx, limit int) ([]*model.Product, error) {
	return d.inner.List(ctx, tx, limit)
}

func (d *productRepoCacheDecorator) invalidate(ctx context.Context, id string) {
	if err := d.cache.Del(ctx, productKey(id)); err != nil {
		d.log.Warn().Err(err).Str("product_id", id).Msg("cache invalidation failed")
	}
}
