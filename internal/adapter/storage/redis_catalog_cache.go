package storage

import (
	"context"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/rl1809/oms/internal/port"
)

const priceKeyPrefix = "price:"

// CachedCatalog caches price lookups in Redis in front of another catalog.
// Cache problems are never fatal: a miss or a Redis error falls through to
// the inner catalog.
type CachedCatalog struct {
	client *redis.Client
	inner  port.Catalog
	ttl    time.Duration
	logger *zap.Logger
}

func NewCachedCatalog(client *redis.Client, inner port.Catalog, ttl time.Duration, logger *zap.Logger) *CachedCatalog {
	return &CachedCatalog{client: client, inner: inner, ttl: ttl, logger: logger}
}

func (c *CachedCatalog) GetPrice(ctx context.Context, sku string) (decimal.Decimal, bool, error) {
	key := priceKeyPrefix + sku

	cached, err := c.client.Get(ctx, key).Result()
	if err == nil {
		price, parseErr := decimal.NewFromString(cached)
		if parseErr == nil {
			return price, true, nil
		}
		c.logger.Warn("dropping unparseable cached price",
			zap.String("sku", sku), zap.Error(parseErr))
		c.client.Del(ctx, key)
	} else if !errors.Is(err, redis.Nil) {
		c.logger.Warn("price cache read failed",
			zap.String("sku", sku), zap.Error(err))
	}

	price, found, err := c.inner.GetPrice(ctx, sku)
	if err != nil || !found {
		return price, found, err
	}

	if err := c.client.Set(ctx, key, price.String(), c.ttl).Err(); err != nil {
		c.logger.Warn("price cache write failed",
			zap.String("sku", sku), zap.Error(err))
	}
	return price, true, nil
}

// Evict drops the cached price for a SKU, for callers that update products.
func (c *CachedCatalog) Evict(ctx context.Context, sku string) error {
	return c.client.Del(ctx, priceKeyPrefix+sku).Err()
}
