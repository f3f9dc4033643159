// Package cache holds the Redis read-through cache in front of store price comparison.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/joseph-ayodele/receiptradar/internal/entity"
	"github.com/joseph-ayodele/receiptradar/internal/metrics"
	"github.com/joseph-ayodele/receiptradar/internal/pricing"
)

const (
	KeyPrefix  = "receiptradar:compare:"
	DefaultTTL = 15 * time.Minute
)

// ComparisonCache wraps a pricing.Comparer. Redis failures fall through to the
// wrapped store and are never returned to the caller.
type ComparisonCache struct {
	client  redis.Cmdable
	next    pricing.Comparer
	ttl     time.Duration
	logger  *slog.Logger
	metrics *metrics.Metrics
}

func NewComparisonCache(client redis.Cmdable, next pricing.Comparer, ttl time.Duration, logger *slog.Logger, m *metrics.Metrics) *ComparisonCache {
	if logger == nil {
		logger = slog.Default()
	}
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &ComparisonCache{client: client, next: next, ttl: ttl, logger: logger, metrics: m}
}

// Key is the Redis key for an item name.
func Key(itemName string) string {
	return KeyPrefix + pricing.NormalizeItemName(itemName)
}

func (c *ComparisonCache) CompareStores(ctx context.Context, itemName string) ([]entity.StorePriceStats, error) {
	normalized := pricing.NormalizeItemName(itemName)
	if normalized == "" {
		return c.next.CompareStores(ctx, itemName)
	}
	key := KeyPrefix + normalized

	raw, err := c.client.Get(ctx, key).Result()
	switch {
	case err == nil:
		var stats []entity.StorePriceStats
		if jsonErr := json.Unmarshal([]byte(raw), &stats); jsonErr == nil {
			c.metrics.CacheLookup(metrics.OutcomeHit)
			return stats, nil
		}
		c.logger.Warn("cache.compare.corrupt", "key", key)
		c.metrics.CacheLookup(metrics.OutcomeError)
	case errors.Is(err, redis.Nil):
		c.metrics.CacheLookup(metrics.OutcomeMiss)
	default:
		c.logger.Warn("cache.compare.get_failed", "key", key, "error", err)
		c.metrics.CacheLookup(metrics.OutcomeError)
	}

	stats, err := c.next.CompareStores(ctx, normalized)
	if err != nil {
		return nil, err
	}
	payload, err := json.Marshal(stats)
	if err != nil {
		return stats, nil
	}
	if err := c.client.Set(ctx, key, string(payload), c.ttl).Err(); err != nil {
		c.logger.Warn("cache.compare.set_failed", "key", key, "error", err)
	}
	return stats, nil
}

// Invalidate drops the cached comparison for an item, typically after new prices are recorded.
func (c *ComparisonCache) Invalidate(ctx context.Context, itemNames ...string) error {
	keys := make([]string, 0, len(itemNames))
	for _, n := range itemNames {
		if normalized := pricing.NormalizeItemName(n); normalized != "" {
			keys = append(keys, KeyPrefix+normalized)
		}
	}
	if len(keys) == 0 {
		return nil
	}
	return c.client.Del(ctx, keys...).Err()
}
