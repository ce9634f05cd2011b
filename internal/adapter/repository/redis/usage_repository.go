package redis

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"
)

// UsageRepository implements domain.UsageRepository on Redis. Increments use
// INCRBY, so concurrent increments for the same tenant and limit serialize in
// Redis instead of racing through a read-then-write cycle.
type UsageRepository struct {
	client *redis.Client
	logger *slog.Logger
	ttl    time.Duration
}

// NewUsageRepository creates a Redis-backed usage counter store. ttl is
// refreshed on every increment, so an idle counter eventually expires.
func NewUsageRepository(client *redis.Client, logger *slog.Logger, ttl time.Duration) *UsageRepository {
	return &UsageRepository{
		client: client,
		logger: logger.With("component", "usage_repository"),
		ttl:    ttl,
	}
}

func usageKey(tenantID, limitName string) string {
	return fmt.Sprintf("usage:%s:%s", tenantID, limitName)
}

// Get returns the current counter value, or 0 if the key does not exist.
func (r *UsageRepository) Get(ctx context.Context, tenantID, limitName string) (int64, error) {
	val, err := r.client.Get(ctx, usageKey(tenantID, limitName)).Int64()
	if errors.Is(err, redis.Nil) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("failed to read usage counter: %w", err)
	}
	return val, nil
}

// Increment atomically adds amount to the counter and refreshes its TTL,
// returning the new value.
func (r *UsageRepository) Increment(ctx context.Context, tenantID, limitName string, amount int64) (int64, error) {
	key := usageKey(tenantID, limitName)

	pipe := r.client.TxPipeline()
	incr := pipe.IncrBy(ctx, key, amount)
	pipe.Expire(ctx, key, r.ttl)
	if _, err := pipe.Exec(ctx); err != nil {
		return 0, fmt.Errorf("failed to increment usage counter: %w", err)
	}

	return incr.Val(), nil
}
