package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/voxhive/backoffice/internal/domain"
)

// TokenCache implements domain.TokenCache on Redis. Issued tokens are cached
// for their upstream-declared lifetime so background jobs and the issuance
// proxy reuse them instead of round-tripping to the tenant-management system.
type TokenCache struct {
	client *redis.Client
	logger *slog.Logger
}

// NewTokenCache creates a Redis-backed issued-token cache.
func NewTokenCache(client *redis.Client, logger *slog.Logger) *TokenCache {
	return &TokenCache{
		client: client,
		logger: logger.With("component", "token_cache"),
	}
}

func tokenKey(tenantID, audience string) string {
	return fmt.Sprintf("token:%s:%s", tenantID, audience)
}

// Get returns the cached token for the tenant and audience, or
// domain.ErrNotFound if none is cached.
func (c *TokenCache) Get(ctx context.Context, tenantID, audience string) (*domain.IssuedToken, error) {
	payload, err := c.client.Get(ctx, tokenKey(tenantID, audience)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read cached token: %w", err)
	}

	var token domain.IssuedToken
	if err := json.Unmarshal(payload, &token); err != nil {
		return nil, fmt.Errorf("failed to unmarshal cached token: %w", err)
	}
	return &token, nil
}

// Set stores the token with a TTL matching its upstream expires_in. Tokens
// without a declared lifetime get a conservative 10 minutes.
func (c *TokenCache) Set(ctx context.Context, tenantID, audience string, token *domain.IssuedToken) error {
	payload, err := json.Marshal(token)
	if err != nil {
		return fmt.Errorf("failed to marshal token: %w", err)
	}

	ttl := time.Duration(token.ExpiresIn) * time.Second
	if ttl <= 0 {
		ttl = 10 * time.Minute
	}

	if err := c.client.Set(ctx, tokenKey(tenantID, audience), payload, ttl).Err(); err != nil {
		return fmt.Errorf("failed to cache token: %w", err)
	}
	return nil
}

// Delete drops the cached token, forcing the next caller to fetch a fresh one.
func (c *TokenCache) Delete(ctx context.Context, tenantID, audience string) error {
	if err := c.client.Del(ctx, tokenKey(tenantID, audience)).Err(); err != nil {
		return fmt.Errorf("failed to delete cached token: %w", err)
	}
	return nil
}
