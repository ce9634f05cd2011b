package usecase

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"sync"
	"time"

	"github.com/voxhive/backoffice/internal/adapter/metrics"
	"github.com/voxhive/backoffice/internal/domain"
)

// Verifier is the verification step the cache wraps.
type Verifier interface {
	Verify(ctx context.Context, raw string) (*domain.TenantContext, error)
}

type cacheEntry struct {
	tenant    *domain.TenantContext
	err       error
	expiresAt time.Time
}

// ContextCache memoizes token verification results for a short window.
// Signature verification against a remote key set is too expensive to run on
// every request; the cache trades a bounded staleness window for throughput.
// Failed verifications are cached too, for a much shorter window, so a bad
// token being retried in a tight loop cannot hammer the key resolver.
type ContextCache struct {
	verifier    Verifier
	positiveTTL time.Duration
	negativeTTL time.Duration
	metrics     *metrics.AuthMetrics

	mu      sync.RWMutex
	entries map[string]cacheEntry
}

// NewContextCache creates a ContextCache with the given TTLs.
func NewContextCache(verifier Verifier, positiveTTL, negativeTTL time.Duration, m *metrics.AuthMetrics) *ContextCache {
	return &ContextCache{
		verifier:    verifier,
		positiveTTL: positiveTTL,
		negativeTTL: negativeTTL,
		metrics:     m,
		entries:     make(map[string]cacheEntry),
	}
}

// GetOrVerify returns the cached verification result for the token, running
// the verifier only on a miss. Cached errors are returned as-is without
// re-verifying. Concurrent misses for the same token may verify twice; the
// last write wins, which is fine because both computed the same answer.
func (c *ContextCache) GetOrVerify(ctx context.Context, token string) (*domain.TenantContext, error) {
	key := fingerprint(token)
	now := time.Now()

	c.mu.RLock()
	entry, found := c.entries[key]
	c.mu.RUnlock()

	if found && now.Before(entry.expiresAt) {
		if c.metrics != nil {
			c.metrics.ContextCacheHits.Inc()
		}
		if entry.err != nil {
			return nil, entry.err
		}
		return entry.tenant, nil
	}

	if c.metrics != nil {
		c.metrics.ContextCacheMisses.Inc()
	}

	tenant, err := c.verifier.Verify(ctx, token)

	entry = cacheEntry{tenant: tenant, err: err}
	if err != nil {
		entry.expiresAt = now.Add(c.negativeTTL)
	} else {
		entry.expiresAt = now.Add(c.positiveTTL)
	}

	c.mu.Lock()
	// Opportunistic eviction keeps the map from accumulating dead tokens.
	for k, e := range c.entries {
		if !e.expiresAt.After(now) {
			delete(c.entries, k)
		}
	}
	c.entries[key] = entry
	c.mu.Unlock()

	return tenant, err
}

// Len returns the number of live entries, for the admin surface and tests.
func (c *ContextCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}

// fingerprint derives the cache key from the full token. Hashing the whole
// token rules out fingerprint collisions that a token-suffix key could not.
func fingerprint(token string) string {
	sum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(sum[:])
}
