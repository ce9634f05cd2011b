package jwks

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/go-jose/go-jose/v4"
	"golang.org/x/time/rate"

	"github.com/voxhive/backoffice/internal/adapter/metrics"
	"github.com/voxhive/backoffice/internal/domain"
)

// Resolver fetches the tenant-management system's public signing keys and
// resolves a token's kid header to a verification key. The full key set is
// fetched lazily on first use and refetched when an unknown kid shows up,
// which is how key rotation is picked up without a restart.
//
// When no JWKS URL is configured the resolver stays uninitialized and every
// resolution fails, so no token can ever be verified against an empty key
// set.
type Resolver struct {
	url     string
	client  *http.Client
	logger  *slog.Logger
	metrics *metrics.AuthMetrics

	// Bounds how often an unknown kid can trigger a network refetch.
	refreshLimit *rate.Limiter

	mu        sync.RWMutex
	keysByKID map[string]interface{}
	lastFetch time.Time
}

// NewResolver creates a Resolver for the given JWKS URL. An empty URL is
// allowed and produces a resolver that fails every resolution.
func NewResolver(url string, timeout time.Duration, logger *slog.Logger, m *metrics.AuthMetrics) *Resolver {
	if url == "" {
		logger.Warn("JWKS URL not configured, token verification will be unavailable")
	}
	return &Resolver{
		url:          url,
		client:       &http.Client{Timeout: timeout},
		logger:       logger.With("component", "jwks_resolver"),
		metrics:      m,
		refreshLimit: rate.NewLimiter(rate.Every(10*time.Second), 2),
		keysByKID:    make(map[string]interface{}),
	}
}

// Resolve returns the public key for the given kid, fetching or refreshing
// the key set as needed. All failure modes map to domain.ErrKeyResolution.
func (r *Resolver) Resolve(ctx context.Context, kid string) (interface{}, error) {
	if r.url == "" {
		return nil, fmt.Errorf("%w: JWKS URL not configured", domain.ErrKeyResolution)
	}
	kid = strings.TrimSpace(kid)
	if kid == "" {
		return nil, fmt.Errorf("%w: empty kid", domain.ErrKeyResolution)
	}

	r.mu.RLock()
	key, found := r.keysByKID[kid]
	fetched := !r.lastFetch.IsZero()
	r.mu.RUnlock()

	if found {
		return key, nil
	}

	// Unknown kid: either we never fetched, or the provider rotated keys.
	// Refetch the whole set, but never more often than the limiter allows,
	// so a stream of garbage kids cannot hammer the provider.
	if fetched && !r.refreshLimit.Allow() {
		return nil, fmt.Errorf("%w: kid %q not in key set", domain.ErrKeyResolution, kid)
	}

	if err := r.refresh(ctx); err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrKeyResolution, err)
	}

	r.mu.RLock()
	defer r.mu.RUnlock()
	key, found = r.keysByKID[kid]
	if !found {
		return nil, fmt.Errorf("%w: kid %q not in key set", domain.ErrKeyResolution, kid)
	}
	return key, nil
}

// refresh fetches the JWKS document and swaps the key map wholesale. A failed
// fetch leaves the previous map untouched.
func (r *Resolver) refresh(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, r.url, nil)
	if err != nil {
		return err
	}

	resp, err := r.client.Do(req)
	if err != nil {
		r.countFetch("error")
		return fmt.Errorf("jwks fetch: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode/100 != 2 {
		r.countFetch("error")
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("jwks fetch: status %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}

	var set jose.JSONWebKeySet
	if err := json.NewDecoder(resp.Body).Decode(&set); err != nil {
		r.countFetch("error")
		return fmt.Errorf("jwks decode: %w", err)
	}

	keys := make(map[string]interface{}, len(set.Keys))
	for _, k := range set.Keys {
		if k.Key == nil || strings.TrimSpace(k.KeyID) == "" {
			continue
		}
		keys[k.KeyID] = k.Key
	}
	if len(keys) == 0 {
		r.countFetch("error")
		return fmt.Errorf("jwks contained no usable keys")
	}

	r.mu.Lock()
	r.keysByKID = keys
	r.lastFetch = time.Now()
	r.mu.Unlock()

	r.countFetch("ok")
	r.logger.Info("refreshed JWKS key set", "keys", len(keys))
	return nil
}

func (r *Resolver) countFetch(outcome string) {
	if r.metrics != nil {
		r.metrics.JWKSFetchesTotal.WithLabelValues(outcome).Inc()
	}
}
