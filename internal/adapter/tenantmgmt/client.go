package tenantmgmt

import (
	"context"
	"crypto/subtle"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/voxhive/backoffice/internal/domain"
)

// Client exchanges client credentials for tenant bearer tokens at the
// upstream tenant-management system. Issued tokens are cached per tenant and
// audience for their declared lifetime; the verification core accepts the
// tokens it hands out because both sides share the same claim shape.
type Client struct {
	tokenURL     string
	clientID     string
	clientSecret string
	http         *http.Client
	cache        domain.TokenCache
	logger       *slog.Logger
}

// NewClient creates a tenant-management client. timeout bounds every outbound
// token fetch; the upstream being down must not hang a request.
func NewClient(tokenURL, clientID, clientSecret string, timeout time.Duration, cache domain.TokenCache, logger *slog.Logger) *Client {
	return &Client{
		tokenURL:     tokenURL,
		clientID:     clientID,
		clientSecret: clientSecret,
		http:         &http.Client{Timeout: timeout},
		cache:        cache,
		logger:       logger.With("component", "tenantmgmt_client"),
	}
}

// Fetch requests a new token from the upstream system and caches it.
func (c *Client) Fetch(ctx context.Context, clientID, clientSecret, tenantID, audience string) (*domain.IssuedToken, error) {
	if c.tokenURL == "" {
		return nil, errors.New("tenant management token URL not configured")
	}

	form := url.Values{
		"client_id":     {clientID},
		"client_secret": {clientSecret},
		"tenant_id":     {tenantID},
		"audience":      {audience},
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.tokenURL, strings.NewReader(form.Encode()))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch token: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode/100 != 2 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("token endpoint returned status %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}

	var token domain.IssuedToken
	if err := json.NewDecoder(resp.Body).Decode(&token); err != nil {
		return nil, fmt.Errorf("invalid response from token endpoint: %w", err)
	}
	if token.AccessToken == "" {
		return nil, errors.New("token endpoint returned no access_token")
	}
	if token.TenantID == "" {
		token.TenantID = tenantID
	}

	if err := c.cache.Set(ctx, tenantID, audience, &token); err != nil {
		// A cache failure only costs the next caller a refetch.
		c.logger.Warn("failed to cache issued token", "error", err, "tenant_id", tenantID)
	}

	return &token, nil
}

// Cached returns the cached token for the tenant and audience, or nil if none
// is available.
func (c *Client) Cached(ctx context.Context, tenantID, audience string) (*domain.IssuedToken, error) {
	token, err := c.cache.Get(ctx, tenantID, audience)
	if errors.Is(err, domain.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return token, nil
}

// Refresh drops any cached token and fetches a fresh one.
func (c *Client) Refresh(ctx context.Context, clientID, clientSecret, tenantID, audience string) (*domain.IssuedToken, error) {
	if err := c.cache.Delete(ctx, tenantID, audience); err != nil {
		c.logger.Warn("failed to drop cached token before refresh", "error", err, "tenant_id", tenantID)
	}
	return c.Fetch(ctx, clientID, clientSecret, tenantID, audience)
}

// ForInternalUse returns a token for background work on behalf of a tenant,
// using the configured client credentials and the cache-first path.
func (c *Client) ForInternalUse(ctx context.Context, tenantID, audience string) (*domain.IssuedToken, error) {
	if c.clientID == "" || c.clientSecret == "" {
		return nil, errors.New("tenant management client credentials not configured")
	}

	token, err := c.Cached(ctx, tenantID, audience)
	if err != nil {
		return nil, err
	}
	if token != nil {
		return token, nil
	}

	return c.Fetch(ctx, c.clientID, c.clientSecret, tenantID, audience)
}

// ValidateCredentials compares the presented credentials against the
// configured pair in constant time.
func (c *Client) ValidateCredentials(clientID, clientSecret string) bool {
	if c.clientID == "" || c.clientSecret == "" {
		return false
	}
	idOK := subtle.ConstantTimeCompare([]byte(clientID), []byte(c.clientID)) == 1
	secretOK := subtle.ConstantTimeCompare([]byte(clientSecret), []byte(c.clientSecret)) == 1
	return idOK && secretOK
}
