package domain

import "context"

// IssuedToken is a bearer token obtained from the upstream tenant-management
// system on behalf of a tenant.
type IssuedToken struct {
	AccessToken string   `json:"access_token"`
	TokenType   string   `json:"token_type"`
	ExpiresIn   int64    `json:"expires_in"`
	TenantID    string   `json:"tenant_id"`
	Plan        string   `json:"plan,omitempty"`
	Features    []string `json:"features,omitempty"`
}

// TokenCache stores issued tokens keyed by tenant id and audience so repeated
// internal callers reuse a token for its upstream-declared lifetime.
type TokenCache interface {
	Get(ctx context.Context, tenantID, audience string) (*IssuedToken, error)
	Set(ctx context.Context, tenantID, audience string, token *IssuedToken) error
	Delete(ctx context.Context, tenantID, audience string) error
}
