package domain

// Well-known plan labels. Token-derived contexts carry one of the real
// subscription plans; fallback contexts carry a synthetic sentinel.
const (
	PlanBasic      = "basic"
	PlanPro        = "pro"
	PlanEnterprise = "enterprise"
	PlanSuperuser  = "superuser"
	PlanWeb        = "web"
)

// TenantContext is the request-scoped authorization context for a tenant.
// It is built once per request (either from a verified bearer token or
// synthesized for browser sessions) and must not be mutated afterwards.
type TenantContext struct {
	TenantID      string              `json:"tenant_id"`
	SystemEnabled bool                `json:"system_enabled"`
	Features      map[string]struct{} `json:"-"`
	Limits        map[string]int64    `json:"limits"`
	Plan          string              `json:"plan,omitempty"`

	// TokenID and ExpiresAt are set only for token-derived contexts.
	// Fallback contexts leave both at their zero values, which is how
	// downstream code tells the two apart.
	TokenID   string `json:"token_id,omitempty"`
	ExpiresAt int64  `json:"expires_at,omitempty"`
}

// NewTenantContext returns a context with allocated feature and limit maps.
func NewTenantContext(tenantID string) *TenantContext {
	return &TenantContext{
		TenantID: tenantID,
		Features: make(map[string]struct{}),
		Limits:   make(map[string]int64),
	}
}

// HasFeature reports whether the tenant's plan grants the named feature flag.
func (c *TenantContext) HasFeature(name string) bool {
	if c == nil {
		return false
	}
	_, ok := c.Features[name]
	return ok
}

// Limit returns the ceiling for the named limit. Unconfigured limits are
// treated as 0, so an unknown limit is maximally restrictive rather than
// permissive.
func (c *TenantContext) Limit(name string) int64 {
	if c == nil {
		return 0
	}
	return c.Limits[name]
}

// TokenDerived reports whether this context was built from a verified bearer
// token, as opposed to being synthesized for a web session.
func (c *TenantContext) TokenDerived() bool {
	return c != nil && c.TokenID != ""
}

// FeatureNames returns the feature flags as a slice, for JSON responses.
func (c *TenantContext) FeatureNames() []string {
	if c == nil {
		return nil
	}
	names := make([]string, 0, len(c.Features))
	for name := range c.Features {
		names = append(names, name)
	}
	return names
}
