package middleware

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/voxhive/backoffice/internal/adapter/metrics"
	"github.com/voxhive/backoffice/internal/domain"
)

// TenantIDHeader is stamped on responses for traceability. It is an
// observability aid, not a security control.
const TenantIDHeader = "X-Tenant-Id"

type tenantCtxKey struct{}

// WithTenant returns a context carrying the tenant context. The value is
// attached exactly once per request and never replaced downstream.
func WithTenant(ctx context.Context, tc *domain.TenantContext) context.Context {
	return context.WithValue(ctx, tenantCtxKey{}, tc)
}

// TenantFrom extracts the tenant context attached by the middleware.
func TenantFrom(ctx context.Context) (*domain.TenantContext, bool) {
	tc, ok := ctx.Value(tenantCtxKey{}).(*domain.TenantContext)
	return tc, ok
}

// ContextResolver resolves a bearer token to a tenant context, normally the
// verification cache.
type ContextResolver interface {
	GetOrVerify(ctx context.Context, token string) (*domain.TenantContext, error)
}

// ElevationChecker reports whether the request's session principal is an
// elevated operator. Elevated fallback contexts get the expansive synthetic
// feature set.
type ElevationChecker func(r *http.Request) bool

// AdminKeyElevation elevates requests presenting the configured admin key.
// An empty key elevates nothing.
func AdminKeyElevation(key string) ElevationChecker {
	return func(r *http.Request) bool {
		return key != "" && r.Header.Get("X-Admin-Key") == key
	}
}

// TenantContextConfig configures the fallback side of the middleware.
type TenantContextConfig struct {
	// SkipPaths are path prefixes that never trigger token verification
	// (health checks, public endpoints). Requests there still get a
	// fallback context.
	SkipPaths []string

	// DefaultTenantID is the tenant synthesized for web-session requests
	// that carry no bearer token.
	DefaultTenantID string

	// DefaultLimits apply to non-elevated fallback contexts.
	DefaultLimits map[string]int64

	// Elevated decides whether a fallback request gets the superuser
	// context. Nil means never.
	Elevated ElevationChecker
}

// Fallback limits for elevated operators: high enough to never bind.
const unlimited = 999999

// TenantContext is a middleware factory that resolves a tenant context for
// every request and attaches it before business logic runs.
//
// Requests with a bearer token get full verification via the resolver;
// requests without one (browser sessions) get a synthetic fallback context
// for the configured default tenant. The two are distinguishable downstream:
// only token-derived contexts carry a token id.
func TenantContext(resolver ContextResolver, cfg TenantContextConfig, logger *slog.Logger, m *metrics.AuthMetrics) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			skip := false
			for _, prefix := range cfg.SkipPaths {
				if strings.HasPrefix(r.URL.Path, prefix) {
					skip = true
					break
				}
			}

			authHeader := r.Header.Get("Authorization")
			if skip || !strings.HasPrefix(authHeader, "Bearer") {
				tc := fallbackContext(r, cfg)
				w.Header().Set(TenantIDHeader, tc.TenantID)
				next.ServeHTTP(w, r.WithContext(WithTenant(r.Context(), tc)))
				return
			}

			token := strings.TrimSpace(strings.TrimPrefix(authHeader, "Bearer"))
			if token == "" {
				WriteDetail(w, http.StatusUnauthorized, "Invalid Authorization header format")
				return
			}

			tc, err := resolver.GetOrVerify(r.Context(), token)
			if err != nil {
				switch {
				case errors.Is(err, domain.ErrTokenExpired), errors.Is(err, domain.ErrTokenInvalid):
					WriteDetail(w, http.StatusUnauthorized, err.Error())
				default:
					// Key resolution and anything unexpected: our side's
					// fault, and not a place to leak internals.
					logger.Error("token verification failed", "error", err, "path", r.URL.Path)
					WriteDetail(w, http.StatusInternalServerError, "Token verification failed")
				}
				return
			}

			w.Header().Set(TenantIDHeader, tc.TenantID)

			// A disabled tenant is blocked outright, valid token or not.
			if !tc.SystemEnabled {
				if m != nil {
					m.GateRejections.WithLabelValues("disabled").Inc()
				}
				WriteDetail(w, http.StatusForbidden, "Access disabled for this tenant")
				return
			}

			next.ServeHTTP(w, r.WithContext(WithTenant(r.Context(), tc)))
		})
	}
}

// fallbackContext synthesizes a tenant context for requests that never carry
// the tenant-management system's tokens.
func fallbackContext(r *http.Request, cfg TenantContextConfig) *domain.TenantContext {
	tc := domain.NewTenantContext(cfg.DefaultTenantID)
	tc.SystemEnabled = true

	if cfg.Elevated != nil && cfg.Elevated(r) {
		tc.Plan = domain.PlanSuperuser
		for _, f := range []string{"campaigns", "dashboard", "admin"} {
			tc.Features[f] = struct{}{}
		}
		for _, name := range []string{"campaigns_per_month", "concurrent_campaigns", "max_calls_per_campaign"} {
			tc.Limits[name] = unlimited
		}
		return tc
	}

	tc.Plan = domain.PlanWeb
	for _, f := range []string{"campaigns", "dashboard"} {
		tc.Features[f] = struct{}{}
	}
	for name, ceiling := range cfg.DefaultLimits {
		tc.Limits[name] = ceiling
	}
	return tc
}

// WriteDetail writes the structured error body used by every rejection.
func WriteDetail(w http.ResponseWriter, status int, detail string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]string{"detail": detail})
}
