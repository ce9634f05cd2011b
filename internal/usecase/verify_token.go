package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/voxhive/backoffice/internal/adapter/metrics"
	"github.com/voxhive/backoffice/internal/domain"
)

// KeyResolver resolves a token's kid header to a public verification key.
type KeyResolver interface {
	Resolve(ctx context.Context, kid string) (interface{}, error)
}

// TenantClaims is the claim shape issued by the tenant-management system.
type TenantClaims struct {
	TenantID      string           `json:"tid"`
	SystemEnabled bool             `json:"system_enabled"`
	Features      []string         `json:"features"`
	Limits        map[string]int64 `json:"limits"`
	Plan          string           `json:"plan"`
	jwt.RegisteredClaims
}

// TokenVerifier validates bearer tokens against the tenant-management
// system's signing keys and projects their claims into a TenantContext.
type TokenVerifier struct {
	resolver KeyResolver
	audience string
	leeway   time.Duration
	logger   *slog.Logger
	metrics  *metrics.AuthMetrics
}

// NewTokenVerifier creates a TokenVerifier. The leeway is the clock-skew
// allowance applied when checking expiry, to tolerate drift between the
// issuer's clock and ours.
func NewTokenVerifier(resolver KeyResolver, audience string, leeway time.Duration, logger *slog.Logger, m *metrics.AuthMetrics) *TokenVerifier {
	return &TokenVerifier{
		resolver: resolver,
		audience: audience,
		leeway:   leeway,
		logger:   logger.With("component", "token_verifier"),
		metrics:  m,
	}
}

// Verify checks the token's signature, required claims, audience and expiry,
// and returns the resolved tenant context. Failures are one of
// domain.ErrTokenExpired, domain.ErrTokenInvalid or domain.ErrKeyResolution.
func (v *TokenVerifier) Verify(ctx context.Context, raw string) (*domain.TenantContext, error) {
	claims := &TenantClaims{}
	_, err := jwt.ParseWithClaims(raw, claims, func(t *jwt.Token) (interface{}, error) {
		kid, _ := t.Header["kid"].(string)
		if kid == "" {
			return nil, fmt.Errorf("%w: missing kid header", domain.ErrTokenInvalid)
		}
		return v.resolver.Resolve(ctx, kid)
	},
		jwt.WithValidMethods([]string{"RS256", "RS384", "RS512"}),
		jwt.WithAudience(v.audience),
		jwt.WithLeeway(v.leeway),
		jwt.WithExpirationRequired(),
	)
	if err != nil {
		return nil, v.mapError(err)
	}

	// tid is a required claim; a signed token without it is malformed.
	if claims.TenantID == "" {
		v.count("invalid")
		return nil, fmt.Errorf("%w: missing tid claim", domain.ErrTokenInvalid)
	}

	tc := domain.NewTenantContext(claims.TenantID)
	tc.SystemEnabled = claims.SystemEnabled
	for _, f := range claims.Features {
		tc.Features[f] = struct{}{}
	}
	for name, ceiling := range claims.Limits {
		tc.Limits[name] = ceiling
	}
	tc.Plan = claims.Plan
	tc.TokenID = claims.ID
	if claims.ExpiresAt != nil {
		tc.ExpiresAt = claims.ExpiresAt.Unix()
	}

	v.count("ok")
	return tc, nil
}

// mapError collapses jwt parse failures into the three-way taxonomy the
// middleware needs for status mapping.
func (v *TokenVerifier) mapError(err error) error {
	switch {
	case errors.Is(err, domain.ErrKeyResolution):
		v.count("key_resolution")
		return err
	case errors.Is(err, jwt.ErrTokenExpired):
		v.count("expired")
		return fmt.Errorf("%w: %v", domain.ErrTokenExpired, err)
	default:
		v.count("invalid")
		return fmt.Errorf("%w: %v", domain.ErrTokenInvalid, err)
	}
}

func (v *TokenVerifier) count(outcome string) {
	if v.metrics != nil {
		v.metrics.VerificationsTotal.WithLabelValues(outcome).Inc()
	}
}
