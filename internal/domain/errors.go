package domain

import "errors"

// Verification failures. The middleware maps these to HTTP statuses, so they
// must stay distinguishable: an expired token is a 401 the client can fix by
// re-fetching, a key-resolution failure is our infrastructure's fault.
var (
	// ErrKeyResolution means the signing key for a token could not be
	// obtained: the JWKS endpoint is unconfigured, unreachable, or does not
	// contain the token's kid. Verification fails closed on it.
	ErrKeyResolution = errors.New("signing key resolution failed")

	// ErrTokenInvalid covers malformed tokens, bad signatures, missing
	// required claims, and audience mismatches.
	ErrTokenInvalid = errors.New("invalid tenant token")

	// ErrTokenExpired means the signature checked out but exp is in the
	// past beyond the configured clock-skew allowance.
	ErrTokenExpired = errors.New("tenant token expired")
)

// Authorization failures raised after a context has been resolved.
var (
	ErrTenantDisabled       = errors.New("access disabled for this tenant")
	ErrFeatureUnavailable   = errors.New("feature not available")
	ErrPlanMismatch         = errors.New("plan not sufficient")
	ErrLimitExceeded        = errors.New("limit exceeded")
	ErrTenantContextMissing = errors.New("tenant context required")
)

var ErrNotFound = errors.New("not found")
