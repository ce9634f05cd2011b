package usecase

import (
	"context"
	"crypto/rand"
	"crypto/rsa"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/voxhive/backoffice/internal/domain"
)

type fakeResolver struct {
	keys  map[string]interface{}
	err   error
	calls int
}

func (f *fakeResolver) Resolve(ctx context.Context, kid string) (interface{}, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	key, ok := f.keys[kid]
	if !ok {
		return nil, domain.ErrKeyResolution
	}
	return key, nil
}

func testKey(t *testing.T) *rsa.PrivateKey {
	t.Helper()
	key, err := rsa.GenerateKey(rand.Reader, 2048)
	if err != nil {
		t.Fatalf("failed to generate RSA key: %v", err)
	}
	return key
}

func signToken(t *testing.T, key *rsa.PrivateKey, kid string, claims jwt.MapClaims) string {
	t.Helper()
	token := jwt.NewWithClaims(jwt.SigningMethodRS256, claims)
	if kid != "" {
		token.Header["kid"] = kid
	}
	signed, err := token.SignedString(key)
	if err != nil {
		t.Fatalf("failed to sign token: %v", err)
	}
	return signed
}

func newTestVerifier(resolver KeyResolver) *TokenVerifier {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return NewTokenVerifier(resolver, "watchtower", 300*time.Second, logger, nil)
}

func TestTokenVerifier_Verify(t *testing.T) {
	key := testKey(t)
	resolver := &fakeResolver{keys: map[string]interface{}{"kid-1": &key.PublicKey}}
	verifier := newTestVerifier(resolver)

	t.Run("Round Trip", func(t *testing.T) {
		token := signToken(t, key, "kid-1", jwt.MapClaims{
			"tid":            "acme_corp",
			"aud":            "watchtower",
			"exp":            time.Now().Add(10 * time.Minute).Unix(),
			"system_enabled": true,
			"features":       []string{"campaigns", "dashboard"},
			"limits":         map[string]interface{}{"campaigns_per_month": 10},
			"plan":           "pro",
			"jti":            "token-123",
		})

		tc, err := verifier.Verify(context.Background(), token)
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if tc.TenantID != "acme_corp" {
			t.Errorf("tenant_id: got %q, want %q", tc.TenantID, "acme_corp")
		}
		if !tc.SystemEnabled {
			t.Error("expected system_enabled to be true")
		}
		if !tc.HasFeature("campaigns") || !tc.HasFeature("dashboard") {
			t.Errorf("missing features: got %v", tc.FeatureNames())
		}
		if tc.Limit("campaigns_per_month") != 10 {
			t.Errorf("campaigns_per_month limit: got %d, want 10", tc.Limit("campaigns_per_month"))
		}
		if tc.Plan != "pro" {
			t.Errorf("plan: got %q, want %q", tc.Plan, "pro")
		}
		if tc.TokenID != "token-123" {
			t.Errorf("token_id: got %q, want %q", tc.TokenID, "token-123")
		}
		if tc.ExpiresAt == 0 {
			t.Error("expected expires_at to be set")
		}
		if !tc.TokenDerived() {
			t.Error("expected a token-derived context")
		}
	})

	t.Run("Default Substitution For Absent Claims", func(t *testing.T) {
		token := signToken(t, key, "kid-1", jwt.MapClaims{
			"tid": "acme_corp",
			"aud": "watchtower",
			"exp": time.Now().Add(time.Minute).Unix(),
		})

		tc, err := verifier.Verify(context.Background(), token)
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if tc.SystemEnabled {
			t.Error("system_enabled should default to false")
		}
		if len(tc.Features) != 0 {
			t.Errorf("features should default to empty, got %v", tc.FeatureNames())
		}
		if tc.Limit("anything") != 0 {
			t.Error("absent limits should read as 0")
		}
	})

	t.Run("Expiry Boundary Inside Skew", func(t *testing.T) {
		token := signToken(t, key, "kid-1", jwt.MapClaims{
			"tid": "acme_corp",
			"aud": "watchtower",
			"exp": time.Now().Add(-300*time.Second + time.Second).Unix(),
		})

		if _, err := verifier.Verify(context.Background(), token); err != nil {
			t.Fatalf("token inside skew allowance should verify, got %v", err)
		}
	})

	t.Run("Expiry Boundary Outside Skew", func(t *testing.T) {
		token := signToken(t, key, "kid-1", jwt.MapClaims{
			"tid": "acme_corp",
			"aud": "watchtower",
			"exp": time.Now().Add(-300*time.Second - time.Second).Unix(),
		})

		_, err := verifier.Verify(context.Background(), token)
		if !errors.Is(err, domain.ErrTokenExpired) {
			t.Fatalf("expected ErrTokenExpired, got %v", err)
		}
	})

	t.Run("Audience Mismatch", func(t *testing.T) {
		token := signToken(t, key, "kid-1", jwt.MapClaims{
			"tid": "acme_corp",
			"aud": "other-service",
			"exp": time.Now().Add(time.Minute).Unix(),
		})

		_, err := verifier.Verify(context.Background(), token)
		if !errors.Is(err, domain.ErrTokenInvalid) {
			t.Fatalf("expected ErrTokenInvalid, got %v", err)
		}
	})

	t.Run("Missing Tenant ID Claim", func(t *testing.T) {
		token := signToken(t, key, "kid-1", jwt.MapClaims{
			"aud": "watchtower",
			"exp": time.Now().Add(time.Minute).Unix(),
		})

		_, err := verifier.Verify(context.Background(), token)
		if !errors.Is(err, domain.ErrTokenInvalid) {
			t.Fatalf("expected ErrTokenInvalid, got %v", err)
		}
	})

	t.Run("Missing Expiry Claim", func(t *testing.T) {
		token := signToken(t, key, "kid-1", jwt.MapClaims{
			"tid": "acme_corp",
			"aud": "watchtower",
		})

		_, err := verifier.Verify(context.Background(), token)
		if !errors.Is(err, domain.ErrTokenInvalid) {
			t.Fatalf("expected ErrTokenInvalid, got %v", err)
		}
	})

	t.Run("Missing Kid Header", func(t *testing.T) {
		token := signToken(t, key, "", jwt.MapClaims{
			"tid": "acme_corp",
			"aud": "watchtower",
			"exp": time.Now().Add(time.Minute).Unix(),
		})

		_, err := verifier.Verify(context.Background(), token)
		if !errors.Is(err, domain.ErrTokenInvalid) {
			t.Fatalf("expected ErrTokenInvalid, got %v", err)
		}
	})

	t.Run("Wrong Signing Key", func(t *testing.T) {
		other := testKey(t)
		token := signToken(t, other, "kid-1", jwt.MapClaims{
			"tid": "acme_corp",
			"aud": "watchtower",
			"exp": time.Now().Add(time.Minute).Unix(),
		})

		_, err := verifier.Verify(context.Background(), token)
		if !errors.Is(err, domain.ErrTokenInvalid) {
			t.Fatalf("expected ErrTokenInvalid, got %v", err)
		}
	})

	t.Run("Garbage Token", func(t *testing.T) {
		_, err := verifier.Verify(context.Background(), "not.a.token")
		if !errors.Is(err, domain.ErrTokenInvalid) {
			t.Fatalf("expected ErrTokenInvalid, got %v", err)
		}
	})

	t.Run("Key Resolution Failure", func(t *testing.T) {
		broken := newTestVerifier(&fakeResolver{err: domain.ErrKeyResolution})
		token := signToken(t, key, "kid-1", jwt.MapClaims{
			"tid": "acme_corp",
			"aud": "watchtower",
			"exp": time.Now().Add(time.Minute).Unix(),
		})

		_, err := broken.Verify(context.Background(), token)
		if !errors.Is(err, domain.ErrKeyResolution) {
			t.Fatalf("expected ErrKeyResolution, got %v", err)
		}
	})
}
