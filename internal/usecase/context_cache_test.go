package usecase

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/voxhive/backoffice/internal/domain"
)

type spyVerifier struct {
	mu     sync.Mutex
	calls  int
	tenant *domain.TenantContext
	err    error
}

func (s *spyVerifier) Verify(ctx context.Context, raw string) (*domain.TenantContext, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls++
	return s.tenant, s.err
}

func (s *spyVerifier) callCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls
}

func TestContextCache_GetOrVerify(t *testing.T) {
	t.Run("Positive Hit Skips Verifier", func(t *testing.T) {
		tc := domain.NewTenantContext("acme_corp")
		spy := &spyVerifier{tenant: tc}
		cache := NewContextCache(spy, 30*time.Second, 5*time.Second, nil)

		for i := 0; i < 3; i++ {
			got, err := cache.GetOrVerify(context.Background(), "token-a")
			if err != nil {
				t.Fatalf("expected no error, got %v", err)
			}
			if got.TenantID != "acme_corp" {
				t.Errorf("tenant_id: got %q", got.TenantID)
			}
		}
		if spy.callCount() != 1 {
			t.Errorf("expected 1 verifier call, got %d", spy.callCount())
		}
	})

	t.Run("Negative Hit Returns Cached Error", func(t *testing.T) {
		spy := &spyVerifier{err: domain.ErrTokenInvalid}
		cache := NewContextCache(spy, 30*time.Second, 5*time.Second, nil)

		for i := 0; i < 3; i++ {
			_, err := cache.GetOrVerify(context.Background(), "bad-token")
			if !errors.Is(err, domain.ErrTokenInvalid) {
				t.Fatalf("expected ErrTokenInvalid, got %v", err)
			}
		}
		if spy.callCount() != 1 {
			t.Errorf("expected 1 verifier call, got %d", spy.callCount())
		}
	})

	t.Run("Distinct Tokens Verify Separately", func(t *testing.T) {
		spy := &spyVerifier{tenant: domain.NewTenantContext("acme_corp")}
		cache := NewContextCache(spy, 30*time.Second, 5*time.Second, nil)

		_, _ = cache.GetOrVerify(context.Background(), "token-a")
		_, _ = cache.GetOrVerify(context.Background(), "token-b")

		if spy.callCount() != 2 {
			t.Errorf("expected 2 verifier calls, got %d", spy.callCount())
		}
	})

	t.Run("Negative Entry Expires Sooner", func(t *testing.T) {
		spy := &spyVerifier{err: domain.ErrTokenExpired}
		cache := NewContextCache(spy, time.Hour, 10*time.Millisecond, nil)

		_, _ = cache.GetOrVerify(context.Background(), "bad-token")
		time.Sleep(20 * time.Millisecond)
		_, _ = cache.GetOrVerify(context.Background(), "bad-token")

		if spy.callCount() != 2 {
			t.Errorf("expected re-verification after negative TTL, got %d calls", spy.callCount())
		}
	})

	t.Run("Expired Entries Are Evicted", func(t *testing.T) {
		spy := &spyVerifier{tenant: domain.NewTenantContext("acme_corp")}
		cache := NewContextCache(spy, 10*time.Millisecond, 10*time.Millisecond, nil)

		_, _ = cache.GetOrVerify(context.Background(), "token-a")
		time.Sleep(20 * time.Millisecond)
		_, _ = cache.GetOrVerify(context.Background(), "token-b")

		if cache.Len() != 1 {
			t.Errorf("expected expired entry to be evicted, have %d entries", cache.Len())
		}
	})

	t.Run("Concurrent Access", func(t *testing.T) {
		spy := &spyVerifier{tenant: domain.NewTenantContext("acme_corp")}
		cache := NewContextCache(spy, 30*time.Second, 5*time.Second, nil)

		var wg sync.WaitGroup
		for i := 0; i < 50; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				if _, err := cache.GetOrVerify(context.Background(), "token-a"); err != nil {
					t.Errorf("unexpected error: %v", err)
				}
			}()
		}
		wg.Wait()

		// Concurrent misses may each verify once, but a hit after the
		// dust settles must not.
		before := spy.callCount()
		_, _ = cache.GetOrVerify(context.Background(), "token-a")
		if spy.callCount() != before {
			t.Error("expected a cache hit after concurrent population")
		}
	})
}
