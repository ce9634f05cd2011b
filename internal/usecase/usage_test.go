package usecase

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/voxhive/backoffice/internal/adapter/pii"
	"github.com/voxhive/backoffice/internal/domain"
	"github.com/voxhive/backoffice/internal/domain/mocks"
)

func newTestUsageService(usage *mocks.MockUsageRepository, audit *mocks.MockAuditRepository) *UsageService {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	redactor := pii.NewRedactor([]string{"email", "phone"}, logger)
	return NewUsageService(usage, audit, redactor, 5*time.Minute, logger, nil)
}

func proContext() *domain.TenantContext {
	tc := domain.NewTenantContext("acme_corp")
	tc.SystemEnabled = true
	tc.Features["campaigns"] = struct{}{}
	tc.Features["dashboard"] = struct{}{}
	tc.Limits["campaigns_per_month"] = 10
	tc.Plan = domain.PlanPro
	tc.TokenID = "jti-1"
	return tc
}

func TestUsageService_CheckLimit(t *testing.T) {
	t.Run("Within Limit", func(t *testing.T) {
		usage := &mocks.MockUsageRepository{Counters: map[string]int64{"acme_corp:campaigns_per_month": 4}}
		svc := newTestUsageService(usage, &mocks.MockAuditRepository{})

		status, err := svc.CheckLimit(context.Background(), proContext(), "campaigns_per_month", -1)
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if !status.WithinLimit {
			t.Error("expected within_limit to be true")
		}
		if status.Limit != 10 || status.Usage != 4 || status.Remaining != 6 {
			t.Errorf("unexpected status: %+v", status)
		}
	})

	t.Run("At Ceiling", func(t *testing.T) {
		svc := newTestUsageService(&mocks.MockUsageRepository{}, &mocks.MockAuditRepository{})

		status, err := svc.CheckLimit(context.Background(), proContext(), "campaigns_per_month", 10)
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if status.WithinLimit {
			t.Error("usage equal to the ceiling must not be within limit")
		}
		if status.Remaining != 0 {
			t.Errorf("remaining: got %d, want 0", status.Remaining)
		}
	})

	t.Run("Unconfigured Limit Fails Closed", func(t *testing.T) {
		svc := newTestUsageService(&mocks.MockUsageRepository{}, &mocks.MockAuditRepository{})

		status, err := svc.CheckLimit(context.Background(), proContext(), "undefined_limit", -1)
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if status.WithinLimit {
			t.Error("unconfigured limit must not be within limit")
		}
		if status.Limit != 0 {
			t.Errorf("limit: got %d, want 0", status.Limit)
		}
	})

	t.Run("Nil Context", func(t *testing.T) {
		svc := newTestUsageService(&mocks.MockUsageRepository{}, &mocks.MockAuditRepository{})

		_, err := svc.CheckLimit(context.Background(), nil, "campaigns_per_month", -1)
		if !errors.Is(err, domain.ErrTenantContextMissing) {
			t.Fatalf("expected ErrTenantContextMissing, got %v", err)
		}
	})
}

func TestUsageService_IncrementUsage(t *testing.T) {
	t.Run("Reports Previous And New", func(t *testing.T) {
		usage := &mocks.MockUsageRepository{Counters: map[string]int64{"acme_corp:campaigns_per_month": 3}}
		svc := newTestUsageService(usage, &mocks.MockAuditRepository{})

		update, err := svc.IncrementUsage(context.Background(), proContext(), "campaigns_per_month", 2)
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if update.PreviousUsage != 3 || update.NewUsage != 5 || update.IncrementedBy != 2 {
			t.Errorf("unexpected update: %+v", update)
		}
	})

	t.Run("Concurrent Increments Lose Nothing", func(t *testing.T) {
		usage := &mocks.MockUsageRepository{}
		svc := newTestUsageService(usage, &mocks.MockAuditRepository{})
		tc := proContext()

		const n = 100
		var wg sync.WaitGroup
		for i := 0; i < n; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				if _, err := svc.IncrementUsage(context.Background(), tc, "campaigns_per_month", 1); err != nil {
					t.Errorf("unexpected error: %v", err)
				}
			}()
		}
		wg.Wait()

		final, err := usage.Get(context.Background(), "acme_corp", "campaigns_per_month")
		if err != nil {
			t.Fatalf("failed to read counter: %v", err)
		}
		if final != n {
			t.Errorf("counter: got %d, want %d", final, n)
		}
	})
}

func TestUsageService_Audit(t *testing.T) {
	t.Run("Appends Record With Request Attributes", func(t *testing.T) {
		audit := &mocks.MockAuditRepository{}
		svc := newTestUsageService(&mocks.MockUsageRepository{}, audit)

		ok := svc.Audit(context.Background(), proContext(), RequestInfo{IPAddress: "10.0.0.1", UserAgent: "curl/8"}, domain.AuditActionFeatureAccess, "campaign_launch", json.RawMessage(`{"campaign_id":"c1"}`))
		if !ok {
			t.Fatal("expected audit to succeed")
		}

		records := audit.Appended()
		if len(records) != 1 {
			t.Fatalf("expected 1 record, got %d", len(records))
		}
		rec := records[0]
		if rec.TenantID != "acme_corp" || rec.Action != domain.AuditActionFeatureAccess || rec.Resource != "campaign_launch" {
			t.Errorf("unexpected record: %+v", rec)
		}
		if rec.IPAddress != "10.0.0.1" || rec.UserAgent != "curl/8" {
			t.Errorf("request attributes not stamped: %+v", rec)
		}
		if rec.TokenID != "jti-1" {
			t.Errorf("token_id: got %q", rec.TokenID)
		}
		if rec.ID == "" {
			t.Error("expected record ID to be generated")
		}
	})

	t.Run("Redacts Sensitive Detail Fields", func(t *testing.T) {
		audit := &mocks.MockAuditRepository{}
		svc := newTestUsageService(&mocks.MockUsageRepository{}, audit)

		svc.Audit(context.Background(), proContext(), RequestInfo{}, domain.AuditActionDataAccess, "contacts", json.RawMessage(`{"email":"a@b.com","note":"ok"}`))

		var details map[string]string
		if err := json.Unmarshal(audit.Appended()[0].Details, &details); err != nil {
			t.Fatalf("failed to unmarshal details: %v", err)
		}
		if details["email"] != pii.RedactedPlaceholder {
			t.Errorf("email not redacted: %q", details["email"])
		}
		if details["note"] != "ok" {
			t.Errorf("unrelated field mangled: %q", details["note"])
		}
	})

	t.Run("Storage Failure Is Swallowed", func(t *testing.T) {
		audit := &mocks.MockAuditRepository{AppendErr: errors.New("connection refused")}
		svc := newTestUsageService(&mocks.MockUsageRepository{}, audit)

		ok := svc.Audit(context.Background(), proContext(), RequestInfo{}, domain.AuditActionDataAccess, "", nil)
		if ok {
			t.Error("expected audit to report false on storage failure")
		}
	})

	t.Run("Nil Context Reports False", func(t *testing.T) {
		svc := newTestUsageService(&mocks.MockUsageRepository{}, &mocks.MockAuditRepository{})

		if svc.Audit(context.Background(), nil, RequestInfo{}, "login", "", nil) {
			t.Error("expected audit without context to report false")
		}
	})
}
