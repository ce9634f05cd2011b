package handler

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/voxhive/backoffice/internal/domain"
	"github.com/voxhive/backoffice/internal/domain/mocks"
)

func TestTenantHandler_Status(t *testing.T) {
	usage := &mocks.MockUsageRepository{Counters: map[string]int64{"acme_corp:campaigns_per_month": 4}}
	h := NewTenantHandler(newUsageService(usage, &mocks.MockAuditRepository{}), discardLogger())

	rec := httptest.NewRecorder()
	h.Status(rec, tenantRequest(http.MethodGet, "/tenant/status", "", proTenant()))

	if rec.Code != http.StatusOK {
		t.Fatalf("status: got %d, want 200", rec.Code)
	}
	body := decodeBody(t, rec.Body)
	if body["tenant_id"] != "acme_corp" || body["plan"] != "pro" {
		t.Errorf("unexpected identity fields: %v", body)
	}
	if body["token_derived"] != true {
		t.Error("expected token_derived to be true")
	}

	limits, ok := body["limits"].(map[string]interface{})
	if !ok {
		t.Fatalf("expected limits object, got %T", body["limits"])
	}
	standing, ok := limits["campaigns_per_month"].(map[string]interface{})
	if !ok {
		t.Fatalf("expected campaigns_per_month standing, got %v", limits)
	}
	if standing["usage"] != float64(4) || standing["limit"] != float64(10) {
		t.Errorf("unexpected standing: %v", standing)
	}
	if standing["within_limit"] != true {
		t.Errorf("expected within_limit true: %v", standing)
	}
}

func TestTenantHandler_UpdateUsage(t *testing.T) {
	t.Run("Increments Within Limit", func(t *testing.T) {
		usage := &mocks.MockUsageRepository{Counters: map[string]int64{"acme_corp:campaigns_per_month": 3}}
		audit := &mocks.MockAuditRepository{}
		h := NewTenantHandler(newUsageService(usage, audit), discardLogger())

		rec := httptest.NewRecorder()
		h.UpdateUsage(rec, tenantRequest(http.MethodPost, "/tenant/usage", `{"limit_name":"campaigns_per_month","amount":2}`, proTenant()))

		if rec.Code != http.StatusOK {
			t.Fatalf("status: got %d, want 200, body %s", rec.Code, rec.Body.String())
		}
		count, _ := usage.Get(context.Background(), "acme_corp", "campaigns_per_month")
		if count != 5 {
			t.Errorf("counter: got %d, want 5", count)
		}

		records := audit.Appended()
		if len(records) != 1 || records[0].Action != domain.AuditActionDataAccess {
			t.Errorf("expected a data_access audit record, got %+v", records)
		}
	})

	t.Run("At Ceiling Gets 429", func(t *testing.T) {
		usage := &mocks.MockUsageRepository{Counters: map[string]int64{"acme_corp:campaigns_per_month": 10}}
		audit := &mocks.MockAuditRepository{}
		h := NewTenantHandler(newUsageService(usage, audit), discardLogger())

		rec := httptest.NewRecorder()
		h.UpdateUsage(rec, tenantRequest(http.MethodPost, "/tenant/usage", `{"limit_name":"campaigns_per_month"}`, proTenant()))

		if rec.Code != http.StatusTooManyRequests {
			t.Fatalf("status: got %d, want 429", rec.Code)
		}
		body := decodeBody(t, rec.Body)
		if body["limit_info"] == nil {
			t.Error("expected limit_info in the rejection body")
		}
		count, _ := usage.Get(context.Background(), "acme_corp", "campaigns_per_month")
		if count != 10 {
			t.Errorf("rejected update must not increment, got %d", count)
		}

		records := audit.Appended()
		if len(records) != 1 || records[0].Action != domain.AuditActionLimitExceeded {
			t.Errorf("expected a limit_exceeded audit record, got %+v", records)
		}
	})

	t.Run("Unconfigured Limit Fails Closed", func(t *testing.T) {
		h := NewTenantHandler(newUsageService(&mocks.MockUsageRepository{}, &mocks.MockAuditRepository{}), discardLogger())

		rec := httptest.NewRecorder()
		h.UpdateUsage(rec, tenantRequest(http.MethodPost, "/tenant/usage", `{"limit_name":"unknown_limit"}`, proTenant()))

		if rec.Code != http.StatusTooManyRequests {
			t.Errorf("status: got %d, want 429", rec.Code)
		}
	})

	t.Run("Missing Limit Name Rejected", func(t *testing.T) {
		h := NewTenantHandler(newUsageService(&mocks.MockUsageRepository{}, &mocks.MockAuditRepository{}), discardLogger())

		rec := httptest.NewRecorder()
		h.UpdateUsage(rec, tenantRequest(http.MethodPost, "/tenant/usage", `{"amount":1}`, proTenant()))

		if rec.Code != http.StatusBadRequest {
			t.Errorf("status: got %d, want 400", rec.Code)
		}
	})
}
