package handler

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/voxhive/backoffice/internal/adapter/api/middleware"
	"github.com/voxhive/backoffice/internal/domain"
	"github.com/voxhive/backoffice/internal/usecase"
)

// TenantHandler serves tenant self-inspection and usage endpoints.
type TenantHandler struct {
	usage  *usecase.UsageService
	logger *slog.Logger
}

// NewTenantHandler creates a TenantHandler.
func NewTenantHandler(usage *usecase.UsageService, logger *slog.Logger) *TenantHandler {
	return &TenantHandler{usage: usage, logger: logger}
}

// Status handles GET /tenant/status: tenant info plus the standing of every
// limit configured in the context.
func (h *TenantHandler) Status(w http.ResponseWriter, r *http.Request) {
	tc, _ := middleware.TenantFrom(r.Context())

	limits := make(map[string]domain.LimitStatus, len(tc.Limits))
	for name := range tc.Limits {
		status, err := h.usage.CheckLimit(r.Context(), tc, name, -1)
		if err != nil {
			h.logger.Error("failed to check limit", "error", err, "limit", name, "tenant_id", tc.TenantID)
			respondDetail(w, http.StatusInternalServerError, "Failed to read usage")
			return
		}
		limits[name] = status
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"tenant_id":      tc.TenantID,
		"plan":           tc.Plan,
		"system_enabled": tc.SystemEnabled,
		"features":       tc.FeatureNames(),
		"token_derived":  tc.TokenDerived(),
		"limits":         limits,
	})
}

type usageUpdateRequest struct {
	LimitName string `json:"limit_name"`
	Amount    int64  `json:"amount"`
}

// UpdateUsage handles POST /tenant/usage. The limit check happens here, in
// business logic, because limits are advisory rather than gate-enforced; a
// tenant over its ceiling gets a 429 and an audit trail entry.
func (h *TenantHandler) UpdateUsage(w http.ResponseWriter, r *http.Request) {
	tc, _ := middleware.TenantFrom(r.Context())

	var req usageUpdateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondDetail(w, http.StatusBadRequest, "Invalid JSON")
		return
	}
	if req.LimitName == "" {
		respondDetail(w, http.StatusBadRequest, "limit_name is required")
		return
	}
	if req.Amount <= 0 {
		req.Amount = 1
	}

	status, err := h.usage.CheckLimit(r.Context(), tc, req.LimitName, -1)
	if err != nil {
		h.logger.Error("failed to check limit", "error", err, "limit", req.LimitName, "tenant_id", tc.TenantID)
		respondDetail(w, http.StatusInternalServerError, "Failed to read usage")
		return
	}
	if !status.WithinLimit {
		details, _ := json.Marshal(map[string]interface{}{
			"attempted_amount": req.Amount,
			"limit":            status.Limit,
			"usage":            status.Usage,
		})
		h.usage.Audit(r.Context(), tc, requestInfo(r), domain.AuditActionLimitExceeded, req.LimitName, details)
		respondJSON(w, http.StatusTooManyRequests, map[string]interface{}{
			"detail":     "Limit exceeded for " + req.LimitName,
			"limit_info": status,
		})
		return
	}

	update, err := h.usage.IncrementUsage(r.Context(), tc, req.LimitName, req.Amount)
	if err != nil {
		h.logger.Error("failed to increment usage", "error", err, "limit", req.LimitName, "tenant_id", tc.TenantID)
		respondDetail(w, http.StatusInternalServerError, "Failed to update usage")
		return
	}

	details, _ := json.Marshal(update)
	h.usage.Audit(r.Context(), tc, requestInfo(r), domain.AuditActionDataAccess, req.LimitName, details)

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"limit_name": req.LimitName,
		"usage_info": update,
	})
}
