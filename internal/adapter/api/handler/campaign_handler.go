package handler

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/voxhive/backoffice/internal/adapter/api/middleware"
	"github.com/voxhive/backoffice/internal/domain"
	"github.com/voxhive/backoffice/internal/usecase"
)

const campaignLimitName = "campaigns_per_month"

// CampaignHandler launches call campaigns onto the message queue. It is the
// business-logic caller that exercises the full authorization flow: the
// campaigns feature gate upstream, the advisory monthly limit here, and the
// audit trail on both outcomes.
type CampaignHandler struct {
	queue  domain.CampaignQueue
	usage  *usecase.UsageService
	logger *slog.Logger
}

// NewCampaignHandler creates a CampaignHandler.
func NewCampaignHandler(queue domain.CampaignQueue, usage *usecase.UsageService, logger *slog.Logger) *CampaignHandler {
	return &CampaignHandler{queue: queue, usage: usage, logger: logger}
}

type launchRequest struct {
	Name        string   `json:"name"`
	AssistantID string   `json:"assistant_id"`
	ContactIDs  []string `json:"contact_ids"`
}

// Launch handles POST /campaigns/launch.
func (h *CampaignHandler) Launch(w http.ResponseWriter, r *http.Request) {
	tc, _ := middleware.TenantFrom(r.Context())

	var req launchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondDetail(w, http.StatusBadRequest, "Invalid JSON")
		return
	}
	if req.Name == "" {
		respondDetail(w, http.StatusBadRequest, "name is required")
		return
	}

	status, err := h.usage.CheckLimit(r.Context(), tc, campaignLimitName, -1)
	if err != nil {
		h.logger.Error("failed to check campaign limit", "error", err, "tenant_id", tc.TenantID)
		respondDetail(w, http.StatusInternalServerError, "Failed to read usage")
		return
	}
	if !status.WithinLimit {
		details, _ := json.Marshal(status)
		h.usage.Audit(r.Context(), tc, requestInfo(r), domain.AuditActionLimitExceeded, campaignLimitName, details)
		respondJSON(w, http.StatusTooManyRequests, map[string]interface{}{
			"detail":     "Monthly campaign limit exceeded",
			"limit_info": status,
		})
		return
	}

	launch := domain.CampaignLaunch{
		CampaignID:  uuid.NewString(),
		TenantID:    tc.TenantID,
		Name:        req.Name,
		AssistantID: req.AssistantID,
		ContactIDs:  req.ContactIDs,
		LaunchedAt:  time.Now().UTC(),
	}

	if err := h.queue.PublishLaunch(r.Context(), launch); err != nil {
		h.logger.Error("failed to publish campaign launch", "error", err, "campaign_id", launch.CampaignID, "tenant_id", tc.TenantID)
		respondDetail(w, http.StatusInternalServerError, "Failed to launch campaign")
		return
	}

	if _, err := h.usage.IncrementUsage(r.Context(), tc, campaignLimitName, 1); err != nil {
		// Launch is already on the queue; a counter failure only costs
		// accounting accuracy, not correctness of the launch itself.
		h.logger.Error("failed to record campaign usage", "error", err, "tenant_id", tc.TenantID)
	}

	details, _ := json.Marshal(map[string]string{"campaign_id": launch.CampaignID, "name": launch.Name})
	h.usage.Audit(r.Context(), tc, requestInfo(r), domain.AuditActionFeatureAccess, "campaign_launch", details)

	respondJSON(w, http.StatusAccepted, map[string]interface{}{
		"campaign_id": launch.CampaignID,
		"launched_at": launch.LaunchedAt,
	})
}

// Analytics handles GET /campaigns/analytics, the plan-gated endpoint.
func (h *CampaignHandler) Analytics(w http.ResponseWriter, r *http.Request) {
	tc, _ := middleware.TenantFrom(r.Context())

	status, err := h.usage.CheckLimit(r.Context(), tc, campaignLimitName, -1)
	if err != nil {
		h.logger.Error("failed to check campaign limit", "error", err, "tenant_id", tc.TenantID)
		respondDetail(w, http.StatusInternalServerError, "Failed to read usage")
		return
	}

	h.usage.Audit(r.Context(), tc, requestInfo(r), domain.AuditActionDataAccess, "campaign_analytics", nil)

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"tenant_id":       tc.TenantID,
		"plan":            tc.Plan,
		"campaigns_month": status,
	})
}
