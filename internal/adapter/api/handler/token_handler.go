package handler

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"github.com/voxhive/backoffice/internal/adapter/api/middleware"
	"github.com/voxhive/backoffice/internal/adapter/tenantmgmt"
	"github.com/voxhive/backoffice/internal/usecase"
)

// TokenHandler proxies token issuance against the upstream tenant-management
// system, with a cache-first path so repeat callers reuse issued tokens.
type TokenHandler struct {
	client        *tenantmgmt.Client
	usage         *usecase.UsageService
	validateCreds bool
	logger        *slog.Logger
}

// NewTokenHandler creates a TokenHandler. validateCreds enables the optional
// local check of presented client credentials before proxying.
func NewTokenHandler(client *tenantmgmt.Client, usage *usecase.UsageService, validateCreds bool, logger *slog.Logger) *TokenHandler {
	return &TokenHandler{
		client:        client,
		usage:         usage,
		validateCreds: validateCreds,
		logger:        logger,
	}
}

type tokenRequest struct {
	ClientID     string `json:"client_id"`
	ClientSecret string `json:"client_secret"`
	TenantID     string `json:"tenant_id"`
	Audience     string `json:"audience"`
}

// parseTokenRequest accepts both JSON and form-encoded bodies, matching what
// the tenant-management system's own endpoint accepts.
func parseTokenRequest(r *http.Request) (*tokenRequest, error) {
	req := &tokenRequest{}

	if strings.HasPrefix(r.Header.Get("Content-Type"), "application/json") {
		if err := json.NewDecoder(r.Body).Decode(req); err != nil {
			return nil, fmt.Errorf("invalid JSON data")
		}
	} else {
		if err := r.ParseForm(); err != nil {
			return nil, fmt.Errorf("invalid form data")
		}
		req.ClientID = r.PostFormValue("client_id")
		req.ClientSecret = r.PostFormValue("client_secret")
		req.TenantID = r.PostFormValue("tenant_id")
		req.Audience = r.PostFormValue("audience")
	}

	if req.Audience == "" {
		req.Audience = "watchtower"
	}
	if req.ClientID == "" || req.ClientSecret == "" || req.TenantID == "" {
		return nil, fmt.Errorf("missing required fields: client_id, client_secret, tenant_id")
	}
	return req, nil
}

// GetToken handles POST /auth/token.
func (h *TokenHandler) GetToken(w http.ResponseWriter, r *http.Request) {
	req, err := parseTokenRequest(r)
	if err != nil {
		respondDetail(w, http.StatusBadRequest, err.Error())
		return
	}

	if h.validateCreds && !h.client.ValidateCredentials(req.ClientID, req.ClientSecret) {
		respondDetail(w, http.StatusUnauthorized, "Invalid client credentials")
		return
	}

	if cached, err := h.client.Cached(r.Context(), req.TenantID, req.Audience); err == nil && cached != nil {
		respondJSON(w, http.StatusOK, map[string]interface{}{
			"access_token": cached.AccessToken,
			"token_type":   "Bearer",
			"expires_in":   cached.ExpiresIn,
			"tenant_id":    cached.TenantID,
			"source":       "cache",
		})
		return
	}

	token, err := h.client.Fetch(r.Context(), req.ClientID, req.ClientSecret, req.TenantID, req.Audience)
	if err != nil {
		h.logger.Error("token fetch failed", "error", err, "tenant_id", req.TenantID)
		respondDetail(w, http.StatusBadGateway, "Failed to get token from tenant management system")
		return
	}

	h.auditTokenAction(r, req, "token_request")

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"access_token": token.AccessToken,
		"token_type":   tokenType(token.TokenType),
		"expires_in":   token.ExpiresIn,
		"tenant_id":    token.TenantID,
		"plan":         token.Plan,
		"features":     token.Features,
		"source":       "tenant_management",
	})
}

// RefreshToken handles POST /auth/token/refresh, dropping any cached token.
func (h *TokenHandler) RefreshToken(w http.ResponseWriter, r *http.Request) {
	req, err := parseTokenRequest(r)
	if err != nil {
		respondDetail(w, http.StatusBadRequest, err.Error())
		return
	}

	if h.validateCreds && !h.client.ValidateCredentials(req.ClientID, req.ClientSecret) {
		respondDetail(w, http.StatusUnauthorized, "Invalid client credentials")
		return
	}

	token, err := h.client.Refresh(r.Context(), req.ClientID, req.ClientSecret, req.TenantID, req.Audience)
	if err != nil {
		h.logger.Error("token refresh failed", "error", err, "tenant_id", req.TenantID)
		respondDetail(w, http.StatusBadGateway, "Failed to refresh token")
		return
	}

	h.auditTokenAction(r, req, "token_refresh")

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"access_token": token.AccessToken,
		"token_type":   tokenType(token.TokenType),
		"expires_in":   token.ExpiresIn,
		"tenant_id":    token.TenantID,
		"plan":         token.Plan,
		"features":     token.Features,
		"source":       "refreshed",
	})
}

// TokenStatus handles GET /auth/token/status. Only a preview of the token is
// ever returned.
func (h *TokenHandler) TokenStatus(w http.ResponseWriter, r *http.Request) {
	tenantID := r.URL.Query().Get("tenant_id")
	if tenantID == "" {
		respondDetail(w, http.StatusBadRequest, "Missing tenant_id parameter")
		return
	}
	audience := r.URL.Query().Get("audience")
	if audience == "" {
		audience = "watchtower"
	}

	cached, err := h.client.Cached(r.Context(), tenantID, audience)
	if err != nil {
		h.logger.Error("token status lookup failed", "error", err, "tenant_id", tenantID)
		respondDetail(w, http.StatusInternalServerError, "Failed to check token status")
		return
	}

	status := map[string]interface{}{
		"tenant_id":        tenantID,
		"audience":         audience,
		"has_cached_token": cached != nil,
	}
	if cached != nil {
		preview := cached.AccessToken
		if len(preview) > 20 {
			preview = preview[:20]
		}
		status["token_preview"] = preview + "..."
	}
	respondJSON(w, http.StatusOK, status)
}

func (h *TokenHandler) auditTokenAction(r *http.Request, req *tokenRequest, action string) {
	tc, ok := middleware.TenantFrom(r.Context())
	if !ok {
		return
	}
	details, _ := json.Marshal(map[string]string{
		"tenant_id": req.TenantID,
		"audience":  req.Audience,
	})
	h.usage.Audit(r.Context(), tc, requestInfo(r), action, "token", details)
}

func tokenType(t string) string {
	if t == "" {
		return "Bearer"
	}
	return t
}
