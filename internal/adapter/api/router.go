package api

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/voxhive/backoffice/internal/adapter/api/handler"
	"github.com/voxhive/backoffice/internal/adapter/api/middleware"
	"github.com/voxhive/backoffice/internal/adapter/metrics"
	"github.com/voxhive/backoffice/internal/adapter/tenantmgmt"
	"github.com/voxhive/backoffice/internal/domain"
	"github.com/voxhive/backoffice/internal/usecase"
)

// RouterDeps carries everything the HTTP surface needs.
type RouterDeps struct {
	Logger        *slog.Logger
	Metrics       *metrics.AuthMetrics
	Resolver      middleware.ContextResolver
	TenantConfig  middleware.TenantContextConfig
	PlanMatcher   *middleware.PlanMatcher
	Usage         *usecase.UsageService
	TenantMgmt    *tenantmgmt.Client
	CampaignQueue domain.CampaignQueue
	ValidateCreds bool
}

// NewRouter creates and configures the main HTTP router. Gates are composed
// per route group; the tenant-context middleware runs on everything so even
// skip-listed paths carry a fallback context.
func NewRouter(deps RouterDeps) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.Logging(deps.Logger))
	r.Use(middleware.TenantContext(deps.Resolver, deps.TenantConfig, deps.Logger, deps.Metrics))

	tokenHandler := handler.NewTokenHandler(deps.TenantMgmt, deps.Usage, deps.ValidateCreds, deps.Logger)
	tenantHandler := handler.NewTenantHandler(deps.Usage, deps.Logger)
	campaignHandler := handler.NewCampaignHandler(deps.CampaignQueue, deps.Usage, deps.Logger)

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("OK"))
	})

	r.Route("/auth", func(r chi.Router) {
		r.Post("/token", tokenHandler.GetToken)
		r.Post("/token/refresh", tokenHandler.RefreshToken)
		r.Get("/token/status", tokenHandler.TokenStatus)
	})

	r.Route("/tenant", func(r chi.Router) {
		r.Use(middleware.RequireTenant(deps.Metrics))
		r.Get("/status", tenantHandler.Status)
		r.Post("/usage", tenantHandler.UpdateUsage)
	})

	r.Route("/campaigns", func(r chi.Router) {
		r.Use(middleware.RequireFeature("campaigns", deps.Metrics))
		r.Post("/launch", campaignHandler.Launch)
		r.With(middleware.RequirePlan(domain.PlanPro, deps.PlanMatcher, deps.Metrics)).
			Get("/analytics", campaignHandler.Analytics)
	})

	return r
}
