package middleware

import (
	"fmt"
	"net/http"

	"github.com/voxhive/backoffice/internal/adapter/metrics"
)

// Gates are pure pre-condition checks composed at route registration. None of
// them mutate state or consume quota; limit enforcement stays in business
// logic, which opts in via the usage service.

// RequireTenant rejects requests that have no tenant context attached, for
// endpoints that are tenant-aware but not feature-gated.
func RequireTenant(m *metrics.AuthMetrics) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if _, ok := TenantFrom(r.Context()); !ok {
				if m != nil {
					m.GateRejections.WithLabelValues("context").Inc()
				}
				WriteDetail(w, http.StatusUnauthorized, "Tenant context required")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// RequireFeature rejects requests whose tenant context does not grant the
// named feature flag.
func RequireFeature(name string, m *metrics.AuthMetrics) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			tc, ok := TenantFrom(r.Context())
			if !ok || !tc.HasFeature(name) {
				if m != nil {
					m.GateRejections.WithLabelValues("feature").Inc()
				}
				WriteDetail(w, http.StatusForbidden, fmt.Sprintf("Feature %q not available", name))
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// PlanMatcher decides whether a tenant's plan satisfies a required plan.
type PlanMatcher struct {
	rank map[string]int
}

// NewPlanMatcher builds a matcher. With an empty ranking, plans are discrete
// labels and only an exact match satisfies a gate — enterprise does not imply
// pro. With a ranking (ordered low to high), any plan ranked at or above the
// required one passes; plans outside the ranking still need an exact match.
func NewPlanMatcher(ranking []string) *PlanMatcher {
	rank := make(map[string]int, len(ranking))
	for i, plan := range ranking {
		rank[plan] = i + 1
	}
	return &PlanMatcher{rank: rank}
}

// Satisfies reports whether have satisfies the want plan.
func (pm *PlanMatcher) Satisfies(have, want string) bool {
	if have == want {
		return true
	}
	haveRank, okHave := pm.rank[have]
	wantRank, okWant := pm.rank[want]
	return okHave && okWant && haveRank >= wantRank
}

// RequirePlan rejects requests whose tenant plan does not satisfy the
// required plan under the given matcher.
func RequirePlan(name string, matcher *PlanMatcher, m *metrics.AuthMetrics) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			tc, ok := TenantFrom(r.Context())
			if !ok {
				if m != nil {
					m.GateRejections.WithLabelValues("context").Inc()
				}
				WriteDetail(w, http.StatusUnauthorized, "Tenant context required")
				return
			}
			if !matcher.Satisfies(tc.Plan, name) {
				if m != nil {
					m.GateRejections.WithLabelValues("plan").Inc()
				}
				WriteDetail(w, http.StatusForbidden, fmt.Sprintf("Plan %q required", name))
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
