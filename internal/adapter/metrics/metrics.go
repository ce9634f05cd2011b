package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// AuthMetrics holds all Prometheus metrics for the tenant authorization core.
type AuthMetrics struct {
	VerificationsTotal *prometheus.CounterVec
	ContextCacheHits   prometheus.Counter
	ContextCacheMisses prometheus.Counter
	JWKSFetchesTotal   *prometheus.CounterVec
	GateRejections     *prometheus.CounterVec
	AuditFailures      prometheus.Counter
}

// NewAuthMetrics initializes and registers the Prometheus metrics.
func NewAuthMetrics() *AuthMetrics {
	return &AuthMetrics{
		VerificationsTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: "backoffice",
			Subsystem: "auth",
			Name:      "verifications_total",
			Help:      "Total number of token verifications by outcome.",
		}, []string{"outcome"}), // outcome: ok, expired, invalid, key_resolution
		ContextCacheHits: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: "backoffice",
			Subsystem: "auth",
			Name:      "context_cache_hits_total",
			Help:      "Total number of tenant context cache hits.",
		}),
		ContextCacheMisses: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: "backoffice",
			Subsystem: "auth",
			Name:      "context_cache_misses_total",
			Help:      "Total number of tenant context cache misses.",
		}),
		JWKSFetchesTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: "backoffice",
			Subsystem: "auth",
			Name:      "jwks_fetches_total",
			Help:      "Total number of JWKS document fetches by outcome.",
		}, []string{"outcome"}), // outcome: ok, error
		GateRejections: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: "backoffice",
			Subsystem: "auth",
			Name:      "gate_rejections_total",
			Help:      "Total number of requests rejected by a gate.",
		}, []string{"gate"}), // gate: feature, plan, context, disabled
		AuditFailures: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: "backoffice",
			Subsystem: "audit",
			Name:      "append_failures_total",
			Help:      "Total number of audit records that could not be persisted.",
		}),
	}
}
