package usecase

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/voxhive/backoffice/internal/adapter/metrics"
	"github.com/voxhive/backoffice/internal/adapter/pii"
	"github.com/voxhive/backoffice/internal/domain"
)

// RequestInfo carries the request attributes stamped onto audit records.
type RequestInfo struct {
	IPAddress string
	UserAgent string
}

// UsageService checks tenant limits, records usage, and appends audit
// records. Limit checks are advisory: business logic consults them and
// decides, unlike feature and plan gates which reject on their own.
type UsageService struct {
	usage    domain.UsageRepository
	audit    domain.AuditRepository
	redactor *pii.Redactor
	usageTTL time.Duration
	logger   *slog.Logger
	metrics  *metrics.AuthMetrics
}

// NewUsageService creates a UsageService. usageTTL bounds how long a usage
// counter lives without being touched.
func NewUsageService(usage domain.UsageRepository, audit domain.AuditRepository, redactor *pii.Redactor, usageTTL time.Duration, logger *slog.Logger, m *metrics.AuthMetrics) *UsageService {
	return &UsageService{
		usage:    usage,
		audit:    audit,
		redactor: redactor,
		usageTTL: usageTTL,
		logger:   logger.With("component", "usage_service"),
		metrics:  m,
	}
}

// CheckLimit compares the tenant's usage for limitName against the ceiling in
// its context. A limit absent from the context has a ceiling of 0, so
// unconfigured limits deny rather than allow. currentUsage < 0 means "read it
// from the counter store".
func (s *UsageService) CheckLimit(ctx context.Context, tc *domain.TenantContext, limitName string, currentUsage int64) (domain.LimitStatus, error) {
	if tc == nil {
		return domain.LimitStatus{}, domain.ErrTenantContextMissing
	}

	ceiling := tc.Limit(limitName)

	if currentUsage < 0 {
		usage, err := s.usage.Get(ctx, tc.TenantID, limitName)
		if err != nil {
			return domain.LimitStatus{}, err
		}
		currentUsage = usage
	}

	remaining := ceiling - currentUsage
	if remaining < 0 {
		remaining = 0
	}

	return domain.LimitStatus{
		WithinLimit: currentUsage < ceiling,
		Limit:       ceiling,
		Usage:       currentUsage,
		Remaining:   remaining,
	}, nil
}

// IncrementUsage atomically adds amount to the tenant's counter for
// limitName. The atomicity lives in the repository; two concurrent
// increments can never observe the same previous value and lose one.
func (s *UsageService) IncrementUsage(ctx context.Context, tc *domain.TenantContext, limitName string, amount int64) (domain.UsageUpdate, error) {
	if tc == nil {
		return domain.UsageUpdate{}, domain.ErrTenantContextMissing
	}
	if amount <= 0 {
		amount = 1
	}

	newUsage, err := s.usage.Increment(ctx, tc.TenantID, limitName, amount)
	if err != nil {
		return domain.UsageUpdate{}, err
	}

	return domain.UsageUpdate{
		PreviousUsage: newUsage - amount,
		NewUsage:      newUsage,
		IncrementedBy: amount,
	}, nil
}

// Audit appends an audit record for the tenant. It is best-effort by
// contract: a storage failure is logged and reported as false, never
// returned, because audit logging must not break the request it observes.
func (s *UsageService) Audit(ctx context.Context, tc *domain.TenantContext, req RequestInfo, action, resource string, details json.RawMessage) bool {
	if tc == nil {
		return false
	}

	record := domain.AuditRecord{
		ID:        uuid.NewString(),
		TenantID:  tc.TenantID,
		Action:    action,
		Resource:  resource,
		Details:   s.redactor.Redact(details),
		Timestamp: time.Now().UTC(),
		IPAddress: req.IPAddress,
		UserAgent: req.UserAgent,
		TokenID:   tc.TokenID,
	}

	if err := s.audit.Append(ctx, record); err != nil {
		s.logger.Error("failed to append audit record", "error", err, "tenant_id", tc.TenantID, "action", action)
		if s.metrics != nil {
			s.metrics.AuditFailures.Inc()
		}
		return false
	}
	return true
}

// StartRetentionSweep deletes audit records older than the retention window
// on a fixed interval until ctx is cancelled.
func (s *UsageService) StartRetentionSweep(ctx context.Context, retention, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	s.logger.Info("starting audit retention sweep", "retention", retention, "interval", interval)

	for {
		select {
		case <-ctx.Done():
			s.logger.Info("stopping audit retention sweep")
			return
		case <-ticker.C:
			cutoff := time.Now().UTC().Add(-retention)
			deleted, err := s.audit.DeleteOlderThan(ctx, cutoff)
			if err != nil {
				s.logger.Error("audit retention sweep failed", "error", err)
				continue
			}
			if deleted > 0 {
				s.logger.Info("pruned expired audit records", "deleted", deleted)
			}
		}
	}
}
