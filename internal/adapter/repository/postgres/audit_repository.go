package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	"github.com/voxhive/backoffice/internal/domain"
)

// AuditRepository implements domain.AuditRepository on PostgreSQL. Records
// are append-only; retention is enforced by DeleteOlderThan, which the usage
// service runs on a sweep interval.
type AuditRepository struct {
	db     *sql.DB
	logger *slog.Logger
}

// NewAuditRepository creates a new PostgreSQL audit repository.
func NewAuditRepository(db *sql.DB, logger *slog.Logger) *AuditRepository {
	return &AuditRepository{
		db:     db,
		logger: logger.With("component", "audit_repository"),
	}
}

// Append inserts a single audit record.
func (r *AuditRepository) Append(ctx context.Context, record domain.AuditRecord) error {
	query := `
		INSERT INTO tenant_audit_log
			(id, tenant_id, action, resource, details, created_at, ip_address, user_agent, token_id)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`

	details := record.Details
	if len(details) == 0 {
		details = []byte("{}")
	}

	_, err := r.db.ExecContext(ctx, query,
		record.ID,
		record.TenantID,
		record.Action,
		record.Resource,
		[]byte(details),
		record.Timestamp,
		record.IPAddress,
		record.UserAgent,
		record.TokenID,
	)
	if err != nil {
		return fmt.Errorf("failed to insert audit record: %w", err)
	}
	return nil
}

// DeleteOlderThan prunes records created before cutoff and returns how many
// were removed.
func (r *AuditRepository) DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	res, err := r.db.ExecContext(ctx, `DELETE FROM tenant_audit_log WHERE created_at < $1`, cutoff)
	if err != nil {
		return 0, fmt.Errorf("failed to prune audit records: %w", err)
	}
	deleted, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to count pruned audit records: %w", err)
	}
	return deleted, nil
}
