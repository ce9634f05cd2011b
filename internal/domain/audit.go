package domain

import (
	"context"
	"encoding/json"
	"time"
)

// Audit action taxonomy. Action is free-text at the storage layer; these are
// the values the service itself emits.
const (
	AuditActionTokenRequest  = "token_request"
	AuditActionTokenRefresh  = "token_refresh"
	AuditActionFeatureAccess = "feature_access"
	AuditActionDataAccess    = "data_access"
	AuditActionLimitExceeded = "limit_exceeded"
)

// AuditRecord is a write-once record of a tenant action. Records are kept for
// a bounded retention window and are never updated.
type AuditRecord struct {
	ID        string          `json:"id"`
	TenantID  string          `json:"tenant_id"`
	Action    string          `json:"action"`
	Resource  string          `json:"resource,omitempty"`
	Details   json.RawMessage `json:"details,omitempty"`
	Timestamp time.Time       `json:"timestamp"`
	IPAddress string          `json:"ip_address,omitempty"`
	UserAgent string          `json:"user_agent,omitempty"`
	TokenID   string          `json:"token_id,omitempty"`
}

// AuditRepository appends audit records and prunes ones past their retention.
type AuditRepository interface {
	Append(ctx context.Context, record AuditRecord) error
	DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error)
}
