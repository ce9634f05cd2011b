package domain

import "context"

// LimitStatus is the result of checking a tenant's usage against one of its
// configured ceilings.
type LimitStatus struct {
	WithinLimit bool  `json:"within_limit"`
	Limit       int64 `json:"limit"`
	Usage       int64 `json:"usage"`
	Remaining   int64 `json:"remaining"`
}

// UsageUpdate describes the outcome of a usage increment.
type UsageUpdate struct {
	PreviousUsage int64 `json:"previous_usage"`
	NewUsage      int64 `json:"new_usage"`
	IncrementedBy int64 `json:"incremented_by"`
}

// UsageRepository stores per-tenant, per-limit usage counters with bounded
// retention. Increment must be atomic: concurrent increments for the same
// tenant and limit may never lose updates.
type UsageRepository interface {
	Get(ctx context.Context, tenantID, limitName string) (int64, error)
	Increment(ctx context.Context, tenantID, limitName string, amount int64) (int64, error)
}
