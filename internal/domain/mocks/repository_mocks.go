package mocks

import (
	"context"
	"sync"
	"time"

	"github.com/voxhive/backoffice/internal/domain"
)

// MockUsageRepository is an in-memory implementation of
// domain.UsageRepository for testing. Increment is atomic under the mutex,
// matching the contract of the real store.
type MockUsageRepository struct {
	mu       sync.Mutex
	Counters map[string]int64
	GetErr   error
	IncrErr  error
}

func key(tenantID, limitName string) string {
	return tenantID + ":" + limitName
}

func (m *MockUsageRepository) Get(ctx context.Context, tenantID, limitName string) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.GetErr != nil {
		return 0, m.GetErr
	}
	return m.Counters[key(tenantID, limitName)], nil
}

func (m *MockUsageRepository) Increment(ctx context.Context, tenantID, limitName string, amount int64) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.IncrErr != nil {
		return 0, m.IncrErr
	}
	if m.Counters == nil {
		m.Counters = make(map[string]int64)
	}
	m.Counters[key(tenantID, limitName)] += amount
	return m.Counters[key(tenantID, limitName)], nil
}

// MockAuditRepository records appended audit records for assertions.
type MockAuditRepository struct {
	mu        sync.Mutex
	Records   []domain.AuditRecord
	AppendErr error
	DeleteErr error
	Deleted   int64
}

func (m *MockAuditRepository) Append(ctx context.Context, record domain.AuditRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.AppendErr != nil {
		return m.AppendErr
	}
	m.Records = append(m.Records, record)
	return nil
}

func (m *MockAuditRepository) DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.DeleteErr != nil {
		return 0, m.DeleteErr
	}
	kept := m.Records[:0]
	var deleted int64
	for _, r := range m.Records {
		if r.Timestamp.Before(cutoff) {
			deleted++
			continue
		}
		kept = append(kept, r)
	}
	m.Records = kept
	m.Deleted += deleted
	return deleted, nil
}

// Appended returns a copy of the recorded audit records.
func (m *MockAuditRepository) Appended() []domain.AuditRecord {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]domain.AuditRecord, len(m.Records))
	copy(out, m.Records)
	return out
}

// MockTokenCache is an in-memory implementation of domain.TokenCache.
type MockTokenCache struct {
	mu     sync.Mutex
	Tokens map[string]*domain.IssuedToken
	GetErr error
	SetErr error
}

func (m *MockTokenCache) Get(ctx context.Context, tenantID, audience string) (*domain.IssuedToken, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.GetErr != nil {
		return nil, m.GetErr
	}
	token, ok := m.Tokens[key(tenantID, audience)]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return token, nil
}

func (m *MockTokenCache) Set(ctx context.Context, tenantID, audience string, token *domain.IssuedToken) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.SetErr != nil {
		return m.SetErr
	}
	if m.Tokens == nil {
		m.Tokens = make(map[string]*domain.IssuedToken)
	}
	m.Tokens[key(tenantID, audience)] = token
	return nil
}

func (m *MockTokenCache) Delete(ctx context.Context, tenantID, audience string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.Tokens, key(tenantID, audience))
	return nil
}

// MockCampaignQueue records published campaign launches.
type MockCampaignQueue struct {
	mu         sync.Mutex
	Launches   []domain.CampaignLaunch
	PublishErr error
}

func (m *MockCampaignQueue) PublishLaunch(ctx context.Context, launch domain.CampaignLaunch) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.PublishErr != nil {
		return m.PublishErr
	}
	m.Launches = append(m.Launches, launch)
	return nil
}

// Published returns a copy of the recorded launches.
func (m *MockCampaignQueue) Published() []domain.CampaignLaunch {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]domain.CampaignLaunch, len(m.Launches))
	copy(out, m.Launches)
	return out
}
