package domain

import (
	"context"
	"time"
)

// CampaignLaunch is the event published when a tenant launches a call
// campaign. The dialer workers downstream own everything after this point.
type CampaignLaunch struct {
	CampaignID  string    `json:"campaign_id"`
	TenantID    string    `json:"tenant_id"`
	Name        string    `json:"name"`
	AssistantID string    `json:"assistant_id,omitempty"`
	ContactIDs  []string  `json:"contact_ids,omitempty"`
	LaunchedAt  time.Time `json:"launched_at"`
}

// CampaignQueue publishes campaign launches to the message queue.
type CampaignQueue interface {
	PublishLaunch(ctx context.Context, launch CampaignLaunch) error
}
