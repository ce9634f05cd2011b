package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/segmentio/kafka-go"

	"github.com/voxhive/backoffice/internal/domain"
)

// CampaignPublisher implements domain.CampaignQueue on Kafka. Launch events
// are keyed by tenant so one tenant's campaigns stay ordered on a partition.
type CampaignPublisher struct {
	writer *kafka.Writer
	logger *slog.Logger
}

// NewCampaignPublisher creates a Kafka-backed campaign launch publisher.
func NewCampaignPublisher(brokers []string, topic string, logger *slog.Logger) *CampaignPublisher {
	writer := &kafka.Writer{
		Addr:         kafka.TCP(brokers...),
		Topic:        topic,
		Balancer:     &kafka.Hash{},
		RequiredAcks: kafka.RequireOne,
		WriteTimeout: 10 * time.Second,
	}
	return &CampaignPublisher{
		writer: writer,
		logger: logger.With("component", "campaign_publisher"),
	}
}

// PublishLaunch publishes a campaign launch event.
func (p *CampaignPublisher) PublishLaunch(ctx context.Context, launch domain.CampaignLaunch) error {
	payload, err := json.Marshal(launch)
	if err != nil {
		return fmt.Errorf("failed to marshal campaign launch: %w", err)
	}

	msg := kafka.Message{
		Key:   []byte(launch.TenantID),
		Value: payload,
	}
	if err := p.writer.WriteMessages(ctx, msg); err != nil {
		return fmt.Errorf("failed to publish campaign launch: %w", err)
	}

	p.logger.Info("published campaign launch", "campaign_id", launch.CampaignID, "tenant_id", launch.TenantID)
	return nil
}

// Close flushes and closes the underlying writer.
func (p *CampaignPublisher) Close() error {
	return p.writer.Close()
}
