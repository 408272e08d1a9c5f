// Package event publishes the engine's domain events to Kafka.
package event

import (
	"context"
	"fmt"

	"github.com/offerhub/offerhub/internal/domain"
	"github.com/offerhub/offerhub/internal/sync"
	"github.com/offerhub/offerhub/pkg/kafka"
)

// Event types emitted by the engine.
const (
	TypeCampaignSynced = "campaign.synced"
	TypeSyncRequested  = "campaign.sync.requested"
	TypeVoucherClaimed = "voucher.claimed"
)

// Topics the engine publishes to. TopicSyncRequests is also consumed by the
// worker, which runs the requested sync pass asynchronously.
const (
	TopicCampaignEvents = "campaign-events"
	TopicSyncRequests   = "campaign-sync-requests"
	TopicVoucherEvents  = "voucher-events"
)

const source = "offerhub"

// Producer is the subset of the Kafka producer the publisher needs.
type Producer interface {
	Publish(ctx context.Context, topic string, event *kafka.Event) error
}

// Publisher emits domain events using the standard event envelope.
type Publisher struct {
	producer Producer
}

// NewPublisher creates an event publisher.
func NewPublisher(producer Producer) *Publisher {
	return &Publisher{producer: producer}
}

// Name implements sync.Hook.
func (p *Publisher) Name() string { return "event-publisher" }

// AfterSync implements sync.Hook: it publishes a campaign.synced event
// carrying the sync result after every committed pass.
func (p *Publisher) AfterSync(ctx context.Context, campaign *domain.Campaign, result *sync.Result) error {
	evt, err := kafka.NewEvent(TypeCampaignSynced, campaign.ID, "campaign", source, result)
	if err != nil {
		return fmt.Errorf("build %s event: %w", TypeCampaignSynced, err)
	}
	return p.producer.Publish(ctx, TopicCampaignEvents, evt)
}

// RequestSync enqueues an asynchronous sync pass for the campaign.
func (p *Publisher) RequestSync(ctx context.Context, campaignID string) error {
	evt, err := kafka.NewEvent(TypeSyncRequested, campaignID, "campaign", source, map[string]string{"campaign_id": campaignID})
	if err != nil {
		return fmt.Errorf("build %s event: %w", TypeSyncRequested, err)
	}
	return p.producer.Publish(ctx, TopicSyncRequests, evt)
}

// VoucherClaimed publishes a voucher.claimed event.
func (p *Publisher) VoucherClaimed(ctx context.Context, voucher *domain.Voucher) error {
	evt, err := kafka.NewEvent(TypeVoucherClaimed, voucher.ID, "voucher", source, voucher)
	if err != nil {
		return fmt.Errorf("build %s event: %w", TypeVoucherClaimed, err)
	}
	return p.producer.Publish(ctx, TopicVoucherEvents, evt)
}
