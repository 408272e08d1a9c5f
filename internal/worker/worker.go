// Package worker runs the asynchronous side of the sync engine: a Kafka
// consumer that executes queued sync requests, and a cron job that resyncs
// recently edited campaigns so missed or failed passes eventually converge.
package worker

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/offerhub/offerhub/internal/event"
	"github.com/offerhub/offerhub/internal/repository"
	"github.com/offerhub/offerhub/internal/sync"
	"github.com/offerhub/offerhub/pkg/kafka"
)

// Synchronizer is the part of the sync engine the worker drives.
type Synchronizer interface {
	ProcessCampaign(ctx context.Context, campaignID string) (*sync.Result, error)
}

// Config holds worker configuration.
type Config struct {
	Brokers []string
	GroupID string

	// ResyncSchedule is a cron spec (robfig/cron syntax, @every accepted).
	ResyncSchedule string

	// ResyncLookback bounds how far back the periodic resync looks for
	// edited campaigns.
	ResyncLookback time.Duration
}

// Worker consumes sync requests and periodically resyncs edited campaigns.
type Worker struct {
	engine    Synchronizer
	campaigns repository.CampaignRepository
	consumer  *kafka.Consumer
	cron      *cron.Cron
	lookback  time.Duration
	schedule  string
	logger    *slog.Logger
}

// New creates a worker. idempotency deduplicates redelivered sync requests.
func New(cfg Config, engine Synchronizer, campaigns repository.CampaignRepository, idempotency kafka.IdempotencyStore, logger *slog.Logger) *Worker {
	w := &Worker{
		engine:    engine,
		campaigns: campaigns,
		cron:      cron.New(),
		lookback:  cfg.ResyncLookback,
		schedule:  cfg.ResyncSchedule,
		logger:    logger,
	}

	handler := kafka.IdempotentHandler(idempotency, w.handleSyncRequest, logger)
	w.consumer = kafka.NewConsumer(kafka.ConsumerConfig{
		Brokers: cfg.Brokers,
		GroupID: cfg.GroupID,
		Topic:   event.TopicSyncRequests,
	}, handler, logger)

	return w
}

// Run starts the consumer and the resync cron, blocking until the context is
// canceled.
func (w *Worker) Run(ctx context.Context) error {
	if _, err := w.cron.AddFunc(w.schedule, func() { w.resync(ctx) }); err != nil {
		return fmt.Errorf("register resync schedule %q: %w", w.schedule, err)
	}
	w.cron.Start()
	defer func() { <-w.cron.Stop().Done() }()

	w.logger.Info("worker started",
		slog.String("topic", event.TopicSyncRequests),
		slog.String("resync_schedule", w.schedule),
	)

	err := w.consumer.Start(ctx)
	if closeErr := w.consumer.Close(); closeErr != nil {
		w.logger.Warn("consumer close failed", slog.String("error", closeErr.Error()))
	}
	return err
}

// handleSyncRequest runs one queued sync pass. Partial results commit; only
// pipeline-level failures return an error and are retried by the consumer.
func (w *Worker) handleSyncRequest(ctx context.Context, evt *kafka.Event) error {
	if evt.EventType != event.TypeSyncRequested {
		w.logger.Debug("ignoring event", slog.String("event_type", evt.EventType))
		return nil
	}

	campaignID := evt.AggregateID
	result, err := w.engine.ProcessCampaign(ctx, campaignID)
	if err != nil {
		return fmt.Errorf("process campaign %s: %w", campaignID, err)
	}

	if !result.Success() {
		w.logger.Warn("queued sync completed with warnings",
			slog.String("campaign_id", campaignID),
			slog.Int("schedule_errors", len(result.Errors)),
		)
	}
	return nil
}

// resync re-runs the pipeline for campaigns edited within the lookback
// window. The pipeline is idempotent, so syncing an already-converged
// campaign is a cheap no-op.
func (w *Worker) resync(ctx context.Context) {
	since := time.Now().UTC().Add(-w.lookback)
	campaigns, err := w.campaigns.ListUpdatedSince(ctx, since)
	if err != nil {
		w.logger.Error("resync: list campaigns failed", slog.String("error", err.Error()))
		return
	}

	w.logger.Info("periodic resync started", slog.Int("campaigns", len(campaigns)))
	for _, campaign := range campaigns {
		if ctx.Err() != nil {
			return
		}
		if _, err := w.engine.ProcessCampaign(ctx, campaign.ID); err != nil {
			w.logger.Error("resync: campaign sync failed",
				slog.String("campaign_id", campaign.ID),
				slog.String("error", err.Error()),
			)
		}
	}
}
