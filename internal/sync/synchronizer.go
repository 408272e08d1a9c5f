// Package sync implements the campaign-to-offer projection pipeline: one
// transactional pass per campaign that sweeps orphaned offers, reconciles
// each selling window into an offer, and sizes every offer's voucher pool.
package sync

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/offerhub/offerhub/internal/domain"
	"github.com/offerhub/offerhub/internal/repository"
)

// Hook runs after a sync transaction commits. Hook failures are logged as
// warnings and never surfaced to the caller: they affect secondary metadata
// freshness, not data integrity.
type Hook interface {
	Name() string
	AfterSync(ctx context.Context, campaign *domain.Campaign, result *Result) error
}

// Synchronizer is the engine's single public entry point.
type Synchronizer struct {
	store      repository.Store
	sweeper    *Sweeper
	reconciler *Reconciler
	hooks      []Hook
	logger     *slog.Logger
	now        func() time.Time
}

// NewSynchronizer wires the sync pipeline over a store.
func NewSynchronizer(store repository.Store, sweeper *Sweeper, reconciler *Reconciler, hooks []Hook, logger *slog.Logger) *Synchronizer {
	return &Synchronizer{
		store:      store,
		sweeper:    sweeper,
		reconciler: reconciler,
		hooks:      hooks,
		logger:     logger,
		now:        func() time.Time { return time.Now().UTC() },
	}
}

// WithClock overrides the pipeline's clock. Tests use it to pin "now".
func (s *Synchronizer) WithClock(now func() time.Time) *Synchronizer {
	s.now = now
	return s
}

// ProcessCampaign runs one full sync pass for the campaign inside a single
// transaction, holding a row lock on the campaign so concurrent passes for
// the same campaign serialize instead of racing.
//
// Per-schedule failures are recorded in the result and do not roll back the
// transaction; only pipeline-level failures (campaign missing, storage
// errors outside the schedule loop) abort with zero side effects.
func (s *Synchronizer) ProcessCampaign(ctx context.Context, campaignID string) (*Result, error) {
	start := s.now()
	result := &Result{CampaignID: campaignID}
	var campaign *domain.Campaign

	err := s.store.WithinTx(ctx, func(tx repository.Store) error {
		var err error
		campaign, err = tx.Campaigns().LockForSync(ctx, campaignID)
		if err != nil {
			return fmt.Errorf("lock campaign: %w", err)
		}

		// Campaign copy lands on every offer, archived ones included, so
		// already-sold offers stay visually consistent with the latest edit.
		if _, err := tx.Offers().RefreshContent(ctx, campaign.ID, domain.ContentFromCampaign(campaign)); err != nil {
			return fmt.Errorf("refresh offer content: %w", err)
		}

		schedules, err := tx.Schedules().ListByCampaign(ctx, campaign.ID)
		if err != nil {
			return fmt.Errorf("list schedules: %w", err)
		}

		if err := s.sweeper.ArchiveOrphans(ctx, tx, campaign, schedules, result); err != nil {
			return fmt.Errorf("sweep orphaned offers: %w", err)
		}

		s.reconciler.Reconcile(ctx, tx, campaign, schedules, s.now(), result)
		return nil
	})

	syncDuration.Observe(s.now().Sub(start).Seconds())
	if err != nil {
		syncsTotal.WithLabelValues("failed").Inc()
		return result, err
	}

	outcome := "success"
	if !result.Success() {
		outcome = "partial"
	}
	syncsTotal.WithLabelValues(outcome).Inc()

	// Work counters move only after the transaction commits, so a rolled-back
	// pass leaves them untouched.
	offersArchivedTotal.Add(float64(result.OffersArchived))
	vouchersCreatedTotal.Add(float64(result.VouchersCreated))
	vouchersDeletedTotal.Add(float64(result.VouchersDeleted))
	capacitySkipsTotal.Add(float64(result.CapacitySkips))

	s.logger.Info("campaign synced",
		slog.String("campaign_id", campaignID),
		slog.Int("offers_created", result.OffersCreated),
		slog.Int("offers_updated", result.OffersUpdated),
		slog.Int("offers_archived", result.OffersArchived),
		slog.Int("vouchers_created", result.VouchersCreated),
		slog.Int("vouchers_deleted", result.VouchersDeleted),
		slog.Int("schedule_errors", len(result.Errors)),
	)

	s.runHooks(ctx, campaign, result)
	return result, nil
}

// runHooks runs the post-commit followups best-effort.
func (s *Synchronizer) runHooks(ctx context.Context, campaign *domain.Campaign, result *Result) {
	for _, hook := range s.hooks {
		if err := hook.AfterSync(ctx, campaign, result); err != nil {
			s.logger.Warn("post-sync hook failed",
				slog.String("hook", hook.Name()),
				slog.String("campaign_id", campaign.ID),
				slog.String("error", err.Error()),
			)
		}
	}
}
