package sync

import (
	"context"
	"log/slog"
	"time"

	"github.com/offerhub/offerhub/internal/domain"
	"github.com/offerhub/offerhub/internal/repository"
)

// Reconciler walks a campaign's schedules in start-time order and projects
// each into its offer. A failing schedule is recorded and skipped; it will be
// retried whole on the next sync pass.
type Reconciler struct {
	projector *Projector
	logger    *slog.Logger
}

// NewReconciler creates a schedule reconciler.
func NewReconciler(projector *Projector, logger *slog.Logger) *Reconciler {
	return &Reconciler{projector: projector, logger: logger}
}

// Reconcile projects every schedule in the given start-time-ordered list.
func (r *Reconciler) Reconcile(ctx context.Context, store repository.Store, campaign *domain.Campaign, schedules []domain.Schedule, now time.Time, result *Result) {
	for i := range schedules {
		schedule := &schedules[i]
		if err := r.projector.UpsertOfferForSchedule(ctx, store, campaign, schedule, i+1, now, result); err != nil {
			result.addError(schedule.ID, err)
			r.logger.Error("schedule reconciliation failed",
				slog.String("campaign_id", campaign.ID),
				slog.String("schedule_id", schedule.ID),
				slog.String("error", err.Error()),
			)
		}
	}
}
