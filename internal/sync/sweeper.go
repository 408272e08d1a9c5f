package sync

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/offerhub/offerhub/internal/domain"
	"github.com/offerhub/offerhub/internal/repository"
)

// Sweeper archives offers whose schedule was removed from the campaign. It
// runs before reconciliation so it acts on the previous offer-to-schedule
// mapping, and it never archives an offer holding a claimed voucher.
type Sweeper struct {
	logger *slog.Logger
}

// NewSweeper creates an archival sweeper.
func NewSweeper(logger *slog.Logger) *Sweeper {
	return &Sweeper{logger: logger}
}

// ArchiveOrphans archives the campaign's live offers not backed by any of the
// given schedules, skipping offers with sold inventory.
func (s *Sweeper) ArchiveOrphans(ctx context.Context, store repository.Store, campaign *domain.Campaign, schedules []domain.Schedule, result *Result) error {
	live := make(map[string]struct{}, len(schedules))
	for _, sc := range schedules {
		live[sc.ID] = struct{}{}
	}

	offers, err := store.Offers().ListByCampaign(ctx, campaign.ID)
	if err != nil {
		return fmt.Errorf("list campaign offers: %w", err)
	}

	for _, offer := range offers {
		if offer.Archived() {
			continue
		}
		if _, ok := live[offer.ScheduleID]; ok {
			continue
		}

		claimed, err := store.Vouchers().HasClaimed(ctx, offer.ID)
		if err != nil {
			return fmt.Errorf("check claimed vouchers: %w", err)
		}
		if claimed {
			s.logger.Warn("cannot archive offer, has sold vouchers",
				slog.String("offer_id", offer.ID),
				slog.String("schedule_id", offer.ScheduleID),
			)
			continue
		}

		if err := store.Offers().Archive(ctx, offer.ID); err != nil {
			return fmt.Errorf("archive orphaned offer: %w", err)
		}
		result.OffersArchived++
		s.logger.Info("orphaned offer archived",
			slog.String("offer_id", offer.ID),
			slog.String("schedule_id", offer.ScheduleID),
		)
	}

	return nil
}
