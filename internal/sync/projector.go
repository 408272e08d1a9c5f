package sync

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/offerhub/offerhub/internal/domain"
	"github.com/offerhub/offerhub/internal/repository"
	apperrors "github.com/offerhub/offerhub/pkg/errors"
)

// Projector maintains the one live offer backing each schedule.
type Projector struct {
	pool   *PoolManager
	logger *slog.Logger
}

// NewProjector creates an offer projector.
func NewProjector(pool *PoolManager, logger *slog.Logger) *Projector {
	return &Projector{pool: pool, logger: logger}
}

// UpsertOfferForSchedule creates or refreshes the offer for one schedule and
// adjusts its voucher pool. position is the schedule's 1-based index in the
// campaign's start-time ordering, used for the deterministic SKU suffix.
//
// An elapsed window is skipped entirely, except that an archived schedule
// re-asserts the archived status on its offer so a timing edit cannot
// resurrect it. An offer that is already archived stays archived and keeps
// its inventory untouched.
func (p *Projector) UpsertOfferForSchedule(ctx context.Context, store repository.Store, campaign *domain.Campaign, schedule *domain.Schedule, position int, now time.Time, result *Result) error {
	if schedule.Elapsed(now) {
		if schedule.Status == domain.ScheduleStatusArchived {
			return p.reassertArchived(ctx, store, schedule, result)
		}
		p.logger.Debug("skipping elapsed schedule",
			slog.String("schedule_id", schedule.ID),
			slog.Time("ends_at", schedule.EndsAt),
		)
		return nil
	}

	offer, err := store.Offers().GetByScheduleID(ctx, schedule.ID)
	switch {
	case err == nil:
		if err := p.refresh(ctx, store, campaign, schedule, offer, now); err != nil {
			return err
		}
		result.OffersUpdated++
	case errors.Is(err, apperrors.ErrNotFound):
		offer, err = p.create(ctx, store, campaign, schedule, position, now)
		if err != nil {
			return err
		}
		result.OffersCreated++
	default:
		return fmt.Errorf("look up offer for schedule: %w", err)
	}

	if offer.Archived() {
		return nil
	}

	adj, err := p.pool.EnsureCount(ctx, store, campaign, offer, schedule, schedule.Quantity)
	result.VouchersCreated += adj.Created
	result.VouchersDeleted += adj.Deleted
	if adj.CapacitySkip {
		result.CapacitySkips++
	}
	return err
}

func (p *Projector) create(ctx context.Context, store repository.Store, campaign *domain.Campaign, schedule *domain.Schedule, position int, now time.Time) (*domain.Offer, error) {
	offer := &domain.Offer{
		ID:             uuid.New().String(),
		CampaignID:     campaign.ID,
		ScheduleID:     schedule.ID,
		SKU:            domain.OfferSKU(campaign.SKU, position),
		OfferContent:   domain.ContentFromCampaign(campaign),
		AvailableAt:    schedule.StartsAt,
		AvailableUntil: schedule.EndsAt,
		PublishAt:      schedule.PublishAt,
		ExpiryDays:     schedule.VoucherExpiryDays(campaign),
		Quantity:       0,
		Status:         domain.OfferStatusForSchedule(schedule, now),
		CreatedAt:      now,
		UpdatedAt:      now,
	}

	if err := store.Offers().Create(ctx, offer); err != nil {
		return nil, fmt.Errorf("create offer: %w", err)
	}

	p.logger.Info("offer created",
		slog.String("offer_id", offer.ID),
		slog.String("schedule_id", schedule.ID),
		slog.String("sku", offer.SKU),
		slog.String("status", offer.Status),
	)
	return offer, nil
}

func (p *Projector) refresh(ctx context.Context, store repository.Store, campaign *domain.Campaign, schedule *domain.Schedule, offer *domain.Offer, now time.Time) error {
	offer.AvailableAt = schedule.StartsAt
	offer.AvailableUntil = schedule.EndsAt
	offer.PublishAt = schedule.PublishAt
	offer.ExpiryDays = schedule.VoucherExpiryDays(campaign)
	// Archived stays archived; sync never silently re-publishes.
	if !offer.Archived() {
		offer.Status = domain.OfferStatusForSchedule(schedule, now)
	}
	offer.UpdatedAt = now

	if err := store.Offers().Update(ctx, offer); err != nil {
		return fmt.Errorf("update offer: %w", err)
	}
	return nil
}

func (p *Projector) reassertArchived(ctx context.Context, store repository.Store, schedule *domain.Schedule, result *Result) error {
	offer, err := store.Offers().GetLiveByScheduleID(ctx, schedule.ID)
	if errors.Is(err, apperrors.ErrNotFound) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("look up offer for archived schedule: %w", err)
	}

	if err := store.Offers().Archive(ctx, offer.ID); err != nil {
		return fmt.Errorf("archive offer: %w", err)
	}
	result.OffersArchived++
	p.logger.Info("archived status re-asserted on offer",
		slog.String("offer_id", offer.ID),
		slog.String("schedule_id", schedule.ID),
	)
	return nil
}
