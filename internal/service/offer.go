package service

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/offerhub/offerhub/internal/domain"
	"github.com/offerhub/offerhub/internal/repository"
	apperrors "github.com/offerhub/offerhub/pkg/errors"
)

// VoucherEventPublisher emits voucher lifecycle events after a claim commits.
type VoucherEventPublisher interface {
	VoucherClaimed(ctx context.Context, voucher *domain.Voucher) error
}

// OfferService implements offer reads and voucher claiming.
type OfferService struct {
	store  repository.Store
	events VoucherEventPublisher
	logger *slog.Logger
}

// NewOfferService creates an offer service. events may be nil when no broker
// is configured.
func NewOfferService(store repository.Store, events VoucherEventPublisher, logger *slog.Logger) *OfferService {
	return &OfferService{
		store:  store,
		events: events,
		logger: logger,
	}
}

// GetOffer returns an offer with its voucher counts.
func (s *OfferService) GetOffer(ctx context.Context, id string) (*domain.Offer, domain.VoucherCounts, error) {
	offer, err := s.store.Offers().GetByID(ctx, id)
	if err != nil {
		return nil, domain.VoucherCounts{}, err
	}
	counts, err := s.store.Vouchers().CountsByOffer(ctx, id)
	if err != nil {
		return nil, domain.VoucherCounts{}, err
	}
	return offer, counts, nil
}

// ListCampaignOffers returns a campaign's offers, archived included.
func (s *OfferService) ListCampaignOffers(ctx context.Context, campaignID string) ([]domain.Offer, error) {
	if _, err := s.store.Campaigns().GetByID(ctx, campaignID); err != nil {
		return nil, err
	}
	return s.store.Offers().ListByCampaign(ctx, campaignID)
}

// ClaimVoucher assigns the offer's oldest unclaimed voucher to the buyer.
// The claim runs in one transaction: lock a voucher, mark it claimed with an
// expiry derived from the offer, and recount the offer's quantity so the
// unclaimed-count invariant holds.
func (s *OfferService) ClaimVoucher(ctx context.Context, offerID, ownerID string) (*domain.Voucher, error) {
	var claimed *domain.Voucher
	now := time.Now().UTC()

	err := s.store.WithinTx(ctx, func(tx repository.Store) error {
		offer, err := tx.Offers().GetByID(ctx, offerID)
		if err != nil {
			return err
		}
		if offer.Status != domain.OfferStatusPublished {
			return apperrors.Conflict("offer is not open for claims")
		}

		voucher, err := tx.Vouchers().LockOldestUnclaimed(ctx, offerID)
		if err != nil {
			if errors.Is(err, apperrors.ErrNotFound) {
				return apperrors.Conflict("offer is sold out")
			}
			return err
		}

		expiresAt := now.AddDate(0, 0, offer.ExpiryDays)
		if err := tx.Vouchers().MarkClaimed(ctx, voucher.ID, ownerID, now, expiresAt); err != nil {
			return err
		}

		counts, err := tx.Vouchers().CountsByOffer(ctx, offerID)
		if err != nil {
			return err
		}
		if err := tx.Offers().UpdateQuantity(ctx, offerID, counts.Unclaimed); err != nil {
			return err
		}

		voucher.OwnerID = &ownerID
		voucher.ClaimedAt = &now
		voucher.ExpiresAt = &expiresAt
		claimed = voucher
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("voucher claimed",
		slog.String("voucher_id", claimed.ID),
		slog.String("offer_id", offerID),
		slog.String("owner_id", ownerID),
	)

	if s.events != nil {
		if err := s.events.VoucherClaimed(ctx, claimed); err != nil {
			s.logger.Warn("voucher claimed event not published",
				slog.String("voucher_id", claimed.ID),
				slog.String("error", err.Error()),
			)
		}
	}

	return claimed, nil
}

// ListOwnerVouchers returns the vouchers a buyer has claimed, newest first.
func (s *OfferService) ListOwnerVouchers(ctx context.Context, ownerID string) ([]domain.Voucher, error) {
	return s.store.Vouchers().ListByOwner(ctx, ownerID)
}
