// Package repository defines the storage interfaces the sync engine and
// services operate against. PostgreSQL implementations live in the postgres
// subpackage; an in-memory implementation for tests lives in memory.
package repository

import (
	"context"
	"time"

	"github.com/offerhub/offerhub/internal/domain"
)

// CampaignRepository provides access to campaigns.
type CampaignRepository interface {
	Create(ctx context.Context, c *domain.Campaign) error
	Update(ctx context.Context, c *domain.Campaign) error
	GetByID(ctx context.Context, id string) (*domain.Campaign, error)

	// LockForSync loads the campaign and takes a row lock held for the rest
	// of the enclosing transaction, serializing concurrent sync runs for the
	// same campaign.
	LockForSync(ctx context.Context, id string) (*domain.Campaign, error)

	// ListUpdatedSince returns campaigns edited at or after the given time,
	// oldest first. Used by the worker's periodic resync.
	ListUpdatedSince(ctx context.Context, since time.Time) ([]domain.Campaign, error)
}

// ScheduleRepository provides access to a campaign's selling windows.
type ScheduleRepository interface {
	// ListByCampaign returns the campaign's schedules ordered by start time.
	ListByCampaign(ctx context.Context, campaignID string) ([]domain.Schedule, error)

	// Replace swaps the campaign's schedule set for the given one: schedules
	// with a known ID are updated, new ones inserted, missing ones deleted.
	Replace(ctx context.Context, campaignID string, schedules []domain.Schedule) error

	// UpdateQuantity writes the reconciled total voucher count back onto the
	// schedule so future syncs see true inventory.
	UpdateQuantity(ctx context.Context, id string, quantity int) error
}

// OfferRepository provides access to offers.
type OfferRepository interface {
	Create(ctx context.Context, o *domain.Offer) error
	Update(ctx context.Context, o *domain.Offer) error
	GetByID(ctx context.Context, id string) (*domain.Offer, error)

	// GetLiveByScheduleID returns the non-archived offer backing a schedule.
	GetLiveByScheduleID(ctx context.Context, scheduleID string) (*domain.Offer, error)

	// GetByScheduleID returns the offer backing a schedule regardless of
	// status, preferring a live offer over archived ones.
	GetByScheduleID(ctx context.Context, scheduleID string) (*domain.Offer, error)

	// ListByCampaign returns all of a campaign's offers, archived included.
	ListByCampaign(ctx context.Context, campaignID string) ([]domain.Offer, error)

	// RefreshContent copies the campaign's current display/pricing fields
	// onto all of its offers without touching status, window, or inventory
	// columns. Returns the number of offers touched.
	RefreshContent(ctx context.Context, campaignID string, content domain.OfferContent) (int64, error)

	Archive(ctx context.Context, id string) error
	UpdateQuantity(ctx context.Context, id string, quantity int) error
}

// VoucherRepository provides access to voucher pools.
type VoucherRepository interface {
	// CountsByOffer returns total and unclaimed voucher counts for an offer.
	CountsByOffer(ctx context.Context, offerID string) (domain.VoucherCounts, error)

	// CountByCampaign returns the campaign-wide voucher count, claimed and
	// unclaimed alike, used to enforce the agreement-quantity ceiling.
	CountByCampaign(ctx context.Context, campaignID string) (int, error)

	CreateBatch(ctx context.Context, vouchers []domain.Voucher) error

	// DeleteUnclaimed removes up to limit unclaimed vouchers from the offer,
	// oldest-created-first, and returns the number actually deleted.
	DeleteUnclaimed(ctx context.Context, offerID string, limit int) (int, error)

	// ExistingCodes returns the subset of the given codes already present in
	// the voucher table, for collision retry during generation.
	ExistingCodes(ctx context.Context, codes []string) (map[string]struct{}, error)

	HasClaimed(ctx context.Context, offerID string) (bool, error)

	// LockOldestUnclaimed locks and returns the oldest unclaimed voucher of
	// an offer, skipping rows locked by concurrent claims.
	LockOldestUnclaimed(ctx context.Context, offerID string) (*domain.Voucher, error)

	MarkClaimed(ctx context.Context, voucherID, ownerID string, claimedAt, expiresAt time.Time) error

	ListByOwner(ctx context.Context, ownerID string) ([]domain.Voucher, error)
}

// AssetRepository provides access to campaign media and offer attachments.
type AssetRepository interface {
	ListCampaignAssets(ctx context.Context, campaignID string) ([]domain.Asset, error)
	ListOfferAssetIDs(ctx context.Context, offerID string) ([]string, error)
	AttachToOffer(ctx context.Context, offerID string, asset domain.Asset) error
}

// TagRepository provides access to offer category/store tags.
type TagRepository interface {
	// ReplaceOfferTags swaps the offer's tag set of the given kind for the
	// provided IDs (detach-then-attach, not additive).
	ReplaceOfferTags(ctx context.Context, offerID, kind string, tagIDs []string) error
	ListOfferTagIDs(ctx context.Context, offerID, kind string) ([]string, error)
}

// Store bundles the repositories and owns transaction demarcation.
type Store interface {
	Campaigns() CampaignRepository
	Schedules() ScheduleRepository
	Offers() OfferRepository
	Vouchers() VoucherRepository
	Assets() AssetRepository
	Tags() TagRepository

	// WithinTx runs fn against a transaction-scoped Store and commits when
	// fn returns nil. Calling WithinTx on an already transactional Store
	// runs fn in the same transaction.
	WithinTx(ctx context.Context, fn func(Store) error) error
}
