package sync

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/offerhub/offerhub/internal/codegen"
	"github.com/offerhub/offerhub/internal/domain"
	"github.com/offerhub/offerhub/internal/repository"
)

// defaultBatchSize bounds one voucher insert statement.
const defaultBatchSize = 500

// maxCodeRetries bounds the collision-retry loop per batch. The code space is
// large enough that hitting this means the generator is broken.
const maxCodeRetries = 5

// PoolManager adjusts an offer's voucher pool to a target unclaimed count.
// It owns code generation and the rule that claimed vouchers are untouchable.
type PoolManager struct {
	codes     *codegen.Generator
	logger    *slog.Logger
	batchSize int
}

// NewPoolManager creates a pool manager with the default batch size.
func NewPoolManager(codes *codegen.Generator, logger *slog.Logger) *PoolManager {
	return &PoolManager{
		codes:     codes,
		logger:    logger,
		batchSize: defaultBatchSize,
	}
}

// PoolAdjustment reports what EnsureCount actually did.
type PoolAdjustment struct {
	Created      int
	Deleted      int
	CapacitySkip bool
}

// EnsureCount grows or shrinks the offer's voucher pool toward targetQuantity,
// then writes the post-adjustment unclaimed count onto the offer and the
// post-adjustment total onto the schedule so future runs see true inventory.
//
// Growth is capped by the campaign's agreement quantity when set; a cap that
// leaves zero room is a logged skip, not an error. Shrinking deletes only
// unclaimed vouchers, oldest first, and stops when the unclaimed pool runs
// out.
func (m *PoolManager) EnsureCount(ctx context.Context, store repository.Store, campaign *domain.Campaign, offer *domain.Offer, schedule *domain.Schedule, targetQuantity int) (PoolAdjustment, error) {
	var adj PoolAdjustment

	counts, err := store.Vouchers().CountsByOffer(ctx, offer.ID)
	if err != nil {
		return adj, fmt.Errorf("count vouchers: %w", err)
	}

	switch {
	case targetQuantity > counts.Total:
		deficit := targetQuantity - counts.Total

		room, limited, err := m.campaignRoom(ctx, store, campaign, deficit)
		if err != nil {
			return adj, err
		}
		if room == 0 {
			adj.CapacitySkip = true
			m.logger.Info("voucher allocation skipped, agreement quantity reached",
				slog.String("campaign_id", campaign.ID),
				slog.String("offer_id", offer.ID),
				slog.Int("requested", deficit),
			)
			break
		}
		if limited {
			m.logger.Info("voucher allocation capped by agreement quantity",
				slog.String("campaign_id", campaign.ID),
				slog.String("offer_id", offer.ID),
				slog.Int("requested", deficit),
				slog.Int("granted", room),
			)
			adj.CapacitySkip = true
		}

		created, err := m.createVouchers(ctx, store, campaign.ID, offer.ID, room)
		if err != nil {
			return adj, err
		}
		adj.Created = created

	case targetQuantity < counts.Total:
		deficit := counts.Total - targetQuantity
		deleted, err := store.Vouchers().DeleteUnclaimed(ctx, offer.ID, deficit)
		if err != nil {
			return adj, fmt.Errorf("delete unclaimed vouchers: %w", err)
		}
		adj.Deleted = deleted
		if deleted < deficit {
			m.logger.Info("voucher reduction limited by claimed inventory",
				slog.String("offer_id", offer.ID),
				slog.Int("requested", deficit),
				slog.Int("deleted", deleted),
			)
		}
	}

	counts, err = store.Vouchers().CountsByOffer(ctx, offer.ID)
	if err != nil {
		return adj, fmt.Errorf("recount vouchers: %w", err)
	}

	if err := store.Offers().UpdateQuantity(ctx, offer.ID, counts.Unclaimed); err != nil {
		return adj, fmt.Errorf("update offer quantity: %w", err)
	}
	offer.Quantity = counts.Unclaimed

	if err := store.Schedules().UpdateQuantity(ctx, schedule.ID, counts.Total); err != nil {
		return adj, fmt.Errorf("update schedule quantity: %w", err)
	}
	schedule.Quantity = counts.Total

	return adj, nil
}

// campaignRoom caps wanted by the campaign's agreement quantity. The second
// return reports whether the cap actually reduced the grant.
func (m *PoolManager) campaignRoom(ctx context.Context, store repository.Store, campaign *domain.Campaign, wanted int) (int, bool, error) {
	if campaign.AgreementQuantity == nil {
		return wanted, false, nil
	}

	total, err := store.Vouchers().CountByCampaign(ctx, campaign.ID)
	if err != nil {
		return 0, false, fmt.Errorf("count campaign vouchers: %w", err)
	}

	room := *campaign.AgreementQuantity - total
	if room < 0 {
		room = 0
	}
	if room >= wanted {
		return wanted, false, nil
	}
	return room, true, nil
}

// createVouchers inserts count vouchers in batches, retrying code collisions
// within each batch.
func (m *PoolManager) createVouchers(ctx context.Context, store repository.Store, campaignID, offerID string, count int) (int, error) {
	created := 0
	now := time.Now().UTC()

	for created < count {
		size := count - created
		if size > m.batchSize {
			size = m.batchSize
		}

		codes, err := m.uniqueCodes(ctx, store, size)
		if err != nil {
			return created, err
		}

		batch := make([]domain.Voucher, size)
		for i, code := range codes {
			batch[i] = domain.Voucher{
				ID:         uuid.New().String(),
				OfferID:    offerID,
				CampaignID: campaignID,
				Code:       code,
				CreatedAt:  now,
			}
		}

		if err := store.Vouchers().CreateBatch(ctx, batch); err != nil {
			return created, fmt.Errorf("insert voucher batch: %w", err)
		}
		created += size
	}

	return created, nil
}

// uniqueCodes generates count codes not yet present in the voucher table,
// regenerating any that collide.
func (m *PoolManager) uniqueCodes(ctx context.Context, store repository.Store, count int) ([]string, error) {
	codes := make([]string, 0, count)
	seen := make(map[string]struct{}, count)

	for attempt := 0; attempt < maxCodeRetries; attempt++ {
		for len(codes) < count {
			code, err := m.codes.Generate()
			if err != nil {
				return nil, fmt.Errorf("generate voucher code: %w", err)
			}
			if _, dup := seen[code]; dup {
				continue
			}
			seen[code] = struct{}{}
			codes = append(codes, code)
		}

		existing, err := store.Vouchers().ExistingCodes(ctx, codes)
		if err != nil {
			return nil, fmt.Errorf("check voucher codes: %w", err)
		}
		if len(existing) == 0 {
			return codes, nil
		}

		kept := codes[:0]
		for _, code := range codes {
			if _, collided := existing[code]; !collided {
				kept = append(kept, code)
			}
		}
		codes = kept
	}

	return nil, fmt.Errorf("could not generate %d unique voucher codes after %d attempts", count, maxCodeRetries)
}
