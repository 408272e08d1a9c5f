package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/offerhub/offerhub/internal/domain"
	apperrors "github.com/offerhub/offerhub/pkg/errors"
	"github.com/offerhub/offerhub/pkg/database"
)

// VoucherRepository implements repository.VoucherRepository using PostgreSQL.
type VoucherRepository struct {
	db database.Querier
}

// CountsByOffer returns total and unclaimed voucher counts for an offer.
func (r *VoucherRepository) CountsByOffer(ctx context.Context, offerID string) (domain.VoucherCounts, error) {
	query := `
		SELECT COUNT(*), COUNT(*) FILTER (WHERE owner_id IS NULL)
		FROM vouchers
		WHERE offer_id = $1`

	var counts domain.VoucherCounts
	if err := r.db.QueryRow(ctx, query, offerID).Scan(&counts.Total, &counts.Unclaimed); err != nil {
		return domain.VoucherCounts{}, fmt.Errorf("count vouchers by offer: %w", err)
	}
	return counts, nil
}

// CountByCampaign returns the campaign-wide voucher count, claimed and unclaimed alike.
func (r *VoucherRepository) CountByCampaign(ctx context.Context, campaignID string) (int, error) {
	query := `SELECT COUNT(*) FROM vouchers WHERE campaign_id = $1`

	var count int
	if err := r.db.QueryRow(ctx, query, campaignID).Scan(&count); err != nil {
		return 0, fmt.Errorf("count vouchers by campaign: %w", err)
	}
	return count, nil
}

// CreateBatch inserts a batch of vouchers in a single multi-row statement.
func (r *VoucherRepository) CreateBatch(ctx context.Context, vouchers []domain.Voucher) error {
	if len(vouchers) == 0 {
		return nil
	}

	// Column-array insert keeps one statement per batch regardless of size.
	ids := make([]string, len(vouchers))
	offerIDs := make([]string, len(vouchers))
	campaignIDs := make([]string, len(vouchers))
	codes := make([]string, len(vouchers))
	createdAts := make([]time.Time, len(vouchers))
	for i, v := range vouchers {
		ids[i] = v.ID
		offerIDs[i] = v.OfferID
		campaignIDs[i] = v.CampaignID
		codes[i] = v.Code
		createdAts[i] = v.CreatedAt
	}

	query := `
		INSERT INTO vouchers (id, offer_id, campaign_id, code, created_at)
		SELECT * FROM unnest($1::uuid[], $2::uuid[], $3::uuid[], $4::text[], $5::timestamptz[])`

	_, err := r.db.Exec(ctx, query, ids, offerIDs, campaignIDs, codes, createdAts)
	if err != nil {
		if isUniqueViolation(err) {
			return apperrors.AlreadyExists("voucher", "code", "batch")
		}
		return fmt.Errorf("insert voucher batch: %w", err)
	}

	return nil
}

// DeleteUnclaimed removes up to limit unclaimed vouchers from the offer,
// oldest-created-first, and returns the number actually deleted. Claimed
// vouchers are never touched.
func (r *VoucherRepository) DeleteUnclaimed(ctx context.Context, offerID string, limit int) (int, error) {
	if limit <= 0 {
		return 0, nil
	}

	query := `
		DELETE FROM vouchers
		WHERE id IN (
			SELECT id FROM vouchers
			WHERE offer_id = $1 AND owner_id IS NULL
			ORDER BY created_at, id
			LIMIT $2
		)`

	ct, err := r.db.Exec(ctx, query, offerID, limit)
	if err != nil {
		return 0, fmt.Errorf("delete unclaimed vouchers: %w", err)
	}

	return int(ct.RowsAffected()), nil
}

// ExistingCodes returns the subset of the given codes already present in the
// voucher table.
func (r *VoucherRepository) ExistingCodes(ctx context.Context, codes []string) (map[string]struct{}, error) {
	if len(codes) == 0 {
		return map[string]struct{}{}, nil
	}

	query := `SELECT code FROM vouchers WHERE code = ANY($1)`

	rows, err := r.db.Query(ctx, query, codes)
	if err != nil {
		return nil, fmt.Errorf("check existing codes: %w", err)
	}
	defer rows.Close()

	existing := make(map[string]struct{})
	for rows.Next() {
		var code string
		if err := rows.Scan(&code); err != nil {
			return nil, fmt.Errorf("scan voucher code: %w", err)
		}
		existing[code] = struct{}{}
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate voucher codes: %w", err)
	}

	return existing, nil
}

// HasClaimed reports whether the offer has at least one claimed voucher.
func (r *VoucherRepository) HasClaimed(ctx context.Context, offerID string) (bool, error) {
	query := `SELECT EXISTS (SELECT 1 FROM vouchers WHERE offer_id = $1 AND owner_id IS NOT NULL)`

	var claimed bool
	if err := r.db.QueryRow(ctx, query, offerID).Scan(&claimed); err != nil {
		return false, fmt.Errorf("check claimed vouchers: %w", err)
	}
	return claimed, nil
}

// LockOldestUnclaimed locks and returns the oldest unclaimed voucher of an
// offer. SKIP LOCKED lets concurrent claims pick distinct rows instead of
// queueing on the same one.
func (r *VoucherRepository) LockOldestUnclaimed(ctx context.Context, offerID string) (*domain.Voucher, error) {
	query := `
		SELECT id, offer_id, campaign_id, code, owner_id, claimed_at, expires_at, created_at
		FROM vouchers
		WHERE offer_id = $1 AND owner_id IS NULL
		ORDER BY created_at, id
		FOR UPDATE SKIP LOCKED
		LIMIT 1`

	var v domain.Voucher
	err := r.db.QueryRow(ctx, query, offerID).Scan(
		&v.ID,
		&v.OfferID,
		&v.CampaignID,
		&v.Code,
		&v.OwnerID,
		&v.ClaimedAt,
		&v.ExpiresAt,
		&v.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.ErrNotFound
		}
		return nil, fmt.Errorf("lock unclaimed voucher: %w", err)
	}

	return &v, nil
}

// MarkClaimed assigns a voucher to a buyer. Only unclaimed vouchers can be
// claimed; claiming an already-claimed voucher is a conflict.
func (r *VoucherRepository) MarkClaimed(ctx context.Context, voucherID, ownerID string, claimedAt, expiresAt time.Time) error {
	query := `
		UPDATE vouchers
		SET owner_id = $1, claimed_at = $2, expires_at = $3
		WHERE id = $4 AND owner_id IS NULL`

	ct, err := r.db.Exec(ctx, query, ownerID, claimedAt, expiresAt, voucherID)
	if err != nil {
		return fmt.Errorf("mark voucher claimed: %w", err)
	}
	if ct.RowsAffected() == 0 {
		return apperrors.Conflict(fmt.Sprintf("voucher %s is already claimed", voucherID))
	}

	return nil
}

// ListByOwner returns the vouchers claimed by a buyer, newest claim first.
func (r *VoucherRepository) ListByOwner(ctx context.Context, ownerID string) ([]domain.Voucher, error) {
	query := `
		SELECT id, offer_id, campaign_id, code, owner_id, claimed_at, expires_at, created_at
		FROM vouchers
		WHERE owner_id = $1
		ORDER BY claimed_at DESC`

	rows, err := r.db.Query(ctx, query, ownerID)
	if err != nil {
		return nil, fmt.Errorf("list vouchers by owner: %w", err)
	}
	defer rows.Close()

	var vouchers []domain.Voucher
	for rows.Next() {
		var v domain.Voucher
		if err := rows.Scan(
			&v.ID,
			&v.OfferID,
			&v.CampaignID,
			&v.Code,
			&v.OwnerID,
			&v.ClaimedAt,
			&v.ExpiresAt,
			&v.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("scan voucher row: %w", err)
		}
		vouchers = append(vouchers, v)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate voucher rows: %w", err)
	}

	return vouchers, nil
}
