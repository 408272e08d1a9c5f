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

const offerColumns = `id, campaign_id, schedule_id, sku, name, description, fine_print, policies,
	unit_price, discount_price, point_price, discount_point_price,
	available_at, available_until, publish_at, expiry_days, quantity, status,
	created_at, updated_at`

// OfferRepository implements repository.OfferRepository using PostgreSQL.
type OfferRepository struct {
	db database.Querier
}

// Create inserts a new offer. The partial unique index on schedule_id turns
// a concurrent duplicate projection into a constraint error instead of two
// live offers.
func (r *OfferRepository) Create(ctx context.Context, o *domain.Offer) error {
	query := `
		INSERT INTO offers (
			id, campaign_id, schedule_id, sku, name, description, fine_print, policies,
			unit_price, discount_price, point_price, discount_point_price,
			available_at, available_until, publish_at, expiry_days, quantity, status,
			created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19, $20)`

	_, err := r.db.Exec(ctx, query,
		o.ID,
		o.CampaignID,
		o.ScheduleID,
		o.SKU,
		o.Name,
		o.Description,
		o.FinePrint,
		o.Policies,
		o.UnitPrice,
		o.DiscountPrice,
		o.PointPrice,
		o.DiscountPointPrice,
		o.AvailableAt,
		o.AvailableUntil,
		o.PublishAt,
		o.ExpiryDays,
		o.Quantity,
		o.Status,
		o.CreatedAt,
		o.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return apperrors.AlreadyExists("offer", "schedule_id", o.ScheduleID)
		}
		return fmt.Errorf("insert offer: %w", err)
	}

	return nil
}

// Update modifies an existing offer.
func (r *OfferRepository) Update(ctx context.Context, o *domain.Offer) error {
	o.UpdatedAt = time.Now().UTC()

	query := `
		UPDATE offers
		SET sku = $1, name = $2, description = $3, fine_print = $4, policies = $5,
		    unit_price = $6, discount_price = $7, point_price = $8, discount_point_price = $9,
		    available_at = $10, available_until = $11, publish_at = $12, expiry_days = $13,
		    quantity = $14, status = $15, updated_at = $16
		WHERE id = $17`

	ct, err := r.db.Exec(ctx, query,
		o.SKU,
		o.Name,
		o.Description,
		o.FinePrint,
		o.Policies,
		o.UnitPrice,
		o.DiscountPrice,
		o.PointPrice,
		o.DiscountPointPrice,
		o.AvailableAt,
		o.AvailableUntil,
		o.PublishAt,
		o.ExpiryDays,
		o.Quantity,
		o.Status,
		o.UpdatedAt,
		o.ID,
	)
	if err != nil {
		return fmt.Errorf("update offer: %w", err)
	}
	if ct.RowsAffected() == 0 {
		return apperrors.NotFound("offer", o.ID)
	}

	return nil
}

// GetByID retrieves an offer by its ID.
func (r *OfferRepository) GetByID(ctx context.Context, id string) (*domain.Offer, error) {
	query := fmt.Sprintf(`
		SELECT %s
		FROM offers
		WHERE id = $1`, offerColumns)

	return r.scanOffer(ctx, query, id)
}

// GetLiveByScheduleID returns the non-archived offer backing a schedule.
func (r *OfferRepository) GetLiveByScheduleID(ctx context.Context, scheduleID string) (*domain.Offer, error) {
	query := fmt.Sprintf(`
		SELECT %s
		FROM offers
		WHERE schedule_id = $1 AND status <> 'archived'`, offerColumns)

	return r.scanOffer(ctx, query, scheduleID)
}

// GetByScheduleID returns the offer backing a schedule regardless of status.
// A live offer wins over archived ones; among archived offers the most
// recently updated wins.
func (r *OfferRepository) GetByScheduleID(ctx context.Context, scheduleID string) (*domain.Offer, error) {
	query := fmt.Sprintf(`
		SELECT %s
		FROM offers
		WHERE schedule_id = $1
		ORDER BY (status <> 'archived') DESC, updated_at DESC
		LIMIT 1`, offerColumns)

	return r.scanOffer(ctx, query, scheduleID)
}

// ListByCampaign returns all of a campaign's offers, archived included,
// ordered by window start.
func (r *OfferRepository) ListByCampaign(ctx context.Context, campaignID string) ([]domain.Offer, error) {
	query := fmt.Sprintf(`
		SELECT %s
		FROM offers
		WHERE campaign_id = $1
		ORDER BY available_at, id`, offerColumns)

	rows, err := r.db.Query(ctx, query, campaignID)
	if err != nil {
		return nil, fmt.Errorf("list offers: %w", err)
	}
	defer rows.Close()

	var offers []domain.Offer
	for rows.Next() {
		o, err := scanOfferRow(rows)
		if err != nil {
			return nil, err
		}
		offers = append(offers, *o)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate offer rows: %w", err)
	}

	return offers, nil
}

// RefreshContent copies the campaign's current display/pricing fields onto
// all of its offers, archived ones included, leaving status, window, and
// inventory columns untouched.
func (r *OfferRepository) RefreshContent(ctx context.Context, campaignID string, content domain.OfferContent) (int64, error) {
	query := `
		UPDATE offers
		SET name = $1, description = $2, fine_print = $3, policies = $4,
		    unit_price = $5, discount_price = $6, point_price = $7, discount_point_price = $8,
		    updated_at = NOW()
		WHERE campaign_id = $9`

	ct, err := r.db.Exec(ctx, query,
		content.Name,
		content.Description,
		content.FinePrint,
		content.Policies,
		content.UnitPrice,
		content.DiscountPrice,
		content.PointPrice,
		content.DiscountPointPrice,
		campaignID,
	)
	if err != nil {
		return 0, fmt.Errorf("refresh offer content: %w", err)
	}

	return ct.RowsAffected(), nil
}

// Archive soft-deletes an offer.
func (r *OfferRepository) Archive(ctx context.Context, id string) error {
	query := `
		UPDATE offers
		SET status = 'archived', updated_at = NOW()
		WHERE id = $1`

	ct, err := r.db.Exec(ctx, query, id)
	if err != nil {
		return fmt.Errorf("archive offer: %w", err)
	}
	if ct.RowsAffected() == 0 {
		return apperrors.NotFound("offer", id)
	}

	return nil
}

// UpdateQuantity sets the offer's stored unclaimed-voucher count.
func (r *OfferRepository) UpdateQuantity(ctx context.Context, id string, quantity int) error {
	query := `
		UPDATE offers
		SET quantity = $1, updated_at = NOW()
		WHERE id = $2`

	ct, err := r.db.Exec(ctx, query, quantity, id)
	if err != nil {
		return fmt.Errorf("update offer quantity: %w", err)
	}
	if ct.RowsAffected() == 0 {
		return apperrors.NotFound("offer", id)
	}

	return nil
}

func (r *OfferRepository) scanOffer(ctx context.Context, query string, args ...any) (*domain.Offer, error) {
	o, err := scanOfferRow(r.db.QueryRow(ctx, query, args...))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.ErrNotFound
		}
		return nil, err
	}
	return o, nil
}

func scanOfferRow(row pgx.Row) (*domain.Offer, error) {
	var o domain.Offer
	err := row.Scan(
		&o.ID,
		&o.CampaignID,
		&o.ScheduleID,
		&o.SKU,
		&o.Name,
		&o.Description,
		&o.FinePrint,
		&o.Policies,
		&o.UnitPrice,
		&o.DiscountPrice,
		&o.PointPrice,
		&o.DiscountPointPrice,
		&o.AvailableAt,
		&o.AvailableUntil,
		&o.PublishAt,
		&o.ExpiryDays,
		&o.Quantity,
		&o.Status,
		&o.CreatedAt,
		&o.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, pgx.ErrNoRows
		}
		return nil, fmt.Errorf("scan offer: %w", err)
	}
	return &o, nil
}
