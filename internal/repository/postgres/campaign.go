package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/offerhub/offerhub/internal/domain"
	apperrors "github.com/offerhub/offerhub/pkg/errors"
	"github.com/offerhub/offerhub/pkg/database"
)

const campaignColumns = `id, merchant_id, sku, name, description, fine_print, policies,
	unit_price, discount_price, point_price, discount_point_price,
	expiry_days, agreement_quantity, category_ids, store_ids,
	created_at, updated_at, deleted_at`

// CampaignRepository implements repository.CampaignRepository using PostgreSQL.
type CampaignRepository struct {
	db database.Querier
}

// Create inserts a new campaign.
func (r *CampaignRepository) Create(ctx context.Context, c *domain.Campaign) error {
	categoriesJSON, err := json.Marshal(c.CategoryIDs)
	if err != nil {
		return fmt.Errorf("marshal category_ids: %w", err)
	}
	storesJSON, err := json.Marshal(c.StoreIDs)
	if err != nil {
		return fmt.Errorf("marshal store_ids: %w", err)
	}

	query := `
		INSERT INTO campaigns (
			id, merchant_id, sku, name, description, fine_print, policies,
			unit_price, discount_price, point_price, discount_point_price,
			expiry_days, agreement_quantity, category_ids, store_ids,
			created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17)`

	_, err = r.db.Exec(ctx, query,
		c.ID,
		c.MerchantID,
		c.SKU,
		c.Name,
		c.Description,
		c.FinePrint,
		c.Policies,
		c.UnitPrice,
		c.DiscountPrice,
		c.PointPrice,
		c.DiscountPointPrice,
		c.ExpiryDays,
		c.AgreementQuantity,
		categoriesJSON,
		storesJSON,
		c.CreatedAt,
		c.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return apperrors.AlreadyExists("campaign", "sku", c.SKU)
		}
		return fmt.Errorf("insert campaign: %w", err)
	}

	return nil
}

// Update modifies an existing campaign.
func (r *CampaignRepository) Update(ctx context.Context, c *domain.Campaign) error {
	categoriesJSON, err := json.Marshal(c.CategoryIDs)
	if err != nil {
		return fmt.Errorf("marshal category_ids: %w", err)
	}
	storesJSON, err := json.Marshal(c.StoreIDs)
	if err != nil {
		return fmt.Errorf("marshal store_ids: %w", err)
	}

	c.UpdatedAt = time.Now().UTC()

	query := `
		UPDATE campaigns
		SET sku = $1, name = $2, description = $3, fine_print = $4, policies = $5,
		    unit_price = $6, discount_price = $7, point_price = $8, discount_point_price = $9,
		    expiry_days = $10, agreement_quantity = $11, category_ids = $12, store_ids = $13,
		    updated_at = $14
		WHERE id = $15 AND deleted_at IS NULL`

	ct, err := r.db.Exec(ctx, query,
		c.SKU,
		c.Name,
		c.Description,
		c.FinePrint,
		c.Policies,
		c.UnitPrice,
		c.DiscountPrice,
		c.PointPrice,
		c.DiscountPointPrice,
		c.ExpiryDays,
		c.AgreementQuantity,
		categoriesJSON,
		storesJSON,
		c.UpdatedAt,
		c.ID,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return apperrors.AlreadyExists("campaign", "sku", c.SKU)
		}
		return fmt.Errorf("update campaign: %w", err)
	}

	if ct.RowsAffected() == 0 {
		return apperrors.NotFound("campaign", c.ID)
	}

	return nil
}

// GetByID retrieves a campaign by its ID.
func (r *CampaignRepository) GetByID(ctx context.Context, id string) (*domain.Campaign, error) {
	query := fmt.Sprintf(`
		SELECT %s
		FROM campaigns
		WHERE id = $1 AND deleted_at IS NULL`, campaignColumns)

	return r.scanCampaign(ctx, query, id)
}

// LockForSync loads the campaign under SELECT ... FOR UPDATE. The lock is
// held until the enclosing transaction ends, so two sync runs for the same
// campaign serialize instead of both creating offers for the same schedule.
func (r *CampaignRepository) LockForSync(ctx context.Context, id string) (*domain.Campaign, error) {
	query := fmt.Sprintf(`
		SELECT %s
		FROM campaigns
		WHERE id = $1 AND deleted_at IS NULL
		FOR UPDATE`, campaignColumns)

	return r.scanCampaign(ctx, query, id)
}

// ListUpdatedSince returns campaigns edited at or after the given time, oldest first.
func (r *CampaignRepository) ListUpdatedSince(ctx context.Context, since time.Time) ([]domain.Campaign, error) {
	query := fmt.Sprintf(`
		SELECT %s
		FROM campaigns
		WHERE updated_at >= $1 AND deleted_at IS NULL
		ORDER BY updated_at`, campaignColumns)

	rows, err := r.db.Query(ctx, query, since)
	if err != nil {
		return nil, fmt.Errorf("list campaigns updated since: %w", err)
	}
	defer rows.Close()

	var campaigns []domain.Campaign
	for rows.Next() {
		c, err := scanCampaignRow(rows)
		if err != nil {
			return nil, err
		}
		campaigns = append(campaigns, *c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate campaign rows: %w", err)
	}

	return campaigns, nil
}

// scanCampaign executes a query expected to return a single campaign row.
func (r *CampaignRepository) scanCampaign(ctx context.Context, query string, args ...any) (*domain.Campaign, error) {
	c, err := scanCampaignRow(r.db.QueryRow(ctx, query, args...))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.ErrNotFound
		}
		return nil, err
	}
	return c, nil
}

func scanCampaignRow(row pgx.Row) (*domain.Campaign, error) {
	var (
		c              domain.Campaign
		categoriesJSON []byte
		storesJSON     []byte
	)

	err := row.Scan(
		&c.ID,
		&c.MerchantID,
		&c.SKU,
		&c.Name,
		&c.Description,
		&c.FinePrint,
		&c.Policies,
		&c.UnitPrice,
		&c.DiscountPrice,
		&c.PointPrice,
		&c.DiscountPointPrice,
		&c.ExpiryDays,
		&c.AgreementQuantity,
		&categoriesJSON,
		&storesJSON,
		&c.CreatedAt,
		&c.UpdatedAt,
		&c.DeletedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, pgx.ErrNoRows
		}
		return nil, fmt.Errorf("scan campaign: %w", err)
	}

	if categoriesJSON != nil {
		if err := json.Unmarshal(categoriesJSON, &c.CategoryIDs); err != nil {
			return nil, fmt.Errorf("unmarshal category_ids: %w", err)
		}
	}
	if c.CategoryIDs == nil {
		c.CategoryIDs = []string{}
	}

	if storesJSON != nil {
		if err := json.Unmarshal(storesJSON, &c.StoreIDs); err != nil {
			return nil, fmt.Errorf("unmarshal store_ids: %w", err)
		}
	}
	if c.StoreIDs == nil {
		c.StoreIDs = []string{}
	}

	return &c, nil
}
