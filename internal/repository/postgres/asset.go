package postgres

import (
	"context"
	"fmt"

	"github.com/offerhub/offerhub/internal/domain"
	"github.com/offerhub/offerhub/pkg/database"
)

// AssetRepository implements repository.AssetRepository using PostgreSQL.
type AssetRepository struct {
	db database.Querier
}

// ListCampaignAssets returns a campaign's media attachments.
func (r *AssetRepository) ListCampaignAssets(ctx context.Context, campaignID string) ([]domain.Asset, error) {
	query := `
		SELECT asset_id, collection, url
		FROM campaign_assets
		WHERE campaign_id = $1
		ORDER BY collection, asset_id`

	rows, err := r.db.Query(ctx, query, campaignID)
	if err != nil {
		return nil, fmt.Errorf("list campaign assets: %w", err)
	}
	defer rows.Close()

	var assets []domain.Asset
	for rows.Next() {
		var a domain.Asset
		if err := rows.Scan(&a.ID, &a.Collection, &a.URL); err != nil {
			return nil, fmt.Errorf("scan asset row: %w", err)
		}
		assets = append(assets, a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate asset rows: %w", err)
	}

	return assets, nil
}

// ListOfferAssetIDs returns the campaign-asset ids already attached to an offer.
func (r *AssetRepository) ListOfferAssetIDs(ctx context.Context, offerID string) ([]string, error) {
	query := `SELECT asset_id FROM offer_assets WHERE offer_id = $1 ORDER BY asset_id`

	rows, err := r.db.Query(ctx, query, offerID)
	if err != nil {
		return nil, fmt.Errorf("list offer asset ids: %w", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan asset id: %w", err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate asset ids: %w", err)
	}

	return ids, nil
}

// AttachToOffer copies a campaign asset onto an offer. Re-attaching an asset
// already linked is a no-op.
func (r *AssetRepository) AttachToOffer(ctx context.Context, offerID string, asset domain.Asset) error {
	query := `
		INSERT INTO offer_assets (offer_id, asset_id, collection, url)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (offer_id, asset_id) DO NOTHING`

	if _, err := r.db.Exec(ctx, query, offerID, asset.ID, asset.Collection, asset.URL); err != nil {
		return fmt.Errorf("attach asset to offer: %w", err)
	}
	return nil
}
