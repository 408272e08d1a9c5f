// Package followup holds the best-effort synchronizations that run after a
// campaign sync commits: media copying, tag replacement, search indexing,
// and event publication. None of them may fail a sync; errors are logged by
// the pipeline and retried implicitly on the next pass.
package followup

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/offerhub/offerhub/internal/domain"
	"github.com/offerhub/offerhub/internal/repository"
	"github.com/offerhub/offerhub/internal/sync"
)

// MediaCopier copies a campaign's media attachments onto its live offers.
// Copying is membership-checked so repeated runs do not duplicate assets.
type MediaCopier struct {
	store  repository.Store
	logger *slog.Logger
}

// NewMediaCopier creates a media copy followup.
func NewMediaCopier(store repository.Store, logger *slog.Logger) *MediaCopier {
	return &MediaCopier{store: store, logger: logger}
}

func (c *MediaCopier) Name() string { return "media-copier" }

func (c *MediaCopier) AfterSync(ctx context.Context, campaign *domain.Campaign, _ *sync.Result) error {
	assets, err := c.store.Assets().ListCampaignAssets(ctx, campaign.ID)
	if err != nil {
		return fmt.Errorf("list campaign assets: %w", err)
	}
	if len(assets) == 0 {
		return nil
	}

	offers, err := c.store.Offers().ListByCampaign(ctx, campaign.ID)
	if err != nil {
		return fmt.Errorf("list campaign offers: %w", err)
	}

	for _, offer := range offers {
		if offer.Archived() {
			continue
		}

		attached, err := c.store.Assets().ListOfferAssetIDs(ctx, offer.ID)
		if err != nil {
			return fmt.Errorf("list offer assets: %w", err)
		}
		have := make(map[string]struct{}, len(attached))
		for _, id := range attached {
			have[id] = struct{}{}
		}

		for _, asset := range assets {
			if _, ok := have[asset.ID]; ok {
				continue
			}
			if err := c.store.Assets().AttachToOffer(ctx, offer.ID, asset); err != nil {
				return fmt.Errorf("attach asset %s to offer %s: %w", asset.ID, offer.ID, err)
			}
			c.logger.Debug("asset copied to offer",
				slog.String("offer_id", offer.ID),
				slog.String("asset_id", asset.ID),
				slog.String("collection", asset.Collection),
			)
		}
	}

	return nil
}
