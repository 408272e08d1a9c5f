package followup

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/offerhub/offerhub/internal/domain"
	"github.com/offerhub/offerhub/internal/repository"
	"github.com/offerhub/offerhub/internal/sync"
)

// TagSyncer pushes the campaign's category and store sets onto its live
// offers with full-replace semantics: tags removed from the campaign are
// detached from the offers too.
type TagSyncer struct {
	store  repository.Store
	logger *slog.Logger
}

// NewTagSyncer creates a tag replacement followup.
func NewTagSyncer(store repository.Store, logger *slog.Logger) *TagSyncer {
	return &TagSyncer{store: store, logger: logger}
}

func (s *TagSyncer) Name() string { return "tag-syncer" }

func (s *TagSyncer) AfterSync(ctx context.Context, campaign *domain.Campaign, _ *sync.Result) error {
	offers, err := s.store.Offers().ListByCampaign(ctx, campaign.ID)
	if err != nil {
		return fmt.Errorf("list campaign offers: %w", err)
	}

	for _, offer := range offers {
		if offer.Archived() {
			continue
		}
		if err := s.store.Tags().ReplaceOfferTags(ctx, offer.ID, domain.TagKindCategory, campaign.CategoryIDs); err != nil {
			return fmt.Errorf("replace category tags on offer %s: %w", offer.ID, err)
		}
		if err := s.store.Tags().ReplaceOfferTags(ctx, offer.ID, domain.TagKindStore, campaign.StoreIDs); err != nil {
			return fmt.Errorf("replace store tags on offer %s: %w", offer.ID, err)
		}
		s.logger.Debug("offer tags replaced",
			slog.String("offer_id", offer.ID),
			slog.Int("categories", len(campaign.CategoryIDs)),
			slog.Int("stores", len(campaign.StoreIDs)),
		)
	}

	return nil
}
