package followup

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/elastic/go-elasticsearch/v8"

	"github.com/offerhub/offerhub/internal/domain"
	"github.com/offerhub/offerhub/internal/repository"
	"github.com/offerhub/offerhub/internal/sync"
)

// DefaultIndexName is the Elasticsearch index offers are published to.
const DefaultIndexName = "offers"

// offerDocument is the searchable projection of an offer.
type offerDocument struct {
	ID             string    `json:"id"`
	CampaignID     string    `json:"campaign_id"`
	MerchantID     string    `json:"merchant_id"`
	SKU            string    `json:"sku"`
	Name           string    `json:"name"`
	Description    string    `json:"description"`
	UnitPrice      int64     `json:"unit_price"`
	DiscountPrice  int64     `json:"discount_price"`
	Quantity       int       `json:"quantity"`
	Status         string    `json:"status"`
	AvailableAt    time.Time `json:"available_at"`
	AvailableUntil time.Time `json:"available_until"`
}

// SearchIndexer publishes a campaign's offers to Elasticsearch after each
// sync. Archived offers are removed from the index.
type SearchIndexer struct {
	client    *elasticsearch.Client
	store     repository.Store
	indexName string
	logger    *slog.Logger
}

// NewSearchIndexer creates a search indexing followup connected to the given
// Elasticsearch URL. If indexName is empty, DefaultIndexName is used.
func NewSearchIndexer(esURL, indexName string, store repository.Store, logger *slog.Logger) (*SearchIndexer, error) {
	if indexName == "" {
		indexName = DefaultIndexName
	}

	client, err := elasticsearch.NewClient(elasticsearch.Config{
		Addresses: []string{esURL},
	})
	if err != nil {
		return nil, fmt.Errorf("elasticsearch: failed to create client: %w", err)
	}

	return &SearchIndexer{
		client:    client,
		store:     store,
		indexName: indexName,
		logger:    logger,
	}, nil
}

func (s *SearchIndexer) Name() string { return "search-indexer" }

func (s *SearchIndexer) AfterSync(ctx context.Context, campaign *domain.Campaign, _ *sync.Result) error {
	offers, err := s.store.Offers().ListByCampaign(ctx, campaign.ID)
	if err != nil {
		return fmt.Errorf("list campaign offers: %w", err)
	}

	for _, offer := range offers {
		if offer.Archived() {
			if err := s.remove(ctx, offer.ID); err != nil {
				return err
			}
			continue
		}
		if err := s.index(ctx, campaign, &offer); err != nil {
			return err
		}
	}

	return nil
}

func (s *SearchIndexer) index(ctx context.Context, campaign *domain.Campaign, offer *domain.Offer) error {
	doc := offerDocument{
		ID:             offer.ID,
		CampaignID:     offer.CampaignID,
		MerchantID:     campaign.MerchantID,
		SKU:            offer.SKU,
		Name:           offer.Name,
		Description:    offer.Description,
		UnitPrice:      offer.UnitPrice,
		DiscountPrice:  offer.DiscountPrice,
		Quantity:       offer.Quantity,
		Status:         offer.Status,
		AvailableAt:    offer.AvailableAt,
		AvailableUntil: offer.AvailableUntil,
	}

	body, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("marshal offer document: %w", err)
	}

	res, err := s.client.Index(
		s.indexName,
		bytes.NewReader(body),
		s.client.Index.WithDocumentID(offer.ID),
		s.client.Index.WithContext(ctx),
	)
	if err != nil {
		return fmt.Errorf("index offer %s: %w", offer.ID, err)
	}
	defer func() { _ = res.Body.Close() }()

	if res.IsError() {
		return fmt.Errorf("index offer %s: unexpected status %s", offer.ID, res.Status())
	}

	s.logger.Debug("offer indexed", slog.String("offer_id", offer.ID))
	return nil
}

func (s *SearchIndexer) remove(ctx context.Context, offerID string) error {
	res, err := s.client.Delete(
		s.indexName,
		offerID,
		s.client.Delete.WithContext(ctx),
	)
	if err != nil {
		return fmt.Errorf("remove offer %s from index: %w", offerID, err)
	}
	defer func() { _ = res.Body.Close() }()

	// 404 means the offer was never indexed, which is fine.
	if res.IsError() && res.StatusCode != 404 {
		return fmt.Errorf("remove offer %s from index: unexpected status %s", offerID, res.Status())
	}

	s.logger.Debug("offer removed from index", slog.String("offer_id", offerID))
	return nil
}
