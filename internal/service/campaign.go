// Package service implements the business logic behind the HTTP API: the
// campaign edit flow that feeds the sync engine, and the offer read/claim
// operations.
package service

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/offerhub/offerhub/internal/domain"
	"github.com/offerhub/offerhub/internal/repository"
	"github.com/offerhub/offerhub/internal/sync"
	apperrors "github.com/offerhub/offerhub/pkg/errors"
)

// Synchronizer is the part of the sync engine the campaign service drives.
type Synchronizer interface {
	ProcessCampaign(ctx context.Context, campaignID string) (*sync.Result, error)
}

// CampaignService implements the campaign edit flow. Every successful save
// runs a sync pass inline so the admin sees its result immediately.
type CampaignService struct {
	store  repository.Store
	engine Synchronizer
	logger *slog.Logger
}

// NewCampaignService creates a campaign service.
func NewCampaignService(store repository.Store, engine Synchronizer, logger *slog.Logger) *CampaignService {
	return &CampaignService{
		store:  store,
		engine: engine,
		logger: logger,
	}
}

// CreateCampaignInput holds the parameters for creating a campaign.
type CreateCampaignInput struct {
	MerchantID         string
	SKU                string
	Name               string
	Description        string
	FinePrint          string
	Policies           string
	UnitPrice          int64
	DiscountPrice      int64
	PointPrice         int64
	DiscountPointPrice int64
	ExpiryDays         int
	AgreementQuantity  *int
	CategoryIDs        []string
	StoreIDs           []string
	Schedules          []ScheduleInput
}

// UpdateCampaignInput holds the parameters for updating a campaign. Nil
// pointer fields are left unchanged; Schedules always replaces the full set.
type UpdateCampaignInput struct {
	Name               *string
	Description        *string
	FinePrint          *string
	Policies           *string
	UnitPrice          *int64
	DiscountPrice      *int64
	PointPrice         *int64
	DiscountPointPrice *int64
	ExpiryDays         *int
	AgreementQuantity  *int
	CategoryIDs        []string
	StoreIDs           []string
	Schedules          []ScheduleInput
}

// ScheduleInput describes one selling window in a save request. A zero ID
// means a new window; a known ID updates the existing one.
type ScheduleInput struct {
	ID         string
	StartsAt   time.Time
	EndsAt     time.Time
	Quantity   int
	ExpiryDays *int
	Status     string
	PublishAt  time.Time
}

// SaveOutcome bundles the persisted campaign with the sync pass its save
// triggered. A non-nil SyncError means the save committed but the sync pass
// failed wholesale and will be retried by the worker.
type SaveOutcome struct {
	Campaign  *domain.Campaign
	Sync      *sync.Result
	SyncError error
}

// CreateCampaign persists a new campaign with its schedules and runs an
// inline sync pass.
func (s *CampaignService) CreateCampaign(ctx context.Context, input CreateCampaignInput) (*SaveOutcome, error) {
	now := time.Now().UTC()
	campaign := &domain.Campaign{
		ID:                 uuid.New().String(),
		MerchantID:         input.MerchantID,
		SKU:                input.SKU,
		Name:               input.Name,
		Description:        input.Description,
		FinePrint:          input.FinePrint,
		Policies:           input.Policies,
		UnitPrice:          input.UnitPrice,
		DiscountPrice:      input.DiscountPrice,
		PointPrice:         input.PointPrice,
		DiscountPointPrice: input.DiscountPointPrice,
		ExpiryDays:         input.ExpiryDays,
		AgreementQuantity:  input.AgreementQuantity,
		CategoryIDs:        input.CategoryIDs,
		StoreIDs:           input.StoreIDs,
		CreatedAt:          now,
		UpdatedAt:          now,
	}
	if campaign.ExpiryDays <= 0 {
		campaign.ExpiryDays = 90
	}

	schedules, err := buildSchedules(campaign.ID, input.Schedules, now)
	if err != nil {
		return nil, err
	}

	err = s.store.WithinTx(ctx, func(tx repository.Store) error {
		if err := tx.Campaigns().Create(ctx, campaign); err != nil {
			return err
		}
		return tx.Schedules().Replace(ctx, campaign.ID, schedules)
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("campaign created",
		slog.String("campaign_id", campaign.ID),
		slog.String("sku", campaign.SKU),
		slog.Int("schedules", len(schedules)),
	)

	return s.syncAfterSave(ctx, campaign), nil
}

// UpdateCampaign applies a partial edit and runs an inline sync pass.
func (s *CampaignService) UpdateCampaign(ctx context.Context, id string, input UpdateCampaignInput) (*SaveOutcome, error) {
	now := time.Now().UTC()
	var campaign *domain.Campaign

	err := s.store.WithinTx(ctx, func(tx repository.Store) error {
		var err error
		campaign, err = tx.Campaigns().GetByID(ctx, id)
		if err != nil {
			return err
		}

		applyCampaignUpdate(campaign, input, now)
		if err := tx.Campaigns().Update(ctx, campaign); err != nil {
			return err
		}

		if input.Schedules == nil {
			return nil
		}
		schedules, err := buildSchedules(campaign.ID, input.Schedules, now)
		if err != nil {
			return err
		}
		return tx.Schedules().Replace(ctx, campaign.ID, schedules)
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("campaign updated", slog.String("campaign_id", campaign.ID))
	return s.syncAfterSave(ctx, campaign), nil
}

// GetCampaign returns a campaign with its schedules.
func (s *CampaignService) GetCampaign(ctx context.Context, id string) (*domain.Campaign, []domain.Schedule, error) {
	campaign, err := s.store.Campaigns().GetByID(ctx, id)
	if err != nil {
		return nil, nil, err
	}
	schedules, err := s.store.Schedules().ListByCampaign(ctx, id)
	if err != nil {
		return nil, nil, err
	}
	return campaign, schedules, nil
}

// SyncCampaign runs a sync pass on demand.
func (s *CampaignService) SyncCampaign(ctx context.Context, id string) (*sync.Result, error) {
	return s.engine.ProcessCampaign(ctx, id)
}

func (s *CampaignService) syncAfterSave(ctx context.Context, campaign *domain.Campaign) *SaveOutcome {
	result, err := s.engine.ProcessCampaign(ctx, campaign.ID)
	if err != nil {
		s.logger.Error("post-save sync failed",
			slog.String("campaign_id", campaign.ID),
			slog.String("error", err.Error()),
		)
	}
	return &SaveOutcome{Campaign: campaign, Sync: result, SyncError: err}
}

func applyCampaignUpdate(c *domain.Campaign, input UpdateCampaignInput, now time.Time) {
	if input.Name != nil {
		c.Name = *input.Name
	}
	if input.Description != nil {
		c.Description = *input.Description
	}
	if input.FinePrint != nil {
		c.FinePrint = *input.FinePrint
	}
	if input.Policies != nil {
		c.Policies = *input.Policies
	}
	if input.UnitPrice != nil {
		c.UnitPrice = *input.UnitPrice
	}
	if input.DiscountPrice != nil {
		c.DiscountPrice = *input.DiscountPrice
	}
	if input.PointPrice != nil {
		c.PointPrice = *input.PointPrice
	}
	if input.DiscountPointPrice != nil {
		c.DiscountPointPrice = *input.DiscountPointPrice
	}
	if input.ExpiryDays != nil {
		c.ExpiryDays = *input.ExpiryDays
	}
	if input.AgreementQuantity != nil {
		c.AgreementQuantity = input.AgreementQuantity
	}
	if input.CategoryIDs != nil {
		c.CategoryIDs = input.CategoryIDs
	}
	if input.StoreIDs != nil {
		c.StoreIDs = input.StoreIDs
	}
	c.UpdatedAt = now
}

// buildSchedules validates a save request's windows and materializes them.
// Windows of one campaign must not overlap.
func buildSchedules(campaignID string, inputs []ScheduleInput, now time.Time) ([]domain.Schedule, error) {
	schedules := make([]domain.Schedule, 0, len(inputs))
	for i, in := range inputs {
		if !in.EndsAt.IsZero() && !in.StartsAt.Before(in.EndsAt) {
			return nil, apperrors.InvalidInput(fmt.Sprintf("schedule %d: starts_at must be before ends_at", i+1))
		}
		if in.Quantity < 0 {
			return nil, apperrors.InvalidInput(fmt.Sprintf("schedule %d: quantity must not be negative", i+1))
		}

		status := in.Status
		if status == "" {
			status = domain.ScheduleStatusDraft
		}
		publishAt := in.PublishAt
		if publishAt.IsZero() {
			publishAt = in.StartsAt
		}

		sc := domain.Schedule{
			ID:         in.ID,
			CampaignID: campaignID,
			StartsAt:   in.StartsAt,
			EndsAt:     in.EndsAt,
			Quantity:   in.Quantity,
			ExpiryDays: in.ExpiryDays,
			Status:     status,
			PublishAt:  publishAt,
			CreatedAt:  now,
			UpdatedAt:  now,
		}
		if sc.ID == "" {
			sc.ID = uuid.New().String()
		}
		schedules = append(schedules, sc)
	}

	for i := range schedules {
		for j := i + 1; j < len(schedules); j++ {
			if schedules[i].Overlaps(&schedules[j]) {
				return nil, apperrors.InvalidInput(fmt.Sprintf("schedules %d and %d overlap", i+1, j+1))
			}
		}
	}

	return schedules, nil
}
