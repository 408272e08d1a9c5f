package service_test

import (
	"context"
	"io"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/offerhub/offerhub/internal/codegen"
	"github.com/offerhub/offerhub/internal/domain"
	"github.com/offerhub/offerhub/internal/repository/memory"
	"github.com/offerhub/offerhub/internal/service"
	"github.com/offerhub/offerhub/internal/sync"
	apperrors "github.com/offerhub/offerhub/pkg/errors"
	"github.com/offerhub/offerhub/pkg/logger"
)

func newCampaignService(store *memory.Store) *service.CampaignService {
	log := logger.NewWithWriter("service-test", "error", io.Discard)
	pool := sync.NewPoolManager(codegen.New(), log)
	engine := sync.NewSynchronizer(
		store,
		sync.NewSweeper(log),
		sync.NewReconciler(sync.NewProjector(pool, log), log),
		nil,
		log,
	)
	return service.NewCampaignService(store, engine, log)
}

func createInput(schedules ...service.ScheduleInput) service.CreateCampaignInput {
	return service.CreateCampaignInput{
		MerchantID:    uuid.New().String(),
		SKU:           "BRUNCH",
		Name:          "Weekend Brunch",
		Description:   "Brunch for two",
		UnitPrice:     2500,
		DiscountPrice: 2000,
		ExpiryDays:    60,
		CategoryIDs:   []string{uuid.New().String()},
		Schedules:     schedules,
	}
}

func futureWindow(quantity int) service.ScheduleInput {
	start := time.Now().UTC().Add(24 * time.Hour)
	return service.ScheduleInput{
		StartsAt: start,
		EndsAt:   start.Add(48 * time.Hour),
		Quantity: quantity,
		Status:   domain.ScheduleStatusPublished,
	}
}

func TestCreateCampaignSyncsInline(t *testing.T) {
	store := memory.NewStore()
	svc := newCampaignService(store)

	outcome, err := svc.CreateCampaign(context.Background(), createInput(futureWindow(10)))

	require.NoError(t, err)
	require.NoError(t, outcome.SyncError)
	assert.Equal(t, 1, outcome.Sync.OffersCreated)
	assert.Equal(t, 10, outcome.Sync.VouchersCreated)

	offers, err := store.Offers().ListByCampaign(context.Background(), outcome.Campaign.ID)
	require.NoError(t, err)
	require.Len(t, offers, 1)
	assert.Equal(t, "BRUNCH-01", offers[0].SKU)
}

func TestCreateCampaignRejectsOverlappingWindows(t *testing.T) {
	store := memory.NewStore()
	svc := newCampaignService(store)

	start := time.Now().UTC().Add(24 * time.Hour)
	input := createInput(
		service.ScheduleInput{StartsAt: start, EndsAt: start.Add(48 * time.Hour), Quantity: 5},
		service.ScheduleInput{StartsAt: start.Add(24 * time.Hour), EndsAt: start.Add(72 * time.Hour), Quantity: 5},
	)

	_, err := svc.CreateCampaign(context.Background(), input)
	assert.ErrorIs(t, err, apperrors.ErrInvalidInput)
}

func TestCreateCampaignRejectsInvertedWindow(t *testing.T) {
	store := memory.NewStore()
	svc := newCampaignService(store)

	start := time.Now().UTC().Add(24 * time.Hour)
	input := createInput(service.ScheduleInput{StartsAt: start, EndsAt: start.Add(-time.Hour), Quantity: 5})

	_, err := svc.CreateCampaign(context.Background(), input)
	assert.ErrorIs(t, err, apperrors.ErrInvalidInput)
}

func TestUpdateCampaignPartialEdit(t *testing.T) {
	store := memory.NewStore()
	svc := newCampaignService(store)
	ctx := context.Background()

	outcome, err := svc.CreateCampaign(ctx, createInput(futureWindow(10)))
	require.NoError(t, err)

	name := "Weekend Brunch Deluxe"
	price := int64(2200)
	updated, err := svc.UpdateCampaign(ctx, outcome.Campaign.ID, service.UpdateCampaignInput{
		Name:          &name,
		DiscountPrice: &price,
	})
	require.NoError(t, err)

	assert.Equal(t, "Weekend Brunch Deluxe", updated.Campaign.Name)
	assert.Equal(t, int64(2200), updated.Campaign.DiscountPrice)
	// Untouched fields survive a partial edit.
	assert.Equal(t, "Brunch for two", updated.Campaign.Description)

	// The inline sync propagated the new copy onto the offer.
	offers, err := store.Offers().ListByCampaign(ctx, outcome.Campaign.ID)
	require.NoError(t, err)
	require.Len(t, offers, 1)
	assert.Equal(t, "Weekend Brunch Deluxe", offers[0].Name)
}

func TestUpdateCampaignReplacesSchedules(t *testing.T) {
	store := memory.NewStore()
	svc := newCampaignService(store)
	ctx := context.Background()

	outcome, err := svc.CreateCampaign(ctx, createInput(futureWindow(10)))
	require.NoError(t, err)

	// Replacing the schedule set with a single new window orphans the old
	// offer, which the inline sync archives.
	updated, err := svc.UpdateCampaign(ctx, outcome.Campaign.ID, service.UpdateCampaignInput{
		Schedules: []service.ScheduleInput{futureWindow(3)},
	})
	require.NoError(t, err)
	require.NoError(t, updated.SyncError)
	assert.Equal(t, 1, updated.Sync.OffersArchived)
	assert.Equal(t, 1, updated.Sync.OffersCreated)
}

func TestUpdateCampaignNotFound(t *testing.T) {
	store := memory.NewStore()
	svc := newCampaignService(store)

	_, err := svc.UpdateCampaign(context.Background(), uuid.New().String(), service.UpdateCampaignInput{})
	assert.ErrorIs(t, err, apperrors.ErrNotFound)
}

func TestGetCampaignReturnsSchedules(t *testing.T) {
	store := memory.NewStore()
	svc := newCampaignService(store)
	ctx := context.Background()

	outcome, err := svc.CreateCampaign(ctx, createInput(futureWindow(10)))
	require.NoError(t, err)

	campaign, schedules, err := svc.GetCampaign(ctx, outcome.Campaign.ID)
	require.NoError(t, err)
	assert.Equal(t, outcome.Campaign.ID, campaign.ID)
	require.Len(t, schedules, 1)
	assert.Equal(t, 10, schedules[0].Quantity)
}
