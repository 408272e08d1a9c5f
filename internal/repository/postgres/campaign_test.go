package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	pgxmock "github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/offerhub/offerhub/internal/domain"
	apperrors "github.com/offerhub/offerhub/pkg/errors"
	"github.com/offerhub/offerhub/pkg/database"
)

// ---------------------------------------------------------------------------
// helpers
// ---------------------------------------------------------------------------

func setupCampaignRepo(t *testing.T) (*CampaignRepository, pgxmock.PgxPoolIface) {
	t.Helper()
	mock, err := database.NewMockPool()
	require.NoError(t, err)
	return &CampaignRepository{db: mock}, mock
}

func sampleDBCampaign() *domain.Campaign {
	agreement := 200
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	return &domain.Campaign{
		ID:                 "44444444-4444-4444-4444-444444444444",
		MerchantID:         "55555555-5555-5555-5555-555555555555",
		SKU:                "LUNCH",
		Name:               "Weekday Lunch Deal",
		Description:        "Set lunch at a discount",
		FinePrint:          "Weekdays only",
		Policies:           "No refunds",
		UnitPrice:          1500,
		DiscountPrice:      1200,
		PointPrice:         150,
		DiscountPointPrice: 120,
		ExpiryDays:         90,
		AgreementQuantity:  &agreement,
		CategoryIDs:        []string{"66666666-6666-6666-6666-666666666666"},
		StoreIDs:           []string{"77777777-7777-7777-7777-777777777777"},
		CreatedAt:          now,
		UpdatedAt:          now,
	}
}

func dbCampaignColumns() []string {
	return []string{
		"id", "merchant_id", "sku", "name", "description", "fine_print", "policies",
		"unit_price", "discount_price", "point_price", "discount_point_price",
		"expiry_days", "agreement_quantity", "category_ids", "store_ids",
		"created_at", "updated_at", "deleted_at",
	}
}

func dbCampaignRow(c *domain.Campaign) *pgxmock.Rows {
	categoriesJSON, _ := json.Marshal(c.CategoryIDs)
	storesJSON, _ := json.Marshal(c.StoreIDs)

	return pgxmock.NewRows(dbCampaignColumns()).
		AddRow(
			c.ID, c.MerchantID, c.SKU, c.Name, c.Description, c.FinePrint, c.Policies,
			c.UnitPrice, c.DiscountPrice, c.PointPrice, c.DiscountPointPrice,
			c.ExpiryDays, c.AgreementQuantity, categoriesJSON, storesJSON,
			c.CreatedAt, c.UpdatedAt, nil,
		)
}

// ---------------------------------------------------------------------------
// Create
// ---------------------------------------------------------------------------

func TestCampaignRepository_Create_Success(t *testing.T) {
	repo, mock := setupCampaignRepo(t)
	defer mock.Close()

	c := sampleDBCampaign()
	categoriesJSON, _ := json.Marshal(c.CategoryIDs)
	storesJSON, _ := json.Marshal(c.StoreIDs)

	mock.ExpectExec("INSERT INTO campaigns").
		WithArgs(
			c.ID, c.MerchantID, c.SKU, c.Name, c.Description, c.FinePrint, c.Policies,
			c.UnitPrice, c.DiscountPrice, c.PointPrice, c.DiscountPointPrice,
			c.ExpiryDays, c.AgreementQuantity, categoriesJSON, storesJSON,
			c.CreatedAt, c.UpdatedAt,
		).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	err := repo.Create(context.Background(), c)
	assert.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCampaignRepository_Create_DuplicateSKU(t *testing.T) {
	repo, mock := setupCampaignRepo(t)
	defer mock.Close()

	c := sampleDBCampaign()
	categoriesJSON, _ := json.Marshal(c.CategoryIDs)
	storesJSON, _ := json.Marshal(c.StoreIDs)

	mock.ExpectExec("INSERT INTO campaigns").
		WithArgs(
			c.ID, c.MerchantID, c.SKU, c.Name, c.Description, c.FinePrint, c.Policies,
			c.UnitPrice, c.DiscountPrice, c.PointPrice, c.DiscountPointPrice,
			c.ExpiryDays, c.AgreementQuantity, categoriesJSON, storesJSON,
			c.CreatedAt, c.UpdatedAt,
		).
		WillReturnError(errors.New("ERROR: duplicate key value violates unique constraint (SQLSTATE 23505)"))

	err := repo.Create(context.Background(), c)
	assert.ErrorIs(t, err, apperrors.ErrAlreadyExists)
	assert.NoError(t, mock.ExpectationsWereMet())
}

// ---------------------------------------------------------------------------
// GetByID / LockForSync
// ---------------------------------------------------------------------------

func TestCampaignRepository_GetByID_Success(t *testing.T) {
	repo, mock := setupCampaignRepo(t)
	defer mock.Close()

	c := sampleDBCampaign()

	mock.ExpectQuery("SELECT .+ FROM campaigns WHERE id").
		WithArgs(c.ID).
		WillReturnRows(dbCampaignRow(c))

	got, err := repo.GetByID(context.Background(), c.ID)
	require.NoError(t, err)
	assert.Equal(t, c.SKU, got.SKU)
	assert.Equal(t, c.CategoryIDs, got.CategoryIDs)
	require.NotNil(t, got.AgreementQuantity)
	assert.Equal(t, 200, *got.AgreementQuantity)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCampaignRepository_GetByID_NotFound(t *testing.T) {
	repo, mock := setupCampaignRepo(t)
	defer mock.Close()

	mock.ExpectQuery("SELECT .+ FROM campaigns WHERE id").
		WithArgs("missing").
		WillReturnRows(pgxmock.NewRows(dbCampaignColumns()))

	got, err := repo.GetByID(context.Background(), "missing")
	assert.Nil(t, got)
	assert.ErrorIs(t, err, apperrors.ErrNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCampaignRepository_LockForSync_UsesRowLock(t *testing.T) {
	repo, mock := setupCampaignRepo(t)
	defer mock.Close()

	c := sampleDBCampaign()

	mock.ExpectQuery("SELECT .+ FROM campaigns WHERE id = .+ FOR UPDATE").
		WithArgs(c.ID).
		WillReturnRows(dbCampaignRow(c))

	got, err := repo.LockForSync(context.Background(), c.ID)
	require.NoError(t, err)
	assert.Equal(t, c.ID, got.ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

// ---------------------------------------------------------------------------
// Update
// ---------------------------------------------------------------------------

func TestCampaignRepository_Update_NotFound(t *testing.T) {
	repo, mock := setupCampaignRepo(t)
	defer mock.Close()

	c := sampleDBCampaign()
	categoriesJSON, _ := json.Marshal(c.CategoryIDs)
	storesJSON, _ := json.Marshal(c.StoreIDs)

	mock.ExpectExec("UPDATE campaigns").
		WithArgs(
			c.SKU, c.Name, c.Description, c.FinePrint, c.Policies,
			c.UnitPrice, c.DiscountPrice, c.PointPrice, c.DiscountPointPrice,
			c.ExpiryDays, c.AgreementQuantity, categoriesJSON, storesJSON,
			pgxmock.AnyArg(), c.ID,
		).
		WillReturnResult(pgxmock.NewResult("UPDATE", 0))

	err := repo.Update(context.Background(), c)
	assert.ErrorIs(t, err, apperrors.ErrNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

// ---------------------------------------------------------------------------
// ListUpdatedSince
// ---------------------------------------------------------------------------

func TestCampaignRepository_ListUpdatedSince(t *testing.T) {
	repo, mock := setupCampaignRepo(t)
	defer mock.Close()

	c := sampleDBCampaign()
	since := c.UpdatedAt.Add(-time.Hour)

	mock.ExpectQuery("SELECT .+ FROM campaigns WHERE updated_at").
		WithArgs(since).
		WillReturnRows(dbCampaignRow(c))

	campaigns, err := repo.ListUpdatedSince(context.Background(), since)
	require.NoError(t, err)
	require.Len(t, campaigns, 1)
	assert.Equal(t, c.ID, campaigns[0].ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}
