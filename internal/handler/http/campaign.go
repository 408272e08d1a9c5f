package http

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/offerhub/offerhub/internal/domain"
	"github.com/offerhub/offerhub/internal/service"
	"github.com/offerhub/offerhub/internal/sync"
	apperrors "github.com/offerhub/offerhub/pkg/errors"
	"github.com/offerhub/offerhub/pkg/httputil"
	"github.com/offerhub/offerhub/pkg/validator"
)

// CampaignHandler handles HTTP requests for campaign endpoints.
type CampaignHandler struct {
	service *service.CampaignService
	logger  *slog.Logger
}

// NewCampaignHandler creates a new campaign HTTP handler.
func NewCampaignHandler(svc *service.CampaignService, logger *slog.Logger) *CampaignHandler {
	return &CampaignHandler{
		service: svc,
		logger:  logger,
	}
}

// --- Request DTOs ---

// ScheduleRequest is one selling window in a campaign save request.
type ScheduleRequest struct {
	ID         string `json:"id" validate:"omitempty,uuid"`
	StartsAt   string `json:"starts_at" validate:"required"`
	EndsAt     string `json:"ends_at"`
	Quantity   int    `json:"quantity" validate:"gte=0"`
	ExpiryDays *int   `json:"expiry_days" validate:"omitempty,gt=0"`
	Status     string `json:"status" validate:"omitempty,oneof=draft published archived"`
	PublishAt  string `json:"publish_at"`
}

// CreateCampaignRequest is the JSON request body for creating a campaign.
type CreateCampaignRequest struct {
	MerchantID         string            `json:"merchant_id" validate:"required,uuid"`
	SKU                string            `json:"sku" validate:"required,min=1,max=64"`
	Name               string            `json:"name" validate:"required,min=1,max=255"`
	Description        string            `json:"description"`
	FinePrint          string            `json:"fine_print"`
	Policies           string            `json:"policies"`
	UnitPrice          int64             `json:"unit_price" validate:"gte=0"`
	DiscountPrice      int64             `json:"discount_price" validate:"gte=0"`
	PointPrice         int64             `json:"point_price" validate:"gte=0"`
	DiscountPointPrice int64             `json:"discount_point_price" validate:"gte=0"`
	ExpiryDays         int               `json:"expiry_days" validate:"gte=0"`
	AgreementQuantity  *int              `json:"agreement_quantity" validate:"omitempty,gt=0"`
	CategoryIDs        []string          `json:"category_ids" validate:"dive,uuid"`
	StoreIDs           []string          `json:"store_ids" validate:"dive,uuid"`
	Schedules          []ScheduleRequest `json:"schedules" validate:"dive"`
}

// UpdateCampaignRequest is the JSON request body for updating a campaign.
// Omitted fields are left unchanged; a schedules array always replaces the
// full set.
type UpdateCampaignRequest struct {
	Name               *string           `json:"name" validate:"omitempty,min=1,max=255"`
	Description        *string           `json:"description"`
	FinePrint          *string           `json:"fine_print"`
	Policies           *string           `json:"policies"`
	UnitPrice          *int64            `json:"unit_price" validate:"omitempty,gte=0"`
	DiscountPrice      *int64            `json:"discount_price" validate:"omitempty,gte=0"`
	PointPrice         *int64            `json:"point_price" validate:"omitempty,gte=0"`
	DiscountPointPrice *int64            `json:"discount_point_price" validate:"omitempty,gte=0"`
	ExpiryDays         *int              `json:"expiry_days" validate:"omitempty,gt=0"`
	AgreementQuantity  *int              `json:"agreement_quantity" validate:"omitempty,gt=0"`
	CategoryIDs        []string          `json:"category_ids" validate:"omitempty,dive,uuid"`
	StoreIDs           []string          `json:"store_ids" validate:"omitempty,dive,uuid"`
	Schedules          []ScheduleRequest `json:"schedules" validate:"omitempty,dive"`
}

// --- Response DTOs ---

// campaignResponse bundles a campaign with its schedules.
type campaignResponse struct {
	Campaign  *domain.Campaign  `json:"campaign"`
	Schedules []domain.Schedule `json:"schedules"`
}

// saveResponse bundles a saved campaign with its inline sync outcome. Status
// is "synced", "synced_with_warnings", or "sync_failed"; the save itself
// committed in all three cases.
type saveResponse struct {
	Campaign *domain.Campaign `json:"campaign"`
	Sync     *sync.Result     `json:"sync,omitempty"`
	Status   string           `json:"status"`
}

// syncResponse reports an on-demand sync pass. Per-schedule errors make it
// "completed_with_warnings", never a failure status.
type syncResponse struct {
	Result *sync.Result `json:"result"`
	Status string       `json:"status"`
}

func saveStatus(outcome *service.SaveOutcome) string {
	switch {
	case outcome.SyncError != nil:
		return "sync_failed"
	case !outcome.Sync.Success():
		return "synced_with_warnings"
	default:
		return "synced"
	}
}

// --- Handlers ---

// CreateCampaign handles POST /api/v1/campaigns
func (h *CampaignHandler) CreateCampaign(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, 1<<20) // 1 MB limit
	var req CreateCampaignRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.WriteJSON(w, http.StatusBadRequest, httputil.Response{
			Error: &httputil.ErrorResponse{Code: "INVALID_INPUT", Message: "invalid request body: " + err.Error()},
		})
		return
	}

	if err := validator.Validate(req); err != nil {
		httputil.WriteValidationError(w, err)
		return
	}

	schedules, err := parseSchedules(req.Schedules)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	input := service.CreateCampaignInput{
		MerchantID:         req.MerchantID,
		SKU:                req.SKU,
		Name:               req.Name,
		Description:        req.Description,
		FinePrint:          req.FinePrint,
		Policies:           req.Policies,
		UnitPrice:          req.UnitPrice,
		DiscountPrice:      req.DiscountPrice,
		PointPrice:         req.PointPrice,
		DiscountPointPrice: req.DiscountPointPrice,
		ExpiryDays:         req.ExpiryDays,
		AgreementQuantity:  req.AgreementQuantity,
		CategoryIDs:        req.CategoryIDs,
		StoreIDs:           req.StoreIDs,
		Schedules:          schedules,
	}

	outcome, err := h.service.CreateCampaign(r.Context(), input)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteJSON(w, http.StatusCreated, httputil.Response{Data: saveResponse{
		Campaign: outcome.Campaign,
		Sync:     outcome.Sync,
		Status:   saveStatus(outcome),
	}})
}

// GetCampaign handles GET /api/v1/campaigns/{id}
func (h *CampaignHandler) GetCampaign(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if id == "" {
		httputil.WriteJSON(w, http.StatusBadRequest, httputil.Response{
			Error: &httputil.ErrorResponse{Code: "INVALID_INPUT", Message: "campaign id is required"},
		})
		return
	}

	campaign, schedules, err := h.service.GetCampaign(r.Context(), id)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, httputil.Response{Data: campaignResponse{
		Campaign:  campaign,
		Schedules: schedules,
	}})
}

// UpdateCampaign handles PUT /api/v1/campaigns/{id}
func (h *CampaignHandler) UpdateCampaign(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, 1<<20) // 1 MB limit
	id := chi.URLParam(r, "id")
	if id == "" {
		httputil.WriteJSON(w, http.StatusBadRequest, httputil.Response{
			Error: &httputil.ErrorResponse{Code: "INVALID_INPUT", Message: "campaign id is required"},
		})
		return
	}

	var req UpdateCampaignRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.WriteJSON(w, http.StatusBadRequest, httputil.Response{
			Error: &httputil.ErrorResponse{Code: "INVALID_INPUT", Message: "invalid request body: " + err.Error()},
		})
		return
	}

	if err := validator.Validate(req); err != nil {
		httputil.WriteValidationError(w, err)
		return
	}

	input := service.UpdateCampaignInput{
		Name:               req.Name,
		Description:        req.Description,
		FinePrint:          req.FinePrint,
		Policies:           req.Policies,
		UnitPrice:          req.UnitPrice,
		DiscountPrice:      req.DiscountPrice,
		PointPrice:         req.PointPrice,
		DiscountPointPrice: req.DiscountPointPrice,
		ExpiryDays:         req.ExpiryDays,
		AgreementQuantity:  req.AgreementQuantity,
		CategoryIDs:        req.CategoryIDs,
		StoreIDs:           req.StoreIDs,
	}
	if req.Schedules != nil {
		schedules, err := parseSchedules(req.Schedules)
		if err != nil {
			httputil.WriteError(w, r, err, h.logger)
			return
		}
		input.Schedules = schedules
	}

	outcome, err := h.service.UpdateCampaign(r.Context(), id, input)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, httputil.Response{Data: saveResponse{
		Campaign: outcome.Campaign,
		Sync:     outcome.Sync,
		Status:   saveStatus(outcome),
	}})
}

// SyncCampaign handles POST /api/v1/campaigns/{id}/sync
func (h *CampaignHandler) SyncCampaign(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if id == "" {
		httputil.WriteJSON(w, http.StatusBadRequest, httputil.Response{
			Error: &httputil.ErrorResponse{Code: "INVALID_INPUT", Message: "campaign id is required"},
		})
		return
	}

	result, err := h.service.SyncCampaign(r.Context(), id)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	status := "completed"
	if !result.Success() {
		status = "completed_with_warnings"
	}
	httputil.WriteJSON(w, http.StatusOK, httputil.Response{Data: syncResponse{Result: result, Status: status}})
}

// --- Helpers ---

func parseSchedules(reqs []ScheduleRequest) ([]service.ScheduleInput, error) {
	inputs := make([]service.ScheduleInput, 0, len(reqs))
	for _, req := range reqs {
		startsAt, err := time.Parse(time.RFC3339, req.StartsAt)
		if err != nil {
			return nil, apperrors.InvalidInput("starts_at must be in RFC3339 format")
		}

		var endsAt time.Time
		if req.EndsAt != "" {
			endsAt, err = time.Parse(time.RFC3339, req.EndsAt)
			if err != nil {
				return nil, apperrors.InvalidInput("ends_at must be in RFC3339 format")
			}
		}

		var publishAt time.Time
		if req.PublishAt != "" {
			publishAt, err = time.Parse(time.RFC3339, req.PublishAt)
			if err != nil {
				return nil, apperrors.InvalidInput("publish_at must be in RFC3339 format")
			}
		}

		inputs = append(inputs, service.ScheduleInput{
			ID:         req.ID,
			StartsAt:   startsAt,
			EndsAt:     endsAt,
			Quantity:   req.Quantity,
			ExpiryDays: req.ExpiryDays,
			Status:     req.Status,
			PublishAt:  publishAt,
		})
	}
	return inputs, nil
}
