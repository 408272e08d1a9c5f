package http

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/offerhub/offerhub/internal/domain"
	"github.com/offerhub/offerhub/internal/service"
	"github.com/offerhub/offerhub/pkg/httputil"
	"github.com/offerhub/offerhub/pkg/validator"
)

// OfferHandler handles HTTP requests for offer and voucher endpoints.
type OfferHandler struct {
	service *service.OfferService
	logger  *slog.Logger
}

// NewOfferHandler creates a new offer HTTP handler.
func NewOfferHandler(svc *service.OfferService, logger *slog.Logger) *OfferHandler {
	return &OfferHandler{
		service: svc,
		logger:  logger,
	}
}

// ClaimVoucherRequest is the JSON request body for claiming a voucher.
type ClaimVoucherRequest struct {
	OwnerID string `json:"owner_id" validate:"required,uuid"`
}

// offerResponse bundles an offer with its voucher pool counts.
type offerResponse struct {
	Offer    *domain.Offer `json:"offer"`
	Vouchers struct {
		Total     int `json:"total"`
		Unclaimed int `json:"unclaimed"`
		Claimed   int `json:"claimed"`
	} `json:"vouchers"`
}

// GetOffer handles GET /api/v1/offers/{id}
func (h *OfferHandler) GetOffer(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if id == "" {
		httputil.WriteJSON(w, http.StatusBadRequest, httputil.Response{
			Error: &httputil.ErrorResponse{Code: "INVALID_INPUT", Message: "offer id is required"},
		})
		return
	}

	offer, counts, err := h.service.GetOffer(r.Context(), id)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	resp := offerResponse{Offer: offer}
	resp.Vouchers.Total = counts.Total
	resp.Vouchers.Unclaimed = counts.Unclaimed
	resp.Vouchers.Claimed = counts.Claimed()
	httputil.WriteJSON(w, http.StatusOK, httputil.Response{Data: resp})
}

// ListCampaignOffers handles GET /api/v1/campaigns/{id}/offers
func (h *OfferHandler) ListCampaignOffers(w http.ResponseWriter, r *http.Request) {
	campaignID := chi.URLParam(r, "id")
	if campaignID == "" {
		httputil.WriteJSON(w, http.StatusBadRequest, httputil.Response{
			Error: &httputil.ErrorResponse{Code: "INVALID_INPUT", Message: "campaign id is required"},
		})
		return
	}

	offers, err := h.service.ListCampaignOffers(r.Context(), campaignID)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, httputil.Response{Data: offers})
}

// ClaimVoucher handles POST /api/v1/offers/{id}/claim
func (h *OfferHandler) ClaimVoucher(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, 1<<20) // 1 MB limit
	offerID := chi.URLParam(r, "id")
	if offerID == "" {
		httputil.WriteJSON(w, http.StatusBadRequest, httputil.Response{
			Error: &httputil.ErrorResponse{Code: "INVALID_INPUT", Message: "offer id is required"},
		})
		return
	}

	var req ClaimVoucherRequest
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

	voucher, err := h.service.ClaimVoucher(r.Context(), offerID, req.OwnerID)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, httputil.Response{Data: voucher})
}

// ListOwnerVouchers handles GET /api/v1/owners/{ownerId}/vouchers
func (h *OfferHandler) ListOwnerVouchers(w http.ResponseWriter, r *http.Request) {
	ownerID := chi.URLParam(r, "ownerId")
	if ownerID == "" {
		httputil.WriteJSON(w, http.StatusBadRequest, httputil.Response{
			Error: &httputil.ErrorResponse{Code: "INVALID_INPUT", Message: "owner id is required"},
		})
		return
	}

	vouchers, err := h.service.ListOwnerVouchers(r.Context(), ownerID)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, httputil.Response{Data: vouchers})
}
