package http

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/offerhub/offerhub/internal/service"
	"github.com/offerhub/offerhub/pkg/health"
	"github.com/offerhub/offerhub/pkg/middleware"
)

// NewRouter creates a chi router with all API routes registered.
func NewRouter(
	campaignService *service.CampaignService,
	offerService *service.OfferService,
	healthHandler *health.Handler,
	logger *slog.Logger,
) http.Handler {
	r := chi.NewRouter()

	// Global middleware
	r.Use(middleware.Recovery(logger))
	r.Use(chimw.Compress(5))
	r.Use(chimw.Timeout(60 * time.Second))
	r.Use(middleware.RequestLogging(logger))
	r.Use(middleware.RequestLogger(logger))
	r.Use(middleware.PrometheusMetrics("offerhub"))

	// Health check endpoints
	r.Get("/health/live", healthHandler.LivenessHandler())
	r.Get("/health/ready", healthHandler.ReadinessHandler())
	r.Get("/metrics", func(w http.ResponseWriter, r *http.Request) {
		promhttp.Handler().ServeHTTP(w, r)
	})

	campaignHandler := NewCampaignHandler(campaignService, logger)
	offerHandler := NewOfferHandler(offerService, logger)

	r.Route("/api/v1/campaigns", func(r chi.Router) {
		r.Use(ContentTypeJSON)

		r.Post("/", campaignHandler.CreateCampaign)
		r.Get("/{id}", campaignHandler.GetCampaign)
		r.Put("/{id}", campaignHandler.UpdateCampaign)
		r.Post("/{id}/sync", campaignHandler.SyncCampaign)
		r.Get("/{id}/offers", offerHandler.ListCampaignOffers)
	})

	r.Route("/api/v1/offers", func(r chi.Router) {
		r.Use(ContentTypeJSON)

		r.Get("/{id}", offerHandler.GetOffer)
		r.Post("/{id}/claim", offerHandler.ClaimVoucher)
	})

	r.Get("/api/v1/owners/{ownerId}/vouchers", offerHandler.ListOwnerVouchers)

	return r
}
