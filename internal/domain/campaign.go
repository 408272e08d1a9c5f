package domain

import (
	"time"
)

// Schedule status constants. An offer derives its own status from these plus
// the window timing, so the two sets intentionally share values.
const (
	ScheduleStatusDraft     = "draft"
	ScheduleStatusPublished = "published"
	ScheduleStatusArchived  = "archived"
)

// Campaign is a merchant's reusable promotional product definition. It is
// never sold directly; the sync engine projects it into offers, one per
// selling window.
type Campaign struct {
	ID          string `json:"id"`
	MerchantID  string `json:"merchant_id"`
	SKU         string `json:"sku"`
	Name        string `json:"name"`
	Description string `json:"description"`
	FinePrint   string `json:"fine_print"`
	Policies    string `json:"policies"`

	// Prices are in minor units (cents); point prices in loyalty points.
	UnitPrice          int64 `json:"unit_price"`
	DiscountPrice      int64 `json:"discount_price"`
	PointPrice         int64 `json:"point_price"`
	DiscountPointPrice int64 `json:"discount_point_price"`

	// ExpiryDays is the default voucher validity window; a schedule may
	// override it per selling window.
	ExpiryDays int `json:"expiry_days"`

	// AgreementQuantity is the campaign-wide voucher ceiling negotiated with
	// the merchant. Nil means unlimited.
	AgreementQuantity *int `json:"agreement_quantity,omitempty"`

	CategoryIDs []string `json:"category_ids"`
	StoreIDs    []string `json:"store_ids"`

	CreatedAt time.Time  `json:"created_at"`
	UpdatedAt time.Time  `json:"updated_at"`
	DeletedAt *time.Time `json:"deleted_at,omitempty"`
}

// Schedule is a time-boxed selling window belonging to exactly one campaign.
type Schedule struct {
	ID         string    `json:"id"`
	CampaignID string    `json:"campaign_id"`
	StartsAt   time.Time `json:"starts_at"`
	EndsAt     time.Time `json:"ends_at"`
	Quantity   int       `json:"quantity"`

	// ExpiryDays overrides the campaign default when set.
	ExpiryDays *int `json:"expiry_days,omitempty"`

	Status    string    `json:"status"`
	PublishAt time.Time `json:"publish_at"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Elapsed reports whether the selling window has fully passed. A schedule
// with a zero EndsAt is a one-off window that elapses at StartsAt.
func (s *Schedule) Elapsed(now time.Time) bool {
	if s.EndsAt.IsZero() {
		return !now.Before(s.StartsAt)
	}
	return !now.Before(s.EndsAt)
}

// Open reports whether the window has started and not yet elapsed.
func (s *Schedule) Open(now time.Time) bool {
	return !now.Before(s.StartsAt) && !s.Elapsed(now)
}

// VoucherExpiryDays resolves the per-window override against the campaign
// default.
func (s *Schedule) VoucherExpiryDays(c *Campaign) int {
	if s.ExpiryDays != nil {
		return *s.ExpiryDays
	}
	return c.ExpiryDays
}

// Overlaps reports whether two windows of the same campaign intersect.
func (s *Schedule) Overlaps(other *Schedule) bool {
	return s.StartsAt.Before(other.EndsAt) && other.StartsAt.Before(s.EndsAt)
}
