package domain

import (
	"fmt"
	"time"
)

// Offer status constants.
const (
	OfferStatusDraft     = "draft"
	OfferStatusPublished = "published"
	OfferStatusArchived  = "archived"
)

// OfferContent is the explicit whitelist of display and pricing fields copied
// from a campaign onto its offers at sync time. Adding a campaign column does
// not change sync behavior until the field is added here and to the offer
// repository's column list.
type OfferContent struct {
	Name               string `json:"name"`
	Description        string `json:"description"`
	FinePrint          string `json:"fine_print"`
	Policies           string `json:"policies"`
	UnitPrice          int64  `json:"unit_price"`
	DiscountPrice      int64  `json:"discount_price"`
	PointPrice         int64  `json:"point_price"`
	DiscountPointPrice int64  `json:"discount_point_price"`
}

// ContentFromCampaign builds the copyable content snapshot of a campaign.
func ContentFromCampaign(c *Campaign) OfferContent {
	return OfferContent{
		Name:               c.Name,
		Description:        c.Description,
		FinePrint:          c.FinePrint,
		Policies:           c.Policies,
		UnitPrice:          c.UnitPrice,
		DiscountPrice:      c.DiscountPrice,
		PointPrice:         c.PointPrice,
		DiscountPointPrice: c.DiscountPointPrice,
	}
}

// Offer is the sellable projection of one (campaign, schedule) pair.
// Quantity always equals the count of the offer's unclaimed vouchers.
type Offer struct {
	ID         string `json:"id"`
	CampaignID string `json:"campaign_id"`
	ScheduleID string `json:"schedule_id"`
	SKU        string `json:"sku"`

	OfferContent

	AvailableAt    time.Time `json:"available_at"`
	AvailableUntil time.Time `json:"available_until"`
	PublishAt      time.Time `json:"publish_at"`
	ExpiryDays     int       `json:"expiry_days"`
	Quantity       int       `json:"quantity"`
	Status         string    `json:"status"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Archived reports whether the offer has been soft-deleted.
func (o *Offer) Archived() bool {
	return o.Status == OfferStatusArchived
}

// OfferSKU derives the deterministic SKU for the offer backing the schedule
// at the given 1-based position in its campaign's schedule list.
func OfferSKU(campaignSKU string, position int) string {
	return fmt.Sprintf("%s-%02d", campaignSKU, position)
}

// OfferStatusForSchedule derives an offer's status from its schedule. An
// archived schedule pins the offer archived; otherwise the offer
// auto-publishes once the window opens and stays a draft before that,
// regardless of what the merchant set on the schedule.
func OfferStatusForSchedule(s *Schedule, now time.Time) string {
	if s.Status == ScheduleStatusArchived {
		return OfferStatusArchived
	}
	if !now.Before(s.StartsAt) {
		return OfferStatusPublished
	}
	return OfferStatusDraft
}
