package domain

import "time"

// Voucher is one redeemable unit of an offer's inventory. Once claimed, its
// identity (code, owning offer) is immutable to the sync engine: claimed
// vouchers are never deleted, recoded, or moved between offers.
type Voucher struct {
	ID         string     `json:"id"`
	OfferID    string     `json:"offer_id"`
	CampaignID string     `json:"campaign_id"`
	Code       string     `json:"code"`
	OwnerID    *string    `json:"owner_id,omitempty"`
	ClaimedAt  *time.Time `json:"claimed_at,omitempty"`
	ExpiresAt  *time.Time `json:"expires_at,omitempty"`
	CreatedAt  time.Time  `json:"created_at"`
}

// Claimed reports whether the voucher has been assigned to a buyer.
func (v *Voucher) Claimed() bool {
	return v.OwnerID != nil
}

// VoucherCounts summarizes an offer's voucher pool.
type VoucherCounts struct {
	Total     int `json:"total"`
	Unclaimed int `json:"unclaimed"`
}

// Claimed returns the number of claimed vouchers.
func (c VoucherCounts) Claimed() int {
	return c.Total - c.Unclaimed
}
