// Package memory implements the repository interfaces in process memory.
// It backs the sync engine and service tests, mirroring the PostgreSQL
// implementation's semantics including transactional rollback.
package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/offerhub/offerhub/internal/domain"
	"github.com/offerhub/offerhub/internal/repository"
	apperrors "github.com/offerhub/offerhub/pkg/errors"
)

// Store holds all state in maps guarded by one mutex. Values are stored by
// value so snapshots are plain map copies.
type Store struct {
	mu sync.Mutex

	campaigns      map[string]domain.Campaign
	schedules      map[string]domain.Schedule
	offers         map[string]domain.Offer
	vouchers       map[string]domain.Voucher
	campaignAssets map[string][]domain.Asset
	offerAssets    map[string][]domain.Asset
	offerTags      map[string]map[string][]string

	inTx bool
}

// NewStore creates an empty in-memory store.
func NewStore() *Store {
	return &Store{
		campaigns:      make(map[string]domain.Campaign),
		schedules:      make(map[string]domain.Schedule),
		offers:         make(map[string]domain.Offer),
		vouchers:       make(map[string]domain.Voucher),
		campaignAssets: make(map[string][]domain.Asset),
		offerAssets:    make(map[string][]domain.Asset),
		offerTags:      make(map[string]map[string][]string),
	}
}

func (s *Store) Campaigns() repository.CampaignRepository { return &campaignRepo{s} }
func (s *Store) Schedules() repository.ScheduleRepository { return &scheduleRepo{s} }
func (s *Store) Offers() repository.OfferRepository       { return &offerRepo{s} }
func (s *Store) Vouchers() repository.VoucherRepository   { return &voucherRepo{s} }
func (s *Store) Assets() repository.AssetRepository       { return &assetRepo{s} }
func (s *Store) Tags() repository.TagRepository           { return &tagRepo{s} }

// WithinTx snapshots the maps, runs fn, and restores the snapshot if fn
// fails. Nested calls join the enclosing transaction.
func (s *Store) WithinTx(ctx context.Context, fn func(repository.Store) error) error {
	if s.inTx {
		return fn(s)
	}

	s.mu.Lock()
	snap := s.snapshot()
	s.inTx = true
	s.mu.Unlock()

	err := fn(s)

	s.mu.Lock()
	if err != nil {
		s.restore(snap)
	}
	s.inTx = false
	s.mu.Unlock()

	return err
}

type snapshotState struct {
	campaigns      map[string]domain.Campaign
	schedules      map[string]domain.Schedule
	offers         map[string]domain.Offer
	vouchers       map[string]domain.Voucher
	campaignAssets map[string][]domain.Asset
	offerAssets    map[string][]domain.Asset
	offerTags      map[string]map[string][]string
}

func (s *Store) snapshot() snapshotState {
	snap := snapshotState{
		campaigns:      make(map[string]domain.Campaign, len(s.campaigns)),
		schedules:      make(map[string]domain.Schedule, len(s.schedules)),
		offers:         make(map[string]domain.Offer, len(s.offers)),
		vouchers:       make(map[string]domain.Voucher, len(s.vouchers)),
		campaignAssets: make(map[string][]domain.Asset, len(s.campaignAssets)),
		offerAssets:    make(map[string][]domain.Asset, len(s.offerAssets)),
		offerTags:      make(map[string]map[string][]string, len(s.offerTags)),
	}
	for k, v := range s.campaigns {
		snap.campaigns[k] = v
	}
	for k, v := range s.schedules {
		snap.schedules[k] = v
	}
	for k, v := range s.offers {
		snap.offers[k] = v
	}
	for k, v := range s.vouchers {
		snap.vouchers[k] = v
	}
	for k, v := range s.campaignAssets {
		snap.campaignAssets[k] = append([]domain.Asset(nil), v...)
	}
	for k, v := range s.offerAssets {
		snap.offerAssets[k] = append([]domain.Asset(nil), v...)
	}
	for k, kinds := range s.offerTags {
		copied := make(map[string][]string, len(kinds))
		for kind, ids := range kinds {
			copied[kind] = append([]string(nil), ids...)
		}
		snap.offerTags[k] = copied
	}
	return snap
}

func (s *Store) restore(snap snapshotState) {
	s.campaigns = snap.campaigns
	s.schedules = snap.schedules
	s.offers = snap.offers
	s.vouchers = snap.vouchers
	s.campaignAssets = snap.campaignAssets
	s.offerAssets = snap.offerAssets
	s.offerTags = snap.offerTags
}

// SeedCampaign inserts a campaign directly, for test setup.
func (s *Store) SeedCampaign(c domain.Campaign) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.campaigns[c.ID] = c
}

// SeedSchedule inserts a schedule directly, for test setup.
func (s *Store) SeedSchedule(sc domain.Schedule) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.schedules[sc.ID] = sc
}

// SeedOffer inserts an offer directly, for test setup.
func (s *Store) SeedOffer(o domain.Offer) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.offers[o.ID] = o
}

// SeedVoucher inserts a voucher directly, for test setup.
func (s *Store) SeedVoucher(v domain.Voucher) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.vouchers[v.ID] = v
}

// SeedCampaignAsset attaches a media asset to a campaign, for test setup.
func (s *Store) SeedCampaignAsset(campaignID string, a domain.Asset) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.campaignAssets[campaignID] = append(s.campaignAssets[campaignID], a)
}

type campaignRepo struct{ s *Store }

func (r *campaignRepo) Create(ctx context.Context, c *domain.Campaign) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.campaigns[c.ID]; ok {
		return apperrors.AlreadyExists("campaign", "id", c.ID)
	}
	for _, existing := range r.s.campaigns {
		if existing.SKU == c.SKU && existing.DeletedAt == nil {
			return apperrors.AlreadyExists("campaign", "sku", c.SKU)
		}
	}
	r.s.campaigns[c.ID] = *c
	return nil
}

func (r *campaignRepo) Update(ctx context.Context, c *domain.Campaign) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.campaigns[c.ID]; !ok {
		return apperrors.NotFound("campaign", c.ID)
	}
	r.s.campaigns[c.ID] = *c
	return nil
}

func (r *campaignRepo) GetByID(ctx context.Context, id string) (*domain.Campaign, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	c, ok := r.s.campaigns[id]
	if !ok || c.DeletedAt != nil {
		return nil, apperrors.ErrNotFound
	}
	out := c
	return &out, nil
}

// LockForSync behaves as GetByID; the store mutex already serializes callers.
func (r *campaignRepo) LockForSync(ctx context.Context, id string) (*domain.Campaign, error) {
	return r.GetByID(ctx, id)
}

func (r *campaignRepo) ListUpdatedSince(ctx context.Context, since time.Time) ([]domain.Campaign, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var out []domain.Campaign
	for _, c := range r.s.campaigns {
		if c.DeletedAt == nil && !c.UpdatedAt.Before(since) {
			out = append(out, c)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].UpdatedAt.Before(out[j].UpdatedAt) })
	return out, nil
}

type scheduleRepo struct{ s *Store }

func (r *scheduleRepo) ListByCampaign(ctx context.Context, campaignID string) ([]domain.Schedule, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var out []domain.Schedule
	for _, sc := range r.s.schedules {
		if sc.CampaignID == campaignID {
			out = append(out, sc)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].StartsAt.Equal(out[j].StartsAt) {
			return out[i].ID < out[j].ID
		}
		return out[i].StartsAt.Before(out[j].StartsAt)
	})
	return out, nil
}

func (r *scheduleRepo) Replace(ctx context.Context, campaignID string, schedules []domain.Schedule) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	keep := make(map[string]struct{}, len(schedules))
	for _, sc := range schedules {
		keep[sc.ID] = struct{}{}
		r.s.schedules[sc.ID] = sc
	}
	for id, sc := range r.s.schedules {
		if sc.CampaignID != campaignID {
			continue
		}
		if _, ok := keep[id]; !ok {
			delete(r.s.schedules, id)
		}
	}
	return nil
}

func (r *scheduleRepo) UpdateQuantity(ctx context.Context, id string, quantity int) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	sc, ok := r.s.schedules[id]
	if !ok {
		return apperrors.NotFound("schedule", id)
	}
	sc.Quantity = quantity
	r.s.schedules[id] = sc
	return nil
}

type offerRepo struct{ s *Store }

func (r *offerRepo) Create(ctx context.Context, o *domain.Offer) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, existing := range r.s.offers {
		if existing.ScheduleID == o.ScheduleID && !existing.Archived() && !o.Archived() {
			return apperrors.AlreadyExists("offer", "schedule_id", o.ScheduleID)
		}
	}
	r.s.offers[o.ID] = *o
	return nil
}

func (r *offerRepo) Update(ctx context.Context, o *domain.Offer) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.offers[o.ID]; !ok {
		return apperrors.NotFound("offer", o.ID)
	}
	r.s.offers[o.ID] = *o
	return nil
}

func (r *offerRepo) GetByID(ctx context.Context, id string) (*domain.Offer, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	o, ok := r.s.offers[id]
	if !ok {
		return nil, apperrors.ErrNotFound
	}
	out := o
	return &out, nil
}

func (r *offerRepo) GetLiveByScheduleID(ctx context.Context, scheduleID string) (*domain.Offer, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, o := range r.s.offers {
		if o.ScheduleID == scheduleID && !o.Archived() {
			out := o
			return &out, nil
		}
	}
	return nil, apperrors.ErrNotFound
}

func (r *offerRepo) GetByScheduleID(ctx context.Context, scheduleID string) (*domain.Offer, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var found *domain.Offer
	for _, o := range r.s.offers {
		if o.ScheduleID != scheduleID {
			continue
		}
		out := o
		if !o.Archived() {
			return &out, nil
		}
		if found == nil || out.UpdatedAt.After(found.UpdatedAt) {
			found = &out
		}
	}
	if found == nil {
		return nil, apperrors.ErrNotFound
	}
	return found, nil
}

func (r *offerRepo) ListByCampaign(ctx context.Context, campaignID string) ([]domain.Offer, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var out []domain.Offer
	for _, o := range r.s.offers {
		if o.CampaignID == campaignID {
			out = append(out, o)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].AvailableAt.Equal(out[j].AvailableAt) {
			return out[i].ID < out[j].ID
		}
		return out[i].AvailableAt.Before(out[j].AvailableAt)
	})
	return out, nil
}

func (r *offerRepo) RefreshContent(ctx context.Context, campaignID string, content domain.OfferContent) (int64, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var touched int64
	for id, o := range r.s.offers {
		if o.CampaignID != campaignID {
			continue
		}
		o.OfferContent = content
		o.UpdatedAt = time.Now().UTC()
		r.s.offers[id] = o
		touched++
	}
	return touched, nil
}

func (r *offerRepo) Archive(ctx context.Context, id string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	o, ok := r.s.offers[id]
	if !ok {
		return apperrors.NotFound("offer", id)
	}
	o.Status = domain.OfferStatusArchived
	o.UpdatedAt = time.Now().UTC()
	r.s.offers[id] = o
	return nil
}

func (r *offerRepo) UpdateQuantity(ctx context.Context, id string, quantity int) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	o, ok := r.s.offers[id]
	if !ok {
		return apperrors.NotFound("offer", id)
	}
	o.Quantity = quantity
	r.s.offers[id] = o
	return nil
}

type voucherRepo struct{ s *Store }

func (r *voucherRepo) CountsByOffer(ctx context.Context, offerID string) (domain.VoucherCounts, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var counts domain.VoucherCounts
	for _, v := range r.s.vouchers {
		if v.OfferID != offerID {
			continue
		}
		counts.Total++
		if !v.Claimed() {
			counts.Unclaimed++
		}
	}
	return counts, nil
}

func (r *voucherRepo) CountByCampaign(ctx context.Context, campaignID string) (int, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	count := 0
	for _, v := range r.s.vouchers {
		if v.CampaignID == campaignID {
			count++
		}
	}
	return count, nil
}

func (r *voucherRepo) CreateBatch(ctx context.Context, vouchers []domain.Voucher) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	codes := make(map[string]struct{}, len(r.s.vouchers))
	for _, v := range r.s.vouchers {
		codes[v.Code] = struct{}{}
	}
	for _, v := range vouchers {
		if _, ok := codes[v.Code]; ok {
			return apperrors.AlreadyExists("voucher", "code", v.Code)
		}
		codes[v.Code] = struct{}{}
	}
	for _, v := range vouchers {
		r.s.vouchers[v.ID] = v
	}
	return nil
}

func (r *voucherRepo) DeleteUnclaimed(ctx context.Context, offerID string, limit int) (int, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if limit <= 0 {
		return 0, nil
	}
	candidates := r.unclaimedLocked(offerID)
	if len(candidates) > limit {
		candidates = candidates[:limit]
	}
	for _, v := range candidates {
		delete(r.s.vouchers, v.ID)
	}
	return len(candidates), nil
}

func (r *voucherRepo) ExistingCodes(ctx context.Context, codes []string) (map[string]struct{}, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	want := make(map[string]struct{}, len(codes))
	for _, c := range codes {
		want[c] = struct{}{}
	}
	existing := make(map[string]struct{})
	for _, v := range r.s.vouchers {
		if _, ok := want[v.Code]; ok {
			existing[v.Code] = struct{}{}
		}
	}
	return existing, nil
}

func (r *voucherRepo) HasClaimed(ctx context.Context, offerID string) (bool, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, v := range r.s.vouchers {
		if v.OfferID == offerID && v.Claimed() {
			return true, nil
		}
	}
	return false, nil
}

func (r *voucherRepo) LockOldestUnclaimed(ctx context.Context, offerID string) (*domain.Voucher, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	candidates := r.unclaimedLocked(offerID)
	if len(candidates) == 0 {
		return nil, apperrors.ErrNotFound
	}
	out := candidates[0]
	return &out, nil
}

func (r *voucherRepo) MarkClaimed(ctx context.Context, voucherID, ownerID string, claimedAt, expiresAt time.Time) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	v, ok := r.s.vouchers[voucherID]
	if !ok {
		return apperrors.NotFound("voucher", voucherID)
	}
	if v.Claimed() {
		return apperrors.Conflict(fmt.Sprintf("voucher %s is already claimed", voucherID))
	}
	v.OwnerID = &ownerID
	v.ClaimedAt = &claimedAt
	v.ExpiresAt = &expiresAt
	r.s.vouchers[voucherID] = v
	return nil
}

func (r *voucherRepo) ListByOwner(ctx context.Context, ownerID string) ([]domain.Voucher, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var out []domain.Voucher
	for _, v := range r.s.vouchers {
		if v.OwnerID != nil && *v.OwnerID == ownerID {
			out = append(out, v)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ClaimedAt.After(*out[j].ClaimedAt) })
	return out, nil
}

// unclaimedLocked returns the offer's unclaimed vouchers oldest-created-first.
// Caller holds the store mutex.
func (r *voucherRepo) unclaimedLocked(offerID string) []domain.Voucher {
	var out []domain.Voucher
	for _, v := range r.s.vouchers {
		if v.OfferID == offerID && !v.Claimed() {
			out = append(out, v)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID < out[j].ID
		}
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out
}

type assetRepo struct{ s *Store }

func (r *assetRepo) ListCampaignAssets(ctx context.Context, campaignID string) ([]domain.Asset, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	return append([]domain.Asset(nil), r.s.campaignAssets[campaignID]...), nil
}

func (r *assetRepo) ListOfferAssetIDs(ctx context.Context, offerID string) ([]string, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var ids []string
	for _, a := range r.s.offerAssets[offerID] {
		ids = append(ids, a.ID)
	}
	sort.Strings(ids)
	return ids, nil
}

func (r *assetRepo) AttachToOffer(ctx context.Context, offerID string, asset domain.Asset) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, a := range r.s.offerAssets[offerID] {
		if a.ID == asset.ID {
			return nil
		}
	}
	r.s.offerAssets[offerID] = append(r.s.offerAssets[offerID], asset)
	return nil
}

type tagRepo struct{ s *Store }

func (r *tagRepo) ReplaceOfferTags(ctx context.Context, offerID, kind string, tagIDs []string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	kinds, ok := r.s.offerTags[offerID]
	if !ok {
		kinds = make(map[string][]string)
		r.s.offerTags[offerID] = kinds
	}
	kinds[kind] = append([]string(nil), tagIDs...)
	return nil
}

func (r *tagRepo) ListOfferTagIDs(ctx context.Context, offerID, kind string) ([]string, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	kinds := r.s.offerTags[offerID]
	out := append([]string(nil), kinds[kind]...)
	sort.Strings(out)
	return out, nil
}
