package app_test

import (
	"context"
	"encoding/json"
	"fmt"
	"slices"
	"sort"
	"strings"
	"sync"
	"time"

	"rentbay/internal/domain"
)

// ---- in-memory store implementing every repository port ----

type fakeStore struct {
	mu        sync.Mutex
	listings  map[string]domain.Listing
	accounts  map[string]domain.BillingAccount
	ledger    map[string]domain.LedgerEntry
	settings  map[string]domain.ShortletSettings
	bookings  map[string]domain.Booking
	referrals map[string]domain.ReferralAccount
	cashouts  []domain.Cashout
	docs      []domain.LegalDocument
	accepted  map[string]map[string]int
	misses    map[string]string
	upserts   int
	watermark time.Time

	searchCalls int
	failUpsert  map[string]bool
}

func newStore() *fakeStore {
	return &fakeStore{
		listings:   map[string]domain.Listing{},
		accounts:   map[string]domain.BillingAccount{},
		ledger:     map[string]domain.LedgerEntry{},
		settings:   map[string]domain.ShortletSettings{},
		bookings:   map[string]domain.Booking{},
		referrals:  map[string]domain.ReferralAccount{},
		accepted:   map[string]map[string]int{},
		misses:     map[string]string{},
		failUpsert: map[string]bool{},
	}
}

func (f *fakeStore) put(l domain.Listing) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.listings[l.ID] = l
}

func (f *fakeStore) CreateListing(ctx context.Context, l domain.Listing) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, x := range f.listings {
		if x.Slug == l.Slug {
			return domain.ErrConflict
		}
	}
	f.listings[l.ID] = l
	return nil
}

func (f *fakeStore) UpdateListing(ctx context.Context, l domain.Listing) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.listings[l.ID]; !ok {
		return domain.ErrNotFound
	}
	f.listings[l.ID] = l
	return nil
}

func (f *fakeStore) TransitionStatus(ctx context.Context, id string, from []string, to string, note *string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	l, ok := f.listings[id]
	if !ok {
		return domain.ErrNotFound
	}
	if !slices.Contains(from, l.Status) {
		return domain.ErrConflict
	}
	l.Status = to
	if note != nil {
		l.ReviewNote = note
	}
	f.listings[id] = l
	return nil
}

func (f *fakeStore) UpsertSyncedListing(ctx context.Context, l domain.Listing) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failUpsert[l.ID] {
		return fmt.Errorf("disk full")
	}
	f.listings[l.ID] = l
	f.upserts++
	return nil
}

func (f *fakeStore) LogSyncMiss(ctx context.Context, id string, reason string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.misses[id] = reason
	return nil
}

func (f *fakeStore) SetSyncWatermark(ctx context.Context, name string, at time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if at.After(f.watermark) {
		f.watermark = at
	}
	return nil
}

func (f *fakeStore) GetSyncWatermark(ctx context.Context, name string) (time.Time, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.watermark, nil
}

func (f *fakeStore) GetListing(ctx context.Context, id string) (domain.Listing, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	l, ok := f.listings[id]
	if !ok {
		return domain.Listing{}, domain.ErrNotFound
	}
	return l, nil
}

func (f *fakeStore) GetListingBySlug(ctx context.Context, slug string) (domain.Listing, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, l := range f.listings {
		if l.Slug == slug {
			return l, nil
		}
	}
	return domain.Listing{}, domain.ErrNotFound
}

func (f *fakeStore) SlugExists(ctx context.Context, slug string) (bool, error) {
	_, err := f.GetListingBySlug(ctx, slug)
	return err == nil, nil
}

func (f *fakeStore) SearchListings(ctx context.Context, q domain.ListingQuery) (domain.ListingsPage, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.searchCalls++
	var items []domain.Listing
	for _, l := range f.listings {
		if l.Status != domain.StatusLive {
			continue
		}
		if q.City != "" && !strings.EqualFold(q.City, l.City) {
			continue
		}
		items = append(items, l)
	}
	sort.Slice(items, func(i, j int) bool { return items[i].ID < items[j].ID })
	return domain.ListingsPage{Items: items, Total: len(items), Limit: q.Limit, Offset: q.Offset}, nil
}

func (f *fakeStore) CountByStatus(ctx context.Context, ownerID string) (map[string]int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := map[string]int{}
	for _, l := range f.listings {
		if l.OwnerID == ownerID {
			out[l.Status]++
		}
	}
	return out, nil
}

func (f *fakeStore) ListFeatured(ctx context.Context, ownerID string) ([]domain.Listing, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []domain.Listing
	for _, l := range f.listings {
		if l.FeaturedUntil != nil && (ownerID == "" || l.OwnerID == ownerID) {
			out = append(out, l)
		}
	}
	return out, nil
}

func (f *fakeStore) ListByStatus(ctx context.Context, status string, limit int) ([]domain.Listing, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []domain.Listing
	for _, l := range f.listings {
		if l.Status == status {
			out = append(out, l)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].UpdatedAt.Before(out[j].UpdatedAt) })
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (f *fakeStore) GetShortletSettings(ctx context.Context, listingID string) (domain.ShortletSettings, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	s, ok := f.settings[listingID]
	if !ok {
		return domain.ShortletSettings{}, domain.ErrNotFound
	}
	return s, nil
}

func (f *fakeStore) CreateBooking(ctx context.Context, b domain.Booking) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	stay := domain.DateRange{From: b.CheckIn, To: b.CheckOut}
	for _, x := range f.bookings {
		if x.ListingID != b.ListingID || (x.Status != domain.BookingPending && x.Status != domain.BookingConfirmed) {
			continue
		}
		if stay.Overlaps(domain.DateRange{From: x.CheckIn, To: x.CheckOut}) {
			return domain.ErrUnavailable
		}
	}
	f.bookings[b.ID] = b
	return nil
}

func (f *fakeStore) GetBooking(ctx context.Context, id string) (domain.Booking, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	b, ok := f.bookings[id]
	if !ok {
		return domain.Booking{}, domain.ErrNotFound
	}
	return b, nil
}

func (f *fakeStore) TransitionBooking(ctx context.Context, id string, from []string, to string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	b, ok := f.bookings[id]
	if !ok {
		return domain.ErrNotFound
	}
	if !slices.Contains(from, b.Status) {
		return domain.ErrConflict
	}
	b.Status = to
	f.bookings[id] = b
	return nil
}

// ListBookedRanges returns every active booking on the listing; callers filter by overlap.
func (f *fakeStore) ListBookedRanges(ctx context.Context, listingID string, from, to time.Time) ([]domain.DateRange, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []domain.DateRange
	for _, b := range f.bookings {
		if b.ListingID == listingID && (b.Status == domain.BookingPending || b.Status == domain.BookingConfirmed) {
			out = append(out, domain.DateRange{From: b.CheckIn, To: b.CheckOut})
		}
	}
	return out, nil
}

func (f *fakeStore) GetBillingAccount(ctx context.Context, ownerID string) (domain.BillingAccount, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	a, ok := f.accounts[ownerID]
	if !ok {
		return domain.BillingAccount{}, domain.ErrNotFound
	}
	return a, nil
}

func (f *fakeStore) FeatureListing(ctx context.Context, req domain.FeatureRequest) (domain.FeatureResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	key := req.OwnerID + "|" + req.IdempotencyKey
	if e, ok := f.ledger[key]; ok {
		return domain.FeatureResult{FeaturedUntil: *f.listings[req.ListingID].FeaturedUntil, Entry: e, Replayed: true}, nil
	}
	a, ok := f.accounts[req.OwnerID]
	if !ok || a.Credits < 1 {
		return domain.FeatureResult{}, domain.ErrInsufficientCredits
	}
	l, ok := f.listings[req.ListingID]
	if !ok {
		return domain.FeatureResult{}, domain.ErrNotFound
	}
	if l.OwnerID != req.OwnerID {
		return domain.FeatureResult{}, domain.ErrForbidden
	}
	start := req.Now
	if l.FeaturedUntil != nil && l.FeaturedUntil.After(start) {
		start = *l.FeaturedUntil
	}
	until := start.Add(req.Duration)
	l.FeaturedUntil = &until
	f.listings[l.ID] = l
	a.Credits--
	f.accounts[a.OwnerID] = a
	e := domain.LedgerEntry{ID: fmt.Sprintf("e%d", len(f.ledger)+1), OwnerID: a.OwnerID, Delta: -1, IdempotencyKey: req.IdempotencyKey, BalanceAfter: a.Credits}
	f.ledger[key] = e
	return domain.FeatureResult{FeaturedUntil: until, Entry: e}, nil
}

func (f *fakeStore) GetReferralAccount(ctx context.Context, userID string, now time.Time) (domain.ReferralAccount, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	a, ok := f.referrals[userID]
	if !ok {
		return domain.ReferralAccount{}, domain.ErrNotFound
	}
	return a, nil
}

func (f *fakeStore) CreateCashout(ctx context.Context, c domain.Cashout) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	a, ok := f.referrals[c.UserID]
	if !ok {
		return domain.ErrNotFound
	}
	if c.AmountMinor > a.AvailableMinor() {
		return fmt.Errorf("%w: amount exceeds available balance", domain.ErrConflict)
	}
	a.PendingMinor += c.AmountMinor
	f.referrals[c.UserID] = a
	f.cashouts = append(f.cashouts, c)
	return nil
}

func (f *fakeStore) ListCashouts(ctx context.Context, status string, limit int) ([]domain.Cashout, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []domain.Cashout
	for _, c := range f.cashouts {
		if c.Status == status {
			out = append(out, c)
		}
	}
	return out, nil
}

func (f *fakeStore) CurrentDocuments(ctx context.Context) ([]domain.LegalDocument, error) {
	return f.docs, nil
}

func (f *fakeStore) AcceptedVersions(ctx context.Context, userID string) (map[string]int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := map[string]int{}
	for k, v := range f.accepted[userID] {
		out[k] = v
	}
	return out, nil
}

func (f *fakeStore) AcceptDocument(ctx context.Context, userID, doc string, version int, at time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.accepted[userID] == nil {
		f.accepted[userID] = map[string]int{}
	}
	f.accepted[userID][doc] = version
	return nil
}

// ---- cache: JSON round trip like the redis adapter ----

type fakeCache struct {
	mu    sync.Mutex
	store map[string][]byte
	dels  []string
}

func (c *fakeCache) Get(ctx context.Context, key string, dst any) (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	b, ok := c.store[key]
	if !ok {
		return false, nil
	}
	return true, json.Unmarshal(b, dst)
}

func (c *fakeCache) Set(ctx context.Context, key string, v any, ttlSec int) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.store == nil {
		c.store = map[string][]byte{}
	}
	b, err := json.Marshal(v)
	if err != nil {
		return err
	}
	c.store[key] = b
	return nil
}

func (c *fakeCache) Del(ctx context.Context, key string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.store, key)
	c.dels = append(c.dels, key)
	return nil
}

// ---- fixtures ----

var fixedNow = time.Date(2026, 6, 1, 6, 0, 0, 0, time.UTC)

func clock() time.Time { return fixedNow }

func ptr[T any](v T) *T { return &v }

func liveListing(id, owner, slug string) domain.Listing {
	return domain.Listing{
		ID: id, OwnerID: owner, Slug: slug,
		Title:             "Bright two bedroom flat",
		Description:       strings.Repeat("Spacious and quiet. ", 6),
		Kind:              domain.KindRent,
		Status:            domain.StatusLive,
		PriceMinor:        250_000_00,
		Currency:          "NGN",
		City:              "Lagos",
		Country:           "NG",
		Lat:               ptr(6.45),
		Lon:               ptr(3.39),
		LocationPrecision: domain.LocationExact,
		Bedrooms:          2,
		Bathrooms:         2,
		Photos:            []string{"1.jpg", "2.jpg", "3.jpg", "4.jpg", "5.jpg"},
		CoverImage:        ptr("1.jpg"),
		CreatedAt:         fixedNow.Add(-48 * time.Hour),
		UpdatedAt:         fixedNow.Add(-48 * time.Hour),
	}
}
