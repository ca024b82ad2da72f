package domain

import (
	"context"
	"time"
)

type ListingRepository interface {
	// Write paths
	CreateListing(ctx context.Context, l Listing) error
	UpdateListing(ctx context.Context, l Listing) error
	// TransitionStatus moves a listing to `to` only if its current status is one of `from`;
	// otherwise it returns ErrConflict.
	TransitionStatus(ctx context.Context, id string, from []string, to string, note *string) error
	UpsertSyncedListing(ctx context.Context, l Listing) error
	LogSyncMiss(ctx context.Context, id string, reason string) error
	SetSyncWatermark(ctx context.Context, name string, at time.Time) error

	// Read paths
	GetListing(ctx context.Context, id string) (Listing, error)
	GetListingBySlug(ctx context.Context, slug string) (Listing, error)
	SlugExists(ctx context.Context, slug string) (bool, error)
	SearchListings(ctx context.Context, q ListingQuery) (ListingsPage, error)
	CountByStatus(ctx context.Context, ownerID string) (map[string]int, error)
	ListFeatured(ctx context.Context, ownerID string) ([]Listing, error)
	ListByStatus(ctx context.Context, status string, limit int) ([]Listing, error)
	GetSyncWatermark(ctx context.Context, name string) (time.Time, error)
}

type StayRepository interface {
	GetShortletSettings(ctx context.Context, listingID string) (ShortletSettings, error)
	// CreateBooking fails with ErrUnavailable when the stay overlaps a pending or confirmed booking.
	CreateBooking(ctx context.Context, b Booking) error
	GetBooking(ctx context.Context, id string) (Booking, error)
	TransitionBooking(ctx context.Context, id string, from []string, to string) error
	ListBookedRanges(ctx context.Context, listingID string, from, to time.Time) ([]DateRange, error)
}

type BillingRepository interface {
	GetBillingAccount(ctx context.Context, ownerID string) (BillingAccount, error)
	// FeatureListing debits one credit and extends featured_until in one transaction.
	// A repeated idempotency key replays the original result without a second debit.
	FeatureListing(ctx context.Context, req FeatureRequest) (FeatureResult, error)
}

type ReferralRepository interface {
	GetReferralAccount(ctx context.Context, userID string, now time.Time) (ReferralAccount, error)
	CreateCashout(ctx context.Context, c Cashout) error
	ListCashouts(ctx context.Context, status string, limit int) ([]Cashout, error)
}

type LegalRepository interface {
	CurrentDocuments(ctx context.Context) ([]LegalDocument, error)
	AcceptedVersions(ctx context.Context, userID string) (map[string]int, error)
	AcceptDocument(ctx context.Context, userID, doc string, version int, at time.Time) error
}

// ListingSource is the hosted platform the syncer pulls listings from.
type ListingSource interface {
	ChangedListingIDs(ctx context.Context, since time.Time, limit int) ([]ChangedRef, error)
	GetListingRow(ctx context.Context, id string) (map[string]any, error)
}

// StatusMirror pushes local status changes back to the hosted platform.
type StatusMirror interface {
	PushStatus(ctx context.Context, id, status string) error
}

type ChangedRef struct {
	ID        string    `json:"id"`
	UpdatedAt time.Time `json:"updated_at"`
}

type Cache interface {
	Get(ctx context.Context, key string, dst any) (bool, error)
	Set(ctx context.Context, key string, v any, ttlSec int) error
	Del(ctx context.Context, key string) error
}
