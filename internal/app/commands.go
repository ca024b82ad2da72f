package app

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"
	"unicode/utf8"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"rentbay/internal/adapters/observability"
	"rentbay/internal/billing"
	"rentbay/internal/domain"
	"rentbay/internal/format"
)

// ListingDraft is the editable part of a listing as submitted by its owner.
type ListingDraft struct {
	Title             string
	Description       string
	Kind              string
	PriceMinor        int64
	Currency          string
	City              string
	Country           string
	Lat, Lon          *float64
	LocationPrecision string
	Bedrooms          int
	Bathrooms         int
	Photos            []string
	CoverImage        *string
}

// ListingPatch carries only the fields an update touches.
type ListingPatch struct {
	Title             *string
	Description       *string
	Kind              *string
	PriceMinor        *int64
	Currency          *string
	City              *string
	Country           *string
	Lat, Lon          *float64
	LocationPrecision *string
	Bedrooms          *int
	Bathrooms         *int
	Photos            []string
	CoverImage        *string
}

// submittable are the statuses an owner may send to review from.
var submittable = []string{domain.StatusDraft, domain.StatusRejected, domain.StatusChangesRequested}

func (s *ListingService) Create(ctx context.Context, actor Actor, d ListingDraft) (domain.Listing, error) {
	if err := requireActor(actor); err != nil {
		return domain.Listing{}, err
	}
	if err := checkTitle(d.Title); err != nil {
		return domain.Listing{}, err
	}
	slug, err := format.UniqueSlug(format.Slugify(d.Title), func(c string) (bool, error) {
		return s.repo.SlugExists(ctx, c)
	})
	if err != nil {
		return domain.Listing{}, fmt.Errorf("slug: %w", err)
	}

	now := s.now().UTC()
	l := domain.Listing{
		ID:      uuid.NewString(),
		OwnerID: actor.UserID,
		Slug:    slug,
		Status:  domain.StatusDraft,
		Photos:  []string{},
	}
	applyDraft(&l, d, s.defaultCurrency)
	l.CreatedAt, l.UpdatedAt = now, now

	if err := s.repo.CreateListing(ctx, l); err != nil {
		return domain.Listing{}, err
	}
	log.Info().Str("listing", l.ID).Str("owner", l.OwnerID).Str("slug", l.Slug).Msg("listing created")
	return l, nil
}

// checkTitle bounds the title length after surrounding whitespace is dropped.
func checkTitle(title string) error {
	n := utf8.RuneCountInString(strings.TrimSpace(title))
	if n < 3 || n > 200 {
		return invalidf("title must be 3 to 200 characters")
	}
	return nil
}

func applyDraft(l *domain.Listing, d ListingDraft, defaultCurrency string) {
	l.Title = strings.TrimSpace(d.Title)
	l.Description = strings.TrimSpace(d.Description)
	l.Kind = d.Kind
	l.PriceMinor = d.PriceMinor
	l.Currency = strings.ToUpper(d.Currency)
	if l.Currency == "" {
		l.Currency = defaultCurrency
	}
	l.City = strings.TrimSpace(d.City)
	l.Country = strings.ToUpper(d.Country)
	l.Lat, l.Lon = d.Lat, d.Lon
	l.LocationPrecision = d.LocationPrecision
	if l.Lat == nil || l.Lon == nil {
		l.Lat, l.Lon, l.LocationPrecision = nil, nil, ""
	}
	l.Bedrooms, l.Bathrooms = d.Bedrooms, d.Bathrooms
	if d.Photos != nil {
		l.Photos = d.Photos
	}
	l.CoverImage = d.CoverImage
}

// Update applies p to a listing the actor owns. The slug never changes.
func (s *ListingService) Update(ctx context.Context, actor Actor, id string, p ListingPatch) (domain.Listing, error) {
	if err := requireActor(actor); err != nil {
		return domain.Listing{}, err
	}
	l, err := s.repo.GetListing(ctx, id)
	if err != nil {
		return domain.Listing{}, err
	}
	if !actor.owns(l) {
		return domain.Listing{}, domain.ErrForbidden
	}

	if p.Title != nil {
		if err := checkTitle(*p.Title); err != nil {
			return domain.Listing{}, err
		}
	}

	set := func(dst *string, v *string) {
		if v != nil {
			*dst = strings.TrimSpace(*v)
		}
	}
	set(&l.Title, p.Title)
	set(&l.Description, p.Description)
	set(&l.Kind, p.Kind)
	set(&l.City, p.City)
	if p.Currency != nil {
		l.Currency = strings.ToUpper(*p.Currency)
	}
	if p.Country != nil {
		l.Country = strings.ToUpper(*p.Country)
	}
	if p.PriceMinor != nil {
		l.PriceMinor = *p.PriceMinor
	}
	if p.Lat != nil && p.Lon != nil {
		l.Lat, l.Lon = p.Lat, p.Lon
	}
	set(&l.LocationPrecision, p.LocationPrecision)
	if p.Bedrooms != nil {
		l.Bedrooms = *p.Bedrooms
	}
	if p.Bathrooms != nil {
		l.Bathrooms = *p.Bathrooms
	}
	if p.Photos != nil {
		l.Photos = p.Photos
	}
	if p.CoverImage != nil {
		l.CoverImage = p.CoverImage
	}
	l.UpdatedAt = s.now().UTC()

	if err := s.repo.UpdateListing(ctx, l); err != nil {
		return domain.Listing{}, err
	}
	s.cache.evictListing(ctx, l)
	return l, nil
}

// Submit sends a listing to the review queue, enforcing the owner's plan limit over
// pending and live listings.
func (s *ListingService) Submit(ctx context.Context, actor Actor, id string) (domain.Listing, error) {
	if err := requireActor(actor); err != nil {
		return domain.Listing{}, err
	}
	l, err := s.repo.GetListing(ctx, id)
	if err != nil {
		return domain.Listing{}, err
	}
	if !actor.owns(l) {
		return domain.Listing{}, domain.ErrForbidden
	}
	if !slices.Contains(submittable, l.Status) {
		return domain.Listing{}, fmt.Errorf("%w: listing is %s", domain.ErrConflict, l.Status)
	}

	acct, err := accountOrFree(ctx, s.billing, actor.UserID)
	if err != nil {
		return domain.Listing{}, err
	}
	counts, err := s.repo.CountByStatus(ctx, actor.UserID)
	if err != nil {
		return domain.Listing{}, err
	}
	if err := billing.EnsureCanPublish(acct.Plan, activeCount(counts)); err != nil {
		observability.ObserveDomain("listing_submit", "plan_limit")
		return domain.Listing{}, err
	}

	if err := s.repo.TransitionStatus(ctx, id, submittable, domain.StatusPending, nil); err != nil {
		return domain.Listing{}, err
	}
	observability.ObserveDomain("listing_submit", "ok")
	s.cache.evictListing(ctx, l)
	l.Status = domain.StatusPending
	return l, nil
}

// Feature spends one credit to put a listing in the featured rail. Retrying with the same
// idempotency key returns the first result without a second debit.
func (s *ListingService) Feature(ctx context.Context, actor Actor, id, idempotencyKey string) (domain.FeatureResult, error) {
	if err := requireActor(actor); err != nil {
		return domain.FeatureResult{}, err
	}
	idempotencyKey = strings.TrimSpace(idempotencyKey)
	if idempotencyKey == "" || len(idempotencyKey) > 128 {
		return domain.FeatureResult{}, invalidf("Idempotency-Key header is required (max 128 chars)")
	}

	res, err := s.billing.FeatureListing(ctx, domain.FeatureRequest{
		ListingID:      id,
		OwnerID:        actor.UserID,
		IdempotencyKey: idempotencyKey,
		Duration:       s.featureFor,
		Now:            s.now(),
	})
	switch {
	case errors.Is(err, domain.ErrInsufficientCredits):
		observability.ObserveDomain("credit_consume", "insufficient")
		return domain.FeatureResult{}, err
	case err != nil:
		return domain.FeatureResult{}, err
	}
	if res.Replayed {
		observability.ObserveDomain("credit_consume", "replayed")
	} else {
		observability.ObserveDomain("credit_consume", "debited")
	}
	s.cache.del(ctx, listingIDKey(id))
	if l, err := s.repo.GetListing(ctx, id); err == nil {
		s.cache.evictListing(ctx, l)
	}
	return res, nil
}
