package app

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"rentbay/internal/billing"
	"rentbay/internal/domain"
	"rentbay/internal/featured"
)

const (
	defaultSearchLimit = 20
	maxSearchLimit     = 100
	maxSearchTTL       = time.Minute
)

type ListingService struct {
	repo            domain.ListingRepository
	billing         domain.BillingRepository
	cache           cacheLayer
	defaultCurrency string
	featureFor      time.Duration
	now             func() time.Time
}

func NewListingService(r domain.ListingRepository, b domain.BillingRepository, c domain.Cache, ttl time.Duration) *ListingService {
	return &ListingService{
		repo:            r,
		billing:         b,
		cache:           cacheLayer{c: c, ttl: ttl},
		defaultCurrency: "NGN",
		featureFor:      7 * 24 * time.Hour,
		now:             time.Now,
	}
}

// WithDefaults overrides the currency for new listings and the featured window length.
func (s *ListingService) WithDefaults(currency string, featureFor time.Duration) *ListingService {
	if currency != "" {
		s.defaultCurrency = strings.ToUpper(currency)
	}
	if featureFor > 0 {
		s.featureFor = featureFor
	}
	return s
}

func (s *ListingService) WithClock(now func() time.Time) *ListingService {
	s.now = now
	return s
}

// Search returns live listings. Pages are cached under the normalized query.
func (s *ListingService) Search(ctx context.Context, q domain.ListingQuery) (domain.ListingsPage, error) {
	q, err := normalizeQuery(q)
	if err != nil {
		return domain.ListingsPage{}, err
	}
	key := searchKey(q)
	var page domain.ListingsPage
	if s.cache.get(ctx, key, &page) {
		return page, nil
	}
	page, err = s.repo.SearchListings(ctx, q)
	if err != nil {
		return domain.ListingsPage{}, err
	}
	if page.Items == nil {
		page.Items = []domain.Listing{}
	}
	s.cache.set(ctx, key, page, min(s.cache.ttl, maxSearchTTL))
	return page, nil
}

func normalizeQuery(q domain.ListingQuery) (domain.ListingQuery, error) {
	q.City = strings.TrimSpace(q.City)
	q.Q = strings.TrimSpace(q.Q)
	q.Kind = strings.ToLower(strings.TrimSpace(q.Kind))
	if q.Limit == 0 {
		q.Limit = defaultSearchLimit
	}
	if q.Limit < 1 || q.Limit > maxSearchLimit {
		return q, invalidf("limit must be between 1 and %d", maxSearchLimit)
	}
	if q.Offset < 0 {
		return q, invalidf("offset must not be negative")
	}
	switch q.Kind {
	case "", domain.KindRent, domain.KindSale, domain.KindShortlet:
	default:
		return q, invalidf("unknown kind %q", q.Kind)
	}
	if q.MinPrice != nil && q.MaxPrice != nil && *q.MinPrice > *q.MaxPrice {
		return q, invalidf("min_price is above max_price")
	}
	return q, nil
}

// Get resolves ref as a listing ID when it parses as a UUID, otherwise as a slug.
// Listings that are not live are reported as missing unless the viewer owns them or is an admin.
func (s *ListingService) Get(ctx context.Context, ref string, viewer Actor) (domain.Listing, error) {
	ref = strings.TrimSpace(ref)
	if ref == "" {
		return domain.Listing{}, domain.ErrNotFound
	}
	byID := uuid.Validate(ref) == nil
	key := listingSlugKey(ref)
	if byID {
		key = listingIDKey(ref)
	}

	var l domain.Listing
	if !s.cache.get(ctx, key, &l) {
		var err error
		if byID {
			l, err = s.repo.GetListing(ctx, ref)
		} else {
			l, err = s.repo.GetListingBySlug(ctx, ref)
		}
		if err != nil {
			return domain.Listing{}, err
		}
		s.cache.set(ctx, key, l, s.cache.ttl)
	}
	if !viewer.canSee(l) {
		return domain.Listing{}, domain.ErrNotFound
	}
	return l, nil
}

type Dashboard struct {
	Counts         map[string]int   `json:"counts"`
	Active         int              `json:"active"`
	Plan           billing.Plan     `json:"plan"`
	Credits        int              `json:"credits"`
	RemainingSlots int              `json:"remaining_slots"`
	Featured       featured.Summary `json:"featured"`
}

// Dashboard gathers an owner's status counts, plan and featured inventory concurrently.
func (s *ListingService) Dashboard(ctx context.Context, actor Actor) (Dashboard, error) {
	if err := requireActor(actor); err != nil {
		return Dashboard{}, err
	}
	var (
		counts map[string]int
		rows   []domain.Listing
		acct   domain.BillingAccount
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		counts, err = s.repo.CountByStatus(gctx, actor.UserID)
		return err
	})
	g.Go(func() error {
		var err error
		rows, err = s.repo.ListFeatured(gctx, actor.UserID)
		return err
	})
	g.Go(func() error {
		var err error
		acct, err = accountOrFree(gctx, s.billing, actor.UserID)
		return err
	})
	if err := g.Wait(); err != nil {
		return Dashboard{}, err
	}
	if counts == nil {
		counts = map[string]int{}
	}
	active := activeCount(counts)
	return Dashboard{
		Counts:         counts,
		Active:         active,
		Plan:           billing.Lookup(acct.Plan),
		Credits:        acct.Credits,
		RemainingSlots: billing.Remaining(acct.Plan, active),
		Featured:       featured.Summarize(rows, s.now()),
	}, nil
}

// activeCount is what plan limits are measured against.
func activeCount(counts map[string]int) int {
	return counts[domain.StatusPending] + counts[domain.StatusLive]
}
