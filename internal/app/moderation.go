package app

import (
	"context"
	"strconv"
	"time"

	"github.com/rs/zerolog/log"

	"rentbay/internal/adapters/observability"
	"rentbay/internal/domain"
	"rentbay/internal/featured"
	"rentbay/internal/format"
	"rentbay/internal/moderation"
)

type AdminService struct {
	listings   domain.ListingRepository
	mirror     domain.StatusMirror
	cache      cacheLayer
	queueLimit int
	loc        *time.Location
	now        func() time.Time
}

// NewAdminService wires the admin use cases. mirror may be nil when no hosted platform is configured.
func NewAdminService(l domain.ListingRepository, mirror domain.StatusMirror, c domain.Cache, queueLimit int) *AdminService {
	if queueLimit <= 0 {
		queueLimit = 100
	}
	return &AdminService{listings: l, mirror: mirror, cache: cacheLayer{c: c}, queueLimit: queueLimit, loc: time.UTC, now: time.Now}
}

func (s *AdminService) WithClock(now func() time.Time, loc *time.Location) *AdminService {
	s.now = now
	if loc != nil {
		s.loc = loc
	}
	return s
}

type ReviewItem struct {
	Listing domain.Listing
	Rubric  moderation.Rubric
}

// ReviewQueue returns pending listings oldest first, each with its rubric.
func (s *AdminService) ReviewQueue(ctx context.Context) ([]ReviewItem, error) {
	rows, err := s.listings.ListByStatus(ctx, domain.StatusPending, s.queueLimit)
	if err != nil {
		return nil, err
	}
	out := make([]ReviewItem, 0, len(rows))
	for _, l := range rows {
		out = append(out, ReviewItem{Listing: l, Rubric: moderation.Evaluate(moderation.FactsOf(l))})
	}
	return out, nil
}

// Decide applies an admin action. The status change is conditional on the listing still
// being pending, so of two concurrent approvals exactly one succeeds.
func (s *AdminService) Decide(ctx context.Context, listingID, action, reason string) (domain.Listing, moderation.Rubric, error) {
	l, err := s.listings.GetListing(ctx, listingID)
	if err != nil {
		return domain.Listing{}, moderation.Rubric{}, err
	}
	rubric := moderation.Evaluate(moderation.FactsOf(l))
	d, err := moderation.Decide(l.Status, action, reason, rubric)
	if err != nil {
		observability.ObserveDomain("moderation", "rejected_"+action)
		return domain.Listing{}, rubric, err
	}
	if err := s.listings.TransitionStatus(ctx, listingID, []string{d.From}, d.To, d.Reason); err != nil {
		return domain.Listing{}, rubric, err
	}
	observability.ObserveDomain("moderation", action)
	s.cache.evictListing(ctx, l)

	if s.mirror != nil {
		if err := s.mirror.PushStatus(ctx, listingID, d.To); err != nil {
			log.Warn().Err(err).Str("listing", listingID).Str("status", d.To).Msg("status mirror failed")
		}
	}
	l.Status = d.To
	if d.Reason != nil {
		l.ReviewNote = d.Reason
	}
	return l, rubric, nil
}

// FeaturedSummary buckets every featured listing on the platform.
func (s *AdminService) FeaturedSummary(ctx context.Context) (featured.Summary, error) {
	rows, err := s.listings.ListFeatured(ctx, "")
	if err != nil {
		return featured.Summary{}, err
	}
	return featured.Summarize(rows, s.now()), nil
}

var exportHeader = []string{
	"id", "slug", "title", "owner_id", "kind", "status", "city", "country",
	"price", "price_minor", "currency", "photos", "rubric", "featured", "updated_at",
}

// ExportCSV renders listings in status as a spreadsheet-safe CSV.
func (s *AdminService) ExportCSV(ctx context.Context, status string) ([]byte, error) {
	if status == "" {
		status = domain.StatusLive
	}
	rows, err := s.listings.ListByStatus(ctx, status, 10_000)
	if err != nil {
		return nil, err
	}
	now := s.now()
	out := make([][]string, 0, len(rows))
	for _, l := range rows {
		feat := ""
		if l.FeaturedUntil != nil {
			feat = format.DayBucket(*l.FeaturedUntil, now, s.loc)
		}
		out = append(out, []string{
			l.ID, l.Slug, l.Title, l.OwnerID, l.Kind, l.Status, l.City, l.Country,
			format.FormatMoney(l.PriceMinor, l.Currency, "en"),
			strconv.FormatInt(l.PriceMinor, 10),
			l.Currency,
			strconv.Itoa(len(l.Photos)),
			moderation.Evaluate(moderation.FactsOf(l)).Overall,
			feat,
			l.UpdatedAt.UTC().Format(time.RFC3339),
		})
	}
	return format.BuildCSV(exportHeader, out)
}
