// Package app holds the use cases behind the HTTP handlers and the syncer.
package app

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"rentbay/internal/billing"
	"rentbay/internal/domain"
)

// Actor is the authenticated caller.
type Actor struct {
	UserID string
	Admin  bool
}

func (a Actor) owns(l domain.Listing) bool { return a.UserID != "" && a.UserID == l.OwnerID }

// canSee: the public sees live listings; owners and admins see everything.
func (a Actor) canSee(l domain.Listing) bool { return l.Visible() || a.Admin || a.owns(l) }

func requireActor(a Actor) error {
	if a.UserID == "" {
		return domain.ErrUnauthorized
	}
	return nil
}

// cacheLayer is a nil-safe wrapper over domain.Cache. Cache failures never fail a request.
type cacheLayer struct {
	c   domain.Cache
	ttl time.Duration
}

func (c cacheLayer) get(ctx context.Context, key string, dst any) bool {
	if c.c == nil {
		return false
	}
	ok, err := c.c.Get(ctx, key, dst)
	if err != nil {
		log.Debug().Err(err).Str("key", key).Msg("cache get failed")
		return false
	}
	return ok
}

func (c cacheLayer) set(ctx context.Context, key string, v any, ttl time.Duration) {
	if c.c == nil || ttl <= 0 {
		return
	}
	if err := c.c.Set(ctx, key, v, int(ttl.Seconds())); err != nil {
		log.Warn().Err(err).Str("key", key).Msg("cache set failed")
	}
}

func (c cacheLayer) del(ctx context.Context, keys ...string) {
	if c.c == nil {
		return
	}
	for _, k := range keys {
		if err := c.c.Del(ctx, k); err != nil {
			log.Warn().Err(err).Str("key", k).Msg("cache del failed")
		}
	}
}

func listingIDKey(id string) string     { return "listing:id:" + id }
func listingSlugKey(slug string) string { return "listing:slug:" + slug }

// evictListing drops the detail entries for l. Search pages expire on their own short TTL.
func (c cacheLayer) evictListing(ctx context.Context, l domain.Listing) {
	keys := []string{listingIDKey(l.ID)}
	if l.Slug != "" {
		keys = append(keys, listingSlugKey(l.Slug))
	}
	c.del(ctx, keys...)
}

func searchKey(q domain.ListingQuery) string {
	v := url.Values{}
	v.Set("city", strings.ToLower(q.City))
	v.Set("kind", q.Kind)
	v.Set("q", strings.ToLower(q.Q))
	if q.MinPrice != nil {
		v.Set("min", strconv.FormatInt(*q.MinPrice, 10))
	}
	if q.MaxPrice != nil {
		v.Set("max", strconv.FormatInt(*q.MaxPrice, 10))
	}
	if q.Bedrooms != nil {
		v.Set("beds", strconv.Itoa(*q.Bedrooms))
	}
	v.Set("limit", strconv.Itoa(q.Limit))
	v.Set("offset", strconv.Itoa(q.Offset))
	return "listings:search:" + v.Encode()
}

// accountOrFree treats owners without a billing row as free-plan accounts with no credits.
func accountOrFree(ctx context.Context, repo domain.BillingRepository, ownerID string) (domain.BillingAccount, error) {
	a, err := repo.GetBillingAccount(ctx, ownerID)
	if errors.Is(err, domain.ErrNotFound) {
		return domain.BillingAccount{OwnerID: ownerID, Plan: billing.PlanFree}, nil
	}
	if err != nil {
		return domain.BillingAccount{}, fmt.Errorf("billing account %s: %w", ownerID, err)
	}
	return a, nil
}

func invalidf(format string, args ...any) error {
	return fmt.Errorf("%w: %s", domain.ErrInvalid, fmt.Sprintf(format, args...))
}
