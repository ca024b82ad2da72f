package featured

import (
	"sort"
	"time"

	"rentbay/internal/domain"
)

const (
	BucketExpired     = "expired"
	BucketExpiring24h = "expiring_24h"
	BucketExpiring7d  = "expiring_7d"
	BucketActive      = "active"
)

var bucketOrder = []string{BucketExpired, BucketExpiring24h, BucketExpiring7d, BucketActive}

type Item struct {
	ListingID     string    `json:"listing_id"`
	Title         string    `json:"title"`
	OwnerID       string    `json:"owner_id"`
	FeaturedUntil time.Time `json:"featured_until"`
}

type Bucket struct {
	Name  string `json:"name"`
	Count int    `json:"count"`
	Items []Item `json:"items"`
}

type Summary struct {
	Total   int      `json:"total"`
	Buckets []Bucket `json:"buckets"`
}

// Summarize groups featured listings by how soon their featured window ends.
// Listings without a featured window are skipped.
func Summarize(rows []domain.Listing, now time.Time) Summary {
	grouped := make(map[string][]Item, len(bucketOrder))
	total := 0
	for _, l := range rows {
		if l.FeaturedUntil == nil {
			continue
		}
		until := *l.FeaturedUntil
		name := bucketFor(until, now)
		grouped[name] = append(grouped[name], Item{
			ListingID: l.ID, Title: l.Title, OwnerID: l.OwnerID, FeaturedUntil: until,
		})
		total++
	}

	out := Summary{Total: total, Buckets: make([]Bucket, 0, len(bucketOrder))}
	for _, name := range bucketOrder {
		items := grouped[name]
		sort.Slice(items, func(i, j int) bool {
			if !items[i].FeaturedUntil.Equal(items[j].FeaturedUntil) {
				return items[i].FeaturedUntil.Before(items[j].FeaturedUntil)
			}
			return items[i].ListingID < items[j].ListingID
		})
		if items == nil {
			items = []Item{}
		}
		out.Buckets = append(out.Buckets, Bucket{Name: name, Count: len(items), Items: items})
	}
	return out
}

func bucketFor(until, now time.Time) string {
	switch left := until.Sub(now); {
	case left <= 0:
		return BucketExpired
	case left <= 24*time.Hour:
		return BucketExpiring24h
	case left <= 7*24*time.Hour:
		return BucketExpiring7d
	default:
		return BucketActive
	}
}
