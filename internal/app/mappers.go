package app

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"rentbay/internal/domain"
	"rentbay/internal/format"
)

/********** alias registry for hosted listing rows **********/

var listingAliases = map[string][]string{
	"id":          {"id", "listing_id", "uuid"},
	"owner":       {"owner_id", "user_id", "landlord_id", "agent_id", "owner.id"},
	"slug":        {"slug", "handle"},
	"title":       {"title", "name", "headline"},
	"description": {"description", "details", "body", "summary"},
	"kind":        {"kind", "listing_type", "type", "category"},
	"status":      {"status", "state"},
	"currency":    {"currency", "currency_code", "price.currency"},
	"city":        {"city", "address.city", "location.city", "town"},
	"country":     {"country", "country_code", "address.country", "location.country"},
	"precision":   {"location_precision", "location_accuracy", "location.precision"},
	"cover":       {"cover_image", "cover_url", "cover.url", "thumbnail"},
}

var kindAliases = map[string]string{
	"rent": domain.KindRent, "rental": domain.KindRent, "long_let": domain.KindRent, "to_let": domain.KindRent,
	"sale": domain.KindSale, "sell": domain.KindSale, "for_sale": domain.KindSale,
	"shortlet": domain.KindShortlet, "short_let": domain.KindShortlet, "short-let": domain.KindShortlet,
	"short_stay": domain.KindShortlet,
}

var statusAliases = map[string]string{
	"draft": domain.StatusDraft, "pending": domain.StatusPending, "in_review": domain.StatusPending,
	"live": domain.StatusLive, "published": domain.StatusLive, "active": domain.StatusLive,
	"changes_requested": domain.StatusChangesRequested, "rejected": domain.StatusRejected,
	"paused": domain.StatusPaused, "archived": domain.StatusPaused,
}

/********** tiny helpers **********/

// lookupAny: safe nested lookup with dot paths on maps.
func lookupAny(m map[string]any, path string) any {
	cur := any(m)
	for _, part := range strings.Split(path, ".") {
		obj, ok := cur.(map[string]any)
		if !ok {
			return nil
		}
		v, ok := obj[part]
		if !ok {
			return nil
		}
		cur = v
	}
	return cur
}

// lookupStr returns string at path or "".
func lookupStr(m map[string]any, path string) string {
	if v := lookupAny(m, path); v != nil {
		if s, ok := v.(string); ok {
			return strings.TrimSpace(s)
		}
	}
	return ""
}

// firstAlias: first non-empty string for a named alias set.
func firstAlias(m map[string]any, key string) string {
	for _, p := range listingAliases[key] {
		if s := lookupStr(m, p); s != "" {
			return s
		}
	}
	return ""
}

// getFloatFlexible: number from several paths (float64/int/string like "8,0").
func getFloatFlexible(m map[string]any, paths ...string) *float64 {
	for _, k := range paths {
		switch v := lookupAny(m, k).(type) {
		case float64:
			f := v
			return &f
		case int:
			f := float64(v)
			return &f
		case string:
			s := strings.TrimSpace(strings.ReplaceAll(v, ",", "."))
			if s == "" {
				continue
			}
			if f, err := strconv.ParseFloat(s, 64); err == nil {
				return &f
			}
		}
	}
	return nil
}

// firstInt64Flexible: int64 from several paths (float64/int/string).
func firstInt64Flexible(m map[string]any, paths ...string) *int64 {
	for _, k := range paths {
		switch v := lookupAny(m, k).(type) {
		case float64:
			x := int64(v)
			return &x
		case int:
			x := int64(v)
			return &x
		case int64:
			x := v
			return &x
		case string:
			s := strings.TrimSpace(v)
			if s == "" {
				continue
			}
			if n, err := strconv.ParseInt(s, 10, 64); err == nil {
				return &n
			}
		}
	}
	return nil
}

// firstSliceStrings: accept []any with either strings or {url/src/path}.
func firstSliceStrings(m map[string]any, paths ...string) []string {
	for _, k := range paths {
		if raw, ok := lookupAny(m, k).([]any); ok {
			out := make([]string, 0, len(raw))
			for _, it := range raw {
				switch t := it.(type) {
				case string:
					if t != "" {
						out = append(out, t)
					}
				case map[string]any:
					for _, f := range []string{"url", "src", "path"} {
						if u, ok := t[f].(string); ok && u != "" {
							out = append(out, u)
							break
						}
					}
				}
			}
			if len(out) > 0 {
				return out
			}
		}
	}
	return nil
}

// firstTime parses RFC 3339 timestamps, with or without fractional seconds or zone.
func firstTime(m map[string]any, paths ...string) *time.Time {
	for _, k := range paths {
		s := lookupStr(m, k)
		if s == "" {
			continue
		}
		for _, layout := range []string{time.RFC3339Nano, "2006-01-02T15:04:05.999999", "2006-01-02 15:04:05"} {
			if t, err := time.Parse(layout, s); err == nil {
				t = t.UTC()
				return &t
			}
		}
	}
	return nil
}

// suffixedSlug derives a slug from the title plus a short id suffix.
func suffixedSlug(l domain.Listing) string {
	short := strings.ReplaceAll(l.ID, "-", "")
	if len(short) > 8 {
		short = short[:8]
	}
	return format.Slugify(l.Title + " " + short)
}

func intOr(p *int64, def int) int {
	if p == nil {
		return def
	}
	return int(*p)
}

/********** listing mapper **********/

// mapSyncedListing turns a loosely typed hosted row into a Listing. Rows without an id,
// owner or title, or with an unknown kind, are rejected.
func mapSyncedListing(row map[string]any) (domain.Listing, error) {
	l := domain.Listing{
		ID:          firstAlias(row, "id"),
		OwnerID:     firstAlias(row, "owner"),
		Title:       firstAlias(row, "title"),
		Description: firstAlias(row, "description"),
		City:        firstAlias(row, "city"),
		Country:     strings.ToUpper(firstAlias(row, "country")),
	}
	switch {
	case l.ID == "":
		return domain.Listing{}, fmt.Errorf("%w: row has no id", domain.ErrInvalid)
	case l.OwnerID == "":
		return domain.Listing{}, fmt.Errorf("%w: listing %s has no owner", domain.ErrInvalid, l.ID)
	case l.Title == "":
		return domain.Listing{}, fmt.Errorf("%w: listing %s has no title", domain.ErrInvalid, l.ID)
	}

	kind, ok := kindAliases[strings.ToLower(firstAlias(row, "kind"))]
	if !ok {
		return domain.Listing{}, fmt.Errorf("%w: listing %s has unknown kind %q", domain.ErrInvalid, l.ID, firstAlias(row, "kind"))
	}
	l.Kind = kind
	l.Status = statusAliases[strings.ToLower(firstAlias(row, "status"))]
	if l.Status == "" {
		l.Status = domain.StatusDraft
	}

	l.Currency = strings.ToUpper(firstAlias(row, "currency"))
	if l.Currency == "" {
		l.Currency = "NGN"
	}
	// price_minor wins; a bare price is in major units
	if p := firstInt64Flexible(row, "price_minor", "price_kobo", "price.minor"); p != nil {
		l.PriceMinor = *p
	} else if f := getFloatFlexible(row, "price", "price.amount", "amount"); f != nil {
		l.PriceMinor = int64(math.Round(*f * math.Pow10(format.Scale(l.Currency))))
	}

	l.Lat = getFloatFlexible(row, "lat", "latitude", "location.lat")
	l.Lon = getFloatFlexible(row, "lon", "lng", "longitude", "location.lng", "location.lon")
	if l.Lat != nil && l.Lon != nil {
		l.LocationPrecision = strings.ToLower(firstAlias(row, "precision"))
		if l.LocationPrecision == "" {
			l.LocationPrecision = domain.LocationApproximate
		}
	} else {
		l.Lat, l.Lon = nil, nil
	}

	l.Bedrooms = intOr(firstInt64Flexible(row, "bedrooms", "beds", "rooms.bedrooms"), 0)
	l.Bathrooms = intOr(firstInt64Flexible(row, "bathrooms", "baths", "rooms.bathrooms"), 0)
	l.Photos = firstSliceStrings(row, "photos", "images", "media", "gallery")
	if l.Photos == nil {
		l.Photos = []string{}
	}
	if c := firstAlias(row, "cover"); c != "" {
		l.CoverImage = &c
	} else if len(l.Photos) > 0 {
		c := l.Photos[0]
		l.CoverImage = &c
	}
	l.FeaturedUntil = firstTime(row, "featured_until", "featured.until")

	if raw := firstAlias(row, "slug"); raw != "" {
		l.Slug = format.Slugify(raw)
	} else {
		l.Slug = suffixedSlug(l)
	}

	now := time.Now().UTC()
	if t := firstTime(row, "created_at", "inserted_at"); t != nil {
		l.CreatedAt = *t
	} else {
		l.CreatedAt = now
	}
	if t := firstTime(row, "updated_at", "modified_at"); t != nil {
		l.UpdatedAt = *t
	} else {
		l.UpdatedAt = l.CreatedAt
	}
	return l, nil
}
