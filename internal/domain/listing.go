package domain

import "time"

const (
	KindRent     = "rent"
	KindSale     = "sale"
	KindShortlet = "shortlet"
)

// Listing statuses. Only live listings are visible to the public.
const (
	StatusDraft            = "draft"
	StatusPending          = "pending"
	StatusLive             = "live"
	StatusChangesRequested = "changes_requested"
	StatusRejected         = "rejected"
	StatusPaused           = "paused"
)

// Location precision as captured by the listing editor.
const (
	LocationExact       = "exact"
	LocationApproximate = "approximate"
)

type Listing struct {
	ID                string
	OwnerID           string
	Slug              string
	Title             string
	Description       string
	Kind              string
	Status            string
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
	FeaturedUntil     *time.Time
	ReviewNote        *string
	CreatedAt         time.Time
	UpdatedAt         time.Time
}

func (l Listing) Visible() bool { return l.Status == StatusLive }

type ListingQuery struct {
	City     string
	Kind     string
	Q        string
	MinPrice *int64
	MaxPrice *int64
	Bedrooms *int
	Limit    int
	Offset   int
}

type ListingsPage struct {
	Items  []Listing
	Total  int
	Limit  int
	Offset int
}
