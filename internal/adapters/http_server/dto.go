package httpserver

import (
	"net/http"
	"time"

	"golang.org/x/text/language"

	"rentbay/internal/app"
	"rentbay/internal/domain"
	"rentbay/internal/format"
	"rentbay/internal/moderation"
	"rentbay/internal/referral"
)

type listingRequest struct {
	Title             string   `json:"title" validate:"required,notblank,min=3,max=200"`
	Description       string   `json:"description" validate:"max=10000"`
	Kind              string   `json:"kind" validate:"required,oneof=rent sale shortlet"`
	PriceMinor        int64    `json:"price_minor" validate:"gte=0"`
	Currency          string   `json:"currency" validate:"omitempty,len=3,alpha"`
	City              string   `json:"city" validate:"max=120"`
	Country           string   `json:"country" validate:"omitempty,len=2,alpha"`
	Lat               *float64 `json:"lat" validate:"omitempty,latitude"`
	Lon               *float64 `json:"lon" validate:"omitempty,longitude"`
	LocationPrecision string   `json:"location_precision" validate:"omitempty,oneof=exact approximate"`
	Bedrooms          int      `json:"bedrooms" validate:"gte=0,lte=50"`
	Bathrooms         int      `json:"bathrooms" validate:"gte=0,lte=50"`
	Photos            []string `json:"photos" validate:"max=40,dive,required,max=512"`
	CoverImage        *string  `json:"cover_image" validate:"omitempty,max=512"`
}

func (r listingRequest) draft() app.ListingDraft {
	return app.ListingDraft{
		Title: r.Title, Description: r.Description, Kind: r.Kind,
		PriceMinor: r.PriceMinor, Currency: r.Currency,
		City: r.City, Country: r.Country, Lat: r.Lat, Lon: r.Lon,
		LocationPrecision: r.LocationPrecision,
		Bedrooms:          r.Bedrooms, Bathrooms: r.Bathrooms,
		Photos: r.Photos, CoverImage: r.CoverImage,
	}
}

type listingPatchRequest struct {
	Title             *string  `json:"title" validate:"omitempty,notblank,min=3,max=200"`
	Description       *string  `json:"description" validate:"omitempty,max=10000"`
	Kind              *string  `json:"kind" validate:"omitempty,oneof=rent sale shortlet"`
	PriceMinor        *int64   `json:"price_minor" validate:"omitempty,gte=0"`
	Currency          *string  `json:"currency" validate:"omitempty,len=3,alpha"`
	City              *string  `json:"city" validate:"omitempty,max=120"`
	Country           *string  `json:"country" validate:"omitempty,len=2,alpha"`
	Lat               *float64 `json:"lat" validate:"omitempty,latitude"`
	Lon               *float64 `json:"lon" validate:"omitempty,longitude"`
	LocationPrecision *string  `json:"location_precision" validate:"omitempty,oneof=exact approximate"`
	Bedrooms          *int     `json:"bedrooms" validate:"omitempty,gte=0,lte=50"`
	Bathrooms         *int     `json:"bathrooms" validate:"omitempty,gte=0,lte=50"`
	Photos            []string `json:"photos" validate:"omitempty,max=40,dive,required,max=512"`
	CoverImage        *string  `json:"cover_image" validate:"omitempty,max=512"`
}

func (r listingPatchRequest) patch() app.ListingPatch {
	return app.ListingPatch{
		Title: r.Title, Description: r.Description, Kind: r.Kind,
		PriceMinor: r.PriceMinor, Currency: r.Currency,
		City: r.City, Country: r.Country, Lat: r.Lat, Lon: r.Lon,
		LocationPrecision: r.LocationPrecision,
		Bedrooms:          r.Bedrooms, Bathrooms: r.Bathrooms,
		Photos: r.Photos, CoverImage: r.CoverImage,
	}
}

type bookingRequest struct {
	CheckIn  string `json:"check_in" validate:"required,datetime=2006-01-02"`
	CheckOut string `json:"check_out" validate:"required,datetime=2006-01-02"`
}

type decisionRequest struct {
	Action string `json:"action" validate:"required,oneof=approve reject request_changes"`
	Reason string `json:"reason" validate:"max=1000"`
}

type cashoutRequest struct {
	AmountMinor int64 `json:"amount_minor" validate:"required,gt=0"`
}

type acceptRequest struct {
	Document string `json:"document" validate:"required,max=64"`
	Version  int    `json:"version" validate:"required,gte=1"`
}

type priceView struct {
	Minor    int64  `json:"minor"`
	Currency string `json:"currency"`
	Display  string `json:"display"`
}

type locationView struct {
	Lat       float64 `json:"lat"`
	Lon       float64 `json:"lon"`
	Precision string  `json:"precision"`
}

type listingView struct {
	ID            string        `json:"id"`
	OwnerID       string        `json:"owner_id"`
	Slug          string        `json:"slug"`
	Title         string        `json:"title"`
	Description   string        `json:"description"`
	Kind          string        `json:"kind"`
	Status        string        `json:"status"`
	Price         priceView     `json:"price"`
	City          string        `json:"city"`
	Country       string        `json:"country"`
	Location      *locationView `json:"location,omitempty"`
	Bedrooms      int           `json:"bedrooms"`
	Bathrooms     int           `json:"bathrooms"`
	Photos        []string      `json:"photos"`
	CoverImage    *string       `json:"cover_image,omitempty"`
	Featured      bool          `json:"featured"`
	FeaturedUntil *time.Time    `json:"featured_until,omitempty"`
	ReviewNote    *string       `json:"review_note,omitempty"`
	CreatedAt     time.Time     `json:"created_at"`
	UpdatedAt     time.Time     `json:"updated_at"`
}

// approxDecimals keeps roughly one kilometre of precision for approximate locations.
const approxDecimals = 100

func toListingView(l domain.Listing, lang string, now time.Time) listingView {
	v := listingView{
		ID: l.ID, OwnerID: l.OwnerID, Slug: l.Slug, Title: l.Title, Description: l.Description,
		Kind: l.Kind, Status: l.Status,
		Price: priceView{Minor: l.PriceMinor, Currency: l.Currency, Display: format.FormatMoney(l.PriceMinor, l.Currency, lang)},
		City:  l.City, Country: l.Country,
		Bedrooms: l.Bedrooms, Bathrooms: l.Bathrooms,
		Photos: l.Photos, CoverImage: l.CoverImage,
		FeaturedUntil: l.FeaturedUntil, ReviewNote: l.ReviewNote,
		CreatedAt: l.CreatedAt, UpdatedAt: l.UpdatedAt,
	}
	if v.Photos == nil {
		v.Photos = []string{}
	}
	if l.FeaturedUntil != nil && l.FeaturedUntil.After(now) {
		v.Featured = true
	}
	if l.Lat != nil && l.Lon != nil {
		loc := &locationView{Lat: *l.Lat, Lon: *l.Lon, Precision: l.LocationPrecision}
		if l.LocationPrecision != domain.LocationExact {
			loc.Lat = roundTo(loc.Lat)
			loc.Lon = roundTo(loc.Lon)
		}
		v.Location = loc
	}
	return v
}

func roundTo(f float64) float64 {
	if f < 0 {
		return -roundTo(-f)
	}
	return float64(int64(f*approxDecimals+0.5)) / approxDecimals
}

type pageView struct {
	Items  []listingView `json:"items"`
	Total  int           `json:"total"`
	Limit  int           `json:"limit"`
	Offset int           `json:"offset"`
}

type bookingView struct {
	ID        string    `json:"id"`
	ListingID string    `json:"listing_id"`
	GuestID   string    `json:"guest_id"`
	CheckIn   string    `json:"check_in"`
	CheckOut  string    `json:"check_out"`
	Nights    int       `json:"nights"`
	Total     priceView `json:"total"`
	Status    string    `json:"status"`
	CreatedAt time.Time `json:"created_at"`
}

func toBookingView(b domain.Booking, lang string) bookingView {
	return bookingView{
		ID: b.ID, ListingID: b.ListingID, GuestID: b.GuestID,
		CheckIn: b.CheckIn.Format(time.DateOnly), CheckOut: b.CheckOut.Format(time.DateOnly),
		Nights: b.Nights,
		Total:  priceView{Minor: b.TotalMinor, Currency: b.Currency, Display: format.FormatMoney(b.TotalMinor, b.Currency, lang)},
		Status: b.Status, CreatedAt: b.CreatedAt,
	}
}

type featureView struct {
	ListingID     string    `json:"listing_id"`
	FeaturedUntil time.Time `json:"featured_until"`
	CreditsLeft   int       `json:"credits_left"`
	Replayed      bool      `json:"replayed"`
}

type reviewItemView struct {
	Listing listingView       `json:"listing"`
	Rubric  moderation.Rubric `json:"rubric"`
}

type decisionView struct {
	Listing listingView       `json:"listing"`
	Rubric  moderation.Rubric `json:"rubric"`
}

type cashoutView struct {
	ID        string    `json:"id"`
	UserID    string    `json:"user_id"`
	Amount    priceView `json:"amount"`
	Status    string    `json:"status"`
	Severity  string    `json:"severity"`
	Signals   []string  `json:"signals"`
	CreatedAt time.Time `json:"created_at"`
}

func toCashoutView(c domain.Cashout, lang string) cashoutView {
	v := cashoutView{
		ID: c.ID, UserID: c.UserID,
		Amount: priceView{Minor: c.AmountMinor, Currency: c.Currency, Display: format.FormatMoney(c.AmountMinor, c.Currency, lang)},
		Status: c.Status, Severity: c.Severity, Signals: c.Signals, CreatedAt: c.CreatedAt,
	}
	if v.Signals == nil {
		v.Signals = []string{}
	}
	return v
}

type cashoutResultView struct {
	Cashout    cashoutView         `json:"cashout"`
	Assessment referral.Assessment `json:"assessment"`
}

// langOf picks the caller's preferred language for money display, English by default.
func langOf(r *http.Request) string {
	tags, _, err := language.ParseAcceptLanguage(r.Header.Get("Accept-Language"))
	if err != nil || len(tags) == 0 {
		return "en"
	}
	return tags[0].String()
}
