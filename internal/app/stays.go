package app

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"rentbay/internal/adapters/observability"
	"rentbay/internal/domain"
	"rentbay/internal/shortlet"
)

type StayService struct {
	listings domain.ListingRepository
	stays    domain.StayRepository
	feeBps   int
	now      func() time.Time
}

func NewStayService(l domain.ListingRepository, s domain.StayRepository, serviceFeeBps int) *StayService {
	return &StayService{listings: l, stays: s, feeBps: serviceFeeBps, now: time.Now}
}

func (s *StayService) WithClock(now func() time.Time) *StayService {
	s.now = now
	return s
}

// shortletListing loads a live short-let listing and its settings.
func (s *StayService) shortletListing(ctx context.Context, id string) (domain.Listing, domain.ShortletSettings, error) {
	l, err := s.listings.GetListing(ctx, id)
	if err != nil {
		return domain.Listing{}, domain.ShortletSettings{}, err
	}
	if !l.Visible() {
		return domain.Listing{}, domain.ShortletSettings{}, domain.ErrNotFound
	}
	if l.Kind != domain.KindShortlet {
		return domain.Listing{}, domain.ShortletSettings{}, invalidf("listing %s is not a short-let", id)
	}
	set, err := s.stays.GetShortletSettings(ctx, id)
	if err != nil {
		return domain.Listing{}, domain.ShortletSettings{}, err
	}
	return l, set, nil
}

// Availability lists open viewing slots for date (YYYY-MM-DD). Empty date means today and
// empty tz means the listing's own timezone.
func (s *StayService) Availability(ctx context.Context, listingID, date, tz string) ([]shortlet.Slot, error) {
	_, set, err := s.shortletListing(ctx, listingID)
	if err != nil {
		return nil, err
	}
	if tz == "" {
		tz = set.Timezone
	}
	now := s.now()
	if date == "" {
		loc, err := time.LoadLocation(tz)
		if err != nil {
			return nil, invalidf("unknown timezone %q", tz)
		}
		date = now.In(loc).Format("2006-01-02")
	}
	slots, err := shortlet.GenerateSlots(shortlet.SlotInput{
		Date:        date,
		Timezone:    tz,
		SlotMinutes: set.SlotMinutes,
		Rules:       set.Rules,
		Exceptions:  set.Exceptions,
		Now:         now,
	})
	if err != nil {
		return nil, err
	}
	if slots == nil {
		slots = []shortlet.Slot{}
	}
	return slots, nil
}

func (s *StayService) quote(ctx context.Context, l domain.Listing, set domain.ShortletSettings, in, out time.Time) (shortlet.StayQuote, error) {
	booked, err := s.stays.ListBookedRanges(ctx, l.ID, in, out)
	if err != nil {
		return shortlet.StayQuote{}, err
	}
	nights, err := shortlet.ValidateStay(in, out, shortlet.StayPolicy{MinNights: set.MinNights, MaxNights: set.MaxNights}, booked)
	if err != nil {
		return shortlet.StayQuote{}, err
	}
	nightly := set.NightlyMinor
	if nightly <= 0 {
		nightly = l.PriceMinor
	}
	return shortlet.Quote(nightly, nights, set.CleaningFeeMinor, s.feeBps), nil
}

// Quote prices [checkIn, checkOut) without reserving it.
func (s *StayService) Quote(ctx context.Context, listingID string, checkIn, checkOut time.Time) (shortlet.StayQuote, error) {
	l, set, err := s.shortletListing(ctx, listingID)
	if err != nil {
		return shortlet.StayQuote{}, err
	}
	if err := s.notInPast(checkIn); err != nil {
		return shortlet.StayQuote{}, err
	}
	return s.quote(ctx, l, set, checkIn, checkOut)
}

func (s *StayService) notInPast(checkIn time.Time) error {
	today := s.now().UTC().Truncate(24 * time.Hour)
	if checkIn.Before(today) {
		return invalidf("check-in is in the past")
	}
	return nil
}

// Book creates a pending booking. The store rejects it with ErrUnavailable when another
// pending or confirmed stay already holds any of the nights.
func (s *StayService) Book(ctx context.Context, actor Actor, listingID string, checkIn, checkOut time.Time) (domain.Booking, error) {
	if err := requireActor(actor); err != nil {
		return domain.Booking{}, err
	}
	l, set, err := s.shortletListing(ctx, listingID)
	if err != nil {
		return domain.Booking{}, err
	}
	if actor.owns(l) {
		return domain.Booking{}, invalidf("owners cannot book their own listing")
	}
	if err := s.notInPast(checkIn); err != nil {
		return domain.Booking{}, err
	}
	q, err := s.quote(ctx, l, set, checkIn, checkOut)
	if err != nil {
		if errors.Is(err, domain.ErrUnavailable) {
			observability.ObserveDomain("booking", "unavailable")
		}
		return domain.Booking{}, err
	}

	b := domain.Booking{
		ID:         uuid.NewString(),
		ListingID:  l.ID,
		GuestID:    actor.UserID,
		CheckIn:    checkIn,
		CheckOut:   checkOut,
		Nights:     q.Nights,
		TotalMinor: q.TotalMinor,
		Currency:   l.Currency,
		Status:     domain.BookingPending,
		CreatedAt:  s.now().UTC(),
	}
	if err := s.stays.CreateBooking(ctx, b); err != nil {
		if errors.Is(err, domain.ErrUnavailable) {
			observability.ObserveDomain("booking", "unavailable")
		}
		return domain.Booking{}, err
	}
	observability.ObserveDomain("booking", "created")
	log.Info().Str("booking", b.ID).Str("listing", l.ID).Int("nights", b.Nights).Msg("booking created")
	return b, nil
}

const (
	BookingConfirm = "confirm"
	BookingDecline = "decline"
)

// Respond lets the listing owner confirm or decline a pending booking.
func (s *StayService) Respond(ctx context.Context, actor Actor, bookingID, action string) (domain.Booking, error) {
	if err := requireActor(actor); err != nil {
		return domain.Booking{}, err
	}
	to := map[string]string{BookingConfirm: domain.BookingConfirmed, BookingDecline: domain.BookingDeclined}[action]
	if to == "" {
		return domain.Booking{}, invalidf("unknown action %q", action)
	}
	b, err := s.stays.GetBooking(ctx, bookingID)
	if err != nil {
		return domain.Booking{}, err
	}
	l, err := s.listings.GetListing(ctx, b.ListingID)
	if err != nil {
		return domain.Booking{}, fmt.Errorf("listing for booking %s: %w", bookingID, err)
	}
	if !actor.owns(l) {
		return domain.Booking{}, domain.ErrForbidden
	}
	if err := s.stays.TransitionBooking(ctx, bookingID, []string{domain.BookingPending}, to); err != nil {
		return domain.Booking{}, err
	}
	observability.ObserveDomain("booking", to)
	b.Status = to
	return b, nil
}

// Cancel lets the guest withdraw a pending or confirmed booking.
func (s *StayService) Cancel(ctx context.Context, actor Actor, bookingID string) (domain.Booking, error) {
	if err := requireActor(actor); err != nil {
		return domain.Booking{}, err
	}
	b, err := s.stays.GetBooking(ctx, bookingID)
	if err != nil {
		return domain.Booking{}, err
	}
	if b.GuestID != actor.UserID {
		return domain.Booking{}, domain.ErrForbidden
	}
	from := []string{domain.BookingPending, domain.BookingConfirmed}
	if err := s.stays.TransitionBooking(ctx, bookingID, from, domain.BookingCancelled); err != nil {
		return domain.Booking{}, err
	}
	observability.ObserveDomain("booking", domain.BookingCancelled)
	b.Status = domain.BookingCancelled
	return b, nil
}
