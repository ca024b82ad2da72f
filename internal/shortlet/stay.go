package shortlet

import (
	"fmt"
	"time"

	"rentbay/internal/domain"
)

type StayPolicy struct {
	MinNights int
	MaxNights int
}

// ValidateStay returns the number of nights for [checkIn, checkOut) or an error when the
// stay breaks the policy or overlaps a booked range.
func ValidateStay(checkIn, checkOut time.Time, p StayPolicy, booked []domain.DateRange) (int, error) {
	if !checkOut.After(checkIn) {
		return 0, fmt.Errorf("%w: check-out must be after check-in", domain.ErrInvalid)
	}
	nights := Nights(checkIn, checkOut)
	if p.MinNights > 0 && nights < p.MinNights {
		return 0, fmt.Errorf("%w: minimum stay is %d nights", domain.ErrInvalid, p.MinNights)
	}
	if p.MaxNights > 0 && nights > p.MaxNights {
		return 0, fmt.Errorf("%w: maximum stay is %d nights", domain.ErrInvalid, p.MaxNights)
	}
	stay := domain.DateRange{From: checkIn, To: checkOut}
	for _, r := range booked {
		if stay.Overlaps(r) {
			return 0, domain.ErrUnavailable
		}
	}
	return nights, nil
}

// Nights counts calendar nights between two dates.
func Nights(checkIn, checkOut time.Time) int {
	in := time.Date(checkIn.Year(), checkIn.Month(), checkIn.Day(), 0, 0, 0, 0, time.UTC)
	out := time.Date(checkOut.Year(), checkOut.Month(), checkOut.Day(), 0, 0, 0, 0, time.UTC)
	return int(out.Sub(in).Hours() / 24)
}

type StayQuote struct {
	Nights           int   `json:"nights"`
	NightlyMinor     int64 `json:"nightly_minor"`
	SubtotalMinor    int64 `json:"subtotal_minor"`
	CleaningFeeMinor int64 `json:"cleaning_fee_minor"`
	ServiceFeeMinor  int64 `json:"service_fee_minor"`
	TotalMinor       int64 `json:"total_minor"`
}

// Quote prices a stay. The service fee is serviceFeeBps basis points of the subtotal,
// rounded half up.
func Quote(nightlyMinor int64, nights int, cleaningFeeMinor int64, serviceFeeBps int) StayQuote {
	sub := nightlyMinor * int64(nights)
	fee := (sub*int64(serviceFeeBps) + 5_000) / 10_000
	return StayQuote{
		Nights:           nights,
		NightlyMinor:     nightlyMinor,
		SubtotalMinor:    sub,
		CleaningFeeMinor: cleaningFeeMinor,
		ServiceFeeMinor:  fee,
		TotalMinor:       sub + cleaningFeeMinor + fee,
	}
}
