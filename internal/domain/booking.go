package domain

import "time"

const (
	BookingPending   = "pending"
	BookingConfirmed = "confirmed"
	BookingDeclined  = "declined"
	BookingCancelled = "cancelled"
)

type Booking struct {
	ID         string
	ListingID  string
	GuestID    string
	CheckIn    time.Time
	CheckOut   time.Time
	Nights     int
	TotalMinor int64
	Currency   string
	Status     string
	CreatedAt  time.Time
}
