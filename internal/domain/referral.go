package domain

import "time"

const (
	CashoutPendingReview = "pending_review"
	CashoutApproved      = "approved"
	CashoutHeld          = "held"
	CashoutPaid          = "paid"
)

// ReferralAccount aggregates what risk scoring needs about a referrer.
type ReferralAccount struct {
	UserID           string
	CreatedAt        time.Time
	PayoutVerified   bool
	EarnedMinor      int64
	PaidMinor        int64
	PendingMinor     int64
	CashoutsLast24h  int
	SharedDeviceHits int
}

func (a ReferralAccount) AvailableMinor() int64 {
	return a.EarnedMinor - a.PaidMinor - a.PendingMinor
}

type Cashout struct {
	ID          string
	UserID      string
	AmountMinor int64
	Currency    string
	Status      string
	Severity    string
	Signals     []string
	CreatedAt   time.Time
}
