package domain

import "time"

type BillingAccount struct {
	OwnerID   string
	Plan      string
	Credits   int
	RenewsAt  *time.Time
	UpdatedAt time.Time
}

type LedgerEntry struct {
	ID             string
	OwnerID        string
	Delta          int
	Reason         string
	IdempotencyKey string
	BalanceAfter   int
	CreatedAt      time.Time
}

type FeatureRequest struct {
	ListingID      string
	OwnerID        string
	IdempotencyKey string
	Duration       time.Duration
	Now            time.Time
}

type FeatureResult struct {
	FeaturedUntil time.Time
	Entry         LedgerEntry
	Replayed      bool
}
