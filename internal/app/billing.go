package app

import (
	"context"
	"time"

	"rentbay/internal/billing"
	"rentbay/internal/domain"
)

type BillingService struct {
	billing  domain.BillingRepository
	listings domain.ListingRepository
}

func NewBillingService(b domain.BillingRepository, l domain.ListingRepository) *BillingService {
	return &BillingService{billing: b, listings: l}
}

type BillingOverview struct {
	Plan           billing.Plan `json:"plan"`
	Credits        int          `json:"credits"`
	Active         int          `json:"active_listings"`
	RemainingSlots int          `json:"remaining_slots"`
	CanPublish     bool         `json:"can_publish"`
	RenewsAt       *time.Time   `json:"renews_at,omitempty"`
}

func (s *BillingService) Overview(ctx context.Context, actor Actor) (BillingOverview, error) {
	if err := requireActor(actor); err != nil {
		return BillingOverview{}, err
	}
	acct, err := accountOrFree(ctx, s.billing, actor.UserID)
	if err != nil {
		return BillingOverview{}, err
	}
	counts, err := s.listings.CountByStatus(ctx, actor.UserID)
	if err != nil {
		return BillingOverview{}, err
	}
	active := activeCount(counts)
	return BillingOverview{
		Plan:           billing.Lookup(acct.Plan),
		Credits:        acct.Credits,
		Active:         active,
		RemainingSlots: billing.Remaining(acct.Plan, active),
		CanPublish:     billing.CanPublish(acct.Plan, active),
		RenewsAt:       acct.RenewsAt,
	}, nil
}
