package app

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"rentbay/internal/adapters/observability"
	"rentbay/internal/domain"
	"rentbay/internal/referral"
)

type ReferralService struct {
	repo       domain.ReferralRepository
	minMinor   int64
	currency   string
	thresholds referral.Thresholds
	queueLimit int
	now        func() time.Time
}

func NewReferralService(r domain.ReferralRepository, minMinor int64, currency string) *ReferralService {
	return &ReferralService{
		repo:       r,
		minMinor:   minMinor,
		currency:   currency,
		thresholds: referral.DefaultThresholds,
		queueLimit: 100,
		now:        time.Now,
	}
}

func (s *ReferralService) WithClock(now func() time.Time) *ReferralService {
	s.now = now
	return s
}

func (s *ReferralService) WithQueueLimit(n int) *ReferralService {
	if n > 0 {
		s.queueLimit = n
	}
	return s
}

type CashoutResult struct {
	Cashout    domain.Cashout
	Assessment referral.Assessment
}

// RequestCashout scores the request and stores it as approved, pending review or held.
func (s *ReferralService) RequestCashout(ctx context.Context, actor Actor, amountMinor int64) (CashoutResult, error) {
	if err := requireActor(actor); err != nil {
		return CashoutResult{}, err
	}
	now := s.now().UTC()
	acct, err := s.repo.GetReferralAccount(ctx, actor.UserID, now)
	if err != nil {
		return CashoutResult{}, err
	}
	if err := referral.CheckAmount(acct, amountMinor, s.minMinor); err != nil {
		return CashoutResult{}, err
	}

	a := referral.Assess(referral.SignalsFor(acct, amountMinor, now, s.thresholds))
	c := domain.Cashout{
		ID:          uuid.NewString(),
		UserID:      actor.UserID,
		AmountMinor: amountMinor,
		Currency:    s.currency,
		Status:      referral.StatusFor(a.Action),
		Severity:    a.Severity,
		Signals:     a.Triggered,
		CreatedAt:   now,
	}
	if err := s.repo.CreateCashout(ctx, c); err != nil {
		return CashoutResult{}, err
	}
	observability.ObserveDomain("cashout_risk", a.Severity)
	if a.Action != referral.ActionAutoApprove {
		log.Info().Str("cashout", c.ID).Str("user", c.UserID).Str("severity", a.Severity).
			Strs("signals", a.Triggered).Msg("cashout flagged")
	}
	return CashoutResult{Cashout: c, Assessment: a}, nil
}

// Queue lists cashouts awaiting an admin, pending review by default.
func (s *ReferralService) Queue(ctx context.Context, status string) ([]domain.Cashout, error) {
	switch status {
	case "":
		status = domain.CashoutPendingReview
	case domain.CashoutPendingReview, domain.CashoutHeld, domain.CashoutApproved, domain.CashoutPaid:
	default:
		return nil, invalidf("unknown cashout status %q", status)
	}
	out, err := s.repo.ListCashouts(ctx, status, s.queueLimit)
	if err != nil {
		return nil, err
	}
	if out == nil {
		out = []domain.Cashout{}
	}
	return out, nil
}
