package referral

import (
	"fmt"
	"time"

	"rentbay/internal/domain"
)

// SignalsFor derives risk signals for a cashout of amount against the account.
func SignalsFor(acct domain.ReferralAccount, amountMinor int64, now time.Time, th Thresholds) Signals {
	return Signals{
		NewAccount:           now.Sub(acct.CreatedAt) < th.NewAccountAge,
		HighVelocity:         acct.CashoutsLast24h >= th.VelocityPerDay,
		SelfReferral:         acct.SharedDeviceHits > 0,
		UnverifiedPayout:     !acct.PayoutVerified,
		AmountAboveThreshold: amountMinor > th.LargeAmountMinor,
	}
}

// CheckAmount validates a requested cashout against the minimum and available balance.
func CheckAmount(acct domain.ReferralAccount, amountMinor, minMinor int64) error {
	if amountMinor <= 0 || amountMinor < minMinor {
		return fmt.Errorf("%w: minimum cashout is %d", domain.ErrInvalid, minMinor)
	}
	if amountMinor > acct.AvailableMinor() {
		return fmt.Errorf("%w: amount exceeds available balance", domain.ErrConflict)
	}
	return nil
}

// StatusFor maps the risk action onto the stored cashout status.
func StatusFor(action string) string {
	switch action {
	case ActionAutoApprove:
		return domain.CashoutApproved
	case ActionHold:
		return domain.CashoutHeld
	default:
		return domain.CashoutPendingReview
	}
}
