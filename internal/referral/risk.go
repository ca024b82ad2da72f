package referral

import "time"

const (
	SeverityNone   = "none"
	SeverityLow    = "low"
	SeverityMedium = "medium"
	SeverityHigh   = "high"
)

const (
	ActionAutoApprove  = "auto_approve"
	ActionManualReview = "manual_review"
	ActionHold         = "hold"
)

// Signals are the five inputs to cashout risk scoring.
type Signals struct {
	NewAccount           bool
	HighVelocity         bool
	SelfReferral         bool
	UnverifiedPayout     bool
	AmountAboveThreshold bool
}

type Assessment struct {
	Score     int      `json:"score"`
	Severity  string   `json:"severity"`
	Action    string   `json:"action"`
	Triggered []string `json:"triggered"`
}

var weights = []struct {
	name   string
	weight int
	on     func(Signals) bool
}{
	{"self_referral", 3, func(s Signals) bool { return s.SelfReferral }},
	{"high_velocity", 2, func(s Signals) bool { return s.HighVelocity }},
	{"unverified_payout", 2, func(s Signals) bool { return s.UnverifiedPayout }},
	{"new_account", 1, func(s Signals) bool { return s.NewAccount }},
	{"amount_above_threshold", 1, func(s Signals) bool { return s.AmountAboveThreshold }},
}

// severityByScore is indexed by score; scores past the end are high.
var severityByScore = []string{
	SeverityNone,
	SeverityLow, SeverityLow,
	SeverityMedium, SeverityMedium,
}

var actionBySeverity = map[string]string{
	SeverityNone:   ActionAutoApprove,
	SeverityLow:    ActionAutoApprove,
	SeverityMedium: ActionManualReview,
	SeverityHigh:   ActionHold,
}

func Assess(s Signals) Assessment {
	a := Assessment{Triggered: []string{}}
	for _, w := range weights {
		if w.on(s) {
			a.Score += w.weight
			a.Triggered = append(a.Triggered, w.name)
		}
	}
	a.Severity = SeverityHigh
	if a.Score < len(severityByScore) {
		a.Severity = severityByScore[a.Score]
	}
	a.Action = actionBySeverity[a.Severity]
	return a
}

type Thresholds struct {
	NewAccountAge    time.Duration
	VelocityPerDay   int
	LargeAmountMinor int64
}

var DefaultThresholds = Thresholds{
	NewAccountAge:    7 * 24 * time.Hour,
	VelocityPerDay:   3,
	LargeAmountMinor: 50_000_00,
}
