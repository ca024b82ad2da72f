package billing

import (
	"fmt"
	"strings"

	"rentbay/internal/domain"
)

const (
	PlanFree    = "free"
	PlanStarter = "starter"
	PlanPro     = "pro"
	PlanAgency  = "agency"
)

// Unlimited marks a plan without a listing cap.
const Unlimited = -1

type Plan struct {
	Name           string `json:"name"`
	ActiveListings int    `json:"active_listings"`
	MonthlyCredits int    `json:"monthly_credits"`
}

var plans = map[string]Plan{
	PlanFree:    {Name: PlanFree, ActiveListings: 1, MonthlyCredits: 0},
	PlanStarter: {Name: PlanStarter, ActiveListings: 5, MonthlyCredits: 2},
	PlanPro:     {Name: PlanPro, ActiveListings: 25, MonthlyCredits: 10},
	PlanAgency:  {Name: PlanAgency, ActiveListings: Unlimited, MonthlyCredits: 50},
}

// Lookup returns the named plan; unknown names fall back to free.
func Lookup(name string) Plan {
	if p, ok := plans[strings.ToLower(strings.TrimSpace(name))]; ok {
		return p
	}
	return plans[PlanFree]
}

// CanPublish reports whether one more listing fits under the plan.
func CanPublish(plan string, activeCount int) bool {
	p := Lookup(plan)
	return p.ActiveListings == Unlimited || activeCount < p.ActiveListings
}

// EnsureCanPublish is CanPublish as an error.
func EnsureCanPublish(plan string, activeCount int) error {
	if CanPublish(plan, activeCount) {
		return nil
	}
	p := Lookup(plan)
	return fmt.Errorf("%w: %s plan allows %d active listings", domain.ErrPlanLimit, p.Name, p.ActiveListings)
}

// Remaining listing slots, or Unlimited.
func Remaining(plan string, activeCount int) int {
	p := Lookup(plan)
	if p.ActiveListings == Unlimited {
		return Unlimited
	}
	if left := p.ActiveListings - activeCount; left > 0 {
		return left
	}
	return 0
}
