package moderation

import (
	"fmt"
	"strings"

	"rentbay/internal/domain"
)

const (
	ActionApprove        = "approve"
	ActionReject         = "reject"
	ActionRequestChanges = "request_changes"
)

type Decision struct {
	From   string
	To     string
	Reason *string
}

// Decide validates an admin action against the listing's status and rubric.
func Decide(status, action, reason string, r Rubric) (Decision, error) {
	if status != domain.StatusPending {
		return Decision{}, fmt.Errorf("%w: listing is %s, not pending", domain.ErrConflict, status)
	}
	reason = strings.TrimSpace(reason)
	switch action {
	case ActionApprove:
		if !r.Approvable() {
			return Decision{}, fmt.Errorf("%w: rubric has failing checks", domain.ErrConflict)
		}
		return Decision{From: status, To: domain.StatusLive}, nil
	case ActionReject, ActionRequestChanges:
		if reason == "" {
			return Decision{}, fmt.Errorf("%w: reason is required", domain.ErrInvalid)
		}
		to := domain.StatusRejected
		if action == ActionRequestChanges {
			to = domain.StatusChangesRequested
		}
		return Decision{From: status, To: to, Reason: &reason}, nil
	default:
		return Decision{}, fmt.Errorf("%w: unknown action %q", domain.ErrInvalid, action)
	}
}
