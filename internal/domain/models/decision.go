package models

import (
	"time"

	"github.com/opendgw/odg/pkg/constants"
)

// RateLimitResult is the outcome of a single quota check.
type RateLimitResult struct {
	// Allowed indicates whether the request was admitted.
	Allowed bool
	// Limit is the tier's maximum requests per window.
	Limit int
	// Remaining is the number of admissions left in the current window.
	Remaining int
	// ResetAt is when a request admitted now would stop counting.
	ResetAt time.Time
	// RetryAfter is how long a denied caller should wait. Zero when allowed.
	RetryAfter time.Duration
}

// UsageStatus is a point-in-time view of a user's quota consumption.
//
// WindowEnd is deliberately now+window, not now: it is the reset boundary a
// request admitted at query time would get, matching RateLimitResult.ResetAt,
// so callers see one consistent boundary on both read and write paths.
type UsageStatus struct {
	CurrentCount int
	Limit        int
	WindowStart  time.Time
	WindowEnd    time.Time
}

// AccessDecision is the single pass/fail verdict of the decision engine.
// A rate-limited outcome is a successful decision carrying Allowed=false,
// not an error: the system worked and said no.
type AccessDecision struct {
	Allowed         bool
	Reason          constants.DecisionReason
	RateLimitStatus *RateLimitResult
	Message         string
}

// Allowed builds the admitted decision.
func DecisionAllowed(status *RateLimitResult) *AccessDecision {
	return &AccessDecision{
		Allowed:         true,
		Reason:          constants.ReasonAuthenticated,
		RateLimitStatus: status,
	}
}

// DecisionDenied builds a denied decision with a reason and message.
func DecisionDenied(reason constants.DecisionReason, message string) *AccessDecision {
	return &AccessDecision{
		Allowed: false,
		Reason:  reason,
		Message: message,
	}
}

// DecisionRateLimited builds the quota-denied decision.
func DecisionRateLimited(status *RateLimitResult, message string) *AccessDecision {
	return &AccessDecision{
		Allowed:         false,
		Reason:          constants.ReasonRateLimitExceeded,
		RateLimitStatus: status,
		Message:         message,
	}
}
