package domain

import (
	"context"
	"errors"

	"github.com/bwmarrin/snowflake"
	integritydomain "github.com/smallbiznis/partnerpay/internal/integrity/domain"
)

// Terminal and steady states of one payout run. BlockedOnboarding and
// FailedRetryable are expected steady states re-entered later by an external
// trigger (onboarding completion or a scheduled retry), not error paths.
const (
	StatePaid              = "paid"
	StateAlreadyPaid       = "already_paid"
	StateBlockedFraud      = "blocked_fraud"
	StateBlockedOnboarding = "blocked_onboarding"
	StateFailedRetryable   = "failed_retryable"
	StateFailedTerminal    = "failed_terminal"
)

// Result is the structured outcome of a payout run. The orchestrator never
// panics and never surfaces the error taxonomy as Go errors; the invoking
// webhook handler must always be able to acknowledge the triggering event.
type Result struct {
	Success                bool    `json:"success"`
	State                  string  `json:"state,omitempty"`
	TransferID             string  `json:"transfer_id,omitempty"`
	Amount                 float64 `json:"amount,omitempty"`
	Error                  string  `json:"error,omitempty"`
	RequiresManualReview   bool    `json:"requires_manual_review,omitempty"`
	NeedsChannelOnboarding bool    `json:"needs_channel_onboarding,omitempty"`
}

// GateResult is the safety gate's verdict ahead of a transfer attempt.
// Integrity violations are surfaced verbatim and are terminal; an AlreadyPaid
// hit is treated as success by the orchestrator.
type GateResult struct {
	Safe        bool                        `json:"safe"`
	AlreadyPaid bool                        `json:"already_paid"`
	Reasons     []string                    `json:"reasons,omitempty"`
	Violations  []integritydomain.Violation `json:"violations,omitempty"`
}

type Service interface {
	// Payout drives a commission's connected-account transfer to completion.
	// Safe to invoke any number of times for the same commission; only
	// infrastructure failures are returned as errors.
	Payout(ctx context.Context, commissionID snowflake.ID, orderID snowflake.ID) (Result, error)

	// CheckSafe runs the safety gate alone, without side effects.
	CheckSafe(ctx context.Context, commissionID snowflake.ID) (GateResult, error)
}

var (
	ErrCommissionNotFound = errors.New("commission_not_found")
	ErrAffiliateNotFound  = errors.New("affiliate_not_found")
	ErrOrderNotFound      = errors.New("order_not_found")
)
