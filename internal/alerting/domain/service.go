package domain

import (
	"context"

	integritydomain "github.com/smallbiznis/partnerpay/internal/integrity/domain"
)

// FraudAlert describes a payout blocked by the integrity validator. It always
// carries the full list of violated invariants, not just the gating one, so
// operators get complete diagnostic context in a single notification.
type FraudAlert struct {
	CommissionID     string
	AffiliateID      string
	AffiliateName    string
	CommissionAmount float64
	Currency         string
	Violations       []integritydomain.Violation
}

// Service dispatches operator-facing security alerts. Dispatch failure must
// never retroactively unblock a payout decision already made; callers log the
// returned error and move on.
type Service interface {
	DispatchFraudAlert(ctx context.Context, alert FraudAlert) error
}
