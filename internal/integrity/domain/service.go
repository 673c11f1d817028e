package domain

import (
	"context"
	"errors"

	"github.com/bwmarrin/snowflake"
)

// Invariant names carried on violations and alert payloads.
const (
	InvariantAffiliateMatch       = "affiliate_match"
	InvariantOrderTotalMatch      = "order_total_match"
	InvariantCommissionRateMatch  = "commission_rate_match"
	InvariantCommissionArithmetic = "commission_arithmetic"
)

// Epsilon tolerates rounding on stored monetary snapshots. Amounts are never
// compared for exact equality.
const Epsilon = 0.01

type Violation struct {
	Invariant string `json:"invariant"`
	Reason    string `json:"reason"`
}

// ValidationResult reports the first violated invariant as Reason (checks run
// in a fixed order) and every violated invariant in Violations so alerting can
// give operators the complete picture in one message.
type ValidationResult struct {
	Valid      bool        `json:"valid"`
	Reason     string      `json:"reason,omitempty"`
	Violations []Violation `json:"violations,omitempty"`
}

// Service recomputes a commission's snapshot fields from the authoritative
// order and affiliate records and flags any divergence. Read-only.
type Service interface {
	Validate(ctx context.Context, commissionID snowflake.ID) (ValidationResult, error)
}

var (
	ErrCommissionNotFound = errors.New("commission_not_found")
	ErrOrderNotFound      = errors.New("order_not_found")
	ErrAffiliateNotFound  = errors.New("affiliate_not_found")
)
