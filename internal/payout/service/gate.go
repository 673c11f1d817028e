package service

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/partnerpay/internal/payout/domain"
)

// CheckSafe is the payout safety gate. Integrity comes first: a tampered or
// miscomputed commission is terminal and never auto-retried. Only when
// integrity passes is the commission re-loaded for the duplicate-payment
// check, so that partial state written by a concurrent invocation is seen.
func (s *Service) CheckSafe(ctx context.Context, commissionID snowflake.ID) (domain.GateResult, error) {
	validation, err := s.integritySvc.Validate(ctx, commissionID)
	if err != nil {
		return domain.GateResult{}, err
	}
	if !validation.Valid {
		reasons := make([]string, 0, len(validation.Violations))
		for _, violation := range validation.Violations {
			reasons = append(reasons, violation.Reason)
		}
		return domain.GateResult{
			Safe:       false,
			Reasons:    reasons,
			Violations: validation.Violations,
		}, nil
	}

	// Fresh read: the validator's copy may predate a concurrent payout.
	commission, err := s.commissionRepo.FindByID(ctx, s.db, commissionID)
	if err != nil {
		return domain.GateResult{}, err
	}
	if commission == nil {
		return domain.GateResult{}, domain.ErrCommissionNotFound
	}
	if commission.AlreadyPaid() {
		return domain.GateResult{
			Safe:        false,
			AlreadyPaid: true,
			Reasons:     []string{"commission already paid"},
		}, nil
	}

	return domain.GateResult{Safe: true}, nil
}
