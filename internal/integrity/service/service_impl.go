package service

import (
	"context"
	"fmt"
	"math"

	"github.com/bwmarrin/snowflake"
	affiliatedomain "github.com/smallbiznis/partnerpay/internal/affiliate/domain"
	commissiondomain "github.com/smallbiznis/partnerpay/internal/commission/domain"
	"github.com/smallbiznis/partnerpay/internal/integrity/domain"
	orderdomain "github.com/smallbiznis/partnerpay/internal/order/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	DB             *gorm.DB
	Log            *zap.Logger
	CommissionRepo commissiondomain.Repository
	OrderRepo      orderdomain.Repository
	AffiliateRepo  affiliatedomain.Repository
}

type Service struct {
	db             *gorm.DB
	log            *zap.Logger
	commissionRepo commissiondomain.Repository
	orderRepo      orderdomain.Repository
	affiliateRepo  affiliatedomain.Repository
}

func New(p Params) domain.Service {
	return &Service{
		db:             p.DB,
		log:            p.Log.Named("integrity.service"),
		commissionRepo: p.CommissionRepo,
		orderRepo:      p.OrderRepo,
		affiliateRepo:  p.AffiliateRepo,
	}
}

func (s *Service) Validate(ctx context.Context, commissionID snowflake.ID) (domain.ValidationResult, error) {
	commission, err := s.commissionRepo.FindByID(ctx, s.db, commissionID)
	if err != nil {
		return domain.ValidationResult{}, err
	}
	if commission == nil {
		return domain.ValidationResult{}, domain.ErrCommissionNotFound
	}

	order, err := s.orderRepo.FindByID(ctx, s.db, commission.OrderID)
	if err != nil {
		return domain.ValidationResult{}, err
	}
	if order == nil {
		return domain.ValidationResult{}, domain.ErrOrderNotFound
	}

	affiliate, err := s.affiliateRepo.FindByID(ctx, s.db, commission.AffiliateID)
	if err != nil {
		return domain.ValidationResult{}, err
	}
	if affiliate == nil {
		return domain.ValidationResult{}, domain.ErrAffiliateNotFound
	}

	violations := checkInvariants(commission, order, affiliate)
	if len(violations) > 0 {
		s.log.Warn("commission integrity violation",
			zap.String("commission_id", commissionID.String()),
			zap.String("reason", violations[0].Reason),
			zap.Int("violation_count", len(violations)),
		)
		return domain.ValidationResult{
			Valid:      false,
			Reason:     violations[0].Reason,
			Violations: violations,
		}, nil
	}

	return domain.ValidationResult{Valid: true}, nil
}

// checkInvariants evaluates the four snapshot invariants in order; the first
// entry of the returned slice is the gating violation.
func checkInvariants(commission *commissiondomain.Commission, order *orderdomain.Order, affiliate *affiliatedomain.Affiliate) []domain.Violation {
	var violations []domain.Violation

	orderAffiliate := snowflake.ID(0)
	if order.AffiliateID != nil {
		orderAffiliate = *order.AffiliateID
	}
	if commission.AffiliateID != orderAffiliate {
		violations = append(violations, domain.Violation{
			Invariant: domain.InvariantAffiliateMatch,
			Reason: fmt.Sprintf("commission affiliate %s does not match order affiliate %s",
				commission.AffiliateID, orderAffiliate),
		})
	}

	if !withinEpsilon(commission.OrderTotal, order.TotalAmount) {
		violations = append(violations, domain.Violation{
			Invariant: domain.InvariantOrderTotalMatch,
			Reason: fmt.Sprintf("stored order total %.2f does not match order amount %.2f",
				commission.OrderTotal, order.TotalAmount),
		})
	}

	if !withinEpsilon(commission.CommissionRate, affiliate.CommissionRate) {
		violations = append(violations, domain.Violation{
			Invariant: domain.InvariantCommissionRateMatch,
			Reason: fmt.Sprintf("stored commission rate %.2f does not match affiliate rate %.2f",
				commission.CommissionRate, affiliate.CommissionRate),
		})
	}

	expected := commission.OrderTotal * commission.CommissionRate / 100
	if !withinEpsilon(commission.CommissionAmount, expected) {
		violations = append(violations, domain.Violation{
			Invariant: domain.InvariantCommissionArithmetic,
			Reason: fmt.Sprintf("stored commission amount %.2f does not match expected %.2f (%.2f × %.2f%%)",
				commission.CommissionAmount, expected, commission.OrderTotal, commission.CommissionRate),
		})
	}

	return violations
}

// Monetary snapshots are compared at cent precision. The raw float64
// difference of two values exactly one cent apart can land just above 0.01,
// which would misreport the tolerated boundary as a violation.
func withinEpsilon(a, b float64) bool {
	return math.Abs(math.Round(a*100)-math.Round(b*100)) <= domain.Epsilon*100
}
