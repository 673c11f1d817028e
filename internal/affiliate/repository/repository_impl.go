package repository

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/partnerpay/internal/affiliate/domain"
	"gorm.io/gorm"
)

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

func (r *repo) FindByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*domain.Affiliate, error) {
	var affiliate domain.Affiliate
	err := db.WithContext(ctx).Raw(
		`SELECT id, name, email, commission_rate, stripe_account_id,
		        charges_enabled, payouts_enabled, details_submitted, onboarding_status,
		        pending_commission, paid_commission, total_paid_out, last_payout_at,
		        metadata, created_at, updated_at
		 FROM affiliates WHERE id = ?`,
		id,
	).Scan(&affiliate).Error
	if err != nil {
		return nil, err
	}
	if affiliate.ID == 0 {
		return nil, nil
	}
	return &affiliate, nil
}

func (r *repo) UpdateCapabilities(ctx context.Context, db *gorm.DB, id snowflake.ID, caps domain.Capabilities, onboardingStatus string, now time.Time) error {
	return db.WithContext(ctx).Exec(
		`UPDATE affiliates
		 SET charges_enabled = ?, payouts_enabled = ?, details_submitted = ?,
		     onboarding_status = ?, updated_at = ?
		 WHERE id = ?`,
		caps.ChargesEnabled,
		caps.PayoutsEnabled,
		caps.DetailsSubmitted,
		onboardingStatus,
		now,
		id,
	).Error
}

func (r *repo) ApplyPayoutDelta(ctx context.Context, db *gorm.DB, id snowflake.ID, amount float64, paidAt time.Time) error {
	// Relative update so concurrent payouts for the same affiliate cannot
	// lose each other's writes. Pending balance is floored at zero.
	return db.WithContext(ctx).Exec(
		`UPDATE affiliates
		 SET paid_commission = paid_commission + ?,
		     pending_commission = CASE WHEN pending_commission - ? < 0 THEN 0 ELSE pending_commission - ? END,
		     total_paid_out = total_paid_out + ?,
		     last_payout_at = ?,
		     updated_at = ?
		 WHERE id = ?`,
		amount,
		amount,
		amount,
		amount,
		paidAt,
		paidAt,
		id,
	).Error
}
