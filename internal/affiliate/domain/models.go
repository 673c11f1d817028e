package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/datatypes"
)

const (
	OnboardingStatusPending  = "pending"
	OnboardingStatusComplete = "complete"
)

// Affiliate is the payout counterparty. StripeAccountID is empty until the
// affiliate finishes connected-account onboarding; the capability flags are a
// local cache of provider state and may lag behind it.
type Affiliate struct {
	ID               snowflake.ID `gorm:"primaryKey" json:"id"`
	Name             string       `gorm:"not null" json:"name"`
	Email            string       `gorm:"not null" json:"email"`
	CommissionRate   float64      `gorm:"not null" json:"commission_rate"`
	StripeAccountID  string       `gorm:"column:stripe_account_id" json:"stripe_account_id,omitempty"`
	ChargesEnabled   bool         `gorm:"not null;default:false" json:"charges_enabled"`
	PayoutsEnabled   bool         `gorm:"not null;default:false" json:"payouts_enabled"`
	DetailsSubmitted bool         `gorm:"not null;default:false" json:"details_submitted"`
	OnboardingStatus string       `gorm:"not null;default:pending" json:"onboarding_status"`

	PendingCommission float64    `gorm:"not null;default:0" json:"pending_commission"`
	PaidCommission    float64    `gorm:"not null;default:0" json:"paid_commission"`
	TotalPaidOut      float64    `gorm:"not null;default:0" json:"total_paid_out"`
	LastPayoutAt      *time.Time `json:"last_payout_at,omitempty"`

	Metadata  datatypes.JSONMap `gorm:"type:jsonb;not null;default:'{}'" json:"metadata,omitempty"`
	CreatedAt time.Time         `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
	UpdatedAt time.Time         `gorm:"not null;default:CURRENT_TIMESTAMP" json:"updated_at"`
}

// PayoutReady reports whether the cached capability state allows transfers.
func (a *Affiliate) PayoutReady() bool {
	return a.StripeAccountID != "" && a.PayoutsEnabled
}
