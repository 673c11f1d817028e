package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/datatypes"
)

// Order is created by the checkout pipeline and immutable once paid.
// AffiliateID is nil for organic sales with no attribution.
type Order struct {
	ID              snowflake.ID      `gorm:"primaryKey" json:"id"`
	AffiliateID     *snowflake.ID     `gorm:"index" json:"affiliate_id,omitempty"`
	TotalAmount     float64           `gorm:"not null" json:"total_amount"`
	Currency        string            `gorm:"not null;default:USD" json:"currency"`
	PaymentIntentID string            `gorm:"column:payment_intent_id" json:"payment_intent_id,omitempty"`
	Status          string            `gorm:"not null;default:pending" json:"status"`
	Metadata        datatypes.JSONMap `gorm:"type:jsonb;not null;default:'{}'" json:"metadata,omitempty"`
	CreatedAt       time.Time         `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
	UpdatedAt       time.Time         `gorm:"not null;default:CURRENT_TIMESTAMP" json:"updated_at"`
}
