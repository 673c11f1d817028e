package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/datatypes"
)

const (
	StatusPending   = "pending"
	StatusApproved  = "approved"
	StatusPaid      = "paid"
	StatusCancelled = "cancelled"
)

// TransferStatusProcessing is set when the provider accepted the transfer;
// final settlement confirmation arrives later on the provider's event stream.
const TransferStatusProcessing = "processing"

// Commission is a monetary entitlement owed to an affiliate for one order.
// OrderTotal, CommissionRate, CommissionAmount and Currency are snapshots
// captured at creation time. They are never recomputed in place, only
// compared against freshly recomputed expected values by the integrity
// validator. Cancellation is a status change, never a delete.
type Commission struct {
	ID          snowflake.ID `gorm:"primaryKey" json:"id"`
	OrderID     snowflake.ID `gorm:"not null;uniqueIndex" json:"order_id"`
	AffiliateID snowflake.ID `gorm:"not null;index" json:"affiliate_id"`

	OrderTotal       float64 `gorm:"not null" json:"order_total"`
	CommissionRate   float64 `gorm:"not null" json:"commission_rate"`
	CommissionAmount float64 `gorm:"not null" json:"commission_amount"`
	Currency         string  `gorm:"not null;default:USD" json:"currency"`

	Status string `gorm:"not null;default:pending;index" json:"status"`

	TransferID            string     `gorm:"column:transfer_id" json:"transfer_id,omitempty"`
	TransferStatus        string     `gorm:"column:transfer_status" json:"transfer_status,omitempty"`
	TransferError         string     `gorm:"column:transfer_error" json:"transfer_error,omitempty"`
	TransferAttemptCount  int        `gorm:"not null;default:0" json:"transfer_attempt_count"`
	LastTransferAttemptAt *time.Time `json:"last_transfer_attempt_at,omitempty"`
	PaidAt                *time.Time `json:"paid_at,omitempty"`
	PaymentMethod         string     `gorm:"column:payment_method" json:"payment_method,omitempty"`

	RequiresManualReview bool   `gorm:"not null;default:false" json:"requires_manual_review"`
	PayoutNotes          string `gorm:"column:payout_notes" json:"payout_notes,omitempty"`

	Metadata  datatypes.JSONMap `gorm:"type:jsonb;not null;default:'{}'" json:"metadata,omitempty"`
	CreatedAt time.Time         `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
	UpdatedAt time.Time         `gorm:"not null;default:CURRENT_TIMESTAMP" json:"updated_at"`
}

// AlreadyPaid reports whether any proof-of-payment field is present. Checking
// every field, not a single boolean, is intentional: concurrent duplicate
// invocations may have written partial state, and any one field must be
// enough to block a second transfer.
func (c *Commission) AlreadyPaid() bool {
	return c.Status == StatusPaid || c.TransferID != ""
}
