package domain

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/partnerpay/pkg/db/pagination"
	"gorm.io/gorm"
)

type ListCommissionFilter struct {
	Status      string
	CreatedFrom *time.Time
	CreatedTo   *time.Time
}

type Repository interface {
	FindByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*Commission, error)
	ListByAffiliate(ctx context.Context, db *gorm.DB, affiliateID snowflake.ID, filter ListCommissionFilter, page pagination.Pagination) ([]*Commission, error)

	// MarkPaid records a completed transfer: status=paid, transfer id,
	// transfer_status=processing, payment method, paid_at, and clears any
	// stored transfer error.
	MarkPaid(ctx context.Context, db *gorm.DB, id snowflake.ID, transferID string, paymentMethod string, paidAt time.Time) error

	// RecordTransferFailure persists a provider error. The attempt counter is
	// incremented by the data store so it stays monotonic under concurrent
	// invocations.
	RecordTransferFailure(ctx context.Context, db *gorm.DB, id snowflake.ID, transferErr string, attemptAt time.Time, requiresReview bool) error

	// MarkBlocked reverts the commission to pending with the gate's reasons on
	// payout_notes and flags it for manual review.
	MarkBlocked(ctx context.Context, db *gorm.DB, id snowflake.ID, notes string, now time.Time) error

	// FlagManualReview attaches a note and sets requires_manual_review without
	// touching status, used when attribution cannot be resolved.
	FlagManualReview(ctx context.Context, db *gorm.DB, id snowflake.ID, notes string, now time.Time) error
}
