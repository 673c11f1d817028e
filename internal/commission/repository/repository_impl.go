package repository

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/partnerpay/internal/commission/domain"
	"github.com/smallbiznis/partnerpay/pkg/db/pagination"
	"gorm.io/gorm"
)

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

func (r *repo) FindByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*domain.Commission, error) {
	var commission domain.Commission
	err := db.WithContext(ctx).Raw(
		`SELECT id, order_id, affiliate_id, order_total, commission_rate, commission_amount, currency,
		        status, transfer_id, transfer_status, transfer_error, transfer_attempt_count,
		        last_transfer_attempt_at, paid_at, payment_method, requires_manual_review, payout_notes,
		        metadata, created_at, updated_at
		 FROM commissions WHERE id = ?`,
		id,
	).Scan(&commission).Error
	if err != nil {
		return nil, err
	}
	if commission.ID == 0 {
		return nil, nil
	}
	return &commission, nil
}

func (r *repo) ListByAffiliate(ctx context.Context, db *gorm.DB, affiliateID snowflake.ID, filter domain.ListCommissionFilter, page pagination.Pagination) ([]*domain.Commission, error) {
	var commissions []*domain.Commission
	stmt := db.WithContext(ctx).
		Model(&domain.Commission{}).
		Where("affiliate_id = ?", affiliateID)
	if filter.Status != "" {
		stmt = stmt.Where("status = ?", filter.Status)
	}
	if filter.CreatedFrom != nil {
		stmt = stmt.Where("created_at >= ?", *filter.CreatedFrom)
	}
	if filter.CreatedTo != nil {
		stmt = stmt.Where("created_at <= ?", *filter.CreatedTo)
	}
	if page.PageToken != "" {
		cursor, err := pagination.DecodeCursor(page.PageToken)
		if err == nil && cursor.CreatedAt != "" && cursor.ID != "" {
			stmt = stmt.Where("(created_at, id) < (?, ?)", cursor.CreatedAt, cursor.ID)
		}
	}
	if page.PageSize > 0 {
		stmt = stmt.Limit(page.PageSize + 1)
	}
	err := stmt.
		Order("created_at desc, id desc").
		Find(&commissions).Error
	if err != nil {
		return nil, err
	}
	return commissions, nil
}

func (r *repo) MarkPaid(ctx context.Context, db *gorm.DB, id snowflake.ID, transferID string, paymentMethod string, paidAt time.Time) error {
	return db.WithContext(ctx).Exec(
		`UPDATE commissions
		 SET status = ?, transfer_id = ?, transfer_status = ?, transfer_error = '',
		     payment_method = ?, paid_at = ?, updated_at = ?
		 WHERE id = ?`,
		domain.StatusPaid,
		transferID,
		domain.TransferStatusProcessing,
		paymentMethod,
		paidAt,
		paidAt,
		id,
	).Error
}

func (r *repo) RecordTransferFailure(ctx context.Context, db *gorm.DB, id snowflake.ID, transferErr string, attemptAt time.Time, requiresReview bool) error {
	// transfer_attempt_count is incremented in SQL so it stays monotonically
	// non-decreasing across concurrent invocations.
	return db.WithContext(ctx).Exec(
		`UPDATE commissions
		 SET transfer_error = ?,
		     transfer_attempt_count = transfer_attempt_count + 1,
		     last_transfer_attempt_at = ?,
		     requires_manual_review = CASE WHEN ? THEN TRUE ELSE requires_manual_review END,
		     updated_at = ?
		 WHERE id = ?`,
		transferErr,
		attemptAt,
		requiresReview,
		attemptAt,
		id,
	).Error
}

func (r *repo) MarkBlocked(ctx context.Context, db *gorm.DB, id snowflake.ID, notes string, now time.Time) error {
	return db.WithContext(ctx).Exec(
		`UPDATE commissions
		 SET status = ?, payout_notes = ?, requires_manual_review = TRUE, updated_at = ?
		 WHERE id = ?`,
		domain.StatusPending,
		notes,
		now,
		id,
	).Error
}

func (r *repo) FlagManualReview(ctx context.Context, db *gorm.DB, id snowflake.ID, notes string, now time.Time) error {
	return db.WithContext(ctx).Exec(
		`UPDATE commissions
		 SET payout_notes = ?, requires_manual_review = TRUE, updated_at = ?
		 WHERE id = ?`,
		notes,
		now,
		id,
	).Error
}
