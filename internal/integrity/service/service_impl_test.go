package service_test

import (
	"context"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/glebarez/sqlite"
	affiliaterepo "github.com/smallbiznis/partnerpay/internal/affiliate/repository"
	commissionrepo "github.com/smallbiznis/partnerpay/internal/commission/repository"
	integritydomain "github.com/smallbiznis/partnerpay/internal/integrity/domain"
	integrityservice "github.com/smallbiznis/partnerpay/internal/integrity/service"
	orderrepo "github.com/smallbiznis/partnerpay/internal/order/repository"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	dsn := fmt.Sprintf("file:memdb_integrity_%d?mode=memory&cache=shared", time.Now().UnixNano())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	require.NoError(t, err)

	schema := []string{
		`CREATE TABLE affiliates (
			id INTEGER PRIMARY KEY,
			name TEXT NOT NULL,
			email TEXT NOT NULL,
			commission_rate REAL NOT NULL DEFAULT 0,
			stripe_account_id TEXT NOT NULL DEFAULT '',
			charges_enabled BOOLEAN NOT NULL DEFAULT FALSE,
			payouts_enabled BOOLEAN NOT NULL DEFAULT FALSE,
			details_submitted BOOLEAN NOT NULL DEFAULT FALSE,
			onboarding_status TEXT NOT NULL DEFAULT 'pending',
			pending_commission REAL NOT NULL DEFAULT 0,
			paid_commission REAL NOT NULL DEFAULT 0,
			total_paid_out REAL NOT NULL DEFAULT 0,
			last_payout_at TIMESTAMP,
			metadata TEXT NOT NULL DEFAULT '{}',
			created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
			updated_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
		)`,
		`CREATE TABLE orders (
			id INTEGER PRIMARY KEY,
			affiliate_id INTEGER,
			total_amount REAL NOT NULL DEFAULT 0,
			currency TEXT NOT NULL DEFAULT 'USD',
			payment_intent_id TEXT NOT NULL DEFAULT '',
			status TEXT NOT NULL DEFAULT 'pending',
			metadata TEXT NOT NULL DEFAULT '{}',
			created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
			updated_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
		)`,
		`CREATE TABLE commissions (
			id INTEGER PRIMARY KEY,
			order_id INTEGER NOT NULL,
			affiliate_id INTEGER NOT NULL,
			order_total REAL NOT NULL DEFAULT 0,
			commission_rate REAL NOT NULL DEFAULT 0,
			commission_amount REAL NOT NULL DEFAULT 0,
			currency TEXT NOT NULL DEFAULT 'USD',
			status TEXT NOT NULL DEFAULT 'pending',
			transfer_id TEXT NOT NULL DEFAULT '',
			transfer_status TEXT NOT NULL DEFAULT '',
			transfer_error TEXT NOT NULL DEFAULT '',
			transfer_attempt_count INTEGER NOT NULL DEFAULT 0,
			last_transfer_attempt_at TIMESTAMP,
			paid_at TIMESTAMP,
			payment_method TEXT NOT NULL DEFAULT '',
			requires_manual_review BOOLEAN NOT NULL DEFAULT FALSE,
			payout_notes TEXT NOT NULL DEFAULT '',
			metadata TEXT NOT NULL DEFAULT '{}',
			created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
			updated_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
		)`,
	}
	for _, stmt := range schema {
		require.NoError(t, db.Exec(stmt).Error)
	}
	return db
}

func newValidator(t *testing.T, db *gorm.DB) integritydomain.Service {
	t.Helper()
	return integrityservice.New(integrityservice.Params{
		DB:             db,
		Log:            zap.NewNop(),
		CommissionRepo: commissionrepo.Provide(),
		OrderRepo:      orderrepo.Provide(),
		AffiliateRepo:  affiliaterepo.Provide(),
	})
}

func seedAffiliate(t *testing.T, db *gorm.DB, id snowflake.ID, rate float64) {
	t.Helper()
	require.NoError(t, db.Exec(
		`INSERT INTO affiliates (id, name, email, commission_rate) VALUES (?, ?, ?, ?)`,
		id, "Acme Partners", "payouts@acme.test", rate,
	).Error)
}

func seedOrder(t *testing.T, db *gorm.DB, id snowflake.ID, affiliateID snowflake.ID, total float64) {
	t.Helper()
	require.NoError(t, db.Exec(
		`INSERT INTO orders (id, affiliate_id, total_amount, currency, payment_intent_id, status)
		 VALUES (?, ?, ?, 'USD', 'pi_test', 'paid')`,
		id, affiliateID, total,
	).Error)
}

func seedCommission(t *testing.T, db *gorm.DB, id, orderID, affiliateID snowflake.ID, total, rate, amount float64) {
	t.Helper()
	require.NoError(t, db.Exec(
		`INSERT INTO commissions (id, order_id, affiliate_id, order_total, commission_rate, commission_amount, currency, status)
		 VALUES (?, ?, ?, ?, ?, ?, 'USD', 'approved')`,
		id, orderID, affiliateID, total, rate, amount,
	).Error)
}

func TestValidatePassesConsistentCommission(t *testing.T) {
	db := setupTestDB(t)
	node, err := snowflake.NewNode(20)
	require.NoError(t, err)

	affiliateID := node.Generate()
	orderID := node.Generate()
	commissionID := node.Generate()

	seedAffiliate(t, db, affiliateID, 10)
	seedOrder(t, db, orderID, affiliateID, 250.00)
	seedCommission(t, db, commissionID, orderID, affiliateID, 250.00, 10, 25.00)

	result, err := newValidator(t, db).Validate(context.Background(), commissionID)
	require.NoError(t, err)
	assert.True(t, result.Valid)
	assert.Empty(t, result.Violations)
}

func TestValidateToleratesRoundingWithinEpsilon(t *testing.T) {
	db := setupTestDB(t)
	node, err := snowflake.NewNode(21)
	require.NoError(t, err)

	affiliateID := node.Generate()
	orderID := node.Generate()
	commissionID := node.Generate()

	seedAffiliate(t, db, affiliateID, 10)
	seedOrder(t, db, orderID, affiliateID, 250.00)
	// 25.01 is within the 0.01 epsilon of the expected 25.00.
	seedCommission(t, db, commissionID, orderID, affiliateID, 250.00, 10, 25.01)

	result, err := newValidator(t, db).Validate(context.Background(), commissionID)
	require.NoError(t, err)
	assert.True(t, result.Valid)
}

func TestValidateToleratesOneCentSnapshotDrift(t *testing.T) {
	db := setupTestDB(t)
	node, err := snowflake.NewNode(26)
	require.NoError(t, err)

	affiliateID := node.Generate()
	orderID := node.Generate()
	commissionID := node.Generate()

	seedAffiliate(t, db, affiliateID, 10)
	seedOrder(t, db, orderID, affiliateID, 250.00)
	// Stored total and rate each drift by exactly one cent; both sit on the
	// epsilon boundary and must pass.
	seedCommission(t, db, commissionID, orderID, affiliateID, 250.01, 10.01, 25.03)

	result, err := newValidator(t, db).Validate(context.Background(), commissionID)
	require.NoError(t, err)
	assert.True(t, result.Valid)
	assert.Empty(t, result.Violations)
}

func TestValidateDetectsMiscomputedAmount(t *testing.T) {
	db := setupTestDB(t)
	node, err := snowflake.NewNode(22)
	require.NoError(t, err)

	affiliateID := node.Generate()
	orderID := node.Generate()
	commissionID := node.Generate()

	seedAffiliate(t, db, affiliateID, 10)
	seedOrder(t, db, orderID, affiliateID, 250.00)
	// Stored 26.00 where 250.00 at 10% should be 25.00.
	seedCommission(t, db, commissionID, orderID, affiliateID, 250.00, 10, 26.00)

	result, err := newValidator(t, db).Validate(context.Background(), commissionID)
	require.NoError(t, err)
	assert.False(t, result.Valid)
	require.Len(t, result.Violations, 1)
	assert.Equal(t, integritydomain.InvariantCommissionArithmetic, result.Violations[0].Invariant)
	assert.Contains(t, result.Reason, "26.00")
	assert.Contains(t, result.Reason, "25.00")
}

func TestValidateDetectsAffiliateMismatch(t *testing.T) {
	db := setupTestDB(t)
	node, err := snowflake.NewNode(23)
	require.NoError(t, err)

	orderAffiliate := node.Generate()
	otherAffiliate := node.Generate()
	orderID := node.Generate()
	commissionID := node.Generate()

	seedAffiliate(t, db, orderAffiliate, 10)
	seedAffiliate(t, db, otherAffiliate, 10)
	seedOrder(t, db, orderID, orderAffiliate, 100.00)
	seedCommission(t, db, commissionID, orderID, otherAffiliate, 100.00, 10, 10.00)

	result, err := newValidator(t, db).Validate(context.Background(), commissionID)
	require.NoError(t, err)
	assert.False(t, result.Valid)
	assert.Equal(t, integritydomain.InvariantAffiliateMatch, result.Violations[0].Invariant)
	assert.True(t, strings.Contains(result.Reason, otherAffiliate.String()))
}

func TestValidateCollectsEveryViolation(t *testing.T) {
	db := setupTestDB(t)
	node, err := snowflake.NewNode(24)
	require.NoError(t, err)

	orderAffiliate := node.Generate()
	otherAffiliate := node.Generate()
	orderID := node.Generate()
	commissionID := node.Generate()

	seedAffiliate(t, db, orderAffiliate, 10)
	seedAffiliate(t, db, otherAffiliate, 5)
	seedOrder(t, db, orderID, orderAffiliate, 300.00)
	// Wrong affiliate, wrong total, wrong rate, wrong amount.
	seedCommission(t, db, commissionID, orderID, otherAffiliate, 250.00, 10, 26.00)

	result, err := newValidator(t, db).Validate(context.Background(), commissionID)
	require.NoError(t, err)
	assert.False(t, result.Valid)
	require.Len(t, result.Violations, 4)
	// First violation gates the result.
	assert.Equal(t, integritydomain.InvariantAffiliateMatch, result.Violations[0].Invariant)
	assert.Equal(t, result.Reason, result.Violations[0].Reason)
}

func TestValidateMissingCommission(t *testing.T) {
	db := setupTestDB(t)
	node, err := snowflake.NewNode(25)
	require.NoError(t, err)

	_, err = newValidator(t, db).Validate(context.Background(), node.Generate())
	assert.ErrorIs(t, err, integritydomain.ErrCommissionNotFound)
}
