package domain

import (
	"context"
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

// Capabilities mirrors the connected-account flags reported by the payment
// provider.
type Capabilities struct {
	ChargesEnabled   bool
	PayoutsEnabled   bool
	DetailsSubmitted bool
}

type Repository interface {
	FindByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*Affiliate, error)

	// UpdateCapabilities overwrites the cached capability flags after a live
	// provider lookup reported fresher state.
	UpdateCapabilities(ctx context.Context, db *gorm.DB, id snowflake.ID, caps Capabilities, onboardingStatus string, now time.Time) error

	// ApplyPayoutDelta moves amount from pending to paid balances as a single
	// relative update evaluated by the data store. Concurrent payouts for the
	// same affiliate must not lose updates, so this is never expressed as a
	// read-modify-write in application code.
	ApplyPayoutDelta(ctx context.Context, db *gorm.DB, id snowflake.ID, amount float64, paidAt time.Time) error
}

var ErrNotFound = errors.New("affiliate_not_found")
