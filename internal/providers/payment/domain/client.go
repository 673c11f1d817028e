package domain

import (
	"context"
	"errors"
	"fmt"
)

// AccountCapabilities reports the connected account's provider-side state.
type AccountCapabilities struct {
	ChargesEnabled   bool
	PayoutsEnabled   bool
	DetailsSubmitted bool
}

func (c AccountCapabilities) PayoutReady() bool {
	return c.PayoutsEnabled && c.DetailsSubmitted
}

type TransferRequest struct {
	AmountMinorUnits     int64
	Currency             string
	DestinationAccountID string
	SourceChargeID       string
	IdempotencyKey       string
	Metadata             map[string]string
}

type Transfer struct {
	ID string
}

// ConnectClient is the payout rail. Implementations must honor the
// idempotency key: a verbatim-retried CreateTransfer produces at most one
// effective transfer at the provider.
type ConnectClient interface {
	GetAccountCapabilities(ctx context.Context, accountID string) (AccountCapabilities, error)
	ResolveChargeForPaymentIntent(ctx context.Context, intentID string) (string, error)
	CreateTransfer(ctx context.Context, req TransferRequest) (Transfer, error)
}

// ProviderError carries the provider's error classification. Retryable errors
// (insufficient platform balance, rate limiting) leave the commission eligible
// for an externally scheduled retry; anything else is terminal.
type ProviderError struct {
	Code      string
	Message   string
	Retryable bool
}

func (e *ProviderError) Error() string {
	if e.Code == "" {
		return e.Message
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// IsRetryable reports whether err is a provider error worth retrying later.
func IsRetryable(err error) bool {
	var providerErr *ProviderError
	if errors.As(err, &providerErr) {
		return providerErr.Retryable
	}
	return false
}

var (
	ErrInvalidConfig  = errors.New("invalid_provider_config")
	ErrChargeNotFound = errors.New("charge_not_found")
)
