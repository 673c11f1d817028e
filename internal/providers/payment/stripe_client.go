package payment

import (
	"context"
	"encoding/json"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/smallbiznis/partnerpay/internal/providers/payment/domain"
)

// Provider error codes treated as retryable. Everything else coming back from
// the transfer API is terminal and needs human eyes.
var retryableCodes = map[string]bool{
	"balance_insufficient": true,
	"rate_limit":           true,
}

type stripeAccount struct {
	ID               string `json:"id"`
	ChargesEnabled   bool   `json:"charges_enabled"`
	PayoutsEnabled   bool   `json:"payouts_enabled"`
	DetailsSubmitted bool   `json:"details_submitted"`
}

type stripePaymentIntent struct {
	ID           string `json:"id"`
	Status       string `json:"status"`
	LatestCharge string `json:"latest_charge"`
}

type stripeTransfer struct {
	ID          string `json:"id"`
	Amount      int64  `json:"amount"`
	Currency    string `json:"currency"`
	Destination string `json:"destination"`
}

type stripeErrorResponse struct {
	Error struct {
		Type    string `json:"type"`
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

// StripeClient talks to the Stripe Connect API over its form-encoded REST
// surface. It implements domain.ConnectClient.
type StripeClient struct {
	apiKey  string
	baseURL string
	client  *http.Client
}

func NewStripeClient(apiKey string) *StripeClient {
	return &StripeClient{
		apiKey:  strings.TrimSpace(apiKey),
		baseURL: "https://api.stripe.com",
		client:  &http.Client{Timeout: 12 * time.Second},
	}
}

// NewStripeClientWithBaseURL is used by tests to point the client at a stub.
func NewStripeClientWithBaseURL(apiKey string, baseURL string) *StripeClient {
	c := NewStripeClient(apiKey)
	c.baseURL = strings.TrimRight(baseURL, "/")
	return c
}

func (c *StripeClient) GetAccountCapabilities(ctx context.Context, accountID string) (domain.AccountCapabilities, error) {
	accountID = strings.TrimSpace(accountID)
	if accountID == "" {
		return domain.AccountCapabilities{}, domain.ErrInvalidConfig
	}

	var account stripeAccount
	if err := c.doRequest(ctx, http.MethodGet, "/v1/accounts/"+accountID, nil, "", &account); err != nil {
		return domain.AccountCapabilities{}, err
	}

	return domain.AccountCapabilities{
		ChargesEnabled:   account.ChargesEnabled,
		PayoutsEnabled:   account.PayoutsEnabled,
		DetailsSubmitted: account.DetailsSubmitted,
	}, nil
}

func (c *StripeClient) ResolveChargeForPaymentIntent(ctx context.Context, intentID string) (string, error) {
	intentID = strings.TrimSpace(intentID)
	if intentID == "" {
		return "", domain.ErrChargeNotFound
	}

	var intent stripePaymentIntent
	if err := c.doRequest(ctx, http.MethodGet, "/v1/payment_intents/"+intentID, nil, "", &intent); err != nil {
		return "", err
	}
	charge := strings.TrimSpace(intent.LatestCharge)
	if charge == "" {
		return "", domain.ErrChargeNotFound
	}
	return charge, nil
}

func (c *StripeClient) CreateTransfer(ctx context.Context, req domain.TransferRequest) (domain.Transfer, error) {
	values := url.Values{}
	values.Set("amount", strconv.FormatInt(req.AmountMinorUnits, 10))
	values.Set("currency", strings.ToLower(req.Currency))
	values.Set("destination", req.DestinationAccountID)
	if req.SourceChargeID != "" {
		values.Set("source_transaction", req.SourceChargeID)
	}
	for key, value := range req.Metadata {
		values.Set("metadata["+key+"]", value)
	}

	var transfer stripeTransfer
	if err := c.doRequest(ctx, http.MethodPost, "/v1/transfers", values, req.IdempotencyKey, &transfer); err != nil {
		return domain.Transfer{}, err
	}
	return domain.Transfer{ID: transfer.ID}, nil
}

func (c *StripeClient) doRequest(
	ctx context.Context,
	method string,
	path string,
	values url.Values,
	idempotencyKey string,
	out any,
) error {
	if c.apiKey == "" {
		return domain.ErrInvalidConfig
	}

	body := ""
	if values != nil {
		body = values.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, strings.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	if values != nil {
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	}
	if idempotencyKey != "" {
		req.Header.Set("Idempotency-Key", idempotencyKey)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusBadRequest {
		return classifyError(resp)
	}

	return json.NewDecoder(resp.Body).Decode(out)
}

func classifyError(resp *http.Response) error {
	var stripeErr stripeErrorResponse
	if err := json.NewDecoder(resp.Body).Decode(&stripeErr); err != nil {
		return &domain.ProviderError{
			Code:      "request_failed",
			Message:   resp.Status,
			Retryable: resp.StatusCode == http.StatusTooManyRequests,
		}
	}

	code := strings.TrimSpace(stripeErr.Error.Code)
	message := strings.TrimSpace(stripeErr.Error.Message)
	if message == "" {
		message = resp.Status
	}

	retryable := retryableCodes[code] ||
		stripeErr.Error.Type == "rate_limit_error" ||
		resp.StatusCode == http.StatusTooManyRequests

	return &domain.ProviderError{
		Code:      code,
		Message:   message,
		Retryable: retryable,
	}
}
