package service

import (
	"context"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	affiliatedomain "github.com/smallbiznis/partnerpay/internal/affiliate/domain"
	alertingdomain "github.com/smallbiznis/partnerpay/internal/alerting/domain"
	"github.com/smallbiznis/partnerpay/internal/clock"
	commissiondomain "github.com/smallbiznis/partnerpay/internal/commission/domain"
	"github.com/smallbiznis/partnerpay/internal/config"
	integritydomain "github.com/smallbiznis/partnerpay/internal/integrity/domain"
	obsmetrics "github.com/smallbiznis/partnerpay/internal/observability/metrics"
	orderdomain "github.com/smallbiznis/partnerpay/internal/order/domain"
	"github.com/smallbiznis/partnerpay/internal/payout/domain"
	"github.com/smallbiznis/partnerpay/internal/providers/email"
	paymentdomain "github.com/smallbiznis/partnerpay/internal/providers/payment/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const paymentMethodStripeTransfer = "stripe_transfer"

type Params struct {
	fx.In

	DB             *gorm.DB
	Log            *zap.Logger
	Clock          clock.Clock
	Policy         *config.PayoutPolicyHolder
	CommissionRepo commissiondomain.Repository
	AffiliateRepo  affiliatedomain.Repository
	OrderRepo      orderdomain.Repository
	IntegritySvc   integritydomain.Service
	Connect        paymentdomain.ConnectClient
	AlertSvc       alertingdomain.Service
	Email          email.Provider
	Metrics        *obsmetrics.Metrics `optional:"true"`
}

type Service struct {
	db             *gorm.DB
	log            *zap.Logger
	clock          clock.Clock
	policy         *config.PayoutPolicyHolder
	commissionRepo commissiondomain.Repository
	affiliateRepo  affiliatedomain.Repository
	orderRepo      orderdomain.Repository
	integritySvc   integritydomain.Service
	connect        paymentdomain.ConnectClient
	alertSvc       alertingdomain.Service
	email          email.Provider
	metrics        *obsmetrics.Metrics
}

func New(p Params) domain.Service {
	return &Service{
		db:             p.DB,
		log:            p.Log.Named("payout.service"),
		clock:          p.Clock,
		policy:         p.Policy,
		commissionRepo: p.CommissionRepo,
		affiliateRepo:  p.AffiliateRepo,
		orderRepo:      p.OrderRepo,
		integritySvc:   p.IntegritySvc,
		connect:        p.Connect,
		alertSvc:       p.AlertSvc,
		email:          p.Email,
		metrics:        p.Metrics,
	}
}

// Payout is invoked from at-least-once payment-confirmation events; delivery
// may duplicate, arrive late, or race across relays. There is no in-process
// locking. Correctness rests on the deterministic idempotency key on the
// outbound transfer, the gate's multi-field duplicate check, and atomic delta
// balance updates at the data store.
func (s *Service) Payout(ctx context.Context, commissionID snowflake.ID, orderID snowflake.ID) (domain.Result, error) {
	commission, err := s.commissionRepo.FindByID(ctx, s.db, commissionID)
	if err != nil {
		return domain.Result{}, fmt.Errorf("load commission: %w", err)
	}
	if commission == nil {
		return domain.Result{Success: false, Error: "commission not found"}, nil
	}

	// Idempotency short-circuit: a prior run already moved the money.
	if commission.AlreadyPaid() {
		s.recordOutcome(domain.StateAlreadyPaid)
		return domain.Result{
			Success:    true,
			State:      domain.StateAlreadyPaid,
			TransferID: commission.TransferID,
			Amount:     commission.CommissionAmount,
		}, nil
	}

	affiliate, err := s.affiliateRepo.FindByID(ctx, s.db, commission.AffiliateID)
	if err != nil {
		return domain.Result{}, fmt.Errorf("load affiliate: %w", err)
	}
	if affiliate == nil {
		now := s.clock.Now()
		if err := s.commissionRepo.FlagManualReview(ctx, s.db, commission.ID, "affiliate record missing", now); err != nil {
			return domain.Result{}, fmt.Errorf("flag manual review: %w", err)
		}
		s.recordOutcome(domain.StateFailedTerminal)
		return domain.Result{
			Success:              false,
			State:                domain.StateFailedTerminal,
			Error:                "affiliate not found",
			RequiresManualReview: true,
		}, nil
	}

	gate, err := s.CheckSafe(ctx, commission.ID)
	if err != nil {
		return domain.Result{}, fmt.Errorf("safety gate: %w", err)
	}
	if gate.AlreadyPaid {
		// A concurrent invocation won the race between our first read and the
		// gate's fresh one.
		current, err := s.commissionRepo.FindByID(ctx, s.db, commission.ID)
		if err != nil {
			return domain.Result{}, fmt.Errorf("reload commission: %w", err)
		}
		s.recordOutcome(domain.StateAlreadyPaid)
		result := domain.Result{Success: true, State: domain.StateAlreadyPaid}
		if current != nil {
			result.TransferID = current.TransferID
			result.Amount = current.CommissionAmount
		}
		return result, nil
	}
	if !gate.Safe {
		return s.blockForFraud(ctx, commission, affiliate, gate)
	}

	ready, result, err := s.resolveChannelReadiness(ctx, affiliate)
	if err != nil {
		return domain.Result{}, err
	}
	if !ready {
		return result, nil
	}

	sourceChargeID, result, ok, err := s.resolveAttribution(ctx, commission, orderID)
	if err != nil {
		return domain.Result{}, err
	}
	if !ok {
		return result, nil
	}

	amountMinorUnits := minorUnits(commission.CommissionAmount, commission.Currency)
	if amountMinorUnits < s.policy.Get().MinimumTransferMinorUnits {
		s.recordOutcome(domain.StateFailedTerminal)
		return domain.Result{
			Success: false,
			State:   domain.StateFailedTerminal,
			Error:   fmt.Sprintf("amount %d below minimum transferable unit", amountMinorUnits),
		}, nil
	}

	return s.issueTransfer(ctx, commission, affiliate, sourceChargeID, amountMinorUnits)
}

// Zero-decimal currencies per the provider's minor-unit rules; everything
// else is two-decimal.
var zeroDecimalCurrencies = map[string]bool{
	"BIF": true, "CLP": true, "DJF": true, "GNF": true, "JPY": true,
	"KMF": true, "KRW": true, "MGA": true, "PYG": true, "RWF": true,
	"UGX": true, "VND": true, "VUV": true, "XAF": true, "XOF": true,
	"XPF": true,
}

func minorUnits(amount float64, currency string) int64 {
	if zeroDecimalCurrencies[strings.ToUpper(currency)] {
		return int64(math.Round(amount))
	}
	return int64(math.Round(amount * 100))
}

func (s *Service) blockForFraud(
	ctx context.Context,
	commission *commissiondomain.Commission,
	affiliate *affiliatedomain.Affiliate,
	gate domain.GateResult,
) (domain.Result, error) {

	now := s.clock.Now()
	notes := strings.Join(gate.Reasons, "; ")
	if err := s.commissionRepo.MarkBlocked(ctx, s.db, commission.ID, notes, now); err != nil {
		return domain.Result{}, fmt.Errorf("mark blocked: %w", err)
	}

	if s.metrics != nil {
		for _, violation := range gate.Violations {
			s.metrics.RecordIntegrityViolation(violation.Invariant)
		}
	}
	s.recordOutcome(domain.StateBlockedFraud)

	// Alert dispatch failure never unblocks the decision already made.
	if err := s.alertSvc.DispatchFraudAlert(ctx, alertingdomain.FraudAlert{
		CommissionID:     commission.ID.String(),
		AffiliateID:      affiliate.ID.String(),
		AffiliateName:    affiliate.Name,
		CommissionAmount: commission.CommissionAmount,
		Currency:         commission.Currency,
		Violations:       gate.Violations,
	}); err != nil {
		s.log.Error("fraud alert dispatch failed",
			zap.String("commission_id", commission.ID.String()),
			zap.Error(err),
		)
	}

	return domain.Result{
		Success:              false,
		State:                domain.StateBlockedFraud,
		Error:                "blocked: " + notes,
		RequiresManualReview: true,
	}, nil
}

// resolveChannelReadiness prefers the cached capability flags but performs one
// live provider lookup when the cache says "not ready" and an account exists,
// because capability updates normally arrive on a separate, possibly delayed,
// provider event. A live "ready" answer is persisted back (self-healing).
func (s *Service) resolveChannelReadiness(ctx context.Context, affiliate *affiliatedomain.Affiliate) (bool, domain.Result, error) {
	if affiliate.PayoutReady() {
		return true, domain.Result{}, nil
	}

	if affiliate.StripeAccountID != "" {
		caps, err := s.connect.GetAccountCapabilities(ctx, affiliate.StripeAccountID)
		if err != nil {
			s.log.Warn("live capability lookup failed",
				zap.String("affiliate_id", affiliate.ID.String()),
				zap.Error(err),
			)
		} else if caps.PayoutReady() {
			now := s.clock.Now()
			if err := s.affiliateRepo.UpdateCapabilities(ctx, s.db, affiliate.ID, affiliatedomain.Capabilities{
				ChargesEnabled:   caps.ChargesEnabled,
				PayoutsEnabled:   caps.PayoutsEnabled,
				DetailsSubmitted: caps.DetailsSubmitted,
			}, affiliatedomain.OnboardingStatusComplete, now); err != nil {
				return false, domain.Result{}, fmt.Errorf("persist capabilities: %w", err)
			}
			affiliate.ChargesEnabled = caps.ChargesEnabled
			affiliate.PayoutsEnabled = caps.PayoutsEnabled
			affiliate.DetailsSubmitted = caps.DetailsSubmitted
			s.log.Info("stale capability flags corrected from live lookup",
				zap.String("affiliate_id", affiliate.ID.String()),
			)
			return true, domain.Result{}, nil
		}
	}

	// Valid steady state: the commission stays approved and eligible for a
	// manual payout once onboarding completes. No alert, no status change.
	s.recordOutcome(domain.StateBlockedOnboarding)
	return false, domain.Result{
		Success:                false,
		State:                  domain.StateBlockedOnboarding,
		NeedsChannelOnboarding: true,
	}, nil
}

// resolveAttribution links the commission's order to the concrete charge that
// can fund the transfer. An unattributed transfer is never issued.
func (s *Service) resolveAttribution(ctx context.Context, commission *commissiondomain.Commission, orderID snowflake.ID) (string, domain.Result, bool, error) {
	if orderID != 0 && orderID != commission.OrderID {
		s.log.Warn("payout invoked with mismatched order id",
			zap.String("commission_id", commission.ID.String()),
			zap.String("commission_order_id", commission.OrderID.String()),
			zap.String("invoked_order_id", orderID.String()),
		)
	}

	order, err := s.orderRepo.FindByID(ctx, s.db, commission.OrderID)
	if err != nil {
		return "", domain.Result{}, false, fmt.Errorf("load order: %w", err)
	}

	failAttribution := func(reason string) (string, domain.Result, bool, error) {
		now := s.clock.Now()
		if err := s.commissionRepo.FlagManualReview(ctx, s.db, commission.ID, reason, now); err != nil {
			return "", domain.Result{}, false, fmt.Errorf("flag manual review: %w", err)
		}
		s.recordOutcome(domain.StateFailedTerminal)
		return "", domain.Result{
			Success:              false,
			State:                domain.StateFailedTerminal,
			Error:                reason,
			RequiresManualReview: true,
		}, false, nil
	}

	if order == nil {
		return failAttribution("order record missing")
	}
	if strings.TrimSpace(order.PaymentIntentID) == "" {
		return failAttribution("order has no payment transaction reference")
	}

	chargeID, err := s.connect.ResolveChargeForPaymentIntent(ctx, order.PaymentIntentID)
	if err != nil {
		return failAttribution("payment transaction could not be resolved to a charge: " + err.Error())
	}

	return chargeID, domain.Result{}, true, nil
}

func (s *Service) issueTransfer(
	ctx context.Context,
	commission *commissiondomain.Commission,
	affiliate *affiliatedomain.Affiliate,
	sourceChargeID string,
	amountMinorUnits int64,
) (domain.Result, error) {

	// Deterministic key: the provider guarantees at most one effective
	// transfer for it even if this function is re-entered concurrently.
	idempotencyKey := "payout_" + commission.ID.String()

	started := s.clock.Now()
	transfer, transferErr := s.connect.CreateTransfer(ctx, paymentdomain.TransferRequest{
		AmountMinorUnits:     amountMinorUnits,
		Currency:             commission.Currency,
		DestinationAccountID: affiliate.StripeAccountID,
		SourceChargeID:       sourceChargeID,
		IdempotencyKey:       idempotencyKey,
		Metadata: map[string]string{
			"commission_id": commission.ID.String(),
			"order_id":      commission.OrderID.String(),
			"affiliate_id":  affiliate.ID.String(),
		},
	})
	if s.metrics != nil {
		s.metrics.ObserveTransferDuration(time.Since(started).Seconds())
	}

	now := s.clock.Now()
	if transferErr != nil {
		return s.recordTransferFailure(ctx, commission, transferErr, now)
	}

	if err := s.commissionRepo.MarkPaid(ctx, s.db, commission.ID, transfer.ID, paymentMethodStripeTransfer, now); err != nil {
		return domain.Result{}, fmt.Errorf("mark paid: %w", err)
	}

	amount := commission.CommissionAmount
	if affiliate.PendingCommission < amount {
		s.log.Warn("pending commission balance below payout amount, flooring at zero",
			zap.String("affiliate_id", affiliate.ID.String()),
			zap.Float64("pending_commission", affiliate.PendingCommission),
			zap.Float64("payout_amount", amount),
		)
	}
	if err := s.affiliateRepo.ApplyPayoutDelta(ctx, s.db, affiliate.ID, amount, now); err != nil {
		return domain.Result{}, fmt.Errorf("apply payout delta: %w", err)
	}

	s.recordOutcome(domain.StatePaid)
	s.log.Info("commission paid out",
		zap.String("commission_id", commission.ID.String()),
		zap.String("affiliate_id", affiliate.ID.String()),
		zap.String("transfer_id", transfer.ID),
		zap.Int64("amount_minor_units", amountMinorUnits),
	)

	s.sendConfirmation(affiliate, commission, transfer.ID)

	return domain.Result{
		Success:    true,
		State:      domain.StatePaid,
		TransferID: transfer.ID,
		Amount:     amount,
	}, nil
}

func (s *Service) recordTransferFailure(
	ctx context.Context,
	commission *commissiondomain.Commission,
	transferErr error,
	now time.Time,
) (domain.Result, error) {

	retryable := paymentdomain.IsRetryable(transferErr)
	attempts := commission.TransferAttemptCount + 1
	requiresReview := !retryable || attempts >= s.policy.Get().MaxAttempts

	if err := s.commissionRepo.RecordTransferFailure(ctx, s.db, commission.ID, transferErr.Error(), now, requiresReview); err != nil {
		return domain.Result{}, fmt.Errorf("record transfer failure: %w", err)
	}

	state := domain.StateFailedTerminal
	if retryable {
		// Steady state: the commission stays approved and an external
		// scheduler re-submits it later.
		state = domain.StateFailedRetryable
	}
	s.recordOutcome(state)

	s.log.Warn("transfer attempt failed",
		zap.String("commission_id", commission.ID.String()),
		zap.String("state", state),
		zap.Int("attempts", attempts),
		zap.Bool("requires_manual_review", requiresReview),
		zap.Error(transferErr),
	)

	return domain.Result{
		Success:              false,
		State:                state,
		Error:                transferErr.Error(),
		RequiresManualReview: requiresReview,
	}, nil
}

// sendConfirmation is fire-and-forget; notification failure must not change
// the payout result.
func (s *Service) sendConfirmation(affiliate *affiliatedomain.Affiliate, commission *commissiondomain.Commission, transferID string) {
	to := strings.TrimSpace(affiliate.Email)
	if to == "" {
		return
	}

	subject := "Your commission payout is on the way"
	body := fmt.Sprintf(
		"<p>Hi %s,</p><p>Your commission of %.2f %s for order %s has been transferred (reference %s). It should arrive in your account shortly.</p>",
		affiliate.Name, commission.CommissionAmount, commission.Currency, commission.OrderID, transferID,
	)

	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		if err := s.email.Send(ctx, []string{to}, subject, body); err != nil {
			s.log.Warn("payout confirmation email failed",
				zap.String("commission_id", commission.ID.String()),
				zap.Error(err),
			)
		}
	}()
}

func (s *Service) recordOutcome(state string) {
	if s.metrics != nil {
		s.metrics.RecordPayoutOutcome(state)
	}
}
