package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/smallbiznis/partnerpay/internal/alerting/domain"
	"github.com/smallbiznis/partnerpay/internal/config"
	"github.com/smallbiznis/partnerpay/internal/providers/email"
	"github.com/smallbiznis/partnerpay/internal/providers/slack"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

type Params struct {
	fx.In

	Log    *zap.Logger
	Policy *config.PayoutPolicyHolder
	Email  email.Provider
	Slack  slack.Provider
}

type Service struct {
	log    *zap.Logger
	policy *config.PayoutPolicyHolder
	email  email.Provider
	slack  slack.Provider
}

func New(p Params) domain.Service {
	return &Service{
		log:    p.Log.Named("alerting.service"),
		policy: p.Policy,
		email:  p.Email,
		slack:  p.Slack,
	}
}

func (s *Service) DispatchFraudAlert(ctx context.Context, alert domain.FraudAlert) error {
	policy := s.policy.Get().Alerting

	subject := fmt.Sprintf("[payout blocked] commission %s failed integrity validation", alert.CommissionID)

	var failures []error
	if len(policy.Emails) > 0 {
		if err := s.email.Send(ctx, policy.Emails, subject, buildEmailBody(alert)); err != nil {
			s.log.Error("fraud alert email dispatch failed",
				zap.String("commission_id", alert.CommissionID),
				zap.Error(err),
			)
			failures = append(failures, err)
		}
	}

	if policy.SlackChannel != "" {
		if err := s.slack.PostMessage(ctx, policy.SlackChannel, buildSlackMessage(alert)); err != nil {
			s.log.Error("fraud alert slack dispatch failed",
				zap.String("commission_id", alert.CommissionID),
				zap.Error(err),
			)
			failures = append(failures, err)
		}
	}

	if len(failures) > 0 {
		return fmt.Errorf("fraud alert dispatch: %d channel(s) failed", len(failures))
	}
	return nil
}

func buildEmailBody(alert domain.FraudAlert) string {
	var b strings.Builder
	b.WriteString("<h2>Payout blocked by integrity validation</h2>")
	b.WriteString("<p>The automated payout was halted before any money moved. ")
	b.WriteString("The commission record requires manual review.</p>")
	b.WriteString("<ul>")
	fmt.Fprintf(&b, "<li>Affiliate: %s (%s)</li>", alert.AffiliateName, alert.AffiliateID)
	fmt.Fprintf(&b, "<li>Commission: %s</li>", alert.CommissionID)
	fmt.Fprintf(&b, "<li>Amount: %.2f %s</li>", alert.CommissionAmount, alert.Currency)
	b.WriteString("</ul>")
	b.WriteString("<h3>Violated invariants</h3><ol>")
	for _, violation := range alert.Violations {
		fmt.Fprintf(&b, "<li><b>%s</b>: %s</li>", violation.Invariant, violation.Reason)
	}
	b.WriteString("</ol>")
	return b.String()
}

func buildSlackMessage(alert domain.FraudAlert) string {
	var b strings.Builder
	fmt.Fprintf(&b, ":rotating_light: Payout blocked for commission %s\n", alert.CommissionID)
	fmt.Fprintf(&b, "Affiliate: %s (%s), amount %.2f %s\n",
		alert.AffiliateName, alert.AffiliateID, alert.CommissionAmount, alert.Currency)
	for _, violation := range alert.Violations {
		fmt.Fprintf(&b, "• %s: %s\n", violation.Invariant, violation.Reason)
	}
	return b.String()
}
