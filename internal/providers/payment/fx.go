package payment

import (
	"github.com/smallbiznis/partnerpay/internal/config"
	"github.com/smallbiznis/partnerpay/internal/providers/payment/domain"
	"go.uber.org/fx"
)

var Module = fx.Module("providers.payment",
	fx.Provide(NewFromConfig),
)

func NewFromConfig(cfg config.Config) domain.ConnectClient {
	return NewStripeClient(cfg.Stripe.APIKey)
}
