package providers

import (
	"github.com/smallbiznis/partnerpay/internal/providers/email"
	"github.com/smallbiznis/partnerpay/internal/providers/payment"
	"github.com/smallbiznis/partnerpay/internal/providers/slack"
	"go.uber.org/fx"
)

var Module = fx.Module("providers",
	email.Module,
	payment.Module,
	slack.Module,
)
