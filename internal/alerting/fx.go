package alerting

import (
	"github.com/smallbiznis/partnerpay/internal/alerting/service"
	"go.uber.org/fx"
)

var Module = fx.Module("alerting",
	fx.Provide(service.New),
)
