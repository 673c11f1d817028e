package integrity

import (
	"github.com/smallbiznis/partnerpay/internal/integrity/service"
	"go.uber.org/fx"
)

var Module = fx.Module("integrity",
	fx.Provide(service.New),
)
