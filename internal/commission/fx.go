package commission

import (
	"github.com/smallbiznis/partnerpay/internal/commission/repository"
	"github.com/smallbiznis/partnerpay/internal/commission/service"
	"go.uber.org/fx"
)

var Module = fx.Module("commission",
	fx.Provide(repository.Provide),
	fx.Provide(service.New),
)
