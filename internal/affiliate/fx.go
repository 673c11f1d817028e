package affiliate

import (
	"github.com/smallbiznis/partnerpay/internal/affiliate/repository"
	"go.uber.org/fx"
)

var Module = fx.Module("affiliate",
	fx.Provide(repository.Provide),
)
