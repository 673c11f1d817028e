package main

import (
	"github.com/smallbiznis/partnerpay/internal/affiliate"
	"github.com/smallbiznis/partnerpay/internal/alerting"
	"github.com/smallbiznis/partnerpay/internal/clock"
	"github.com/smallbiznis/partnerpay/internal/commission"
	"github.com/smallbiznis/partnerpay/internal/config"
	"github.com/smallbiznis/partnerpay/internal/integrity"
	"github.com/smallbiznis/partnerpay/internal/logger"
	"github.com/smallbiznis/partnerpay/internal/migration"
	obsmetrics "github.com/smallbiznis/partnerpay/internal/observability/metrics"
	"github.com/smallbiznis/partnerpay/internal/order"
	"github.com/smallbiznis/partnerpay/internal/payout"
	"github.com/smallbiznis/partnerpay/internal/providers"
	"github.com/smallbiznis/partnerpay/internal/server"
	"github.com/smallbiznis/partnerpay/pkg/db"
	"go.uber.org/fx"
)

func main() {
	app := fx.New(
		// Core infrastructure
		config.Module,
		logger.Module,
		db.Module,
		clock.Module,
		obsmetrics.Module,
		migration.Module,

		// Functional domains
		providers.Module,
		order.Module,
		affiliate.Module,
		commission.Module,
		integrity.Module,
		alerting.Module,
		payout.Module,

		server.Module,
	)
	app.Run()
}
