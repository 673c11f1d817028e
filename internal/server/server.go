package server

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	commissiondomain "github.com/smallbiznis/partnerpay/internal/commission/domain"
	"github.com/smallbiznis/partnerpay/internal/config"
	integritydomain "github.com/smallbiznis/partnerpay/internal/integrity/domain"
	obsmetrics "github.com/smallbiznis/partnerpay/internal/observability/metrics"
	payoutdomain "github.com/smallbiznis/partnerpay/internal/payout/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

type Params struct {
	fx.In

	Cfg           config.Config
	Log           *zap.Logger
	CommissionSvc commissiondomain.Service
	IntegritySvc  integritydomain.Service
	PayoutSvc     payoutdomain.Service
	Metrics       *obsmetrics.Metrics `optional:"true"`
}

type Server struct {
	engine        *gin.Engine
	cfg           config.Config
	log           *zap.Logger
	commissionSvc commissiondomain.Service
	integritySvc  integritydomain.Service
	payoutSvc     payoutdomain.Service
	metrics       *obsmetrics.Metrics
}

func NewEngine(log *zap.Logger) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(RequestID())
	r.Use(AccessLog(log))
	return r
}

func NewServer(engine *gin.Engine, p Params) *Server {
	return &Server{
		engine:        engine,
		cfg:           p.Cfg,
		log:           p.Log.Named("http.server"),
		commissionSvc: p.CommissionSvc,
		integritySvc:  p.IntegritySvc,
		payoutSvc:     p.PayoutSvc,
		metrics:       p.Metrics,
	}
}

func (s *Server) RegisterRoutes() {
	s.engine.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	if s.metrics != nil {
		s.engine.GET("/metrics", gin.WrapH(s.metrics.Handler()))
	}

	v1 := s.engine.Group("/v1")
	v1.POST("/webhooks/payment-confirmed", s.HandlePaymentConfirmed)
	v1.POST("/payouts/:id", s.HandleRetryPayout)
	v1.GET("/commissions/:id", s.HandleGetCommission)
	v1.GET("/commissions/:id/validate", s.HandleValidateCommission)
	v1.GET("/affiliates/:id/commissions", s.HandleListCommissions)
}

func RunHTTP(lc fx.Lifecycle, cfg config.Config, log *zap.Logger, r *gin.Engine) {
	srv := &http.Server{
		Addr:    ":" + cfg.HTTPPort,
		Handler: r,
	}

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			go func() {
				log.Info("http server listening", zap.String("addr", srv.Addr))
				if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
					panic(err)
				}
			}()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			shutdownCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
			defer cancel()
			return srv.Shutdown(shutdownCtx)
		},
	})
}

var Module = fx.Module("http.server",
	fx.Provide(NewEngine),
	fx.Provide(NewServer),
	fx.Invoke(func(s *Server) {
		s.RegisterRoutes()
	}),
	fx.Invoke(RunHTTP),
)
