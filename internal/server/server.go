package server

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"

	billingdomain "github.com/garethtyler2/monthlyclub-sub003/internal/billing/domain"
	billingservice "github.com/garethtyler2/monthlyclub-sub003/internal/billing/service"
	"github.com/garethtyler2/monthlyclub-sub003/internal/config"
	"github.com/garethtyler2/monthlyclub-sub003/internal/observability/logger"
	"github.com/garethtyler2/monthlyclub-sub003/internal/observability/metrics"
	paymentdomain "github.com/garethtyler2/monthlyclub-sub003/internal/payment/domain"
)

// BillingRunner is the slice of the billing runner the HTTP layer needs.
type BillingRunner interface {
	Run(ctx context.Context) (billingdomain.RunReport, error)
}

type Params struct {
	fx.In

	DB          *gorm.DB
	Log         *zap.Logger
	Cfg         config.Config
	Runner      *billingservice.Runner
	PaymentSvc  paymentdomain.Service
	HTTPMetrics *metrics.HTTPMetrics
}

// Server holds the HTTP handlers and their dependencies.
type Server struct {
	db          *gorm.DB
	log         *zap.Logger
	cfg         config.Config
	runner      BillingRunner
	paymentSvc  paymentdomain.Service
	httpMetrics *metrics.HTTPMetrics
	cronLimiter *rateLimiter
}

func NewServer(p Params) *Server {
	return &Server{
		db:          p.DB,
		log:         p.Log.Named("server"),
		cfg:         p.Cfg,
		runner:      p.Runner,
		paymentSvc:  p.PaymentSvc,
		httpMetrics: p.HTTPMetrics,
		cronLimiter: newRateLimiter(p.Cfg.RateLimit.Limit, p.Cfg.RateLimit.Window),
	}
}

// NewEngine builds the gin engine with the middleware stack and routes.
func NewEngine(s *Server) *gin.Engine {
	if s.cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}
	engine := gin.New()
	engine.Use(gin.Recovery())
	engine.Use(logger.GinMiddleware(logger.MiddlewareConfig{
		SkipPaths: []string{"/healthz", "/metrics"},
	}))
	if s.httpMetrics != nil {
		engine.Use(metrics.GinMiddleware(s.httpMetrics))
	}

	engine.GET("/healthz", s.Healthz)
	engine.GET("/metrics", gin.WrapH(promhttp.Handler()))

	api := engine.Group("/api")
	{
		api.GET("/cron/daily-billing", s.CronAuthRequired(), s.RunDailyBilling)
		api.POST("/webhooks/stripe", s.StripeWebhook)
		api.GET("/billing/logs", s.ListBillingLogs)
		api.GET("/payments", s.ListPayments)
		api.GET("/scheduled-payments", s.ListScheduledPayments)
	}

	return engine
}

func (s *Server) Healthz(c *gin.Context) {
	sqlDB, err := s.db.DB()
	if err == nil {
		err = sqlDB.PingContext(c.Request.Context())
	}
	if err != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"status": "degraded"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// RunHTTP starts the HTTP server on the fx lifecycle.
func RunHTTP(lc fx.Lifecycle, cfg config.Config, log *zap.Logger, engine *gin.Engine) {
	srv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           engine,
		ReadHeaderTimeout: 10 * time.Second,
	}
	lc.Append(fx.Hook{
		OnStart: func(context.Context) error {
			go func() {
				if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
					log.Error("http server stopped", zap.Error(err))
				}
			}()
			log.Info("http server listening", zap.String("addr", cfg.HTTPAddr))
			return nil
		},
		OnStop: func(ctx context.Context) error {
			return srv.Shutdown(ctx)
		},
	})
}
