package router

import (
	"paymob-relay/config"
	"paymob-relay/internal/handler"
	"paymob-relay/internal/middleware"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// Setup wires the relay routes. ledger may be nil when no database is configured.
func Setup(
	cfg *config.Config,
	logger *zap.Logger,
	session handler.TokenProvider,
	gateway handler.Gateway,
	ledger handler.CheckoutRecorder,
	limiter *middleware.InMemoryRateLimiter,
) *gin.Engine {
	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}
	r := gin.New()
	r.Use(middleware.RequestID())
	r.Use(middleware.Recovery(logger))
	r.Use(middleware.Logger(logger))
	r.Use(middleware.CORS(cfg.CORS.AllowedOrigins))
	if limiter != nil {
		r.Use(middleware.RateLimit(limiter))
	}

	paymobHandler := handler.NewPaymobHandler(cfg.Paymob, session, gateway, ledger, logger)

	r.GET("/health", paymobHandler.Health)

	pm := r.Group("/paymob")
	{
		pm.POST("/auth", paymobHandler.Auth)
		pm.POST("/order", paymobHandler.CreateOrder)
		pm.POST("/payment-key", paymobHandler.CreatePaymentKey)
	}
	return r
}
