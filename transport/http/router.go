package http

import (
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/layer-3/walletlink/service"
)

type routerConfig struct {
	trustedProxies []string
}

// RouterOption customizes SetupRouter
type RouterOption func(*routerConfig)

// WithTrustedProxies lets the listed proxies (IPs or CIDRs) set the client IP
// through X-Forwarded-For. Without it the TCP peer address is used.
func WithTrustedProxies(proxies []string) RouterOption {
	return func(c *routerConfig) { c.trustedProxies = proxies }
}

// SetupRouter sets up the Gin router. A nil limiter disables rate limiting.
func SetupRouter(svc service.Service, logger *zap.Logger, limiter *RateLimiter, opts ...RouterOption) *gin.Engine {
	var cfg routerConfig
	for _, opt := range opts {
		opt(&cfg)
	}

	router := gin.New()
	if err := router.SetTrustedProxies(cfg.trustedProxies); err != nil {
		logger.Error("invalid trusted proxies, forwarded headers are ignored", zap.Error(err))
		_ = router.SetTrustedProxies(nil)
	}
	router.Use(gin.Recovery(), RequestID(), Logger(logger))

	handlers := NewAuthHandlers(svc, logger)

	router.GET("/healthz", handlers.Healthz)
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	auth := router.Group("/api/auth")
	{
		nonce := []gin.HandlerFunc{handlers.Nonce}
		if limiter != nil {
			nonce = append([]gin.HandlerFunc{limiter.Middleware("nonce")}, nonce...)
		}
		auth.GET("/nonce", nonce...)
		auth.POST("/verify-wallet", handlers.VerifyWallet)
		auth.GET("/wallets", AuthMiddleware(svc), handlers.Wallets)
	}

	return router
}
