package routes

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"
	"github.com/sangkips/dinein-api/internal/config"
	domainRepo "github.com/sangkips/dinein-api/internal/domain/repository"
	"github.com/sangkips/dinein-api/internal/metrics"
	"github.com/sangkips/dinein-api/internal/presentation/http/handler"
	"github.com/sangkips/dinein-api/internal/presentation/http/middleware"
)

// Handlers holds all the HTTP handlers used for route registration.
type Handlers struct {
	Order   *handler.OrderHandler
	Session *handler.SessionHandler
	Payment *handler.PaymentHandler
}

// Deps holds shared dependencies needed by the routes.
type Deps struct {
	Cfg              *config.Config
	RestaurantRepo   domainRepo.RestaurantRepository
	IdempotencyStore domainRepo.IdempotencyStore
	RateLimiter      *middleware.RateLimiter
	Metrics          *metrics.Metrics
}

// Setup creates the Gin router and registers all routes.
func Setup(h *Handlers, deps *Deps) *gin.Engine {
	router := gin.New()

	// ClientIP keys the rate limiter, so X-Forwarded-For is only honored
	// from configured proxies
	if err := router.SetTrustedProxies(deps.Cfg.App.TrustedProxies); err != nil {
		log.Warn().Err(err).Strs("trusted_proxies", deps.Cfg.App.TrustedProxies).Msg("invalid trusted proxies, trusting none")
		_ = router.SetTrustedProxies(nil)
	}

	// Global middleware
	router.Use(gin.Recovery())
	router.Use(middleware.LoggerMiddleware())
	router.Use(middleware.CORSMiddleware(&deps.Cfg.CORS))

	// Health check endpoint
	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":     "ok",
			"service":    deps.Cfg.App.Name,
			"rate_limit": deps.RateLimiter.Stats(),
		})
	})

	// API v1 routes
	v1 := router.Group("/api/v1")
	{
		// Payment processor webhooks carry no restaurant and are not rate limited
		webhooks := v1.Group("/webhooks")
		webhooks.Use(handler.WebhookRecovery())
		webhooks.POST("/payments", h.Payment.Webhook)

		storefront := v1.Group("/restaurants/:slug")
		storefront.Use(deps.RateLimiter.Middleware())
		storefront.Use(middleware.RestaurantMiddleware(deps.RestaurantRepo))

		registerStorefrontRoutes(storefront, h, deps)
	}

	return router
}

func registerStorefrontRoutes(rg *gin.RouterGroup, h *Handlers, deps *Deps) {
	idempotency := middleware.Idempotency(middleware.IdempotencyConfig{
		Store:    deps.IdempotencyStore,
		FailOpen: deps.Cfg.Idempotency.FailOpen,
		Metrics:  deps.Metrics,
	})

	orders := rg.Group("/orders")
	{
		orders.POST("", idempotency, h.Order.Create)
		orders.GET("/:ref", h.Order.Get)
		orders.POST("/:ref/checkout", h.Order.Checkout)
	}

	rg.POST("/tables/:table/sessions", h.Session.Open)

	sessions := rg.Group("/sessions/:session")
	{
		sessions.POST("/close", h.Session.Close)
		sessions.GET("/orders", h.Order.ListBySession)
	}
}
