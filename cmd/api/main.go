package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"
	"github.com/sangkips/dinein-api/internal/application/service"
	"github.com/sangkips/dinein-api/internal/config"
	"github.com/sangkips/dinein-api/internal/infrastructure/cache"
	"github.com/sangkips/dinein-api/internal/infrastructure/database"
	"github.com/sangkips/dinein-api/internal/infrastructure/payment"
	"github.com/sangkips/dinein-api/internal/infrastructure/repository"
	"github.com/sangkips/dinein-api/internal/metrics"
	"github.com/sangkips/dinein-api/internal/presentation/http/handler"
	"github.com/sangkips/dinein-api/internal/presentation/http/middleware"
	"github.com/sangkips/dinein-api/internal/presentation/http/routes"
	"github.com/sangkips/dinein-api/pkg/logger"
	"go.opentelemetry.io/otel"
)

func main() {
	// Load configuration
	cfg := config.Load()
	logger.Setup(cfg.App.Env, cfg.Log.Level)

	// Set Gin mode based on environment
	if cfg.App.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Connect to database
	db, err := database.NewDB(&cfg.Database)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to database")
	}

	// Run auto-migrations
	if err := database.AutoMigrate(db); err != nil {
		log.Fatal().Err(err).Msg("failed to run migrations")
	}

	// Seed default data
	if err := database.SeedDefaultData(db); err != nil {
		log.Warn().Err(err).Msg("failed to seed default data")
	}

	m, err := metrics.NewMetrics(otel.GetMeterProvider().Meter(cfg.App.Name))
	if err != nil {
		log.Fatal().Err(err).Msg("failed to create metrics")
	}

	// Initialize repositories
	restaurantRepo := repository.NewRestaurantRepository(db)
	tableRepo := repository.NewTableRepository(db)
	orderRepo := repository.NewOrderRepository(db)

	idempotencyStore, closeStore, err := cache.NewStore(ctx, cfg, db)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to create idempotency store")
	}
	defer closeStore()

	paymentClient := payment.NewClient(&cfg.Payment)
	if !paymentClient.IsConfigured() {
		log.Warn().Msg("payment access token not set, checkout and webhooks will be rejected")
	}

	// Initialize services
	orderService := service.NewOrderService(restaurantRepo, tableRepo, orderRepo, paymentClient)
	sessionService := service.NewSessionService(tableRepo)
	paymentService := service.NewPaymentService(orderRepo, paymentClient, m, cfg.Payment.Timeout)

	// Initialize handlers
	handlers := &routes.Handlers{
		Order:   handler.NewOrderHandler(orderService),
		Session: handler.NewSessionHandler(sessionService),
		Payment: handler.NewPaymentHandler(paymentService),
	}

	limiter := middleware.NewRateLimiter(middleware.RateLimiterConfig{
		Requests:      cfg.RateLimit.Requests,
		Window:        cfg.RateLimit.Window(),
		MaxBuckets:    cfg.RateLimit.MaxBuckets,
		SweepInterval: cfg.RateLimit.SweepInterval,
		Metrics:       m,
	})
	go limiter.Run(ctx)

	// Setup routes
	router := routes.Setup(handlers, &routes.Deps{
		Cfg:              cfg,
		RestaurantRepo:   restaurantRepo,
		IdempotencyStore: idempotencyStore,
		RateLimiter:      limiter,
		Metrics:          m,
	})

	port := cfg.App.Port
	if port == "" {
		port = "8080"
	}

	srv := &http.Server{
		Addr:              ":" + port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		log.Info().Str("port", port).Str("env", cfg.App.Env).Msgf("starting %s", cfg.App.Name)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error().Err(err).Msg("server failed")
			stop()
		}
	}()

	<-ctx.Done()
	log.Info().Msg("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("graceful shutdown failed")
	}
}
