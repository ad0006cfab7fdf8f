package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/labstack/echo/v4"
	echoMiddleware "github.com/labstack/echo/v4/middleware"
	"github.com/rs/zerolog"

	"storefront/internal/caching"
	"storefront/internal/config"
	"storefront/internal/handlers"
	"storefront/internal/logging"
	"storefront/internal/messaging"
	"storefront/internal/middleware"
	"storefront/internal/repositories"
	"storefront/internal/services"
	"storefront/pkg/database"
)

func main() {
	// A missing .env is fine; the environment may already be set.
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		os.Exit(1)
	}

	logger := logging.New(cfg.LogLevel, cfg.LogFormat, cfg.ServiceName)
	if err := run(cfg, logger); err != nil {
		logger.Fatal().Err(err).Msg("server stopped")
	}
}

func run(cfg *config.Config, logger zerolog.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Database connection
	pool, err := database.NewPool(ctx, cfg.DatabaseURL, database.Options{MaxConns: cfg.DBMaxConns})
	if err != nil {
		return fmt.Errorf("connect database: %w", err)
	}
	defer pool.Close()
	logger.Info().Int32("max_conns", cfg.DBMaxConns).Msg("database connected")

	// Redis cache, optional
	var cache caching.CacheService
	var healthCache handlers.Pinger
	if cfg.CacheEnabled() {
		client, err := caching.NewRedisClient(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
		if err != nil {
			return err
		}
		defer client.Close()
		cache = caching.NewRedisCacheService(client)
		healthCache = cache
		if err := cache.Ping(ctx); err != nil {
			logger.Warn().Err(err).Msg("redis ping failed, order reads fall back to the database")
		}
	}

	// Order events, optional
	publisher := messaging.NewNoopPublisher()
	if brokers := cfg.Brokers(); len(brokers) > 0 {
		publisher = messaging.NewKafkaPublisher(brokers, cfg.KafkaOrderTopic, cfg.ServiceName)
		logger.Info().Strs("brokers", brokers).Str("topic", cfg.KafkaOrderTopic).Msg("publishing order events")
	}
	defer func() {
		if err := publisher.Close(); err != nil {
			logger.Warn().Err(err).Msg("close publisher")
		}
	}()

	store := repositories.NewStore(pool)
	orderService := services.NewOrderService(store, cache, publisher, logger)
	orderQueryService := services.NewOrderQueryService(store, cache, cfg.OrderCacheTTL, logger)

	orderHandlers := handlers.NewOrderHandlers(orderService, orderQueryService)
	healthHandlers := handlers.NewHealthHandlers(pool, healthCache)

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Use(echoMiddleware.Recover())
	e.Use(echoMiddleware.RequestID())
	e.Use(middleware.RequestLogger(logger))
	e.Use(echoMiddleware.CORS())
	e.Use(echoMiddleware.RemoveTrailingSlash())

	e.GET("/health", healthHandlers.HealthCheck)
	e.GET("/health/ready", healthHandlers.ReadinessCheck)
	orderHandlers.Register(e.Group("/api"))

	errCh := make(chan error, 1)
	go func() {
		logger.Info().Int("port", cfg.Port).Msg("server starting")
		if err := e.Start(fmt.Sprintf(":%d", cfg.Port)); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	logger.Info().Msg("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	return e.Shutdown(shutdownCtx)
}
