package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"

	"github.com/fogonthedowns/helppetai-sbc/internal/availability"
	"github.com/fogonthedowns/helppetai-sbc/internal/booking"
	appconfig "github.com/fogonthedowns/helppetai-sbc/internal/config"
	"github.com/fogonthedowns/helppetai-sbc/internal/events"
	"github.com/fogonthedowns/helppetai-sbc/internal/httpapi"
	"github.com/fogonthedowns/helppetai-sbc/internal/intent"
	observemetrics "github.com/fogonthedowns/helppetai-sbc/internal/observability/metrics"
	"github.com/fogonthedowns/helppetai-sbc/internal/slotengine"
	"github.com/fogonthedowns/helppetai-sbc/pkg/logging"
)

func main() {
	_ = godotenv.Load()

	cfg := appconfig.Load()
	logger := logging.New(cfg.LogLevel)
	logger.Info("starting scheduling & booking core",
		"env", cfg.Env,
		"port", cfg.Port,
		"lock_strategy", cfg.BookingLockStrategy,
	)

	appCtx, stop := context.WithCancel(context.Background())
	defer stop()

	registry := prometheus.NewRegistry()
	bookingMetrics := observemetrics.NewBookingMetrics(registry)
	metricsHandler := promhttp.HandlerFor(registry, promhttp.HandlerOpts{})

	if cfg.DatabaseURL == "" {
		logger.Error("DATABASE_URL is required")
		os.Exit(1)
	}
	dbPool := connectPostgresPool(appCtx, cfg.DatabaseURL, logger)
	defer dbPool.Close()

	redisClient := connectRedis(cfg, logger)
	if redisClient != nil {
		defer func() { _ = redisClient.Close() }()
	}

	store := availability.New(dbPool, logger)
	hoursCache := availability.NewPracticeHoursCache(store, redisClient, cfg.PracticeHoursCacheTTL, logger)
	outboxStore := events.NewOutboxStore(dbPool)
	coordinator := booking.New(store, cfg.BookingLockStrategy, nil, outboxStore, logger)
	engine := slotengine.New(hoursCache)
	gateway := intent.New(store, engine, coordinator)

	deliverer := events.NewDeliverer(outboxStore, loggingDeliveryHandler(logger), logger).
		WithBatchSize(cfg.OutboxBatchSize).
		WithInterval(cfg.OutboxInterval)
	go deliverer.Start(appCtx)

	handler := httpapi.New(&httpapi.Config{
		Logger:               logger,
		Store:                store,
		Gateway:              gateway,
		Coordinator:          coordinator,
		Pool:                 dbPool,
		Redis:                redisClient,
		Metrics:              bookingMetrics,
		MetricsHandler:       metricsHandler,
		CORSAllowedOrigins:   cfg.CORSAllowedOrigins,
		VoiceRequestDeadline: cfg.VoiceRequestDeadline,
		StaffRequestDeadline: cfg.StaffRequestDeadline,
	})

	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      handler,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		logger.Info("server listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	stop()
	logger.Info("shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		logger.Error("server forced to shutdown", "error", err)
		os.Exit(1)
	}

	logger.Info("server stopped")
}

func connectPostgresPool(ctx context.Context, dbURL string, logger *logging.Logger) *pgxpool.Pool {
	if dbURL == "" {
		return nil
	}
	connectCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	pool, err := pgxpool.New(connectCtx, dbURL)
	if err != nil {
		logger.Error("failed to connect to postgres", "error", err)
		os.Exit(1)
	}
	if err := pool.Ping(connectCtx); err != nil {
		logger.Error("failed to ping postgres", "error", err)
		os.Exit(1)
	}
	logger.Info("connected to postgres")
	return pool
}

func connectRedis(cfg *appconfig.Config, logger *logging.Logger) *redis.Client {
	if cfg.RedisAddr == "" {
		return nil
	}
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
	})
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		logger.Error("failed to connect to redis", "error", err)
		return nil
	}
	logger.Info("connected to redis")
	return client
}

// loggingDeliveryHandler is the outbox's default delivery target until a
// real downstream consumer (notification dispatch, analytics) is wired;
// it logs every event it drains so delivery is never silently dropped.
func loggingDeliveryHandler(logger *logging.Logger) events.DeliveryHandler {
	return events.DeliveryHandlerFunc(func(ctx context.Context, entry events.OutboxEntry) error {
		logger.Info("domain event",
			"aggregate", entry.Aggregate,
			"event_type", entry.EventType,
		)
		return nil
	})
}
