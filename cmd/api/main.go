package main

import (
	"context"
	"crypto/tls"
	"database/sql"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"
	_ "github.com/lib/pq"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"

	"github.com/wolfman30/medvisit-platform/internal/api/router"
	appconfig "github.com/wolfman30/medvisit-platform/internal/config"
	"github.com/wolfman30/medvisit-platform/internal/directory"
	"github.com/wolfman30/medvisit-platform/internal/http/handlers"
	"github.com/wolfman30/medvisit-platform/internal/observability/metrics"
	"github.com/wolfman30/medvisit-platform/internal/schedule"
	"github.com/wolfman30/medvisit-platform/internal/snapshot"
	"github.com/wolfman30/medvisit-platform/internal/visits"
	"github.com/wolfman30/medvisit-platform/pkg/logging"
)

func main() {
	// Optional .env for local development.
	_ = godotenv.Load()

	cfg := appconfig.Load()
	logger := logging.New(cfg.LogLevel)
	logger.Info("starting medvisit-platform API server",
		"env", cfg.Env,
		"port", cfg.Port,
	)

	ctx := context.Background()

	var repo directory.Repository = directory.NewInMemoryRepository()
	var eventDB *sql.DB
	if cfg.DatabaseURL != "" {
		pool, err := pgxpool.New(ctx, cfg.DatabaseURL)
		if err != nil {
			logger.Error("failed to connect to database", "error", err)
			os.Exit(1)
		}
		defer pool.Close()
		repo = directory.NewPostgresRepository(pool)

		eventDB, err = sql.Open("postgres", cfg.DatabaseURL)
		if err != nil {
			logger.Error("failed to open event log database", "error", err)
			os.Exit(1)
		}
		defer func() { _ = eventDB.Close() }()
	} else {
		logger.Warn("DATABASE_URL not set, using in-memory repository")
	}

	var redisClient *redis.Client
	if cfg.RedisAddr != "" {
		opts := &redis.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
		}
		if cfg.RedisTLS {
			opts.TLSConfig = &tls.Config{MinVersion: tls.VersionTLS12}
		}
		redisClient = redis.NewClient(opts)
		defer func() { _ = redisClient.Close() }()
	}

	metricsHandler, scheduleMetrics := setupScheduleMetrics()
	cache := snapshot.NewCache(repo, redisClient, cfg.SnapshotCacheTTL, scheduleMetrics, logger)
	visitService := visits.NewService(repo, visits.NewEventLog(eventDB), cache, logger)

	reportDefaults := handlers.ReportDefaults{
		Thresholds: schedule.Thresholds{
			WarningDays:  cfg.AlertWarningDays,
			CriticalDays: cfg.AlertCriticalDays,
		},
		UpcomingWindowDays: cfg.UpcomingWindowDays,
	}

	routerCfg := &router.Config{
		Logger:             logger,
		DirectoryHandler:   directory.NewHandler(repo, cache, scheduleMetrics, logger),
		VisitsHandler:      visits.NewHandler(visitService, scheduleMetrics, logger),
		ReportHandler:      handlers.NewReportHandler(cache, scheduleMetrics, reportDefaults, logger),
		PlannerHandler:     handlers.NewPlannerHandler(cache, scheduleMetrics, logger),
		AdminAuthSecret:    cfg.AdminJWTSecret,
		MetricsHandler:     metricsHandler,
		CORSAllowedOrigins: cfg.CORSAllowedOrigins,
		RateLimitPerSecond: cfg.RateLimitPerSecond,
		RateLimitBurst:     cfg.RateLimitBurst,
	}
	r := router.New(routerCfg)

	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
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

	logger.Info("shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server forced to shutdown", "error", err)
		os.Exit(1)
	}

	logger.Info("server stopped")
	fmt.Println("Server exited gracefully")
}

// setupScheduleMetrics builds the metrics registry and the /metrics handler.
func setupScheduleMetrics() (http.Handler, *metrics.ScheduleMetrics) {
	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector())
	scheduleMetrics := metrics.NewScheduleMetrics(registry)
	handler := promhttp.HandlerFor(registry, promhttp.HandlerOpts{})
	return handler, scheduleMetrics
}
