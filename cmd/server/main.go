package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"

	"passrelay/internal/api"
	"passrelay/internal/api/handlers"
	"passrelay/internal/api/middleware"
	"passrelay/internal/engine/analytics"
	"passrelay/internal/engine/providers"
	"passrelay/internal/engine/webhooks"
	"passrelay/internal/pkg/logger"
	"passrelay/internal/platform/auth"
	"passrelay/internal/platform/config"
	"passrelay/internal/platform/kv"
	"passrelay/internal/platform/metrics"
	"passrelay/internal/platform/repositories"
	"passrelay/internal/workers"
)

func main() {
	configPath := flag.String("config", "configs/config.yaml", "path to the YAML config file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}

	logger.Init(cfg.Logging)

	if err := run(cfg); err != nil {
		log.Fatal().Err(err).Msg("Server failed")
	}
}

func run(cfg *config.Config) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Metrics
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	rec := metrics.NewPrometheus(reg, "passrelay")

	// Storage
	backend, err := kv.Open(ctx, cfg.KV)
	if err != nil {
		return fmt.Errorf("failed to open %s store: %w", cfg.KV.Driver, err)
	}
	defer backend.Close()
	store := kv.NewInstrumented(backend, rec)

	// Repositories
	webhookRepo := repositories.NewWebhookRepository(store)
	analyticsRepo := repositories.NewAnalyticsRepository(store)

	// Services
	registry := providers.NewDefaultRegistry(cfg.Providers)
	runner := workers.NewRunner(cfg.Dispatch.BackgroundTimeout, rec)
	dispatcher := webhooks.NewDispatcher(webhookRepo, registry, runner, webhooks.Options{
		Background: cfg.Dispatch.Background(),
		Metrics:    rec,
	})
	analyticsSvc := analytics.NewService(analyticsRepo, registry, runner, rec)
	tokenSvc := auth.NewTokenService(cfg.Admin)

	if cfg.Admin.PasswordHash == "" || cfg.Admin.JWTSecret == "" {
		log.Warn().Msg("Admin credentials not configured, admin API is disabled")
	}

	// Middleware
	loginLimiter := middleware.NewRateLimiter(cfg.Admin.LoginAttemptsPerMinute)
	defer loginLimiter.Close()

	router := api.NewRouter(&api.Dependencies{
		WebhookHandler:   handlers.NewWebhookHandler(dispatcher, cfg.Server.MaxBodyBytes),
		AnalyticsHandler: handlers.NewAnalyticsHandler(analyticsSvc, cfg.Server.MaxBodyBytes),
		AdminHandler:     handlers.NewAdminHandler(webhookRepo, registry, analyticsSvc),
		AuthHandler:      handlers.NewAuthHandler(tokenSvc),
		HealthHandler:    handlers.NewHealthHandler(store),
		MetricsHandler:   handlers.NewMetricsHandler(reg),
		AuthMiddleware:   middleware.NewAuthMiddleware(tokenSvc),
		LoginLimiter:     loginLimiter,
		CORS:             middleware.CORS(cfg.CORS),
	})

	srv := &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Info().
			Str("addr", srv.Addr).
			Str("kv_driver", cfg.KV.Driver).
			Str("dispatch_mode", cfg.Dispatch.Mode).
			Msg("Server starting")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		log.Info().Msg("Shutting down")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("http shutdown: %w", err)
		}
		if !runner.Flush(cfg.Dispatch.FlushTimeout) {
			log.Warn().Dur("timeout", cfg.Dispatch.FlushTimeout).Msg("Background tasks still running at exit")
		}
		return nil
	})

	return g.Wait()
}
