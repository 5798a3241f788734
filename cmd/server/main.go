package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"
	_ "time/tzdata"

	"github.com/kashyap0729/good-will-hunting/internal/bootstrap"
	"github.com/kashyap0729/good-will-hunting/internal/config"
	"github.com/kashyap0729/good-will-hunting/internal/handler"
	"github.com/kashyap0729/good-will-hunting/internal/jobs"
	"github.com/kashyap0729/good-will-hunting/internal/metrics"
	"github.com/kashyap0729/good-will-hunting/internal/middleware"
	"github.com/kashyap0729/good-will-hunting/internal/notify"
	"github.com/kashyap0729/good-will-hunting/internal/service"
)

func main() {
	// Initialize structured logging
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	slog.SetDefault(logger)

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", slog.String("error", err.Error()))
		os.Exit(1)
	}

	// Validate configuration
	if err := cfg.Validate(); err != nil {
		slog.Error("invalid configuration", slog.String("error", err.Error()))
		os.Exit(1)
	}

	// Load scoring rules
	rulesFile, err := config.LoadRules(cfg.RulesPath)
	if err != nil {
		slog.Error("failed to load rules", slog.String("error", err.Error()))
		os.Exit(1)
	}
	ruleSet, err := rulesFile.Build()
	if err != nil {
		slog.Error("invalid rules", slog.String("error", err.Error()))
		os.Exit(1)
	}

	// Open the donation store
	ctx := context.Background()
	store, err := bootstrap.OpenStore(ctx, cfg)
	if err != nil {
		slog.Error("failed to open store", slog.String("error", err.Error()))
		os.Exit(1)
	}
	defer func() { _ = store.Close() }()

	m := metrics.New()

	// Notification chain: generated text first, templates as fallback
	composers := []notify.Composer{}
	if gen := notify.NewGenerativeComposer(notify.GenerativeConfig{
		Endpoint:   cfg.Notify.Endpoint,
		APIKey:     cfg.Notify.APIKey,
		Model:      cfg.Notify.Model,
		Timeout:    cfg.Notify.Timeout,
		RatePerSec: cfg.Notify.RatePerSec,
		Burst:      cfg.Notify.Burst,
	}); gen != nil {
		composers = append(composers, gen)
		slog.Info("generative notifications enabled", slog.String("model", cfg.Notify.Model))
	}
	composers = append(composers, notify.TemplateComposer{})

	// Initialize services
	leaderboardService := service.NewLeaderboardService(service.LeaderboardServiceConfig{Store: store})
	donorService := service.NewDonorService(service.DonorServiceConfig{Store: store, Rules: ruleSet})
	locationService := service.NewLocationService(service.LocationServiceConfig{Store: store, Rules: ruleSet})
	donationService := service.NewDonationService(service.DonationServiceConfig{
		Store:       store,
		Rules:       ruleSet,
		Leaderboard: leaderboardService,
		Notifier:    notify.NewChain(composers...),
		Observer:    m,
		MaxAttempts: cfg.Donations.MaxAttempts,
	})

	// Keep the persisted catalog in line with the rules file
	if err := locationService.ImportCatalog(ctx, rulesFile.CatalogEntries()); err != nil {
		slog.Error("failed to import catalog", slog.String("error", err.Error()))
		os.Exit(1)
	}

	// Background jobs
	var reconciler *jobs.LeaderReconciler
	if cfg.Jobs.LeaderReconcileInterval > 0 {
		reconciler = jobs.NewLeaderReconciler(jobs.LeaderReconcilerConfig{
			Leaders:  leaderboardService,
			Recorder: m,
			Interval: cfg.Jobs.LeaderReconcileInterval,
		})
		reconciler.Start()
	}

	// Initialize handlers
	router := handler.NewRouter(handler.Router{
		Donors:    handler.NewDonorHandler(donorService),
		Donations: handler.NewDonationHandler(donationService),
		Locations: handler.NewLocationHandler(locationService, leaderboardService),
		Health: handler.NewHealthHandler(map[string]handler.HealthCheck{
			store.Driver: store.Ping,
		}, 2*time.Second),
		Metrics: m.Handler(),
	})

	rateLimiter := middleware.NewRateLimiter(middleware.RateLimitConfig{
		RequestsPerSecond: cfg.RateLimit.RequestsPerSecond,
		Burst:             cfg.RateLimit.Burst,
	})
	idempotencyStore := middleware.NewIdempotencyStore(middleware.IdempotencyConfig{})

	// Apply global middleware
	wrapped := middleware.Chain(
		m.InstrumentHandler(router),
		middleware.RequestID,
		middleware.Logger,
		middleware.Recovery,
		middleware.CORS(cfg.Server.AllowedOrigins),
		middleware.RateLimit(rateLimiter),
		middleware.Idempotency(idempotencyStore),
		middleware.Compress,
	)

	// Create HTTP server
	server := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      wrapped,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  120 * time.Second,
	}

	// Start server in goroutine
	go func() {
		slog.Info("starting server",
			slog.String("port", cfg.Server.Port),
			slog.String("env", cfg.Server.Env),
			slog.String("store", store.Driver),
		)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("server error", slog.String("error", err.Error()))
			os.Exit(1)
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	slog.Info("shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		slog.Error("server forced to shutdown", slog.String("error", err.Error()))
	}
	if reconciler != nil {
		reconciler.Stop()
	}
	rateLimiter.Stop()
	idempotencyStore.Stop()

	slog.Info("server exited")
}
