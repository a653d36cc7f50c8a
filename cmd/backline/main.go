package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/backlinefm/backline/internal/api"
	"github.com/backlinefm/backline/internal/auth"
	"github.com/backlinefm/backline/internal/catalog"
	"github.com/backlinefm/backline/internal/catalogsync"
	"github.com/backlinefm/backline/internal/config"
	"github.com/backlinefm/backline/internal/database"
	"github.com/backlinefm/backline/internal/logging"
	"github.com/backlinefm/backline/internal/playlist"
	"github.com/backlinefm/backline/internal/ratelimit"
	"github.com/backlinefm/backline/internal/roster"
	"github.com/backlinefm/backline/internal/stats"
	"github.com/backlinefm/backline/internal/submission"
	"github.com/backlinefm/backline/internal/version"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	// Load configuration
	configPath := os.Getenv("BL_CONFIG_PATH")
	if configPath == "" {
		configPath = "/data/config.yaml"
	}

	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	// Set up structured logging
	logger, logCloser := logging.New(logging.Config{
		Level:    cfg.Logging.Level,
		Format:   cfg.Logging.Format,
		FilePath: cfg.Logging.FilePath,
	})
	if logCloser != nil {
		defer logCloser.Close() //nolint:errcheck
	}
	slog.SetDefault(logger)

	// Open database
	db, err := database.Open(cfg.Database.Path)
	if err != nil {
		return fmt.Errorf("opening database: %w", err)
	}
	defer func() {
		if err := db.Close(); err != nil {
			logger.Error("closing database", "error", err)
		}
	}()

	// Run migrations
	if err := database.Migrate(db); err != nil {
		return fmt.Errorf("running migrations: %w", err)
	}

	logger.Info("database ready", slog.String("path", cfg.Database.Path))

	// Initialize services
	authService := auth.NewService(db)
	rosterService := roster.NewService(db)
	submissionService := submission.NewService(db)
	playlistService := playlist.NewService(db)
	rateLimitService := ratelimit.NewService(db, logger)
	statsService := stats.NewService(rosterService, submissionService, playlistService, logger)

	// Catalog client and sync orchestrator
	tokens := catalog.NewTokenSource(cfg.Catalog.TokenURL, cfg.Catalog.ClientID, cfg.Catalog.ClientSecret)
	catalogClient := catalog.NewClient(tokens, logger, cfg.Catalog.BaseURL)
	orchestrator := catalogsync.NewOrchestrator(rosterService, catalogClient, logger, cfg.Sync.RowDelay())

	if cfg.Catalog.ClientID == "" || cfg.Catalog.ClientSecret == "" {
		logger.Warn("catalog credentials not configured, sync runs will fail until they are set")
	}

	logger.Info("starting backline",
		slog.String("version", version.Version),
		slog.String("commit", version.Commit),
	)

	// Set up HTTP router
	router := api.NewRouter(api.RouterDeps{
		AuthService:       authService,
		RosterService:     rosterService,
		SubmissionService: submissionService,
		PlaylistService:   playlistService,
		StatsService:      statsService,
		RateLimitService:  rateLimitService,
		Orchestrator:      orchestrator,
		Logger:            logger,
		BasePath:          cfg.Server.BasePath,
	})

	// Graceful shutdown
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	addr := fmt.Sprintf(":%d", cfg.Server.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      router.Handler(),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Session cleanup goroutine
	go func() {
		ticker := time.NewTicker(1 * time.Hour)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if err := authService.CleanExpiredSessions(ctx); err != nil {
					logger.Error("session cleanup failed", "error", err)
				}
			}
		}
	}()

	// Rate limit attempt cleanup goroutine
	go func() {
		ticker := time.NewTicker(6 * time.Hour)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if n, err := rateLimitService.Cleanup(ctx); err != nil {
					logger.Error("rate limit cleanup failed", "error", err)
				} else if n > 0 {
					logger.Info("rate limit attempts pruned", slog.Int64("removed", n))
				}
			}
		}
	}()

	go func() {
		logger.Info("server starting", slog.String("addr", addr), slog.String("base_path", cfg.Server.BasePath))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	return srv.Shutdown(shutdownCtx)
}
