package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	_ "github.com/joho/godotenv/autoload"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/fairyhunter13/invite-registry/internal/config"
	"github.com/fairyhunter13/invite-registry/internal/handler"
	"github.com/fairyhunter13/invite-registry/internal/invite"
	"github.com/fairyhunter13/invite-registry/internal/middleware"
	"github.com/fairyhunter13/invite-registry/internal/repository"
	"github.com/fairyhunter13/invite-registry/internal/service"
	"github.com/fairyhunter13/invite-registry/internal/validator"
	"github.com/fairyhunter13/invite-registry/pkg/database"
)

// store is what the API needs from any invite store.
type store interface {
	service.Registry
	handler.Pinger
}

func main() {
	// Load configuration first
	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load configuration")
	}

	// Initialize zerolog based on configuration
	initLogger(cfg)

	// Create context for startup; cancelled on shutdown to stop background work
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	registry, closeStore, err := openStore(ctx, cfg)
	if err != nil {
		log.Fatal().Err(err).Str("driver", cfg.Store.Driver).Msg("failed to open invite store")
	}

	inviteService := service.NewInviteService(registry, service.Defaults{
		CodeLength: cfg.Invite.CodeLength,
		ExpiryDays: cfg.Invite.ExpiryDays,
		MaxUses:    cfg.Invite.MaxUses,
		MaxBatch:   cfg.Invite.MaxBatch,
	})

	if cfg.Invite.SeedOnStart {
		if _, err := inviteService.Seed(ctx); err != nil {
			log.Fatal().Err(err).Msg("failed to seed invite codes")
		}
	}

	// Initialize Fiber with production-ready configuration
	app := fiber.New(fiber.Config{
		AppName:      "Invite Registry",
		ReadTimeout:  30 * time.Second,  // Max time to read request
		WriteTimeout: 30 * time.Second,  // Max time to write response
		IdleTimeout:  120 * time.Second, // Max time for keep-alive connections
		BodyLimit:    1 * 1024 * 1024,   // 1MB body limit (explicit, prevents large payloads)
	})

	// Middleware
	app.Use(recover.New())
	app.Use(requestid.New()) // Adds X-Request-ID header to all requests
	app.Use(logger.New())

	// Health handler
	healthHandler := handler.NewHealthHandler(registry, cfg.Store.Driver)
	app.Get("/health", healthHandler.Check)

	// Invite routes; validate and redeem are rate limited per client IP
	var limit fiber.Handler
	if cfg.RateLimit.RPS > 0 {
		limit = middleware.NewRateLimiter(ctx, cfg.RateLimit.RPS, cfg.RateLimit.Burst, cfg.RateLimit.IdleTimeout).Handler()
	}
	inviteHandler := handler.NewInviteHandler(inviteService, validator.New())
	inviteHandler.Register(app, limit)

	// Start server with graceful shutdown
	go func() {
		log.Info().Str("port", cfg.Server.Port).Str("driver", cfg.Store.Driver).Msg("starting server")
		if err := app.Listen(":" + cfg.Server.Port); err != nil {
			log.Fatal().Err(err).Msg("failed to start server")
		}
	}()

	// Wait for interrupt signal for graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	sig := <-quit

	log.Info().Str("signal", sig.String()).Msg("received shutdown signal")
	log.Info().Int("timeout_seconds", cfg.Server.ShutdownTimeout).Msg("shutting down server...")

	// Create shutdown context with timeout
	shutdownCtx, shutdownCancel := context.WithTimeout(
		context.Background(),
		time.Duration(cfg.Server.ShutdownTimeout)*time.Second,
	)
	defer shutdownCancel()

	// Shutdown server (waits for in-flight requests)
	log.Info().Msg("waiting for in-flight requests to complete...")
	if err := app.ShutdownWithContext(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("error during server shutdown")
	}
	cancel()

	// Close the store AFTER server shutdown (even if shutdown timed out)
	log.Info().Msg("closing invite store...")
	if err := closeStore(); err != nil {
		log.Error().Err(err).Msg("error closing invite store")
	}
	log.Info().Msg("server stopped")
}

// openStore connects the configured invite store and returns it with its closer.
func openStore(ctx context.Context, cfg *config.Config) (store, func() error, error) {
	switch cfg.Store.Driver {
	case config.DriverPostgres:
		pool, err := database.NewPool(ctx, cfg.DB.DSN(), database.PoolOptions{
			MaxConns:   cfg.DB.MaxConns,
			MinConns:   cfg.DB.MinConns,
			MaxRetries: cfg.DB.MaxRetries,
		})
		if err != nil {
			return nil, nil, err
		}
		if err := repository.Migrate(ctx, pool); err != nil {
			pool.Close()
			return nil, nil, err
		}
		return &pgStore{InviteRepository: repository.NewInviteRepository(pool), pool: pool},
			func() error { pool.Close(); return nil }, nil

	case config.DriverBolt:
		if err := os.MkdirAll(filepath.Dir(cfg.Store.BoltPath), 0o755); err != nil {
			return nil, nil, fmt.Errorf("create bolt directory: %w", err)
		}
		repo, err := repository.NewBoltRepository(cfg.Store.BoltPath)
		if err != nil {
			return nil, nil, err
		}
		log.Info().Str("path", cfg.Store.BoltPath).Msg("bolt invite store opened")
		return repo, repo.Close, nil

	case config.DriverMemory:
		log.Warn().Msg("using in-memory invite store, codes are lost on restart")
		return repository.NewMemoryRepository(invite.NewCatalog()), func() error { return nil }, nil
	}
	return nil, nil, fmt.Errorf("unsupported store driver %q", cfg.Store.Driver)
}

// pgStore pairs the PostgreSQL repository with its pool for health checks.
type pgStore struct {
	*repository.InviteRepository
	pool interface{ Ping(context.Context) error }
}

func (s *pgStore) Ping(ctx context.Context) error {
	return s.pool.Ping(ctx)
}

// initLogger configures zerolog based on the application configuration.
func initLogger(cfg *config.Config) {
	// Set log level
	level, err := zerolog.ParseLevel(cfg.Log.Level)
	if err != nil {
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)

	// Configure output format
	if cfg.Log.Pretty {
		// Human-readable output for development
		log.Logger = zerolog.New(zerolog.ConsoleWriter{Out: os.Stdout}).
			With().Timestamp().Logger()
	} else {
		// JSON output for production
		zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
		log.Logger = zerolog.New(os.Stdout).With().Timestamp().Logger()
	}
}
