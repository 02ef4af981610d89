// Campus Core - Multi-Tenant Campus Community Backend
//
// This is the main entry point for the Campus Core application.
// Campus Core serves multiple campus organizations from one deployment:
//   - Tenant resolution by email domain
//   - Access/refresh token authentication with rotation on use
//   - Org-scoped community features (locations, reviews, announcements, events)
//   - Soft-delete retention with scheduled purge
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	_ "github.com/campusnav/campus-core/migrations"

	"github.com/campusnav/campus-core/internal/api"
	"github.com/campusnav/campus-core/internal/audit"
	"github.com/campusnav/campus-core/internal/auth"
	"github.com/campusnav/campus-core/internal/community"
	"github.com/campusnav/campus-core/internal/infrastructure/config"
	"github.com/campusnav/campus-core/internal/infrastructure/database"
	"github.com/campusnav/campus-core/internal/infrastructure/logging"
)

// Version information - set at build time via ldflags
// Example: go build -ldflags "-X main.version=1.0.0 -X main.commit=abc123"
var (
	version = "dev"     // Semantic version (e.g., "1.0.0")
	commit  = "unknown" // Git commit hash
	date    = "unknown" // Build date
)

// Default configuration file path
const defaultConfigPath = "configs/config.yaml"

func main() {
	// Create a context that cancels on interrupt signals (Ctrl+C, SIGTERM)
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := run(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// run is the actual application logic, separated from main for testability.
// Returning an error allows main to handle exit codes consistently.
func run(ctx context.Context) error {
	// Use default logger until config is loaded
	log := logging.Default()
	log.Info("starting Campus Core",
		"version", version,
		"commit", commit,
		"build_date", date,
	)

	// Load configuration
	configPath := getConfigPath()
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	log.Info("configuration loaded", "path", configPath)

	// Reinitialise logger with config settings
	log = logging.New(cfg.Logging, version)
	log.Info("logger initialised",
		"level", cfg.Logging.Level,
		"format", cfg.Logging.Format,
	)

	// Open database
	db, err := database.Open(database.Config{
		Path:        cfg.Database.Path,
		WALMode:     cfg.Database.WALMode,
		BusyTimeout: cfg.Database.BusyTimeout,
	})
	if err != nil {
		return fmt.Errorf("opening database: %w", err)
	}
	defer func() {
		log.Info("closing database")
		if closeErr := db.Close(); closeErr != nil {
			log.Error("error closing database", "error", closeErr)
		}
	}()
	log.Info("database connected", "path", cfg.Database.Path)

	// Run migrations
	if migrateErr := db.Migrate(ctx); migrateErr != nil {
		return fmt.Errorf("running migrations: %w", migrateErr)
	}
	log.Info("database migrations complete")

	// Wire the auth service
	issuer := auth.NewTokenIssuer(
		cfg.Auth.Secret,
		cfg.Auth.RefreshPepper,
		cfg.Auth.Issuer,
		cfg.AccessTokenTTL(),
		cfg.RefreshTokenTTL(),
	)
	authSvc := auth.NewService(db.DB, issuer, cfg.RetentionWindow(), log.Logger)

	// Seed the first organization on an empty database (optional)
	if cfg.Seed.Enabled {
		if _, seedErr := authSvc.Seed(ctx, auth.SeedParams{
			OrgName:       cfg.Seed.OrgName,
			Domains:       cfg.Seed.Domains,
			AdminEmail:    cfg.Seed.AdminEmail,
			AdminName:     cfg.Seed.AdminName,
			AdminPassword: cfg.Seed.AdminPassword,
		}); seedErr != nil {
			return fmt.Errorf("seeding database: %w", seedErr)
		}
	}

	// Start the purge job: hard-deletes accounts past their retention
	// window and sweeps expired refresh tokens.
	purger := auth.NewPurger(db.DB, cfg.PurgeInterval(), log.Logger)
	go purger.Run(ctx)
	log.Info("purge job started", "interval", cfg.PurgeInterval())

	// Start the API server
	server, err := api.New(api.Deps{
		Config: cfg.API,
		Logger: log,
		Auth:   authSvc,
		Locations:        community.NewLocationRepository(db.DB),
		Reviews:          community.NewReviewRepository(db.DB),
		Favorites:        community.NewFavoriteRepository(db.DB),
		LocationRequests: community.NewLocationRequestRepository(db.DB),
		Announcements:    community.NewAnnouncementRepository(db.DB),
		Events:           community.NewEventRepository(db.DB),
		AuditRepo:        audit.NewSQLiteRepository(db.DB),
		Version:          version,
	})
	if err != nil {
		return fmt.Errorf("creating API server: %w", err)
	}
	if err := server.Start(ctx); err != nil {
		return fmt.Errorf("starting API server: %w", err)
	}
	defer func() {
		if closeErr := server.Close(); closeErr != nil {
			log.Error("error closing API server", "error", closeErr)
		}
	}()
	log.Info("API server started", "host", cfg.API.Host, "port", cfg.API.Port)

	log.Info("initialisation complete, waiting for shutdown signal")

	// Wait for shutdown signal
	<-ctx.Done()

	log.Info("shutdown signal received, cleaning up")

	// Deferred Close() calls run in reverse order:
	// 1. API server (drains in-flight requests and the audit queue)
	// 2. Database

	log.Info("Campus Core stopped")
	return nil
}

// getConfigPath returns the configuration file path.
// Uses CAMPUSCORE_CONFIG environment variable if set, otherwise default.
func getConfigPath() string {
	if path := os.Getenv("CAMPUSCORE_CONFIG"); path != "" {
		return path
	}
	return defaultConfigPath
}
