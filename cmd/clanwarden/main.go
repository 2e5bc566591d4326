// Package main is the entry point of the clanwarden bot. It connects to
// Discord and Postgres and serves the health endpoints over HTTP and gRPC.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/parsascontentcorner/clanwarden/internal/access"
	"github.com/parsascontentcorner/clanwarden/internal/audit"
	"github.com/parsascontentcorner/clanwarden/internal/backup"
	"github.com/parsascontentcorner/clanwarden/internal/bot"
	"github.com/parsascontentcorner/clanwarden/internal/commands"
	"github.com/parsascontentcorner/clanwarden/internal/config"
	"github.com/parsascontentcorner/clanwarden/internal/database"
	grpcserver "github.com/parsascontentcorner/clanwarden/internal/grpc"
	httpserver "github.com/parsascontentcorner/clanwarden/internal/http"
	"github.com/parsascontentcorner/clanwarden/internal/members"
	"github.com/parsascontentcorner/clanwarden/internal/moderation"
	"github.com/parsascontentcorner/clanwarden/internal/ratelimit"
	"github.com/parsascontentcorner/clanwarden/pkg/logger"
)

const (
	limiterCleanupInterval = 10 * time.Minute
	limiterIdle            = 30 * time.Minute
	healthRefreshInterval  = 15 * time.Second
	shutdownTimeout        = 10 * time.Second
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic("Failed to load configuration: " + err.Error())
	}

	log, err := logger.New(cfg.Logging.Level, cfg.Logging.Format, "clanwarden")
	if err != nil {
		panic("Failed to initialize logger: " + err.Error())
	}
	defer func() {
		// Sync fails on non-syncable descriptors such as pipes and terminals
		_ = log.Sync()
	}()

	log.Info("starting clanwarden",
		zap.String("environment", cfg.Server.Env),
		zap.String("health_port", cfg.Server.HealthPort),
		zap.String("grpc_port", cfg.Server.GRPCPort),
	)

	db, err := database.NewDB(&cfg.Database, log)
	if err != nil {
		log.Fatal("failed to connect to database", zap.Error(err))
	}
	defer func() {
		if err := db.Close(); err != nil {
			log.Error("failed to close database connection", zap.Error(err))
		}
	}()

	if err := runMigrations(db, log); err != nil {
		log.Fatal("failed to run migrations", zap.Error(err))
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	roster := members.NewRoster(db, log)
	trail := audit.NewTrail(db, log)
	backups := backup.NewService(db, log)
	authorizer := access.NewAuthorizer(db, log)

	limiter := ratelimit.NewRateLimiter(cfg.RateLimit.CommandsPerSecond, cfg.RateLimit.Burst, log)
	go limiter.StartCleanupJob(ctx, limiterCleanupInterval, limiterIdle)

	session, err := bot.NewSession(&cfg.Discord)
	if err != nil {
		log.Fatal("failed to create discord session", zap.Error(err))
	}
	platform := bot.NewPlatform(session, log)

	router := commands.NewRouter(commands.Deps{
		Store:    db,
		Access:   authorizer,
		Audit:    trail,
		Roster:   roster,
		Backups:  backups,
		Platform: platform,
		Limiter:  limiter,
		Logger:   log,
	})

	discordBot := bot.New(session, &cfg.Discord, bot.Deps{
		Handler: router,
		Guilds:  db,
		Roster:  roster,
		Audit:   trail,
		Logger:  log,
	})
	if err := discordBot.Start(); err != nil {
		log.Fatal("failed to connect to discord", zap.Error(err))
	}

	sweeper := moderation.NewSweeper(db, platform, trail, log)
	go sweeper.Start(ctx, cfg.Moderation.MuteSweepInterval)

	grpcServer, err := grpcserver.NewServer(db, discordBot, cfg.Server.GRPCPort, log)
	if err != nil {
		log.Fatal("failed to create gRPC server", zap.Error(err))
	}
	go grpcServer.WatchHealth(ctx, healthRefreshInterval)

	httpHandlers := httpserver.NewHandlers(db, discordBot, platform, log)
	httpServer := httpserver.NewServer(httpHandlers, cfg.Server.HealthPort, log)

	grpcErrChan := make(chan error, 1)
	httpErrChan := make(chan error, 1)

	go func() {
		if err := grpcServer.Serve(); err != nil {
			grpcErrChan <- err
		}
	}()

	go func() {
		if err := httpServer.Serve(); err != nil {
			httpErrChan <- err
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	select {
	case err := <-grpcErrChan:
		log.Error("gRPC server error", zap.Error(err))
	case err := <-httpErrChan:
		log.Error("HTTP server error", zap.Error(err))
	case sig := <-sigChan:
		log.Info("received shutdown signal", zap.String("signal", sig.String()))
	}

	log.Info("shutting down...")
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer shutdownCancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		log.Error("failed to shutdown HTTP server gracefully", zap.Error(err))
	}

	grpcServer.GracefulStop()

	if err := discordBot.Close(); err != nil {
		log.Error("failed to close discord session", zap.Error(err))
	}

	log.Info("shut down successfully")
}

// runMigrations applies the schema migrations with golang-migrate
func runMigrations(db *database.DB, log *zap.Logger) error {
	log.Info("running database migrations")

	// relative to the working directory of the binary
	migrationsPath := "internal/database/migrations"

	if err := db.RunMigrations(migrationsPath); err != nil {
		return fmt.Errorf("migration failed: %w", err)
	}

	log.Info("database migrations completed successfully")
	return nil
}
