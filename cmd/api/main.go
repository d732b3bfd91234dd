package main

import (
	"context"
	"database/sql"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/Veein-web/AI-Background-Remover/internal/cache"
	"github.com/Veein-web/AI-Background-Remover/internal/config"
	"github.com/Veein-web/AI-Background-Remover/internal/database"
	"github.com/Veein-web/AI-Background-Remover/internal/handlers"
	"github.com/Veein-web/AI-Background-Remover/internal/jobs"
	"github.com/Veein-web/AI-Background-Remover/internal/log"
	"github.com/Veein-web/AI-Background-Remover/internal/oauth"
	"github.com/Veein-web/AI-Background-Remover/internal/rembg"
	"github.com/Veein-web/AI-Background-Remover/internal/repository"
	"github.com/Veein-web/AI-Background-Remover/internal/server"
	"github.com/Veein-web/AI-Background-Remover/internal/service"
	"github.com/Veein-web/AI-Background-Remover/internal/staging"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic(err)
	}

	logger := log.New(cfg.Environment)

	ctx := context.Background()

	dbPool, err := database.NewPostgresPool(ctx, cfg.Postgres)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to connect postgres")
	}
	db := database.OpenDB(dbPool)

	if err := database.Migrate(ctx, db); err != nil {
		logger.Fatal().Err(err).Msg("failed to migrate database")
	}

	redisClient, err := cache.NewRedisClient(ctx, cfg.Redis)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to connect redis")
	}

	area, err := newStagingArea(ctx, cfg, logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to init staging area")
	}

	users := repository.NewUserRepository(db)
	sessions := repository.NewSessionRepository(db)
	images := repository.NewImageRepository(db)

	remover := rembg.NewHTTPRemover(cfg.Rembg.Endpoint, cfg.Rembg.Model, cfg.Rembg.Timeout)

	deps := handlers.Deps{
		Log:      logger,
		Config:   cfg,
		Auth:     service.NewAuthService(users, sessions, cfg.Security, logger),
		Images:   service.NewImageService(area, remover, images, cfg.Upload.MaxPixels, logger),
		Delivery: service.NewDeliveryService(users, area, cfg.Upload.MaxPixels, logger),
		Area:     area,
		Checks: []handlers.HealthCheck{
			{Name: "database", Ping: db.PingContext},
			{Name: "cache", Ping: func(ctx context.Context) error { return redisClient.Ping(ctx).Err() }},
		},
	}
	if cfg.GoogleEnabled() {
		deps.Google = oauth.NewGoogleProvider(cfg.OAuth.Google)
		deps.States = oauth.NewRedisStateStore(redisClient, cfg.OAuth.StateTTL)
	} else {
		logger.Warn().Msg("google oauth credentials missing, federated login disabled")
	}

	httpServer, err := server.NewHTTPServer(cfg, logger, handlers.NewHandlerSet(deps))
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to build http server")
	}

	scheduler := jobs.NewScheduler(sessions, logger)
	if err := scheduler.Start(); err != nil {
		logger.Error().Err(err).Msg("scheduler start failed")
	}

	go func() {
		if err := httpServer.Start(); err != nil {
			logger.Fatal().Err(err).Msg("http server failed")
		}
	}()

	waitForShutdown(logger, httpServer, scheduler, db, dbPool, redisClient)
}

func newStagingArea(ctx context.Context, cfg *config.AppConfig, logger zerolog.Logger) (staging.Area, error) {
	if cfg.Staging.Driver == "minio" {
		area, err := staging.NewObjectArea(cfg.Storage)
		if err != nil {
			return nil, err
		}
		if err := area.EnsureBuckets(ctx); err != nil {
			logger.Warn().Err(err).Msg("ensure buckets failed")
		}
		return area, nil
	}
	return staging.NewFSArea(cfg.Staging.Dir)
}

func waitForShutdown(logger zerolog.Logger, srv *server.HTTPServer, scheduler *jobs.Scheduler, db *sql.DB, pool *pgxpool.Pool, redisClient *redis.Client) {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	<-ctx.Done()
	logger.Info().Msg("shutdown signal received")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("graceful shutdown failed")
	}

	scheduler.Stop()

	if err := db.Close(); err != nil {
		logger.Error().Err(err).Msg("database close error")
	}
	pool.Close()
	if err := redisClient.Close(); err != nil {
		logger.Error().Err(err).Msg("redis close error")
	}

	logger.Info().Msg("server exited cleanly")
}
