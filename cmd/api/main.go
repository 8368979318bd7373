package main

import (
	"context"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/mataager/SwiftStore/internal/cache"
	"github.com/mataager/SwiftStore/internal/config"
	"github.com/mataager/SwiftStore/internal/database"
	"github.com/mataager/SwiftStore/internal/gate"
	"github.com/mataager/SwiftStore/internal/handlers"
	"github.com/mataager/SwiftStore/internal/ingest"
	"github.com/mataager/SwiftStore/internal/jobs"
	"github.com/mataager/SwiftStore/internal/log"
	"github.com/mataager/SwiftStore/internal/server"
	"github.com/mataager/SwiftStore/internal/storage"
	"github.com/mataager/SwiftStore/internal/transcode"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic(err)
	}

	logger := log.New(cfg.Environment, cfg.Logging.Level)

	ctx := context.Background()

	checks := map[string]handlers.Pinger{}
	deps := handlers.Deps{
		Credentials:    ingest.NewCredentials(cfg.Backends),
		Transcode:      ingest.TranscodeDefaults(cfg.Transcode),
		MaxUploadBytes: cfg.HTTP.MaxUploadMB << 20,
		Environment:    cfg.Environment,
		Checks:         checks,
	}
	deps.Pipeline = ingest.NewPipeline(transcode.NewTranscoder(logger).LimitPixels(cfg.Transcode.MaxPixels), ingest.NewBackends(cfg.Backends), logger)

	// Redis and MinIO only back the async path; the sync upload keeps
	// working without them.
	redisClient, err := cache.NewRedisClient(ctx, cfg.Redis, "swiftstore-api")
	if err != nil {
		logger.Error().Err(err).Msg("redis unavailable, async uploads disabled")
	}

	objectStore, err := storage.NewObjectStore(cfg.Storage)
	if err != nil {
		logger.Error().Err(err).Msg("failed to init object store")
	} else if err := objectStore.EnsureBuckets(ctx); err != nil {
		logger.Warn().Err(err).Msg("ensure buckets failed")
	}

	var queue *jobs.Queue
	if redisClient != nil {
		queue = jobs.NewQueue(redisClient, cfg.Redis.Stream, cfg.Redis.ResultTTL)
		checks["redis"] = queue
	}
	if objectStore != nil {
		checks["minio"] = objectStore
	}
	if queue != nil && objectStore != nil {
		deps.Jobs = queue
		deps.Staging = objectStore
	}

	var dbPool *pgxpool.Pool
	deps.Gate, dbPool, err = newGate(ctx, cfg, objectStore, logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to init store gate")
	}
	if dbPool != nil {
		checks["postgres"] = pingPool{dbPool}
	}

	handlerSet := handlers.NewHandlerSet(logger, deps)
	httpServer := server.NewHTTPServer(cfg, logger, handlerSet)

	var scheduler *jobs.Scheduler
	if queue != nil {
		scheduler = jobs.NewScheduler(queue, cfg.Queues.CleanupSchedule, logger)
		if err := scheduler.Start(); err != nil {
			logger.Error().Err(err).Msg("scheduler start failed")
			scheduler = nil
		}
	}

	go func() {
		if err := httpServer.Start(); err != nil {
			logger.Fatal().Err(err).Msg("http server failed")
		}
	}()

	waitForShutdown(logger, httpServer, scheduler, dbPool, redisClient)
}

// newGate builds the access gate over the configured record source. The
// pool is returned so the caller can close it.
func newGate(ctx context.Context, cfg *config.AppConfig, objectStore *storage.ObjectStore, logger zerolog.Logger) (*gate.Gate, *pgxpool.Pool, error) {
	loc, err := gate.LoadLocation(cfg.Gate.Timezone)
	if err != nil {
		return nil, nil, err
	}

	var (
		source gate.Source
		pool   *pgxpool.Pool
	)
	switch cfg.Gate.Source {
	case "http", "":
		source = gate.NewHTTPSource(&http.Client{Timeout: cfg.Gate.Timeout}, cfg.Gate.BaseURL)
	case "objectstore":
		if objectStore == nil {
			return nil, nil, fmt.Errorf("gate source %q needs the object store", cfg.Gate.Source)
		}
		source = gate.NewObjectSource(objectStore)
	case "postgres":
		if err := database.Migrate(cfg.Postgres.DSN, logger); err != nil {
			return nil, nil, err
		}
		pool, err = database.NewPostgresPool(ctx, cfg.Postgres)
		if err != nil {
			return nil, nil, err
		}
		source = gate.NewPostgresSource(pool)
	default:
		return nil, nil, fmt.Errorf("unknown gate source %q", cfg.Gate.Source)
	}

	logger.Info().Str("source", cfg.Gate.Source).Str("timezone", loc.String()).Msg("store gate ready")
	return gate.New(source, loc, logger), pool, nil
}

type pingPool struct{ pool *pgxpool.Pool }

func (p pingPool) Ping(ctx context.Context) error { return p.pool.Ping(ctx) }

func waitForShutdown(logger zerolog.Logger, srv *server.HTTPServer, scheduler *jobs.Scheduler, db *pgxpool.Pool, redisClient *redis.Client) {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	<-ctx.Done()
	logger.Info().Msg("shutdown signal received")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("graceful shutdown failed")
	}

	if scheduler != nil {
		<-scheduler.Stop().Done()
	}

	if db != nil {
		db.Close()
	}
	if redisClient != nil {
		if err := redisClient.Close(); err != nil {
			logger.Error().Err(err).Msg("redis close error")
		}
	}

	logger.Info().Msg("server exited cleanly")
}
