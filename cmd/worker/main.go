package main

import (
	"context"
	"errors"
	"os/signal"
	"syscall"

	"github.com/mataager/SwiftStore/internal/cache"
	"github.com/mataager/SwiftStore/internal/config"
	"github.com/mataager/SwiftStore/internal/ingest"
	"github.com/mataager/SwiftStore/internal/jobs"
	"github.com/mataager/SwiftStore/internal/log"
	"github.com/mataager/SwiftStore/internal/queue"
	"github.com/mataager/SwiftStore/internal/storage"
	"github.com/mataager/SwiftStore/internal/tasks"
	"github.com/mataager/SwiftStore/internal/transcode"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic(err)
	}

	logger := log.New(cfg.Environment, cfg.Logging.Level)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	client, err := cache.NewRedisClient(ctx, cfg.Redis, "swiftstore-worker")
	if err != nil {
		logger.Fatal().Err(err).Msg("redis connection failed")
	}
	defer client.Close()

	objectStore, err := storage.NewObjectStore(cfg.Storage)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to init object store")
	}
	if err := objectStore.EnsureBuckets(ctx); err != nil {
		logger.Warn().Err(err).Msg("ensure buckets failed")
	}

	pipeline := ingest.NewPipeline(transcode.NewTranscoder(logger).LimitPixels(cfg.Transcode.MaxPixels), ingest.NewBackends(cfg.Backends), logger)
	results := jobs.NewQueue(client, cfg.Redis.Stream, cfg.Redis.ResultTTL)
	processor := tasks.NewProcessor(
		pipeline,
		ingest.NewCredentials(cfg.Backends),
		objectStore,
		results,
		cfg.Storage.StagingRetention,
		logger,
	)

	consumer := queue.NewConsumer(client, cfg.Redis, cfg.Queues, logger, processor)
	if err := consumer.EnsureGroup(ctx); err != nil {
		logger.Fatal().Err(err).Msg("create consumer group failed")
	}

	logger.Info().
		Str("stream", cfg.Redis.Stream).
		Str("group", cfg.Redis.Group).
		Str("consumer", cfg.Redis.Consumer).
		Msg("worker started")

	if err := consumer.Start(ctx); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error().Err(err).Msg("consumer stopped unexpectedly")
		return
	}
	logger.Info().Msg("worker stopped")
}
