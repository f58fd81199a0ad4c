package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"legacyvault/internal/cache"
	"legacyvault/internal/config"
	"legacyvault/internal/log"
	"legacyvault/internal/queue"
	"legacyvault/internal/storage"
	"legacyvault/internal/tasks"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic(err)
	}

	logger := log.New(cfg.Environment)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	redisClient, err := cache.NewRedisClient(ctx, cfg.Redis)
	if err != nil {
		logger.Fatal().Err(err).Msg("redis connection failed")
	}
	defer redisClient.Close()

	objectStore, err := storage.NewObjectStore(cfg.Storage)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to init object store")
	}

	consumerName := cfg.Events.Consumer
	if consumerName == "" {
		host, _ := os.Hostname()
		consumerName = "worker-" + host
	}

	processor := tasks.NewProcessor(redisClient, objectStore, cfg.Events.ChannelPrefix, logger)
	consumer := queue.NewConsumer(
		redisClient,
		cfg.Events.Stream,
		cfg.Events.Group,
		consumerName,
		cfg.Events.ClaimInterval,
		logger,
		processor,
	)

	if err := consumer.EnsureGroup(ctx); err != nil {
		logger.Fatal().Err(err).Msg("ensure consumer group failed")
	}

	go func() {
		if err := consumer.Start(ctx); err != nil && err != context.Canceled {
			logger.Fatal().Err(err).Msg("consumer stopped unexpectedly")
		}
	}()

	logger.Info().
		Str("stream", cfg.Events.Stream).
		Str("group", cfg.Events.Group).
		Str("consumer", consumerName).
		Msg("worker started")

	<-ctx.Done()
	logger.Info().Msg("shutdown signal received")
	time.Sleep(500 * time.Millisecond)
}
