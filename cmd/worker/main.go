package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"

	"orchestrator/internal/adapter/repo"
	"orchestrator/internal/domain"
	"orchestrator/internal/infra"
	"orchestrator/internal/jobs"
	"orchestrator/internal/notify"
	"orchestrator/internal/queue"
	"orchestrator/internal/worker"
)

func main() {
	cfg, err := infra.LoadConfig()
	if err != nil {
		panic(err)
	}
	logger := infra.NewLogger(cfg.AppEnv, cfg.ServiceName)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if cfg.StoreDriver == infra.StoreDriverMemory {
		logger.Warn().Msg("worker: memory store is private to this process, nothing enqueued elsewhere will be seen")
	}

	store, closeStore, err := repo.Open(ctx, cfg, logger)
	if err != nil {
		logger.Fatal().Err(err).Str("driver", cfg.StoreDriver).Msg("worker: failed to open job store")
	}
	defer closeStore()

	registry, err := jobs.DefaultRegistry(logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("worker: failed to build handler registry")
	}
	logger.Info().Strs("job_types", registry.Types()).Msg("worker: handlers registered")

	var wake worker.WakeSource
	if cfg.RedisURL != "" {
		client, err := notify.NewRedisClient(ctx, cfg.RedisURL)
		if err != nil {
			// Polling still works without wake-ups.
			logger.Warn().Err(err).Msg("worker: redis unavailable, polling only")
		} else {
			defer client.Close()
			sub := notify.NewRedis(client, cfg.RedisChannel, logger)
			wake = sub.Subscribe
		}
	}

	svc := queue.NewService(store, nil, logger)
	err = worker.RunPool(ctx, cfg.WorkerConcurrency, svc, registry, logger, worker.Options{
		ID:                 cfg.WorkerID,
		PollInterval:       cfg.PollInterval,
		JobTimeout:         cfg.JobTimeout,
		MaxStorageFailures: cfg.MaxStorageFailures,
	}, wake)
	switch {
	case err == nil, errors.Is(err, context.Canceled):
		logger.Info().Msg("worker: stopped")
	case errors.Is(err, domain.ErrStorageUnavailable):
		logger.Fatal().Err(err).Msg("worker: giving up, storage unavailable")
	default:
		logger.Fatal().Err(err).Msg("worker: stopped with error")
	}
}
