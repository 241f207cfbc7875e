package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"

	"orchestrator/internal/adapter/repo"
	"orchestrator/internal/http/handlers"
	httpapi "orchestrator/internal/http/httpapi"
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

	store, closeStore, err := repo.Open(ctx, cfg, logger)
	if err != nil {
		logger.Fatal().Err(err).Str("driver", cfg.StoreDriver).Msg("api: failed to open job store")
	}
	defer closeStore()

	notifier, closeNotifier := newNotifier(ctx, cfg, logger)
	defer closeNotifier()

	svc := queue.NewService(store, notifier, logger)

	// The memory store lives in this process only, so the API runs its own loops.
	embedded := cfg.StoreDriver == infra.StoreDriverMemory
	workerDone := make(chan error, 1)
	if embedded {
		registry, err := jobs.DefaultRegistry(logger)
		if err != nil {
			logger.Fatal().Err(err).Msg("api: failed to build handler registry")
		}
		go func() {
			workerDone <- worker.RunPool(ctx, cfg.WorkerConcurrency, svc, registry, logger, worker.Options{
				ID:                 cfg.WorkerID,
				PollInterval:       cfg.PollInterval,
				JobTimeout:         cfg.JobTimeout,
				MaxStorageFailures: cfg.MaxStorageFailures,
			}, nil)
		}()
	}

	app := handlers.NewApp(svc, logger, cfg.ServiceName)
	router := httpapi.NewRouter(app, httpapi.RouterOptions{
		Logger:             logger,
		RateLimitPerMinute: cfg.RateLimitPerMin,
	})
	server := infra.NewHTTPServer(cfg, router)

	serverErr := make(chan error, 1)
	go func() {
		logger.Info().Str("addr", server.Addr()).Str("driver", cfg.StoreDriver).Msg("api: listening")
		serverErr <- server.Start()
	}()

	var workerErr error
	workerStopped := false
	select {
	case <-ctx.Done():
	case err := <-serverErr:
		if err != nil {
			logger.Fatal().Err(err).Msg("api: http server failed")
		}
	case workerErr = <-workerDone:
		workerStopped = true
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.HTTPIdleTimeout)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("api: failed to shutdown server")
	}

	// Let the embedded loops finish their in-flight jobs.
	if embedded && !workerStopped {
		stop()
		workerErr = <-workerDone
	}
	if embeddedWorkerFailed(workerErr) {
		logger.Fatal().Err(workerErr).Msg("api: embedded worker stopped")
	}
	logger.Info().Msg("api: stopped")
}

// newNotifier connects to Redis when configured. An unreachable Redis only
// costs early wake-ups, so it degrades to notify.Nop.
func newNotifier(ctx context.Context, cfg *infra.Config, logger infra.Logger) (notify.Notifier, func()) {
	if cfg.RedisURL == "" {
		return notify.Nop{}, func() {}
	}
	client, err := notify.NewRedisClient(ctx, cfg.RedisURL)
	if err != nil {
		logger.Warn().Err(err).Msg("api: redis unavailable, workers will rely on polling")
		return notify.Nop{}, func() {}
	}
	return notify.NewRedis(client, cfg.RedisChannel, logger), func() { _ = client.Close() }
}

// embeddedWorkerFailed reports whether the embedded pool ended for a reason
// other than shutdown, such as domain.ErrStorageUnavailable.
func embeddedWorkerFailed(err error) bool {
	return err != nil && !errors.Is(err, context.Canceled)
}
