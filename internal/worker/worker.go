// Package worker runs the poll, claim, execute, report loop.
package worker

import (
	"context"
	"errors"
	"fmt"
	"time"

	"orchestrator/internal/domain"
	"orchestrator/internal/infra"
	"orchestrator/internal/jobs"
	"orchestrator/internal/redact"
)

const (
	defaultPollInterval       = 2 * time.Second
	defaultMaxStorageFailures = 10
)

// Queue is the subset of the queue API the loop drives.
type Queue interface {
	Claim(ctx context.Context) (*domain.Job, error)
	Complete(ctx context.Context, id int64) error
	Fail(ctx context.Context, id int64, message string) error
}

// Options tune a Worker. Zero values fall back to defaults.
type Options struct {
	ID           string
	PollInterval time.Duration
	// JobTimeout bounds a single handler run; zero disables the bound.
	JobTimeout time.Duration
	// MaxStorageFailures consecutive storage errors make Run give up.
	MaxStorageFailures int
	// Wake, when set, cuts an idle wait short.
	Wake <-chan struct{}
}

// Worker polls a Queue and dispatches claimed jobs through a Registry.
type Worker struct {
	queue    Queue
	registry *jobs.Registry
	logger   infra.Logger
	opts     Options
	wake     <-chan struct{}
}

func New(queue Queue, registry *jobs.Registry, logger infra.Logger, opts Options) *Worker {
	if opts.PollInterval <= 0 {
		opts.PollInterval = defaultPollInterval
	}
	if opts.MaxStorageFailures <= 0 {
		opts.MaxStorageFailures = defaultMaxStorageFailures
	}
	return &Worker{
		queue:    queue,
		registry: registry,
		logger:   logger.With().Str("worker_id", opts.ID).Logger(),
		opts:     opts,
		wake:     opts.Wake,
	}
}

// Run loops until ctx is cancelled or storage stays unavailable for
// MaxStorageFailures consecutive iterations, in which case the returned error
// wraps domain.ErrStorageUnavailable. Cancellation is only observed between
// iterations; a claimed job is always executed and reported.
func (w *Worker) Run(ctx context.Context) error {
	w.logger.Info().
		Dur("poll_interval", w.opts.PollInterval).
		Dur("job_timeout", w.opts.JobTimeout).
		Msg("worker: started")

	failures := 0
	for {
		if err := ctx.Err(); err != nil {
			w.logger.Info().Msg("worker: stopping")
			return err
		}

		claimed, err := w.RunOnce(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			failures++
			w.logger.Error().Err(err).
				Int("consecutive_failures", failures).
				Int("max_failures", w.opts.MaxStorageFailures).
				Msg("worker: storage error")
			if failures >= w.opts.MaxStorageFailures {
				return fmt.Errorf("%w: %d consecutive storage errors: %w", domain.ErrStorageUnavailable, failures, err)
			}
		} else {
			failures = 0
			if claimed {
				continue
			}
		}

		if err := w.wait(ctx); err != nil {
			w.logger.Info().Msg("worker: stopping")
			return err
		}
	}
}

// RunOnce performs one poll. It reports whether a job was claimed; a non-nil
// error is always a storage error from the claim or the terminal mark.
func (w *Worker) RunOnce(ctx context.Context) (bool, error) {
	job, err := w.queue.Claim(ctx)
	if err != nil {
		return false, err
	}
	if job == nil {
		return false, nil
	}
	// The job is ours now; finish it even if shutdown starts meanwhile.
	return true, w.process(context.WithoutCancel(ctx), job)
}

func (w *Worker) process(ctx context.Context, job *domain.Job) error {
	log := w.logger.With().
		Int64("job_id", job.ID).
		Str("job_type", job.Type).
		Str("scope_key", job.ScopeKey).
		Logger()
	log.Info().Msg("worker: picked job")

	start := time.Now()
	execErr := w.execute(ctx, job)
	elapsed := time.Since(start)

	if execErr == nil {
		if err := w.queue.Complete(ctx, job.ID); err != nil {
			log.Error().Err(err).Msg("worker: mark completed failed")
			return err
		}
		log.Info().Dur("elapsed", elapsed).Msg("worker: job completed")
		return nil
	}

	message := execErr.Error()
	log.Warn().Str("error", redact.String(message)).Dur("elapsed", elapsed).Msg("worker: job failed")
	if err := w.queue.Fail(ctx, job.ID, message); err != nil {
		log.Error().Err(err).Msg("worker: mark failed failed")
		return err
	}
	return nil
}

// execute runs the registered handler, turning a missing handler, a panic or
// an expired timeout into an error.
func (w *Worker) execute(ctx context.Context, job *domain.Job) error {
	handler, ok := w.registry.Lookup(job.Type)
	if !ok {
		return fmt.Errorf("%w for type '%s'", domain.ErrUnregisteredHandler, job.Type)
	}

	if w.opts.JobTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, w.opts.JobTimeout)
		defer cancel()
	}

	done := make(chan error, 1)
	go func() {
		defer func() {
			if r := recover(); r != nil {
				done <- fmt.Errorf("handler panicked: %v", r)
			}
		}()
		done <- handler.Execute(ctx, job.ScopeKey, job.Payload)
	}()

	select {
	case err := <-done:
		if w.opts.JobTimeout > 0 && ctx.Err() != nil && errors.Is(err, context.DeadlineExceeded) {
			return fmt.Errorf("%w after %s: %w", domain.ErrHandlerTimeout, w.opts.JobTimeout, err)
		}
		return err
	case <-ctx.Done():
		// A handler that finished right at the deadline still counts.
		select {
		case err := <-done:
			return err
		default:
		}
		return fmt.Errorf("%w after %s", domain.ErrHandlerTimeout, w.opts.JobTimeout)
	}
}

// wait suspends until the poll interval elapses, a wake-up arrives, or ctx ends.
func (w *Worker) wait(ctx context.Context) error {
	timer := time.NewTimer(w.opts.PollInterval)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	case _, ok := <-w.wake:
		if !ok {
			w.wake = nil
		}
		return nil
	}
}
