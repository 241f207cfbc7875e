package worker

import (
	"context"
	"errors"
	"fmt"

	"golang.org/x/sync/errgroup"

	"orchestrator/internal/infra"
	"orchestrator/internal/jobs"
)

// WakeSource hands each loop its own wake-up channel.
type WakeSource func(ctx context.Context) <-chan struct{}

// RunPool runs n loops against the same queue until ctx ends or one loop gives
// up on storage, which stops the others. Cancellation is not reported as an
// error.
func RunPool(ctx context.Context, n int, queue Queue, registry *jobs.Registry, logger infra.Logger, opts Options, wake WakeSource) error {
	if n < 1 {
		n = 1
	}
	g, gctx := errgroup.WithContext(ctx)
	for i := 0; i < n; i++ {
		loopOpts := opts
		if n > 1 {
			loopOpts.ID = fmt.Sprintf("%s-%d", opts.ID, i)
		}
		if wake != nil {
			loopOpts.Wake = wake(gctx)
		}
		w := New(queue, registry, logger, loopOpts)
		g.Go(func() error {
			err := w.Run(gctx)
			if errors.Is(err, context.Canceled) && ctx.Err() != nil {
				return nil
			}
			return err
		})
	}
	return g.Wait()
}
