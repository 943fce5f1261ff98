package pool

import (
	"context"

	"golang.org/x/sync/errgroup"
)

// WaitAll blocks until every task has completed or ctx is cancelled. It
// returns the first task failure (or ctx.Err() if the context won), after all
// waits have returned. WaitAll only observes the tasks; it never cancels
// them.
func WaitAll[T any](ctx context.Context, tasks ...*Task[T]) error {
	var g errgroup.Group
	for _, t := range tasks {
		g.Go(func() error {
			if err := t.AwaitCompletion(ctx); err != nil {
				return err
			}
			if t.HasFailed() {
				return t.Err()
			}
			return nil
		})
	}
	return g.Wait()
}

// Process pushes one task per payload and blocks until all of them complete
// or ctx is cancelled, returning the first failure. It is a convenience for
// batch-shaped callers; the tasks go through the ordinary Push path and share
// the pool with any concurrent submitters.
func (p *Pool[T]) Process(ctx context.Context, payloads []T, callback Callback[T]) error {
	if len(payloads) == 0 {
		return nil
	}

	tasks := make([]*Task[T], 0, len(payloads))
	for _, payload := range payloads {
		tasks = append(tasks, p.Push(callback, payload))
	}
	return WaitAll(ctx, tasks...)
}
