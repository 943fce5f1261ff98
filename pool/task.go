package pool

import (
	"context"
	"fmt"
	"runtime"
	"sync/atomic"
)

// Callback is the unit of work a Task carries. It receives the payload the
// task was submitted with and a context that is cancelled when Cancel is
// called on the task (or when the owning pool shuts down). Cancellation is
// cooperative: a callback that wants to be interruptible must poll ctx.Done()
// itself; the pool never stops a running callback.
//
// A non-nil error return (or a panic, which is recovered) marks the task as
// failed.
type Callback[T any] func(ctx context.Context, payload T) error

// Task is a single unit of submitted work with independent cancellation,
// completion and failure state. Handles are shared: the submitter, the pool
// queue and the executing worker may all hold the same *Task, and every state
// operation is safe to call from any goroutine.
//
// The three state flags are lock-free atomics so that status polling never
// contends with blocked waiters; waiters block on a separate wake channel
// that is closed exactly once when the task reaches a terminal state.
type Task[T any] struct {
	callback Callback[T]
	payload  T

	cancelled atomic.Bool
	completed atomic.Bool
	failed    atomic.Bool

	// err is written before the completed flag flips and the done channel
	// closes; Err readers re-check completed first.
	err error

	done   chan struct{}
	ctx    context.Context
	cancel context.CancelFunc
}

func newTask[T any](callback Callback[T], payload T) *Task[T] {
	ctx, cancel := context.WithCancel(context.Background())
	return &Task[T]{
		callback: callback,
		payload:  payload,
		done:     make(chan struct{}),
		ctx:      ctx,
		cancel:   cancel,
	}
}

// run executes the task. It is invoked exactly once, by the worker that
// claimed the task, or never (a retracted or drained task is resolved through
// resolveCancelled/abort instead).
func (t *Task[T]) run() {
	if t.cancelled.Load() {
		// Cancelled before start: the callback never runs and the task
		// resolves as a no-op completion, not a failure.
		t.finish(nil, false)
		return
	}

	err := t.invoke()
	t.finish(err, err != nil)
}

// invoke calls the callback with panic recovery so that a misbehaving
// callback can never take down its worker.
func (t *Task[T]) invoke() (err error) {
	defer func() {
		if r := recover(); r != nil {
			buf := make([]byte, 4096)
			n := runtime.Stack(buf, false)
			err = fmt.Errorf("task panic: %v\nstack trace:\n%s", r, buf[:n])
		}
	}()

	return t.callback(t.ctx, t.payload)
}

// finish moves the task to its terminal state and wakes every waiter.
// Exactly one of run, resolveCancelled or abort calls it, exactly once.
func (t *Task[T]) finish(err error, failed bool) {
	t.err = err
	if failed {
		t.failed.Store(true)
	}
	t.completed.Store(true)
	t.cancel()
	close(t.done)
}

// resolveCancelled terminates a task that was retracted from the queue before
// any worker claimed it. Terminal state matches cancelled-before-start:
// completed, not failed.
func (t *Task[T]) resolveCancelled() {
	t.cancelled.Store(true)
	t.cancel()
	t.finish(nil, false)
}

// abort terminates a task that can no longer run because the pool is shutting
// down. The task resolves as cancelled and failed so that no handle outlives
// the pool in an indeterminate state.
func (t *Task[T]) abort(err error) {
	t.cancelled.Store(true)
	t.cancel()
	t.finish(err, true)
}

// Cancel requests cancellation. It is idempotent, never blocks, and may be
// called from any goroutine at any time; after completion it has no effect.
// If the callback has not started yet it will be skipped entirely; if it is
// already running, Cancel only cancels the context the callback received.
func (t *Task[T]) Cancel() {
	t.cancelled.Store(true)
	t.cancel()
}

// IsCancelled reports whether Cancel has been called on the task.
func (t *Task[T]) IsCancelled() bool {
	return t.cancelled.Load()
}

// IsCompleted reports whether the task has reached a terminal state. A failed
// task is still completed; check HasFailed to tell the two apart.
func (t *Task[T]) IsCompleted() bool {
	return t.completed.Load()
}

// HasFailed reports whether the callback returned an error, panicked, or the
// task was aborted by pool shutdown.
func (t *Task[T]) HasFailed() bool {
	return t.failed.Load()
}

// Err returns the error that failed the task, or nil if the task succeeded or
// has not completed yet. For panics the error carries the recovered value and
// a stack trace.
func (t *Task[T]) Err() error {
	if !t.completed.Load() {
		return nil
	}
	return t.err
}

// Payload returns the payload the task was submitted with. The payload is
// shared with the worker for the task's lifetime; treat it as immutable while
// the task is in flight.
func (t *Task[T]) Payload() T {
	return t.payload
}

// Wait blocks until the task completes. It returns immediately if the task is
// already done. Waiters park on the task's wake channel; there is no
// spinning.
func (t *Task[T]) Wait() {
	<-t.done
}

// AwaitCompletion blocks until the task completes or ctx is cancelled,
// whichever comes first. It returns ctx.Err() if the context won; callers
// should then treat the task as still in flight.
func (t *Task[T]) AwaitCompletion(ctx context.Context) error {
	select {
	case <-t.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Done exposes the task's completion channel for use in select statements.
// The channel is closed once the task reaches a terminal state.
func (t *Task[T]) Done() <-chan struct{} {
	return t.done
}
