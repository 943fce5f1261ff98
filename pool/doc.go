// Package pool provides a generic, self-scaling worker pool for offloading
// CPU-bound or blocking callback work from latency-sensitive goroutines onto
// a bounded set of background workers.
//
// The primary types are Pool[T], which owns the worker set and the pending
// FIFO queue, and Task[T], the handle returned by every submission with
// independent cancellation, completion and failure state.
//
// # Basic Usage
//
//	p := pool.New[[]byte](pool.WithWorkerBounds(2, 8))
//	defer p.Close()
//
//	task := p.Push(func(ctx context.Context, frame []byte) error {
//	    return encode(ctx, frame)
//	}, frame)
//
//	task.Wait()
//	if task.HasFailed() {
//	    log.Printf("encode failed: %v", task.Err())
//	}
//
// # Scaling
//
// The pool spawns its minimum worker count at construction. When a Push finds
// no parked worker and the pool is below its maximum, one extra worker is
// spawned; growth is as fast as demand dictates. Workers that sit idle past
// the idle timeout retire themselves back down to the minimum, at most one
// per cooldown window so the pool does not flap under bursty load. With
// min == max the pool is a plain fixed-size pool.
//
// # Cancellation
//
// Cancellation is cooperative, never preemptive. Cancelling a task that has
// not started prevents its callback from running at all and resolves the task
// as completed. Cancelling a running task only cancels the context the
// callback received; a callback that ignores its context runs to the end and
// can occupy its worker indefinitely; there is no per-task timeout.
// Pool.Pop retracts a still-queued task proactively instead of relying on the
// flag.
//
// # Failure Handling
//
// A callback error or panic marks the task failed (panics are recovered with
// a stack trace and never crash a worker); the pool itself keeps running. A
// failed task still reports IsCompleted() == true, so callers must check
// HasFailed() after Wait to tell the outcomes apart, and Err() for the cause.
//
// # Shutdown
//
// Close stops and joins every worker, then resolves all still-queued tasks as
// cancelled+failed with ErrPoolClosed, so no handle outlives the pool in an
// indeterminate state and every blocked Wait wakes. A Push racing Close gets
// a handle that either runs or comes back resolved, never silently dropped.
//
// # Configuration Options
//
//   - WithWorkerBounds(min, max): worker-count floor and ceiling
//     (default: 2 and the hardware execution context count)
//   - WithIdleTimeout(d): idle time before a worker may retire
//   - WithRetireCooldown(d): minimum spacing between retirements
//   - WithCPUAffinity(): pin workers to CPU cores
//   - WithOnWorkerSpawn / WithOnWorkerRetire / WithOnTaskDone: diagnostics hooks
package pool
