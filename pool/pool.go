package pool

import (
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/time/rate"
)

// ErrPoolClosed is the failure recorded on tasks that were still queued (or
// pushed concurrently) when the pool shut down.
var ErrPoolClosed = errors.New("pool is closed")

// Pool is a self-scaling worker pool. It owns a dynamically-sized set of
// worker goroutines and a shared FIFO backlog of pending tasks: it grows the
// worker set up to a maximum when submissions outpace idle workers, retires
// idle workers back down to a minimum after an idle timeout, and guarantees
// every queued or running task is resolved (run or cancelled) before Close
// returns.
//
// Push never blocks on worker availability and the backlog has no depth
// bound: under sustained overload tasks queue without limit, so callers are
// trusted to self-limit their submission rate.
//
// Multiple Pool instances are fully independent; the only process-wide state
// the pool touches is goroutine creation and the monotonic clock.
type Pool[T any] struct {
	minWorkers  int
	maxWorkers  int
	idleTimeout time.Duration
	pinWorkers  bool

	// retireLimiter spaces out retirements: one token per cooldown window.
	retireLimiter *rate.Limiter

	// queueMu guards the backlog, the idle stack and the closed flag. It is
	// never held while a task runs or while workersMu is held.
	queueMu sync.Mutex
	backlog []*Task[T]
	idle    []*workerInfo[T]
	closed  bool

	// workersMu guards the worker arena. Entries are keyed by a stable id
	// so a retiring worker can remove exactly itself.
	workersMu    sync.Mutex
	workers      map[uint64]*workerInfo[T]
	nextWorkerID uint64
	workerCount  atomic.Int64

	closing atomic.Bool
	wg      sync.WaitGroup

	submittedCount atomic.Uint64
	completedCount atomic.Uint64
	failedCount    atomic.Uint64
	cancelledCount atomic.Uint64

	onWorkerSpawn  func(id uint64)
	onWorkerRetire func(id uint64)
	onTaskDone     func(*Task[T])
}

// New creates a pool and immediately spawns the minimum number of workers, so
// the cold-start cost is paid at construction rather than at first Push.
// Defaults: minimum 2 workers, maximum the number of hardware execution
// contexts.
//
// Example:
//
//	p := pool.New[*Frame](pool.WithWorkerBounds(2, 8))
//	defer p.Close()
//
//	task := p.Push(blurFrame, frame)
//	task.Wait()
//	if task.HasFailed() {
//	    log.Printf("blur failed: %v", task.Err())
//	}
func New[T any](opts ...Option) *Pool[T] {
	cfg := createConfig(opts...)

	p := &Pool[T]{
		minWorkers:     cfg.minWorkers,
		maxWorkers:     cfg.maxWorkers,
		idleTimeout:    cfg.idleTimeout,
		pinWorkers:     cfg.pinWorkers,
		retireLimiter:  rate.NewLimiter(rate.Every(cfg.retireCooldown), 1),
		workers:        make(map[uint64]*workerInfo[T]),
		onWorkerSpawn:  cfg.onWorkerSpawn,
		onWorkerRetire: cfg.onWorkerRetire,
		onTaskDone:     taskDoneHook[T](cfg),
	}

	p.spawn(p.minWorkers)
	return p
}

// Push builds a task from the callback and payload, appends it to the pending
// queue and returns a shared handle to it. The caller may discard the handle
// (the task still runs) or keep it to Wait, Cancel or retract via Pop.
//
// Push never blocks on worker availability: it hands the task directly to an
// idle worker if one is parked, otherwise it queues the task and, when the
// pool is below its maximum, spawns one additional worker. Tasks are claimed
// in submission order relative to this pool instance.
//
// Pushing to a closed pool does not drop the task silently: the handle comes
// back already resolved as cancelled and failed with Err() == ErrPoolClosed.
func (p *Pool[T]) Push(callback Callback[T], payload T) *Task[T] {
	t := newTask(callback, payload)
	p.submittedCount.Add(1)

	p.queueMu.Lock()
	if p.closed {
		p.queueMu.Unlock()
		t.abort(ErrPoolClosed)
		p.completedCount.Add(1)
		p.failedCount.Add(1)
		p.cancelledCount.Add(1)
		return t
	}

	if n := len(p.idle); n > 0 {
		w := p.idle[n-1]
		p.idle = p.idle[:n-1]
		// Cap-1 channel, guaranteed empty for a parked worker: the send
		// cannot block while we hold the queue lock.
		w.hand <- t
		p.queueMu.Unlock()
		return t
	}

	p.backlog = append(p.backlog, t)
	grow := p.workerCount.Load() < int64(p.maxWorkers)
	p.queueMu.Unlock()

	if grow {
		p.spawn(1)
	}
	return t
}

// Pop retracts a task from the pending queue if no worker has claimed it yet,
// resolving it exactly like a task cancelled before start (completed, not
// failed) and returning true. If a worker already owns the task, Pop degrades
// to a cooperative Cancel and returns false.
func (p *Pool[T]) Pop(t *Task[T]) bool {
	if t == nil {
		return false
	}

	p.queueMu.Lock()
	for i, queued := range p.backlog {
		if queued == t {
			p.backlog = append(p.backlog[:i], p.backlog[i+1:]...)
			p.queueMu.Unlock()
			t.resolveCancelled()
			p.completedCount.Add(1)
			p.cancelledCount.Add(1)
			return true
		}
	}
	p.queueMu.Unlock()

	t.Cancel()
	return false
}

// Close shuts the pool down: it stops every worker, waits for the in-flight
// tasks to finish and for all worker goroutines to exit, then resolves every
// task still in the backlog as cancelled and failed (Err() == ErrPoolClosed).
// No task handle is left unresolved, so goroutines blocked in Wait always
// wake. Close is idempotent; calls after the first return immediately.
func (p *Pool[T]) Close() {
	if !p.closing.CompareAndSwap(false, true) {
		return
	}

	p.queueMu.Lock()
	p.closed = true
	parked := p.idle
	p.idle = nil
	p.queueMu.Unlock()

	p.workersMu.Lock()
	for _, w := range p.workers {
		w.stop.Store(true)
	}
	p.workersMu.Unlock()

	// Wake the parked workers; busy workers observe their stop flag when
	// they come back for more work.
	for _, w := range parked {
		w.hand <- nil
	}

	p.wg.Wait()

	p.queueMu.Lock()
	orphaned := p.backlog
	p.backlog = nil
	p.queueMu.Unlock()

	for _, t := range orphaned {
		t.abort(ErrPoolClosed)
		p.completedCount.Add(1)
		p.failedCount.Add(1)
		p.cancelledCount.Add(1)
	}

	p.workersMu.Lock()
	p.workers = map[uint64]*workerInfo[T]{}
	p.workerCount.Store(0)
	p.workersMu.Unlock()
}

// spawn starts up to n new workers, clamped at the configured maximum;
// attempting to spawn past the bound is a no-op, not an error. It returns how
// many workers actually started.
func (p *Pool[T]) spawn(n int) int {
	p.workersMu.Lock()
	defer p.workersMu.Unlock()

	if p.closing.Load() {
		return 0
	}

	started := 0
	for ; started < n; started++ {
		if p.workerCount.Load() >= int64(p.maxWorkers) {
			break
		}

		p.nextWorkerID++
		w := &workerInfo[T]{
			id:   p.nextWorkerID,
			hand: make(chan *Task[T], 1),
		}
		w.touch()

		p.workers[w.id] = w
		p.workerCount.Add(1)
		p.wg.Add(1)
		go p.work(w)

		if p.onWorkerSpawn != nil {
			p.onWorkerSpawn(w.id)
		}
	}
	return started
}

// WorkerCount returns the current number of live workers.
func (p *Pool[T]) WorkerCount() int {
	return int(p.workerCount.Load())
}

// MinWorkers returns the configured lower bound on the worker count.
func (p *Pool[T]) MinWorkers() int {
	return p.minWorkers
}

// MaxWorkers returns the configured upper bound on the worker count.
func (p *Pool[T]) MaxWorkers() int {
	return p.maxWorkers
}
