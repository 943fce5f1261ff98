package pool

import (
	"sync/atomic"
	"time"

	"github.com/elastipool/elastipool/internal/cpu"
)

// workerInfo is the pool-side record of one worker goroutine. Exactly one
// goroutine runs each workerInfo's loop; the entry lives in the pool's worker
// arena from spawn until the worker has fully exited.
type workerInfo[T any] struct {
	id uint64

	// stop is set by Close (and by the worker itself on retirement); the
	// worker observes it at the top of each loop iteration.
	stop atomic.Bool

	// hand is the direct hand-off channel a parked worker blocks on.
	// Capacity 1, and by protocol at most one outstanding send per claim:
	// producers only send after popping the worker from the idle stack
	// under the queue lock, and the worker always receives the hand-off
	// before parking again. A nil task is the shutdown signal.
	hand chan *Task[T]

	// lastActive is the UnixNano timestamp of the last completed task (or
	// spawn time), the worker's idleness reference point.
	lastActive atomic.Int64
}

func (w *workerInfo[T]) touch() {
	w.lastActive.Store(time.Now().UnixNano())
}

func (w *workerInfo[T]) idleFor() time.Duration {
	return time.Since(time.Unix(0, w.lastActive.Load()))
}

// work is the worker loop. Each iteration drains the backlog, then parks on
// the hand-off channel with an idle timer; the timer is what lets an idle
// worker periodically reconsider whether it should retire without any
// external timer goroutine.
func (p *Pool[T]) work(w *workerInfo[T]) {
	defer p.wg.Done()

	if p.pinWorkers {
		release := cpu.PinWorker(int(w.id))
		defer release()
	}

	idle := time.NewTimer(p.idleTimeout)
	defer idle.Stop()

	for {
		p.queueMu.Lock()
		if w.stop.Load() || p.closed {
			p.queueMu.Unlock()
			return
		}
		if len(p.backlog) > 0 {
			t := p.backlog[0]
			p.backlog = p.backlog[1:]
			p.queueMu.Unlock()
			p.runTask(w, t)
			continue
		}
		p.idle = append(p.idle, w)
		p.queueMu.Unlock()

		if !idle.Stop() {
			select {
			case <-idle.C:
			default:
			}
		}
		idle.Reset(p.idleTimeout)

		select {
		case t := <-w.hand:
			if t == nil {
				return
			}
			p.runTask(w, t)

		case <-idle.C:
			if !p.unpark(w) {
				// A producer claimed this worker between the tick
				// and unpark; the hand-off is already buffered.
				t := <-w.hand
				if t == nil {
					return
				}
				p.runTask(w, t)
				continue
			}
			if w.idleFor() >= p.idleTimeout && p.retire(w) {
				return
			}
			// Not eligible to retire yet; park again.
		}
	}
}

func (p *Pool[T]) runTask(w *workerInfo[T], t *Task[T]) {
	t.run()
	w.touch()

	p.completedCount.Add(1)
	if t.HasFailed() {
		p.failedCount.Add(1)
	}
	if t.IsCancelled() {
		p.cancelledCount.Add(1)
	}
	if p.onTaskDone != nil {
		p.onTaskDone(t)
	}
}

// unpark removes the worker from the idle stack. A false return means a
// producer already popped the worker and owns it until the next hand-off.
func (p *Pool[T]) unpark(w *workerInfo[T]) bool {
	p.queueMu.Lock()
	defer p.queueMu.Unlock()

	for i, parked := range p.idle {
		if parked == w {
			p.idle = append(p.idle[:i], p.idle[i+1:]...)
			return true
		}
	}
	return false
}

// retire removes the worker from the arena if the pool can spare it. The
// count floor and the cooldown limiter are both re-checked under the workers
// lock so concurrent retirements can never shrink the pool below minimum.
func (p *Pool[T]) retire(w *workerInfo[T]) bool {
	p.workersMu.Lock()
	defer p.workersMu.Unlock()

	if p.workerCount.Load() <= int64(p.minWorkers) {
		return false
	}
	if !p.retireLimiter.Allow() {
		return false
	}

	w.stop.Store(true)
	delete(p.workers, w.id)
	p.workerCount.Add(-1)

	if p.onWorkerRetire != nil {
		p.onWorkerRetire(w.id)
	}
	return true
}
