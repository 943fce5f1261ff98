package pool

// Stats is a point-in-time snapshot of pool activity. The counters are
// monotonic over the pool's lifetime; Workers, Idle and Backlog are
// instantaneous and may be stale by the time the caller reads them.
type Stats struct {
	// Workers is the current number of live workers.
	Workers int
	// Idle is how many of those workers are parked waiting for work.
	Idle int
	// Backlog is the number of tasks queued but not yet claimed.
	Backlog int

	// Submitted counts every Push, including pushes against a closed pool.
	Submitted uint64
	// Completed counts tasks that reached a terminal state.
	Completed uint64
	// Failed counts completed tasks whose callback errored or panicked,
	// plus tasks aborted by Close.
	Failed uint64
	// Cancelled counts completed tasks that had been cancelled, retracted
	// via Pop, or aborted by Close.
	Cancelled uint64
}

// Stats returns a snapshot of the pool's current and cumulative activity.
func (p *Pool[T]) Stats() Stats {
	p.queueMu.Lock()
	idle := len(p.idle)
	backlog := len(p.backlog)
	p.queueMu.Unlock()

	return Stats{
		Workers:   int(p.workerCount.Load()),
		Idle:      idle,
		Backlog:   backlog,
		Submitted: p.submittedCount.Load(),
		Completed: p.completedCount.Load(),
		Failed:    p.failedCount.Load(),
		Cancelled: p.cancelledCount.Load(),
	}
}
