package pool

import (
	"fmt"
	"time"

	"github.com/elastipool/elastipool/internal/cpu"
)

const (
	defaultMinWorkers = 2

	// defaultIdleTimeout is how long a worker must sit idle before it
	// considers retiring.
	defaultIdleTimeout = time.Second

	// defaultRetireCooldown is the minimum spacing between two worker
	// retirements, damping spawn/retire oscillation under bursty load.
	defaultRetireCooldown = 500 * time.Millisecond
)

// Option is a functional option for configuring a Pool.
type Option func(*poolConfig)

type poolConfig struct {
	minWorkers     int
	maxWorkers     int
	idleTimeout    time.Duration
	retireCooldown time.Duration
	pinWorkers     bool

	onWorkerSpawn  func(id uint64)
	onWorkerRetire func(id uint64)

	// onTaskDone is stored untyped because options are shared across pool
	// instantiations; New validates it against the pool's task type.
	onTaskDone any
}

// WithWorkerBounds sets the minimum and maximum number of workers.
// The pool never shrinks below min and never grows past max; min == max
// degenerates to a static, fixed-size pool.
// If not specified, min defaults to 2 and max to the number of available
// hardware execution contexts. Non-positive values are ignored.
func WithWorkerBounds(minWorkers, maxWorkers int) Option {
	return func(cfg *poolConfig) {
		if minWorkers > 0 {
			cfg.minWorkers = minWorkers
		}
		if maxWorkers > 0 {
			cfg.maxWorkers = maxWorkers
		}
	}
}

// WithIdleTimeout sets how long a worker may sit idle before it becomes a
// candidate for retirement. Shorter timeouts shrink the pool back toward the
// minimum faster at the cost of more churn under intermittent load.
func WithIdleTimeout(d time.Duration) Option {
	return func(cfg *poolConfig) {
		if d > 0 {
			cfg.idleTimeout = d
		}
	}
}

// WithRetireCooldown sets the minimum interval between two worker
// retirements. At most one worker retires per cooldown window regardless of
// how many are idle, which prevents the pool from flapping between growth and
// shrink under bursty load. Growth is never rate-limited.
func WithRetireCooldown(d time.Duration) Option {
	return func(cfg *poolConfig) {
		if d > 0 {
			cfg.retireCooldown = d
		}
	}
}

// WithCPUAffinity pins each worker to a CPU core derived from its worker id.
// Useful when the pool backs a latency-sensitive pipeline and the callbacks
// are CPU-bound; a no-op on platforms without an affinity API.
func WithCPUAffinity() Option {
	return func(cfg *poolConfig) {
		cfg.pinWorkers = true
	}
}

// WithOnWorkerSpawn installs a hook invoked with the worker id every time the
// pool spawns a worker. The hook runs on the spawning goroutine and must not
// block.
func WithOnWorkerSpawn(fn func(id uint64)) Option {
	return func(cfg *poolConfig) {
		cfg.onWorkerSpawn = fn
	}
}

// WithOnWorkerRetire installs a hook invoked with the worker id every time an
// idle worker retires. The hook runs on the retiring worker and must not
// block.
func WithOnWorkerRetire(fn func(id uint64)) Option {
	return func(cfg *poolConfig) {
		cfg.onWorkerRetire = fn
	}
}

// WithOnTaskDone installs a hook invoked after each task reaches a terminal
// state on a worker. fn must have type func(*Task[T]) for the pool's payload
// type T; New panics on a mismatch.
func WithOnTaskDone(fn any) Option {
	return func(cfg *poolConfig) {
		cfg.onTaskDone = fn
	}
}

func createConfig(opts ...Option) *poolConfig {
	cfg := &poolConfig{
		minWorkers:     defaultMinWorkers,
		maxWorkers:     cpu.Count(),
		idleTimeout:    defaultIdleTimeout,
		retireCooldown: defaultRetireCooldown,
	}

	for _, opt := range opts {
		opt(cfg)
	}

	if cfg.maxWorkers < cfg.minWorkers {
		cfg.maxWorkers = cfg.minWorkers
	}

	return cfg
}

// taskDoneHook validates the untyped WithOnTaskDone hook against the pool's
// concrete task type.
func taskDoneHook[T any](cfg *poolConfig) func(*Task[T]) {
	if cfg.onTaskDone == nil {
		return nil
	}

	hook, ok := cfg.onTaskDone.(func(*Task[T]))
	if !ok {
		var zero T
		panic(fmt.Sprintf("WithOnTaskDone hook must be func(*pool.Task[%T]), got %T",
			zero, cfg.onTaskDone))
	}
	return hook
}
