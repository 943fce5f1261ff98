//go:build linux

package cpu

import (
	"runtime"

	"golang.org/x/sys/unix"
)

// PinWorker locks the calling goroutine to an OS thread and pins that thread
// to the CPU core derived from id (wrapping around the core count). Pinning
// failures are ignored; the worker simply stays unpinned. The returned
// release function must be deferred by the worker.
func PinWorker(id int) func() {
	runtime.LockOSThread()

	core := id % runtime.NumCPU()
	if core < 0 {
		core = -core
	}

	var mask unix.CPUSet
	mask.Zero()
	mask.Set(core)
	_ = unix.SchedSetaffinity(0, &mask) // 0 = current thread

	return runtime.UnlockOSThread
}
