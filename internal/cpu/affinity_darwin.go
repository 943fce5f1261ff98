//go:build darwin

package cpu

import "runtime"

// PinWorker locks the calling goroutine to an OS thread. CPU pinning is not
// available on macOS, so the thread stays unpinned. The returned release
// function must be deferred by the worker.
func PinWorker(id int) func() {
	runtime.LockOSThread()
	return runtime.UnlockOSThread
}
