//go:build windows

package cpu

import (
	"runtime"

	"golang.org/x/sys/windows"
)

var (
	kernel32              = windows.NewLazySystemDLL("kernel32.dll")
	procSetThreadAffinity = kernel32.NewProc("SetThreadAffinityMask")
	procGetCurrentThread  = kernel32.NewProc("GetCurrentThread")
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

	handle, _, _ := procGetCurrentThread.Call()

	// Bit N of the affinity mask selects CPU N.
	mask := uintptr(1) << uint(core)
	_, _, _ = procSetThreadAffinity.Call(handle, mask)

	return runtime.UnlockOSThread
}
