// Package cpu provides hardware-concurrency discovery and optional pinning
// of pool workers to CPU cores.
package cpu

import "runtime"

// Count returns the number of hardware execution contexts usable by the
// process. The pool uses it as the default upper bound on its worker count.
func Count() int {
	if n := runtime.GOMAXPROCS(0); n > 0 {
		return n
	}
	return 1
}
