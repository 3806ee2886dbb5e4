package looper

import (
	"sync/atomic"
)

// mainLooper is the process-wide designated "main" Looper. Purely an
// ambient convenience lookup: collaborators that need the main loop should
// prefer receiving a *Looper at construction.
var mainLooper atomic.Pointer[Looper]

// SetMain designates l as the process-wide main Looper. The caller owns
// the designation; pair with ResetMain at teardown.
func SetMain(l *Looper) {
	mainLooper.Store(l)
}

// Main returns the designated main Looper, or nil if none is set.
func Main() *Looper {
	return mainLooper.Load()
}

// ResetMain clears the main Looper designation.
func ResetMain() {
	mainLooper.Store(nil)
}
