package looper

import (
	"sync/atomic"
)

// State represents the current state of a Looper.
//
// State Machine:
//
//	StateIdle (0) → StateRunning (1)     [Run]
//	StateRunning (1) → StateStopped (2)  [Run returning]
//	StateStopped (2) → StateRunning (1)  [Run, restart from scratch]
//
// The transient "quitting" phase (Quit requested, current pass finishing)
// is subsumed into StateRunning until Run returns; it is tracked by the
// loop-goroutine-confined quit flag, not by the state machine.
type State uint32

const (
	// StateIdle indicates the loop has been created but never started.
	StateIdle State = iota
	// StateRunning indicates the loop goroutine is inside Run.
	StateRunning
	// StateStopped indicates Run has returned. A stopped loop may be run
	// again, from scratch; pending entries do not survive a stop.
	StateStopped
)

// String returns a human-readable representation of the state.
func (s State) String() string {
	switch s {
	case StateIdle:
		return "Idle"
	case StateRunning:
		return "Running"
	case StateStopped:
		return "Stopped"
	default:
		return "Unknown"
	}
}

// loopState is a lock-free state holder. Transitions into and out of
// StateRunning use CAS so concurrent Run calls race safely.
type loopState struct {
	v atomic.Uint32
}

// load returns the current state atomically.
func (s *loopState) load() State {
	return State(s.v.Load())
}

// store atomically stores a new state, without transition validation.
func (s *loopState) store(state State) {
	s.v.Store(uint32(state))
}

// tryTransition attempts to atomically transition from one state to
// another, reporting success.
func (s *loopState) tryTransition(from, to State) bool {
	return s.v.CompareAndSwap(uint32(from), uint32(to))
}
