package looper

import (
	"sync/atomic"
)

// Metrics tracks runtime counters for a Looper.
//
// Metrics are low-overhead and optional; attach via WithMetrics. All
// counters use atomics: Submits is bumped by any goroutine, the remainder
// only by the loop goroutine, and snapshot may be read concurrently.
type Metrics struct {
	merges     atomic.Uint64
	passes     atomic.Uint64
	actionsRun atomic.Uint64
	spins      atomic.Uint64
	timedWaits atomic.Uint64
	submits    atomic.Uint64
}

// MetricsSnapshot is a point-in-time copy of a Looper's counters.
type MetricsSnapshot struct {
	// Merges is the number of inbox/active-set merges performed.
	Merges uint64
	// Passes is the number of completed runReady passes.
	Passes uint64
	// ActionsRun is the total number of action invocations.
	ActionsRun uint64
	// Spins is the number of busy-wait yields near imminent deadlines.
	Spins uint64
	// TimedWaits is the number of blocking waits entered.
	TimedWaits uint64
	// Submits is the number of entries submitted.
	Submits uint64
}

// The add* methods are nil-safe so the loop's hot path can call them
// unconditionally; a disabled Metrics is a nil pointer.

func (m *Metrics) addMerge() {
	if m != nil {
		m.merges.Add(1)
	}
}

func (m *Metrics) addPass(actionsRun int) {
	if m != nil {
		m.passes.Add(1)
		m.actionsRun.Add(uint64(actionsRun))
	}
}

func (m *Metrics) addSpin() {
	if m != nil {
		m.spins.Add(1)
	}
}

func (m *Metrics) addTimedWait() {
	if m != nil {
		m.timedWaits.Add(1)
	}
}

func (m *Metrics) addSubmit() {
	if m != nil {
		m.submits.Add(1)
	}
}

func (m *Metrics) snapshot() MetricsSnapshot {
	if m == nil {
		return MetricsSnapshot{}
	}
	return MetricsSnapshot{
		Merges:     m.merges.Load(),
		Passes:     m.passes.Load(),
		ActionsRun: m.actionsRun.Load(),
		Spins:      m.spins.Load(),
		TimedWaits: m.timedWaits.Load(),
		Submits:    m.submits.Load(),
	}
}
