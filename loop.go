package looper

import (
	"errors"
	"runtime"
	"sync"
	"sync/atomic"
	"time"

	"github.com/joeycumines/logiface"
)

// Looper is a single-goroutine event loop executing repeatable, delayable,
// cancellable actions with cross-goroutine submission.
//
// Exactly one goroutine runs the loop (the one calling [Looper.Run]); any
// goroutine may submit via [Looper.Schedule], while [Looper.Quit],
// [Looper.Cancel], and [Looper.CancelAll] are affinity-checked and must be
// called from the loop goroutine, in practice from within an action.
//
// A single mutex guards the inbox, the ticket counter, and the wake
// signal; the active set is touched without the lock, only ever by the
// loop goroutine. The critical section is bounded to one merge per loop
// iteration rather than per submission, and actions execute unlocked, so
// they may freely reschedule or cancel without risking deadlock against
// concurrent submitters.
type Looper struct {
	// Prevent copying
	_ [0]func()

	ctx *loopContext

	// mu guards ctx.inbox, ctx.ticketCounter, and pairs with wake.
	mu sync.Mutex

	// wake is the condition-variable analogue: a timed wait selects on it,
	// and wake-on-submit sends to it (buffered, send never blocks).
	wake chan struct{}

	state loopState

	// ownerID is the goroutine running the loop, for affinity checks.
	// Zero while not running.
	ownerID atomic.Uint64

	// quit is loop-goroutine-confined: set by Quit (affinity-checked),
	// observed between invocations and at the bottom of each iteration.
	quit bool

	name          string
	logger        *logiface.Logger[logiface.Event]
	now           func() time.Time
	spinThreshold time.Duration
	metrics       *Metrics
}

// New creates a Looper. The zero configuration uses [time.Now] as the
// clock, [DefaultSpinThreshold], no logger, and no metrics.
func New(opts ...LooperOption) (*Looper, error) {
	cfg, err := resolveLooperOptions(opts)
	if err != nil {
		return nil, err
	}
	l := &Looper{
		ctx:           newLoopContext(),
		wake:          make(chan struct{}, 1),
		name:          cfg.name,
		logger:        cfg.logger,
		now:           cfg.now,
		spinThreshold: cfg.spinThreshold,
	}
	if cfg.metricsEnabled {
		l.metrics = &Metrics{}
	}
	return l, nil
}

// Run runs the loop on the calling goroutine, blocking until an action
// requests shutdown via [Looper.Quit] or an action invocation fails.
//
// Each iteration merges cross-goroutine submissions into the active set
// (under the lock), sleeps until the nearest trigger time - busy-waiting
// when the deadline is within the spin threshold, blocking in a timed wait
// otherwise - and then executes every due action, unlocked, in insertion
// order. A spurious or early wake re-merges and re-checks before executing
// anything.
//
// On a quit request the loop performs one final locked merge, purely to
// release remaining cancelled entries, and returns nil. If an action
// returns an error or panics, the failure is logged and Run returns it
// wrapped in *ActionError without draining; the loop makes no further
// progress and still-pending entries are lost. A stopped loop may be run
// again, from scratch.
//
// Calling Run while the loop is already running returns ErrAlreadyRunning.
func (l *Looper) Run() error {
	if !l.state.tryTransition(StateIdle, StateRunning) &&
		!l.state.tryTransition(StateStopped, StateRunning) {
		return ErrAlreadyRunning
	}

	l.ownerID.Store(getGoroutineID())
	defer l.ownerID.Store(0)

	l.quit = false

	l.logger.Debug().Str("name", l.name).Log("loop running")

	for {
		l.awaitReady()

		ran, err := l.ctx.runReady(l.now(), &l.quit)
		l.metrics.addPass(ran)
		if err != nil {
			var actionErr *ActionError
			if errors.As(err, &actionErr) {
				l.logger.Err().
					Err(actionErr.Err).
					Str("name", l.name).
					Uint64("ticket", uint64(actionErr.Ticket)).
					Log("uncaught error while running loop action")
			}
			l.state.store(StateStopped)
			return err
		}

		runtime.Gosched()

		if l.quit {
			break
		}
	}

	// Terminal drain: release remaining cancelled entries. No execution.
	l.mu.Lock()
	l.ctx.mergeAndComputeWake()
	l.mu.Unlock()

	l.state.store(StateStopped)
	l.logger.Debug().Str("name", l.name).Log("loop stopped")
	return nil
}

// awaitReady merges and sleeps until the nearest trigger time is due.
func (l *Looper) awaitReady() {
	l.mu.Lock()
	defer l.mu.Unlock()
	for {
		wakeAt, ok := l.ctx.mergeAndComputeWake()
		l.metrics.addMerge()
		if !ok {
			// Empty set: block until a submission wakes the loop.
			l.waitLocked(-1)
			continue
		}
		now := l.now()
		if !wakeAt.After(now) {
			return
		}
		if delay := wakeAt.Sub(now); delay < l.spinThreshold {
			// Imminent deadline: spin instead of blocking, re-checking
			// for new inbox work each yield.
			for l.now().Before(wakeAt) && !l.ctx.hasInboxWork() {
				l.mu.Unlock()
				runtime.Gosched()
				l.mu.Lock()
				l.metrics.addSpin()
			}
		} else {
			l.waitLocked(delay)
		}
	}
}

// waitLocked releases the mutex while blocked, waiting for a wake signal
// or, when d is non-negative, at most d, then reacquires the mutex. The
// caller must re-merge before acting on the wake.
func (l *Looper) waitLocked(d time.Duration) {
	l.mu.Unlock()
	if d < 0 {
		<-l.wake
	} else {
		t := time.NewTimer(d)
		select {
		case <-l.wake:
		case <-t.C:
		}
		t.Stop()
	}
	l.metrics.addTimedWait()
	l.mu.Lock()
}

// signalWake nudges a blocked loop. The buffered send is a no-op when a
// wake is already pending.
func (l *Looper) signalWake() {
	select {
	case l.wake <- struct{}{}:
	default:
	}
}

// Schedule submits an action to run once the delay elapses, from any
// goroutine. It becomes visible to the loop at the next merge; a blocked
// loop is woken so an earlier deadline is not left waiting behind a stale
// wake time.
//
// The interval and catchUp policy only apply if the action ever returns
// repeat: with catchUp the repeats accumulate on a fixed cadence, catching
// up missed ticks; without, each repeat rebases off the actual fire time,
// skipping missed ticks.
//
// The returned Ticket may be used with [Looper.Cancel].
func (l *Looper) Schedule(action Action, delay, interval time.Duration, catchUp bool) Ticket {
	return l.ScheduleAt(action, l.now().Add(delay), interval, catchUp)
}

// ScheduleAt is [Looper.Schedule] taking an absolute trigger time on the
// loop's clock.
func (l *Looper) ScheduleAt(action Action, triggerTime time.Time, interval time.Duration, catchUp bool) Ticket {
	l.mu.Lock()
	ticket := l.ctx.submit(action, triggerTime, interval, catchUp)
	l.mu.Unlock()
	l.metrics.addSubmit()
	l.signalWake()
	return ticket
}

// Post schedules fn to run once, on the next pass.
func (l *Looper) Post(fn func()) Ticket {
	return l.Schedule(func() (bool, error) {
		fn()
		return false, nil
	}, 0, 0, false)
}

// Quit cancels all pending entries and requests loop shutdown. Must be
// called from the loop goroutine (it panics otherwise); in practice it is
// called from within an action. No further entry in the current pass
// executes, and Run returns after the pass finishes.
func (l *Looper) Quit() {
	l.checkAffinity("Quit")
	l.cancelAll()
	l.quit = true
}

// Cancel cancels the identified entry, reporting whether a cancellation
// occurred: false when the ticket is unknown, already reclaimed, or
// already cancelled. Must be called from the loop goroutine (it panics
// otherwise).
//
// An active entry is tombstoned without taking the lock and reclaimed at
// the next merge; an entry still in the inbox is removed immediately,
// under the lock.
func (l *Looper) Cancel(ticket Ticket) bool {
	l.checkAffinity("Cancel")
	if l.ctx.tryCancelActive(ticket) {
		return true
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.ctx.tryCancelInbox(ticket)
}

// CancelAll cancels every active and inbox entry. Must be called from the
// loop goroutine (it panics otherwise).
func (l *Looper) CancelAll() {
	l.checkAffinity("CancelAll")
	l.cancelAll()
}

func (l *Looper) cancelAll() {
	l.ctx.cancelAllActive()
	l.mu.Lock()
	l.ctx.cancelAllInbox()
	l.mu.Unlock()
}

// State returns the current loop state.
func (l *Looper) State() State {
	return l.state.load()
}

// Name returns the loop's configured name.
func (l *Looper) Name() string {
	return l.name
}

// Metrics returns a snapshot of the loop's runtime counters. The zero
// snapshot is returned when metrics are disabled.
func (l *Looper) Metrics() MetricsSnapshot {
	return l.metrics.snapshot()
}

// checkAffinity panics unless called from the goroutine that owns the
// running loop. Wrong-goroutine use is a programming error, not a
// recoverable condition.
func (l *Looper) checkAffinity(op string) {
	if id := l.ownerID.Load(); id == 0 || id != getGoroutineID() {
		panic("looper: " + op + " called from outside the loop")
	}
}

// getGoroutineID returns the current goroutine's ID.
func getGoroutineID() uint64 {
	var buf [64]byte
	n := runtime.Stack(buf[:], false)
	var id uint64
	for i := len("goroutine "); i < n; i++ {
		if buf[i] >= '0' && buf[i] <= '9' {
			id = id*10 + uint64(buf[i]-'0')
		} else {
			break
		}
	}
	return id
}
