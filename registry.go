package looper

import (
	"time"
)

// Ticket identifies a scheduled action for later cancellation.
//
// Values are opaque, strictly increasing per Looper instance, and never
// reused while the owning Looper is alive. The first issued value is always
// greater than ticketSeed; values at or below it carry no meaning.
type Ticket uint64

// ticketSeed is the initial counter value. The first issued ticket is
// ticketSeed+1. The low range is reserved.
const ticketSeed Ticket = 100

// Action is one schedulable unit of work.
//
// An Action runs synchronously on the loop goroutine and blocks the entire
// loop for its duration; actions are expected to be short. The returned
// repeat flag requests rescheduling per the entry's interval and catch-up
// policy. A non-nil error (or a panic, which is captured as [PanicError])
// is fatal to the loop; see [Looper.Run].
type Action func() (repeat bool, err error)

// managedAction is one scheduled action plus its timing metadata.
//
// A live entry resides in exactly one of {active set, inbox} at any
// observable instant. Reclamation is the garbage collector's: dropping the
// last reference during merge, inbox cancellation, or the terminal drain is
// the "destroy".
type managedAction struct {
	action      Action
	triggerTime time.Time
	interval    time.Duration
	ticket      Ticket
	catchUp     bool
	cancelled   bool // tombstone, monotonic false->true
}

// loopContext owns the two action collections of a Looper: the
// loop-goroutine-private active set, and the cross-goroutine inbox.
//
// loopContext is not internally synchronized. Methods documented as
// "locked" require the owning Looper's mutex; the remainder touch only the
// active set and must only ever be called from the loop goroutine. The
// ticket counter is advanced exclusively under the lock.
type loopContext struct {
	active        []*managedAction // loop goroutine only, no lock
	inbox         []*managedAction // guarded by the Looper's mutex
	ticketCounter Ticket           // guarded by the Looper's mutex
}

func newLoopContext() *loopContext {
	return &loopContext{ticketCounter: ticketSeed}
}

// submit inserts a new entry into the inbox and returns its ticket.
// Locked. Always succeeds, never blocks.
func (c *loopContext) submit(action Action, triggerTime time.Time, interval time.Duration, catchUp bool) Ticket {
	c.ticketCounter++
	c.inbox = append(c.inbox, &managedAction{
		action:      action,
		triggerTime: triggerTime,
		interval:    interval,
		ticket:      c.ticketCounter,
		catchUp:     catchUp,
	})
	return c.ticketCounter
}

// mergeAndComputeWake reconciles the inbox and the active set. Locked.
//
// Survivors of the previous active set are appended to the inbox, cancelled
// entries are dropped, and the collections are swapped, so the new active
// set is "previous survivors + submissions since the last merge" in
// insertion order, and the inbox is empty again. This is the single point
// where cross-goroutine submissions become visible to the running loop.
//
// Returns the minimum trigger time across the new active set, with ok=false
// when the set is empty (the "wait indefinitely" sentinel).
func (c *loopContext) mergeAndComputeWake() (wake time.Time, ok bool) {
	merged := c.inbox
	for _, a := range c.active {
		if !a.cancelled {
			merged = append(merged, a)
		}
	}
	clear(c.active) // release reclaimed entries to the GC
	c.inbox = c.active[:0]
	c.active = merged

	for _, a := range c.active {
		if !ok || a.triggerTime.Before(wake) {
			wake, ok = a.triggerTime, true
		}
	}
	return
}

// hasInboxWork reports whether the inbox is non-empty. Locked. Used to
// detect new submissions during a busy-wait spin without a full merge.
func (c *loopContext) hasInboxWork() bool {
	return len(c.inbox) > 0
}

// runReady invokes every due entry in the active set, in insertion order.
// No lock; the active set is loop-goroutine-private during this call.
//
// Repeat bookkeeping: with catch-up, the trigger advances by exactly one
// interval per invocation, and an entry left behind by a slow loop fires
// repeatedly within this pass until it has caught up; without, the trigger
// rebases to now+interval and missed ticks are skipped. An action declining
// repetition is tombstoned for reclamation at the next merge.
//
// If quit becomes set after an invocation (an action may request shutdown
// reentrantly), the remainder of the set is skipped, not executed. Skipped
// due entries stay eligible and run on a later pass.
//
// A failed invocation aborts the pass; the error is returned wrapped in
// *ActionError and is fatal to the caller.
func (c *loopContext) runReady(now time.Time, quit *bool) (ran int, err error) {
	for _, a := range c.active {
		if a.cancelled {
			continue
		}
		for !a.cancelled && !a.triggerTime.After(now) {
			repeat, err := invoke(a.action)
			ran++
			if err != nil {
				return ran, &ActionError{Ticket: a.ticket, Err: err}
			}
			if repeat {
				if a.catchUp {
					a.triggerTime = a.triggerTime.Add(a.interval)
				} else {
					a.triggerTime = now.Add(a.interval)
				}
			} else {
				a.cancelled = true
			}
			if *quit {
				return ran, nil
			}
			if !a.catchUp || a.interval <= 0 {
				// one invocation per pass; catch-up with a degenerate
				// interval would otherwise never terminate
				break
			}
		}
	}
	return ran, nil
}

// invoke runs an action, converting a panic into a PanicError.
func invoke(action Action) (repeat bool, err error) {
	defer func() {
		if r := recover(); r != nil {
			repeat, err = false, PanicError{Value: r}
		}
	}()
	return action()
}

// tryCancelActive tombstones the identified active entry. No lock.
// Returns false if the entry is absent or already cancelled.
func (c *loopContext) tryCancelActive(ticket Ticket) bool {
	for _, a := range c.active {
		if a.ticket == ticket {
			if a.cancelled {
				return false
			}
			a.cancelled = true
			return true
		}
	}
	return false
}

// tryCancelInbox removes and releases the identified inbox entry. Locked.
// An inbox entry is never observed cancelled; cancellation here is
// immediate removal rather than tombstoning.
func (c *loopContext) tryCancelInbox(ticket Ticket) bool {
	for i, a := range c.inbox {
		if a.ticket == ticket {
			copy(c.inbox[i:], c.inbox[i+1:])
			c.inbox[len(c.inbox)-1] = nil
			c.inbox = c.inbox[:len(c.inbox)-1]
			return true
		}
	}
	return false
}

// cancelAllActive tombstones every active entry. No lock. Reclamation is
// deferred to the next merge.
func (c *loopContext) cancelAllActive() {
	for _, a := range c.active {
		a.cancelled = true
	}
}

// cancelAllInbox removes and releases every inbox entry. Locked.
func (c *loopContext) cancelAllInbox() {
	clear(c.inbox)
	c.inbox = c.inbox[:0]
}
