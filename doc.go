// Package looper provides a single-goroutine event loop executing
// user-supplied repeatable, delayable, cancellable actions ("timers") with
// cross-goroutine submission.
//
// # Architecture
//
// A [Looper] owns a double-buffered action queue: a loop-goroutine-private
// active set, and a mutex-guarded inbox receiving submissions from any
// goroutine. Once per iteration the loop merges the inbox into the active
// set under the lock, computing the nearest wake deadline, then executes
// every due action unlocked. The critical section is bounded to one merge
// per iteration rather than per submission, and actions run with no lock
// held, so they may freely reschedule, cancel, or quit without deadlocking
// against concurrent submitters.
//
// Near-imminent deadlines (within a configurable spin threshold, see
// [WithSpinThreshold]) are busy-waited rather than blocked on, trading CPU
// for precision where blocking-wait jitter would overshoot.
//
// # Thread Safety
//
//   - [Looper.Schedule], [Looper.ScheduleAt], and [Looper.Post] are safe
//     to call from any goroutine, and wake a blocked loop.
//   - [Looper.Quit], [Looper.Cancel], and [Looper.CancelAll] are
//     affinity-checked: they must be called from the loop goroutine, in
//     practice from within an action, and panic otherwise.
//   - Actions execute sequentially on the loop goroutine and block the
//     loop for their duration; they are expected to be short. There is no
//     preemption and no per-action timeout.
//
// # Execution Model
//
// Within one pass, due entries run in insertion order as merged; there is
// no global due-time sort. Cross-goroutine submissions become visible only
// at a merge boundary, never mid-pass. Repeating actions choose a catch-up
// policy at scheduling time: fixed-cadence accumulation (missed ticks are
// caught up), or drift-tolerant rebasing off the actual fire time (missed
// ticks are skipped).
//
// An action returning an error (or panicking) is fatal: the failure is
// logged and [Looper.Run] returns it wrapped in [*ActionError], losing any
// still-pending entries. There is no supervisory restart; the owner
// decides whether to run the loop again from scratch.
//
// # Usage
//
//	loop, err := looper.New(looper.WithName("main"))
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	loop.Schedule(func() (bool, error) {
//	    fmt.Println("tick")
//	    return true, nil // repeat
//	}, 0, 100*time.Millisecond, false)
//
//	loop.Schedule(func() (bool, error) {
//	    loop.Quit()
//	    return false, nil
//	}, time.Second, 0, false)
//
//	if err := loop.Run(); err != nil {
//	    log.Fatal(err)
//	}
package looper
