package timeline

import "time"

// Scope owns a set of timers and guarded callbacks that are cancelled
// together. A cancelled scope stays cancelled; create a new one to resume.
type Scope struct {
	sched     *Scheduler
	timers    map[*Timer]struct{}
	cancelled bool
}

// NewScope creates a scope bound to the scheduler.
func (s *Scheduler) NewScope() *Scope {
	return &Scope{sched: s, timers: make(map[*Timer]struct{})}
}

// Scheduler returns the scheduler the scope arms timers on.
func (sc *Scope) Scheduler() *Scheduler {
	return sc.sched
}

// After arms a one-shot timer owned by the scope. On a cancelled scope it
// returns an inactive timer and fn never runs.
func (sc *Scope) After(d time.Duration, fn func()) *Timer {
	if sc.cancelled {
		return &Timer{done: true, index: -1}
	}
	t := sc.sched.arm(d, 0, func() bool { fn(); return false }, sc)
	sc.timers[t] = struct{}{}
	return t
}

// Every arms a repeating timer owned by the scope.
func (sc *Scope) Every(interval time.Duration, fn func() bool) *Timer {
	if interval <= 0 {
		panic("timeline: non-positive interval for Every")
	}
	if sc.cancelled {
		return &Timer{done: true, index: -1}
	}
	t := sc.sched.arm(interval, interval, fn, sc)
	sc.timers[t] = struct{}{}
	return t
}

// Guard wraps fn so that it runs at most once and never after Cancel.
// Hand the result to collaborators that report completion asynchronously.
func (sc *Scope) Guard(fn func()) func() {
	used := false
	return func() {
		if used || sc.cancelled {
			return
		}
		used = true
		fn()
	}
}

// Cancel disarms every timer in the scope and silences its guards.
// It is safe to call more than once.
func (sc *Scope) Cancel() {
	if sc.cancelled {
		return
	}
	sc.cancelled = true
	for t := range sc.timers {
		t.Stop()
	}
	clear(sc.timers)
}

// Cancelled reports whether Cancel has been called.
func (sc *Scope) Cancelled() bool {
	return sc.cancelled
}

// Pending returns the number of armed timers owned by the scope.
func (sc *Scope) Pending() int {
	return len(sc.timers)
}
