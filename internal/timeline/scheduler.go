package timeline

import (
	"container/heap"
	"time"
)

// DefaultFrame is the logical frame length used when none is configured.
const DefaultFrame = 20 * time.Millisecond

// Scheduler is a cooperative timer queue driven by Advance.
type Scheduler struct {
	now     time.Time
	frame   time.Duration
	queue   timerQueue
	seq     uint64
	firing  bool
	onPanic func(any)
}

// NewScheduler creates a scheduler whose logical clock starts at start.
// A non-positive frame falls back to DefaultFrame.
func NewScheduler(start time.Time, frame time.Duration) *Scheduler {
	if frame <= 0 {
		frame = DefaultFrame
	}
	return &Scheduler{now: start, frame: frame}
}

// Now returns the logical time. Inside a timer callback this is the
// timer's deadline.
func (s *Scheduler) Now() time.Time {
	return s.now
}

// Frame returns the nominal frame interval.
func (s *Scheduler) Frame() time.Duration {
	return s.frame
}

// SetPanicHandler makes Advance recover a panicking callback, pass the
// panic value to fn and carry on with the remaining timers. The panicking
// timer is not rescheduled. With no handler the panic propagates out of
// Advance and the clock still moves to the end of the window.
func (s *Scheduler) SetPanicHandler(fn func(v any)) {
	s.onPanic = fn
}

// Pending returns the number of armed timers.
func (s *Scheduler) Pending() int {
	return len(s.queue)
}

// After arms a one-shot timer that calls fn once d has elapsed.
// A non-positive d fires on the next Advance, including Advance(0).
func (s *Scheduler) After(d time.Duration, fn func()) *Timer {
	return s.arm(d, 0, func() bool { fn(); return false }, nil)
}

// Every arms a repeating timer. fn first runs one interval from now and is
// rescheduled for as long as it returns true.
func (s *Scheduler) Every(interval time.Duration, fn func() bool) *Timer {
	if interval <= 0 {
		panic("timeline: non-positive interval for Every")
	}
	return s.arm(interval, interval, fn, nil)
}

func (s *Scheduler) arm(d, interval time.Duration, fn func() bool, scope *Scope) *Timer {
	if d < 0 {
		d = 0
	}
	s.seq++
	t := &Timer{
		sched:    s,
		scope:    scope,
		deadline: s.now.Add(d),
		interval: interval,
		seq:      s.seq,
		fn:       fn,
		index:    -1,
	}
	heap.Push(&s.queue, t)
	return t
}

// Advance moves the logical clock forward by d, firing every timer whose
// deadline falls inside the window. Timers armed by callbacks fire in the
// same call when their deadline is also inside the window. It returns the
// number of callbacks run.
//
// Advance must not be called from inside a timer callback.
func (s *Scheduler) Advance(d time.Duration) int {
	if s.firing {
		panic("timeline: Advance called from a timer callback")
	}
	if d < 0 {
		d = 0
	}
	target := s.now.Add(d)

	s.firing = true
	defer func() {
		s.firing = false
		if s.now.Before(target) {
			s.now = target
		}
	}()

	fired := 0
	for len(s.queue) > 0 {
		next := s.queue[0]
		if next.deadline.After(target) {
			break
		}
		heap.Pop(&s.queue)

		if next.deadline.After(s.now) {
			s.now = next.deadline
		}
		fired++
		again := s.fire(next)
		if again && next.index == -1 && !next.stopped {
			next.deadline = next.deadline.Add(next.interval)
			s.seq++
			next.seq = s.seq
			heap.Push(&s.queue, next)
			continue
		}
		next.finish()
	}

	s.now = target
	return fired
}

func (s *Scheduler) fire(t *Timer) (again bool) {
	defer func() {
		if v := recover(); v != nil {
			t.finish()
			if s.onPanic == nil {
				panic(v)
			}
			s.onPanic(v)
			again = false
		}
	}()
	return t.fn()
}

// Timer is a handle to an armed callback.
type Timer struct {
	sched    *Scheduler
	scope    *Scope
	deadline time.Time
	interval time.Duration
	seq      uint64
	fn       func() bool
	index    int
	stopped  bool
	done     bool
}

// Stop disarms the timer. It reports whether the timer was still armed.
func (t *Timer) Stop() bool {
	if t == nil || t.done || t.stopped {
		return false
	}
	t.stopped = true
	if t.index >= 0 {
		heap.Remove(&t.sched.queue, t.index)
	}
	t.finish()
	return true
}

// Active reports whether the timer is still armed.
func (t *Timer) Active() bool {
	return t != nil && !t.done && !t.stopped
}

// Deadline returns the time the timer fires next.
func (t *Timer) Deadline() time.Time {
	return t.deadline
}

func (t *Timer) finish() {
	t.done = true
	if t.scope != nil {
		delete(t.scope.timers, t)
	}
}

// timerQueue orders timers by deadline, then by arm sequence.
type timerQueue []*Timer

func (q timerQueue) Len() int { return len(q) }

func (q timerQueue) Less(i, j int) bool {
	if q[i].deadline.Equal(q[j].deadline) {
		return q[i].seq < q[j].seq
	}
	return q[i].deadline.Before(q[j].deadline)
}

func (q timerQueue) Swap(i, j int) {
	q[i], q[j] = q[j], q[i]
	q[i].index = i
	q[j].index = j
}

func (q *timerQueue) Push(x any) {
	t := x.(*Timer)
	t.index = len(*q)
	*q = append(*q, t)
}

func (q *timerQueue) Pop() any {
	old := *q
	n := len(old)
	t := old[n-1]
	old[n-1] = nil
	t.index = -1
	*q = old[:n-1]
	return t
}
