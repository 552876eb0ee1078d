package timeline

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"
)

// Logger is the logging interface used by the loop.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

type noopLogger struct{}

func (noopLogger) Debug(string, ...any) {}
func (noopLogger) Info(string, ...any)  {}
func (noopLogger) Warn(string, ...any)  {}
func (noopLogger) Error(string, ...any) {}

const (
	defaultTick      = 10 * time.Millisecond
	defaultInboxSize = 256
)

// LoopConfig configures a Loop.
type LoopConfig struct {
	// Tick is how often the wall clock is sampled. Default: 10ms
	Tick time.Duration

	// InboxSize bounds queued work from other goroutines. Default: 256
	InboxSize int
}

// Loop advances a Scheduler from the wall clock on a single goroutine and
// runs work posted from other goroutines on that same goroutine.
type Loop struct {
	sched   *Scheduler
	tick    time.Duration
	inbox   chan func()
	stopped chan struct{}
	started atomic.Bool
	now     func() time.Time
	logger  Logger
}

// NewLoop creates a loop for sched and installs a panic handler on it that
// logs the panic and lets the rest of the frame run. The loop does nothing
// until Run.
func NewLoop(sched *Scheduler, cfg LoopConfig, logger Logger) *Loop {
	if cfg.Tick <= 0 {
		cfg.Tick = defaultTick
	}
	if cfg.InboxSize <= 0 {
		cfg.InboxSize = defaultInboxSize
	}
	if logger == nil {
		logger = noopLogger{}
	}
	sched.SetPanicHandler(func(v any) {
		logger.Error("timer callback panicked", "panic", fmt.Sprintf("%v", v))
	})
	return &Loop{
		sched:   sched,
		tick:    cfg.Tick,
		inbox:   make(chan func(), cfg.InboxSize),
		stopped: make(chan struct{}),
		now:     time.Now,
		logger:  logger,
	}
}

// Scheduler returns the scheduler driven by the loop. Only touch it from
// the loop goroutine.
func (l *Loop) Scheduler() *Scheduler {
	return l.sched
}

// Run drives the scheduler until ctx is cancelled. It may be called once.
func (l *Loop) Run(ctx context.Context) error {
	if !l.started.CompareAndSwap(false, true) {
		return ErrLoopRunning
	}
	defer close(l.stopped)

	ticker := time.NewTicker(l.tick)
	defer ticker.Stop()

	last := l.now()
	l.logger.Debug("timeline loop started", "tick", l.tick.String())

	for {
		select {
		case <-ctx.Done():
			l.logger.Debug("timeline loop stopped", "pending_timers", l.sched.Pending())
			return nil

		case fn := <-l.inbox:
			l.safeRun(fn)

		case <-ticker.C:
			now := l.now()
			elapsed := now.Sub(last)
			last = now
			l.safeRun(func() { l.sched.Advance(elapsed) })
		}
	}
}

// Post queues fn to run on the loop goroutine. It does not wait.
// Work may be posted before Run starts.
func (l *Loop) Post(fn func()) error {
	select {
	case <-l.stopped:
		return ErrLoopStopped
	default:
	}

	select {
	case l.inbox <- fn:
		return nil
	default:
		return ErrInboxFull
	}
}

// Do runs fn on the loop goroutine and waits for it to return.
// It must not be called from the loop goroutine itself. When Do returns an
// error fn has not run and never will, so results fn would write are safe
// to read either way.
func (l *Loop) Do(ctx context.Context, fn func()) error {
	var state atomic.Int32
	done := make(chan struct{})
	if err := l.Post(func() {
		if !state.CompareAndSwap(doQueued, doRunning) {
			return
		}
		defer close(done)
		fn()
	}); err != nil {
		return err
	}

	select {
	case <-done:
		return nil
	case <-l.stopped:
		if state.CompareAndSwap(doQueued, doAbandoned) {
			return ErrLoopStopped
		}
		<-done
		return nil
	case <-ctx.Done():
		if state.CompareAndSwap(doQueued, doAbandoned) {
			return fmt.Errorf("waiting for loop: %w", ctx.Err())
		}
		// fn already started; it finishes on the loop.
		<-done
		return nil
	}
}

// Do states.
const (
	doQueued int32 = iota
	doRunning
	doAbandoned
)

// safeRun runs fn and recovers a panic so one faulty callback cannot stop
// the experience.
func (l *Loop) safeRun(fn func()) {
	defer func() {
		if r := recover(); r != nil {
			l.logger.Error("timeline callback panicked", "panic", fmt.Sprintf("%v", r))
		}
	}()
	fn()
}
