package motion

import (
	"context"
	"errors"
	"math"
	"time"

	"github.com/google/uuid"

	"github.com/nerrad567/cinnamon-core/internal/timeline"
)

// persistTimeout bounds each repository write made from the loop.
const persistTimeout = 2 * time.Second

// SampleSink receives accepted readings and closed outcomes for time-series storage.
type SampleSink interface {
	WriteMotionSample(windowID string, r Reading, at time.Time)
	WriteMotionOutcome(o Outcome)
}

// Logger defines the logging interface used by the accumulator.
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

// Deps holds the accumulator's collaborators. Only Scheduler is required.
type Deps struct {
	Scheduler *timeline.Scheduler
	Sink      SampleSink
	Repo      Repository
	Logger    Logger
	Listeners []OutcomeListener
}

// Accumulator owns at most one open window at a time.
type Accumulator struct {
	sched     *timeline.Scheduler
	sink      SampleSink
	repo      Repository
	logger    Logger
	listeners []OutcomeListener

	window *Window
	scope  *timeline.Scope
	last   *Outcome
}

// New creates an accumulator.
func New(deps Deps) (*Accumulator, error) {
	if deps.Scheduler == nil {
		return nil, ErrNoScheduler
	}
	if deps.Logger == nil {
		deps.Logger = noopLogger{}
	}
	return &Accumulator{
		sched:     deps.Scheduler,
		sink:      deps.Sink,
		repo:      deps.Repo,
		logger:    deps.Logger,
		listeners: append([]OutcomeListener(nil), deps.Listeners...),
	}, nil
}

// AddListener registers l for future outcomes.
func (a *Accumulator) AddListener(l OutcomeListener) {
	a.listeners = append(a.listeners, l)
}

// BeginWindow opens a new listening window and returns its id. An open
// window is discarded first and never produces an outcome.
func (a *Accumulator) BeginWindow(duration time.Duration, threshold float64) (string, error) {
	if duration <= 0 || math.IsNaN(threshold) {
		return "", ErrInvalidWindow
	}

	if a.window != nil {
		a.logger.Info("motion window discarded", "window_id", a.window.ID, "count", a.window.Count)
		a.discard()
	}

	now := a.sched.Now()
	a.window = &Window{
		ID:        uuid.New().String(),
		Duration:  duration,
		Threshold: threshold,
		Listening: true,
		OpenedAt:  now,
		ClosesAt:  now.Add(duration),
	}
	a.scope = a.sched.NewScope()
	a.scope.After(duration, a.close)

	a.logger.Info("motion window opened",
		"window_id", a.window.ID,
		"duration", duration.String(),
		"threshold", threshold,
	)
	return a.window.ID, nil
}

// OnMessage feeds one raw transport message into the open window.
// It returns ErrNotListening when no window is open and ErrParse for
// malformed messages; neither changes the window totals.
func (a *Accumulator) OnMessage(raw string) error {
	if a.window == nil || !a.window.Listening {
		return ErrNotListening
	}

	r, err := Parse(raw)
	if err != nil {
		a.window.Rejected++
		a.logger.Warn("could not parse roll/pitch from message", "message", raw, "error", err)
		return err
	}

	a.window.RollSum += r.Roll
	a.window.PitchSum += r.Pitch
	a.window.Count++

	if a.sink != nil {
		a.sink.WriteMotionSample(a.window.ID, r, a.sched.Now())
	}
	return nil
}

// Listening reports whether a window is open.
func (a *Accumulator) Listening() bool {
	return a.window != nil && a.window.Listening
}

// Snapshot returns the open window, if any.
func (a *Accumulator) Snapshot() (Window, bool) {
	if a.window == nil {
		return Window{}, false
	}
	return *a.window, true
}

// LastOutcome returns the most recent outcome, if any.
func (a *Accumulator) LastOutcome() (Outcome, bool) {
	if a.last == nil {
		return Outcome{}, false
	}
	return *a.last, true
}

// Seal closes the open window now and emits its outcome, as if the
// duration had elapsed. It reports whether a window was open.
func (a *Accumulator) Seal() bool {
	if a.window == nil {
		return false
	}
	a.scope.Cancel()
	a.close()
	return true
}

// Discard drops the open window without emitting an outcome.
// It reports whether a window was open.
func (a *Accumulator) Discard() bool {
	if a.window == nil {
		return false
	}
	a.logger.Info("motion window discarded", "window_id", a.window.ID, "count", a.window.Count)
	a.discard()
	return true
}

func (a *Accumulator) discard() {
	a.scope.Cancel()
	a.window = nil
}

func (a *Accumulator) close() {
	w := a.window
	w.Listening = false
	a.window = nil

	decision, avgRoll, avgPitch := Decide(*w)
	out := Outcome{
		ID:        w.ID,
		Decision:  decision,
		AvgRoll:   avgRoll,
		AvgPitch:  avgPitch,
		Count:     w.Count,
		Rejected:  w.Rejected,
		Threshold: w.Threshold,
		Duration:  w.Duration,
		OpenedAt:  w.OpenedAt,
		ClosedAt:  a.sched.Now(),
	}
	a.last = &out

	if decision == NoDecision {
		a.logger.Info("no movement data received in the allotted time",
			"window_id", w.ID,
			"duration", w.Duration.String(),
			"rejected", w.Rejected,
		)
	} else {
		a.logger.Info("motion window closed",
			"window_id", w.ID,
			"decision", string(decision),
			"avg_roll", avgRoll,
			"avg_pitch", avgPitch,
			"count", w.Count,
		)
	}

	if a.sink != nil {
		a.sink.WriteMotionOutcome(out)
	}
	a.persist(&out)

	listeners := append([]OutcomeListener(nil), a.listeners...)
	for _, l := range listeners {
		l.OnOutcome(out)
	}
}

func (a *Accumulator) persist(out *Outcome) {
	if a.repo == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), persistTimeout)
	defer cancel()

	if err := a.repo.SaveOutcome(ctx, out); err != nil && !errors.Is(err, context.Canceled) {
		a.logger.Error("failed to persist motion outcome", "window_id", out.ID, "error", err)
	}
}
