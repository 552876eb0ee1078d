package entry

import (
	"time"

	"github.com/nerrad567/cinnamon-core/internal/fade"
	"github.com/nerrad567/cinnamon-core/internal/timeline"
)

// Surface shows, hides and fades images.
type Surface interface {
	SetOpacity(id string, alpha float64)
	SetVisible(id string, visible bool)
}

// Activator toggles scene objects.
type Activator interface {
	SetActive(id string, active bool)
}

// Playback is one playing instance of an audio cue.
type Playback interface {
	// Stop halts this instance only.
	Stop()
}

// AudioPlayer plays audio cues. done may be nil.
type AudioPlayer interface {
	Play(cue string, done func()) (Playback, error)
}

// Logger defines the logging interface used by the tracker.
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

// Deps holds the tracker's collaborators. Only Scheduler is required.
type Deps struct {
	Scheduler *timeline.Scheduler
	Surface   Surface
	Activator Activator
	Audio     AudioPlayer
	Logger    Logger
}

// Tracker runs a Plan and raises one aggregate completion per run.
type Tracker struct {
	sched     *timeline.Scheduler
	surface   Surface
	activator Activator
	audio     AudioPlayer
	logger    Logger

	onComplete  []func()
	onActivated []func(Activation)

	scope       *timeline.Scope
	running     bool
	remaining   int
	tasks       []Task
	playing     map[int]Playback
	runs        int
	startedAt   time.Time
	completedAt time.Time
}

// New creates a tracker.
func New(deps Deps) (*Tracker, error) {
	if deps.Scheduler == nil {
		return nil, ErrNoScheduler
	}
	if deps.Logger == nil {
		deps.Logger = noopLogger{}
	}
	return &Tracker{
		sched:     deps.Scheduler,
		surface:   deps.Surface,
		activator: deps.Activator,
		audio:     deps.Audio,
		logger:    deps.Logger,
	}, nil
}

// OnAllComplete registers a listener for the aggregate completion.
// Listeners run synchronously, in registration order, once per run.
func (t *Tracker) OnAllComplete(fn func()) {
	t.onComplete = append(t.onComplete, fn)
}

// OnActivated registers a listener that runs each time an activation task
// shows its object.
func (t *Tracker) OnActivated(fn func(Activation)) {
	t.onActivated = append(t.onActivated, fn)
}

// Running reports whether a run is in progress.
func (t *Tracker) Running() bool {
	return t.running
}

// Start begins every task in plan at the current scheduler time.
// An empty plan completes before Start returns.
func (t *Tracker) Start(plan Plan) error {
	if t.running {
		t.logger.Debug("entry start ignored, run in progress", "remaining", t.remaining)
		return ErrAlreadyRunning
	}
	if err := plan.Validate(); err != nil {
		return err
	}

	t.scope = t.sched.NewScope()
	t.running = true
	t.runs++
	t.startedAt = t.sched.Now()
	t.completedAt = time.Time{}
	t.remaining = plan.Len()
	t.tasks = make([]Task, 0, plan.Len())
	t.playing = make(map[int]Playback)

	t.logger.Info("entry started",
		"run", t.runs,
		"faders", len(plan.Faders),
		"activations", len(plan.Activations),
	)

	if t.remaining == 0 {
		t.complete()
		return nil
	}

	for _, f := range plan.Faders {
		t.tasks = append(t.tasks, Task{
			Name:     f.Image,
			Kind:     KindFade,
			Start:    f.FadeInStart,
			Duration: f.Length() - f.FadeInStart,
		})
	}
	for _, a := range plan.Activations {
		task := Task{Name: a.Object, Kind: KindActivation, Start: a.WaitFor}
		if a.ShouldDeactivate {
			task.Duration = a.InactiveAfter
		}
		t.tasks = append(t.tasks, task)
	}

	// Tasks are armed in plan order; the scheduler keeps FIFO order among
	// equal deadlines so faders precede activations at the same instant.
	for i, f := range plan.Faders {
		t.runFader(i, f)
	}
	for i, a := range plan.Activations {
		t.runActivation(len(plan.Faders)+i, a)
	}
	return nil
}

// Stop cancels the current run without raising completion. It reports
// whether a run was cancelled.
func (t *Tracker) Stop() bool {
	if !t.running {
		return false
	}
	t.scope.Cancel()
	for _, p := range t.playing {
		p.Stop()
	}
	clear(t.playing)
	t.running = false
	t.logger.Info("entry stopped", "run", t.runs, "remaining", t.remaining)
	return true
}

// Status returns a snapshot of the current or last run.
func (t *Tracker) Status() Status {
	st := Status{
		Running:   t.running,
		Runs:      t.runs,
		Remaining: t.remaining,
		Tasks:     append([]Task(nil), t.tasks...),
	}
	if t.runs > 0 {
		started := t.startedAt
		st.StartedAt = &started
	}
	if !t.completedAt.IsZero() {
		done := t.completedAt
		st.CompletedAt = &done
		st.Complete = true
	}
	return st
}

func (t *Tracker) runFader(idx int, f Fader) {
	sc := t.scope
	setAlpha := func(a float64) { t.setOpacity(f.Image, a) }

	t.setVisible(f.Image, true)
	setAlpha(0)

	sc.After(f.FadeInStart, func() {
		if f.Audio != "" {
			t.playAudio(idx, f.Audio)
		}
		fade.Ramp(sc, 0, 1, f.FadeInDuration, setAlpha, func() {
			sc.After(f.Hold(), func() {
				fade.Ramp(sc, 1, 0, f.FadeOutDuration, setAlpha, func() {
					if p, ok := t.playing[idx]; ok {
						p.Stop()
						delete(t.playing, idx)
					}
					t.setVisible(f.Image, false)
					t.taskDone(idx)
				})
			})
		})
	})
}

func (t *Tracker) runActivation(idx int, a Activation) {
	sc := t.scope
	sc.After(a.WaitFor, func() {
		t.setActive(a.Object, true)
		for _, fn := range t.onActivated {
			fn(a)
		}
		if !a.ShouldDeactivate {
			t.taskDone(idx)
			return
		}
		sc.After(a.InactiveAfter, func() {
			t.setActive(a.Object, false)
			t.taskDone(idx)
		})
	})
}

// taskDone is the counted completion token. Each task index counts once.
func (t *Tracker) taskDone(idx int) {
	if !t.running || t.tasks[idx].Complete {
		return
	}
	now := t.sched.Now()
	t.tasks[idx].Complete = true
	t.tasks[idx].CompletedAt = &now
	t.remaining--

	t.logger.Debug("entry task complete",
		"task", t.tasks[idx].Name,
		"kind", string(t.tasks[idx].Kind),
		"remaining", t.remaining,
	)

	if t.remaining == 0 {
		t.complete()
	}
}

func (t *Tracker) complete() {
	t.running = false
	t.completedAt = t.sched.Now()
	t.logger.Info("entry complete",
		"run", t.runs,
		"tasks", len(t.tasks),
		"duration", t.completedAt.Sub(t.startedAt).String(),
	)
	listeners := append([]func(){}, t.onComplete...)
	for _, fn := range listeners {
		fn()
	}
}

func (t *Tracker) setOpacity(id string, alpha float64) {
	if t.surface == nil {
		return
	}
	t.surface.SetOpacity(id, alpha)
}

func (t *Tracker) setVisible(id string, visible bool) {
	if t.surface == nil {
		t.logger.Warn("no surface assigned, fade has no output", "image", id)
		return
	}
	t.surface.SetVisible(id, visible)
}

func (t *Tracker) setActive(id string, active bool) {
	if t.activator == nil {
		t.logger.Warn("no activator assigned, skipping activation", "object", id, "active", active)
		return
	}
	t.activator.SetActive(id, active)
}

func (t *Tracker) playAudio(idx int, cue string) {
	if t.audio == nil {
		t.logger.Warn("no audio player assigned, skipping cue", "cue", cue)
		return
	}
	p, err := t.audio.Play(cue, nil)
	if err != nil {
		t.logger.Warn("entry audio failed", "cue", cue, "error", err)
		return
	}
	t.playing[idx] = p
}
