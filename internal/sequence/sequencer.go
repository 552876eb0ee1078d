package sequence

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"

	"github.com/nerrad567/cinnamon-core/internal/spatial"
	"github.com/nerrad567/cinnamon-core/internal/timeline"
)

// DefaultRadius is the proximity radius around the hand, in metres.
const DefaultRadius = 0.1

const (
	persistTimeout = 2 * time.Second
	tracerName     = "github.com/nerrad567/cinnamon-core/internal/sequence"
)

// Span and event names.
const (
	spanRun          = "sequence.run"
	spanStage        = "sequence.stage"
	eventTrigger     = "trigger.matched"
	eventSkipped     = "side_effect.skipped"
	eventCancelled   = "run.cancelled"
	attrRunID        = "sequence.run_id"
	attrSource       = "sequence.source"
	attrStagesTotal  = "sequence.stages_total"
	attrStageIndex   = "sequence.stage_index"
	attrStageName    = "sequence.stage_name"
	attrStageLabel   = "sequence.stage_label"
	attrHandle       = "trigger.handle"
	attrSkipReason   = "skip.reason"
	attrStopReason   = "stop.reason"
	attrRunStatus    = "sequence.status"
	attrStagesPassed = "sequence.stages_completed"
)

// Cue identifies a cue to play, optionally on a specific scene object.
type Cue struct {
	ID     string `json:"id"`
	Target string `json:"target,omitempty"`
}

// Playback is one playing instance of a cue.
type Playback interface {
	// Stop halts this instance and drops its done callback. It is a no-op
	// once the cue has finished.
	Stop()
}

// CuePlayer plays a cue and calls done once it has finished.
type CuePlayer interface {
	Play(cue Cue, done func()) (Playback, error)
}

// TriggerDetector returns the labelled anchors near a position, in
// enumeration order.
type TriggerDetector interface {
	FindNearby(pos spatial.Vec3, radius float64) []spatial.Detection
}

// Locator reports the point used for proximity checks.
type Locator interface {
	HandPosition() spatial.Vec3
}

// Spawner places objects into the scene. Both calls are fire-and-forget.
type Spawner interface {
	SetTarget(desc spatial.SpawnDescriptor)
	Spawn()
}

// Logger defines the logging interface used by the sequencer.
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

// Config tunes trigger polling.
type Config struct {
	// PollInterval defaults to the scheduler frame.
	PollInterval time.Duration
	// Radius defaults to DefaultRadius.
	Radius float64
}

// Deps holds the sequencer's collaborators. Only Scheduler is required.
type Deps struct {
	Scheduler *timeline.Scheduler
	Cues      CuePlayer
	Detector  TriggerDetector
	Locator   Locator
	Spawner   Spawner
	Repo      Repository
	Tracer    trace.Tracer
	Logger    Logger
	Listeners []Listener
}

// Sequencer is the stage state machine. It is not safe for concurrent
// use; drive it from the scheduler's goroutine.
type Sequencer struct {
	sched     *timeline.Scheduler
	cues      CuePlayer
	detector  TriggerDetector
	locator   Locator
	spawner   Spawner
	repo      Repository
	tracer    trace.Tracer
	logger    Logger
	listeners []Listener

	poll   time.Duration
	radius float64
	stages []Stage

	state  State
	index  int
	active bool
	scope  *timeline.Scope
	run    *Run

	// playing is the in-flight cue or animation, if any.
	playing Playback

	runCtx    context.Context
	runSpan   trace.Span
	stageSpan trace.Span
}

// New creates a sequencer over stages.
func New(stages []Stage, cfg Config, deps Deps) (*Sequencer, error) {
	if deps.Scheduler == nil {
		return nil, ErrNoScheduler
	}
	if err := ValidateStages(stages); err != nil {
		return nil, err
	}
	if deps.Logger == nil {
		deps.Logger = noopLogger{}
	}
	if deps.Tracer == nil {
		deps.Tracer = noop.NewTracerProvider().Tracer(tracerName)
	}
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = deps.Scheduler.Frame()
	}
	if cfg.Radius <= 0 {
		cfg.Radius = DefaultRadius
	}

	return &Sequencer{
		sched:     deps.Scheduler,
		cues:      deps.Cues,
		detector:  deps.Detector,
		locator:   deps.Locator,
		spawner:   deps.Spawner,
		repo:      deps.Repo,
		tracer:    deps.Tracer,
		logger:    deps.Logger,
		listeners: append([]Listener(nil), deps.Listeners...),
		poll:      cfg.PollInterval,
		radius:    cfg.Radius,
		stages:    append([]Stage(nil), stages...),
		state:     StateIdle,
	}, nil
}

// AddListener registers l for future transitions.
func (s *Sequencer) AddListener(l Listener) {
	s.listeners = append(s.listeners, l)
}

// SetStages replaces the stage list. It fails while a run is active.
func (s *Sequencer) SetStages(stages []Stage) error {
	if s.active {
		return ErrAlreadyActive
	}
	if err := ValidateStages(stages); err != nil {
		return err
	}
	s.stages = append([]Stage(nil), stages...)
	s.index = 0
	return nil
}

// Stages returns a copy of the stage list.
func (s *Sequencer) Stages() []Stage {
	return append([]Stage(nil), s.stages...)
}

// Active reports whether a run is in progress.
func (s *Sequencer) Active() bool {
	return s.active
}

// Status returns a snapshot of the state machine.
func (s *Sequencer) Status() Status {
	st := Status{
		State:  s.state,
		Index:  s.index,
		Active: s.active,
		Stages: len(s.stages),
	}
	if s.active && s.index < len(s.stages) {
		st.Stage = s.stages[s.index].Name
	}
	if s.run != nil {
		st.RunID = s.run.ID
	}
	return st
}

// LastRun returns a copy of the current or most recent run.
func (s *Sequencer) LastRun() (Run, bool) {
	if s.run == nil {
		return Run{}, false
	}
	return copyRun(s.run), true
}

// Start begins a run at stage 0. It returns ErrAlreadyActive while a run
// is in progress and ErrNoStages for an empty list; neither changes state.
// source names what started the run, for the run record.
func (s *Sequencer) Start(source string) error {
	if s.active {
		s.logger.Debug("sequence start ignored, already active", "run_id", s.run.ID, "index", s.index)
		return ErrAlreadyActive
	}
	if len(s.stages) == 0 {
		s.logger.Warn("sequence start ignored, no stages")
		return ErrNoStages
	}

	now := s.sched.Now()
	s.active = true
	s.index = 0
	s.scope = s.sched.NewScope()
	s.run = &Run{
		ID:          uuid.New().String(),
		Status:      RunRunning,
		Source:      source,
		StartedAt:   now,
		StagesTotal: len(s.stages),
	}

	s.runCtx, s.runSpan = s.tracer.Start(context.Background(), spanRun, trace.WithAttributes(
		attribute.String(attrRunID, s.run.ID),
		attribute.String(attrSource, source),
		attribute.Int(attrStagesTotal, len(s.stages)),
	))

	s.logger.Info("sequence started", "run_id", s.run.ID, "stages", len(s.stages), "source", source)
	s.persist()
	s.play(0)
	return nil
}

// Stop cancels the active run. Pending waits stop, the in-flight cue is
// stopped on the headset and its callback is silenced. It reports whether
// a run was active.
func (s *Sequencer) Stop(reason string) bool {
	if !s.active {
		return false
	}
	s.scope.Cancel()
	if s.playing != nil {
		s.playing.Stop()
		s.playing = nil
	}

	now := s.sched.Now()
	if s.stageSpan != nil {
		s.stageSpan.AddEvent(eventCancelled, trace.WithAttributes(attribute.String(attrStopReason, reason)))
		s.stageSpan.End()
		s.stageSpan = nil
	}
	if r := s.currentResult(); r != nil && r.EndedAt.IsZero() {
		r.EndedAt = now
	}

	s.run.Status = RunCancelled
	s.run.StopReason = reason
	s.finishRun(now)

	s.logger.Info("sequence stopped", "run_id", s.run.ID, "index", s.index, "reason", reason)
	s.transition(StateIdle)
	return true
}

func (s *Sequencer) play(i int) {
	stage := s.stages[i]
	s.index = i
	s.run.CurrentStage = i
	s.run.Stages = append(s.run.Stages, StageResult{
		Index:     i,
		Name:      stage.Name,
		StartedAt: s.sched.Now(),
	})

	_, s.stageSpan = s.tracer.Start(s.runCtx, spanStage, trace.WithAttributes(
		attribute.String(attrRunID, s.run.ID),
		attribute.Int(attrStageIndex, i),
		attribute.String(attrStageName, stage.Name),
		attribute.String(attrStageLabel, string(stage.Label)),
	))

	s.transition(StatePlaying)

	next := s.scope.Guard(func() {
		s.playing = nil
		s.waitForTrigger(i)
	})
	switch {
	case stage.Cue == "":
		s.logger.Debug("stage has no cue", "stage", stage.Name)
		next()
	case s.cues == nil:
		s.skip(stage, "cue: no cue player assigned")
		next()
	default:
		if err := s.playCue(Cue{ID: stage.Cue}, next); err != nil {
			s.logger.Warn("cue failed, continuing without it", "stage", stage.Name, "cue", stage.Cue, "error", err)
			s.skip(stage, "cue: "+err.Error())
			next()
		}
	}
}

// playCue keeps the handle of the started cue so Stop can halt it.
func (s *Sequencer) playCue(cue Cue, done func()) error {
	finished := false
	p, err := s.cues.Play(cue, func() {
		finished = true
		done()
	})
	if err != nil {
		return err
	}
	if !finished {
		s.playing = p
	}
	return nil
}

func (s *Sequencer) waitForTrigger(i int) {
	stage := s.stages[i]
	s.transition(StateWaiting)

	if s.detector == nil {
		s.logger.Warn("no trigger detector assigned, skipping trigger wait", "stage", stage.Name)
		s.skip(stage, "trigger: no detector assigned")
		s.advance(i)
		return
	}

	s.scope.Every(s.poll, func() bool {
		var pos spatial.Vec3
		if s.locator != nil {
			pos = s.locator.HandPosition()
		}
		for _, d := range s.detector.FindNearby(pos, s.radius) {
			if d.Label == stage.Label {
				s.triggered(i, d)
				return false
			}
		}
		return true
	})
}

func (s *Sequencer) triggered(i int, d spatial.Detection) {
	stage := s.stages[i]
	if r := s.currentResult(); r != nil {
		r.Trigger = d.Handle
	}
	s.stageSpan.AddEvent(eventTrigger, trace.WithAttributes(attribute.String(attrHandle, d.Handle)))
	s.logger.Info("stage triggered", "stage", stage.Name, "label", string(stage.Label), "handle", d.Handle)

	next := s.scope.Guard(func() {
		s.playing = nil
		s.advance(i)
	})
	switch {
	case stage.Animation == "":
		s.logger.Debug("stage has no animation", "stage", stage.Name)
		next()
	case s.cues == nil:
		s.skip(stage, "animation: no cue player assigned")
		next()
	default:
		if err := s.playCue(Cue{ID: stage.Animation, Target: d.Handle}, next); err != nil {
			s.logger.Warn("animation failed, continuing without it", "stage", stage.Name, "animation", stage.Animation, "error", err)
			s.skip(stage, "animation: "+err.Error())
			next()
		}
	}
}

func (s *Sequencer) advance(i int) {
	stage := s.stages[i]
	s.transition(StateAdvancing)

	switch {
	case stage.Spawn == nil || stage.Spawn.Empty():
		s.logger.Debug("stage has no spawn target", "stage", stage.Name)
	case s.spawner == nil:
		s.skip(stage, "spawn: no spawner assigned")
	default:
		s.spawner.SetTarget(*stage.Spawn)
		s.spawner.Spawn()
	}

	s.scope.After(stage.Delay, func() {
		now := s.sched.Now()
		if r := s.currentResult(); r != nil {
			r.EndedAt = now
		}
		s.run.StagesCompleted = i + 1
		s.stageSpan.End()
		s.stageSpan = nil

		s.index = i + 1
		if s.index >= len(s.stages) {
			s.complete(now)
			return
		}
		s.persist()
		s.play(s.index)
	})
}

func (s *Sequencer) complete(now time.Time) {
	s.run.Status = RunCompleted
	s.run.CurrentStage = s.index
	s.finishRun(now)
	s.logger.Info("sequence complete", "run_id", s.run.ID, "stages", len(s.stages), "duration", s.run.Duration.String())
	s.transition(StateIdle)
}

func (s *Sequencer) finishRun(now time.Time) {
	s.active = false
	s.run.CompletedAt = &now
	s.run.Duration = now.Sub(s.run.StartedAt)

	s.runSpan.SetAttributes(
		attribute.String(attrRunStatus, string(s.run.Status)),
		attribute.Int(attrStagesPassed, s.run.StagesCompleted),
	)
	if s.run.Status == RunCancelled {
		s.runSpan.AddEvent(eventCancelled, trace.WithAttributes(attribute.String(attrStopReason, s.run.StopReason)))
	}
	s.runSpan.End()
	s.persist()
}

// skip records a side effect that did not happen.
func (s *Sequencer) skip(stage Stage, reason string) {
	s.logger.Warn("stage side effect skipped", "stage", stage.Name, "reason", reason)
	if r := s.currentResult(); r != nil {
		r.Skipped = append(r.Skipped, reason)
	}
	if s.stageSpan != nil {
		s.stageSpan.AddEvent(eventSkipped, trace.WithAttributes(attribute.String(attrSkipReason, reason)))
	}
}

func (s *Sequencer) currentResult() *StageResult {
	if s.run == nil || len(s.run.Stages) == 0 {
		return nil
	}
	return &s.run.Stages[len(s.run.Stages)-1]
}

func (s *Sequencer) transition(to State) {
	from := s.state
	s.state = to
	t := Transition{
		RunID: s.run.ID,
		From:  from,
		To:    to,
		Index: s.index,
		At:    s.sched.Now(),
	}
	if s.index < len(s.stages) {
		t.Stage = s.stages[s.index].Name
	}
	s.logger.Debug("sequence transition", "from", string(from), "to", string(to), "index", s.index)

	listeners := append([]Listener(nil), s.listeners...)
	for _, l := range listeners {
		l.OnTransition(t)
	}
}

func (s *Sequencer) persist() {
	if s.repo == nil {
		return
	}
	run := copyRun(s.run)
	ctx, cancel := context.WithTimeout(context.Background(), persistTimeout)
	defer cancel()
	if err := s.repo.SaveRun(ctx, &run); err != nil {
		s.logger.Error("failed to persist sequence run", "run_id", run.ID, "error", err)
	}
}

func copyRun(r *Run) Run {
	c := *r
	c.Stages = make([]StageResult, len(r.Stages))
	for i, st := range r.Stages {
		st.Skipped = append([]string(nil), st.Skipped...)
		c.Stages[i] = st
	}
	if r.CompletedAt != nil {
		t := *r.CompletedAt
		c.CompletedAt = &t
	}
	return c
}
