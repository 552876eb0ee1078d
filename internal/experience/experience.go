package experience

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel/trace"

	"github.com/nerrad567/cinnamon-core/internal/bridge"
	"github.com/nerrad567/cinnamon-core/internal/entry"
	"github.com/nerrad567/cinnamon-core/internal/fade"
	"github.com/nerrad567/cinnamon-core/internal/motion"
	"github.com/nerrad567/cinnamon-core/internal/sequence"
	"github.com/nerrad567/cinnamon-core/internal/timeline"
	"github.com/nerrad567/cinnamon-core/internal/typing"
)

// Event channels broadcast to WebSocket clients and published to
// cinnamon/event/<channel>.
const (
	EventEntryComplete      = "entry.complete"
	EventEntryActivated     = "entry.activated"
	EventSequenceTransition = "sequence.transition"
	EventMotionOutcome      = "motion.outcome"
	EventSceneLoaded        = "scene.loaded"
)

// Broadcaster fans events out to dashboard clients. *api.Hub satisfies it.
type Broadcaster interface {
	Broadcast(channel string, payload any)
}

// StageTimings records how long the sequencer spent in each state.
// *influxdb.Client satisfies it.
type StageTimings interface {
	WriteStageTiming(runID, stage string, index int, state string, d time.Duration, at time.Time)
}

// Logger defines the logging interface used by the experience.
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

// Deps holds the experience's collaborators. Loop and Out are required.
type Deps struct {
	Loop *timeline.Loop
	// Out queues presentation commands, normally a *bridge.Outbox.
	Out bridge.Sender

	SequenceRepo sequence.Repository
	MotionRepo   motion.Repository
	Samples      motion.SampleSink
	Timings      StageTimings
	Hub          Broadcaster
	Tracer       trace.Tracer
	Logger       Logger

	// Radius is the trigger proximity radius. Zero uses sequence.DefaultRadius.
	Radius float64
	// SpawnParent is the object children are spawned under.
	SpawnParent string
}

// Experience owns every engine component for one script.
type Experience struct {
	script *Script
	loop   *timeline.Loop
	sched  *timeline.Scheduler
	hub    Broadcaster
	logger Logger

	timings    StageTimings
	stateSince time.Time

	anchors   *bridge.Anchors
	cues      *bridge.Cues
	spawner   *bridge.Spawner
	surfaces  *bridge.Surfaces
	display   *bridge.Display
	scenes    *bridge.Scenes
	events    *bridge.Events
	sensors   *bridge.SensorFeed
	tracker   *entry.Tracker
	sequencer *sequence.Sequencer
	motion    *motion.Accumulator
	materials map[string]*fade.Material
	captions  []*typing.Typewriter
}

// New builds an experience for script on deps.Loop. Nothing runs until Start.
func New(script *Script, deps Deps) (*Experience, error) {
	if deps.Loop == nil {
		return nil, ErrNoLoop
	}
	if deps.Out == nil {
		return nil, ErrNoSender
	}
	if deps.Logger == nil {
		deps.Logger = noopLogger{}
	}

	sched := deps.Loop.Scheduler()
	out := deps.Out
	log := deps.Logger

	e := &Experience{
		script:    script,
		loop:      deps.Loop,
		sched:     sched,
		hub:       deps.Hub,
		logger:    log,
		timings:   deps.Timings,
		anchors:   bridge.NewAnchors(),
		surfaces:  bridge.NewSurfaces(out, log),
		display:   bridge.NewDisplay(out, log),
		scenes:    bridge.NewScenes(out, script.Scenes, log),
		events:    bridge.NewEvents(out),
		materials: make(map[string]*fade.Material, len(script.Materials)),
	}
	e.cues = bridge.NewCues(sched, out, script.Cues, log)
	e.spawner = bridge.NewSpawner(sched, out, e.anchors, bridge.SpawnerConfig{Parent: deps.SpawnParent}, log)
	e.sensors = bridge.NewSensorFeed(deps.Loop, e.onSensorMessage, log)

	var err error
	e.tracker, err = entry.New(entry.Deps{
		Scheduler: sched,
		Surface:   e.surfaces,
		Activator: bridge.NewActivator(out, log),
		Audio:     bridge.Audio{Cues: e.cues},
		Logger:    log,
	})
	if err != nil {
		return nil, fmt.Errorf("building entry tracker: %w", err)
	}
	e.tracker.OnAllComplete(e.onEntryComplete)
	e.tracker.OnActivated(func(a entry.Activation) {
		e.emit(EventEntryActivated, map[string]any{"object": a.Object, "notify": a.Notify})
	})

	e.sequencer, err = sequence.New(script.Stages, sequence.Config{Radius: deps.Radius}, sequence.Deps{
		Scheduler: sched,
		Cues:      e.cues,
		Detector:  e.anchors,
		Locator:   e.anchors,
		Spawner:   e.spawner,
		Repo:      deps.SequenceRepo,
		Tracer:    deps.Tracer,
		Logger:    log,
		Listeners: []sequence.Listener{sequence.ListenerFunc(e.onTransition)},
	})
	if err != nil {
		return nil, fmt.Errorf("building sequencer: %w", err)
	}

	e.motion, err = motion.New(motion.Deps{
		Scheduler: sched,
		Sink:      deps.Samples,
		Repo:      deps.MotionRepo,
		Logger:    log,
		Listeners: []motion.OutcomeListener{motion.OutcomeFunc(e.onOutcome)},
	})
	if err != nil {
		return nil, fmt.Errorf("building motion accumulator: %w", err)
	}

	for _, cfg := range script.Materials {
		e.materials[cfg.ID] = fade.NewMaterial(sched, e.surfaces, cfg)
	}
	captions := bridge.NewCaptions(out, log)
	for _, cfg := range script.Captions {
		e.captions = append(e.captions, typing.New(sched, captions, cfg))
	}

	return e, nil
}

// Subscribe attaches the inbound MQTT feeds: sensor readings and headset
// anchor reports.
func (e *Experience) Subscribe(sub bridge.Subscriber, qos byte) error {
	if err := e.sensors.Subscribe(sub, qos); err != nil {
		return fmt.Errorf("subscribing to sensors: %w", err)
	}
	if err := bridge.SubscribeAnchors(sub, qos, e.loop, e.anchors, e.logger); err != nil {
		return fmt.Errorf("subscribing to anchors: %w", err)
	}
	return nil
}

// Start runs the start-of-experience work on the loop: materials begin
// their delayed fades, auto-start captions type, and when autoEntry is set
// the entry plan runs. A motion window opens if the script asks for one.
func (e *Experience) Start(ctx context.Context, autoEntry bool) error {
	var startErr error
	err := e.loop.Do(ctx, func() { startErr = e.start(autoEntry) })
	if err != nil {
		return err
	}
	return startErr
}

func (e *Experience) start(autoEntry bool) error {
	for _, m := range e.materials {
		m.Start()
	}
	for i, tw := range e.captions {
		if e.script.Captions[i].AutoStart {
			tw.Start()
		}
	}
	if e.script.Motion.AutoStart {
		if _, err := e.motion.BeginWindow(e.script.Motion.Duration, e.script.Motion.Threshold); err != nil {
			return fmt.Errorf("opening motion window: %w", err)
		}
	}
	if autoEntry {
		if err := e.tracker.Start(e.script.Entry); err != nil {
			return fmt.Errorf("starting entry: %w", err)
		}
	}
	e.logger.Info("experience started", "name", e.script.Name, "stages", len(e.script.Stages))
	return nil
}

// Shutdown stops every running component on the loop.
func (e *Experience) Shutdown(ctx context.Context) error {
	return e.loop.Do(ctx, func() {
		e.sequencer.Stop("shutdown")
		e.tracker.Stop()
		e.motion.Discard()
		for _, m := range e.materials {
			m.Stop()
		}
		for _, tw := range e.captions {
			tw.Stop()
		}
	})
}

func (e *Experience) onEntryComplete() {
	e.emit(EventEntryComplete, e.tracker.Status())
	if len(e.sequencer.Stages()) == 0 {
		return
	}
	if err := e.sequencer.Start("entry"); err != nil {
		e.logger.Warn("sequence not started after entry", "error", err)
	}
}

func (e *Experience) onTransition(t sequence.Transition) {
	if e.timings != nil && !e.stateSince.IsZero() {
		e.timings.WriteStageTiming(t.RunID, t.Stage, t.Index, string(t.From), t.At.Sub(e.stateSince), t.At)
	}
	e.stateSince = t.At
	if t.To == sequence.StateIdle {
		e.stateSince = time.Time{}
	}
	e.emit(EventSequenceTransition, t)
}

func (e *Experience) onOutcome(o motion.Outcome) {
	switch o.Decision {
	case motion.OutcomeA:
		e.spawner.SpawnNow(e.script.Motion.OutcomeA)
	case motion.OutcomeB:
		e.spawner.SpawnNow(e.script.Motion.OutcomeB)
	}
	e.emit(EventMotionOutcome, o)
}

func (e *Experience) onSensorMessage(device, payload string) {
	e.display.OnMessage(payload)
	if !e.motion.Listening() {
		return
	}
	if err := e.motion.OnMessage(payload); err != nil {
		e.logger.Debug("sensor message not accumulated", "device", device, "error", err)
	}
}

func (e *Experience) emit(channel string, payload any) {
	if e.hub != nil {
		e.hub.Broadcast(channel, payload)
	}
	if err := e.events.Publish(channel, e.sched.Now(), payload); err != nil {
		e.logger.Debug("event not published", "channel", channel, "error", err)
	}
}
