package experience

import (
	"context"
	"fmt"
	"time"

	"github.com/nerrad567/cinnamon-core/internal/bridge"
	"github.com/nerrad567/cinnamon-core/internal/entry"
	"github.com/nerrad567/cinnamon-core/internal/motion"
	"github.com/nerrad567/cinnamon-core/internal/sequence"
)

// Status is a point-in-time snapshot of the whole experience.
type Status struct {
	Name      string               `json:"name"`
	Now       time.Time            `json:"now"`
	Entry     entry.Status         `json:"entry"`
	Sequence  sequence.Status      `json:"sequence"`
	LastRun   *sequence.Run        `json:"last_run,omitempty"`
	Motion    MotionStatus         `json:"motion"`
	Scene     SceneStatus          `json:"scene"`
	Materials []MaterialStatus     `json:"materials"`
	Sensors   []bridge.DeviceState `json:"sensors"`
	Anchors   bool                 `json:"anchors_reported"`
}

// MotionStatus describes the open window and the last outcome.
type MotionStatus struct {
	Window      *motion.Window  `json:"window,omitempty"`
	LastOutcome *motion.Outcome `json:"last_outcome,omitempty"`
}

// SceneStatus is the loaded scene.
type SceneStatus struct {
	Index int    `json:"index"`
	Name  string `json:"name"`
	Count int    `json:"count"`
}

// MaterialStatus is one material's current opacity.
type MaterialStatus struct {
	ID       string  `json:"id"`
	Alpha    float64 `json:"alpha"`
	HasFaded bool    `json:"has_faded"`
}

// Script returns the script the experience was built from.
func (e *Experience) Script() *Script {
	return e.script
}

// StartEntry runs the entry plan.
func (e *Experience) StartEntry(ctx context.Context) error {
	return e.do(ctx, func() error { return e.tracker.Start(e.script.Entry) })
}

// StartSequence starts the stage sequence directly, bypassing entry.
func (e *Experience) StartSequence(ctx context.Context, source string) error {
	return e.do(ctx, func() error { return e.sequencer.Start(source) })
}

// StopSequence cancels a running sequence. It reports whether one was running.
func (e *Experience) StopSequence(ctx context.Context, reason string) (bool, error) {
	var stopped bool
	err := e.loop.Do(ctx, func() { stopped = e.sequencer.Stop(reason) })
	return stopped, err
}

// BeginWindow opens a motion window. A zero duration or nil threshold
// falls back to the script's motion settings.
func (e *Experience) BeginWindow(ctx context.Context, duration time.Duration, threshold *float64) (string, error) {
	if duration == 0 {
		duration = e.script.Motion.Duration
	}
	th := e.script.Motion.Threshold
	if threshold != nil {
		th = *threshold
	}
	var id string
	err := e.do(ctx, func() error {
		var err error
		id, err = e.motion.BeginWindow(duration, th)
		return err
	})
	return id, err
}

// CloseWindow closes the open motion window early and emits its outcome.
// It reports whether a window was open.
func (e *Experience) CloseWindow(ctx context.Context) (bool, error) {
	var closed bool
	err := e.loop.Do(ctx, func() { closed = e.motion.Seal() })
	return closed, err
}

// Stages returns the sequencer's current stage list.
func (e *Experience) Stages(ctx context.Context) ([]sequence.Stage, error) {
	var stages []sequence.Stage
	err := e.loop.Do(ctx, func() { stages = e.sequencer.Stages() })
	return stages, err
}

// ReplaceStages swaps the stage list used by the next run. Cues must be in
// the script's catalogue. It fails with sequence.ErrAlreadyActive during a run.
func (e *Experience) ReplaceStages(ctx context.Context, stages []sequence.Stage) error {
	if err := e.script.ValidateStages(stages); err != nil {
		return err
	}
	return e.do(ctx, func() error {
		if err := e.sequencer.SetStages(stages); err != nil {
			return err
		}
		e.logger.Info("sequence stages replaced", "stages", len(stages))
		return nil
	})
}

// TriggerMaterial re-runs the delayed fade of material id. It reports
// whether the fade restarted.
func (e *Experience) TriggerMaterial(ctx context.Context, id string, fadeIn bool, delay time.Duration) (bool, error) {
	m, ok := e.materials[id]
	if !ok {
		return false, fmt.Errorf("%w: %s", ErrUnknownMaterial, id)
	}
	var restarted bool
	err := e.loop.Do(ctx, func() { restarted = m.TriggerFade(fadeIn, delay) })
	return restarted, err
}

// LoadScene loads a scene by name.
func (e *Experience) LoadScene(ctx context.Context, name string) error {
	return e.do(ctx, func() error {
		if err := e.scenes.LoadName(name); err != nil {
			return err
		}
		e.emitScene()
		return nil
	})
}

// LoadSceneIndex loads a scene by position.
func (e *Experience) LoadSceneIndex(ctx context.Context, index int) error {
	return e.do(ctx, func() error {
		if err := e.scenes.LoadIndex(index); err != nil {
			return err
		}
		e.emitScene()
		return nil
	})
}

// LoadNextScene loads the scene after the current one, wrapping around.
func (e *Experience) LoadNextScene(ctx context.Context) error {
	return e.do(ctx, func() error {
		if err := e.scenes.Next(); err != nil {
			return err
		}
		e.emitScene()
		return nil
	})
}

// LoadMainMenu loads the first scene.
func (e *Experience) LoadMainMenu(ctx context.Context) error {
	return e.do(ctx, func() error {
		if err := e.scenes.MainMenu(); err != nil {
			return err
		}
		e.emitScene()
		return nil
	})
}

// Quit asks the headset application to exit.
func (e *Experience) Quit(ctx context.Context) error {
	return e.do(ctx, func() error { return e.scenes.Quit() })
}

// Status returns a snapshot taken on the loop.
func (e *Experience) Status(ctx context.Context) (Status, error) {
	var st Status
	err := e.loop.Do(ctx, func() { st = e.status() })
	return st, err
}

func (e *Experience) status() Status {
	st := Status{
		Name:     e.script.Name,
		Now:      e.sched.Now(),
		Entry:    e.tracker.Status(),
		Sequence: e.sequencer.Status(),
		Sensors:  e.sensors.Devices(),
		Anchors:  e.anchors.Reported(),
	}
	if run, ok := e.sequencer.LastRun(); ok {
		st.LastRun = &run
	}
	if w, ok := e.motion.Snapshot(); ok {
		st.Motion.Window = &w
	}
	if o, ok := e.motion.LastOutcome(); ok {
		st.Motion.LastOutcome = &o
	}
	st.Scene.Index, st.Scene.Name = e.scenes.Current()
	st.Scene.Count = e.scenes.Count()
	for _, cfg := range e.script.Materials {
		m := e.materials[cfg.ID]
		st.Materials = append(st.Materials, MaterialStatus{ID: m.ID(), Alpha: m.Alpha(), HasFaded: m.HasFaded()})
	}
	return st
}

func (e *Experience) emitScene() {
	i, name := e.scenes.Current()
	e.emit(EventSceneLoaded, SceneStatus{Index: i, Name: name, Count: e.scenes.Count()})
}

// do runs fn on the loop and returns fn's error, or the loop's.
func (e *Experience) do(ctx context.Context, fn func() error) error {
	var fnErr error
	if err := e.loop.Do(ctx, func() { fnErr = fn() }); err != nil {
		return err
	}
	return fnErr
}
