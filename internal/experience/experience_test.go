package experience

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/nerrad567/cinnamon-core/internal/bridge"
	"github.com/nerrad567/cinnamon-core/internal/motion"
	"github.com/nerrad567/cinnamon-core/internal/sequence"
	"github.com/nerrad567/cinnamon-core/internal/spatial"
	"github.com/nerrad567/cinnamon-core/internal/timeline"
)

const testScript = `
name: test
entry:
  faders:
    - image: logo
      fade_in_start: 0s
      fade_in_duration: 1s
      fade_out_start: 2s
      fade_out_duration: 1s
      audio: chime
cues:
  chime: 1s
  intro: 2s
  glow: 500ms
stages:
  - name: first
    cue: intro
    animation: glow
    spawn:
      prefab: sparkle
motion:
  duration: 10s
  outcome_a:
    prefab: cinnamon-roll
  outcome_b:
    prefab: croissant
materials:
  - id: wall
    delay: 2s
captions:
  - id: title
    text: Hi
    auto_start: true
scenes: [menu, kitchen]
`

// ─── Mock Dependencies ─────────────────────────────────────────────

type mockSender struct {
	mu   sync.Mutex
	msgs []any
}

func (m *mockSender) Send(_ string, v any, _ bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.msgs = append(m.msgs, v)
	return nil
}

func (m *mockSender) spawned() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []string
	for _, v := range m.msgs {
		if cmd, ok := v.(bridge.SpawnCommand); ok {
			out = append(out, cmd.Prefab)
		}
	}
	return out
}

type mockHub struct {
	mu       sync.Mutex
	channels []string
}

func (m *mockHub) Broadcast(channel string, _ any) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.channels = append(m.channels, channel)
}

func (m *mockHub) count(channel string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, c := range m.channels {
		if c == channel {
			n++
		}
	}
	return n
}

type mockTimings struct {
	mu     sync.Mutex
	states []string
}

func (m *mockTimings) WriteStageTiming(_, _ string, _ int, state string, _ time.Duration, _ time.Time) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.states = append(m.states, state)
}

type fixture struct {
	exp     *Experience
	sched   *timeline.Scheduler
	loop    *timeline.Loop
	out     *mockSender
	hub     *mockHub
	timings *mockTimings
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	script, err := ParseScript([]byte(testScript))
	if err != nil {
		t.Fatalf("ParseScript: %v", err)
	}
	sched := timeline.NewScheduler(time.Unix(0, 0), 20*time.Millisecond)
	loop := timeline.NewLoop(sched, timeline.LoopConfig{Tick: time.Millisecond}, nil)
	f := &fixture{sched: sched, loop: loop, out: &mockSender{}, hub: &mockHub{}, timings: &mockTimings{}}
	f.exp, err = New(script, Deps{Loop: loop, Out: f.out, Hub: f.hub, Timings: f.timings})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return f
}

// ─── Script ────────────────────────────────────────────────────────

func TestParseScript_Defaults(t *testing.T) {
	s, err := ParseScript([]byte(testScript))
	if err != nil {
		t.Fatalf("ParseScript: %v", err)
	}
	if s.Motion.Threshold != motion.DefaultThreshold {
		t.Errorf("threshold = %v, want %v", s.Motion.Threshold, motion.DefaultThreshold)
	}
	if s.Motion.Duration != 10*time.Second {
		t.Errorf("duration = %v, want 10s", s.Motion.Duration)
	}
	st := s.Stages[0]
	if st.Label != spatial.LabelLamp || st.Delay != sequence.DefaultStageDelay {
		t.Errorf("stage defaults = %+v", st)
	}
	if s.Cues["glow"] != 500*time.Millisecond {
		t.Errorf("glow = %v, want 500ms", s.Cues["glow"])
	}
}

func TestParseScript_NoMotionSection(t *testing.T) {
	s, err := ParseScript([]byte("name: bare\n"))
	if err != nil {
		t.Fatalf("ParseScript: %v", err)
	}
	if s.Motion.Duration != motion.DefaultDuration {
		t.Errorf("duration = %v, want %v", s.Motion.Duration, motion.DefaultDuration)
	}
}

func TestScript_ValidateCollectsProblems(t *testing.T) {
	_, err := ParseScript([]byte(`
stages:
  - name: a
    cue: missing
materials:
  - delay: 1s
motion:
  duration: -1s
scenes: ["  "]
`))
	if !errors.Is(err, ErrInvalidScript) {
		t.Fatalf("ParseScript() = %v, want ErrInvalidScript", err)
	}
	for _, want := range []string{
		`cue "missing" is not in the cue catalogue`,
		"materials[0].id is required",
		"motion.duration must be positive",
		"scenes[0] name is required",
	} {
		if !strings.Contains(err.Error(), want) {
			t.Errorf("error %q missing %q", err, want)
		}
	}
	if n := strings.Count(err.Error(), "; "); n != 3 {
		t.Errorf("got %d separators, want 3", n)
	}
}

func TestNew_RequiresLoopAndSender(t *testing.T) {
	s := &Script{}
	if _, err := New(s, Deps{Out: &mockSender{}}); !errors.Is(err, ErrNoLoop) {
		t.Errorf("New without loop = %v, want ErrNoLoop", err)
	}
	loop := timeline.NewLoop(timeline.NewScheduler(time.Unix(0, 0), 0), timeline.LoopConfig{}, nil)
	if _, err := New(s, Deps{Loop: loop}); !errors.Is(err, ErrNoSender) {
		t.Errorf("New without sender = %v, want ErrNoSender", err)
	}
}

// ─── Wiring ────────────────────────────────────────────────────────

func TestExperience_EntryStartsSequence(t *testing.T) {
	f := newFixture(t)

	if err := f.exp.start(true); err != nil {
		t.Fatalf("start: %v", err)
	}
	// Entry finishes at 3s and the 2s intro cue plays until 5s.
	f.sched.Advance(4 * time.Second)

	if f.hub.count(EventEntryComplete) != 1 {
		t.Fatalf("entry.complete broadcast %d times, want 1", f.hub.count(EventEntryComplete))
	}
	st := f.exp.status()
	if !st.Sequence.Active || st.Sequence.State != sequence.StatePlaying {
		t.Fatalf("sequence = %+v, want playing the intro cue", st.Sequence)
	}

	f.sched.Advance(1020 * time.Millisecond)
	st = f.exp.status()
	if !st.Sequence.Active || st.Sequence.State != sequence.StateWaiting {
		t.Fatalf("sequence = %+v, want waiting for trigger", st.Sequence)
	}

	// Nothing nearby yet, so the wait holds.
	f.sched.Advance(5 * time.Second)
	if f.exp.status().Sequence.State != sequence.StateWaiting {
		t.Fatal("sequence advanced without a trigger")
	}

	f.exp.anchors.Apply(bridge.AnchorReport{
		Hand:    spatial.Vec3{Y: 1},
		Anchors: []bridge.Anchor{{Handle: "lamp-1", Label: spatial.LabelLamp, Position: spatial.Vec3{Y: 1.05}}},
	})
	f.sched.Advance(3 * time.Second)

	st = f.exp.status()
	if st.Sequence.Active {
		t.Fatalf("sequence still active: %+v", st.Sequence)
	}
	if st.LastRun == nil || st.LastRun.Status != sequence.RunCompleted {
		t.Fatalf("last run = %+v, want completed", st.LastRun)
	}
	if st.LastRun.Stages[0].Trigger != "lamp-1" {
		t.Errorf("trigger = %q, want lamp-1", st.LastRun.Stages[0].Trigger)
	}
	if got := f.out.spawned(); len(got) != 1 || got[0] != "sparkle" {
		t.Errorf("spawned = %v, want [sparkle]", got)
	}
	if f.hub.count(EventSequenceTransition) == 0 {
		t.Error("no transitions broadcast")
	}

	f.timings.mu.Lock()
	states := strings.Join(f.timings.states, ",")
	f.timings.mu.Unlock()
	if !strings.HasPrefix(states, "playing,waiting,advancing") {
		t.Errorf("timed states = %s", states)
	}
}

func TestExperience_MotionOutcomeSpawns(t *testing.T) {
	tests := []struct {
		name     string
		messages []string
		want     []string
	}{
		{"below threshold", []string{"roll = 1.0, pitch = 0", "roll = 2.0, pitch = 0"}, []string{"cinnamon-roll"}},
		{"at threshold", []string{"roll = 5.0, pitch = 0"}, []string{"croissant"}},
		{"no messages", nil, nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			if _, err := f.exp.motion.BeginWindow(f.exp.script.Motion.Duration, f.exp.script.Motion.Threshold); err != nil {
				t.Fatalf("BeginWindow: %v", err)
			}
			for _, msg := range tt.messages {
				f.exp.onSensorMessage("esp-1", msg)
			}
			f.sched.Advance(10 * time.Second)

			got := f.out.spawned()
			if len(got) != len(tt.want) {
				t.Fatalf("spawned = %v, want %v", got, tt.want)
			}
			for i := range tt.want {
				if got[i] != tt.want[i] {
					t.Errorf("spawned[%d] = %q, want %q", i, got[i], tt.want[i])
				}
			}
			if f.hub.count(EventMotionOutcome) != 1 {
				t.Errorf("motion.outcome broadcast %d times, want 1", f.hub.count(EventMotionOutcome))
			}
		})
	}
}

func TestExperience_SensorMessageUpdatesDisplay(t *testing.T) {
	f := newFixture(t)
	f.exp.onSensorMessage("esp-1", "roll = 1, pitch = 1")
	if f.exp.display.Text() != "roll = 1, pitch = 1" {
		t.Errorf("display = %q", f.exp.display.Text())
	}
}

// ─── Loop operations ───────────────────────────────────────────────

func TestExperience_Operations(t *testing.T) {
	f := newFixture(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go f.loop.Run(ctx) //nolint:errcheck // stopped by cancel

	if err := f.exp.StartSequence(ctx, "api"); err != nil {
		t.Fatalf("StartSequence: %v", err)
	}
	if err := f.exp.StartSequence(ctx, "api"); !errors.Is(err, sequence.ErrAlreadyActive) {
		t.Errorf("second StartSequence = %v, want ErrAlreadyActive", err)
	}
	stopped, err := f.exp.StopSequence(ctx, "operator")
	if err != nil || !stopped {
		t.Errorf("StopSequence() = (%v, %v), want (true, nil)", stopped, err)
	}

	if err := f.exp.LoadNextScene(ctx); err != nil {
		t.Fatalf("LoadNextScene: %v", err)
	}
	if err := f.exp.LoadScene(ctx, "attic"); !errors.Is(err, bridge.ErrUnknownScene) {
		t.Errorf("LoadScene(attic) = %v, want ErrUnknownScene", err)
	}
	if _, err := f.exp.TriggerMaterial(ctx, "floor", true, 0); !errors.Is(err, ErrUnknownMaterial) {
		t.Errorf("TriggerMaterial(floor) = %v, want ErrUnknownMaterial", err)
	}
	if ok, err := f.exp.TriggerMaterial(ctx, "wall", false, 0); err != nil || !ok {
		t.Errorf("TriggerMaterial(wall) = (%v, %v), want (true, nil)", ok, err)
	}

	id, err := f.exp.BeginWindow(ctx, 0, nil)
	if err != nil || id == "" {
		t.Fatalf("BeginWindow() = (%q, %v)", id, err)
	}

	st, err := f.exp.Status(ctx)
	if err != nil {
		t.Fatalf("Status: %v", err)
	}
	if st.Scene.Name != "kitchen" {
		t.Errorf("scene = %q, want kitchen", st.Scene.Name)
	}
	if st.Motion.Window == nil || st.Motion.Window.ID != id {
		t.Errorf("motion window = %+v, want %s", st.Motion.Window, id)
	}
	if st.LastRun == nil || st.LastRun.Status != sequence.RunCancelled {
		t.Errorf("last run = %+v, want cancelled", st.LastRun)
	}
	if len(st.Materials) != 1 || st.Materials[0].ID != "wall" {
		t.Errorf("materials = %+v", st.Materials)
	}
}

func TestExperience_MenuQuitAndWindowClose(t *testing.T) {
	f := newFixture(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go f.loop.Run(ctx) //nolint:errcheck // stopped by cancel

	if err := f.exp.LoadNextScene(ctx); err != nil {
		t.Fatalf("LoadNextScene: %v", err)
	}
	if err := f.exp.LoadMainMenu(ctx); err != nil {
		t.Fatalf("LoadMainMenu: %v", err)
	}
	if err := f.exp.Quit(ctx); err != nil {
		t.Fatalf("Quit: %v", err)
	}

	closed, err := f.exp.CloseWindow(ctx)
	if err != nil || closed {
		t.Errorf("CloseWindow() with no window = (%v, %v), want (false, nil)", closed, err)
	}
	if _, err := f.exp.BeginWindow(ctx, 0, nil); err != nil {
		t.Fatalf("BeginWindow: %v", err)
	}
	if closed, err = f.exp.CloseWindow(ctx); err != nil || !closed {
		t.Errorf("CloseWindow() = (%v, %v), want (true, nil)", closed, err)
	}

	st, err := f.exp.Status(ctx)
	if err != nil {
		t.Fatalf("Status: %v", err)
	}
	if st.Scene.Index != 0 || st.Scene.Name != "menu" {
		t.Errorf("scene = %+v, want the main menu", st.Scene)
	}
	if st.Motion.Window != nil || st.Motion.LastOutcome == nil || st.Motion.LastOutcome.Decision != motion.NoDecision {
		t.Errorf("motion = %+v, want a closed window with no decision", st.Motion)
	}
	if f.hub.count(EventSceneLoaded) != 2 {
		t.Errorf("scene.loaded broadcast %d times, want 2", f.hub.count(EventSceneLoaded))
	}

	f.out.mu.Lock()
	defer f.out.mu.Unlock()
	var quits int
	for _, v := range f.out.msgs {
		if cmd, ok := v.(bridge.SceneCommand); ok && cmd.Action == bridge.SceneActionQuit {
			quits++
		}
	}
	if quits != 1 {
		t.Errorf("quit commands = %d, want 1", quits)
	}
}

func TestExperience_ReplaceStages(t *testing.T) {
	f := newFixture(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go f.loop.Run(ctx) //nolint:errcheck // stopped by cancel

	bad := sequence.NewStage("odd")
	bad.Cue = "missing"
	good := sequence.NewStage("second")
	good.Cue = "glow"

	tests := []struct {
		name    string
		stages  []sequence.Stage
		wantErr error
	}{
		{"uncatalogued cue", []sequence.Stage{bad}, ErrInvalidScript},
		{"duplicate names", []sequence.Stage{good, good}, sequence.ErrInvalidStage},
		{"valid", []sequence.Stage{sequence.NewStage("first"), good}, nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := f.exp.ReplaceStages(ctx, tt.stages)
			if tt.wantErr == nil && err != nil {
				t.Fatalf("ReplaceStages: %v", err)
			}
			if tt.wantErr != nil && !errors.Is(err, tt.wantErr) {
				t.Fatalf("ReplaceStages() = %v, want %v", err, tt.wantErr)
			}
		})
	}

	stages, err := f.exp.Stages(ctx)
	if err != nil {
		t.Fatalf("Stages: %v", err)
	}
	if len(stages) != 2 || stages[1].Name != "second" {
		t.Errorf("stages = %+v, want [first second]", stages)
	}

	if err := f.exp.StartSequence(ctx, "test"); err != nil {
		t.Fatalf("StartSequence: %v", err)
	}
	if err := f.exp.ReplaceStages(ctx, []sequence.Stage{good}); !errors.Is(err, sequence.ErrAlreadyActive) {
		t.Errorf("ReplaceStages during a run = %v, want ErrAlreadyActive", err)
	}
}
