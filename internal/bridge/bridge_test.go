package bridge

import (
	"context"
	"encoding/json"
	"errors"
	"math/rand/v2"
	"sync"
	"testing"
	"time"

	"github.com/nerrad567/cinnamon-core/internal/infrastructure/mqtt"
	"github.com/nerrad567/cinnamon-core/internal/sequence"
	"github.com/nerrad567/cinnamon-core/internal/spatial"
	"github.com/nerrad567/cinnamon-core/internal/timeline"
)

// ─── Mock Dependencies ─────────────────────────────────────────────

type sent struct {
	topic    string
	v        any
	retained bool
}

type mockSender struct {
	mu   sync.Mutex
	msgs []sent
	err  error
}

func (m *mockSender) Send(topic string, v any, retained bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	m.msgs = append(m.msgs, sent{topic: topic, v: v, retained: retained})
	return nil
}

func (m *mockSender) getSent() []sent {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]sent(nil), m.msgs...)
}

type mockSubscriber struct {
	mu       sync.Mutex
	handlers map[string]mqtt.MessageHandler
}

func (m *mockSubscriber) Subscribe(topic string, _ byte, handler mqtt.MessageHandler) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.handlers == nil {
		m.handlers = make(map[string]mqtt.MessageHandler)
	}
	m.handlers[topic] = handler
	return nil
}

func (m *mockSubscriber) deliver(t *testing.T, pattern, topic string, payload []byte) error {
	t.Helper()
	m.mu.Lock()
	h, ok := m.handlers[pattern]
	m.mu.Unlock()
	if !ok {
		t.Fatalf("no subscription for %s", pattern)
	}
	return h(topic, payload)
}

// mockPoster queues posted work until run is called.
type mockPoster struct {
	mu    sync.Mutex
	queue []func()
	err   error
}

func (m *mockPoster) Post(fn func()) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	m.queue = append(m.queue, fn)
	return nil
}

func (m *mockPoster) run() {
	m.mu.Lock()
	q := m.queue
	m.queue = nil
	m.mu.Unlock()
	for _, fn := range q {
		fn()
	}
}

type mockPublisher struct {
	mu     sync.Mutex
	topics []string
	fail   bool
}

func (m *mockPublisher) PublishJSON(topic string, _ any, _ bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.fail {
		return errors.New("broker down")
	}
	m.topics = append(m.topics, topic)
	return nil
}

type fixedLocator struct{ pos spatial.Vec3 }

func (f fixedLocator) HandPosition() spatial.Vec3 { return f.pos }

// ─── Outbox ────────────────────────────────────────────────────────

func TestOutbox_FullAndDrain(t *testing.T) {
	pub := &mockPublisher{}
	o := NewOutbox(pub, 2, nil)

	for i := 0; i < 2; i++ {
		if err := o.Send("a", i, false); err != nil {
			t.Fatalf("Send: %v", err)
		}
	}
	if err := o.Send("a", 3, false); !errors.Is(err, ErrOutboxFull) {
		t.Fatalf("Send on full outbox = %v, want ErrOutboxFull", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	o.Run(ctx)

	if len(pub.topics) != 2 {
		t.Errorf("published %d, want 2", len(pub.topics))
	}
	dropped, failed := o.Stats()
	if dropped != 1 || failed != 0 {
		t.Errorf("Stats() = (%d, %d), want (1, 0)", dropped, failed)
	}
}

func TestOutbox_CountsFailures(t *testing.T) {
	pub := &mockPublisher{fail: true}
	o := NewOutbox(pub, 4, nil)
	if err := o.Send("a", 1, false); err != nil {
		t.Fatalf("Send: %v", err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	o.Run(ctx)
	if _, failed := o.Stats(); failed != 1 {
		t.Errorf("failed = %d, want 1", failed)
	}
}

// ─── Cues ──────────────────────────────────────────────────────────

func TestCues_PlayCompletesAfterDuration(t *testing.T) {
	sched := timeline.NewScheduler(time.Unix(0, 0), 0)
	out := &mockSender{}
	cues := NewCues(sched, out, map[string]time.Duration{"intro": 2 * time.Second}, nil)

	done := false
	if _, err := cues.Play(sequence.Cue{ID: "intro", Target: "lamp-1"}, func() { done = true }); err != nil {
		t.Fatalf("Play: %v", err)
	}

	msgs := out.getSent()
	if len(msgs) != 1 || msgs[0].topic != "cinnamon/command/cue" {
		t.Fatalf("sent = %+v, want one cue command", msgs)
	}
	cmd := msgs[0].v.(CueCommand)
	if cmd.Action != CueActionPlay || cmd.Cue != "intro" || cmd.Target != "lamp-1" || cmd.Instance == "" {
		t.Errorf("command = %+v", cmd)
	}

	sched.Advance(1999 * time.Millisecond)
	if done {
		t.Fatal("done before cue duration elapsed")
	}
	sched.Advance(time.Millisecond)
	if !done {
		t.Fatal("done not called at cue end")
	}
	if cues.Playing() != 0 {
		t.Errorf("Playing() = %d, want 0", cues.Playing())
	}
}

func TestCues_UnknownCue(t *testing.T) {
	sched := timeline.NewScheduler(time.Unix(0, 0), 0)
	out := &mockSender{}
	cues := NewCues(sched, out, nil, nil)

	p, err := cues.Play(sequence.Cue{ID: "missing"}, func() { t.Error("done called for unknown cue") })
	if !errors.Is(err, ErrUnknownCue) || p != nil {
		t.Fatalf("Play() = %v, want ErrUnknownCue", err)
	}
	if len(out.getSent()) != 0 {
		t.Error("unknown cue published a command")
	}
	sched.Advance(time.Minute)
}

func TestCues_StopDropsCompletion(t *testing.T) {
	sched := timeline.NewScheduler(time.Unix(0, 0), 0)
	out := &mockSender{}
	audio := Audio{NewCues(sched, out, map[string]time.Duration{"chime": time.Second}, nil)}

	p, err := audio.Play("chime", func() { t.Error("done called after stop") })
	if err != nil {
		t.Fatalf("Play: %v", err)
	}
	p.Stop()
	p.Stop()
	sched.Advance(2 * time.Second)

	msgs := out.getSent()
	if len(msgs) != 2 {
		t.Fatalf("sent %d commands, want 2", len(msgs))
	}
	play, stop := msgs[0].v.(CueCommand), msgs[1].v.(CueCommand)
	if stop.Action != CueActionStop || stop.Instance != play.Instance {
		t.Errorf("second command = %+v, want stop of instance %s", stop, play.Instance)
	}
}

func TestCues_StopAfterFinishIsNoop(t *testing.T) {
	sched := timeline.NewScheduler(time.Unix(0, 0), 0)
	out := &mockSender{}
	cues := NewCues(sched, out, map[string]time.Duration{"chime": time.Second}, nil)

	p, err := cues.Play(sequence.Cue{ID: "chime"}, nil)
	if err != nil {
		t.Fatalf("Play: %v", err)
	}
	sched.Advance(time.Second)
	p.Stop()
	if n := len(out.getSent()); n != 1 {
		t.Errorf("sent %d commands, want only the play", n)
	}
}

func TestCues_StopLeavesOtherInstancesPlaying(t *testing.T) {
	tests := []struct {
		name  string
		cue   string
		audio string
	}{
		{"same cue id", "chime", "chime"},
		{"different cue ids", "chime", "bell"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sched := timeline.NewScheduler(time.Unix(0, 0), 20*time.Millisecond)
			out := &mockSender{}
			cues := NewCues(sched, out, map[string]time.Duration{"chime": 2 * time.Second, "bell": time.Second}, nil)

			stage := sequence.NewStage("s1")
			stage.Cue = tt.cue
			seq, err := sequence.New([]sequence.Stage{stage}, sequence.Config{}, sequence.Deps{
				Scheduler: sched,
				Cues:      cues,
			})
			if err != nil {
				t.Fatalf("sequence.New: %v", err)
			}
			if err := seq.Start("test"); err != nil {
				t.Fatalf("Start: %v", err)
			}

			p, err := Audio{cues}.Play(tt.audio, nil)
			if err != nil {
				t.Fatalf("audio Play: %v", err)
			}
			sched.Advance(500 * time.Millisecond)
			p.Stop()
			if cues.Playing() != 1 {
				t.Fatalf("Playing() = %d after stopping the audio, want 1", cues.Playing())
			}

			sched.Advance(10 * time.Second)
			if st := seq.Status(); st.State == sequence.StatePlaying {
				t.Fatalf("sequencer stuck after 10s: %+v", st)
			}
		})
	}
}

// ─── Spawner ───────────────────────────────────────────────────────

func TestSpawner_Spawn(t *testing.T) {
	sched := timeline.NewScheduler(time.Unix(0, 0), 0)
	out := &mockSender{}
	sp := NewSpawner(sched, out, fixedLocator{pos: spatial.Vec3{X: 1, Y: 1, Z: 1}}, SpawnerConfig{
		Parent: "hand",
		Rand:   rand.New(rand.NewPCG(1, 2)),
	}, nil)

	sp.SetTarget(spatial.SpawnDescriptor{
		Prefab:         "sparkle",
		Offset:         spatial.Vec3{Y: 0.5},
		RandomRotation: true,
		AsChild:        true,
		DestroyAfter:   true,
	})
	sp.Spawn()

	msgs := out.getSent()
	if len(msgs) != 1 {
		t.Fatalf("sent %d commands, want 1", len(msgs))
	}
	cmd := msgs[0].v.(SpawnCommand)
	if cmd.Prefab != "sparkle" || cmd.Parent != "hand" {
		t.Errorf("command = %+v", cmd)
	}
	if cmd.Position != (spatial.Vec3{X: 1, Y: 1.5, Z: 1}) {
		t.Errorf("position = %+v, want {1 1.5 1}", cmd.Position)
	}
	if cmd.Rotation.Yaw < 0 || cmd.Rotation.Yaw >= 360 {
		t.Errorf("yaw = %v, want [0, 360)", cmd.Rotation.Yaw)
	}
	if sp.Live() != 1 {
		t.Fatalf("Live() = %d, want 1", sp.Live())
	}

	sched.Advance(spatial.DefaultDestroyDelay)
	if sp.Live() != 0 {
		t.Errorf("Live() after destroy delay = %d, want 0", sp.Live())
	}
	msgs = out.getSent()
	if len(msgs) != 2 || msgs[1].topic != "cinnamon/command/despawn" {
		t.Fatalf("sent = %+v, want despawn", msgs)
	}
	if d := msgs[1].v.(DespawnCommand); d.Instance != cmd.Instance {
		t.Errorf("despawned %q, want %q", d.Instance, cmd.Instance)
	}
}

func TestSpawner_NoPrefab(t *testing.T) {
	sched := timeline.NewScheduler(time.Unix(0, 0), 0)
	out := &mockSender{}
	sp := NewSpawner(sched, out, nil, SpawnerConfig{}, nil)

	sp.Spawn()
	sp.SetTarget(spatial.SpawnDescriptor{})
	sp.Spawn()

	if n := len(out.getSent()); n != 0 {
		t.Errorf("sent %d commands, want 0", n)
	}
}

// ─── Anchors ───────────────────────────────────────────────────────

func TestAnchors_FindNearby(t *testing.T) {
	a := NewAnchors()
	a.Apply(AnchorReport{
		Hand: spatial.Vec3{X: 0, Y: 1, Z: 0},
		Anchors: []Anchor{
			{Handle: "ceiling-1", Label: "CEILING", Position: spatial.Vec3{Y: 3}, Extent: 0.5},
			{Handle: "lamp-1", Label: "LAMP", Position: spatial.Vec3{X: 0.15, Y: 1}, Extent: 0.1},
			{Handle: "plant", Label: "PLANT", Position: spatial.Vec3{X: 0.05, Y: 1}},
		},
	})

	got := a.FindNearby(a.HandPosition(), 0.1)
	want := []spatial.Detection{
		{Label: spatial.LabelLamp, Handle: "lamp-1"},
		{Label: spatial.LabelOther, Handle: "plant"},
	}
	if len(got) != len(want) {
		t.Fatalf("FindNearby() = %+v, want %+v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("FindNearby()[%d] = %+v, want %+v", i, got[i], want[i])
		}
	}
}

func TestSubscribeAnchors(t *testing.T) {
	sub := &mockSubscriber{}
	loop := &mockPoster{}
	a := NewAnchors()
	if err := SubscribeAnchors(sub, 1, loop, a, nil); err != nil {
		t.Fatalf("SubscribeAnchors: %v", err)
	}

	payload, _ := json.Marshal(AnchorReport{Hand: spatial.Vec3{X: 2}})
	if err := sub.deliver(t, "cinnamon/headset/anchors", "cinnamon/headset/anchors", payload); err != nil {
		t.Fatalf("deliver: %v", err)
	}
	if a.Reported() {
		t.Fatal("report applied before the loop ran")
	}
	loop.run()
	if a.HandPosition().X != 2 {
		t.Errorf("HandPosition() = %+v", a.HandPosition())
	}

	err := sub.deliver(t, "cinnamon/headset/anchors", "cinnamon/headset/anchors", []byte("{"))
	if !errors.Is(err, ErrInvalidReport) {
		t.Errorf("bad payload = %v, want ErrInvalidReport", err)
	}
}

// ─── Surfaces ──────────────────────────────────────────────────────

func TestQuantize(t *testing.T) {
	tests := []struct {
		in, want float64
	}{
		{-1, 0},
		{0, 0},
		{0.001, 0},
		{0.5, 128.0 / 255},
		{1, 1},
		{3, 1},
	}
	for _, tt := range tests {
		if got := Quantize(tt.in); got != tt.want {
			t.Errorf("Quantize(%v) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestSurfaces_DeduplicatesOpacity(t *testing.T) {
	out := &mockSender{}
	s := NewSurfaces(out, nil)

	s.SetOpacity("logo", 0.5)
	s.SetOpacity("logo", 0.5001)
	s.SetOpacity("title", 0.5)
	s.SetOpacity("logo", 1)
	s.SetVisible("logo", false)

	msgs := out.getSent()
	if len(msgs) != 4 {
		t.Fatalf("sent %d commands, want 4", len(msgs))
	}
	if msgs[3].topic != "cinnamon/command/visible" {
		t.Errorf("last topic = %s", msgs[3].topic)
	}
	if a, _ := s.Opacity("logo"); a != 1 {
		t.Errorf("Opacity(logo) = %v, want 1", a)
	}
}

func TestDisplay_SkipsBlank(t *testing.T) {
	out := &mockSender{}
	d := NewDisplay(out, nil)

	d.OnMessage("1.5,0.2")
	d.OnMessage("   ")
	d.OnMessage("")

	if d.Text() != "1.5,0.2" {
		t.Errorf("Text() = %q", d.Text())
	}
	msgs := out.getSent()
	if len(msgs) != 1 || !msgs[0].retained {
		t.Errorf("sent = %+v, want one retained message", msgs)
	}
}

// ─── Scenes ────────────────────────────────────────────────────────

func TestScenes(t *testing.T) {
	out := &mockSender{}
	s := NewScenes(out, []string{"menu", "kitchen", "garden"}, nil)

	if err := s.LoadName("garden"); err != nil {
		t.Fatalf("LoadName: %v", err)
	}
	if err := s.Next(); err != nil {
		t.Fatalf("Next: %v", err)
	}
	if i, name := s.Current(); i != 0 || name != "menu" {
		t.Errorf("Current() after wrap = (%d, %q), want (0, menu)", i, name)
	}
	if err := s.LoadIndex(5); !errors.Is(err, ErrUnknownScene) {
		t.Errorf("LoadIndex(5) = %v, want ErrUnknownScene", err)
	}
	if err := s.LoadName("attic"); !errors.Is(err, ErrUnknownScene) {
		t.Errorf("LoadName(attic) = %v, want ErrUnknownScene", err)
	}
	if err := s.Quit(); err != nil {
		t.Fatalf("Quit: %v", err)
	}

	msgs := out.getSent()
	if len(msgs) != 3 {
		t.Fatalf("sent %d commands, want 3", len(msgs))
	}
	if cmd := msgs[2].v.(SceneCommand); cmd.Action != SceneActionQuit {
		t.Errorf("last command = %+v, want quit", cmd)
	}
}

func TestScenes_NextWithoutScenes(t *testing.T) {
	s := NewScenes(&mockSender{}, nil, nil)
	if err := s.Next(); !errors.Is(err, ErrUnknownScene) {
		t.Errorf("Next() = %v, want ErrUnknownScene", err)
	}
}

// ─── Sensor feed ───────────────────────────────────────────────────

func TestSensorFeed_PreservesOrder(t *testing.T) {
	sub := &mockSubscriber{}
	loop := &mockPoster{}

	var got []string
	feed := NewSensorFeed(loop, func(device, payload string) {
		got = append(got, device+":"+payload)
	}, nil)
	if err := feed.Subscribe(sub, 1); err != nil {
		t.Fatalf("Subscribe: %v", err)
	}

	raw := mqtt.Topics{}.AllSensorRaw()
	for _, p := range []string{"0.1", "0.2", "0.3"} {
		if err := sub.deliver(t, raw, "cinnamon/sensor/esp-1/raw", []byte(p)); err != nil {
			t.Fatalf("deliver: %v", err)
		}
	}
	loop.run()

	want := []string{"esp-1:0.1", "esp-1:0.2", "esp-1:0.3"}
	if len(got) != len(want) {
		t.Fatalf("got %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("got[%d] = %q, want %q", i, got[i], want[i])
		}
	}

	status, _ := json.Marshal(mqtt.StatusPayload{Status: mqtt.StatusOffline, Reason: "unexpected disconnect"})
	if err := sub.deliver(t, mqtt.Topics{}.AllSensorStatus(), "cinnamon/sensor/esp-1/status", status); err != nil {
		t.Fatalf("deliver status: %v", err)
	}
	devices := feed.Devices()
	if len(devices) != 1 || devices[0].Online {
		t.Errorf("Devices() = %+v, want esp-1 offline", devices)
	}
}

func TestSensorFeed_PostFailure(t *testing.T) {
	sub := &mockSubscriber{}
	loop := &mockPoster{err: errors.New("loop stopped")}
	feed := NewSensorFeed(loop, func(string, string) {}, nil)
	if err := feed.Subscribe(sub, 0); err != nil {
		t.Fatalf("Subscribe: %v", err)
	}
	if err := sub.deliver(t, mqtt.Topics{}.AllSensorRaw(), "cinnamon/sensor/esp-1/raw", []byte("1")); err == nil {
		t.Error("expected error when the loop rejects work")
	}
}

// ─── Events ────────────────────────────────────────────────────────

func TestEvents_Publish(t *testing.T) {
	out := &mockSender{}
	at := time.Unix(10, 0)
	if err := NewEvents(out).Publish("sequence.transition", at, map[string]int{"index": 1}); err != nil {
		t.Fatalf("Publish: %v", err)
	}
	msgs := out.getSent()
	if len(msgs) != 1 || msgs[0].topic != "cinnamon/event/sequence.transition" {
		t.Fatalf("sent = %+v", msgs)
	}
	if ev := msgs[0].v.(Event); !ev.Timestamp.Equal(at) {
		t.Errorf("timestamp = %v", ev.Timestamp)
	}
}
