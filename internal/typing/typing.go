// Package typing reveals caption text one character at a time.
package typing

import (
	"time"

	"gopkg.in/yaml.v3"

	"github.com/nerrad567/cinnamon-core/internal/timeline"
)

// Defaults for a caption.
const (
	DefaultSpeed     = 100 * time.Millisecond
	DefaultLoopDelay = 2 * time.Second
)

// Sink displays caption text.
type Sink interface {
	SetText(id, text string)
}

// Config describes one caption.
type Config struct {
	ID        string        `yaml:"id" json:"id"`
	Text      string        `yaml:"text" json:"text"`
	Speed     time.Duration `yaml:"speed" json:"speed"`
	Loop      bool          `yaml:"loop" json:"loop"`
	LoopDelay time.Duration `yaml:"loop_delay" json:"loop_delay"`
	AutoStart bool          `yaml:"auto_start" json:"auto_start"`
}

// UnmarshalYAML applies defaults for fields absent from the document.
func (c *Config) UnmarshalYAML(value *yaml.Node) error {
	type raw Config
	r := raw{Speed: DefaultSpeed, LoopDelay: DefaultLoopDelay}
	if err := value.Decode(&r); err != nil {
		return err
	}
	*c = Config(r)
	return nil
}

// Typewriter types Text into a Sink, one rune per Speed. Each pass
// starts from an empty caption; looping passes are separated by LoopDelay.
type Typewriter struct {
	sched *timeline.Scheduler
	sink  Sink
	cfg   Config
	runes []rune

	scope  *timeline.Scope
	shown  int
	passes int
	done   bool
}

// New creates a typewriter. A non-positive Speed uses DefaultSpeed and a
// negative LoopDelay is treated as zero.
func New(sched *timeline.Scheduler, sink Sink, cfg Config) *Typewriter {
	if cfg.Speed <= 0 {
		cfg.Speed = DefaultSpeed
	}
	if cfg.LoopDelay < 0 {
		cfg.LoopDelay = 0
	}
	return &Typewriter{sched: sched, sink: sink, cfg: cfg, runes: []rune(cfg.Text)}
}

// ID returns the caption id.
func (t *Typewriter) ID() string { return t.cfg.ID }

// Start restarts typing from an empty caption.
func (t *Typewriter) Start() {
	t.Stop()
	t.scope = t.sched.NewScope()
	t.passes = 0
	t.done = false
	t.pass()
}

// Stop cancels typing and leaves the caption as it is.
func (t *Typewriter) Stop() {
	if t.scope != nil {
		t.scope.Cancel()
	}
}

// Text returns the currently displayed text.
func (t *Typewriter) Text() string { return string(t.runes[:t.shown]) }

// Passes returns the number of completed passes since Start.
func (t *Typewriter) Passes() int { return t.passes }

// Done reports whether a non-looping caption has finished.
func (t *Typewriter) Done() bool { return t.done }

func (t *Typewriter) pass() {
	t.shown = 0
	t.set()
	if len(t.runes) == 0 {
		t.passes++
		t.done = true
		return
	}
	t.typeNext()
}

func (t *Typewriter) typeNext() {
	t.shown++
	t.set()
	t.scope.After(t.cfg.Speed, func() {
		if t.shown < len(t.runes) {
			t.typeNext()
			return
		}
		t.passes++
		if !t.cfg.Loop {
			t.done = true
			return
		}
		t.scope.After(t.cfg.LoopDelay, t.pass)
	})
}

func (t *Typewriter) set() {
	if t.sink != nil {
		t.sink.SetText(t.cfg.ID, t.Text())
	}
}
