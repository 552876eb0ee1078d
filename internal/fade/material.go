package fade

import (
	"time"

	"github.com/nerrad567/cinnamon-core/internal/timeline"
)

// Surface receives opacity updates for a rendered object.
type Surface interface {
	SetOpacity(id string, alpha float64)
}

// Default material timing.
const (
	DefaultMaterialDuration = time.Second
)

// MaterialConfig configures a Material.
type MaterialConfig struct {
	ID          string        `yaml:"id" json:"id"`
	Duration    time.Duration `yaml:"duration" json:"duration"`
	Delay       time.Duration `yaml:"delay" json:"delay"`
	FadeInStart *bool         `yaml:"fade_in_on_start" json:"fade_in_on_start,omitempty"`
}

// FadeIn reports the configured start direction. Unset means fade in.
func (c MaterialConfig) FadeIn() bool {
	return c.FadeInStart == nil || *c.FadeInStart
}

// Material fades one surface in or out after a delay.
type Material struct {
	id       string
	surface  Surface
	sched    *timeline.Scheduler
	duration time.Duration
	delay    time.Duration
	fadeIn   bool
	hasFaded bool
	alpha    float64
	scope    *timeline.Scope
}

// NewMaterial creates a material. A zero duration takes the default.
func NewMaterial(sched *timeline.Scheduler, surface Surface, cfg MaterialConfig) *Material {
	if cfg.Duration <= 0 {
		cfg.Duration = DefaultMaterialDuration
	}
	return &Material{
		id:       cfg.ID,
		surface:  surface,
		sched:    sched,
		duration: cfg.Duration,
		delay:    cfg.Delay,
		fadeIn:   cfg.FadeIn(),
		scope:    sched.NewScope(),
	}
}

// ID returns the surface id.
func (m *Material) ID() string { return m.id }

// Alpha returns the last opacity written.
func (m *Material) Alpha() float64 { return m.alpha }

// HasFaded reports whether the delayed fade has started.
func (m *Material) HasFaded() bool { return m.hasFaded }

// Start sets the initial opacity for the configured direction and begins
// the delayed fade.
func (m *Material) Start() {
	if m.fadeIn {
		m.set(0)
	} else {
		m.set(1)
	}
	m.scheduleDelayed()
}

// FadeIn ramps 0 to 1, replacing any ramp in progress.
func (m *Material) FadeIn() {
	m.restart()
	Ramp(m.scope, 0, 1, m.duration, m.set, nil)
}

// FadeOut ramps 1 to 0, replacing any ramp in progress.
func (m *Material) FadeOut() {
	m.restart()
	Ramp(m.scope, 1, 0, m.duration, m.set, nil)
}

// TriggerFade re-runs the delayed fade in the given direction. It is
// ignored once the material has faded unless a positive delay is given.
// It reports whether the fade was restarted.
func (m *Material) TriggerFade(fadeIn bool, delay time.Duration) bool {
	if m.hasFaded && delay <= 0 {
		return false
	}
	m.restart()
	m.delay = delay
	m.fadeIn = fadeIn
	m.scheduleDelayed()
	return true
}

// Stop cancels pending and running fades, leaving the current opacity.
func (m *Material) Stop() {
	m.scope.Cancel()
}

func (m *Material) scheduleDelayed() {
	m.scope.After(m.delay, func() {
		if m.fadeIn {
			m.FadeIn()
		} else {
			m.FadeOut()
		}
		m.hasFaded = true
	})
}

func (m *Material) restart() {
	m.scope.Cancel()
	m.scope = m.sched.NewScope()
}

func (m *Material) set(alpha float64) {
	m.alpha = alpha
	if m.surface != nil {
		m.surface.SetOpacity(m.id, alpha)
	}
}
