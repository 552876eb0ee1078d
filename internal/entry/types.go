package entry

import (
	"fmt"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Default task timing.
const (
	DefaultFadeInDuration  = time.Second
	DefaultFadeOutStart    = 5 * time.Second
	DefaultFadeOutDuration = time.Second
	DefaultInactiveAfter   = 5 * time.Second
)

// TaskKind distinguishes the two task families.
type TaskKind string

const (
	KindFade       TaskKind = "fade"
	KindActivation TaskKind = "activation"
)

// Fader fades an image in, holds it, and fades it out again.
// Times are measured from the start of the run.
type Fader struct {
	Image           string        `yaml:"image" json:"image"`
	FadeInStart     time.Duration `yaml:"fade_in_start" json:"fade_in_start"`
	FadeInDuration  time.Duration `yaml:"fade_in_duration" json:"fade_in_duration"`
	FadeOutStart    time.Duration `yaml:"fade_out_start" json:"fade_out_start"`
	FadeOutDuration time.Duration `yaml:"fade_out_duration" json:"fade_out_duration"`
	Audio           string        `yaml:"audio" json:"audio,omitempty"`
}

// NewFader returns a Fader for image with default timing.
func NewFader(image string) Fader {
	return Fader{
		Image:           image,
		FadeInDuration:  DefaultFadeInDuration,
		FadeOutStart:    DefaultFadeOutStart,
		FadeOutDuration: DefaultFadeOutDuration,
	}
}

// UnmarshalYAML applies defaults for fields absent from the document.
func (f *Fader) UnmarshalYAML(value *yaml.Node) error {
	type raw Fader
	r := raw(NewFader(""))
	if err := value.Decode(&r); err != nil {
		return err
	}
	*f = Fader(r)
	return nil
}

// Hold is the time spent fully visible between fade-in and fade-out.
func (f Fader) Hold() time.Duration {
	return max(f.FadeOutStart-f.FadeInStart-f.FadeInDuration, 0)
}

// Length is the total time from run start to the end of the fade-out.
func (f Fader) Length() time.Duration {
	return f.FadeInStart + f.FadeInDuration + f.Hold() + f.FadeOutDuration
}

// Activation shows an object after a wait and optionally hides it again.
type Activation struct {
	Object           string        `yaml:"object" json:"object"`
	WaitFor          time.Duration `yaml:"wait_for" json:"wait_for"`
	ShouldDeactivate bool          `yaml:"should_deactivate" json:"should_deactivate"`
	InactiveAfter    time.Duration `yaml:"inactive_after" json:"inactive_after"`

	// Notify lists event names published when the object activates.
	Notify []string `yaml:"notify" json:"notify,omitempty"`
}

// NewActivation returns an Activation for object with default timing.
func NewActivation(object string) Activation {
	return Activation{
		Object:           object,
		ShouldDeactivate: true,
		InactiveAfter:    DefaultInactiveAfter,
	}
}

// UnmarshalYAML applies defaults for fields absent from the document.
func (a *Activation) UnmarshalYAML(value *yaml.Node) error {
	type raw Activation
	r := raw(NewActivation(""))
	if err := value.Decode(&r); err != nil {
		return err
	}
	*a = Activation(r)
	return nil
}

// Length is the total time from run start to the task's completion.
func (a Activation) Length() time.Duration {
	if a.ShouldDeactivate {
		return a.WaitFor + a.InactiveAfter
	}
	return a.WaitFor
}

// Plan is the set of tasks started together by one run.
type Plan struct {
	Faders      []Fader      `yaml:"faders" json:"faders"`
	Activations []Activation `yaml:"activations" json:"activations"`
}

// Len returns the number of tasks in the plan.
func (p Plan) Len() int {
	return len(p.Faders) + len(p.Activations)
}

// Validate reports every problem in the plan.
func (p Plan) Validate() error {
	var errs []string

	for i, f := range p.Faders {
		if strings.TrimSpace(f.Image) == "" {
			errs = append(errs, fmt.Sprintf("faders[%d].image is required", i))
		}
		if f.FadeInStart < 0 || f.FadeInDuration < 0 || f.FadeOutStart < 0 || f.FadeOutDuration < 0 {
			errs = append(errs, fmt.Sprintf("faders[%d] times must not be negative", i))
		}
	}
	for i, a := range p.Activations {
		if strings.TrimSpace(a.Object) == "" {
			errs = append(errs, fmt.Sprintf("activations[%d].object is required", i))
		}
		if a.WaitFor < 0 || a.InactiveAfter < 0 {
			errs = append(errs, fmt.Sprintf("activations[%d] times must not be negative", i))
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("%w: %s", ErrInvalidPlan, strings.Join(errs, "; "))
	}
	return nil
}

// Task is the tracked state of one timed task.
type Task struct {
	Name        string        `json:"name"`
	Kind        TaskKind      `json:"kind"`
	Start       time.Duration `json:"start"`
	Duration    time.Duration `json:"duration"`
	Complete    bool          `json:"complete"`
	CompletedAt *time.Time    `json:"completed_at,omitempty"`
}

// Status is a snapshot of the tracker.
type Status struct {
	Running     bool       `json:"running"`
	Complete    bool       `json:"complete"`
	Runs        int        `json:"runs"`
	Remaining   int        `json:"remaining"`
	StartedAt   *time.Time `json:"started_at,omitempty"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
	Tasks       []Task     `json:"tasks"`
}
