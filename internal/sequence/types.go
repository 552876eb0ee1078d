package sequence

import (
	"fmt"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/nerrad567/cinnamon-core/internal/spatial"
)

// DefaultStageDelay is the pause after a stage's spawn request.
const DefaultStageDelay = time.Second

// Stage is one ordered unit of the script.
type Stage struct {
	Name      string                   `yaml:"name" json:"name"`
	Cue       string                   `yaml:"cue,omitempty" json:"cue,omitempty"`
	Label     spatial.Label            `yaml:"label" json:"label"`
	Animation string                   `yaml:"animation,omitempty" json:"animation,omitempty"`
	Spawn     *spatial.SpawnDescriptor `yaml:"spawn,omitempty" json:"spawn,omitempty"`
	Delay     time.Duration            `yaml:"delay" json:"delay"`
}

// UnmarshalYAML applies stage defaults before decoding.
func (s *Stage) UnmarshalYAML(value *yaml.Node) error {
	type raw Stage
	r := raw(NewStage(""))
	if err := value.Decode(&r); err != nil {
		return err
	}
	r.Label = spatial.ParseLabel(string(r.Label))
	*s = Stage(r)
	return nil
}

// NewStage returns a stage with default label and delay.
func NewStage(name string) Stage {
	return Stage{Name: name, Label: spatial.DefaultLabel, Delay: DefaultStageDelay}
}

// Validate checks a single stage.
func (s Stage) Validate() error {
	if s.Name == "" {
		return fmt.Errorf("%w: name is required", ErrInvalidStage)
	}
	if s.Delay < 0 {
		return fmt.Errorf("%w: %s: delay must not be negative", ErrInvalidStage, s.Name)
	}
	if s.Spawn != nil && s.Spawn.DestroyDelay < 0 {
		return fmt.Errorf("%w: %s: spawn destroy_delay must not be negative", ErrInvalidStage, s.Name)
	}
	return nil
}

// ValidateStages checks every stage and rejects duplicate names.
func ValidateStages(stages []Stage) error {
	seen := make(map[string]struct{}, len(stages))
	for i, s := range stages {
		if err := s.Validate(); err != nil {
			return fmt.Errorf("stage %d: %w", i, err)
		}
		if _, dup := seen[s.Name]; dup {
			return fmt.Errorf("stage %d: %w: duplicate name %q", i, ErrInvalidStage, s.Name)
		}
		seen[s.Name] = struct{}{}
	}
	return nil
}

// State is a sequencer state.
type State string

const (
	StateIdle      State = "idle"
	StatePlaying   State = "playing"
	StateWaiting   State = "waiting"
	StateAdvancing State = "advancing"
)

// Transition describes one state change.
type Transition struct {
	RunID string    `json:"run_id"`
	From  State     `json:"from"`
	To    State     `json:"to"`
	Index int       `json:"index"`
	Stage string    `json:"stage,omitempty"`
	At    time.Time `json:"at"`
}

// Listener is notified synchronously on every state change.
type Listener interface {
	OnTransition(Transition)
}

// ListenerFunc adapts a function to Listener.
type ListenerFunc func(Transition)

// OnTransition calls f(t).
func (f ListenerFunc) OnTransition(t Transition) { f(t) }

// Status is a snapshot of the sequencer.
type Status struct {
	State  State  `json:"state"`
	Index  int    `json:"index"`
	Active bool   `json:"active"`
	Stage  string `json:"stage,omitempty"`
	Stages int    `json:"stages"`
	RunID  string `json:"run_id,omitempty"`
}

// RunStatus is the persisted state of a run.
type RunStatus string

const (
	RunRunning   RunStatus = "running"
	RunCompleted RunStatus = "completed"
	RunCancelled RunStatus = "cancelled"
)

// StageResult records what happened during one stage.
type StageResult struct {
	Index     int       `json:"index"`
	Name      string    `json:"name"`
	Trigger   string    `json:"trigger,omitempty"`
	Skipped   []string  `json:"skipped,omitempty"`
	StartedAt time.Time `json:"started_at"`
	EndedAt   time.Time `json:"ended_at,omitempty"`
}

// Run is one pass through the stage list.
type Run struct {
	ID              string        `json:"id"`
	Status          RunStatus     `json:"status"`
	Source          string        `json:"source,omitempty"`
	StartedAt       time.Time     `json:"started_at"`
	CompletedAt     *time.Time    `json:"completed_at,omitempty"`
	StagesTotal     int           `json:"stages_total"`
	StagesCompleted int           `json:"stages_completed"`
	CurrentStage    int           `json:"current_stage"`
	StopReason      string        `json:"stop_reason,omitempty"`
	Stages          []StageResult `json:"stages"`
	Duration        time.Duration `json:"duration,omitempty"`
}
