package experience

import (
	"fmt"
	"math"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/nerrad567/cinnamon-core/internal/entry"
	"github.com/nerrad567/cinnamon-core/internal/fade"
	"github.com/nerrad567/cinnamon-core/internal/motion"
	"github.com/nerrad567/cinnamon-core/internal/sequence"
	"github.com/nerrad567/cinnamon-core/internal/spatial"
	"github.com/nerrad567/cinnamon-core/internal/typing"
)

// Script is the experience definition loaded from YAML.
type Script struct {
	Name      string                   `yaml:"name" json:"name"`
	Entry     entry.Plan               `yaml:"entry" json:"entry"`
	Stages    []sequence.Stage         `yaml:"stages" json:"stages"`
	Motion    MotionScript             `yaml:"motion" json:"motion"`
	Cues      map[string]time.Duration `yaml:"cues" json:"cues"`
	Materials []fade.MaterialConfig    `yaml:"materials" json:"materials"`
	Captions  []typing.Config          `yaml:"captions" json:"captions"`
	Scenes    []string                 `yaml:"scenes" json:"scenes"`
}

// MotionScript configures the sensor decision window and what each
// outcome spawns.
type MotionScript struct {
	Duration  time.Duration           `yaml:"duration" json:"duration"`
	Threshold float64                 `yaml:"threshold" json:"threshold"`
	OutcomeA  spatial.SpawnDescriptor `yaml:"outcome_a" json:"outcome_a"`
	OutcomeB  spatial.SpawnDescriptor `yaml:"outcome_b" json:"outcome_b"`
	// AutoStart opens a window as soon as the experience starts.
	AutoStart bool `yaml:"auto_start" json:"auto_start"`
}

// UnmarshalYAML applies the motion defaults before decoding.
func (m *MotionScript) UnmarshalYAML(value *yaml.Node) error {
	type raw MotionScript
	r := raw{Duration: motion.DefaultDuration, Threshold: motion.DefaultThreshold}
	if err := value.Decode(&r); err != nil {
		return err
	}
	*m = MotionScript(r)
	return nil
}

// LoadScript reads, parses and validates a script file.
func LoadScript(path string) (*Script, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading script: %w", err)
	}
	return ParseScript(data)
}

// ParseScript parses and validates a YAML script.
func ParseScript(data []byte) (*Script, error) {
	s := &Script{
		Motion: MotionScript{Duration: motion.DefaultDuration, Threshold: motion.DefaultThreshold},
	}
	if err := yaml.Unmarshal(data, s); err != nil {
		return nil, fmt.Errorf("parsing script: %w", err)
	}
	if err := s.Validate(); err != nil {
		return nil, err
	}
	return s, nil
}

// Validate reports every problem in the script.
func (s *Script) Validate() error {
	var errs []string

	if err := s.Entry.Validate(); err != nil {
		errs = append(errs, err.Error())
	}
	if err := sequence.ValidateStages(s.Stages); err != nil {
		errs = append(errs, err.Error())
	}

	errs = append(errs, s.uncataloguedCues(s.Stages)...)
	for i, f := range s.Entry.Faders {
		if f.Audio == "" {
			continue
		}
		if _, ok := s.Cues[f.Audio]; !ok {
			errs = append(errs, fmt.Sprintf("entry.faders[%d] audio %q is not in the cue catalogue", i, f.Audio))
		}
	}
	for id, d := range s.Cues {
		if d < 0 {
			errs = append(errs, fmt.Sprintf("cues.%s duration must not be negative", id))
		}
	}

	if s.Motion.Duration <= 0 {
		errs = append(errs, "motion.duration must be positive")
	}
	if math.IsNaN(s.Motion.Threshold) || math.IsInf(s.Motion.Threshold, 0) {
		errs = append(errs, "motion.threshold must be a finite number")
	}

	seen := make(map[string]struct{}, len(s.Materials))
	for i, m := range s.Materials {
		if m.ID == "" {
			errs = append(errs, fmt.Sprintf("materials[%d].id is required", i))
			continue
		}
		if _, dup := seen[m.ID]; dup {
			errs = append(errs, fmt.Sprintf("materials[%d] duplicate id %q", i, m.ID))
		}
		seen[m.ID] = struct{}{}
		if m.Delay < 0 {
			errs = append(errs, fmt.Sprintf("materials[%d].delay must not be negative", i))
		}
	}

	for i, c := range s.Captions {
		if c.ID == "" {
			errs = append(errs, fmt.Sprintf("captions[%d].id is required", i))
		}
		if c.Speed <= 0 {
			errs = append(errs, fmt.Sprintf("captions[%d].speed must be positive", i))
		}
	}

	for i, name := range s.Scenes {
		if strings.TrimSpace(name) == "" {
			errs = append(errs, fmt.Sprintf("scenes[%d] name is required", i))
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("%w: %s", ErrInvalidScript, strings.Join(errs, "; "))
	}
	return nil
}

// ValidateStages checks a replacement stage list against the script's cue
// catalogue.
func (s *Script) ValidateStages(stages []sequence.Stage) error {
	if err := sequence.ValidateStages(stages); err != nil {
		return err
	}
	if errs := s.uncataloguedCues(stages); len(errs) > 0 {
		return fmt.Errorf("%w: %s", ErrInvalidScript, strings.Join(errs, "; "))
	}
	return nil
}

func (s *Script) uncataloguedCues(stages []sequence.Stage) []string {
	var errs []string
	for i, st := range stages {
		for _, cue := range []string{st.Cue, st.Animation} {
			if cue == "" {
				continue
			}
			if _, ok := s.Cues[cue]; !ok {
				errs = append(errs, fmt.Sprintf("stages[%d] cue %q is not in the cue catalogue", i, cue))
			}
		}
	}
	return errs
}
