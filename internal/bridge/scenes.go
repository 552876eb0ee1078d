package bridge

import (
	"fmt"

	"github.com/nerrad567/cinnamon-core/internal/infrastructure/mqtt"
)

// Scenes switches between the experience's scenes. Index 0 is the main menu.
type Scenes struct {
	out     Sender
	logger  Logger
	names   []string
	current int
}

// NewScenes creates a scene loader over the ordered scene names.
func NewScenes(out Sender, names []string, logger Logger) *Scenes {
	if logger == nil {
		logger = noopLogger{}
	}
	return &Scenes{out: out, logger: logger, names: append([]string(nil), names...)}
}

// Count returns the number of scenes.
func (s *Scenes) Count() int {
	return len(s.names)
}

// Current returns the index and name of the loaded scene.
func (s *Scenes) Current() (int, string) {
	if len(s.names) == 0 {
		return 0, ""
	}
	return s.current, s.names[s.current]
}

// LoadIndex loads scene i.
func (s *Scenes) LoadIndex(i int) error {
	if i < 0 || i >= len(s.names) {
		return fmt.Errorf("%w: index %d", ErrUnknownScene, i)
	}
	return s.load(i)
}

// LoadName loads the scene called name.
func (s *Scenes) LoadName(name string) error {
	for i, n := range s.names {
		if n == name {
			return s.load(i)
		}
	}
	return fmt.Errorf("%w: %s", ErrUnknownScene, name)
}

// Next loads the scene after the current one, wrapping to the first.
func (s *Scenes) Next() error {
	if len(s.names) == 0 {
		return fmt.Errorf("%w: no scenes", ErrUnknownScene)
	}
	return s.load((s.current + 1) % len(s.names))
}

// MainMenu loads scene 0.
func (s *Scenes) MainMenu() error {
	return s.LoadIndex(0)
}

// Quit asks the headset application to exit.
func (s *Scenes) Quit() error {
	s.logger.Info("quitting application")
	return s.out.Send(mqtt.Topics{}.Command(mqtt.CommandScene), SceneCommand{Action: SceneActionQuit}, false)
}

func (s *Scenes) load(i int) error {
	if err := s.out.Send(mqtt.Topics{}.Command(mqtt.CommandScene), SceneCommand{
		Action: SceneActionLoad,
		Index:  i,
		Name:   s.names[i],
	}, false); err != nil {
		return err
	}
	s.current = i
	s.logger.Info("scene loaded", "index", i, "name", s.names[i])
	return nil
}
