package bridge

import (
	"math"
	"strings"

	"github.com/nerrad567/cinnamon-core/internal/infrastructure/mqtt"
)

// Surfaces publishes opacity and visibility for scene surfaces.
// Opacity is quantised to 1/255 and repeated values are not re-sent.
type Surfaces struct {
	out    Sender
	logger Logger
	alpha  map[string]float64
}

// NewSurfaces creates a surface adapter.
func NewSurfaces(out Sender, logger Logger) *Surfaces {
	if logger == nil {
		logger = noopLogger{}
	}
	return &Surfaces{out: out, logger: logger, alpha: make(map[string]float64)}
}

// Quantize clamps alpha to [0,1] and rounds it to the nearest 1/255.
func Quantize(alpha float64) float64 {
	if math.IsNaN(alpha) || alpha <= 0 {
		return 0
	}
	if alpha >= 1 {
		return 1
	}
	return math.Round(alpha*255) / 255
}

// SetOpacity sets the opacity of surface id.
func (s *Surfaces) SetOpacity(id string, alpha float64) {
	q := Quantize(alpha)
	if prev, ok := s.alpha[id]; ok && prev == q {
		return
	}
	s.alpha[id] = q
	if err := s.out.Send(mqtt.Topics{}.Command(mqtt.CommandOpacity), OpacityCommand{ID: id, Alpha: q}, false); err != nil {
		s.logger.Warn("opacity command not sent", "id", id, "error", err)
	}
}

// Opacity returns the last opacity sent for id.
func (s *Surfaces) Opacity(id string) (float64, bool) {
	a, ok := s.alpha[id]
	return a, ok
}

// SetVisible shows or hides surface id.
func (s *Surfaces) SetVisible(id string, visible bool) {
	if err := s.out.Send(mqtt.Topics{}.Command(mqtt.CommandVisible), VisibleCommand{ID: id, Visible: visible}, false); err != nil {
		s.logger.Warn("visible command not sent", "id", id, "error", err)
	}
}

// Activator publishes scene object activation.
type Activator struct {
	out    Sender
	logger Logger
}

// NewActivator creates an activation adapter.
func NewActivator(out Sender, logger Logger) *Activator {
	if logger == nil {
		logger = noopLogger{}
	}
	return &Activator{out: out, logger: logger}
}

// SetActive activates or deactivates object id.
func (a *Activator) SetActive(id string, active bool) {
	if err := a.out.Send(mqtt.Topics{}.Command(mqtt.CommandActive), ActiveCommand{ID: id, Active: active}, false); err != nil {
		a.logger.Warn("active command not sent", "id", id, "error", err)
	}
}

// Captions is the text sink for typed captions.
type Captions struct {
	out    Sender
	logger Logger
}

// NewCaptions creates a caption adapter.
func NewCaptions(out Sender, logger Logger) *Captions {
	if logger == nil {
		logger = noopLogger{}
	}
	return &Captions{out: out, logger: logger}
}

// SetText replaces the text of caption id.
func (c *Captions) SetText(id, text string) {
	if err := c.out.Send(mqtt.Topics{}.Command(mqtt.CommandText), TextCommand{ID: id, Text: text}, false); err != nil {
		c.logger.Warn("text command not sent", "id", id, "error", err)
	}
}

// Display mirrors sensor messages onto the headset message panel.
type Display struct {
	out    Sender
	logger Logger
	last   string
}

// NewDisplay creates a message display adapter.
func NewDisplay(out Sender, logger Logger) *Display {
	if logger == nil {
		logger = noopLogger{}
	}
	return &Display{out: out, logger: logger}
}

// OnMessage overwrites the displayed text. Whitespace-only messages are ignored.
func (d *Display) OnMessage(msg string) {
	if strings.TrimSpace(msg) == "" {
		return
	}
	d.last = msg
	if err := d.out.Send(mqtt.Topics{}.Command(mqtt.CommandDisplay), DisplayCommand{Text: msg}, true); err != nil {
		d.logger.Warn("display command not sent", "error", err)
	}
}

// Text returns the last displayed message.
func (d *Display) Text() string {
	return d.last
}
