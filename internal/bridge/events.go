package bridge

import (
	"time"

	"github.com/nerrad567/cinnamon-core/internal/infrastructure/mqtt"
)

// Event is an engine event published for dashboards.
type Event struct {
	Type      string    `json:"type"`
	Timestamp time.Time `json:"timestamp"`
	Data      any       `json:"data,omitempty"`
}

// Events publishes engine events to cinnamon/event/<type>.
type Events struct {
	out Sender
}

// NewEvents creates an event publisher.
func NewEvents(out Sender) *Events {
	return &Events{out: out}
}

// Publish sends an event of kind typ.
func (e *Events) Publish(typ string, at time.Time, data any) error {
	return e.out.Send(mqtt.Topics{}.Event(typ), Event{Type: typ, Timestamp: at, Data: data}, false)
}
