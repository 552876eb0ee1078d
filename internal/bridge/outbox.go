package bridge

import (
	"context"
	"sync"

	"github.com/nerrad567/cinnamon-core/internal/infrastructure/mqtt"
)

// DefaultOutboxSize is the number of commands an Outbox buffers.
const DefaultOutboxSize = 512

// Publisher is the part of *mqtt.Client the outbox needs.
type Publisher interface {
	PublishJSON(topic string, v any, retained bool) error
}

// Subscriber is the part of *mqtt.Client inbound adapters need.
type Subscriber interface {
	Subscribe(topic string, qos byte, handler mqtt.MessageHandler) error
}

// Sender queues a message for publishing.
type Sender interface {
	Send(topic string, v any, retained bool) error
}

// Poster runs fn on the engine loop. *timeline.Loop satisfies it.
type Poster interface {
	Post(fn func()) error
}

// Logger defines the logging interface used by the bridge.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

type noopLogger struct{}

func (noopLogger) Debug(string, ...any) {}
func (noopLogger) Info(string, ...any)  {}
func (noopLogger) Warn(string, ...any)  {}
func (noopLogger) Error(string, ...any) {}

type outMsg struct {
	topic    string
	v        any
	retained bool
}

// Outbox publishes queued messages from a single goroutine, preserving
// order. Send never blocks; it fails with ErrOutboxFull instead.
type Outbox struct {
	pub    Publisher
	logger Logger
	queue  chan outMsg

	mu      sync.Mutex
	dropped int
	failed  int
}

// NewOutbox creates an outbox. A non-positive size uses DefaultOutboxSize.
func NewOutbox(pub Publisher, size int, logger Logger) *Outbox {
	if size <= 0 {
		size = DefaultOutboxSize
	}
	if logger == nil {
		logger = noopLogger{}
	}
	return &Outbox{pub: pub, logger: logger, queue: make(chan outMsg, size)}
}

// Send queues v for topic.
func (o *Outbox) Send(topic string, v any, retained bool) error {
	select {
	case o.queue <- outMsg{topic: topic, v: v, retained: retained}:
		return nil
	default:
		o.mu.Lock()
		o.dropped++
		o.mu.Unlock()
		o.logger.Warn("outbox full, dropping command", "topic", topic)
		return ErrOutboxFull
	}
}

// Run publishes until ctx is done, then drains what is already queued.
func (o *Outbox) Run(ctx context.Context) {
	for {
		select {
		case m := <-o.queue:
			o.publish(m)
		case <-ctx.Done():
			for {
				select {
				case m := <-o.queue:
					o.publish(m)
				default:
					return
				}
			}
		}
	}
}

// Stats returns the number of dropped and failed messages.
func (o *Outbox) Stats() (dropped, failed int) {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.dropped, o.failed
}

func (o *Outbox) publish(m outMsg) {
	if err := o.pub.PublishJSON(m.topic, m.v, m.retained); err != nil {
		o.mu.Lock()
		o.failed++
		o.mu.Unlock()
		o.logger.Warn("publish failed", "topic", m.topic, "error", err)
	}
}
