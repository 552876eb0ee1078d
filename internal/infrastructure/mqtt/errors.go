package mqtt

import (
	"errors"
	"fmt"
	"time"

	pahomqtt "github.com/eclipse/paho.mqtt.golang"
)

// Argument and state errors, returned before anything reaches the broker.
var (
	ErrNotConnected    = errors.New("mqtt: client not connected")
	ErrInvalidTopic    = errors.New("mqtt: topic cannot be empty")
	ErrInvalidQoS      = errors.New("mqtt: invalid QoS level (must be 0, 1, or 2)")
	ErrPayloadTooLarge = errors.New("mqtt: payload too large")
)

// Broker round-trip failures. An OpError matches the one for its Op.
var (
	ErrConnectionFailed  = errors.New("mqtt: connection failed")
	ErrPublishFailed     = errors.New("mqtt: publish failed")
	ErrSubscribeFailed   = errors.New("mqtt: subscribe failed")
	ErrUnsubscribeFailed = errors.New("mqtt: unsubscribe failed")
)

// Op names a broker round trip.
type Op string

const (
	OpConnect     Op = "connect"
	OpPublish     Op = "publish"
	OpSubscribe   Op = "subscribe"
	OpUnsubscribe Op = "unsubscribe"
)

var opSentinel = map[Op]error{
	OpConnect:     ErrConnectionFailed,
	OpPublish:     ErrPublishFailed,
	OpSubscribe:   ErrSubscribeFailed,
	OpUnsubscribe: ErrUnsubscribeFailed,
}

// OpError reports a failed broker operation on Topic (empty for connect).
type OpError struct {
	Op    Op
	Topic string
	Err   error
}

func (e *OpError) Error() string {
	if e.Topic == "" {
		return fmt.Sprintf("%v: %v", opSentinel[e.Op], e.Err)
	}
	return fmt.Sprintf("%v on %q: %v", opSentinel[e.Op], e.Topic, e.Err)
}

// Unwrap exposes both the operation sentinel and the cause.
func (e *OpError) Unwrap() []error {
	return []error{opSentinel[e.Op], e.Err}
}

// errTimeout is the cause of an OpError whose token did not complete.
var errTimeout = errors.New("timed out")

// await waits up to d for token and wraps any failure as an OpError.
func await(token pahomqtt.Token, op Op, topic string, d time.Duration) error {
	if !token.WaitTimeout(d) {
		return &OpError{Op: op, Topic: topic, Err: fmt.Errorf("%w after %v", errTimeout, d)}
	}
	if err := token.Error(); err != nil {
		return &OpError{Op: op, Topic: topic, Err: err}
	}
	return nil
}
