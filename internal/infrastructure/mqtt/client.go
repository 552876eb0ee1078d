package mqtt

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"

	pahomqtt "github.com/eclipse/paho.mqtt.golang"

	"github.com/nerrad567/cinnamon-core/internal/infrastructure/config"
)

// Logger is the subset of logging.Logger the client uses.
type Logger interface {
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

// MessageHandler receives one message with wildcards expanded in topic.
// A returned error is logged and counted; the message is still acknowledged.
type MessageHandler func(topic string, payload []byte) error

type subscription struct {
	qos     byte
	handler MessageHandler
}

// Stats counts traffic through the client since Connect.
type Stats struct {
	Received      int64 `json:"received"`
	HandlerErrors int64 `json:"handler_errors"`
	Reconnects    int64 `json:"reconnects"`
}

// Client is a paho connection that publishes the engine's retained status,
// installs the matching LWT and resubscribes after every reconnect. Safe
// for concurrent use.
type Client struct {
	client pahomqtt.Client
	cfg    config.MQTTConfig

	connected atomic.Bool
	connects  atomic.Int64
	received  atomic.Int64
	failures  atomic.Int64

	subMu         sync.RWMutex
	subscriptions map[string]subscription

	hookMu       sync.RWMutex
	logger       Logger
	onConnect    func()
	onDisconnect func(err error)
}

// Connect dials the broker and waits for the first session. Later
// reconnects happen in the background.
func Connect(cfg config.MQTTConfig) (*Client, error) {
	c := &Client{cfg: cfg, subscriptions: make(map[string]subscription)}

	opts := buildClientOptions(cfg)
	configureLWT(opts, cfg.Broker.ClientID)
	opts.SetOnConnectHandler(func(pahomqtt.Client) { c.sessionUp() })
	opts.SetConnectionLostHandler(func(_ pahomqtt.Client, err error) { c.sessionLost(err) })
	opts.SetReconnectingHandler(func(pahomqtt.Client, *pahomqtt.ClientOptions) {
		if l := c.log(); l != nil {
			l.Info("mqtt reconnecting", "client_id", cfg.Broker.ClientID)
		}
	})

	c.client = pahomqtt.NewClient(opts)
	if err := await(c.client.Connect(), OpConnect, "", defaultConnectTimeout); err != nil {
		return nil, err
	}
	// sessionUp runs on paho's goroutine; callers may subscribe before it.
	c.connected.Store(true)
	return c, nil
}

func (c *Client) sessionUp() {
	c.connected.Store(true)
	c.connects.Add(1)

	c.subMu.RLock()
	for topic, sub := range c.subscriptions {
		c.client.Subscribe(topic, sub.qos, c.dispatch(sub.handler))
	}
	c.subMu.RUnlock()

	c.client.Publish(Topics{}.SystemStatus(), c.QoS(), true,
		statusPayload(c.cfg.Broker.ClientID, StatusOnline, ""))

	c.hookMu.RLock()
	hook := c.onConnect
	c.hookMu.RUnlock()
	if hook != nil {
		hook()
	}
}

func (c *Client) sessionLost(err error) {
	c.connected.Store(false)
	if l := c.log(); l != nil {
		l.Warn("mqtt connection lost", "error", err)
	}

	c.hookMu.RLock()
	hook := c.onDisconnect
	c.hookMu.RUnlock()
	if hook != nil {
		hook(err)
	}
}

// Close publishes a graceful offline status and disconnects. A client that
// never connected closes without error.
func (c *Client) Close() error {
	if c.client == nil {
		return nil
	}
	if c.IsConnected() {
		c.client.Publish(Topics{}.SystemStatus(), c.QoS(), true,
			statusPayload(c.cfg.Broker.ClientID, StatusOffline, "graceful_shutdown")).
			WaitTimeout(defaultPublishTimeout)
	}
	c.client.Disconnect(defaultDisconnectQuiesce)
	c.connected.Store(false)
	return nil
}

// HealthCheck reports whether the broker session is up.
func (c *Client) HealthCheck(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("mqtt health check: %w", err)
	}
	if !c.IsConnected() {
		return ErrNotConnected
	}
	return nil
}

// IsConnected returns the last known session state.
func (c *Client) IsConnected() bool {
	return c.connected.Load() && c.client != nil && c.client.IsConnected()
}

// Stats returns the traffic counters. The initial session is not counted
// as a reconnect.
func (c *Client) Stats() Stats {
	reconnects := c.connects.Load() - 1
	if reconnects < 0 {
		reconnects = 0
	}
	return Stats{
		Received:      c.received.Load(),
		HandlerErrors: c.failures.Load(),
		Reconnects:    reconnects,
	}
}

// SetOnConnect sets a hook run after every (re)connect.
func (c *Client) SetOnConnect(fn func()) {
	c.hookMu.Lock()
	c.onConnect = fn
	c.hookMu.Unlock()
}

// SetOnDisconnect sets a hook run when the session drops.
func (c *Client) SetOnDisconnect(fn func(err error)) {
	c.hookMu.Lock()
	c.onDisconnect = fn
	c.hookMu.Unlock()
}

// SetLogger sets the logger for connection events and handler failures.
func (c *Client) SetLogger(l Logger) {
	c.hookMu.Lock()
	c.logger = l
	c.hookMu.Unlock()
}

func (c *Client) log() Logger {
	c.hookMu.RLock()
	defer c.hookMu.RUnlock()
	return c.logger
}

// QoS returns the configured default QoS.
func (c *Client) QoS() byte {
	return byte(c.cfg.QoS)
}

// Publish sends payload to topic.
func (c *Client) Publish(topic string, payload []byte, qos byte, retained bool) error {
	switch {
	case topic == "":
		return ErrInvalidTopic
	case qos > maxQoS:
		return ErrInvalidQoS
	case len(payload) > maxPayloadSize:
		return fmt.Errorf("%w: %d bytes exceeds %d", ErrPayloadTooLarge, len(payload), maxPayloadSize)
	case !c.IsConnected():
		return ErrNotConnected
	}
	return await(c.client.Publish(topic, qos, retained, payload), OpPublish, topic, defaultPublishTimeout)
}

// PublishJSON marshals v and publishes it at the configured QoS.
func (c *Client) PublishJSON(topic string, v any, retained bool) error {
	payload, err := json.Marshal(v)
	if err != nil {
		return &OpError{Op: OpPublish, Topic: topic, Err: fmt.Errorf("marshalling payload: %w", err)}
	}
	return c.Publish(topic, payload, c.QoS(), retained)
}

// Subscribe registers handler for topic, which may contain wildcards. The
// subscription is restored on every reconnect until Unsubscribe.
func (c *Client) Subscribe(topic string, qos byte, handler MessageHandler) error {
	switch {
	case topic == "":
		return ErrInvalidTopic
	case qos > maxQoS:
		return ErrInvalidQoS
	case handler == nil:
		return &OpError{Op: OpSubscribe, Topic: topic, Err: errors.New("handler cannot be nil")}
	case !c.IsConnected():
		return ErrNotConnected
	}

	c.subMu.Lock()
	c.subscriptions[topic] = subscription{qos: qos, handler: handler}
	c.subMu.Unlock()

	if err := await(c.client.Subscribe(topic, qos, c.dispatch(handler)), OpSubscribe, topic, defaultPublishTimeout); err != nil {
		c.forget(topic)
		return err
	}
	return nil
}

// Unsubscribe drops the subscription for topic.
func (c *Client) Unsubscribe(topic string) error {
	if topic == "" {
		return ErrInvalidTopic
	}
	if !c.IsConnected() {
		return ErrNotConnected
	}
	c.forget(topic)
	return await(c.client.Unsubscribe(topic), OpUnsubscribe, topic, defaultPublishTimeout)
}

func (c *Client) forget(topic string) {
	c.subMu.Lock()
	delete(c.subscriptions, topic)
	c.subMu.Unlock()
}

// SubscriptionCount returns the number of tracked subscriptions.
func (c *Client) SubscriptionCount() int {
	c.subMu.RLock()
	defer c.subMu.RUnlock()
	return len(c.subscriptions)
}

// dispatch adapts handler to paho, counting messages and recovering panics.
func (c *Client) dispatch(handler MessageHandler) pahomqtt.MessageHandler {
	return func(_ pahomqtt.Client, msg pahomqtt.Message) {
		c.received.Add(1)
		defer func() {
			if r := recover(); r != nil {
				c.failures.Add(1)
				if l := c.log(); l != nil {
					l.Error("mqtt handler panic recovered", "topic", msg.Topic(), "panic", r)
				}
			}
		}()

		if err := handler(msg.Topic(), msg.Payload()); err != nil {
			c.failures.Add(1)
			if l := c.log(); l != nil {
				l.Warn("mqtt handler returned error", "topic", msg.Topic(), "error", err)
			}
		}
	}
}
