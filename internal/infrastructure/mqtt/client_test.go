package mqtt

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/nerrad567/cinnamon-core/internal/infrastructure/config"
)

// ─── Mock Dependencies ──────────────────────────────────────────────

type mockMessage struct {
	topic   string
	payload []byte
}

func (m mockMessage) Duplicate() bool   { return false }
func (m mockMessage) Qos() byte         { return 1 }
func (m mockMessage) Retained() bool    { return false }
func (m mockMessage) Topic() string     { return m.topic }
func (m mockMessage) MessageID() uint16 { return 1 }
func (m mockMessage) Payload() []byte   { return m.payload }
func (m mockMessage) Ack()              {}

type mockLogger struct {
	mu    sync.Mutex
	warns []string
	errs  []string
}

func (l *mockLogger) Info(string, ...any) {}

func (l *mockLogger) Warn(msg string, _ ...any) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.warns = append(l.warns, msg)
}

func (l *mockLogger) Error(msg string, _ ...any) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.errs = append(l.errs, msg)
}

func testConfig() config.MQTTConfig {
	return config.MQTTConfig{
		Broker: config.MQTTBrokerConfig{Host: "127.0.0.1", Port: 1883, ClientID: "cinnamon-test"},
		QoS:    1,
		Reconnect: config.MQTTReconnectConfig{
			InitialDelay: 1,
			MaxDelay:     5,
		},
	}
}

// ─── Topics ─────────────────────────────────────────────────────────

func TestTopicBuilders(t *testing.T) {
	topics := Topics{}
	tests := []struct {
		name string
		got  string
		want string
	}{
		{"SensorRaw", topics.SensorRaw("esp32-01"), "cinnamon/sensor/esp32-01/raw"},
		{"AllSensorRaw", topics.AllSensorRaw(), "cinnamon/sensor/+/raw"},
		{"SensorStatus", topics.SensorStatus("esp32-01"), "cinnamon/sensor/esp32-01/status"},
		{"AllSensorStatus", topics.AllSensorStatus(), "cinnamon/sensor/+/status"},
		{"HeadsetAnchors", topics.HeadsetAnchors(), "cinnamon/headset/anchors"},
		{"Command", topics.Command(CommandOpacity), "cinnamon/command/opacity"},
		{"Event", topics.Event("motion.outcome"), "cinnamon/event/motion.outcome"},
		{"SystemStatus", topics.SystemStatus(), "cinnamon/system/status"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.got != tt.want {
				t.Errorf("%s = %q, want %q", tt.name, tt.got, tt.want)
			}
		})
	}
}

func TestTopics_SensorDevice(t *testing.T) {
	tests := []struct {
		topic string
		want  string
	}{
		{"cinnamon/sensor/esp32-01/raw", "esp32-01"},
		{"cinnamon/sensor/wrist/status", "wrist"},
		{"cinnamon/sensor/", ""},
		{"cinnamon/headset/anchors", ""},
		{"other/sensor/x/raw", ""},
	}
	for _, tt := range tests {
		if got := (Topics{}).SensorDevice(tt.topic); got != tt.want {
			t.Errorf("SensorDevice(%q) = %q, want %q", tt.topic, got, tt.want)
		}
	}
}

// ─── Options ────────────────────────────────────────────────────────

func TestBuildClientOptions(t *testing.T) {
	cfg := testConfig()
	cfg.Auth.Username = "cinnamon"
	cfg.Auth.Password = "secret"

	opts := buildClientOptions(cfg)
	if len(opts.Servers) != 1 || opts.Servers[0].String() != "tcp://127.0.0.1:1883" {
		t.Errorf("Servers = %v, want tcp://127.0.0.1:1883", opts.Servers)
	}
	if opts.ClientID != "cinnamon-test" || opts.Username != "cinnamon" || opts.Password != "secret" {
		t.Errorf("identity = %q/%q/%q", opts.ClientID, opts.Username, opts.Password)
	}
	if !opts.AutoReconnect || !opts.CleanSession || !opts.Order {
		t.Errorf("AutoReconnect=%v CleanSession=%v Order=%v, want all true",
			opts.AutoReconnect, opts.CleanSession, opts.Order)
	}
	if opts.TLSConfig != nil && opts.TLSConfig.MinVersion != 0 {
		t.Error("TLS configured without cfg.Broker.TLS")
	}

	cfg.Broker.TLS = true
	cfg.Broker.Port = 8883
	tlsOpts := buildClientOptions(cfg)
	if tlsOpts.Servers[0].Scheme != "ssl" {
		t.Errorf("scheme = %q, want ssl", tlsOpts.Servers[0].Scheme)
	}
	if tlsOpts.TLSConfig == nil || tlsOpts.TLSConfig.MinVersion != tlsMinVersion {
		t.Errorf("TLSConfig = %+v, want MinVersion TLS1.2", tlsOpts.TLSConfig)
	}
}

func TestConfigureLWT(t *testing.T) {
	opts := buildClientOptions(testConfig())
	configureLWT(opts, "cinnamon-test")

	if !opts.WillEnabled || opts.WillTopic != "cinnamon/system/status" || !opts.WillRetained {
		t.Fatalf("will = enabled:%v topic:%q retained:%v", opts.WillEnabled, opts.WillTopic, opts.WillRetained)
	}
	var p StatusPayload
	if err := json.Unmarshal(opts.WillPayload, &p); err != nil {
		t.Fatalf("will payload: %v", err)
	}
	if p.Status != StatusOffline || p.Reason != "unexpected_disconnect" || p.ClientID != "cinnamon-test" {
		t.Errorf("will payload = %+v", p)
	}
}

// ─── Disconnected Client ────────────────────────────────────────────

func TestDisconnectedClient(t *testing.T) {
	c := &Client{cfg: testConfig(), subscriptions: make(map[string]subscription)}
	handler := func(string, []byte) error { return nil }

	if c.IsConnected() {
		t.Fatal("IsConnected() = true for a client that never connected")
	}
	if err := c.Close(); err != nil {
		t.Errorf("Close() error = %v", err)
	}

	tests := []struct {
		name string
		err  error
		want error
	}{
		{"publish empty topic", c.Publish("", nil, 1, false), ErrInvalidTopic},
		{"publish bad qos", c.Publish("t", nil, 3, false), ErrInvalidQoS},
		{"publish too large", c.Publish("t", make([]byte, maxPayloadSize+1), 1, false), ErrPayloadTooLarge},
		{"publish disconnected", c.Publish("t", []byte("x"), 1, false), ErrNotConnected},
		{"publish json disconnected", c.PublishJSON("t", map[string]int{"a": 1}, false), ErrNotConnected},
		{"publish json unmarshalable", c.PublishJSON("t", make(chan int), false), ErrPublishFailed},
		{"subscribe empty topic", c.Subscribe("", 1, handler), ErrInvalidTopic},
		{"subscribe bad qos", c.Subscribe("t", 9, handler), ErrInvalidQoS},
		{"subscribe nil handler", c.Subscribe("t", 1, nil), ErrSubscribeFailed},
		{"subscribe disconnected", c.Subscribe("t", 1, handler), ErrNotConnected},
		{"unsubscribe empty", c.Unsubscribe(""), ErrInvalidTopic},
		{"unsubscribe disconnected", c.Unsubscribe("t"), ErrNotConnected},
		{"health", c.HealthCheck(context.Background()), ErrNotConnected},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if !errors.Is(tt.err, tt.want) {
				t.Errorf("error = %v, want %v", tt.err, tt.want)
			}
		})
	}

	if c.SubscriptionCount() != 0 {
		t.Errorf("SubscriptionCount() = %d, want 0", c.SubscriptionCount())
	}
}

func TestHealthCheckCancelled(t *testing.T) {
	c := &Client{}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := c.HealthCheck(ctx); !errors.Is(err, context.Canceled) {
		t.Errorf("HealthCheck() error = %v, want context.Canceled", err)
	}
}

// ─── Dispatch ───────────────────────────────────────────────

func TestDispatch(t *testing.T) {
	logger := &mockLogger{}
	c := &Client{}
	c.SetLogger(logger)

	var got []string
	ok := c.dispatch(func(topic string, payload []byte) error {
		got = append(got, topic+"="+string(payload))
		return nil
	})
	ok(nil, mockMessage{topic: "cinnamon/sensor/a/raw", payload: []byte("roll = 1, pitch = 2")})
	if len(got) != 1 || !strings.HasSuffix(got[0], "roll = 1, pitch = 2") {
		t.Errorf("handler saw %v", got)
	}

	failing := c.dispatch(func(string, []byte) error { return errors.New("bad payload") })
	failing(nil, mockMessage{topic: "t"})

	panicking := c.dispatch(func(string, []byte) error { panic("boom") })
	panicking(nil, mockMessage{topic: "t"})

	logger.mu.Lock()
	defer logger.mu.Unlock()
	if len(logger.warns) != 1 || len(logger.errs) != 1 {
		t.Errorf("warns = %v, errs = %v, want one of each", logger.warns, logger.errs)
	}
	if st := c.Stats(); st.Received != 3 || st.HandlerErrors != 2 || st.Reconnects != 0 {
		t.Errorf("Stats() = %+v, want 3 received, 2 handler errors", st)
	}
}

// ─── Operation Errors ───────────────────────────────────────────────

type fakeToken struct {
	done bool
	err  error
}

func (f *fakeToken) Wait() bool                     { return f.done }
func (f *fakeToken) WaitTimeout(time.Duration) bool { return f.done }
func (f *fakeToken) Done() <-chan struct{} {
	ch := make(chan struct{})
	close(ch)
	return ch
}
func (f *fakeToken) Error() error { return f.err }

func TestAwait(t *testing.T) {
	refused := errors.New("not authorised")

	tests := []struct {
		name     string
		token    *fakeToken
		op       Op
		sentinel error
		cause    error
	}{
		{"ok", &fakeToken{done: true}, OpPublish, nil, nil},
		{"timeout", &fakeToken{}, OpSubscribe, ErrSubscribeFailed, errTimeout},
		{"broker error", &fakeToken{done: true, err: refused}, OpConnect, ErrConnectionFailed, refused},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := await(tt.token, tt.op, "cinnamon/headset/pose", time.Millisecond)
			if tt.sentinel == nil {
				if err != nil {
					t.Fatalf("await: %v", err)
				}
				return
			}
			if !errors.Is(err, tt.sentinel) || !errors.Is(err, tt.cause) {
				t.Errorf("error = %v, want both %v and %v", err, tt.sentinel, tt.cause)
			}
			var opErr *OpError
			if !errors.As(err, &opErr) || opErr.Op != tt.op {
				t.Errorf("error = %#v, want *OpError with op %s", err, tt.op)
			}
		})
	}
}

func TestOpError_Message(t *testing.T) {
	withTopic := &OpError{Op: OpPublish, Topic: "a/b", Err: errTimeout}
	if got, want := withTopic.Error(), `mqtt: publish failed on "a/b": timed out`; got != want {
		t.Errorf("Error() = %q, want %q", got, want)
	}
	connect := &OpError{Op: OpConnect, Err: errTimeout}
	if got, want := connect.Error(), "mqtt: connection failed: timed out"; got != want {
		t.Errorf("Error() = %q, want %q", got, want)
	}
}
