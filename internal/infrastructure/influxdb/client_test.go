package influxdb

import (
	"context"
	"errors"
	"os"
	"testing"
	"time"

	"github.com/influxdata/influxdb-client-go/v2/api/write"

	"github.com/nerrad567/cinnamon-core/internal/infrastructure/config"
	"github.com/nerrad567/cinnamon-core/internal/motion"
)

// testConfig matches the local dev InfluxDB in docker-compose.yml.
func testConfig() config.InfluxDBConfig {
	return config.InfluxDBConfig{
		Enabled:       true,
		URL:           "http://127.0.0.1:8086",
		Token:         "cinnamon-dev-token",
		Org:           "cinnamon",
		Bucket:        "experience",
		BatchSize:     100,
		FlushInterval: 1,
	}
}

func skipIfNoInfluxDB(t *testing.T) {
	t.Helper()
	if os.Getenv("RUN_INTEGRATION") == "" {
		client, err := Connect(testConfig())
		if err != nil {
			t.Skip("InfluxDB not available, skipping integration test")
		}
		client.Close() //nolint:errcheck // probe only
	}
}

func tags(p *write.Point) map[string]string {
	out := make(map[string]string)
	for _, tag := range p.TagList() {
		out[tag.Key] = tag.Value
	}
	return out
}

func fields(p *write.Point) map[string]any {
	out := make(map[string]any)
	for _, f := range p.FieldList() {
		out[f.Key] = f.Value
	}
	return out
}

// ─── Point Builders ─────────────────────────────────────────────────

func TestMotionSamplePoint(t *testing.T) {
	at := time.Date(2026, 10, 1, 12, 0, 0, 0, time.UTC)
	p := motionSamplePoint("studio-001", "w-1", motion.Reading{Roll: 1.5, Pitch: -2}, at)

	if p.Name() != MeasurementMotionSample || !p.Time().Equal(at) {
		t.Errorf("point = %s at %v", p.Name(), p.Time())
	}
	if got := tags(p); got["window_id"] != "w-1" || got["site"] != "studio-001" {
		t.Errorf("tags = %v", got)
	}
	if got := fields(p); got["roll"] != 1.5 || got["pitch"] != -2.0 {
		t.Errorf("fields = %v", got)
	}
}

func TestMotionOutcomePoint(t *testing.T) {
	closed := time.Date(2026, 10, 1, 12, 0, 30, 0, time.UTC)
	p := motionOutcomePoint("", motion.Outcome{
		ID:        "w-2",
		Decision:  motion.OutcomeB,
		AvgRoll:   5,
		Count:     2,
		Threshold: 5,
		Duration:  30 * time.Second,
		ClosedAt:  closed,
	})

	if p.Name() != MeasurementMotionOutcome || !p.Time().Equal(closed) {
		t.Errorf("point = %s at %v", p.Name(), p.Time())
	}
	got := tags(p)
	if got["decision"] != "B" {
		t.Errorf("decision tag = %q, want B", got["decision"])
	}
	if _, ok := got["site"]; ok {
		t.Error("site tag set for empty site")
	}
	f := fields(p)
	if f["window_id"] != "w-2" || f["count"] != int64(2) || f["duration_ms"] != int64(30000) {
		t.Errorf("fields = %v", f)
	}
}

func TestStageTimingPoint(t *testing.T) {
	at := time.Date(2026, 10, 1, 12, 1, 0, 0, time.UTC)
	p := stageTimingPoint("studio-001", "run-1", "lamp", 0, "waiting", 1500*time.Millisecond, at)

	if got := tags(p); got["stage"] != "lamp" || got["state"] != "waiting" {
		t.Errorf("tags = %v", got)
	}
	if f := fields(p); f["run_id"] != "run-1" || f["index"] != int64(0) || f["duration_ms"] != int64(1500) {
		t.Errorf("fields = %v", f)
	}
}

// ─── Disconnected Client ────────────────────────────────────────────

func TestConnect_Disabled(t *testing.T) {
	cfg := testConfig()
	cfg.Enabled = false
	if _, err := Connect(cfg); !errors.Is(err, ErrDisabled) {
		t.Errorf("Connect() error = %v, want ErrDisabled", err)
	}
}

func TestDisconnectedClient_NoOps(t *testing.T) {
	var nilClient *Client
	if nilClient.IsConnected() {
		t.Error("nil client reports connected")
	}
	if err := nilClient.Close(); err != nil {
		t.Errorf("Close() on nil client error = %v", err)
	}

	c := &Client{}
	c.WriteMotionSample("w", motion.Reading{}, time.Now())
	c.WriteMotionOutcome(motion.Outcome{})
	c.WriteStageTiming("r", "s", 0, "playing", time.Second, time.Now())
	c.Flush()
	if err := c.HealthCheck(context.Background()); !errors.Is(err, ErrNotConnected) {
		t.Errorf("HealthCheck() error = %v, want ErrNotConnected", err)
	}
	if got := c.Stats(); got.Points != 0 {
		t.Errorf("Stats().Points = %d, want 0 on a closed client", got.Points)
	}
}

func TestWriterOptions(t *testing.T) {
	tests := []struct {
		name      string
		batch     int
		flush     int
		wantBatch uint
		wantFlush uint
	}{
		{"configured", 500, 2, 500, 2000},
		{"zero falls back", 0, 0, 100, 10000},
		{"negative falls back", -1, -5, 100, 10000},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := config.InfluxDBConfig{BatchSize: tt.batch, FlushInterval: tt.flush}
			if got := batchSize(cfg); got != tt.wantBatch {
				t.Errorf("batchSize() = %d, want %d", got, tt.wantBatch)
			}
			if got := flushIntervalMillis(cfg); got != tt.wantFlush {
				t.Errorf("flushIntervalMillis() = %d, want %d", got, tt.wantFlush)
			}
		})
	}
}

// ─── Integration ────────────────────────────────────────────────────

func TestConnect_InvalidURL(t *testing.T) {
	cfg := testConfig()
	cfg.URL = "http://127.0.0.1:59999"
	if _, err := Connect(cfg); !errors.Is(err, ErrConnectionFailed) {
		t.Fatalf("Connect() error = %v, want ErrConnectionFailed", err)
	}
}

func TestWriteAndFlush(t *testing.T) {
	skipIfNoInfluxDB(t)

	client, err := Connect(testConfig())
	if err != nil {
		t.Fatalf("Connect() error = %v", err)
	}
	defer client.Close() //nolint:errcheck // Test cleanup

	var writeErr error
	client.SetOnError(func(err error) { writeErr = err })
	client.SetSite("studio-test")

	now := time.Now()
	client.WriteMotionSample("w-int", motion.Reading{Roll: 1, Pitch: 2}, now)
	client.WriteMotionOutcome(motion.Outcome{ID: "w-int", Decision: motion.OutcomeA, ClosedAt: now})
	client.WriteStageTiming("run-int", "lamp", 0, "playing", time.Second, now)
	client.Flush()

	if err := client.HealthCheck(context.Background()); err != nil {
		t.Errorf("HealthCheck() error = %v", err)
	}
	if writeErr != nil {
		t.Errorf("async write error = %v", writeErr)
	}
	if got := client.Stats(); got.Points != 3 {
		t.Errorf("Stats().Points = %d, want 3", got.Points)
	}

	if err := client.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if err := client.Close(); err != nil {
		t.Errorf("second Close: %v", err)
	}
}
