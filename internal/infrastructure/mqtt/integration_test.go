//go:build integration

package mqtt

import (
	"testing"
	"time"
)

// Integration tests need a broker at 127.0.0.1:1883.
//
//	go test -tags=integration ./internal/infrastructure/mqtt/...

func TestIntegration_PublishSubscribeRoundtrip(t *testing.T) {
	cfg := testConfig()
	cfg.Broker.ClientID = "cinnamon-int-roundtrip"

	client, err := Connect(cfg)
	if err != nil {
		t.Fatalf("Connect() error = %v", err)
	}
	defer client.Close() //nolint:errcheck // Test cleanup

	received := make(chan string, 1)
	err = client.Subscribe(Topics{}.AllSensorRaw(), 1, func(topic string, payload []byte) error {
		received <- Topics{}.SensorDevice(topic) + ":" + string(payload)
		return nil
	})
	if err != nil {
		t.Fatalf("Subscribe() error = %v", err)
	}
	if client.SubscriptionCount() != 1 {
		t.Errorf("SubscriptionCount() = %d, want 1", client.SubscriptionCount())
	}

	if err := client.Publish(Topics{}.SensorRaw("esp-int"), []byte("roll = 1, pitch = 2"), 1, false); err != nil {
		t.Fatalf("Publish() error = %v", err)
	}

	select {
	case got := <-received:
		if got != "esp-int:roll = 1, pitch = 2" {
			t.Errorf("received %q", got)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("message not received")
	}

	if err := client.Unsubscribe(Topics{}.AllSensorRaw()); err != nil {
		t.Errorf("Unsubscribe() error = %v", err)
	}
}

func TestIntegration_ConnectRefused(t *testing.T) {
	cfg := testConfig()
	cfg.Broker.Port = 19998
	if _, err := Connect(cfg); err == nil {
		t.Fatal("Connect() should fail for refused connection")
	}
}
