package bridge

import (
	"encoding/json"
	"sort"
	"sync"

	"github.com/nerrad567/cinnamon-core/internal/infrastructure/mqtt"
)

// SensorHandler receives one raw sensor payload on the engine loop.
type SensorHandler func(device, payload string)

// SensorFeed forwards peripheral sensor messages onto the engine loop in
// arrival order.
type SensorFeed struct {
	loop    Poster
	handler SensorHandler
	logger  Logger

	mu      sync.Mutex
	devices map[string]bool
}

// NewSensorFeed creates a feed delivering payloads to handler.
func NewSensorFeed(loop Poster, handler SensorHandler, logger Logger) *SensorFeed {
	if logger == nil {
		logger = noopLogger{}
	}
	return &SensorFeed{loop: loop, handler: handler, logger: logger, devices: make(map[string]bool)}
}

// Subscribe subscribes to every device's raw and status topics.
func (f *SensorFeed) Subscribe(sub Subscriber, qos byte) error {
	if err := sub.Subscribe(mqtt.Topics{}.AllSensorRaw(), qos, f.onRaw); err != nil {
		return err
	}
	return sub.Subscribe(mqtt.Topics{}.AllSensorStatus(), qos, f.onStatus)
}

func (f *SensorFeed) onRaw(topic string, payload []byte) error {
	device := mqtt.Topics{}.SensorDevice(topic)
	msg := string(payload)
	f.seen(device)
	if err := f.loop.Post(func() { f.handler(device, msg) }); err != nil {
		f.logger.Warn("sensor message dropped", "device", device, "error", err)
		return err
	}
	return nil
}

func (f *SensorFeed) onStatus(topic string, payload []byte) error {
	device := mqtt.Topics{}.SensorDevice(topic)
	var st mqtt.StatusPayload
	if err := json.Unmarshal(payload, &st); err != nil {
		return err
	}
	online := st.Status == mqtt.StatusOnline

	f.mu.Lock()
	f.devices[device] = online
	f.mu.Unlock()

	if online {
		f.logger.Info("sensor connected", "device", device)
	} else {
		f.logger.Warn("sensor connection lost", "device", device, "reason", st.Reason)
	}
	return nil
}

func (f *SensorFeed) seen(device string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if !f.devices[device] {
		f.devices[device] = true
		f.logger.Info("sensor connected", "device", device)
	}
}

// Devices returns the known devices and whether each is online, sorted by name.
func (f *SensorFeed) Devices() []DeviceState {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]DeviceState, 0, len(f.devices))
	for d, on := range f.devices {
		out = append(out, DeviceState{Device: d, Online: on})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Device < out[j].Device })
	return out
}

// DeviceState is a sensor's last known connectivity.
type DeviceState struct {
	Device string `json:"device"`
	Online bool   `json:"online"`
}
