package mqtt

import (
	"fmt"
	"strings"
)

// TopicPrefix is the root of every topic the controller uses.
const TopicPrefix = "cinnamon"

// Command kinds published to the headset.
const (
	CommandCue     = "cue"
	CommandSpawn   = "spawn"
	CommandDespawn = "despawn"
	CommandOpacity = "opacity"
	CommandVisible = "visible"
	CommandActive  = "active"
	CommandText    = "text"
	CommandScene   = "scene"
	CommandDisplay = "display"
)

// Topics builds controller topic names.
//
//	topics := mqtt.Topics{}
//	topics.Command(mqtt.CommandCue) // "cinnamon/command/cue"
type Topics struct{}

// SensorRaw returns the raw reading topic for one sensor device.
//
// Example: cinnamon/sensor/esp32-01/raw
func (Topics) SensorRaw(device string) string {
	return fmt.Sprintf("%s/sensor/%s/raw", TopicPrefix, device)
}

// AllSensorRaw matches raw readings from every sensor device.
//
// Pattern: cinnamon/sensor/+/raw
func (Topics) AllSensorRaw() string {
	return TopicPrefix + "/sensor/+/raw"
}

// SensorStatus returns the connection status topic a sensor device
// publishes when it comes up or goes away.
//
// Example: cinnamon/sensor/esp32-01/status
func (Topics) SensorStatus(device string) string {
	return fmt.Sprintf("%s/sensor/%s/status", TopicPrefix, device)
}

// AllSensorStatus matches status updates from every sensor device.
//
// Pattern: cinnamon/sensor/+/status
func (Topics) AllSensorStatus() string {
	return TopicPrefix + "/sensor/+/status"
}

// HeadsetAnchors is where the headset reports the labelled scene anchors
// and the hand position.
func (Topics) HeadsetAnchors() string {
	return TopicPrefix + "/headset/anchors"
}

// Command returns the topic for one kind of presentation command.
//
// Example: cinnamon/command/opacity
func (Topics) Command(kind string) string {
	return fmt.Sprintf("%s/command/%s", TopicPrefix, kind)
}

// Event returns the topic for an engine event.
//
// Example: cinnamon/event/sequence.transition
func (Topics) Event(eventType string) string {
	return fmt.Sprintf("%s/event/%s", TopicPrefix, eventType)
}

// SystemStatus is the retained controller status topic, also used for the LWT.
func (Topics) SystemStatus() string {
	return TopicPrefix + "/system/status"
}

// SensorDevice extracts the device segment from a sensor topic. It
// returns "" if the topic is not under cinnamon/sensor/.
func (Topics) SensorDevice(topic string) string {
	rest, ok := strings.CutPrefix(topic, TopicPrefix+"/sensor/")
	if !ok {
		return ""
	}
	device, _, _ := strings.Cut(rest, "/")
	return device
}
