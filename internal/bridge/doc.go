// Package bridge adapts the engine's collaborator interfaces to the
// headset and sensor over MQTT.
//
// Outbound, every component turns a call into a JSON command on
// cinnamon/command/{kind} and hands it to an Outbox, which publishes from
// its own goroutine so the engine loop never waits on the broker.
//
// Inbound, Anchors and SensorFeed subscribe to headset and sensor topics
// and post each payload onto the engine loop in arrival order.
//
// Apart from Outbox, SensorFeed and the subscription handlers, types in
// this package are owned by the engine loop and are not safe for
// concurrent use.
package bridge
