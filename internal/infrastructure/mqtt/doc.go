// Package mqtt connects the controller to the experience broker.
//
// The headset client and the sensor peripheral never talk to the
// controller directly. Everything crosses the broker:
//
//	ESP sensor  → cinnamon/sensor/{device}/raw      → controller
//	headset     → cinnamon/headset/anchors          → controller
//	controller  → cinnamon/command/{kind}           → headset
//	controller  → cinnamon/event/{type}             → operators
//	controller  → cinnamon/system/status (retained) → everyone
//
// The client reconnects with backoff and restores its subscriptions on
// every reconnect. A Last Will on the status topic marks the controller
// offline if it drops without a graceful Close.
//
// Handlers run on paho's goroutines. Callers that touch engine state must
// hand the payload to the engine loop rather than act on it in place.
package mqtt
