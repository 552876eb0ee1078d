// Package influxdb records experience telemetry in InfluxDB.
//
// Three measurements are written:
//
//	motion_sample   one point per accepted roll/pitch reading, tagged by window
//	motion_outcome  one point per closed listening window, tagged by decision
//	stage_timing    one point per sequencer state, tagged by stage and state
//
// Writes are non-blocking and batched per config.yaml (batch_size,
// flush_interval). Async write failures reach the SetOnError callback.
// Every write is a no-op while the client is disconnected, so callers can
// hold a *Client that never connected.
package influxdb
