// Package experience composes the Cinnamon Rollers experience.
//
// A Script (YAML) describes the entry plan, the interactive stages, the
// motion window, the cue catalogue, fading materials, typed captions and
// the scene list. An Experience builds every engine component over one
// timeline.Loop and connects them:
//
//	entry tracker ──complete──▶ sequencer ──transitions──▶ hub, MQTT, InfluxDB
//	sensor feed ──messages──▶ motion accumulator ──outcome──▶ spawner
//
// All engine state lives on the loop goroutine. The exported methods that
// take a context hop onto the loop with Loop.Do and are safe to call from
// HTTP handlers.
package experience
