// Package entry runs the opening of the experience: a set of independently
// timed tasks (image fades and object activations) that all start together
// and report a single aggregate completion.
//
// Architecture:
//
//	┌──────────────────────────────────────────────┐
//	│              Tracker (tracker.go)             │
//	│   Start(plan) ──▶ one timeline per task       │
//	│   ┌────────────┐        ┌─────────────────┐   │
//	│   │   Fader    │        │   Activation    │   │
//	│   │ fade in    │        │ wait            │   │
//	│   │ hold       │        │ activate        │   │
//	│   │ fade out   │        │ (deactivate)    │   │
//	│   └─────┬──────┘        └───────┬─────────┘   │
//	│         └──── counted token ────┘             │
//	│                    │                          │
//	│              OnAllComplete (once)             │
//	└──────────────────────────────────────────────┘
//
// Completion is counted, not polled: each task decrements the outstanding
// count exactly once and the listeners run when it reaches zero. An empty
// plan completes synchronously inside Start.
//
// # Thread Safety
//
// A Tracker belongs to the goroutine that advances its scheduler.
package entry
