// Package sequence runs an ordered list of stages, one at a time.
//
// Each stage moves through four states:
//
//	Idle → Playing(i) → Waiting(i) → Advancing(i) → Playing(i+1) → … → Idle
//
// Playing plays the stage's primary cue and waits for it to finish.
// Waiting polls the trigger detector once per poll interval until an
// anchor carrying the stage's label is within the proximity radius; the
// first match in detector order wins and its secondary cue plays on the
// matched anchor. Advancing issues the stage's spawn request, waits the
// stage delay, then moves to the next stage.
//
// Waiting has no timeout. A stage whose trigger never appears blocks the
// run until Stop is called.
//
// A missing cue player, detector or spawner skips that side effect with a
// diagnostic; the stage still advances. All timers and completion
// callbacks of a run belong to one timeline.Scope, so Stop silences them
// together.
package sequence
