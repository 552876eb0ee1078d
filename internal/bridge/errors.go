package bridge

import "errors"

var (
	// ErrUnknownCue is returned when a cue is not in the catalogue.
	ErrUnknownCue = errors.New("bridge: unknown cue")

	// ErrUnknownScene is returned for a scene index or name not in the scene list.
	ErrUnknownScene = errors.New("bridge: unknown scene")

	// ErrOutboxFull is returned when a command cannot be queued.
	ErrOutboxFull = errors.New("bridge: outbox full")

	// ErrInvalidReport is returned for an anchor report that does not decode.
	ErrInvalidReport = errors.New("bridge: invalid anchor report")
)
