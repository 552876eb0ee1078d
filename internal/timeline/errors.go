package timeline

import "errors"

// Domain-specific errors for the loop.
var (
	// ErrLoopStopped is returned when work is posted to a loop that is not running.
	ErrLoopStopped = errors.New("timeline: loop stopped")

	// ErrInboxFull is returned when the loop inbox cannot accept more work.
	ErrInboxFull = errors.New("timeline: inbox full")

	// ErrLoopRunning is returned when Run is called on a loop that has already run.
	ErrLoopRunning = errors.New("timeline: loop already started")
)
