package motion

import "errors"

// Domain errors for the motion package.
var (
	// ErrParse is returned when a sensor message does not match the grammar
	// or carries a number that does not parse.
	ErrParse = errors.New("motion: unparsable sensor message")

	// ErrNotListening is returned for messages that arrive while no window is open.
	ErrNotListening = errors.New("motion: not listening")

	// ErrInvalidWindow is returned for a non-positive duration or a NaN threshold.
	ErrInvalidWindow = errors.New("motion: invalid window")

	// ErrNoScheduler is returned when an Accumulator is built without a scheduler.
	ErrNoScheduler = errors.New("motion: scheduler is required")

	// ErrOutcomeNotFound is returned when an outcome ID does not exist.
	ErrOutcomeNotFound = errors.New("motion: outcome not found")
)
