package experience

import "errors"

// Domain-specific errors for the experience.
var (
	// ErrInvalidScript is returned when a script fails validation.
	ErrInvalidScript = errors.New("experience: invalid script")

	// ErrUnknownMaterial is returned when a material id is not in the script.
	ErrUnknownMaterial = errors.New("experience: unknown material")

	// ErrNoLoop is returned when an experience is built without a loop.
	ErrNoLoop = errors.New("experience: loop is required")

	// ErrNoSender is returned when an experience is built without an outbound sender.
	ErrNoSender = errors.New("experience: sender is required")
)
