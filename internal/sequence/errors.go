package sequence

import "errors"

// Domain errors for the sequence package.
var (
	// ErrAlreadyActive is returned by Start while a run is in progress.
	ErrAlreadyActive = errors.New("sequence: already active")

	// ErrNoStages is returned by Start when the stage list is empty.
	ErrNoStages = errors.New("sequence: no stages")

	// ErrNoScheduler is returned when a Sequencer is built without a scheduler.
	ErrNoScheduler = errors.New("sequence: scheduler is required")

	// ErrInvalidStage is returned when a stage fails validation.
	ErrInvalidStage = errors.New("sequence: invalid stage")

	// ErrRunNotFound is returned when a run ID does not exist.
	ErrRunNotFound = errors.New("sequence: run not found")
)
