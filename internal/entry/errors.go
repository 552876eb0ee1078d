package entry

import "errors"

// Domain errors for the entry package.
//
//	if errors.Is(err, entry.ErrAlreadyRunning) {
//	    // a run is in progress; the request was ignored
//	}
var (
	// ErrAlreadyRunning is returned when Start is called during a run.
	ErrAlreadyRunning = errors.New("entry: already running")

	// ErrNoScheduler is returned when a Tracker is built without a scheduler.
	ErrNoScheduler = errors.New("entry: scheduler is required")

	// ErrInvalidPlan is returned when plan validation fails.
	ErrInvalidPlan = errors.New("entry: invalid plan")
)
