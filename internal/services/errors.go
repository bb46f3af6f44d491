package services

import "errors"

// Sentinel errors mapped to HTTP status codes by the handlers layer.
var (
	// ErrValidation marks a size or shape violation in a request body.
	ErrValidation = errors.New("validation failed")

	// ErrNotFound marks an unknown job or runner id.
	ErrNotFound = errors.New("not found")

	// ErrConflict marks a claim attempt on a job that is no longer pending.
	ErrConflict = errors.New("job already claimed")

	// ErrNotClaimedByRunner marks a heartbeat or terminal from a runner that
	// does not own the job, or a transition after a terminal state.
	ErrNotClaimedByRunner = errors.New("not claimed by this runner")
)
