package worker

import "errors"

// Sentinel kinds for worker errors.
var (
	ErrJobAbandoned = errors.New("save job abandoned by requester")
	ErrStopped      = errors.New("worker stopped")
)
