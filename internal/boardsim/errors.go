package boardsim

import "errors"

// Sentinel kinds for simulation errors.
var (
	ErrUnhealthy     = errors.New("service unhealthy")
	ErrUnexpected    = errors.New("unexpected response")
	ErrNoBoards      = errors.New("no boards to drive")
	ErrViolations    = errors.New("invariant violations found")
	ErrInvalidConfig = errors.New("invalid simulation config")
)
