package formation

import "errors"

// Sentinel kinds for formation errors.
var (
	ErrInvalidFormation = errors.New("invalid formation")
	ErrInvalidSide      = errors.New("invalid side")
)
