package service

import "errors"

// Sentinel kinds for service errors.
var (
	ErrNotStarted     = errors.New("service not started")
	ErrMatchClosed    = errors.New("match is closed")
	ErrInvalidPhase   = errors.New("invalid pointer phase")
	ErrInvalidVariant = errors.New("invalid board variant")
	ErrSaveTimeout    = errors.New("save timed out")
)
