package board

import "errors"

// Sentinel kinds for board errors.
var (
	ErrSaveFailed   = errors.New("save failed")
	ErrSaveInFlight = errors.New("save already in flight")
	ErrReadOnly     = errors.New("board is read-only")
	ErrFreeForm     = errors.New("operation not available on a free-form board")
	ErrNotFreeForm  = errors.New("operation only available on a free-form board")
	ErrInvalidTool  = errors.New("invalid tool")
	ErrInvalidKind  = errors.New("invalid element kind")
)
