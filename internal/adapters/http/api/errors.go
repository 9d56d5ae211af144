package api

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/okian/pitchside/internal/adapters/mq/queue"
	"github.com/okian/pitchside/internal/adapters/repository"
	service "github.com/okian/pitchside/internal/app"
	"github.com/okian/pitchside/internal/domain/board"
	"github.com/okian/pitchside/internal/domain/formation"
)

// Sentinel kinds for API errors.
var (
	ErrBadRequest   = errors.New("bad request")
	ErrBackpressure = errors.New("backpressure")
)

// opError tags an error with the handler operation that produced it.
type opError struct {
	op   string
	kind error
	err  error
}

func (e *opError) Error() string {
	switch {
	case e.kind != nil && e.err != nil:
		return fmt.Sprintf("%s: %v: %v", e.op, e.kind, e.err)
	case e.kind != nil:
		return fmt.Sprintf("%s: %v", e.op, e.kind)
	default:
		return fmt.Sprintf("%s: %v", e.op, e.err)
	}
}

func (e *opError) Unwrap() []error {
	errs := make([]error, 0, 2)
	if e.kind != nil {
		errs = append(errs, e.kind)
	}
	if e.err != nil {
		errs = append(errs, e.err)
	}
	return errs
}

// Wrap annotates err with op.
func Wrap(op string, err error) error {
	if err == nil {
		return nil
	}
	return &opError{op: op, err: err}
}

// WrapKind annotates err with op and classifies it as kind.
func WrapKind(op string, kind, err error) error {
	return &opError{op: op, kind: kind, err: err}
}

// NewKind reports an error of kind raised by op itself.
func NewKind(op string, kind error) error {
	return &opError{op: op, kind: kind}
}

// classify maps an error to an HTTP status and a stable error code.
func classify(err error) (int, string) {
	switch {
	case errors.Is(err, formation.ErrInvalidFormation):
		return http.StatusBadRequest, "invalid_formation"
	case errors.Is(err, formation.ErrInvalidSide),
		errors.Is(err, board.ErrInvalidTool),
		errors.Is(err, board.ErrInvalidKind),
		errors.Is(err, service.ErrInvalidPhase),
		errors.Is(err, service.ErrInvalidVariant),
		errors.Is(err, ErrBadRequest):
		return http.StatusBadRequest, "bad_request"
	case errors.Is(err, repository.ErrNotFound):
		return http.StatusNotFound, "not_found"
	case errors.Is(err, board.ErrReadOnly):
		return http.StatusForbidden, "read_only"
	case errors.Is(err, service.ErrMatchClosed):
		return http.StatusForbidden, "match_closed"
	case errors.Is(err, board.ErrSaveInFlight):
		return http.StatusConflict, "save_in_flight"
	case errors.Is(err, board.ErrFreeForm), errors.Is(err, board.ErrNotFreeForm):
		return http.StatusConflict, "wrong_board"
	case errors.Is(err, queue.ErrQueueFull), errors.Is(err, ErrBackpressure):
		return http.StatusTooManyRequests, "backpressure"
	case errors.Is(err, service.ErrNotStarted), errors.Is(err, queue.ErrQueueClosed):
		return http.StatusServiceUnavailable, "unavailable"
	case errors.Is(err, service.ErrSaveTimeout):
		return http.StatusGatewayTimeout, "save_timeout"
	case errors.Is(err, board.ErrSaveFailed):
		return http.StatusInternalServerError, "save_failed"
	default:
		return http.StatusInternalServerError, "internal_error"
	}
}
