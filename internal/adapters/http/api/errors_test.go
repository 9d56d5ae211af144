package api

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/okian/pitchside/internal/adapters/mq/queue"
	"github.com/okian/pitchside/internal/adapters/repository"
	service "github.com/okian/pitchside/internal/app"
	"github.com/okian/pitchside/internal/domain/board"
	"github.com/okian/pitchside/internal/domain/formation"
	"github.com/smartystreets/goconvey/convey"
)

func TestWrap(t *testing.T) {
	convey.Convey("Given an operation error", t, func() {
		err := WrapKind("api.save", ErrBadRequest, errors.New("empty body"))

		convey.Convey("Then it names the operation and keeps both causes", func() {
			convey.So(err.Error(), convey.ShouldEqual, "api.save: bad request: empty body")
			convey.So(errors.Is(err, ErrBadRequest), convey.ShouldBeTrue)
		})

		convey.Convey("And Wrap of nil is nil", func() {
			convey.So(Wrap("api.save", nil), convey.ShouldBeNil)
		})

		convey.Convey("And NewKind carries only the kind", func() {
			err := NewKind("api.save", ErrBackpressure)
			convey.So(err.Error(), convey.ShouldEqual, "api.save: backpressure")
			convey.So(errors.Is(err, ErrBackpressure), convey.ShouldBeTrue)
		})
	})
}

func TestClassify(t *testing.T) {
	convey.Convey("Given domain errors", t, func() {
		cases := []struct {
			err    error
			status int
			code   string
		}{
			{formation.ErrInvalidFormation, http.StatusBadRequest, "invalid_formation"},
			{formation.ErrInvalidSide, http.StatusBadRequest, "bad_request"},
			{repository.ErrNotFound, http.StatusNotFound, "not_found"},
			{board.ErrReadOnly, http.StatusForbidden, "read_only"},
			{board.ErrSaveInFlight, http.StatusConflict, "save_in_flight"},
			{queue.ErrQueueFull, http.StatusTooManyRequests, "backpressure"},
			{fmt.Errorf("%w: %w", board.ErrSaveFailed, service.ErrSaveTimeout), http.StatusGatewayTimeout, "save_timeout"},
			{fmt.Errorf("%w: %w", board.ErrSaveFailed, service.ErrNotStarted), http.StatusServiceUnavailable, "unavailable"},
			{board.ErrSaveFailed, http.StatusInternalServerError, "save_failed"},
			{errors.New("boom"), http.StatusInternalServerError, "internal_error"},
		}

		convey.Convey("Then each maps to its status and code", func() {
			for _, c := range cases {
				status, code := classify(Wrap("api.test", c.err))
				convey.So(status, convey.ShouldEqual, c.status)
				convey.So(code, convey.ShouldEqual, c.code)
			}
		})
	})
}
