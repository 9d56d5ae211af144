package boardsim_test

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/okian/pitchside/internal/adapters/http/api"
	service "github.com/okian/pitchside/internal/app"
	"github.com/okian/pitchside/internal/boardsim"
	"github.com/okian/pitchside/internal/domain/model"
	"github.com/okian/pitchside/pkg/logger"
	. "github.com/smartystreets/goconvey/convey"
)

func init() {
	_ = logger.Init(logger.WithWriter(io.Discard))
}

func newServer(t *testing.T) (*httptest.Server, func()) {
	t.Helper()
	svc := service.New(service.WithWorkerCount(2), service.WithSaveLatencyRange(0, 0))
	if err := svc.Start(context.Background()); err != nil {
		t.Fatalf("start service: %v", err)
	}
	mux := http.NewServeMux()
	api.NewServer(svc, svc).Register(context.Background(), mux)
	srv := httptest.NewServer(mux)
	return srv, func() {
		srv.Close()
		svc.Stop()
	}
}

func TestGenerator(t *testing.T) {
	Convey("Given two generators with the same seed", t, func() {
		a := boardsim.NewGenerator(7).Plan(50)
		b := boardsim.NewGenerator(7).Plan(50)

		Convey("Then they plan the same gestures", func() {
			So(a, ShouldResemble, b)
		})

		Convey("And every gesture that moves has a path", func() {
			for _, g := range a {
				if g.Kind == boardsim.KindDrag || g.Kind == boardsim.KindArrow || g.Kind == boardsim.KindCancel {
					So(len(g.Path), ShouldBeGreaterThan, 0)
				}
			}
		})
	})
}

func TestCheckView(t *testing.T) {
	Convey("Given a board view", t, func() {
		v := boardsim.View{
			Markers: []model.Marker{
				{ID: "H1", Side: model.Home, Position: model.Coordinate{X: 50, Y: 95}},
				{ID: "A1", Side: model.Away, Position: model.Coordinate{X: 50, Y: 5}},
			},
			Arrows: []model.Arrow{{ID: "a", Start: model.Coordinate{X: 10, Y: 10}, End: model.Coordinate{X: 20, Y: 20}}},
		}

		Convey("When every invariant holds", func() {
			Convey("Then no violation is reported", func() {
				So(boardsim.CheckView("1/tactics", 1, v), ShouldBeEmpty)
			})
		})

		Convey("When a home marker crosses the halfway line", func() {
			v.Markers[0].Position.Y = 40

			Convey("Then a half violation is reported", func() {
				out := boardsim.CheckView("1/tactics", 3, v)
				So(len(out), ShouldEqual, 1)
				So(out[0].Rule, ShouldEqual, boardsim.RuleHalf)
				So(out[0].Gesture, ShouldEqual, 3)
			})
		})

		Convey("When a marker and an arrow leave the pitch", func() {
			v.Markers[1].Position.X = -1
			v.Arrows[0].End.Y = 101

			Convey("Then both are reported", func() {
				out := boardsim.CheckView("1/tactics", 1, v)
				So(len(out), ShouldEqual, 2)
				So(out[0].Rule, ShouldEqual, boardsim.RuleBounds)
				So(out[1].Rule, ShouldEqual, boardsim.RuleArrowBounds)
			})
		})
	})
}

func TestExpectedDrop(t *testing.T) {
	Convey("Given a drag released far outside the board", t, func() {
		far := boardsim.Point{X: boardsim.Rect.Left - 5000, Y: boardsim.Rect.Top - 5000}

		Convey("Then a home marker lands on the halfway line at the left edge", func() {
			So(boardsim.ExpectedDrop(model.Home, far), ShouldResemble, model.Coordinate{X: 0, Y: 50})
		})

		Convey("And an away marker lands in the top-left corner", func() {
			So(boardsim.ExpectedDrop(model.Away, far), ShouldResemble, model.Coordinate{X: 0, Y: 0})
		})
	})
}

func TestRun(t *testing.T) {
	Convey("Given a running service", t, func() {
		srv, stop := newServer(t)
		cfg := &boardsim.Config{
			BaseURL:  srv.URL,
			Gestures: 40,
			Workers:  2,
			Timeout:  5 * time.Second,
			SaveWait: 2 * time.Second,
			Sketch:   true,
			Seed:     42,
		}

		Convey("When the simulation runs", func() {
			stats, err := boardsim.Run(context.Background(), cfg)

			Convey("Then every open board is driven without violations", func() {
				So(err, ShouldBeNil)
				So(stats.Boards, ShouldEqual, 4)
				So(stats.Gestures, ShouldEqual, 4*40)
				So(stats.Failures, ShouldEqual, 0)
				So(stats.Violations, ShouldBeEmpty)
				So(stats.Saves, ShouldEqual, 4)
				So(stats.Duplicates, ShouldEqual, 4)
			})
		})

		Convey("When only a closed match is requested", func() {
			cfg.Matches = []string{"2"}
			cfg.Sketch = false
			stats, err := boardsim.Run(context.Background(), cfg)

			Convey("Then the read-only board is skipped", func() {
				So(err, ShouldBeNil)
				So(stats.Gestures, ShouldEqual, 0)
			})
		})

		Convey("When the configuration is invalid", func() {
			cfg.Workers = 0
			_, err := boardsim.Run(context.Background(), cfg)

			Convey("Then it is rejected", func() {
				So(errors.Is(err, boardsim.ErrInvalidConfig), ShouldBeTrue)
			})
		})

		Reset(stop)
	})

	Convey("Given no service", t, func() {
		cfg := &boardsim.Config{BaseURL: "http://127.0.0.1:1", Workers: 1, Timeout: time.Second, SaveWait: time.Second}

		Convey("When the simulation runs", func() {
			_, err := boardsim.Run(context.Background(), cfg)

			Convey("Then the health check fails", func() {
				So(errors.Is(err, boardsim.ErrUnhealthy), ShouldBeTrue)
			})
		})
	})
}
