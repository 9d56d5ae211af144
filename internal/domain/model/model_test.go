package model_test

import (
	"testing"

	model "github.com/okian/pitchside/internal/domain/model"
	"github.com/smartystreets/goconvey/convey"
)

func TestCoordinate(t *testing.T) {
	convey.Convey("Given coordinates outside the pitch", t, func() {
		c := model.Coordinate{X: -40, Y: 180}

		convey.Convey("When clamping", func() {
			got := c.Clamp()

			convey.Convey("Then both axes are confined to [0,100]", func() {
				convey.So(got, convey.ShouldResemble, model.Coordinate{X: 0, Y: 100})
			})
		})

		convey.Convey("When measuring a 3-4-5 distance", func() {
			d := model.Coordinate{X: 0, Y: 0}.Distance(model.Coordinate{X: 3, Y: 4})

			convey.Convey("Then it is Euclidean", func() {
				convey.So(d, convey.ShouldAlmostEqual, 5.0)
			})
		})
	})
}

func TestSideConfine(t *testing.T) {
	convey.Convey("Given the two sides", t, func() {
		convey.Convey("When a home marker is pushed into the away half", func() {
			got := model.Home.Confine(model.Coordinate{X: 30, Y: 10})

			convey.Convey("Then it stops at the halfway line", func() {
				convey.So(got.Y, convey.ShouldEqual, model.Halfway)
				convey.So(got.X, convey.ShouldEqual, 30)
			})
		})

		convey.Convey("When an away marker is pushed into the home half", func() {
			got := model.Away.Confine(model.Coordinate{X: 130, Y: 90})

			convey.Convey("Then it stops at the halfway line and x is clamped", func() {
				convey.So(got, convey.ShouldResemble, model.Coordinate{X: 100, Y: 50})
			})
		})

		convey.Convey("When a side-less marker is confined", func() {
			got := model.Side("").Confine(model.Coordinate{X: 20, Y: -5})

			convey.Convey("Then only clamping applies", func() {
				convey.So(got, convey.ShouldResemble, model.Coordinate{X: 20, Y: 0})
			})
		})
	})
}

func TestSideFromID(t *testing.T) {
	convey.Convey("Given marker ids", t, func() {
		home, ok := model.SideFromID("H3")
		convey.So(ok, convey.ShouldBeTrue)
		convey.So(home, convey.ShouldEqual, model.Home)

		away, ok := model.SideFromID("A11")
		convey.So(ok, convey.ShouldBeTrue)
		convey.So(away, convey.ShouldEqual, model.Away)

		_, ok = model.SideFromID("c4")
		convey.So(ok, convey.ShouldBeFalse)

		convey.So(model.Home.Prefix(), convey.ShouldEqual, "H")
		convey.So(model.Away.Prefix(), convey.ShouldEqual, "A")
		convey.So(model.Side("left").Valid(), convey.ShouldBeFalse)
	})
}

func TestArrowLength(t *testing.T) {
	convey.Convey("Given an arrow", t, func() {
		a := model.Arrow{Start: model.Coordinate{X: 10, Y: 10}, End: model.Coordinate{X: 10, Y: 12.5}}
		convey.So(a.Length(), convey.ShouldAlmostEqual, 2.5)
	})
}

func TestSaveJobResolve(t *testing.T) {
	convey.Convey("Given a save job with a buffered result", t, func() {
		j := model.SaveJob{ID: "j1", Result: make(chan model.SaveResult, 1)}

		convey.Convey("Then only the first result is delivered", func() {
			convey.So(j.Resolve(model.SaveResult{Tactic: model.Tactic{Version: 1}}), convey.ShouldBeTrue)
			convey.So(j.Resolve(model.SaveResult{Tactic: model.Tactic{Version: 2}}), convey.ShouldBeFalse)
			res := <-j.Result
			convey.So(res.Tactic.Version, convey.ShouldEqual, 1)
		})
	})
}
