package event_test

import (
	"testing"

	"github.com/cadencelab/tempolink/internal/domain/event"
	. "github.com/smartystreets/goconvey/convey"
)

func TestFromArgs(t *testing.T) {
	Convey("Given a /dirt/play argument list", t, func() {
		Convey("When it carries cps and cycle", func() {
			ev, err := event.FromArgs([]any{"cps", 0.5625, "cycle", float64(10.25), "s", "bd"})
			So(err, ShouldBeNil)
			So(ev.CPS, ShouldAlmostEqual, 0.5625)
			So(ev.HasCycle, ShouldBeTrue)
			So(ev.Cycle, ShouldAlmostEqual, 10.25)
			So(ev.Params["s"], ShouldEqual, "bd")
		})

		Convey("When cycle is absent", func() {
			ev, err := event.FromArgs([]any{"cps", float32(2.0)})
			So(err, ShouldBeNil)
			So(ev.CPS, ShouldAlmostEqual, 2.0, 1e-6)
			So(ev.HasCycle, ShouldBeFalse)
		})

		Convey("When numeric values arrive as wire integer types", func() {
			ev, err := event.FromArgs([]any{"cps", int32(1), "cycle", int64(7)})
			So(err, ShouldBeNil)
			So(ev.CPS, ShouldEqual, 1.0)
			So(ev.Cycle, ShouldEqual, 7.0)
			So(ev.HasCycle, ShouldBeTrue)
		})

		Convey("When a trailing key has no value", func() {
			ev, err := event.FromArgs([]any{"cps", 0.5, "orphan"})
			So(err, ShouldBeNil)
			So(ev.Params, ShouldNotContainKey, "orphan")
		})

		Convey("When a key repeats, the last value wins", func() {
			ev, err := event.FromArgs([]any{"cps", 0.5, "cps", 0.75})
			So(err, ShouldBeNil)
			So(ev.CPS, ShouldAlmostEqual, 0.75)
		})

		Convey("When keys are not strings they are coerced", func() {
			ev, err := event.FromArgs([]any{"cps", 0.5, int32(7), "seven"})
			So(err, ShouldBeNil)
			So(ev.Params["7"], ShouldEqual, "seven")
		})

		Convey("When cps is missing", func() {
			_, err := event.FromArgs([]any{"s", "bd", "orbit", int32(0)})
			So(err, ShouldWrap, event.ErrNoTempo)
		})

		Convey("When cps is not actionable", func() {
			for _, bad := range []any{float64(0), float64(-1), "fast"} {
				_, err := event.FromArgs([]any{"cps", bad})
				So(err, ShouldWrap, event.ErrNoTempo)
			}
		})

		Convey("When the list is empty", func() {
			_, err := event.FromArgs(nil)
			So(err, ShouldWrap, event.ErrNoTempo)
		})
	})
}
