package cop_test

import (
	"math/rand"
	"testing"

	"github.com/okian/balanceboard/internal/domain/cop"
	"github.com/okian/balanceboard/internal/domain/model"
	. "github.com/smartystreets/goconvey/convey"
)

func TestDerive(t *testing.T) {
	Convey("Given the base transform", t, func() {
		Convey("When the board is unloaded", func() {
			p := cop.Derive(model.RawSample{})

			Convey("Then the center of pressure is the origin", func() {
				So(p, ShouldResemble, model.CenterOfPressure{X: 0, Y: 0})
			})
		})

		Convey("When only the front corners are loaded", func() {
			p := cop.Derive(model.RawSample{FL: 100, FR: 100})

			Convey("Then x is balanced and y takes the full front load", func() {
				So(p.X, ShouldEqual, 0)
				So(p.Y, ShouldEqual, 200)
			})
		})

		Convey("When only the right corners are loaded", func() {
			p := cop.Derive(model.RawSample{FR: 70, BR: 30})

			Convey("Then x is positive and y reflects the front bias", func() {
				So(p.X, ShouldEqual, 100)
				So(p.Y, ShouldEqual, 40)
			})
		})

		Convey("When deriving known samples", func() {
			So(cop.Derive(model.RawSample{FL: 10, FR: 20, BL: 30, BR: 40}), ShouldResemble, model.CenterOfPressure{X: 20, Y: -20})
			So(cop.Derive(model.RawSample{FL: 40, FR: 30, BL: 20, BR: 10}), ShouldResemble, model.CenterOfPressure{X: -20, Y: 20})
		})

		Convey("When deriving random non-negative samples", func() {
			rng := rand.New(rand.NewSource(42))

			Convey("Then both axes satisfy the linear identities and stay bounded", func() {
				for i := 0; i < 1000; i++ {
					s := model.RawSample{FL: rng.Intn(20000), FR: rng.Intn(20000), BL: rng.Intn(20000), BR: rng.Intn(20000)}
					p := cop.Derive(s)
					So(p.X+(s.FL+s.BL), ShouldEqual, s.FR+s.BR)
					So(p.Y+(s.BL+s.BR), ShouldEqual, s.FL+s.FR)
					So(abs(p.X), ShouldBeLessThanOrEqualTo, cop.Total(s))
					So(abs(p.Y), ShouldBeLessThanOrEqualTo, cop.Total(s))
				}
			})
		})
	})
}

func TestConvention(t *testing.T) {
	Convey("Given a sample loaded front-right", t, func() {
		s := model.RawSample{FL: 10, FR: 50, BL: 0, BR: 20}
		base := cop.Derive(s)

		Convey("The default convention matches the base transform", func() {
			So(cop.Default.Derive(s), ShouldResemble, base)
		})

		Convey("FlipX negates only x", func() {
			p := cop.Convention{FlipX: true}.Derive(s)
			So(p.X, ShouldEqual, -base.X)
			So(p.Y, ShouldEqual, base.Y)
		})

		Convey("FlipY negates only y", func() {
			p := cop.Convention{FlipY: true}.Derive(s)
			So(p.X, ShouldEqual, base.X)
			So(p.Y, ShouldEqual, -base.Y)
		})

		Convey("SwapAxes exchanges x and y before flipping", func() {
			p := cop.Convention{SwapAxes: true, FlipX: true}.Derive(s)
			So(p.X, ShouldEqual, -base.Y)
			So(p.Y, ShouldEqual, base.X)
		})
	})
}

func TestNormalize(t *testing.T) {
	Convey("Given normalization by total load", t, func() {
		Convey("An unloaded board normalizes to the origin", func() {
			nx, ny := cop.Normalize(model.CenterOfPressure{}, model.RawSample{})
			So(nx, ShouldEqual, 0)
			So(ny, ShouldEqual, 0)
		})

		Convey("All load on the right corners gives x = 1", func() {
			s := model.RawSample{FR: 50, BR: 50}
			nx, ny := cop.Normalize(cop.Derive(s), s)
			So(nx, ShouldEqual, 1)
			So(ny, ShouldEqual, 0)
		})

		Convey("Millimetres maps the unit range onto half the footprint", func() {
			mx, my := cop.Millimetres(1, -1)
			So(mx, ShouldEqual, cop.BoardWidthMM/2)
			So(my, ShouldEqual, -cop.BoardDepthMM/2)
		})
	})
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
