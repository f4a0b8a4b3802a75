package evdev_test

import (
	"encoding/binary"
	"errors"
	"testing"

	"github.com/okian/balanceboard/internal/adapters/device/evdev"
	"github.com/okian/balanceboard/internal/domain/model"
	. "github.com/smartystreets/goconvey/convey"
)

// event encodes one input_event record in the given layout.
func event(size int, typ, code uint16, value int32) []byte {
	b := make([]byte, size)
	off := size - 8
	binary.LittleEndian.PutUint16(b[off:], typ)
	binary.LittleEndian.PutUint16(b[off+2:], code)
	binary.LittleEndian.PutUint32(b[off+4:], uint32(value))
	return b
}

func abs(size int, code uint16, value int32) []byte { return event(size, 0x03, code, value) }
func report(size int) []byte                        { return event(size, 0x00, 0x00, 0) }
func dropped(size int) []byte                       { return event(size, 0x00, 0x03, 0) }

// frame encodes a full board report: fr, br, fl, bl in kernel code order.
func frame(size int, fl, fr, bl, br int32) []byte {
	var out []byte
	out = append(out, abs(size, 0x10, fr)...)
	out = append(out, abs(size, 0x11, br)...)
	out = append(out, abs(size, 0x12, fl)...)
	out = append(out, abs(size, 0x13, bl)...)
	out = append(out, report(size)...)
	return out
}

func TestAssembler(t *testing.T) {
	for _, size := range []int{evdev.EventSize16, evdev.EventSize24} {
		Convey("Given an assembler for the layout", t, func() {
			a, err := evdev.NewAssembler(size, evdev.DefaultCornerMap)
			So(err, ShouldBeNil)

			Convey("When a full frame is fed", func() {
				a.Feed(frame(size, 10, 20, 30, 40))
				s, ok, err := a.Next()

				Convey("Then the corners land in logical order", func() {
					So(err, ShouldBeNil)
					So(ok, ShouldBeTrue)
					So(s, ShouldResemble, model.RawSample{FL: 10, FR: 20, BL: 30, BR: 40})
					So(a.Buffered(), ShouldBeFalse)
				})

				Convey("And a later report carrying one changed axis keeps the others", func() {
					a.Feed(abs(size, 0x12, 55))
					a.Feed(report(size))
					s, ok, err := a.Next()
					So(err, ShouldBeNil)
					So(ok, ShouldBeTrue)
					So(s, ShouldResemble, model.RawSample{FL: 55, FR: 20, BL: 30, BR: 40})
				})
			})

			Convey("When the frame is split across reads", func() {
				full := frame(size, 1, 2, 3, 4)
				a.Feed(full[:size+3])
				_, ok, err := a.Next()
				So(err, ShouldBeNil)
				So(ok, ShouldBeFalse)

				a.Feed(full[size+3:])
				s, ok, err := a.Next()
				So(err, ShouldBeNil)
				So(ok, ShouldBeTrue)
				So(s, ShouldResemble, model.RawSample{FL: 1, FR: 2, BL: 3, BR: 4})
			})

			Convey("When a report arrives before every corner was seen", func() {
				a.Feed(abs(size, 0x10, 7))
				a.Feed(report(size))
				_, ok, err := a.Next()

				Convey("Then no frame is produced", func() {
					So(err, ShouldBeNil)
					So(ok, ShouldBeFalse)
				})
			})

			Convey("When two frames are buffered", func() {
				a.Feed(frame(size, 1, 1, 1, 1))
				a.Feed(frame(size, 2, 2, 2, 2))

				Convey("Then they are returned one at a time", func() {
					s, ok, _ := a.Next()
					So(ok, ShouldBeTrue)
					So(s.FL, ShouldEqual, 1)
					So(a.Buffered(), ShouldBeTrue)
					s, ok, _ = a.Next()
					So(ok, ShouldBeTrue)
					So(s.FL, ShouldEqual, 2)
				})
			})

			Convey("When the kernel reports dropped events", func() {
				a.Feed(frame(size, 10, 10, 10, 10))
				_, _, _ = a.Next()

				a.Feed(abs(size, 0x12, 99))
				a.Feed(dropped(size))
				a.Feed(abs(size, 0x12, 77))
				a.Feed(report(size))
				_, ok, err := a.Next()

				Convey("Then the partial frame is discarded", func() {
					So(ok, ShouldBeFalse)
					So(errors.Is(err, evdev.ErrEventsDropped), ShouldBeTrue)
				})

				Convey("And the next frame is clean", func() {
					a.Feed(frame(size, 5, 6, 7, 8))
					s, ok, err := a.Next()
					So(err, ShouldBeNil)
					So(ok, ShouldBeTrue)
					So(s, ShouldResemble, model.RawSample{FL: 5, FR: 6, BL: 7, BR: 8})
				})
			})

			Convey("When unrelated axes and negative values appear", func() {
				a.Feed(abs(size, 0x00, 500))
				a.Feed(frame(size, -3, 2, 3, 4))
				s, ok, err := a.Next()
				So(err, ShouldBeNil)
				So(ok, ShouldBeTrue)
				So(s, ShouldResemble, model.RawSample{FL: 0, FR: 2, BL: 3, BR: 4})
			})

			Convey("When corners are set from kernel state", func() {
				a.Set(model.FrontLeft, 1)
				a.Set(model.FrontRight, 2)
				a.Set(model.BackLeft, 3)
				a.Set(model.BackRight, 4)
				a.Feed(report(size))
				s, ok, err := a.Next()
				So(err, ShouldBeNil)
				So(ok, ShouldBeTrue)
				So(s, ShouldResemble, model.RawSample{FL: 1, FR: 2, BL: 3, BR: 4})
			})
		})
	}
}

func TestAssemblerConfig(t *testing.T) {
	Convey("Given invalid assembler configuration", t, func() {
		Convey("Then an unknown event size is rejected", func() {
			_, err := evdev.NewAssembler(20, evdev.DefaultCornerMap)
			So(errors.Is(err, evdev.ErrEventSize), ShouldBeTrue)
		})

		Convey("Then a corner map with duplicate codes is rejected", func() {
			_, err := evdev.NewAssembler(evdev.EventSize24, evdev.CornerMap{0x10, 0x10, 0x12, 0x13})
			So(err, ShouldNotBeNil)
		})
	})

	Convey("Given a custom corner map", t, func() {
		swapped := evdev.CornerMap{
			model.FrontLeft:  0x12,
			model.FrontRight: 0x10,
			model.BackLeft:   0x11,
			model.BackRight:  0x13,
		}
		a, err := evdev.NewAssembler(evdev.EventSize24, swapped)
		So(err, ShouldBeNil)
		a.Feed(frame(evdev.EventSize24, 10, 20, 30, 40))
		s, ok, _ := a.Next()

		Convey("Then the back corners follow the map", func() {
			So(ok, ShouldBeTrue)
			So(s, ShouldResemble, model.RawSample{FL: 10, FR: 20, BL: 40, BR: 30})
		})

		Convey("Then Lookup resolves codes", func() {
			c, ok := swapped.Lookup(0x11)
			So(ok, ShouldBeTrue)
			So(c, ShouldEqual, model.BackLeft)
			_, ok = swapped.Lookup(0x00)
			So(ok, ShouldBeFalse)
		})
	})

	Convey("Given the native event size", t, func() {
		So(evdev.NativeEventSize == evdev.EventSize16 || evdev.NativeEventSize == evdev.EventSize24, ShouldBeTrue)
	})
}
