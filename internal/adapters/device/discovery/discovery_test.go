package discovery_test

import (
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/okian/balanceboard/internal/adapters/device/discovery"
	logging "github.com/okian/balanceboard/pkg/logger"
	. "github.com/smartystreets/goconvey/convey"
)

func TestParseDevices(t *testing.T) {
	Convey("Given a device list with a balance board", t, func() {
		f, err := os.Open("testdata/devices_board.txt")
		So(err, ShouldBeNil)
		defer f.Close()

		devices, err := discovery.ParseDevices(f)
		So(err, ShouldBeNil)

		Convey("Then every block is parsed", func() {
			So(len(devices), ShouldEqual, 3)
			So(devices[0].Name, ShouldEqual, "Power Button")
			So(devices[0].Handlers, ShouldResemble, []string{"kbd", "event0"})
		})

		Convey("Then only the board is classified as one", func() {
			So(devices[0].IsBalanceBoard(), ShouldBeFalse)
			So(devices[1].IsBalanceBoard(), ShouldBeFalse)
			So(devices[2].IsBalanceBoard(), ShouldBeTrue)
			So(devices[2].EventNode(), ShouldEqual, "event12")
			So(devices[2].ABS, ShouldEqual, 0xf0000)
			So(devices[2].Reason(), ShouldEqual, "match")
		})
	})

	Convey("Given a list without a usable board", t, func() {
		f, err := os.Open("testdata/devices_none.txt")
		So(err, ShouldBeNil)
		defer f.Close()

		devices, err := discovery.ParseDevices(f)
		So(err, ShouldBeNil)
		So(len(devices), ShouldEqual, 3)

		Convey("Then the reasons explain each mismatch", func() {
			So(devices[0].Reason(), ShouldEqual, "name does not match")
			So(devices[1].Reason(), ShouldEqual, "missing load cell axes")
			So(devices[2].Reason(), ShouldEqual, "name does not match")
			So(devices[2].HasLoadCells(), ShouldBeTrue)
		})
	})

	Convey("Given a malformed ABS bitmap", t, func() {
		_, err := discovery.ParseDevices(strings.NewReader("N: Name=\"x\"\nB: ABS=zz\n"))

		Convey("Then parsing fails", func() {
			So(errors.Is(err, discovery.ErrMalformed), ShouldBeTrue)
		})
	})

	Convey("Given a board entry without an event handler", t, func() {
		devices, err := discovery.ParseDevices(strings.NewReader(
			"N: Name=\"Nintendo Wii Remote Balance Board\"\nH: Handlers=kbd\nB: ABS=f0000\n"))
		So(err, ShouldBeNil)

		Convey("Then it is not a board", func() {
			So(devices[0].IsBalanceBoard(), ShouldBeFalse)
			So(devices[0].Reason(), ShouldEqual, "no event handler")
		})
	})
}

func copyFixture(t *testing.T, name, dst string) {
	t.Helper()
	b, err := os.ReadFile(filepath.Join("testdata", name))
	if err != nil {
		t.Errorf("read fixture: %v", err)
		return
	}
	tmp := dst + ".tmp"
	if err := os.WriteFile(tmp, b, 0o600); err != nil {
		t.Errorf("write fixture: %v", err)
		return
	}
	if err := os.Rename(tmp, dst); err != nil {
		t.Errorf("rename fixture: %v", err)
	}
}

func TestScanner(t *testing.T) {
	_ = logging.Init(logging.WithWriter(io.Discard))

	Convey("Given a scanner over a fixture list", t, func() {
		list := filepath.Join(t.TempDir(), "devices")

		Convey("When the board is listed", func() {
			copyFixture(t, "devices_board.txt", list)
			s := discovery.New(discovery.WithDevicesFile(list), discovery.WithDevDir("/dev/input"))
			res := s.Scan()

			Convey("Then the result carries its event node", func() {
				So(res.Kind, ShouldEqual, discovery.KindFound)
				So(res.Path, ShouldEqual, "/dev/input/event12")
				So(res.Name, ShouldEqual, "Nintendo Wii Remote Balance Board")
				So(res.Kind.String(), ShouldEqual, "found")
			})
		})

		Convey("When no board is listed", func() {
			copyFixture(t, "devices_none.txt", list)
			res := discovery.New(discovery.WithDevicesFile(list)).Scan()

			Convey("Then it is a non-match, not an error", func() {
				So(res.Kind, ShouldEqual, discovery.KindNoMatch)
				So(res.Err, ShouldBeNil)
			})
		})

		Convey("When the list cannot be read", func() {
			res := discovery.New(discovery.WithDevicesFile(list + ".missing")).Scan()

			Convey("Then it is fatal", func() {
				So(res.Kind, ShouldEqual, discovery.KindFatal)
				So(errors.Is(res.Err, discovery.ErrDeviceList), ShouldBeTrue)
			})
		})
	})
}

func TestScannerWait(t *testing.T) {
	_ = logging.Init(logging.WithWriter(io.Discard))

	Convey("Given a board that appears after a few scans", t, func() {
		list := filepath.Join(t.TempDir(), "devices")
		copyFixture(t, "devices_none.txt", list)
		s := discovery.New(
			discovery.WithDevicesFile(list),
			discovery.WithSettle(10*time.Millisecond),
		)

		go func() {
			time.Sleep(30 * time.Millisecond)
			copyFixture(t, "devices_board.txt", list)
		}()

		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		res, err := s.Wait(ctx, 5*time.Millisecond)

		Convey("Then Wait returns it after settling", func() {
			So(err, ShouldBeNil)
			So(res.Kind, ShouldEqual, discovery.KindFound)
			So(res.Path, ShouldEqual, "/dev/input/event12")
		})
	})

	Convey("Given no board ever appears", t, func() {
		list := filepath.Join(t.TempDir(), "devices")
		copyFixture(t, "devices_none.txt", list)
		s := discovery.New(discovery.WithDevicesFile(list))

		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Millisecond)
		defer cancel()
		res, err := s.Wait(ctx, 5*time.Millisecond)

		Convey("Then Wait gives up with the context", func() {
			So(errors.Is(err, context.DeadlineExceeded), ShouldBeTrue)
			So(res.Kind, ShouldEqual, discovery.KindNoMatch)
		})
	})

	Convey("Given a device list that is missing", t, func() {
		s := discovery.New(discovery.WithDevicesFile(filepath.Join(t.TempDir(), "missing")))
		res, err := s.Wait(context.Background(), time.Millisecond)

		Convey("Then Wait returns the fatal result at once", func() {
			So(res.Kind, ShouldEqual, discovery.KindFatal)
			So(errors.Is(err, discovery.ErrDeviceList), ShouldBeTrue)
		})
	})
}
