package service_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"sync"
	"testing"
	"time"

	. "github.com/smartystreets/goconvey/convey"

	"github.com/okian/balanceboard/internal/adapters/device/discovery"
	"github.com/okian/balanceboard/internal/adapters/device/sim"
	"github.com/okian/balanceboard/internal/adapters/http/api"
	"github.com/okian/balanceboard/internal/adapters/sink/recorder"
	service "github.com/okian/balanceboard/internal/app"
	"github.com/okian/balanceboard/internal/config"
	"github.com/okian/balanceboard/internal/domain/model"
	"github.com/okian/balanceboard/internal/reader"
	"github.com/okian/balanceboard/pkg/logger"
)

func init() {
	if err := logger.Init(logger.WithWriter(io.Discard)); err != nil {
		panic(err)
	}
}

type lockedBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *lockedBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *lockedBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

type brokenDevice struct{}

func (brokenDevice) Wait(context.Context, time.Duration) error { return nil }
func (brokenDevice) Decode() (model.RawSample, error) {
	return model.RawSample{}, fmt.Errorf("%w: garbage", reader.ErrFatalDecode)
}
func (brokenDevice) Close() error { return nil }

func testConfig() *config.Config {
	cfg := config.New(context.Background())
	cfg.WaitTimeoutMS = 50
	cfg.ConsoleIntervalMS = 10
	return cfg
}

func sequence() []model.RawSample {
	return []model.RawSample{
		{FL: 10, FR: 20, BL: 30, BR: 40},
		{FL: 40, FR: 30, BL: 20, BR: 10},
		{FL: 0, FR: 0, BL: 0, BR: 0},
	}
}

func waitSeq(svc *service.Service, seq uint64) (model.Snapshot, bool) {
	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		if snap, ok := svc.Snapshot(); ok && snap.Seq >= seq {
			return snap, true
		}
		time.Sleep(5 * time.Millisecond)
	}
	return model.Snapshot{}, false
}

func stop(svc *service.Service) error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return svc.Stop(ctx)
}

func TestService_Lifecycle(t *testing.T) {
	Convey("Given a service over a scripted device", t, func() {
		cfg := testConfig()
		cfg.RecorderEnabled = true
		cfg.RecorderIntervalMS = 5
		cfg.RecorderPath = filepath.Join(t.TempDir(), "board.db")

		out := &lockedBuffer{}
		dev := sim.New(sequence(), sim.WithInterval(30*time.Millisecond))
		svc := service.New(cfg, service.WithDevice(dev), service.WithConsoleWriter(out))

		Convey("Nothing is available before Start", func() {
			_, ok := svc.Snapshot()
			So(ok, ShouldBeFalse)
			_, ok = svc.LatestCoP()
			So(ok, ShouldBeFalse)
			So(svc.GetStats()["state"], ShouldEqual, service.StateIdle)
		})

		Convey("When it is stopped before Start", func() {
			So(errors.Is(stop(svc), service.ErrNotStarted), ShouldBeTrue)

			Convey("Then Start refuses to run and nothing is read", func() {
				So(errors.Is(svc.Start(context.Background()), service.ErrAlreadyStopped), ShouldBeTrue)
				time.Sleep(50 * time.Millisecond)
				_, ok := svc.Snapshot()
				So(ok, ShouldBeFalse)
				So(svc.GetStats()["reader"], ShouldBeNil)
				So(svc.GetStats()["sinks"], ShouldBeEmpty)
			})
		})

		Convey("When started", func() {
			ctx, cancel := context.WithCancel(context.Background())
			defer cancel()
			So(svc.Start(ctx), ShouldBeNil)

			snap, ok := waitSeq(svc, 3)
			So(ok, ShouldBeTrue)

			Convey("Then the last scripted sample is the latest reading", func() {
				So(snap.Seq, ShouldEqual, 3)
				So(snap.CoP, ShouldResemble, model.CenterOfPressure{X: 0, Y: 0})

				s, ok := svc.LatestSample()
				So(ok, ShouldBeTrue)
				So(s, ShouldResemble, model.RawSample{})
				So(stop(svc), ShouldBeNil)
			})

			Convey("And a second Start is rejected", func() {
				So(errors.Is(svc.Start(ctx), service.ErrAlreadyStarted), ShouldBeTrue)
				So(stop(svc), ShouldBeNil)
			})

			Convey("And stats describe the running pipeline", func() {
				stats := svc.GetStats()
				So(stats["state"], ShouldEqual, service.StateRunning)
				So(stats["sinks"], ShouldResemble, []string{"console", "recorder"})
				So(stats["reader"].(reader.Stats).Samples, ShouldEqual, 3)
				So(stop(svc), ShouldBeNil)
				So(svc.GetStats()["state"], ShouldEqual, service.StateStopped)
			})

			Convey("And the HTTP routes serve the latest reading", func() {
				mux := http.NewServeMux()
				svc.Register(ctx, mux)
				srv := httptest.NewServer(mux)
				defer srv.Close()

				resp, err := http.Get(srv.URL + "/api/cop")
				So(err, ShouldBeNil)
				defer resp.Body.Close()
				So(resp.StatusCode, ShouldEqual, http.StatusOK)

				var body api.CoPResponse
				So(json.NewDecoder(resp.Body).Decode(&body), ShouldBeNil)
				So(body.Seq, ShouldEqual, 3)
				So(stop(svc), ShouldBeNil)
			})

			Convey("And the console rendered the readings", func() {
				deadline := time.Now().Add(time.Second)
				for !bytes.Contains([]byte(out.String()), []byte("CoP x=0 y=0")) && time.Now().Before(deadline) {
					time.Sleep(5 * time.Millisecond)
				}
				So(out.String(), ShouldContainSubstring, "CoP x=0 y=0")
				So(stop(svc), ShouldBeNil)
			})

			Convey("And the recorder kept the session after Stop", func() {
				time.Sleep(50 * time.Millisecond)
				So(stop(svc), ShouldBeNil)

				rec, err := recorder.Open(cfg.RecorderPath)
				So(err, ShouldBeNil)
				defer rec.Close()

				sessions, err := rec.Sessions()
				So(err, ShouldBeNil)
				So(len(sessions), ShouldEqual, 2)

				var recorded []model.Snapshot
				for _, id := range sessions {
					if id == rec.Session() {
						continue
					}
					recorded, err = rec.Read(id)
					So(err, ShouldBeNil)
				}
				So(len(recorded), ShouldBeGreaterThan, 0)
				So(recorded[len(recorded)-1].Seq, ShouldEqual, 3)
				for i := 1; i < len(recorded); i++ {
					So(recorded[i].Seq, ShouldBeGreaterThan, recorded[i-1].Seq)
				}
			})
		})
	})
}

func TestService_FatalDevice(t *testing.T) {
	Convey("Given a service over a device that cannot be decoded", t, func() {
		cfg := testConfig()
		cfg.ConsoleEnabled = false
		svc := service.New(cfg, service.WithDevice(brokenDevice{}))

		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()
		So(svc.Start(ctx), ShouldBeNil)

		Convey("Then Done closes and the fatal error surfaces", func() {
			select {
			case <-svc.Done():
			case <-time.After(5 * time.Second):
			}
			So(errors.Is(svc.Err(), reader.ErrFatalDecode), ShouldBeTrue)
			So(svc.GetStats()["state"], ShouldEqual, service.StateFailed)
			So(stop(svc), ShouldBeNil)
			So(svc.GetStats()["state"], ShouldEqual, service.StateFailed)
		})
	})
}

func TestService_StopDuringDiscovery(t *testing.T) {
	Convey("Given a service waiting for a board that never appears", t, func() {
		cfg := testConfig()
		cfg.ConsoleEnabled = false
		cfg.RecorderEnabled = true
		cfg.RecorderPath = filepath.Join(t.TempDir(), "board.db")
		cfg.DiscoveryIntervalMS = 5
		cfg.DiscoverySettleMS = 0
		svc := service.New(cfg, service.WithDiscovery(
			discovery.WithDevicesFile(filepath.Join("..", "adapters", "device", "discovery", "testdata", "devices_none.txt")),
			discovery.WithDevDir(t.TempDir()),
		))

		started := make(chan error, 1)
		go func() { started <- svc.Start(context.Background()) }()

		deadline := time.Now().Add(5 * time.Second)
		for svc.GetStats()["state"] != service.StateDiscovering && time.Now().Before(deadline) {
			time.Sleep(time.Millisecond)
		}
		So(svc.GetStats()["state"], ShouldEqual, service.StateDiscovering)

		Convey("When it is stopped", func() {
			So(stop(svc), ShouldBeNil)

			Convey("Then Start returns without starting the pipeline", func() {
				var err error
				select {
				case err = <-started:
				case <-time.After(5 * time.Second):
					err = errors.New("start did not return")
				}
				So(errors.Is(err, service.ErrAlreadyStopped), ShouldBeTrue)

				select {
				case <-svc.Done():
				case <-time.After(time.Second):
				}
				stats := svc.GetStats()
				So(stats["state"], ShouldEqual, service.StateStopped)
				So(stats["reader"], ShouldBeNil)
				So(stats["sinks"], ShouldBeEmpty)

				// The recorder was never opened, so the file is free to open.
				rec, err := recorder.Open(cfg.RecorderPath)
				So(err, ShouldBeNil)
				So(rec.Close(), ShouldBeNil)
			})
		})
	})
}

func TestService_SimSource(t *testing.T) {
	Convey("Given a sim source configured with a script file", t, func() {
		cfg := testConfig()
		cfg.ConsoleEnabled = false
		cfg.DeviceSource = config.SourceSim
		cfg.SimScript = filepath.Join("..", "adapters", "device", "sim", "testdata", "sequence.yaml")
		svc := service.New(cfg)

		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()
		So(svc.Start(ctx), ShouldBeNil)

		Convey("Then the scripted CoP sequence is observed", func() {
			snap, ok := waitSeq(svc, 1)
			So(ok, ShouldBeTrue)
			So(snap.CoP, ShouldResemble, model.CenterOfPressure{X: 20, Y: -20})

			snap, ok = waitSeq(svc, 3)
			So(ok, ShouldBeTrue)
			So(snap.CoP, ShouldResemble, model.CenterOfPressure{X: 0, Y: 0})
			So(svc.GetStats()["devicePath"], ShouldEqual, "sim:"+cfg.SimScript)
			So(stop(svc), ShouldBeNil)
		})
	})

	Convey("Given a sim source with a missing script", t, func() {
		cfg := testConfig()
		cfg.DeviceSource = config.SourceSim
		cfg.SimScript = filepath.Join(t.TempDir(), "missing.yaml")
		svc := service.New(cfg)

		Convey("Then Start reports that no device is available", func() {
			err := svc.Start(context.Background())
			So(errors.Is(err, service.ErrNoDevice), ShouldBeTrue)
			<-svc.Done()
			So(svc.GetStats()["state"], ShouldEqual, service.StateFailed)
		})
	})
}
