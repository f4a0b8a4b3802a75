package main

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/smartystreets/goconvey/convey"

	app "github.com/okian/balanceboard/internal/app"
	"github.com/okian/balanceboard/internal/config"
	"github.com/okian/balanceboard/pkg/logger"
)

func init() {
	if err := logger.Init(logger.WithWriter(io.Discard)); err != nil {
		panic(err)
	}
}

func TestMainApplicationComponents(t *testing.T) {
	convey.Convey("Given main application components", t, func() {
		convey.Convey("When building the HTTP server", func() {
			srv := newHTTPServer(":0", http.NewServeMux())

			convey.Convey("Then it carries the configured timeouts", func() {
				convey.So(srv.ReadTimeout, convey.ShouldEqual, readTimeout)
				convey.So(srv.WriteTimeout, convey.ShouldEqual, writeTimeout)
				convey.So(srv.IdleTimeout, convey.ShouldEqual, idleTimeout)
				convey.So(srv.ReadHeaderTimeout, convey.ShouldEqual, readHeaderTimeout)
			})
		})

		convey.Convey("When testing system metrics update", func() {
			convey.Convey("Then it should update metrics without panicking", func() {
				convey.So(updateSystemMetrics, convey.ShouldNotPanic)
			})
		})

		convey.Convey("When the system metrics updater's context ends", func() {
			ctx, cancel := context.WithCancel(context.Background())
			done := make(chan struct{})
			go func() {
				startSystemMetricsUpdater(ctx)
				close(done)
			}()
			cancel()

			convey.Convey("Then it returns", func() {
				select {
				case <-done:
					convey.So(true, convey.ShouldBeTrue)
				case <-time.After(time.Second):
					convey.So("updater still running", convey.ShouldBeEmpty)
				}
			})
		})
	})
}

func TestMainApplicationIntegration(t *testing.T) {
	convey.Convey("Given a sim-backed service behind the HTTP mux", t, func() {
		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()

		cfg := config.New(ctx)
		cfg.DeviceSource = config.SourceSim
		cfg.SimScript = filepath.Join("..", "internal", "adapters", "device", "sim", "testdata", "sequence.yaml")
		cfg.ConsoleEnabled = false
		cfg.WaitTimeoutMS = 50

		svc := app.New(cfg)
		mux := http.NewServeMux()
		svc.Register(ctx, mux)
		srv := httptest.NewServer(mux)
		defer srv.Close()

		convey.Convey("Then the sample endpoint reports 503 before Start", func() {
			resp, err := http.Get(srv.URL + "/api/sample")
			convey.So(err, convey.ShouldBeNil)
			_ = resp.Body.Close()
			convey.So(resp.StatusCode, convey.ShouldEqual, http.StatusServiceUnavailable)
		})

		convey.Convey("Then the sample endpoint serves readings after Start", func() {
			convey.So(svc.Start(ctx), convey.ShouldBeNil)

			status := 0
			deadline := time.Now().Add(5 * time.Second)
			for status != http.StatusOK && time.Now().Before(deadline) {
				resp, err := http.Get(srv.URL + "/api/sample")
				convey.So(err, convey.ShouldBeNil)
				status = resp.StatusCode
				_ = resp.Body.Close()
				time.Sleep(10 * time.Millisecond)
			}
			convey.So(status, convey.ShouldEqual, http.StatusOK)

			resp, err := http.Get(srv.URL + "/healthz")
			convey.So(err, convey.ShouldBeNil)
			body, _ := io.ReadAll(resp.Body)
			_ = resp.Body.Close()
			convey.So(string(body), convey.ShouldContainSubstring, "balanceboard_reader_samples_decoded_total")

			stopCtx, stopCancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer stopCancel()
			convey.So(svc.Stop(stopCtx), convey.ShouldBeNil)
		})
	})
}
