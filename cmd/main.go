package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"runtime"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	app "github.com/okian/balanceboard/internal/app"
	"github.com/okian/balanceboard/internal/config"
	"github.com/okian/balanceboard/pkg/logger"
	"github.com/okian/balanceboard/pkg/metrics"
)

// HTTP server timeout constants.
const (
	readTimeout               = 10 * time.Second
	writeTimeout              = 10 * time.Second
	idleTimeout               = 60 * time.Second
	readHeaderTimeout         = 5 * time.Second
	shutdownTimeout           = 30 * time.Second
	nanosecondsPerMillisecond = 1e6
)

func main() {
	os.Exit(run())
}

func run() int {
	// Disable default Go metrics collection to avoid duplicate metrics
	// We collect our own custom system metrics instead
	prometheus.Unregister(collectors.NewGoCollector())
	prometheus.Unregister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	if err := logger.Init(); err != nil {
		os.Stderr.WriteString("failed to initialize logging: " + err.Error() + "\n")
		return 1
	}
	defer func() {
		_ = logger.Sync()
	}()

	// Root context with cancel on SIGINT/SIGTERM.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Load configuration (defaults -> optional file -> env)
	cfg, err := config.Load(ctx)
	if err != nil {
		os.Stderr.WriteString("failed to load config: " + err.Error() + "\n")
		return 1
	}

	// The console sink owns stdout.
	if cfg.ConsoleEnabled {
		if err := logger.Init(logger.WithWriter(os.Stderr)); err != nil {
			os.Stderr.WriteString("failed to initialize logging: " + err.Error() + "\n")
			return 1
		}
	}
	loggerInstance := logger.Get()

	// Apply configured log level (fallback to info on invalid input)
	if err := logger.SetLevelString(cfg.LogLevel); err != nil {
		loggerInstance.Warn(ctx, "invalid log_level; falling back to info", logger.String("log_level", cfg.LogLevel), logger.Error(err))
		_ = logger.SetLevelString("info")
	}

	svc := app.New(cfg, app.WithLogger(loggerInstance.Named("service")))

	go startSystemMetricsUpdater(ctx)

	var srv *http.Server
	if cfg.Addr != "" {
		mux := http.NewServeMux()
		svc.Register(ctx, mux)
		srv = newHTTPServer(cfg.Addr, mux)

		go func() {
			loggerInstance.Info(ctx, "starting HTTP server", logger.String("addr", cfg.Addr))
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				loggerInstance.Error(ctx, "HTTP server failed", logger.Error(err))
				stop()
			}
		}()
	}

	// Start blocks while discovery waits for a board.
	go func() {
		if err := svc.Start(ctx); err != nil && ctx.Err() == nil && !errors.Is(err, app.ErrAlreadyStopped) {
			loggerInstance.Error(ctx, "failed to start service", logger.Error(err))
		}
	}()

	code := 0
	select {
	case <-ctx.Done():
		loggerInstance.Info(ctx, "shutting down...")
	case <-svc.Done():
		if err := svc.Err(); err != nil {
			code = 1
		}
		if s, _ := svc.GetStats()["state"].(string); s == app.StateFailed {
			code = 1
		}
		loggerInstance.Info(ctx, "service ended, shutting down...")
	}

	// Graceful shutdown with timeout
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if srv != nil {
		if err := srv.Shutdown(shutdownCtx); err != nil {
			loggerInstance.Error(ctx, "server shutdown failed", logger.Error(err))
		}
	}
	if err := svc.Stop(shutdownCtx); err != nil && !errors.Is(err, app.ErrNotStarted) {
		loggerInstance.Error(ctx, "service shutdown failed", logger.Error(err))
		code = 1
	}

	loggerInstance.Info(ctx, "stopped")
	return code
}

func newHTTPServer(addr string, h http.Handler) *http.Server {
	return &http.Server{
		Addr:              addr,
		Handler:           h,
		ReadTimeout:       readTimeout,
		WriteTimeout:      writeTimeout,
		IdleTimeout:       idleTimeout,
		ReadHeaderTimeout: readHeaderTimeout,
	}
}

// startSystemMetricsUpdater starts a background goroutine that updates system metrics.
func startSystemMetricsUpdater(ctx context.Context) {
	ticker := time.NewTicker(metrics.RefreshInterval())
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			updateSystemMetrics()
		}
	}
}

// updateSystemMetrics updates system-level metrics.
func updateSystemMetrics() {
	var m runtime.MemStats
	runtime.ReadMemStats(&m)
	metrics.UpdateSystemMemoryUsage(m.Alloc)

	metrics.UpdateSystemGoroutineCount(runtime.NumGoroutine())

	if m.NumGC > 0 {
		// Average GC pause time
		avgPauseMs := float64(m.PauseTotalNs) / float64(m.NumGC) / nanosecondsPerMillisecond
		metrics.RecordSystemGCPauseTime(avgPauseMs)
	}
}
