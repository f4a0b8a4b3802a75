// Package service wires the balance board reader to its device, its sinks,
// and the HTTP surface.
package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"sync"
	"sync/atomic"

	"github.com/okian/balanceboard/internal/adapters/device/discovery"
	"github.com/okian/balanceboard/internal/adapters/device/evdev"
	"github.com/okian/balanceboard/internal/adapters/device/sim"
	"github.com/okian/balanceboard/internal/adapters/http/api"
	"github.com/okian/balanceboard/internal/adapters/http/site"
	"github.com/okian/balanceboard/internal/adapters/http/stream"
	"github.com/okian/balanceboard/internal/adapters/http/swagger"
	"github.com/okian/balanceboard/internal/adapters/sink"
	"github.com/okian/balanceboard/internal/adapters/sink/console"
	"github.com/okian/balanceboard/internal/adapters/sink/cursor"
	"github.com/okian/balanceboard/internal/adapters/sink/mqtt"
	"github.com/okian/balanceboard/internal/adapters/sink/recorder"
	"github.com/okian/balanceboard/internal/config"
	"github.com/okian/balanceboard/internal/domain/model"
	"github.com/okian/balanceboard/internal/reader"
	"github.com/okian/balanceboard/pkg/logger"
)

// Service lifecycle states reported by GetStats.
const (
	StateIdle        = "idle"
	StateDiscovering = "discovering"
	StateRunning     = "running"
	StateFailed      = "failed"
	StateStopped     = "stopped"
)

// Service owns the device, the reader, and every enabled sink.
type Service struct {
	mu sync.RWMutex

	cfg *config.Config

	injected   reader.Device
	device     reader.Device
	devicePath string
	deviceName string
	reader     atomic.Pointer[reader.Reader]
	runners    []*sink.Runner
	closers    []io.Closer
	stream     *stream.Handler

	state   atomic.Value
	started atomic.Bool
	done    chan struct{}

	// stopping is set by Stop under mu. Start re-checks it under mu before
	// handing any resource to the service.
	stopping bool
	cancel   context.CancelFunc

	stdout    io.Writer
	emitter   cursor.Emitter
	discovery []discovery.Option
	logger  logger.Logger
}

// New constructs a Service from cfg. Nothing is opened until Start.
func New(cfg *config.Config, opts ...Option) *Service {
	s := &Service{
		cfg:    cfg,
		done:   make(chan struct{}),
		stdout: os.Stdout,
	}
	s.state.Store(StateIdle)

	for _, opt := range opts {
		opt(s)
	}

	if s.logger == nil {
		s.logger = logger.Get().Named("service")
	}
	if s.emitter == nil {
		s.emitter = cursor.NewLogEmitter()
	}
	s.stream = stream.New(s, stream.WithInterval(config.Millis(cfg.StreamIntervalMS)))
	return s
}

// Register attaches the API, stream, docs, and landing routes to mux.
func (s *Service) Register(ctx context.Context, mux *http.ServeMux) {
	api.NewServer(s, s).Register(ctx, mux)
	s.stream.Register(ctx, mux)
	swagger.Register(ctx, mux)
	site.Register(ctx, mux)
}

// Start acquires the board, starts the read loop, and starts every enabled
// sink. It blocks while waiting for a board to appear. Stop interrupts the
// wait; Start then releases whatever it opened and returns ErrAlreadyStopped.
func (s *Service) Start(ctx context.Context) error {
	s.mu.Lock()
	if s.stopping {
		s.mu.Unlock()
		return ErrAlreadyStopped
	}
	if !s.started.CompareAndSwap(false, true) {
		s.mu.Unlock()
		return ErrAlreadyStarted
	}
	ctx, s.cancel = context.WithCancel(ctx)
	s.mu.Unlock()

	s.logger.Info(ctx, "starting balance board service...",
		logger.String("source", s.cfg.DeviceSource),
	)

	dev, err := s.acquire(ctx)
	if err != nil {
		if s.isStopping() {
			s.end(StateStopped)
			return ErrAlreadyStopped
		}
		s.end(StateFailed)
		return err
	}

	s.mu.RLock()
	name := s.deviceName
	s.mu.RUnlock()
	if name == "" {
		name = s.cfg.DeviceSource
	}
	r := reader.New(dev,
		reader.WithName(name),
		reader.WithWaitTimeout(config.Millis(s.cfg.WaitTimeoutMS)),
		reader.WithStallLimit(s.cfg.StallLimit),
		reader.WithConvention(s.cfg.Convention()),
	)

	if !s.attach(dev, r) {
		s.logger.Info(ctx, "stopped while acquiring the board; releasing it")
		_ = dev.Close()
		s.end(StateStopped)
		return ErrAlreadyStopped
	}

	// From here Stop owns the device and the reader.
	if err := r.Start(ctx); err != nil {
		if errors.Is(err, reader.ErrAlreadyStopped) && s.isStopping() {
			s.end(StateStopped)
			return ErrAlreadyStopped
		}
		s.end(StateFailed)
		return fmt.Errorf("start reader: %w", err)
	}

	if err := s.startSinks(ctx, r); err != nil {
		if errors.Is(err, ErrAlreadyStopped) {
			go s.watch(ctx, r)
			return err
		}
		s.logger.Error(ctx, "failed to start sinks", logger.Error(err))
		_ = r.Shutdown(ctx)
		s.mu.Lock()
		if s.device != nil {
			_ = s.device.Close()
			s.device = nil
		}
		s.mu.Unlock()
		s.end(StateFailed)
		return err
	}

	go s.watch(ctx, r)

	s.logger.Info(ctx, "balance board service started",
		logger.String("device", s.devicePath),
		logger.Int("sinks", len(s.runners)),
	)
	return nil
}

// attach hands dev and r to the service unless Stop already ran.
func (s *Service) attach(dev reader.Device, r *reader.Reader) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.stopping {
		return false
	}
	s.device = dev
	s.reader.Store(r)
	return true
}

func (s *Service) isStopping() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.stopping
}

// end records a terminal state for a Start that did not reach the read loop.
func (s *Service) end(state string) {
	s.mu.RLock()
	cancel := s.cancel
	s.mu.RUnlock()
	cancel()

	s.state.Store(state)
	close(s.done)
}

// acquire returns the injected device or opens one per the configuration.
func (s *Service) acquire(ctx context.Context) (reader.Device, error) {
	if s.injected != nil {
		return s.injected, nil
	}

	if s.cfg.DeviceSource == config.SourceSim {
		return s.openSim()
	}

	path := s.cfg.DevicePath
	if path == "" {
		s.state.Store(StateDiscovering)
		opts := append([]discovery.Option{discovery.WithSettle(config.Millis(s.cfg.DiscoverySettleMS))}, s.discovery...)
		scanner := discovery.New(opts...)
		res, err := scanner.Wait(ctx, config.Millis(s.cfg.DiscoveryIntervalMS))
		if err != nil {
			return nil, fmt.Errorf("%w: %w", ErrNoDevice, err)
		}
		path = res.Path
	}

	ev, err := evdev.Open(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrNoDevice, err)
	}
	s.mu.Lock()
	s.devicePath = ev.Path()
	s.deviceName = ev.Name()
	s.mu.Unlock()
	return ev, nil
}

func (s *Service) openSim() (reader.Device, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.cfg.SimScript == "" {
		s.devicePath = "sim:sway"
		return sim.NewSway(sim.DefaultLoad, sim.DefaultSteps), nil
	}
	sc, err := sim.LoadScript(s.cfg.SimScript)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrNoDevice, err)
	}
	s.devicePath = "sim:" + s.cfg.SimScript
	return sim.FromScript(sc), nil
}

func (s *Service) startSinks(ctx context.Context, src sink.Source) error {
	var (
		sinks   []pendingSink
		closers []io.Closer
	)
	add := func(k sink.Sink, ms int) {
		sinks = append(sinks, pendingSink{k, ms})
	}

	if s.cfg.ConsoleEnabled {
		add(console.New(s.stdout), s.cfg.ConsoleIntervalMS)
	}
	if s.cfg.CursorEnabled {
		add(cursor.New(s.emitter,
			cursor.WithGain(s.cfg.CursorGain),
			cursor.WithDeadZone(s.cfg.CursorDeadZone),
			cursor.WithMinLoad(s.cfg.CursorMinLoad),
		), s.cfg.CursorIntervalMS)
	}
	if s.cfg.MQTTEnabled {
		m, err := mqtt.Dial(ctx, mqtt.Config{
			Broker:   s.cfg.MQTTBroker,
			Topic:    s.cfg.MQTTTopic,
			ClientID: s.cfg.MQTTClientID,
		})
		if err != nil {
			return err
		}
		closers = append(closers, m)
		add(m, s.cfg.MQTTIntervalMS)
	}
	if s.cfg.RecorderEnabled {
		rec, err := recorder.Open(s.cfg.RecorderPath)
		if err != nil {
			_ = closeEach(closers)
			return err
		}
		closers = append(closers, rec)
		add(rec, s.cfg.RecorderIntervalMS)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.stopping {
		_ = closeEach(closers)
		return ErrAlreadyStopped
	}
	s.closers = append(s.closers, closers...)
	for _, k := range sinks {
		run := sink.NewRunner(k.sink, src, sink.WithInterval(config.Millis(k.interval)))
		s.runners = append(s.runners, run)
		go run.Run(ctx)
	}
	s.state.Store(StateRunning)
	return nil
}

type pendingSink struct {
	sink     sink.Sink
	interval int
}

// watch marks the service failed when the read loop ends with an error.
func (s *Service) watch(ctx context.Context, r *reader.Reader) {
	<-r.Done()
	if err := r.Err(); err != nil {
		s.state.Store(StateFailed)
		s.logger.Error(ctx, "read loop terminated", logger.Error(err))
	}
	close(s.done)
}

// Done is closed when the read loop has exited or Start failed.
func (s *Service) Done() <-chan struct{} {
	return s.done
}

// Err returns the read loop's terminal error, if any.
func (s *Service) Err() error {
	if r := s.reader.Load(); r != nil {
		return r.Err()
	}
	return nil
}

// Stop shuts down the sinks, the stream, and the read loop, then releases
// the device. A Start still waiting for a board is interrupted. Stop before
// Start returns ErrNotStarted and makes any later Start fail. Shutdown
// errors are joined.
func (s *Service) Stop(ctx context.Context) error {
	s.mu.Lock()
	s.stopping = true
	cancel := s.cancel
	s.mu.Unlock()

	if !s.started.Load() {
		return ErrNotStarted
	}
	if cancel != nil {
		defer cancel()
	}

	s.logger.Info(ctx, "stopping balance board service...")

	var errs []error

	s.mu.RLock()
	runners := append([]*sink.Runner(nil), s.runners...)
	s.mu.RUnlock()
	for _, run := range runners {
		if err := run.Shutdown(ctx); err != nil {
			errs = append(errs, fmt.Errorf("sink %s: %w", run.Name(), err))
		}
	}

	if err := s.stream.Shutdown(ctx); err != nil {
		errs = append(errs, err)
	}

	if r := s.reader.Load(); r != nil {
		if err := r.Shutdown(ctx); err != nil {
			errs = append(errs, fmt.Errorf("reader: %w", err))
		}
	}

	s.mu.Lock()
	if s.device != nil {
		if err := s.device.Close(); err != nil {
			errs = append(errs, fmt.Errorf("device: %w", err))
		}
		s.device = nil
	}
	s.mu.Unlock()

	if err := s.closeAll(); err != nil {
		errs = append(errs, err)
	}

	if s.state.Load() != StateFailed {
		s.state.Store(StateStopped)
	}
	s.logger.Info(ctx, "balance board service stopped")
	return errors.Join(errs...)
}

func (s *Service) closeAll() error {
	s.mu.Lock()
	closers := s.closers
	s.closers = nil
	s.mu.Unlock()
	return closeEach(closers)
}

func closeEach(closers []io.Closer) error {
	var errs []error
	for _, c := range closers {
		if err := c.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// LatestSample returns the most recent raw sample.
func (s *Service) LatestSample() (model.RawSample, bool) {
	if r := s.reader.Load(); r != nil {
		return r.LatestSample()
	}
	return model.RawSample{}, false
}

// LatestCoP returns the most recent center of pressure.
func (s *Service) LatestCoP() (model.CenterOfPressure, bool) {
	if r := s.reader.Load(); r != nil {
		return r.LatestCoP()
	}
	return model.CenterOfPressure{}, false
}

// Snapshot returns the most recent stored reading.
func (s *Service) Snapshot() (model.Snapshot, bool) {
	if r := s.reader.Load(); r != nil {
		return r.Snapshot()
	}
	return model.Snapshot{}, false
}

// GetStats returns service statistics for monitoring.
func (s *Service) GetStats() map[string]interface{} {
	s.mu.RLock()
	defer s.mu.RUnlock()

	names := make([]string, 0, len(s.runners))
	for _, run := range s.runners {
		names = append(names, run.Name())
	}

	stats := map[string]interface{}{
		"state":         s.state.Load(),
		"source":        s.cfg.DeviceSource,
		"devicePath":    s.devicePath,
		"deviceName":    s.deviceName,
		"sinks":         names,
		"streamClients": s.stream.Clients(),
		"convention":    s.cfg.Convention(),
	}
	if r := s.reader.Load(); r != nil {
		stats["reader"] = r.Stats()
	}
	return stats
}
