// Package sink defines consumers that poll the latest board reading and the
// runner that drives them on a fixed cadence.
package sink

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/okian/balanceboard/internal/domain/model"
	"github.com/okian/balanceboard/pkg/logger"
	"github.com/okian/balanceboard/pkg/metrics"
)

// Default runner configuration constants.
const (
	DefaultInterval = 100 * time.Millisecond
	spinYield       = time.Millisecond
)

// Source is the read-only view of the latest reading.
type Source interface {
	LatestSample() (model.RawSample, bool)
	LatestCoP() (model.CenterOfPressure, bool)
	Snapshot() (model.Snapshot, bool)
}

// Sink consumes the latest reading on each poll.
type Sink interface {
	Name() string
	// Poll reads src once. It returns ErrSkipped when there was nothing new.
	Poll(ctx context.Context, src Source) error
}

// Runner polls one sink until canceled.
type Runner struct {
	sink     Sink
	src      Source
	interval time.Duration

	started  atomic.Bool
	once     sync.Once
	shutdown chan struct{}
	done     chan struct{}

	logger logger.Logger
}

// NewRunner creates a runner for s reading from src.
func NewRunner(s Sink, src Source, opts ...Option) *Runner {
	r := &Runner{
		sink:     s,
		src:      src,
		interval: DefaultInterval,
		shutdown: make(chan struct{}),
		done:     make(chan struct{}),
		logger:   logger.Get().Named("sink"),
	}
	for _, opt := range opts {
		opt(r)
	}
	r.logger = r.logger.Named(s.Name())
	return r
}

// Name returns the sink name.
func (r *Runner) Name() string {
	return r.sink.Name()
}

// Run polls the sink until ctx is canceled or Shutdown is called.
func (r *Runner) Run(ctx context.Context) {
	r.started.Store(true)
	defer close(r.done)

	r.logger.Info(ctx, "sink running", logger.Duration("interval", r.interval))

	if r.interval <= 0 {
		r.spin(ctx)
		return
	}

	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	r.poll(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case <-r.shutdown:
			return
		case <-ticker.C:
			r.poll(ctx)
		}
	}
}

// spin polls back to back, yielding briefly between polls.
func (r *Runner) spin(ctx context.Context) {
	yield := time.NewTimer(spinYield)
	defer yield.Stop()

	for {
		r.poll(ctx)

		yield.Reset(spinYield)
		select {
		case <-ctx.Done():
			return
		case <-r.shutdown:
			return
		case <-yield.C:
		}
	}
}

// Shutdown stops the runner and waits for the current poll to finish.
func (r *Runner) Shutdown(ctx context.Context) error {
	r.once.Do(func() { close(r.shutdown) })

	if !r.started.Load() {
		return nil
	}

	select {
	case <-r.done:
		return nil
	case <-ctx.Done():
		r.logger.Warn(ctx, "shutdown timed out")
		return fmt.Errorf("shutdown timed out: %w", ctx.Err())
	}
}

func (r *Runner) poll(ctx context.Context) {
	name := r.sink.Name()
	start := time.Now()
	err := r.sink.Poll(ctx, r.src)
	latency := float64(time.Since(start).Microseconds()) / 1000
	metrics.RecordSinkPoll(name, latency)

	switch {
	case err == nil:
	case errors.Is(err, ErrSkipped):
		metrics.RecordSinkSkip(name)
	case ctx.Err() != nil:
	default:
		metrics.RecordSinkError(name)
		metrics.RecordErrorByComponent("sink", name)
		metrics.RecordErrorLatency("sink", name, latency)
		r.logger.Warn(ctx, "sink poll failed", logger.Error(err))
	}
}
