// Package reader runs the balance board read loop and publishes the latest
// decoded sample to any number of concurrent pollers.
package reader

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/okian/balanceboard/internal/domain/cop"
	"github.com/okian/balanceboard/internal/domain/model"
	"github.com/okian/balanceboard/pkg/logger"
	"github.com/okian/balanceboard/pkg/metrics"
)

// Default reader configuration constants.
const (
	defaultWaitTimeout = 2 * time.Second
	defaultName        = "reader"
)

// Device is the board handle the loop reads from. It is owned by a single
// Reader and is never called concurrently.
type Device interface {
	// Wait blocks until a frame can be decoded. It returns nil when ready and
	// an error wrapping ErrTimeout when nothing arrived within timeout.
	Wait(ctx context.Context, timeout time.Duration) error
	// Decode reads exactly one event frame.
	Decode() (model.RawSample, error)
	Close() error
}

// Stats is a point in time view of the loop counters.
type Stats struct {
	Name            string    `json:"name"`
	Running         bool      `json:"running"`
	Stalled         bool      `json:"stalled"`
	Samples         uint64    `json:"samples"`
	TransientErrors uint64    `json:"transientErrors"`
	Stalls          uint64    `json:"stalls"`
	LastSeq         uint64    `json:"lastSeq"`
	LastSampleAt    time.Time `json:"lastSampleAt,omitempty"`
	Err             string    `json:"error,omitempty"`
}

// Reader owns a Device and keeps the most recent sample in a lock-free cell.
type Reader struct {
	dev         Device
	name        string
	waitTimeout time.Duration
	stallLimit  int
	convention  cop.Convention
	logger      logger.Logger

	latest  atomic.Pointer[model.Snapshot]
	live    atomic.Bool
	started atomic.Bool
	stalled atomic.Bool

	// lifecycle guards started and stopped against a concurrent Start/Stop.
	lifecycle sync.Mutex
	stopped   bool

	samples   atomic.Uint64
	transient atomic.Uint64
	stalls    atomic.Uint64

	// seq is only touched by the loop goroutine.
	seq uint64

	mu   sync.Mutex
	err  error
	done chan struct{}
}

// New creates a reader over dev. The loop does not run until Start.
func New(dev Device, opts ...Option) *Reader {
	r := &Reader{
		dev:         dev,
		name:        defaultName,
		waitTimeout: defaultWaitTimeout,
		convention:  cop.Default,
		logger:      logger.Get().Named(defaultName),
		done:        make(chan struct{}),
	}

	for _, opt := range opts {
		opt(r)
	}

	if r.name != defaultName {
		r.logger = r.logger.Named(r.name)
	}

	return r
}

// Start begins the read loop on its own goroutine. Calling it again while the
// loop runs is a no-op. Calling it after Stop, Shutdown or after the loop
// exited returns ErrAlreadyStopped.
func (r *Reader) Start(ctx context.Context) error {
	r.lifecycle.Lock()
	defer r.lifecycle.Unlock()

	if r.stopped {
		return ErrAlreadyStopped
	}
	select {
	case <-r.done:
		return ErrAlreadyStopped
	default:
	}

	if !r.started.CompareAndSwap(false, true) {
		return nil
	}

	r.live.Store(true)
	metrics.UpdateReaderRunning(true)
	r.logger.Info(ctx, "read loop starting",
		logger.Duration("wait_timeout", r.waitTimeout),
		logger.Int("stall_limit", r.stallLimit),
	)

	go r.run(ctx)
	return nil
}

// Stop asks the loop to exit. It does not interrupt an in-flight wait, so the
// loop ends within one wait timeout. Use Done to observe the exit. A reader
// stopped before Start never runs and its Done is closed at once.
func (r *Reader) Stop() {
	r.lifecycle.Lock()
	defer r.lifecycle.Unlock()

	if !r.stopped && !r.started.Load() {
		close(r.done)
	}
	r.stopped = true
	r.live.Store(false)
}

// Shutdown stops the loop and waits for it to exit or for ctx to end.
func (r *Reader) Shutdown(ctx context.Context) error {
	r.Stop()
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

// Done is closed when the loop has exited.
func (r *Reader) Done() <-chan struct{} {
	return r.done
}

// Err returns the terminal error, or nil if the loop is running or stopped
// cleanly.
func (r *Reader) Err() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.err
}

// Running reports whether the loop is live.
func (r *Reader) Running() bool {
	return r.live.Load()
}

// LatestSample returns the most recently decoded sample. ok is false until
// the first sample has been decoded.
func (r *Reader) LatestSample() (model.RawSample, bool) {
	snap := r.latest.Load()
	if snap == nil {
		return model.RawSample{}, false
	}
	return snap.Sample, true
}

// LatestCoP returns the center of pressure of the latest sample under the
// configured convention.
func (r *Reader) LatestCoP() (model.CenterOfPressure, bool) {
	snap := r.latest.Load()
	if snap == nil {
		return model.CenterOfPressure{}, false
	}
	return snap.CoP, true
}

// Snapshot returns the latest sample together with its sequence number.
func (r *Reader) Snapshot() (model.Snapshot, bool) {
	snap := r.latest.Load()
	if snap == nil {
		return model.Snapshot{}, false
	}
	return *snap, true
}

// Convention returns the axis convention used by LatestCoP.
func (r *Reader) Convention() cop.Convention {
	return r.convention
}

// Stats returns the current loop counters.
func (r *Reader) Stats() Stats {
	st := Stats{
		Name:            r.name,
		Running:         r.live.Load(),
		Stalled:         r.stalled.Load(),
		Samples:         r.samples.Load(),
		TransientErrors: r.transient.Load(),
		Stalls:          r.stalls.Load(),
	}
	if snap := r.latest.Load(); snap != nil {
		st.LastSeq = snap.Seq
		st.LastSampleAt = snap.At
	}
	if err := r.Err(); err != nil {
		st.Err = err.Error()
	}
	return st
}

// run is the read loop. Each iteration checks liveness, waits for the device
// and decodes one frame.
func (r *Reader) run(ctx context.Context) {
	defer func() {
		r.live.Store(false)
		metrics.UpdateReaderRunning(false)
		close(r.done)
	}()

	consecutive := 0
	for {
		if !r.live.Load() {
			r.logger.Info(ctx, "read loop stopped")
			return
		}
		if ctx.Err() != nil {
			r.logger.Info(ctx, "read loop canceled")
			return
		}

		if err := r.dev.Wait(ctx, r.waitTimeout); err != nil {
			if errors.Is(err, ErrTimeout) {
				consecutive++
				if r.stall(ctx, consecutive) {
					return
				}
				continue
			}
			if ctx.Err() != nil {
				continue
			}
			if r.handleError(ctx, err) {
				return
			}
			continue
		}
		consecutive = 0

		sample, err := r.dev.Decode()
		if err != nil {
			if r.handleError(ctx, err) {
				return
			}
			continue
		}
		r.store(ctx, sample)
	}
}

// stall records a timed out wait and reports whether the stall limit ended
// the loop.
func (r *Reader) stall(ctx context.Context, consecutive int) bool {
	r.stalls.Add(1)
	r.stalled.Store(true)
	metrics.RecordStall()
	r.logger.Warn(ctx, "no data from device",
		logger.Duration("waited", r.waitTimeout),
		logger.Int("consecutive", consecutive),
	)

	if r.stallLimit > 0 && consecutive >= r.stallLimit {
		r.fail(ctx, fmt.Errorf("%w: %d consecutive waits of %s", ErrStalled, consecutive, r.waitTimeout))
		return true
	}
	return false
}

// handleError classifies a device error and reports whether it ended the loop.
func (r *Reader) handleError(ctx context.Context, err error) bool {
	if errors.Is(err, ErrTransientIO) {
		r.transient.Add(1)
		metrics.RecordTransientError()
		metrics.RecordErrorByComponent("reader", "transient_io")
		r.logger.Debug(ctx, "transient device error", logger.Error(err))
		return false
	}

	r.fail(ctx, fmt.Errorf("%w: %w", ErrFatalDecode, err))
	return true
}

// fail records the terminal error. The deferred cleanup in run clears the
// liveness flag and closes done.
func (r *Reader) fail(ctx context.Context, err error) {
	r.mu.Lock()
	r.err = err
	r.mu.Unlock()

	metrics.RecordFatalError()
	metrics.RecordErrorByType("reader_terminated", "high")
	r.logger.Error(ctx, "read loop terminated", logger.Error(err))
}

// store publishes a new immutable snapshot.
func (r *Reader) store(ctx context.Context, s model.RawSample) {
	r.seq++
	snap := &model.Snapshot{
		Sample: s,
		CoP:    r.convention.Derive(s),
		Seq:    r.seq,
		At:     time.Now(),
	}
	r.latest.Store(snap)

	if r.stalled.Swap(false) {
		r.logger.Info(ctx, "device resumed", logger.Uint64("seq", snap.Seq))
	}
	if r.samples.Add(1) == 1 {
		r.logger.Info(ctx, "first sample received")
	}

	metrics.RecordSampleDecoded(snap.At)
	metrics.UpdateCoP(snap.CoP.X, snap.CoP.Y, cop.Total(s))
}
