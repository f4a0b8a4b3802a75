// Package sim provides a simulated balance board for demo mode and tests.
package sim

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/okian/balanceboard/internal/domain/model"
	"github.com/okian/balanceboard/internal/reader"
)

// Default simulation constants.
const (
	DefaultInterval = 20 * time.Millisecond
	DefaultLoad     = 6000
	DefaultSteps    = 200
)

// Option applies a configuration option to the Device.
type Option func(*Device)

// WithInterval sets the time between readings.
func WithInterval(d time.Duration) Option {
	return func(dev *Device) {
		if d >= 0 {
			dev.interval = d
		}
	}
}

// WithLoop restarts the samples after the last one.
func WithLoop(loop bool) Option {
	return func(dev *Device) {
		dev.loop = loop
	}
}

// WithHold keeps repeating the last sample once the samples ran out.
func WithHold(hold bool) Option {
	return func(dev *Device) {
		dev.hold = hold
	}
}

// Device replays fixed samples or a generator. It satisfies reader.Device.
type Device struct {
	samples  []model.RawSample
	gen      Generator
	next     int
	interval time.Duration
	loop     bool
	hold     bool

	last    time.Time
	cur     model.RawSample
	emitted bool
	closed  atomic.Bool
}

// New creates a device replaying samples.
func New(samples []model.RawSample, opts ...Option) *Device {
	d := &Device{
		samples:  append([]model.RawSample(nil), samples...),
		interval: DefaultInterval,
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// FromScript creates a device from a parsed script. Options override the
// script settings.
func FromScript(sc Script, opts ...Option) *Device {
	base := []Option{WithLoop(sc.Loop), WithHold(sc.Hold)}
	if sc.Interval > 0 {
		base = append(base, WithInterval(sc.Interval))
	}
	return New(sc.RawSamples(), append(base, opts...)...)
}

// NewSway creates an endless device driven by the Sway generator.
func NewSway(load, steps int, opts ...Option) *Device {
	d := New(nil, opts...)
	d.gen = Sway(load, steps)
	return d
}

func (d *Device) exhausted() bool {
	return d.gen == nil && d.next >= len(d.samples)
}

// Wait blocks until the next reading is due.
func (d *Device) Wait(ctx context.Context, timeout time.Duration) error {
	if d.closed.Load() {
		return ErrClosed
	}

	if d.exhausted() && !(d.hold && d.emitted) {
		if err := sleep(ctx, timeout); err != nil {
			return err
		}
		return fmt.Errorf("%w: %w", reader.ErrTimeout, ErrExhausted)
	}

	var delay time.Duration
	if !d.last.IsZero() {
		delay = time.Until(d.last.Add(d.interval))
	}
	if delay > timeout {
		if err := sleep(ctx, timeout); err != nil {
			return err
		}
		return reader.ErrTimeout
	}
	return sleep(ctx, delay)
}

// Decode returns the next reading.
func (d *Device) Decode() (model.RawSample, error) {
	if d.closed.Load() {
		return model.RawSample{}, ErrClosed
	}

	switch {
	case d.gen != nil:
		d.cur = d.gen(d.next)
		d.next++
	case d.next < len(d.samples):
		d.cur = d.samples[d.next]
		d.next++
		if d.loop && d.next == len(d.samples) {
			d.next = 0
		}
	case d.hold && d.emitted:
	default:
		return model.RawSample{}, fmt.Errorf("%w: %w", reader.ErrTransientIO, ErrExhausted)
	}

	d.emitted = true
	d.last = time.Now()
	return d.cur, nil
}

// Close stops the device.
func (d *Device) Close() error {
	d.closed.Store(true)
	return nil
}

func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
