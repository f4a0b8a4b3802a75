// Package evdev reads Wii Balance Board frames from a Linux input event node.
package evdev

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync/atomic"
	"time"

	"github.com/okian/balanceboard/internal/domain/model"
	"github.com/okian/balanceboard/internal/reader"
	"github.com/okian/balanceboard/pkg/logger"
	"golang.org/x/sys/unix"
)

const readChunk = 64 * EventSize24

// Option applies a configuration option to the Device.
type Option func(*Device)

// WithCornerMap overrides the ABS code layout.
func WithCornerMap(m CornerMap) Option {
	return func(d *Device) {
		d.corners = m
	}
}

// WithEventSize overrides the input_event record size.
func WithEventSize(size int) Option {
	return func(d *Device) {
		if size > 0 {
			d.eventSize = size
		}
	}
}

// WithLogger sets a custom logger for the device.
func WithLogger(l logger.Logger) Option {
	return func(d *Device) {
		if l != nil {
			d.logger = l
		}
	}
}

// Device is an open evdev node. It satisfies reader.Device.
type Device struct {
	path      string
	name      string
	fd        int
	corners   CornerMap
	eventSize int
	asm       *Assembler
	chunk     []byte
	closed    atomic.Bool
	logger    logger.Logger
}

// Open opens path read-only and non-blocking.
func Open(path string, opts ...Option) (*Device, error) {
	d := &Device{
		path:      path,
		corners:   DefaultCornerMap,
		eventSize: NativeEventSize,
		chunk:     make([]byte, readChunk),
		logger:    logger.Get().Named("evdev"),
	}
	for _, opt := range opts {
		opt(d)
	}

	asm, err := NewAssembler(d.eventSize, d.corners)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	d.asm = asm

	fd, err := unix.Open(path, unix.O_RDONLY|unix.O_NONBLOCK|unix.O_CLOEXEC, 0)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	d.fd = fd

	if name, err := deviceName(fd); err == nil {
		d.name = name
	}
	d.resync()

	d.logger.Info(context.Background(), "device opened",
		logger.String("path", path),
		logger.String("name", d.name),
		logger.Int("event_size", d.eventSize),
	)
	return d, nil
}

// Path returns the device node path.
func (d *Device) Path() string { return d.path }

// Name returns the kernel device name.
func (d *Device) Name() string { return d.name }

// Wait polls the node for readability for at most timeout.
func (d *Device) Wait(ctx context.Context, timeout time.Duration) error {
	if d.closed.Load() {
		return ErrClosed
	}
	if d.asm.Buffered() {
		return nil
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	ms := int(timeout / time.Millisecond)
	if ms < 1 {
		ms = 1
	}
	fds := []unix.PollFd{{Fd: int32(d.fd), Events: unix.POLLIN}}
	n, err := unix.Poll(fds, ms)
	if err != nil {
		if errors.Is(err, unix.EINTR) {
			return fmt.Errorf("%w: poll: %w", reader.ErrTransientIO, err)
		}
		return fmt.Errorf("poll %s: %w", d.path, err)
	}
	if n == 0 {
		return fmt.Errorf("%w after %s", reader.ErrTimeout, timeout)
	}
	if fds[0].Revents&(unix.POLLERR|unix.POLLHUP|unix.POLLNVAL) != 0 {
		return fmt.Errorf("poll %s: %w", d.path, ErrDeviceGone)
	}
	return nil
}

// Decode returns the next complete frame.
func (d *Device) Decode() (model.RawSample, error) {
	if d.closed.Load() {
		return model.RawSample{}, ErrClosed
	}

	if s, ok, err := d.next(); ok || err != nil {
		return s, err
	}

	n, err := unix.Read(d.fd, d.chunk)
	switch {
	case errors.Is(err, unix.EAGAIN), errors.Is(err, unix.EINTR):
		return model.RawSample{}, fmt.Errorf("%w: read: %w", reader.ErrTransientIO, err)
	case errors.Is(err, unix.ENODEV):
		return model.RawSample{}, fmt.Errorf("read %s: %w", d.path, ErrDeviceGone)
	case err != nil:
		return model.RawSample{}, fmt.Errorf("read %s: %w", d.path, err)
	case n == 0:
		return model.RawSample{}, fmt.Errorf("read %s: %w", d.path, io.EOF)
	}
	d.asm.Feed(d.chunk[:n])

	s, ok, err := d.next()
	if err != nil {
		return s, err
	}
	if !ok {
		return model.RawSample{}, fmt.Errorf("%w: %w", reader.ErrTransientIO, ErrIncompleteFrame)
	}
	return s, nil
}

// next pulls a frame out of the assembler, resyncing after dropped events.
func (d *Device) next() (model.RawSample, bool, error) {
	s, ok, err := d.asm.Next()
	if errors.Is(err, ErrEventsDropped) {
		d.logger.Warn(context.Background(), "input events dropped, resyncing", logger.String("path", d.path))
		d.resync()
		return s, false, fmt.Errorf("%w: %w", reader.ErrTransientIO, err)
	}
	return s, ok, err
}

// resync loads the current axis values from the kernel.
func (d *Device) resync() {
	for i, code := range d.corners {
		v, err := absValue(d.fd, code)
		if err != nil {
			continue
		}
		d.asm.Set(model.Corner(i), v)
	}
}

// Close releases the file descriptor.
func (d *Device) Close() error {
	if !d.closed.CompareAndSwap(false, true) {
		return nil
	}
	if err := unix.Close(d.fd); err != nil {
		return fmt.Errorf("close %s: %w", d.path, err)
	}
	return nil
}
