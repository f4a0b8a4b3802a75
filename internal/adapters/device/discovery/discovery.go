// Package discovery finds the balance board among the kernel input devices.
package discovery

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/okian/balanceboard/pkg/logger"
	"github.com/okian/balanceboard/pkg/metrics"
)

// Default discovery configuration constants.
const (
	DefaultDevicesFile = "/proc/bus/input/devices"
	DefaultDevDir      = "/dev/input"
	DefaultSettle      = 500 * time.Millisecond
	DefaultInterval    = time.Second
)

// Kind classifies a scan.
type Kind int

// Scan result kinds.
const (
	KindNoMatch Kind = iota
	KindFound
	KindFatal
)

func (k Kind) String() string {
	switch k {
	case KindFound:
		return "found"
	case KindNoMatch:
		return "no_match"
	case KindFatal:
		return "fatal"
	default:
		return "unknown"
	}
}

// Result is the outcome of one scan.
type Result struct {
	Kind Kind
	Path string
	Name string
	Err  error
}

// Option applies a configuration option to the Scanner.
type Option func(*Scanner)

// WithDevicesFile sets the device list file.
func WithDevicesFile(path string) Option {
	return func(s *Scanner) {
		if path != "" {
			s.devicesFile = path
		}
	}
}

// WithDevDir sets the directory holding event nodes.
func WithDevDir(dir string) Option {
	return func(s *Scanner) {
		if dir != "" {
			s.devDir = dir
		}
	}
}

// WithSettle sets how long a new board must stay listed before Wait
// returns it. The kernel lists the device before the driver is ready.
func WithSettle(d time.Duration) Option {
	return func(s *Scanner) {
		if d >= 0 {
			s.settle = d
		}
	}
}

// WithLogger sets a custom logger for the scanner.
func WithLogger(l logger.Logger) Option {
	return func(s *Scanner) {
		if l != nil {
			s.logger = l
		}
	}
}

// Scanner inspects the kernel input device list.
type Scanner struct {
	devicesFile string
	devDir      string
	settle      time.Duration
	logger      logger.Logger
}

// New creates a scanner.
func New(opts ...Option) *Scanner {
	s := &Scanner{
		devicesFile: DefaultDevicesFile,
		devDir:      DefaultDevDir,
		settle:      DefaultSettle,
		logger:      logger.Get().Named("discovery"),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// List returns every input device currently known to the kernel.
func (s *Scanner) List() ([]InputDevice, error) {
	b, err := os.ReadFile(s.devicesFile)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrDeviceList, err)
	}
	return ParseDevices(bytes.NewReader(b))
}

// Scan inspects the device list once.
func (s *Scanner) Scan() Result {
	res := s.scan()
	metrics.RecordDiscoveryScan(res.Kind.String())
	return res
}

func (s *Scanner) scan() Result {
	devices, err := s.List()
	if err != nil {
		return Result{Kind: KindFatal, Err: err}
	}

	for _, d := range devices {
		if d.IsBalanceBoard() {
			return Result{
				Kind: KindFound,
				Path: filepath.Join(s.devDir, d.EventNode()),
				Name: d.Name,
			}
		}
	}
	return Result{Kind: KindNoMatch}
}

// Wait scans every interval until a board is found, the list cannot be read,
// or ctx ends. A board must still be listed after the settle delay.
func (s *Scanner) Wait(ctx context.Context, interval time.Duration) (Result, error) {
	if interval <= 0 {
		interval = DefaultInterval
	}

	logged := make(map[string]bool)
	for {
		res := s.Scan()
		switch res.Kind {
		case KindFatal:
			s.logger.Error(ctx, "device discovery failed", logger.Error(res.Err))
			return res, res.Err
		case KindFound:
			if s.settle <= 0 {
				return res, nil
			}
			s.logger.Info(ctx, "balance board appeared, settling",
				logger.String("path", res.Path),
				logger.Duration("settle", s.settle),
			)
			if err := sleep(ctx, s.settle); err != nil {
				return Result{Kind: KindNoMatch}, err
			}
			again := s.Scan()
			if again.Kind == KindFound && again.Path == res.Path {
				s.logger.Info(ctx, "balance board found",
					logger.String("path", res.Path),
					logger.String("name", res.Name),
				)
				return again, nil
			}
			s.logger.Warn(ctx, "balance board vanished while settling", logger.String("path", res.Path))
			continue
		case KindNoMatch:
			s.logSkipped(ctx, logged)
		}

		if err := sleep(ctx, interval); err != nil {
			return Result{Kind: KindNoMatch}, err
		}
	}
}

// logSkipped reports each non-board device once per Wait.
func (s *Scanner) logSkipped(ctx context.Context, logged map[string]bool) {
	devices, err := s.List()
	if err != nil {
		return
	}
	fresh := false
	for _, d := range devices {
		key := d.Name + "/" + d.EventNode()
		if logged[key] {
			continue
		}
		logged[key] = true
		fresh = true
		s.logger.Debug(ctx, "skipping input device",
			logger.String("name", d.Name),
			logger.String("handler", d.EventNode()),
			logger.String("reason", d.Reason()),
		)
	}
	if fresh {
		s.logger.Info(ctx, "still waiting for balance board", logger.Int("devices", len(devices)))
	}
}

func sleep(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
