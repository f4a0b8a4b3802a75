package reader

import (
	"time"

	"github.com/okian/balanceboard/internal/domain/cop"
	"github.com/okian/balanceboard/pkg/logger"
)

// Option applies a configuration option to the Reader.
type Option func(*Reader)

// WithName sets the reader name for identification and logging.
func WithName(name string) Option {
	return func(r *Reader) {
		if name != "" {
			r.name = name
		}
	}
}

// WithLogger sets a custom logger for the reader.
func WithLogger(l logger.Logger) Option {
	return func(r *Reader) {
		if l != nil {
			r.logger = l
		}
	}
}

// WithWaitTimeout bounds each readiness wait. A wait that times out marks
// the reader as stalled.
func WithWaitTimeout(d time.Duration) Option {
	return func(r *Reader) {
		if d > 0 {
			r.waitTimeout = d
		}
	}
}

// WithStallLimit terminates the loop with ErrStalled after n consecutive
// timed out waits. Zero keeps waiting forever.
func WithStallLimit(n int) Option {
	return func(r *Reader) {
		if n >= 0 {
			r.stallLimit = n
		}
	}
}

// WithConvention sets the axis convention used by LatestCoP.
func WithConvention(c cop.Convention) Option {
	return func(r *Reader) {
		r.convention = c
	}
}
