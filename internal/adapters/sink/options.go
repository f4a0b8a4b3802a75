package sink

import (
	"time"

	"github.com/okian/balanceboard/pkg/logger"
)

// Option applies a configuration option to the Runner.
type Option func(*Runner)

// WithInterval sets the poll cadence. Zero polls as fast as possible with a
// minimal yield between polls.
func WithInterval(d time.Duration) Option {
	return func(r *Runner) {
		if d >= 0 {
			r.interval = d
		}
	}
}

// WithLogger sets a custom logger for the runner.
func WithLogger(l logger.Logger) Option {
	return func(r *Runner) {
		if l != nil {
			r.logger = l
		}
	}
}
