package stream

import (
	"time"

	"github.com/okian/balanceboard/pkg/logger"
)

// Option configures a Handler.
type Option func(*Handler)

// WithInterval sets how often each connection checks for a new reading.
func WithInterval(d time.Duration) Option {
	return func(h *Handler) {
		if d > 0 {
			h.interval = d
		}
	}
}

// WithPingPeriod sets the keepalive ping period. The pong deadline is derived
// from it.
func WithPingPeriod(d time.Duration) Option {
	return func(h *Handler) {
		if d > 0 {
			h.pingPeriod = d
			h.pongWait = d * 10 / 9
		}
	}
}

// WithWriteWait bounds each frame write.
func WithWriteWait(d time.Duration) Option {
	return func(h *Handler) {
		if d > 0 {
			h.writeWait = d
		}
	}
}

// WithLogger sets the logger.
func WithLogger(l logger.Logger) Option {
	return func(h *Handler) {
		if l != nil {
			h.logger = l
		}
	}
}
