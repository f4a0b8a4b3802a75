// Package probe implements the board-probe tool: it lists input devices the
// way discovery classifies them, or polls a running service and renders the
// latest reading in the terminal.
package probe

import (
	"io"
	"time"
)

// Config holds configuration for a probe run.
type Config struct {
	BaseURL     string        // Base URL of the service
	Interval    time.Duration // Poll interval
	Timeout     time.Duration // HTTP request timeout
	Count       int           // Frames to render before exiting; 0 runs until canceled
	Clear       bool          // Clear the screen before each frame
	DevicesFile string        // Device list used by List
	Out         io.Writer     // Where frames and listings are written
}

// withDefaults returns a copy of c with zero values replaced by the defaults.
func (c Config) withDefaults() Config {
	if c.BaseURL == "" {
		c.BaseURL = DefaultBaseURL
	}
	if c.Interval <= 0 {
		c.Interval = DefaultInterval
	}
	if c.Timeout <= 0 {
		c.Timeout = DefaultTimeout
	}
	if c.Out == nil {
		c.Out = io.Discard
	}
	return c
}

// Stats holds probe statistics.
type Stats struct {
	Polls       int
	Frames      int
	Unavailable int
	Failed      int
	StartTime   time.Time
	Duration    time.Duration
}
