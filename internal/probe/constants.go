package probe

import "time"

// Default probe settings.
const (
	DefaultBaseURL  = "http://localhost:9080"
	DefaultInterval = 100 * time.Millisecond
	DefaultTimeout  = 2 * time.Second

	maxConsecutiveFailures = 10
	clearScreen            = "\x1b[H\x1b[J"
)
