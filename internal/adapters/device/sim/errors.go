package sim

import "errors"

// Sentinel kinds for simulated device errors.
var (
	ErrInvalidScript = errors.New("invalid sim script")
	ErrExhausted     = errors.New("sim script exhausted")
	ErrClosed        = errors.New("sim device closed")
)
