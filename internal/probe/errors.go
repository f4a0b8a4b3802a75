package probe

import "errors"

// Probe errors.
var (
	ErrUnexpectedStatus = errors.New("unexpected status")
	ErrTooManyFailures  = errors.New("too many consecutive failures")
)
