package reader

import "errors"

// Sentinel kinds for the read loop. Devices wrap their failures with
// ErrTimeout or ErrTransientIO so the loop can classify them.
var (
	// ErrTransientIO is a recoverable device error; the loop keeps going.
	ErrTransientIO = errors.New("transient device i/o")
	// ErrFatalDecode terminates the loop.
	ErrFatalDecode = errors.New("fatal decode error")
	// ErrStalled terminates the loop after too many consecutive timeouts.
	ErrStalled = errors.New("device stalled")
	// ErrTimeout is returned by Device.Wait when no data arrived in time.
	ErrTimeout = errors.New("wait timed out")
	// ErrAlreadyStopped is returned by Start after Stop or after the loop
	// has exited.
	ErrAlreadyStopped = errors.New("reader already stopped")
)
