package evdev

import "errors"

// Sentinel kinds for evdev device errors.
var (
	ErrIncompleteFrame = errors.New("incomplete event frame")
	ErrEventsDropped   = errors.New("kernel dropped input events")
	ErrDeviceGone      = errors.New("input device gone")
	ErrClosed          = errors.New("device closed")
	ErrEventSize       = errors.New("unsupported input_event size")
)
