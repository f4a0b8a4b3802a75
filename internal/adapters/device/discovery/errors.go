package discovery

import "errors"

// Sentinel kinds for discovery errors.
var (
	ErrDeviceList = errors.New("cannot read input device list")
	ErrMalformed  = errors.New("malformed input device entry")
)
