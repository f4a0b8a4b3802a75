package sink

import "errors"

// ErrSkipped is returned by Poll when there was nothing new to emit. The
// runner counts it as a skip, not a failure.
var ErrSkipped = errors.New("nothing new to emit")
