package stream

import "errors"

// Stream errors.
var (
	ErrUpgrade = errors.New("websocket upgrade failed")
	ErrWrite   = errors.New("websocket write failed")
)
