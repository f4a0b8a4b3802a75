package recorder

import "errors"

// Sentinel kinds for recorder errors.
var (
	ErrOpen            = errors.New("cannot open recording database")
	ErrSessionNotFound = errors.New("session not found")
)
