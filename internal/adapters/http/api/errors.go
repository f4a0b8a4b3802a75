package api

import (
	"errors"
)

// Sentinel kinds for API errors.
var (
	ErrNoSample         = errors.New("no sample yet")
	ErrMethodNotAllowed = errors.New("method not allowed")
)

// Error carries the failing operation alongside its sentinel kind.
type Error struct {
	Op   string
	Kind error
}

// NewKind returns an error of kind raised by op.
func NewKind(op string, kind error) error {
	return &Error{Op: op, Kind: kind}
}

func (e *Error) Error() string {
	if e.Op == "" {
		return e.Kind.Error()
	}
	return e.Op + ": " + e.Kind.Error()
}

// Unwrap exposes the kind to errors.Is.
func (e *Error) Unwrap() error {
	return e.Kind
}
