package service

import "errors"

// Service errors.
var (
	ErrAlreadyStarted = errors.New("service already started")
	ErrNotStarted     = errors.New("service not started")
	ErrAlreadyStopped = errors.New("service already stopped")
	ErrNoDevice       = errors.New("no balance board available")
)
