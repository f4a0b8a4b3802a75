package mqtt

import "errors"

// Sentinel kinds for MQTT sink errors.
var (
	ErrConnect        = errors.New("mqtt connect failed")
	ErrPublishTimeout = errors.New("mqtt publish timed out")
	ErrNoBroker       = errors.New("mqtt broker not configured")
)
