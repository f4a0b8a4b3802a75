// Package config defines service configuration and its loading.
//
// Conventions:
// - Durations are stored as integer milliseconds and exposed through helpers.
// - New(ctx) returns the defaults; Load(ctx) layers file and env on top.
// - Validation errors wrap ErrInvalidConfig.
package config

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/okian/balanceboard/internal/domain/cop"
)

// Device sources.
const (
	SourceEvdev = "evdev"
	SourceSim   = "sim"
)

// Config contains process configuration.
type Config struct {
	// LogLevel controls verbosity: debug, info, warn, error.
	LogLevel string `koanf:"log_level"`

	// Addr configures the HTTP listen address, e.g. ":9080". Empty disables
	// the HTTP server.
	Addr string `koanf:"addr"`

	// DevicePath opens a specific event node and skips discovery.
	DevicePath string `koanf:"device_path"`

	// DeviceSource selects the board backend: evdev or sim.
	DeviceSource string `koanf:"device_source"`

	// SimScript is a YAML script for the sim source. Empty uses the
	// synthetic sway generator.
	SimScript string `koanf:"sim_script"`

	DiscoveryIntervalMS int `koanf:"discovery_interval_ms"`
	DiscoverySettleMS   int `koanf:"discovery_settle_ms"`

	// WaitTimeoutMS bounds each wait for input. StallLimit is the number of
	// consecutive timeouts tolerated before the reader stops; 0 waits forever.
	WaitTimeoutMS int `koanf:"wait_timeout_ms"`
	StallLimit    int `koanf:"stall_limit"`

	FlipX    bool `koanf:"flip_x"`
	FlipY    bool `koanf:"flip_y"`
	SwapAxes bool `koanf:"swap_axes"`

	ConsoleEnabled    bool `koanf:"console_enabled"`
	ConsoleIntervalMS int  `koanf:"console_interval_ms"`

	CursorEnabled    bool    `koanf:"cursor_enabled"`
	CursorIntervalMS int     `koanf:"cursor_interval_ms"`
	CursorGain       float64 `koanf:"cursor_gain"`
	CursorDeadZone   float64 `koanf:"cursor_dead_zone"`
	CursorMinLoad    int     `koanf:"cursor_min_load"`

	MQTTEnabled    bool   `koanf:"mqtt_enabled"`
	MQTTBroker     string `koanf:"mqtt_broker"`
	MQTTTopic      string `koanf:"mqtt_topic"`
	MQTTClientID   string `koanf:"mqtt_client_id"`
	MQTTIntervalMS int    `koanf:"mqtt_interval_ms"`

	RecorderEnabled    bool   `koanf:"recorder_enabled"`
	RecorderPath       string `koanf:"recorder_path"`
	RecorderIntervalMS int    `koanf:"recorder_interval_ms"`

	StreamIntervalMS int `koanf:"stream_interval_ms"`
}

// New creates a Config with defaults. Context is accepted first to satisfy
// the project-wide convention.
func New(_ context.Context) *Config {
	return &Config{
		LogLevel:            "info",
		Addr:                ":9080",
		DeviceSource:        SourceEvdev,
		DiscoveryIntervalMS: 1000,
		DiscoverySettleMS:   500,
		WaitTimeoutMS:       2000,
		StallLimit:          0,
		ConsoleEnabled:      true,
		ConsoleIntervalMS:   100,
		CursorIntervalMS:    100,
		CursorGain:          20,
		CursorDeadZone:      0.1,
		CursorMinLoad:       1000,
		MQTTTopic:           "balanceboard/cop",
		MQTTIntervalMS:      100,
		RecorderPath:        "balanceboard.db",
		RecorderIntervalMS:  50,
		StreamIntervalMS:    50,
	}
}

// Validate reports the first invalid field.
func (c *Config) Validate() error {
	switch strings.ToLower(c.DeviceSource) {
	case SourceEvdev, SourceSim:
	default:
		return fmt.Errorf("%w: device_source must be %q or %q, got %q", ErrInvalidConfig, SourceEvdev, SourceSim, c.DeviceSource)
	}
	ints := []struct {
		name string
		v    int
	}{
		{"discovery_interval_ms", c.DiscoveryIntervalMS},
		{"discovery_settle_ms", c.DiscoverySettleMS},
		{"stall_limit", c.StallLimit},
		{"console_interval_ms", c.ConsoleIntervalMS},
		{"cursor_interval_ms", c.CursorIntervalMS},
		{"cursor_min_load", c.CursorMinLoad},
		{"mqtt_interval_ms", c.MQTTIntervalMS},
		{"recorder_interval_ms", c.RecorderIntervalMS},
		{"stream_interval_ms", c.StreamIntervalMS},
	}
	for _, f := range ints {
		if f.v < 0 {
			return fmt.Errorf("%w: %s must not be negative", ErrInvalidConfig, f.name)
		}
	}
	if c.WaitTimeoutMS <= 0 {
		return fmt.Errorf("%w: wait_timeout_ms must be positive", ErrInvalidConfig)
	}
	if c.CursorGain <= 0 {
		return fmt.Errorf("%w: cursor_gain must be positive", ErrInvalidConfig)
	}
	if c.CursorDeadZone < 0 || c.CursorDeadZone >= 1 {
		return fmt.Errorf("%w: cursor_dead_zone must be in [0, 1)", ErrInvalidConfig)
	}
	if c.MQTTEnabled && c.MQTTBroker == "" {
		return fmt.Errorf("%w: mqtt_broker is required when mqtt is enabled", ErrInvalidConfig)
	}
	if c.RecorderEnabled && c.RecorderPath == "" {
		return fmt.Errorf("%w: recorder_path is required when the recorder is enabled", ErrInvalidConfig)
	}
	return nil
}

// Convention returns the configured CoP axis convention.
func (c *Config) Convention() cop.Convention {
	return cop.Convention{FlipX: c.FlipX, FlipY: c.FlipY, SwapAxes: c.SwapAxes}
}

// Millis converts a millisecond field to a duration.
func Millis(ms int) time.Duration {
	return time.Duration(ms) * time.Millisecond
}
