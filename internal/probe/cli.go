package probe

import (
	"io"
)

// ShowHelp prints usage information for the probe tool.
func ShowHelp(w io.Writer) {
	_, _ = io.WriteString(w, `Balance Board Probe
===================

Lists input devices the way the service classifies them, or renders the
latest reading of a running service in the terminal.

Usage:
  go run ./cmd/board-probe [options]

Options:
  -list
        List input devices and exit
  -devices string
        Device list to read with -list (default "/proc/bus/input/devices")
  -url string
        Base URL of the service (default "http://localhost:9080")
  -interval duration
        Poll interval (default 100ms)
  -timeout duration
        HTTP request timeout (default 2s)
  -count int
        Frames to render before exiting, 0 runs until interrupted
  -no-clear
        Do not clear the screen between frames
  -verbose
        Enable debug logging
  -help
        Show this help message

Examples:
  # Is the board connected?
  go run ./cmd/board-probe -list

  # Watch a remote service
  go run ./cmd/board-probe -url http://pi.local:9080 -interval 50ms
`)
}
