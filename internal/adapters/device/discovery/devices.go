package discovery

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"
)

// hatMask covers ABS_HAT0X through ABS_HAT1Y, the four load cells.
const hatMask = 0xf << 16

// boardNameMarker is part of the kernel name of the board.
const boardNameMarker = "Balance Board"

// InputDevice is one entry of the kernel input device list.
type InputDevice struct {
	Name     string   `json:"name"`
	Handlers []string `json:"handlers"`
	ABS      uint64   `json:"abs"`
}

// EventNode returns the eventN handler, or "" if the device has none.
func (d InputDevice) EventNode() string {
	for _, h := range d.Handlers {
		if strings.HasPrefix(h, "event") {
			return h
		}
	}
	return ""
}

// HasLoadCells reports whether the ABS capabilities include all four HAT axes.
func (d InputDevice) HasLoadCells() bool {
	return d.ABS&hatMask == hatMask
}

// IsBalanceBoard reports whether the device looks like a balance board.
func (d InputDevice) IsBalanceBoard() bool {
	return strings.Contains(d.Name, boardNameMarker) && d.HasLoadCells() && d.EventNode() != ""
}

// Reason explains why a device is not a board.
func (d InputDevice) Reason() string {
	switch {
	case !strings.Contains(d.Name, boardNameMarker):
		return "name does not match"
	case !d.HasLoadCells():
		return "missing load cell axes"
	case d.EventNode() == "":
		return "no event handler"
	default:
		return "match"
	}
}

// ParseDevices reads the /proc/bus/input/devices format: blank-line
// separated blocks of "X: ..." lines.
func ParseDevices(r io.Reader) ([]InputDevice, error) {
	var (
		out []InputDevice
		cur InputDevice
		has bool
	)

	flush := func() {
		if has {
			out = append(out, cur)
		}
		cur = InputDevice{}
		has = false
	}

	sc := bufio.NewScanner(r)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" {
			flush()
			continue
		}

		switch {
		case strings.HasPrefix(line, "N: Name="):
			cur.Name = strings.Trim(strings.TrimPrefix(line, "N: Name="), " \"")
			has = true
		case strings.HasPrefix(line, "H: Handlers="):
			cur.Handlers = strings.Fields(strings.TrimPrefix(line, "H: Handlers="))
			has = true
		case strings.HasPrefix(line, "B: ABS="):
			abs, err := parseBitmap(strings.TrimPrefix(line, "B: ABS="))
			if err != nil {
				return nil, fmt.Errorf("%w: %q: %w", ErrMalformed, cur.Name, err)
			}
			cur.ABS = abs
			has = true
		}
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrDeviceList, err)
	}
	flush()

	return out, nil
}

// parseBitmap returns the lowest word of a kernel capability bitmap. The
// words are printed most significant first.
func parseBitmap(s string) (uint64, error) {
	words := strings.Fields(s)
	if len(words) == 0 {
		return 0, nil
	}
	return strconv.ParseUint(words[len(words)-1], 16, 64)
}
