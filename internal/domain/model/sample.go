// Package model contains domain models passed between layers.
package model

import "time"

// Corner identifies one of the four load sensors of the board.
type Corner int

// Corners in the fixed logical order used by RawSample.
const (
	FrontLeft Corner = iota
	FrontRight
	BackLeft
	BackRight
)

// NumCorners is the number of load sensors on a balance board.
const NumCorners = 4

// String returns the short corner name used in logs and payloads.
func (c Corner) String() string {
	switch c {
	case FrontLeft:
		return "fl"
	case FrontRight:
		return "fr"
	case BackLeft:
		return "bl"
	case BackRight:
		return "br"
	default:
		return "unknown"
	}
}

// RawSample holds one reading per corner sensor in driver units.
// The kernel driver reports 0.01 kg per unit.
type RawSample struct {
	FL int `json:"fl"`
	FR int `json:"fr"`
	BL int `json:"bl"`
	BR int `json:"br"`
}

// NewRawSample builds a sample from values in FL, FR, BL, BR order.
func NewRawSample(v [NumCorners]int) RawSample {
	return RawSample{FL: v[FrontLeft], FR: v[FrontRight], BL: v[BackLeft], BR: v[BackRight]}
}

// Values returns the readings in FL, FR, BL, BR order.
func (s RawSample) Values() [NumCorners]int {
	return [NumCorners]int{s.FL, s.FR, s.BL, s.BR}
}

// Corner returns the reading of a single corner.
func (s RawSample) Corner(c Corner) int {
	switch c {
	case FrontLeft:
		return s.FL
	case FrontRight:
		return s.FR
	case BackLeft:
		return s.BL
	case BackRight:
		return s.BR
	default:
		return 0
	}
}

// CenterOfPressure is the 2D point derived from a RawSample.
type CenterOfPressure struct {
	X int `json:"x"`
	Y int `json:"y"`
}

// Snapshot is an immutable stored reading. Seq starts at 1 and increases by
// one per stored sample, so pollers can tell a re-observation from a new one.
// CoP is derived from Sample when the snapshot is stored.
type Snapshot struct {
	Sample RawSample        `json:"sample"`
	CoP    CenterOfPressure `json:"cop"`
	Seq    uint64           `json:"seq"`
	At     time.Time        `json:"at"`
}
