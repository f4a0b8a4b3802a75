// Package cop derives the center of pressure from four corner readings.
//
// The base transform is fixed:
//
//	x = FR + BR - FL - BL
//	y = FL + FR - BL - BR
//
// so positive x points right and positive y points to the front of the board.
// Convention applies optional flips and an axis swap on top of it for boards
// that are mounted or held differently; the zero value is the base transform.
package cop

import (
	"math"

	"github.com/okian/balanceboard/internal/domain/model"
)

// Board footprint in millimetres between sensor centres (Leach et al. 2014,
// "Validating and calibrating the Nintendo Wii balance board to derive
// reliable center of pressure measures").
const (
	BoardWidthMM = 433.0
	BoardDepthMM = 238.0
)

// Convention selects how the base transform maps onto display axes.
type Convention struct {
	FlipX    bool `json:"flip_x"`
	FlipY    bool `json:"flip_y"`
	SwapAxes bool `json:"swap_axes"`
}

// Default is the base transform with no flips or swaps.
var Default = Convention{}

// Derive computes the center of pressure with the default convention.
func Derive(s model.RawSample) model.CenterOfPressure {
	return model.CenterOfPressure{
		X: s.FR + s.BR - s.FL - s.BL,
		Y: s.FL + s.FR - s.BL - s.BR,
	}
}

// Derive computes the center of pressure and applies the convention.
// Swapping happens before flipping, so FlipX always refers to the output x.
func (c Convention) Derive(s model.RawSample) model.CenterOfPressure {
	p := Derive(s)
	if c.SwapAxes {
		p.X, p.Y = p.Y, p.X
	}
	if c.FlipX {
		p.X = -p.X
	}
	if c.FlipY {
		p.Y = -p.Y
	}
	return p
}

// Total returns the sum of all four corners.
func Total(s model.RawSample) int {
	return s.FL + s.FR + s.BL + s.BR
}

// Normalize scales p by the total load of s into [-1, 1] on each axis.
// It returns 0, 0 when the board is unloaded.
func Normalize(p model.CenterOfPressure, s model.RawSample) (float64, float64) {
	t := Total(s)
	if t <= 0 {
		return 0, 0
	}
	return clampUnit(float64(p.X) / float64(t)), clampUnit(float64(p.Y) / float64(t))
}

// Millimetres converts a normalized CoP into an offset from the board centre.
// A normalized value of 1 puts all load on one side, i.e. half the footprint.
func Millimetres(nx, ny float64) (float64, float64) {
	return nx * BoardWidthMM / 2, ny * BoardDepthMM / 2
}

func clampUnit(v float64) float64 {
	if math.IsNaN(v) {
		return 0
	}
	return math.Max(-1, math.Min(1, v))
}
