package sim

import (
	"math"

	"github.com/okian/balanceboard/internal/domain/model"
)

// swayAmplitude is the share of load shifted towards each edge.
const swayAmplitude = 0.3

// Generator produces the i-th synthetic reading.
type Generator func(i int) model.RawSample

// Sway returns a generator that moves the load around a circle once every
// steps readings, keeping the total at load.
func Sway(load, steps int) Generator {
	if steps < 1 {
		steps = 1
	}
	return func(i int) model.RawSample {
		theta := 2 * math.Pi * float64(i%steps) / float64(steps)
		right := 0.5 + swayAmplitude*math.Cos(theta)
		front := 0.5 + swayAmplitude*math.Sin(theta)
		l := float64(load)
		return model.RawSample{
			FL: int(math.Round(l * (1 - right) * front)),
			FR: int(math.Round(l * right * front)),
			BL: int(math.Round(l * (1 - right) * (1 - front))),
			BR: int(math.Round(l * right * (1 - front))),
		}
	}
}
