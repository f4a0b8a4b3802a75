package sim

import (
	"fmt"
	"os"
	"time"

	"github.com/okian/balanceboard/internal/domain/model"
	"gopkg.in/yaml.v3"
)

// ScriptSample is one scripted reading in raw sensor units.
type ScriptSample struct {
	FL int `yaml:"fl"`
	FR int `yaml:"fr"`
	BL int `yaml:"bl"`
	BR int `yaml:"br"`
}

// Script is a replayable list of readings.
type Script struct {
	Samples  []ScriptSample `yaml:"samples"`
	Interval time.Duration  `yaml:"interval"`
	Loop     bool           `yaml:"loop"`
	Hold     bool           `yaml:"hold"`
}

// LoadScript reads a YAML script from path.
func LoadScript(path string) (Script, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return Script{}, fmt.Errorf("%w: %w", ErrInvalidScript, err)
	}
	return ParseScript(b)
}

// ParseScript decodes and validates a YAML script.
func ParseScript(b []byte) (Script, error) {
	var sc Script
	if err := yaml.Unmarshal(b, &sc); err != nil {
		return Script{}, fmt.Errorf("%w: %w", ErrInvalidScript, err)
	}
	if len(sc.Samples) == 0 {
		return Script{}, fmt.Errorf("%w: no samples", ErrInvalidScript)
	}
	if sc.Interval < 0 {
		return Script{}, fmt.Errorf("%w: negative interval %s", ErrInvalidScript, sc.Interval)
	}
	for i, s := range sc.Samples {
		if s.FL < 0 || s.FR < 0 || s.BL < 0 || s.BR < 0 {
			return Script{}, fmt.Errorf("%w: sample %d has a negative corner", ErrInvalidScript, i)
		}
	}
	return sc, nil
}

// RawSamples converts the script readings.
func (sc Script) RawSamples() []model.RawSample {
	out := make([]model.RawSample, len(sc.Samples))
	for i, s := range sc.Samples {
		out[i] = model.RawSample{FL: s.FL, FR: s.FR, BL: s.BL, BR: s.BR}
	}
	return out
}
