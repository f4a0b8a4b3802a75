// Package cursor turns the center of pressure into pointer movement: leaning
// moves the pointer in that direction, standing centred keeps it still.
package cursor

import (
	"context"
	"fmt"
	"math"

	"github.com/okian/balanceboard/internal/adapters/sink"
	"github.com/okian/balanceboard/internal/domain/cop"
	"github.com/okian/balanceboard/internal/domain/model"
	"github.com/okian/balanceboard/pkg/logger"
	"github.com/okian/balanceboard/pkg/metrics"
)

// Default mapping constants.
const (
	DefaultGain     = 20.0
	DefaultDeadZone = 0.1
	DefaultMinLoad  = 1000 // 10 kg

	name = "cursor"
)

// Emitter receives pointer deltas in screen coordinates (y grows downward).
type Emitter interface {
	Move(ctx context.Context, dx, dy int) error
}

// LogEmitter logs deltas at debug level.
type LogEmitter struct {
	logger logger.Logger
}

// NewLogEmitter creates an emitter that only logs.
func NewLogEmitter() *LogEmitter {
	return &LogEmitter{logger: logger.Get().Named("cursor")}
}

// Move implements Emitter.
func (e *LogEmitter) Move(ctx context.Context, dx, dy int) error {
	e.logger.Debug(ctx, "pointer move", logger.Int("dx", dx), logger.Int("dy", dy))
	return nil
}

// Option applies a configuration option to the Sink.
type Option func(*Sink)

// WithGain sets the delta produced by a fully leaned board.
func WithGain(g float64) Option {
	return func(s *Sink) {
		if g > 0 {
			s.gain = g
		}
	}
}

// WithDeadZone ignores normalized offsets below dz on each axis.
func WithDeadZone(dz float64) Option {
	return func(s *Sink) {
		if dz >= 0 && dz < 1 {
			s.deadZone = dz
		}
	}
}

// WithMinLoad ignores readings whose total is below load, e.g. an empty board.
func WithMinLoad(load int) Option {
	return func(s *Sink) {
		if load >= 0 {
			s.minLoad = load
		}
	}
}

// Sink maps each poll to one pointer move.
type Sink struct {
	emitter  Emitter
	gain     float64
	deadZone float64
	minLoad  int
}

// New creates a cursor sink emitting to e.
func New(e Emitter, opts ...Option) *Sink {
	s := &Sink{
		emitter:  e,
		gain:     DefaultGain,
		deadZone: DefaultDeadZone,
		minLoad:  DefaultMinLoad,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Name implements sink.Sink.
func (s *Sink) Name() string { return name }

// Poll implements sink.Sink. The pointer keeps moving while the rider leans,
// so every poll emits, not only new samples.
func (s *Sink) Poll(ctx context.Context, src sink.Source) error {
	snap, ok := src.Snapshot()
	if !ok {
		return sink.ErrSkipped
	}
	dx, dy, ok := s.Delta(snap)
	if !ok {
		return sink.ErrSkipped
	}
	if err := s.emitter.Move(ctx, dx, dy); err != nil {
		return fmt.Errorf("cursor move: %w", err)
	}
	metrics.RecordSinkPublish(name)
	return nil
}

// Delta computes the pointer move for snap. ok is false when there is no
// movement.
func (s *Sink) Delta(snap model.Snapshot) (int, int, bool) {
	if cop.Total(snap.Sample) < s.minLoad || cop.Total(snap.Sample) <= 0 {
		return 0, 0, false
	}
	nx, ny := cop.Normalize(snap.CoP, snap.Sample)
	dx := int(math.Round(s.shape(nx) * s.gain))
	dy := int(math.Round(-s.shape(ny) * s.gain))
	if dx == 0 && dy == 0 {
		return 0, 0, false
	}
	return dx, dy, true
}

func (s *Sink) shape(n float64) float64 {
	if math.Abs(n) < s.deadZone {
		return 0
	}
	return n
}
