// Package console draws the latest board reading as a box on a terminal.
package console

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/okian/balanceboard/internal/adapters/sink"
	"github.com/okian/balanceboard/internal/domain/cop"
	"github.com/okian/balanceboard/internal/domain/model"
	"github.com/okian/balanceboard/pkg/metrics"
)

const (
	name = "console"

	clearScreen = "\x1b[H\x1b[J"
	waitingText = "waiting for balance board data"

	halfWidth = 10
	fullWidth = 2*halfWidth + 1
)

// Option applies a configuration option to the Sink.
type Option func(*Sink)

// WithClear toggles clearing the screen before each frame.
func WithClear(clear bool) Option {
	return func(s *Sink) {
		s.clear = clear
	}
}

// Sink renders every new snapshot to a writer.
type Sink struct {
	w       io.Writer
	clear   bool
	lastSeq uint64
	waiting bool
}

// New creates a console sink writing to w.
func New(w io.Writer, opts ...Option) *Sink {
	s := &Sink{w: w, clear: true}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Name implements sink.Sink.
func (s *Sink) Name() string { return name }

// Poll implements sink.Sink.
func (s *Sink) Poll(_ context.Context, src sink.Source) error {
	snap, ok := src.Snapshot()
	if !ok {
		if s.waiting {
			return sink.ErrSkipped
		}
		s.waiting = true
		if err := s.write(waitingText + "\n"); err != nil {
			return err
		}
		return sink.ErrSkipped
	}
	if snap.Seq == s.lastSeq {
		return sink.ErrSkipped
	}
	s.lastSeq = snap.Seq
	s.waiting = false

	if err := s.write(Frame(snap)); err != nil {
		return err
	}
	metrics.RecordSinkPublish(name)
	return nil
}

func (s *Sink) write(text string) error {
	if s.clear {
		text = clearScreen + text
	}
	if _, err := io.WriteString(s.w, text); err != nil {
		return fmt.Errorf("console write: %w", err)
	}
	return nil
}

// Frame renders the box followed by the center of pressure line.
func Frame(snap model.Snapshot) string {
	nx, ny := cop.Normalize(snap.CoP, snap.Sample)
	mx, my := cop.Millimetres(nx, ny)
	return Box(snap.Sample) + fmt.Sprintf("CoP x=%d y=%d (%+.1f mm, %+.1f mm)\n", snap.CoP.X, snap.CoP.Y, mx, my)
}

// Box draws the total on top and the four corners in kilograms.
func Box(s model.RawSample) string {
	var b strings.Builder
	line := func(parts ...string) {
		for _, p := range parts {
			b.WriteString(p)
		}
		b.WriteByte('\n')
	}
	bar := strings.Repeat("─", halfWidth)
	gap := strings.Repeat(" ", halfWidth)

	line("┌", strings.Repeat("─", fullWidth), "┐")
	line("│", center(Kilograms(cop.Total(s)), fullWidth), "│")
	line("├", bar, "┬", bar, "┤")
	line("│", center(Kilograms(s.FL), halfWidth), "│", center(Kilograms(s.FR), halfWidth), "│")
	line("│", gap, "│", gap, "│")
	line("│", gap, "│", gap, "│")
	line("│", center(Kilograms(s.BL), halfWidth), "│", center(Kilograms(s.BR), halfWidth), "│")
	line("└", bar, "┴", bar, "┘")
	return b.String()
}

// Kilograms formats a raw reading (0.01 kg units) with two decimals.
func Kilograms(raw int) string {
	return fmt.Sprintf("%.2f", float64(raw)/100)
}

// center pads s to width, putting the odd space on the right.
func center(s string, width int) string {
	pad := width - len(s)
	if pad <= 0 {
		return s
	}
	left := pad / 2
	return strings.Repeat(" ", left) + s + strings.Repeat(" ", pad-left)
}
