package probe

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/okian/balanceboard/internal/adapters/sink/console"
	"github.com/okian/balanceboard/internal/domain/model"
	"github.com/okian/balanceboard/pkg/logger"
)

const waitingText = "waiting for balance board data\n"

// Run polls the service every cfg.Interval and renders each new reading to
// cfg.Out until ctx ends or cfg.Count frames were rendered. Zero settings
// fall back to the package defaults.
func Run(ctx context.Context, cfg *Config) (*Stats, error) {
	c := cfg.withDefaults()
	cfg = &c

	stats := &Stats{StartTime: time.Now()}
	defer func() { stats.Duration = time.Since(stats.StartTime) }()

	log := logger.Get().Named("probe")
	log.Info(ctx, "starting board probe",
		logger.String("baseURL", cfg.BaseURL),
		logger.Duration("interval", cfg.Interval),
		logger.Int("count", cfg.Count),
	)

	client := newHTTPClient(cfg.BaseURL, cfg.Timeout)
	ticker := time.NewTicker(cfg.Interval)
	defer ticker.Stop()

	var (
		lastSeq  uint64
		failures int
		waiting  bool
	)
	for {
		stats.Polls++
		resp, ok, err := client.sample(ctx)
		switch {
		case err != nil:
			if ctx.Err() != nil {
				return stats, nil
			}
			stats.Failed++
			failures++
			log.Warn(ctx, "poll failed", logger.Error(err))
			if failures >= maxConsecutiveFailures {
				return stats, fmt.Errorf("%w: %w", ErrTooManyFailures, err)
			}
		case !ok:
			failures = 0
			stats.Unavailable++
			if !waiting {
				render(cfg.Out, cfg.Clear, waitingText)
				waiting = true
			}
		case resp.Seq != lastSeq:
			failures = 0
			waiting = false
			lastSeq = resp.Seq
			stats.Frames++
			render(cfg.Out, cfg.Clear, console.Frame(model.Snapshot{
				Sample: resp.Sample,
				CoP:    resp.CoP,
				Seq:    resp.Seq,
				At:     resp.At,
			}))
			if cfg.Count > 0 && stats.Frames >= cfg.Count {
				return stats, nil
			}
		default:
			failures = 0
		}

		select {
		case <-ctx.Done():
			return stats, nil
		case <-ticker.C:
		}
	}
}

func render(w io.Writer, clear bool, text string) {
	if clear {
		text = clearScreen + text
	}
	_, _ = io.WriteString(w, text)
}
