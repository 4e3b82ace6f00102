package profiler

import (
	"time"

	"github.com/Carmen-Shannon/oxy-batch/engine/render"
	"go.uber.org/zap"
)

// ProfilerBuilderOption is a functional option for configuring a Profiler via NewProfiler.
type ProfilerBuilderOption func(*Profiler)

// WithLogger sets the logger reports are written to.
//
// Parameters:
//   - logger: the parent logger; nil keeps the no-op logger
//
// Returns:
//   - ProfilerBuilderOption: option function to apply
func WithLogger(logger *zap.Logger) ProfilerBuilderOption {
	return func(p *Profiler) {
		if logger != nil {
			p.logger = logger.Named("profiler")
		}
	}
}

// WithInterval sets how often a report is logged.
//
// Parameters:
//   - d: the report interval (ignored if <= 0)
//
// Returns:
//   - ProfilerBuilderOption: option function to apply
func WithInterval(d time.Duration) ProfilerBuilderOption {
	return func(p *Profiler) {
		if d > 0 {
			p.updateInterval = d
		}
	}
}

// WithStatistics sets the source of renderer statistics included in each report.
//
// Parameters:
//   - stats: returns the last frame's statistics
//
// Returns:
//   - ProfilerBuilderOption: option function to apply
func WithStatistics(stats func() render.Statistics) ProfilerBuilderOption {
	return func(p *Profiler) {
		p.stats = stats
	}
}

// withClock replaces the time source; used by tests.
func withClock(now func() time.Time) ProfilerBuilderOption {
	return func(p *Profiler) {
		p.now = now
	}
}
