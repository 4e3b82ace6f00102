package profiler

import (
	"runtime"
	"time"

	"github.com/Carmen-Shannon/oxy-batch/engine/render"
	"go.uber.org/zap"
)

// Report is one interval's worth of frame, memory and renderer statistics.
type Report struct {
	FPS          float64
	HeapMB       float64
	AllocRateMB  float64
	SysMB        float64
	GCCount      uint32
	LastPauseUs  uint64
	MaxPauseUs   uint64
	Render       render.Statistics
	HasRender    bool
	FrameSamples int
}

// Profiler tracks frame rate, memory and renderer statistics for performance monitoring.
// Outputs stats to the logger at a configurable interval.
type Profiler struct {
	frameCount     int
	lastTime       time.Time
	updateInterval time.Duration
	memStats       runtime.MemStats
	lastGCCount    uint32
	lastTotalAlloc uint64

	logger *zap.Logger
	stats  func() render.Statistics
	now    func() time.Time
	last   Report
}

// NewProfiler creates a new Profiler.
// Update interval defaults to 1 second and the logger to a no-op logger.
//
// Parameters:
//   - options: functional options for logger, interval and statistics source
//
// Returns:
//   - *Profiler: the newly created profiler instance
func NewProfiler(options ...ProfilerBuilderOption) *Profiler {
	p := &Profiler{
		updateInterval: time.Second,
		logger:         zap.NewNop(),
		now:            time.Now,
	}
	for _, opt := range options {
		opt(p)
	}
	p.lastTime = p.now()
	return p
}

// Tick should be called once per frame to track frame timing.
// Logs performance statistics when the update interval has elapsed.
// Statistics include: FPS, heap usage, allocation rate, GC count/pause times, total memory
// and, when a statistics source is set, the last frame's draw counters.
//
// Returns:
//   - bool: true if stats were logged this tick, false otherwise
func (p *Profiler) Tick() bool {
	p.frameCount++
	currentTime := p.now()
	elapsed := currentTime.Sub(p.lastTime)

	if elapsed < p.updateInterval {
		return false
	}

	runtime.ReadMemStats(&p.memStats)
	// Alloc is live heap, TotalAlloc only grows and tracks churn, Sys is the process footprint.
	r := Report{
		FPS:          float64(p.frameCount) / elapsed.Seconds(),
		HeapMB:       float64(p.memStats.Alloc) / 1024 / 1024,
		SysMB:        float64(p.memStats.Sys) / 1024 / 1024,
		AllocRateMB:  float64(p.memStats.TotalAlloc-p.lastTotalAlloc) / 1024 / 1024 / elapsed.Seconds(),
		GCCount:      p.memStats.NumGC,
		FrameSamples: p.frameCount,
	}

	if gcCount := r.GCCount; gcCount > 0 {
		// PauseNs is a circular buffer of the last 256 GC pauses.
		r.LastPauseUs = p.memStats.PauseNs[(gcCount-1)%256] / 1000

		startIdx := p.lastGCCount
		if gcCount-startIdx > 256 {
			startIdx = gcCount - 256
		}
		for i := startIdx; i < gcCount; i++ {
			if pause := p.memStats.PauseNs[i%256] / 1000; pause > r.MaxPauseUs {
				r.MaxPauseUs = pause
			}
		}
	}

	fields := []zap.Field{
		zap.Float64("fps", r.FPS),
		zap.Float64("heap_mb", r.HeapMB),
		zap.Float64("alloc_rate_mb_s", r.AllocRateMB),
		zap.Uint32("gc", r.GCCount),
		zap.Uint64("gc_last_us", r.LastPauseUs),
		zap.Uint64("gc_max_us", r.MaxPauseUs),
		zap.Float64("sys_mb", r.SysMB),
	}
	if p.stats != nil {
		r.Render, r.HasRender = p.stats(), true
		fields = append(fields, zap.Object("render", r.Render))
	}
	p.logger.Info("profile", fields...)

	p.last = r
	p.frameCount = 0
	p.lastTime = currentTime
	p.lastGCCount = r.GCCount
	p.lastTotalAlloc = p.memStats.TotalAlloc
	return true
}

// Last returns the most recently logged report.
func (p *Profiler) Last() Report {
	return p.last
}
