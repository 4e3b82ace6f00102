package profiler

import (
	"testing"
	"time"

	"github.com/Carmen-Shannon/oxy-batch/engine/render"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

type fakeClock struct {
	t time.Time
}

func (c *fakeClock) now() time.Time { return c.t }

func (c *fakeClock) advance(d time.Duration) { c.t = c.t.Add(d) }

func TestTickReportsOncePerInterval(t *testing.T) {
	core, logs := observer.New(zapcore.InfoLevel)
	clock := &fakeClock{t: time.Unix(1000, 0)}
	p := NewProfiler(
		WithLogger(zap.New(core)),
		WithInterval(600*time.Millisecond),
		WithStatistics(func() render.Statistics { return render.Statistics{DrawCalls: 3, Objects: 90} }),
		withClock(clock.now),
	)

	for range 59 {
		clock.advance(10 * time.Millisecond)
		assert.False(t, p.Tick())
	}
	clock.advance(10 * time.Millisecond)
	require.True(t, p.Tick())

	r := p.Last()
	assert.InDelta(t, 100, r.FPS, 1e-6)
	assert.Equal(t, 60, r.FrameSamples)
	assert.True(t, r.HasRender)
	assert.Equal(t, 3, r.Render.DrawCalls)
	assert.Positive(t, r.SysMB)

	entries := logs.FilterMessage("profile").All()
	require.Len(t, entries, 1)
	assert.Equal(t, "profiler", entries[0].LoggerName)
	fields := entries[0].ContextMap()
	assert.Contains(t, fields, "fps")
	assert.Equal(t, map[string]any{
		"draw_calls": 3, "vertices": 0, "indices": 0, "triangles": 0,
		"objects": 90, "lights": 0, "batches": 0,
		"dropped_entities": 0, "dropped_lights": 0,
	}, fields["render"])

	clock.advance(300 * time.Millisecond)
	assert.False(t, p.Tick(), "the frame counter restarts after a report")
}

func TestTickWithoutStatisticsSource(t *testing.T) {
	clock := &fakeClock{t: time.Unix(0, 0)}
	p := NewProfiler(WithInterval(-time.Second), withClock(clock.now))

	clock.advance(2 * time.Second)
	require.True(t, p.Tick())
	assert.False(t, p.Last().HasRender)
	assert.InDelta(t, 0.5, p.Last().FPS, 1e-9)
}
