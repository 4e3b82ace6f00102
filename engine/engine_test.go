package engine

import (
	"context"
	"testing"
	"time"

	"github.com/Carmen-Shannon/oxy-batch/common"
	"github.com/Carmen-Shannon/oxy-batch/engine/batching"
	"github.com/Carmen-Shannon/oxy-batch/engine/config"
	"github.com/Carmen-Shannon/oxy-batch/engine/ecs"
	"github.com/Carmen-Shannon/oxy-batch/engine/material"
	"github.com/Carmen-Shannon/oxy-batch/engine/render"
	"github.com/Carmen-Shannon/oxy-batch/engine/scene"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func cubeScene(name string, cubes int) scene.Scene {
	s := scene.NewScene(scene.WithName(name))
	w := s.World()
	cam := w.Create()
	w.AddTransform(cam, ecs.NewTransform())
	w.AddCamera(cam, ecs.NewCamera(true))
	for i := range cubes {
		e := w.Create()
		t := ecs.NewTransform()
		t.Position[0] = float32(i) * 2
		w.AddTransform(e, t)
		w.AddRenderable(e, ecs.NewRenderable("Cube"))
	}
	return s
}

func newTestEngine(t *testing.T, options ...EngineBuilderOption) (Engine, *render.HeadlessBackend, *observer.ObservedLogs) {
	t.Helper()
	core, logs := observer.New(zapcore.DebugLevel)
	hb := render.NewHeadlessBackend(1)
	opts := append([]EngineBuilderOption{
		WithLogger(zap.New(core)),
		WithBackend(render.BackendTypeHeadless, hb),
	}, options...)
	e, err := NewEngine(opts...)
	require.NoError(t, err)
	t.Cleanup(e.Release)
	return e, hb, logs
}

func TestNewEngineRejectsInvalidConfig(t *testing.T) {
	cfg := config.Default()
	cfg.Batch.MaxObjects = 0
	_, err := NewEngine(WithConfig(cfg))
	assert.Error(t, err)

	cfg = config.Default()
	cfg.Render.Backend = "metal"
	_, err = NewEngine(WithConfig(cfg))
	assert.ErrorContains(t, err, "metal")
}

func TestFrameWithoutSceneIsNoop(t *testing.T) {
	e, hb, _ := newTestEngine(t)
	require.NoError(t, e.Frame(0.016))
	assert.Zero(t, e.Frames())
	assert.Nil(t, hb.LastFrame())
}

func TestFrameDrawsActiveScene(t *testing.T) {
	s := cubeScene("cubes", 3)
	e, hb, _ := newTestEngine(t, WithScene(0, s))

	require.NoError(t, e.Frame(0.016))
	assert.Equal(t, uint64(1), e.Frames())
	assert.Len(t, hb.LastFrame(), 1)
	assert.Equal(t, batching.StateFresh, e.BatchManager().State())

	stats := e.RenderManager().Statistics()
	assert.Equal(t, 1, stats.DrawCalls)
	assert.Equal(t, 3, stats.Objects)
	assert.True(t, e.RenderManager().HasCamera())
}

func TestFramePatchesNotifiedChangesAndGuardsTopology(t *testing.T) {
	s := cubeScene("cubes", 2)
	e, _, logs := newTestEngine(t, WithScene(0, s))
	rebuilds := func() int { return logs.FilterMessage("full rebuild").Len() }

	require.NoError(t, e.Frame(0.016))
	assert.Equal(t, 1, rebuilds(), "first frame builds from a stale state")

	w := s.World()
	moved := w.Entities()[1]
	tr, _ := w.Transform(moved)
	tr.Position[1] = 3
	e.Notify(batching.Change{Reason: batching.ReasonTransform, Entities: []ecs.Entity{moved}})
	require.NoError(t, e.Frame(0.016))
	assert.Equal(t, 1, rebuilds(), "a transform change is patched in place")

	require.NoError(t, e.Frame(0.016))
	assert.Equal(t, 1, rebuilds(), "an idle frame does not rebuild")

	// An unreported structural edit is caught by the topology guard.
	extra := w.Create()
	w.AddTransform(extra, ecs.NewTransform())
	w.AddRenderable(extra, ecs.NewRenderable("Pyramid"))
	require.NoError(t, e.Frame(0.016))
	assert.Equal(t, 2, rebuilds())
	assert.Equal(t, 3, e.RenderManager().Statistics().Objects)
}

func TestFrameReloadsSwappedAssets(t *testing.T) {
	s := scene.NewScene(scene.WithName("swaps"))
	w := s.World()
	crate := w.Create()
	w.AddTransform(crate, ecs.NewTransform())
	w.AddRenderable(crate, ecs.NewTexturedRenderable("Cube", "wood.png"))
	plain := w.Create()
	w.AddTransform(plain, ecs.NewTransform())
	w.AddRenderable(plain, ecs.NewRenderable("Cube"))

	loader := material.TextureLoaderFunc(func(string) (common.TextureStagingData, error) {
		return common.TextureStagingData{Pixels: make([]byte, 4), Width: 1, Height: 1}, nil
	})
	e, _, logs := newTestEngine(t, WithScene(0, s), WithTextureLoader(loader))
	rebuilds := func() int { return logs.FilterMessage("full rebuild").Len() }

	require.NoError(t, e.Frame(0.016))
	require.Equal(t, 1, e.Materials().Len())
	assert.Equal(t, 16, e.RenderManager().Statistics().Vertices)

	r, _ := w.Renderable(crate)
	r.Material.Path = "stone.png"
	require.NoError(t, e.Frame(0.016))
	assert.Equal(t, 2, rebuilds(), "a swapped texture path rebuilds")
	assert.Equal(t, 2, e.Materials().Len(), "the new texture is loaded")
	tex := e.BatchManager().StorageStaticTex2D()
	require.Equal(t, 1, tex.Count())
	assert.Equal(t, []int{1}, tex.Get(0).TextureSlots())

	p, _ := w.Renderable(plain)
	p.Mesh.Path = "Pyramid"
	require.NoError(t, e.Frame(0.016))
	assert.Equal(t, 3, rebuilds(), "a swapped mesh path rebuilds")
	assert.Equal(t, 8+5, e.RenderManager().Statistics().Vertices)

	require.NoError(t, e.Frame(0.016))
	assert.Equal(t, 3, rebuilds(), "resolved references are stable")
}

func TestLowestKeyActiveSceneIsDrawn(t *testing.T) {
	front := cubeScene("front", 1)
	front.SetActive(false)
	back := cubeScene("back", 4)
	e, _, _ := newTestEngine(t, WithScene(1, front), WithScene(5, back))

	require.NoError(t, e.Frame(0.016))
	assert.Equal(t, 4, e.RenderManager().Statistics().Objects)

	front.SetActive(true)
	require.NoError(t, e.Frame(0.016))
	assert.Equal(t, 1, e.RenderManager().Statistics().Objects, "switching scenes rebuilds from the new scene")

	e.RemoveScene(1)
	assert.Nil(t, e.Scene(1))
	assert.Len(t, e.Scenes(), 1)
	require.NoError(t, e.Frame(0.016))
	assert.Equal(t, 4, e.RenderManager().Statistics().Objects)
}

func TestRunStopsAtMaxFrames(t *testing.T) {
	e, _, _ := newTestEngine(t, WithScene(0, cubeScene("cubes", 2)), WithMaxFrames(5))

	var callbacks int
	e.SetRenderCallback(func(float32) { callbacks++ })
	require.NoError(t, e.Run(context.Background()))
	assert.Equal(t, uint64(5), e.Frames())
	assert.Equal(t, 5, callbacks)
}

func TestRunStopsOnContextCancel(t *testing.T) {
	e, _, _ := newTestEngine(t, WithScene(0, cubeScene("cubes", 1)), WithRenderFrameLimit(500))
	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	done := make(chan error, 1)
	go func() { done <- e.Run(ctx) }()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("run loop did not stop after cancellation")
	}
	assert.Positive(t, e.Frames())
}

func TestRunRecoversCallbackPanic(t *testing.T) {
	e, _, logs := newTestEngine(t, WithScene(0, cubeScene("cubes", 1)))
	e.SetRenderCallback(func(float32) { panic("boom") })

	err := e.Run(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "boom")
	assert.Equal(t, 1, logs.FilterMessage("run loop recovered from panic").Len())
}

func TestTickCallbackRuns(t *testing.T) {
	e, _, _ := newTestEngine(t, WithScene(0, cubeScene("cubes", 1)), WithTickRate(1000), WithRenderFrameLimit(1000))

	ticks := 0
	e.SetTickCallback(func(float32) {
		ticks++
		if ticks == 3 {
			e.Quit()
		}
	})
	done := make(chan error, 1)
	go func() { done <- e.Run(context.Background()) }()
	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(5 * time.Second):
		e.Quit()
		t.Fatal("tick callback never quit the loop")
	}
	assert.GreaterOrEqual(t, ticks, 3)
}

func TestProfilerToggle(t *testing.T) {
	cfg := config.Default()
	cfg.Profiling.Interval = time.Nanosecond
	e, _, logs := newTestEngine(t, WithConfig(cfg), WithScene(0, cubeScene("cubes", 1)))

	require.NoError(t, e.Frame(0.016))
	assert.Zero(t, logs.FilterMessage("profile").Len())

	e.EnableProfiler()
	time.Sleep(time.Millisecond)
	require.NoError(t, e.Frame(0.016))
	assert.Equal(t, 1, logs.FilterMessage("profile").Len())

	e.DisableProfiler()
	require.NoError(t, e.Frame(0.016))
	assert.Equal(t, 1, logs.FilterMessage("profile").Len())
}
