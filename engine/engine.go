package engine

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/Carmen-Shannon/oxy-batch/engine/batch"
	"github.com/Carmen-Shannon/oxy-batch/engine/batching"
	"github.com/Carmen-Shannon/oxy-batch/engine/config"
	"github.com/Carmen-Shannon/oxy-batch/engine/ecs"
	"github.com/Carmen-Shannon/oxy-batch/engine/material"
	"github.com/Carmen-Shannon/oxy-batch/engine/mesh"
	"github.com/Carmen-Shannon/oxy-batch/engine/profiler"
	"github.com/Carmen-Shannon/oxy-batch/engine/render"
	"github.com/Carmen-Shannon/oxy-batch/engine/scene"
	"go.uber.org/zap"
)

// engine implements the Engine interface.
// Ticks and frames run on the goroutine that called Run, so callbacks may mutate the scene freely.
type engine struct {
	tickRateChannel chan time.Duration // Channel for dynamic tick rate updates

	mu      sync.Mutex
	running bool

	quitChannel chan struct{}
	quitOnce    sync.Once // Ensures quitChannel is only closed once

	cfg    *config.Config
	logger *zap.Logger

	meshLoader    mesh.Loader
	textureLoader material.TextureLoader
	backendType   render.BackendType
	backend       render.Backend
	wgpuOptions   []render.WGPUBackendBuilderOption

	meshes    mesh.Registry
	materials material.Registry
	batchCtx  *batch.Context
	batches   batching.BatchManager
	renderer  render.RenderManager

	profiler         *profiler.Profiler
	profilingEnabled bool

	engineTickRate time.Duration
	tickCallback   func(deltaTime float32)
	renderCallback func(deltaTime float32)

	scenes          map[int]scene.Scene
	current         scene.Scene
	resolvedVersion uint64
	resolvedAssets  map[ecs.Entity]ecs.AssetRef
	pending         []batching.Change

	renderFrameLimit time.Duration // minimum frame duration; 0 = uncapped
	maxFrames        uint64        // 0 = run until quit
	frames           uint64
}

// Engine is the main entry point for the engine.
// It owns the asset registries, the batch manager and the render manager, and drives frames for the active scene.
type Engine interface {
	// Config returns the configuration the engine was built from.
	Config() *config.Config

	// Logger returns the engine's logger.
	Logger() *zap.Logger

	// Meshes returns the mesh registry.
	Meshes() mesh.Registry

	// Materials returns the texture registry.
	Materials() material.Registry

	// BatchManager returns the batch manager.
	BatchManager() batching.BatchManager

	// RenderManager returns the render manager.
	RenderManager() render.RenderManager

	// EnableProfiler enables performance profiling output to the log.
	EnableProfiler()

	// DisableProfiler disables performance profiling output.
	DisableProfiler()

	// SetTickRate sets the engine tick rate in frames per second.
	// The tick callback will be called at this rate for game logic updates.
	//
	// Parameters:
	//   - fps: target frames per second (defaults to 60 if <= 0)
	SetTickRate(fps float64)

	// SetTickCallback registers the function called each engine tick.
	// Use this for game logic and scene mutation, followed by Notify.
	//
	// Parameters:
	//   - callback: function to call at the configured tick rate, receiving the delta time in seconds
	SetTickCallback(callback func(deltaTime float32))

	// SetRenderCallback registers the function called after each drawn frame.
	//
	// Parameters:
	//   - callback: function to call each render frame, receiving the delta time in seconds
	SetRenderCallback(callback func(deltaTime float32))

	// SetRenderFrameLimit sets an optional render frame rate cap in frames per second.
	// Pass 0 to uncap the render loop (default).
	//
	// Parameters:
	//   - fps: maximum render frames per second (0 = uncapped)
	SetRenderFrameLimit(fps float64)

	// AddScene registers a scene at the given z-index key.
	// The active scene with the lowest key is the one drawn each frame.
	//
	// Parameters:
	//   - key: the z-index determining priority (lower wins)
	//   - s: the Scene to register
	AddScene(key int, s scene.Scene)

	// RemoveScene removes the scene at the given z-index key.
	//
	// Parameters:
	//   - key: the z-index of the scene to remove
	RemoveScene(key int)

	// Scene retrieves the scene registered at the given z-index key.
	// Returns nil if no scene exists at that key.
	//
	// Parameters:
	//   - key: the z-index of the scene to retrieve
	//
	// Returns:
	//   - scene.Scene: the scene at the key, or nil if not found
	Scene(key int) scene.Scene

	// Scenes returns a copy of all registered scenes keyed by z-index.
	//
	// Returns:
	//   - map[int]scene.Scene: a copy of the scenes map
	Scenes() map[int]scene.Scene

	// Notify queues a scene change to be applied at the start of the next frame.
	//
	// Parameters:
	//   - c: the change reason and affected entities
	Notify(c batching.Change)

	// Frame runs one frame for the active scene: apply queued changes (patching or rebuilding
	// the batches), draw, then run the render callback and the profiler.
	//
	// Parameters:
	//   - dt: the time since the previous frame in seconds
	//
	// Returns:
	//   - error: error if batching or drawing failed
	Frame(dt float32) error

	// Frames returns the number of frames drawn so far.
	Frames() uint64

	// Run drives ticks and frames until the context is cancelled, Quit is called,
	// the frame cap is reached or a frame fails.
	//
	// Parameters:
	//   - ctx: cancels the loop
	//
	// Returns:
	//   - error: the frame error that stopped the loop, or nil
	Run(ctx context.Context) error

	// Quit signals the run loop to stop.
	// Safe to call multiple times; subsequent calls are no-ops.
	Quit()

	// Release stops the registries' worker pools and frees GPU resources.
	Release()
}

var _ Engine = &engine{}

// NewEngine creates a new Engine instance with the provided options.
// The registries, batch context, render manager and batch manager are built from the config
// after all options are applied.
//
// Parameters:
//   - options: functional options for engine configuration (config, logger, scenes, backend, etc.)
//
// Returns:
//   - Engine: the newly created engine
//   - error: error if the config is invalid or the backend cannot be created
func NewEngine(options ...EngineBuilderOption) (Engine, error) {
	e := &engine{
		tickRateChannel: make(chan time.Duration, 1),
		quitChannel:     make(chan struct{}),
		scenes:          make(map[int]scene.Scene),
		cfg:             config.Default(),
		logger:          zap.NewNop(),
		engineTickRate:  time.Second / 60,
	}

	for _, opt := range options {
		opt(e)
	}

	if err := e.cfg.Validate(); err != nil {
		return nil, fmt.Errorf("engine: %w", err)
	}
	if err := e.build(); err != nil {
		return nil, err
	}
	return e, nil
}

// build wires the registries, batching and rendering from the config.
func (e *engine) build() error {
	cfg := e.cfg

	meshOpts := []mesh.RegistryBuilderOption{
		mesh.WithLogger(e.logger),
		mesh.WithPreloadWorkers(cfg.Assets.PreloadWorkers),
	}
	if e.meshLoader != nil {
		meshOpts = append(meshOpts, mesh.WithLoader(e.meshLoader))
	}
	e.meshes = mesh.NewRegistry(meshOpts...)

	matOpts := []material.RegistryBuilderOption{
		material.WithLogger(e.logger),
		material.WithPreloadWorkers(cfg.Assets.PreloadWorkers),
	}
	if e.textureLoader != nil {
		matOpts = append(matOpts, material.WithTextureLoader(e.textureLoader))
	}
	e.materials = material.NewRegistry(matOpts...)

	ctx, err := batch.NewContext(cfg.Batch, e.meshes, e.materials, e.logger)
	if err != nil {
		return fmt.Errorf("engine: %w", err)
	}
	e.batchCtx = ctx

	if e.backend == nil {
		switch cfg.Render.Backend {
		case "wgpu":
			opts := append([]render.WGPUBackendBuilderOption{render.WithTargetSize(cfg.Render.Width, cfg.Render.Height)}, e.wgpuOptions...)
			if e.backend, err = render.NewWGPUBackend(opts...); err != nil {
				return fmt.Errorf("engine: create wgpu backend: %w", err)
			}
			e.backendType = render.BackendTypeWGPU
		default:
			e.backend = render.NewHeadlessBackend(cfg.Render.KeepFrames)
			e.backendType = render.BackendTypeHeadless
		}
	}

	e.renderer = render.NewRenderManager(
		render.WithBackend(e.backendType, e.backend),
		render.WithLogger(e.logger),
		render.WithMaxLights(cfg.Batch.MaxLights),
	)
	e.batches = batching.NewBatchManager(ctx,
		batching.WithRenderManager(e.renderer),
		batching.WithLogger(e.logger),
	)
	e.profiler = profiler.NewProfiler(
		profiler.WithLogger(e.logger),
		profiler.WithInterval(cfg.Profiling.Interval),
		profiler.WithStatistics(e.renderer.Statistics),
	)
	e.profilingEnabled = e.profilingEnabled || cfg.Profiling.Enabled
	if e.renderFrameLimit == 0 && cfg.Render.FrameLimit > 0 {
		e.renderFrameLimit = time.Duration(float64(time.Second) / cfg.Render.FrameLimit)
	}
	return nil
}

func (e *engine) Config() *config.Config {
	return e.cfg
}

func (e *engine) Logger() *zap.Logger {
	return e.logger
}

func (e *engine) Meshes() mesh.Registry {
	return e.meshes
}

func (e *engine) Materials() material.Registry {
	return e.materials
}

func (e *engine) BatchManager() batching.BatchManager {
	return e.batches
}

func (e *engine) RenderManager() render.RenderManager {
	return e.renderer
}

func (e *engine) Notify(c batching.Change) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.pending = append(e.pending, c)
}

func (e *engine) Frame(dt float32) error {
	s := e.activeScene()
	if s == nil {
		return nil
	}

	e.mu.Lock()
	pending := e.pending
	e.pending = nil
	e.mu.Unlock()

	if s != e.current {
		e.current = s
		e.batches.Invalidate()
		e.resolve(s)
	} else if e.assetsDirty(s.World()) {
		e.batches.Invalidate()
		e.resolve(s)
	}

	// An empty change still runs the topology guard, so unreported structural edits force a rebuild.
	if len(pending) == 0 {
		pending = []batching.Change{{Reason: batching.ReasonTransform}}
	}
	for _, c := range pending {
		if _, err := e.batches.Update(s, c); err != nil {
			return fmt.Errorf("frame %d: %w", e.frames, err)
		}
	}

	if err := e.renderer.Draw(); err != nil {
		return fmt.Errorf("frame %d: %w", e.frames, err)
	}
	e.frames++

	if e.renderCallback != nil {
		e.renderCallback(dt)
	}
	if e.profilingEnabled && e.profiler != nil {
		e.profiler.Tick()
	}
	return nil
}

// resolve maps the scene's asset paths to registry indices and remembers the topology it saw.
func (e *engine) resolve(s scene.Scene) {
	report := s.ResolveAssets(scene.Resolver{Meshes: e.meshes, Materials: e.materials, Logger: e.logger})
	e.resolvedVersion = s.World().Version()
	e.resolvedAssets = s.World().AssetRefs()
	e.logger.Debug("scene assets resolved",
		zap.String("scene", s.Name()),
		zap.Int("renderables", report.Renderables),
		zap.Int("missing_meshes", report.MissingMeshes),
		zap.Int("downgraded_textures", report.DowngradedTextures))
}

// assetsDirty reports whether the world changed structure or any renderable's asset references since the last resolve.
func (e *engine) assetsDirty(w *ecs.World) bool {
	if w.Version() != e.resolvedVersion {
		return true
	}
	for _, ent := range w.Entities() {
		r, ok := w.Renderable(ent)
		if !ok {
			continue
		}
		if ref, ok := e.resolvedAssets[ent]; !ok || ref != r.Assets() {
			return true
		}
	}
	return false
}

// activeScene returns the active scene with the lowest key.
func (e *engine) activeScene() scene.Scene {
	e.mu.Lock()
	defer e.mu.Unlock()
	keys := make([]int, 0, len(e.scenes))
	for k := range e.scenes {
		keys = append(keys, k)
	}
	sort.Ints(keys)
	for _, k := range keys {
		if s := e.scenes[k]; s.Active() {
			return s
		}
	}
	return nil
}

func (e *engine) Frames() uint64 {
	return e.frames
}

func (e *engine) Run(ctx context.Context) (err error) {
	e.mu.Lock()
	e.running = true
	e.mu.Unlock()
	defer func() {
		e.mu.Lock()
		e.running = false
		e.mu.Unlock()
	}()

	// Recover from panics inside the loop so the caller gets an error instead of a crash.
	defer func() {
		if r := recover(); r != nil {
			e.logger.Error("run loop recovered from panic", zap.Any("panic", r))
			err = fmt.Errorf("engine: panic: %v", r)
			e.signalQuit()
		}
	}()

	go func() {
		select {
		case <-ctx.Done():
			e.signalQuit()
		case <-e.quitChannel:
		}
	}()

	ticker := time.NewTicker(e.engineTickRate)
	defer ticker.Stop()

	lastTick := time.Now()
	lastRender := time.Now()

	for {
		select {
		case <-e.quitChannel:
			return nil
		case <-ticker.C:
			now := time.Now()
			dt := float32(now.Sub(lastTick).Seconds())
			lastTick = now

			if e.tickCallback != nil {
				e.tickCallback(dt)
			}
		case newRate := <-e.tickRateChannel:
			ticker.Reset(newRate)
			e.engineTickRate = newRate
		default:
			now := time.Now()
			dt := float32(now.Sub(lastRender).Seconds())
			lastRender = now

			if err := e.Frame(dt); err != nil {
				e.logger.Error("frame failed", zap.Error(err))
				e.signalQuit()
				return err
			}
			if e.maxFrames > 0 && e.frames >= e.maxFrames {
				e.signalQuit()
				return nil
			}

			// Frame rate limiting
			if e.renderFrameLimit > 0 {
				elapsed := time.Since(lastRender)
				if remaining := e.renderFrameLimit - elapsed; remaining > 0 {
					time.Sleep(remaining)
				}
			}
		}
	}
}

// Quit signals the run loop to stop.
// Safe to call multiple times; subsequent calls are no-ops due to sync.Once.
func (e *engine) Quit() {
	e.signalQuit()
}

// signalQuit closes the quit channel to signal the loop to exit.
func (e *engine) signalQuit() {
	e.quitOnce.Do(func() {
		close(e.quitChannel)
	})
}

func (e *engine) Release() {
	e.renderer.Release()
	e.meshes.Close()
	e.materials.Close()
}

// EnableProfiler enables performance profiling output to the log.
func (e *engine) EnableProfiler() {
	e.profilingEnabled = true
}

// DisableProfiler disables performance profiling output.
func (e *engine) DisableProfiler() {
	e.profilingEnabled = false
}

// SetTickRate sets the engine tick rate in frames per second.
// If the engine is running, the change takes effect immediately.
func (e *engine) SetTickRate(fps float64) {
	if fps <= 0 {
		fps = 60
	}
	newRate := time.Duration(float64(time.Second) / fps)

	e.mu.Lock()
	running := e.running
	e.mu.Unlock()

	if running {
		// Non-blocking send - if channel is full, replace the pending value
		select {
		case e.tickRateChannel <- newRate:
		default:
			select {
			case <-e.tickRateChannel:
			default:
			}
			e.tickRateChannel <- newRate
		}
	} else {
		e.engineTickRate = newRate
	}
}

// SetTickCallback registers the function called each engine tick.
func (e *engine) SetTickCallback(callback func(deltaTime float32)) {
	e.tickCallback = callback
}

// SetRenderCallback registers the function called each render frame.
func (e *engine) SetRenderCallback(callback func(deltaTime float32)) {
	e.renderCallback = callback
}

// SetRenderFrameLimit sets an optional render frame rate cap.
// Pass 0 to uncap the render loop.
func (e *engine) SetRenderFrameLimit(fps float64) {
	if fps <= 0 {
		e.renderFrameLimit = 0
		return
	}
	e.renderFrameLimit = time.Duration(float64(time.Second) / fps)
}

func (e *engine) AddScene(key int, s scene.Scene) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.scenes[key] = s
}

func (e *engine) RemoveScene(key int) {
	e.mu.Lock()
	defer e.mu.Unlock()
	delete(e.scenes, key)
}

func (e *engine) Scene(key int) scene.Scene {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.scenes[key]
}

func (e *engine) Scenes() map[int]scene.Scene {
	e.mu.Lock()
	defer e.mu.Unlock()
	cp := make(map[int]scene.Scene, len(e.scenes))
	for k, v := range e.scenes {
		cp[k] = v
	}
	return cp
}
