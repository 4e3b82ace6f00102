package engine

import (
	"time"

	"github.com/Carmen-Shannon/oxy-batch/engine/config"
	"github.com/Carmen-Shannon/oxy-batch/engine/material"
	"github.com/Carmen-Shannon/oxy-batch/engine/mesh"
	"github.com/Carmen-Shannon/oxy-batch/engine/render"
	"github.com/Carmen-Shannon/oxy-batch/engine/scene"
	"go.uber.org/zap"
)

// EngineBuilderOption is a functional option for configuring an Engine.
// Use the With* functions to create options that are applied directly to the engine instance.
type EngineBuilderOption func(*engine)

// WithConfig sets the configuration the engine is built from.
//
// Parameters:
//   - cfg: the configuration; nil keeps the defaults
//
// Returns:
//   - EngineBuilderOption: option function to apply
func WithConfig(cfg *config.Config) EngineBuilderOption {
	return func(e *engine) {
		if cfg != nil {
			e.cfg = cfg
		}
	}
}

// WithLogger sets the logger shared by every engine component.
//
// Parameters:
//   - logger: the logger; nil keeps the no-op logger
//
// Returns:
//   - EngineBuilderOption: option function to apply
func WithLogger(logger *zap.Logger) EngineBuilderOption {
	return func(e *engine) {
		if logger != nil {
			e.logger = logger
		}
	}
}

// WithProfiling enables or disables performance profiling output.
//
// Parameters:
//   - enabled: if true, enables performance profiling
//
// Returns:
//   - EngineBuilderOption: option function to apply
func WithProfiling(enabled bool) EngineBuilderOption {
	return func(e *engine) {
		e.profilingEnabled = enabled
	}
}

// WithTickRate sets the engine tick rate in frames per second.
// Values <= 0 will be treated as the default (60Hz).
//
// Parameters:
//   - fps: target ticks per second (default 60)
//
// Returns:
//   - EngineBuilderOption: option function to apply
func WithTickRate(fps float64) EngineBuilderOption {
	return func(e *engine) {
		if fps <= 0 {
			fps = 60.0
		}
		e.engineTickRate = time.Duration(float64(time.Second) / fps)
	}
}

// WithScene registers a scene at the given z-index key during engine construction.
//
// Parameters:
//   - key: the z-index determining priority (lower wins)
//   - s: the Scene to register
//
// Returns:
//   - EngineBuilderOption: option function to apply
func WithScene(key int, s scene.Scene) EngineBuilderOption {
	return func(e *engine) {
		e.scenes[key] = s
	}
}

// WithRenderFrameLimit sets an optional render frame rate cap in frames per second.
// Overrides render.frame_limit from the config.
//
// Parameters:
//   - fps: maximum render frames per second (0 = uncapped)
//
// Returns:
//   - EngineBuilderOption: option function to apply
func WithRenderFrameLimit(fps float64) EngineBuilderOption {
	return func(e *engine) {
		if fps <= 0 {
			e.renderFrameLimit = 0
			return
		}
		e.renderFrameLimit = time.Duration(float64(time.Second) / fps)
	}
}

// WithMaxFrames stops Run after n frames have been drawn.
//
// Parameters:
//   - n: the frame cap (0 = run until quit)
//
// Returns:
//   - EngineBuilderOption: option function to apply
func WithMaxFrames(n uint64) EngineBuilderOption {
	return func(e *engine) {
		e.maxFrames = n
	}
}

// WithMeshLoader sets the loader for external mesh paths.
//
// Parameters:
//   - l: the mesh loader
//
// Returns:
//   - EngineBuilderOption: option function to apply
func WithMeshLoader(l mesh.Loader) EngineBuilderOption {
	return func(e *engine) {
		e.meshLoader = l
	}
}

// WithTextureLoader replaces the default image-decoding texture loader.
//
// Parameters:
//   - l: the texture loader
//
// Returns:
//   - EngineBuilderOption: option function to apply
func WithTextureLoader(l material.TextureLoader) EngineBuilderOption {
	return func(e *engine) {
		e.textureLoader = l
	}
}

// WithBackend sets a pre-built graphics backend instead of creating one from render.backend.
//
// Parameters:
//   - t: the backend type
//   - b: the backend instance
//
// Returns:
//   - EngineBuilderOption: option function to apply
func WithBackend(t render.BackendType, b render.Backend) EngineBuilderOption {
	return func(e *engine) {
		e.backendType = t
		e.backend = b
	}
}

// WithWGPUOptions passes options to the wgpu backend when render.backend is "wgpu".
// Pipelines must be supplied here, since the engine does not compile shaders.
//
// Parameters:
//   - options: the wgpu backend options
//
// Returns:
//   - EngineBuilderOption: option function to apply
func WithWGPUOptions(options ...render.WGPUBackendBuilderOption) EngineBuilderOption {
	return func(e *engine) {
		e.wgpuOptions = append(e.wgpuOptions, options...)
	}
}
