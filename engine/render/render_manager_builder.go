package render

import "go.uber.org/zap"

// RenderManagerBuilderOption is a functional option for configuring a RenderManager via NewRenderManager.
type RenderManagerBuilderOption func(*renderManager)

// WithBackend sets the graphics backend the manager draws through.
//
// Parameters:
//   - t: the backend type, used for diagnostics
//   - b: the backend instance
//
// Returns:
//   - RenderManagerBuilderOption: option function to apply
func WithBackend(t BackendType, b Backend) RenderManagerBuilderOption {
	return func(rm *renderManager) {
		rm.backend = t
		rm.gpu = b
	}
}

// WithLogger sets the logger used for frame diagnostics.
//
// Parameters:
//   - logger: the parent logger; nil keeps the no-op logger
//
// Returns:
//   - RenderManagerBuilderOption: option function to apply
func WithLogger(logger *zap.Logger) RenderManagerBuilderOption {
	return func(rm *renderManager) {
		if logger != nil {
			rm.logger = logger.Named("render")
		}
	}
}

// WithMaxLights sets the capacity of the light storage buffer.
// It must match the batching limits so every admitted light has a slot.
//
// Parameters:
//   - n: the light capacity (ignored if <= 0)
//
// Returns:
//   - RenderManagerBuilderOption: option function to apply
func WithMaxLights(n int) RenderManagerBuilderOption {
	return func(rm *renderManager) {
		if n > 0 {
			rm.maxLights = n
		}
	}
}
