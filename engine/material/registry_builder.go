package material

import "go.uber.org/zap"

// RegistryBuilderOption is a functional option for configuring a Registry via NewRegistry.
type RegistryBuilderOption func(*registry)

// WithTextureLoader replaces the default file decoder.
//
// Parameters:
//   - l: the texture loader
//
// Returns:
//   - RegistryBuilderOption: a function that applies the loader option to a registry
func WithTextureLoader(l TextureLoader) RegistryBuilderOption {
	return func(r *registry) {
		r.loader = l
	}
}

// WithLogger sets the logger used for registration diagnostics.
//
// Parameters:
//   - logger: the zap logger
//
// Returns:
//   - RegistryBuilderOption: a function that applies the logger option to a registry
func WithLogger(logger *zap.Logger) RegistryBuilderOption {
	return func(r *registry) {
		if logger != nil {
			r.logger = logger.Named("material")
		}
	}
}

// WithPreloadWorkers sets the maximum number of concurrent Preload workers.
// Values <= 0 keep the default (runtime.NumCPU()).
//
// Parameters:
//   - n: the worker count
//
// Returns:
//   - RegistryBuilderOption: a function that applies the worker option to a registry
func WithPreloadWorkers(n int) RegistryBuilderOption {
	return func(r *registry) {
		if n > 0 {
			r.preloadWorkers = n
		}
	}
}
