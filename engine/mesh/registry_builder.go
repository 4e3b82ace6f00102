package mesh

import "go.uber.org/zap"

// RegistryBuilderOption is a functional option for configuring a Registry via NewRegistry.
type RegistryBuilderOption func(*registry)

// WithLoader sets the Loader used for external (non-builtin) mesh paths.
//
// Parameters:
//   - l: the loader implementation
//
// Returns:
//   - RegistryBuilderOption: a function that applies the loader option to a registry
func WithLoader(l Loader) RegistryBuilderOption {
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
			r.logger = logger.Named("mesh")
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

// WithMesh pre-populates the registry with caller-built geometry.
// Malformed geometry is skipped and logged.
//
// Parameters:
//   - path: the key for the mesh
//   - p: the geometry
//
// Returns:
//   - RegistryBuilderOption: a function that applies the mesh option to a registry
func WithMesh(path string, p *Proxy) RegistryBuilderOption {
	return func(r *registry) {
		if _, err := r.Register(path, p); err != nil {
			r.logger.Warn("skipping invalid mesh", zap.String("path", path), zap.Error(err))
		}
	}
}
