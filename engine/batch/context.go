package batch

import (
	"github.com/Carmen-Shannon/oxy-batch/engine/material"
	"github.com/Carmen-Shannon/oxy-batch/engine/mesh"
	"go.uber.org/zap"
)

// Context carries the services every batch, storage and factory of one batching pipeline share.
// Independent pipelines use independent Contexts.
type Context struct {
	Limits    Limits
	Meshes    mesh.Registry
	Materials material.Registry
	Logger    *zap.Logger
}

// NewContext validates the limits and fills a nil logger with a no-op logger.
//
// Parameters:
//   - limits: the per-batch capacities
//   - meshes: the mesh registry used to fetch geometry
//   - materials: the material registry used to validate textures
//   - logger: the logger for drop diagnostics, may be nil
//
// Returns:
//   - *Context: the new context
//   - error: ErrInvalidLimits if a limit is not positive
func NewContext(limits Limits, meshes mesh.Registry, materials material.Registry, logger *zap.Logger) (*Context, error) {
	if err := limits.Validate(); err != nil {
		return nil, err
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Context{
		Limits:    limits,
		Meshes:    meshes,
		Materials: materials,
		Logger:    logger.Named("batch"),
	}, nil
}
