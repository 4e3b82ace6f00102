package batching

import (
	"github.com/Carmen-Shannon/oxy-batch/engine/render"
	"go.uber.org/zap"
)

// BatchManagerBuilderOption is a functional option for configuring a BatchManager via NewBatchManager.
type BatchManagerBuilderOption func(*batchManager)

// WithRenderManager sets the render manager the batches are handed to.
//
// Parameters:
//   - rm: the render manager
//
// Returns:
//   - BatchManagerBuilderOption: option function to apply
func WithRenderManager(rm render.RenderManager) BatchManagerBuilderOption {
	return func(m *batchManager) {
		m.render = rm
	}
}

// WithLogger sets the logger for rebuild decisions. Drops are still logged through the batch context.
//
// Parameters:
//   - logger: the parent logger; nil keeps the context logger
//
// Returns:
//   - BatchManagerBuilderOption: option function to apply
func WithLogger(logger *zap.Logger) BatchManagerBuilderOption {
	return func(m *batchManager) {
		if logger != nil {
			m.logger = logger.Named("batching")
		}
	}
}
