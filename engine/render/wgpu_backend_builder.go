package render

import "github.com/Carmen-Shannon/oxy-batch/engine/batch"

// WGPUBackendBuilderOption is a functional option for configuring the backend via NewWGPUBackend.
type WGPUBackendBuilderOption func(*wgpuBackendImpl)

// WithTargetSize sets the offscreen target size in pixels.
//
// Parameters:
//   - width: target width (ignored if <= 0)
//   - height: target height (ignored if <= 0)
//
// Returns:
//   - WGPUBackendBuilderOption: option function to apply
func WithTargetSize(width, height int) WGPUBackendBuilderOption {
	return func(b *wgpuBackendImpl) {
		if width > 0 && height > 0 {
			b.width, b.height = uint32(width), uint32(height)
		}
	}
}

// WithPipeline registers the factory that builds the render pipeline for a batch kind.
// Bind group 0 must declare, in order: camera, lights, transforms, colors, material indices.
//
// Parameters:
//   - kind: the batch kind the pipeline draws
//   - build: the pipeline factory, invoked once the device exists
//
// Returns:
//   - WGPUBackendBuilderOption: option function to apply
func WithPipeline(kind batch.Kind, build PipelineFactory) WGPUBackendBuilderOption {
	return func(b *wgpuBackendImpl) {
		b.pending = append(b.pending, pendingPipeline{kind: kind, build: build})
	}
}

// WithTextureBinder sets the callback that binds a Tex2D batch's textures to bind group 1.
//
// Parameters:
//   - binder: the texture bind group builder
//
// Returns:
//   - WGPUBackendBuilderOption: option function to apply
func WithTextureBinder(binder TextureBinder) WGPUBackendBuilderOption {
	return func(b *wgpuBackendImpl) {
		b.textureBinder = binder
	}
}

// WithForceFallbackAdapter requests the software fallback adapter.
//
// Parameters:
//   - force: true to force the fallback adapter
//
// Returns:
//   - WGPUBackendBuilderOption: option function to apply
func WithForceFallbackAdapter(force bool) WGPUBackendBuilderOption {
	return func(b *wgpuBackendImpl) {
		b.forceFallbackAdapter = force
	}
}
