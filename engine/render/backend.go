package render

import (
	"errors"

	"github.com/Carmen-Shannon/oxy-batch/engine/batch"
)

// ErrNoPipeline is returned when a backend has no pipeline for a batch kind.
var ErrNoPipeline = errors.New("render: no pipeline registered for batch kind")

// BackendType identifies the graphics backend implementation.
type BackendType int

const (
	// BackendTypeHeadless records draw calls in memory without a GPU.
	BackendTypeHeadless BackendType = iota
	// BackendTypeWGPU draws through WebGPU into an offscreen target.
	BackendTypeWGPU
)

// ShaderBufferUsage selects how a shader buffer is bound.
type ShaderBufferUsage int

const (
	ShaderBufferUniform ShaderBufferUsage = iota
	ShaderBufferStorage
)

// VertexBuffer is a backend-owned buffer of vertex records.
type VertexBuffer interface {
	// Len returns the buffer size in bytes.
	Len() int
	Release()
}

// IndexBuffer is a backend-owned buffer of uint32 triangle indices.
type IndexBuffer interface {
	// Count returns the number of indices in the buffer.
	Count() int
	Release()
}

// ShaderBuffer is a backend-owned uniform or storage buffer.
type ShaderBuffer interface {
	// Write overwrites len(data) bytes at offset.
	//
	// Parameters:
	//   - offset: byte offset into the buffer
	//   - data: the bytes to write; offset+len(data) must not exceed Size
	//
	// Returns:
	//   - error: error if the write is out of range
	Write(offset uint64, data []byte) error

	// Size returns the buffer size in bytes.
	Size() int
	Release()
}

// Pipeline is a backend-owned draw pipeline for one batch kind.
type Pipeline interface {
	Kind() batch.Kind
}

// Binding slots of DrawCommand.Buffers.
const (
	BindingCamera = iota
	BindingLights
	BindingTransforms
	BindingColors
	BindingMaterialIndices

	bindingCount
)

// DrawCommand is one indexed draw of a whole batch.
type DrawCommand struct {
	Pipeline   Pipeline
	Vertices   VertexBuffer
	Indices    IndexBuffer
	IndexCount uint32
	// Buffers are indexed by the Binding* constants.
	Buffers [bindingCount]ShaderBuffer
	// Textures are the material registry indices bound to the batch's texture slots.
	Textures []int
}

// Backend is the narrow graphics API surface the render manager depends on.
type Backend interface {
	// CreateVertexBuffer uploads vertex records into a new buffer.
	//
	// Parameters:
	//   - label: a debug label
	//   - data: the flattened vertex records
	//
	// Returns:
	//   - VertexBuffer: the new buffer
	//   - error: error if allocation fails
	CreateVertexBuffer(label string, data []float32) (VertexBuffer, error)

	// CreateIndexBuffer uploads indices into a new buffer.
	//
	// Parameters:
	//   - label: a debug label
	//   - data: the triangle indices
	//
	// Returns:
	//   - IndexBuffer: the new buffer
	//   - error: error if allocation fails
	CreateIndexBuffer(label string, data []uint32) (IndexBuffer, error)

	// CreateShaderBuffer uploads data into a new uniform or storage buffer.
	//
	// Parameters:
	//   - label: a debug label
	//   - usage: uniform or storage binding
	//   - data: the initial contents; the buffer size is len(data)
	//
	// Returns:
	//   - ShaderBuffer: the new buffer
	//   - error: error if allocation fails
	CreateShaderBuffer(label string, usage ShaderBufferUsage, data []byte) (ShaderBuffer, error)

	// Pipeline returns the pipeline that draws batches of kind.
	//
	// Parameters:
	//   - kind: the batch kind
	//
	// Returns:
	//   - Pipeline: the pipeline
	//   - error: ErrNoPipeline if none is registered
	Pipeline(kind batch.Kind) (Pipeline, error)

	// BeginFrame starts recording a frame.
	BeginFrame() error

	// Draw records one indexed draw.
	Draw(cmd DrawCommand) error

	// EndFrame submits the recorded frame.
	EndFrame() error

	// Release frees every backend-owned resource.
	Release()
}
