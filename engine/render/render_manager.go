package render

import (
	"errors"
	"fmt"

	"github.com/Carmen-Shannon/oxy-batch/common"
	"github.com/Carmen-Shannon/oxy-batch/engine/batch"
	"github.com/Carmen-Shannon/oxy-batch/engine/ecs"
	"go.uber.org/zap"
)

// BatchSource exposes the finalized storages of one frame to the render manager.
type BatchSource interface {
	StorageStaticTex2D() *batch.Storage[*batch.MeshBatch]
	StorageStaticColor() *batch.Storage[*batch.MeshBatch]
	// PointLightBatch returns the frame's light batch, or nil if no light was submitted.
	PointLightBatch() *batch.PointLightBatch
}

// drawPacket holds the GPU resources of one non-empty mesh batch.
type drawPacket struct {
	batch    *batch.MeshBatch
	pipeline Pipeline
	vertices VertexBuffer
	indices  IndexBuffer
	buffers  [bindingCount]ShaderBuffer
}

// renderManager is the implementation of the RenderManager interface.
type renderManager struct {
	backend BackendType
	gpu     Backend
	logger  *zap.Logger

	maxLights int

	camera    RenderCamera
	hasCamera bool

	cameraBuffer ShaderBuffer
	lightBuffer  ShaderBuffer
	packets      []*drawPacket
	byBatch      map[*batch.MeshBatch]*drawPacket

	stats    Statistics
	snapshot Statistics
}

// RenderManager consumes finalized batches and issues one draw call per non-empty batch.
type RenderManager interface {
	// Reset releases the previous frame's GPU resources and zeroes the frame statistics.
	// The active camera is kept.
	Reset()

	// SetCamera makes rc the active camera.
	//
	// Parameters:
	//   - rc: the resolved camera
	SetCamera(rc RenderCamera)

	// RefreshCamera recomputes the active camera's view from a new transform and,
	// if a frame is uploaded, rewrites the camera uniform. It is a no-op until a camera has been set.
	//
	// Parameters:
	//   - t: the camera entity's current transform
	//
	// Returns:
	//   - error: error if the uploaded uniform cannot be rewritten
	RefreshCamera(t ecs.Transform) error

	// HasCamera reports whether a camera has ever been set.
	HasCamera() bool

	// Camera returns the active camera, valid only if HasCamera is true.
	Camera() RenderCamera

	// OnBatchesReadyToDraw uploads every non-empty batch and the camera and light buffers.
	//
	// Parameters:
	//   - src: the frame's finalized storages
	//
	// Returns:
	//   - error: error if a backend resource cannot be created
	OnBatchesReadyToDraw(src BatchSource) error

	// UpdateTransform rewrites one object's transform in the uploaded buffer.
	//
	// Parameters:
	//   - b: an uploaded batch
	//   - slot: the object slot
	//
	// Returns:
	//   - error: error if the batch was not uploaded this frame or the slot is out of range
	UpdateTransform(b *batch.MeshBatch, slot int) error

	// UpdateColor rewrites one object's color in the uploaded buffer.
	//
	// Parameters:
	//   - b: an uploaded batch
	//   - slot: the object slot
	//
	// Returns:
	//   - error: error if the batch was not uploaded this frame or the slot is out of range
	UpdateColor(b *batch.MeshBatch, slot int) error

	// UpdateLight rewrites one light slot in the uploaded light buffer.
	//
	// Parameters:
	//   - lb: the frame's light batch
	//   - slot: the light slot
	//
	// Returns:
	//   - error: error if no light buffer exists or the slot is out of range
	UpdateLight(lb *batch.PointLightBatch, slot int) error

	// RecordDrops adds to the frame's dropped entity and light counters.
	//
	// Parameters:
	//   - entities: renderables dropped this frame
	//   - lights: lights dropped this frame
	RecordDrops(entities, lights int)

	// Draw issues one draw call per uploaded batch and snapshots the statistics.
	//
	// Returns:
	//   - error: error if the backend fails to record or submit the frame
	Draw() error

	// Statistics returns the snapshot taken by the last Draw.
	Statistics() Statistics

	// Backend returns the graphics backend.
	Backend() Backend

	// Release frees the manager's resources and the backend.
	Release()
}

var _ RenderManager = &renderManager{}

// NewRenderManager creates a RenderManager. Without WithBackend, a headless backend is used.
//
// Parameters:
//   - options: functional options for backend, logger and light capacity
//
// Returns:
//   - RenderManager: the new render manager
func NewRenderManager(options ...RenderManagerBuilderOption) RenderManager {
	rm := &renderManager{
		backend:   BackendTypeHeadless,
		logger:    zap.NewNop(),
		maxLights: batch.DefaultLimits().MaxLights,
		byBatch:   make(map[*batch.MeshBatch]*drawPacket),
	}
	for _, opt := range options {
		opt(rm)
	}
	if rm.gpu == nil {
		rm.gpu = NewHeadlessBackend(1)
		rm.backend = BackendTypeHeadless
	}
	return rm
}

func (rm *renderManager) Reset() {
	rm.releaseFrame()
	rm.stats = Statistics{}
}

func (rm *renderManager) SetCamera(rc RenderCamera) {
	rm.camera = rc
	rm.hasCamera = true
}

func (rm *renderManager) RefreshCamera(t ecs.Transform) error {
	if !rm.hasCamera {
		return nil
	}
	rm.camera.Refresh(t)
	if rm.cameraBuffer == nil {
		return nil
	}
	u := rm.camera.Uniform()
	return rm.cameraBuffer.Write(0, u.Marshal())
}

func (rm *renderManager) HasCamera() bool {
	return rm.hasCamera
}

func (rm *renderManager) Camera() RenderCamera {
	return rm.camera
}

func (rm *renderManager) OnBatchesReadyToDraw(src BatchSource) error {
	rm.releaseFrame()

	uniform := GPUCameraUniform{ViewProj: common.IdentityMat4()}
	if rm.hasCamera {
		uniform = rm.camera.Uniform()
	}
	var err error
	if rm.cameraBuffer, err = rm.gpu.CreateShaderBuffer("Camera Uniform", ShaderBufferUniform, uniform.Marshal()); err != nil {
		return fmt.Errorf("upload camera: %w", err)
	}

	var lights []batch.LightRecord
	if lb := src.PointLightBatch(); lb != nil {
		lights = lb.Lights()
	}
	if rm.lightBuffer, err = rm.gpu.CreateShaderBuffer("Point Lights", ShaderBufferStorage, MarshalLights(lights, rm.maxLights)); err != nil {
		return fmt.Errorf("upload lights: %w", err)
	}
	rm.stats.Lights = len(lights)

	for _, storage := range []*batch.Storage[*batch.MeshBatch]{src.StorageStaticTex2D(), src.StorageStaticColor()} {
		if storage == nil {
			continue
		}
		for _, b := range storage.Array() {
			if b.IsEmpty() {
				continue
			}
			p, err := rm.upload(b)
			if err != nil {
				return fmt.Errorf("upload %s batch %d: %w", b.Kind(), b.Index(), err)
			}
			rm.packets = append(rm.packets, p)
			rm.byBatch[b] = p
		}
	}
	rm.stats.Batches = len(rm.packets)
	return nil
}

func (rm *renderManager) upload(b *batch.MeshBatch) (*drawPacket, error) {
	pipeline, err := rm.gpu.Pipeline(b.Kind())
	if err != nil {
		return nil, err
	}
	label := fmt.Sprintf("%s Batch %d", b.Kind(), b.Index())
	p := &drawPacket{batch: b, pipeline: pipeline}

	if p.vertices, err = rm.gpu.CreateVertexBuffer(label+" Vertices", b.Vertices()); err != nil {
		return nil, err
	}
	if p.indices, err = rm.gpu.CreateIndexBuffer(label+" Indices", b.Indices()); err != nil {
		p.release()
		return nil, err
	}
	p.buffers[BindingCamera] = rm.cameraBuffer
	p.buffers[BindingLights] = rm.lightBuffer

	uploads := []struct {
		binding int
		name    string
		data    []byte
	}{
		{BindingTransforms, " Transforms", MarshalTransforms(b.Transforms())},
		{BindingColors, " Colors", MarshalColors(b.Colors())},
		{BindingMaterialIndices, " Material Indices", MarshalMaterialIndices(b.MaterialIndices())},
	}
	for _, u := range uploads {
		if p.buffers[u.binding], err = rm.gpu.CreateShaderBuffer(label+u.name, ShaderBufferStorage, u.data); err != nil {
			p.release()
			return nil, err
		}
	}
	return p, nil
}

func (rm *renderManager) UpdateTransform(b *batch.MeshBatch, slot int) error {
	p, err := rm.packet(b, slot)
	if err != nil {
		return err
	}
	m := b.Transforms()[slot]
	return p.buffers[BindingTransforms].Write(uint64(slot*TransformStride), MarshalTransforms([]common.Mat4{m}))
}

func (rm *renderManager) UpdateColor(b *batch.MeshBatch, slot int) error {
	p, err := rm.packet(b, slot)
	if err != nil {
		return err
	}
	c := b.Colors()[slot]
	return p.buffers[BindingColors].Write(uint64(slot*ColorStride), MarshalColors([][4]float32{c}))
}

func (rm *renderManager) UpdateLight(lb *batch.PointLightBatch, slot int) error {
	if rm.lightBuffer == nil || lb == nil {
		return errors.New("render: no light buffer uploaded this frame")
	}
	if slot < 0 || slot >= lb.Count() {
		return fmt.Errorf("render: light slot %d out of range [0,%d)", slot, lb.Count())
	}
	g := NewGPUPointLight(lb.Lights()[slot])
	return rm.lightBuffer.Write(LightOffset(slot), g.Marshal())
}

func (rm *renderManager) RecordDrops(entities, lights int) {
	rm.stats.DroppedEntities += entities
	rm.stats.DroppedLights += lights
}

func (rm *renderManager) Draw() error {
	if err := rm.gpu.BeginFrame(); err != nil {
		return fmt.Errorf("begin frame: %w", err)
	}

	stats := rm.stats
	stats.DrawCalls, stats.Vertices, stats.Indices, stats.Objects = 0, 0, 0, 0
	for _, p := range rm.packets {
		cmd := DrawCommand{
			Pipeline:   p.pipeline,
			Vertices:   p.vertices,
			Indices:    p.indices,
			IndexCount: uint32(p.batch.IndexCount()),
			Buffers:    p.buffers,
		}
		if p.batch.Kind() == batch.KindStaticTex2D {
			cmd.Textures = p.batch.TextureSlots()
		}
		if err := rm.gpu.Draw(cmd); err != nil {
			_ = rm.gpu.EndFrame()
			return fmt.Errorf("draw %s batch %d: %w", p.batch.Kind(), p.batch.Index(), err)
		}
		stats.DrawCalls++
		stats.Vertices += p.batch.VertexCount()
		stats.Indices += p.batch.IndexCount()
		stats.Objects += p.batch.ObjectCount()
	}
	stats.Triangles = stats.Indices / 3

	if err := rm.gpu.EndFrame(); err != nil {
		return fmt.Errorf("end frame: %w", err)
	}
	rm.stats = stats
	rm.snapshot = stats
	rm.logger.Debug("frame drawn", zap.Object("stats", stats))
	return nil
}

func (rm *renderManager) Statistics() Statistics {
	return rm.snapshot
}

func (rm *renderManager) Backend() Backend {
	return rm.gpu
}

func (rm *renderManager) Release() {
	rm.releaseFrame()
	rm.gpu.Release()
}

func (rm *renderManager) packet(b *batch.MeshBatch, slot int) (*drawPacket, error) {
	p, ok := rm.byBatch[b]
	if !ok {
		return nil, fmt.Errorf("render: %s batch %d was not uploaded this frame", b.Kind(), b.Index())
	}
	if slot < 0 || slot >= b.ObjectCount() {
		return nil, fmt.Errorf("render: slot %d out of range [0,%d)", slot, b.ObjectCount())
	}
	return p, nil
}

func (rm *renderManager) releaseFrame() {
	for _, p := range rm.packets {
		p.release()
	}
	rm.packets = rm.packets[:0]
	clear(rm.byBatch)
	if rm.cameraBuffer != nil {
		rm.cameraBuffer.Release()
		rm.cameraBuffer = nil
	}
	if rm.lightBuffer != nil {
		rm.lightBuffer.Release()
		rm.lightBuffer = nil
	}
}

// release frees the packet's own buffers; camera and light buffers are shared and released by the manager.
func (p *drawPacket) release() {
	if p.vertices != nil {
		p.vertices.Release()
	}
	if p.indices != nil {
		p.indices.Release()
	}
	for _, b := range []int{BindingTransforms, BindingColors, BindingMaterialIndices} {
		if p.buffers[b] != nil {
			p.buffers[b].Release()
		}
	}
}
