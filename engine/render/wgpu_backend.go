package render

import (
	"fmt"
	"sync"

	"github.com/Carmen-Shannon/oxy-batch/common"
	"github.com/Carmen-Shannon/oxy-batch/engine/batch"
	"github.com/cogentcore/webgpu/wgpu"
)

const (
	colorFormat = wgpu.TextureFormatRGBA8Unorm
	depthFormat = wgpu.TextureFormatDepth24Plus
)

// TextureBinder builds the bind group for a batch's texture slots (bind group 1).
// Texture upload and sampler creation stay with the caller.
type TextureBinder func(device *wgpu.Device, textures []int) (*wgpu.BindGroup, error)

type wgpuPipeline struct {
	kind     batch.Kind
	pipeline *wgpu.RenderPipeline
	layout   *wgpu.BindGroupLayout
}

func (p *wgpuPipeline) Kind() batch.Kind { return p.kind }

type wgpuBuffer struct {
	mu    *sync.Mutex
	queue *wgpu.Queue
	buf   *wgpu.Buffer
	size  int
	count int
}

func (b *wgpuBuffer) Len() int   { return b.size }
func (b *wgpuBuffer) Count() int { return b.count }
func (b *wgpuBuffer) Size() int  { return b.size }

func (b *wgpuBuffer) Write(offset uint64, data []byte) error {
	if offset+uint64(len(data)) > uint64(b.size) {
		return fmt.Errorf("render: write [%d,%d) exceeds buffer size %d", offset, offset+uint64(len(data)), b.size)
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	b.queue.WriteBuffer(b.buf, offset, data)
	return nil
}

func (b *wgpuBuffer) Release() {
	if b.buf != nil {
		b.buf.Release()
		b.buf = nil
	}
}

// wgpuBackendImpl draws batches through WebGPU into an offscreen color target.
type wgpuBackendImpl struct {
	mu     *sync.Mutex
	device *wgpu.Device
	queue  *wgpu.Queue

	instance *wgpu.Instance
	adapter  *wgpu.Adapter

	width, height        uint32
	forceFallbackAdapter bool

	colorTexture *wgpu.Texture
	colorView    *wgpu.TextureView
	depthTexture *wgpu.Texture
	depthView    *wgpu.TextureView

	pipelines     map[batch.Kind]*wgpuPipeline
	pending       []pendingPipeline
	textureBinder TextureBinder

	frameEncoder    *wgpu.CommandEncoder
	framePass       *wgpu.RenderPassEncoder
	frameBindGroups []*wgpu.BindGroup
}

// PipelineFactory builds the render pipeline for one batch kind on the backend's device.
// It returns the pipeline and the layout of its bind group 0.
type PipelineFactory func(device *wgpu.Device, colorFormat, depthFormat wgpu.TextureFormat) (*wgpu.RenderPipeline, *wgpu.BindGroupLayout, error)

type pendingPipeline struct {
	kind  batch.Kind
	build PipelineFactory
}

var _ Backend = &wgpuBackendImpl{}

// NewWGPUBackend requests an adapter and device and allocates the offscreen target.
// Pipelines are built on the new device by the factories supplied through WithPipeline.
//
// Parameters:
//   - options: functional options for size, pipelines and adapter selection
//
// Returns:
//   - Backend: the WebGPU backend
//   - error: error if no adapter or device is available
func NewWGPUBackend(options ...WGPUBackendBuilderOption) (Backend, error) {
	b := &wgpuBackendImpl{
		mu:        &sync.Mutex{},
		width:     1280,
		height:    720,
		pipelines: make(map[batch.Kind]*wgpuPipeline),
	}
	for _, opt := range options {
		opt(b)
	}

	b.instance = wgpu.CreateInstance(nil)
	a, err := b.instance.RequestAdapter(&wgpu.RequestAdapterOptions{
		ForceFallbackAdapter: b.forceFallbackAdapter,
	})
	if err != nil {
		b.instance.Release()
		return nil, fmt.Errorf("request adapter: %w", err)
	}
	b.adapter = a

	d, err := a.RequestDevice(&wgpu.DeviceDescriptor{Label: "Batch Device"})
	if err != nil {
		b.Release()
		return nil, fmt.Errorf("request device: %w", err)
	}
	b.device = d
	b.queue = d.GetQueue()

	if err := b.createTargets(); err != nil {
		b.Release()
		return nil, err
	}
	for _, p := range b.pending {
		rp, layout, err := p.build(b.device, colorFormat, depthFormat)
		if err != nil {
			b.Release()
			return nil, fmt.Errorf("build %s pipeline: %w", p.kind, err)
		}
		b.pipelines[p.kind] = &wgpuPipeline{kind: p.kind, pipeline: rp, layout: layout}
	}
	b.pending = nil
	return b, nil
}

func (b *wgpuBackendImpl) createTargets() error {
	size := wgpu.Extent3D{Width: b.width, Height: b.height, DepthOrArrayLayers: 1}

	color, err := b.device.CreateTexture(&wgpu.TextureDescriptor{
		Label:         "Batch Color Target",
		Size:          size,
		MipLevelCount: 1,
		SampleCount:   1,
		Dimension:     wgpu.TextureDimension2D,
		Format:        colorFormat,
		Usage:         wgpu.TextureUsageRenderAttachment | wgpu.TextureUsageCopySrc,
	})
	if err != nil {
		return fmt.Errorf("failed to create color target: %w", err)
	}
	b.colorTexture = color
	if b.colorView, err = color.CreateView(nil); err != nil {
		return fmt.Errorf("failed to create color target view: %w", err)
	}

	depth, err := b.device.CreateTexture(&wgpu.TextureDescriptor{
		Label:         "Batch Depth Target",
		Size:          size,
		MipLevelCount: 1,
		SampleCount:   1,
		Dimension:     wgpu.TextureDimension2D,
		Format:        depthFormat,
		Usage:         wgpu.TextureUsageRenderAttachment,
	})
	if err != nil {
		return fmt.Errorf("failed to create depth target: %w", err)
	}
	b.depthTexture = depth
	if b.depthView, err = depth.CreateView(nil); err != nil {
		return fmt.Errorf("failed to create depth target view: %w", err)
	}
	return nil
}

func (b *wgpuBackendImpl) createBuffer(label string, usage wgpu.BufferUsage, data []byte, count int) (*wgpuBuffer, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	// WebGPU requires 4-byte aligned, non-empty buffers.
	size := max((len(data)+3)&^3, 16)
	buf, err := b.device.CreateBuffer(&wgpu.BufferDescriptor{
		Label:            label,
		Size:             uint64(size),
		Usage:            usage | wgpu.BufferUsageCopyDst,
		MappedAtCreation: false,
	})
	if err != nil {
		return nil, fmt.Errorf("create buffer %s: %w", label, err)
	}
	if len(data) > 0 {
		padded := data
		if len(data)%4 != 0 {
			padded = make([]byte, (len(data)+3)&^3)
			copy(padded, data)
		}
		b.queue.WriteBuffer(buf, 0, padded)
	}
	return &wgpuBuffer{mu: b.mu, queue: b.queue, buf: buf, size: size, count: count}, nil
}

func (b *wgpuBackendImpl) CreateVertexBuffer(label string, data []float32) (VertexBuffer, error) {
	return b.createBuffer(label, wgpu.BufferUsageVertex, common.SliceToBytes(data), len(data))
}

func (b *wgpuBackendImpl) CreateIndexBuffer(label string, data []uint32) (IndexBuffer, error) {
	return b.createBuffer(label, wgpu.BufferUsageIndex, common.SliceToBytes(data), len(data))
}

func (b *wgpuBackendImpl) CreateShaderBuffer(label string, usage ShaderBufferUsage, data []byte) (ShaderBuffer, error) {
	u := wgpu.BufferUsageStorage
	if usage == ShaderBufferUniform {
		u = wgpu.BufferUsageUniform
	}
	return b.createBuffer(label, u, data, 0)
}

func (b *wgpuBackendImpl) Pipeline(kind batch.Kind) (Pipeline, error) {
	p, ok := b.pipelines[kind]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNoPipeline, kind)
	}
	return p, nil
}

func (b *wgpuBackendImpl) BeginFrame() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.frameEncoder != nil {
		return fmt.Errorf("render: frame already in progress")
	}
	encoder, err := b.device.CreateCommandEncoder(nil)
	if err != nil {
		return err
	}
	pass := encoder.BeginRenderPass(&wgpu.RenderPassDescriptor{
		ColorAttachments: []wgpu.RenderPassColorAttachment{
			{
				View:       b.colorView,
				LoadOp:     wgpu.LoadOpClear,
				StoreOp:    wgpu.StoreOpStore,
				ClearValue: wgpu.Color{R: 0.1, G: 0.1, B: 0.1, A: 1.0},
			},
		},
		DepthStencilAttachment: &wgpu.RenderPassDepthStencilAttachment{
			View:            b.depthView,
			DepthLoadOp:     wgpu.LoadOpClear,
			DepthStoreOp:    wgpu.StoreOpDiscard,
			DepthClearValue: 1.0,
		},
	})
	b.frameEncoder = encoder
	b.framePass = pass
	return nil
}

func (b *wgpuBackendImpl) Draw(cmd DrawCommand) error {
	p, ok := cmd.Pipeline.(*wgpuPipeline)
	if !ok {
		return fmt.Errorf("render: pipeline %T was not created by the wgpu backend", cmd.Pipeline)
	}
	vb, okV := cmd.Vertices.(*wgpuBuffer)
	ib, okI := cmd.Indices.(*wgpuBuffer)
	if !okV || !okI {
		return fmt.Errorf("render: draw buffers were not created by the wgpu backend")
	}

	entries := make([]wgpu.BindGroupEntry, 0, len(cmd.Buffers))
	for binding, sb := range cmd.Buffers {
		buf, ok := sb.(*wgpuBuffer)
		if !ok || buf.buf == nil {
			continue
		}
		entries = append(entries, wgpu.BindGroupEntry{
			Binding: uint32(binding),
			Buffer:  buf.buf,
			Offset:  0,
			Size:    wgpu.WholeSize,
		})
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	if b.framePass == nil {
		return fmt.Errorf("render: draw outside of a frame")
	}

	bindGroup, err := b.device.CreateBindGroup(&wgpu.BindGroupDescriptor{
		Label:   fmt.Sprintf("%s Batch Bind Group", p.kind),
		Layout:  p.layout,
		Entries: entries,
	})
	if err != nil {
		return err
	}
	b.frameBindGroups = append(b.frameBindGroups, bindGroup)

	b.framePass.SetPipeline(p.pipeline)
	b.framePass.SetBindGroup(0, bindGroup, nil)
	if len(cmd.Textures) > 0 && b.textureBinder != nil {
		texGroup, err := b.textureBinder(b.device, cmd.Textures)
		if err != nil {
			return fmt.Errorf("bind textures: %w", err)
		}
		b.frameBindGroups = append(b.frameBindGroups, texGroup)
		b.framePass.SetBindGroup(1, texGroup, nil)
	}
	b.framePass.SetVertexBuffer(0, vb.buf, 0, wgpu.WholeSize)
	b.framePass.SetIndexBuffer(ib.buf, wgpu.IndexFormatUint32, 0, wgpu.WholeSize)
	b.framePass.DrawIndexed(cmd.IndexCount, 1, 0, 0, 0)
	return nil
}

func (b *wgpuBackendImpl) EndFrame() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.framePass == nil {
		return fmt.Errorf("render: no frame in progress")
	}
	b.framePass.End()
	defer b.releaseFrame()

	commandBuffer, err := b.frameEncoder.Finish(nil)
	if err != nil {
		return err
	}
	b.queue.Submit(commandBuffer)
	commandBuffer.Release()
	return nil
}

func (b *wgpuBackendImpl) releaseFrame() {
	for _, bg := range b.frameBindGroups {
		bg.Release()
	}
	b.frameBindGroups = b.frameBindGroups[:0]
	if b.frameEncoder != nil {
		b.frameEncoder.Release()
	}
	b.frameEncoder = nil
	b.framePass = nil
}

func (b *wgpuBackendImpl) Release() {
	b.mu.Lock()
	defer b.mu.Unlock()

	for kind, p := range b.pipelines {
		p.pipeline.Release()
		if p.layout != nil {
			p.layout.Release()
		}
		delete(b.pipelines, kind)
	}
	if b.depthView != nil {
		b.depthView.Release()
	}
	if b.depthTexture != nil {
		b.depthTexture.Release()
	}
	if b.colorView != nil {
		b.colorView.Release()
	}
	if b.colorTexture != nil {
		b.colorTexture.Release()
	}
	if b.queue != nil {
		b.queue.Release()
	}
	if b.device != nil {
		b.device.Release()
	}
	if b.adapter != nil {
		b.adapter.Release()
	}
	if b.instance != nil {
		b.instance.Release()
	}
	b.depthView, b.depthTexture, b.colorView, b.colorTexture = nil, nil, nil, nil
	b.queue, b.device, b.adapter, b.instance = nil, nil, nil, nil
}
