package render

import (
	"fmt"
	"sync"

	"github.com/Carmen-Shannon/oxy-batch/common"
	"github.com/Carmen-Shannon/oxy-batch/engine/batch"
)

// HeadlessBackend keeps every buffer in memory and records the draws of each frame.
// It backs tests and the benchmark CLI.
type HeadlessBackend struct {
	mu sync.Mutex

	frames   [][]DrawCommand
	current  []DrawCommand
	inFrame  bool
	live     int
	maxKeep  int
	released bool
}

var _ Backend = &HeadlessBackend{}

// NewHeadlessBackend creates a headless backend that retains the last keepFrames frames.
// keepFrames <= 0 retains one frame.
func NewHeadlessBackend(keepFrames int) *HeadlessBackend {
	return &HeadlessBackend{maxKeep: max(keepFrames, 1)}
}

// HeadlessVertexBuffer is an in-memory VertexBuffer.
type HeadlessVertexBuffer struct {
	owner *HeadlessBackend
	Label string
	Data  []float32
}

func (b *HeadlessVertexBuffer) Len() int { return len(b.Data) * 4 }

func (b *HeadlessVertexBuffer) Release() { b.owner.release() }

// HeadlessIndexBuffer is an in-memory IndexBuffer.
type HeadlessIndexBuffer struct {
	owner *HeadlessBackend
	Label string
	Data  []uint32
}

func (b *HeadlessIndexBuffer) Count() int { return len(b.Data) }

func (b *HeadlessIndexBuffer) Release() { b.owner.release() }

// HeadlessShaderBuffer is an in-memory ShaderBuffer.
type HeadlessShaderBuffer struct {
	owner *HeadlessBackend
	Label string
	Usage ShaderBufferUsage
	Data  []byte
}

func (b *HeadlessShaderBuffer) Write(offset uint64, data []byte) error {
	end := offset + uint64(len(data))
	if end > uint64(len(b.Data)) {
		return fmt.Errorf("render: write [%d,%d) exceeds %s size %d", offset, end, b.Label, len(b.Data))
	}
	copy(b.Data[offset:end], data)
	return nil
}

func (b *HeadlessShaderBuffer) Size() int { return len(b.Data) }

func (b *HeadlessShaderBuffer) Release() { b.owner.release() }

type headlessPipeline struct {
	kind batch.Kind
}

func (p headlessPipeline) Kind() batch.Kind { return p.kind }

func (h *HeadlessBackend) CreateVertexBuffer(label string, data []float32) (VertexBuffer, error) {
	h.acquire()
	return &HeadlessVertexBuffer{owner: h, Label: label, Data: append([]float32(nil), data...)}, nil
}

func (h *HeadlessBackend) CreateIndexBuffer(label string, data []uint32) (IndexBuffer, error) {
	h.acquire()
	return &HeadlessIndexBuffer{owner: h, Label: label, Data: append([]uint32(nil), data...)}, nil
}

func (h *HeadlessBackend) CreateShaderBuffer(label string, usage ShaderBufferUsage, data []byte) (ShaderBuffer, error) {
	h.acquire()
	return &HeadlessShaderBuffer{owner: h, Label: label, Usage: usage, Data: append([]byte(nil), data...)}, nil
}

func (h *HeadlessBackend) Pipeline(kind batch.Kind) (Pipeline, error) {
	switch kind {
	case batch.KindStaticColor, batch.KindStaticTex2D:
		return headlessPipeline{kind: kind}, nil
	}
	return nil, fmt.Errorf("%w: %s", ErrNoPipeline, kind)
}

func (h *HeadlessBackend) BeginFrame() error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.inFrame {
		return fmt.Errorf("render: frame already in progress")
	}
	h.inFrame = true
	h.current = nil
	return nil
}

func (h *HeadlessBackend) Draw(cmd DrawCommand) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if !h.inFrame {
		return fmt.Errorf("render: draw outside of a frame")
	}
	h.current = append(h.current, cmd)
	return nil
}

func (h *HeadlessBackend) EndFrame() error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if !h.inFrame {
		return fmt.Errorf("render: no frame in progress")
	}
	h.inFrame = false
	h.frames = append(h.frames, h.current)
	if over := len(h.frames) - h.maxKeep; over > 0 {
		h.frames = h.frames[over:]
	}
	h.current = nil
	return nil
}

func (h *HeadlessBackend) Release() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.released = true
	h.frames = nil
}

// LastFrame returns the draws of the most recently ended frame.
func (h *HeadlessBackend) LastFrame() []DrawCommand {
	h.mu.Lock()
	defer h.mu.Unlock()
	if len(h.frames) == 0 {
		return nil
	}
	return h.frames[len(h.frames)-1]
}

// LiveBuffers returns the number of created and not yet released buffers.
func (h *HeadlessBackend) LiveBuffers() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.live
}

// Bytes returns the raw bytes of a headless buffer, for inspection.
func Bytes(b any) []byte {
	switch buf := b.(type) {
	case *HeadlessShaderBuffer:
		return buf.Data
	case *HeadlessVertexBuffer:
		return common.SliceToBytes(buf.Data)
	case *HeadlessIndexBuffer:
		return common.SliceToBytes(buf.Data)
	}
	return nil
}

func (h *HeadlessBackend) acquire() {
	h.mu.Lock()
	h.live++
	h.mu.Unlock()
}

func (h *HeadlessBackend) release() {
	h.mu.Lock()
	h.live--
	h.mu.Unlock()
}
