package batch

import (
	"fmt"
	"slices"

	"github.com/Carmen-Shannon/oxy-batch/common"
	"github.com/Carmen-Shannon/oxy-batch/engine/ecs"
	"github.com/Carmen-Shannon/oxy-batch/engine/material"
	"github.com/Carmen-Shannon/oxy-batch/engine/mesh"
)

// MeshBatch packs static geometry for one draw call.
//
// Every vertex record carries the object's slot number in its texture-id and shape-id lanes,
// so the shader can index the per-object transform, color and material arrays.
// Indices are offset by the running vertex count so they stay unique within the batch.
type MeshBatch struct {
	ctx   *Context
	kind  Kind
	index int

	vertices    []float32
	indices     []uint32
	vertexCount int

	transforms      []common.Mat4
	colors          [][4]float32
	materialIndices []int32
	textureSlots    []int
}

var _ Batch = &MeshBatch{}

// NewMeshBatch creates an empty mesh batch.
//
// Parameters:
//   - ctx: the shared batching context
//   - kind: KindStaticColor or KindStaticTex2D
//   - index: the batch's position within its storage
//
// Returns:
//   - *MeshBatch: the new batch
func NewMeshBatch(ctx *Context, kind Kind, index int) *MeshBatch {
	if kind != KindStaticColor && kind != KindStaticTex2D {
		panic(fmt.Sprintf("batch: %s is not a mesh batch kind", kind))
	}
	return &MeshBatch{ctx: ctx, kind: kind, index: index}
}

func (b *MeshBatch) Index() int {
	return b.index
}

func (b *MeshBatch) Kind() Kind {
	return b.kind
}

func (b *MeshBatch) ObjectCount() int {
	return len(b.transforms)
}

// VertexCount returns the number of vertex records in the batch.
func (b *MeshBatch) VertexCount() int {
	return b.vertexCount
}

// IndexCount returns the number of indices in the batch.
func (b *MeshBatch) IndexCount() int {
	return len(b.indices)
}

// IsEmpty reports whether no object has been submitted.
func (b *MeshBatch) IsEmpty() bool {
	return len(b.transforms) == 0
}

// Vertices returns the flattened vertex records (mesh.Stride floats each).
func (b *MeshBatch) Vertices() []float32 {
	return b.vertices
}

// Indices returns the re-based triangle indices.
func (b *MeshBatch) Indices() []uint32 {
	return b.indices
}

// Transforms returns one model matrix per object slot.
func (b *MeshBatch) Transforms() []common.Mat4 {
	return b.transforms
}

// Colors returns one RGBA color per object slot.
func (b *MeshBatch) Colors() [][4]float32 {
	return b.colors
}

// MaterialIndices returns one material reference per object slot.
// For Tex2D batches the value is the object's texture slot (see TextureSlots);
// for color batches it is the object's slot in Colors.
func (b *MeshBatch) MaterialIndices() []int32 {
	return b.materialIndices
}

// TextureSlots maps each texture slot of a Tex2D batch to its material registry index.
func (b *MeshBatch) TextureSlots() []int {
	return b.textureSlots
}

func (b *MeshBatch) ShouldBeBatched(w *ecs.World, e ecs.Entity) bool {
	_, _, ok := b.resolve(w, e)
	return ok
}

func (b *MeshBatch) CanBeBatched(w *ecs.World, e ecs.Entity) bool {
	r, p, ok := b.resolve(w, e)
	if !ok {
		return false
	}
	lim := b.ctx.Limits
	if b.vertexCount+p.VertexCount() > lim.MaxVertices ||
		len(b.indices)+p.IndexCount() > lim.MaxIndices ||
		len(b.transforms)+1 > lim.MaxObjects {
		return false
	}
	if b.kind == KindStaticTex2D && b.textureSlot(r.Material.Index) < 0 && len(b.textureSlots)+1 > lim.MaxTextureSlots {
		return false
	}
	return true
}

func (b *MeshBatch) SubmitToBatch(w *ecs.World, e ecs.Entity) {
	if !b.CanBeBatched(w, e) {
		panic(fmt.Sprintf("batch: %s submitted to %s batch %d without admission", e, b.kind, b.index))
	}
	r, p, _ := b.resolve(w, e)
	t, _ := w.Transform(e)

	slot := len(b.transforms)
	id := float32(slot)
	startVertex, startIndex := b.vertexCount, len(b.indices)

	first := len(b.vertices)
	b.vertices = append(b.vertices, p.Vertices...)
	for off := first; off < len(b.vertices); off += mesh.Stride {
		b.vertices[off+mesh.TextureIDOffset] = id
		b.vertices[off+mesh.ShapeIDOffset] = id
	}

	base := uint32(b.vertexCount)
	for _, idx := range p.Indices {
		b.indices = append(b.indices, idx+base)
	}
	b.vertexCount += p.VertexCount()

	b.transforms = append(b.transforms, t.Matrix())
	b.colors = append(b.colors, r.Color)
	if b.kind == KindStaticTex2D {
		ts := b.textureSlot(r.Material.Index)
		if ts < 0 {
			ts = len(b.textureSlots)
			b.textureSlots = append(b.textureSlots, r.Material.Index)
		}
		b.materialIndices = append(b.materialIndices, int32(ts))
	} else {
		b.materialIndices = append(b.materialIndices, int32(slot))
	}

	r.Batch = ecs.Placement{
		Kind:           b.kind,
		Index:          b.index,
		TransformIndex: slot,
		MaterialIndex:  slot,
		StartVertex:    startVertex,
		EndVertex:      b.vertexCount,
		StartIndex:     startIndex,
		EndIndex:       len(b.indices),
	}
}

// UpdateTransform rewrites the entity's transform slot in place.
//
// Parameters:
//   - w: the world owning the entity
//   - e: an entity previously submitted to this batch
//
// Returns:
//   - error: ErrStaleSlot if the entity's placement does not address this batch
func (b *MeshBatch) UpdateTransform(w *ecs.World, e ecs.Entity) error {
	r, ok := b.placed(w, e)
	if !ok {
		return fmt.Errorf("%w: %s", ErrStaleSlot, e)
	}
	t, ok := w.Transform(e)
	if !ok {
		return fmt.Errorf("%w: %s has no transform", ErrStaleSlot, e)
	}
	b.transforms[r.Batch.TransformIndex] = t.Matrix()
	return nil
}

// UpdateColor rewrites the entity's color slot in place.
//
// Parameters:
//   - w: the world owning the entity
//   - e: an entity previously submitted to this batch
//
// Returns:
//   - error: ErrStaleSlot if the entity's placement does not address this batch
func (b *MeshBatch) UpdateColor(w *ecs.World, e ecs.Entity) error {
	r, ok := b.placed(w, e)
	if !ok {
		return fmt.Errorf("%w: %s", ErrStaleSlot, e)
	}
	b.colors[r.Batch.MaterialIndex] = r.Color
	return nil
}

func (b *MeshBatch) Reset() {
	b.vertices = b.vertices[:0]
	b.indices = b.indices[:0]
	b.vertexCount = 0
	b.transforms = b.transforms[:0]
	b.colors = b.colors[:0]
	b.materialIndices = b.materialIndices[:0]
	b.textureSlots = b.textureSlots[:0]
}

// resolve returns the entity's renderable and geometry if it is format-compatible with the batch.
func (b *MeshBatch) resolve(w *ecs.World, e ecs.Entity) (*ecs.Renderable, *mesh.Proxy, bool) {
	if !w.Has(e, ecs.CapTransform|ecs.CapRenderable) {
		return nil, nil, false
	}
	r, _ := w.Renderable(e)
	if r.Mesh.Type == mesh.TypeNone || b.ctx.Meshes == nil {
		return nil, nil, false
	}
	p, ok := b.ctx.Meshes.Retrieve(r.Mesh.Index)
	if !ok || p.VertexCount() == 0 {
		return nil, nil, false
	}
	if b.kind == KindStaticTex2D {
		if r.Material.Type != material.TypeTex2D || b.ctx.Materials == nil {
			return nil, nil, false
		}
		if _, ok := b.ctx.Materials.Texture(r.Material.Index); !ok {
			return nil, nil, false
		}
	}
	return r, p, true
}

func (b *MeshBatch) placed(w *ecs.World, e ecs.Entity) (*ecs.Renderable, bool) {
	r, ok := w.Renderable(e)
	if !ok {
		return nil, false
	}
	p := r.Batch
	if p.Kind != b.kind || p.Index != b.index ||
		p.TransformIndex < 0 || p.TransformIndex >= len(b.transforms) ||
		p.MaterialIndex < 0 || p.MaterialIndex >= len(b.colors) {
		return nil, false
	}
	return r, true
}

func (b *MeshBatch) textureSlot(textureIndex int) int {
	return slices.Index(b.textureSlots, textureIndex)
}
