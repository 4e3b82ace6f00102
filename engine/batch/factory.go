package batch

import (
	"github.com/Carmen-Shannon/oxy-batch/engine/ecs"
	"go.uber.org/zap"
)

// Factory creates batches bound to one Storage and owns the placement algorithm for it.
type Factory[B Batch] struct {
	ctx     *Context
	storage *Storage[B]
	build   func(ctx *Context, index int) B
	dropped int
}

// NewMeshFactory creates a factory placing renderables into a mesh batch storage.
//
// Parameters:
//   - ctx: the shared batching context
//   - storage: the storage the factory fills; its kind selects the batch kind
//
// Returns:
//   - *Factory[*MeshBatch]: the new factory
func NewMeshFactory(ctx *Context, storage *Storage[*MeshBatch]) *Factory[*MeshBatch] {
	kind := storage.Kind()
	return &Factory[*MeshBatch]{
		ctx:     ctx,
		storage: storage,
		build: func(ctx *Context, index int) *MeshBatch {
			return NewMeshBatch(ctx, kind, index)
		},
	}
}

// NewLightFactory creates a factory placing point lights into a light storage.
//
// Parameters:
//   - ctx: the shared batching context
//   - storage: the light storage the factory fills
//
// Returns:
//   - *Factory[*PointLightBatch]: the new factory
func NewLightFactory(ctx *Context, storage *Storage[*PointLightBatch]) *Factory[*PointLightBatch] {
	return &Factory[*PointLightBatch]{
		ctx:     ctx,
		storage: storage,
		build:   NewPointLightBatch,
	}
}

// Storage returns the storage the factory fills.
func (f *Factory[B]) Storage() *Storage[B] {
	return f.storage
}

// Emplace creates a new empty batch and appends it to the storage.
//
// Returns:
//   - B: the new batch
func (f *Factory[B]) Emplace() B {
	b := f.build(f.ctx, f.storage.Count())
	f.storage.push(b)
	return b
}

// TryPlace runs the first-fit placement algorithm without recording a drop:
//
//  1. an empty storage gets a landing batch;
//  2. the first batch, in insertion order, that can take the entity receives it;
//  3. otherwise, if the entity is compatible with the first batch's kind, a new batch is opened for it;
//  4. otherwise the entity is not placed.
//
// Parameters:
//   - w: the world owning the entity
//   - e: the entity to place
//
// Returns:
//   - B: the batch that received the entity, zero if not placed
//   - bool: true if the entity was placed
func (f *Factory[B]) TryPlace(w *ecs.World, e ecs.Entity) (B, bool) {
	if f.storage.IsEmpty() {
		f.Emplace()
	}

	for _, b := range f.storage.batches {
		if b.CanBeBatched(w, e) {
			b.SubmitToBatch(w, e)
			return b, true
		}
	}

	var zero B
	if f.storage.Full() || !f.storage.batches[0].ShouldBeBatched(w, e) {
		return zero, false
	}
	b := f.build(f.ctx, f.storage.Count())
	if !b.CanBeBatched(w, e) {
		return zero, false
	}
	f.storage.push(b)
	b.SubmitToBatch(w, e)
	return b, true
}

// Place runs TryPlace and, if the entity could not be placed, counts and logs the drop.
//
// Parameters:
//   - w: the world owning the entity
//   - e: the entity to place
//
// Returns:
//   - B: the batch that received the entity, zero if dropped
//   - bool: true if the entity was placed
func (f *Factory[B]) Place(w *ecs.World, e ecs.Entity) (B, bool) {
	b, ok := f.TryPlace(w, e)
	if !ok {
		f.dropped++
		f.ctx.Logger.Warn("entity dropped from batching",
			zap.Stringer("entity", e),
			zap.Stringer("storage", f.storage.Kind()),
			zap.Int("batches", f.storage.Count()),
			zap.Stringer("capabilities", w.Capabilities(e)))
	}
	return b, ok
}

// Dropped returns the number of entities dropped since the last Reset.
func (f *Factory[B]) Dropped() int {
	return f.dropped
}

// Reset releases the storage's batches and clears the drop counter.
func (f *Factory[B]) Reset() {
	f.storage.Reset()
	f.dropped = 0
}
