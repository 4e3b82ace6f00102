package batch

import (
	"errors"

	"github.com/Carmen-Shannon/oxy-batch/engine/ecs"
)

// ErrStaleSlot is returned by targeted updates when an entity's placement does not address this batch.
var ErrStaleSlot = errors.New("batch: placement does not address a slot in this batch")

// Kind identifies the vertex-format/material combination a batch holds.
type Kind = ecs.BatchKind

const (
	KindStaticColor = ecs.BatchKindStaticColor
	KindStaticTex2D = ecs.BatchKindStaticTex2D
	KindPointLight  = ecs.BatchKindPointLight
)

// Batch is a capacity-bounded container whose contents become exactly one draw call.
type Batch interface {
	// Index returns the batch's position within its Storage.
	Index() int

	// Kind returns the storage kind the batch belongs to.
	Kind() Kind

	// CanBeBatched reports whether admitting the entity would not exceed any capacity.
	// It has no side effects.
	//
	// Parameters:
	//   - w: the world owning the entity
	//   - e: the candidate entity
	//
	// Returns:
	//   - bool: true if SubmitToBatch may be called for the entity
	CanBeBatched(w *ecs.World, e ecs.Entity) bool

	// ShouldBeBatched reports whether the entity is format-compatible with this batch kind,
	// ignoring remaining capacity.
	//
	// Parameters:
	//   - w: the world owning the entity
	//   - e: the candidate entity
	//
	// Returns:
	//   - bool: true if a batch of this kind could hold the entity
	ShouldBeBatched(w *ecs.World, e ecs.Entity) bool

	// SubmitToBatch appends the entity and writes its placement back onto its component.
	// Calling it without a successful CanBeBatched is a programming error and panics.
	//
	// Parameters:
	//   - w: the world owning the entity
	//   - e: the entity to append
	SubmitToBatch(w *ecs.World, e ecs.Entity)

	// ObjectCount returns the number of objects packed so far.
	ObjectCount() int

	// Reset empties the batch.
	Reset()
}
