package ecs

import (
	"fmt"
	"slices"
)

// slot is one arena cell. Components are stored inline; caps marks which are attached.
type slot struct {
	generation uint32
	alive      bool
	caps       Capability
	order      int

	tag        Tag
	transform  Transform
	renderable Renderable
	light      PointLight
	camera     Camera
}

// World is the component store: an arena of generation-checked entity slots.
// Iteration via Entities follows creation order. A World is not safe for concurrent mutation.
type World struct {
	slots    []slot
	freeList []uint32
	order    []Entity
	version  uint64
}

// NewWorld creates an empty World.
//
// Parameters:
//   - capacity: initial slot capacity hint
//
// Returns:
//   - *World: the new world
func NewWorld(capacity int) *World {
	return &World{
		slots: make([]slot, 0, capacity),
		order: make([]Entity, 0, capacity),
	}
}

// Create allocates a new entity with no components.
// Destroyed slots are reused with a bumped generation.
//
// Returns:
//   - Entity: the new entity handle
func (w *World) Create() Entity {
	var idx uint32
	if n := len(w.freeList); n > 0 {
		idx = w.freeList[n-1]
		w.freeList = w.freeList[:n-1]
	} else {
		idx = uint32(len(w.slots))
		w.slots = append(w.slots, slot{})
	}

	s := &w.slots[idx]
	s.generation++
	// Generation 0 is reserved so no live handle ever equals NilEntity.
	if s.generation == 0 {
		s.generation = 1
	}
	gen := s.generation
	*s = slot{generation: gen, alive: true, order: len(w.order)}

	e := makeEntity(idx, gen)
	w.order = append(w.order, e)
	w.version++
	return e
}

// Destroy releases the entity's slot. Stale handles are ignored.
// It is O(n) in the number of live entities: later entities shift down to keep creation order.
//
// Parameters:
//   - e: the entity to destroy
//
// Returns:
//   - bool: true if the entity was alive and is now destroyed
func (w *World) Destroy(e Entity) bool {
	s := w.lookup(e)
	if s == nil {
		return false
	}
	pos := s.order
	s.alive = false
	s.caps = 0

	w.order = slices.Delete(w.order, pos, pos+1)
	for i := pos; i < len(w.order); i++ {
		w.slots[w.order[i].Index()].order = i
	}
	w.freeList = append(w.freeList, e.Index())
	w.version++
	return true
}

// Alive reports whether the handle refers to a live slot of the same generation.
func (w *World) Alive(e Entity) bool {
	return w.lookup(e) != nil
}

// Len returns the number of live entities.
func (w *World) Len() int {
	return len(w.order)
}

// Version returns a counter bumped on every structural change (create, destroy, attach, detach).
func (w *World) Version() uint64 {
	return w.version
}

// Entities returns the live entities in creation order.
// The returned slice is owned by the World and is invalidated by the next structural change.
func (w *World) Entities() []Entity {
	return w.order
}

// AssetRefs snapshots the asset references of every live renderable.
func (w *World) AssetRefs() map[Entity]AssetRef {
	refs := make(map[Entity]AssetRef)
	for _, e := range w.order {
		if r, ok := w.Renderable(e); ok {
			refs[e] = r.Assets()
		}
	}
	return refs
}

// Capabilities returns the component bitmask of the entity, or 0 if it is not alive.
func (w *World) Capabilities(e Entity) Capability {
	if s := w.lookup(e); s != nil {
		return s.caps
	}
	return 0
}

// Has reports whether the entity carries every component in want.
func (w *World) Has(e Entity, want Capability) bool {
	return w.Capabilities(e).Has(want)
}

// Remove detaches a component kind from the entity.
//
// Parameters:
//   - e: the entity
//   - kind: the component kind to detach
//
// Returns:
//   - bool: true if the component was attached and is now removed
func (w *World) Remove(e Entity, kind ComponentKind) bool {
	s := w.lookup(e)
	if s == nil || s.caps&(1<<kind) == 0 {
		return false
	}
	s.caps &^= 1 << kind
	w.version++
	return true
}

// AddTag attaches (or overwrites) a Tag component.
func (w *World) AddTag(e Entity, c Tag) {
	s := w.mustLookup(e)
	s.tag = c
	w.attach(s, CapTag)
}

// AddTransform attaches (or overwrites) a Transform component.
func (w *World) AddTransform(e Entity, c Transform) {
	s := w.mustLookup(e)
	s.transform = c
	w.attach(s, CapTransform)
}

// AddRenderable attaches (or overwrites) a Renderable component.
func (w *World) AddRenderable(e Entity, c Renderable) {
	s := w.mustLookup(e)
	s.renderable = c
	w.attach(s, CapRenderable)
}

// AddPointLight attaches (or overwrites) a PointLight component.
func (w *World) AddPointLight(e Entity, c PointLight) {
	s := w.mustLookup(e)
	s.light = c
	w.attach(s, CapPointLight)
}

// AddCamera attaches (or overwrites) a Camera component.
func (w *World) AddCamera(e Entity, c Camera) {
	s := w.mustLookup(e)
	s.camera = c
	w.attach(s, CapCamera)
}

// Tag returns the entity's Tag component.
func (w *World) Tag(e Entity) (*Tag, bool) {
	s := w.component(e, CapTag)
	if s == nil {
		return nil, false
	}
	return &s.tag, true
}

// Transform returns the entity's Transform component.
func (w *World) Transform(e Entity) (*Transform, bool) {
	s := w.component(e, CapTransform)
	if s == nil {
		return nil, false
	}
	return &s.transform, true
}

// Renderable returns the entity's Renderable component.
func (w *World) Renderable(e Entity) (*Renderable, bool) {
	s := w.component(e, CapRenderable)
	if s == nil {
		return nil, false
	}
	return &s.renderable, true
}

// PointLight returns the entity's PointLight component.
func (w *World) PointLight(e Entity) (*PointLight, bool) {
	s := w.component(e, CapPointLight)
	if s == nil {
		return nil, false
	}
	return &s.light, true
}

// Camera returns the entity's Camera component.
func (w *World) Camera(e Entity) (*Camera, bool) {
	s := w.component(e, CapCamera)
	if s == nil {
		return nil, false
	}
	return &s.camera, true
}

func (w *World) attach(s *slot, c Capability) {
	if s.caps&c == 0 {
		s.caps |= c
		w.version++
	}
}

func (w *World) component(e Entity, c Capability) *slot {
	s := w.lookup(e)
	if s == nil || s.caps&c == 0 {
		return nil
	}
	return s
}

func (w *World) lookup(e Entity) *slot {
	idx := e.Index()
	if int(idx) >= len(w.slots) {
		return nil
	}
	s := &w.slots[idx]
	if !s.alive || s.generation != e.Generation() {
		return nil
	}
	return s
}

func (w *World) mustLookup(e Entity) *slot {
	s := w.lookup(e)
	if s == nil {
		panic(fmt.Sprintf("ecs: %s is not alive", e))
	}
	return s
}
