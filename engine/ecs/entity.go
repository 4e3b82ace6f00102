package ecs

import "fmt"

// Entity is a generation-checked handle into a World arena.
// The low 32 bits hold the slot index, the high 32 bits the slot generation.
// Generations start at 1, so the zero Entity never refers to a live slot.
type Entity uint64

// NilEntity is the zero handle; it is never alive.
const NilEntity Entity = 0

func makeEntity(index, generation uint32) Entity {
	return Entity(uint64(generation)<<32 | uint64(index))
}

// Index returns the arena slot index of the entity.
func (e Entity) Index() uint32 {
	return uint32(e)
}

// Generation returns the slot generation the handle was issued for.
func (e Entity) Generation() uint32 {
	return uint32(e >> 32)
}

func (e Entity) String() string {
	return fmt.Sprintf("Entity(%d:%d)", e.Index(), e.Generation())
}
