package batching

import (
	"fmt"

	"github.com/Carmen-Shannon/oxy-batch/engine/ecs"
	"github.com/Carmen-Shannon/oxy-batch/engine/material"
)

// State tells whether the batch storages mirror the scene.
type State uint8

const (
	// StateStale means the storages must be rebuilt before they can be drawn or patched.
	StateStale State = iota
	// StateFresh means every placement written back onto the scene's components is valid.
	StateFresh
)

func (s State) String() string {
	switch s {
	case StateStale:
		return "stale"
	case StateFresh:
		return "fresh"
	}
	return fmt.Sprintf("State(%d)", uint8(s))
}

// Reason tags what changed in the scene since the last frame.
type Reason uint8

const (
	// ReasonTopology covers created or destroyed entities, added or removed components and new or swapped assets.
	ReasonTopology Reason = iota
	// ReasonTransform covers moved, rotated or scaled entities, cameras and lights included.
	ReasonTransform
	// ReasonMaterial covers color changes on renderables whose mesh and material references are unchanged.
	ReasonMaterial
	// ReasonLight covers changed point light parameters.
	ReasonLight
)

var reasonNames = [...]string{"topology", "transform", "material", "light"}

func (r Reason) String() string {
	if int(r) < len(reasonNames) {
		return reasonNames[r]
	}
	return fmt.Sprintf("Reason(%d)", uint8(r))
}

// Change describes one batch of scene edits handed to BatchManager.Update.
type Change struct {
	Reason   Reason
	Entities []ecs.Entity
}

// topology is the snapshot a patch is checked against. Any difference forces a full rebuild.
type topology struct {
	entities int
	version  uint64
	textures int
	assets   map[ecs.Entity]ecs.AssetRef
}

func captureTopology(w *ecs.World, materials material.Registry) topology {
	t := topology{
		entities: w.Len(),
		version:  w.Version(),
		assets:   w.AssetRefs(),
	}
	if materials != nil {
		t.textures = materials.Len()
	}
	return t
}

// mismatch returns why the world no longer matches the snapshot, or "" if it does.
// Renderables are checked in creation order so the reported cause is stable.
func (t topology) mismatch(w *ecs.World, materials material.Registry) string {
	if w.Len() != t.entities {
		return "entity count changed"
	}
	if w.Version() != t.version {
		return "components added or removed"
	}
	if materials != nil && materials.Len() != t.textures {
		return "texture count changed"
	}
	for _, e := range w.Entities() {
		r, ok := w.Renderable(e)
		if !ok {
			continue
		}
		ref, ok := t.assets[e]
		switch {
		case !ok:
			return "components added or removed"
		case r.Material.Type != ref.Material.Type:
			return "material type changed"
		case r.Mesh != ref.Mesh:
			return "mesh changed"
		case r.Material != ref.Material:
			return "texture changed"
		}
	}
	return ""
}
