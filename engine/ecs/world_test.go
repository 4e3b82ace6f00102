package ecs

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWorldCreateDestroyReusesSlotWithNewGeneration(t *testing.T) {
	w := NewWorld(4)

	a := w.Create()
	b := w.Create()
	require.True(t, w.Alive(a))
	require.True(t, w.Alive(b))
	assert.Equal(t, 2, w.Len())

	require.True(t, w.Destroy(a))
	assert.False(t, w.Alive(a))
	assert.False(t, w.Destroy(a), "destroying a stale handle is a no-op")

	c := w.Create()
	assert.Equal(t, a.Index(), c.Index(), "freed slot is reused")
	assert.Equal(t, a.Generation()+1, c.Generation())
	assert.False(t, w.Alive(a), "old handle stays dead after reuse")
	assert.True(t, w.Alive(c))
}

func TestWorldNilEntityIsNeverAlive(t *testing.T) {
	w := NewWorld(0)
	w.Create()
	assert.False(t, w.Alive(NilEntity))
	assert.Equal(t, Capability(0), w.Capabilities(NilEntity))
}

func TestWorldGenerationWrapSkipsNilHandle(t *testing.T) {
	w := NewWorld(0)
	e := w.Create()
	require.Equal(t, uint32(0), e.Index())
	w.Destroy(e)
	w.slots[0].generation = math.MaxUint32

	reused := w.Create()
	assert.NotEqual(t, NilEntity, reused)
	assert.Equal(t, uint32(1), reused.Generation())
	assert.True(t, w.Alive(reused))
	assert.False(t, w.Alive(NilEntity))
}

func TestWorldEntitiesFollowCreationOrder(t *testing.T) {
	w := NewWorld(0)
	var created []Entity
	for range 5 {
		created = append(created, w.Create())
	}
	w.Destroy(created[1])
	w.Destroy(created[3])
	e := w.Create()

	assert.Equal(t, []Entity{created[0], created[2], created[4], e}, w.Entities())
}

func TestWorldComponentsAndCapabilities(t *testing.T) {
	w := NewWorld(0)
	e := w.Create()

	w.AddTag(e, Tag{Name: "crate"})
	w.AddTransform(e, NewTransform())
	w.AddRenderable(e, NewRenderable("Cube"))

	assert.True(t, w.Has(e, CapTag|CapTransform|CapRenderable))
	assert.False(t, w.Has(e, CapPointLight))
	assert.Equal(t, "Tag|Transform|Renderable", w.Capabilities(e).String())

	tr, ok := w.Transform(e)
	require.True(t, ok)
	tr.Position = [3]float32{1, 2, 3}
	again, _ := w.Transform(e)
	assert.Equal(t, [3]float32{1, 2, 3}, again.Position, "getters return pointers into the arena")

	require.True(t, w.Remove(e, KindTag))
	assert.False(t, w.Remove(e, KindTag))
	_, ok = w.Tag(e)
	assert.False(t, ok)
}

func TestWorldVersionTracksStructuralChangesOnly(t *testing.T) {
	w := NewWorld(0)
	v0 := w.Version()

	e := w.Create()
	v1 := w.Version()
	assert.Greater(t, v1, v0)

	w.AddTransform(e, NewTransform())
	v2 := w.Version()
	assert.Greater(t, v2, v1)

	w.AddTransform(e, NewTransform())
	tr, _ := w.Transform(e)
	tr.Position[0] = 5
	assert.Equal(t, v2, w.Version(), "overwrites and in-place edits are not structural")

	w.Remove(e, KindTransform)
	assert.Greater(t, w.Version(), v2)
}

func TestWorldAssetRefsSnapshotsRenderables(t *testing.T) {
	w := NewWorld(0)
	crate := w.Create()
	w.AddRenderable(crate, NewTexturedRenderable("Cube", "wood.png"))
	w.Create()

	refs := w.AssetRefs()
	require.Len(t, refs, 1)
	assert.Equal(t, "wood.png", refs[crate].Material.Path)

	r, _ := w.Renderable(crate)
	r.Mesh.Path = "Pyramid"
	assert.NotEqual(t, refs[crate], r.Assets())
	assert.Equal(t, "Cube", refs[crate].Mesh.Path, "the snapshot is a copy")
}

func TestWorldAddOnDeadEntityPanics(t *testing.T) {
	w := NewWorld(0)
	e := w.Create()
	w.Destroy(e)
	assert.Panics(t, func() { w.AddTransform(e, NewTransform()) })
}

func TestRenderableDefaultsAreUnplaced(t *testing.T) {
	r := NewTexturedRenderable("Cube", "wood.png")
	assert.Equal(t, DefaultColor, r.Color)
	assert.False(t, r.Batch.Placed())
	assert.Equal(t, -1, r.Batch.TransformIndex)

	r.Batch = Placement{Kind: BatchKindStaticColor, Index: 0}
	assert.True(t, r.Batch.Placed())
	r.ClearPlacement()
	assert.False(t, r.Batch.Placed())
}

func TestEntityHandleLayout(t *testing.T) {
	e := makeEntity(7, 3)
	assert.Equal(t, uint32(7), e.Index())
	assert.Equal(t, uint32(3), e.Generation())
	assert.Equal(t, "Entity(7:3)", e.String())
}
