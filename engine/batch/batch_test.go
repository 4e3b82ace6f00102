package batch

import (
	"testing"

	"github.com/Carmen-Shannon/oxy-batch/common"
	"github.com/Carmen-Shannon/oxy-batch/engine/ecs"
	"github.com/Carmen-Shannon/oxy-batch/engine/material"
	"github.com/Carmen-Shannon/oxy-batch/engine/mesh"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

type fixture struct {
	ctx  *Context
	w    *ecs.World
	logs *observer.ObservedLogs
}

func newFixture(t *testing.T, limits Limits) *fixture {
	t.Helper()
	core, logs := observer.New(zapcore.DebugLevel)
	mats := material.NewRegistry(material.WithTextureLoader(material.TextureLoaderFunc(
		func(path string) (common.TextureStagingData, error) {
			return common.TextureStagingData{Pixels: make([]byte, 4), Width: 1, Height: 1}, nil
		})))
	ctx, err := NewContext(limits, mesh.NewRegistry(), mats, zap.New(core))
	require.NoError(t, err)
	return &fixture{ctx: ctx, w: ecs.NewWorld(0), logs: logs}
}

func (f *fixture) colored(t *testing.T, shape mesh.Type, c [4]float32) ecs.Entity {
	t.Helper()
	e := f.w.Create()
	f.w.AddTransform(e, ecs.NewTransform())
	r := ecs.NewRenderable(shape.String())
	r.Mesh.Type, r.Mesh.Index = shape, int(shape-mesh.TypeCube)
	r.Color = c
	f.w.AddRenderable(e, r)
	return e
}

func (f *fixture) textured(t *testing.T, shape mesh.Type, texture string) ecs.Entity {
	t.Helper()
	idx, err := f.ctx.Materials.ResolveTexture(texture)
	require.NoError(t, err)
	e := f.w.Create()
	f.w.AddTransform(e, ecs.NewTransform())
	r := ecs.NewTexturedRenderable(shape.String(), texture)
	r.Mesh.Type, r.Mesh.Index = shape, int(shape-mesh.TypeCube)
	r.Material.Index = idx
	f.w.AddRenderable(e, r)
	return e
}

func (f *fixture) light(t *testing.T, x float32) ecs.Entity {
	t.Helper()
	e := f.w.Create()
	tr := ecs.NewTransform()
	tr.Position = [3]float32{x, 1, 0}
	f.w.AddTransform(e, tr)
	f.w.AddPointLight(e, ecs.NewPointLight())
	return e
}

func (f *fixture) placement(e ecs.Entity) ecs.Placement {
	r, _ := f.w.Renderable(e)
	return r.Batch
}

func colorFactory(ctx *Context) *Factory[*MeshBatch] {
	return NewMeshFactory(ctx, NewStorage[*MeshBatch](KindStaticColor, 0))
}

func texFactory(ctx *Context) *Factory[*MeshBatch] {
	return NewMeshFactory(ctx, NewStorage[*MeshBatch](KindStaticTex2D, 0))
}

func TestLimitsValidate(t *testing.T) {
	require.NoError(t, DefaultLimits().Validate())

	l := DefaultLimits()
	l.MaxTextureSlots = 0
	err := l.Validate()
	assert.ErrorIs(t, err, ErrInvalidLimits)
	assert.ErrorContains(t, err, "max_texture_slots")

	_, err = NewContext(l, nil, nil, nil)
	assert.ErrorIs(t, err, ErrInvalidLimits)
}

func TestMeshBatchRebasesIndicesAndStampsSlotIDs(t *testing.T) {
	f := newFixture(t, DefaultLimits())
	a := f.colored(t, mesh.TypeCube, [4]float32{1, 0, 0, 1})
	b := f.colored(t, mesh.TypePyramid, [4]float32{0, 1, 0, 1})

	mb := NewMeshBatch(f.ctx, KindStaticColor, 0)
	require.True(t, mb.CanBeBatched(f.w, a))
	mb.SubmitToBatch(f.w, a)
	require.True(t, mb.CanBeBatched(f.w, b))
	mb.SubmitToBatch(f.w, b)

	assert.Equal(t, 2, mb.ObjectCount())
	assert.Equal(t, 8+5, mb.VertexCount())
	assert.Equal(t, 36+18, mb.IndexCount())
	assert.Len(t, mb.Vertices(), (8+5)*mesh.Stride)

	for _, idx := range mb.Indices() {
		assert.Less(t, int(idx), mb.VertexCount())
	}
	for _, idx := range mb.Indices()[36:] {
		assert.GreaterOrEqual(t, idx, uint32(8), "second object's indices are offset past the first's vertices")
	}

	for v := range mb.VertexCount() {
		want := float32(0)
		if v >= 8 {
			want = 1
		}
		rec := mb.Vertices()[v*mesh.Stride:]
		assert.Equal(t, want, rec[mesh.TextureIDOffset])
		assert.Equal(t, want, rec[mesh.ShapeIDOffset])
	}

	pb := f.placement(b)
	assert.Equal(t, ecs.Placement{
		Kind:           KindStaticColor,
		Index:          0,
		TransformIndex: 1,
		MaterialIndex:  1,
		StartVertex:    8,
		EndVertex:      13,
		StartIndex:     36,
		EndIndex:       54,
	}, pb)
	assert.Equal(t, [][4]float32{{1, 0, 0, 1}, {0, 1, 0, 1}}, mb.Colors())
	assert.Equal(t, []int32{0, 1}, mb.MaterialIndices())
}

func TestMeshBatchSubmitWithoutAdmissionPanics(t *testing.T) {
	f := newFixture(t, DefaultLimits())
	e := f.textured(t, mesh.TypeCube, "wood.png")
	mb := NewMeshBatch(f.ctx, KindStaticColor, 0)
	// A color batch accepts textured renderables; a textured batch refuses color ones.
	c := f.colored(t, mesh.TypeCube, ecs.DefaultColor)
	tb := NewMeshBatch(f.ctx, KindStaticTex2D, 0)

	assert.True(t, mb.ShouldBeBatched(f.w, e))
	assert.False(t, tb.ShouldBeBatched(f.w, c))
	assert.Panics(t, func() { tb.SubmitToBatch(f.w, c) })
	assert.Panics(t, func() { NewMeshBatch(f.ctx, KindPointLight, 0) })
}

func TestFactoryOpensNewBatchWhenObjectsOverflow(t *testing.T) {
	limits := DefaultLimits()
	limits.MaxObjects = 4
	f := newFixture(t, limits)
	fac := colorFactory(f.ctx)

	var entities []ecs.Entity
	for range limits.MaxObjects + 1 {
		entities = append(entities, f.colored(t, mesh.TypeCube, ecs.DefaultColor))
	}
	for _, e := range entities {
		_, ok := fac.Place(f.w, e)
		require.True(t, ok)
	}

	s := fac.Storage()
	require.Equal(t, 2, s.Count())
	assert.Equal(t, 4, s.Get(0).ObjectCount())
	assert.Equal(t, 1, s.Get(1).ObjectCount())
	assert.Equal(t, 5, s.ObjectCount())
	assert.Equal(t, 1, f.placement(entities[4]).Index)
	assert.Equal(t, 0, f.placement(entities[4]).TransformIndex)
	assert.Zero(t, fac.Dropped())
}

func TestFactoryFirstFitBackfillsEarlierBatches(t *testing.T) {
	limits := DefaultLimits()
	limits.MaxVertices = 12
	f := newFixture(t, limits)
	fac := colorFactory(f.ctx)

	cube1 := f.colored(t, mesh.TypeCube, ecs.DefaultColor)    // 8 vertices -> batch 0
	pyramid := f.colored(t, mesh.TypePyramid, ecs.DefaultColor) // 5 more would be 13 -> batch 1
	surface := f.colored(t, mesh.TypeSurface, ecs.DefaultColor) // 4 fits back into batch 0

	for _, e := range []ecs.Entity{cube1, pyramid, surface} {
		_, ok := fac.Place(f.w, e)
		require.True(t, ok)
	}
	assert.Equal(t, 0, f.placement(cube1).Index)
	assert.Equal(t, 1, f.placement(pyramid).Index)
	assert.Equal(t, 0, f.placement(surface).Index)

	for _, b := range fac.Storage().Array() {
		assert.LessOrEqual(t, b.VertexCount(), limits.MaxVertices)
	}
}

func TestFactoryPlacementIsDeterministic(t *testing.T) {
	limits := DefaultLimits()
	limits.MaxObjects = 3
	f := newFixture(t, limits)
	for i := range 10 {
		f.colored(t, mesh.Type(int(mesh.TypeCube)+i%3), ecs.DefaultColor)
	}

	run := func() []ecs.Placement {
		fac := colorFactory(f.ctx)
		var out []ecs.Placement
		for _, e := range f.w.Entities() {
			fac.Place(f.w, e)
			out = append(out, f.placement(e))
		}
		return out
	}
	assert.Equal(t, run(), run())
}

func TestFactoryDropsOversizedEntityAndLogsOnce(t *testing.T) {
	limits := DefaultLimits()
	limits.MaxVertices = 6
	f := newFixture(t, limits)
	fac := colorFactory(f.ctx)

	small := f.colored(t, mesh.TypeSurface, ecs.DefaultColor)
	big := f.colored(t, mesh.TypeCube, ecs.DefaultColor)

	_, ok := fac.Place(f.w, small)
	require.True(t, ok)
	_, ok = fac.Place(f.w, big)
	assert.False(t, ok)

	assert.Equal(t, 1, fac.Dropped())
	assert.Equal(t, 1, fac.Storage().Count(), "no empty batch is left behind for a dropped entity")
	assert.False(t, f.placement(big).Placed())
	assert.Equal(t, 1, f.logs.FilterMessage("entity dropped from batching").Len())
	assert.Equal(t, 1, fac.Storage().ObjectCount())
}

func TestTryPlaceDoesNotCountIncompatibleEntities(t *testing.T) {
	f := newFixture(t, DefaultLimits())
	fac := texFactory(f.ctx)
	c := f.colored(t, mesh.TypeCube, ecs.DefaultColor)

	_, ok := fac.TryPlace(f.w, c)
	assert.False(t, ok)
	assert.Zero(t, fac.Dropped())
	assert.Zero(t, f.logs.Len())
}

func TestTexBatchSharesTextureSlots(t *testing.T) {
	f := newFixture(t, DefaultLimits())
	fac := texFactory(f.ctx)
	a := f.textured(t, mesh.TypeCube, "wood.png")
	b := f.textured(t, mesh.TypeCube, "stone.png")
	c := f.textured(t, mesh.TypePyramid, "wood.png")

	for _, e := range []ecs.Entity{a, b, c} {
		_, ok := fac.Place(f.w, e)
		require.True(t, ok)
	}
	require.Equal(t, 1, fac.Storage().Count())
	mb := fac.Storage().Get(0)
	assert.Equal(t, []int{0, 1}, mb.TextureSlots())
	assert.Equal(t, []int32{0, 1, 0}, mb.MaterialIndices())
}

func TestTexBatchSplitsOnTextureSlotLimit(t *testing.T) {
	limits := DefaultLimits()
	limits.MaxTextureSlots = 1
	f := newFixture(t, limits)
	fac := texFactory(f.ctx)
	a := f.textured(t, mesh.TypeCube, "wood.png")
	b := f.textured(t, mesh.TypeCube, "stone.png")
	c := f.textured(t, mesh.TypeCube, "wood.png")

	for _, e := range []ecs.Entity{a, b, c} {
		fac.Place(f.w, e)
	}
	require.Equal(t, 2, fac.Storage().Count())
	assert.Equal(t, 0, f.placement(a).Index)
	assert.Equal(t, 1, f.placement(b).Index)
	assert.Equal(t, 0, f.placement(c).Index, "a known texture needs no new slot")
	for _, mb := range fac.Storage().Array() {
		assert.LessOrEqual(t, len(mb.TextureSlots()), 1)
	}
}

func TestMeshBatchTargetedUpdates(t *testing.T) {
	limits := DefaultLimits()
	limits.MaxObjects = 1
	f := newFixture(t, limits)
	fac := colorFactory(f.ctx)
	a := f.colored(t, mesh.TypeCube, ecs.DefaultColor)
	b := f.colored(t, mesh.TypeCube, ecs.DefaultColor)
	fac.Place(f.w, a)
	fac.Place(f.w, b)

	first := fac.Storage().Get(0)
	second := fac.Storage().Get(1)

	tr, _ := f.w.Transform(a)
	tr.Position = [3]float32{3, 4, 5}
	require.NoError(t, first.UpdateTransform(f.w, a))
	assert.Equal(t, tr.Matrix(), first.Transforms()[0])

	r, _ := f.w.Renderable(a)
	r.Color = [4]float32{0, 0, 1, 1}
	require.NoError(t, first.UpdateColor(f.w, a))
	assert.Equal(t, [4]float32{0, 0, 1, 1}, first.Colors()[0])

	assert.ErrorIs(t, second.UpdateTransform(f.w, a), ErrStaleSlot)
	assert.ErrorIs(t, first.UpdateColor(f.w, b), ErrStaleSlot)

	rb, _ := f.w.Renderable(b)
	rb.ClearPlacement()
	assert.ErrorIs(t, second.UpdateTransform(f.w, b), ErrStaleSlot)
}

func TestFactoryResetIsIdempotent(t *testing.T) {
	limits := DefaultLimits()
	limits.MaxVertices = 4
	f := newFixture(t, limits)
	fac := colorFactory(f.ctx)
	fac.Place(f.w, f.colored(t, mesh.TypeCube, ecs.DefaultColor))
	require.Equal(t, 1, fac.Dropped())

	fac.Reset()
	assert.True(t, fac.Storage().IsEmpty())
	assert.Zero(t, fac.Dropped())
	fac.Reset()
	assert.True(t, fac.Storage().IsEmpty())

	mb := NewMeshBatch(f.ctx, KindStaticColor, 0)
	mb.Reset()
	assert.True(t, mb.IsEmpty())
	assert.Zero(t, mb.VertexCount())
}

func TestStorageGetOutOfRangePanics(t *testing.T) {
	s := NewStorage[*MeshBatch](KindStaticColor, 0)
	assert.Panics(t, func() { s.Get(0) })
	assert.False(t, s.Full())
	assert.Equal(t, KindStaticColor, s.Kind())
}

func TestLightStorageOverflowDropsAndWarns(t *testing.T) {
	limits := DefaultLimits()
	limits.MaxLights = 2
	f := newFixture(t, limits)
	fac := NewLightFactory(f.ctx, NewStorage[*PointLightBatch](KindPointLight, 1))

	lights := []ecs.Entity{f.light(t, 0), f.light(t, 1), f.light(t, 2)}
	var placed int
	for _, e := range lights {
		if _, ok := fac.Place(f.w, e); ok {
			placed++
		}
	}

	assert.Equal(t, limits.MaxLights, placed)
	assert.Equal(t, 1, fac.Storage().Count())
	lb := fac.Storage().Get(0)
	assert.Equal(t, limits.MaxLights, lb.Count())
	assert.Equal(t, 1, fac.Dropped())

	warns := f.logs.FilterMessage("entity dropped from batching").FilterLevelExact(zapcore.WarnLevel)
	require.Equal(t, 1, warns.Len())
	assert.Equal(t, lights[2].String(), warns.All()[0].ContextMap()["entity"])

	dropped, _ := f.w.PointLight(lights[2])
	assert.Equal(t, -1, dropped.Batch.Index)
	assert.Equal(t, [4]float32{1, 1, 0, 1}, lb.Lights()[1].Position)
}

func TestLightBatchUpdateLight(t *testing.T) {
	f := newFixture(t, DefaultLimits())
	lb := NewPointLightBatch(f.ctx, 0)
	e := f.light(t, 0)
	require.True(t, lb.CanBeBatched(f.w, e))
	lb.SubmitToBatch(f.w, e)

	l, _ := f.w.PointLight(e)
	l.Intensity = 3
	tr, _ := f.w.Transform(e)
	tr.Position = [3]float32{7, 8, 9}
	require.NoError(t, lb.UpdateLight(f.w, e))
	assert.Equal(t, float32(3), lb.Lights()[0].Intensity)
	assert.Equal(t, [4]float32{7, 8, 9, 1}, lb.Lights()[0].Position)

	l.Batch.Index = 4
	assert.ErrorIs(t, lb.UpdateLight(f.w, e), ErrStaleSlot)

	lb.Reset()
	assert.Zero(t, lb.Count())
}
