package batch

import (
	"fmt"

	"github.com/Carmen-Shannon/oxy-batch/engine/ecs"
)

// LightRecord is the CPU-side data for one point light slot.
type LightRecord struct {
	Position  [4]float32
	Ambient   [3]float32
	Diffuse   [3]float32
	Specular  [3]float32
	Constant  float32
	Linear    float32
	Quadratic float32
	Intensity float32
}

func newLightRecord(t *ecs.Transform, l *ecs.PointLight) LightRecord {
	return LightRecord{
		Position:  [4]float32{t.Position[0], t.Position[1], t.Position[2], 1},
		Ambient:   l.Ambient,
		Diffuse:   l.Diffuse,
		Specular:  l.Specular,
		Constant:  l.Constant,
		Linear:    l.Linear,
		Quadratic: l.Quadratic,
		Intensity: l.Intensity,
	}
}

// PointLightBatch holds up to Limits.MaxLights point lights for the shader's light array.
type PointLightBatch struct {
	ctx    *Context
	index  int
	lights []LightRecord
}

var _ Batch = &PointLightBatch{}

// NewPointLightBatch creates an empty light batch.
func NewPointLightBatch(ctx *Context, index int) *PointLightBatch {
	return &PointLightBatch{ctx: ctx, index: index}
}

func (b *PointLightBatch) Index() int {
	return b.index
}

func (b *PointLightBatch) Kind() Kind {
	return KindPointLight
}

func (b *PointLightBatch) ObjectCount() int {
	return len(b.lights)
}

// Count returns the number of lights in the batch.
func (b *PointLightBatch) Count() int {
	return len(b.lights)
}

// Lights returns the packed light records in slot order.
func (b *PointLightBatch) Lights() []LightRecord {
	return b.lights
}

func (b *PointLightBatch) ShouldBeBatched(w *ecs.World, e ecs.Entity) bool {
	return w.Has(e, ecs.CapTransform|ecs.CapPointLight)
}

func (b *PointLightBatch) CanBeBatched(w *ecs.World, e ecs.Entity) bool {
	return b.ShouldBeBatched(w, e) && len(b.lights)+1 <= b.ctx.Limits.MaxLights
}

func (b *PointLightBatch) SubmitToBatch(w *ecs.World, e ecs.Entity) {
	if !b.CanBeBatched(w, e) {
		panic(fmt.Sprintf("batch: %s submitted to light batch %d without admission", e, b.index))
	}
	t, _ := w.Transform(e)
	l, _ := w.PointLight(e)
	l.Batch.Index = len(b.lights)
	b.lights = append(b.lights, newLightRecord(t, l))
}

// UpdateLight rewrites the light's slot from its current Transform and PointLight.
//
// Parameters:
//   - w: the world owning the entity
//   - e: a light previously submitted to this batch
//
// Returns:
//   - error: ErrStaleSlot if the light's placement is out of range
func (b *PointLightBatch) UpdateLight(w *ecs.World, e ecs.Entity) error {
	t, okT := w.Transform(e)
	l, okL := w.PointLight(e)
	if !okT || !okL || l.Batch.Index < 0 || l.Batch.Index >= len(b.lights) {
		return fmt.Errorf("%w: %s", ErrStaleSlot, e)
	}
	b.lights[l.Batch.Index] = newLightRecord(t, l)
	return nil
}

func (b *PointLightBatch) Reset() {
	b.lights = b.lights[:0]
}
