package batching

import (
	"errors"
	"fmt"

	"github.com/Carmen-Shannon/oxy-batch/engine/batch"
	"github.com/Carmen-Shannon/oxy-batch/engine/ecs"
	"github.com/Carmen-Shannon/oxy-batch/engine/material"
	"github.com/Carmen-Shannon/oxy-batch/engine/render"
	"github.com/Carmen-Shannon/oxy-batch/engine/scene"
	"go.uber.org/zap"
)

// errNeedsRebuild marks a patch that cannot be applied in place.
var errNeedsRebuild = errors.New("batching: patch requires a full rebuild")

// batchManager implements the BatchManager interface.
type batchManager struct {
	ctx    *batch.Context
	render render.RenderManager
	logger *zap.Logger

	texStorage   *batch.Storage[*batch.MeshBatch]
	colorStorage *batch.Storage[*batch.MeshBatch]
	lightStorage *batch.Storage[*batch.PointLightBatch]

	texFactory   *batch.Factory[*batch.MeshBatch]
	colorFactory *batch.Factory[*batch.MeshBatch]
	lightFactory *batch.Factory[*batch.PointLightBatch]

	state        State
	topo         topology
	cameraEntity ecs.Entity
}

// BatchManager turns a scene into batches once per frame and keeps them current between frames.
// It is driven from a single thread; no method may be called concurrently with another.
type BatchManager interface {
	// Reset empties every storage and marks the manager stale. Calling it twice is a no-op.
	Reset()

	// PushSceneToRender rebuilds every batch from the scene and hands them to the render manager.
	// Frame order: reset, camera resolution, one submission pass in entity creation order, upload.
	//
	// Parameters:
	//   - s: the scene to submit
	//
	// Returns:
	//   - error: error if the render manager fails to upload the batches
	PushSceneToRender(s scene.Scene) error

	// Update applies a change to the batches. It patches the affected slots in place when the
	// manager is fresh and the scene's topology is unchanged, and otherwise rebuilds everything.
	//
	// Parameters:
	//   - s: the scene the change happened in
	//   - c: the change reason and the affected entities
	//
	// Returns:
	//   - bool: true if a full rebuild ran
	//   - error: error if the rebuild or a buffer rewrite failed
	Update(s scene.Scene, c Change) (bool, error)

	// Invalidate forces the next Update to rebuild.
	Invalidate()

	// State returns whether the storages mirror the last submitted scene.
	State() State

	// StorageStaticTex2D returns the storage of textured mesh batches.
	StorageStaticTex2D() *batch.Storage[*batch.MeshBatch]

	// StorageStaticColor returns the storage of flat-color mesh batches.
	StorageStaticColor() *batch.Storage[*batch.MeshBatch]

	// PointLightBatch returns the frame's light batch, or nil if no light was submitted.
	PointLightBatch() *batch.PointLightBatch

	// Statistics returns the render manager's last frame snapshot.
	Statistics() render.Statistics

	// Render returns the render manager the batches are handed to.
	Render() render.RenderManager
}

var _ BatchManager = &batchManager{}
var _ render.BatchSource = &batchManager{}

// NewBatchManager creates a BatchManager over the given context.
// Without WithRenderManager, a render manager on the headless backend is created.
//
// Parameters:
//   - ctx: the batching context shared with every batch
//   - options: functional options for the render manager and logger
//
// Returns:
//   - BatchManager: the new manager, initially stale
func NewBatchManager(ctx *batch.Context, options ...BatchManagerBuilderOption) BatchManager {
	if ctx == nil {
		panic("batching: nil batch context")
	}
	m := &batchManager{
		ctx:          ctx,
		logger:       ctx.Logger.Named("manager"),
		texStorage:   batch.NewStorage[*batch.MeshBatch](batch.KindStaticTex2D, 0),
		colorStorage: batch.NewStorage[*batch.MeshBatch](batch.KindStaticColor, 0),
		// The shader holds a single light array, so the light storage never grows past one batch.
		lightStorage: batch.NewStorage[*batch.PointLightBatch](batch.KindPointLight, 1),
		state:        StateStale,
	}
	m.texFactory = batch.NewMeshFactory(ctx, m.texStorage)
	m.colorFactory = batch.NewMeshFactory(ctx, m.colorStorage)
	m.lightFactory = batch.NewLightFactory(ctx, m.lightStorage)

	for _, opt := range options {
		opt(m)
	}
	if m.render == nil {
		m.render = render.NewRenderManager(
			render.WithLogger(ctx.Logger),
			render.WithMaxLights(ctx.Limits.MaxLights),
		)
	}
	return m
}

func (m *batchManager) Reset() {
	m.texFactory.Reset()
	m.colorFactory.Reset()
	m.lightFactory.Reset()
	m.state = StateStale
}

func (m *batchManager) PushSceneToRender(s scene.Scene) error {
	w := s.World()

	m.Reset()
	m.render.Reset()

	m.resolveCamera(w)

	for _, e := range w.Entities() {
		caps := w.Capabilities(e)
		if caps.Has(ecs.CapRenderable) {
			r, _ := w.Renderable(e)
			r.ClearPlacement()
			if caps.Has(ecs.CapTransform) {
				m.submitRenderable(w, e, r)
			}
		}
		if caps.Has(ecs.CapPointLight) {
			l, _ := w.PointLight(e)
			l.Batch.Index = -1
			if caps.Has(ecs.CapTransform) {
				m.lightFactory.Place(w, e)
			}
		}
	}

	m.render.RecordDrops(m.colorFactory.Dropped(), m.lightFactory.Dropped())
	if err := m.render.OnBatchesReadyToDraw(m); err != nil {
		return fmt.Errorf("push scene %q: %w", s.Name(), err)
	}

	m.topo = captureTopology(w, m.ctx.Materials)
	m.state = StateFresh
	return nil
}

// submitRenderable tries the textured storage first for Tex2D materials and falls back to the color storage.
func (m *batchManager) submitRenderable(w *ecs.World, e ecs.Entity, r *ecs.Renderable) {
	if r.Material.Type == material.TypeTex2D {
		if _, ok := m.texFactory.TryPlace(w, e); ok {
			return
		}
	}
	m.colorFactory.Place(w, e)
}

// resolveCamera makes the first main camera, in creation order, the active one.
// Without a main camera the render manager keeps the last valid one.
func (m *batchManager) resolveCamera(w *ecs.World) {
	for _, e := range w.Entities() {
		if !w.Has(e, ecs.CapCamera|ecs.CapTransform) {
			continue
		}
		cam, _ := w.Camera(e)
		if !cam.Main {
			continue
		}
		t, _ := w.Transform(e)
		if m.render.HasCamera() && e == m.cameraEntity {
			_ = m.render.RefreshCamera(*t)
		} else {
			m.render.SetCamera(render.NewRenderCamera(*cam, *t))
			m.cameraEntity = e
		}
		return
	}
	m.logger.Debug("no main camera in scene, keeping last camera", zap.Bool("has_camera", m.render.HasCamera()))
}

func (m *batchManager) Update(s scene.Scene, c Change) (bool, error) {
	w := s.World()

	cause := ""
	switch {
	case m.state == StateStale:
		cause = "state stale"
	case c.Reason == ReasonTopology:
		cause = "topology change"
	default:
		cause = m.topo.mismatch(w, m.ctx.Materials)
	}

	if cause == "" {
		err := m.patch(w, c)
		if err == nil {
			return false, nil
		}
		if !errors.Is(err, errNeedsRebuild) && !errors.Is(err, batch.ErrStaleSlot) {
			return false, err
		}
		cause = err.Error()
	}

	m.logger.Debug("full rebuild",
		zap.Stringer("reason", c.Reason),
		zap.String("cause", cause),
		zap.Int("entities", len(c.Entities)))
	return true, m.PushSceneToRender(s)
}

// patch validates every entity of the change before rewriting anything, so a failed patch leaves the batches untouched.
func (m *batchManager) patch(w *ecs.World, c Change) error {
	for _, e := range c.Entities {
		if !w.Alive(e) {
			return fmt.Errorf("%w: %s is not alive", errNeedsRebuild, e)
		}
		if err := m.validate(w, e, c.Reason); err != nil {
			return err
		}
	}

	for _, e := range c.Entities {
		var err error
		switch c.Reason {
		case ReasonTransform:
			err = m.patchTransform(w, e)
		case ReasonMaterial:
			err = m.patchColor(w, e)
		case ReasonLight:
			err = m.patchLight(w, e)
		default:
			err = fmt.Errorf("%w: unknown reason %s", errNeedsRebuild, c.Reason)
		}
		if err != nil {
			return err
		}
	}
	return nil
}

func (m *batchManager) validate(w *ecs.World, e ecs.Entity, reason Reason) error {
	caps := w.Capabilities(e)
	if (reason == ReasonTransform || reason == ReasonMaterial) && caps.Has(ecs.CapRenderable) {
		if _, err := m.meshBatch(w, e); err != nil {
			return err
		}
	}
	if (reason == ReasonTransform || reason == ReasonLight) && caps.Has(ecs.CapPointLight) {
		l, _ := w.PointLight(e)
		if lb := m.PointLightBatch(); lb == nil || l.Batch.Index < 0 || l.Batch.Index >= lb.Count() {
			return fmt.Errorf("%w: light %s has no slot", errNeedsRebuild, e)
		}
	}
	return nil
}

func (m *batchManager) patchTransform(w *ecs.World, e ecs.Entity) error {
	caps := w.Capabilities(e)
	if caps.Has(ecs.CapRenderable) {
		b, err := m.meshBatch(w, e)
		if err != nil {
			return err
		}
		if err := b.UpdateTransform(w, e); err != nil {
			return err
		}
		r, _ := w.Renderable(e)
		if err := m.render.UpdateTransform(b, r.Batch.TransformIndex); err != nil {
			return err
		}
	}
	if caps.Has(ecs.CapPointLight) {
		if err := m.patchLight(w, e); err != nil {
			return err
		}
	}
	if caps.Has(ecs.CapCamera) && e == m.cameraEntity {
		t, _ := w.Transform(e)
		if err := m.render.RefreshCamera(*t); err != nil {
			return err
		}
	}
	return nil
}

func (m *batchManager) patchColor(w *ecs.World, e ecs.Entity) error {
	if !w.Has(e, ecs.CapRenderable) {
		return nil
	}
	b, err := m.meshBatch(w, e)
	if err != nil {
		return err
	}
	if err := b.UpdateColor(w, e); err != nil {
		return err
	}
	r, _ := w.Renderable(e)
	return m.render.UpdateColor(b, r.Batch.MaterialIndex)
}

func (m *batchManager) patchLight(w *ecs.World, e ecs.Entity) error {
	if !w.Has(e, ecs.CapPointLight) {
		return nil
	}
	lb := m.PointLightBatch()
	if lb == nil {
		return fmt.Errorf("%w: no light batch", errNeedsRebuild)
	}
	if err := lb.UpdateLight(w, e); err != nil {
		return err
	}
	l, _ := w.PointLight(e)
	return m.render.UpdateLight(lb, l.Batch.Index)
}

// meshBatch returns the batch the entity's placement addresses.
func (m *batchManager) meshBatch(w *ecs.World, e ecs.Entity) (*batch.MeshBatch, error) {
	r, _ := w.Renderable(e)
	p := r.Batch
	var storage *batch.Storage[*batch.MeshBatch]
	switch p.Kind {
	case batch.KindStaticTex2D:
		storage = m.texStorage
	case batch.KindStaticColor:
		storage = m.colorStorage
	default:
		return nil, fmt.Errorf("%w: %s is not placed", errNeedsRebuild, e)
	}
	if p.Index < 0 || p.Index >= storage.Count() {
		return nil, fmt.Errorf("%w: %s addresses %s batch %d", batch.ErrStaleSlot, e, p.Kind, p.Index)
	}
	b := storage.Get(p.Index)
	if p.TransformIndex < 0 || p.TransformIndex >= b.ObjectCount() {
		return nil, fmt.Errorf("%w: %s addresses slot %d of %s batch %d", batch.ErrStaleSlot, e, p.TransformIndex, p.Kind, p.Index)
	}
	return b, nil
}

func (m *batchManager) Invalidate() {
	m.state = StateStale
}

func (m *batchManager) State() State {
	return m.state
}

func (m *batchManager) StorageStaticTex2D() *batch.Storage[*batch.MeshBatch] {
	return m.texStorage
}

func (m *batchManager) StorageStaticColor() *batch.Storage[*batch.MeshBatch] {
	return m.colorStorage
}

func (m *batchManager) PointLightBatch() *batch.PointLightBatch {
	if m.lightStorage.IsEmpty() {
		return nil
	}
	return m.lightStorage.Get(0)
}

func (m *batchManager) Statistics() render.Statistics {
	return m.render.Statistics()
}

func (m *batchManager) Render() render.RenderManager {
	return m.render
}
