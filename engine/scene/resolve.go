package scene

import (
	"errors"

	"github.com/Carmen-Shannon/oxy-batch/engine/ecs"
	"github.com/Carmen-Shannon/oxy-batch/engine/material"
	"github.com/Carmen-Shannon/oxy-batch/engine/mesh"
	"go.uber.org/zap"
)

// Resolver carries the registries a scene's asset paths are resolved against.
type Resolver struct {
	Meshes    mesh.Registry
	Materials material.Registry
	Logger    *zap.Logger
}

// ResolveReport summarizes one ResolveAssets pass.
type ResolveReport struct {
	Renderables        int
	MissingMeshes      int
	Textured           int
	DowngradedTextures int
}

func resolveAssets(w *ecs.World, r Resolver) ResolveReport {
	logger := r.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	logger = logger.Named("scene")

	var meshPaths, texturePaths []string
	for _, e := range w.Entities() {
		rd, ok := w.Renderable(e)
		if !ok {
			continue
		}
		if mesh.BuiltinType(rd.Mesh.Path) == mesh.TypeExternal {
			meshPaths = append(meshPaths, rd.Mesh.Path)
		}
		if rd.Material.Type == material.TypeTex2D && rd.Material.Path != "" {
			texturePaths = append(texturePaths, rd.Material.Path)
		}
	}

	// Failures are reported per entity below; preload only warms the registries in parallel.
	var preloadErr error
	if r.Meshes != nil && len(meshPaths) > 0 {
		preloadErr = errors.Join(preloadErr, r.Meshes.Preload(meshPaths))
	}
	if r.Materials != nil && len(texturePaths) > 0 {
		preloadErr = errors.Join(preloadErr, r.Materials.Preload(texturePaths))
	}
	if preloadErr != nil {
		logger.Debug("asset preload incomplete", zap.Error(preloadErr))
	}

	var report ResolveReport
	for _, e := range w.Entities() {
		rd, ok := w.Renderable(e)
		if !ok {
			continue
		}
		report.Renderables++
		rd.ClearPlacement()
		resolveMesh(rd, e, r.Meshes, logger, &report)
		resolveMaterial(rd, e, r.Materials, logger, &report)
	}
	return report
}

func resolveMesh(rd *ecs.Renderable, e ecs.Entity, meshes mesh.Registry, logger *zap.Logger, report *ResolveReport) {
	err := errors.New("scene: no mesh registry")
	if meshes != nil {
		var typ mesh.Type
		var idx int
		if typ, idx, err = meshes.Resolve(rd.Mesh.Path); err == nil {
			rd.Mesh.Type, rd.Mesh.Index = typ, idx
			return
		}
	}
	rd.Mesh.Type, rd.Mesh.Index = mesh.TypeNone, -1
	report.MissingMeshes++
	logger.Warn("mesh unavailable, renderable skipped",
		zap.Stringer("entity", e),
		zap.String("mesh", rd.Mesh.Path),
		zap.Error(err))
}

func resolveMaterial(rd *ecs.Renderable, e ecs.Entity, materials material.Registry, logger *zap.Logger, report *ResolveReport) {
	if rd.Material.Type != material.TypeTex2D {
		rd.Material.Type, rd.Material.Index = material.TypeColor, -1
		return
	}
	err := errors.New("scene: no material registry")
	if materials != nil {
		var idx int
		if idx, err = materials.ResolveTexture(rd.Material.Path); err == nil {
			rd.Material.Index = idx
			report.Textured++
			return
		}
	}
	rd.Material.Type, rd.Material.Index = material.TypeColor, -1
	report.DowngradedTextures++
	logger.Warn("texture unavailable, falling back to color",
		zap.Stringer("entity", e),
		zap.String("texture", rd.Material.Path),
		zap.Error(err))
}
