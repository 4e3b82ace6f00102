package ecs

import (
	"strings"

	"github.com/Carmen-Shannon/oxy-batch/common"
	"github.com/Carmen-Shannon/oxy-batch/engine/material"
	"github.com/Carmen-Shannon/oxy-batch/engine/mesh"
)

// ComponentKind enumerates the closed set of component kinds a World can store.
type ComponentKind uint8

const (
	KindTag ComponentKind = iota
	KindTransform
	KindRenderable
	KindPointLight
	KindCamera

	kindCount
)

var componentKindNames = [kindCount]string{"Tag", "Transform", "Renderable", "PointLight", "Camera"}

func (k ComponentKind) String() string {
	if k >= kindCount {
		return "Unknown"
	}
	return componentKindNames[k]
}

// Capability is a bitmask of the component kinds attached to an entity.
type Capability uint8

const (
	CapTag        Capability = 1 << KindTag
	CapTransform  Capability = 1 << KindTransform
	CapRenderable Capability = 1 << KindRenderable
	CapPointLight Capability = 1 << KindPointLight
	CapCamera     Capability = 1 << KindCamera
)

// Has reports whether every bit in want is set.
func (c Capability) Has(want Capability) bool {
	return c&want == want
}

func (c Capability) String() string {
	if c == 0 {
		return "none"
	}
	parts := make([]string, 0, kindCount)
	for k := ComponentKind(0); k < kindCount; k++ {
		if c&(1<<k) != 0 {
			parts = append(parts, k.String())
		}
	}
	return strings.Join(parts, "|")
}

// BatchKind identifies which storage an entity was placed into.
type BatchKind uint8

const (
	BatchKindNone BatchKind = iota
	BatchKindStaticColor
	BatchKindStaticTex2D
	BatchKindPointLight
)

func (k BatchKind) String() string {
	switch k {
	case BatchKindStaticColor:
		return "static-color"
	case BatchKindStaticTex2D:
		return "static-tex2d"
	case BatchKindPointLight:
		return "point-light"
	default:
		return "none"
	}
}

// Tag names an entity.
type Tag struct {
	Name string
}

// Transform holds an entity's placement in world space.
// Rotation is in radians, applied Y * X * Z.
type Transform struct {
	Position [3]float32
	Rotation [3]float32
	Scale    [3]float32
}

// NewTransform returns a transform at the origin with unit scale.
func NewTransform() Transform {
	return Transform{Scale: [3]float32{1, 1, 1}}
}

// Matrix returns the column-major model matrix of the transform.
func (t Transform) Matrix() common.Mat4 {
	var m common.Mat4
	common.BuildModelMatrix(m[:], t.Position, t.Rotation, t.Scale)
	return m
}

// MeshRef references a mesh by path and the registry index it resolved to.
type MeshRef struct {
	Path  string
	Type  mesh.Type
	Index int
}

// MaterialRef references a material by type and, for textures, path and registry index.
type MaterialRef struct {
	Type  material.Type
	Path  string
	Index int
}

// Placement is the back-reference from a Renderable to the batch slot holding its data.
// It is only valid for the frame it was computed in.
type Placement struct {
	Kind           BatchKind
	Index          int
	TransformIndex int
	MaterialIndex  int
	StartVertex    int
	EndVertex      int
	StartIndex     int
	EndIndex       int
}

// Placed reports whether the placement refers to a batch slot.
func (p Placement) Placed() bool {
	return p.Kind != BatchKindNone && p.Index >= 0
}

var unplaced = Placement{Index: -1, TransformIndex: -1, MaterialIndex: -1, StartVertex: -1, EndVertex: -1, StartIndex: -1, EndIndex: -1}

// DefaultColor is the flat color given to renderables that do not specify one.
var DefaultColor = [4]float32{0.5, 0.5, 0.5, 1}

// Renderable makes an entity drawable through the batch pipeline.
type Renderable struct {
	Mesh     MeshRef
	Material MaterialRef
	Color    [4]float32
	Batch    Placement
}

// NewRenderable returns a color renderable for the mesh path with no placement.
func NewRenderable(meshPath string) Renderable {
	return Renderable{
		Mesh:     MeshRef{Path: meshPath, Index: -1},
		Material: MaterialRef{Type: material.TypeColor, Index: -1},
		Color:    DefaultColor,
		Batch:    unplaced,
	}
}

// NewTexturedRenderable returns a Tex2D renderable for the mesh and texture paths.
func NewTexturedRenderable(meshPath, texturePath string) Renderable {
	r := NewRenderable(meshPath)
	r.Material = MaterialRef{Type: material.TypeTex2D, Path: texturePath, Index: -1}
	return r
}

// AssetRef pairs the mesh and material references a renderable draws with.
type AssetRef struct {
	Mesh     MeshRef
	Material MaterialRef
}

// Assets returns the renderable's current asset references.
func (r *Renderable) Assets() AssetRef {
	return AssetRef{Mesh: r.Mesh, Material: r.Material}
}

// ClearPlacement forgets any batch slot recorded on the renderable.
func (r *Renderable) ClearPlacement() {
	r.Batch = unplaced
}

// LightPlacement is the back-reference from a PointLight to its light batch slot.
type LightPlacement struct {
	Index int
}

// PointLight is an omnidirectional light positioned by the entity's Transform.
type PointLight struct {
	Ambient   [3]float32
	Diffuse   [3]float32
	Specular  [3]float32
	Constant  float32
	Linear    float32
	Quadratic float32
	Intensity float32
	Batch     LightPlacement
}

// NewPointLight returns a white light with a 50 unit attenuation profile.
func NewPointLight() PointLight {
	return PointLight{
		Ambient:   [3]float32{0.1, 0.1, 0.1},
		Diffuse:   [3]float32{1, 1, 1},
		Specular:  [3]float32{1, 1, 1},
		Constant:  1,
		Linear:    0.09,
		Quadratic: 0.032,
		Intensity: 1,
		Batch:     LightPlacement{Index: -1},
	}
}

// Projection selects the camera projection model.
type Projection uint8

const (
	ProjectionPerspective Projection = iota
	ProjectionOrthographic
)

// Camera describes a viewpoint positioned by the entity's Transform.
type Camera struct {
	Main       bool
	Projection Projection
	FovY       float32
	Aspect     float32
	Near       float32
	Far        float32
	Left       float32
	Right      float32
	Bottom     float32
	Top        float32
}

// NewCamera returns a 45 degree perspective camera.
func NewCamera(main bool) Camera {
	return Camera{
		Main:       main,
		Projection: ProjectionPerspective,
		FovY:       0.7853982,
		Aspect:     16.0 / 9.0,
		Near:       0.1,
		Far:        100,
		Left:       -10,
		Right:      10,
		Bottom:     -10,
		Top:        10,
	}
}
