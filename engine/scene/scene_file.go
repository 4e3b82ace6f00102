package scene

import (
	"bytes"
	"fmt"
	"io"
	"os"

	"github.com/Carmen-Shannon/oxy-batch/engine/ecs"
	"gopkg.in/yaml.v3"
)

// File is the on-disk form of a scene. Batch placements are never persisted.
type File struct {
	Name     string       `yaml:"name"`
	Entities []EntityFile `yaml:"entities"`
}

// EntityFile holds the persisted components of one entity; absent components are nil.
type EntityFile struct {
	Tag        string          `yaml:"tag,omitempty"`
	Transform  *TransformFile  `yaml:"transform,omitempty"`
	Renderable *RenderableFile `yaml:"renderable,omitempty"`
	PointLight *PointLightFile `yaml:"point_light,omitempty"`
	Camera     *CameraFile     `yaml:"camera,omitempty"`
}

type TransformFile struct {
	Position [3]float32  `yaml:"position,flow"`
	Rotation [3]float32  `yaml:"rotation,flow"`
	Scale    *[3]float32 `yaml:"scale,flow,omitempty"`
}

type RenderableFile struct {
	Mesh    string      `yaml:"mesh"`
	Texture string      `yaml:"texture,omitempty"`
	Color   *[4]float32 `yaml:"color,flow,omitempty"`
}

type PointLightFile struct {
	Ambient   [3]float32 `yaml:"ambient,flow"`
	Diffuse   [3]float32 `yaml:"diffuse,flow"`
	Specular  [3]float32 `yaml:"specular,flow"`
	Constant  float32    `yaml:"constant"`
	Linear    float32    `yaml:"linear"`
	Quadratic float32    `yaml:"quadratic"`
	Intensity float32    `yaml:"intensity"`
}

type CameraFile struct {
	Main       bool    `yaml:"main"`
	Projection string  `yaml:"projection"` // "perspective" or "orthographic"
	FovY       float32 `yaml:"fov_y,omitempty"`
	Aspect     float32 `yaml:"aspect,omitempty"`
	Near       float32 `yaml:"near,omitempty"`
	Far        float32 `yaml:"far,omitempty"`
	Left       float32 `yaml:"left,omitempty"`
	Right      float32 `yaml:"right,omitempty"`
	Bottom     float32 `yaml:"bottom,omitempty"`
	Top        float32 `yaml:"top,omitempty"`
}

// Load reads a YAML scene file into a new Scene. Asset paths are left unresolved.
//
// Parameters:
//   - path: the scene file path
//   - options: additional scene options, applied after the file's name
//
// Returns:
//   - Scene: the loaded scene
//   - error: error if the file cannot be read or parsed
func Load(path string, options ...SceneBuilderOption) (Scene, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read scene %s: %w", path, err)
	}
	s, err := Decode(bytes.NewReader(raw), options...)
	if err != nil {
		return nil, fmt.Errorf("parse scene %s: %w", path, err)
	}
	return s, nil
}

// Decode reads a YAML scene document from r.
//
// Parameters:
//   - r: the YAML source
//   - options: additional scene options, applied after the file's name
//
// Returns:
//   - Scene: the decoded scene
//   - error: error if the document is malformed
func Decode(r io.Reader, options ...SceneBuilderOption) (Scene, error) {
	var f File
	if err := yaml.NewDecoder(r).Decode(&f); err != nil && err != io.EOF {
		return nil, err
	}

	s := NewScene(append([]SceneBuilderOption{WithName(f.Name), WithCapacity(len(f.Entities))}, options...)...)
	w := s.World()
	for i, ef := range f.Entities {
		if err := ef.spawn(w); err != nil {
			return nil, fmt.Errorf("entity %d: %w", i, err)
		}
	}
	return s, nil
}

// Save writes the scene to path as YAML.
//
// Parameters:
//   - s: the scene to save
//   - path: the destination file path
//
// Returns:
//   - error: error if encoding or writing fails
func Save(s Scene, path string) error {
	var buf bytes.Buffer
	if err := Encode(s, &buf); err != nil {
		return fmt.Errorf("encode scene %s: %w", path, err)
	}
	if err := os.WriteFile(path, buf.Bytes(), 0o644); err != nil {
		return fmt.Errorf("write scene %s: %w", path, err)
	}
	return nil
}

// Encode writes the scene as a YAML document to w, entities in creation order.
//
// Parameters:
//   - s: the scene to encode
//   - w: the destination
//
// Returns:
//   - error: error if encoding fails
func Encode(s Scene, w io.Writer) error {
	world := s.World()
	f := File{Name: s.Name(), Entities: make([]EntityFile, 0, world.Len())}
	for _, e := range world.Entities() {
		f.Entities = append(f.Entities, snapshot(world, e))
	}
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(&f); err != nil {
		return err
	}
	return enc.Close()
}

func (ef EntityFile) spawn(w *ecs.World) error {
	var cam ecs.Camera
	if ef.Camera != nil {
		var err error
		if cam, err = ef.Camera.component(); err != nil {
			return err
		}
	}

	e := w.Create()
	if ef.Tag != "" {
		w.AddTag(e, ecs.Tag{Name: ef.Tag})
	}
	if ef.Transform != nil {
		t := ecs.NewTransform()
		t.Position, t.Rotation = ef.Transform.Position, ef.Transform.Rotation
		if ef.Transform.Scale != nil {
			t.Scale = *ef.Transform.Scale
		}
		w.AddTransform(e, t)
	}
	if rf := ef.Renderable; rf != nil {
		r := ecs.NewRenderable(rf.Mesh)
		if rf.Texture != "" {
			r = ecs.NewTexturedRenderable(rf.Mesh, rf.Texture)
		}
		if rf.Color != nil {
			r.Color = *rf.Color
		}
		w.AddRenderable(e, r)
	}
	if lf := ef.PointLight; lf != nil {
		l := ecs.NewPointLight()
		l.Ambient, l.Diffuse, l.Specular = lf.Ambient, lf.Diffuse, lf.Specular
		setIf(&l.Constant, lf.Constant)
		setIf(&l.Linear, lf.Linear)
		setIf(&l.Quadratic, lf.Quadratic)
		setIf(&l.Intensity, lf.Intensity)
		w.AddPointLight(e, l)
	}
	if ef.Camera != nil {
		w.AddCamera(e, cam)
	}
	return nil
}

func (cf *CameraFile) component() (ecs.Camera, error) {
	c := ecs.NewCamera(cf.Main)
	switch cf.Projection {
	case "", "perspective":
		c.Projection = ecs.ProjectionPerspective
	case "orthographic":
		c.Projection = ecs.ProjectionOrthographic
	default:
		return c, fmt.Errorf("unknown camera projection %q", cf.Projection)
	}
	setIf(&c.FovY, cf.FovY)
	setIf(&c.Aspect, cf.Aspect)
	setIf(&c.Near, cf.Near)
	setIf(&c.Far, cf.Far)
	setIf(&c.Left, cf.Left)
	setIf(&c.Right, cf.Right)
	setIf(&c.Bottom, cf.Bottom)
	setIf(&c.Top, cf.Top)
	return c, nil
}

func snapshot(w *ecs.World, e ecs.Entity) EntityFile {
	var ef EntityFile
	if tag, ok := w.Tag(e); ok {
		ef.Tag = tag.Name
	}
	if t, ok := w.Transform(e); ok {
		scale := t.Scale
		ef.Transform = &TransformFile{Position: t.Position, Rotation: t.Rotation, Scale: &scale}
	}
	if r, ok := w.Renderable(e); ok {
		color := r.Color
		// A texture downgraded at resolve time keeps its authored path.
		ef.Renderable = &RenderableFile{Mesh: r.Mesh.Path, Texture: r.Material.Path, Color: &color}
	}
	if l, ok := w.PointLight(e); ok {
		ef.PointLight = &PointLightFile{
			Ambient: l.Ambient, Diffuse: l.Diffuse, Specular: l.Specular,
			Constant: l.Constant, Linear: l.Linear, Quadratic: l.Quadratic, Intensity: l.Intensity,
		}
	}
	if c, ok := w.Camera(e); ok {
		cf := &CameraFile{
			Main: c.Main, Projection: "perspective",
			FovY: c.FovY, Aspect: c.Aspect, Near: c.Near, Far: c.Far,
			Left: c.Left, Right: c.Right, Bottom: c.Bottom, Top: c.Top,
		}
		if c.Projection == ecs.ProjectionOrthographic {
			cf.Projection = "orthographic"
		}
		ef.Camera = cf
	}
	return ef
}

func setIf(dst *float32, v float32) {
	if v != 0 {
		*dst = v
	}
}
