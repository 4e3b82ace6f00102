package render

import (
	"github.com/Carmen-Shannon/oxy-batch/common"
	"github.com/Carmen-Shannon/oxy-batch/engine/ecs"
)

// RenderCamera is the resolved view state the render manager draws with.
type RenderCamera struct {
	Position   [3]float32
	Rotation   [3]float32
	View       common.Mat4
	Projection common.Mat4
	ViewProj   common.Mat4

	params ecs.Camera
}

// NewRenderCamera resolves a camera component and its transform into view state.
//
// Parameters:
//   - cam: the camera component
//   - t: the camera entity's transform
//
// Returns:
//   - RenderCamera: the resolved camera
func NewRenderCamera(cam ecs.Camera, t ecs.Transform) RenderCamera {
	rc := RenderCamera{params: cam}
	rc.buildProjection()
	rc.Refresh(t)
	return rc
}

// Refresh recomputes the view from a new transform, keeping the projection.
//
// Parameters:
//   - t: the camera entity's transform
func (c *RenderCamera) Refresh(t ecs.Transform) {
	c.Position = t.Position
	c.Rotation = t.Rotation

	fwd := common.Forward(t.Rotation)
	center := [3]float32{t.Position[0] + fwd[0], t.Position[1] + fwd[1], t.Position[2] + fwd[2]}
	common.LookAt(c.View[:], t.Position, center, [3]float32{0, 1, 0})
	common.Mul4(c.ViewProj[:], c.Projection[:], c.View[:])
}

// Uniform returns the camera's GPU uniform record.
func (c *RenderCamera) Uniform() GPUCameraUniform {
	return GPUCameraUniform{ViewProj: c.ViewProj, CameraPosition: c.Position}
}

func (c *RenderCamera) buildProjection() {
	p := c.params
	switch p.Projection {
	case ecs.ProjectionOrthographic:
		common.Orthographic(c.Projection[:], p.Left, p.Right, p.Bottom, p.Top, p.Near, p.Far)
	default:
		aspect := common.Coalesce(p.Aspect, 16.0/9.0)
		fov := common.Coalesce(p.FovY, 0.7853982)
		near := common.Coalesce(p.Near, 0.1)
		far := common.Coalesce(p.Far, 100)
		common.Perspective(c.Projection[:], fov, aspect, near, far)
	}
}
