package mesh

import "fmt"

// Vertex record layout, in float32 lanes:
//
//	position(3) normal(3) uv(2) textureID(1) shapeID(1)
const (
	PositionOffset  = 0
	NormalOffset    = 3
	UVOffset        = 6
	TextureIDOffset = 8
	ShapeIDOffset   = 9

	// Stride is the number of float32 values per vertex record.
	Stride = 10
)

// Type classifies where a mesh's geometry comes from.
type Type uint8

const (
	TypeNone Type = iota
	TypeCube
	TypePyramid
	TypeSurface
	TypeExternal
)

func (t Type) String() string {
	switch t {
	case TypeCube:
		return "Cube"
	case TypePyramid:
		return "Pyramid"
	case TypeSurface:
		return "Surface"
	case TypeExternal:
		return "External"
	default:
		return "None"
	}
}

// Proxy is the CPU-side geometry of one mesh: flattened vertex records and triangle indices.
type Proxy struct {
	Vertices []float32
	Indices  []uint32
}

// VertexCount returns the number of vertex records.
func (p *Proxy) VertexCount() int {
	return len(p.Vertices) / Stride
}

// IndexCount returns the number of indices.
func (p *Proxy) IndexCount() int {
	return len(p.Indices)
}

// Validate checks the vertex stride and that every index addresses an existing vertex.
//
// Returns:
//   - error: a descriptive error if the proxy is malformed
func (p *Proxy) Validate() error {
	if len(p.Vertices) == 0 {
		return fmt.Errorf("mesh has no vertices")
	}
	if len(p.Vertices)%Stride != 0 {
		return fmt.Errorf("vertex data length %d is not a multiple of stride %d", len(p.Vertices), Stride)
	}
	if len(p.Indices)%3 != 0 {
		return fmt.Errorf("index count %d is not a multiple of 3", len(p.Indices))
	}
	n := uint32(p.VertexCount())
	for i, idx := range p.Indices {
		if idx >= n {
			return fmt.Errorf("index %d at position %d exceeds vertex count %d", idx, i, n)
		}
	}
	return nil
}

// vertex builds one record with zeroed id lanes.
func vertex(px, py, pz, nx, ny, nz, u, v float32) [Stride]float32 {
	return [Stride]float32{px, py, pz, nx, ny, nz, u, v, 0, 0}
}

func flatten(records ...[Stride]float32) []float32 {
	out := make([]float32, 0, len(records)*Stride)
	for _, r := range records {
		out = append(out, r[:]...)
	}
	return out
}
