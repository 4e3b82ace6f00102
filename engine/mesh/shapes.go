package mesh

import "strings"

const invSqrt3 = 0.57735026

// Cube returns a unit cube (half-extent 1) with corner-averaged normals.
func Cube() *Proxy {
	const n = invSqrt3
	return &Proxy{
		Vertices: flatten(
			vertex(-1, -1, 1, -n, -n, n, 0, 0),
			vertex(1, -1, 1, n, -n, n, 1, 0),
			vertex(1, 1, 1, n, n, n, 1, 1),
			vertex(-1, 1, 1, -n, n, n, 0, 1),
			vertex(-1, -1, -1, -n, -n, -n, 0, 0),
			vertex(1, -1, -1, n, -n, -n, 1, 0),
			vertex(1, 1, -1, n, n, -n, 1, 1),
			vertex(-1, 1, -1, -n, n, -n, 0, 1),
		),
		Indices: []uint32{
			0, 1, 2, 2, 3, 0, // front
			5, 4, 7, 7, 6, 5, // back
			1, 5, 6, 6, 2, 1, // right
			4, 0, 3, 3, 7, 4, // left
			4, 5, 1, 1, 0, 4, // bottom
			3, 2, 6, 6, 7, 3, // top
		},
	}
}

// Pyramid returns a square-based pyramid with its apex on +Y.
func Pyramid() *Proxy {
	return &Proxy{
		Vertices: flatten(
			vertex(-1, -1, 1, -0.577, -0.577, 0.577, 0, 0),
			vertex(1, -1, 1, 0.577, -0.577, 0.577, 1, 0),
			vertex(1, -1, -1, 0.577, -0.577, -0.577, 1, 1),
			vertex(-1, -1, -1, -0.577, -0.577, -0.577, 0, 1),
			vertex(0, 1, 0, 0, 1, 0, 0.5, 0.5),
		),
		Indices: []uint32{
			0, 2, 1, 2, 0, 3, // base
			0, 1, 4, 1, 2, 4,
			2, 3, 4, 3, 0, 4,
		},
	}
}

// Surface returns a 30x30 ground quad at y = -1.
func Surface() *Proxy {
	return &Proxy{
		Vertices: flatten(
			vertex(-15, -1, 15, 0, 1, 0, 0, 0),
			vertex(15, -1, 15, 0, 1, 0, 1, 0),
			vertex(15, -1, -15, 0, 1, 0, 1, 1),
			vertex(-15, -1, -15, 0, 1, 0, 0, 1),
		),
		Indices: []uint32{0, 1, 2, 2, 3, 0},
	}
}

// builtins are registered, in this order, at the head of every Registry.
var builtins = []struct {
	name  string
	typ   Type
	build func() *Proxy
}{
	{"Cube", TypeCube, Cube},
	{"Pyramid", TypePyramid, Pyramid},
	{"Surface", TypeSurface, Surface},
}

// BuiltinType classifies a mesh path: any path naming a builtin shape resolves to it.
//
// Parameters:
//   - path: the mesh path or name
//
// Returns:
//   - Type: the builtin type, TypeExternal for other non-empty paths, TypeNone for ""
func BuiltinType(path string) Type {
	if path == "" {
		return TypeNone
	}
	for _, b := range builtins {
		if strings.Contains(path, b.name) {
			return b.typ
		}
	}
	return TypeExternal
}
