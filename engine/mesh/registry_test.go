package mesh

import (
	"errors"
	"fmt"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func triangle(scale float32) *Proxy {
	return &Proxy{
		Vertices: flatten(
			vertex(0, 0, 0, 0, 0, 1, 0, 0),
			vertex(scale, 0, 0, 0, 0, 1, 1, 0),
			vertex(0, scale, 0, 0, 0, 1, 0, 1),
		),
		Indices: []uint32{0, 1, 2},
	}
}

func TestBuiltinShapes(t *testing.T) {
	cases := []struct {
		name     string
		build    func() *Proxy
		vertices int
		indices  int
	}{
		{"Cube", Cube, 8, 36},
		{"Pyramid", Pyramid, 5, 18},
		{"Surface", Surface, 4, 6},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			p := tc.build()
			require.NoError(t, p.Validate())
			assert.Equal(t, tc.vertices, p.VertexCount())
			assert.Equal(t, tc.indices, p.IndexCount())
			assert.Zero(t, len(p.Vertices)%Stride)
		})
	}
}

func TestBuiltinType(t *testing.T) {
	assert.Equal(t, TypeNone, BuiltinType(""))
	assert.Equal(t, TypeCube, BuiltinType("Cube"))
	assert.Equal(t, TypeCube, BuiltinType("assets/BigCube.obj"))
	assert.Equal(t, TypePyramid, BuiltinType("Pyramid"))
	assert.Equal(t, TypeSurface, BuiltinType("Surface"))
	assert.Equal(t, TypeExternal, BuiltinType("assets/teapot.obj"))
}

func TestProxyValidate(t *testing.T) {
	assert.Error(t, (&Proxy{}).Validate())
	assert.Error(t, (&Proxy{Vertices: make([]float32, Stride+1)}).Validate())
	assert.Error(t, (&Proxy{Vertices: make([]float32, Stride*3), Indices: []uint32{0, 1}}).Validate())
	assert.Error(t, (&Proxy{Vertices: make([]float32, Stride*3), Indices: []uint32{0, 1, 3}}).Validate())
	assert.NoError(t, triangle(1).Validate())
}

func TestRegistryResolvesBuiltinsWithoutLoader(t *testing.T) {
	r := NewRegistry()
	defer r.Close()

	assert.Equal(t, 3, r.Len())
	for i, name := range []string{"Cube", "Pyramid", "Surface"} {
		typ, idx, err := r.Resolve(name)
		require.NoError(t, err)
		assert.Equal(t, i, idx)
		assert.Equal(t, BuiltinType(name), typ)
		p, ok := r.Retrieve(idx)
		require.True(t, ok)
		assert.NotZero(t, p.VertexCount())
	}

	_, _, err := r.Resolve("assets/teapot.obj")
	assert.ErrorIs(t, err, ErrNoLoader)
	_, _, err = r.Resolve("")
	assert.Error(t, err)

	_, ok := r.Retrieve(99)
	assert.False(t, ok)
}

func TestRegistryResolveDeduplicatesAndLoadsOnce(t *testing.T) {
	var calls atomic.Int32
	r := NewRegistry(WithLoader(LoaderFunc(func(path string) (*Proxy, error) {
		calls.Add(1)
		return triangle(1), nil
	})))
	defer r.Close()

	_, a, err := r.Resolve("a.obj")
	require.NoError(t, err)
	_, again, err := r.Resolve("a.obj")
	require.NoError(t, err)
	_, b, err := r.Resolve("b.obj")
	require.NoError(t, err)

	assert.Equal(t, 3, a, "external meshes follow the builtins")
	assert.Equal(t, a, again)
	assert.Equal(t, 4, b)
	assert.Equal(t, int32(2), calls.Load())
}

func TestRegistryRegisterRejectsMalformedGeometry(t *testing.T) {
	r := NewRegistry()
	_, err := r.Register("bad", &Proxy{Vertices: make([]float32, 7)})
	assert.Error(t, err)
	_, err = r.Register("nil", nil)
	assert.Error(t, err)

	idx, err := r.Register("tri", triangle(1))
	require.NoError(t, err)
	same, err := r.Register("tri", triangle(2))
	require.NoError(t, err)
	assert.Equal(t, idx, same, "registering a known path keeps the first geometry")
}

func TestRegistryPreloadAssignsIndicesInArgumentOrder(t *testing.T) {
	// Later paths finish first; indices must still follow argument order.
	delays := map[string]time.Duration{
		"slow.obj":   30 * time.Millisecond,
		"medium.obj": 15 * time.Millisecond,
		"fast.obj":   0,
	}
	r := NewRegistry(
		WithPreloadWorkers(3),
		WithLoader(LoaderFunc(func(path string) (*Proxy, error) {
			time.Sleep(delays[path])
			return triangle(1), nil
		})),
	)
	defer r.Close()

	require.NoError(t, r.Preload([]string{"slow.obj", "medium.obj", "Cube", "slow.obj", "fast.obj"}))
	assert.Equal(t, 6, r.Len(), "duplicates and builtins are skipped")

	for i, path := range []string{"slow.obj", "medium.obj", "fast.obj"} {
		_, idx, err := r.Resolve(path)
		require.NoError(t, err)
		assert.Equal(t, 3+i, idx)
	}
}

func TestRegistryPreloadJoinsErrors(t *testing.T) {
	errBroken := errors.New("broken file")
	r := NewRegistry(WithLoader(LoaderFunc(func(path string) (*Proxy, error) {
		if path == "ok.obj" {
			return triangle(1), nil
		}
		return nil, fmt.Errorf("%s: %w", path, errBroken)
	})))
	defer r.Close()

	err := r.Preload([]string{"x.obj", "ok.obj", "y.obj"})
	require.Error(t, err)
	assert.ErrorIs(t, err, errBroken)
	assert.Contains(t, err.Error(), "x.obj")
	assert.Contains(t, err.Error(), "y.obj")

	_, idx, err := r.Resolve("ok.obj")
	require.NoError(t, err)
	assert.Equal(t, 3, idx)
}

func TestWithMeshPrepopulates(t *testing.T) {
	r := NewRegistry(WithMesh("tri", triangle(1)), WithMesh("bad", &Proxy{}))
	assert.Equal(t, 4, r.Len())
	typ, idx, err := r.Resolve("tri")
	require.NoError(t, err)
	assert.Equal(t, TypeExternal, typ)
	assert.Equal(t, 3, idx)
}
