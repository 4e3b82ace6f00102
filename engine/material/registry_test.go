package material

import (
	"bytes"
	"errors"
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"

	"github.com/Carmen-Shannon/oxy-batch/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func solid(w, h uint32) common.TextureStagingData {
	return common.TextureStagingData{Pixels: make([]byte, w*h*4), Width: w, Height: h}
}

func TestResolveTextureDeduplicates(t *testing.T) {
	var calls atomic.Int32
	r := NewRegistry(WithTextureLoader(TextureLoaderFunc(func(path string) (common.TextureStagingData, error) {
		calls.Add(1)
		return solid(2, 2), nil
	})))
	defer r.Close()

	a, err := r.ResolveTexture("wood.png")
	require.NoError(t, err)
	again, err := r.ResolveTexture("wood.png")
	require.NoError(t, err)
	b, err := r.ResolveTexture("stone.png")
	require.NoError(t, err)

	assert.Equal(t, 0, a)
	assert.Equal(t, a, again)
	assert.Equal(t, 1, b)
	assert.Equal(t, 2, r.Len())
	assert.Equal(t, int32(2), calls.Load())

	tex, ok := r.Texture(b)
	require.True(t, ok)
	assert.Equal(t, "stone.png", tex.Path)
	assert.Equal(t, uint32(2), tex.Width)

	_, ok = r.Texture(5)
	assert.False(t, ok)
}

func TestResolveTextureErrors(t *testing.T) {
	errMissing := errors.New("missing")
	r := NewRegistry(WithTextureLoader(TextureLoaderFunc(func(path string) (common.TextureStagingData, error) {
		switch path {
		case "empty.png":
			return common.TextureStagingData{}, nil
		case "ok.png":
			return solid(1, 1), nil
		}
		return common.TextureStagingData{}, errMissing
	})))
	defer r.Close()

	_, err := r.ResolveTexture("")
	assert.Error(t, err)
	_, err = r.ResolveTexture("gone.png")
	assert.ErrorIs(t, err, errMissing)
	_, err = r.ResolveTexture("empty.png")
	assert.ErrorContains(t, err, "empty image")
	assert.Zero(t, r.Len(), "failed loads are not registered")

	idx, err := r.ResolveTexture("ok.png")
	require.NoError(t, err)
	assert.Equal(t, 0, idx)
}

func TestPreloadKeepsArgumentOrder(t *testing.T) {
	r := NewRegistry(
		WithPreloadWorkers(4),
		WithTextureLoader(TextureLoaderFunc(func(path string) (common.TextureStagingData, error) {
			if path == "bad.png" {
				return common.TextureStagingData{}, errors.New("corrupt")
			}
			return solid(1, 1), nil
		})),
	)
	defer r.Close()

	paths := []string{"a.png", "b.png", "bad.png", "", "a.png", "c.png"}
	err := r.Preload(paths)
	require.Error(t, err)
	assert.ErrorContains(t, err, "bad.png")

	assert.Equal(t, 3, r.Len())
	for i, p := range []string{"a.png", "b.png", "c.png"} {
		tex, ok := r.Texture(i)
		require.True(t, ok)
		assert.Equal(t, p, tex.Path)
	}

	assert.NoError(t, r.Preload([]string{"a.png", "c.png"}), "already registered paths are skipped")
}

func TestFileLoaderDecodesPNG(t *testing.T) {
	img := image.NewNRGBA(image.Rect(0, 0, 3, 2))
	img.Set(0, 0, color.NRGBA{R: 255, A: 255})
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))

	path := filepath.Join(t.TempDir(), "red.png")
	require.NoError(t, os.WriteFile(path, buf.Bytes(), 0o644))

	r := NewRegistry()
	idx, err := r.ResolveTexture(path)
	require.NoError(t, err)
	tex, _ := r.Texture(idx)
	assert.Equal(t, uint32(3), tex.Width)
	assert.Equal(t, uint32(2), tex.Height)
	assert.Len(t, tex.Pixels, 3*2*4)
	assert.Equal(t, []byte{255, 0, 0, 255}, tex.Pixels[:4])

	_, err = r.ResolveTexture(filepath.Join(t.TempDir(), "nope.png"))
	assert.Error(t, err)
}

func TestTypeString(t *testing.T) {
	assert.Equal(t, "Color", TypeColor.String())
	assert.Equal(t, "Tex2D", TypeTex2D.String())
	assert.Equal(t, "None", TypeNone.String())
}
