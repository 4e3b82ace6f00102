package material

import "github.com/Carmen-Shannon/oxy-batch/common"

// Type selects how a renderable's surface is shaded.
type Type uint8

const (
	TypeNone Type = iota
	// TypeColor shades with a flat per-object RGBA color.
	TypeColor
	// TypeTex2D samples a 2D texture from the material registry.
	TypeTex2D
)

func (t Type) String() string {
	switch t {
	case TypeColor:
		return "Color"
	case TypeTex2D:
		return "Tex2D"
	default:
		return "None"
	}
}

// Texture is a decoded 2D texture owned by the Registry.
type Texture struct {
	Path string
	common.TextureStagingData
}

// TextureLoader produces pixel data for a texture path.
// Implementations must be safe for concurrent use; Preload calls Load from worker goroutines.
type TextureLoader interface {
	Load(path string) (common.TextureStagingData, error)
}

// TextureLoaderFunc adapts a function to the TextureLoader interface.
type TextureLoaderFunc func(path string) (common.TextureStagingData, error)

// Load calls f(path).
func (f TextureLoaderFunc) Load(path string) (common.TextureStagingData, error) {
	return f(path)
}

// FileLoader decodes textures from disk (PNG, JPEG, BMP, WebP).
var FileLoader TextureLoader = TextureLoaderFunc(common.DecodeImageFile)
