// package common contains plain helper types and functions shared across the engine packages.
package common

import (
	"bytes"
	"fmt"
	"image"
	"image/draw"
	_ "image/jpeg"
	_ "image/png"
	"io"
	"os"

	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/webp"
)

// TextureStagingData holds RGBA pixel data for a texture pending GPU upload.
type TextureStagingData struct {
	// Pixels is the RGBA pixel data, 4 bytes per pixel, row-major.
	Pixels []byte
	// Width is the width of the texture in pixels.
	Width uint32
	// Height is the height of the texture in pixels.
	Height uint32
}

// DecodeImage decodes an encoded image stream into RGBA staging data.
// Supports PNG, JPEG, BMP and WebP.
//
// Parameters:
//   - r: the reader providing encoded image bytes
//
// Returns:
//   - TextureStagingData: the decoded pixels and dimensions
//   - error: error if decoding fails
func DecodeImage(r io.Reader) (TextureStagingData, error) {
	img, _, err := image.Decode(r)
	if err != nil {
		return TextureStagingData{}, fmt.Errorf("failed to decode image: %w", err)
	}

	bounds := img.Bounds()
	rgba, ok := img.(*image.RGBA)
	if !ok || rgba.Stride != bounds.Dx()*4 {
		rgba = image.NewRGBA(bounds)
		draw.Draw(rgba, bounds, img, bounds.Min, draw.Src)
	}

	return TextureStagingData{
		Pixels: rgba.Pix,
		Width:  uint32(bounds.Dx()),
		Height: uint32(bounds.Dy()),
	}, nil
}

// DecodeImageBytes decodes an in-memory encoded image into RGBA staging data.
//
// Parameters:
//   - data: the encoded image bytes
//
// Returns:
//   - TextureStagingData: the decoded pixels and dimensions
//   - error: error if decoding fails
func DecodeImageBytes(data []byte) (TextureStagingData, error) {
	return DecodeImage(bytes.NewReader(data))
}

// DecodeImageFile opens and decodes an image file from disk.
//
// Parameters:
//   - path: the image file path
//
// Returns:
//   - TextureStagingData: the decoded pixels and dimensions
//   - error: error if the file cannot be opened or decoded
func DecodeImageFile(path string) (TextureStagingData, error) {
	file, err := os.Open(path)
	if err != nil {
		return TextureStagingData{}, fmt.Errorf("failed to open texture file %s: %w", path, err)
	}
	defer file.Close()

	data, err := DecodeImage(file)
	if err != nil {
		return TextureStagingData{}, fmt.Errorf("texture %s: %w", path, err)
	}
	return data, nil
}
