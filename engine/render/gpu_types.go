package render

import (
	"encoding/binary"
	"math"

	"github.com/Carmen-Shannon/oxy-batch/common"
	"github.com/Carmen-Shannon/oxy-batch/engine/batch"
)

// Byte sizes of the per-object shader records.
const (
	TransformStride     = 64
	ColorStride         = 16
	MaterialIndexStride = 4
)

// GPUCameraUniform is the GPU-aligned camera uniform.
// Size: 80 bytes (std430 / WGSL aligned).
type GPUCameraUniform struct {
	ViewProj       [16]float32 // offset  0: combined view-projection matrix (mat4x4<f32>)
	CameraPosition [3]float32  // offset 64: world-space camera position (vec3<f32>)
	_pad           float32     // offset 76
}

// GPUCameraUniformSize is the marshaled size of GPUCameraUniform.
const GPUCameraUniformSize = 80

// Marshal serializes the camera uniform for GPU upload.
//
// Returns:
//   - []byte: 80-byte buffer
func (g *GPUCameraUniform) Marshal() []byte {
	buf := make([]byte, GPUCameraUniformSize)
	putFloats(buf[0:], g.ViewProj[:])
	putFloats(buf[64:], g.CameraPosition[:])
	return buf
}

// GPUPointLight is the GPU-aligned record of one point light.
// Size: 80 bytes (std430 / WGSL aligned).
type GPUPointLight struct {
	Position  [4]float32 // offset  0: world-space position, w = 1
	Ambient   [3]float32 // offset 16
	Constant  float32    // offset 28: attenuation constant term
	Diffuse   [3]float32 // offset 32
	Linear    float32    // offset 44: attenuation linear term
	Specular  [3]float32 // offset 48
	Quadratic float32    // offset 60: attenuation quadratic term
	Intensity float32    // offset 64
	_pad      [3]float32 // offset 68
}

// GPUPointLightSize is the marshaled size of GPUPointLight.
const GPUPointLightSize = 80

// NewGPUPointLight converts a light batch record into its GPU layout.
func NewGPUPointLight(r batch.LightRecord) GPUPointLight {
	return GPUPointLight{
		Position:  r.Position,
		Ambient:   r.Ambient,
		Constant:  r.Constant,
		Diffuse:   r.Diffuse,
		Linear:    r.Linear,
		Specular:  r.Specular,
		Quadratic: r.Quadratic,
		Intensity: r.Intensity,
	}
}

// Marshal serializes the light for GPU upload.
//
// Returns:
//   - []byte: 80-byte buffer
func (g *GPUPointLight) Marshal() []byte {
	buf := make([]byte, GPUPointLightSize)
	g.marshalInto(buf)
	return buf
}

func (g *GPUPointLight) marshalInto(buf []byte) {
	putFloats(buf[0:], g.Position[:])
	putFloats(buf[16:], g.Ambient[:])
	binary.LittleEndian.PutUint32(buf[28:], math.Float32bits(g.Constant))
	putFloats(buf[32:], g.Diffuse[:])
	binary.LittleEndian.PutUint32(buf[44:], math.Float32bits(g.Linear))
	putFloats(buf[48:], g.Specular[:])
	binary.LittleEndian.PutUint32(buf[60:], math.Float32bits(g.Quadratic))
	binary.LittleEndian.PutUint32(buf[64:], math.Float32bits(g.Intensity))
	clear(buf[68:80])
}

// GPULightHeader precedes the light array in the light storage buffer.
// Size: 16 bytes.
type GPULightHeader struct {
	LightCount uint32
	_pad       [3]uint32
}

// GPULightHeaderSize is the marshaled size of GPULightHeader.
const GPULightHeaderSize = 16

// MarshalLights serializes a header followed by capacity light slots; unused slots are zeroed.
//
// Parameters:
//   - lights: the packed light records
//   - capacity: the number of slots the shader array declares
//
// Returns:
//   - []byte: header plus capacity * GPUPointLightSize bytes
func MarshalLights(lights []batch.LightRecord, capacity int) []byte {
	capacity = max(capacity, len(lights))
	buf := make([]byte, GPULightHeaderSize+capacity*GPUPointLightSize)
	binary.LittleEndian.PutUint32(buf[0:], uint32(len(lights)))
	for i, r := range lights {
		g := NewGPUPointLight(r)
		g.marshalInto(buf[LightOffset(i):])
	}
	return buf
}

// LightOffset returns the byte offset of a light slot in the light buffer.
func LightOffset(slot int) uint64 {
	return uint64(GPULightHeaderSize + slot*GPUPointLightSize)
}

// MarshalTransforms serializes column-major model matrices.
func MarshalTransforms(transforms []common.Mat4) []byte {
	buf := make([]byte, len(transforms)*TransformStride)
	for i := range transforms {
		putFloats(buf[i*TransformStride:], transforms[i][:])
	}
	return buf
}

// MarshalColors serializes RGBA colors.
func MarshalColors(colors [][4]float32) []byte {
	buf := make([]byte, len(colors)*ColorStride)
	for i := range colors {
		putFloats(buf[i*ColorStride:], colors[i][:])
	}
	return buf
}

// MarshalMaterialIndices serializes per-object material references as i32.
func MarshalMaterialIndices(indices []int32) []byte {
	buf := make([]byte, len(indices)*MaterialIndexStride)
	for i, v := range indices {
		binary.LittleEndian.PutUint32(buf[i*MaterialIndexStride:], uint32(v))
	}
	return buf
}

func putFloats(dst []byte, src []float32) {
	for i, f := range src {
		binary.LittleEndian.PutUint32(dst[i*4:], math.Float32bits(f))
	}
}
