package common

import (
	"unsafe"

	"github.com/chewxy/math32"
)

// Mat4 is a 4x4 matrix stored in column-major order (WebGPU convention).
type Mat4 = [16]float32

// IdentityMat4 returns a fresh identity matrix.
//
// Returns:
//   - Mat4: the identity matrix
func IdentityMat4() Mat4 {
	var m Mat4
	Identity(m[:])
	return m
}

// Identity resets a 4x4 matrix (flat slice) to the identity matrix.
//
// Parameters:
//   - m: destination slice (must be at least 16 elements)
func Identity(m []float32) {
	for i := range m {
		m[i] = 0
	}
	m[0], m[5], m[10], m[15] = 1, 1, 1, 1
}

// SliceToBytes converts any slice to a byte slice for GPU buffer uploads.
// The returned slice shares memory with the input and must not be retained past the upload.
//
// Parameters:
//   - data: source slice of any type
//
// Returns:
//   - []byte: byte slice view of the input data, or nil if input is empty
func SliceToBytes[T any](data []T) []byte {
	if len(data) == 0 {
		return nil
	}
	var zero T
	return unsafe.Slice((*byte)(unsafe.Pointer(&data[0])), int(unsafe.Sizeof(zero))*len(data))
}

// Mul4 multiplies two 4x4 matrices and stores the result in out (out = a * b).
// out may alias a or b.
//
// Parameters:
//   - out: destination slice (must be at least 16 elements)
//   - a: left-hand matrix (16 elements)
//   - b: right-hand matrix (16 elements)
func Mul4(out, a, b []float32) {
	var buf Mat4
	for col := 0; col < 4; col++ {
		for row := 0; row < 4; row++ {
			var sum float32
			for k := 0; k < 4; k++ {
				sum += a[k*4+row] * b[col*4+k]
			}
			buf[col*4+row] = sum
		}
	}
	copy(out, buf[:])
}

// Perspective writes a right-handed perspective projection with WebGPU clip depth [0, 1].
//
// Parameters:
//   - out: destination slice (must be at least 16 elements)
//   - fovY: vertical field of view in radians
//   - aspect: viewport aspect ratio (width/height)
//   - near: near clipping plane distance (must be > 0)
//   - far: far clipping plane distance (must be > near)
func Perspective(out []float32, fovY, aspect, near, far float32) {
	f := 1 / math32.Tan(fovY/2)
	Identity(out)

	out[0] = f / aspect
	out[5] = f
	out[10] = far / (near - far)
	out[11] = -1
	out[14] = (near * far) / (near - far)
	out[15] = 0
}

// Orthographic writes a right-handed orthographic projection with WebGPU clip depth [0, 1].
//
// Parameters:
//   - out: destination slice (must be at least 16 elements)
//   - left, right, bottom, top: view volume extents
//   - near, far: clipping plane distances
func Orthographic(out []float32, left, right, bottom, top, near, far float32) {
	Identity(out)

	out[0] = 2 / (right - left)
	out[5] = 2 / (top - bottom)
	out[10] = 1 / (near - far)
	out[12] = -(right + left) / (right - left)
	out[13] = -(top + bottom) / (top - bottom)
	out[14] = near / (near - far)
}

// BuildModelMatrix constructs a model matrix from position, Euler rotation, and scale.
// The rotation order is Y * X * Z (yaw-pitch-roll).
//
// Parameters:
//   - out: destination slice (must be at least 16 elements)
//   - pos: translation in world space
//   - rot: rotation angles in radians around each axis
//   - scale: scale factors along each axis
func BuildModelMatrix(out []float32, pos, rot, scale [3]float32) {
	sx, cx := math32.Sincos(rot[0])
	sy, cy := math32.Sincos(rot[1])
	sz, cz := math32.Sincos(rot[2])

	out[0] = (cy*cz + sy*sx*sz) * scale[0]
	out[1] = (cx * sz) * scale[0]
	out[2] = (-sy*cz + cy*sx*sz) * scale[0]
	out[3] = 0

	out[4] = (-cy*sz + sy*sx*cz) * scale[1]
	out[5] = (cx * cz) * scale[1]
	out[6] = (sy*sz + cy*sx*cz) * scale[1]
	out[7] = 0

	out[8] = (sy * cx) * scale[2]
	out[9] = -sx * scale[2]
	out[10] = (cy * cx) * scale[2]
	out[11] = 0

	out[12] = pos[0]
	out[13] = pos[1]
	out[14] = pos[2]
	out[15] = 1
}

// Forward returns the unit view direction for a yaw/pitch Euler rotation.
// A zero rotation looks down -Z.
//
// Parameters:
//   - rot: rotation angles in radians (pitch, yaw, roll)
//
// Returns:
//   - [3]float32: normalized forward vector
func Forward(rot [3]float32) [3]float32 {
	sp, cp := math32.Sincos(rot[0])
	sy, cy := math32.Sincos(rot[1])
	return [3]float32{-sy * cp, sp, -cy * cp}
}

// normalize3 scales v to unit length; a zero vector is returned unchanged.
func normalize3(v [3]float32) [3]float32 {
	l := math32.Sqrt(v[0]*v[0] + v[1]*v[1] + v[2]*v[2])
	if l == 0 {
		return v
	}
	return [3]float32{v[0] / l, v[1] / l, v[2] / l}
}

func cross3(a, b [3]float32) [3]float32 {
	return [3]float32{
		a[1]*b[2] - a[2]*b[1],
		a[2]*b[0] - a[0]*b[2],
		a[0]*b[1] - a[1]*b[0],
	}
}

func dot3(a, b [3]float32) float32 {
	return a[0]*b[0] + a[1]*b[1] + a[2]*b[2]
}

// LookAt writes a view matrix for an eye looking at center with the given up vector.
//
// Parameters:
//   - out: destination slice (must be at least 16 elements)
//   - eye: camera position in world space
//   - center: target point the camera looks at
//   - up: up vector (typically 0,1,0)
func LookAt(out []float32, eye, center, up [3]float32) {
	z := normalize3([3]float32{eye[0] - center[0], eye[1] - center[1], eye[2] - center[2]})
	x := normalize3(cross3(up, z))
	y := cross3(z, x)

	out[0], out[4], out[8], out[12] = x[0], x[1], x[2], -dot3(x, eye)
	out[1], out[5], out[9], out[13] = y[0], y[1], y[2], -dot3(y, eye)
	out[2], out[6], out[10], out[14] = z[0], z[1], z[2], -dot3(z, eye)
	out[3], out[7], out[11], out[15] = 0, 0, 0, 1
}
