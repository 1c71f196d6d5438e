package common

import (
	"encoding/binary"
	"math"

	"github.com/go-gl/mathgl/mgl32"
)

// Perspective builds a right-handed perspective projection matrix with WebGPU's [0, 1] clip-space depth.
// mgl32.Perspective targets OpenGL's [-1, 1] range and must not be used for WebGPU pipelines.
//
// Parameters:
//   - fovY: vertical field of view in radians
//   - aspect: viewport aspect ratio (width/height)
//   - near: near clipping plane distance (must be > 0)
//   - far: far clipping plane distance (must be > near)
//
// Returns:
//   - mgl32.Mat4: the column-major projection matrix
func Perspective(fovY, aspect, near, far float32) mgl32.Mat4 {
	f := 1.0 / float32(math.Tan(float64(fovY)/2.0))

	var out mgl32.Mat4
	out[0] = f / aspect
	out[5] = f
	out[10] = far / (near - far)
	out[11] = -1.0
	out[14] = (near * far) / (near - far)
	return out
}

// Float32sToBytes encodes float32 values as little-endian bytes for GPU upload.
//
// Parameters:
//   - values: the values to encode
//
// Returns:
//   - []byte: a newly allocated buffer of len(values)*4 bytes
func Float32sToBytes(values []float32) []byte {
	buf := make([]byte, len(values)*4)
	for i, v := range values {
		binary.LittleEndian.PutUint32(buf[i*4:], math.Float32bits(v))
	}
	return buf
}

// Uint32sToBytes encodes uint32 values as little-endian bytes for GPU upload.
//
// Parameters:
//   - values: the values to encode
//
// Returns:
//   - []byte: a newly allocated buffer of len(values)*4 bytes
func Uint32sToBytes(values []uint32) []byte {
	buf := make([]byte, len(values)*4)
	for i, v := range values {
		binary.LittleEndian.PutUint32(buf[i*4:], v)
	}
	return buf
}

// Uint16sToBytes encodes uint16 values as little-endian bytes, padded to a multiple of 4 bytes
// as required by WebGPU buffer writes.
//
// Parameters:
//   - values: the values to encode
//
// Returns:
//   - []byte: the encoded buffer
func Uint16sToBytes(values []uint16) []byte {
	size := len(values) * 2
	buf := make([]byte, (size+3)&^3)
	for i, v := range values {
		binary.LittleEndian.PutUint16(buf[i*2:], v)
	}
	return buf
}
