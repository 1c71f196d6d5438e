package camera

import (
	"github.com/Carmen-Shannon/oxy-frame/common"
	"github.com/go-gl/mathgl/mgl32"
)

// GPUCameraUniformSource is the WGSL declaration matching GPUCameraUniform. Shaders that read the
// camera system group paste it and bind it as @group(0) @binding(0).
const GPUCameraUniformSource = `struct CameraUniform {
    view_proj: mat4x4<f32>,
    position: vec3<f32>,
    _pad: f32,
};
`

// GPUCameraUniformSize is the byte size of the packed camera uniform.
const GPUCameraUniformSize = 80

// GPUCameraUniform is the GPU-aligned representation of the camera uniform buffer.
type GPUCameraUniform struct {
	ViewProj       mgl32.Mat4 // offset  0
	CameraPosition mgl32.Vec3 // offset 64, padded to 80
}

// Marshal serializes the uniform into little-endian bytes ready for upload.
//
// Returns:
//   - []byte: GPUCameraUniformSize bytes
func (g GPUCameraUniform) Marshal() []byte {
	floats := make([]float32, 0, GPUCameraUniformSize/4)
	floats = append(floats, g.ViewProj[:]...)
	floats = append(floats, g.CameraPosition[:]...)
	floats = append(floats, 0)
	return common.Float32sToBytes(floats)
}
