package geometry

import (
	"fmt"

	"github.com/Carmen-Shannon/oxy-frame/common"
	"github.com/Carmen-Shannon/oxy-frame/engine/renderer/buffer"
	"github.com/Carmen-Shannon/oxy-frame/engine/renderer/gpu"
	"github.com/cogentcore/webgpu/wgpu"
)

// StandardVertexStride is the float count of a StandardVertexLayout vertex.
const StandardVertexStride = 8

// StandardVertexLayout interleaves position (location 0), normal (location 1) and uv (location 2).
var StandardVertexLayout = wgpu.VertexBufferLayout{
	ArrayStride: StandardVertexStride * 4,
	StepMode:    wgpu.VertexStepModeVertex,
	Attributes: []wgpu.VertexAttribute{
		{Format: wgpu.VertexFormatFloat32x3, Offset: 0, ShaderLocation: 0},
		{Format: wgpu.VertexFormatFloat32x3, Offset: 12, ShaderLocation: 1},
		{Format: wgpu.VertexFormatFloat32x2, Offset: 24, ShaderLocation: 2},
	},
}

// NewMesh uploads interleaved vertices and optional uint16 indices into a new Geometry. The
// bounding sphere is fitted to the positions, which must be the first three floats of each vertex.
//
// Parameters:
//   - device: the device to allocate buffers on
//   - label: the debug label, also used for the buffers
//   - layout: the vertex layout; its ArrayStride sets the vertex size
//   - vertices: interleaved vertex floats
//   - indices: triangle indices, or nil for a non-indexed mesh
//
// Returns:
//   - Geometry: the uploaded geometry
//   - error: an error if the layout stride is invalid or a buffer cannot be created
func NewMesh(device gpu.Device, label string, layout wgpu.VertexBufferLayout, vertices []float32, indices []uint16) (Geometry, error) {
	return newMesh(device, label, layout, vertices, common.Uint16sToBytes(indices), wgpu.IndexFormatUint16, len(indices))
}

// NewMesh32 is NewMesh for meshes with more vertices than uint16 indices can address.
func NewMesh32(device gpu.Device, label string, layout wgpu.VertexBufferLayout, vertices []float32, indices []uint32) (Geometry, error) {
	return newMesh(device, label, layout, vertices, common.Uint32sToBytes(indices), wgpu.IndexFormatUint32, len(indices))
}

func newMesh(device gpu.Device, label string, layout wgpu.VertexBufferLayout, vertices []float32, indexData []byte, format wgpu.IndexFormat, indexCount int) (Geometry, error) {
	stride := int(layout.ArrayStride / 4)
	if stride < 3 || len(vertices)%stride != 0 {
		return nil, fmt.Errorf("%w: mesh %q has %d floats for a %d-float vertex", common.ErrConfiguration, label, len(vertices), stride)
	}

	vb, err := buffer.NewVertexBuffer(device, label+"_vertices", common.Float32sToBytes(vertices))
	if err != nil {
		return nil, fmt.Errorf("failed to create vertex buffer for mesh %q: %w", label, err)
	}

	options := []GeometryBuilderOption{
		WithVertexBuffer(layout, vb, uint32(len(vertices)/stride)),
		WithBoundingSphere(BoundingSphereFromPositions(vertices, stride, 0)),
	}
	if indexCount > 0 {
		ib, err := buffer.NewIndexBuffer(device, label+"_indices", indexData)
		if err != nil {
			vb.Destroy()
			return nil, fmt.Errorf("failed to create index buffer for mesh %q: %w", label, err)
		}
		options = append(options, WithIndexBuffer(ib, format, uint32(indexCount)))
	}
	return NewGeometry(label, options...), nil
}

// NewBox creates an indexed axis-aligned box centered on the origin in StandardVertexLayout.
//
// Parameters:
//   - device: the device to allocate buffers on
//   - label: the debug label
//   - width, height, depth: the box extents
//
// Returns:
//   - Geometry: the box geometry with 24 vertices and 36 indices
//   - error: an error if a buffer cannot be created
func NewBox(device gpu.Device, label string, width, height, depth float32) (Geometry, error) {
	hx, hy, hz := width/2, height/2, depth/2

	// Each face: normal, then the u and v axes scaled to the half extents.
	faces := [6][3][3]float32{
		{{1, 0, 0}, {0, 0, -hz}, {0, hy, 0}},
		{{-1, 0, 0}, {0, 0, hz}, {0, hy, 0}},
		{{0, 1, 0}, {hx, 0, 0}, {0, 0, -hz}},
		{{0, -1, 0}, {hx, 0, 0}, {0, 0, hz}},
		{{0, 0, 1}, {hx, 0, 0}, {0, hy, 0}},
		{{0, 0, -1}, {-hx, 0, 0}, {0, hy, 0}},
	}
	half := [3]float32{hx, hy, hz}
	corners := [4][2]float32{{-1, -1}, {1, -1}, {1, 1}, {-1, 1}}

	vertices := make([]float32, 0, 24*StandardVertexStride)
	indices := make([]uint16, 0, 36)
	for f, face := range faces {
		n, u, v := face[0], face[1], face[2]
		for _, c := range corners {
			for axis := range 3 {
				vertices = append(vertices, n[axis]*half[axis]+c[0]*u[axis]+c[1]*v[axis])
			}
			vertices = append(vertices, n[0], n[1], n[2], (c[0]+1)/2, 1-(c[1]+1)/2)
		}
		base := uint16(f * 4)
		indices = append(indices, base, base+1, base+2, base, base+2, base+3)
	}
	return NewMesh(device, label, StandardVertexLayout, vertices, indices)
}
