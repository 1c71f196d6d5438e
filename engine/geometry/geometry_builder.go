package geometry

import (
	"github.com/Carmen-Shannon/oxy-frame/engine/renderer/buffer"
	"github.com/cogentcore/webgpu/wgpu"
)

// GeometryBuilderOption is a functional option applied by NewGeometry.
type GeometryBuilderOption func(*geometryImpl)

// WithVertexBuffer appends a vertex buffer in the next slot.
//
// Parameters:
//   - layout: the buffer's vertex layout
//   - buf: the vertex buffer
//   - vertexCount: the number of vertices; the last call wins
//
// Returns:
//   - GeometryBuilderOption: a function that appends the buffer
func WithVertexBuffer(layout wgpu.VertexBufferLayout, buf buffer.Buffer, vertexCount uint32) GeometryBuilderOption {
	return func(g *geometryImpl) {
		g.vertexLayouts = append(g.vertexLayouts, layout)
		g.vertexBuffers = append(g.vertexBuffers, buf)
		g.vertexCount = vertexCount
	}
}

// WithIndexBuffer sets the index buffer.
func WithIndexBuffer(buf buffer.Buffer, format wgpu.IndexFormat, count uint32) GeometryBuilderOption {
	return func(g *geometryImpl) {
		g.indexBuffer = buf
		g.indexFormat = format
		g.indexCount = count
	}
}

// WithTopology sets the primitive topology. The default is a triangle list.
func WithTopology(topology wgpu.PrimitiveTopology) GeometryBuilderOption {
	return func(g *geometryImpl) {
		g.topology = topology
	}
}

// WithBoundingSphere sets the local bounding sphere.
func WithBoundingSphere(s *BoundingSphere) GeometryBuilderOption {
	return func(g *geometryImpl) {
		g.boundingSphere = s
	}
}
