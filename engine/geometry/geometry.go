// Package geometry owns the vertex and index buffers of a drawable together with its bounding sphere.
package geometry

import (
	"fmt"
	"slices"
	"sync"

	"github.com/Carmen-Shannon/oxy-frame/common"
	"github.com/Carmen-Shannon/oxy-frame/engine/frame_state"
	"github.com/Carmen-Shannon/oxy-frame/engine/renderer/buffer"
	"github.com/cogentcore/webgpu/wgpu"
	"github.com/go-gl/mathgl/mgl32"
)

type geometryImpl struct {
	mu *sync.Mutex

	label         string
	vertexBuffers []buffer.Buffer
	vertexLayouts []wgpu.VertexBufferLayout
	vertexCount   uint32

	indexBuffer buffer.Buffer
	indexFormat wgpu.IndexFormat
	indexCount  uint32

	topology       wgpu.PrimitiveTopology
	boundingSphere *BoundingSphere

	listeners []*listener
	destroyed bool
}

// Geometry owns one or more vertex buffers, an optional index buffer and a bounding sphere.
// It is exclusively owned by one drawable and destroyed with it.
type Geometry interface {
	// Label returns the debug label.
	Label() string

	// VertexBuffers returns the vertex buffers in slot order.
	VertexBuffers() []buffer.Buffer

	// VertexLayouts returns one layout per vertex buffer, in slot order.
	VertexLayouts() []wgpu.VertexBufferLayout

	// IndexBuffer returns the index buffer, or nil for non-indexed geometry.
	IndexBuffer() buffer.Buffer

	// IndexFormat returns the format of the index buffer.
	IndexFormat() wgpu.IndexFormat

	// Topology returns the primitive topology.
	Topology() wgpu.PrimitiveTopology

	// Count returns the index count for indexed geometry and the vertex count otherwise.
	Count() uint32

	// BoundingSphere returns the bounding sphere. Its world-space image is updated by the owning drawable.
	BoundingSphere() *BoundingSphere

	// SetVertexBuffers replaces the vertex buffers and their layouts. Replaced buffers that are
	// not reused are destroyed. Listeners registered with OnInvalidate are notified.
	//
	// Parameters:
	//   - layouts: one layout per buffer
	//   - vertexCount: the number of vertices
	//   - buffers: the vertex buffers, in slot order
	//
	// Returns:
	//   - error: common.ErrDestroyed after Destroy, common.ErrUsage if layouts and buffers differ in length
	SetVertexBuffers(layouts []wgpu.VertexBufferLayout, vertexCount uint32, buffers ...buffer.Buffer) error

	// SetIndexBuffer replaces the index buffer. A nil buffer makes the geometry non-indexed.
	// Listeners registered with OnInvalidate are notified.
	//
	// Parameters:
	//   - buf: the index buffer, or nil
	//   - format: the index format
	//   - count: the number of indices
	//
	// Returns:
	//   - error: common.ErrDestroyed after Destroy
	SetIndexBuffer(buf buffer.Buffer, format wgpu.IndexFormat, count uint32) error

	// SetBoundingSphere replaces the local bounding sphere.
	SetBoundingSphere(s *BoundingSphere)

	// OnInvalidate registers fn to be called whenever a change affects the draw command shape.
	//
	// Returns:
	//   - func(): removes the listener; safe to call more than once
	OnInvalidate(fn func()) func()

	// Update is called once per frame by the owning drawable before its bounding sphere is updated.
	//
	// Returns:
	//   - error: common.ErrDestroyed after Destroy
	Update(fs frame_state.FrameState) error

	// Destroy destroys every owned buffer. Later access returns common.ErrDestroyed.
	Destroy()

	// Destroyed reports whether Destroy has been called.
	Destroyed() bool
}

var _ Geometry = &geometryImpl{}

// NewGeometry creates an empty triangle-list geometry.
//
// Parameters:
//   - label: the debug label
//   - options: functional options for buffers, topology and bounds
//
// Returns:
//   - Geometry: the new geometry
func NewGeometry(label string, options ...GeometryBuilderOption) Geometry {
	g := &geometryImpl{
		mu:             &sync.Mutex{},
		label:          label,
		topology:       wgpu.PrimitiveTopologyTriangleList,
		indexFormat:    wgpu.IndexFormatUint16,
		boundingSphere: NewBoundingSphere(mgl32.Vec3{}, 0),
	}
	for _, option := range options {
		option(g)
	}
	return g
}

func (g *geometryImpl) Label() string {
	return g.label
}

func (g *geometryImpl) VertexBuffers() []buffer.Buffer {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.vertexBuffers
}

func (g *geometryImpl) VertexLayouts() []wgpu.VertexBufferLayout {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.vertexLayouts
}

func (g *geometryImpl) IndexBuffer() buffer.Buffer {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.indexBuffer
}

func (g *geometryImpl) IndexFormat() wgpu.IndexFormat {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.indexFormat
}

func (g *geometryImpl) Topology() wgpu.PrimitiveTopology {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.topology
}

func (g *geometryImpl) Count() uint32 {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.indexBuffer != nil {
		return g.indexCount
	}
	return g.vertexCount
}

func (g *geometryImpl) BoundingSphere() *BoundingSphere {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.boundingSphere
}

func (g *geometryImpl) SetVertexBuffers(layouts []wgpu.VertexBufferLayout, vertexCount uint32, buffers ...buffer.Buffer) error {
	g.mu.Lock()
	if g.destroyed {
		g.mu.Unlock()
		return fmt.Errorf("%w: geometry %q", common.ErrDestroyed, g.label)
	}
	if len(layouts) != len(buffers) {
		g.mu.Unlock()
		return fmt.Errorf("%w: geometry %q got %d vertex layouts for %d buffers",
			common.ErrUsage, g.label, len(layouts), len(buffers))
	}
	for _, old := range g.vertexBuffers {
		if !slices.Contains(buffers, old) {
			old.Destroy()
		}
	}
	g.vertexBuffers = buffers
	g.vertexLayouts = layouts
	g.vertexCount = vertexCount
	listeners := slices.Clone(g.listeners)
	g.mu.Unlock()

	notify(listeners)
	return nil
}

func (g *geometryImpl) SetIndexBuffer(buf buffer.Buffer, format wgpu.IndexFormat, count uint32) error {
	g.mu.Lock()
	if g.destroyed {
		g.mu.Unlock()
		return fmt.Errorf("%w: geometry %q", common.ErrDestroyed, g.label)
	}
	if g.indexBuffer != nil && g.indexBuffer != buf {
		g.indexBuffer.Destroy()
	}
	g.indexBuffer = buf
	g.indexFormat = format
	g.indexCount = count
	listeners := slices.Clone(g.listeners)
	g.mu.Unlock()

	notify(listeners)
	return nil
}

func (g *geometryImpl) SetBoundingSphere(s *BoundingSphere) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.boundingSphere = s
}

func (g *geometryImpl) OnInvalidate(fn func()) func() {
	l := &listener{fn: fn}
	g.mu.Lock()
	defer g.mu.Unlock()
	g.listeners = append(g.listeners, l)
	return func() {
		g.mu.Lock()
		defer g.mu.Unlock()
		g.listeners = slices.DeleteFunc(g.listeners, func(other *listener) bool { return other == l })
	}
}

func (g *geometryImpl) Update(fs frame_state.FrameState) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.destroyed {
		return fmt.Errorf("%w: geometry %q", common.ErrDestroyed, g.label)
	}
	return nil
}

func (g *geometryImpl) Destroy() {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.destroyed {
		return
	}
	g.destroyed = true
	for _, b := range g.vertexBuffers {
		b.Destroy()
	}
	if g.indexBuffer != nil {
		g.indexBuffer.Destroy()
	}
	g.vertexBuffers = nil
	g.indexBuffer = nil
	g.listeners = nil
}

func (g *geometryImpl) Destroyed() bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.destroyed
}

type listener struct {
	fn func()
}

func notify(listeners []*listener) {
	for _, l := range listeners {
		l.fn()
	}
}
