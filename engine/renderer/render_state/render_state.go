// Package render_state describes the fixed-function state a draw is recorded with: the partial
// overrides a material carries, the engine defaults they fall back to, and the composed result.
package render_state

import (
	"fmt"
	"strings"

	"github.com/cogentcore/webgpu/wgpu"
)

// Viewport is the pass viewport in framebuffer pixels.
type Viewport struct {
	X, Y          float32
	Width, Height float32
	MinDepth      float32
	MaxDepth      float32
}

// NewViewport returns a full-depth viewport at the origin with the given size.
func NewViewport(width, height int) Viewport {
	return Viewport{Width: float32(width), Height: float32(height), MinDepth: 0, MaxDepth: 1}
}

// RenderState is a fully composed render state. DepthStencil, Primitive, Multisample and Targets
// are baked into the pipeline; Viewport, BlendConstant and StencilReference are set on the pass.
type RenderState struct {
	DepthStencil     wgpu.DepthStencilState
	Primitive        wgpu.PrimitiveState
	Multisample      wgpu.MultisampleState
	StencilReference uint32
	BlendConstant    wgpu.Color
	Targets          []wgpu.ColorTargetState
	Viewport         Viewport
}

// PipelineKey returns a string that is equal for two states exactly when they need the same pipeline.
func (s *RenderState) PipelineKey() string {
	var b strings.Builder
	ds := s.DepthStencil
	fmt.Fprintf(&b, "ds:%d,%t,%d,%d,%g,%v,%v,%d,%d;",
		ds.Format, ds.DepthWriteEnabled, ds.DepthCompare, ds.DepthBias, ds.DepthBiasSlopeScale,
		ds.StencilFront, ds.StencilBack, ds.StencilReadMask, ds.StencilWriteMask)
	p := s.Primitive
	fmt.Fprintf(&b, "p:%d,%d,%d,%d;", p.Topology, p.StripIndexFormat, p.FrontFace, p.CullMode)
	m := s.Multisample
	fmt.Fprintf(&b, "ms:%d,%d,%t;", m.Count, m.Mask, m.AlphaToCoverageEnabled)
	for _, t := range s.Targets {
		fmt.Fprintf(&b, "t:%d,%d", t.Format, t.WriteMask)
		if t.Blend != nil {
			fmt.Fprintf(&b, ",%v", *t.Blend)
		}
		b.WriteByte(';')
	}
	return b.String()
}
