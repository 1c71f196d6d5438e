package render_state

import "github.com/cogentcore/webgpu/wgpu"

// RenderDefaults holds the engine-wide values a material falls back to for every render-state
// field it does not set. It is injected into materials rather than read from globals.
type RenderDefaults struct {
	DepthStencil     wgpu.DepthStencilState
	Primitive        wgpu.PrimitiveState
	Multisample      wgpu.MultisampleState
	StencilReference uint32
	BlendConstant    wgpu.Color
	// Target is used when the frame's pass declares no color targets.
	Target wgpu.ColorTargetState
}

// DefaultRenderDefaults returns the built-in defaults: Depth24Plus with less-than testing and
// depth writes, counter-clockwise triangle lists without culling, single-sampled, a zero stencil
// reference, an opaque black blend constant and a BGRA8 target without blending.
func DefaultRenderDefaults() RenderDefaults {
	return RenderDefaults{
		DepthStencil: wgpu.DepthStencilState{
			Format:            wgpu.TextureFormatDepth24Plus,
			DepthWriteEnabled: true,
			DepthCompare:      wgpu.CompareFunctionLess,
			StencilFront: wgpu.StencilFaceState{
				Compare: wgpu.CompareFunctionAlways,
			},
			StencilBack: wgpu.StencilFaceState{
				Compare: wgpu.CompareFunctionAlways,
			},
			StencilReadMask:  0xFFFFFFFF,
			StencilWriteMask: 0xFFFFFFFF,
		},
		Primitive: wgpu.PrimitiveState{
			Topology:  wgpu.PrimitiveTopologyTriangleList,
			FrontFace: wgpu.FrontFaceCCW,
			CullMode:  wgpu.CullModeNone,
		},
		Multisample: wgpu.MultisampleState{
			Count: 1,
			Mask:  0xFFFFFFFF,
		},
		StencilReference: 0,
		BlendConstant:    wgpu.Color{R: 0, G: 0, B: 0, A: 1},
		Target: wgpu.ColorTargetState{
			Format:    wgpu.TextureFormatBGRA8Unorm,
			WriteMask: wgpu.ColorWriteMaskAll,
		},
	}
}
