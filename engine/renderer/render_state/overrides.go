package render_state

import "github.com/cogentcore/webgpu/wgpu"

// DepthStencilOverride is a partial depth-stencil state. Nil fields are left to the defaults.
type DepthStencilOverride struct {
	Format              *wgpu.TextureFormat
	DepthWriteEnabled   *bool
	DepthCompare        *wgpu.CompareFunction
	DepthBias           *int32
	DepthBiasSlopeScale *float32
	StencilFront        *wgpu.StencilFaceState
	StencilBack         *wgpu.StencilFaceState
	StencilReadMask     *uint32
	StencilWriteMask    *uint32
}

// DepthStencilOption sets fields of a DepthStencilOverride.
type DepthStencilOption func(*DepthStencilOverride)

func WithDepthFormat(format wgpu.TextureFormat) DepthStencilOption {
	return func(o *DepthStencilOverride) { o.Format = &format }
}

func WithDepthWrite(enabled bool) DepthStencilOption {
	return func(o *DepthStencilOverride) { o.DepthWriteEnabled = &enabled }
}

func WithDepthCompare(compare wgpu.CompareFunction) DepthStencilOption {
	return func(o *DepthStencilOverride) { o.DepthCompare = &compare }
}

func WithDepthBias(bias int32, slopeScale float32) DepthStencilOption {
	return func(o *DepthStencilOverride) {
		o.DepthBias = &bias
		o.DepthBiasSlopeScale = &slopeScale
	}
}

// WithStencilFaces sets the stencil state for front and back faces.
func WithStencilFaces(front, back wgpu.StencilFaceState) DepthStencilOption {
	return func(o *DepthStencilOverride) {
		o.StencilFront = &front
		o.StencilBack = &back
	}
}

func WithStencilMasks(read, write uint32) DepthStencilOption {
	return func(o *DepthStencilOverride) {
		o.StencilReadMask = &read
		o.StencilWriteMask = &write
	}
}

// Apply returns base with every set field of o written over it.
func (o DepthStencilOverride) Apply(base wgpu.DepthStencilState) wgpu.DepthStencilState {
	setIf(&base.Format, o.Format)
	setIf(&base.DepthWriteEnabled, o.DepthWriteEnabled)
	setIf(&base.DepthCompare, o.DepthCompare)
	setIf(&base.DepthBias, o.DepthBias)
	setIf(&base.DepthBiasSlopeScale, o.DepthBiasSlopeScale)
	setIf(&base.StencilFront, o.StencilFront)
	setIf(&base.StencilBack, o.StencilBack)
	setIf(&base.StencilReadMask, o.StencilReadMask)
	setIf(&base.StencilWriteMask, o.StencilWriteMask)
	return base
}

// PrimitiveOverride is a partial primitive state.
type PrimitiveOverride struct {
	Topology         *wgpu.PrimitiveTopology
	StripIndexFormat *wgpu.IndexFormat
	FrontFace        *wgpu.FrontFace
	CullMode         *wgpu.CullMode
}

// PrimitiveOption sets fields of a PrimitiveOverride.
type PrimitiveOption func(*PrimitiveOverride)

func WithTopology(topology wgpu.PrimitiveTopology) PrimitiveOption {
	return func(o *PrimitiveOverride) { o.Topology = &topology }
}

func WithStripIndexFormat(format wgpu.IndexFormat) PrimitiveOption {
	return func(o *PrimitiveOverride) { o.StripIndexFormat = &format }
}

func WithFrontFace(face wgpu.FrontFace) PrimitiveOption {
	return func(o *PrimitiveOverride) { o.FrontFace = &face }
}

func WithCullMode(mode wgpu.CullMode) PrimitiveOption {
	return func(o *PrimitiveOverride) { o.CullMode = &mode }
}

func (o PrimitiveOverride) Apply(base wgpu.PrimitiveState) wgpu.PrimitiveState {
	setIf(&base.Topology, o.Topology)
	setIf(&base.StripIndexFormat, o.StripIndexFormat)
	setIf(&base.FrontFace, o.FrontFace)
	setIf(&base.CullMode, o.CullMode)
	return base
}

// MultisampleOverride is a partial multisample state.
type MultisampleOverride struct {
	Count                  *uint32
	Mask                   *uint32
	AlphaToCoverageEnabled *bool
}

// MultisampleOption sets fields of a MultisampleOverride.
type MultisampleOption func(*MultisampleOverride)

func WithSampleCount(count uint32) MultisampleOption {
	return func(o *MultisampleOverride) { o.Count = &count }
}

func WithSampleMask(mask uint32) MultisampleOption {
	return func(o *MultisampleOverride) { o.Mask = &mask }
}

func WithAlphaToCoverage(enabled bool) MultisampleOption {
	return func(o *MultisampleOverride) { o.AlphaToCoverageEnabled = &enabled }
}

func (o MultisampleOverride) Apply(base wgpu.MultisampleState) wgpu.MultisampleState {
	setIf(&base.Count, o.Count)
	setIf(&base.Mask, o.Mask)
	setIf(&base.AlphaToCoverageEnabled, o.AlphaToCoverageEnabled)
	return base
}

// TargetOverride is a partial color target state, applied to every color target of a pass.
type TargetOverride struct {
	Format    *wgpu.TextureFormat
	Blend     *wgpu.BlendState
	WriteMask *wgpu.ColorWriteMask
}

// TargetOption sets fields of a TargetOverride.
type TargetOption func(*TargetOverride)

func WithTargetFormat(format wgpu.TextureFormat) TargetOption {
	return func(o *TargetOverride) { o.Format = &format }
}

// WithBlend enables blending on the target with the given state.
func WithBlend(blend wgpu.BlendState) TargetOption {
	return func(o *TargetOverride) { o.Blend = &blend }
}

func WithWriteMask(mask wgpu.ColorWriteMask) TargetOption {
	return func(o *TargetOverride) { o.WriteMask = &mask }
}

func (o TargetOverride) Apply(base wgpu.ColorTargetState) wgpu.ColorTargetState {
	setIf(&base.Format, o.Format)
	if o.Blend != nil {
		blend := *o.Blend
		base.Blend = &blend
	}
	setIf(&base.WriteMask, o.WriteMask)
	return base
}

// AlphaBlending is the conventional straight-alpha blend state for transparent surfaces.
var AlphaBlending = wgpu.BlendState{
	Color: wgpu.BlendComponent{
		SrcFactor: wgpu.BlendFactorSrcAlpha,
		DstFactor: wgpu.BlendFactorOneMinusSrcAlpha,
		Operation: wgpu.BlendOperationAdd,
	},
	Alpha: wgpu.BlendComponent{
		SrcFactor: wgpu.BlendFactorOne,
		DstFactor: wgpu.BlendFactorOneMinusSrcAlpha,
		Operation: wgpu.BlendOperationAdd,
	},
}

func setIf[T any](dst *T, src *T) {
	if src != nil {
		*dst = *src
	}
}
