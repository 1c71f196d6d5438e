package render_state

import (
	"testing"

	"github.com/cogentcore/webgpu/wgpu"
	"github.com/stretchr/testify/assert"
)

func TestOverridesRetainUnsetFields(t *testing.T) {
	defaults := DefaultRenderDefaults()

	var ds DepthStencilOverride
	WithDepthWrite(false)(&ds)
	WithDepthCompare(wgpu.CompareFunctionLessEqual)(&ds)
	// A later partial touches one field only.
	WithDepthCompare(wgpu.CompareFunctionGreater)(&ds)

	got := ds.Apply(defaults.DepthStencil)
	assert.False(t, got.DepthWriteEnabled)
	assert.Equal(t, wgpu.CompareFunctionGreater, got.DepthCompare)
	assert.Equal(t, defaults.DepthStencil.Format, got.Format)
	assert.Equal(t, defaults.DepthStencil.StencilReadMask, got.StencilReadMask)
}

func TestPrimitiveAndMultisampleOverrides(t *testing.T) {
	defaults := DefaultRenderDefaults()

	var p PrimitiveOverride
	WithCullMode(wgpu.CullModeBack)(&p)
	prim := p.Apply(defaults.Primitive)
	assert.Equal(t, wgpu.CullModeBack, prim.CullMode)
	assert.Equal(t, wgpu.PrimitiveTopologyTriangleList, prim.Topology)

	var m MultisampleOverride
	WithSampleCount(4)(&m)
	ms := m.Apply(defaults.Multisample)
	assert.Equal(t, uint32(4), ms.Count)
	assert.Equal(t, uint32(0xFFFFFFFF), ms.Mask)
}

func TestTargetOverrideCopiesBlend(t *testing.T) {
	var o TargetOverride
	WithBlend(AlphaBlending)(&o)

	base := DefaultRenderDefaults().Target
	a := o.Apply(base)
	b := o.Apply(base)

	assert.Nil(t, base.Blend)
	if assert.NotNil(t, a.Blend) {
		assert.Equal(t, AlphaBlending, *a.Blend)
	}
	assert.NotSame(t, a.Blend, b.Blend)
}

func TestPipelineKey(t *testing.T) {
	d := DefaultRenderDefaults()
	base := RenderState{
		DepthStencil: d.DepthStencil,
		Primitive:    d.Primitive,
		Multisample:  d.Multisample,
		Targets:      []wgpu.ColorTargetState{d.Target},
		Viewport:     NewViewport(800, 600),
	}

	same := base
	same.Viewport = NewViewport(100, 100)
	same.StencilReference = 3
	same.BlendConstant = wgpu.Color{R: 1}
	assert.Equal(t, base.PipelineKey(), same.PipelineKey(), "pass-level state does not affect the pipeline")

	blended := base
	blend := AlphaBlending
	blended.Targets = []wgpu.ColorTargetState{{Format: d.Target.Format, WriteMask: d.Target.WriteMask, Blend: &blend}}
	assert.NotEqual(t, base.PipelineKey(), blended.PipelineKey())

	culled := base
	culled.Primitive.CullMode = wgpu.CullModeBack
	assert.NotEqual(t, base.PipelineKey(), culled.PipelineKey())
}
