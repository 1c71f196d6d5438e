package pipeline

import (
	"testing"

	"github.com/Carmen-Shannon/oxy-frame/common"
	"github.com/Carmen-Shannon/oxy-frame/engine/renderer/bind_group_cache"
	"github.com/Carmen-Shannon/oxy-frame/engine/renderer/draw_command"
	"github.com/Carmen-Shannon/oxy-frame/engine/renderer/gpu"
	"github.com/Carmen-Shannon/oxy-frame/engine/renderer/gpu/gputest"
	"github.com/Carmen-Shannon/oxy-frame/engine/renderer/render_state"
	"github.com/Carmen-Shannon/oxy-frame/engine/renderer/shader"
	"github.com/cogentcore/webgpu/wgpu"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func variant(key string) *shader.Variant {
	return &shader.Variant{
		Key:                key,
		Label:              key,
		Code:               "// " + key,
		VertexEntryPoint:   "vs_main",
		FragmentEntryPoint: "fs_main",
	}
}

func renderState() *render_state.RenderState {
	d := render_state.DefaultRenderDefaults()
	return &render_state.RenderState{
		DepthStencil: d.DepthStencil,
		Primitive:    d.Primitive,
		Multisample:  d.Multisample,
		Targets:      []wgpu.ColorTargetState{d.Target},
		Viewport:     render_state.NewViewport(100, 100),
	}
}

func group(t *testing.T, c bind_group_cache.Cache, label string, index uint32) *bind_group_cache.BindGroup {
	t.Helper()
	entry := wgpu.BindGroupLayoutEntry{
		Binding:    0,
		Visibility: wgpu.ShaderStageVertex,
		Buffer:     wgpu.BufferBindingLayout{Type: wgpu.BufferBindingTypeUniform},
	}
	layout, err := c.AcquireLayout(label, []wgpu.BindGroupLayoutEntry{entry}, index)
	require.NoError(t, err)
	g, err := c.AcquireBindGroup(label, layout, []gpu.BindGroupEntry{{Binding: 0}}, index)
	require.NoError(t, err)
	return g
}

func renderCommand() *draw_command.DrawCommand {
	return &draw_command.DrawCommand{
		Type:        draw_command.CommandTypeRender,
		Shader:      variant("basic"),
		RenderState: renderState(),
		Topology:    wgpu.PrimitiveTopologyTriangleList,
		Count:       3,
	}
}

func TestAcquireCachesByKey(t *testing.T) {
	dev := gputest.NewDevice()
	groups := bind_group_cache.NewCache(dev)
	c := NewCache(dev)
	bound := []*bind_group_cache.BindGroup{group(t, groups, "camera", 0), group(t, groups, "basic", 1)}

	a, err := c.Acquire(renderCommand(), bound)
	require.NoError(t, err)

	cmd := renderCommand()
	cmd.RenderState.Viewport = render_state.NewViewport(50, 50)
	cmd.RenderState.StencilReference = 3
	b, err := c.Acquire(cmd, bound)
	require.NoError(t, err)

	assert.Same(t, a, b, "pass-level state does not split pipelines")
	assert.Equal(t, 1, dev.Count("CreateRenderPipeline"))
	assert.Equal(t, 1, dev.Count("CreateShaderModule"))
	assert.Equal(t, PipelineTypeRender, a.Type())
	assert.Same(t, a, c.Pipeline(a.PipelineKey()))

	desc := a.RenderPipeline().(*gputest.RenderPipeline).Desc
	assert.Equal(t, "vs_main", desc.VertexEntryPoint)
	require.Len(t, desc.BindGroupLayouts, 2)
	assert.Equal(t, bound[1].Layout.GPU, desc.BindGroupLayouts[1])
	require.NotNil(t, desc.DepthStencil)
}

func TestAcquireSplitsOnBakedState(t *testing.T) {
	dev := gputest.NewDevice()
	groups := bind_group_cache.NewCache(dev)
	c := NewCache(dev)
	bound := []*bind_group_cache.BindGroup{group(t, groups, "camera", 0)}

	_, err := c.Acquire(renderCommand(), bound)
	require.NoError(t, err)

	blended := renderCommand()
	blended.RenderState.Targets[0].Blend = &render_state.AlphaBlending
	lines := renderCommand()
	lines.Topology = wgpu.PrimitiveTopologyLineList
	otherVariant := renderCommand()
	otherVariant.Shader = variant("basic#UNLIT=1")

	for _, cmd := range []*draw_command.DrawCommand{blended, lines, otherVariant} {
		_, err := c.Acquire(cmd, bound)
		require.NoError(t, err)
	}
	_, err = c.Acquire(renderCommand(), []*bind_group_cache.BindGroup{group(t, groups, "other", 0)})
	require.NoError(t, err)

	assert.Equal(t, 5, c.Len())
	assert.Equal(t, 2, dev.Count("CreateShaderModule"), "modules are shared per variant")
}

func TestStripTopologyTakesIndexFormat(t *testing.T) {
	dev := gputest.NewDevice()
	c := NewCache(dev, WithDepthAttachment(false))

	cmd := renderCommand()
	cmd.Topology = wgpu.PrimitiveTopologyTriangleStrip
	cmd.IndexBuffer = &gputest.Buffer{}
	cmd.IndexFormat = wgpu.IndexFormatUint32

	p, err := c.Acquire(cmd, nil)
	require.NoError(t, err)
	desc := p.RenderPipeline().(*gputest.RenderPipeline).Desc
	assert.Equal(t, wgpu.IndexFormatUint32, desc.Primitive.StripIndexFormat)
	assert.Equal(t, wgpu.PrimitiveTopologyTriangleStrip, desc.Primitive.Topology)
	assert.Nil(t, desc.DepthStencil)
}

func TestAcquireCompute(t *testing.T) {
	dev := gputest.NewDevice()
	c := NewCache(dev)
	v := &shader.Variant{Key: "particles", Label: "particles", Code: "//", ComputeEntryPoint: "cs_main"}

	p, err := c.Acquire(&draw_command.DrawCommand{Type: draw_command.CommandTypeCompute, Shader: v, Dispatch: []uint32{4}}, nil)
	require.NoError(t, err)
	assert.Equal(t, PipelineTypeCompute, p.Type())
	assert.Nil(t, p.RenderPipeline())
	assert.Equal(t, "cs_main", p.ComputePipeline().(*gputest.ComputePipeline).Desc.EntryPoint)
}

func TestAcquireUsageErrors(t *testing.T) {
	dev := gputest.NewDevice()
	groups := bind_group_cache.NewCache(dev)
	c := NewCache(dev)

	_, err := c.Acquire(&draw_command.DrawCommand{}, nil)
	assert.ErrorIs(t, err, common.ErrUsage)

	noState := renderCommand()
	noState.RenderState = nil
	_, err = c.Acquire(noState, nil)
	assert.ErrorIs(t, err, common.ErrUsage)

	_, err = c.Acquire(renderCommand(), []*bind_group_cache.BindGroup{group(t, groups, "basic", 1)})
	assert.ErrorIs(t, err, common.ErrUsage, "group 0 is missing")
}

func TestClearReleases(t *testing.T) {
	dev := gputest.NewDevice()
	c := NewCache(dev)
	p, err := c.Acquire(renderCommand(), nil)
	require.NoError(t, err)

	c.Clear()
	assert.Zero(t, c.Len())
	assert.True(t, p.RenderPipeline().(*gputest.RenderPipeline).Released)
}

func TestAcquireSplitsShadersSharingALabel(t *testing.T) {
	const vertex = `
@vertex
fn vs_main(@location(0) position: vec3<f32>) -> @builtin(position) vec4<f32> {
    return vec4<f32>(position, 1.0);
}
`
	dev := gputest.NewDevice()
	c := NewCache(dev)

	acquire := func(color string) Pipeline {
		t.Helper()
		s, err := shader.NewShader("mat", vertex+"@fragment\nfn fs_main() -> @location(0) vec4<f32> { return "+color+"; }\n")
		require.NoError(t, err)
		v, err := s.Variant(nil)
		require.NoError(t, err)
		cmd := renderCommand()
		cmd.Shader = v
		p, err := c.Acquire(cmd, nil)
		require.NoError(t, err)
		return p
	}

	red := acquire("vec4<f32>(1.0, 0.0, 0.0, 1.0)")
	blue := acquire("vec4<f32>(0.0, 0.0, 1.0, 1.0)")

	assert.NotSame(t, red, blue)
	assert.NotEqual(t, red.Shader().Code, blue.Shader().Code)
	assert.Equal(t, 2, dev.Count("CreateShaderModule"))
	assert.Equal(t, 2, dev.Count("CreateRenderPipeline"))

	assert.Same(t, red, acquire("vec4<f32>(1.0, 0.0, 0.0, 1.0)"), "equal label and source still share a pipeline")
}
