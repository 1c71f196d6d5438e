package material

import (
	"testing"

	"github.com/Carmen-Shannon/oxy-frame/common"
	"github.com/Carmen-Shannon/oxy-frame/engine/frame_state"
	"github.com/Carmen-Shannon/oxy-frame/engine/renderer/bind_group_cache"
	"github.com/Carmen-Shannon/oxy-frame/engine/renderer/gpu"
	"github.com/Carmen-Shannon/oxy-frame/engine/renderer/gpu/gputest"
	"github.com/Carmen-Shannon/oxy-frame/engine/renderer/render_state"
	"github.com/Carmen-Shannon/oxy-frame/engine/renderer/shader"
	"github.com/cogentcore/webgpu/wgpu"
	"github.com/go-gl/mathgl/mgl32"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSource = `
struct VertexInput {
    @location(0) position: vec3<f32>,
}

struct MaterialUniform {
    color: vec4<f32>,
}

@group(1) @binding(0) var<uniform> material: MaterialUniform;

@vertex
fn vs_main(in: VertexInput) -> @builtin(position) vec4<f32> {
    return vec4<f32>(in.position, 1.0);
}

@fragment
fn fs_main() -> @location(0) vec4<f32> {
#ifdef UNLIT
    return vec4<f32>(1.0, 1.0, 1.0, 1.0);
#else
    return material.color;
#endif
}
`

// bogusUniform reports a kind no bind group entry can be built for.
type bogusUniform struct {
	kind UniformKind
}

func (u bogusUniform) Name() string                 { return "bogus" }
func (u bogusUniform) Binding() uint32              { return 3 }
func (u bogusUniform) Visibility() wgpu.ShaderStage { return wgpu.ShaderStageFragment }
func (u bogusUniform) Kind() UniformKind            { return u.kind }

type fixture struct {
	dev    *gputest.Device
	cache  bind_group_cache.Cache
	shader shader.Shader
	fs     frame_state.FrameState
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	s, err := shader.NewShader("test", testSource)
	require.NoError(t, err)
	dev := gputest.NewDevice()
	return &fixture{
		dev:    dev,
		cache:  bind_group_cache.NewCache(dev),
		shader: s,
		fs:     frame_state.NewFrameState(render_state.NewViewport(800, 600)),
	}
}

func (f *fixture) sampler(t *testing.T) gpu.Sampler {
	t.Helper()
	s, err := f.dev.CreateSampler("sampler", common.SamplerStagingData{})
	require.NoError(t, err)
	return s
}

func colorUniform(c *mgl32.Vec4) *NumberUniform {
	return NewVec4Uniform("color", 0, wgpu.ShaderStageFragment, func() mgl32.Vec4 { return *c })
}

func TestNewMaterialRequiresShader(t *testing.T) {
	f := newFixture(t)
	_, err := NewMaterial(f.dev, f.cache, nil)
	assert.ErrorIs(t, err, common.ErrConfiguration)
}

func TestMaterialDefaults(t *testing.T) {
	f := newFixture(t)
	m, err := NewMaterial(f.dev, f.cache, f.shader)
	require.NoError(t, err)

	assert.Equal(t, "test", m.Label())
	assert.Equal(t, "basic", m.Type())
	assert.False(t, m.Transparent())
	assert.True(t, m.Dirty())
	assert.True(t, m.RenderStateDirty())
	assert.True(t, m.DefinesDirty())
	assert.Nil(t, m.Variant())
	assert.Nil(t, m.UniformBuffer(), "no number uniforms means no uniform buffer")
}

func TestUpdateResolvesVariantAndRenderState(t *testing.T) {
	f := newFixture(t)
	color := mgl32.Vec4{1, 0, 0, 1}
	m, err := NewMaterial(f.dev, f.cache, f.shader, WithUniforms(colorUniform(&color)))
	require.NoError(t, err)

	require.NoError(t, m.Update(f.fs, nil))

	assert.False(t, m.RenderStateDirty())
	assert.False(t, m.DefinesDirty())
	require.NotNil(t, m.Variant())
	assert.Equal(t, "vs_main", m.Variant().VertexEntryPoint)

	rs := m.RenderState()
	require.NotNil(t, rs)
	defaults := render_state.DefaultRenderDefaults()
	assert.Equal(t, defaults.DepthStencil, rs.DepthStencil)
	assert.Equal(t, defaults.Primitive, rs.Primitive)
	assert.Equal(t, []wgpu.ColorTargetState{defaults.Target}, rs.Targets)
	assert.Equal(t, f.fs.Viewport(), rs.Viewport)

	groups := m.BindGroups()
	require.Len(t, groups, 1)
	assert.Equal(t, uint32(DefaultGroupIndex), groups[0].Index)
	assert.Equal(t, "basic", groups[0].Label)
	assert.Equal(t, uint64(16), groups[0].Entries[0].Size)
}

func TestRenderStateOverridesMergeOverDefaults(t *testing.T) {
	f := newFixture(t)
	m, err := NewMaterial(f.dev, f.cache, f.shader)
	require.NoError(t, err)
	require.NoError(t, m.Update(f.fs, nil))
	m.ClearDirty()

	invalidated := 0
	m.OnInvalidate(func() { invalidated++ })

	m.SetDepthStencil(render_state.WithDepthWrite(false))
	m.SetPrimitive(render_state.WithCullMode(wgpu.CullModeBack))
	m.SetTargets(render_state.WithBlend(render_state.AlphaBlending))
	m.SetStencilReference(7)
	m.SetBlendConstant(wgpu.Color{R: 0.5, G: 0.5, B: 0.5, A: 1})
	assert.True(t, m.RenderStateDirty())
	assert.Equal(t, 5, invalidated)

	f.fs.SetColorTargets([]wgpu.ColorTargetState{
		{Format: wgpu.TextureFormatRGBA8Unorm, WriteMask: wgpu.ColorWriteMaskAll},
		{Format: wgpu.TextureFormatRGBA16Float, WriteMask: wgpu.ColorWriteMaskAll},
	})
	require.NoError(t, m.Update(f.fs, nil))

	rs := m.RenderState()
	defaults := render_state.DefaultRenderDefaults()
	assert.False(t, rs.DepthStencil.DepthWriteEnabled)
	assert.Equal(t, defaults.DepthStencil.DepthCompare, rs.DepthStencil.DepthCompare)
	assert.Equal(t, wgpu.CullModeBack, rs.Primitive.CullMode)
	assert.Equal(t, defaults.Primitive.Topology, rs.Primitive.Topology)
	assert.Equal(t, uint32(7), rs.StencilReference)
	assert.Equal(t, wgpu.Color{R: 0.5, G: 0.5, B: 0.5, A: 1}, rs.BlendConstant)
	require.Len(t, rs.Targets, 2)
	for _, target := range rs.Targets {
		require.NotNil(t, target.Blend)
		assert.Equal(t, render_state.AlphaBlending, *target.Blend)
	}
	assert.Equal(t, wgpu.TextureFormatRGBA16Float, rs.Targets[1].Format)
	assert.True(t, m.Dirty())
}

func TestBlendConstantIsReplacedWhole(t *testing.T) {
	f := newFixture(t)
	m, err := NewMaterial(f.dev, f.cache, f.shader, WithBlendConstant(wgpu.Color{R: 1, G: 1, B: 1, A: 1}))
	require.NoError(t, err)

	m.SetBlendConstant(wgpu.Color{R: 0.25})
	assert.Equal(t, &wgpu.Color{R: 0.25}, m.BlendConstant())
}

func TestRenderStateRebuiltOnViewportChange(t *testing.T) {
	f := newFixture(t)
	m, err := NewMaterial(f.dev, f.cache, f.shader)
	require.NoError(t, err)
	require.NoError(t, m.Update(f.fs, nil))
	first := m.RenderState()

	require.NoError(t, m.Update(f.fs, nil))
	assert.Same(t, first, m.RenderState(), "an unchanged frame keeps the render state")

	f.fs.SetViewport(render_state.NewViewport(1024, 768))
	require.NoError(t, m.Update(f.fs, nil))
	assert.NotSame(t, first, m.RenderState())
	assert.Equal(t, float32(1024), m.RenderState().Viewport.Width)
}

func TestDefinesSelectVariant(t *testing.T) {
	f := newFixture(t)
	m, err := NewMaterial(f.dev, f.cache, f.shader)
	require.NoError(t, err)
	require.NoError(t, m.Update(f.fs, nil))
	lit := m.Variant()
	m.ClearDirty()

	invalidated := false
	m.OnInvalidate(func() { invalidated = true })
	m.SetDefines(map[string]string{"UNLIT": "1"})
	assert.True(t, invalidated)
	assert.True(t, m.DefinesDirty())

	require.NoError(t, m.Update(f.fs, nil))
	assert.NotSame(t, lit, m.Variant())
	assert.True(t, m.Dirty())
	assert.NotContains(t, m.Variant().Code, "material.color;")

	m.SetDefines(map[string]string{"UNLIT": ""})
	require.NoError(t, m.Update(f.fs, nil))
	assert.Same(t, lit, m.Variant(), "the shader caches variants by defines")
	assert.Empty(t, m.Defines())
}

func TestSetTransparentDoesNotInvalidate(t *testing.T) {
	f := newFixture(t)
	m, err := NewMaterial(f.dev, f.cache, f.shader)
	require.NoError(t, err)

	invalidated := false
	m.OnInvalidate(func() { invalidated = true })
	m.SetTransparent(true)
	assert.True(t, m.Transparent())
	assert.False(t, invalidated)
}

func TestUniformsUploadedOnlyOnChange(t *testing.T) {
	f := newFixture(t)
	color := mgl32.Vec4{1, 0, 0, 1}
	m, err := NewMaterial(f.dev, f.cache, f.shader, WithUniforms(colorUniform(&color)))
	require.NoError(t, err)

	require.NoError(t, m.Update(f.fs, nil))
	assert.Equal(t, 1, f.dev.Count("WriteBuffer"))

	require.NoError(t, m.Update(f.fs, nil))
	assert.Equal(t, 1, f.dev.Count("WriteBuffer"), "unchanged values are not uploaded")

	color = mgl32.Vec4{0, 1, 0, 1}
	require.NoError(t, m.Update(f.fs, nil))
	assert.Equal(t, 2, f.dev.Count("WriteBuffer"))

	handle, err := m.UniformBuffer().GPU()
	require.NoError(t, err)
	data := handle.(*gputest.Buffer).Data
	assert.Equal(t, common.Float32sToBytes([]float32{0, 1, 0, 1}), data[:16])
}

func TestUniformBufferPaddedToSixteenBytes(t *testing.T) {
	f := newFixture(t)
	m, err := NewMaterial(f.dev, f.cache, f.shader, WithUniforms(
		NewMat4Uniform("model", 0, wgpu.ShaderStageVertex, Const(mgl32.Ident4())),
		NewVec3Uniform("tint", 1, wgpu.ShaderStageFragment, Const(mgl32.Vec3{1, 1, 1})),
	))
	require.NoError(t, err)
	assert.Equal(t, uint64(80), m.UniformBuffer().Size())

	require.NoError(t, m.Update(f.fs, nil))
	for _, entry := range m.BindGroups()[0].Entries {
		assert.Equal(t, uint64(80), entry.Size)
	}
}

func TestMat3ColumnsPaddedToWGSLLayout(t *testing.T) {
	f := newFixture(t)
	normal := mgl32.Mat3{1, 2, 3, 4, 5, 6, 7, 8, 9}
	u := NewMat3Uniform("normal", 0, wgpu.ShaderStageVertex, Const(normal))
	assert.Equal(t, uint64(48), u.Size())

	m, err := NewMaterial(f.dev, f.cache, f.shader, WithUniforms(u))
	require.NoError(t, err)
	assert.Equal(t, uint64(48), m.UniformBuffer().Size())

	require.NoError(t, m.Update(f.fs, nil))
	assert.Equal(t, []float32{1, 2, 3, 0, 4, 5, 6, 0, 7, 8, 9, 0}, u.Value())

	handle, err := m.UniformBuffer().GPU()
	require.NoError(t, err)
	data := handle.(*gputest.Buffer).Data
	assert.Equal(t, common.Float32sToBytes(u.Value()), data[:48])
}

func TestDuplicatePolicies(t *testing.T) {
	f := newFixture(t)
	first := NewFloatUniform("first", 0, wgpu.ShaderStageFragment, Const(float32(1)))
	second := NewFloatUniform("second", 0, wgpu.ShaderStageFragment, Const(float32(2)))

	m, err := NewMaterial(f.dev, f.cache, f.shader, WithUniforms(first, second))
	require.NoError(t, err)
	require.Len(t, m.Uniforms(), 1)
	assert.Equal(t, "first", m.Uniforms()[0].Name())

	m, err = NewMaterial(f.dev, f.cache, f.shader, WithUniforms(first, second), WithDuplicatePolicy(DuplicateLastWins))
	require.NoError(t, err)
	require.Len(t, m.Uniforms(), 1)
	assert.Equal(t, "second", m.Uniforms()[0].Name())

	_, err = NewMaterial(f.dev, f.cache, f.shader, WithUniforms(first, second), WithDuplicatePolicy(DuplicateReject))
	assert.ErrorIs(t, err, common.ErrConfiguration)
}

func TestUnknownUniformKindRejected(t *testing.T) {
	for name, u := range map[string]Uniform{
		"unknown kind":    bogusUniform{kind: UniformKind(99)},
		"mismatched type": bogusUniform{kind: UniformKindTexture},
	} {
		t.Run(name, func(t *testing.T) {
			f := newFixture(t)
			m, err := NewMaterial(f.dev, f.cache, f.shader, WithUniforms(u))
			require.NoError(t, err)

			err = m.Update(f.fs, nil)
			assert.ErrorIs(t, err, common.ErrConfiguration)
			layouts, groups := f.cache.Len()
			assert.Zero(t, layouts)
			assert.Zero(t, groups)
		})
	}
}

func TestMaterialsOfOneTypeShareLayouts(t *testing.T) {
	f := newFixture(t)
	red, blue := mgl32.Vec4{1, 0, 0, 1}, mgl32.Vec4{0, 0, 1, 1}
	sampler := f.sampler(t)

	a, err := NewMaterial(f.dev, f.cache, f.shader, WithUniforms(
		colorUniform(&red),
		NewSamplerUniform("sampler", 1, wgpu.ShaderStageFragment, sampler),
	))
	require.NoError(t, err)
	b, err := NewMaterial(f.dev, f.cache, f.shader, WithUniforms(
		NewSamplerUniform("sampler", 1, wgpu.ShaderStageFragment, sampler),
		colorUniform(&blue),
	))
	require.NoError(t, err)

	require.NoError(t, a.Update(f.fs, nil))
	require.NoError(t, b.Update(f.fs, nil))

	assert.Same(t, a.BindGroups()[0].Layout, b.BindGroups()[0].Layout, "binding order must not split layouts")
	assert.NotSame(t, a.BindGroups()[0], b.BindGroups()[0], "each material binds its own uniform buffer")
	assert.Equal(t, 1, f.dev.Count("CreateBindGroupLayout"))
	assert.Equal(t, 2, f.cache.Refs(a.BindGroups()[0].Layout.Key))
}

func TestMaterialsWithIdenticalResourcesShareBindGroups(t *testing.T) {
	f := newFixture(t)
	sampler := f.sampler(t)
	newMaterial := func() Material {
		m, err := NewMaterial(f.dev, f.cache, f.shader, WithUniforms(
			NewSamplerUniform("sampler", 1, wgpu.ShaderStageFragment, sampler),
		))
		require.NoError(t, err)
		require.NoError(t, m.Update(f.fs, nil))
		return m
	}

	a, b := newMaterial(), newMaterial()
	assert.Same(t, a.BindGroups()[0], b.BindGroups()[0])
	assert.Equal(t, 1, f.dev.Count("CreateBindGroup"))
}

func TestSetUniformsRebuildsBindGroup(t *testing.T) {
	f := newFixture(t)
	color := mgl32.Vec4{1, 1, 1, 1}
	m, err := NewMaterial(f.dev, f.cache, f.shader, WithUniforms(colorUniform(&color)))
	require.NoError(t, err)
	require.NoError(t, m.Update(f.fs, nil))
	before := m.BindGroups()[0]
	oldBuffer := m.UniformBuffer()

	require.NoError(t, m.SetUniforms(colorUniform(&color), NewFloatUniform("gloss", 2, wgpu.ShaderStageFragment, Const(float32(0.5)))))
	assert.True(t, oldBuffer.Destroyed())
	require.NoError(t, m.Update(f.fs, nil))

	after := m.BindGroups()[0]
	assert.NotSame(t, before, after)
	assert.Zero(t, f.cache.Refs(before.Key), "the replaced group is released")
	assert.Len(t, after.Entries, 2)
}

func TestUpdateHookReceivesOwner(t *testing.T) {
	f := newFixture(t)
	var got any
	m, err := NewMaterial(f.dev, f.cache, f.shader, WithUpdateHook(func(_ frame_state.FrameState, owner any) {
		got = owner
	}))
	require.NoError(t, err)

	require.NoError(t, m.Update(f.fs, "owner"))
	assert.Equal(t, "owner", got)
}

func TestDestroyReleasesCachedObjects(t *testing.T) {
	f := newFixture(t)
	color := mgl32.Vec4{1, 1, 1, 1}
	m, err := NewMaterial(f.dev, f.cache, f.shader, WithUniforms(colorUniform(&color)))
	require.NoError(t, err)
	require.NoError(t, m.Update(f.fs, nil))
	buf := m.UniformBuffer()

	m.Destroy()
	m.Destroy()

	assert.True(t, m.Destroyed())
	assert.True(t, buf.Destroyed())
	layouts, groups := f.cache.Len()
	assert.Zero(t, layouts)
	assert.Zero(t, groups)
	assert.ErrorIs(t, m.Update(f.fs, nil), common.ErrDestroyed)
	assert.ErrorIs(t, m.SetUniforms(), common.ErrDestroyed)
}
