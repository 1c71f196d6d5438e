package scene

import (
	"context"
	"strconv"
	"sync/atomic"
	"testing"

	"github.com/Carmen-Shannon/oxy-frame/common"
	"github.com/Carmen-Shannon/oxy-frame/engine/camera"
	"github.com/Carmen-Shannon/oxy-frame/engine/drawable"
	"github.com/Carmen-Shannon/oxy-frame/engine/geometry"
	"github.com/Carmen-Shannon/oxy-frame/engine/renderer"
	"github.com/Carmen-Shannon/oxy-frame/engine/renderer/gpu/gputest"
	"github.com/Carmen-Shannon/oxy-frame/engine/renderer/material"
	"github.com/Carmen-Shannon/oxy-frame/engine/renderer/shader"
	"github.com/Carmen-Shannon/oxy-frame/engine/transform"
	"github.com/cogentcore/webgpu/wgpu"
	"github.com/go-gl/mathgl/mgl32"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSource = camera.GPUCameraUniformSource + `
struct VertexInput {
    @location(0) position: vec3<f32>,
    @location(1) normal: vec3<f32>,
    @location(2) uv: vec2<f32>,
}

@group(0) @binding(0) var<uniform> cam: CameraUniform;
@group(1) @binding(0) var<uniform> color: vec4<f32>;

@vertex
fn vs_main(in: VertexInput) -> @builtin(position) vec4<f32> {
    return cam.view_proj * vec4<f32>(in.position, 1.0);
}

@fragment
fn fs_main() -> @location(0) vec4<f32> {
#ifdef UNLIT
    return vec4<f32>(1.0);
#else
    return color;
#endif
}
`

type fixture struct {
	dev    *gputest.Device
	r      renderer.Renderer
	shader shader.Shader
	scene  Scene
}

func newFixture(t *testing.T, options ...SceneBuilderOption) *fixture {
	t.Helper()
	dev := gputest.NewDevice()
	r := renderer.NewRenderer(dev)
	s, err := shader.NewShader("scene_test", testSource)
	require.NoError(t, err)

	cam := camera.NewCamera(
		camera.WithController(camera.NewOrbitController(camera.WithRadius(10), camera.WithElevation(0))),
		camera.WithClipPlanes(0.1, 50),
	)
	sc, err := NewScene("test", r, append([]SceneBuilderOption{WithCamera(cam), WithPrecompileWorkers(2)}, options...)...)
	require.NoError(t, err)
	return &fixture{dev: dev, r: r, shader: s, scene: sc}
}

func (f *fixture) cube(t *testing.T, position mgl32.Vec3, options ...material.MaterialBuilderOption) drawable.Drawable {
	t.Helper()
	g, err := geometry.NewBox(f.dev, "box", 1, 1, 1)
	require.NoError(t, err)
	options = append(options,
		material.WithRenderDefaults(f.r.RenderDefaults()),
		material.WithUniforms(material.NewVec4Uniform("color", 0, wgpu.ShaderStageFragment, material.Const(mgl32.Vec4{1, 0, 0, 1}))),
	)
	m, err := material.NewMaterial(f.r.Device(), f.r.BindGroupCache(), f.shader, options...)
	require.NoError(t, err)
	d, err := drawable.NewDrawable(g, m, drawable.WithTransform(transform.NewTransform(transform.WithPosition(position))))
	require.NoError(t, err)
	return d
}

func TestNewSceneRequiresRenderer(t *testing.T) {
	_, err := NewScene("empty", nil)
	assert.ErrorIs(t, err, common.ErrConfiguration)
}

func TestAddRemoveContains(t *testing.T) {
	f := newFixture(t)
	a := f.cube(t, mgl32.Vec3{})
	b := f.cube(t, mgl32.Vec3{1, 0, 0})

	f.scene.Add(a, b, a)
	assert.Equal(t, 2, f.scene.Len())
	assert.True(t, f.scene.Contains(b))

	assert.True(t, f.scene.Remove(a))
	assert.False(t, f.scene.Remove(a))
	assert.False(t, f.scene.Contains(a))
	assert.False(t, a.Destroyed(), "Remove does not destroy")
	assert.Equal(t, []drawable.Drawable{b}, f.scene.Drawables())
}

func TestRenderWithoutCamera(t *testing.T) {
	dev := gputest.NewDevice()
	sc, err := NewScene("no camera", renderer.NewRenderer(dev))
	require.NoError(t, err)

	assert.ErrorIs(t, sc.Render(context.Background()), common.ErrUsage)
	assert.Zero(t, dev.Count("Submit"))
}

func TestRenderCancelledContext(t *testing.T) {
	f := newFixture(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.ErrorIs(t, f.scene.Render(ctx), context.Canceled)
	assert.Zero(t, f.dev.Count("CreateCommandEncoder"))
}

func TestRenderSubmitsVisibleDrawables(t *testing.T) {
	f := newFixture(t)
	near := f.cube(t, mgl32.Vec3{0, 0, 2})
	far := f.cube(t, mgl32.Vec3{0, 0, -2})
	glass := f.cube(t, mgl32.Vec3{1, 0, 0}, material.WithTransparent(true))
	behind := f.cube(t, mgl32.Vec3{0, 0, 30})
	f.scene.Add(far, glass, behind, near)

	require.NoError(t, f.scene.Render(context.Background()))

	assert.Equal(t, 3, f.dev.Count("DrawIndexed"), "the cube behind the camera is culled")
	assert.Equal(t, 1, f.dev.Count("Submit"))
	assert.Equal(t, common.IntersectOutside, behind.Visibility())

	passes := f.dev.CallsOf("BeginRenderPass")
	require.Len(t, passes, 3)
	assert.Equal(t, []any{"clear", "depth:clear"}, passes[0].Args)

	stats := f.r.Stats()
	assert.Equal(t, 3, stats.DrawCalls)
	assert.Equal(t, uint64(1), f.scene.FrameState().Frame())

	// camera group at 0, material group at 1 for every draw
	binds := f.dev.CallsOf("SetBindGroup")
	require.Len(t, binds, 6)
	for i, call := range binds {
		assert.Equal(t, uint32(i%2), call.Args[0])
	}
}

func TestRenderOrdersOpaqueNearToFar(t *testing.T) {
	f := newFixture(t)
	near := f.cube(t, mgl32.Vec3{0, 0, 2})
	far := f.cube(t, mgl32.Vec3{0, 0, -2})
	f.scene.Add(far, near)

	require.NoError(t, f.scene.Render(context.Background()))

	opaque := f.scene.FrameState().Queue().Opaque()
	require.Len(t, opaque, 2)
	assert.Same(t, near, opaque[0])
	assert.Same(t, far, opaque[1])
}

func TestRenderDropsDestroyedDrawables(t *testing.T) {
	f := newFixture(t)
	a := f.cube(t, mgl32.Vec3{})
	b := f.cube(t, mgl32.Vec3{1, 0, 0})
	f.scene.Add(a, b)
	a.Destroy()

	require.NoError(t, f.scene.Render(context.Background()))
	assert.Equal(t, 1, f.scene.Len())
	assert.Equal(t, 1, f.dev.Count("DrawIndexed"))
}

func TestSetViewportFitsCamera(t *testing.T) {
	f := newFixture(t)
	assert.InDelta(t, 800.0/600.0, f.scene.Camera().Aspect(), 1e-6)

	f.scene.SetViewport(1000, 500)
	assert.InDelta(t, 2.0, f.scene.Camera().Aspect(), 1e-6)
	assert.Equal(t, float32(1000), f.scene.FrameState().Viewport().Width)

	f.scene.SetViewport(0, 500)
	assert.Equal(t, float32(1000), f.scene.FrameState().Viewport().Width, "empty sizes are ignored")
}

func TestPrecompileCompilesDistinctVariants(t *testing.T) {
	f := newFixture(t)
	f.scene.Add(
		f.cube(t, mgl32.Vec3{}),
		f.cube(t, mgl32.Vec3{1, 0, 0}),
		f.cube(t, mgl32.Vec3{2, 0, 0}, material.WithDefines(map[string]string{"UNLIT": "1"})),
	)

	require.NoError(t, f.scene.Precompile(context.Background()))
	assert.Equal(t, 2, f.shader.CompiledVariants())
	assert.Zero(t, f.dev.Count("CreateShaderModule"), "precompiling touches no GPU objects")
}

// cancelAfter reports Canceled once Err has been called more than n times.
type cancelAfter struct {
	context.Context
	n     int32
	calls atomic.Int32
}

func (c *cancelAfter) Err() error {
	if c.calls.Add(1) > c.n {
		return context.Canceled
	}
	return nil
}

func TestPrecompileCancelledMidDispatch(t *testing.T) {
	f := newFixture(t)
	broken, err := shader.NewShader("broken", testSource+"\nfn ${MISSING}() {}\n")
	require.NoError(t, err)
	for i := range 8 {
		g, err := geometry.NewBox(f.dev, "box", 1, 1, 1)
		require.NoError(t, err)
		m, err := material.NewMaterial(f.dev, f.r.BindGroupCache(), broken,
			material.WithDefines(map[string]string{"VARIANT": strconv.Itoa(i)}))
		require.NoError(t, err)
		d, err := drawable.NewDrawable(g, m)
		require.NoError(t, err)
		f.scene.Add(d)
	}

	ctx := &cancelAfter{Context: context.Background(), n: 4}
	err = f.scene.Precompile(ctx)
	assert.ErrorIs(t, err, context.Canceled)
	assert.ErrorIs(t, err, common.ErrConfiguration, "variants dispatched before cancellation still report")
}

func TestDestroyDestroysDrawables(t *testing.T) {
	f := newFixture(t)
	a := f.cube(t, mgl32.Vec3{})
	f.scene.Add(a)

	f.scene.Destroy()
	assert.True(t, a.Destroyed())
	assert.Zero(t, f.scene.Len())
}
