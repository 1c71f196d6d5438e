package drawable

import (
	"math/rand/v2"
	"testing"

	"github.com/Carmen-Shannon/oxy-frame/common"
	"github.com/Carmen-Shannon/oxy-frame/engine/camera"
	"github.com/Carmen-Shannon/oxy-frame/engine/frame_state"
	"github.com/Carmen-Shannon/oxy-frame/engine/geometry"
	"github.com/Carmen-Shannon/oxy-frame/engine/renderer/bind_group_cache"
	"github.com/Carmen-Shannon/oxy-frame/engine/renderer/buffer"
	"github.com/Carmen-Shannon/oxy-frame/engine/renderer/draw_command"
	"github.com/Carmen-Shannon/oxy-frame/engine/renderer/gpu/gputest"
	"github.com/Carmen-Shannon/oxy-frame/engine/renderer/material"
	"github.com/Carmen-Shannon/oxy-frame/engine/renderer/render_state"
	"github.com/Carmen-Shannon/oxy-frame/engine/renderer/shader"
	"github.com/Carmen-Shannon/oxy-frame/engine/transform"
	"github.com/cogentcore/webgpu/wgpu"
	"github.com/go-gl/mathgl/mgl32"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSource = `
struct VertexInput {
    @location(0) position: vec3<f32>,
    @location(1) normal: vec3<f32>,
    @location(2) uv: vec2<f32>,
}

@group(1) @binding(0) var<uniform> color: vec4<f32>;

@vertex
fn vs_main(in: VertexInput) -> @builtin(position) vec4<f32> {
    return vec4<f32>(in.position, 1.0);
}

@fragment
fn fs_main() -> @location(0) vec4<f32> {
    return color;
}
`

type fixture struct {
	dev    *gputest.Device
	cache  bind_group_cache.Cache
	shader shader.Shader
	fs     frame_state.FrameState
}

// newFixture returns a frame looking down -Z from (0, 0, 10) at the origin.
func newFixture(t *testing.T) *fixture {
	t.Helper()
	s, err := shader.NewShader("test", testSource)
	require.NoError(t, err)
	dev := gputest.NewDevice()

	cam := camera.NewCamera(
		camera.WithController(camera.NewOrbitController(camera.WithRadius(10), camera.WithElevation(0))),
		camera.WithClipPlanes(0.1, 50),
	)
	fs := frame_state.NewFrameState(render_state.NewViewport(800, 800))
	fs.Update(cam)

	return &fixture{dev: dev, cache: bind_group_cache.NewCache(dev), shader: s, fs: fs}
}

func (f *fixture) drawable(t *testing.T, position mgl32.Vec3, options ...material.MaterialBuilderOption) Drawable {
	t.Helper()
	g, err := geometry.NewBox(f.dev, "box", 1, 1, 1)
	require.NoError(t, err)
	color := mgl32.Vec4{1, 1, 1, 1}
	options = append(options, material.WithUniforms(
		material.NewVec4Uniform("color", 0, wgpu.ShaderStageFragment, material.Const(color)),
	))
	m, err := material.NewMaterial(f.dev, f.cache, f.shader, options...)
	require.NoError(t, err)
	d, err := NewDrawable(g, m, WithTransform(transform.NewTransform(transform.WithPosition(position))))
	require.NoError(t, err)
	return d
}

func TestNewDrawableRequiresGeometryAndMaterial(t *testing.T) {
	_, err := NewDrawable(nil, nil)
	assert.ErrorIs(t, err, common.ErrConfiguration)
}

func TestUpdateQueuesVisibleOpaque(t *testing.T) {
	f := newFixture(t)
	d := f.drawable(t, mgl32.Vec3{})

	require.NoError(t, d.Update(f.fs))

	assert.NotEqual(t, common.IntersectOutside, d.Visibility())
	assert.InDelta(t, 10-mgl32.Vec3{0.5, 0.5, 0.5}.Len(), d.DistanceToCamera(), 1e-4)
	require.Len(t, f.fs.Queue().Opaque(), 1)
	assert.Same(t, d, f.fs.Queue().Opaque()[0])
	assert.Empty(t, f.fs.Queue().Transparent())
}

func TestUpdateQueuesTransparent(t *testing.T) {
	f := newFixture(t)
	d := f.drawable(t, mgl32.Vec3{}, material.WithTransparent(true))

	require.NoError(t, d.Update(f.fs))
	assert.Len(t, f.fs.Queue().Transparent(), 1)
	assert.Empty(t, f.fs.Queue().Opaque())
}

func TestUpdateCullsOutside(t *testing.T) {
	f := newFixture(t)
	behind := f.drawable(t, mgl32.Vec3{0, 0, 30})
	beyondFar := f.drawable(t, mgl32.Vec3{0, 0, -100})

	require.NoError(t, behind.Update(f.fs))
	require.NoError(t, beyondFar.Update(f.fs))

	assert.Equal(t, common.IntersectOutside, behind.Visibility())
	assert.Equal(t, common.IntersectOutside, beyondFar.Visibility())
	assert.Zero(t, f.fs.Queue().Len())
}

func TestUpdateUsesModelMatrixForBounds(t *testing.T) {
	f := newFixture(t)
	d := f.drawable(t, mgl32.Vec3{0, 0, 2})
	d.SetScale(mgl32.Vec3{2, 2, 2})

	require.NoError(t, d.Update(f.fs))

	sphere := d.Geometry().BoundingSphere()
	assert.True(t, sphere.Center().ApproxEqual(mgl32.Vec3{0, 0, 2}))
	assert.InDelta(t, 2*mgl32.Vec3{0.5, 0.5, 0.5}.Len(), sphere.Radius(), 1e-5)
	assert.True(t, d.ModelMatrix().Col(3).Vec3().ApproxEqual(mgl32.Vec3{0, 0, 2}))
}

func TestRoundTripCounts(t *testing.T) {
	f := newFixture(t)
	r := rand.New(rand.NewPCG(1, 2))

	visible := 0
	for range 200 {
		position := mgl32.Vec3{r.Float32()*60 - 30, r.Float32()*60 - 30, r.Float32()*80 - 60}
		d := f.drawable(t, position, material.WithTransparent(r.IntN(2) == 0))
		require.NoError(t, d.Update(f.fs))
		if d.Visibility() != common.IntersectOutside {
			visible++
		}
	}

	q := f.fs.Queue()
	assert.Equal(t, visible, len(q.Opaque())+len(q.Transparent()))
	assert.Positive(t, visible)
	assert.Less(t, visible, 200)
}

func TestDrawCommandFields(t *testing.T) {
	f := newFixture(t)
	d := f.drawable(t, mgl32.Vec3{})
	d.SetInstances(4)
	require.NoError(t, d.Update(f.fs))

	cmd, err := d.DrawCommand()
	require.NoError(t, err)
	require.NoError(t, cmd.Validate())

	g, m := d.Geometry(), d.Material()
	vb, err := g.VertexBuffers()[0].GPU()
	require.NoError(t, err)
	ib, err := g.IndexBuffer().GPU()
	require.NoError(t, err)

	assert.Equal(t, draw_command.CommandTypeRender, cmd.Type)
	assert.Equal(t, vb, cmd.VertexBuffers[0])
	assert.Equal(t, ib, cmd.IndexBuffer)
	assert.Equal(t, wgpu.IndexFormatUint16, cmd.IndexFormat)
	assert.Equal(t, []wgpu.VertexBufferLayout{geometry.StandardVertexLayout}, cmd.VertexLayouts)
	assert.Equal(t, uint32(36), cmd.Count)
	assert.Equal(t, uint32(4), cmd.Instances)
	assert.Equal(t, wgpu.PrimitiveTopologyTriangleList, cmd.Topology)
	assert.Same(t, m.Variant(), cmd.Shader)
	assert.Same(t, m.RenderState(), cmd.RenderState)
	assert.Equal(t, m.BindGroups(), cmd.BindGroups)
	assert.Equal(t, "basic", cmd.MaterialType)
	assert.Same(t, d, cmd.Owner)
	assert.False(t, m.Dirty(), "building the command clears the material flag")
}

func TestDrawCommandCachedUntilInvalidated(t *testing.T) {
	f := newFixture(t)
	d := f.drawable(t, mgl32.Vec3{})
	require.NoError(t, d.Update(f.fs))

	first, err := d.DrawCommand()
	require.NoError(t, err)
	again, err := d.DrawCommand()
	require.NoError(t, err)
	assert.Same(t, first, again)

	require.NoError(t, d.Update(f.fs))
	again, err = d.DrawCommand()
	require.NoError(t, err)
	assert.Same(t, first, again, "a steady frame reuses the command")

	replaceIndexBuffer := func() {
		ib, err := buffer.NewIndexBuffer(f.dev, "ib", common.Uint16sToBytes([]uint16{0, 1, 2}))
		require.NoError(t, err)
		require.NoError(t, d.Geometry().SetIndexBuffer(ib, wgpu.IndexFormatUint16, 3))
	}
	steps := map[string]func(){
		"instances":    func() { d.SetInstances(2) },
		"render state": func() { d.Material().SetDepthStencil(render_state.WithDepthWrite(false)) },
		"defines":      func() { d.Material().SetDefines(map[string]string{"FLAT": "1"}) },
		"explicit":     d.Invalidate,
		"index buffer": replaceIndexBuffer,
	}
	previous := first
	for name, mutate := range steps {
		mutate()
		require.NoError(t, d.Update(f.fs), name)
		cmd, err := d.DrawCommand()
		require.NoError(t, err, name)
		assert.NotSame(t, previous, cmd, name)
		previous = cmd
	}
}

func TestSetGeometryInvalidates(t *testing.T) {
	f := newFixture(t)
	d := f.drawable(t, mgl32.Vec3{})
	require.NoError(t, d.Update(f.fs))
	first, err := d.DrawCommand()
	require.NoError(t, err)

	old := d.Geometry()
	replacement, err := geometry.NewBox(f.dev, "bigger", 2, 2, 2)
	require.NoError(t, err)
	d.SetGeometry(replacement)

	cmd, err := d.DrawCommand()
	require.NoError(t, err)
	assert.NotSame(t, first, cmd)

	ib, err := buffer.NewIndexBuffer(f.dev, "ib", common.Uint16sToBytes([]uint16{0, 1, 2}))
	require.NoError(t, err)
	require.NoError(t, old.SetIndexBuffer(ib, wgpu.IndexFormatUint16, 3))
	again, err := d.DrawCommand()
	require.NoError(t, err)
	assert.Same(t, cmd, again, "a detached geometry no longer invalidates")
}

// listenedGeometry counts the invalidation listeners still registered on a geometry.
type listenedGeometry struct {
	geometry.Geometry
	active int
}

func (g *listenedGeometry) OnInvalidate(fn func()) func() {
	remove := g.Geometry.OnInvalidate(fn)
	g.active++
	removed := false
	return func() {
		if !removed {
			removed = true
			g.active--
		}
		remove()
	}
}

func TestSetGeometryStopsListeningToPrevious(t *testing.T) {
	f := newFixture(t)
	box, err := geometry.NewBox(f.dev, "box", 1, 1, 1)
	require.NoError(t, err)
	first := &listenedGeometry{Geometry: box}
	m, err := material.NewMaterial(f.dev, f.cache, f.shader, material.WithUniforms(
		material.NewVec4Uniform("color", 0, wgpu.ShaderStageFragment, material.Const(mgl32.Vec4{1, 1, 1, 1})),
	))
	require.NoError(t, err)
	d, err := NewDrawable(first, m)
	require.NoError(t, err)
	assert.Equal(t, 1, first.active)

	bigger, err := geometry.NewBox(f.dev, "bigger", 2, 2, 2)
	require.NoError(t, err)
	second := &listenedGeometry{Geometry: bigger}
	d.SetGeometry(second)
	assert.Equal(t, 0, first.active)
	assert.Equal(t, 1, second.active)

	d.SetGeometry(first)
	assert.Equal(t, 1, first.active)
	assert.Equal(t, 0, second.active)
}

func TestDestroy(t *testing.T) {
	f := newFixture(t)
	d := f.drawable(t, mgl32.Vec3{})
	require.NoError(t, d.Update(f.fs))

	d.Destroy()
	d.Destroy()

	assert.True(t, d.Destroyed())
	assert.True(t, d.Geometry().Destroyed())
	assert.True(t, d.Material().Destroyed())
	assert.ErrorIs(t, d.Update(f.fs), common.ErrDestroyed)
	_, err := d.DrawCommand()
	assert.ErrorIs(t, err, common.ErrDestroyed)
}
