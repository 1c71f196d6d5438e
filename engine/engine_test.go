package engine

import (
	"context"
	"testing"
	"time"

	"github.com/Carmen-Shannon/oxy-frame/common"
	"github.com/Carmen-Shannon/oxy-frame/engine/camera"
	"github.com/Carmen-Shannon/oxy-frame/engine/config"
	"github.com/Carmen-Shannon/oxy-frame/engine/drawable"
	"github.com/Carmen-Shannon/oxy-frame/engine/geometry"
	"github.com/Carmen-Shannon/oxy-frame/engine/renderer"
	"github.com/Carmen-Shannon/oxy-frame/engine/renderer/gpu/gputest"
	"github.com/Carmen-Shannon/oxy-frame/engine/renderer/material"
	"github.com/Carmen-Shannon/oxy-frame/engine/renderer/shader"
	"github.com/Carmen-Shannon/oxy-frame/engine/scene"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSource = camera.GPUCameraUniformSource + `
@group(0) @binding(0) var<uniform> cam: CameraUniform;

@vertex
fn vs_main(@location(0) position: vec3<f32>) -> @builtin(position) vec4<f32> {
    return cam.view_proj * vec4<f32>(position, 1.0);
}

@fragment
fn fs_main() -> @location(0) vec4<f32> {
    return vec4<f32>(1.0);
}
`

func newTestEngine(t *testing.T, options ...EngineBuilderOption) (*engine, *gputest.Device) {
	t.Helper()
	dev := gputest.NewDevice()
	e, err := NewEngine(append([]EngineBuilderOption{WithRenderer(renderer.NewRenderer(dev))}, options...)...)
	require.NoError(t, err)
	return e.(*engine), dev
}

func cubeScene(t *testing.T, r renderer.Renderer, name string) scene.Scene {
	t.Helper()
	sh, err := shader.NewShader(name, testSource)
	require.NoError(t, err)
	g, err := geometry.NewBox(r.Device(), name, 1, 1, 1)
	require.NoError(t, err)
	m, err := material.NewMaterial(r.Device(), r.BindGroupCache(), sh, material.WithRenderDefaults(r.RenderDefaults()))
	require.NoError(t, err)
	d, err := drawable.NewDrawable(g, m)
	require.NoError(t, err)

	cam := camera.NewCamera(camera.WithController(camera.NewOrbitController(camera.WithRadius(5))))
	s, err := scene.NewScene(name, r, scene.WithCamera(cam), scene.WithDrawables(d))
	require.NoError(t, err)
	return s
}

func TestNewEngineWithRenderer(t *testing.T) {
	e, _ := newTestEngine(t)
	assert.Nil(t, e.Window())
	assert.NotNil(t, e.Renderer())
	assert.Equal(t, time.Second/60, e.engineTickRate)
}

func TestRunWithoutWindow(t *testing.T) {
	e, _ := newTestEngine(t)
	assert.ErrorIs(t, e.Run(), common.ErrUsage)
}

func TestWithConfig(t *testing.T) {
	cfg := config.Default()
	cfg.Renderer.TickRate = 30
	cfg.Renderer.FrameLimit = 120
	cfg.Renderer.Profiling = true

	e, _ := newTestEngine(t, WithConfig(cfg))
	assert.Equal(t, time.Second/30, e.engineTickRate)
	assert.Equal(t, time.Duration(float64(time.Second)/120), e.renderFrameLimit)
	assert.True(t, e.profilingEnabled)
}

func TestScenesLayerInKeyOrder(t *testing.T) {
	e, dev := newTestEngine(t)
	r := e.Renderer()
	e.AddScene(10, cubeScene(t, r, "overlay"))
	e.AddScene(0, cubeScene(t, r, "world"))

	e.renderFrame(t.Context())

	passes := dev.CallsOf("BeginRenderPass")
	require.Len(t, passes, 2)
	assert.Equal(t, []any{"clear", "depth:clear"}, passes[0].Args, "lowest key clears the image")
	assert.Equal(t, []any{"load", "depth:load"}, passes[1].Args, "later scenes draw over it")
	assert.Equal(t, 2, dev.Count("Submit"))
	assert.Equal(t, 1, dev.Presented())
}

func TestInactiveScenesAreSkipped(t *testing.T) {
	e, dev := newTestEngine(t)
	s := cubeScene(t, e.Renderer(), "hidden")
	s.SetActive(false)
	e.AddScene(0, s)

	e.renderFrame(t.Context())
	assert.Zero(t, dev.Count("CreateCommandEncoder"))
	assert.Zero(t, dev.Presented())
}

func TestFailedSceneIsDropped(t *testing.T) {
	e, dev := newTestEngine(t)
	broken, err := scene.NewScene("broken", e.Renderer())
	require.NoError(t, err)
	e.AddScene(0, broken)
	e.AddScene(1, cubeScene(t, e.Renderer(), "world"))

	e.renderFrame(t.Context())
	assert.Equal(t, uint64(1), e.FrameErrors())
	assert.Equal(t, 1, dev.Count("Submit"))
	assert.Equal(t, 1, dev.Presented(), "healthy scenes still present")
}

func TestResizeUpdatesDeviceAndScenes(t *testing.T) {
	e, dev := newTestEngine(t)
	s := cubeScene(t, e.Renderer(), "world")
	e.AddScene(0, s)

	e.resize(1024, 512)
	w, h := dev.Size()
	assert.Equal(t, 1024, w)
	assert.Equal(t, 512, h)
	assert.InDelta(t, 2.0, s.Camera().Aspect(), 1e-6)

	e.resize(0, 0)
	assert.Equal(t, 1, dev.Count("Resize"), "minimized windows are ignored")
}

func TestSceneRegistry(t *testing.T) {
	e, _ := newTestEngine(t)
	s := cubeScene(t, e.Renderer(), "world")
	e.AddScene(3, s)
	assert.Equal(t, s, e.Scene(3))

	scenes := e.Scenes()
	delete(scenes, 3)
	assert.Equal(t, s, e.Scene(3), "Scenes returns a copy")

	e.RemoveScene(3)
	assert.Nil(t, e.Scene(3))
}

func TestSetTickRateBeforeRun(t *testing.T) {
	e, _ := newTestEngine(t)
	e.SetTickRate(0)
	assert.Equal(t, time.Second/60, e.engineTickRate)
	e.SetTickRate(120)
	assert.Equal(t, time.Duration(float64(time.Second)/120), e.engineTickRate)
}

func TestQuitIsIdempotent(t *testing.T) {
	e, _ := newTestEngine(t)
	e.Quit()
	e.Quit()
	assert.ErrorIs(t, e.ctx.Err(), context.Canceled)
}
