// Package frame_state holds the per-frame snapshot every drawable reads while it updates: camera
// matrices, culling volume, viewport, pass color targets and the render queue being filled.
package frame_state

import (
	"time"

	"github.com/Carmen-Shannon/oxy-frame/common"
	"github.com/Carmen-Shannon/oxy-frame/engine/camera"
	"github.com/Carmen-Shannon/oxy-frame/engine/render_queue"
	"github.com/Carmen-Shannon/oxy-frame/engine/renderer/render_state"
	"github.com/cogentcore/webgpu/wgpu"
	"github.com/go-gl/mathgl/mgl32"
)

type frameState struct {
	frame uint64

	view           mgl32.Mat4
	projection     mgl32.Mat4
	viewProjection mgl32.Mat4
	cameraPosition mgl32.Vec3
	cullingVolume  common.Frustum

	viewport     render_state.Viewport
	colorTargets []wgpu.ColorTargetState
	queue        render_queue.RenderQueue

	now       func() time.Time
	start     time.Time
	last      time.Time
	elapsed   float32
	deltaTime float32
}

// FrameState is the per-frame context. It is refreshed once per frame by Update before any
// drawable reads it, and is used from a single goroutine.
type FrameState interface {
	// Update snapshots the camera, rebuilds the culling volume, advances the frame counter and
	// clock, and resets the render queue.
	//
	// Parameters:
	//   - cam: the camera to snapshot; its matrices must already be current
	Update(cam camera.Camera)

	// Frame returns the number of completed Update calls.
	Frame() uint64

	// ViewMatrix returns the camera view matrix snapshot.
	ViewMatrix() mgl32.Mat4

	// ProjectionMatrix returns the camera projection matrix snapshot.
	ProjectionMatrix() mgl32.Mat4

	// ViewProjectionMatrix returns the camera view-projection matrix snapshot.
	ViewProjectionMatrix() mgl32.Mat4

	// CameraPosition returns the camera eye position snapshot.
	CameraPosition() mgl32.Vec3

	// CullingVolume returns the frustum extracted from the view-projection snapshot.
	CullingVolume() common.Frustum

	// Viewport returns the viewport draws in this frame are recorded with.
	Viewport() render_state.Viewport

	// SetViewport sets the viewport for this and later frames.
	SetViewport(vp render_state.Viewport)

	// ColorTargets returns the color targets of the pass being recorded, or nil when materials
	// should fall back to the default target.
	ColorTargets() []wgpu.ColorTargetState

	// SetColorTargets sets the pass color targets for this and later frames.
	SetColorTargets(targets []wgpu.ColorTargetState)

	// Queue returns the render queue drawables push into.
	Queue() render_queue.RenderQueue

	// Time returns the seconds elapsed between the first and the latest Update.
	Time() float32

	// DeltaTime returns the seconds elapsed between the two latest Updates, 0 on the first frame.
	DeltaTime() float32
}

var _ FrameState = &frameState{}

// NewFrameState creates a FrameState with identity camera matrices.
//
// Parameters:
//   - viewport: the initial viewport
//   - options: functional options
//
// Returns:
//   - FrameState: the new frame state
func NewFrameState(viewport render_state.Viewport, options ...FrameStateBuilderOption) FrameState {
	fs := &frameState{
		view:           mgl32.Ident4(),
		projection:     mgl32.Ident4(),
		viewProjection: mgl32.Ident4(),
		viewport:       viewport,
		now:            time.Now,
	}
	for _, option := range options {
		option(fs)
	}
	if fs.queue == nil {
		fs.queue = render_queue.NewRenderQueue()
	}
	fs.cullingVolume = common.ExtractFrustumFromMatrix(fs.viewProjection)
	return fs
}

func (fs *frameState) Update(cam camera.Camera) {
	fs.view = cam.ViewMatrix()
	fs.projection = cam.ProjectionMatrix()
	fs.viewProjection = cam.ViewProjectionMatrix()
	fs.cameraPosition = cam.Position()
	fs.cullingVolume = common.ExtractFrustumFromMatrix(fs.viewProjection)

	now := fs.now()
	if fs.frame == 0 {
		fs.start = now
		fs.deltaTime = 0
	} else {
		fs.deltaTime = float32(now.Sub(fs.last).Seconds())
	}
	fs.last = now
	fs.elapsed = float32(now.Sub(fs.start).Seconds())

	fs.frame++
	fs.queue.Reset()
}

func (fs *frameState) Frame() uint64 {
	return fs.frame
}

func (fs *frameState) ViewMatrix() mgl32.Mat4 {
	return fs.view
}

func (fs *frameState) ProjectionMatrix() mgl32.Mat4 {
	return fs.projection
}

func (fs *frameState) ViewProjectionMatrix() mgl32.Mat4 {
	return fs.viewProjection
}

func (fs *frameState) CameraPosition() mgl32.Vec3 {
	return fs.cameraPosition
}

func (fs *frameState) CullingVolume() common.Frustum {
	return fs.cullingVolume
}

func (fs *frameState) Viewport() render_state.Viewport {
	return fs.viewport
}

func (fs *frameState) SetViewport(vp render_state.Viewport) {
	fs.viewport = vp
}

func (fs *frameState) ColorTargets() []wgpu.ColorTargetState {
	return fs.colorTargets
}

func (fs *frameState) SetColorTargets(targets []wgpu.ColorTargetState) {
	fs.colorTargets = targets
}

func (fs *frameState) Queue() render_queue.RenderQueue {
	return fs.queue
}

func (fs *frameState) Time() float32 {
	return fs.elapsed
}

func (fs *frameState) DeltaTime() float32 {
	return fs.deltaTime
}
