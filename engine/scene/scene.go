// Package scene drives one frame: it refreshes the frame state, updates and culls every drawable
// into the render queue, sorts it and hands the batch to the renderer.
package scene

import (
	"context"
	"errors"
	"fmt"
	"runtime"
	"slices"
	"sync"
	"time"

	"github.com/Carmen-Shannon/automation/tools/worker"
	"github.com/Carmen-Shannon/oxy-frame/common"
	"github.com/Carmen-Shannon/oxy-frame/engine/camera"
	"github.com/Carmen-Shannon/oxy-frame/engine/drawable"
	"github.com/Carmen-Shannon/oxy-frame/engine/frame_state"
	"github.com/Carmen-Shannon/oxy-frame/engine/renderer"
	"github.com/Carmen-Shannon/oxy-frame/engine/renderer/render_state"
	"github.com/Carmen-Shannon/oxy-frame/engine/renderer/shader"
	"github.com/cogentcore/webgpu/wgpu"
)

// Scene owns a list of drawables, a camera and the frame state they are rendered with.
// Scenes can be hot-swapped via the Active flag. Render runs on a single goroutine; the
// list accessors are safe to call from others.
type Scene interface {
	// Name returns the scene's identifier.
	Name() string

	// Active returns whether this scene is currently active for rendering.
	Active() bool

	// SetActive sets whether this scene is active for rendering.
	SetActive(active bool)

	// Camera returns the scene's camera, or nil.
	Camera() camera.Camera

	// SetCamera replaces the scene's camera and fits its aspect ratio to the viewport.
	//
	// Parameters:
	//   - cam: the new camera
	SetCamera(cam camera.Camera)

	// Renderer returns the renderer the scene submits to.
	Renderer() renderer.Renderer

	// FrameState returns the frame state drawables are updated with.
	FrameState() frame_state.FrameState

	// SetViewport resizes the frame viewport and the camera aspect ratio.
	//
	// Parameters:
	//   - width, height: the viewport size in pixels; non-positive sizes are ignored
	SetViewport(width, height int)

	// Add appends drawables to the scene. Drawables already in the scene are skipped.
	//
	// Parameters:
	//   - drawables: the drawables to add
	Add(drawables ...drawable.Drawable)

	// Remove detaches d from the scene without destroying it.
	//
	// Parameters:
	//   - d: the drawable to remove
	//
	// Returns:
	//   - bool: true if d was in the scene
	Remove(d drawable.Drawable) bool

	// Contains reports whether d is in the scene.
	Contains(d drawable.Drawable) bool

	// Drawables returns a copy of the drawable list in insertion order.
	Drawables() []drawable.Drawable

	// Len returns the number of drawables in the scene.
	Len() int

	// Precompile compiles every distinct shader variant the scene's materials select, in
	// parallel on the scene's worker pool, so the first frame does not stall on them.
	//
	// Parameters:
	//   - ctx: cancels variants not yet submitted
	//
	// Returns:
	//   - error: every compile error joined, or the context error
	Precompile(ctx context.Context) error

	// Render draws one frame: camera and frame state refresh, system resources upload,
	// drawable updates and culling, queue sort, and one batched submission.
	//
	// Parameters:
	//   - ctx: checked before the frame starts; a started frame runs to completion
	//
	// Returns:
	//   - error: common.ErrUsage when the scene has no camera, or the first update or
	//     submission error; the frame is dropped on error
	Render(ctx context.Context) error

	// Destroy destroys every drawable and empties the scene.
	Destroy()
}

// scene is the implementation of the Scene interface.
type scene struct {
	mu *sync.RWMutex

	name   string
	active bool

	cam       camera.Camera
	r         renderer.Renderer
	fs        frame_state.FrameState
	drawables []drawable.Drawable

	precompilePool    worker.DynamicWorkerPool
	precompileWorkers int
}

var _ Scene = &scene{}

// NewScene creates a Scene that renders through r. The frame state is created with the
// device surface size as its viewport and the surface format as its color target.
//
// Parameters:
//   - name: the name of the scene
//   - r: the renderer to submit to
//   - options: functional options to further configure the scene
//
// Returns:
//   - Scene: the newly created scene
//   - error: an error wrapping common.ErrConfiguration if r is nil
func NewScene(name string, r renderer.Renderer, options ...SceneBuilderOption) (Scene, error) {
	if r == nil {
		return nil, fmt.Errorf("%w: scene %q needs a renderer", common.ErrConfiguration, name)
	}

	device := r.Device()
	width, height := device.Size()
	s := &scene{
		mu:                &sync.RWMutex{},
		name:              name,
		active:            true,
		r:                 r,
		precompileWorkers: max(runtime.NumCPU()-1, 1),
		fs: frame_state.NewFrameState(render_state.NewViewport(width, height),
			frame_state.WithColorTargets([]wgpu.ColorTargetState{{
				Format:    device.SurfaceFormat(),
				WriteMask: wgpu.ColorWriteMaskAll,
			}}),
		),
	}
	for _, option := range options {
		option(s)
	}

	// Queue size of 256 covers typical variant counts with headroom.
	s.precompilePool = worker.NewDynamicWorkerPool(s.precompileWorkers, 256, 1*time.Second)

	if s.cam != nil {
		s.fitCamera()
	}
	return s, nil
}

func (s *scene) Name() string {
	return s.name
}

func (s *scene) Active() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.active
}

func (s *scene) SetActive(active bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.active = active
}

func (s *scene) Camera() camera.Camera {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.cam
}

func (s *scene) SetCamera(cam camera.Camera) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cam = cam
	if cam != nil {
		s.fitCamera()
	}
}

// fitCamera matches the camera aspect to the viewport. Caller must hold the mutex.
func (s *scene) fitCamera() {
	vp := s.fs.Viewport()
	if vp.Height > 0 {
		s.cam.SetAspect(vp.Width / vp.Height)
	}
}

func (s *scene) Renderer() renderer.Renderer {
	return s.r
}

func (s *scene) FrameState() frame_state.FrameState {
	return s.fs
}

func (s *scene) SetViewport(width, height int) {
	if width <= 0 || height <= 0 {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.fs.SetViewport(render_state.NewViewport(width, height))
	if s.cam != nil {
		s.fitCamera()
	}
}

func (s *scene) Add(drawables ...drawable.Drawable) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, d := range drawables {
		if d == nil || slices.Contains(s.drawables, d) {
			continue
		}
		s.drawables = append(s.drawables, d)
	}
}

func (s *scene) Remove(d drawable.Drawable) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	i := slices.Index(s.drawables, d)
	if i < 0 {
		return false
	}
	s.drawables = slices.Delete(s.drawables, i, i+1)
	return true
}

func (s *scene) Contains(d drawable.Drawable) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return slices.Contains(s.drawables, d)
}

func (s *scene) Drawables() []drawable.Drawable {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return slices.Clone(s.drawables)
}

func (s *scene) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.drawables)
}

// variantRequest is one shader specialization to compile.
type variantRequest struct {
	shader  shader.Shader
	defines map[string]string
}

func (s *scene) Precompile(ctx context.Context) error {
	requests := make(map[string]variantRequest)
	for _, d := range s.Drawables() {
		m := d.Material()
		sh := m.Shader()
		defines := m.Defines()
		requests[sh.VariantKey(defines)] = variantRequest{shader: sh, defines: defines}
	}

	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		errs      []error
		cancelErr error
	)
	id := 0
	for key, req := range requests {
		if cancelErr = ctx.Err(); cancelErr != nil {
			break
		}
		wg.Add(1)
		s.precompilePool.SubmitTask(worker.Task{
			ID: id,
			Do: func() (any, error) {
				defer wg.Done()
				_, err := req.shader.Variant(req.defines)
				if err != nil {
					mu.Lock()
					errs = append(errs, fmt.Errorf("variant %q: %w", key, err))
					mu.Unlock()
				}
				return nil, err
			},
		})
		id++
	}
	wg.Wait()
	if cancelErr != nil {
		errs = append(errs, cancelErr)
	}

	common.Logger().Debug("scene precompiled", "scene", s.name, "variants", len(requests), "errors", len(errs))
	return errors.Join(errs...)
}

func (s *scene) Render(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.cam == nil {
		return fmt.Errorf("%w: scene %q has no camera", common.ErrUsage, s.name)
	}

	s.cam.Update()
	s.fs.Update(s.cam)
	if err := s.r.UpdateSystemResources(s.fs); err != nil {
		return fmt.Errorf("failed to update system resources: %w", err)
	}

	live := s.drawables[:0]
	for _, d := range s.drawables {
		if d.Destroyed() {
			common.Logger().Debug("dropping destroyed drawable", "scene", s.name, "drawable", d.Label())
			continue
		}
		live = append(live, d)
	}
	clear(s.drawables[len(live):])
	s.drawables = live

	for _, d := range s.drawables {
		if err := d.Update(s.fs); err != nil {
			return fmt.Errorf("failed to update drawable %q: %w", d.Label(), err)
		}
	}

	q := s.fs.Queue()
	if err := q.Sort(); err != nil {
		return err
	}
	return s.r.RenderQueue(q)
}

func (s *scene) Destroy() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, d := range s.drawables {
		d.Destroy()
	}
	s.drawables = nil
}
