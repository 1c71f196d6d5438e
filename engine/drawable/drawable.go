// Package drawable joins a transform, a geometry and a material into something the render queue
// can sort and the renderer can draw.
package drawable

import (
	"fmt"
	"slices"
	"sync"

	"github.com/Carmen-Shannon/oxy-frame/common"
	"github.com/Carmen-Shannon/oxy-frame/engine/frame_state"
	"github.com/Carmen-Shannon/oxy-frame/engine/geometry"
	"github.com/Carmen-Shannon/oxy-frame/engine/render_queue"
	"github.com/Carmen-Shannon/oxy-frame/engine/renderer/draw_command"
	"github.com/Carmen-Shannon/oxy-frame/engine/renderer/gpu"
	"github.com/Carmen-Shannon/oxy-frame/engine/renderer/material"
	"github.com/Carmen-Shannon/oxy-frame/engine/transform"
)

type drawable struct {
	transform.Transform

	mu *sync.Mutex

	label     string
	geometry  geometry.Geometry
	unlisten  func()
	material  material.Material
	priority  int
	instances uint32

	distance    float32
	visibility  common.Intersect
	command     *draw_command.DrawCommand
	invalidated bool
	destroyed   bool
}

// Drawable is a renderable scene object. It embeds its Transform and owns exactly one Geometry
// and one Material; Destroy destroys both.
//
// The draw command is built lazily and reused across frames until the material reports Dirty
// or an invalidation event is raised by SetGeometry, SetInstances, the geometry's buffer setters,
// or the material's shader, render-state and defines setters.
type Drawable interface {
	transform.Transform
	render_queue.Renderable

	// Label returns the debug label.
	Label() string

	// Geometry returns the geometry.
	Geometry() geometry.Geometry

	// SetGeometry replaces the geometry and invalidates the draw command. The previous geometry
	// is not destroyed, and the drawable stops listening to it.
	SetGeometry(g geometry.Geometry)

	// Material returns the material.
	Material() material.Material

	// SetPriority sets the sort priority. Lower priorities are drawn first.
	SetPriority(priority int)

	// Instances returns the instance count, 0 meaning a single instance.
	Instances() uint32

	// SetInstances sets the instance count and invalidates the draw command.
	SetInstances(instances uint32)

	// Visibility returns the culling result of the last Update.
	Visibility() common.Intersect

	// Invalidate forces the draw command to be rebuilt on next use.
	Invalidate()

	// Update prepares the drawable for this frame and queues it when it is not culled.
	// Steps run in this order: model matrix, normal matrix against the frame's view, geometry
	// update, material update, world bounding sphere, camera distance, and frustum visibility.
	// A drawable entirely outside the frustum is not queued; otherwise it goes to the
	// transparent or opaque bucket of fs.Queue() according to the material.
	//
	// Parameters:
	//   - fs: the frame state for this frame
	//
	// Returns:
	//   - error: common.ErrDestroyed after Destroy, or the first geometry, material or queue error
	Update(fs frame_state.FrameState) error

	// Destroy destroys the geometry and the material.
	Destroy()

	// Destroyed reports whether Destroy has been called.
	Destroyed() bool
}

var _ Drawable = &drawable{}

// NewDrawable creates a Drawable from a geometry and a material, registering for their
// invalidation events.
//
// Parameters:
//   - g: the geometry
//   - m: the material
//   - options: functional options
//
// Returns:
//   - Drawable: the new drawable
//   - error: common.ErrConfiguration when g or m is nil
func NewDrawable(g geometry.Geometry, m material.Material, options ...DrawableBuilderOption) (Drawable, error) {
	if g == nil || m == nil {
		return nil, fmt.Errorf("%w: drawable needs a geometry and a material", common.ErrConfiguration)
	}
	d := &drawable{
		mu:       &sync.Mutex{},
		label:    g.Label(),
		geometry: g,
		material: m,
	}
	for _, option := range options {
		option(d)
	}
	if d.Transform == nil {
		d.Transform = transform.NewTransform()
	}

	d.unlisten = g.OnInvalidate(d.geometryInvalidated(g))
	m.OnInvalidate(d.Invalidate)
	return d, nil
}

// geometryInvalidated returns a listener that only invalidates while g is still the geometry.
func (d *drawable) geometryInvalidated(g geometry.Geometry) func() {
	return func() {
		d.mu.Lock()
		defer d.mu.Unlock()
		if d.geometry == g {
			d.invalidated = true
		}
	}
}

func (d *drawable) Label() string {
	return d.label
}

func (d *drawable) Geometry() geometry.Geometry {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.geometry
}

func (d *drawable) SetGeometry(g geometry.Geometry) {
	if g == nil {
		return
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	d.unlisten()
	d.geometry = g
	d.invalidated = true
	d.unlisten = g.OnInvalidate(d.geometryInvalidated(g))
}

func (d *drawable) Material() material.Material {
	return d.material
}

func (d *drawable) Priority() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.priority
}

func (d *drawable) SetPriority(priority int) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.priority = priority
}

func (d *drawable) Instances() uint32 {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.instances
}

func (d *drawable) SetInstances(instances uint32) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.instances = instances
	d.invalidated = true
}

func (d *drawable) DistanceToCamera() float32 {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.distance
}

func (d *drawable) Visibility() common.Intersect {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.visibility
}

func (d *drawable) Invalidate() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.invalidated = true
}

func (d *drawable) Update(fs frame_state.FrameState) error {
	if d.Destroyed() {
		return fmt.Errorf("%w: drawable %q", common.ErrDestroyed, d.label)
	}

	d.UpdateMatrix()
	d.UpdateNormalMatrix(fs.ViewMatrix())

	g := d.Geometry()
	if err := g.Update(fs); err != nil {
		return fmt.Errorf("drawable %q: %w", d.label, err)
	}
	if err := d.material.Update(fs, d); err != nil {
		return fmt.Errorf("drawable %q: %w", d.label, err)
	}

	sphere := g.BoundingSphere()
	sphere.Update(d.ModelMatrix())
	distance := sphere.DistanceToCamera(fs)
	visibility := fs.CullingVolume().ComputeVisibility(sphere)

	d.mu.Lock()
	d.distance = distance
	d.visibility = visibility
	d.mu.Unlock()

	if visibility == common.IntersectOutside {
		return nil
	}
	if d.material.Transparent() {
		return fs.Queue().PushTransparent(d)
	}
	return fs.Queue().PushOpaque(d)
}

func (d *drawable) DrawCommand() (*draw_command.DrawCommand, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.destroyed {
		return nil, fmt.Errorf("%w: drawable %q", common.ErrDestroyed, d.label)
	}

	materialDirty := d.material.Dirty()
	if d.command != nil && !materialDirty && !d.invalidated {
		return d.command, nil
	}

	cmd, err := d.buildCommand()
	if err != nil {
		return nil, err
	}
	if materialDirty {
		d.material.ClearDirty()
	}
	d.command = cmd
	d.invalidated = false
	return cmd, nil
}

// buildCommand captures the current geometry and material state. Caller must hold the mutex.
func (d *drawable) buildCommand() (*draw_command.DrawCommand, error) {
	g := d.geometry

	vertexBuffers := make([]gpu.Buffer, 0, len(g.VertexBuffers()))
	for _, b := range g.VertexBuffers() {
		handle, err := b.GPU()
		if err != nil {
			return nil, fmt.Errorf("drawable %q: %w", d.label, err)
		}
		vertexBuffers = append(vertexBuffers, handle)
	}

	var indexBuffer gpu.Buffer
	if b := g.IndexBuffer(); b != nil {
		handle, err := b.GPU()
		if err != nil {
			return nil, fmt.Errorf("drawable %q: %w", d.label, err)
		}
		indexBuffer = handle
	}

	variant := d.material.Variant()
	layouts := g.VertexLayouts()
	if len(layouts) == 0 && variant != nil {
		layouts = variant.VertexLayouts
	}

	return &draw_command.DrawCommand{
		Type:          draw_command.CommandTypeRender,
		VertexBuffers: vertexBuffers,
		VertexLayouts: slices.Clone(layouts),
		IndexBuffer:   indexBuffer,
		IndexFormat:   g.IndexFormat(),
		Shader:        variant,
		BindGroups:    d.material.BindGroups(),
		RenderState:   d.material.RenderState(),
		Topology:      g.Topology(),
		Instances:     d.instances,
		Count:         g.Count(),
		Owner:         d,
		MaterialType:  d.material.Type(),
	}, nil
}

func (d *drawable) Destroy() {
	d.mu.Lock()
	if d.destroyed {
		d.mu.Unlock()
		return
	}
	d.destroyed = true
	d.command = nil
	g := d.geometry
	d.mu.Unlock()

	g.Destroy()
	d.material.Destroy()
}

func (d *drawable) Destroyed() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.destroyed
}
