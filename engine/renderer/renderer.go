// Package renderer encodes draw commands into GPU passes and submits them, one queue submission
// per frame.
package renderer

import (
	"cmp"
	"fmt"
	"slices"
	"sync"

	"github.com/Carmen-Shannon/oxy-frame/common"
	"github.com/Carmen-Shannon/oxy-frame/engine/frame_state"
	"github.com/Carmen-Shannon/oxy-frame/engine/render_queue"
	"github.com/Carmen-Shannon/oxy-frame/engine/renderer/bind_group_cache"
	"github.com/Carmen-Shannon/oxy-frame/engine/renderer/draw_command"
	"github.com/Carmen-Shannon/oxy-frame/engine/renderer/gpu"
	"github.com/Carmen-Shannon/oxy-frame/engine/renderer/pipeline"
	"github.com/Carmen-Shannon/oxy-frame/engine/renderer/render_state"
	"github.com/cogentcore/webgpu/wgpu"
)

// FrameStats counts what the last completed frame encoded.
type FrameStats struct {
	Frames      uint64
	RenderPass  int
	ComputePass int
	DrawCalls   int
	Dispatches  int
}

// renderer is the implementation of the Renderer interface.
type renderer struct {
	mu *sync.Mutex

	device     gpu.Device
	bindGroups bind_group_cache.Cache
	pipelines  pipeline.Cache
	defaults   render_state.RenderDefaults

	clearColor wgpu.Color
	clearDepth float32

	systemGroups map[uint32]*bind_group_cache.BindGroup
	camera       *cameraResources

	encoder gpu.CommandEncoder
	current FrameStats
	last    FrameStats

	// surfaceCleared is set once a pass has cleared the acquired surface image.
	surfaceCleared bool
	clearedAtBegin bool
}

// Renderer is the device submission context. Commands are only accepted between BeginFrame and
// EndFrame; every Submit encodes its own pass into the frame's single command encoder, and
// EndFrame makes exactly one queue submission.
//
// The first render pass after a Present clears the surface and depth attachment, later passes
// load them, so scenes rendered as separate frames before one Present layer over each other. Bind groups are bound as the command's groups merged with the system groups, ordered by
// group index; a command group replaces a system group at the same index.
//
// A Renderer is meant to be driven from one goroutine, one frame at a time.
type Renderer interface {
	// Device returns the device commands are submitted to.
	Device() gpu.Device

	// BindGroupCache returns the bind group cache shared by materials and the system groups.
	BindGroupCache() bind_group_cache.Cache

	// PipelineCache returns the pipeline cache.
	PipelineCache() pipeline.Cache

	// RenderDefaults returns the render-state defaults materials are created with.
	RenderDefaults() render_state.RenderDefaults

	// SetClearColor sets the color the first render pass of each frame clears to.
	SetClearColor(c wgpu.Color)

	// SystemBindGroups returns the renderer-wide bind groups ordered by index.
	SystemBindGroups() []*bind_group_cache.BindGroup

	// SetSystemBindGroup binds g at its index for every command, replacing the group already there.
	SetSystemBindGroup(g *bind_group_cache.BindGroup)

	// RemoveSystemBindGroup stops binding the system group at index.
	RemoveSystemBindGroup(index uint32)

	// UpdateSystemResources writes the frame's camera into the camera system group.
	UpdateSystemResources(fs frame_state.FrameState) error

	// BeginFrame opens the frame scope and its command encoder.
	//
	// Returns:
	//   - error: common.ErrUsage if a frame is already open, or an encoder creation error
	BeginFrame() error

	// Submit encodes cmd as one pass: begin, pipeline, pass state, vertex and index buffers,
	// bind groups, then exactly one draw, indexed draw or dispatch, and end.
	//
	// Parameters:
	//   - cmd: the command to encode
	//
	// Returns:
	//   - error: common.ErrUsage outside a frame or for an invalid command, or a pipeline or
	//     surface error; no pass is left open on error
	Submit(cmd *draw_command.DrawCommand) error

	// EndFrame finishes the encoder and submits it to the device queue.
	//
	// Returns:
	//   - error: common.ErrUsage if no frame is open, or an encoder error
	EndFrame() error

	// Render encodes and submits a single command in its own frame.
	Render(cmd *draw_command.DrawCommand) error

	// RenderQueue submits the opaque, transparent and compute buckets of q in that order inside
	// one frame. If any command fails the frame is dropped without a submission.
	//
	// Parameters:
	//   - q: the sorted render queue
	//
	// Returns:
	//   - error: the first error, wrapped with the failing bucket
	RenderQueue(q render_queue.RenderQueue) error

	// Stats returns the counters of the last completed frame.
	Stats() FrameStats

	// Present presents the surface image rendered since the last Present.
	Present()

	// Resize reconfigures the surface for a new size.
	Resize(width, height int)

	// Release frees the system resources and every cached pipeline and bind group.
	Release()
}

var _ Renderer = &renderer{}

// NewRenderer creates a Renderer that submits to device.
//
// Parameters:
//   - device: the GPU device, usually from gpu.NewWGPUDevice
//   - options: variadic list of RendererBuilderOption functions to configure the Renderer
//
// Returns:
//   - Renderer: the new renderer
func NewRenderer(device gpu.Device, options ...RendererBuilderOption) Renderer {
	r := &renderer{
		mu:           &sync.Mutex{},
		device:       device,
		defaults:     render_state.DefaultRenderDefaults(),
		clearColor:   wgpu.Color{R: 0, G: 0, B: 0, A: 1},
		clearDepth:   1,
		systemGroups: make(map[uint32]*bind_group_cache.BindGroup),
	}
	for _, opt := range options {
		opt(r)
	}
	if r.bindGroups == nil {
		r.bindGroups = bind_group_cache.NewCache(device)
	}
	if r.pipelines == nil {
		r.pipelines = pipeline.NewCache(device, pipeline.WithDepthAttachment(device.DepthTextureView() != nil))
	}
	return r
}

func (r *renderer) Device() gpu.Device {
	return r.device
}

func (r *renderer) BindGroupCache() bind_group_cache.Cache {
	return r.bindGroups
}

func (r *renderer) PipelineCache() pipeline.Cache {
	return r.pipelines
}

func (r *renderer) RenderDefaults() render_state.RenderDefaults {
	return r.defaults
}

func (r *renderer) SetClearColor(c wgpu.Color) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.clearColor = c
}

func (r *renderer) SystemBindGroups() []*bind_group_cache.BindGroup {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.systemBindGroups()
}

func (r *renderer) systemBindGroups() []*bind_group_cache.BindGroup {
	groups := make([]*bind_group_cache.BindGroup, 0, len(r.systemGroups))
	for _, g := range r.systemGroups {
		groups = append(groups, g)
	}
	slices.SortFunc(groups, byIndex)
	return groups
}

func (r *renderer) SetSystemBindGroup(g *bind_group_cache.BindGroup) {
	if g == nil {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.systemGroups[g.Index] = g
}

func (r *renderer) RemoveSystemBindGroup(index uint32) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.systemGroups, index)
}

func (r *renderer) BeginFrame() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.beginFrame()
}

func (r *renderer) beginFrame() error {
	if r.encoder != nil {
		return fmt.Errorf("%w: frame already open", common.ErrUsage)
	}
	encoder, err := r.device.CreateCommandEncoder("Frame Encoder")
	if err != nil {
		return fmt.Errorf("failed to begin frame: %w", err)
	}
	r.encoder = encoder
	r.clearedAtBegin = r.surfaceCleared
	r.current = FrameStats{Frames: r.last.Frames}
	return nil
}

func (r *renderer) Submit(cmd *draw_command.DrawCommand) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.submit(cmd)
}

func (r *renderer) submit(cmd *draw_command.DrawCommand) error {
	if r.encoder == nil {
		return fmt.Errorf("%w: submit outside of a frame", common.ErrUsage)
	}
	if cmd == nil {
		return fmt.Errorf("%w: nil command", common.ErrUsage)
	}
	if err := cmd.Validate(); err != nil {
		return err
	}

	groups := r.mergeBindGroups(cmd.BindGroups)
	p, err := r.pipelines.Acquire(cmd, groups)
	if err != nil {
		return err
	}

	switch cmd.Type {
	case draw_command.CommandTypeCompute:
		return r.encodeCompute(cmd, p, groups)
	default:
		return r.encodeRender(cmd, p, groups)
	}
}

// mergeBindGroups returns the system groups overlaid with the command's groups, sorted by index.
func (r *renderer) mergeBindGroups(commandGroups []*bind_group_cache.BindGroup) []*bind_group_cache.BindGroup {
	byIdx := make(map[uint32]*bind_group_cache.BindGroup, len(r.systemGroups)+len(commandGroups))
	for index, g := range r.systemGroups {
		byIdx[index] = g
	}
	for _, g := range commandGroups {
		byIdx[g.Index] = g
	}
	merged := make([]*bind_group_cache.BindGroup, 0, len(byIdx))
	for _, g := range byIdx {
		merged = append(merged, g)
	}
	slices.SortFunc(merged, byIndex)
	return merged
}

func byIndex(a, b *bind_group_cache.BindGroup) int {
	return cmp.Compare(a.Index, b.Index)
}

func (r *renderer) encodeRender(cmd *draw_command.DrawCommand, p pipeline.Pipeline, groups []*bind_group_cache.BindGroup) error {
	view, err := r.device.CurrentTextureView()
	if err != nil {
		return fmt.Errorf("failed to acquire surface: %w", err)
	}

	loadOp := wgpu.LoadOpClear
	if r.surfaceCleared {
		loadOp = wgpu.LoadOpLoad
	}
	desc := &gpu.RenderPassDescriptor{
		Label: "Render Pass",
		ColorAttachments: []gpu.ColorAttachment{{
			View:       view,
			LoadOp:     loadOp,
			StoreOp:    wgpu.StoreOpStore,
			ClearValue: r.clearColor,
		}},
	}
	if depth := r.device.DepthTextureView(); depth != nil {
		desc.DepthAttachment = &gpu.DepthAttachment{
			View:       depth,
			LoadOp:     loadOp,
			StoreOp:    wgpu.StoreOpStore,
			ClearValue: r.clearDepth,
		}
	}

	pass := r.encoder.BeginRenderPass(desc)
	r.surfaceCleared = true
	r.current.RenderPass++

	pass.SetPipeline(p.RenderPipeline())

	rs := cmd.RenderState
	vp := rs.Viewport
	pass.SetViewport(vp.X, vp.Y, vp.Width, vp.Height, vp.MinDepth, vp.MaxDepth)
	pass.SetBlendConstant(rs.BlendConstant)
	pass.SetStencilReference(rs.StencilReference)

	for slot, buf := range cmd.VertexBuffers {
		pass.SetVertexBuffer(uint32(slot), buf, 0, wgpu.WholeSize)
	}
	if cmd.IndexBuffer != nil {
		pass.SetIndexBuffer(cmd.IndexBuffer, cmd.IndexFormat, 0, wgpu.WholeSize)
	}
	for _, g := range groups {
		pass.SetBindGroup(g.Index, g.GPU, nil)
	}

	if cmd.IndexBuffer != nil {
		pass.DrawIndexed(cmd.Count, cmd.InstanceCount(), 0, 0, 0)
	} else {
		pass.Draw(cmd.Count, cmd.InstanceCount(), 0, 0)
	}
	r.current.DrawCalls++

	pass.End()
	return nil
}

func (r *renderer) encodeCompute(cmd *draw_command.DrawCommand, p pipeline.Pipeline, groups []*bind_group_cache.BindGroup) error {
	workgroups, err := cmd.Workgroups()
	if err != nil {
		return err
	}

	pass := r.encoder.BeginComputePass("Compute Pass")
	r.current.ComputePass++

	pass.SetPipeline(p.ComputePipeline())
	for _, g := range groups {
		pass.SetBindGroup(g.Index, g.GPU, nil)
	}
	pass.DispatchWorkgroups(workgroups[0], workgroups[1], workgroups[2])
	r.current.Dispatches++

	pass.End()
	return nil
}

func (r *renderer) EndFrame() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.endFrame()
}

func (r *renderer) endFrame() error {
	if r.encoder == nil {
		return fmt.Errorf("%w: no frame open", common.ErrUsage)
	}
	encoder := r.encoder
	r.encoder = nil
	defer encoder.Release()

	commands, err := encoder.Finish()
	if err != nil {
		return fmt.Errorf("failed to finish frame: %w", err)
	}
	r.device.Submit(commands)
	commands.Release()

	r.current.Frames++
	r.last = r.current
	return nil
}

// abortFrame drops the open frame without submitting it. A clear encoded by the dropped frame
// never runs, so the next pass clears again.
func (r *renderer) abortFrame() {
	if r.encoder == nil {
		return
	}
	r.encoder.Release()
	r.encoder = nil
	r.surfaceCleared = r.clearedAtBegin
}

func (r *renderer) Render(cmd *draw_command.DrawCommand) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if err := r.beginFrame(); err != nil {
		return err
	}
	if err := r.submit(cmd); err != nil {
		r.abortFrame()
		return err
	}
	return r.endFrame()
}

func (r *renderer) RenderQueue(q render_queue.RenderQueue) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if err := r.beginFrame(); err != nil {
		return err
	}
	buckets := []struct {
		name  string
		items []render_queue.Renderable
	}{
		{"opaque", q.Opaque()},
		{"transparent", q.Transparent()},
		{"compute", q.Compute()},
	}
	for _, bucket := range buckets {
		for _, item := range bucket.items {
			cmd, err := item.DrawCommand()
			if err == nil {
				err = r.submit(cmd)
			}
			if err != nil {
				r.abortFrame()
				return fmt.Errorf("%s bucket: %w", bucket.name, err)
			}
		}
	}
	return r.endFrame()
}

func (r *renderer) Stats() FrameStats {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.last
}

func (r *renderer) Present() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.device.Present()
	r.surfaceCleared = false
}

func (r *renderer) Resize(width, height int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.device.Resize(width, height)
	r.surfaceCleared = false
}

func (r *renderer) Release() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.abortFrame()
	if r.camera != nil {
		r.camera.release(r.bindGroups)
		r.camera = nil
	}
	clear(r.systemGroups)
	r.pipelines.Clear()
	r.bindGroups.Clear()
}
