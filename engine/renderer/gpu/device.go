// Package gpu defines the graphics device boundary used by the render core.
//
// Every GPU object the core touches is reached through the interfaces in this package, so the
// frame pipeline can run against the wgpu-backed device in production and against the recording
// device in gputest under test.
package gpu

import (
	"github.com/Carmen-Shannon/oxy-frame/common"
	"github.com/cogentcore/webgpu/wgpu"
)

// Releasable is implemented by every GPU handle.
type Releasable interface {
	// Release frees the underlying GPU object. Calling Release more than once is a no-op.
	Release()
}

// Buffer is a GPU buffer handle.
type Buffer interface {
	Releasable

	// Label returns the debug label the buffer was created with.
	Label() string

	// Size returns the buffer size in bytes.
	Size() uint64

	// Usage returns the usage flags the buffer was created with.
	Usage() wgpu.BufferUsage
}

// TextureView is a view over a GPU texture, bindable as a texture resource or used as a render attachment.
type TextureView interface {
	Releasable
}

// Sampler is a GPU sampler handle.
type Sampler interface {
	Releasable
}

// BindGroupLayout is a GPU bind group layout handle.
type BindGroupLayout interface {
	Releasable
}

// BindGroup is a GPU bind group handle.
type BindGroup interface {
	Releasable
}

// ShaderModule is a compiled shader module handle.
type ShaderModule interface {
	Releasable
}

// RenderPipeline is a GPU render pipeline handle.
type RenderPipeline interface {
	Releasable
}

// ComputePipeline is a GPU compute pipeline handle.
type ComputePipeline interface {
	Releasable
}

// CommandBuffer is a finished, submittable command buffer.
type CommandBuffer interface {
	Releasable
}

// BindGroupLayoutDescriptor describes a bind group layout.
type BindGroupLayoutDescriptor struct {
	Label   string
	Entries []wgpu.BindGroupLayoutEntry
}

// BindGroupEntry binds one concrete resource to a slot. Exactly one of Buffer, TextureView
// or Sampler is set.
type BindGroupEntry struct {
	Binding     uint32
	Buffer      Buffer
	Offset      uint64
	Size        uint64
	TextureView TextureView
	Sampler     Sampler
}

// BindGroupDescriptor describes a bind group against a layout.
type BindGroupDescriptor struct {
	Label   string
	Layout  BindGroupLayout
	Entries []BindGroupEntry
}

// RenderPipelineDescriptor describes a render pipeline.
type RenderPipelineDescriptor struct {
	Label            string
	Module           ShaderModule
	VertexEntryPoint string
	// FragmentEntryPoint may be empty for depth-only pipelines.
	FragmentEntryPoint string
	VertexLayouts      []wgpu.VertexBufferLayout
	BindGroupLayouts   []BindGroupLayout
	Primitive          wgpu.PrimitiveState
	DepthStencil       *wgpu.DepthStencilState
	Multisample        wgpu.MultisampleState
	Targets            []wgpu.ColorTargetState
}

// ComputePipelineDescriptor describes a compute pipeline.
type ComputePipelineDescriptor struct {
	Label            string
	Module           ShaderModule
	EntryPoint       string
	BindGroupLayouts []BindGroupLayout
}

// ColorAttachment describes one color attachment of a render pass.
type ColorAttachment struct {
	View       TextureView
	LoadOp     wgpu.LoadOp
	StoreOp    wgpu.StoreOp
	ClearValue wgpu.Color
}

// DepthAttachment describes the depth attachment of a render pass.
type DepthAttachment struct {
	View       TextureView
	LoadOp     wgpu.LoadOp
	StoreOp    wgpu.StoreOp
	ClearValue float32
}

// RenderPassDescriptor describes a render pass.
type RenderPassDescriptor struct {
	Label            string
	ColorAttachments []ColorAttachment
	// DepthAttachment is nil when the pass has no depth buffer.
	DepthAttachment *DepthAttachment
}

// RenderPassEncoder records commands into an open render pass.
type RenderPassEncoder interface {
	SetPipeline(p RenderPipeline)
	SetViewport(x, y, width, height, minDepth, maxDepth float32)
	SetBlendConstant(color wgpu.Color)
	SetStencilReference(reference uint32)
	SetVertexBuffer(slot uint32, buf Buffer, offset, size uint64)
	SetIndexBuffer(buf Buffer, format wgpu.IndexFormat, offset, size uint64)
	SetBindGroup(index uint32, group BindGroup, dynamicOffsets []uint32)
	Draw(vertexCount, instanceCount, firstVertex, firstInstance uint32)
	DrawIndexed(indexCount, instanceCount, firstIndex uint32, baseVertex int32, firstInstance uint32)
	End()
}

// ComputePassEncoder records commands into an open compute pass.
type ComputePassEncoder interface {
	SetPipeline(p ComputePipeline)
	SetBindGroup(index uint32, group BindGroup, dynamicOffsets []uint32)
	DispatchWorkgroups(x, y, z uint32)
	End()
}

// CommandEncoder opens passes and produces a command buffer.
type CommandEncoder interface {
	Releasable

	// BeginRenderPass opens a render pass. Only one pass may be open at a time.
	BeginRenderPass(desc *RenderPassDescriptor) RenderPassEncoder

	// BeginComputePass opens a compute pass. Only one pass may be open at a time.
	BeginComputePass(label string) ComputePassEncoder

	// Finish closes the encoder and returns the recorded command buffer.
	Finish() (CommandBuffer, error)
}

// Device is the graphics device plus its presentation surface.
type Device interface {
	Releasable

	// CreateBuffer allocates a GPU buffer.
	//
	// Parameters:
	//   - desc: the buffer descriptor (label, size, usage)
	//
	// Returns:
	//   - Buffer: the created buffer
	//   - error: an error if allocation fails
	CreateBuffer(desc *wgpu.BufferDescriptor) (Buffer, error)

	// WriteBuffer uploads data into buf at the given byte offset through the device queue.
	//
	// Parameters:
	//   - buf: the destination buffer
	//   - offset: the destination byte offset
	//   - data: the bytes to upload
	//
	// Returns:
	//   - error: an error if the buffer is not owned by this device
	WriteBuffer(buf Buffer, offset uint64, data []byte) error

	// CreateTexture creates an RGBA8 sampled texture from staging data and returns its default view.
	//
	// Parameters:
	//   - label: the debug label
	//   - staging: the pixel data and dimensions
	//
	// Returns:
	//   - TextureView: the view over the created texture
	//   - error: an error if creation fails
	CreateTexture(label string, staging common.TextureStagingData) (TextureView, error)

	// CreateSampler creates a sampler. Zero fields of staging fall back to linear/repeat defaults.
	//
	// Parameters:
	//   - label: the debug label
	//   - staging: the sampler configuration
	//
	// Returns:
	//   - Sampler: the created sampler
	//   - error: an error if creation fails
	CreateSampler(label string, staging common.SamplerStagingData) (Sampler, error)

	// CreateBindGroupLayout creates a bind group layout.
	CreateBindGroupLayout(desc *BindGroupLayoutDescriptor) (BindGroupLayout, error)

	// CreateBindGroup creates a bind group.
	CreateBindGroup(desc *BindGroupDescriptor) (BindGroup, error)

	// CreateShaderModule compiles WGSL source into a shader module.
	CreateShaderModule(label, code string) (ShaderModule, error)

	// CreateRenderPipeline creates a render pipeline.
	CreateRenderPipeline(desc *RenderPipelineDescriptor) (RenderPipeline, error)

	// CreateComputePipeline creates a compute pipeline.
	CreateComputePipeline(desc *ComputePipelineDescriptor) (ComputePipeline, error)

	// CreateCommandEncoder opens a new command encoder.
	CreateCommandEncoder(label string) (CommandEncoder, error)

	// Submit submits finished command buffers to the device queue in order.
	Submit(buffers ...CommandBuffer)

	// CurrentTextureView returns the view of the surface image acquired for the current frame,
	// acquiring one if none is held. The same view is returned until Present is called.
	//
	// Returns:
	//   - TextureView: the current surface view
	//   - error: an error if the surface image cannot be acquired
	CurrentTextureView() (TextureView, error)

	// DepthTextureView returns the depth attachment matching the surface, or nil if none.
	DepthTextureView() TextureView

	// SurfaceFormat returns the color format of the presentation surface.
	SurfaceFormat() wgpu.TextureFormat

	// Size returns the configured surface size in pixels.
	Size() (width, height int)

	// Resize reconfigures the surface and depth attachment for a new size.
	Resize(width, height int)

	// Present presents the current surface image and releases it. It is a no-op when no
	// image is held.
	Present()
}
