package gpu

import (
	"fmt"
	"runtime"
	"sync"

	"github.com/Carmen-Shannon/oxy-frame/common"
	"github.com/cogentcore/webgpu/wgpu"
)

type releaser interface {
	Release()
}

// handle wraps a wgpu object so it satisfies the gpu interfaces and releases exactly once.
type handle[T releaser] struct {
	obj  T
	once sync.Once
}

func (h *handle[T]) Release() {
	h.once.Do(h.obj.Release)
}

func newHandle[T releaser](obj T) *handle[T] {
	return &handle[T]{obj: obj}
}

// unwrap recovers the wgpu object behind a gpu handle created by a wgpuDevice.
func unwrap[T releaser](v any) (T, error) {
	var zero T
	if v == nil {
		return zero, fmt.Errorf("%w: nil %T handle", common.ErrUsage, zero)
	}
	h, ok := v.(*handle[T])
	if !ok {
		return zero, fmt.Errorf("%w: handle %T was not created by the wgpu device", common.ErrUsage, v)
	}
	return h.obj, nil
}

type wgpuBuffer struct {
	*handle[*wgpu.Buffer]
	label string
	size  uint64
	usage wgpu.BufferUsage
}

func (b *wgpuBuffer) Label() string           { return b.label }
func (b *wgpuBuffer) Size() uint64            { return b.size }
func (b *wgpuBuffer) Usage() wgpu.BufferUsage { return b.usage }

func unwrapBuffer(v Buffer) (*wgpu.Buffer, error) {
	b, ok := v.(*wgpuBuffer)
	if !ok {
		return nil, fmt.Errorf("%w: buffer %T was not created by the wgpu device", common.ErrUsage, v)
	}
	return b.obj, nil
}

// wgpuDevice implements Device on top of cogentcore/webgpu.
type wgpuDevice struct {
	mu *sync.Mutex

	instance *wgpu.Instance
	surface  *wgpu.Surface
	adapter  *wgpu.Adapter
	device   *wgpu.Device
	queue    *wgpu.Queue

	presentMode          wgpu.PresentMode
	forceFallbackAdapter bool
	surfaceFormat        wgpu.TextureFormat
	width, height        int

	depthView *handle[*wgpu.TextureView]

	frameSurface *wgpu.Texture
	frameView    *handle[*wgpu.TextureView]
}

var _ Device = &wgpuDevice{}

// NewWGPUDevice acquires an adapter and device compatible with the given surface and configures
// the surface for presentation. Failure to acquire an adapter or device is reported as
// common.ErrUnsupported so callers can distinguish it from transient errors.
//
// Parameters:
//   - surfaceDescriptor: the platform surface descriptor, typically from window.Window.SurfaceDescriptor
//   - width, height: the initial surface size in pixels
//   - options: functional options for device configuration
//
// Returns:
//   - Device: the configured device
//   - error: an error wrapping common.ErrUnsupported if no usable device exists
func NewWGPUDevice(surfaceDescriptor *wgpu.SurfaceDescriptor, width, height int, options ...DeviceBuilderOption) (Device, error) {
	if surfaceDescriptor == nil {
		return nil, fmt.Errorf("%w: nil surface descriptor", common.ErrUnsupported)
	}
	runtime.LockOSThread()

	d := &wgpuDevice{
		mu:          &sync.Mutex{},
		instance:    wgpu.CreateInstance(nil),
		presentMode: wgpu.PresentModeFifo,
	}
	for _, opt := range options {
		opt(d)
	}
	d.surface = d.instance.CreateSurface(surfaceDescriptor)

	adapter, err := d.instance.RequestAdapter(&wgpu.RequestAdapterOptions{
		ForceFallbackAdapter: d.forceFallbackAdapter,
		CompatibleSurface:    d.surface,
	})
	if err != nil {
		d.Release()
		return nil, fmt.Errorf("%w: request adapter: %v", common.ErrUnsupported, err)
	}
	d.adapter = adapter

	device, err := adapter.RequestDevice(&wgpu.DeviceDescriptor{
		Label: "oxy-frame device",
		RequiredLimits: &wgpu.RequiredLimits{
			Limits: wgpu.DefaultLimits(),
		},
	})
	if err != nil {
		d.Release()
		return nil, fmt.Errorf("%w: request device: %v", common.ErrUnsupported, err)
	}
	d.device = device
	d.queue = device.GetQueue()

	d.Resize(width, height)
	common.Logger().Info("gpu device ready", "format", d.surfaceFormat, "width", width, "height", height)
	return d, nil
}

func (d *wgpuDevice) CreateBuffer(desc *wgpu.BufferDescriptor) (Buffer, error) {
	buf, err := d.device.CreateBuffer(desc)
	if err != nil {
		return nil, fmt.Errorf("create buffer %q: %w", desc.Label, err)
	}
	return &wgpuBuffer{handle: newHandle(buf), label: desc.Label, size: desc.Size, usage: desc.Usage}, nil
}

func (d *wgpuDevice) WriteBuffer(buf Buffer, offset uint64, data []byte) error {
	b, err := unwrapBuffer(buf)
	if err != nil {
		return err
	}
	d.queue.WriteBuffer(b, offset, data)
	return nil
}

func (d *wgpuDevice) CreateTexture(label string, staging common.TextureStagingData) (TextureView, error) {
	extent := wgpu.Extent3D{
		Width:              staging.Width,
		Height:             staging.Height,
		DepthOrArrayLayers: 1,
	}
	tex, err := d.device.CreateTexture(&wgpu.TextureDescriptor{
		Label:         label,
		Usage:         wgpu.TextureUsageTextureBinding | wgpu.TextureUsageCopyDst,
		Dimension:     wgpu.TextureDimension2D,
		Size:          extent,
		Format:        wgpu.TextureFormatRGBA8UnormSrgb,
		MipLevelCount: 1,
		SampleCount:   1,
	})
	if err != nil {
		return nil, fmt.Errorf("create texture %q: %w", label, err)
	}

	d.queue.WriteTexture(
		&wgpu.ImageCopyTexture{
			Texture:  tex,
			MipLevel: 0,
			Origin:   wgpu.Origin3D{},
			Aspect:   wgpu.TextureAspectAll,
		},
		staging.Pixels,
		&wgpu.TextureDataLayout{
			Offset:       0,
			BytesPerRow:  staging.Width * 4,
			RowsPerImage: staging.Height,
		},
		&extent,
	)

	view, err := tex.CreateView(nil)
	if err != nil {
		tex.Release()
		return nil, fmt.Errorf("create texture view %q: %w", label, err)
	}
	return newHandle(view), nil
}

func (d *wgpuDevice) CreateSampler(label string, staging common.SamplerStagingData) (Sampler, error) {
	samp, err := d.device.CreateSampler(&wgpu.SamplerDescriptor{
		Label:         label,
		AddressModeU:  common.Coalesce(staging.AddressModeU, wgpu.AddressModeRepeat),
		AddressModeV:  common.Coalesce(staging.AddressModeV, wgpu.AddressModeRepeat),
		AddressModeW:  common.Coalesce(staging.AddressModeW, wgpu.AddressModeRepeat),
		MagFilter:     common.Coalesce(staging.MagFilter, wgpu.FilterModeLinear),
		MinFilter:     common.Coalesce(staging.MinFilter, wgpu.FilterModeLinear),
		MipmapFilter:  common.Coalesce(staging.MipmapFilter, wgpu.MipmapFilterModeLinear),
		LodMinClamp:   staging.LodMinClamp,
		LodMaxClamp:   common.Coalesce(staging.LodMaxClamp, 32.0),
		MaxAnisotropy: common.Coalesce(staging.MaxAnisotropy, 1),
		Compare:       staging.Compare,
	})
	if err != nil {
		return nil, fmt.Errorf("create sampler %q: %w", label, err)
	}
	return newHandle(samp), nil
}

func (d *wgpuDevice) CreateBindGroupLayout(desc *BindGroupLayoutDescriptor) (BindGroupLayout, error) {
	layout, err := d.device.CreateBindGroupLayout(&wgpu.BindGroupLayoutDescriptor{
		Label:   desc.Label,
		Entries: desc.Entries,
	})
	if err != nil {
		return nil, fmt.Errorf("create bind group layout %q: %w", desc.Label, err)
	}
	return newHandle(layout), nil
}

func (d *wgpuDevice) CreateBindGroup(desc *BindGroupDescriptor) (BindGroup, error) {
	layout, err := unwrap[*wgpu.BindGroupLayout](desc.Layout)
	if err != nil {
		return nil, err
	}

	entries := make([]wgpu.BindGroupEntry, len(desc.Entries))
	for i, e := range desc.Entries {
		entry := wgpu.BindGroupEntry{Binding: e.Binding}
		switch {
		case e.Buffer != nil:
			buf, bufErr := unwrapBuffer(e.Buffer)
			if bufErr != nil {
				return nil, bufErr
			}
			entry.Buffer = buf
			entry.Offset = e.Offset
			entry.Size = e.Size
			if entry.Size == 0 {
				entry.Size = wgpu.WholeSize
			}
		case e.TextureView != nil:
			view, viewErr := unwrap[*wgpu.TextureView](e.TextureView)
			if viewErr != nil {
				return nil, viewErr
			}
			entry.TextureView = view
		case e.Sampler != nil:
			samp, sampErr := unwrap[*wgpu.Sampler](e.Sampler)
			if sampErr != nil {
				return nil, sampErr
			}
			entry.Sampler = samp
		default:
			return nil, fmt.Errorf("%w: bind group %q entry %d has no resource", common.ErrConfiguration, desc.Label, e.Binding)
		}
		entries[i] = entry
	}

	group, err := d.device.CreateBindGroup(&wgpu.BindGroupDescriptor{
		Label:   desc.Label,
		Layout:  layout,
		Entries: entries,
	})
	if err != nil {
		return nil, fmt.Errorf("create bind group %q: %w", desc.Label, err)
	}
	return newHandle(group), nil
}

func (d *wgpuDevice) CreateShaderModule(label, code string) (ShaderModule, error) {
	module, err := d.device.CreateShaderModule(&wgpu.ShaderModuleDescriptor{
		Label: label,
		WGSLDescriptor: &wgpu.ShaderModuleWGSLDescriptor{
			Code: code,
		},
	})
	if err != nil {
		return nil, fmt.Errorf("create shader module %q: %w", label, err)
	}
	return newHandle(module), nil
}

// pipelineLayout unwraps the bind group layouts and creates the pipeline layout for a pipeline.
func (d *wgpuDevice) pipelineLayout(label string, layouts []BindGroupLayout) (*wgpu.PipelineLayout, error) {
	bindGroupLayouts := make([]*wgpu.BindGroupLayout, len(layouts))
	for i, l := range layouts {
		bgl, err := unwrap[*wgpu.BindGroupLayout](l)
		if err != nil {
			return nil, fmt.Errorf("pipeline %q group %d: %w", label, i, err)
		}
		bindGroupLayouts[i] = bgl
	}
	return d.device.CreatePipelineLayout(&wgpu.PipelineLayoutDescriptor{
		Label:            label,
		BindGroupLayouts: bindGroupLayouts,
	})
}

func (d *wgpuDevice) CreateRenderPipeline(desc *RenderPipelineDescriptor) (RenderPipeline, error) {
	module, err := unwrap[*wgpu.ShaderModule](desc.Module)
	if err != nil {
		return nil, err
	}
	layout, err := d.pipelineLayout(desc.Label, desc.BindGroupLayouts)
	if err != nil {
		return nil, err
	}
	defer layout.Release()

	var fragment *wgpu.FragmentState
	if desc.FragmentEntryPoint != "" {
		fragment = &wgpu.FragmentState{
			Module:     module,
			EntryPoint: desc.FragmentEntryPoint,
			Targets:    desc.Targets,
		}
	}

	created, err := d.device.CreateRenderPipeline(&wgpu.RenderPipelineDescriptor{
		Label:  desc.Label,
		Layout: layout,
		Vertex: wgpu.VertexState{
			Module:     module,
			EntryPoint: desc.VertexEntryPoint,
			Buffers:    desc.VertexLayouts,
		},
		Fragment:     fragment,
		Primitive:    desc.Primitive,
		Multisample:  desc.Multisample,
		DepthStencil: desc.DepthStencil,
	})
	if err != nil {
		return nil, fmt.Errorf("create render pipeline %q: %w", desc.Label, err)
	}
	return newHandle(created), nil
}

func (d *wgpuDevice) CreateComputePipeline(desc *ComputePipelineDescriptor) (ComputePipeline, error) {
	module, err := unwrap[*wgpu.ShaderModule](desc.Module)
	if err != nil {
		return nil, err
	}
	layout, err := d.pipelineLayout(desc.Label, desc.BindGroupLayouts)
	if err != nil {
		return nil, err
	}
	defer layout.Release()

	created, err := d.device.CreateComputePipeline(&wgpu.ComputePipelineDescriptor{
		Label:  desc.Label,
		Layout: layout,
		Compute: wgpu.ProgrammableStageDescriptor{
			Module:     module,
			EntryPoint: desc.EntryPoint,
		},
	})
	if err != nil {
		return nil, fmt.Errorf("create compute pipeline %q: %w", desc.Label, err)
	}
	return newHandle(created), nil
}

func (d *wgpuDevice) CreateCommandEncoder(label string) (CommandEncoder, error) {
	encoder, err := d.device.CreateCommandEncoder(&wgpu.CommandEncoderDescriptor{Label: label})
	if err != nil {
		return nil, fmt.Errorf("create command encoder %q: %w", label, err)
	}
	return &wgpuCommandEncoder{handle: newHandle(encoder)}, nil
}

func (d *wgpuDevice) Submit(buffers ...CommandBuffer) {
	cbs := make([]*wgpu.CommandBuffer, 0, len(buffers))
	for _, b := range buffers {
		cb, err := unwrap[*wgpu.CommandBuffer](b)
		if err != nil {
			common.Logger().Error("skipping foreign command buffer", "error", err)
			continue
		}
		cbs = append(cbs, cb)
	}
	d.queue.Submit(cbs...)
}

func (d *wgpuDevice) CurrentTextureView() (TextureView, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.frameView != nil {
		return d.frameView, nil
	}

	surfaceTexture, err := d.surface.GetCurrentTexture()
	if err != nil {
		return nil, fmt.Errorf("acquire surface texture: %w", err)
	}
	view, err := surfaceTexture.CreateView(nil)
	if err != nil {
		surfaceTexture.Release()
		return nil, fmt.Errorf("create surface view: %w", err)
	}
	d.frameSurface = surfaceTexture
	d.frameView = newHandle(view)
	return d.frameView, nil
}

func (d *wgpuDevice) DepthTextureView() TextureView {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.depthView == nil {
		return nil
	}
	return d.depthView
}

func (d *wgpuDevice) SurfaceFormat() wgpu.TextureFormat {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.surfaceFormat
}

func (d *wgpuDevice) Size() (width, height int) {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.width, d.height
}

func (d *wgpuDevice) Resize(width, height int) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if width <= 0 || height <= 0 {
		return
	}
	d.width, d.height = width, height

	capabilities := d.surface.GetCapabilities(d.adapter)
	d.surfaceFormat = capabilities.Formats[0]

	d.surface.Configure(d.adapter, d.device, &wgpu.SurfaceConfiguration{
		Usage:       wgpu.TextureUsageRenderAttachment,
		Format:      d.surfaceFormat,
		Width:       uint32(width),
		Height:      uint32(height),
		PresentMode: d.presentMode,
		AlphaMode:   capabilities.AlphaModes[0],
	})

	if d.depthView != nil {
		d.depthView.Release()
		d.depthView = nil
	}
	depthTexture, err := d.device.CreateTexture(&wgpu.TextureDescriptor{
		Label: "Depth Texture",
		Size: wgpu.Extent3D{
			Width:              uint32(width),
			Height:             uint32(height),
			DepthOrArrayLayers: 1,
		},
		MipLevelCount: 1,
		SampleCount:   1,
		Dimension:     wgpu.TextureDimension2D,
		Format:        wgpu.TextureFormatDepth24Plus,
		Usage:         wgpu.TextureUsageRenderAttachment,
	})
	if err != nil {
		common.Logger().Error("depth texture creation failed", "error", err)
		return
	}
	view, err := depthTexture.CreateView(nil)
	if err != nil {
		common.Logger().Error("depth view creation failed", "error", err)
		return
	}
	d.depthView = newHandle(view)
}

func (d *wgpuDevice) Present() {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.frameSurface == nil {
		return
	}
	d.surface.Present()

	d.frameView.Release()
	d.frameView = nil
	d.frameSurface.Release()
	d.frameSurface = nil
}

func (d *wgpuDevice) Release() {
	if d.depthView != nil {
		d.depthView.Release()
	}
	if d.device != nil {
		d.device.Release()
	}
	if d.adapter != nil {
		d.adapter.Release()
	}
	if d.surface != nil {
		d.surface.Release()
	}
	if d.instance != nil {
		d.instance.Release()
	}
}

// wgpuCommandEncoder records the first handle error seen by any of its passes and reports it
// from Finish, since pass methods have no error return.
type wgpuCommandEncoder struct {
	*handle[*wgpu.CommandEncoder]
	err error
}

func (e *wgpuCommandEncoder) fail(err error) {
	if e.err == nil {
		e.err = err
	}
}

func (e *wgpuCommandEncoder) BeginRenderPass(desc *RenderPassDescriptor) RenderPassEncoder {
	attachments := make([]wgpu.RenderPassColorAttachment, 0, len(desc.ColorAttachments))
	for _, a := range desc.ColorAttachments {
		view, err := unwrap[*wgpu.TextureView](a.View)
		if err != nil {
			e.fail(err)
			continue
		}
		attachments = append(attachments, wgpu.RenderPassColorAttachment{
			View:       view,
			LoadOp:     a.LoadOp,
			StoreOp:    a.StoreOp,
			ClearValue: a.ClearValue,
		})
	}

	rpd := &wgpu.RenderPassDescriptor{ColorAttachments: attachments}
	if desc.DepthAttachment != nil {
		view, err := unwrap[*wgpu.TextureView](desc.DepthAttachment.View)
		if err != nil {
			e.fail(err)
		} else {
			rpd.DepthStencilAttachment = &wgpu.RenderPassDepthStencilAttachment{
				View:            view,
				DepthLoadOp:     desc.DepthAttachment.LoadOp,
				DepthStoreOp:    desc.DepthAttachment.StoreOp,
				DepthClearValue: desc.DepthAttachment.ClearValue,
			}
		}
	}
	return &wgpuRenderPass{pass: e.obj.BeginRenderPass(rpd), encoder: e}
}

func (e *wgpuCommandEncoder) BeginComputePass(label string) ComputePassEncoder {
	return &wgpuComputePass{
		pass:    e.obj.BeginComputePass(&wgpu.ComputePassDescriptor{Label: label}),
		encoder: e,
	}
}

func (e *wgpuCommandEncoder) Finish() (CommandBuffer, error) {
	if e.err != nil {
		return nil, e.err
	}
	cb, err := e.obj.Finish(nil)
	if err != nil {
		return nil, fmt.Errorf("finish command encoder: %w", err)
	}
	return newHandle(cb), nil
}

type wgpuRenderPass struct {
	pass    *wgpu.RenderPassEncoder
	encoder *wgpuCommandEncoder
}

func (p *wgpuRenderPass) SetPipeline(rp RenderPipeline) {
	pipeline, err := unwrap[*wgpu.RenderPipeline](rp)
	if err != nil {
		p.encoder.fail(err)
		return
	}
	p.pass.SetPipeline(pipeline)
}

func (p *wgpuRenderPass) SetViewport(x, y, width, height, minDepth, maxDepth float32) {
	p.pass.SetViewport(x, y, width, height, minDepth, maxDepth)
}

func (p *wgpuRenderPass) SetBlendConstant(color wgpu.Color) {
	p.pass.SetBlendConstant(&color)
}

func (p *wgpuRenderPass) SetStencilReference(reference uint32) {
	p.pass.SetStencilReference(reference)
}

func (p *wgpuRenderPass) SetVertexBuffer(slot uint32, buf Buffer, offset, size uint64) {
	b, err := unwrapBuffer(buf)
	if err != nil {
		p.encoder.fail(err)
		return
	}
	p.pass.SetVertexBuffer(slot, b, offset, size)
}

func (p *wgpuRenderPass) SetIndexBuffer(buf Buffer, format wgpu.IndexFormat, offset, size uint64) {
	b, err := unwrapBuffer(buf)
	if err != nil {
		p.encoder.fail(err)
		return
	}
	p.pass.SetIndexBuffer(b, format, offset, size)
}

func (p *wgpuRenderPass) SetBindGroup(index uint32, group BindGroup, dynamicOffsets []uint32) {
	bg, err := unwrap[*wgpu.BindGroup](group)
	if err != nil {
		p.encoder.fail(err)
		return
	}
	p.pass.SetBindGroup(index, bg, dynamicOffsets)
}

func (p *wgpuRenderPass) Draw(vertexCount, instanceCount, firstVertex, firstInstance uint32) {
	p.pass.Draw(vertexCount, instanceCount, firstVertex, firstInstance)
}

func (p *wgpuRenderPass) DrawIndexed(indexCount, instanceCount, firstIndex uint32, baseVertex int32, firstInstance uint32) {
	p.pass.DrawIndexed(indexCount, instanceCount, firstIndex, baseVertex, firstInstance)
}

func (p *wgpuRenderPass) End() {
	p.pass.End()
	p.pass.Release()
}

type wgpuComputePass struct {
	pass    *wgpu.ComputePassEncoder
	encoder *wgpuCommandEncoder
}

func (p *wgpuComputePass) SetPipeline(cp ComputePipeline) {
	pipeline, err := unwrap[*wgpu.ComputePipeline](cp)
	if err != nil {
		p.encoder.fail(err)
		return
	}
	p.pass.SetPipeline(pipeline)
}

func (p *wgpuComputePass) SetBindGroup(index uint32, group BindGroup, dynamicOffsets []uint32) {
	bg, err := unwrap[*wgpu.BindGroup](group)
	if err != nil {
		p.encoder.fail(err)
		return
	}
	p.pass.SetBindGroup(index, bg, dynamicOffsets)
}

func (p *wgpuComputePass) DispatchWorkgroups(x, y, z uint32) {
	p.pass.DispatchWorkgroups(x, y, z)
}

func (p *wgpuComputePass) End() {
	p.pass.End()
	p.pass.Release()
}
