// Package gputest provides an in-memory gpu.Device that records every call it receives.
//
// It lets render code be tested without an adapter: tests drive the code under test against a
// Device and then assert on the recorded call sequence, the created objects and the bytes written
// into buffers.
package gputest

import (
	"fmt"
	"strings"
	"sync"

	"github.com/Carmen-Shannon/oxy-frame/common"
	"github.com/Carmen-Shannon/oxy-frame/engine/renderer/gpu"
	"github.com/cogentcore/webgpu/wgpu"
)

// Call is one recorded device, encoder or pass call.
type Call struct {
	Op   string
	Args []any
}

func (c Call) String() string {
	if len(c.Args) == 0 {
		return c.Op
	}
	parts := make([]string, len(c.Args))
	for i, a := range c.Args {
		parts[i] = fmt.Sprint(a)
	}
	return c.Op + "(" + strings.Join(parts, ", ") + ")"
}

// Object is the common part of every fake GPU handle.
type Object struct {
	ID       int
	Kind     string
	Label    string
	Released bool
}

func (o *Object) Release() { o.Released = true }

func (o *Object) String() string { return fmt.Sprintf("%s#%d", o.Kind, o.ID) }

// Buffer is a fake gpu.Buffer whose contents are kept in Data.
type Buffer struct {
	Object
	size  uint64
	usage wgpu.BufferUsage
	Data  []byte
}

func (b *Buffer) Label() string           { return b.Object.Label }
func (b *Buffer) Size() uint64            { return b.size }
func (b *Buffer) Usage() wgpu.BufferUsage { return b.usage }

type TextureView struct {
	Object
	Staging common.TextureStagingData
}

type Sampler struct {
	Object
	Staging common.SamplerStagingData
}

type BindGroupLayout struct {
	Object
	Entries []wgpu.BindGroupLayoutEntry
}

type BindGroup struct {
	Object
	Layout  gpu.BindGroupLayout
	Entries []gpu.BindGroupEntry
}

type ShaderModule struct {
	Object
	Code string
}

type RenderPipeline struct {
	Object
	Desc gpu.RenderPipelineDescriptor
}

type ComputePipeline struct {
	Object
	Desc gpu.ComputePipelineDescriptor
}

type CommandBuffer struct {
	Object
}

// Device is a recording gpu.Device. The zero value is not usable; construct one with NewDevice.
type Device struct {
	mu *sync.Mutex

	calls   []Call
	objects []any
	nextID  int

	format        wgpu.TextureFormat
	width, height int

	surfaceView *TextureView
	depthView   *TextureView
	presented   int

	// Fail maps an operation name (e.g. "CreateRenderPipeline") to the error it should return.
	Fail map[string]error

	Released bool
}

var _ gpu.Device = &Device{}

// NewDevice creates a recording device with an 800x600 BGRA8 surface.
func NewDevice() *Device {
	d := &Device{
		mu:     &sync.Mutex{},
		format: wgpu.TextureFormatBGRA8Unorm,
		width:  800,
		height: 600,
		Fail:   map[string]error{},
	}
	d.depthView = &TextureView{Object: d.newObject("depth", "Depth Texture")}
	return d
}

func (d *Device) newObject(kind, label string) Object {
	d.nextID++
	return Object{ID: d.nextID, Kind: kind, Label: label}
}

func (d *Device) record(op string, args ...any) {
	d.calls = append(d.calls, Call{Op: op, Args: args})
}

func (d *Device) fail(op string) error {
	if err, ok := d.Fail[op]; ok {
		return err
	}
	return nil
}

// Calls returns a copy of every recorded call in order.
func (d *Device) Calls() []Call {
	d.mu.Lock()
	defer d.mu.Unlock()
	out := make([]Call, len(d.calls))
	copy(out, d.calls)
	return out
}

// Ops returns the operation names of the recorded calls in order.
func (d *Device) Ops() []string {
	d.mu.Lock()
	defer d.mu.Unlock()
	ops := make([]string, len(d.calls))
	for i, c := range d.calls {
		ops[i] = c.Op
	}
	return ops
}

// CallsOf returns the recorded calls with the given operation name.
func (d *Device) CallsOf(op string) []Call {
	d.mu.Lock()
	defer d.mu.Unlock()
	var out []Call
	for _, c := range d.calls {
		if c.Op == op {
			out = append(out, c)
		}
	}
	return out
}

// Count returns how many calls with the given operation name were recorded.
func (d *Device) Count(op string) int {
	return len(d.CallsOf(op))
}

// ResetCalls clears the call log. Created objects are kept.
func (d *Device) ResetCalls() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.calls = nil
}

// Presented returns how many times Present displayed an acquired image.
func (d *Device) Presented() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.presented
}

func (d *Device) CreateBuffer(desc *wgpu.BufferDescriptor) (gpu.Buffer, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.record("CreateBuffer", desc.Label, desc.Size)
	if err := d.fail("CreateBuffer"); err != nil {
		return nil, err
	}
	b := &Buffer{Object: d.newObject("buffer", desc.Label), size: desc.Size, usage: desc.Usage, Data: make([]byte, desc.Size)}
	d.objects = append(d.objects, b)
	return b, nil
}

func (d *Device) WriteBuffer(buf gpu.Buffer, offset uint64, data []byte) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	b, ok := buf.(*Buffer)
	if !ok {
		return fmt.Errorf("%w: foreign buffer %T", common.ErrUsage, buf)
	}
	d.record("WriteBuffer", b.String(), offset, len(data))
	if err := d.fail("WriteBuffer"); err != nil {
		return err
	}
	end := offset + uint64(len(data))
	if end > uint64(len(b.Data)) {
		grown := make([]byte, end)
		copy(grown, b.Data)
		b.Data = grown
	}
	copy(b.Data[offset:], data)
	return nil
}

func (d *Device) CreateTexture(label string, staging common.TextureStagingData) (gpu.TextureView, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.record("CreateTexture", label, staging.Width, staging.Height)
	if err := d.fail("CreateTexture"); err != nil {
		return nil, err
	}
	v := &TextureView{Object: d.newObject("texture", label), Staging: staging}
	d.objects = append(d.objects, v)
	return v, nil
}

func (d *Device) CreateSampler(label string, staging common.SamplerStagingData) (gpu.Sampler, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.record("CreateSampler", label)
	if err := d.fail("CreateSampler"); err != nil {
		return nil, err
	}
	s := &Sampler{Object: d.newObject("sampler", label), Staging: staging}
	d.objects = append(d.objects, s)
	return s, nil
}

func (d *Device) CreateBindGroupLayout(desc *gpu.BindGroupLayoutDescriptor) (gpu.BindGroupLayout, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.record("CreateBindGroupLayout", desc.Label, len(desc.Entries))
	if err := d.fail("CreateBindGroupLayout"); err != nil {
		return nil, err
	}
	l := &BindGroupLayout{Object: d.newObject("layout", desc.Label), Entries: desc.Entries}
	d.objects = append(d.objects, l)
	return l, nil
}

func (d *Device) CreateBindGroup(desc *gpu.BindGroupDescriptor) (gpu.BindGroup, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.record("CreateBindGroup", desc.Label, len(desc.Entries))
	if err := d.fail("CreateBindGroup"); err != nil {
		return nil, err
	}
	g := &BindGroup{Object: d.newObject("bindgroup", desc.Label), Layout: desc.Layout, Entries: desc.Entries}
	d.objects = append(d.objects, g)
	return g, nil
}

func (d *Device) CreateShaderModule(label, code string) (gpu.ShaderModule, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.record("CreateShaderModule", label)
	if err := d.fail("CreateShaderModule"); err != nil {
		return nil, err
	}
	m := &ShaderModule{Object: d.newObject("shader", label), Code: code}
	d.objects = append(d.objects, m)
	return m, nil
}

func (d *Device) CreateRenderPipeline(desc *gpu.RenderPipelineDescriptor) (gpu.RenderPipeline, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.record("CreateRenderPipeline", desc.Label)
	if err := d.fail("CreateRenderPipeline"); err != nil {
		return nil, err
	}
	p := &RenderPipeline{Object: d.newObject("pipeline", desc.Label), Desc: *desc}
	d.objects = append(d.objects, p)
	return p, nil
}

func (d *Device) CreateComputePipeline(desc *gpu.ComputePipelineDescriptor) (gpu.ComputePipeline, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.record("CreateComputePipeline", desc.Label)
	if err := d.fail("CreateComputePipeline"); err != nil {
		return nil, err
	}
	p := &ComputePipeline{Object: d.newObject("compute", desc.Label), Desc: *desc}
	d.objects = append(d.objects, p)
	return p, nil
}

func (d *Device) CreateCommandEncoder(label string) (gpu.CommandEncoder, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.record("CreateCommandEncoder", label)
	if err := d.fail("CreateCommandEncoder"); err != nil {
		return nil, err
	}
	return &CommandEncoder{Object: d.newObject("encoder", label), device: d}, nil
}

func (d *Device) Submit(buffers ...gpu.CommandBuffer) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.record("Submit", len(buffers))
}

func (d *Device) CurrentTextureView() (gpu.TextureView, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if err := d.fail("CurrentTextureView"); err != nil {
		return nil, err
	}
	if d.surfaceView == nil {
		d.surfaceView = &TextureView{Object: d.newObject("surface", "Surface Texture")}
	}
	return d.surfaceView, nil
}

func (d *Device) DepthTextureView() gpu.TextureView {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.depthView
}

func (d *Device) SurfaceFormat() wgpu.TextureFormat {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.format
}

func (d *Device) Size() (width, height int) {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.width, d.height
}

func (d *Device) Resize(width, height int) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.record("Resize", width, height)
	if width > 0 && height > 0 {
		d.width, d.height = width, height
	}
}

func (d *Device) Present() {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.surfaceView == nil {
		return
	}
	d.record("Present")
	d.presented++
	d.surfaceView.Release()
	d.surfaceView = nil
}

func (d *Device) Release() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.Released = true
}

// CommandEncoder is a recording gpu.CommandEncoder. Its passes log into the owning Device.
type CommandEncoder struct {
	Object
	device   *Device
	finished bool
}

func (e *CommandEncoder) BeginRenderPass(desc *gpu.RenderPassDescriptor) gpu.RenderPassEncoder {
	e.device.mu.Lock()
	defer e.device.mu.Unlock()
	args := make([]any, 0, len(desc.ColorAttachments)+1)
	for _, a := range desc.ColorAttachments {
		args = append(args, loadOpName(a.LoadOp))
	}
	if desc.DepthAttachment != nil {
		args = append(args, "depth:"+loadOpName(desc.DepthAttachment.LoadOp))
	}
	e.device.record("BeginRenderPass", args...)
	return &RenderPass{device: e.device, Desc: *desc}
}

func (e *CommandEncoder) BeginComputePass(label string) gpu.ComputePassEncoder {
	e.device.mu.Lock()
	defer e.device.mu.Unlock()
	e.device.record("BeginComputePass", label)
	return &ComputePass{device: e.device}
}

func (e *CommandEncoder) Finish() (gpu.CommandBuffer, error) {
	e.device.mu.Lock()
	defer e.device.mu.Unlock()
	e.device.record("Finish")
	if err := e.device.fail("Finish"); err != nil {
		return nil, err
	}
	if e.finished {
		return nil, fmt.Errorf("%w: encoder finished twice", common.ErrUsage)
	}
	e.finished = true
	return &CommandBuffer{Object: e.device.newObject("commands", e.Object.Label)}, nil
}

func loadOpName(op wgpu.LoadOp) string {
	switch op {
	case wgpu.LoadOpClear:
		return "clear"
	case wgpu.LoadOpLoad:
		return "load"
	default:
		return "undefined"
	}
}

func name(v any) string {
	if s, ok := v.(fmt.Stringer); ok {
		return s.String()
	}
	return fmt.Sprintf("%v", v)
}

// RenderPass is a recording gpu.RenderPassEncoder.
type RenderPass struct {
	device *Device
	Desc   gpu.RenderPassDescriptor
}

func (p *RenderPass) log(op string, args ...any) {
	p.device.mu.Lock()
	defer p.device.mu.Unlock()
	p.device.record(op, args...)
}

func (p *RenderPass) SetPipeline(rp gpu.RenderPipeline) { p.log("SetPipeline", name(rp)) }

func (p *RenderPass) SetViewport(x, y, width, height, minDepth, maxDepth float32) {
	p.log("SetViewport", x, y, width, height, minDepth, maxDepth)
}

func (p *RenderPass) SetBlendConstant(color wgpu.Color) { p.log("SetBlendConstant", color) }

func (p *RenderPass) SetStencilReference(reference uint32) {
	p.log("SetStencilReference", reference)
}

func (p *RenderPass) SetVertexBuffer(slot uint32, buf gpu.Buffer, offset, size uint64) {
	p.log("SetVertexBuffer", slot, name(buf))
}

func (p *RenderPass) SetIndexBuffer(buf gpu.Buffer, format wgpu.IndexFormat, offset, size uint64) {
	p.log("SetIndexBuffer", name(buf), format)
}

func (p *RenderPass) SetBindGroup(index uint32, group gpu.BindGroup, dynamicOffsets []uint32) {
	p.log("SetBindGroup", index, name(group))
}

func (p *RenderPass) Draw(vertexCount, instanceCount, firstVertex, firstInstance uint32) {
	p.log("Draw", vertexCount, instanceCount)
}

func (p *RenderPass) DrawIndexed(indexCount, instanceCount, firstIndex uint32, baseVertex int32, firstInstance uint32) {
	p.log("DrawIndexed", indexCount, instanceCount)
}

func (p *RenderPass) End() { p.log("EndRenderPass") }

// ComputePass is a recording gpu.ComputePassEncoder.
type ComputePass struct {
	device *Device
}

func (p *ComputePass) log(op string, args ...any) {
	p.device.mu.Lock()
	defer p.device.mu.Unlock()
	p.device.record(op, args...)
}

func (p *ComputePass) SetPipeline(cp gpu.ComputePipeline) { p.log("SetComputePipeline", name(cp)) }

func (p *ComputePass) SetBindGroup(index uint32, group gpu.BindGroup, dynamicOffsets []uint32) {
	p.log("SetBindGroup", index, name(group))
}

func (p *ComputePass) DispatchWorkgroups(x, y, z uint32) { p.log("DispatchWorkgroups", x, y, z) }

func (p *ComputePass) End() { p.log("EndComputePass") }
