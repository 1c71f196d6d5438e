package pipeline

import (
	"fmt"
	"strings"
	"sync"

	"github.com/Carmen-Shannon/oxy-frame/common"
	"github.com/Carmen-Shannon/oxy-frame/engine/renderer/bind_group_cache"
	"github.com/Carmen-Shannon/oxy-frame/engine/renderer/draw_command"
	"github.com/Carmen-Shannon/oxy-frame/engine/renderer/gpu"
	"github.com/cogentcore/webgpu/wgpu"
)

// cache is the implementation of the Cache interface.
type cache struct {
	mu *sync.Mutex

	device gpu.Device
	depth  bool

	modules   map[string]gpu.ShaderModule
	pipelines map[string]*pipeline
}

// Cache creates pipelines the first time a combination is drawn and returns the same Pipeline
// afterwards. Render pipelines are keyed by shader variant, the pipeline part of the render
// state, topology, vertex layouts and bind group layouts; compute pipelines by shader variant and
// bind group layouts. Shader modules are shared between pipelines of the same variant.
type Cache interface {
	// Acquire returns the pipeline for cmd bound with groups, creating it on first use.
	//
	// Parameters:
	//   - cmd: the command to draw or dispatch
	//   - groups: every bind group the command binds, sorted by index and contiguous from 0
	//
	// Returns:
	//   - Pipeline: the cached pipeline
	//   - error: common.ErrUsage for a command without shader or render state or for a gap in
	//     the group indices, or a creation error
	Acquire(cmd *draw_command.DrawCommand, groups []*bind_group_cache.BindGroup) (Pipeline, error)

	// Pipeline returns the pipeline cached under key, or nil.
	Pipeline(key string) Pipeline

	// Len returns the number of cached pipelines.
	Len() int

	// Clear releases every pipeline and shader module.
	Clear()
}

var _ Cache = &cache{}

// NewCache creates an empty pipeline cache on device.
//
// Parameters:
//   - device: the device pipelines are created on
//   - options: functional options
//
// Returns:
//   - Cache: the cache
func NewCache(device gpu.Device, options ...CacheBuilderOption) Cache {
	c := &cache{
		mu:        &sync.Mutex{},
		device:    device,
		depth:     true,
		modules:   make(map[string]gpu.ShaderModule),
		pipelines: make(map[string]*pipeline),
	}
	for _, option := range options {
		option(c)
	}
	return c
}

func (c *cache) Acquire(cmd *draw_command.DrawCommand, groups []*bind_group_cache.BindGroup) (Pipeline, error) {
	if cmd.Shader == nil {
		return nil, fmt.Errorf("%w: command has no shader", common.ErrUsage)
	}
	layouts, err := groupLayouts(groups)
	if err != nil {
		return nil, err
	}

	pipelineType := PipelineTypeRender
	if cmd.Type == draw_command.CommandTypeCompute {
		pipelineType = PipelineTypeCompute
	} else if cmd.RenderState == nil {
		return nil, fmt.Errorf("%w: render command has no render state", common.ErrUsage)
	}
	key := c.key(pipelineType, cmd, layouts)

	c.mu.Lock()
	defer c.mu.Unlock()

	if p, ok := c.pipelines[key]; ok {
		return p, nil
	}

	module, err := c.module(cmd)
	if err != nil {
		return nil, err
	}
	handles := make([]gpu.BindGroupLayout, len(layouts))
	for i, l := range layouts {
		handles[i] = l.GPU
	}

	p := &pipeline{pipelineType: pipelineType, pipelineKey: key, variant: cmd.Shader, layouts: layouts}
	switch pipelineType {
	case PipelineTypeRender:
		p.renderPipeline, err = c.device.CreateRenderPipeline(c.renderDescriptor(cmd, module, handles))
	case PipelineTypeCompute:
		p.computePipeline, err = c.device.CreateComputePipeline(&gpu.ComputePipelineDescriptor{
			Label:            cmd.Shader.Label + " Compute Pipeline",
			Module:           module,
			EntryPoint:       cmd.Shader.ComputeEntryPoint,
			BindGroupLayouts: handles,
		})
	}
	if err != nil {
		return nil, fmt.Errorf("failed to create %s pipeline for %q: %w", pipelineType, cmd.Shader.Key, err)
	}

	c.pipelines[key] = p
	common.Logger().Info("pipeline created", "type", pipelineType.String(), "shader", cmd.Shader.Key, "groups", len(layouts))
	return p, nil
}

// module returns the shader module for the command's variant. Caller must hold the mutex.
func (c *cache) module(cmd *draw_command.DrawCommand) (gpu.ShaderModule, error) {
	if m, ok := c.modules[cmd.Shader.Key]; ok {
		return m, nil
	}
	m, err := c.device.CreateShaderModule(cmd.Shader.Key, cmd.Shader.Code)
	if err != nil {
		return nil, fmt.Errorf("failed to create shader module %q: %w", cmd.Shader.Key, err)
	}
	c.modules[cmd.Shader.Key] = m
	return m, nil
}

func (c *cache) renderDescriptor(cmd *draw_command.DrawCommand, module gpu.ShaderModule, layouts []gpu.BindGroupLayout) *gpu.RenderPipelineDescriptor {
	rs := cmd.RenderState
	var depthStencil *wgpu.DepthStencilState
	if c.depth {
		ds := rs.DepthStencil
		depthStencil = &ds
	}
	return &gpu.RenderPipelineDescriptor{
		Label:              cmd.Shader.Label + " Render Pipeline",
		Module:             module,
		VertexEntryPoint:   cmd.Shader.VertexEntryPoint,
		FragmentEntryPoint: cmd.Shader.FragmentEntryPoint,
		VertexLayouts:      cmd.VertexLayouts,
		BindGroupLayouts:   layouts,
		Primitive:          primitive(cmd),
		DepthStencil:       depthStencil,
		Multisample:        rs.Multisample,
		Targets:            rs.Targets,
	}
}

// primitive returns the render state's primitive state with the command's topology. Strip
// topologies of indexed draws take the strip index format from the index buffer.
func primitive(cmd *draw_command.DrawCommand) wgpu.PrimitiveState {
	p := cmd.RenderState.Primitive
	p.Topology = cmd.Topology
	p.StripIndexFormat = wgpu.IndexFormatUndefined
	strip := p.Topology == wgpu.PrimitiveTopologyLineStrip || p.Topology == wgpu.PrimitiveTopologyTriangleStrip
	if strip && cmd.IndexBuffer != nil {
		p.StripIndexFormat = cmd.IndexFormat
	}
	return p
}

func (c *cache) key(pipelineType PipelineType, cmd *draw_command.DrawCommand, layouts []*bind_group_cache.BindGroupLayout) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s|%s|", pipelineType, cmd.Shader.Key)
	if pipelineType == PipelineTypeRender {
		p := primitive(cmd)
		fmt.Fprintf(&b, "%s|top:%d,%d|", cmd.RenderState.PipelineKey(), p.Topology, p.StripIndexFormat)
		for _, vl := range cmd.VertexLayouts {
			fmt.Fprintf(&b, "vl:%d,%d,%v;", vl.ArrayStride, vl.StepMode, vl.Attributes)
		}
		b.WriteByte('|')
	}
	for _, l := range layouts {
		b.WriteString(l.Key)
		b.WriteByte(';')
	}
	return b.String()
}

// groupLayouts returns the layouts of groups, which must be sorted and contiguous from index 0.
func groupLayouts(groups []*bind_group_cache.BindGroup) ([]*bind_group_cache.BindGroupLayout, error) {
	layouts := make([]*bind_group_cache.BindGroupLayout, len(groups))
	for i, g := range groups {
		if g.Index != uint32(i) {
			return nil, fmt.Errorf("%w: bind group %q at index %d, expected %d", common.ErrUsage, g.Label, g.Index, i)
		}
		layouts[i] = g.Layout
	}
	return layouts, nil
}

func (c *cache) Pipeline(key string) Pipeline {
	c.mu.Lock()
	defer c.mu.Unlock()
	p, ok := c.pipelines[key]
	if !ok {
		return nil
	}
	return p
}

func (c *cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.pipelines)
}

func (c *cache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	for key, p := range c.pipelines {
		p.Release()
		delete(c.pipelines, key)
	}
	for key, m := range c.modules {
		m.Release()
		delete(c.modules, key)
	}
}
