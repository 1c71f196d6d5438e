// Package pipeline creates GPU render and compute pipelines on demand and caches them by
// everything that is baked into them.
package pipeline

import (
	"github.com/Carmen-Shannon/oxy-frame/engine/renderer/bind_group_cache"
	"github.com/Carmen-Shannon/oxy-frame/engine/renderer/gpu"
	"github.com/Carmen-Shannon/oxy-frame/engine/renderer/shader"
)

// PipelineType identifies whether a pipeline is a compute pipeline or a render pipeline.
type PipelineType int

const (
	// PipelineTypeCompute indicates a compute pipeline with a single compute shader entry point.
	PipelineTypeCompute PipelineType = iota

	// PipelineTypeRender indicates a render pipeline with vertex and fragment shader entry points.
	PipelineTypeRender
)

func (t PipelineType) String() string {
	if t == PipelineTypeCompute {
		return "compute"
	}
	return "render"
}

// pipeline is the implementation of the Pipeline interface.
type pipeline struct {
	pipelineType PipelineType
	// pipelineKey is the cache key, see Cache.
	pipelineKey string

	variant *shader.Variant
	layouts []*bind_group_cache.BindGroupLayout

	renderPipeline  gpu.RenderPipeline
	computePipeline gpu.ComputePipeline
}

// Pipeline is a created GPU pipeline together with the shader variant and bind group layouts
// it was built from.
type Pipeline interface {
	// Type returns the type of the pipeline
	//
	// Returns:
	//   - PipelineType: the type of the pipeline (render or compute)
	Type() PipelineType

	// PipelineKey returns the unique key associated with this pipeline, used for caching and lookups.
	//
	// Returns:
	//   - string: the unique key for this pipeline
	PipelineKey() string

	// Shader returns the shader variant the pipeline was compiled from.
	Shader() *shader.Variant

	// Layouts returns the bind group layouts of the pipeline layout, indexed by group.
	Layouts() []*bind_group_cache.BindGroupLayout

	// RenderPipeline returns the GPU render pipeline, nil for compute pipelines.
	RenderPipeline() gpu.RenderPipeline

	// ComputePipeline returns the GPU compute pipeline, nil for render pipelines.
	ComputePipeline() gpu.ComputePipeline

	// Release frees the GPU pipeline.
	Release()
}

var _ Pipeline = &pipeline{}

func (p *pipeline) Type() PipelineType {
	return p.pipelineType
}

func (p *pipeline) PipelineKey() string {
	return p.pipelineKey
}

func (p *pipeline) Shader() *shader.Variant {
	return p.variant
}

func (p *pipeline) Layouts() []*bind_group_cache.BindGroupLayout {
	return p.layouts
}

func (p *pipeline) RenderPipeline() gpu.RenderPipeline {
	return p.renderPipeline
}

func (p *pipeline) ComputePipeline() gpu.ComputePipeline {
	return p.computePipeline
}

func (p *pipeline) Release() {
	switch p.pipelineType {
	case PipelineTypeRender:
		if p.renderPipeline != nil {
			p.renderPipeline.Release()
		}
	case PipelineTypeCompute:
		if p.computePipeline != nil {
			p.computePipeline.Release()
		}
	}
}
