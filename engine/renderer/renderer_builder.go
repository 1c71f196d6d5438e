package renderer

import (
	"github.com/Carmen-Shannon/oxy-frame/engine/renderer/bind_group_cache"
	"github.com/Carmen-Shannon/oxy-frame/engine/renderer/pipeline"
	"github.com/Carmen-Shannon/oxy-frame/engine/renderer/render_state"
	"github.com/cogentcore/webgpu/wgpu"
)

// RendererBuilderOption is a functional option applied to a renderer during construction via NewRenderer.
type RendererBuilderOption func(*renderer)

// WithClearColor sets the color the first render pass of each frame clears to. The default is opaque black.
//
// Parameters:
//   - c: the clear color
//
// Returns:
//   - RendererBuilderOption: a function that applies the clear color option to a renderer
func WithClearColor(c wgpu.Color) RendererBuilderOption {
	return func(r *renderer) {
		r.clearColor = c
	}
}

// WithRenderDefaults replaces the render-state defaults handed to materials.
//
// Parameters:
//   - defaults: the render defaults
//
// Returns:
//   - RendererBuilderOption: a function that applies the defaults option to a renderer
func WithRenderDefaults(defaults render_state.RenderDefaults) RendererBuilderOption {
	return func(r *renderer) {
		r.defaults = defaults
	}
}

// WithBindGroupCache shares an existing bind group cache instead of creating one.
//
// Parameters:
//   - cache: the bind group cache
//
// Returns:
//   - RendererBuilderOption: a function that applies the cache option to a renderer
func WithBindGroupCache(cache bind_group_cache.Cache) RendererBuilderOption {
	return func(r *renderer) {
		r.bindGroups = cache
	}
}

// WithPipelineCache shares an existing pipeline cache instead of creating one.
//
// Parameters:
//   - cache: the pipeline cache
//
// Returns:
//   - RendererBuilderOption: a function that applies the cache option to a renderer
func WithPipelineCache(cache pipeline.Cache) RendererBuilderOption {
	return func(r *renderer) {
		r.pipelines = cache
	}
}
