package material

import (
	"maps"

	"github.com/Carmen-Shannon/oxy-frame/engine/renderer/render_state"
	"github.com/cogentcore/webgpu/wgpu"
)

// MaterialBuilderOption is a functional option applied to a material during construction via NewMaterial.
type MaterialBuilderOption func(*material)

// WithLabel sets the debug label. The default is the shader label.
func WithLabel(label string) MaterialBuilderOption {
	return func(m *material) {
		m.label = label
	}
}

// WithType sets the material type. Materials of the same type share bind group layouts, so the
// type should name one uniform layout. The default is "basic".
//
// Parameters:
//   - typ: the material type
//
// Returns:
//   - MaterialBuilderOption: a function that applies the type option to a material
func WithType(typ string) MaterialBuilderOption {
	return func(m *material) {
		m.typ = typ
	}
}

// WithTransparent queues owners of the material in the transparent bucket.
func WithTransparent(transparent bool) MaterialBuilderOption {
	return func(m *material) {
		m.transparent = transparent
	}
}

// WithUniforms sets the initial uniforms.
func WithUniforms(uniforms ...Uniform) MaterialBuilderOption {
	return func(m *material) {
		m.uniforms = append(m.uniforms, uniforms...)
	}
}

// WithDefines sets the initial shader defines.
func WithDefines(defines map[string]string) MaterialBuilderOption {
	return func(m *material) {
		mergeDefines(m.defines, maps.Clone(defines))
	}
}

// WithRenderDefaults replaces the defaults every unset render-state field falls back to.
//
// Parameters:
//   - defaults: the render defaults, usually shared by every material of a renderer
//
// Returns:
//   - MaterialBuilderOption: a function that applies the defaults option to a material
func WithRenderDefaults(defaults render_state.RenderDefaults) MaterialBuilderOption {
	return func(m *material) {
		m.defaults = defaults
	}
}

// WithGroupIndex sets the bind group index the uniforms are bound to. The default is DefaultGroupIndex.
func WithGroupIndex(index uint32) MaterialBuilderOption {
	return func(m *material) {
		m.groupIndex = index
	}
}

// WithDuplicatePolicy sets how two uniforms declaring the same binding are resolved. The default
// is DuplicateFirstWins.
func WithDuplicatePolicy(policy DuplicatePolicy) MaterialBuilderOption {
	return func(m *material) {
		m.policy = policy
	}
}

// WithUpdateHook sets a function run at the start of every Update.
func WithUpdateHook(hook UpdateHook) MaterialBuilderOption {
	return func(m *material) {
		m.hook = hook
	}
}

func WithBlendConstant(c wgpu.Color) MaterialBuilderOption {
	return func(m *material) {
		m.blendConstant = &c
	}
}

func WithStencilReference(reference uint32) MaterialBuilderOption {
	return func(m *material) {
		m.stencilReference = &reference
	}
}

func WithTargetOptions(options ...render_state.TargetOption) MaterialBuilderOption {
	return func(m *material) {
		for _, option := range options {
			option(&m.target)
		}
	}
}

func WithPrimitiveOptions(options ...render_state.PrimitiveOption) MaterialBuilderOption {
	return func(m *material) {
		for _, option := range options {
			option(&m.primitive)
		}
	}
}

func WithMultisampleOptions(options ...render_state.MultisampleOption) MaterialBuilderOption {
	return func(m *material) {
		for _, option := range options {
			option(&m.multisample)
		}
	}
}

func WithDepthStencilOptions(options ...render_state.DepthStencilOption) MaterialBuilderOption {
	return func(m *material) {
		for _, option := range options {
			option(&m.depthStencil)
		}
	}
}
