// Package material holds the shader, uniforms, defines and render-state overrides of a drawable,
// and resolves them into the bind groups and render state a draw command is encoded with.
package material

import (
	"fmt"
	"maps"
	"slices"
	"sync"

	"github.com/Carmen-Shannon/oxy-frame/common"
	"github.com/Carmen-Shannon/oxy-frame/engine/frame_state"
	"github.com/Carmen-Shannon/oxy-frame/engine/renderer/bind_group_cache"
	"github.com/Carmen-Shannon/oxy-frame/engine/renderer/buffer"
	"github.com/Carmen-Shannon/oxy-frame/engine/renderer/gpu"
	"github.com/Carmen-Shannon/oxy-frame/engine/renderer/render_state"
	"github.com/Carmen-Shannon/oxy-frame/engine/renderer/shader"
	"github.com/cogentcore/webgpu/wgpu"
)

// DefaultGroupIndex is the bind group index a material binds its uniforms to. Group 0 is left
// to the renderer's system groups.
const DefaultGroupIndex = 1

// UpdateHook runs at the start of every Material.Update, before the material resolves its state.
type UpdateHook func(fs frame_state.FrameState, owner any)

type material struct {
	mu *sync.Mutex

	device   gpu.Device
	cache    bind_group_cache.Cache
	defaults render_state.RenderDefaults

	label       string
	typ         string
	shader      shader.Shader
	variant     *shader.Variant
	transparent bool
	groupIndex  uint32
	policy      DuplicatePolicy
	hook        UpdateHook

	uniforms        []Uniform
	data            *buffer.DataBuffer
	uniformBuffer   buffer.Buffer
	layout          *bind_group_cache.BindGroupLayout
	bindGroup       *bind_group_cache.BindGroup
	shaderDataDirty bool

	depthStencil     render_state.DepthStencilOverride
	primitive        render_state.PrimitiveOverride
	multisample      render_state.MultisampleOverride
	target           render_state.TargetOverride
	blendConstant    *wgpu.Color
	stencilReference *uint32
	defines          map[string]string

	renderState      *render_state.RenderState
	passTargets      []wgpu.ColorTargetState
	renderStateDirty bool
	definesDirty     bool
	dirty            bool

	listeners []func()
	destroyed bool
}

// Material describes how a drawable is shaded. Render-state setters store partial overrides
// that are merged over the injected RenderDefaults when the render state is next composed.
//
// Three flags track pending work: RenderStateDirty until the render state is recomposed,
// DefinesDirty until the shader variant is re-resolved, and Dirty whenever anything a draw
// command captures has changed since the owner last cleared it.
type Material interface {
	// Label returns the debug label.
	Label() string

	// Type returns the material type. Materials of one type share bind group layouts and pipelines.
	Type() string

	// Shader returns the shader template.
	Shader() shader.Shader

	// SetShader replaces the shader and invalidates owners.
	//
	// Parameters:
	//   - s: the new shader, must not be nil
	SetShader(s shader.Shader)

	// Variant returns the shader variant resolved by the last Update, or nil before it.
	Variant() *shader.Variant

	// Transparent reports whether owners are queued in the transparent bucket.
	Transparent() bool

	// SetTransparent moves owners between the opaque and transparent buckets from the next frame.
	SetTransparent(transparent bool)

	// Dirty reports whether the draw command of an owner is stale.
	Dirty() bool

	// ClearDirty is called by the owner once it has rebuilt its draw command.
	ClearDirty()

	// RenderStateDirty reports whether a render-state setter ran since the render state was composed.
	RenderStateDirty() bool

	// DefinesDirty reports whether the defines changed since the variant was resolved.
	DefinesDirty() bool

	// BlendConstant returns the blend constant override, or nil when the default applies.
	BlendConstant() *wgpu.Color

	// SetBlendConstant sets the blend constant. The whole color is replaced.
	SetBlendConstant(c wgpu.Color)

	// SetTargets merges options into the color target override applied to every pass target.
	SetTargets(options ...render_state.TargetOption)

	// SetMultisample merges options into the multisample override.
	SetMultisample(options ...render_state.MultisampleOption)

	// SetPrimitive merges options into the primitive override.
	SetPrimitive(options ...render_state.PrimitiveOption)

	// StencilReference returns the stencil reference override, or nil when the default applies.
	StencilReference() *uint32

	// SetStencilReference sets the stencil reference.
	SetStencilReference(reference uint32)

	// SetDepthStencil merges options into the depth-stencil override.
	SetDepthStencil(options ...render_state.DepthStencilOption)

	// Defines returns a copy of the shader defines.
	Defines() map[string]string

	// SetDefines merges defines into the current set. An empty value removes the define.
	//
	// Parameters:
	//   - defines: the defines to merge
	SetDefines(defines map[string]string)

	// Uniforms returns the uniforms after duplicate bindings were resolved.
	Uniforms() []Uniform

	// SetUniforms replaces the uniforms, reallocating the uniform buffer.
	//
	// Parameters:
	//   - uniforms: the new uniforms
	//
	// Returns:
	//   - error: common.ErrDestroyed after Destroy, common.ErrConfiguration for rejected duplicates,
	//     or a buffer creation error
	SetUniforms(uniforms ...Uniform) error

	// UniformBuffer returns the buffer the number uniforms are packed into, or nil if none.
	UniformBuffer() buffer.Buffer

	// CreateRenderState composes the render state: every unset field comes from the defaults,
	// the viewport comes from fs, and the target override is applied over the pass color targets
	// or, when the pass declares none, over the default target.
	//
	// Parameters:
	//   - fs: the frame state providing viewport and pass color targets
	//
	// Returns:
	//   - *render_state.RenderState: the new render state, also stored as RenderState()
	CreateRenderState(fs frame_state.FrameState) *render_state.RenderState

	// RenderState returns the render state composed by the last CreateRenderState.
	RenderState() *render_state.RenderState

	// BindGroups returns the material's bind groups as resolved by the last Update.
	BindGroups() []*bind_group_cache.BindGroup

	// Update prepares the material for drawing this frame: it runs the update hook, recomposes
	// the render state if needed, resolves the shader variant for the defines, resolves the bind
	// group, and uploads changed uniform values.
	//
	// Parameters:
	//   - fs: the frame state
	//   - owner: the drawable being updated
	//
	// Returns:
	//   - error: common.ErrDestroyed after Destroy, or the first resolution error
	Update(fs frame_state.FrameState, owner any) error

	// UpdateUniforms pulls every number uniform and uploads the data buffer when a value changed.
	//
	// Returns:
	//   - error: an upload error
	UpdateUniforms() error

	// OnInvalidate registers fn to be called whenever a change affects the draw command shape.
	OnInvalidate(fn func())

	// Destroy gives back the cached layout and bind group and destroys the uniform buffer.
	Destroy()

	// Destroyed reports whether Destroy has been called.
	Destroyed() bool
}

var _ Material = &material{}

// NewMaterial creates a Material.
//
// Parameters:
//   - device: the device the uniform buffer is allocated on
//   - cache: the bind group cache
//   - s: the shader template
//   - options: functional options
//
// Returns:
//   - Material: the new material
//   - error: common.ErrConfiguration for a nil shader or rejected duplicate bindings, or a buffer creation error
func NewMaterial(device gpu.Device, cache bind_group_cache.Cache, s shader.Shader, options ...MaterialBuilderOption) (Material, error) {
	if s == nil {
		return nil, fmt.Errorf("%w: material has no shader", common.ErrConfiguration)
	}
	m := &material{
		mu:               &sync.Mutex{},
		device:           device,
		cache:            cache,
		defaults:         render_state.DefaultRenderDefaults(),
		label:            s.Label(),
		typ:              "basic",
		shader:           s,
		groupIndex:       DefaultGroupIndex,
		defines:          map[string]string{},
		renderStateDirty: true,
		definesDirty:     true,
		shaderDataDirty:  true,
		dirty:            true,
	}
	for _, option := range options {
		option(m)
	}
	if err := m.rebuildUniformData(m.uniforms); err != nil {
		return nil, err
	}
	return m, nil
}

func (m *material) Label() string {
	return m.label
}

func (m *material) Type() string {
	return m.typ
}

func (m *material) Shader() shader.Shader {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.shader
}

func (m *material) SetShader(s shader.Shader) {
	if s == nil {
		return
	}
	m.mu.Lock()
	m.shader = s
	m.variant = nil
	m.definesDirty = true
	m.dirty = true
	m.mu.Unlock()
	m.invalidate()
}

func (m *material) Variant() *shader.Variant {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.variant
}

func (m *material) Transparent() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.transparent
}

func (m *material) SetTransparent(transparent bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.transparent = transparent
}

func (m *material) Dirty() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.dirty
}

func (m *material) ClearDirty() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.dirty = false
}

func (m *material) RenderStateDirty() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.renderStateDirty
}

func (m *material) DefinesDirty() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.definesDirty
}

func (m *material) BlendConstant() *wgpu.Color {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.blendConstant == nil {
		return nil
	}
	c := *m.blendConstant
	return &c
}

func (m *material) SetBlendConstant(c wgpu.Color) {
	m.setRenderState(func() { m.blendConstant = &c })
}

func (m *material) SetTargets(options ...render_state.TargetOption) {
	m.setRenderState(func() {
		for _, option := range options {
			option(&m.target)
		}
	})
}

func (m *material) SetMultisample(options ...render_state.MultisampleOption) {
	m.setRenderState(func() {
		for _, option := range options {
			option(&m.multisample)
		}
	})
}

func (m *material) SetPrimitive(options ...render_state.PrimitiveOption) {
	m.setRenderState(func() {
		for _, option := range options {
			option(&m.primitive)
		}
	})
}

func (m *material) StencilReference() *uint32 {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.stencilReference == nil {
		return nil
	}
	ref := *m.stencilReference
	return &ref
}

func (m *material) SetStencilReference(reference uint32) {
	m.setRenderState(func() { m.stencilReference = &reference })
}

func (m *material) SetDepthStencil(options ...render_state.DepthStencilOption) {
	m.setRenderState(func() {
		for _, option := range options {
			option(&m.depthStencil)
		}
	})
}

// setRenderState applies a render-state mutation, marks the render state dirty and invalidates owners.
func (m *material) setRenderState(apply func()) {
	m.mu.Lock()
	apply()
	m.renderStateDirty = true
	m.mu.Unlock()
	m.invalidate()
}

func (m *material) Defines() map[string]string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return maps.Clone(m.defines)
}

func (m *material) SetDefines(defines map[string]string) {
	m.mu.Lock()
	mergeDefines(m.defines, defines)
	m.definesDirty = true
	m.mu.Unlock()
	m.invalidate()
}

func mergeDefines(dst, src map[string]string) {
	for name, value := range src {
		if value == "" {
			delete(dst, name)
			continue
		}
		dst[name] = value
	}
}

func (m *material) Uniforms() []Uniform {
	m.mu.Lock()
	defer m.mu.Unlock()
	return slices.Clone(m.uniforms)
}

func (m *material) SetUniforms(uniforms ...Uniform) error {
	m.mu.Lock()
	if m.destroyed {
		m.mu.Unlock()
		return fmt.Errorf("%w: material %q", common.ErrDestroyed, m.label)
	}
	err := m.rebuildUniformData(uniforms)
	m.mu.Unlock()
	if err != nil {
		return err
	}
	m.invalidate()
	return nil
}

// rebuildUniformData dedupes uniforms, packs the number uniforms into a fresh data buffer and
// reallocates the uniform buffer to fit. The bind group is re-resolved on the next Update.
// Caller must hold the mutex, except during construction.
func (m *material) rebuildUniformData(uniforms []Uniform) error {
	deduped, err := DedupeUniforms(m.label, uniforms, m.policy)
	if err != nil {
		return err
	}

	data := buffer.NewDataBuffer()
	for _, u := range deduped {
		if n, ok := u.(*NumberUniform); ok {
			n.attach(data)
		}
	}

	var uniformBuffer buffer.Buffer
	if size := align16(BindingSize(deduped)); size > 0 {
		uniformBuffer, err = buffer.NewUniformBuffer(m.device, m.label+"_uniforms", size)
		if err != nil {
			return fmt.Errorf("failed to create uniform buffer for material %q: %w", m.label, err)
		}
	}

	if m.uniformBuffer != nil {
		m.uniformBuffer.Destroy()
	}
	m.uniforms = deduped
	m.data = data
	m.uniformBuffer = uniformBuffer
	m.shaderDataDirty = true
	m.dirty = true
	return nil
}

func (m *material) UniformBuffer() buffer.Buffer {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.uniformBuffer
}

func (m *material) CreateRenderState(fs frame_state.FrameState) *render_state.RenderState {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.createRenderState(fs)
}

// createRenderState is CreateRenderState with the mutex held.
func (m *material) createRenderState(fs frame_state.FrameState) *render_state.RenderState {
	d := m.defaults

	m.passTargets = slices.Clone(fs.ColorTargets())
	passTargets := m.passTargets
	if len(passTargets) == 0 {
		passTargets = []wgpu.ColorTargetState{d.Target}
	}
	targets := make([]wgpu.ColorTargetState, len(passTargets))
	for i, t := range passTargets {
		targets[i] = m.target.Apply(t)
	}

	rs := &render_state.RenderState{
		DepthStencil:     m.depthStencil.Apply(d.DepthStencil),
		Primitive:        m.primitive.Apply(d.Primitive),
		Multisample:      m.multisample.Apply(d.Multisample),
		StencilReference: d.StencilReference,
		BlendConstant:    d.BlendConstant,
		Targets:          targets,
		Viewport:         fs.Viewport(),
	}
	if m.stencilReference != nil {
		rs.StencilReference = *m.stencilReference
	}
	if m.blendConstant != nil {
		rs.BlendConstant = *m.blendConstant
	}

	m.renderState = rs
	m.renderStateDirty = false
	m.dirty = true
	return rs
}

func (m *material) RenderState() *render_state.RenderState {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.renderState
}

func (m *material) BindGroups() []*bind_group_cache.BindGroup {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.bindGroup == nil {
		return nil
	}
	return []*bind_group_cache.BindGroup{m.bindGroup}
}

func (m *material) Update(fs frame_state.FrameState, owner any) error {
	m.mu.Lock()
	hook := m.hook
	destroyed := m.destroyed
	m.mu.Unlock()
	if destroyed {
		return fmt.Errorf("%w: material %q", common.ErrDestroyed, m.label)
	}
	if hook != nil {
		hook(fs, owner)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if m.renderStateDirty || m.renderState == nil || m.renderState.Viewport != fs.Viewport() ||
		!slices.Equal(m.passTargets, fs.ColorTargets()) {
		m.createRenderState(fs)
	}

	if m.definesDirty || m.variant == nil {
		variant, err := m.shader.Variant(m.defines)
		if err != nil {
			return fmt.Errorf("material %q: %w", m.label, err)
		}
		if variant != m.variant {
			m.variant = variant
			m.dirty = true
		}
		m.definesDirty = false
	}

	if m.shaderDataDirty {
		if err := m.resolveBindGroup(); err != nil {
			return err
		}
	}

	return m.updateUniforms()
}

// resolveBindGroup swaps the cached layout and bind group for ones matching the current
// uniforms. Caller must hold the mutex.
func (m *material) resolveBindGroup() error {
	if len(m.uniforms) == 0 {
		m.releaseBindGroup()
		m.shaderDataDirty = false
		m.dirty = true
		return nil
	}
	layout, group, err := CreateBindGroupAndLayout(m.cache, m.uniforms, m.uniformBuffer, m.typ, m.groupIndex, m.policy)
	if err != nil {
		return fmt.Errorf("material %q: %w", m.label, err)
	}
	m.releaseBindGroup()
	m.layout, m.bindGroup = layout, group
	m.shaderDataDirty = false
	m.dirty = true
	return nil
}

// releaseBindGroup gives back the cached layout and bind group. Caller must hold the mutex.
func (m *material) releaseBindGroup() {
	if m.bindGroup != nil {
		m.cache.ReleaseBindGroup(m.bindGroup)
		m.bindGroup = nil
	}
	if m.layout != nil {
		m.cache.ReleaseLayout(m.layout)
		m.layout = nil
	}
}

func (m *material) UpdateUniforms() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.destroyed {
		return fmt.Errorf("%w: material %q", common.ErrDestroyed, m.label)
	}
	return m.updateUniforms()
}

// updateUniforms is UpdateUniforms with the mutex held.
func (m *material) updateUniforms() error {
	changed := false
	for _, u := range m.uniforms {
		if n, ok := u.(*NumberUniform); ok && n.set() {
			changed = true
		}
	}
	if !changed || m.uniformBuffer == nil {
		return nil
	}
	if err := m.uniformBuffer.SetSubData(0, m.data.Bytes()); err != nil {
		return fmt.Errorf("material %q: failed to upload uniforms: %w", m.label, err)
	}
	return nil
}

func (m *material) OnInvalidate(fn func()) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.listeners = append(m.listeners, fn)
}

// invalidate notifies listeners. It must be called without the mutex held.
func (m *material) invalidate() {
	m.mu.Lock()
	listeners := slices.Clone(m.listeners)
	m.mu.Unlock()
	for _, fn := range listeners {
		fn()
	}
}

func (m *material) Destroy() {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.destroyed {
		return
	}
	m.destroyed = true
	m.releaseBindGroup()
	if m.uniformBuffer != nil {
		m.uniformBuffer.Destroy()
		m.uniformBuffer = nil
	}
	m.listeners = nil
	m.renderState = nil
}

func (m *material) Destroyed() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.destroyed
}
