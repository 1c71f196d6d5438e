package material

import (
	"fmt"
	"slices"

	"github.com/Carmen-Shannon/oxy-frame/common"
	"github.com/Carmen-Shannon/oxy-frame/engine/renderer/buffer"
	"github.com/Carmen-Shannon/oxy-frame/engine/renderer/gpu"
	"github.com/cogentcore/webgpu/wgpu"
	"github.com/go-gl/mathgl/mgl32"
)

// UniformKind is the closed set of binding kinds a material can declare.
type UniformKind int

const (
	// UniformKindNumber is a value packed into a uniform or storage buffer.
	UniformKindNumber UniformKind = iota + 1
	// UniformKindTexture is a sampled texture view.
	UniformKindTexture
	// UniformKindSampler is a sampler.
	UniformKindSampler
)

func (k UniformKind) String() string {
	switch k {
	case UniformKindNumber:
		return "number"
	case UniformKindTexture:
		return "texture"
	case UniformKindSampler:
		return "sampler"
	default:
		return fmt.Sprintf("UniformKind(%d)", int(k))
	}
}

// Uniform describes one shader binding of a material. The concrete types are *NumberUniform,
// *TextureUniform and *SamplerUniform; bind group resolution rejects any other kind.
type Uniform interface {
	// Name returns the uniform's name, used in logs.
	Name() string

	// Binding returns the binding slot inside the material's bind group.
	Binding() uint32

	// Visibility returns the shader stages that can access the binding.
	Visibility() wgpu.ShaderStage

	// Kind returns the binding kind.
	Kind() UniformKind
}

// NumberType is the value type of a NumberUniform.
type NumberType int

const (
	NumberFloat NumberType = iota
	NumberVec2
	NumberVec3
	NumberVec4
	NumberColor
	NumberMat2
	NumberMat3
	NumberMat4
)

// Size returns the packed byte size of the type.
func (t NumberType) Size() uint64 {
	return uint64(t.floats()) * 4
}

func (t NumberType) floats() int {
	switch t {
	case NumberFloat:
		return 1
	case NumberVec2:
		return 2
	case NumberVec3:
		return 3
	case NumberVec4, NumberColor, NumberMat2:
		return 4
	case NumberMat3:
		return 12
	case NumberMat4:
		return 16
	default:
		return 0
	}
}

// NumberUniform is a value written into a material's uniform data, or a binding over a buffer
// the caller manages.
//
// Values are pulled from the source on every update and written into the material's data buffer
// only when they change. Consecutive number uniforms are packed tightly in declaration order, so
// declare them in an order that matches the WGSL struct alignment.
type NumberUniform struct {
	name       string
	binding    uint32
	visibility wgpu.ShaderStage
	typ        NumberType

	source func() []float32
	value  []float32
	offset int
	data   *buffer.DataBuffer

	buffer     buffer.Buffer
	bufferSize uint64
}

var _ Uniform = &NumberUniform{}

func (u *NumberUniform) Name() string                 { return u.name }
func (u *NumberUniform) Binding() uint32              { return u.binding }
func (u *NumberUniform) Visibility() wgpu.ShaderStage { return u.visibility }
func (u *NumberUniform) Kind() UniformKind            { return UniformKindNumber }

// Type returns the value type.
func (u *NumberUniform) Type() NumberType { return u.typ }

// Size returns the packed byte size.
func (u *NumberUniform) Size() uint64 { return u.typ.Size() }

// Offset returns the float offset of the value inside the material's data buffer, or -1 before
// the uniform is attached to a material.
func (u *NumberUniform) Offset() int {
	if u.data == nil {
		return -1
	}
	return u.offset
}

// Buffer returns the buffer this uniform binds instead of the material's, or nil.
func (u *NumberUniform) Buffer() buffer.Buffer { return u.buffer }

// BufferSize returns the binding size override, 0 when the size is derived from the uniforms.
func (u *NumberUniform) BufferSize() uint64 { return u.bufferSize }

// Value returns the last value written.
func (u *NumberUniform) Value() []float32 { return slices.Clone(u.value) }

// attach reserves space for the value in data. Uniforms over their own buffer reserve nothing.
func (u *NumberUniform) attach(data *buffer.DataBuffer) {
	if u.buffer != nil || u.source == nil {
		return
	}
	u.data = data
	u.value = make([]float32, u.typ.floats())
	u.offset = data.Set(u.value...)
}

// set pulls the current value and writes it into the data buffer when it changed.
//
// Returns:
//   - bool: true if the data buffer was written
func (u *NumberUniform) set() bool {
	if u.data == nil {
		return false
	}
	v := u.source()
	if len(v) != len(u.value) || slices.Equal(v, u.value) {
		return false
	}
	copy(u.value, v)
	u.data.Update(u.offset, u.value...)
	return true
}

func newNumber[T any](name string, binding uint32, visibility wgpu.ShaderStage, typ NumberType, source func() T, flat func(T) []float32) *NumberUniform {
	return &NumberUniform{
		name:       name,
		binding:    binding,
		visibility: visibility,
		typ:        typ,
		source:     func() []float32 { return flat(source()) },
	}
}

// Const adapts a constant into a uniform source.
func Const[T any](v T) func() T {
	return func() T { return v }
}

// NewFloatUniform creates a f32 uniform.
//
// Parameters:
//   - name: the uniform name
//   - binding: the binding slot
//   - visibility: the shader stages that read it
//   - source: called every update for the current value; use Const for fixed values
//
// Returns:
//   - *NumberUniform: the uniform
func NewFloatUniform(name string, binding uint32, visibility wgpu.ShaderStage, source func() float32) *NumberUniform {
	return newNumber(name, binding, visibility, NumberFloat, source, func(v float32) []float32 { return []float32{v} })
}

// NewVec2Uniform creates a vec2<f32> uniform.
func NewVec2Uniform(name string, binding uint32, visibility wgpu.ShaderStage, source func() mgl32.Vec2) *NumberUniform {
	return newNumber(name, binding, visibility, NumberVec2, source, func(v mgl32.Vec2) []float32 { return v[:] })
}

// NewVec3Uniform creates a vec3<f32> uniform.
func NewVec3Uniform(name string, binding uint32, visibility wgpu.ShaderStage, source func() mgl32.Vec3) *NumberUniform {
	return newNumber(name, binding, visibility, NumberVec3, source, func(v mgl32.Vec3) []float32 { return v[:] })
}

// NewVec4Uniform creates a vec4<f32> uniform.
func NewVec4Uniform(name string, binding uint32, visibility wgpu.ShaderStage, source func() mgl32.Vec4) *NumberUniform {
	return newNumber(name, binding, visibility, NumberVec4, source, func(v mgl32.Vec4) []float32 { return v[:] })
}

// NewColorUniform creates a vec4<f32> uniform from a color.
func NewColorUniform(name string, binding uint32, visibility wgpu.ShaderStage, source func() wgpu.Color) *NumberUniform {
	return newNumber(name, binding, visibility, NumberColor, source, func(c wgpu.Color) []float32 {
		return []float32{float32(c.R), float32(c.G), float32(c.B), float32(c.A)}
	})
}

// NewMat2Uniform creates a mat2x2<f32> uniform.
func NewMat2Uniform(name string, binding uint32, visibility wgpu.ShaderStage, source func() mgl32.Mat2) *NumberUniform {
	return newNumber(name, binding, visibility, NumberMat2, source, func(m mgl32.Mat2) []float32 { return m[:] })
}

// NewMat3Uniform creates a mat3x3<f32> uniform. Each column is padded to 16 bytes to match the
// WGSL layout, so the uniform occupies 48 bytes.
func NewMat3Uniform(name string, binding uint32, visibility wgpu.ShaderStage, source func() mgl32.Mat3) *NumberUniform {
	return newNumber(name, binding, visibility, NumberMat3, source, func(m mgl32.Mat3) []float32 {
		return []float32{
			m[0], m[1], m[2], 0,
			m[3], m[4], m[5], 0,
			m[6], m[7], m[8], 0,
		}
	})
}

// NewMat4Uniform creates a mat4x4<f32> uniform.
func NewMat4Uniform(name string, binding uint32, visibility wgpu.ShaderStage, source func() mgl32.Mat4) *NumberUniform {
	return newNumber(name, binding, visibility, NumberMat4, source, func(m mgl32.Mat4) []float32 { return m[:] })
}

// NewBufferUniform binds a caller-managed buffer, such as a storage buffer shared between
// materials. The material never writes to it.
//
// Parameters:
//   - name: the uniform name
//   - binding: the binding slot
//   - visibility: the shader stages that read it
//   - buf: the buffer to bind; its LayoutType becomes the layout entry
//   - size: the binding size in bytes, or 0 for the whole buffer
//
// Returns:
//   - *NumberUniform: the uniform
func NewBufferUniform(name string, binding uint32, visibility wgpu.ShaderStage, buf buffer.Buffer, size uint64) *NumberUniform {
	if size == 0 {
		size = buf.Size()
	}
	return &NumberUniform{
		name:       name,
		binding:    binding,
		visibility: visibility,
		buffer:     buf,
		bufferSize: size,
	}
}

// TextureUniform binds a sampled texture view.
type TextureUniform struct {
	name       string
	binding    uint32
	visibility wgpu.ShaderStage
	view       gpu.TextureView
	layout     wgpu.TextureBindingLayout
}

var _ Uniform = &TextureUniform{}

// DefaultTextureLayout is a filterable float 2D texture binding.
var DefaultTextureLayout = wgpu.TextureBindingLayout{
	SampleType:    wgpu.TextureSampleTypeFloat,
	ViewDimension: wgpu.TextureViewDimension2D,
}

// NewTextureUniform binds an existing view with DefaultTextureLayout.
func NewTextureUniform(name string, binding uint32, visibility wgpu.ShaderStage, view gpu.TextureView) *TextureUniform {
	return &TextureUniform{name: name, binding: binding, visibility: visibility, view: view, layout: DefaultTextureLayout}
}

// NewTextureUniformFromData uploads RGBA pixels and binds the resulting view.
//
// Parameters:
//   - device: the device to create the texture on
//   - name: the uniform name, also the texture label
//   - binding: the binding slot
//   - visibility: the shader stages that sample it
//   - staging: the pixel data
//
// Returns:
//   - *TextureUniform: the uniform
//   - error: an error if the texture cannot be created
func NewTextureUniformFromData(device gpu.Device, name string, binding uint32, visibility wgpu.ShaderStage, staging common.TextureStagingData) (*TextureUniform, error) {
	if staging.Width == 0 || staging.Height == 0 || uint64(len(staging.Pixels)) != uint64(staging.Width)*uint64(staging.Height)*4 {
		return nil, fmt.Errorf("%w: texture %q has %d bytes for %dx%d RGBA pixels",
			common.ErrConfiguration, name, len(staging.Pixels), staging.Width, staging.Height)
	}
	view, err := device.CreateTexture(name, staging)
	if err != nil {
		return nil, fmt.Errorf("failed to create texture %q: %w", name, err)
	}
	return NewTextureUniform(name, binding, visibility, view), nil
}

func (u *TextureUniform) Name() string                      { return u.name }
func (u *TextureUniform) Binding() uint32                   { return u.binding }
func (u *TextureUniform) Visibility() wgpu.ShaderStage      { return u.visibility }
func (u *TextureUniform) Kind() UniformKind                 { return UniformKindTexture }
func (u *TextureUniform) View() gpu.TextureView             { return u.view }
func (u *TextureUniform) Layout() wgpu.TextureBindingLayout { return u.layout }

// SamplerUniform binds a sampler.
type SamplerUniform struct {
	name        string
	binding     uint32
	visibility  wgpu.ShaderStage
	sampler     gpu.Sampler
	bindingType wgpu.SamplerBindingType
}

var _ Uniform = &SamplerUniform{}

// NewSamplerUniform binds an existing filtering sampler.
func NewSamplerUniform(name string, binding uint32, visibility wgpu.ShaderStage, sampler gpu.Sampler) *SamplerUniform {
	return &SamplerUniform{
		name:        name,
		binding:     binding,
		visibility:  visibility,
		sampler:     sampler,
		bindingType: wgpu.SamplerBindingTypeFiltering,
	}
}

// NewSamplerUniformFromData creates a sampler and binds it. Zero staging fields use linear
// filtering with repeat addressing.
func NewSamplerUniformFromData(device gpu.Device, name string, binding uint32, visibility wgpu.ShaderStage, staging common.SamplerStagingData) (*SamplerUniform, error) {
	sampler, err := device.CreateSampler(name, staging)
	if err != nil {
		return nil, fmt.Errorf("failed to create sampler %q: %w", name, err)
	}
	u := NewSamplerUniform(name, binding, visibility, sampler)
	if staging.Compare != wgpu.CompareFunctionUndefined {
		u.bindingType = wgpu.SamplerBindingTypeComparison
	}
	return u, nil
}

func (u *SamplerUniform) Name() string                         { return u.name }
func (u *SamplerUniform) Binding() uint32                      { return u.binding }
func (u *SamplerUniform) Visibility() wgpu.ShaderStage         { return u.visibility }
func (u *SamplerUniform) Kind() UniformKind                    { return UniformKindSampler }
func (u *SamplerUniform) Sampler() gpu.Sampler                 { return u.sampler }
func (u *SamplerUniform) BindingType() wgpu.SamplerBindingType { return u.bindingType }
