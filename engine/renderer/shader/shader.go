package shader

import (
	"fmt"
	"maps"
	"slices"
	"strings"

	"github.com/Carmen-Shannon/oxy-frame/common"
	"github.com/cogentcore/webgpu/wgpu"
	"github.com/gogpu/gg/cache"
	"github.com/gogpu/naga"
)

// ShaderType identifies a shader stage.
type ShaderType int

const (
	// ShaderTypeCompute indicates a shader containing a @compute entry point.
	ShaderTypeCompute ShaderType = iota

	// ShaderTypeVertex is the vertex stage of a render shader.
	ShaderTypeVertex

	// ShaderTypeFragment is the fragment stage of a render shader.
	ShaderTypeFragment
)

// Variant is one pre-processed, reflected specialization of a Shader for a set of defines.
// Variants are immutable and shared while cached.
type Variant struct {
	// Key identifies the variant: the shader label, a hash of its source and its sorted
	// defines. Equal keys mean equal code, so module and pipeline caches key on it.
	Key   string
	Label string
	Code  string

	VertexEntryPoint   string
	FragmentEntryPoint string
	ComputeEntryPoint  string

	// VertexLayouts are reflected from the vertex input structs, one buffer slot per struct.
	VertexLayouts []wgpu.VertexBufferLayout

	// WorkgroupSize is only meaningful for compute variants.
	WorkgroupSize [3]uint32
}

// Compute reports whether the variant is a compute shader.
func (v *Variant) Compute() bool {
	return v.ComputeEntryPoint != ""
}

// shader is the implementation of the Shader interface.
type shader struct {
	label          string
	source         string
	keyPrefix      string
	defaultDefines map[string]string
	validate       bool
	cacheCapacity  int

	pp       PreProcessor
	variants *cache.ShardedCache[string, variantResult]
}

// variantResult is what the variant cache stores, so failed compiles are reported to the
// caller that triggered them.
type variantResult struct {
	variant *Variant
	err     error
}

// Shader is a WGSL source template that produces variants from material defines.
type Shader interface {
	// Label returns the shader's debug label.
	//
	// Returns:
	//   - string: the label given to NewShader
	Label() string

	// Source returns the unprocessed WGSL template.
	//
	// Returns:
	//   - string: the WGSL source including directives
	Source() string

	// Variant returns the variant for the given defines, compiling it on first use. Defines
	// are merged over the shader's default defines. Identical effective defines return the
	// same *Variant while it stays in the bounded variant cache; after eviction an equal
	// variant with the same Key is recompiled.
	//
	// Parameters:
	//   - defines: the material defines selecting the variant, may be nil
	//
	// Returns:
	//   - *Variant: the compiled variant
	//   - error: an error wrapping common.ErrConfiguration if pre-processing or validation fails
	Variant(defines map[string]string) (*Variant, error)

	// VariantKey returns the cache key Variant would use for the given defines without compiling.
	//
	// Parameters:
	//   - defines: the material defines
	//
	// Returns:
	//   - string: the variant key
	VariantKey(defines map[string]string) string

	// CompiledVariants returns the number of variants currently cached.
	//
	// Returns:
	//   - int: the cached variant count
	CompiledVariants() int
}

var _ Shader = &shader{}

// NewShader creates a Shader from WGSL source.
//
// Parameters:
//   - label: a debug label, also the prefix of every variant key
//   - source: the WGSL template
//   - options: functional options for shader configuration
//
// Returns:
//   - Shader: the shader
//   - error: an error wrapping common.ErrConfiguration if the source is empty
func NewShader(label, source string, options ...ShaderBuilderOption) (Shader, error) {
	if strings.TrimSpace(source) == "" {
		return nil, fmt.Errorf("%w: shader %q has no source", common.ErrConfiguration, label)
	}
	s := &shader{
		label:          label,
		source:         source,
		keyPrefix:      fmt.Sprintf("%s@%016x", label, cache.StringHasher(source)),
		defaultDefines: map[string]string{},
		pp:             NewPreProcessor(),
	}
	for _, opt := range options {
		opt(s)
	}
	s.variants = cache.NewSharded[string, variantResult](s.cacheCapacity, cache.StringHasher)
	return s, nil
}

func (s *shader) Label() string {
	return s.label
}

func (s *shader) Source() string {
	return s.source
}

func (s *shader) effectiveDefines(defines map[string]string) map[string]string {
	merged := maps.Clone(s.defaultDefines)
	maps.Copy(merged, defines)
	return merged
}

func (s *shader) VariantKey(defines map[string]string) string {
	return variantKey(s.keyPrefix, s.effectiveDefines(defines))
}

func (s *shader) Variant(defines map[string]string) (*Variant, error) {
	merged := s.effectiveDefines(defines)
	key := variantKey(s.keyPrefix, merged)

	result := s.variants.GetOrCreate(key, func() variantResult {
		v, err := s.compile(key, merged)
		return variantResult{variant: v, err: err}
	})
	if result.err != nil {
		s.variants.Delete(key)
		return nil, result.err
	}
	return result.variant, nil
}

func (s *shader) CompiledVariants() int {
	return s.variants.Len()
}

// compile pre-processes and reflects one variant.
func (s *shader) compile(key string, defines map[string]string) (*Variant, error) {
	code, err := s.pp.Process(s.source, defines)
	if err != nil {
		return nil, fmt.Errorf("shader %q: %w", s.label, err)
	}
	if s.validate {
		if _, err := naga.Compile(code); err != nil {
			return nil, fmt.Errorf("%w: shader %q variant %q failed validation: %v", common.ErrConfiguration, s.label, key, err)
		}
	}

	cleaned := stripComments(code)
	v := &Variant{
		Key:                key,
		Label:              s.label,
		Code:               code,
		VertexEntryPoint:   entryPoint(cleaned, ShaderTypeVertex),
		FragmentEntryPoint: entryPoint(cleaned, ShaderTypeFragment),
		ComputeEntryPoint:  entryPoint(cleaned, ShaderTypeCompute),
	}
	switch {
	case v.ComputeEntryPoint != "":
		v.WorkgroupSize = workgroupSize(cleaned)
	case v.VertexEntryPoint != "":
		v.VertexLayouts = vertexLayouts(cleaned)
	default:
		return nil, fmt.Errorf("%w: shader %q variant %q has no @vertex or @compute entry point", common.ErrConfiguration, s.label, key)
	}

	common.Logger().Debug("shader variant compiled", "shader", s.label, "key", key)
	return v, nil
}

// variantKey builds a deterministic key from a source-identifying prefix and defines sorted by name.
func variantKey(prefix string, defines map[string]string) string {
	var b strings.Builder
	b.WriteString(prefix)
	for _, name := range slices.Sorted(maps.Keys(defines)) {
		b.WriteByte('|')
		b.WriteString(name)
		b.WriteByte('=')
		b.WriteString(defines[name])
	}
	return b.String()
}
