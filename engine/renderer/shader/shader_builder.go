package shader

import "maps"

// ShaderBuilderOption is a functional option applied to a shader during construction via NewShader.
type ShaderBuilderOption func(*shader)

// WithDefaultDefines sets defines every variant starts from. Material defines override them.
//
// Parameters:
//   - defines: the default define values
//
// Returns:
//   - ShaderBuilderOption: a function that applies the default defines option to a shader
func WithDefaultDefines(defines map[string]string) ShaderBuilderOption {
	return func(s *shader) {
		maps.Copy(s.defaultDefines, defines)
	}
}

// WithValidation enables naga validation of each variant's WGSL when it is first compiled.
//
// Parameters:
//   - validate: true to validate variants
//
// Returns:
//   - ShaderBuilderOption: a function that applies the validation option to a shader
func WithValidation(validate bool) ShaderBuilderOption {
	return func(s *shader) {
		s.validate = validate
	}
}

// WithVariantCacheCapacity sets the per-shard capacity of the variant cache. Zero uses the cache default.
//
// Parameters:
//   - capacity: entries per cache shard
//
// Returns:
//   - ShaderBuilderOption: a function that applies the capacity option to a shader
func WithVariantCacheCapacity(capacity int) ShaderBuilderOption {
	return func(s *shader) {
		s.cacheCapacity = capacity
	}
}
