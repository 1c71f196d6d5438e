package buffer

import "github.com/cogentcore/webgpu/wgpu"

// BufferBuilderOption is a functional option applied to a buffer during construction.
type BufferBuilderOption func(*buffer)

// WithUsage replaces the usage flags the constructor would otherwise use, e.g. to create a storage buffer.
//
// Parameters:
//   - usage: the usage flags
//
// Returns:
//   - BufferBuilderOption: a function that applies the usage option to a buffer
func WithUsage(usage wgpu.BufferUsage) BufferBuilderOption {
	return func(b *buffer) {
		b.usage = usage
	}
}

// WithLayoutType sets the binding layout the buffer reports to bind group resolution.
//
// Parameters:
//   - layout: the buffer binding layout
//
// Returns:
//   - BufferBuilderOption: a function that applies the layout option to a buffer
func WithLayoutType(layout wgpu.BufferBindingLayout) BufferBuilderOption {
	return func(b *buffer) {
		b.layoutType = layout
	}
}
