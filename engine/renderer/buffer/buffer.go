package buffer

import (
	"fmt"
	"sync"

	"github.com/Carmen-Shannon/oxy-frame/common"
	"github.com/Carmen-Shannon/oxy-frame/engine/renderer/gpu"
	"github.com/cogentcore/webgpu/wgpu"
)

// DefaultLayoutType is the binding layout a uniform buffer reports when none is given.
var DefaultLayoutType = wgpu.BufferBindingLayout{
	Type:             wgpu.BufferBindingTypeUniform,
	HasDynamicOffset: false,
	MinBindingSize:   0,
}

// Buffer wraps a single GPU buffer together with the binding layout it is bound with.
//
// A Buffer is tombstoned by Destroy: every later access returns common.ErrDestroyed.
type Buffer interface {
	// GPU returns the underlying device buffer.
	//
	// Returns:
	//   - gpu.Buffer: the device buffer
	//   - error: common.ErrDestroyed if the buffer was destroyed
	GPU() (gpu.Buffer, error)

	// Label returns the debug label the buffer was created with.
	Label() string

	// Size returns the buffer size in bytes.
	Size() uint64

	// Usage returns the usage flags the buffer was created with.
	Usage() wgpu.BufferUsage

	// LayoutType returns the binding layout used when this buffer is bound in a bind group.
	LayoutType() wgpu.BufferBindingLayout

	// SetSubData uploads data into the buffer at the given byte offset.
	//
	// Parameters:
	//   - offset: the destination byte offset
	//   - data: the bytes to upload
	//
	// Returns:
	//   - error: common.ErrDestroyed after Destroy, common.ErrUsage if the write overruns the buffer
	SetSubData(offset uint64, data []byte) error

	// Destroy releases the GPU buffer. It is safe to call more than once.
	Destroy()

	// Destroyed reports whether Destroy has been called.
	Destroyed() bool
}

type buffer struct {
	mu *sync.Mutex

	device     gpu.Device
	gpuBuffer  gpu.Buffer
	label      string
	size       uint64
	usage      wgpu.BufferUsage
	layoutType wgpu.BufferBindingLayout
	destroyed  bool
}

var _ Buffer = &buffer{}

// NewBuffer creates a GPU buffer with the given usage and size and optionally uploads initial data.
// When size is zero the size is taken from data, rounded up to a multiple of 4 bytes.
//
// Parameters:
//   - device: the device to allocate on
//   - label: the debug label
//   - usage: the buffer usage flags
//   - data: initial contents, or nil
//   - size: the buffer size in bytes, or 0 to size from data
//   - options: functional options for buffer configuration
//
// Returns:
//   - Buffer: the created buffer
//   - error: an error if allocation or upload fails
func NewBuffer(device gpu.Device, label string, usage wgpu.BufferUsage, data []byte, size uint64, options ...BufferBuilderOption) (Buffer, error) {
	b := &buffer{
		mu:         &sync.Mutex{},
		device:     device,
		label:      label,
		usage:      usage,
		size:       size,
		layoutType: DefaultLayoutType,
	}
	for _, opt := range options {
		opt(b)
	}
	if b.size == 0 {
		b.size = align4(uint64(len(data)))
	}
	if b.size == 0 {
		return nil, fmt.Errorf("%w: buffer %q has zero size", common.ErrUsage, label)
	}

	gpuBuffer, err := device.CreateBuffer(&wgpu.BufferDescriptor{
		Label: label,
		Size:  b.size,
		Usage: b.usage,
	})
	if err != nil {
		return nil, err
	}
	b.gpuBuffer = gpuBuffer

	if len(data) > 0 {
		if err := b.SetSubData(0, pad4(data)); err != nil {
			gpuBuffer.Release()
			return nil, err
		}
	}
	return b, nil
}

// NewVertexBuffer creates a Vertex|CopyDst buffer holding data.
func NewVertexBuffer(device gpu.Device, label string, data []byte, options ...BufferBuilderOption) (Buffer, error) {
	return NewBuffer(device, label, wgpu.BufferUsageVertex|wgpu.BufferUsageCopyDst, data, 0, options...)
}

// NewIndexBuffer creates an Index|CopyDst buffer holding data.
func NewIndexBuffer(device gpu.Device, label string, data []byte, options ...BufferBuilderOption) (Buffer, error) {
	return NewBuffer(device, label, wgpu.BufferUsageIndex|wgpu.BufferUsageCopyDst, data, 0, options...)
}

// NewUniformBuffer creates an empty buffer of the given size for uniform data. The usage is
// Uniform|CopyDst unless WithUsage replaces it, in which case CopyDst is still added.
//
// Parameters:
//   - device: the device to allocate on
//   - label: the debug label
//   - size: the buffer size in bytes
//   - options: functional options, typically WithUsage and WithLayoutType
//
// Returns:
//   - Buffer: the created buffer
//   - error: an error if allocation fails
func NewUniformBuffer(device gpu.Device, label string, size uint64, options ...BufferBuilderOption) (Buffer, error) {
	opts := append([]BufferBuilderOption{}, options...)
	opts = append(opts, func(b *buffer) { b.usage |= wgpu.BufferUsageCopyDst })
	return NewBuffer(device, label, wgpu.BufferUsageUniform, nil, align4(size), opts...)
}

func (b *buffer) GPU() (gpu.Buffer, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.destroyed {
		return nil, fmt.Errorf("%w: buffer %q", common.ErrDestroyed, b.label)
	}
	return b.gpuBuffer, nil
}

func (b *buffer) Label() string {
	return b.label
}

func (b *buffer) Size() uint64 {
	return b.size
}

func (b *buffer) Usage() wgpu.BufferUsage {
	return b.usage
}

func (b *buffer) LayoutType() wgpu.BufferBindingLayout {
	return b.layoutType
}

func (b *buffer) SetSubData(offset uint64, data []byte) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.destroyed {
		return fmt.Errorf("%w: buffer %q", common.ErrDestroyed, b.label)
	}
	if offset+uint64(len(data)) > b.size {
		return fmt.Errorf("%w: write of %d bytes at offset %d overruns buffer %q of %d bytes",
			common.ErrUsage, len(data), offset, b.label, b.size)
	}
	return b.device.WriteBuffer(b.gpuBuffer, offset, data)
}

func (b *buffer) Destroy() {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.destroyed {
		return
	}
	b.destroyed = true
	b.gpuBuffer.Release()
	b.gpuBuffer = nil
}

func (b *buffer) Destroyed() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.destroyed
}

func align4(n uint64) uint64 {
	return (n + 3) &^ 3
}

// pad4 extends data with zero bytes to a multiple of 4, as queue writes require.
func pad4(data []byte) []byte {
	n := align4(uint64(len(data)))
	if n == uint64(len(data)) {
		return data
	}
	out := make([]byte, n)
	copy(out, data)
	return out
}
