package buffer

import (
	"testing"

	"github.com/Carmen-Shannon/oxy-frame/common"
	"github.com/Carmen-Shannon/oxy-frame/engine/renderer/gpu/gputest"
	"github.com/cogentcore/webgpu/wgpu"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewVertexBufferUploadsPaddedData(t *testing.T) {
	dev := gputest.NewDevice()
	b, err := NewVertexBuffer(dev, "verts", []byte{1, 2, 3, 4, 5})
	require.NoError(t, err)

	assert.Equal(t, uint64(8), b.Size())
	assert.Equal(t, wgpu.BufferUsageVertex|wgpu.BufferUsageCopyDst, b.Usage())

	g, err := b.GPU()
	require.NoError(t, err)
	assert.Equal(t, []byte{1, 2, 3, 4, 5, 0, 0, 0}, g.(*gputest.Buffer).Data)
}

func TestNewIndexBufferUsage(t *testing.T) {
	dev := gputest.NewDevice()
	b, err := NewIndexBuffer(dev, "idx", common.Uint16sToBytes([]uint16{0, 1, 2}))
	require.NoError(t, err)
	assert.Equal(t, wgpu.BufferUsageIndex|wgpu.BufferUsageCopyDst, b.Usage())
	assert.Equal(t, uint64(8), b.Size())
}

func TestNewUniformBufferDefaults(t *testing.T) {
	dev := gputest.NewDevice()
	b, err := NewUniformBuffer(dev, "uniforms", 64)
	require.NoError(t, err)

	assert.Equal(t, wgpu.BufferUsageUniform|wgpu.BufferUsageCopyDst, b.Usage())
	assert.Equal(t, DefaultLayoutType, b.LayoutType())
	assert.Equal(t, 0, dev.Count("WriteBuffer"))
}

func TestNewUniformBufferWithStorageUsage(t *testing.T) {
	dev := gputest.NewDevice()
	layout := wgpu.BufferBindingLayout{Type: wgpu.BufferBindingTypeReadOnlyStorage}
	b, err := NewUniformBuffer(dev, "storage", 16, WithUsage(wgpu.BufferUsageStorage), WithLayoutType(layout))
	require.NoError(t, err)

	assert.Equal(t, wgpu.BufferUsageStorage|wgpu.BufferUsageCopyDst, b.Usage())
	assert.Equal(t, layout, b.LayoutType())
}

func TestNewBufferZeroSize(t *testing.T) {
	_, err := NewVertexBuffer(gputest.NewDevice(), "empty", nil)
	assert.ErrorIs(t, err, common.ErrUsage)
}

func TestSetSubData(t *testing.T) {
	dev := gputest.NewDevice()
	b, err := NewUniformBuffer(dev, "u", 8)
	require.NoError(t, err)

	require.NoError(t, b.SetSubData(4, []byte{9, 9, 9, 9}))
	g, _ := b.GPU()
	assert.Equal(t, []byte{0, 0, 0, 0, 9, 9, 9, 9}, g.(*gputest.Buffer).Data)

	assert.ErrorIs(t, b.SetSubData(6, []byte{1, 2, 3, 4}), common.ErrUsage)
}

func TestDestroyTombstones(t *testing.T) {
	dev := gputest.NewDevice()
	b, err := NewUniformBuffer(dev, "u", 16)
	require.NoError(t, err)
	g, _ := b.GPU()

	b.Destroy()
	b.Destroy()

	assert.True(t, b.Destroyed())
	assert.True(t, g.(*gputest.Buffer).Released)
	_, err = b.GPU()
	assert.ErrorIs(t, err, common.ErrDestroyed)
	assert.ErrorIs(t, b.SetSubData(0, []byte{0, 0, 0, 0}), common.ErrDestroyed)
}

func TestDataBuffer(t *testing.T) {
	d := NewDataBuffer()
	assert.Equal(t, 0, d.Set(1, 2, 3))
	assert.Equal(t, 3, d.Set(4))
	assert.Equal(t, 4, d.Len())

	d.Update(1, 7, 8)
	assert.Equal(t, []float32{1, 7, 8, 4}, d.Floats())

	d.Update(5, 6)
	assert.Equal(t, []float32{1, 7, 8, 4, 0, 6}, d.Floats())

	d.Delete(1, 2)
	assert.Equal(t, []float32{1, 4, 0, 6}, d.Floats())
	assert.Len(t, d.Bytes(), 16)

	d.FillDefault(2)
	assert.Equal(t, []float32{0, 0}, d.Floats())
}
