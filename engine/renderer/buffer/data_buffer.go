package buffer

import "github.com/Carmen-Shannon/oxy-frame/common"

// DataBuffer is a growable CPU-side float32 store that backs a uniform buffer.
// Offsets are float indices, not bytes.
type DataBuffer struct {
	data []float32
}

// NewDataBuffer creates an empty DataBuffer.
func NewDataBuffer() *DataBuffer {
	return &DataBuffer{}
}

// Len returns the number of floats stored.
func (d *DataBuffer) Len() int {
	return len(d.data)
}

// FillDefault replaces the contents with n zeros.
func (d *DataBuffer) FillDefault(n int) {
	d.data = make([]float32, n)
}

// Set appends values and returns the float offset they were written at.
func (d *DataBuffer) Set(values ...float32) int {
	offset := len(d.data)
	d.data = append(d.data, values...)
	return offset
}

// Update overwrites values in place starting at offset, growing the store if needed.
func (d *DataBuffer) Update(offset int, values ...float32) {
	if end := offset + len(values); end > len(d.data) {
		d.data = append(d.data, make([]float32, end-len(d.data))...)
	}
	copy(d.data[offset:], values)
}

// Delete removes n floats starting at offset.
func (d *DataBuffer) Delete(offset, n int) {
	if offset >= len(d.data) {
		return
	}
	end := min(offset+n, len(d.data))
	d.data = append(d.data[:offset], d.data[end:]...)
}

// Floats returns the stored values. The slice aliases the store.
func (d *DataBuffer) Floats() []float32 {
	return d.data
}

// Bytes returns the little-endian encoding of the stored values.
func (d *DataBuffer) Bytes() []byte {
	return common.Float32sToBytes(d.data)
}
