package material

import (
	"fmt"

	"github.com/Carmen-Shannon/oxy-frame/common"
	"github.com/Carmen-Shannon/oxy-frame/engine/renderer/bind_group_cache"
	"github.com/Carmen-Shannon/oxy-frame/engine/renderer/buffer"
	"github.com/Carmen-Shannon/oxy-frame/engine/renderer/gpu"
	"github.com/cogentcore/webgpu/wgpu"
)

// DuplicatePolicy decides which uniform wins when two share a binding slot.
type DuplicatePolicy int

const (
	// DuplicateFirstWins keeps the first uniform declared for a binding.
	DuplicateFirstWins DuplicatePolicy = iota
	// DuplicateLastWins keeps the last uniform declared for a binding.
	DuplicateLastWins
	// DuplicateReject fails resolution with common.ErrConfiguration.
	DuplicateReject
)

func (p DuplicatePolicy) String() string {
	switch p {
	case DuplicateFirstWins:
		return "first-wins"
	case DuplicateLastWins:
		return "last-wins"
	case DuplicateReject:
		return "reject"
	default:
		return fmt.Sprintf("DuplicatePolicy(%d)", int(p))
	}
}

// DedupeUniforms returns one uniform per binding, in order of first appearance of each binding.
// Every dropped uniform is logged at warn level.
//
// Parameters:
//   - label: the label used in logs and errors
//   - uniforms: the declared uniforms
//   - policy: which duplicate survives
//
// Returns:
//   - []Uniform: the surviving uniforms
//   - error: an error wrapping common.ErrConfiguration under DuplicateReject
func DedupeUniforms(label string, uniforms []Uniform, policy DuplicatePolicy) ([]Uniform, error) {
	index := make(map[uint32]int, len(uniforms))
	out := make([]Uniform, 0, len(uniforms))
	for _, u := range uniforms {
		i, seen := index[u.Binding()]
		if !seen {
			index[u.Binding()] = len(out)
			out = append(out, u)
			continue
		}
		kept, dropped := out[i], u
		switch policy {
		case DuplicateReject:
			return nil, fmt.Errorf("%w: %q declares binding %d twice (%q and %q)",
				common.ErrConfiguration, label, u.Binding(), out[i].Name(), u.Name())
		case DuplicateLastWins:
			out[i], kept, dropped = u, u, out[i]
		}
		common.Logger().Warn("duplicate uniform binding dropped",
			"label", label, "binding", u.Binding(), "kept", kept.Name(), "dropped", dropped.Name(), "policy", policy.String())
	}
	return out, nil
}

// BindingSize sums the packed sizes of the number uniforms that live in the shared uniform buffer.
func BindingSize(uniforms []Uniform) uint64 {
	var size uint64
	for _, u := range uniforms {
		if n, ok := u.(*NumberUniform); ok && n.buffer == nil {
			size += n.Size()
		}
	}
	return size
}

// CreateBindGroupAndLayout resolves uniforms into a cached layout and bind group. Both carry a
// reference the caller must give back with ReleaseLayout and ReleaseBindGroup.
//
// Number uniforms bind their own buffer when they have one and uniformBuffer otherwise, at
// offset 0 with their BufferSize, or the packed size of all shared number uniforms rounded up
// to 16 bytes.
//
// Parameters:
//   - cache: the bind group cache
//   - uniforms: the declared uniforms
//   - uniformBuffer: the shared uniform buffer, may be nil when no number uniform needs it
//   - label: the cache label
//   - index: the bind group index
//   - policy: the duplicate binding policy
//
// Returns:
//   - *bind_group_cache.BindGroupLayout: the layout
//   - *bind_group_cache.BindGroup: the bind group
//   - error: common.ErrConfiguration for an unknown uniform kind or a rejected duplicate,
//     common.ErrUsage for a number uniform with no buffer to bind, or a creation error
func CreateBindGroupAndLayout(
	cache bind_group_cache.Cache,
	uniforms []Uniform,
	uniformBuffer buffer.Buffer,
	label string,
	index uint32,
	policy DuplicatePolicy,
) (*bind_group_cache.BindGroupLayout, *bind_group_cache.BindGroup, error) {
	deduped, err := DedupeUniforms(label, uniforms, policy)
	if err != nil {
		return nil, nil, err
	}
	sharedSize := align16(BindingSize(deduped))

	layoutEntries := make([]wgpu.BindGroupLayoutEntry, 0, len(deduped))
	groupEntries := make([]gpu.BindGroupEntry, 0, len(deduped))
	for _, u := range deduped {
		layoutEntry := wgpu.BindGroupLayoutEntry{Binding: u.Binding(), Visibility: u.Visibility()}
		groupEntry := gpu.BindGroupEntry{Binding: u.Binding()}

		switch u.Kind() {
		case UniformKindNumber:
			n, ok := u.(*NumberUniform)
			if !ok {
				return nil, nil, fmt.Errorf("%w: uniform %q reports kind number but is %T", common.ErrConfiguration, u.Name(), u)
			}
			buf, size := n.buffer, n.bufferSize
			if buf == nil {
				buf = uniformBuffer
			}
			if size == 0 {
				size = sharedSize
			}
			if buf == nil {
				return nil, nil, fmt.Errorf("%w: uniform %q of %q has no buffer to bind", common.ErrUsage, u.Name(), label)
			}
			gpuBuf, err := buf.GPU()
			if err != nil {
				return nil, nil, err
			}
			layoutEntry.Buffer = buf.LayoutType()
			groupEntry.Buffer = gpuBuf
			groupEntry.Offset = 0
			groupEntry.Size = size
		case UniformKindTexture:
			t, ok := u.(*TextureUniform)
			if !ok {
				return nil, nil, fmt.Errorf("%w: uniform %q reports kind texture but is %T", common.ErrConfiguration, u.Name(), u)
			}
			layoutEntry.Texture = t.layout
			groupEntry.TextureView = t.view
		case UniformKindSampler:
			s, ok := u.(*SamplerUniform)
			if !ok {
				return nil, nil, fmt.Errorf("%w: uniform %q reports kind sampler but is %T", common.ErrConfiguration, u.Name(), u)
			}
			layoutEntry.Sampler = wgpu.SamplerBindingLayout{Type: s.bindingType}
			groupEntry.Sampler = s.sampler
		default:
			return nil, nil, fmt.Errorf("%w: uniform %q has unknown kind %s", common.ErrConfiguration, u.Name(), u.Kind())
		}

		layoutEntries = append(layoutEntries, layoutEntry)
		groupEntries = append(groupEntries, groupEntry)
	}

	layout, err := cache.AcquireLayout(label, layoutEntries, index)
	if err != nil {
		return nil, nil, err
	}
	group, err := cache.AcquireBindGroup(label, layout, groupEntries, index)
	if err != nil {
		cache.ReleaseLayout(layout)
		return nil, nil, err
	}
	return layout, group, nil
}

// align16 rounds n up to the 16-byte size granularity of WGSL uniform structs.
func align16(n uint64) uint64 {
	return (n + 15) &^ 15
}
