// Package bind_group_cache deduplicates GPU bind group layouts and bind groups by their structural
// description so identical binding requests share one GPU object.
package bind_group_cache

import (
	"fmt"
	"slices"
	"strings"
	"sync"

	"github.com/Carmen-Shannon/oxy-frame/common"
	"github.com/Carmen-Shannon/oxy-frame/engine/renderer/gpu"
	"github.com/cogentcore/webgpu/wgpu"
)

// BindGroupLayout is a cached, reference-counted bind group layout.
type BindGroupLayout struct {
	Key     string
	Label   string
	Index   uint32
	Entries []wgpu.BindGroupLayoutEntry
	GPU     gpu.BindGroupLayout

	refs int
}

// BindGroup is a cached, reference-counted bind group. Index is the group slot it binds to.
type BindGroup struct {
	Key     string
	Label   string
	Index   uint32
	Layout  *BindGroupLayout
	Entries []gpu.BindGroupEntry
	GPU     gpu.BindGroup

	refs int
}

// bindGroupCache is the implementation of the Cache interface.
type bindGroupCache struct {
	mu *sync.Mutex

	device  gpu.Device
	layouts map[string]*BindGroupLayout
	groups  map[string]*BindGroup
}

// Cache hands out shared bind group layouts and bind groups. Each Acquire adds a reference that
// the owner gives back with the matching Release; the GPU object is released with the last reference.
type Cache interface {
	// AcquireLayout fetches or creates the layout for label, entries and group index. Entry order
	// does not matter: entries are keyed and created sorted by binding.
	//
	// Parameters:
	//   - label: the caller's label, part of the key
	//   - entries: the layout entries
	//   - index: the bind group index, part of the key
	//
	// Returns:
	//   - *BindGroupLayout: the shared layout
	//   - error: an error if GPU creation fails
	AcquireLayout(label string, entries []wgpu.BindGroupLayoutEntry, index uint32) (*BindGroupLayout, error)

	// AcquireBindGroup fetches or creates the bind group for label, layout, entries and group index.
	// Resources are identified by handle, so two groups over the same buffers, views and samplers
	// are the same group.
	//
	// Parameters:
	//   - label: the caller's label, part of the key
	//   - layout: the layout acquired for these entries
	//   - entries: the resource entries
	//   - index: the bind group index, part of the key
	//
	// Returns:
	//   - *BindGroup: the shared bind group
	//   - error: an error if GPU creation fails
	AcquireBindGroup(label string, layout *BindGroupLayout, entries []gpu.BindGroupEntry, index uint32) (*BindGroup, error)

	// ReleaseLayout drops one reference to l, releasing the GPU layout when none remain.
	ReleaseLayout(l *BindGroupLayout)

	// ReleaseBindGroup drops one reference to g, releasing the GPU bind group when none remain.
	ReleaseBindGroup(g *BindGroup)

	// Refs returns the current reference count for a layout or bind group key, 0 if it is not cached.
	Refs(key string) int

	// Len returns the number of cached layouts and bind groups.
	Len() (layouts, groups int)

	// Clear releases every cached GPU object regardless of references.
	Clear()
}

var _ Cache = &bindGroupCache{}

// NewCache creates an empty Cache that allocates through device.
//
// Parameters:
//   - device: the GPU device to create layouts and groups on
//
// Returns:
//   - Cache: the cache
func NewCache(device gpu.Device) Cache {
	return &bindGroupCache{
		mu:      &sync.Mutex{},
		device:  device,
		layouts: make(map[string]*BindGroupLayout),
		groups:  make(map[string]*BindGroup),
	}
}

func (c *bindGroupCache) AcquireLayout(label string, entries []wgpu.BindGroupLayoutEntry, index uint32) (*BindGroupLayout, error) {
	sorted := slices.Clone(entries)
	slices.SortFunc(sorted, func(a, b wgpu.BindGroupLayoutEntry) int { return int(a.Binding) - int(b.Binding) })
	key := LayoutKey(label, sorted, index)

	c.mu.Lock()
	defer c.mu.Unlock()

	if l, ok := c.layouts[key]; ok {
		l.refs++
		return l, nil
	}

	created, err := c.device.CreateBindGroupLayout(&gpu.BindGroupLayoutDescriptor{
		Label:   label,
		Entries: sorted,
	})
	if err != nil {
		return nil, fmt.Errorf("bind group layout %q: %w", label, err)
	}
	l := &BindGroupLayout{Key: key, Label: label, Index: index, Entries: sorted, GPU: created, refs: 1}
	c.layouts[key] = l
	common.Logger().Debug("bind group layout created", "label", label, "index", index, "entries", len(sorted))
	return l, nil
}

func (c *bindGroupCache) AcquireBindGroup(label string, layout *BindGroupLayout, entries []gpu.BindGroupEntry, index uint32) (*BindGroup, error) {
	if layout == nil {
		return nil, fmt.Errorf("%w: bind group %q has no layout", common.ErrUsage, label)
	}
	sorted := slices.Clone(entries)
	slices.SortFunc(sorted, func(a, b gpu.BindGroupEntry) int { return int(a.Binding) - int(b.Binding) })
	key := GroupKey(label, layout.Key, sorted, index)

	c.mu.Lock()
	defer c.mu.Unlock()

	if g, ok := c.groups[key]; ok {
		g.refs++
		return g, nil
	}

	created, err := c.device.CreateBindGroup(&gpu.BindGroupDescriptor{
		Label:   label,
		Layout:  layout.GPU,
		Entries: sorted,
	})
	if err != nil {
		return nil, fmt.Errorf("bind group %q: %w", label, err)
	}
	g := &BindGroup{Key: key, Label: label, Index: index, Layout: layout, Entries: sorted, GPU: created, refs: 1}
	c.groups[key] = g
	common.Logger().Debug("bind group created", "label", label, "index", index, "entries", len(sorted))
	return g, nil
}

func (c *bindGroupCache) ReleaseLayout(l *BindGroupLayout) {
	if l == nil {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	cached, ok := c.layouts[l.Key]
	if !ok || cached != l {
		return
	}
	l.refs--
	if l.refs > 0 {
		return
	}
	delete(c.layouts, l.Key)
	l.GPU.Release()
	common.Logger().Debug("bind group layout evicted", "label", l.Label, "index", l.Index)
}

func (c *bindGroupCache) ReleaseBindGroup(g *BindGroup) {
	if g == nil {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	cached, ok := c.groups[g.Key]
	if !ok || cached != g {
		return
	}
	g.refs--
	if g.refs > 0 {
		return
	}
	delete(c.groups, g.Key)
	g.GPU.Release()
	common.Logger().Debug("bind group evicted", "label", g.Label, "index", g.Index)
}

func (c *bindGroupCache) Refs(key string) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	if l, ok := c.layouts[key]; ok {
		return l.refs
	}
	if g, ok := c.groups[key]; ok {
		return g.refs
	}
	return 0
}

func (c *bindGroupCache) Len() (layouts, groups int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.layouts), len(c.groups)
}

func (c *bindGroupCache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	for key, g := range c.groups {
		g.GPU.Release()
		delete(c.groups, key)
	}
	for key, l := range c.layouts {
		l.GPU.Release()
		delete(c.layouts, key)
	}
}

// LayoutKey builds the structural key of a layout. Entries must already be sorted by binding.
func LayoutKey(label string, entries []wgpu.BindGroupLayoutEntry, index uint32) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s@%d", label, index)
	for _, e := range entries {
		fmt.Fprintf(&b, "|%d:%d", e.Binding, e.Visibility)
		switch {
		case e.Buffer.Type != wgpu.BufferBindingTypeUndefined:
			fmt.Fprintf(&b, ":buf:%d:%t:%d", e.Buffer.Type, e.Buffer.HasDynamicOffset, e.Buffer.MinBindingSize)
		case e.Sampler.Type != wgpu.SamplerBindingTypeUndefined:
			fmt.Fprintf(&b, ":smp:%d", e.Sampler.Type)
		case e.Texture.SampleType != wgpu.TextureSampleTypeUndefined:
			fmt.Fprintf(&b, ":tex:%d:%d:%t", e.Texture.SampleType, e.Texture.ViewDimension, e.Texture.Multisampled)
		}
	}
	return b.String()
}

// GroupKey builds the key of a bind group from its layout key and resource identities. Entries
// must already be sorted by binding.
func GroupKey(label, layoutKey string, entries []gpu.BindGroupEntry, index uint32) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s@%d<%s>", label, index, layoutKey)
	for _, e := range entries {
		switch {
		case e.Buffer != nil:
			fmt.Fprintf(&b, "|%d:buf:%p:%d:%d", e.Binding, e.Buffer, e.Offset, e.Size)
		case e.TextureView != nil:
			fmt.Fprintf(&b, "|%d:tex:%p", e.Binding, e.TextureView)
		case e.Sampler != nil:
			fmt.Fprintf(&b, "|%d:smp:%p", e.Binding, e.Sampler)
		default:
			fmt.Fprintf(&b, "|%d:none", e.Binding)
		}
	}
	return b.String()
}
