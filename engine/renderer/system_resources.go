package renderer

import (
	"fmt"

	"github.com/Carmen-Shannon/oxy-frame/engine/camera"
	"github.com/Carmen-Shannon/oxy-frame/engine/frame_state"
	"github.com/Carmen-Shannon/oxy-frame/engine/renderer/bind_group_cache"
	"github.com/Carmen-Shannon/oxy-frame/engine/renderer/buffer"
	"github.com/Carmen-Shannon/oxy-frame/engine/renderer/gpu"
	"github.com/cogentcore/webgpu/wgpu"
)

const (
	// CameraGroupIndex is the bind group index of the camera system group.
	CameraGroupIndex = 0
	// CameraGroupLabel is the bind group cache label of the camera system group.
	CameraGroupLabel = "camera"
)

// cameraResources is the uniform buffer and bind group that carry the camera to every shader.
type cameraResources struct {
	buffer buffer.Buffer
	layout *bind_group_cache.BindGroupLayout
	group  *bind_group_cache.BindGroup
}

func newCameraResources(device gpu.Device, cache bind_group_cache.Cache) (*cameraResources, error) {
	buf, err := buffer.NewUniformBuffer(device, "camera_uniforms", camera.GPUCameraUniformSize)
	if err != nil {
		return nil, fmt.Errorf("failed to create camera buffer: %w", err)
	}
	handle, err := buf.GPU()
	if err != nil {
		buf.Destroy()
		return nil, err
	}

	layout, err := cache.AcquireLayout(CameraGroupLabel, []wgpu.BindGroupLayoutEntry{{
		Binding:    0,
		Visibility: wgpu.ShaderStageVertex | wgpu.ShaderStageFragment,
		Buffer:     buf.LayoutType(),
	}}, CameraGroupIndex)
	if err != nil {
		buf.Destroy()
		return nil, fmt.Errorf("failed to create camera layout: %w", err)
	}

	group, err := cache.AcquireBindGroup(CameraGroupLabel, layout, []gpu.BindGroupEntry{{
		Binding: 0,
		Buffer:  handle,
		Size:    camera.GPUCameraUniformSize,
	}}, CameraGroupIndex)
	if err != nil {
		cache.ReleaseLayout(layout)
		buf.Destroy()
		return nil, fmt.Errorf("failed to create camera bind group: %w", err)
	}

	return &cameraResources{buffer: buf, layout: layout, group: group}, nil
}

func (c *cameraResources) release(cache bind_group_cache.Cache) {
	cache.ReleaseBindGroup(c.group)
	cache.ReleaseLayout(c.layout)
	c.buffer.Destroy()
}

// UpdateSystemResources uploads the frame's camera into the camera system group, creating the
// group on first use and registering it at CameraGroupIndex.
//
// Parameters:
//   - fs: the frame state to read the camera from
//
// Returns:
//   - error: an error if the group cannot be created or the upload fails
func (r *renderer) UpdateSystemResources(fs frame_state.FrameState) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.camera == nil {
		res, err := newCameraResources(r.device, r.bindGroups)
		if err != nil {
			return err
		}
		r.camera = res
		r.systemGroups[CameraGroupIndex] = res.group
	}

	uniform := camera.GPUCameraUniform{
		ViewProj:       fs.ViewProjectionMatrix(),
		CameraPosition: fs.CameraPosition(),
	}
	if err := r.camera.buffer.SetSubData(0, uniform.Marshal()); err != nil {
		return fmt.Errorf("failed to upload camera: %w", err)
	}
	return nil
}
