// Package draw_command defines the self-contained description of one draw or dispatch that the
// renderer encodes into a pass.
package draw_command

import (
	"fmt"

	"github.com/Carmen-Shannon/oxy-frame/common"
	"github.com/Carmen-Shannon/oxy-frame/engine/renderer/bind_group_cache"
	"github.com/Carmen-Shannon/oxy-frame/engine/renderer/gpu"
	"github.com/Carmen-Shannon/oxy-frame/engine/renderer/render_state"
	"github.com/Carmen-Shannon/oxy-frame/engine/renderer/shader"
	"github.com/cogentcore/webgpu/wgpu"
)

// CommandType selects the kind of pass a command is encoded into.
type CommandType int

const (
	// CommandTypeRender is a draw inside a render pass.
	CommandTypeRender CommandType = iota
	// CommandTypeCompute is a dispatch inside a compute pass.
	CommandTypeCompute
)

func (t CommandType) String() string {
	switch t {
	case CommandTypeRender:
		return "render"
	case CommandTypeCompute:
		return "compute"
	default:
		return fmt.Sprintf("CommandType(%d)", int(t))
	}
}

// DrawCommand is everything needed to encode one draw or dispatch.
type DrawCommand struct {
	Type CommandType

	VertexBuffers []gpu.Buffer
	VertexLayouts []wgpu.VertexBufferLayout
	// IndexBuffer is nil for non-indexed draws.
	IndexBuffer gpu.Buffer
	IndexFormat wgpu.IndexFormat

	Shader      *shader.Variant
	BindGroups  []*bind_group_cache.BindGroup
	RenderState *render_state.RenderState
	Topology    wgpu.PrimitiveTopology

	// Instances is the instance count; 0 draws a single instance.
	Instances uint32
	// Count is the index count for indexed draws and the vertex count otherwise.
	Count uint32
	// Dispatch holds 1 to 3 workgroup counts for compute commands.
	Dispatch []uint32

	Owner        any
	MaterialType string
}

// InstanceCount returns Instances, or 1 when it is unset.
func (c *DrawCommand) InstanceCount() uint32 {
	if c.Instances == 0 {
		return 1
	}
	return c.Instances
}

// Workgroups expands Dispatch to three dimensions, filling missing ones with 1.
//
// Returns:
//   - [3]uint32: the x, y and z workgroup counts
//   - error: an error wrapping common.ErrUsage if Dispatch does not have 1 to 3 entries
func (c *DrawCommand) Workgroups() ([3]uint32, error) {
	if len(c.Dispatch) < 1 || len(c.Dispatch) > 3 {
		return [3]uint32{}, fmt.Errorf("%w: dispatch needs 1 to 3 dimensions, got %d", common.ErrUsage, len(c.Dispatch))
	}
	groups := [3]uint32{1, 1, 1}
	copy(groups[:], c.Dispatch)
	return groups, nil
}

// Validate reports whether the command can be encoded.
//
// Returns:
//   - error: an error wrapping common.ErrUsage if the command has no shader, draws nothing or has a bad dispatch
func (c *DrawCommand) Validate() error {
	if c.Shader == nil {
		return fmt.Errorf("%w: command has no shader", common.ErrUsage)
	}
	switch c.Type {
	case CommandTypeRender:
		if c.Count == 0 {
			return fmt.Errorf("%w: zero-size draw", common.ErrUsage)
		}
		if c.RenderState == nil {
			return fmt.Errorf("%w: render command has no render state", common.ErrUsage)
		}
	case CommandTypeCompute:
		if _, err := c.Workgroups(); err != nil {
			return err
		}
	default:
		return fmt.Errorf("%w: unknown command type %s", common.ErrUsage, c.Type)
	}
	return nil
}
