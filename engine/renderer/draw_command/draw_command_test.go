package draw_command

import (
	"testing"

	"github.com/Carmen-Shannon/oxy-frame/common"
	"github.com/Carmen-Shannon/oxy-frame/engine/renderer/render_state"
	"github.com/Carmen-Shannon/oxy-frame/engine/renderer/shader"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInstanceCountDefaultsToOne(t *testing.T) {
	assert.Equal(t, uint32(1), (&DrawCommand{}).InstanceCount())
	assert.Equal(t, uint32(5), (&DrawCommand{Instances: 5}).InstanceCount())
}

func TestWorkgroups(t *testing.T) {
	g, err := (&DrawCommand{Dispatch: []uint32{4}}).Workgroups()
	require.NoError(t, err)
	assert.Equal(t, [3]uint32{4, 1, 1}, g)

	g, err = (&DrawCommand{Dispatch: []uint32{4, 2, 3}}).Workgroups()
	require.NoError(t, err)
	assert.Equal(t, [3]uint32{4, 2, 3}, g)

	_, err = (&DrawCommand{}).Workgroups()
	assert.ErrorIs(t, err, common.ErrUsage)
	_, err = (&DrawCommand{Dispatch: []uint32{1, 1, 1, 1}}).Workgroups()
	assert.ErrorIs(t, err, common.ErrUsage)
}

func TestValidate(t *testing.T) {
	variant := &shader.Variant{Key: "v", VertexEntryPoint: "vs"}
	state := &render_state.RenderState{}

	assert.ErrorIs(t, (&DrawCommand{Count: 3, RenderState: state}).Validate(), common.ErrUsage)
	assert.ErrorIs(t, (&DrawCommand{Shader: variant, RenderState: state}).Validate(), common.ErrUsage)
	assert.ErrorIs(t, (&DrawCommand{Shader: variant, Count: 3}).Validate(), common.ErrUsage)
	assert.NoError(t, (&DrawCommand{Shader: variant, Count: 3, RenderState: state}).Validate())

	assert.ErrorIs(t, (&DrawCommand{Type: CommandTypeCompute, Shader: variant}).Validate(), common.ErrUsage)
	assert.NoError(t, (&DrawCommand{Type: CommandTypeCompute, Shader: variant, Dispatch: []uint32{8, 8}}).Validate())
}
