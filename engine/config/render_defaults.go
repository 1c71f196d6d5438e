package config

import (
	"errors"
	"fmt"

	"github.com/Carmen-Shannon/oxy-frame/common"
	"github.com/Carmen-Shannon/oxy-frame/engine/renderer/render_state"
	"github.com/cogentcore/webgpu/wgpu"
)

// RenderDefaultsConfig is the settings-file form of render_state.RenderDefaults.
type RenderDefaultsConfig struct {
	DepthStencil     DepthStencilConfig `toml:"depth_stencil"`
	Primitive        PrimitiveConfig    `toml:"primitive"`
	Multisample      MultisampleConfig  `toml:"multisample"`
	Target           TargetConfig       `toml:"target"`
	BlendConstant    [4]float64         `toml:"blend_constant"`
	StencilReference uint32             `toml:"stencil_reference"`
}

// DepthStencilConfig names the default depth-stencil state.
type DepthStencilConfig struct {
	Format              string  `toml:"format"`
	DepthWrite          bool    `toml:"depth_write"`
	DepthCompare        string  `toml:"depth_compare"`
	DepthBias           int32   `toml:"depth_bias"`
	DepthBiasSlopeScale float32 `toml:"depth_bias_slope_scale"`
	StencilReadMask     uint32  `toml:"stencil_read_mask"`
	StencilWriteMask    uint32  `toml:"stencil_write_mask"`
}

// PrimitiveConfig names the default primitive state.
type PrimitiveConfig struct {
	Topology  string `toml:"topology"`
	FrontFace string `toml:"front_face"`
	CullMode  string `toml:"cull_mode"`
}

// MultisampleConfig is the default multisample state.
type MultisampleConfig struct {
	Count           uint32 `toml:"count"`
	Mask            uint32 `toml:"mask"`
	AlphaToCoverage bool   `toml:"alpha_to_coverage"`
}

// TargetConfig names the default color target.
type TargetConfig struct {
	Format string `toml:"format"`
	// Blend is one of none, alpha or additive.
	Blend string `toml:"blend"`
}

// DefaultRenderDefaults returns render_state.DefaultRenderDefaults in settings-file form.
func DefaultRenderDefaults() RenderDefaultsConfig {
	return RenderDefaultsConfig{
		DepthStencil: DepthStencilConfig{
			Format:           "depth24plus",
			DepthWrite:       true,
			DepthCompare:     "less",
			StencilReadMask:  0xFFFFFFFF,
			StencilWriteMask: 0xFFFFFFFF,
		},
		Primitive: PrimitiveConfig{
			Topology:  "triangle_list",
			FrontFace: "ccw",
			CullMode:  "none",
		},
		Multisample: MultisampleConfig{
			Count: 1,
			Mask:  0xFFFFFFFF,
		},
		Target: TargetConfig{
			Format: "bgra8unorm",
			Blend:  "none",
		},
		BlendConstant: [4]float64{0, 0, 0, 1},
	}
}

// Resolve converts the names into a render_state.RenderDefaults.
//
// Returns:
//   - render_state.RenderDefaults: the resolved defaults
//   - error: every unknown name joined, each wrapping common.ErrConfiguration
func (c RenderDefaultsConfig) Resolve() (render_state.RenderDefaults, error) {
	d := render_state.DefaultRenderDefaults()
	var errs []error
	collect := func(err error) {
		if err != nil {
			errs = append(errs, err)
		}
	}

	var err error
	d.DepthStencil.Format, err = lookup("depth_stencil.format", textureFormats, c.DepthStencil.Format)
	collect(err)
	d.DepthStencil.DepthCompare, err = lookup("depth_stencil.depth_compare", compareFunctions, c.DepthStencil.DepthCompare)
	collect(err)
	d.DepthStencil.DepthWriteEnabled = c.DepthStencil.DepthWrite
	d.DepthStencil.DepthBias = c.DepthStencil.DepthBias
	d.DepthStencil.DepthBiasSlopeScale = c.DepthStencil.DepthBiasSlopeScale
	d.DepthStencil.StencilReadMask = c.DepthStencil.StencilReadMask
	d.DepthStencil.StencilWriteMask = c.DepthStencil.StencilWriteMask

	d.Primitive.Topology, err = lookup("primitive.topology", topologies, c.Primitive.Topology)
	collect(err)
	d.Primitive.FrontFace, err = lookup("primitive.front_face", frontFaces, c.Primitive.FrontFace)
	collect(err)
	d.Primitive.CullMode, err = lookup("primitive.cull_mode", cullModes, c.Primitive.CullMode)
	collect(err)

	if c.Multisample.Count == 0 {
		collect(fmt.Errorf("%w: multisample.count must be at least 1", common.ErrConfiguration))
	}
	d.Multisample = wgpu.MultisampleState{
		Count:                  c.Multisample.Count,
		Mask:                   c.Multisample.Mask,
		AlphaToCoverageEnabled: c.Multisample.AlphaToCoverage,
	}

	d.Target.Format, err = lookup("target.format", textureFormats, c.Target.Format)
	collect(err)
	blend, err := lookup("target.blend", blendStates, c.Target.Blend)
	collect(err)
	d.Target.Blend = nil
	if blend != nil {
		b := *blend
		d.Target.Blend = &b
	}

	bc := c.BlendConstant
	d.BlendConstant = wgpu.Color{R: bc[0], G: bc[1], B: bc[2], A: bc[3]}
	d.StencilReference = c.StencilReference

	if len(errs) > 0 {
		return render_state.RenderDefaults{}, errors.Join(errs...)
	}
	return d, nil
}
