package config

import (
	"log/slog"
	"path/filepath"
	"testing"

	"github.com/Carmen-Shannon/oxy-frame/common"
	"github.com/Carmen-Shannon/oxy-frame/engine/renderer/render_state"
	"github.com/cogentcore/webgpu/wgpu"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultResolvesToRenderDefaults(t *testing.T) {
	cfg := Default()
	require.NoError(t, cfg.Validate())

	d, err := cfg.RenderDefaults.Resolve()
	require.NoError(t, err)
	assert.Equal(t, render_state.DefaultRenderDefaults(), d)
}

func TestLoadOverlaysDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join("testdata", "demo.toml"))
	require.NoError(t, err)

	assert.Equal(t, "cubes", cfg.Window.Title)
	assert.Equal(t, 1024, cfg.Window.Width)
	assert.Equal(t, 2, cfg.Scene.PrecompileWorkers)
	assert.Equal(t, 60.0, cfg.Renderer.TickRate, "unset keys keep their default")

	mode, err := cfg.Renderer.Mode()
	require.NoError(t, err)
	assert.Equal(t, wgpu.PresentModeImmediate, mode)
	assert.Equal(t, wgpu.Color{R: 0.1, G: 0.2, B: 0.3, A: 1}, cfg.Renderer.Clear())

	level, err := cfg.Log.SlogLevel()
	require.NoError(t, err)
	assert.Equal(t, slog.LevelDebug, level)

	d, err := cfg.RenderDefaults.Resolve()
	require.NoError(t, err)
	assert.Equal(t, wgpu.CullModeBack, d.Primitive.CullMode)
	assert.Equal(t, wgpu.PrimitiveTopologyTriangleList, d.Primitive.Topology)
	require.NotNil(t, d.Target.Blend)
	assert.Equal(t, render_state.AlphaBlending, *d.Target.Blend)
	assert.NotSame(t, &render_state.AlphaBlending, d.Target.Blend)
}

func TestParseRejects(t *testing.T) {
	tests := map[string]string{
		"unknown key":          "[window]\nfullscreen = true\n",
		"unknown section":      "[audio]\nvolume = 1\n",
		"malformed":            "[window\n",
		"bad present mode":     "[renderer]\npresent_mode = \"vsync\"\n",
		"bad log level":        "[log]\nlevel = \"loud\"\n",
		"bad compare":          "[render_defaults.depth_stencil]\ndepth_compare = \"lesser\"\n",
		"bad blend":            "[render_defaults.target]\nblend = \"multiply\"\n",
		"zero sample count":    "[render_defaults.multisample]\ncount = 0\n",
		"non-positive size":    "[window]\nwidth = 0\n",
		"wrong type for width": "[window]\nwidth = \"wide\"\n",
	}
	for name, doc := range tests {
		t.Run(name, func(t *testing.T) {
			_, err := Parse([]byte(doc))
			assert.ErrorIs(t, err, common.ErrConfiguration)
		})
	}
}

func TestEnumNamesAreCaseInsensitive(t *testing.T) {
	cfg, err := Parse([]byte("[renderer]\npresent_mode = \"Mailbox\"\n[render_defaults.primitive]\ntopology = \" LINE_LIST \"\n"))
	require.NoError(t, err)

	mode, err := cfg.Renderer.Mode()
	require.NoError(t, err)
	assert.Equal(t, wgpu.PresentModeMailbox, mode)

	d, err := cfg.RenderDefaults.Resolve()
	require.NoError(t, err)
	assert.Equal(t, wgpu.PrimitiveTopologyLineList, d.Primitive.Topology)
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.toml"))
	assert.Error(t, err)
	assert.NotErrorIs(t, err, common.ErrConfiguration)
}
