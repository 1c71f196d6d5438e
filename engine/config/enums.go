package config

import (
	"fmt"
	"log/slog"
	"maps"
	"slices"
	"strings"

	"github.com/Carmen-Shannon/oxy-frame/common"
	"github.com/Carmen-Shannon/oxy-frame/engine/renderer/render_state"
	"github.com/cogentcore/webgpu/wgpu"
)

var presentModes = map[string]wgpu.PresentMode{
	"fifo":         wgpu.PresentModeFifo,
	"fifo_relaxed": wgpu.PresentModeFifoRelaxed,
	"immediate":    wgpu.PresentModeImmediate,
	"mailbox":      wgpu.PresentModeMailbox,
}

var logLevels = map[string]slog.Level{
	"debug": slog.LevelDebug,
	"info":  slog.LevelInfo,
	"warn":  slog.LevelWarn,
	"error": slog.LevelError,
}

var textureFormats = map[string]wgpu.TextureFormat{
	"bgra8unorm":           wgpu.TextureFormatBGRA8Unorm,
	"bgra8unorm_srgb":      wgpu.TextureFormatBGRA8UnormSrgb,
	"rgba8unorm":           wgpu.TextureFormatRGBA8Unorm,
	"rgba8unorm_srgb":      wgpu.TextureFormatRGBA8UnormSrgb,
	"rgba16float":          wgpu.TextureFormatRGBA16Float,
	"depth16unorm":         wgpu.TextureFormatDepth16Unorm,
	"depth24plus":          wgpu.TextureFormatDepth24Plus,
	"depth24plus_stencil8": wgpu.TextureFormatDepth24PlusStencil8,
	"depth32float":         wgpu.TextureFormatDepth32Float,
}

var compareFunctions = map[string]wgpu.CompareFunction{
	"never":         wgpu.CompareFunctionNever,
	"less":          wgpu.CompareFunctionLess,
	"equal":         wgpu.CompareFunctionEqual,
	"less_equal":    wgpu.CompareFunctionLessEqual,
	"greater":       wgpu.CompareFunctionGreater,
	"not_equal":     wgpu.CompareFunctionNotEqual,
	"greater_equal": wgpu.CompareFunctionGreaterEqual,
	"always":        wgpu.CompareFunctionAlways,
}

var topologies = map[string]wgpu.PrimitiveTopology{
	"point_list":     wgpu.PrimitiveTopologyPointList,
	"line_list":      wgpu.PrimitiveTopologyLineList,
	"line_strip":     wgpu.PrimitiveTopologyLineStrip,
	"triangle_list":  wgpu.PrimitiveTopologyTriangleList,
	"triangle_strip": wgpu.PrimitiveTopologyTriangleStrip,
}

var frontFaces = map[string]wgpu.FrontFace{
	"ccw": wgpu.FrontFaceCCW,
	"cw":  wgpu.FrontFaceCW,
}

var cullModes = map[string]wgpu.CullMode{
	"none":  wgpu.CullModeNone,
	"front": wgpu.CullModeFront,
	"back":  wgpu.CullModeBack,
}

var additiveBlending = wgpu.BlendState{
	Color: wgpu.BlendComponent{
		SrcFactor: wgpu.BlendFactorSrcAlpha,
		DstFactor: wgpu.BlendFactorOne,
		Operation: wgpu.BlendOperationAdd,
	},
	Alpha: wgpu.BlendComponent{
		SrcFactor: wgpu.BlendFactorOne,
		DstFactor: wgpu.BlendFactorOne,
		Operation: wgpu.BlendOperationAdd,
	},
}

var blendStates = map[string]*wgpu.BlendState{
	"none":     nil,
	"alpha":    &render_state.AlphaBlending,
	"additive": &additiveBlending,
}

// lookup resolves a case-insensitive enum name from table.
func lookup[T any](field string, table map[string]T, name string) (T, error) {
	if v, ok := table[strings.ToLower(strings.TrimSpace(name))]; ok {
		return v, nil
	}
	var zero T
	return zero, fmt.Errorf("%w: unknown %s %q, want one of %s", common.ErrConfiguration, field, name,
		strings.Join(slices.Sorted(maps.Keys(table)), ", "))
}
