// Command oxy-frame opens a window and renders a grid of spinning cubes, the back rows
// alpha blended, to exercise the frame pipeline end to end.
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"math"
	"os"
	"sync"

	"github.com/Carmen-Shannon/oxy-frame/common"
	"github.com/Carmen-Shannon/oxy-frame/engine"
	"github.com/Carmen-Shannon/oxy-frame/engine/camera"
	"github.com/Carmen-Shannon/oxy-frame/engine/config"
	"github.com/Carmen-Shannon/oxy-frame/engine/drawable"
	"github.com/Carmen-Shannon/oxy-frame/engine/geometry"
	"github.com/Carmen-Shannon/oxy-frame/engine/renderer"
	"github.com/Carmen-Shannon/oxy-frame/engine/renderer/material"
	"github.com/Carmen-Shannon/oxy-frame/engine/renderer/render_state"
	"github.com/Carmen-Shannon/oxy-frame/engine/renderer/shader"
	"github.com/Carmen-Shannon/oxy-frame/engine/scene"
	"github.com/Carmen-Shannon/oxy-frame/engine/transform"
	"github.com/cogentcore/webgpu/wgpu"
	"github.com/go-gl/mathgl/mgl32"
)

const cubeShaderSource = camera.GPUCameraUniformSource + `
struct VertexInput {
    @location(0) position: vec3<f32>,
    @location(1) normal: vec3<f32>,
    @location(2) uv: vec2<f32>,
}

struct VertexOutput {
    @builtin(position) clip: vec4<f32>,
    @location(0) normal: vec3<f32>,
}

@group(0) @binding(0) var<uniform> cam: CameraUniform;
@group(1) @binding(0) var<uniform> model: mat4x4<f32>;
@group(1) @binding(1) var<uniform> tint: vec4<f32>;

@vertex
fn vs_main(in: VertexInput) -> VertexOutput {
    var out: VertexOutput;
    out.clip = cam.view_proj * model * vec4<f32>(in.position, 1.0);
    out.normal = (model * vec4<f32>(in.normal, 0.0)).xyz;
    return out;
}

@fragment
fn fs_main(in: VertexOutput) -> @location(0) vec4<f32> {
#ifdef UNLIT
    return tint;
#else
    let light = max(dot(normalize(in.normal), normalize(vec3<f32>(0.4, 1.0, 0.6))), 0.0);
    return vec4<f32>(tint.rgb * (0.25 + 0.75 * light), tint.a);
#endif
}
`

const (
	gridSide    = 6
	cubeSpacing = 2.5
	spinSpeed   = 0.8
	panSpeed    = 6.0
)

// input is the key state shared between the window thread and the render goroutine.
type input struct {
	mu        sync.Mutex
	held      map[uint32]bool
	paused    bool
	profiling bool
}

func (in *input) key(code uint32, pressed bool) (toggledProfiling, profiling bool) {
	in.mu.Lock()
	defer in.mu.Unlock()
	in.held[code] = pressed
	if !pressed {
		return false, in.profiling
	}
	switch code {
	case common.KeySpace:
		in.paused = !in.paused
	case common.KeyP:
		in.profiling = !in.profiling
		return true, in.profiling
	}
	return false, in.profiling
}

// pan returns the held movement axes as right, up and forward in [-1, 1], and whether spin is paused.
func (in *input) pan() (right, up, forward float32, paused bool) {
	in.mu.Lock()
	defer in.mu.Unlock()
	axis := func(pos, neg uint32) float32 {
		var v float32
		if in.held[pos] {
			v++
		}
		if in.held[neg] {
			v--
		}
		return v
	}
	scale := float32(1)
	if in.held[common.KeyLeftShift] {
		scale = 3
	}
	return axis(common.KeyD, common.KeyA) * scale, axis(common.KeyE, common.KeyQ) * scale, axis(common.KeyW, common.KeyS) * scale, in.paused
}

func main() {
	configPath := flag.String("config", "", "path to a TOML settings file")
	unlit := flag.Bool("unlit", false, "render the cubes without shading")
	flag.Parse()

	if err := run(*configPath, *unlit); err != nil {
		common.Logger().Error("oxy-frame exited", "error", err)
		os.Exit(1)
	}
}

func run(configPath string, unlit bool) error {
	cfg := config.Default()
	if configPath != "" {
		var err error
		if cfg, err = config.Load(configPath); err != nil {
			return err
		}
	}
	level, err := cfg.Log.SlogLevel()
	if err != nil {
		return err
	}
	common.SetLogger(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})))

	eng, err := engine.NewEngine(engine.WithConfig(cfg))
	if err != nil {
		return err
	}
	r := eng.Renderer()
	defer r.Release()

	cam := camera.NewCamera(
		camera.WithFov(float32(60.0*math.Pi/180.0)),
		camera.WithClipPlanes(0.1, 500),
		camera.WithController(camera.NewOrbitController(
			camera.WithRadius(gridSide*cubeSpacing*1.5),
			camera.WithElevation(0.5),
			camera.WithRadiusBounds(2, 200),
		)),
	)
	sc, err := scene.NewScene("cubes", r,
		scene.WithCamera(cam),
		scene.WithPrecompileWorkers(cfg.Scene.PrecompileWorkers),
	)
	if err != nil {
		return err
	}
	defer sc.Destroy()

	cubeShader, err := shader.NewShader("cube", cubeShaderSource)
	if err != nil {
		return err
	}
	var defines map[string]string
	if unlit {
		defines = map[string]string{"UNLIT": "1"}
	}

	spinning, err := spawnGrid(r, sc, cubeShader, defines)
	if err != nil {
		return err
	}
	if err := sc.Precompile(context.Background()); err != nil {
		return fmt.Errorf("failed to precompile shaders: %w", err)
	}
	eng.AddScene(0, sc)

	in := &input{held: make(map[uint32]bool), profiling: cfg.Renderer.Profiling}
	ctrl := cam.Controller()

	// Transforms and the camera are read while the frame is built, so they move on the render goroutine.
	eng.SetRenderCallback(func(dt float32) {
		right, up, forward, paused := in.pan()
		if right != 0 || up != 0 || forward != 0 {
			ctrl.Pan(right*panSpeed*dt, up*panSpeed*dt, forward*panSpeed*dt)
		}
		if paused {
			return
		}
		for i, t := range spinning {
			t.RotateY(dt * spinSpeed * float32(1+i%3))
			t.RotateX(dt * spinSpeed * 0.5)
		}
	})

	w := eng.Window()
	w.SetKeyCallback(func(code uint32, pressed bool) {
		toggled, profiling := in.key(code, pressed)
		if !toggled {
			return
		}
		if profiling {
			eng.EnableProfiler()
		} else {
			eng.DisableProfiler()
		}
	})
	w.SetDragCallback(func(dx, dy float32) {
		ctrl.Orbit(-dx*ctrl.OrbitSpeed(), dy*ctrl.OrbitSpeed())
	})
	w.SetScrollCallback(func(delta float32) {
		ctrl.Zoom(-delta)
	})

	common.Logger().Info("starting oxy-frame", "cubes", sc.Len(), "present_mode", cfg.Renderer.PresentMode)
	return eng.Run()
}

// spawnGrid fills the scene with a gridSide x gridSide grid of cubes. Rows past the middle are
// translucent and go through the transparent bucket. It returns the cube transforms.
func spawnGrid(r renderer.Renderer, sc scene.Scene, s shader.Shader, defines map[string]string) ([]transform.Transform, error) {
	transforms := make([]transform.Transform, 0, gridSide*gridSide)
	offset := float32(gridSide-1) * cubeSpacing / 2

	for row := range gridSide {
		for col := range gridSide {
			label := fmt.Sprintf("cube_%d_%d", row, col)
			t := transform.NewTransform(transform.WithPosition(mgl32.Vec3{
				float32(col)*cubeSpacing - offset,
				0,
				float32(row)*cubeSpacing - offset,
			}))

			transparent := row >= gridSide/2
			tint := mgl32.Vec4{float32(col) / gridSide, 0.4, float32(row) / gridSide, 1}
			if transparent {
				tint[3] = 0.45
			}
			options := []material.MaterialBuilderOption{
				material.WithLabel(label),
				material.WithRenderDefaults(r.RenderDefaults()),
				material.WithDefines(defines),
				material.WithUniforms(
					material.NewMat4Uniform("model", 0, wgpu.ShaderStageVertex, t.ModelMatrix),
					material.NewVec4Uniform("tint", 1, wgpu.ShaderStageFragment, material.Const(tint)),
				),
			}
			if transparent {
				options = append(options,
					material.WithTransparent(true),
					material.WithType("translucent"),
					material.WithTargetOptions(render_state.WithBlend(render_state.AlphaBlending)),
					material.WithDepthStencilOptions(render_state.WithDepthWrite(false)),
				)
			}

			g, err := geometry.NewBox(r.Device(), label, 1, 1, 1)
			if err != nil {
				return nil, err
			}
			m, err := material.NewMaterial(r.Device(), r.BindGroupCache(), s, options...)
			if err != nil {
				g.Destroy()
				return nil, err
			}
			d, err := drawable.NewDrawable(g, m, drawable.WithLabel(label), drawable.WithTransform(t))
			if err != nil {
				return nil, err
			}
			sc.Add(d)
			transforms = append(transforms, t)
		}
	}
	return transforms, nil
}
