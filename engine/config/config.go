// Package config loads the engine settings file: window, renderer, scene, logging and the
// render-state defaults handed to every material.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"log/slog"
	"os"

	"github.com/Carmen-Shannon/oxy-frame/common"
	"github.com/cogentcore/webgpu/wgpu"
	"github.com/pelletier/go-toml/v2"
)

// Config is the decoded settings file. Zero sections keep the values of Default.
type Config struct {
	Window         WindowConfig         `toml:"window"`
	Renderer       RendererConfig       `toml:"renderer"`
	Scene          SceneConfig          `toml:"scene"`
	Log            LogConfig            `toml:"log"`
	RenderDefaults RenderDefaultsConfig `toml:"render_defaults"`
}

// WindowConfig configures the platform window.
type WindowConfig struct {
	Title  string `toml:"title"`
	Width  int    `toml:"width"`
	Height int    `toml:"height"`
}

// RendererConfig configures the device, the surface and the frame loop.
type RendererConfig struct {
	// PresentMode is one of fifo, fifo_relaxed, immediate or mailbox.
	PresentMode          string     `toml:"present_mode"`
	ForceFallbackAdapter bool       `toml:"force_fallback_adapter"`
	ClearColor           [4]float64 `toml:"clear_color"`
	// FrameLimit caps the render loop in frames per second; 0 is uncapped.
	FrameLimit float64 `toml:"frame_limit"`
	TickRate   float64 `toml:"tick_rate"`
	Profiling  bool    `toml:"profiling"`
}

// SceneConfig configures scene construction.
type SceneConfig struct {
	PrecompileWorkers int `toml:"precompile_workers"`
}

// LogConfig configures the engine logger.
type LogConfig struct {
	// Level is one of debug, info, warn or error.
	Level string `toml:"level"`
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		Window: WindowConfig{
			Title:  "oxy-frame",
			Width:  1280,
			Height: 720,
		},
		Renderer: RendererConfig{
			PresentMode: "fifo",
			ClearColor:  [4]float64{0.05, 0.05, 0.08, 1},
			TickRate:    60,
		},
		Scene: SceneConfig{
			PrecompileWorkers: 4,
		},
		Log: LogConfig{
			Level: "info",
		},
		RenderDefaults: DefaultRenderDefaults(),
	}
}

// Load reads and parses the settings file at path.
//
// Parameters:
//   - path: the TOML file to read
//
// Returns:
//   - Config: the configuration, Default overlaid with the file
//   - error: the read error, or an error wrapping common.ErrConfiguration if the file is invalid
func Load(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("failed to read config %q: %w", path, err)
	}
	cfg, err := Parse(data)
	if err != nil {
		return Config{}, fmt.Errorf("config %q: %w", path, err)
	}
	return cfg, nil
}

// Parse decodes TOML settings over Default. Unknown keys and unknown enum names are rejected.
//
// Parameters:
//   - data: the TOML document
//
// Returns:
//   - Config: the configuration
//   - error: an error wrapping common.ErrConfiguration if the document is invalid
func Parse(data []byte) (Config, error) {
	cfg := Default()
	dec := toml.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&cfg); err != nil {
		var strict *toml.StrictMissingError
		if errors.As(err, &strict) {
			return Config{}, fmt.Errorf("%w: %s", common.ErrConfiguration, strict.String())
		}
		return Config{}, fmt.Errorf("%w: %v", common.ErrConfiguration, err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks every enum name and size in the configuration.
//
// Returns:
//   - error: every problem joined, each wrapping common.ErrConfiguration
func (c Config) Validate() error {
	var errs []error
	if c.Window.Width <= 0 || c.Window.Height <= 0 {
		errs = append(errs, fmt.Errorf("%w: window size %dx%d", common.ErrConfiguration, c.Window.Width, c.Window.Height))
	}
	if _, err := c.Renderer.Mode(); err != nil {
		errs = append(errs, err)
	}
	if _, err := c.Log.SlogLevel(); err != nil {
		errs = append(errs, err)
	}
	if _, err := c.RenderDefaults.Resolve(); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}

// Mode returns the surface present mode.
func (r RendererConfig) Mode() (wgpu.PresentMode, error) {
	return lookup("present_mode", presentModes, r.PresentMode)
}

// Clear returns the clear color.
func (r RendererConfig) Clear() wgpu.Color {
	return wgpu.Color{R: r.ClearColor[0], G: r.ClearColor[1], B: r.ClearColor[2], A: r.ClearColor[3]}
}

// SlogLevel returns the configured log level.
func (l LogConfig) SlogLevel() (slog.Level, error) {
	return lookup("log level", logLevels, l.Level)
}
