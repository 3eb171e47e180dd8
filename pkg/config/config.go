// Package config provides configuration loading for the renderer.
package config

import (
	_ "embed"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/df07/go-sg-renderer/pkg/core"
	"github.com/df07/go-sg-renderer/pkg/sg"
)

//go:embed defaults.yaml
var defaultsYAML []byte

// Config holds all renderer configuration parameters.
type Config struct {
	Visibility VisibilityConfig `yaml:"visibility"`
	Shading    ShadingConfig    `yaml:"shading"`
	Envmap     EnvmapConfig     `yaml:"envmap"`
	Render     RenderConfig     `yaml:"render"`
	Output     OutputConfig     `yaml:"output"`
	Log        LogConfig        `yaml:"log"`
	Lights     []LightConfig    `yaml:"lights"`
}

// VisibilityConfig holds visibility sampling parameters.
type VisibilityConfig struct {
	Predictor       string  `yaml:"predictor"`       // traced or unoccluded
	DiffuseSamples  int     `yaml:"diffuse_samples"` // Per light lobe
	SpecularSamples int     `yaml:"specular_samples"`
	Threshold       float64 `yaml:"threshold"`  // Sharpness cap for the diffuse cone
	BatchSize       int     `yaml:"batch_size"` // Predictor queries per call
	Workers         int     `yaml:"workers"`    // 0 = one per CPU
	Argmax          bool    `yaml:"argmax"`
}

// ShadingConfig holds shading engine flags.
type ShadingConfig struct {
	LinearDiffuse       bool    `yaml:"linear_diffuse"`
	Prefit              string  `yaml:"prefit"`
	SpecularReflectance float64 `yaml:"specular_reflectance"`
	IndirectStrength    float64 `yaml:"indirect_strength"` // 0 disables the indirect pass
}

// EnvmapConfig holds environment map export settings.
type EnvmapConfig struct {
	Height          int     `yaml:"height"`
	Width           int     `yaml:"width"`
	UpperHemisphere bool    `yaml:"upper_hemisphere"`
	Gamma           float64 `yaml:"gamma"`
}

// RenderConfig holds image rendering settings.
type RenderConfig struct {
	Scene    string `yaml:"scene"`
	Width    int    `yaml:"width"`
	Height   int    `yaml:"height"`
	TileSize int    `yaml:"tile_size"`
	Workers  int    `yaml:"workers"` // 0 = one per CPU
	Seed     int64  `yaml:"seed"`
}

// OutputConfig holds output locations.
type OutputConfig struct {
	Dir string `yaml:"dir"`
	CSV bool   `yaml:"csv"` // Write per-pixel diagnostics
}

// LogConfig holds logging settings.
type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"` // text or json
}

// LightConfig is one SG light lobe.
type LightConfig struct {
	Axis      []float64 `yaml:"axis"`
	Sharpness float64   `yaml:"sharpness"`
	Amplitude []float64 `yaml:"amplitude"`
}

// Load loads configuration from a YAML file, merging with embedded defaults.
// If path is empty, only embedded defaults are used.
func Load(path string) (*Config, error) {
	cfg := &Config{}
	if err := yaml.Unmarshal(defaultsYAML, cfg); err != nil {
		return nil, fmt.Errorf("parsing embedded defaults: %w", err)
	}

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("reading config file: %w", err)
		}
		// Only overwrites fields present in the file
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parsing config file: %w", err)
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks value ranges.
func (c *Config) Validate() error {
	switch c.Visibility.Predictor {
	case "traced", "unoccluded":
	default:
		return fmt.Errorf("config: unknown visibility predictor %q", c.Visibility.Predictor)
	}
	if c.Visibility.DiffuseSamples <= 0 || c.Visibility.SpecularSamples <= 0 {
		return fmt.Errorf("config: visibility sample counts must be positive")
	}
	if c.Visibility.Threshold <= 0 {
		return fmt.Errorf("config: visibility threshold must be positive, got %f", c.Visibility.Threshold)
	}
	if c.Visibility.BatchSize <= 0 {
		return fmt.Errorf("config: visibility batch size must be positive, got %d", c.Visibility.BatchSize)
	}
	switch c.Shading.Prefit {
	case "", "warmup", "project":
	default:
		return fmt.Errorf("config: unknown prefit mode %q", c.Shading.Prefit)
	}
	if c.Shading.IndirectStrength < 0 {
		return fmt.Errorf("config: indirect strength must be non-negative, got %f", c.Shading.IndirectStrength)
	}
	if c.Envmap.Height < 2 || c.Envmap.Width < 2 {
		return fmt.Errorf("config: envmap must be at least 2x2, got %dx%d", c.Envmap.Height, c.Envmap.Width)
	}
	if c.Envmap.Gamma <= 0 {
		return fmt.Errorf("config: envmap gamma must be positive, got %f", c.Envmap.Gamma)
	}
	if c.Render.Width <= 0 || c.Render.Height <= 0 || c.Render.TileSize <= 0 {
		return fmt.Errorf("config: render size %dx%d and tile size %d must be positive",
			c.Render.Width, c.Render.Height, c.Render.TileSize)
	}
	switch c.Log.Format {
	case "text", "json":
	default:
		return fmt.Errorf("config: unknown log format %q", c.Log.Format)
	}
	if _, err := c.SlogLevel(); err != nil {
		return err
	}
	if len(c.Lights) == 0 {
		return fmt.Errorf("config: at least one light lobe is required")
	}
	for i, l := range c.Lights {
		if len(l.Axis) != 3 || len(l.Amplitude) != 3 {
			return fmt.Errorf("config: light %d needs 3-component axis and amplitude", i)
		}
	}
	for i, l := range c.Lobes() {
		if err := l.Validate(); err != nil {
			return fmt.Errorf("config: light %d: %w", i, err)
		}
	}
	return nil
}

// SlogLevel parses the configured log level.
func (c *Config) SlogLevel() (slog.Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(strings.ToUpper(c.Log.Level))); err != nil {
		return 0, fmt.Errorf("config: invalid log level %q: %w", c.Log.Level, err)
	}
	return level, nil
}

// Lobes converts the light list to SG lobes.
func (c *Config) Lobes() []sg.Lobe {
	lobes := make([]sg.Lobe, len(c.Lights))
	for i, l := range c.Lights {
		lobes[i] = sg.NewLobe(
			core.NewVec3(l.Axis[0], l.Axis[1], l.Axis[2]),
			l.Sharpness,
			core.NewVec3(l.Amplitude[0], l.Amplitude[1], l.Amplitude[2]))
	}
	return lobes
}

// SetLobes replaces the light list, e.g. to save a fitted rig.
func (c *Config) SetLobes(lobes []sg.Lobe) {
	c.Lights = make([]LightConfig, len(lobes))
	for i, l := range lobes {
		c.Lights[i] = LightConfig{
			Axis:      []float64{l.Axis.X, l.Axis.Y, l.Axis.Z},
			Sharpness: l.Sharpness,
			Amplitude: []float64{l.Amplitude.X, l.Amplitude.Y, l.Amplitude.Z},
		}
	}
}

// WriteYAML writes the configuration to a YAML file.
func (c *Config) WriteYAML(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("marshaling config: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("writing config file: %w", err)
	}
	return nil
}
