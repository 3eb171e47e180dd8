package main

import (
	"flag"
	"fmt"
	"image"
	"image/png"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/df07/go-sg-renderer/pkg/config"
	"github.com/df07/go-sg-renderer/pkg/core"
	"github.com/df07/go-sg-renderer/pkg/envmap"
	"github.com/df07/go-sg-renderer/pkg/geometry"
	"github.com/df07/go-sg-renderer/pkg/loaders"
	"github.com/df07/go-sg-renderer/pkg/renderer"
	"github.com/df07/go-sg-renderer/pkg/scene"
	"github.com/df07/go-sg-renderer/pkg/shading"
	"github.com/df07/go-sg-renderer/pkg/telemetry"
	"github.com/df07/go-sg-renderer/pkg/visibility"
)

// options holds command line overrides applied on top of the config file
type options struct {
	Scene      string
	Envmap     string
	OutputDir  string
	Predictor  string
	Seed       int64
	NoCSV      bool
	ConfigPath string
}

func main() {
	// Parse command line flags
	configPath := flag.String("config", "", "Path to config.yaml (empty = use defaults)")
	sceneName := flag.String("scene", "", "Scene name (empty = use config)")
	envmapPath := flag.String("envmap", "", "Reference equirectangular PNG to score the light rig against")
	outputDir := flag.String("output-dir", "", "Output directory (empty = use config)")
	predictor := flag.String("predictor", "", "Visibility predictor: 'traced' or 'unoccluded' (empty = use config)")
	seed := flag.Int64("seed", 0, "Sampler seed (0 = use config)")
	noCSV := flag.Bool("no-csv", false, "Skip per-pixel CSV output")
	help := flag.Bool("help", false, "Show help information")
	flag.Parse()

	if *help {
		printHelp(os.Stdout)
		return
	}

	opts := options{
		Scene:      *sceneName,
		Envmap:     *envmapPath,
		OutputDir:  *outputDir,
		Predictor:  *predictor,
		Seed:       *seed,
		NoCSV:      *noCSV,
		ConfigPath: *configPath,
	}

	cfg, err := loadConfig(opts)
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger, err := newLogger(cfg, os.Stderr)
	if err != nil {
		slog.Error("failed to set up logging", "error", err)
		os.Exit(1)
	}
	slog.SetDefault(logger)

	if err := run(cfg, opts, logger); err != nil {
		logger.Error("render failed", "error", err)
		os.Exit(1)
	}
}

func printHelp(w io.Writer) {
	fmt.Fprintln(w, "SG Renderer")
	fmt.Fprintln(w, "Usage: sg-renderer [options]")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Options:")
	flag.CommandLine.SetOutput(w)
	flag.PrintDefaults()
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Available scenes:")
	for _, name := range scene.Names() {
		fmt.Fprintf(w, "  %s\n", name)
	}
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Output will be saved to <output-dir>/<scene>/")
}

// loadConfig reads the config file and applies command line overrides
func loadConfig(opts options) (*config.Config, error) {
	cfg, err := config.Load(opts.ConfigPath)
	if err != nil {
		return nil, err
	}
	if opts.Scene != "" {
		cfg.Render.Scene = opts.Scene
	}
	if opts.OutputDir != "" {
		cfg.Output.Dir = opts.OutputDir
	}
	if opts.Predictor != "" {
		cfg.Visibility.Predictor = opts.Predictor
	}
	if opts.Seed != 0 {
		cfg.Render.Seed = opts.Seed
	}
	if opts.NoCSV {
		cfg.Output.CSV = false
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// newLogger builds the slog handler selected by the log config
func newLogger(cfg *config.Config, w io.Writer) (*slog.Logger, error) {
	level, err := cfg.SlogLevel()
	if err != nil {
		return nil, err
	}
	handlerOpts := &slog.HandlerOptions{Level: level}
	if cfg.Log.Format == "json" {
		return slog.New(slog.NewJSONHandler(w, handlerOpts)), nil
	}
	return slog.New(slog.NewTextHandler(w, handlerOpts)), nil
}

// newEstimator wires the configured predictor to the scene geometry
func newEstimator(cfg *config.Config, bvh *geometry.BVH) *visibility.Estimator {
	var pred visibility.Predictor = visibility.Unoccluded()
	if cfg.Visibility.Predictor == "traced" {
		pred = visibility.NewTraced(bvh)
	}
	est := visibility.NewEstimator(pred)
	est.Threshold = cfg.Visibility.Threshold
	est.BatchSize = cfg.Visibility.BatchSize
	est.Workers = cfg.Visibility.Workers
	est.Argmax = cfg.Visibility.Argmax
	return est
}

func rendererConfig(cfg *config.Config) renderer.Config {
	return renderer.Config{
		TileSize:            cfg.Render.TileSize,
		Workers:             cfg.Render.Workers,
		Seed:                cfg.Render.Seed,
		LinearDiffuse:       cfg.Shading.LinearDiffuse,
		Prefit:              shading.PrefitMode(cfg.Shading.Prefit),
		DiffuseSamples:      cfg.Visibility.DiffuseSamples,
		SpecularSamples:     cfg.Visibility.SpecularSamples,
		IndirectStrength:    cfg.Shading.IndirectStrength,
		SpecularReflectance: cfg.Shading.SpecularReflectance,
	}
}

func run(cfg *config.Config, opts options, logger *slog.Logger) error {
	lights := cfg.Lobes()
	sc, err := scene.New(cfg.Render.Scene, cfg.Render.Width, cfg.Render.Height, lights)
	if err != nil {
		return err
	}

	outputDir := filepath.Join(cfg.Output.Dir, sc.Name)
	if err := os.MkdirAll(outputDir, 0755); err != nil {
		return fmt.Errorf("creating output directory: %w", err)
	}

	logger.Info("starting render",
		"scene", sc.Name,
		"width", sc.Camera.Width(),
		"height", sc.Camera.Height(),
		"primitives", sc.GetPrimitiveCount(),
		"predictor", cfg.Visibility.Predictor,
		"rig", telemetry.SummarizeRig(lights))

	engine := shading.NewEngine(newEstimator(cfg, sc.BVH), logger)
	raytracer := renderer.NewRaytracer(sc, engine, rendererConfig(cfg), logger)

	startTime := time.Now()
	frame, stats, err := raytracer.Render()
	if err != nil {
		return err
	}
	logger.Info("render completed",
		"duration", time.Since(startTime),
		"tiles", stats.Tiles,
		"coverage", stats.Coverage(),
		"summary", summarizeFrame(frame, stats))

	if err := savePNG(filepath.Join(outputDir, "render.png"), frame.ToImage(cfg.Envmap.Gamma)); err != nil {
		return err
	}

	env, err := envmap.Compute(lights, cfg.Envmap.Height, cfg.Envmap.Width, cfg.Envmap.UpperHemisphere)
	if err != nil {
		return err
	}
	if err := savePNG(filepath.Join(outputDir, "envmap.png"), env.ToRGBA(cfg.Envmap.Gamma)); err != nil {
		return err
	}

	if opts.Envmap != "" {
		ref, err := loaders.LoadEnvmapResized(opts.Envmap, cfg.Envmap.Height, cfg.Envmap.Width, cfg.Envmap.UpperHemisphere)
		if err != nil {
			return err
		}
		fitErr, err := envmap.FitError(ref, lights)
		if err != nil {
			return err
		}
		logger.Info("envmap fit", "reference", opts.Envmap, "mean_abs_error", fitErr)
	}

	if cfg.Output.CSV {
		if err := writeTelemetry(outputDir, cfg, frame); err != nil {
			return err
		}
	}

	logger.Info("output saved", "dir", outputDir)
	return nil
}

// summarizeFrame collects the shaded pixels into luminance statistics
func summarizeFrame(frame *renderer.Frame, stats renderer.RenderStats) telemetry.ShadingSummary {
	var diffuse, specular, shadow, indirect []core.Vec3
	for _, row := range frame.Pixels {
		for _, p := range row {
			if !p.Hit {
				continue
			}
			diffuse = append(diffuse, p.Diffuse)
			specular = append(specular, p.Specular)
			shadow = append(shadow, p.Shadow)
			indirect = append(indirect, p.Indirect)
		}
	}
	return telemetry.Summarize(diffuse, specular, shadow, indirect, stats.Supervise)
}

func writeTelemetry(dir string, cfg *config.Config, frame *renderer.Frame) error {
	om, err := telemetry.NewOutputManager(dir)
	if err != nil {
		return err
	}
	defer om.Close()

	if err := om.WriteConfig(cfg); err != nil {
		return err
	}
	if err := om.WriteLobes(cfg.Lobes()); err != nil {
		return err
	}

	var records []telemetry.PixelRecord
	for y, row := range frame.Pixels {
		for x, p := range row {
			if p.Hit {
				records = append(records, telemetry.NewPixelRecord(x, y, p.Diffuse, p.Specular, p.Shadow, p.Indirect))
			}
		}
	}
	return om.WritePixels(records)
}

func savePNG(path string, img image.Image) error {
	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("creating %s: %w", filepath.Base(path), err)
	}
	defer file.Close()

	if err := png.Encode(file, img); err != nil {
		return fmt.Errorf("saving %s: %w", filepath.Base(path), err)
	}
	return nil
}
