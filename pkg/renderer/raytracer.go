package renderer

import (
	"fmt"
	"image"
	"log/slog"
	"math"

	"github.com/df07/go-sg-renderer/pkg/core"
	"github.com/df07/go-sg-renderer/pkg/envmap"
	"github.com/df07/go-sg-renderer/pkg/geometry"
	"github.com/df07/go-sg-renderer/pkg/material"
	"github.com/df07/go-sg-renderer/pkg/sg"
	"github.com/df07/go-sg-renderer/pkg/shading"
)

// Config contains rendering configuration
type Config struct {
	TileSize         int
	Workers          int   // Concurrent tiles, 0 = one per CPU
	Seed             int64 // Base seed for per-tile samplers
	LinearDiffuse    bool
	Prefit           shading.PrefitMode
	DiffuseSamples   int
	SpecularSamples  int
	IndirectStrength float64 // Amplitude of the ambient indirect lobe, 0 disables the indirect pass

	// Reflectance for shapes without a material
	SpecularReflectance float64
}

// DefaultConfig returns sensible default values
func DefaultConfig() Config {
	return Config{
		TileSize:            32,
		Seed:                42,
		SpecularReflectance: 0.02,
	}
}

// Scene interface to avoid circular imports
type Scene interface {
	GetCamera() *Camera
	GetBVH() *geometry.BVH
	GetLights() []sg.Lobe
}

// Raytracer turns primary-ray hits into surface points and shades them
// tile by tile through the SG engine
type Raytracer struct {
	scene    Scene
	engine   *shading.Engine
	width    int
	height   int
	config   Config
	fallback *material.Material
	logger   *slog.Logger
}

// NewRaytracer creates a new raytracer; a nil logger selects slog.Default()
func NewRaytracer(scene Scene, engine *shading.Engine, config Config, logger *slog.Logger) *Raytracer {
	if logger == nil {
		logger = slog.Default()
	}
	camera := scene.GetCamera()
	return &Raytracer{
		scene:    scene,
		engine:   engine,
		width:    camera.Width(),
		height:   camera.Height(),
		config:   config,
		fallback: material.NewDielectric(core.Splat(0.5), 0.5, config.SpecularReflectance),
		logger:   logger,
	}
}

// Render shades the whole image using a worker pool over tiles
func (rt *Raytracer) Render() (*Frame, RenderStats, error) {
	frame := NewFrame(rt.width, rt.height)
	tileSize := rt.config.TileSize
	if tileSize <= 0 {
		tileSize = DefaultConfig().TileSize
	}
	tiles := NewTileGrid(rt.width, rt.height, tileSize, rt.config.Seed)

	pool := NewWorkerPool(rt, len(tiles), rt.config.Workers)
	pool.Start()
	for i, tile := range tiles {
		pool.SubmitTask(TileTask{Tile: tile, TaskID: i, Frame: frame})
	}
	pool.Stop()

	var stats RenderStats
	var firstErr error
	firstID := len(tiles)
	for {
		result, ok := pool.GetResult()
		if !ok {
			break
		}
		if result.Error != nil {
			if result.TaskID < firstID {
				firstID = result.TaskID
				firstErr = result.Error
			}
			continue
		}
		stats.Add(result.Stats)
	}
	if firstErr != nil {
		return nil, stats, fmt.Errorf("tile %d: %w", firstID, firstErr)
	}

	rt.logger.Debug("render complete",
		slog.Int("tiles", stats.Tiles),
		slog.Int("workers", pool.GetNumWorkers()),
		slog.Float64("coverage", stats.Coverage()))
	return frame, stats, nil
}

// RenderBounds shades the pixels within bounds into frame
func (rt *Raytracer) RenderBounds(bounds image.Rectangle, frame *Frame, sampler core.Sampler) (RenderStats, error) {
	camera := rt.scene.GetCamera()
	bvh := rt.scene.GetBVH()
	lights := rt.scene.GetLights()
	stats := RenderStats{TotalPixels: bounds.Dx() * bounds.Dy(), Tiles: 1}

	var points []shading.SurfacePoint
	var pixels []image.Point
	for j := bounds.Min.Y; j < bounds.Max.Y; j++ {
		for i := bounds.Min.X; i < bounds.Max.X; i++ {
			ray := camera.GetRay(i, j)
			hit, isHit := bvh.Hit(ray, 0.001, math.Inf(1))
			if !isHit {
				// Misses see the light rig directly
				frame.Pixels[j][i] = PixelSample{RGB: envmap.RenderSG(lights, []core.Vec3{ray.Direction})[0]}
				continue
			}
			points = append(points, rt.surfacePoint(ray, hit))
			pixels = append(pixels, image.Pt(i, j))
		}
	}
	stats.HitPixels = len(points)
	if len(points) == 0 {
		return stats, nil
	}

	req := shading.Request{
		Points:          points,
		Lights:          lights,
		LinearDiffuse:   rt.config.LinearDiffuse,
		Prefit:          rt.config.Prefit,
		DiffuseSamples:  rt.config.DiffuseSamples,
		SpecularSamples: rt.config.SpecularSamples,
	}
	res, err := rt.engine.RenderAll(req, rt.indirectLighting(points), sampler)
	if err != nil {
		return stats, err
	}

	for k, px := range pixels {
		frame.Pixels[px.Y][px.X] = PixelSample{
			Hit:      true,
			RGB:      res.RGB[k].Add(res.IndirectRGB[k]),
			Diffuse:  res.Diffuse[k],
			Specular: res.Specular[k],
			Shadow:   res.VisShadow[k],
			Indirect: res.IndirectRGB[k],
		}
	}
	stats.Supervise = res.Supervise
	return stats, nil
}

// surfacePoint evaluates the hit material into a shading record
func (rt *Raytracer) surfacePoint(ray core.Ray, hit *geometry.HitRecord) shading.SurfacePoint {
	mat := hit.Material
	if mat == nil {
		mat = rt.fallback
	}
	surface := mat.Evaluate(hit.Point)
	return shading.SurfacePoint{
		Position:            hit.Point,
		Normal:              hit.Normal,
		ViewDir:             ray.Direction.Negate(),
		Albedo:              surface.Albedo,
		Roughness:           surface.Roughness,
		Metallic:            surface.Metallic,
		SpecularReflectance: surface.SpecularReflectance,
	}
}

// indirectLighting gives each point a broad grey lobe around its normal
func (rt *Raytracer) indirectLighting(points []shading.SurfacePoint) *shading.IndirectLighting {
	if rt.config.IndirectStrength <= 0 {
		return nil
	}
	rigs := make([][]sg.Lobe, len(points))
	for i, p := range points {
		rigs[i] = []sg.Lobe{sg.NewLobe(p.Normal, 1, core.Splat(rt.config.IndirectStrength))}
	}
	return &shading.IndirectLighting{Lights: rigs}
}
