package renderer

import (
	"image"

	"github.com/df07/go-sg-renderer/pkg/core"
)

// RenderStats contains statistics about the rendering process
type RenderStats struct {
	TotalPixels int     // Total number of pixels rendered
	HitPixels   int     // Pixels whose primary ray hit geometry
	Tiles       int     // Tiles rendered
	Supervise   float64 // Sum of per-tile supervision penalties
}

// Add accumulates another tile's statistics
func (s *RenderStats) Add(other RenderStats) {
	s.TotalPixels += other.TotalPixels
	s.HitPixels += other.HitPixels
	s.Tiles += other.Tiles
	s.Supervise += other.Supervise
}

// Coverage returns the fraction of pixels that hit geometry
func (s RenderStats) Coverage() float64 {
	if s.TotalPixels == 0 {
		return 0
	}
	return float64(s.HitPixels) / float64(s.TotalPixels)
}

// PixelSample holds the shading outputs of a single pixel
type PixelSample struct {
	Hit      bool
	RGB      core.Vec3 // Final radiance, background for misses
	Diffuse  core.Vec3
	Specular core.Vec3
	Shadow   core.Vec3 // Amplitude-weighted light visibility
	Indirect core.Vec3
}

// Frame is the HDR output buffer, indexed [row][column]
type Frame struct {
	Width  int
	Height int
	Pixels [][]PixelSample
}

// NewFrame allocates an empty frame
func NewFrame(width, height int) *Frame {
	pixels := make([][]PixelSample, height)
	for j := range pixels {
		pixels[j] = make([]PixelSample, width)
	}
	return &Frame{Width: width, Height: height, Pixels: pixels}
}

// ToImage tonemaps the frame with clamping and gamma correction
func (f *Frame) ToImage(gamma float64) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, f.Width, f.Height))
	for j, row := range f.Pixels {
		for i, p := range row {
			img.SetRGBA(i, j, core.ToRGBA(p.RGB, gamma))
		}
	}
	return img
}
