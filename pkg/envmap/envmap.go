// Package envmap converts between SG light rigs and equirectangular
// environment images.
//
// Grid convention (matches Blender): row i has polar angle
// phi = i/(H-1) * PolarMax, column j has azimuth theta = pi - 2pi*j/(W-1),
// and direction = (cos(theta) sin(phi), sin(theta) sin(phi), cos(phi)).
package envmap

import (
	"errors"
	"fmt"
	"math"

	"github.com/df07/go-sg-renderer/pkg/core"
	"github.com/df07/go-sg-renderer/pkg/sg"
)

// ErrInvalidSize is returned for envmap dimensions below 2x2
var ErrInvalidSize = errors.New("envmap: height and width must be at least 2")

// Image is an H x W RGB environment map stored row-major
type Image struct {
	Height   int
	Width    int
	PolarMax float64 // pi for a full sphere, pi/2 for the upper hemisphere
	Pixels   []core.Vec3
}

// NewImage allocates a zeroed full-sphere image
func NewImage(height, width int) *Image {
	return &Image{
		Height:   height,
		Width:    width,
		PolarMax: math.Pi,
		Pixels:   make([]core.Vec3, height*width),
	}
}

// At returns the pixel at row y, column x
func (img *Image) At(y, x int) core.Vec3 {
	return img.Pixels[y*img.Width+x]
}

// Set writes the pixel at row y, column x
func (img *Image) Set(y, x int, c core.Vec3) {
	img.Pixels[y*img.Width+x] = c
}

// UpperHemisphere reports whether the image only covers z >= 0
func (img *Image) UpperHemisphere() bool {
	return img.PolarMax < math.Pi
}

// RenderSG evaluates the sum over lobes of mu*exp(lambda*(dot(dir, axis)-1))
// for every direction. Lobes are canonicalized first.
func RenderSG(lobes []sg.Lobe, dirs []core.Vec3) []core.Vec3 {
	canon := sg.CanonicalSet(lobes)
	out := make([]core.Vec3, len(dirs))
	for i, dir := range dirs {
		out[i] = evaluateRig(canon, dir)
	}
	return out
}

// evaluateRig sums every canonical lobe in direction dir
func evaluateRig(canon []sg.Lobe, dir core.Vec3) core.Vec3 {
	var rgb core.Vec3
	for _, l := range canon {
		rgb = rgb.Add(l.Evaluate(dir))
	}
	return rgb
}

// GridDirection returns the direction of pixel (y, x) on an H x W grid
func GridDirection(y, x, height, width int, polarMax float64) core.Vec3 {
	phi := float64(y) / float64(height-1) * polarMax
	theta := math.Pi - 2*math.Pi*float64(x)/float64(width-1)
	return core.NewVec3(
		math.Cos(theta)*math.Sin(phi),
		math.Sin(theta)*math.Sin(phi),
		math.Cos(phi),
	)
}

// Compute rasterizes a light rig onto an H x W grid covering either the
// full sphere or only the upper hemisphere
func Compute(lobes []sg.Lobe, height, width int, upperHemi bool) (*Image, error) {
	if height < 2 || width < 2 {
		return nil, fmt.Errorf("%w: got %dx%d", ErrInvalidSize, height, width)
	}

	img := NewImage(height, width)
	if upperHemi {
		img.PolarMax = math.Pi / 2
	}

	canon := sg.CanonicalSet(lobes)
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			dir := GridDirection(y, x, height, width, img.PolarMax)
			img.Set(y, x, evaluateRig(canon, dir))
		}
	}
	return img, nil
}
