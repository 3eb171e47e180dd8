package material

import (
	"math"

	"github.com/df07/go-sg-renderer/pkg/core"
)

// ImageTexture projects a 2D image onto the xy plane, repeating every
// Scale world units
type ImageTexture struct {
	Width  int
	Height int
	Scale  float64     // World size of one image tile
	Pixels []core.Vec3 // Row-major: Pixels[y*Width + x]
}

// NewImageTexture creates a new image texture
func NewImageTexture(width, height int, scale float64, pixels []core.Vec3) *ImageTexture {
	return &ImageTexture{
		Width:  width,
		Height: height,
		Scale:  scale,
		Pixels: pixels,
	}
}

// NewGradientTexture creates a gradient from color1 at y=0 to color2 at
// the far edge of the tile
func NewGradientTexture(height int, scale float64, color1, color2 core.Vec3) *ImageTexture {
	pixels := make([]core.Vec3, height)
	for y := range pixels {
		t := float64(y) / float64(max(height-1, 1))
		pixels[y] = color1.Multiply(1.0 - t).Add(color2.Multiply(t))
	}
	return NewImageTexture(1, height, scale, pixels)
}

// Evaluate samples the texture at point using nearest-neighbor filtering
func (t *ImageTexture) Evaluate(point core.Vec3) core.Vec3 {
	if t.Scale <= 0 || len(t.Pixels) == 0 {
		return core.Vec3{}
	}
	// Wrap to [0, 1)
	u := point.X/t.Scale - math.Floor(point.X/t.Scale)
	v := point.Y/t.Scale - math.Floor(point.Y/t.Scale)

	x := min(int(u*float64(t.Width)), t.Width-1)
	y := min(int(v*float64(t.Height)), t.Height-1)
	return t.Pixels[y*t.Width+x]
}
