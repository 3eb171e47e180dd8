package envmap

import (
	"math"

	"github.com/df07/go-sg-renderer/pkg/core"
)

// Sample looks up radiance for each direction by bilinear interpolation.
// Coordinates follow the forward grid exactly: x = -theta/pi and
// y = 2*phi/PolarMax - 1 normalized to [-1, 1] with corner-aligned pixels,
// phi = arccos(dir.z) - 1e-6 and theta = atan2(dir.y, dir.x). Taps that
// fall outside the image contribute zero.
func (img *Image) Sample(dirs []core.Vec3) []core.Vec3 {
	out := make([]core.Vec3, len(dirs))
	for i, dir := range dirs {
		out[i] = img.SampleDirection(dir)
	}
	return out
}

// SampleDirection is Sample for a single direction
func (img *Image) SampleDirection(dir core.Vec3) core.Vec3 {
	z := max(-1, min(1, dir.Z))
	phi := math.Acos(z) - core.TinyNumber
	theta := math.Atan2(dir.Y, dir.X)

	queryX := -theta / math.Pi
	queryY := phi/img.PolarMax*2 - 1

	px := (queryX + 1) / 2 * float64(img.Width-1)
	py := (queryY + 1) / 2 * float64(img.Height-1)
	return img.bilinear(px, py)
}

// bilinear interpolates at continuous pixel coordinates with zero padding
func (img *Image) bilinear(px, py float64) core.Vec3 {
	x0 := int(math.Floor(px))
	y0 := int(math.Floor(py))
	fx := px - float64(x0)
	fy := py - float64(y0)

	var rgb core.Vec3
	rgb = rgb.Add(img.tap(y0, x0).Multiply((1 - fx) * (1 - fy)))
	rgb = rgb.Add(img.tap(y0, x0+1).Multiply(fx * (1 - fy)))
	rgb = rgb.Add(img.tap(y0+1, x0).Multiply((1 - fx) * fy))
	rgb = rgb.Add(img.tap(y0+1, x0+1).Multiply(fx * fy))
	return rgb
}

func (img *Image) tap(y, x int) core.Vec3 {
	if y < 0 || y >= img.Height || x < 0 || x >= img.Width {
		return core.Vec3{}
	}
	return img.At(y, x)
}
