package core

import (
	"image/color"
	"math"
)

// DisplayGamma is the gamma applied when converting linear radiance to 8-bit
const DisplayGamma = 2.2

// ToRGBA converts linear radiance to a display color: gamma correct, then
// clamp to [0, 1]
func ToRGBA(colorVec Vec3, gamma float64) color.RGBA {
	colorVec = colorVec.ClampMin(0).GammaCorrect(gamma)
	colorVec = colorVec.Clamp(0.0, 1.0)
	return color.RGBA{
		R: uint8(math.Round(255 * colorVec.X)),
		G: uint8(math.Round(255 * colorVec.Y)),
		B: uint8(math.Round(255 * colorVec.Z)),
		A: 255,
	}
}

// FromRGBA converts 16-bit channel values from image.Color.RGBA back to
// linear radiance by undoing the display gamma
func FromRGBA(r, g, b uint32, gamma float64) Vec3 {
	return Vec3{
		X: math.Pow(float64(r)/65535.0, gamma),
		Y: math.Pow(float64(g)/65535.0, gamma),
		Z: math.Pow(float64(b)/65535.0, gamma),
	}
}
