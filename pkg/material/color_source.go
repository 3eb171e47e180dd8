package material

import (
	"math"

	"github.com/df07/go-sg-renderer/pkg/core"
)

// ColorSource provides spatially-varying colors for materials
type ColorSource interface {
	// Evaluate returns the color at a world-space point
	Evaluate(point core.Vec3) core.Vec3
}

// SolidColor provides uniform color
type SolidColor struct {
	Color core.Vec3
}

// NewSolidColor creates a new solid color source
func NewSolidColor(color core.Vec3) *SolidColor {
	return &SolidColor{Color: color}
}

// Evaluate returns the solid color regardless of position
func (s *SolidColor) Evaluate(point core.Vec3) core.Vec3 {
	return s.Color
}

// Checker is a procedural 3D checkerboard alternating two colors
type Checker struct {
	Size   float64 // Edge length of one check in world units
	Color1 core.Vec3
	Color2 core.Vec3
}

// NewChecker creates a checkerboard color source
func NewChecker(size float64, color1, color2 core.Vec3) *Checker {
	return &Checker{Size: size, Color1: color1, Color2: color2}
}

// Evaluate returns Color1 or Color2 depending on the check containing point
func (c *Checker) Evaluate(point core.Vec3) core.Vec3 {
	if c.Size <= 0 {
		return c.Color1
	}
	ix := int(math.Floor(point.X / c.Size))
	iy := int(math.Floor(point.Y / c.Size))
	iz := int(math.Floor(point.Z / c.Size))
	if (ix+iy+iz)%2 == 0 {
		return c.Color1
	}
	return c.Color2
}
