package core

import (
	"math"
)

// TinyNumber guards every division and normalization in the shading core
const TinyNumber = 1e-6

// Vec3 represents a 3D vector or an RGB triple
type Vec3 struct {
	X, Y, Z float64
}

// NewVec3 creates a new Vec3
func NewVec3(x, y, z float64) Vec3 {
	return Vec3{X: x, Y: y, Z: z}
}

// Splat returns a vector with all three components set to s
func Splat(s float64) Vec3 {
	return Vec3{X: s, Y: s, Z: s}
}

// Add returns the sum of two vectors
func (v Vec3) Add(other Vec3) Vec3 {
	return Vec3{v.X + other.X, v.Y + other.Y, v.Z + other.Z}
}

// Subtract returns the difference of two vectors
func (v Vec3) Subtract(other Vec3) Vec3 {
	return Vec3{v.X - other.X, v.Y - other.Y, v.Z - other.Z}
}

// Multiply returns the vector scaled by a scalar
func (v Vec3) Multiply(scalar float64) Vec3 {
	return Vec3{v.X * scalar, v.Y * scalar, v.Z * scalar}
}

// MultiplyVec returns component-wise multiplication of two vectors
func (v Vec3) MultiplyVec(other Vec3) Vec3 {
	return Vec3{v.X * other.X, v.Y * other.Y, v.Z * other.Z}
}

// Length returns the magnitude of the vector
func (v Vec3) Length() float64 {
	return math.Sqrt(v.X*v.X + v.Y*v.Y + v.Z*v.Z)
}

// Dot returns the dot product of two vectors
func (v Vec3) Dot(other Vec3) float64 {
	return v.X*other.X + v.Y*other.Y + v.Z*other.Z
}

// Cross returns the cross product of two vectors
func (v Vec3) Cross(other Vec3) Vec3 {
	return Vec3{
		X: v.Y*other.Z - v.Z*other.Y,
		Y: v.Z*other.X - v.X*other.Z,
		Z: v.X*other.Y - v.Y*other.X,
	}
}

// Negate returns the negative of the vector
func (v Vec3) Negate() Vec3 {
	return Vec3{-v.X, -v.Y, -v.Z}
}

// Normalize returns v / (|v| + TinyNumber).
// A zero vector maps to the zero vector instead of NaN.
func (v Vec3) Normalize() Vec3 {
	return v.Multiply(1.0 / (v.Length() + TinyNumber))
}

// Abs returns the component-wise absolute value
func (v Vec3) Abs() Vec3 {
	return Vec3{math.Abs(v.X), math.Abs(v.Y), math.Abs(v.Z)}
}

// Exp returns the component-wise exponential
func (v Vec3) Exp() Vec3 {
	return Vec3{math.Exp(v.X), math.Exp(v.Y), math.Exp(v.Z)}
}

// ClampMin returns a vector with every component at least minVal
func (v Vec3) ClampMin(minVal float64) Vec3 {
	return Vec3{max(v.X, minVal), max(v.Y, minVal), max(v.Z, minVal)}
}

// Clamp returns a vector with components clamped to [min, max]
func (v Vec3) Clamp(minVal, maxVal float64) Vec3 {
	return Vec3{
		X: max(minVal, min(maxVal, v.X)),
		Y: max(minVal, min(maxVal, v.Y)),
		Z: max(minVal, min(maxVal, v.Z)),
	}
}

// GammaCorrect applies gamma correction to color values
func (v Vec3) GammaCorrect(gamma float64) Vec3 {
	invGamma := 1.0 / gamma
	return Vec3{
		X: math.Pow(v.X, invGamma),
		Y: math.Pow(v.Y, invGamma),
		Z: math.Pow(v.Z, invGamma),
	}
}

// Sum returns X + Y + Z
func (v Vec3) Sum() float64 {
	return v.X + v.Y + v.Z
}

// Luminance returns the perceptual luminance of an RGB color
func (v Vec3) Luminance() float64 {
	return 0.299*v.X + 0.587*v.Y + 0.114*v.Z
}

// HasNaN reports whether any component is NaN
func (v Vec3) HasNaN() bool {
	return math.IsNaN(v.X) || math.IsNaN(v.Y) || math.IsNaN(v.Z)
}

// IsFinite reports whether every component is neither NaN nor infinite
func (v Vec3) IsFinite() bool {
	return !v.HasNaN() && !math.IsInf(v.X, 0) && !math.IsInf(v.Y, 0) && !math.IsInf(v.Z, 0)
}

// Equals checks if two vectors are exactly equal
func (v Vec3) Equals(other Vec3) bool {
	return v.X == other.X && v.Y == other.Y && v.Z == other.Z
}

// Reflect mirrors v about n: 2*max(n.v, 0)*n - v.
// v points away from the surface, so the result does too.
func Reflect(v, n Vec3) Vec3 {
	nDotV := max(n.Dot(v), 0)
	return n.Multiply(2 * nDotV).Subtract(v)
}

// Vec2 represents a 2D vector, used for sample pairs
type Vec2 struct {
	X, Y float64
}

// NewVec2 creates a new Vec2
func NewVec2(x, y float64) Vec2 {
	return Vec2{X: x, Y: y}
}

// Ray represents a ray with an origin and direction
type Ray struct {
	Origin    Vec3
	Direction Vec3
}

// NewRay creates a new ray
func NewRay(origin, direction Vec3) Ray {
	return Ray{Origin: origin, Direction: direction}
}

// At returns the point at parameter t along the ray
func (r Ray) At(t float64) Vec3 {
	return r.Origin.Add(r.Direction.Multiply(t))
}
