package core

import (
	"math"
	"math/rand"
)

// WorldUp is the reference axis used to build sampling frames around a lobe
var WorldUp = Vec3{X: 0, Y: 0, Z: 1}

// Sampler provides random sampling for rendering algorithms
// Can be swapped out for deterministic testing or different sampling patterns
type Sampler interface {
	Get1D() float64
	Get2D() Vec2
}

// RandomSampler wraps a standard Go random generator
type RandomSampler struct {
	random *rand.Rand
}

// NewRandomSampler creates a sampler from a Go random generator
func NewRandomSampler(random *rand.Rand) *RandomSampler {
	return &RandomSampler{random: random}
}

// NewSeededSampler creates a sampler with its own generator seeded by seed
func NewSeededSampler(seed int64) *RandomSampler {
	return NewRandomSampler(rand.New(rand.NewSource(seed)))
}

// Get1D returns a random float64 in [0, 1)
func (r *RandomSampler) Get1D() float64 {
	return r.random.Float64()
}

// Get2D returns two random float64 values in [0, 1)
func (r *RandomSampler) Get2D() Vec2 {
	return NewVec2(r.random.Float64(), r.random.Float64())
}

// Frame is an orthonormal basis {U, V, W} with W the lobe axis
type Frame struct {
	U, V, W Vec3
}

// NewLobeFrame builds U = norm(up x w), V = norm(w x U).
// When w is parallel to WorldUp both U and V collapse to zero and every
// direction built from the frame lies on w.
func NewLobeFrame(w Vec3) Frame {
	u := WorldUp.Cross(w).Normalize()
	v := w.Cross(u).Normalize()
	return Frame{U: u, V: v, W: w}
}

// Direction returns U*cos(theta)*sin(phi) + V*sin(theta)*sin(phi) + W*cos(phi)
func (f Frame) Direction(theta, phi float64) Vec3 {
	sinPhi := math.Sin(phi)
	return f.U.Multiply(math.Cos(theta) * sinPhi).
		Add(f.V.Multiply(math.Sin(theta) * sinPhi)).
		Add(f.W.Multiply(math.Cos(phi)))
}

// ConeHalfAngle returns the polar sampling range for a lobe of the given
// sharpness: arccos(1 - 0.95*rangeSharpness/sharpness).
// rangeSharpness must not exceed sharpness.
func ConeHalfAngle(rangeSharpness, sharpness float64) float64 {
	return math.Acos(-0.95*rangeSharpness/sharpness + 1)
}

// SampleCone draws a direction with azimuth uniform in [0, 2pi) and polar
// angle uniform in [0, halfAngle) around the frame axis
func SampleCone(frame Frame, halfAngle float64, sample Vec2) Vec3 {
	theta := sample.X * 2 * math.Pi
	phi := sample.Y * halfAngle
	return frame.Direction(theta, phi)
}

// SampleOnUnitSphere generates a uniform random direction on the unit sphere
func SampleOnUnitSphere(sample Vec2) Vec3 {
	z := 1.0 - 2.0*sample.X // z ∈ [-1, 1]
	r := math.Sqrt(math.Max(0, 1.0-z*z))
	phi := 2.0 * math.Pi * sample.Y
	return NewVec3(r*math.Cos(phi), r*math.Sin(phi), z)
}
