// Package sg implements spherical Gaussian algebra: lobe evaluation, the
// closed-form product of two lobes and the analytic hemisphere integral.
package sg

import (
	"errors"
	"fmt"
	"math"

	"github.com/df07/go-sg-renderer/pkg/core"
)

var (
	// ErrNegativeSharpness is returned by Validate for a lobe with lambda < 0
	ErrNegativeSharpness = errors.New("sg: negative sharpness")
	// ErrSharpnessOrder is returned by ProductStrict when lambda1 > lambda2
	ErrSharpnessOrder = errors.New("sg: product requires lambda1 <= lambda2")
)

// Lobe is a spherical Gaussian mu * exp(lambda * (dot(x, Axis) - 1))
type Lobe struct {
	Axis      core.Vec3 // Lobe direction, renormalized on every use
	Sharpness float64   // Lambda, >= 0
	Amplitude core.Vec3 // Mu per RGB channel, >= 0
}

// NewLobe creates a lobe from raw parameters
func NewLobe(axis core.Vec3, sharpness float64, amplitude core.Vec3) Lobe {
	return Lobe{Axis: axis, Sharpness: sharpness, Amplitude: amplitude}
}

// Canonical returns the lobe with a normalized axis and non-negative
// sharpness and amplitude. Raw optimizer parameters may carry signs.
func (l Lobe) Canonical() Lobe {
	return Lobe{
		Axis:      NormalizeAxis(l.Axis),
		Sharpness: math.Abs(l.Sharpness),
		Amplitude: l.Amplitude.Abs(),
	}
}

// Evaluate returns the SG value in direction dir
func (l Lobe) Evaluate(dir core.Vec3) core.Vec3 {
	return l.Amplitude.Multiply(Basis(l.Axis, l.Sharpness, dir))
}

// Validate reports lobes that violate the non-negativity contract
func (l Lobe) Validate() error {
	if l.Sharpness < 0 {
		return fmt.Errorf("%w: %f", ErrNegativeSharpness, l.Sharpness)
	}
	if l.Amplitude.X < 0 || l.Amplitude.Y < 0 || l.Amplitude.Z < 0 {
		return fmt.Errorf("sg: negative amplitude %v", l.Amplitude)
	}
	if !l.Axis.IsFinite() || !l.Amplitude.IsFinite() || math.IsNaN(l.Sharpness) {
		return fmt.Errorf("sg: non-finite lobe %+v", l)
	}
	return nil
}

// Basis returns exp(lambda * (dot(dir, axis) - 1)) without amplitude.
// axis and dir are used as given.
func Basis(axis core.Vec3, lambda float64, dir core.Vec3) float64 {
	return math.Exp(lambda * (dir.Dot(axis) - 1))
}

// NormalizeAxis returns v / (|v| + 1e-6). Zero vectors give a zero axis.
func NormalizeAxis(v core.Vec3) core.Vec3 {
	return v.Normalize()
}

// CanonicalSet applies Canonical to every lobe
func CanonicalSet(lobes []Lobe) []Lobe {
	out := make([]Lobe, len(lobes))
	for i, l := range lobes {
		out[i] = l.Canonical()
	}
	return out
}

// MeanAxis returns the amplitude-norm weighted mean of the raw lobe axes.
// It is the "dominant light direction" reported alongside envmap plots.
func MeanAxis(lobes []Lobe) core.Vec3 {
	var sum core.Vec3
	var weight float64
	for _, l := range lobes {
		w := l.Amplitude.ClampMin(0).Length()
		sum = sum.Add(l.Axis.Multiply(w))
		weight += w
	}
	if weight == 0 {
		return core.Vec3{}
	}
	return sum.Multiply(1.0 / weight)
}

// WhitePenalty is the colour-neutrality regularizer for a light rig:
// the mean per-lobe variance of the amplitude normalized by its norm,
// scaled by 0.01.
func WhitePenalty(lobes []Lobe) float64 {
	if len(lobes) == 0 {
		return 0
	}
	var total float64
	for _, l := range lobes {
		a := l.Amplitude.Abs()
		n := a.Length() + 1e-4
		c := a.Multiply(1.0 / n)
		mean := c.Sum() / 3
		// unbiased variance over the three channels
		d := c.Subtract(core.Splat(mean))
		total += d.Dot(d) / 2
	}
	return total / float64(len(lobes)) * 0.01
}
