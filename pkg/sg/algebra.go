package sg

import (
	"fmt"
	"math"

	"github.com/df07/go-sg-renderer/pkg/core"
)

// Product approximates the product of two SGs as a third SG (the "lambda
// trick"). The approximation is accurate when lambda1 << lambda2; callers
// pass the sharper lobe second. Amplitudes are per channel. A zero
// lambda2 is a constant lobe and the product degenerates to lobe 1 scaled
// by mu2.
//
// The returned axis is the blend w1*axis1 + w2*axis2 and is not
// renormalized.
func Product(axis1 core.Vec3, lambda1 float64, mu1 core.Vec3, axis2 core.Vec3, lambda2 float64, mu2 core.Vec3) (core.Vec3, float64, core.Vec3) {
	ratio := lambda1 / (lambda2 + core.TinyNumber)

	axis1 = NormalizeAxis(axis1)
	axis2 = NormalizeAxis(axis2)
	dot := axis1.Dot(axis2)

	// clamp to r+1 at the anti-parallel cusp
	tmp := math.Sqrt(ratio*ratio + 1 + 2*ratio*dot)
	tmp = math.Min(tmp, ratio+1)

	lambda3 := lambda2 * tmp
	w1 := ratio / tmp
	w2 := 1.0 / tmp
	diff := lambda2 * (tmp - ratio - 1)

	axis3 := axis1.Multiply(w1).Add(axis2.Multiply(w2))
	mu3 := mu1.MultiplyVec(mu2).Multiply(math.Exp(diff))
	return axis3, lambda3, mu3
}

// ProductStrict is Product with the ordering precondition enforced
func ProductStrict(axis1 core.Vec3, lambda1 float64, mu1 core.Vec3, axis2 core.Vec3, lambda2 float64, mu2 core.Vec3) (core.Vec3, float64, core.Vec3, error) {
	if lambda1 < 0 || lambda2 < 0 {
		return core.Vec3{}, 0, core.Vec3{}, fmt.Errorf("%w: lambda1=%f lambda2=%f", ErrNegativeSharpness, lambda1, lambda2)
	}
	if lambda1 > lambda2 {
		return core.Vec3{}, 0, core.Vec3{}, fmt.Errorf("%w: lambda1=%f lambda2=%f", ErrSharpnessOrder, lambda1, lambda2)
	}
	axis, lambda, mu := Product(axis1, lambda1, mu1, axis2, lambda2, mu2)
	return axis, lambda, mu, nil
}

// ProductLobes is Product over Lobe values
func ProductLobes(a, b Lobe) Lobe {
	axis, lambda, mu := Product(a.Axis, a.Sharpness, a.Amplitude, b.Axis, b.Sharpness, b.Amplitude)
	return Lobe{Axis: axis, Sharpness: lambda, Amplitude: mu}
}
