package sg

import (
	"math"

	"github.com/df07/go-sg-renderer/pkg/core"
)

// Fitted rational coefficients for t(lambda)
const (
	hemiC0 = 1.6988
	hemiC1 = 10.8438
	hemiC2 = 6.2201
	hemiC3 = 10.2415
)

// HemisphereIntegral approximates the integral of exp(lambda*(cos-1)) over
// a hemisphere whose pole is tilted from the SG axis by beta.
// Each sign of cosBeta has its own form so no exponential overflows for
// large lambda.
func HemisphereIntegral(lambda, cosBeta float64) float64 {
	lambda += core.TinyNumber

	invLambda := 1.0 / lambda
	t := math.Sqrt(lambda) * (hemiC0 + hemiC1*invLambda) /
		(1 + hemiC2*invLambda + hemiC3*invLambda*invLambda)

	invA := math.Exp(-t)
	var s float64
	if cosBeta >= 0 {
		invB := math.Exp(-t * cosBeta)
		s = (1 - invA*invB) / (1 - invA + invB - invA*invB)
	} else {
		b := math.Exp(t * cosBeta)
		s = (b - invA) / ((1 - invA) * (b + 1))
	}

	aBelow := 2 * math.Pi / lambda * (math.Exp(-lambda) - math.Exp(-2*lambda))
	aUpper := 2 * math.Pi / lambda * (1 - math.Exp(-lambda))

	return aBelow*(1-s) + aUpper*s
}

// SphereIntegral is the exact full-sphere integral 2pi/lambda * (1 - exp(-2 lambda))
func SphereIntegral(lambda float64) float64 {
	if lambda <= 0 {
		return 4 * math.Pi
	}
	return 2 * math.Pi / lambda * (1 - math.Exp(-2*lambda))
}
