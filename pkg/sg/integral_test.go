package sg

import (
	"math"
	"testing"
)

func TestHemisphereIntegral_FullyInside(t *testing.T) {
	for _, lambda := range []float64{0.5, 1, 5, 20, 100} {
		got := HemisphereIntegral(lambda, 1)
		l := lambda + 1e-6
		upper := 2 * math.Pi / l * (1 - math.Exp(-l))
		if math.Abs(got-upper) > 1e-9 {
			t.Errorf("lambda=%f: expected upper-hemisphere value %f, got %f", lambda, upper, got)
		}
	}
}

func TestHemisphereIntegral_MatchesSphereIntegralForSharpLobes(t *testing.T) {
	// A sharp lobe centred on the pole loses no energy to the lower hemisphere
	for _, lambda := range []float64{15, 30, 100} {
		got := HemisphereIntegral(lambda, 1)
		want := SphereIntegral(lambda)
		if math.Abs(got-want)/want > 1e-5 {
			t.Errorf("lambda=%f: expected %f, got %f", lambda, want, got)
		}
	}
}

func TestHemisphereIntegral_FullyOutside(t *testing.T) {
	prev := math.Inf(1)
	for _, lambda := range []float64{1, 5, 10, 20, 50} {
		got := HemisphereIntegral(lambda, -1)
		if got < 0 {
			t.Errorf("lambda=%f: negative integral %f", lambda, got)
		}
		if got >= prev {
			t.Errorf("lambda=%f: integral %f did not decrease (prev %f)", lambda, got, prev)
		}
		prev = got
	}
	if prev > 1e-10 {
		t.Errorf("Expected integral near zero for lambda=50, got %g", prev)
	}
}

func TestHemisphereIntegral_MonotonicInCosBeta(t *testing.T) {
	lambda := 4.0
	prev := -1.0
	for cosBeta := -1.0; cosBeta <= 1.0; cosBeta += 0.1 {
		got := HemisphereIntegral(lambda, cosBeta)
		if got < prev-1e-12 {
			t.Errorf("cosBeta=%f: integral %f decreased from %f", cosBeta, got, prev)
		}
		prev = got
	}
}

func TestHemisphereIntegral_Stability(t *testing.T) {
	tests := []struct {
		name    string
		lambda  float64
		cosBeta float64
	}{
		{"zero sharpness", 0, 0.5},
		{"zero sharpness below", 0, -0.5},
		{"huge sharpness above", 1e6, 0.9},
		{"huge sharpness below", 1e6, -0.9},
		{"horizon", 10, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := HemisphereIntegral(tt.lambda, tt.cosBeta)
			if math.IsNaN(got) || math.IsInf(got, 0) {
				t.Errorf("Expected finite value, got %f", got)
			}
		})
	}
}

func TestHemisphereIntegral_ContinuousAtHorizon(t *testing.T) {
	lambda := 3.0
	above := HemisphereIntegral(lambda, 1e-9)
	below := HemisphereIntegral(lambda, -1e-9)
	if math.Abs(above-below) > 1e-6 {
		t.Errorf("Discontinuity at horizon: %f vs %f", above, below)
	}
}
