package shading

import (
	"math"

	"gonum.org/v1/gonum/stat"

	"github.com/df07/go-sg-renderer/pkg/core"
	"github.com/df07/go-sg-renderer/pkg/sg"
)

// smoothL1Beta is the transition point of the supervision penalty
const smoothL1Beta = 0.01

// Penalty weights per prefit mode
var prefitWeights = map[PrefitMode]float64{
	PrefitNone:    1.0,
	PrefitWarmup:  0.1,
	PrefitProject: 0.2,
}

// superviseVisibility picks the visibility used for shading and scores the
// caller estimate against the sampled one. Without an estimate the sampled
// visibility is used and the penalty is zero. During warmup the sampled
// visibility is used for shading; otherwise the estimate is.
func superviseVisibility(sampled, estimate [][]float64, mode PrefitMode) ([][]float64, float64) {
	if estimate == nil {
		return sampled, 0
	}

	var diffs []float64
	for i := range sampled {
		for m := range sampled[i] {
			diffs = append(diffs, smoothL1(math.Abs(sampled[i][m]-estimate[i][m]), smoothL1Beta))
		}
	}
	var penalty float64
	if len(diffs) > 0 {
		penalty = stat.Mean(diffs, nil) * prefitWeights[mode]
	}

	if mode == PrefitWarmup {
		return sampled, penalty
	}
	return estimate, penalty
}

// smoothL1 is the Huber loss of a non-negative residual
func smoothL1(d, beta float64) float64 {
	if d < beta {
		return 0.5 * d * d / beta
	}
	return d - 0.5*beta
}

// visShadow is sum(vis*mu) / max(sum(mu), 1e-4) per channel
func visShadow(lightVis [][]float64, rigs [][]sg.Lobe) []core.Vec3 {
	out := make([]core.Vec3, len(lightVis))
	for i, row := range lightVis {
		var num, den core.Vec3
		for m, v := range row {
			mu := rigs[i][m].Amplitude
			num = num.Add(mu.Multiply(v))
			den = den.Add(mu)
		}
		den = den.ClampMin(1e-4)
		out[i] = core.NewVec3(num.X/den.X, num.Y/den.Y, num.Z/den.Z)
	}
	return out
}
