// Package visibility estimates per-lobe light visibility by sampling
// directions around a lobe and querying a binary visibility predictor.
package visibility

import (
	"math"

	"gonum.org/v1/gonum/floats"

	"github.com/df07/go-sg-renderer/pkg/core"
)

// Class indices of a Score
const (
	ClassOccluded = 0
	ClassVisible  = 1
)

// Score holds unnormalized two-class scores (occluded, visible)
type Score [2]float64

// Predictor maps (point, direction) pairs to visibility scores.
// Predict receives equal-length slices and returns one Score per pair.
// Implementations are queried from several goroutines at once unless the
// sampler is configured with a single worker.
type Predictor interface {
	Predict(points, dirs []core.Vec3) ([]Score, error)
}

// PredictorFunc adapts a function to the Predictor interface
type PredictorFunc func(points, dirs []core.Vec3) ([]Score, error)

// Predict calls f(points, dirs)
func (f PredictorFunc) Predict(points, dirs []core.Vec3) ([]Score, error) {
	return f(points, dirs)
}

// Constant predicts the same visible-class probability everywhere
type Constant struct {
	Visible float64 // Probability in [0, 1]
}

// Unoccluded predicts every direction as visible with probability 1
func Unoccluded() Constant {
	return Constant{Visible: 1}
}

// Predict returns log-probability scores so softmax recovers Visible exactly
func (c Constant) Predict(points, dirs []core.Vec3) ([]Score, error) {
	p := max(0, min(1, c.Visible))
	score := Score{math.Log(1 - p), math.Log(p)}
	out := make([]Score, len(dirs))
	for i := range out {
		out[i] = score
	}
	return out, nil
}

// Occluder answers any-hit ray queries
type Occluder interface {
	Occluded(ray core.Ray, tMin, tMax float64) bool
}

// Traced predicts visibility by casting a ray against scene geometry
type Traced struct {
	Scene      Occluder
	Bias       float64 // Ray start offset to avoid self-intersection
	Confidence float64 // Magnitude of the hard scores
}

// NewTraced creates a ray-cast predictor with default bias and confidence
func NewTraced(scene Occluder) *Traced {
	return &Traced{Scene: scene, Bias: 1e-3, Confidence: 10}
}

// Predict casts one shadow ray per pair
func (tp *Traced) Predict(points, dirs []core.Vec3) ([]Score, error) {
	out := make([]Score, len(dirs))
	for i := range dirs {
		ray := core.NewRay(points[i], dirs[i])
		if tp.Scene.Occluded(ray, tp.Bias, math.Inf(1)) {
			out[i] = Score{tp.Confidence, -tp.Confidence}
		} else {
			out[i] = Score{-tp.Confidence, tp.Confidence}
		}
	}
	return out, nil
}

// Reduce turns a score into a scalar visibility. Argmax mode yields the
// winning class as 0 or 1 with ties going to class 0; otherwise the softmax
// probability. Invert selects the occluded class instead.
func Reduce(s Score, argmax, invert bool) float64 {
	if argmax {
		if invert {
			// argmin: first index holding the minimum
			if s[ClassOccluded] > s[ClassVisible] {
				return 1
			}
			return 0
		}
		if s[ClassVisible] > s[ClassOccluded] {
			return 1
		}
		return 0
	}

	class := ClassVisible
	if invert {
		class = ClassOccluded
	}
	return math.Exp(s[class] - floats.LogSumExp(s[:]))
}
