package visibility

import (
	"errors"
	"math"

	"gonum.org/v1/gonum/floats"

	"github.com/df07/go-sg-renderer/pkg/core"
)

// ErrShapeMismatch is returned when per-point input slices disagree in length
var ErrShapeMismatch = errors.New("visibility: input length mismatch")

// NumericalError is returned when an aggregated visibility is NaN
type NumericalError = core.NumericalError

// Default sample counts and limits
const (
	DefaultDiffuseSamples          = 32
	DefaultDiffuseSamplesWithGuess = 8
	DefaultSpecularSamples         = 8
	DefaultMultiViewSamples        = 16
	DefaultThreshold               = 1.0
	DefaultBatchSize               = 2000000

	minDiffuseSharpness  = 1e-4
	minSpecularSharpness = 0.1
	maxSpecularSharpness = 50
	maxSpecularRange     = 1.0
)

// Estimator aggregates predictor queries into per-lobe visibility
type Estimator struct {
	Predictor Predictor
	Threshold float64 // Upper bound on the sharpness used for the diffuse cone range
	BatchSize int     // Maximum queries per predictor call
	Workers   int     // Concurrent predictor calls, 0 means one per CPU
	Argmax    bool    // Use hard class decisions instead of softmax probabilities
}

// NewEstimator creates an estimator with default threshold and batch size
func NewEstimator(pred Predictor) *Estimator {
	return &Estimator{
		Predictor: pred,
		Threshold: DefaultThreshold,
		BatchSize: DefaultBatchSize,
	}
}

// queryList collects the (point, direction) pairs that face the normal.
// slot maps each query back to its position in the flat visibility array.
type queryList struct {
	points []core.Vec3
	dirs   []core.Vec3
	slots  []int
}

// add queues dir when it lies above the surface; other slots keep visibility 0
func (q *queryList) add(slot int, point, normal, dir core.Vec3) {
	if normal.Dot(dir) > core.TinyNumber {
		q.points = append(q.points, point)
		q.dirs = append(q.dirs, dir)
		q.slots = append(q.slots, slot)
	}
}

// resolve runs all queued queries and writes reduced visibility into vis
func (e *Estimator) resolve(q *queryList, vis []float64, argmax, invert bool) error {
	if len(q.dirs) == 0 {
		return nil
	}
	scores, err := queryBatched(e.Predictor, q.points, q.dirs, e.BatchSize, e.Workers)
	if err != nil {
		return err
	}
	for j, s := range scores {
		vis[q.slots[j]] = Reduce(s, argmax, invert)
	}
	return nil
}

// weightedMean returns sum(vis*w) / (sum(w) + eps)
func weightedMean(vis, weights []float64) float64 {
	return floats.Dot(vis, weights) / (floats.Sum(weights) + core.TinyNumber)
}

// resetInfiniteWeights maps a row holding an infinite weight to an
// indicator of its infinite entries
func resetInfiniteWeights(weights []float64) {
	if !math.IsInf(floats.Sum(weights), 0) {
		return
	}
	for i, w := range weights {
		if math.IsInf(w, 0) {
			weights[i] = 1
		} else {
			weights[i] = 0
		}
	}
}
