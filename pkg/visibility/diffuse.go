package visibility

import (
	"fmt"
	"math"

	"github.com/df07/go-sg-renderer/pkg/core"
	"github.com/df07/go-sg-renderer/pkg/sg"
)

// Diffuse estimates the visibility of every light lobe from every point.
// Sample directions are drawn once per lobe inside a cone around its axis
// and shared by all points. The result is indexed [point][lobe].
//
// Lobe axes are normalized here; sharpness is used as given and must be
// non-negative. A lobe parallel to the world up axis has a degenerate
// sampling frame and all of its samples fall on the axis.
func (e *Estimator) Diffuse(points, normals []core.Vec3, lobes []sg.Lobe, nsamp int, rng core.Sampler) ([][]float64, error) {
	if len(points) != len(normals) {
		return nil, fmt.Errorf("%w: %d points, %d normals", ErrShapeMismatch, len(points), len(normals))
	}
	nPoints, nLobes := len(points), len(lobes)
	out := make([][]float64, nPoints)
	for i := range out {
		out[i] = make([]float64, nLobes)
	}
	if nPoints == 0 || nLobes == 0 || nsamp <= 0 {
		return out, nil
	}

	// Cone range is set by the broadest lobe, capped by the threshold
	sgRange := e.Threshold
	for _, l := range lobes {
		sgRange = math.Min(sgRange, math.Max(l.Sharpness, minDiffuseSharpness))
	}

	axes := make([]core.Vec3, nLobes)
	dirs := make([]core.Vec3, nLobes*nsamp)
	weights := make([][]float64, nLobes)
	for k, l := range lobes {
		axes[k] = sg.NormalizeAxis(l.Axis)
		frame := core.NewLobeFrame(axes[k])
		halfAngle := core.ConeHalfAngle(sgRange, math.Max(l.Sharpness, minDiffuseSharpness))
		weights[k] = make([]float64, nsamp)
		for s := 0; s < nsamp; s++ {
			dir := core.SampleCone(frame, halfAngle, rng.Get2D())
			dirs[k*nsamp+s] = dir
			weights[k][s] = sg.Basis(axes[k], l.Sharpness, dir)
		}
	}

	// vis is laid out [point][lobe][sample]
	vis := make([]float64, nPoints*nLobes*nsamp)
	var q queryList
	for i := range points {
		for j, dir := range dirs {
			q.add(i*len(dirs)+j, points[i], normals[i], dir)
		}
	}
	if err := e.resolve(&q, vis, e.Argmax, false); err != nil {
		return nil, fmt.Errorf("diffuse visibility: %w", err)
	}

	for i := range points {
		for k := range lobes {
			start := (i*nLobes + k) * nsamp
			v := weightedMean(vis[start:start+nsamp], weights[k])
			if math.IsNaN(v) {
				return nil, core.NewNumericalError("diffuse visibility", i, k, v)
			}
			out[i][k] = v
		}
	}
	return out, nil
}
