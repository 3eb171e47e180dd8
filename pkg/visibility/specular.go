package visibility

import (
	"fmt"
	"math"

	"github.com/df07/go-sg-renderer/pkg/core"
)

// Specular estimates the visibility of each point's warped BRDF lobe.
// Samples are drawn per point in a cone around the mirror reflection of
// the view direction; weights follow the warped lobe with its sharpness
// clipped to [0.1, 50]. Invert selects the occluded class, which is how
// indirect light is masked. Returns one value per point.
func (e *Estimator) Specular(points, normals, viewDirs, warpAxes []core.Vec3, warpSharpness []float64, nsamp int, invert bool, rng core.Sampler) ([]float64, error) {
	n := len(points)
	if len(normals) != n || len(viewDirs) != n || len(warpAxes) != n || len(warpSharpness) != n {
		return nil, fmt.Errorf("%w: points=%d normals=%d views=%d lobes=%d sharpness=%d",
			ErrShapeMismatch, n, len(normals), len(viewDirs), len(warpAxes), len(warpSharpness))
	}
	out := make([]float64, n)
	if n == 0 || nsamp <= 0 {
		return out, nil
	}

	sharpness := clipSpecularSharpness([][]float64{warpSharpness})[0]
	sgRange := specularRange(sharpness)

	samples := drawSamples(rng, n, nsamp)
	vis := make([]float64, n*nsamp)
	weights := make([]float64, n*nsamp)
	var q queryList
	for i := range points {
		sampleLobe(points[i], normals[i], viewDirs[i], warpAxes[i], sharpness[i], sgRange,
			samples[i], i*nsamp, &q, weights[i*nsamp:(i+1)*nsamp])
	}
	if err := e.resolve(&q, vis, e.Argmax, invert); err != nil {
		return nil, fmt.Errorf("specular visibility: %w", err)
	}

	for i := range points {
		row := weights[i*nsamp : (i+1)*nsamp]
		resetInfiniteWeights(row)
		v := weightedMean(vis[i*nsamp:(i+1)*nsamp], row)
		if math.IsNaN(v) {
			return nil, core.NewNumericalError("specular visibility", i, -1, v)
		}
		out[i] = v
	}
	return out, nil
}

// SpecularMultiView is Specular for the same points seen from several
// cameras. viewDirs, warpAxes and warpSharpness are indexed [view][point];
// the result is too. Random samples are shared across views and class
// decisions are always hard.
func (e *Estimator) SpecularMultiView(points, normals []core.Vec3, viewDirs, warpAxes [][]core.Vec3, warpSharpness [][]float64, nsamp int, rng core.Sampler) ([][]float64, error) {
	n := len(points)
	nViews := len(viewDirs)
	if len(normals) != n || len(warpAxes) != nViews || len(warpSharpness) != nViews {
		return nil, fmt.Errorf("%w: points=%d normals=%d views=%d lobes=%d sharpness=%d",
			ErrShapeMismatch, n, len(normals), nViews, len(warpAxes), len(warpSharpness))
	}
	for v := 0; v < nViews; v++ {
		if len(viewDirs[v]) != n || len(warpAxes[v]) != n || len(warpSharpness[v]) != n {
			return nil, fmt.Errorf("%w: view %d has %d directions, %d lobes, %d sharpness for %d points",
				ErrShapeMismatch, v, len(viewDirs[v]), len(warpAxes[v]), len(warpSharpness[v]), n)
		}
	}
	out := make([][]float64, nViews)
	for v := range out {
		out[v] = make([]float64, n)
	}
	if n == 0 || nViews == 0 || nsamp <= 0 {
		return out, nil
	}

	sharpness := clipSpecularSharpness(warpSharpness)
	var minSharp []float64
	for _, row := range sharpness {
		minSharp = append(minSharp, row...)
	}
	sgRange := specularRange(minSharp)

	samples := drawSamples(rng, n, nsamp)
	stride := n * nsamp
	vis := make([]float64, nViews*stride)
	weights := make([]float64, nViews*stride)
	var q queryList
	for v := 0; v < nViews; v++ {
		for i := range points {
			base := v*stride + i*nsamp
			sampleLobe(points[i], normals[i], viewDirs[v][i], warpAxes[v][i], sharpness[v][i], sgRange,
				samples[i], base, &q, weights[base:base+nsamp])
		}
	}
	if err := e.resolve(&q, vis, true, false); err != nil {
		return nil, fmt.Errorf("multi-view specular visibility: %w", err)
	}

	for v := 0; v < nViews; v++ {
		for i := range points {
			base := v*stride + i*nsamp
			row := weights[base : base+nsamp]
			resetInfiniteWeights(row)
			val := weightedMean(vis[base:base+nsamp], row)
			if math.IsNaN(val) {
				err := core.NewNumericalError("multi-view specular visibility", i, -1, val)
				err.View = v
				return nil, err
			}
			out[v][i] = val
		}
	}
	return out, nil
}

// sampleLobe queues the cone samples of one point and fills their weights
func sampleLobe(point, normal, view, warpAxis core.Vec3, sharpness, sgRange float64, samples []core.Vec2, slot int, q *queryList, weights []float64) {
	ref := core.Reflect(view, normal)
	frame := core.NewLobeFrame(ref)
	halfAngle := core.ConeHalfAngle(sgRange, sharpness)
	for s, u := range samples {
		dir := core.SampleCone(frame, halfAngle, u)
		q.add(slot+s, point, normal, dir)
		weights[s] = math.Exp(sharpness * (dir.Dot(warpAxis) - 1))
	}
}

func clipSpecularSharpness(in [][]float64) [][]float64 {
	out := make([][]float64, len(in))
	for v, row := range in {
		out[v] = make([]float64, len(row))
		for i, s := range row {
			out[v][i] = math.Min(math.Max(s, minSpecularSharpness), maxSpecularSharpness)
		}
	}
	return out
}

// specularRange is the smallest clipped sharpness, capped at 1
func specularRange(sharpness []float64) float64 {
	r := maxSpecularRange
	for _, s := range sharpness {
		r = math.Min(r, s)
	}
	return r
}

// drawSamples draws nsamp uniform pairs per point
func drawSamples(rng core.Sampler, nPoints, nsamp int) [][]core.Vec2 {
	out := make([][]core.Vec2, nPoints)
	for i := range out {
		out[i] = make([]core.Vec2, nsamp)
		for s := range out[i] {
			out[i][s] = rng.Get2D()
		}
	}
	return out
}
