package shading

import (
	"fmt"
	"math"

	"github.com/df07/go-sg-renderer/pkg/core"
	"github.com/df07/go-sg-renderer/pkg/sg"
	"github.com/df07/go-sg-renderer/pkg/visibility"
)

// brdfLobe is the per-point microfacet lobe warped about the view direction
type brdfLobe struct {
	Axis      core.Vec3
	Sharpness float64
	Amplitude core.Vec3
}

// SpecularEvaluator computes the specular term for a prepared request.
// It can be evaluated any number of times with different roughness. The
// visibility samples are fixed when the evaluator is prepared, so equal
// roughness gives equal radiance and concurrent evaluations are safe.
type SpecularEvaluator struct {
	engine *Engine
	points []SurfacePoint
	rigs   [][]sg.Lobe
	invert bool
	nsamp  int
	seed   int64
}

func newSpecularEvaluator(e *Engine, req Request, rigs [][]sg.Lobe, rng core.Sampler) *SpecularEvaluator {
	nsamp := req.SpecularSamples
	if nsamp <= 0 {
		nsamp = visibility.DefaultSpecularSamples
	}
	return &SpecularEvaluator{
		engine: e,
		points: req.Points,
		rigs:   rigs,
		invert: !req.ComputeVisibility,
		nsamp:  nsamp,
		seed:   int64(rng.Get1D() * (1 << 62)),
	}
}

// Evaluate returns specular radiance per point for the given roughness
func (s *SpecularEvaluator) Evaluate(roughness []float64) ([]core.Vec3, error) {
	if err := s.checkRoughness(roughness); err != nil {
		return nil, err
	}
	views := make([]core.Vec3, len(s.points))
	for i, p := range s.points {
		views[i] = p.ViewDir
	}
	lobes, err := s.warp(views, roughness, -1)
	if err != nil {
		return nil, err
	}

	brdfVis, err := s.visibility(lobes)
	if err != nil {
		return nil, err
	}
	return s.integrate(lobes, brdfVis, -1)
}

// EvaluateMultiView shades the prepared points as seen from several
// cameras. viewDirs is indexed [view][point] and replaces each point's own
// view direction; the result is indexed the same way. Visibility uses
// visibility.DefaultMultiViewSamples with hard class decisions, with the
// same samples for every view.
func (s *SpecularEvaluator) EvaluateMultiView(viewDirs [][]core.Vec3, roughness []float64) ([][]core.Vec3, error) {
	if err := s.checkRoughness(roughness); err != nil {
		return nil, err
	}
	n := len(s.points)
	lobes := make([][]brdfLobe, len(viewDirs))
	axes := make([][]core.Vec3, len(viewDirs))
	sharpness := make([][]float64, len(viewDirs))
	for v, views := range viewDirs {
		if len(views) != n {
			return nil, fmt.Errorf("%w: view %d has %d directions for %d points", ErrShapeMismatch, v, len(views), n)
		}
		var err error
		if lobes[v], err = s.warp(views, roughness, v); err != nil {
			return nil, err
		}
		axes[v] = make([]core.Vec3, n)
		sharpness[v] = make([]float64, n)
		for i, l := range lobes[v] {
			axes[v][i] = l.Axis
			sharpness[v][i] = l.Sharpness
		}
	}

	points, normals := s.geometry()
	brdfVis, err := s.engine.Visibility.SpecularMultiView(points, normals, viewDirs, axes, sharpness,
		visibility.DefaultMultiViewSamples, core.NewSeededSampler(s.seed))
	if err != nil {
		return nil, s.engine.report(err)
	}

	out := make([][]core.Vec3, len(viewDirs))
	for v := range viewDirs {
		if out[v], err = s.integrate(lobes[v], brdfVis[v], v); err != nil {
			return nil, err
		}
	}
	return out, nil
}

func (s *SpecularEvaluator) checkRoughness(roughness []float64) error {
	if len(roughness) != len(s.points) {
		return fmt.Errorf("%w: %d roughness values for %d points", ErrShapeMismatch, len(roughness), len(s.points))
	}
	for i, r := range roughness {
		if !(r > 0) {
			return fmt.Errorf("shading: point %d has non-positive roughness %f", i, r)
		}
	}
	return nil
}

// warp builds the BRDF lobe of every point seen along views
func (s *SpecularEvaluator) warp(views []core.Vec3, roughness []float64, view int) ([]brdfLobe, error) {
	lobes := make([]brdfLobe, len(s.points))
	for i, p := range s.points {
		p.ViewDir = views[i]
		lobes[i] = warpBRDF(p, roughness[i])
		if math.IsNaN(lobes[i].Sharpness) {
			err := core.NewNumericalError("specular warp", i, -1, lobes[i].Sharpness)
			err.View = view
			return nil, s.engine.trap(err)
		}
	}
	return lobes, nil
}

// integrate multiplies each light by the shadowed BRDF lobe and integrates
// the product against the clamped cosine
func (s *SpecularEvaluator) integrate(lobes []brdfLobe, brdfVis []float64, view int) ([]core.Vec3, error) {
	out := make([]core.Vec3, len(s.points))
	for i, p := range s.points {
		var sum core.Vec3
		for m, light := range s.rigs[i] {
			mu := light.Amplitude.Multiply(brdfVis[i])
			axis, lambda, finalMu := sg.Product(light.Axis, light.Sharpness, mu,
				lobes[i].Axis, lobes[i].Sharpness, lobes[i].Amplitude)
			term := cosineIntegral(p.Normal, axis, lambda, finalMu)
			if v, bad := firstNaN(term); bad {
				err := core.NewNumericalError("specular", i, m, v)
				err.View = view
				return nil, s.engine.trap(err)
			}
			sum = sum.Add(term)
		}
		out[i] = sum.ClampMin(0)
	}
	return out, nil
}

func (s *SpecularEvaluator) geometry() ([]core.Vec3, []core.Vec3) {
	points := make([]core.Vec3, len(s.points))
	normals := make([]core.Vec3, len(s.points))
	for i, p := range s.points {
		points[i] = p.Position
		normals[i] = p.Normal
	}
	return points, normals
}

func (s *SpecularEvaluator) visibility(lobes []brdfLobe) ([]float64, error) {
	n := len(s.points)
	points, normals := s.geometry()
	views := make([]core.Vec3, n)
	axes := make([]core.Vec3, n)
	sharpness := make([]float64, n)
	for i, p := range s.points {
		views[i] = p.ViewDir
		axes[i] = lobes[i].Axis
		sharpness[i] = lobes[i].Sharpness
	}
	vis, err := s.engine.Visibility.Specular(points, normals, views, axes, sharpness, s.nsamp, s.invert,
		core.NewSeededSampler(s.seed))
	if err != nil {
		return nil, s.engine.report(err)
	}
	return vis, nil
}

// warpBRDF builds the normalized-NDF lobe around the normal, warps it into
// reflected-direction space and folds Fresnel and masking into its amplitude
func warpBRDF(p SurfacePoint, roughness float64) brdfLobe {
	n, v := p.Normal, p.ViewDir

	invR4 := 2 / (roughness * roughness * roughness * roughness)
	brdfLambda := invR4
	brdfMu := invR4 / math.Pi

	vDotLobe := max(n.Dot(v), 0)
	warpAxis := n.Multiply(2 * vDotLobe).Subtract(v).Normalize()
	warpLambda := brdfLambda / (4*vDotLobe + core.TinyNumber)

	half := warpAxis.Add(v).Normalize()
	vDotH := max(v.Dot(half), 0)
	fresnel := schlick(specularColor(p), vDotH)

	dot1 := max(warpAxis.Dot(n), 0)
	dot2 := max(v.Dot(n), 0)
	k := (roughness + 1) * (roughness + 1) / 8
	g1 := dot1 / (dot1*(1-k) + k + core.TinyNumber)
	g2 := dot2 / (dot2*(1-k) + k + core.TinyNumber)
	moi := fresnel.Multiply(g1 * g2 / (4*dot1*dot2 + core.TinyNumber))

	return brdfLobe{
		Axis:      warpAxis,
		Sharpness: warpLambda,
		Amplitude: moi.Multiply(brdfMu),
	}
}

// specularColor blends the base reflectance toward albedo by metallic
func specularColor(p SurfacePoint) core.Vec3 {
	base := core.Splat(p.SpecularReflectance)
	if p.Metallic == nil {
		return base
	}
	m := *p.Metallic
	return core.Splat(1).Subtract(m).MultiplyVec(base).Add(p.Albedo.MultiplyVec(m))
}

// schlick uses the spherical-Gaussian fit of (1 - cos)^5
func schlick(f0 core.Vec3, vDotH float64) core.Vec3 {
	w := math.Pow(2, -(5.55473*vDotH+6.8316)*vDotH)
	return f0.Add(core.Splat(1).Subtract(f0).Multiply(w))
}
