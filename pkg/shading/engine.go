// Package shading evaluates outgoing radiance at surface points lit by a
// spherical Gaussian light rig. The rendering integral is approximated in
// closed form: lights, a microfacet BRDF lobe and a clamped-cosine lobe are
// multiplied with the lambda trick and integrated analytically over the
// hemisphere, with shadowing from a visibility predictor.
package shading

import (
	"errors"
	"fmt"
	"log/slog"
	"math"

	"github.com/df07/go-sg-renderer/pkg/core"
	"github.com/df07/go-sg-renderer/pkg/sg"
	"github.com/df07/go-sg-renderer/pkg/visibility"
)

var (
	// ErrNoPredictor is returned when shading needs visibility but the
	// engine has no predictor
	ErrNoPredictor = errors.New("shading: no visibility predictor configured")
	// ErrShapeMismatch is returned when per-point inputs disagree in length
	ErrShapeMismatch = errors.New("shading: input length mismatch")
)

// NumericalError is the fatal NaN/Inf error raised by the engine
type NumericalError = core.NumericalError

// Clamped-cosine SG fit
const (
	cosineMu     = 32.7080
	cosineLambda = 0.0315
	cosineAlpha  = 31.7003
)

// Engine shades batches of surface points. It holds no per-call state and
// may be shared by concurrent callers when its predictor allows it.
type Engine struct {
	Visibility *visibility.Estimator
	Logger     *slog.Logger
}

// NewEngine creates an engine; a nil logger selects slog.Default()
func NewEngine(vis *visibility.Estimator, logger *slog.Logger) *Engine {
	if logger == nil {
		logger = slog.Default()
	}
	return &Engine{Visibility: vis, Logger: logger}
}

// Result holds per-point shading outputs
type Result struct {
	Diffuse   []core.Vec3
	Specular  []core.Vec3
	RGB       []core.Vec3
	VisShadow []core.Vec3 // Amplitude-weighted mean light visibility
	Supervise float64     // Visibility supervision penalty
}

// Render shades every point of the request
func (e *Engine) Render(req Request, rng core.Sampler) (*Result, error) {
	prep, err := e.Prepare(req, rng)
	if err != nil {
		return nil, err
	}
	roughness := make([]float64, len(req.Points))
	for i, p := range req.Points {
		roughness[i] = p.Roughness
	}
	spec, err := prep.Specular.Evaluate(roughness)
	if err != nil {
		return nil, err
	}

	rgb := make([]core.Vec3, len(spec))
	for i := range spec {
		rgb[i] = prep.Diffuse[i].Add(spec[i])
	}
	return &Result{
		Diffuse:   prep.Diffuse,
		Specular:  spec,
		RGB:       rgb,
		VisShadow: prep.VisShadow,
		Supervise: prep.Supervise,
	}, nil
}

// Prepared is the roughness-independent part of a shading call. Its
// Specular evaluator can be run repeatedly with different roughness.
type Prepared struct {
	Diffuse   []core.Vec3
	VisShadow []core.Vec3
	Supervise float64
	Specular  *SpecularEvaluator
}

// Prepare computes visibility, supervision and diffuse radiance, and
// captures what the specular term needs
func (e *Engine) Prepare(req Request, rng core.Sampler) (*Prepared, error) {
	if err := req.validate(); err != nil {
		return nil, err
	}
	if e.Visibility == nil || e.Visibility.Predictor == nil {
		return nil, ErrNoPredictor
	}
	if rng == nil {
		return nil, fmt.Errorf("shading: nil sampler")
	}

	rigs := req.canonicalRigs()
	prep := &Prepared{VisShadow: make([]core.Vec3, len(req.Points))}

	var lightVis [][]float64
	if req.ComputeVisibility {
		sampled, err := e.diffuseVisibility(req, rigs, rng)
		if err != nil {
			return nil, err
		}
		var supervise float64
		lightVis, supervise = superviseVisibility(sampled, req.DiffuseVisibility, req.Prefit)
		prep.Supervise = supervise
		prep.VisShadow = visShadow(lightVis, rigs)
	}

	diffuse, err := e.diffuse(req, rigs, lightVis)
	if err != nil {
		return nil, err
	}
	prep.Diffuse = diffuse
	prep.Specular = newSpecularEvaluator(e, req, rigs, rng)
	return prep, nil
}

// diffuseVisibility samples visibility of point 0's rig from every point
func (e *Engine) diffuseVisibility(req Request, rigs [][]sg.Lobe, rng core.Sampler) ([][]float64, error) {
	if len(req.Points) == 0 {
		return nil, nil
	}
	nsamp := req.DiffuseSamples
	if nsamp <= 0 {
		nsamp = visibility.DefaultDiffuseSamples
		if req.DiffuseVisibility != nil {
			nsamp = visibility.DefaultDiffuseSamplesWithGuess
		}
	}
	points := make([]core.Vec3, len(req.Points))
	normals := make([]core.Vec3, len(req.Points))
	for i, p := range req.Points {
		points[i] = p.Position
		normals[i] = p.Normal
	}
	vis, err := e.Visibility.Diffuse(points, normals, rigs[0], nsamp, rng)
	if err != nil {
		return nil, e.report(err)
	}
	return vis, nil
}

// trap logs a numerical invariant violation and returns it as an error
func (e *Engine) trap(err *NumericalError) error {
	e.logNumerical(err)
	return err
}

// report logs numerical errors coming from the visibility sampler
func (e *Engine) report(err error) error {
	var numErr *NumericalError
	if errors.As(err, &numErr) {
		e.logNumerical(numErr)
	}
	return err
}

func (e *Engine) logNumerical(err *NumericalError) {
	e.Logger.Error("numerical invariant violated",
		slog.String("stage", err.Stage),
		slog.Int("view", err.View),
		slog.Int("point", err.Point),
		slog.Int("lobe", err.Lobe),
		slog.Float64("value", err.Value))
}

// firstNaN returns the first non-finite channel of v
func firstNaN(v core.Vec3) (float64, bool) {
	for _, c := range []float64{v.X, v.Y, v.Z} {
		if math.IsNaN(c) || math.IsInf(c, 0) {
			return c, true
		}
	}
	return 0, false
}
