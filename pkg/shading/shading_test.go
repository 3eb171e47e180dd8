package shading

import (
	"errors"
	"io"
	"log/slog"
	"math"
	"math/rand"
	"testing"

	"github.com/df07/go-sg-renderer/pkg/core"
	"github.com/df07/go-sg-renderer/pkg/sg"
	"github.com/df07/go-sg-renderer/pkg/visibility"
)

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestEngine(pred visibility.Predictor) *Engine {
	return NewEngine(visibility.NewEstimator(pred), quietLogger())
}

// scenarioRequest is a single overhead lobe lighting a point seen head on
func scenarioRequest(roughness float64) Request {
	return Request{
		Points: []SurfacePoint{{
			Position:            core.NewVec3(0, 0, 0),
			Normal:              core.NewVec3(0, 0, 1),
			ViewDir:             core.NewVec3(0, 0, 1),
			Albedo:              core.Splat(0.5),
			Roughness:           roughness,
			SpecularReflectance: 0.02,
		}},
		Lights:            []sg.Lobe{sg.NewLobe(core.NewVec3(0, 0, 1), 10, core.Splat(1))},
		ComputeVisibility: true,
	}
}

func TestRender_Scenario(t *testing.T) {
	engine := newTestEngine(visibility.Unoccluded())
	res, err := engine.Render(scenarioRequest(0.5), core.NewSeededSampler(42))
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}

	const tolerance = 1e-3
	if math.Abs(res.Diffuse[0].X-0.0905) > tolerance {
		t.Errorf("Expected diffuse near 0.0905, got %v", res.Diffuse[0])
	}
	if math.Abs(res.Specular[0].X-0.01705) > tolerance {
		t.Errorf("Expected specular near 0.01705, got %v", res.Specular[0])
	}
	if res.Diffuse[0].X <= 0 || res.Specular[0].X <= 0 {
		t.Errorf("Expected positive radiance, got diffuse %v specular %v", res.Diffuse[0], res.Specular[0])
	}
	sum := res.Diffuse[0].Add(res.Specular[0])
	if res.RGB[0].Subtract(sum).Length() > 1e-12 {
		t.Errorf("RGB %v is not diffuse + specular %v", res.RGB[0], sum)
	}
	if math.Abs(res.VisShadow[0].X-1) > 1e-4 {
		t.Errorf("Expected shadow value near 1, got %v", res.VisShadow[0])
	}
	if res.Supervise != 0 {
		t.Errorf("Expected zero supervision without an estimate, got %f", res.Supervise)
	}
}

func TestSpecular_RoughnessSweepDecreases(t *testing.T) {
	engine := newTestEngine(visibility.Unoccluded())
	prep, err := engine.Prepare(scenarioRequest(0.5), core.NewSeededSampler(1))
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}

	roughness := []float64{0.1, 0.2, 0.3, 0.5, 0.7, 0.9, 1.2}
	prev := math.Inf(1)
	for _, r := range roughness {
		spec, err := prep.Specular.Evaluate([]float64{r})
		if err != nil {
			t.Fatalf("roughness %f: unexpected error: %v", r, err)
		}
		if spec[0].X >= prev {
			t.Errorf("roughness %f: specular %f did not decrease from %f", r, spec[0].X, prev)
		}
		if spec[0].X <= 0 {
			t.Errorf("roughness %f: expected positive specular, got %f", r, spec[0].X)
		}
		prev = spec[0].X
	}
}

func TestPrepare_DeferredMatchesRender(t *testing.T) {
	engine := newTestEngine(visibility.Unoccluded())
	req := scenarioRequest(0.4)

	direct, err := engine.Render(req, core.NewSeededSampler(9))
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	prep, err := engine.Prepare(req, core.NewSeededSampler(9))
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	spec, err := prep.Specular.Evaluate([]float64{0.4})
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if !spec[0].Equals(direct.Specular[0]) {
		t.Errorf("Deferred specular %v differs from direct %v", spec[0], direct.Specular[0])
	}
	if !prep.Diffuse[0].Equals(direct.Diffuse[0]) {
		t.Errorf("Deferred diffuse %v differs from direct %v", prep.Diffuse[0], direct.Diffuse[0])
	}

	if _, err := prep.Specular.Evaluate([]float64{0.4, 0.5}); !errors.Is(err, ErrShapeMismatch) {
		t.Errorf("Expected ErrShapeMismatch, got %v", err)
	}
}

// softPredictor varies its answer with position and direction
var softPredictor = visibility.PredictorFunc(func(points, dirs []core.Vec3) ([]visibility.Score, error) {
	out := make([]visibility.Score, len(dirs))
	for i, d := range dirs {
		out[i] = visibility.Score{d.X - points[i].Y, 1.5*d.Z + 0.3}
	}
	return out, nil
})

func randomUnit(random *rand.Rand) core.Vec3 {
	return core.SampleOnUnitSphere(core.NewVec2(random.Float64(), random.Float64()))
}

func TestRender_NonNegative(t *testing.T) {
	random := rand.New(rand.NewSource(42))
	var points []SurfacePoint
	for i := 0; i < 64; i++ {
		p := SurfacePoint{
			Position:            core.NewVec3(random.Float64(), random.Float64(), random.Float64()),
			Normal:              randomUnit(random),
			ViewDir:             randomUnit(random),
			Albedo:              core.NewVec3(random.Float64(), random.Float64(), random.Float64()),
			Roughness:           0.05 + 1.5*random.Float64(),
			SpecularReflectance: 0.02 + 0.1*random.Float64(),
		}
		if i%3 == 0 {
			m := core.NewVec3(random.Float64(), random.Float64(), random.Float64())
			p.Metallic = &m
		}
		points = append(points, p)
	}
	var lights []sg.Lobe
	for m := 0; m < 6; m++ {
		lights = append(lights, sg.NewLobe(randomUnit(random), 0.5+30*random.Float64(),
			core.NewVec3(random.Float64(), random.Float64(), random.Float64())))
	}

	for _, linear := range []bool{false, true} {
		engine := newTestEngine(softPredictor)
		res, err := engine.Render(Request{
			Points:            points,
			Lights:            lights,
			ComputeVisibility: true,
			LinearDiffuse:     linear,
		}, core.NewSeededSampler(3))
		if err != nil {
			t.Fatalf("linear=%v: unexpected error: %v", linear, err)
		}
		for i := range points {
			d, s := res.Diffuse[i], res.Specular[i]
			if d.X < 0 || d.Y < 0 || d.Z < 0 || s.X < 0 || s.Y < 0 || s.Z < 0 {
				t.Errorf("linear=%v point %d: negative radiance diffuse %v specular %v", linear, i, d, s)
			}
		}
	}
}

func TestSpecular_ViewBelowSurfaceIsZero(t *testing.T) {
	engine := newTestEngine(visibility.Unoccluded())
	req := scenarioRequest(0.3)
	req.Points[0].ViewDir = core.NewVec3(0.6, 0, -0.8)

	res, err := engine.Render(req, core.NewSeededSampler(4))
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if !res.Specular[0].Equals(core.Vec3{}) {
		t.Errorf("Expected zero specular for a back-facing view, got %v", res.Specular[0])
	}
}

func TestSpecular_MetallicTintsReflection(t *testing.T) {
	engine := newTestEngine(visibility.Unoccluded())
	req := scenarioRequest(0.3)
	metal := core.Splat(1)
	req.Points[0].Metallic = &metal
	req.Points[0].Albedo = core.NewVec3(1, 0, 0)

	res, err := engine.Render(req, core.NewSeededSampler(4))
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if res.Specular[0].X <= 10*res.Specular[0].Y {
		t.Errorf("Expected red-tinted specular, got %v", res.Specular[0])
	}
}

func TestPrepare_Supervision(t *testing.T) {
	tests := []struct {
		name         string
		mode         PrefitMode
		weight       float64
		usesEstimate bool
	}{
		{"default", PrefitNone, 1.0, true},
		{"warmup", PrefitWarmup, 0.1, false},
		{"project", PrefitProject, 0.2, true},
	}

	engine := newTestEngine(visibility.Unoccluded())
	full, err := engine.Prepare(scenarioRequest(0.5), core.NewSeededSampler(1))
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := scenarioRequest(0.5)
			req.DiffuseVisibility = [][]float64{{0.5}}
			req.Prefit = tt.mode
			prep, err := engine.Prepare(req, core.NewSeededSampler(1))
			if err != nil {
				t.Fatalf("Unexpected error: %v", err)
			}

			// |1 - 0.5| is past the Huber knee: 0.5 - 0.005
			expected := 0.495 * tt.weight
			if math.Abs(prep.Supervise-expected) > 1e-5 {
				t.Errorf("Expected penalty %f, got %f", expected, prep.Supervise)
			}

			ratio := prep.Diffuse[0].X / full.Diffuse[0].X
			shadow := prep.VisShadow[0].X
			if tt.usesEstimate {
				if math.Abs(ratio-0.5) > 1e-4 || math.Abs(shadow-0.5) > 1e-4 {
					t.Errorf("Expected shading with the estimate, got ratio %f shadow %f", ratio, shadow)
				}
			} else if math.Abs(ratio-1) > 1e-4 || math.Abs(shadow-1) > 1e-4 {
				t.Errorf("Expected shading with sampled visibility, got ratio %f shadow %f", ratio, shadow)
			}
		})
	}
}

func TestSmoothL1(t *testing.T) {
	tests := []struct {
		d        float64
		expected float64
	}{
		{0, 0},
		{0.005, 0.00125},
		{0.01, 0.005},
		{0.5, 0.495},
	}
	for _, tt := range tests {
		if got := smoothL1(tt.d, 0.01); math.Abs(got-tt.expected) > 1e-12 {
			t.Errorf("smoothL1(%f) = %f, expected %f", tt.d, got, tt.expected)
		}
	}
}

func TestDiffuse_LinearAndIndirectOverride(t *testing.T) {
	engine := newTestEngine(visibility.Unoccluded())

	base, err := engine.Render(scenarioRequest(0.5), core.NewSeededSampler(2))
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	linReq := scenarioRequest(0.5)
	linReq.LinearDiffuse = true
	linear, err := engine.Render(linReq, core.NewSeededSampler(2))
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	expected := base.Diffuse[0].X * math.Pi / 0.5
	if math.Abs(linear.Diffuse[0].X-expected) > 1e-9 {
		t.Errorf("Expected linear diffuse %f, got %f", expected, linear.Diffuse[0].X)
	}

	integral := core.NewVec3(1, 2, 3)
	tests := []struct {
		name     string
		linear   bool
		expected core.Vec3
	}{
		{"lambertian", false, integral.Multiply(0.5 / math.Pi)},
		{"linear", true, integral},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := scenarioRequest(0.5)
			req.LinearDiffuse = tt.linear
			req.IndirectIntegral = []core.Vec3{integral}
			res, err := engine.Render(req, core.NewSeededSampler(2))
			if err != nil {
				t.Fatalf("Unexpected error: %v", err)
			}
			if res.Diffuse[0].Subtract(tt.expected).Length() > 1e-12 {
				t.Errorf("Expected diffuse %v, got %v", tt.expected, res.Diffuse[0])
			}
		})
	}
}

func TestRenderAll_Indirect(t *testing.T) {
	engine := newTestEngine(visibility.Unoccluded())
	req := scenarioRequest(0.5)

	noIndirect, err := engine.RenderAll(req, nil, core.NewSeededSampler(5))
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if !noIndirect.IndirectRGB[0].Equals(core.Vec3{}) {
		t.Errorf("Expected zero indirect light, got %v", noIndirect.IndirectRGB[0])
	}

	integral := core.NewVec3(0.2, 0.4, 0.6)
	full, err := engine.RenderAll(req, &IndirectLighting{
		Lights:   [][]sg.Lobe{{sg.NewLobe(core.NewVec3(0.2, 0, 1), 5, core.Splat(0.3))}},
		Integral: []core.Vec3{integral},
	}, core.NewSeededSampler(5))
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if math.Abs(full.Diffuse[0].X-0.0905) > 1e-3 {
		t.Errorf("Direct diffuse changed: %v", full.Diffuse[0])
	}
	expected := integral.Multiply(0.5 / math.Pi)
	if full.IndirectDiffuse[0].Subtract(expected).Length() > 1e-12 {
		t.Errorf("Expected indirect diffuse %v, got %v", expected, full.IndirectDiffuse[0])
	}
	// the occluded class of an unoccluded scene masks all indirect specular
	if !full.IndirectSpecular[0].Equals(core.Vec3{}) {
		t.Errorf("Expected zero indirect specular, got %v", full.IndirectSpecular[0])
	}
	if full.IndirectRGB[0].Subtract(expected).Length() > 1e-12 {
		t.Errorf("Expected indirect rgb %v, got %v", expected, full.IndirectRGB[0])
	}
}

func TestRender_Errors(t *testing.T) {
	nanPredictor := visibility.PredictorFunc(func(points, dirs []core.Vec3) ([]visibility.Score, error) {
		out := make([]visibility.Score, len(dirs))
		for i := range out {
			out[i] = visibility.Score{math.NaN(), math.NaN()}
		}
		return out, nil
	})

	t.Run("no predictor", func(t *testing.T) {
		_, err := NewEngine(nil, quietLogger()).Render(scenarioRequest(0.5), core.NewSeededSampler(1))
		if !errors.Is(err, ErrNoPredictor) {
			t.Errorf("Expected ErrNoPredictor, got %v", err)
		}
	})

	t.Run("nan visibility", func(t *testing.T) {
		_, err := newTestEngine(nanPredictor).Render(scenarioRequest(0.5), core.NewSeededSampler(1))
		var numErr *NumericalError
		if !errors.As(err, &numErr) {
			t.Fatalf("Expected NumericalError, got %v", err)
		}
		if numErr.Point != 0 {
			t.Errorf("Expected point 0 in error context, got %d", numErr.Point)
		}
	})

	t.Run("visibility shape", func(t *testing.T) {
		req := scenarioRequest(0.5)
		req.DiffuseVisibility = [][]float64{{0.5, 0.5}}
		_, err := newTestEngine(visibility.Unoccluded()).Render(req, core.NewSeededSampler(1))
		if !errors.Is(err, ErrShapeMismatch) {
			t.Errorf("Expected ErrShapeMismatch, got %v", err)
		}
	})

	t.Run("bad prefit mode", func(t *testing.T) {
		req := scenarioRequest(0.5)
		req.Prefit = "train"
		if _, err := newTestEngine(visibility.Unoccluded()).Render(req, core.NewSeededSampler(1)); err == nil {
			t.Error("Expected error for unknown prefit mode")
		}
	})

	t.Run("zero roughness", func(t *testing.T) {
		if _, err := newTestEngine(visibility.Unoccluded()).Render(scenarioRequest(0), core.NewSeededSampler(1)); err == nil {
			t.Error("Expected error for zero roughness")
		}
	})
}

func TestRender_ZeroSharpnessLight(t *testing.T) {
	// A constant unit environment integrates to albedo
	engine := newTestEngine(visibility.Unoccluded())
	req := scenarioRequest(0.5)
	req.Lights = []sg.Lobe{sg.NewLobe(core.NewVec3(0, 0, 1), 0, core.Splat(1))}

	res, err := engine.Render(req, core.NewSeededSampler(42))
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if !res.Diffuse[0].IsFinite() || !res.Specular[0].IsFinite() {
		t.Fatalf("Expected finite radiance, got diffuse %v specular %v", res.Diffuse[0], res.Specular[0])
	}
	if math.Abs(res.Diffuse[0].X-0.5) > 0.01 {
		t.Errorf("Expected diffuse near 0.5, got %v", res.Diffuse[0])
	}
	if res.Specular[0].X < 0 {
		t.Errorf("Expected non-negative specular, got %v", res.Specular[0])
	}
}

func TestRender_NumericalErrorNamesLobe(t *testing.T) {
	engine := newTestEngine(visibility.Unoccluded())
	req := scenarioRequest(0.5)
	req.ComputeVisibility = false
	req.Lights = append(req.Lights, sg.NewLobe(core.NewVec3(1, 0, 1), 5, core.NewVec3(math.NaN(), 0, 0)))

	_, err := engine.Render(req, core.NewSeededSampler(1))
	var numErr *NumericalError
	if !errors.As(err, &numErr) {
		t.Fatalf("Expected NumericalError, got %v", err)
	}
	if numErr.Stage != "diffuse" || numErr.Point != 0 || numErr.Lobe != 1 {
		t.Errorf("Expected diffuse error at point 0 lobe 1, got %+v", numErr)
	}
}

func TestSpecular_EvaluateIsRepeatable(t *testing.T) {
	engine := newTestEngine(softPredictor)
	req := scenarioRequest(0.3)
	req.Points[0].ViewDir = core.NewVec3(0.6, 0, 0.8)
	prep, err := engine.Prepare(req, core.NewSeededSampler(5))
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}

	first, err := prep.Specular.Evaluate([]float64{0.3})
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if _, err := prep.Specular.Evaluate([]float64{0.8}); err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	second, err := prep.Specular.Evaluate([]float64{0.3})
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if !first[0].Equals(second[0]) {
		t.Errorf("Expected repeated evaluation to match, got %v then %v", first[0], second[0])
	}
}

func TestSpecular_EvaluateMultiView(t *testing.T) {
	engine := newTestEngine(visibility.Unoccluded())
	req := scenarioRequest(0.5)
	prep, err := engine.Prepare(req, core.NewSeededSampler(7))
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	single, err := prep.Specular.Evaluate([]float64{0.5})
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}

	views := [][]core.Vec3{
		{core.NewVec3(0, 0, 1)},
		{core.NewVec3(0.6, 0, 0.8)},
		{core.NewVec3(0.6, 0, -0.8)},
	}
	multi, err := prep.Specular.EvaluateMultiView(views, []float64{0.5})
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if len(multi) != len(views) {
		t.Fatalf("Expected %d views, got %d", len(views), len(multi))
	}
	for v, row := range multi {
		if len(row) != 1 {
			t.Fatalf("View %d: expected 1 point, got %d", v, len(row))
		}
	}

	// Unoccluded visibility only differs by the weight guard
	if multi[0][0].Subtract(single[0]).Length() > 1e-5*single[0].Length() {
		t.Errorf("Head-on view %v differs from single-view specular %v", multi[0][0], single[0])
	}
	if !(multi[1][0].X > 0) {
		t.Errorf("Expected positive specular for an oblique view, got %v", multi[1][0])
	}
	if !multi[2][0].Equals(core.Vec3{}) {
		t.Errorf("Expected zero specular for a back-facing view, got %v", multi[2][0])
	}

	if _, err := prep.Specular.EvaluateMultiView([][]core.Vec3{{}}, []float64{0.5}); !errors.Is(err, ErrShapeMismatch) {
		t.Errorf("Expected ErrShapeMismatch, got %v", err)
	}
}
