package visibility

import (
	"errors"
	"math"
	"sync/atomic"
	"testing"

	"github.com/df07/go-sg-renderer/pkg/core"
	"github.com/df07/go-sg-renderer/pkg/geometry"
	"github.com/df07/go-sg-renderer/pkg/sg"
)

// countingPredictor records how many pairs it was asked about
type countingPredictor struct {
	calls   atomic.Int64
	queries atomic.Int64
	inner   Predictor
}

func (c *countingPredictor) Predict(points, dirs []core.Vec3) ([]Score, error) {
	c.calls.Add(1)
	c.queries.Add(int64(len(dirs)))
	return c.inner.Predict(points, dirs)
}

// smoothPredictor gives direction-dependent soft scores
var smoothPredictor = PredictorFunc(func(points, dirs []core.Vec3) ([]Score, error) {
	out := make([]Score, len(dirs))
	for i, d := range dirs {
		out[i] = Score{-3 * d.X, 2*d.Y + points[i].X}
	}
	return out, nil
})

func testPoints() ([]core.Vec3, []core.Vec3) {
	points := []core.Vec3{
		core.NewVec3(0, 0, 0),
		core.NewVec3(1, 0.5, 0),
		core.NewVec3(-2, 1, 0.3),
	}
	normals := []core.Vec3{
		core.NewVec3(0, 0, 1),
		core.NewVec3(0.3, 0.1, 1).Normalize(),
		core.NewVec3(-0.5, 0, 1).Normalize(),
	}
	return points, normals
}

func testLobes() []sg.Lobe {
	return []sg.Lobe{
		sg.NewLobe(core.NewVec3(0.3, 0, 1), 10, core.Splat(1)),
		sg.NewLobe(core.NewVec3(1, 1, 0.2), 2, core.Splat(0.5)),
		sg.NewLobe(core.NewVec3(-1, 0.2, 0.6), 0.5, core.NewVec3(1, 0.2, 0.1)),
	}
}

func TestReduce(t *testing.T) {
	tests := []struct {
		name     string
		score    Score
		argmax   bool
		invert   bool
		expected float64
	}{
		{"argmax visible", Score{-1, 2}, true, false, 1},
		{"argmax occluded", Score{2, -1}, true, false, 0},
		{"argmax tie picks occluded", Score{1, 1}, true, false, 0},
		{"argmin visible wins", Score{-1, 2}, true, true, 0},
		{"argmin occluded wins", Score{2, -1}, true, true, 1},
		{"softmax even", Score{0, 0}, false, false, 0.5},
		{"softmax visible", Score{0, math.Log(3)}, false, false, 0.75},
		{"softmax inverted", Score{0, math.Log(3)}, false, true, 0.25},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Reduce(tt.score, tt.argmax, tt.invert)
			if math.Abs(got-tt.expected) > 1e-12 {
				t.Errorf("Expected %f, got %f", tt.expected, got)
			}
		})
	}
}

func TestConstant_ExactProbabilities(t *testing.T) {
	dirs := []core.Vec3{core.NewVec3(0, 0, 1), core.NewVec3(1, 0, 0)}
	for _, p := range []float64{0, 0.3, 1} {
		scores, err := Constant{Visible: p}.Predict(dirs, dirs)
		if err != nil {
			t.Fatalf("Unexpected error: %v", err)
		}
		for _, s := range scores {
			if got := Reduce(s, false, false); math.Abs(got-p) > 1e-12 {
				t.Errorf("p=%f: expected softmax %f, got %f", p, p, got)
			}
		}
	}
}

func TestDiffuse_UnoccludedIsOne(t *testing.T) {
	est := NewEstimator(Unoccluded())
	points := []core.Vec3{core.NewVec3(0, 0, 0)}
	normals := []core.Vec3{core.NewVec3(0, 0, 1)}
	lobes := []sg.Lobe{sg.NewLobe(core.NewVec3(0.3, 0, 1), 10, core.Splat(1))}

	vis, err := est.Diffuse(points, normals, lobes, DefaultDiffuseSamples, core.NewSeededSampler(42))
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if math.Abs(vis[0][0]-1) > 1e-4 {
		t.Errorf("Expected visibility near 1, got %f", vis[0][0])
	}
}

func TestDiffuse_BelowHorizonSkipsPredictor(t *testing.T) {
	pred := &countingPredictor{inner: Unoccluded()}
	est := NewEstimator(pred)
	points := []core.Vec3{core.NewVec3(0, 0, 0)}
	normals := []core.Vec3{core.NewVec3(0, 0, -1)}
	// cone of about 25 degrees around an axis 11 degrees off +z
	lobes := []sg.Lobe{sg.NewLobe(core.NewVec3(0, 0.2, 1), 10, core.Splat(1))}

	vis, err := est.Diffuse(points, normals, lobes, 64, core.NewSeededSampler(7))
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if vis[0][0] != 0 {
		t.Errorf("Expected exactly 0 visibility, got %f", vis[0][0])
	}
	if n := pred.calls.Load(); n != 0 {
		t.Errorf("Expected no predictor calls, got %d", n)
	}
}

func TestDiffuse_Bounds(t *testing.T) {
	points, normals := testPoints()
	for _, argmax := range []bool{false, true} {
		est := NewEstimator(smoothPredictor)
		est.Argmax = argmax
		vis, err := est.Diffuse(points, normals, testLobes(), DefaultDiffuseSamples, core.NewSeededSampler(42))
		if err != nil {
			t.Fatalf("Unexpected error: %v", err)
		}
		for i, row := range vis {
			for k, v := range row {
				if v < 0 || v > 1 || math.IsNaN(v) {
					t.Errorf("argmax=%v: visibility[%d][%d] = %f out of [0, 1]", argmax, i, k, v)
				}
			}
		}
	}
}

func TestDiffuse_ArgmaxSingleSampleIsBinary(t *testing.T) {
	est := NewEstimator(smoothPredictor)
	est.Argmax = true
	points, normals := testPoints()
	vis, err := est.Diffuse(points, normals, testLobes(), 1, core.NewSeededSampler(3))
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	for i, row := range vis {
		for k, v := range row {
			// one sample: v = w/(w+eps), so either 0 or within eps of 1
			if v != 0 && math.Abs(v-1) > 1e-3 {
				t.Errorf("visibility[%d][%d] = %f, expected 0 or 1", i, k, v)
			}
		}
	}
}

func TestDiffuse_BatchingDoesNotChangeResults(t *testing.T) {
	points, normals := testPoints()
	reference := NewEstimator(smoothPredictor)
	reference.Workers = 1
	want, err := reference.Diffuse(points, normals, testLobes(), 16, core.NewSeededSampler(99))
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}

	configs := []struct {
		batchSize int
		workers   int
	}{
		{1, 1}, {7, 4}, {64, 2}, {100000, 8},
	}
	for _, cfg := range configs {
		pred := &countingPredictor{inner: smoothPredictor}
		est := NewEstimator(pred)
		est.BatchSize = cfg.batchSize
		est.Workers = cfg.workers
		got, err := est.Diffuse(points, normals, testLobes(), 16, core.NewSeededSampler(99))
		if err != nil {
			t.Fatalf("batch %d: unexpected error: %v", cfg.batchSize, err)
		}
		for i := range want {
			for k := range want[i] {
				if got[i][k] != want[i][k] {
					t.Errorf("batch %d workers %d: visibility[%d][%d] = %v, want %v",
						cfg.batchSize, cfg.workers, i, k, got[i][k], want[i][k])
				}
			}
		}
		queries := pred.queries.Load()
		expectedCalls := (queries + int64(cfg.batchSize) - 1) / int64(cfg.batchSize)
		if pred.calls.Load() != expectedCalls {
			t.Errorf("batch %d: expected %d calls for %d queries, got %d",
				cfg.batchSize, expectedCalls, queries, pred.calls.Load())
		}
	}
}

func TestDiffuse_PredictorErrorPropagates(t *testing.T) {
	boom := errors.New("boom")
	est := NewEstimator(PredictorFunc(func(points, dirs []core.Vec3) ([]Score, error) {
		return nil, boom
	}))
	points, normals := testPoints()
	_, err := est.Diffuse(points, normals, testLobes(), 4, core.NewSeededSampler(1))
	if !errors.Is(err, boom) {
		t.Errorf("Expected wrapped predictor error, got %v", err)
	}
}

func TestDiffuse_ShortPredictorOutput(t *testing.T) {
	est := NewEstimator(PredictorFunc(func(points, dirs []core.Vec3) ([]Score, error) {
		return make([]Score, len(dirs)-1), nil
	}))
	points, normals := testPoints()
	_, err := est.Diffuse(points, normals, testLobes(), 4, core.NewSeededSampler(1))
	if !errors.Is(err, ErrShapeMismatch) {
		t.Errorf("Expected ErrShapeMismatch, got %v", err)
	}
}

func TestDiffuse_NaNIsFatal(t *testing.T) {
	est := NewEstimator(PredictorFunc(func(points, dirs []core.Vec3) ([]Score, error) {
		out := make([]Score, len(dirs))
		for i := range out {
			out[i] = Score{math.NaN(), 0}
		}
		return out, nil
	}))
	points, normals := testPoints()
	_, err := est.Diffuse(points, normals, testLobes(), 4, core.NewSeededSampler(1))
	var numErr *NumericalError
	if !errors.As(err, &numErr) {
		t.Fatalf("Expected NumericalError, got %v", err)
	}
	if numErr.Point < 0 || numErr.Lobe < 0 {
		t.Errorf("Expected point and lobe context, got %+v", numErr)
	}
}

func TestDiffuse_LengthMismatch(t *testing.T) {
	est := NewEstimator(Unoccluded())
	_, err := est.Diffuse([]core.Vec3{{}}, nil, testLobes(), 4, core.NewSeededSampler(1))
	if !errors.Is(err, ErrShapeMismatch) {
		t.Errorf("Expected ErrShapeMismatch, got %v", err)
	}
}

func warpInputs(normals []core.Vec3) ([]core.Vec3, []core.Vec3, []float64) {
	views := make([]core.Vec3, len(normals))
	axes := make([]core.Vec3, len(normals))
	sharp := make([]float64, len(normals))
	for i, n := range normals {
		views[i] = core.NewVec3(0.2, -0.1, 1).Normalize()
		axes[i] = core.Reflect(views[i], n).Normalize()
		sharp[i] = 5 + float64(i)*20
	}
	return views, axes, sharp
}

func TestSpecular_UnoccludedAndInverted(t *testing.T) {
	points, normals := testPoints()
	views, axes, sharp := warpInputs(normals)
	est := NewEstimator(Unoccluded())

	vis, err := est.Specular(points, normals, views, axes, sharp, DefaultSpecularSamples, false, core.NewSeededSampler(5))
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	inv, err := est.Specular(points, normals, views, axes, sharp, DefaultSpecularSamples, true, core.NewSeededSampler(5))
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	for i := range points {
		if math.Abs(vis[i]-1) > 1e-3 {
			t.Errorf("point %d: expected visibility near 1, got %f", i, vis[i])
		}
		if inv[i] != 0 {
			t.Errorf("point %d: expected inverted visibility 0, got %f", i, inv[i])
		}
	}
}

func TestSpecular_Bounds(t *testing.T) {
	points, normals := testPoints()
	views, axes, sharp := warpInputs(normals)
	for _, invert := range []bool{false, true} {
		est := NewEstimator(smoothPredictor)
		vis, err := est.Specular(points, normals, views, axes, sharp, 24, invert, core.NewSeededSampler(11))
		if err != nil {
			t.Fatalf("Unexpected error: %v", err)
		}
		for i, v := range vis {
			if v < 0 || v > 1 {
				t.Errorf("invert=%v: visibility[%d] = %f out of [0, 1]", invert, i, v)
			}
		}
	}
}

func TestSpecular_SharpnessClipKeepsWeightsFinite(t *testing.T) {
	points, normals := testPoints()
	views, axes, _ := warpInputs(normals)
	sharp := []float64{1e9, 0, math.Inf(1)}
	est := NewEstimator(Unoccluded())
	vis, err := est.Specular(points, normals, views, axes, sharp, 8, false, core.NewSeededSampler(2))
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	for i, v := range vis {
		if math.IsNaN(v) || v < 0 || v > 1 {
			t.Errorf("visibility[%d] = %f", i, v)
		}
	}
}

func TestResetInfiniteWeights(t *testing.T) {
	row := []float64{0.5, math.Inf(1), 2, math.Inf(1)}
	resetInfiniteWeights(row)
	want := []float64{0, 1, 0, 1}
	for i := range row {
		if row[i] != want[i] {
			t.Errorf("row[%d] = %f, want %f", i, row[i], want[i])
		}
	}

	finite := []float64{0.5, 2}
	resetInfiniteWeights(finite)
	if finite[0] != 0.5 || finite[1] != 2 {
		t.Errorf("Finite row changed: %v", finite)
	}
}

func TestSpecularMultiView_MatchesSingleViewShape(t *testing.T) {
	points, normals := testPoints()
	views0, axes0, sharp0 := warpInputs(normals)
	views1 := make([]core.Vec3, len(points))
	axes1 := make([]core.Vec3, len(points))
	for i, n := range normals {
		views1[i] = core.NewVec3(-0.4, 0.3, 1).Normalize()
		axes1[i] = core.Reflect(views1[i], n).Normalize()
	}

	est := NewEstimator(smoothPredictor)
	vis, err := est.SpecularMultiView(points, normals,
		[][]core.Vec3{views0, views1}, [][]core.Vec3{axes0, axes1}, [][]float64{sharp0, sharp0},
		DefaultMultiViewSamples, core.NewSeededSampler(8))
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if len(vis) != 2 || len(vis[0]) != len(points) {
		t.Fatalf("Expected [2][%d] result, got [%d][%d]", len(points), len(vis), len(vis[0]))
	}
	for v := range vis {
		for i, val := range vis[v] {
			if val < 0 || val > 1 {
				t.Errorf("visibility[%d][%d] = %f out of [0, 1]", v, i, val)
			}
		}
	}

	_, err = est.SpecularMultiView(points, normals,
		[][]core.Vec3{views0, views1[:1]}, [][]core.Vec3{axes0, axes1}, [][]float64{sharp0, sharp0},
		4, core.NewSeededSampler(8))
	if !errors.Is(err, ErrShapeMismatch) {
		t.Errorf("Expected ErrShapeMismatch for ragged views, got %v", err)
	}
}

func TestTraced_SphereOverhead(t *testing.T) {
	points := []core.Vec3{core.NewVec3(0, 0, 0)}
	normals := []core.Vec3{core.NewVec3(0, 0, 1)}
	lobes := []sg.Lobe{sg.NewLobe(core.NewVec3(0.05, 0, 1), 10, core.Splat(1))}

	tests := []struct {
		name     string
		center   core.Vec3
		expected float64
	}{
		{"blocked", core.NewVec3(0, 0, 5), 0},
		{"clear", core.NewVec3(0, 0, -10), 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			bvh := geometry.NewBVH([]geometry.Shape{geometry.NewSphere(tt.center, 4, nil)})
			est := NewEstimator(NewTraced(bvh))
			vis, err := est.Diffuse(points, normals, lobes, DefaultDiffuseSamples, core.NewSeededSampler(42))
			if err != nil {
				t.Fatalf("Unexpected error: %v", err)
			}
			if math.Abs(vis[0][0]-tt.expected) > 1e-4 {
				t.Errorf("Expected visibility %f, got %f", tt.expected, vis[0][0])
			}
		})
	}
}
