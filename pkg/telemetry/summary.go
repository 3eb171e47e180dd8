package telemetry

import (
	"log/slog"

	"gonum.org/v1/gonum/stat"

	"github.com/df07/go-sg-renderer/pkg/core"
	"github.com/df07/go-sg-renderer/pkg/sg"
)

// ShadingSummary aggregates a batch of shading outputs by luminance.
type ShadingSummary struct {
	Points       int
	DiffuseMean  float64
	DiffuseStd   float64
	SpecularMean float64
	SpecularStd  float64
	ShadowMean   float64
	IndirectMean float64
	Supervise    float64
}

// Summarize computes luminance statistics. shadow and indirect may be nil.
func Summarize(diffuse, specular, shadow, indirect []core.Vec3, supervise float64) ShadingSummary {
	s := ShadingSummary{Points: len(diffuse), Supervise: supervise}
	if len(diffuse) == 0 {
		return s
	}
	s.DiffuseMean, s.DiffuseStd = stat.MeanStdDev(luminance(diffuse), nil)
	s.SpecularMean, s.SpecularStd = stat.MeanStdDev(luminance(specular), nil)
	if len(shadow) > 0 {
		s.ShadowMean = stat.Mean(luminance(shadow), nil)
	}
	if len(indirect) > 0 {
		s.IndirectMean = stat.Mean(luminance(indirect), nil)
	}
	return s
}

func luminance(values []core.Vec3) []float64 {
	out := make([]float64, len(values))
	for i, v := range values {
		out[i] = v.Luminance()
	}
	return out
}

// LogValue implements slog.LogValuer for structured logging.
func (s ShadingSummary) LogValue() slog.Value {
	return slog.GroupValue(
		slog.Int("points", s.Points),
		slog.Float64("diffuse_mean", s.DiffuseMean),
		slog.Float64("diffuse_std", s.DiffuseStd),
		slog.Float64("specular_mean", s.SpecularMean),
		slog.Float64("specular_std", s.SpecularStd),
		slog.Float64("shadow_mean", s.ShadowMean),
		slog.Float64("indirect_mean", s.IndirectMean),
		slog.Float64("supervise", s.Supervise),
	)
}

// RigSummary describes a light rig for logs.
type RigSummary struct {
	Lobes        int
	MeanAxis     core.Vec3
	WhitePenalty float64
}

// SummarizeRig reports the dominant light direction and colour neutrality
func SummarizeRig(lobes []sg.Lobe) RigSummary {
	return RigSummary{
		Lobes:        len(lobes),
		MeanAxis:     sg.MeanAxis(lobes),
		WhitePenalty: sg.WhitePenalty(lobes),
	}
}

// LogValue implements slog.LogValuer for structured logging.
func (r RigSummary) LogValue() slog.Value {
	return slog.GroupValue(
		slog.Int("lobes", r.Lobes),
		slog.Float64("mean_axis_x", r.MeanAxis.X),
		slog.Float64("mean_axis_y", r.MeanAxis.Y),
		slog.Float64("mean_axis_z", r.MeanAxis.Z),
		slog.Float64("white_penalty", r.WhitePenalty),
	)
}
