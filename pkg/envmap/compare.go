package envmap

import (
	"gonum.org/v1/gonum/stat"

	"github.com/df07/go-sg-renderer/pkg/sg"
)

// FitError returns the mean absolute per-channel difference between ref and
// the rig rendered on the same grid
func FitError(ref *Image, lobes []sg.Lobe) (float64, error) {
	fit, err := Compute(lobes, ref.Height, ref.Width, ref.UpperHemisphere())
	if err != nil {
		return 0, err
	}
	diffs := make([]float64, 0, 3*len(ref.Pixels))
	for i, p := range ref.Pixels {
		d := p.Subtract(fit.Pixels[i]).Abs()
		diffs = append(diffs, d.X, d.Y, d.Z)
	}
	return stat.Mean(diffs, nil), nil
}
