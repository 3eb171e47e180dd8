package shading

import (
	"math"

	"github.com/df07/go-sg-renderer/pkg/core"
	"github.com/df07/go-sg-renderer/pkg/sg"
)

// diffuse integrates albedo/pi times the shadowed light rig against the
// clamped cosine. lightVis is nil when visibility is not applied.
func (e *Engine) diffuse(req Request, rigs [][]sg.Lobe, lightVis [][]float64) ([]core.Vec3, error) {
	out := make([]core.Vec3, len(req.Points))
	for i, p := range req.Points {
		lambert := p.Albedo.Multiply(1 / math.Pi)

		var sum core.Vec3
		for m, light := range rigs[i] {
			mu := light.Amplitude
			if lightVis != nil {
				mu = mu.Multiply(lightVis[i][m])
			}
			if !req.LinearDiffuse {
				mu = mu.MultiplyVec(lambert)
			}
			term := cosineIntegral(p.Normal, light.Axis, light.Sharpness, mu)
			if v, bad := firstNaN(term); bad {
				return nil, e.trap(core.NewNumericalError("diffuse", i, m, v))
			}
			sum = sum.Add(term)
		}
		out[i] = sum.ClampMin(0)

		if req.IndirectIntegral != nil {
			out[i] = req.IndirectIntegral[i]
			if !req.LinearDiffuse {
				out[i] = out[i].MultiplyVec(lambert)
			}
			if v, bad := firstNaN(out[i]); bad {
				return nil, e.trap(core.NewNumericalError("indirect diffuse", i, -1, v))
			}
		}
	}
	return out, nil
}

// cosineIntegral returns the hemisphere integral of SG(axis, lambda, mu)
// times the clamped cosine around normal, using the cosine-lobe fit minus
// its residual term
func cosineIntegral(normal, axis core.Vec3, lambda float64, mu core.Vec3) core.Vec3 {
	primeAxis, primeLambda, primeMu := sg.Product(normal, cosineLambda, core.Splat(cosineMu), axis, lambda, mu)
	fitted := primeMu.Multiply(sg.HemisphereIntegral(primeLambda, primeAxis.Dot(normal)))
	residual := mu.Multiply(cosineAlpha * sg.HemisphereIntegral(lambda, axis.Dot(normal)))
	return fitted.Subtract(residual)
}
