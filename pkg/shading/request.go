package shading

import (
	"fmt"

	"github.com/df07/go-sg-renderer/pkg/core"
	"github.com/df07/go-sg-renderer/pkg/sg"
)

// SurfacePoint is the per-point geometry and material record
type SurfacePoint struct {
	Position            core.Vec3
	Normal              core.Vec3  // Unit surface normal
	ViewDir             core.Vec3  // Unit direction from the point toward the camera
	Albedo              core.Vec3  // Diffuse albedo in [0, 1]
	Roughness           float64    // > 0
	Metallic            *core.Vec3 // nil for the dielectric workflow
	SpecularReflectance float64    // Reflectance at normal incidence
}

// PrefitMode selects how a caller-supplied visibility estimate is
// supervised and whether it is used for shading
type PrefitMode string

const (
	PrefitNone    PrefitMode = ""
	PrefitWarmup  PrefitMode = "warmup"
	PrefitProject PrefitMode = "project"
)

// Request is one batched shading call
type Request struct {
	Points []SurfacePoint

	// Lights is the light rig shared by all points. PointLights, when set,
	// gives every point its own rig and overrides Lights; all rigs must
	// have the same number of lobes.
	Lights      []sg.Lobe
	PointLights [][]sg.Lobe

	// DiffuseVisibility is an optional caller estimate of the diffuse
	// visibility, indexed [point][lobe]. It is compared against the
	// sampled visibility to produce the supervision penalty.
	DiffuseVisibility [][]float64

	// IndirectIntegral replaces the diffuse term with a precomputed
	// irradiance per point when set.
	IndirectIntegral []core.Vec3

	LinearDiffuse     bool // Skip the albedo/pi factor in the diffuse term
	ComputeVisibility bool // Sample diffuse visibility and use the visible class for specular
	Prefit            PrefitMode

	DiffuseSamples  int // 0 selects the default for the request
	SpecularSamples int
}

// numLobes is the lobe count shared by every rig
func (r *Request) numLobes() int {
	if r.PointLights != nil {
		if len(r.PointLights) == 0 {
			return 0
		}
		return len(r.PointLights[0])
	}
	return len(r.Lights)
}

func (r *Request) validate() error {
	n := len(r.Points)
	m := r.numLobes()
	if r.PointLights != nil {
		if len(r.PointLights) != n {
			return fmt.Errorf("%w: %d light rigs for %d points", ErrShapeMismatch, len(r.PointLights), n)
		}
		for i, rig := range r.PointLights {
			if len(rig) != m {
				return fmt.Errorf("%w: point %d has %d lobes, expected %d", ErrShapeMismatch, i, len(rig), m)
			}
		}
	}
	if r.DiffuseVisibility != nil {
		if len(r.DiffuseVisibility) != n {
			return fmt.Errorf("%w: %d visibility rows for %d points", ErrShapeMismatch, len(r.DiffuseVisibility), n)
		}
		for i, row := range r.DiffuseVisibility {
			if len(row) != m {
				return fmt.Errorf("%w: point %d has %d visibility values, expected %d", ErrShapeMismatch, i, len(row), m)
			}
		}
	}
	if r.IndirectIntegral != nil && len(r.IndirectIntegral) != n {
		return fmt.Errorf("%w: %d indirect integrals for %d points", ErrShapeMismatch, len(r.IndirectIntegral), n)
	}
	switch r.Prefit {
	case PrefitNone, PrefitWarmup, PrefitProject:
	default:
		return fmt.Errorf("shading: unknown prefit mode %q", r.Prefit)
	}
	for i, p := range r.Points {
		if !(p.Roughness > 0) {
			return fmt.Errorf("shading: point %d has non-positive roughness %f", i, p.Roughness)
		}
	}
	return nil
}

// canonicalRigs normalizes every rig once per call
func (r *Request) canonicalRigs() [][]sg.Lobe {
	if r.PointLights == nil {
		shared := sg.CanonicalSet(r.Lights)
		rigs := make([][]sg.Lobe, len(r.Points))
		for i := range rigs {
			rigs[i] = shared
		}
		return rigs
	}
	rigs := make([][]sg.Lobe, len(r.PointLights))
	for i, rig := range r.PointLights {
		rigs[i] = sg.CanonicalSet(rig)
	}
	return rigs
}
