package shading

import (
	"fmt"

	"github.com/df07/go-sg-renderer/pkg/core"
	"github.com/df07/go-sg-renderer/pkg/sg"
)

// IndirectLighting is the secondary light set of a two-pass render.
// Visibility is assumed to be baked into the lights and the integral.
type IndirectLighting struct {
	Lights   [][]sg.Lobe // Per-point rigs
	Integral []core.Vec3 // Optional precomputed irradiance, replaces the indirect diffuse term
}

// FullResult is a direct render plus the indirect contribution
type FullResult struct {
	Result
	IndirectRGB      []core.Vec3
	IndirectDiffuse  []core.Vec3
	IndirectSpecular []core.Vec3
}

// RenderAll shades the request with visibility, then shades the indirect
// rig without sampled diffuse visibility and with the occluded class
// masking specular. Indirect outputs are zero when indirect is nil.
func (e *Engine) RenderAll(req Request, indirect *IndirectLighting, rng core.Sampler) (*FullResult, error) {
	req.ComputeVisibility = true
	direct, err := e.Render(req, rng)
	if err != nil {
		return nil, fmt.Errorf("direct pass: %w", err)
	}

	n := len(req.Points)
	full := &FullResult{
		Result:           *direct,
		IndirectRGB:      make([]core.Vec3, n),
		IndirectDiffuse:  make([]core.Vec3, n),
		IndirectSpecular: make([]core.Vec3, n),
	}
	if indirect == nil || indirect.Lights == nil {
		return full, nil
	}

	indirReq := req
	indirReq.Lights = nil
	indirReq.PointLights = indirect.Lights
	indirReq.IndirectIntegral = indirect.Integral
	indirReq.DiffuseVisibility = nil
	indirReq.ComputeVisibility = false
	indir, err := e.Render(indirReq, rng)
	if err != nil {
		return nil, fmt.Errorf("indirect pass: %w", err)
	}
	full.IndirectRGB = indir.RGB
	full.IndirectDiffuse = indir.Diffuse
	full.IndirectSpecular = indir.Specular
	return full, nil
}
