package material

import (
	"github.com/df07/go-sg-renderer/pkg/core"
)

// Material describes the SG-renderable surface parameters of a shape
type Material struct {
	Albedo              ColorSource // Diffuse albedo, channels in [0, 1]
	Roughness           float64     // GGX-style roughness, > 0
	Metallic            *core.Vec3  // Optional metallic factor per channel, nil for dielectric workflow
	SpecularReflectance float64     // Base reflectance at normal incidence
}

// Surface is a material evaluated at one point
type Surface struct {
	Albedo              core.Vec3
	Roughness           float64
	Metallic            *core.Vec3
	SpecularReflectance float64
}

// minRoughness keeps the inverse-roughness^4 sharpness finite
const minRoughness = 1e-3

// NewDielectric creates a non-metallic material with a solid albedo
func NewDielectric(albedo core.Vec3, roughness, specularReflectance float64) *Material {
	return &Material{
		Albedo:              NewSolidColor(albedo),
		Roughness:           roughness,
		SpecularReflectance: specularReflectance,
	}
}

// NewMetallic creates a metallic-workflow material
func NewMetallic(albedo core.Vec3, roughness float64, metallic core.Vec3, specularReflectance float64) *Material {
	m := metallic.Clamp(0, 1)
	return &Material{
		Albedo:              NewSolidColor(albedo),
		Roughness:           roughness,
		Metallic:            &m,
		SpecularReflectance: specularReflectance,
	}
}

// Evaluate returns the surface parameters at point, with albedo clamped to
// [0, 1] and roughness kept positive
func (m *Material) Evaluate(point core.Vec3) Surface {
	albedo := core.Splat(0.5)
	if m.Albedo != nil {
		albedo = m.Albedo.Evaluate(point)
	}
	return Surface{
		Albedo:              albedo.Clamp(0, 1),
		Roughness:           max(m.Roughness, minRoughness),
		Metallic:            m.Metallic,
		SpecularReflectance: m.SpecularReflectance,
	}
}
