package scene

import (
	"github.com/df07/go-sg-renderer/pkg/core"
	"github.com/df07/go-sg-renderer/pkg/geometry"
	"github.com/df07/go-sg-renderer/pkg/material"
	"github.com/df07/go-sg-renderer/pkg/renderer"
	"github.com/df07/go-sg-renderer/pkg/sg"
)

// NewProbeScene creates three material probe spheres on a checkered floor
func NewProbeScene(width, height int, lights []sg.Lobe) *Scene {
	cameraConfig := renderer.CameraConfig{
		Center:      core.NewVec3(0, -4, 1.6),
		LookAt:      core.NewVec3(0, 0, 0.6),
		Up:          core.NewVec3(0, 0, 1),
		Width:       width,
		AspectRatio: float64(width) / float64(height),
		VFov:        40.0,
	}

	floor := &material.Material{
		Albedo:              material.NewChecker(0.5, core.NewVec3(0.7, 0.7, 0.7), core.NewVec3(0.25, 0.25, 0.3)),
		Roughness:           0.8,
		SpecularReflectance: 0.02,
	}
	plastic := material.NewDielectric(core.NewVec3(0.8, 0.3, 0.2), 0.3, 0.04)
	gold := material.NewMetallic(core.NewVec3(0.9, 0.65, 0.25), 0.2, core.Splat(1), 0.04)
	rough := material.NewDielectric(core.NewVec3(0.2, 0.4, 0.7), 0.9, 0.02)

	s := &Scene{
		Name:         "probe",
		Camera:       renderer.NewCamera(cameraConfig),
		CameraConfig: cameraConfig,
		Lights:       lights,
		Shapes: []geometry.Shape{
			NewGroundQuad(core.NewVec3(0, 0, 0), 20, floor),
			geometry.NewSphere(core.NewVec3(0, 0, 0.6), 0.6, plastic),
			geometry.NewSphere(core.NewVec3(-1.4, 0.3, 0.5), 0.5, gold),
			geometry.NewSphere(core.NewVec3(1.4, 0.3, 0.5), 0.5, rough),
		},
	}
	s.Preprocess()
	return s
}

// NewOccluderScene creates a sphere under a floating panel so that the
// panel shadows both the sphere and the floor, next to a pillar and a
// leaning triangle
func NewOccluderScene(width, height int, lights []sg.Lobe) *Scene {
	cameraConfig := renderer.CameraConfig{
		Center:      core.NewVec3(3, -3, 2.5),
		LookAt:      core.NewVec3(0, 0, 0.5),
		Up:          core.NewVec3(0, 0, 1),
		Width:       width,
		AspectRatio: float64(width) / float64(height),
		VFov:        45.0,
	}

	floor := &material.Material{
		Albedo:              material.NewGradientTexture(16, 20, core.NewVec3(0.65, 0.6, 0.5), core.NewVec3(0.35, 0.4, 0.5)),
		Roughness:           0.7,
		SpecularReflectance: 0.02,
	}
	panel := material.NewDielectric(core.NewVec3(0.3, 0.3, 0.3), 0.9, 0.02)
	ball := material.NewDielectric(core.NewVec3(0.75, 0.75, 0.75), 0.4, 0.04)
	pillar := material.NewMetallic(core.NewVec3(0.95, 0.64, 0.54), 0.35, core.Splat(1), 0.04)

	s := &Scene{
		Name:         "occluder",
		Camera:       renderer.NewCamera(cameraConfig),
		CameraConfig: cameraConfig,
		Lights:       lights,
		Shapes: []geometry.Shape{
			NewGroundQuad(core.NewVec3(0, 0, 0), 20, floor),
			geometry.NewQuad(core.NewVec3(-1, -1, 2), core.NewVec3(2, 0, 0), core.NewVec3(0, 2, 0), panel),
			geometry.NewSphere(core.NewVec3(0, 0, 0.5), 0.5, ball),
			geometry.NewBox(core.NewVec3(1.8, -0.4, 0.6), core.NewVec3(0.3, 0.3, 0.6), 0.4, pillar),
			geometry.NewTriangle(core.NewVec3(-2.2, -1, 0), core.NewVec3(-2.2, 1, 0), core.NewVec3(-1.4, 0, 1.4), panel),
		},
	}
	s.Preprocess()
	return s
}
