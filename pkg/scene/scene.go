package scene

import (
	"fmt"
	"sort"

	"github.com/df07/go-sg-renderer/pkg/core"
	"github.com/df07/go-sg-renderer/pkg/geometry"
	"github.com/df07/go-sg-renderer/pkg/material"
	"github.com/df07/go-sg-renderer/pkg/renderer"
	"github.com/df07/go-sg-renderer/pkg/sg"
)

// Scene contains all the elements needed for rendering
type Scene struct {
	Name         string
	Camera       *renderer.Camera
	CameraConfig renderer.CameraConfig
	Shapes       []geometry.Shape // Objects in the scene
	Lights       []sg.Lobe        // Distant SG light rig
	BVH          *geometry.BVH    // Acceleration structure for ray-object intersection
}

// Builder creates a scene for the given image size and light rig
type Builder func(width, height int, lights []sg.Lobe) *Scene

var builtinScenes = map[string]Builder{
	"probe":    NewProbeScene,
	"occluder": NewOccluderScene,
}

// New builds a registered scene by name
func New(name string, width, height int, lights []sg.Lobe) (*Scene, error) {
	build, ok := builtinScenes[name]
	if !ok {
		return nil, fmt.Errorf("unknown scene %q, available: %v", name, Names())
	}
	if width <= 0 || height <= 0 {
		return nil, fmt.Errorf("invalid image size %dx%d", width, height)
	}
	return build(width, height, lights), nil
}

// Names lists the registered scenes in sorted order
func Names() []string {
	names := make([]string, 0, len(builtinScenes))
	for name := range builtinScenes {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// NewGroundQuad creates a large horizontal quad centered at center with
// normal pointing up (0,0,1)
func NewGroundQuad(center core.Vec3, size float64, mat *material.Material) *geometry.Quad {
	corner := core.NewVec3(center.X-size/2, center.Y-size/2, center.Z)
	// u x v = (size,0,0) x (0,size,0) = (0,0,size^2)
	u := core.NewVec3(size, 0, 0)
	v := core.NewVec3(0, size, 0)
	return geometry.NewQuad(corner, u, v, mat)
}

// Preprocess builds the acceleration structure
func (s *Scene) Preprocess() {
	s.BVH = geometry.NewBVH(s.Shapes)
}

// GetCamera returns the scene camera
func (s *Scene) GetCamera() *renderer.Camera {
	return s.Camera
}

// GetBVH returns the scene geometry
func (s *Scene) GetBVH() *geometry.BVH {
	return s.BVH
}

// GetLights returns the light rig
func (s *Scene) GetLights() []sg.Lobe {
	return s.Lights
}

// GetPrimitiveCount returns the number of shapes in the scene
func (s *Scene) GetPrimitiveCount() int {
	return len(s.Shapes)
}
