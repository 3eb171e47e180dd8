package geometry

import (
	"math"

	"github.com/df07/go-sg-renderer/pkg/core"
	"github.com/df07/go-sg-renderer/pkg/material"
)

// Box represents a rectangular box made up of 6 quads, optionally turned
// about the world up axis
type Box struct {
	Center   core.Vec3          // Center point of the box
	Size     core.Vec3          // Half-extents along each local axis
	Yaw      float64            // Rotation about +z in radians
	Material *material.Material // Material for all faces
	faces    [6]*Quad
	bbox     AABB
}

// NewBox creates a box; size holds half-extents, so (1,1,1) is a 2x2x2 box
func NewBox(center, size core.Vec3, yaw float64, mat *material.Material) *Box {
	b := &Box{Center: center, Size: size, Yaw: yaw, Material: mat}
	b.generateFaces()
	return b
}

// NewAxisAlignedBox creates a box with no rotation
func NewAxisAlignedBox(center, size core.Vec3, mat *material.Material) *Box {
	return NewBox(center, size, 0, mat)
}

// generateFaces builds outward-facing quads from the 8 transformed corners
func (b *Box) generateFaces() {
	sin, cos := math.Sincos(b.Yaw)
	var corners [8]core.Vec3
	for i := range corners {
		// bit 0 = x, bit 1 = y, bit 2 = z
		local := core.NewVec3(
			b.Size.X*float64(2*(i&1)-1),
			b.Size.Y*float64((i&2)-1),
			b.Size.Z*float64((i&4)/2-1),
		)
		corners[i] = core.NewVec3(
			cos*local.X-sin*local.Y,
			sin*local.X+cos*local.Y,
			local.Z,
		).Add(b.Center)
	}

	face := func(corner, uEnd, vEnd int) *Quad {
		return NewQuad(corners[corner],
			corners[uEnd].Subtract(corners[corner]),
			corners[vEnd].Subtract(corners[corner]),
			b.Material)
	}
	b.faces = [6]*Quad{
		face(4, 5, 6), // Top (+z)
		face(0, 2, 1), // Bottom (-z)
		face(1, 3, 5), // Right (+x)
		face(0, 4, 2), // Left (-x)
		face(2, 6, 3), // Back (+y)
		face(0, 1, 4), // Front (-y)
	}

	b.bbox = NewAABBFromPoints(corners[:]...)
}

// Hit tests if a ray intersects with any face of the box
func (b *Box) Hit(ray core.Ray, tMin, tMax float64) (*HitRecord, bool) {
	var closestHit *HitRecord
	closestT := tMax

	for _, face := range b.faces {
		if hit, isHit := face.Hit(ray, tMin, closestT); isHit {
			closestT = hit.T
			closestHit = hit
		}
	}

	return closestHit, closestHit != nil
}

// BoundingBox returns the axis-aligned bounding box for this box
func (b *Box) BoundingBox() AABB {
	return b.bbox
}
