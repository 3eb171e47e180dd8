package geometry

import (
	"github.com/df07/go-sg-renderer/pkg/core"
	"github.com/df07/go-sg-renderer/pkg/material"
)

// Triangle represents a single triangle defined by three vertices.
// The front face is the side where v0, v1, v2 wind counter-clockwise.
type Triangle struct {
	V0, V1, V2 core.Vec3
	Material   *material.Material
	normal     core.Vec3 // Cached unit normal
	bbox       AABB      // Cached bounding box
}

// NewTriangle creates a new triangle from three vertices
func NewTriangle(v0, v1, v2 core.Vec3, mat *material.Material) *Triangle {
	edge1 := v1.Subtract(v0)
	edge2 := v2.Subtract(v0)
	pad := core.Splat(1e-4)
	box := NewAABBFromPoints(v0, v1, v2)
	return &Triangle{
		V0:       v0,
		V1:       v1,
		V2:       v2,
		Material: mat,
		normal:   edge1.Cross(edge2).Normalize(),
		bbox:     NewAABB(box.Min.Subtract(pad), box.Max.Add(pad)),
	}
}

// Hit tests if a ray intersects with the triangle using the Moller-Trumbore algorithm
func (t *Triangle) Hit(ray core.Ray, tMin, tMax float64) (*HitRecord, bool) {
	const epsilon = 1e-8

	edge1 := t.V1.Subtract(t.V0)
	edge2 := t.V2.Subtract(t.V0)

	h := ray.Direction.Cross(edge2)
	a := edge1.Dot(h)
	// Ray parallel to the triangle plane
	if a > -epsilon && a < epsilon {
		return nil, false
	}

	f := 1.0 / a
	s := ray.Origin.Subtract(t.V0)
	u := f * s.Dot(h)
	if u < 0.0 || u > 1.0 {
		return nil, false
	}

	q := s.Cross(edge1)
	v := f * ray.Direction.Dot(q)
	if v < 0.0 || u+v > 1.0 {
		return nil, false
	}

	tHit := f * edge2.Dot(q)
	if tHit < tMin || tHit > tMax {
		return nil, false
	}

	hit := &HitRecord{T: tHit, Point: ray.At(tHit), Material: t.Material}
	hit.SetFaceNormal(ray, t.normal)
	return hit, true
}

// BoundingBox returns the axis-aligned bounding box for this triangle
func (t *Triangle) BoundingBox() AABB {
	return t.bbox
}

// GetNormal returns the triangle's normal vector
func (t *Triangle) GetNormal() core.Vec3 {
	return t.normal
}
