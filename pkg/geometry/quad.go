package geometry

import (
	"math"

	"github.com/df07/go-sg-renderer/pkg/core"
	"github.com/df07/go-sg-renderer/pkg/material"
)

// Quad represents a parallelogram defined by a corner and two edge vectors
type Quad struct {
	Corner   core.Vec3
	U        core.Vec3
	V        core.Vec3
	Normal   core.Vec3
	Material *material.Material
	d        float64   // Plane constant: normal . x = d
	w        core.Vec3 // n / (n . (u x v)) for planar coordinates
}

// NewQuad creates a new quad from a corner point and two edge vectors
func NewQuad(corner, u, v core.Vec3, mat *material.Material) *Quad {
	cross := u.Cross(v)
	normal := cross.Multiply(1.0 / cross.Length())
	return &Quad{
		Corner:   corner,
		U:        u,
		V:        v,
		Normal:   normal,
		Material: mat,
		d:        normal.Dot(corner),
		w:        cross.Multiply(1.0 / cross.Dot(cross)),
	}
}

// Hit tests if a ray intersects with the quad
func (q *Quad) Hit(ray core.Ray, tMin, tMax float64) (*HitRecord, bool) {
	denominator := ray.Direction.Dot(q.Normal)
	if math.Abs(denominator) < 1e-8 {
		return nil, false
	}

	t := (q.d - ray.Origin.Dot(q.Normal)) / denominator
	if t < tMin || t > tMax {
		return nil, false
	}

	hitPoint := ray.At(t)
	planar := hitPoint.Subtract(q.Corner)
	alpha := q.w.Dot(planar.Cross(q.V))
	beta := q.w.Dot(q.U.Cross(planar))
	if alpha < 0 || alpha > 1 || beta < 0 || beta > 1 {
		return nil, false
	}

	hit := &HitRecord{T: t, Point: hitPoint, Material: q.Material}
	hit.SetFaceNormal(ray, q.Normal)
	return hit, true
}

// BoundingBox returns the bounds of the quad, padded so axis-aligned quads
// keep a non-zero thickness
func (q *Quad) BoundingBox() AABB {
	box := NewAABBFromPoints(
		q.Corner,
		q.Corner.Add(q.U),
		q.Corner.Add(q.V),
		q.Corner.Add(q.U).Add(q.V),
	)
	pad := core.Splat(1e-4)
	return NewAABB(box.Min.Subtract(pad), box.Max.Add(pad))
}
