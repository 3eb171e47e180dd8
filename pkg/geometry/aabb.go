package geometry

import (
	"math"

	"github.com/df07/go-sg-renderer/pkg/core"
)

// AABB represents an axis-aligned bounding box
type AABB struct {
	Min core.Vec3 // Minimum corner
	Max core.Vec3 // Maximum corner
}

// NewAABB creates a new AABB from min and max points
func NewAABB(min, max core.Vec3) AABB {
	return AABB{Min: min, Max: max}
}

// NewAABBFromPoints creates the smallest AABB containing all points
func NewAABBFromPoints(points ...core.Vec3) AABB {
	box := NewAABB(points[0], points[0])
	for _, p := range points[1:] {
		box = box.Union(NewAABB(p, p))
	}
	return box
}

// Hit tests if a ray intersects with this AABB using the slab method
func (aabb AABB) Hit(ray core.Ray, tMin, tMax float64) bool {
	mins := [3]float64{aabb.Min.X, aabb.Min.Y, aabb.Min.Z}
	maxs := [3]float64{aabb.Max.X, aabb.Max.Y, aabb.Max.Z}
	origin := [3]float64{ray.Origin.X, ray.Origin.Y, ray.Origin.Z}
	direction := [3]float64{ray.Direction.X, ray.Direction.Y, ray.Direction.Z}

	for axis := 0; axis < 3; axis++ {
		// Parallel to this slab
		if math.Abs(direction[axis]) < 1e-8 {
			if origin[axis] < mins[axis] || origin[axis] > maxs[axis] {
				return false
			}
			continue
		}

		invDirection := 1.0 / direction[axis]
		t1 := (mins[axis] - origin[axis]) * invDirection
		t2 := (maxs[axis] - origin[axis]) * invDirection
		if t1 > t2 {
			t1, t2 = t2, t1
		}

		tMin = math.Max(tMin, t1)
		tMax = math.Min(tMax, t2)
		if tMin > tMax {
			return false
		}
	}

	return true
}

// Union returns an AABB that bounds both this AABB and another
func (aabb AABB) Union(other AABB) AABB {
	return AABB{
		Min: core.Vec3{
			X: math.Min(aabb.Min.X, other.Min.X),
			Y: math.Min(aabb.Min.Y, other.Min.Y),
			Z: math.Min(aabb.Min.Z, other.Min.Z),
		},
		Max: core.Vec3{
			X: math.Max(aabb.Max.X, other.Max.X),
			Y: math.Max(aabb.Max.Y, other.Max.Y),
			Z: math.Max(aabb.Max.Z, other.Max.Z),
		},
	}
}

// Center returns the center point of the AABB
func (aabb AABB) Center() core.Vec3 {
	return aabb.Min.Add(aabb.Max).Multiply(0.5)
}

// LongestAxis returns the axis (0=X, 1=Y, 2=Z) with the longest extent
func (aabb AABB) LongestAxis() int {
	size := aabb.Max.Subtract(aabb.Min)
	if size.X > size.Y && size.X > size.Z {
		return 0
	}
	if size.Y > size.Z {
		return 1
	}
	return 2
}
