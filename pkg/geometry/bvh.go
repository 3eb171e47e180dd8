package geometry

import (
	"sort"

	"github.com/df07/go-sg-renderer/pkg/core"
)

// BVHNode represents a node in the Bounding Volume Hierarchy
type BVHNode struct {
	BoundingBox AABB
	Left        *BVHNode
	Right       *BVHNode
	Shapes      []Shape // Shapes for leaf nodes (nil for internal nodes)
}

// BVH represents a Bounding Volume Hierarchy for fast ray-object intersection
type BVH struct {
	Root *BVHNode
}

// Leaf threshold: if we have this many or fewer shapes, store them in a leaf node
const leafThreshold = 8

// NewBVH constructs a BVH from a slice of shapes
func NewBVH(shapes []Shape) *BVH {
	if len(shapes) == 0 {
		return &BVH{}
	}

	// Copy so sorting never reorders the caller's slice
	shapesCopy := make([]Shape, len(shapes))
	copy(shapesCopy, shapes)
	return &BVH{Root: buildBVH(shapesCopy)}
}

// buildBVH recursively builds the BVH with median splits along the longest axis
func buildBVH(shapes []Shape) *BVHNode {
	boundingBox := shapes[0].BoundingBox()
	for _, shape := range shapes[1:] {
		boundingBox = boundingBox.Union(shape.BoundingBox())
	}

	if len(shapes) <= leafThreshold {
		return &BVHNode{BoundingBox: boundingBox, Shapes: shapes}
	}

	axis := boundingBox.LongestAxis()
	sort.Slice(shapes, func(i, j int) bool {
		return axisValue(shapes[i].BoundingBox().Center(), axis) < axisValue(shapes[j].BoundingBox().Center(), axis)
	})

	mid := len(shapes) / 2
	return &BVHNode{
		BoundingBox: boundingBox,
		Left:        buildBVH(shapes[:mid]),
		Right:       buildBVH(shapes[mid:]),
	}
}

func axisValue(v core.Vec3, axis int) float64 {
	switch axis {
	case 0:
		return v.X
	case 1:
		return v.Y
	default:
		return v.Z
	}
}

// Hit returns the closest intersection along the ray
func (bvh *BVH) Hit(ray core.Ray, tMin, tMax float64) (*HitRecord, bool) {
	if bvh.Root == nil {
		return nil, false
	}
	return hitNode(bvh.Root, ray, tMin, tMax)
}

func hitNode(node *BVHNode, ray core.Ray, tMin, tMax float64) (*HitRecord, bool) {
	if !node.BoundingBox.Hit(ray, tMin, tMax) {
		return nil, false
	}

	var closestHit *HitRecord
	closestSoFar := tMax

	if node.Shapes != nil {
		for _, shape := range node.Shapes {
			if hit, isHit := shape.Hit(ray, tMin, closestSoFar); isHit {
				closestSoFar = hit.T
				closestHit = hit
			}
		}
		return closestHit, closestHit != nil
	}

	for _, child := range []*BVHNode{node.Left, node.Right} {
		if child == nil {
			continue
		}
		if hit, isHit := hitNode(child, ray, tMin, closestSoFar); isHit {
			closestSoFar = hit.T
			closestHit = hit
		}
	}
	return closestHit, closestHit != nil
}

// Occluded reports whether anything intersects the ray within (tMin, tMax).
// It stops at the first intersection found.
func (bvh *BVH) Occluded(ray core.Ray, tMin, tMax float64) bool {
	if bvh.Root == nil {
		return false
	}
	return occludedNode(bvh.Root, ray, tMin, tMax)
}

func occludedNode(node *BVHNode, ray core.Ray, tMin, tMax float64) bool {
	if !node.BoundingBox.Hit(ray, tMin, tMax) {
		return false
	}
	if node.Shapes != nil {
		for _, shape := range node.Shapes {
			if _, isHit := shape.Hit(ray, tMin, tMax); isHit {
				return true
			}
		}
		return false
	}
	return (node.Left != nil && occludedNode(node.Left, ray, tMin, tMax)) ||
		(node.Right != nil && occludedNode(node.Right, ray, tMin, tMax))
}
