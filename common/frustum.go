package common

import (
	"math"

	"github.com/go-gl/mathgl/mgl32"
)

// Plane represents a plane in 3D space using the equation: ax + by + cz + d = 0
// where (a, b, c) is the normal and d is the distance from origin.
type Plane struct {
	Normal   [3]float32
	Distance float32
}

// SignedDistance returns the signed distance from p to the plane.
// Positive values lie on the side the normal points to.
func (p Plane) SignedDistance(point mgl32.Vec3) float32 {
	return p.Normal[0]*point[0] + p.Normal[1]*point[1] + p.Normal[2]*point[2] + p.Distance
}

// Frustum represents the six planes of a view frustum for culling.
// Planes are oriented so that positive half-space is inside the frustum.
type Frustum struct {
	Planes [6]Plane // Left, Right, Bottom, Top, Near, Far
}

// FrustumPlane indices for clarity
const (
	FrustumLeft   = 0
	FrustumRight  = 1
	FrustumBottom = 2
	FrustumTop    = 3
	FrustumNear   = 4
	FrustumFar    = 5
)

// Intersect classifies a bounding volume against a culling volume.
type Intersect int

const (
	// IntersectOutside means the volume lies entirely outside at least one plane.
	IntersectOutside Intersect = iota
	// IntersectIntersecting means the volume straddles at least one plane.
	IntersectIntersecting
	// IntersectInside means the volume lies entirely inside every plane.
	IntersectInside
)

func (i Intersect) String() string {
	switch i {
	case IntersectOutside:
		return "outside"
	case IntersectIntersecting:
		return "intersecting"
	case IntersectInside:
		return "inside"
	default:
		return "unknown"
	}
}

// BoundingVolume is a world-space sphere that can be tested against a Frustum.
type BoundingVolume interface {
	// Center returns the world-space center of the volume.
	Center() mgl32.Vec3

	// Radius returns the world-space radius of the volume.
	Radius() float32
}

// ExtractFrustumFromMatrix extracts frustum planes from a view-projection matrix.
// The matrix should be the combined Projection * View matrix built with Perspective, so clip-space
// depth runs from 0 to w (WebGPU convention) and the near plane is row 2 alone.
// Uses the Gribb/Hartmann method for plane extraction.
//
// Reference: https://www8.cs.umu.se/kurser/5DV051/HT12/lab/plane_extraction.pdf
//
// Parameters:
//   - viewProj: the view-projection matrix (column-major)
//
// Returns:
//   - Frustum: the extracted frustum with normalized planes
func ExtractFrustumFromMatrix(viewProj mgl32.Mat4) Frustum {
	var f Frustum

	// For column-major M, row i is (M[i], M[4+i], M[8+i], M[12+i]).
	row := func(i int) [4]float32 {
		return [4]float32{viewProj[i], viewProj[4+i], viewProj[8+i], viewProj[12+i]}
	}
	r0, r1, r2, r3 := row(0), row(1), row(2), row(3)

	set := func(index int, a [4]float32, sign float32, b [4]float32) {
		p := &f.Planes[index]
		p.Normal = [3]float32{a[0] + sign*b[0], a[1] + sign*b[1], a[2] + sign*b[2]}
		p.Distance = a[3] + sign*b[3]
	}
	set(FrustumLeft, r3, 1, r0)
	set(FrustumRight, r3, -1, r0)
	set(FrustumBottom, r3, 1, r1)
	set(FrustumTop, r3, -1, r1)
	set(FrustumNear, r2, 0, r2)
	set(FrustumFar, r3, -1, r2)

	for i := range f.Planes {
		f.normalizePlane(i)
	}

	return f
}

// ComputeVisibility classifies a sphere against the frustum. A sphere completely behind any
// plane is outside; one crossing any plane is intersecting; otherwise it is inside.
//
// Parameters:
//   - volume: the world-space bounding sphere
//
// Returns:
//   - Intersect: the classification
func (f Frustum) ComputeVisibility(volume BoundingVolume) Intersect {
	center, radius := volume.Center(), volume.Radius()
	result := IntersectInside
	for _, p := range f.Planes {
		d := p.SignedDistance(center)
		if d < -radius {
			return IntersectOutside
		}
		if d < radius {
			result = IntersectIntersecting
		}
	}
	return result
}

// normalizePlane normalizes a frustum plane so that the normal has unit length.
func (f *Frustum) normalizePlane(index int) {
	p := &f.Planes[index]
	length := float32(math.Sqrt(float64(
		p.Normal[0]*p.Normal[0] +
			p.Normal[1]*p.Normal[1] +
			p.Normal[2]*p.Normal[2],
	)))

	if length > 0 {
		invLen := 1.0 / length
		p.Normal[0] *= invLen
		p.Normal[1] *= invLen
		p.Normal[2] *= invLen
		p.Distance *= invLen
	}
}
