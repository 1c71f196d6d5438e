package geometry

import (
	"math"

	"github.com/Carmen-Shannon/oxy-frame/common"
	"github.com/go-gl/mathgl/mgl32"
)

// BoundingSphere is a local-space sphere plus its world-space image under the last model matrix.
type BoundingSphere struct {
	localCenter mgl32.Vec3
	localRadius float32

	center mgl32.Vec3
	radius float32
}

var _ common.BoundingVolume = &BoundingSphere{}

// NewBoundingSphere creates a sphere whose world-space image starts equal to the local one.
func NewBoundingSphere(center mgl32.Vec3, radius float32) *BoundingSphere {
	return &BoundingSphere{
		localCenter: center,
		localRadius: radius,
		center:      center,
		radius:      radius,
	}
}

// BoundingSphereFromPositions fits a sphere around interleaved vertex positions. The sphere is
// centered on the positions' bounding box and reaches the farthest position.
//
// Parameters:
//   - vertices: interleaved vertex floats
//   - stride: floats per vertex
//   - offset: float offset of the xyz position inside each vertex
//
// Returns:
//   - *BoundingSphere: the fitted sphere, or a zero-radius sphere at the origin for no vertices
func BoundingSphereFromPositions(vertices []float32, stride, offset int) *BoundingSphere {
	if stride < 3 || len(vertices) < offset+3 {
		return NewBoundingSphere(mgl32.Vec3{}, 0)
	}

	minP := mgl32.Vec3{math.MaxFloat32, math.MaxFloat32, math.MaxFloat32}
	maxP := mgl32.Vec3{-math.MaxFloat32, -math.MaxFloat32, -math.MaxFloat32}
	for i := offset; i+3 <= len(vertices); i += stride {
		for axis := range 3 {
			minP[axis] = min(minP[axis], vertices[i+axis])
			maxP[axis] = max(maxP[axis], vertices[i+axis])
		}
	}
	center := minP.Add(maxP).Mul(0.5)

	var radius float32
	for i := offset; i+3 <= len(vertices); i += stride {
		p := mgl32.Vec3{vertices[i], vertices[i+1], vertices[i+2]}
		radius = max(radius, p.Sub(center).Len())
	}
	return NewBoundingSphere(center, radius)
}

// Update recomputes the world-space sphere. The radius is scaled by the largest axis scale of
// the model matrix so the sphere stays conservative under non-uniform scale.
//
// Parameters:
//   - model: the owning drawable's model matrix for this frame
func (s *BoundingSphere) Update(model mgl32.Mat4) {
	s.center = model.Mul4x1(s.localCenter.Vec4(1)).Vec3()
	scale := max(model.Col(0).Vec3().Len(), model.Col(1).Vec3().Len(), model.Col(2).Vec3().Len())
	s.radius = s.localRadius * scale
}

// Center returns the world-space center.
func (s *BoundingSphere) Center() mgl32.Vec3 {
	return s.center
}

// Radius returns the world-space radius.
func (s *BoundingSphere) Radius() float32 {
	return s.radius
}

// LocalCenter returns the local-space center.
func (s *BoundingSphere) LocalCenter() mgl32.Vec3 {
	return s.localCenter
}

// LocalRadius returns the local-space radius.
func (s *BoundingSphere) LocalRadius() float32 {
	return s.localRadius
}

// DistanceToCamera returns the distance from the camera eye to the world-space sphere surface,
// or 0 when the eye is inside the sphere.
//
// Parameters:
//   - camera: anything exposing the frame's camera position, normally a frame_state.FrameState
//
// Returns:
//   - float32: the distance
func (s *BoundingSphere) DistanceToCamera(camera interface{ CameraPosition() mgl32.Vec3 }) float32 {
	return max(0, camera.CameraPosition().Sub(s.center).Len()-s.radius)
}
