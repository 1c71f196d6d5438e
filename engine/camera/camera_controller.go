package camera

import "github.com/go-gl/mathgl/mgl32"

// CameraController drives a camera's eye position and look-at target. The orbit controller keeps
// the eye on a sphere around the target; panning translates eye and target together.
type CameraController interface {
	// Position returns the world-space eye position.
	Position() mgl32.Vec3

	// Target returns the world-space look-at point.
	Target() mgl32.Vec3

	// SetTarget moves the look-at point and re-derives the eye from the orbit coordinates.
	//
	// Parameters:
	//   - target: the new pivot point
	SetTarget(target mgl32.Vec3)

	// Orbit rotates the eye around the target.
	//
	// Parameters:
	//   - dAzimuth: horizontal angle delta in radians
	//   - dElevation: vertical angle delta in radians, clamped to the elevation bounds
	Orbit(dAzimuth, dElevation float32)

	// OrbitSpeed returns the per-call angle step applied by keyboard orbiting.
	OrbitSpeed() float32

	// Zoom moves the eye toward the target by delta × zoom speed, clamped to the radius bounds.
	Zoom(delta float32)

	// Radius returns the distance from the target to the eye.
	Radius() float32

	// SetRadius sets the orbit radius, clamped to the radius bounds.
	SetRadius(radius float32)

	// Azimuth returns the horizontal orbit angle in radians.
	Azimuth() float32

	// Elevation returns the vertical orbit angle in radians.
	Elevation() float32

	// Pan translates eye and target along the camera's right, up and forward axes.
	//
	// Parameters:
	//   - right, up, forward: distances along each local axis, scaled by the pan speed
	Pan(right, up, forward float32)
}
