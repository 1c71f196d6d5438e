package camera

import (
	"math"
	"testing"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOrbitControllerPosition(t *testing.T) {
	cc := NewOrbitController(WithRadius(5), WithElevation(0), WithAzimuth(0), WithTarget(mgl32.Vec3{1, 0, 0}))
	assert.True(t, cc.Position().ApproxEqualThreshold(mgl32.Vec3{1, 0, 5}, 1e-5), "got %v", cc.Position())

	cc.Orbit(float32(math.Pi/2), 0)
	assert.True(t, cc.Position().ApproxEqualThreshold(mgl32.Vec3{6, 0, 0}, 1e-5), "got %v", cc.Position())
}

func TestOrbitControllerClamps(t *testing.T) {
	cc := NewOrbitController(WithRadius(5), WithRadiusBounds(2, 8), WithElevationBounds(-0.5, 0.5))

	cc.Zoom(100)
	assert.Equal(t, float32(2), cc.Radius())
	cc.SetRadius(50)
	assert.Equal(t, float32(8), cc.Radius())

	cc.Orbit(0, 10)
	assert.Equal(t, float32(0.5), cc.Elevation())
}

func TestOrbitControllerPanMovesTargetAndEye(t *testing.T) {
	cc := NewOrbitController(WithRadius(5), WithElevation(0))
	before := cc.Position().Sub(cc.Target())

	cc.Pan(1, 0, 0)
	assert.True(t, cc.Target().ApproxEqualThreshold(mgl32.Vec3{1, 0, 0}, 1e-5), "got %v", cc.Target())
	assert.True(t, cc.Position().Sub(cc.Target()).ApproxEqualThreshold(before, 1e-5))
}

func TestCameraMatrices(t *testing.T) {
	cc := NewOrbitController(WithRadius(10), WithElevation(0))
	cam := NewCamera(WithController(cc), WithAspect(2), WithClipPlanes(0.1, 50))

	assert.True(t, cam.Position().ApproxEqualThreshold(mgl32.Vec3{0, 0, 10}, 1e-5))

	// The target projects to the center of the screen at mid-depth range.
	clip := cam.ViewProjectionMatrix().Mul4x1(mgl32.Vec4{0, 0, 0, 1})
	ndc := clip.Vec3().Mul(1 / clip.W())
	assert.InDelta(t, 0, ndc.X(), 1e-5)
	assert.InDelta(t, 0, ndc.Y(), 1e-5)
	assert.Greater(t, ndc.Z(), float32(0))
	assert.Less(t, ndc.Z(), float32(1))

	cc.Orbit(0.3, 0.2)
	cam.Update()
	assert.Equal(t, cc.Position(), cam.Position())
}

func TestCameraUniformMarshal(t *testing.T) {
	cam := NewCamera(WithController(NewOrbitController()))
	u := cam.Uniform()
	data := u.Marshal()
	require.Len(t, data, GPUCameraUniformSize)
	assert.Equal(t, cam.ViewProjectionMatrix(), u.ViewProj)
}

func TestSetAspectIgnoresNonPositive(t *testing.T) {
	cam := NewCamera()
	cam.SetAspect(0)
	assert.Equal(t, float32(1), cam.Aspect())
	cam.SetAspect(1.5)
	assert.Equal(t, float32(1.5), cam.Aspect())
}
