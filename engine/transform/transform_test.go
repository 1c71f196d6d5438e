package transform

import (
	"math"
	"testing"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/stretchr/testify/assert"
)

const eps = 1e-5

func TestNewTransformIsIdentity(t *testing.T) {
	tr := NewTransform()
	assert.True(t, tr.ModelMatrix().ApproxEqualThreshold(mgl32.Ident4(), eps))
	assert.True(t, tr.NormalMatrix().ApproxEqualThreshold(mgl32.Ident3(), eps))
}

func TestUpdateMatrixIsTranslateRotateScale(t *testing.T) {
	tr := NewTransform(
		WithPosition(mgl32.Vec3{1, 2, 3}),
		WithScale(mgl32.Vec3{2, 2, 2}),
	)
	tr.RotateY(float32(math.Pi / 2))
	tr.UpdateMatrix()

	// Local +X scales to 2, rotates to -Z, then translates.
	got := tr.ModelMatrix().Mul4x1(mgl32.Vec4{1, 0, 0, 1}).Vec3()
	assert.True(t, got.ApproxEqualThreshold(mgl32.Vec3{1, 2, 1}, eps), "got %v", got)
}

func TestRotateOnAxisLeftMultiplies(t *testing.T) {
	tr := NewTransform()
	tr.RotateX(0.4)
	tr.RotateY(0.7)

	want := mgl32.QuatRotate(0.7, AxisY).Mul(mgl32.QuatRotate(0.4, AxisX))
	assert.True(t, tr.Rotation().ApproxEqualThreshold(want, eps))
}

func TestRotateOnAxisNormalizesAxis(t *testing.T) {
	a := NewTransform()
	b := NewTransform()
	a.RotateOnAxis(mgl32.Vec3{0, 0, 5}, 1)
	b.RotateZ(1)
	assert.True(t, a.Rotation().ApproxEqualThreshold(b.Rotation(), eps))
}

func TestRotateOnZeroAxisIsNoOp(t *testing.T) {
	tr := NewTransform()
	tr.RotateOnAxis(mgl32.Vec3{}, 1)
	assert.Equal(t, mgl32.QuatIdent(), tr.Rotation())
}

func TestNormalMatrix(t *testing.T) {
	tr := NewTransform(WithScale(mgl32.Vec3{2, 1, 1}))
	view := mgl32.Translate3D(0, 0, -5)
	tr.UpdateMatrix()
	tr.UpdateNormalMatrix(view)

	want := view.Mul4(tr.ModelMatrix()).Inv().Transpose().Mat3()
	assert.True(t, tr.NormalMatrix().ApproxEqualThreshold(want, eps))
	// Non-uniform scale inverts in the normal matrix.
	assert.InDelta(t, 0.5, tr.NormalMatrix().At(0, 0), eps)
}

func TestMatricesOnlyChangeOnUpdate(t *testing.T) {
	tr := NewTransform()
	tr.SetPosition(mgl32.Vec3{5, 0, 0})
	assert.True(t, tr.ModelMatrix().ApproxEqualThreshold(mgl32.Ident4(), eps))

	tr.UpdateMatrix()
	assert.InDelta(t, 5, tr.ModelMatrix().At(0, 3), eps)
}
