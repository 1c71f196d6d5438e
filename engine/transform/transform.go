// Package transform holds the position, orientation and scale of a drawable and derives its
// per-frame model and normal matrices.
package transform

import "github.com/go-gl/mathgl/mgl32"

var (
	// AxisX is the unit X axis.
	AxisX = mgl32.Vec3{1, 0, 0}
	// AxisY is the unit Y axis.
	AxisY = mgl32.Vec3{0, 1, 0}
	// AxisZ is the unit Z axis.
	AxisZ = mgl32.Vec3{0, 0, 1}
)

type transformImpl struct {
	position mgl32.Vec3
	rotation mgl32.Quat
	scale    mgl32.Vec3

	modelMatrix  mgl32.Mat4
	normalMatrix mgl32.Mat3
}

// Transform is a translate-rotate-scale node. The derived matrices are only valid after
// UpdateMatrix and UpdateNormalMatrix have run for the current frame; they are recomputed every
// frame rather than tracked for changes. A Transform is not safe for concurrent use.
type Transform interface {
	// Position returns the translation.
	Position() mgl32.Vec3

	// SetPosition sets the translation.
	SetPosition(p mgl32.Vec3)

	// Rotation returns the orientation as a unit quaternion.
	Rotation() mgl32.Quat

	// SetRotation sets the orientation. q is normalized before it is stored.
	SetRotation(q mgl32.Quat)

	// Scale returns the per-axis scale.
	Scale() mgl32.Vec3

	// SetScale sets the per-axis scale.
	SetScale(s mgl32.Vec3)

	// RotateOnAxis pre-multiplies the orientation by a rotation of angle radians about axis,
	// so the rotation is applied in parent space after the current orientation.
	//
	// Parameters:
	//   - axis: the rotation axis, normalized internally
	//   - angle: the rotation angle in radians
	RotateOnAxis(axis mgl32.Vec3, angle float32)

	// RotateX rotates about the X axis.
	RotateX(angle float32)

	// RotateY rotates about the Y axis.
	RotateY(angle float32)

	// RotateZ rotates about the Z axis.
	RotateZ(angle float32)

	// UpdateMatrix recomputes the model matrix as translate × rotate × scale.
	UpdateMatrix()

	// UpdateNormalMatrix recomputes the normal matrix from the current model matrix.
	//
	// Parameters:
	//   - view: the camera view matrix for this frame
	UpdateNormalMatrix(view mgl32.Mat4)

	// ModelMatrix returns the model matrix computed by the last UpdateMatrix.
	ModelMatrix() mgl32.Mat4

	// NormalMatrix returns the upper 3×3 of transpose(inverse(view × model)) computed by the
	// last UpdateNormalMatrix.
	NormalMatrix() mgl32.Mat3
}

var _ Transform = &transformImpl{}

// NewTransform creates an identity Transform.
//
// Parameters:
//   - options: functional options to set the initial position, rotation and scale
//
// Returns:
//   - Transform: the new transform with matrices already computed for an identity view
func NewTransform(options ...TransformBuilderOption) Transform {
	t := &transformImpl{
		rotation: mgl32.QuatIdent(),
		scale:    mgl32.Vec3{1, 1, 1},
	}
	for _, option := range options {
		option(t)
	}
	t.UpdateMatrix()
	t.UpdateNormalMatrix(mgl32.Ident4())
	return t
}

func (t *transformImpl) Position() mgl32.Vec3 {
	return t.position
}

func (t *transformImpl) SetPosition(p mgl32.Vec3) {
	t.position = p
}

func (t *transformImpl) Rotation() mgl32.Quat {
	return t.rotation
}

func (t *transformImpl) SetRotation(q mgl32.Quat) {
	t.rotation = q.Normalize()
}

func (t *transformImpl) Scale() mgl32.Vec3 {
	return t.scale
}

func (t *transformImpl) SetScale(s mgl32.Vec3) {
	t.scale = s
}

func (t *transformImpl) RotateOnAxis(axis mgl32.Vec3, angle float32) {
	if axis.Len() == 0 {
		return
	}
	t.rotation = mgl32.QuatRotate(angle, axis.Normalize()).Mul(t.rotation).Normalize()
}

func (t *transformImpl) RotateX(angle float32) {
	t.RotateOnAxis(AxisX, angle)
}

func (t *transformImpl) RotateY(angle float32) {
	t.RotateOnAxis(AxisY, angle)
}

func (t *transformImpl) RotateZ(angle float32) {
	t.RotateOnAxis(AxisZ, angle)
}

func (t *transformImpl) UpdateMatrix() {
	translate := mgl32.Translate3D(t.position.X(), t.position.Y(), t.position.Z())
	rotate := t.rotation.Mat4()
	scale := mgl32.Scale3D(t.scale.X(), t.scale.Y(), t.scale.Z())
	t.modelMatrix = translate.Mul4(rotate).Mul4(scale)
}

func (t *transformImpl) UpdateNormalMatrix(view mgl32.Mat4) {
	// A singular model-view (zero scale) inverts to the zero matrix, which is what mgl32 returns.
	t.normalMatrix = view.Mul4(t.modelMatrix).Inv().Transpose().Mat3()
}

func (t *transformImpl) ModelMatrix() mgl32.Mat4 {
	return t.modelMatrix
}

func (t *transformImpl) NormalMatrix() mgl32.Mat3 {
	return t.normalMatrix
}
