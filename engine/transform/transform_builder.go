package transform

import "github.com/go-gl/mathgl/mgl32"

// TransformBuilderOption is a functional option applied by NewTransform.
type TransformBuilderOption func(*transformImpl)

// WithPosition sets the initial translation.
func WithPosition(p mgl32.Vec3) TransformBuilderOption {
	return func(t *transformImpl) {
		t.position = p
	}
}

// WithRotation sets the initial orientation. The quaternion is normalized.
func WithRotation(q mgl32.Quat) TransformBuilderOption {
	return func(t *transformImpl) {
		t.rotation = q.Normalize()
	}
}

// WithScale sets the initial per-axis scale.
func WithScale(s mgl32.Vec3) TransformBuilderOption {
	return func(t *transformImpl) {
		t.scale = s
	}
}
