package drawable

import "github.com/Carmen-Shannon/oxy-frame/engine/transform"

// DrawableBuilderOption is a functional option applied to a drawable during construction via NewDrawable.
type DrawableBuilderOption func(*drawable)

// WithLabel sets the debug label. The default is the geometry label.
func WithLabel(label string) DrawableBuilderOption {
	return func(d *drawable) {
		d.label = label
	}
}

// WithTransform sets the transform. The default is an identity transform.
func WithTransform(t transform.Transform) DrawableBuilderOption {
	return func(d *drawable) {
		d.Transform = t
	}
}

// WithPriority sets the sort priority.
func WithPriority(priority int) DrawableBuilderOption {
	return func(d *drawable) {
		d.priority = priority
	}
}

// WithInstances sets the instance count.
func WithInstances(instances uint32) DrawableBuilderOption {
	return func(d *drawable) {
		d.instances = instances
	}
}
