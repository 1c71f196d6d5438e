package frame_state

import (
	"time"

	"github.com/Carmen-Shannon/oxy-frame/engine/render_queue"
	"github.com/cogentcore/webgpu/wgpu"
)

// FrameStateBuilderOption is a functional option applied by NewFrameState.
type FrameStateBuilderOption func(*frameState)

// WithRenderQueue sets the queue drawables push into. A new empty queue is used by default.
func WithRenderQueue(q render_queue.RenderQueue) FrameStateBuilderOption {
	return func(fs *frameState) {
		fs.queue = q
	}
}

// WithColorTargets sets the initial pass color targets.
func WithColorTargets(targets []wgpu.ColorTargetState) FrameStateBuilderOption {
	return func(fs *frameState) {
		fs.colorTargets = targets
	}
}

// WithClock replaces time.Now as the frame clock.
//
// Parameters:
//   - now: returns the current time
//
// Returns:
//   - FrameStateBuilderOption: a function that sets the clock
func WithClock(now func() time.Time) FrameStateBuilderOption {
	return func(fs *frameState) {
		fs.now = now
	}
}
