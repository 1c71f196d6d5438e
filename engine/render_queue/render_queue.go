// Package render_queue buckets visible drawables per frame and orders them for submission.
package render_queue

import (
	"cmp"
	"fmt"
	"math"

	"github.com/Carmen-Shannon/oxy-frame/common"
	"github.com/Carmen-Shannon/oxy-frame/engine/renderer/draw_command"
)

// Renderable is anything the queue can order and the renderer can draw.
type Renderable interface {
	// Priority orders renderables before distance; lower values draw first.
	Priority() int

	// DistanceToCamera is the distance used to order renderables of equal priority.
	DistanceToCamera() float32

	// DrawCommand resolves the command that draws this renderable.
	DrawCommand() (*draw_command.DrawCommand, error)
}

// renderQueue is the implementation of the RenderQueue interface.
type renderQueue struct {
	opaque      []Renderable
	transparent []Renderable
	compute     []Renderable
}

// RenderQueue holds one frame's opaque, transparent and compute buckets. It keeps no state across
// frames: Reset empties it and the frame repopulates it. A queue is used from one goroutine.
type RenderQueue interface {
	// PushOpaque appends r to the opaque bucket.
	//
	// Parameters:
	//   - r: the renderable to append
	//
	// Returns:
	//   - error: an error wrapping common.ErrConfiguration if r's distance is NaN
	PushOpaque(r Renderable) error

	// PushTransparent appends r to the transparent bucket.
	//
	// Parameters:
	//   - r: the renderable to append
	//
	// Returns:
	//   - error: an error wrapping common.ErrConfiguration if r's distance is NaN
	PushTransparent(r Renderable) error

	// PushCompute appends r to the compute bucket. Compute work is not sorted.
	PushCompute(r Renderable)

	// Sort orders the opaque bucket by priority then nearest first, and the transparent bucket
	// by priority then farthest first. Both sorts are in place and unstable.
	//
	// Returns:
	//   - error: an error wrapping common.ErrConfiguration if a distance became NaN after it was pushed
	Sort() error

	// Reset empties all three buckets, keeping their capacity.
	Reset()

	// Opaque returns the opaque bucket. The slice aliases the queue until the next Reset.
	Opaque() []Renderable

	// Transparent returns the transparent bucket. The slice aliases the queue until the next Reset.
	Transparent() []Renderable

	// Compute returns the compute bucket. The slice aliases the queue until the next Reset.
	Compute() []Renderable

	// Len returns the total number of renderables across all buckets.
	Len() int
}

var _ RenderQueue = &renderQueue{}

// NewRenderQueue creates an empty RenderQueue.
func NewRenderQueue() RenderQueue {
	return &renderQueue{}
}

func (q *renderQueue) PushOpaque(r Renderable) error {
	if err := checkDistance(r); err != nil {
		return err
	}
	q.opaque = append(q.opaque, r)
	return nil
}

func (q *renderQueue) PushTransparent(r Renderable) error {
	if err := checkDistance(r); err != nil {
		return err
	}
	q.transparent = append(q.transparent, r)
	return nil
}

func (q *renderQueue) PushCompute(r Renderable) {
	q.compute = append(q.compute, r)
}

func (q *renderQueue) Sort() error {
	for _, bucket := range [][]Renderable{q.opaque, q.transparent} {
		for _, r := range bucket {
			if err := checkDistance(r); err != nil {
				return err
			}
		}
	}
	Sort(q.opaque, 0, len(q.opaque), NearToFar)
	Sort(q.transparent, 0, len(q.transparent), FarToNear)
	return nil
}

func (q *renderQueue) Reset() {
	clear(q.opaque)
	clear(q.transparent)
	clear(q.compute)
	q.opaque = q.opaque[:0]
	q.transparent = q.transparent[:0]
	q.compute = q.compute[:0]
}

func (q *renderQueue) Opaque() []Renderable {
	return q.opaque
}

func (q *renderQueue) Transparent() []Renderable {
	return q.transparent
}

func (q *renderQueue) Compute() []Renderable {
	return q.compute
}

func (q *renderQueue) Len() int {
	return len(q.opaque) + len(q.transparent) + len(q.compute)
}

// NearToFar is the opaque ordering: priority ascending, then distance ascending.
func NearToFar(a, b Renderable) int {
	if c := cmp.Compare(a.Priority(), b.Priority()); c != 0 {
		return c
	}
	return cmp.Compare(a.DistanceToCamera(), b.DistanceToCamera())
}

// FarToNear is the transparent ordering: priority ascending, then distance descending.
func FarToNear(a, b Renderable) int {
	if c := cmp.Compare(a.Priority(), b.Priority()); c != 0 {
		return c
	}
	return cmp.Compare(b.DistanceToCamera(), a.DistanceToCamera())
}

func checkDistance(r Renderable) error {
	if d := r.DistanceToCamera(); math.IsNaN(float64(d)) {
		return fmt.Errorf("%w: renderable %v has a NaN camera distance", common.ErrConfiguration, r)
	}
	return nil
}
