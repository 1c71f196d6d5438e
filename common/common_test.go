package common

import (
	"bytes"
	"log/slog"
	"math"
	"testing"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/stretchr/testify/assert"
)

func TestPerspectiveDepthRange(t *testing.T) {
	near, far := float32(0.5), float32(100)
	proj := Perspective(float32(math.Pi/2), 1, near, far)

	depth := func(z float32) float32 {
		clip := proj.Mul4x1(mgl32.Vec4{0, 0, z, 1})
		return clip.Z() / clip.W()
	}
	assert.InDelta(t, 0, depth(-near), 1e-6)
	assert.InDelta(t, 1, depth(-far), 1e-5)
	assert.InDelta(t, 1, proj[5], 1e-6, "90 degree fov has unit focal length")
}

type sphere struct {
	center mgl32.Vec3
	radius float32
}

func (s sphere) Center() mgl32.Vec3 { return s.center }
func (s sphere) Radius() float32    { return s.radius }

func TestFrustumVisibility(t *testing.T) {
	f := ExtractFrustumFromMatrix(Perspective(float32(math.Pi/3), 1, 0.5, 50))

	tests := []struct {
		name   string
		volume sphere
		want   Intersect
	}{
		{"ahead", sphere{mgl32.Vec3{0, 0, -10}, 1}, IntersectInside},
		{"behind", sphere{mgl32.Vec3{0, 0, 10}, 1}, IntersectOutside},
		{"beyond far", sphere{mgl32.Vec3{0, 0, -60}, 1}, IntersectOutside},
		{"straddles near", sphere{mgl32.Vec3{0, 0, -0.25}, 1}, IntersectIntersecting},
		{"far off to the side", sphere{mgl32.Vec3{40, 0, -10}, 1}, IntersectOutside},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, f.ComputeVisibility(tt.volume))
		})
	}
}

func TestBytePacking(t *testing.T) {
	assert.Equal(t, []byte{0, 0, 0x80, 0x3f}, Float32sToBytes([]float32{1}))
	assert.Equal(t, []byte{1, 0, 0, 0, 2, 0, 0, 0}, Uint32sToBytes([]uint32{1, 2}))
	assert.Equal(t, []byte{1, 0, 2, 0, 3, 0, 0, 0}, Uint16sToBytes([]uint16{1, 2, 3}), "padded to 4 bytes")
	assert.Empty(t, Uint16sToBytes(nil))
}

func TestCoalesce(t *testing.T) {
	assert.Equal(t, 3, Coalesce(0, 3, 4))
	assert.Equal(t, "", Coalesce("", ""))
}

func TestSetLogger(t *testing.T) {
	t.Cleanup(func() { SetLogger(nil) })

	var out bytes.Buffer
	SetLogger(slog.New(slog.NewTextHandler(&out, nil)))
	Logger().Info("frame", "draws", 3)
	assert.Contains(t, out.String(), "draws=3")

	SetLogger(nil)
	Logger().Error("dropped")
	assert.NotContains(t, out.String(), "dropped")
}
