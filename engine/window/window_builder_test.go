package window

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestBuilderOptions(t *testing.T) {
	w := &engineWindow{width: 1280, height: 720}
	for _, opt := range []WindowBuilderOption{
		WithTitle("demo"),
		WithSize(640, 0),
		WithSizeLimits(100, 100, 2000, 1000),
	} {
		opt(w)
	}

	assert.Equal(t, "demo", w.title)
	assert.Equal(t, 640, w.width)
	assert.Equal(t, 720, w.height, "non-positive sizes keep the default")
	assert.Equal(t, [4]int{100, 100, 2000, 1000}, [4]int{w.minWidth, w.minHeight, w.maxWidth, w.maxHeight})
}

func TestClosedWindow(t *testing.T) {
	w := &engineWindow{}
	assert.False(t, w.IsRunning())
	assert.Nil(t, w.SurfaceDescriptor())
	assert.Error(t, w.Close())
}
