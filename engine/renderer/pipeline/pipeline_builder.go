package pipeline

// CacheBuilderOption is a functional option used to configure a Cache during construction.
type CacheBuilderOption func(*cache)

// WithDepthAttachment sets whether render passes carry a depth attachment. Without one, render
// pipelines are created with no depth-stencil state. The default is true.
//
// Parameters:
//   - enabled: true if passes have a depth attachment
//
// Returns:
//   - CacheBuilderOption: a function that applies the depth option to the cache
func WithDepthAttachment(enabled bool) CacheBuilderOption {
	return func(c *cache) {
		c.depth = enabled
	}
}
