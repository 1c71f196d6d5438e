package common

import "errors"

// Sentinel errors shared across the engine. Call sites wrap them with context via
// fmt.Errorf("%w: ...", ...) so callers can branch with errors.Is.
var (
	// ErrConfiguration marks invalid construction-time input: an unknown uniform kind,
	// a NaN sort distance, an unparseable config value or a shader variant that fails validation.
	ErrConfiguration = errors.New("configuration error")

	// ErrUsage marks a violated call-order or argument precondition, such as submitting a
	// command outside an open frame or issuing a zero-size draw.
	ErrUsage = errors.New("usage error")

	// ErrDestroyed marks access to a resource after Destroy was called on it.
	ErrDestroyed = errors.New("resource destroyed")

	// ErrUnsupported marks an init-time failure to acquire a usable adapter or device.
	// Callers are expected to show a fallback instead of retrying.
	ErrUnsupported = errors.New("graphics device unsupported")
)
