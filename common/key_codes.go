package common

// Key codes delivered by window key callbacks. Printable keys use their ASCII value, the rest
// follow GLFW numbering.
const (
	KeyA     uint32 = 'A'
	KeyD     uint32 = 'D'
	KeyE     uint32 = 'E'
	KeyP     uint32 = 'P'
	KeyQ     uint32 = 'Q'
	KeyS     uint32 = 'S'
	KeyW     uint32 = 'W'
	KeySpace uint32 = ' '

	KeyEscape    uint32 = 256
	KeyLeftShift uint32 = 340
)
