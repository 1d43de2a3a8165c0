// Package win32 wraps the user32/kernel32 calls used to track focus,
// re-activate windows and synthesize keystrokes. Desktop is the real
// implementation on Windows and inert everywhere else.
package win32

// HWND is an opaque window handle. Zero means none.
type HWND uintptr

// Point is a screen or client coordinate.
type Point struct {
	X, Y int32
}

// Rect is a window rectangle.
type Rect struct {
	Left, Top, Right, Bottom int32
}

// Contains reports whether p lies inside r (right and bottom exclusive).
func (r Rect) Contains(p Point) bool {
	return p.X >= r.Left && p.X < r.Right && p.Y >= r.Top && p.Y < r.Bottom
}

// ShowWindow commands.
const (
	SW_SHOW    = 5
	SW_RESTORE = 9
)

// Virtual keys used by the paste path.
const (
	VK_SHIFT   = 0x10
	VK_CONTROL = 0x11
	VK_MENU    = 0x12
	VK_V       = 0x56
)

// Modifiers lists the keys released before a synthetic paste. Win is left
// alone: a lone Win key-up opens the Start menu.
var Modifiers = []uint16{VK_CONTROL, VK_MENU, VK_SHIFT}
