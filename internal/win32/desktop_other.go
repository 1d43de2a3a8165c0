//go:build !windows

package win32

import "errors"

// Desktop is inert outside Windows: no window is ever valid.
type Desktop struct{}

func NewDesktop() Desktop { return Desktop{} }

func (Desktop) ForegroundWindow() HWND { return 0 }
func (Desktop) IsWindow(HWND) bool { return false }
func (Desktop) IsIconic(HWND) bool { return false }
func (Desktop) ShowWindow(HWND, int) bool { return false }
func (Desktop) SetForegroundWindow(HWND) bool { return false }
func (Desktop) AllowSetForegroundWindow() bool { return false }
func (Desktop) WindowThreadID(HWND) uint32 { return 0 }
func (Desktop) CurrentThreadID() uint32 { return 0 }
func (Desktop) AttachThreadInput(uint32, uint32, bool) bool { return false }
func (Desktop) FocusedControl(HWND) (HWND, bool) { return 0, false }
func (Desktop) CursorPos() (Point, bool) { return Point{}, false }
func (Desktop) ScreenToClient(HWND, Point) (Point, bool) { return Point{}, false }
func (Desktop) ClientRect(HWND) (Rect, bool) { return Rect{}, false }
func (Desktop) ChildWindowFromPoint(HWND, Point) HWND { return 0 }
func (Desktop) SetFocus(HWND) bool { return false }
func (Desktop) KeyUp(uint16) {}

func (Desktop) SendChord(uint16, ...uint16) error {
	return errors.New("SendInput is only available on windows")
}
