//go:build windows

package win32

import (
	"fmt"
	"unsafe"

	"golang.org/x/sys/windows"
)

var (
	user32 = windows.NewLazySystemDLL("user32.dll")

	procIsIconic                 = user32.NewProc("IsIconic")
	procShowWindow               = user32.NewProc("ShowWindow")
	procSetForegroundWindow      = user32.NewProc("SetForegroundWindow")
	procAllowSetForegroundWindow = user32.NewProc("AllowSetForegroundWindow")
	procAttachThreadInput        = user32.NewProc("AttachThreadInput")
	procGetCursorPos             = user32.NewProc("GetCursorPos")
	procScreenToClient           = user32.NewProc("ScreenToClient")
	procGetClientRect            = user32.NewProc("GetClientRect")
	procChildWindowFromPointEx   = user32.NewProc("ChildWindowFromPointEx")
	procSetFocus                 = user32.NewProc("SetFocus")
	procKeybdEvent               = user32.NewProc("keybd_event")
	procSendInput                = user32.NewProc("SendInput")
)

const (
	asfwAny = ^uintptr(0) // ASFW_ANY (-1)

	cwpSkipInvisible   = 0x0001
	cwpSkipTransparent = 0x0002

	inputKeyboard  = 1
	keyeventfKeyUp = 0x0002
)

type keyboardInput struct {
	WVK         uint16
	WScan       uint16
	DwFlags     uint32
	Time        uint32
	DwExtraInfo uintptr
}

type input struct {
	Type  uint32
	_pad1 uint32
	Ki    keyboardInput
	_pad2 uint64
}

// Desktop talks to the interactive desktop of the current session.
type Desktop struct{}

// NewDesktop returns the Win32 desktop.
func NewDesktop() Desktop { return Desktop{} }

func (Desktop) ForegroundWindow() HWND {
	return HWND(windows.GetForegroundWindow())
}

func (Desktop) IsWindow(h HWND) bool {
	return h != 0 && windows.IsWindow(windows.HWND(h))
}

func (Desktop) IsIconic(h HWND) bool {
	r, _, _ := procIsIconic.Call(uintptr(h))
	return r != 0
}

// ShowWindow returns the previous visibility, not success.
func (Desktop) ShowWindow(h HWND, cmd int) bool {
	r, _, _ := procShowWindow.Call(uintptr(h), uintptr(cmd))
	return r != 0
}

func (Desktop) SetForegroundWindow(h HWND) bool {
	r, _, _ := procSetForegroundWindow.Call(uintptr(h))
	return r != 0
}

// AllowSetForegroundWindow lifts the foreground lock for any process.
func (Desktop) AllowSetForegroundWindow() bool {
	r, _, _ := procAllowSetForegroundWindow.Call(asfwAny)
	return r != 0
}

func (Desktop) WindowThreadID(h HWND) uint32 {
	var pid uint32
	tid, err := windows.GetWindowThreadProcessId(windows.HWND(h), &pid)
	if err != nil {
		return 0
	}
	return tid
}

// CurrentThreadID must be called on a goroutine locked to its OS thread
// for the value to stay meaningful.
func (Desktop) CurrentThreadID() uint32 {
	return windows.GetCurrentThreadId()
}

func (Desktop) AttachThreadInput(from, to uint32, attach bool) bool {
	var flag uintptr
	if attach {
		flag = 1
	}
	r, _, _ := procAttachThreadInput.Call(uintptr(from), uintptr(to), flag)
	return r != 0
}

// FocusedControl reads the input state of the thread owning h and returns
// its focus window, else its caret window, else its active window.
func (d Desktop) FocusedControl(h HWND) (HWND, bool) {
	tid := d.WindowThreadID(h)
	if tid == 0 {
		return 0, false
	}
	var gi windows.GUIThreadInfo
	gi.Size = uint32(unsafe.Sizeof(gi))
	if err := windows.GetGUIThreadInfo(tid, &gi); err != nil {
		return 0, false
	}
	for _, c := range []windows.HWND{gi.Focus, gi.CaretHandle, gi.Active} {
		if c != 0 {
			return HWND(c), true
		}
	}
	return 0, false
}

func (Desktop) CursorPos() (Point, bool) {
	var p Point
	r, _, _ := procGetCursorPos.Call(uintptr(unsafe.Pointer(&p)))
	return p, r != 0
}

func (Desktop) ScreenToClient(h HWND, p Point) (Point, bool) {
	r, _, _ := procScreenToClient.Call(uintptr(h), uintptr(unsafe.Pointer(&p)))
	return p, r != 0
}

func (Desktop) ClientRect(h HWND) (Rect, bool) {
	var rc Rect
	r, _, _ := procGetClientRect.Call(uintptr(h), uintptr(unsafe.Pointer(&rc)))
	return rc, r != 0
}

// ChildWindowFromPoint returns the visible, non-transparent child of h at
// the client coordinate p, h itself, or zero when p is outside h.
func (Desktop) ChildWindowFromPoint(h HWND, p Point) HWND {
	// POINT is passed by value as a packed 64-bit integer.
	packed := uintptr(uint32(p.X)) | uintptr(uint32(p.Y))<<32
	r, _, _ := procChildWindowFromPointEx.Call(uintptr(h), packed, cwpSkipInvisible|cwpSkipTransparent)
	return HWND(r)
}

// SetFocus only succeeds for windows attached to the calling thread's
// input queue.
func (Desktop) SetFocus(h HWND) bool {
	r, _, _ := procSetFocus.Call(uintptr(h))
	return r != 0
}

// KeyUp emits a key release through keybd_event.
func (Desktop) KeyUp(vk uint16) {
	procKeybdEvent.Call(uintptr(vk), 0, keyeventfKeyUp, 0)
}

// SendChord presses mods and key, then releases them in reverse order, in a
// single SendInput batch.
func (Desktop) SendChord(key uint16, mods ...uint16) error {
	ins := make([]input, 0, 2*(len(mods)+1))
	for _, m := range mods {
		ins = append(ins, input{Type: inputKeyboard, Ki: keyboardInput{WVK: m}})
	}
	ins = append(ins,
		input{Type: inputKeyboard, Ki: keyboardInput{WVK: key}},
		input{Type: inputKeyboard, Ki: keyboardInput{WVK: key, DwFlags: keyeventfKeyUp}},
	)
	for i := len(mods) - 1; i >= 0; i-- {
		ins = append(ins, input{Type: inputKeyboard, Ki: keyboardInput{WVK: mods[i], DwFlags: keyeventfKeyUp}})
	}

	ret, _, err := procSendInput.Call(
		uintptr(len(ins)),
		uintptr(unsafe.Pointer(&ins[0])),
		unsafe.Sizeof(input{}),
	)
	if int(ret) != len(ins) {
		return fmt.Errorf("SendInput sent %d of %d events: %v", ret, len(ins), err)
	}
	return nil
}
