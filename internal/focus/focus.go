// Package focus remembers which window the user was typing into when a
// recording started and works out, at paste time, which control inside it
// should receive the text.
package focus

import (
	"ru2en/internal/logger"
	"ru2en/internal/win32"
)

// WindowSystem is the subset of the desktop the tracker reads.
type WindowSystem interface {
	ForegroundWindow() win32.HWND
	IsWindow(win32.HWND) bool
	FocusedControl(win32.HWND) (win32.HWND, bool)
	CursorPos() (win32.Point, bool)
	ScreenToClient(win32.HWND, win32.Point) (win32.Point, bool)
	ClientRect(win32.HWND) (win32.Rect, bool)
	ChildWindowFromPoint(win32.HWND, win32.Point) win32.HWND
}

// Target is a window and the control inside it that should receive input.
// Control equals Window when no more specific control was found.
type Target struct {
	Window   win32.HWND
	Control  win32.HWND
	Strategy string
}

// NoTarget is returned when the snapshotted window is gone.
var NoTarget = Target{}

// Valid reports whether t names a window.
func (t Target) Valid() bool { return t.Window != 0 }

// Strategy resolves a control inside a window.
type Strategy struct {
	Name    string
	Resolve func(ws WindowSystem, window win32.HWND) (win32.HWND, bool)
}

// DefaultStrategies is the resolution order: the control the window's
// thread reports as focused, then the child under the mouse cursor, then
// the window itself.
var DefaultStrategies = []Strategy{
	{Name: "thread-focus", Resolve: threadFocus},
	{Name: "cursor-child", Resolve: cursorChild},
	{Name: "window", Resolve: wholeWindow},
}

func threadFocus(ws WindowSystem, w win32.HWND) (win32.HWND, bool) {
	c, ok := ws.FocusedControl(w)
	if !ok || c == 0 {
		return 0, false
	}
	return c, true
}

func cursorChild(ws WindowSystem, w win32.HWND) (win32.HWND, bool) {
	pt, ok := ws.CursorPos()
	if !ok {
		return 0, false
	}
	local, ok := ws.ScreenToClient(w, pt)
	if !ok {
		return 0, false
	}
	rc, ok := ws.ClientRect(w)
	if !ok || !rc.Contains(local) {
		return 0, false
	}
	child := ws.ChildWindowFromPoint(w, local)
	if child == 0 || child == w {
		return 0, false
	}
	return child, true
}

func wholeWindow(_ WindowSystem, w win32.HWND) (win32.HWND, bool) {
	return w, true
}

// Tracker snapshots the foreground window and resolves paste targets.
type Tracker struct {
	ws         WindowSystem
	strategies []Strategy
	log        *logger.Logger
}

// NewTracker returns a tracker using DefaultStrategies.
func NewTracker(ws WindowSystem, log *logger.Logger) *Tracker {
	return NewTrackerWithStrategies(ws, DefaultStrategies, log)
}

// NewTrackerWithStrategies returns a tracker with a custom resolution order.
func NewTrackerWithStrategies(ws WindowSystem, strategies []Strategy, log *logger.Logger) *Tracker {
	if log == nil {
		log = logger.Nop()
	}
	return &Tracker{ws: ws, strategies: strategies, log: log}
}

// Snapshot returns the current foreground window. It must run on the
// hotkey goroutine before any asynchronous work starts.
func (t *Tracker) Snapshot() win32.HWND {
	h := t.ws.ForegroundWindow()
	t.log.Debug("foreground snapshot", logger.Uintptr("hwnd", uintptr(h)))
	return h
}

// ResolveTarget picks the most specific control inside window. A zero or
// closed window yields NoTarget.
func (t *Tracker) ResolveTarget(window win32.HWND) (target Target) {
	if window == 0 || !t.ws.IsWindow(window) {
		t.log.Debug("no paste target", logger.Uintptr("hwnd", uintptr(window)))
		return NoTarget
	}
	defer func() {
		if r := recover(); r != nil {
			t.log.Warn("focus resolution panicked", logger.Any("panic", r))
			target = Target{Window: window, Control: window, Strategy: "window"}
		}
	}()

	for _, s := range t.strategies {
		c, ok := s.Resolve(t.ws, window)
		t.log.Debug("focus strategy",
			logger.String("strategy", s.Name),
			logger.Bool("ok", ok),
			logger.Uintptr("control", uintptr(c)),
		)
		if ok {
			return Target{Window: window, Control: c, Strategy: s.Name}
		}
	}
	return Target{Window: window, Control: window, Strategy: "window"}
}
