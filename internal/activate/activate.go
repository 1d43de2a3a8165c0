// Package activate brings a previously focused window back to the
// foreground and gives keyboard focus to a control inside it.
//
// Windows only lets a process take the foreground under its foreground-lock
// rules, so activation lifts the lock, shows the window, and then attaches
// our input queue to the target thread so SetFocus is honoured. Every step
// is followed by a short wait for the window manager. The Result is a best
// effort report; it does not prove focus landed.
package activate

import (
	"context"
	"runtime"
	"time"

	"ru2en/internal/apperr"
	"ru2en/internal/focus"
	"ru2en/internal/logger"
	"ru2en/internal/win32"
)

// WindowSystem is the subset of the desktop activation drives.
type WindowSystem interface {
	ThreadInput
	IsWindow(win32.HWND) bool
	IsIconic(win32.HWND) bool
	ShowWindow(win32.HWND, int) bool
	AllowSetForegroundWindow() bool
	SetForegroundWindow(win32.HWND) bool
	WindowThreadID(win32.HWND) uint32
	CurrentThreadID() uint32
	SetFocus(win32.HWND) bool
}

// Resolver finds a control when the target carries none.
type Resolver interface {
	ResolveTarget(win32.HWND) focus.Target
}

// Timing holds the waits between activation steps.
type Timing struct {
	AfterShow       time.Duration
	AfterForeground time.Duration
	AfterAttach     time.Duration
	AfterFocus      time.Duration
	// Settle is waited once activation is done, before the caller pastes.
	Settle time.Duration
}

// DefaultTiming returns the waits used in production.
func DefaultTiming() Timing {
	return Timing{
		AfterShow:       80 * time.Millisecond,
		AfterForeground: 80 * time.Millisecond,
		AfterAttach:     80 * time.Millisecond,
		AfterFocus:      50 * time.Millisecond,
		Settle:          60 * time.Millisecond,
	}
}

// Result describes what activation achieved.
type Result struct {
	Foreground bool
	Attached   bool
	Focused    bool
	Control    win32.HWND
}

// Activator performs window activation.
type Activator struct {
	ws       WindowSystem
	resolver Resolver
	timing   Timing
	log      *logger.Logger
}

// New creates an Activator. resolver may be nil.
func New(ws WindowSystem, resolver Resolver, timing Timing, log *logger.Logger) *Activator {
	if log == nil {
		log = logger.Nop()
	}
	return &Activator{ws: ws, resolver: resolver, timing: timing, log: log}
}

// Activate restores target.Window, requests the foreground and moves focus
// to target.Control (or a freshly resolved control when it is zero).
//
// An error is returned when the window is gone, when the context ends, or
// when neither the foreground request nor SetFocus succeeded. The error is
// an Activation error and callers are expected to paste anyway.
func (a *Activator) Activate(ctx context.Context, target focus.Target) (Result, error) {
	var res Result
	w := target.Window
	if !target.Valid() || !a.ws.IsWindow(w) {
		return res, apperr.Activationf(nil, "Target window is no longer available.")
	}

	// AttachThreadInput and SetFocus act on the calling OS thread.
	runtime.LockOSThread()
	defer runtime.UnlockOSThread()

	if !a.ws.AllowSetForegroundWindow() {
		a.log.Debug("AllowSetForegroundWindow refused")
	}

	cmd := win32.SW_SHOW
	if a.ws.IsIconic(w) {
		cmd = win32.SW_RESTORE
	}
	a.ws.ShowWindow(w, cmd)
	if err := sleep(ctx, a.timing.AfterShow); err != nil {
		return res, apperr.Activationf(err, "Activation interrupted.")
	}

	res.Foreground = a.ws.SetForegroundWindow(w)
	if err := sleep(ctx, a.timing.AfterForeground); err != nil {
		return res, apperr.Activationf(err, "Activation interrupted.")
	}

	if err := a.focusAttached(ctx, target, &res); err != nil {
		return res, err
	}

	a.log.Debug("activation done",
		logger.Uintptr("hwnd", uintptr(w)),
		logger.Uintptr("control", uintptr(res.Control)),
		logger.Bool("foreground", res.Foreground),
		logger.Bool("attached", res.Attached),
		logger.Bool("focused", res.Focused),
	)

	if !res.Foreground && !res.Focused {
		return res, apperr.Activationf(nil, "Could not bring the target window to the foreground.")
	}
	if err := sleep(ctx, a.timing.Settle); err != nil {
		return res, apperr.Activationf(err, "Activation interrupted.")
	}
	return res, nil
}

func (a *Activator) focusAttached(ctx context.Context, target focus.Target, res *Result) error {
	w := target.Window
	guard := AttachThreadInput(a.ws, a.ws.CurrentThreadID(), a.ws.WindowThreadID(w))
	defer guard.Release()

	res.Attached = guard.Attached()
	if !res.Attached {
		// Focus may still land if the target thread already owns the
		// foreground; the result stays advisory.
		a.log.Debug("AttachThreadInput failed, setting focus unattached")
	}

	if a.ws.SetForegroundWindow(w) {
		res.Foreground = true
	}
	if err := sleep(ctx, a.timing.AfterAttach); err != nil {
		return apperr.Activationf(err, "Activation interrupted.")
	}

	control := target.Control
	if control == 0 && a.resolver != nil {
		control = a.resolver.ResolveTarget(w).Control
	}
	if control == 0 {
		control = w
	}
	res.Control = control
	res.Focused = a.ws.SetFocus(control)

	if err := sleep(ctx, a.timing.AfterFocus); err != nil {
		return apperr.Activationf(err, "Activation interrupted.")
	}
	return nil
}

func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
