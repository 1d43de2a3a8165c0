//go:build windows

package hotkey

import (
	"fmt"
	"runtime"
	"time"
	"unsafe"

	"golang.org/x/sys/windows"

	"ru2en/internal/logger"
)

var (
	user32                  = windows.NewLazySystemDLL("user32.dll")
	procRegisterHotKey      = user32.NewProc("RegisterHotKey")
	procUnregisterHotKey    = user32.NewProc("UnregisterHotKey")
	procGetMessageW         = user32.NewProc("GetMessageW")
	procPostThreadMessageW  = user32.NewProc("PostThreadMessageW")
	procSetWindowsHookExW   = user32.NewProc("SetWindowsHookExW")
	procUnhookWindowsHookEx = user32.NewProc("UnhookWindowsHookEx")
	procCallNextHookEx      = user32.NewProc("CallNextHookEx")
	procGetAsyncKeyState    = user32.NewProc("GetAsyncKeyState")
)

const (
	wmQuit       = 0x0012
	wmHotkey     = 0x0312
	wmKeyDown    = 0x0100
	wmKeyUp      = 0x0101
	wmSysKeyDown = 0x0104
	wmSysKeyUp   = 0x0105

	whKeyboardLL  = 13
	llkhfInjected = 0x10

	vkShift   = 0x10
	vkControl = 0x11
	vkMenu    = 0x12
	vkLWin    = 0x5B
	vkRWin    = 0x5C

	startTimeout = 2 * time.Second
)

type msg struct {
	Hwnd    uintptr
	Message uint32
	WParam  uintptr
	LParam  uintptr
	Time    uint32
	PtX     int32
	PtY     int32
}

type kbdllhookstruct struct {
	vkCode      uint32
	scanCode    uint32
	flags       uint32
	time        uint32
	dwExtraInfo uintptr
}

// Register installs the chords and starts the loop on a dedicated OS
// thread. A failure is returned to the caller; the rest of the program
// keeps working without global hotkeys.
func Register(opts Options, handler Handler, log *logger.Logger) (*Listener, error) {
	if log == nil {
		log = logger.Nop()
	}
	binds, err := opts.bindings()
	if err != nil {
		return nil, err
	}
	for _, b := range binds {
		log.Debug("parsed chord",
			logger.String("id", b.id.String()),
			logger.String("spec", b.chord.Spec),
			logger.Uintptr("mod", uintptr(b.chord.Mod)),
			logger.Uintptr("vk", uintptr(b.chord.VK)),
		)
	}

	if opts.Hook {
		return startHook(binds, handler, log)
	}
	l, err := registerHotkeys(binds, handler, log)
	if err != nil && opts.HookFallback {
		log.Warn("RegisterHotKey failed, installing keyboard hook", logger.Error(err))
		return startHook(binds, handler, log)
	}
	return l, err
}

// Stop ends the loop and releases the chords.
func (l *Listener) Stop() {
	if l == nil {
		return
	}
	procPostThreadMessageW.Call(uintptr(l.threadID), wmQuit, 0, 0)
	select {
	case <-l.done:
	case <-time.After(startTimeout):
	}
}

// start runs setup on a locked thread, reports its result, then pumps
// messages until WM_QUIT. teardown runs on the same thread.
func start(mode string, setup func() (teardown func(), err error), onMsg func(*msg), log *logger.Logger) (*Listener, error) {
	l := &Listener{mode: mode, done: make(chan struct{})}
	errCh := make(chan error, 1)

	go func() {
		runtime.LockOSThread()
		defer runtime.UnlockOSThread()
		defer close(l.done)

		l.threadID = windows.GetCurrentThreadId()
		teardown, err := setup()
		if err != nil {
			errCh <- err
			return
		}
		defer teardown()
		errCh <- nil

		var m msg
		for {
			ret, _, _ := procGetMessageW.Call(uintptr(unsafe.Pointer(&m)), 0, 0, 0)
			if int32(ret) == -1 {
				log.Error("GetMessageW failed, hotkey loop exiting")
				return
			}
			if ret == 0 {
				log.Debug("hotkey loop stopped")
				return
			}
			if onMsg != nil {
				onMsg(&m)
			}
		}
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return nil, err
		}
		return l, nil
	case <-time.After(startTimeout):
		return nil, fmt.Errorf("timeout starting %s hotkey loop", mode)
	}
}

func registerHotkeys(binds []binding, handler Handler, log *logger.Logger) (*Listener, error) {
	setup := func() (func(), error) {
		var registered []ID
		unregister := func() {
			for _, id := range registered {
				procUnregisterHotKey.Call(0, uintptr(id))
			}
		}
		for _, b := range binds {
			r, _, callErr := procRegisterHotKey.Call(0, uintptr(b.id), uintptr(b.chord.Mod|ModNoRepeat), uintptr(b.chord.VK))
			if r == 0 {
				unregister()
				return nil, fmt.Errorf("RegisterHotKey %q: %w", b.chord.Spec, callErr)
			}
			registered = append(registered, b.id)
			log.Info("registered hotkey", logger.String("id", b.id.String()), logger.String("spec", b.chord.Spec))
		}
		return unregister, nil
	}
	onMsg := func(m *msg) {
		if m.Message != wmHotkey {
			return
		}
		id := ID(m.WParam)
		log.Debug("WM_HOTKEY", logger.String("id", id.String()))
		dispatch(handler, id, log)
	}
	return start("register", setup, onMsg, log)
}

func keyDown(vk int) bool {
	st, _, _ := procGetAsyncKeyState.Call(uintptr(vk))
	return st&0x8000 != 0
}

func modsSatisfied(required uint32) bool {
	if required&ModControl != 0 && !keyDown(vkControl) {
		return false
	}
	if required&ModAlt != 0 && !keyDown(vkMenu) {
		return false
	}
	if required&ModShift != 0 && !keyDown(vkShift) {
		return false
	}
	if required&ModWin != 0 && !keyDown(vkLWin) && !keyDown(vkRWin) {
		return false
	}
	return true
}

func startHook(binds []binding, handler Handler, log *logger.Logger) (*Listener, error) {
	lookup := make(map[uint32][]binding)
	for _, b := range binds {
		lookup[b.chord.VK] = append(lookup[b.chord.VK], b)
	}
	// Only touched from the hook thread.
	swallowed := make(map[uint32]bool)

	callback := windows.NewCallback(func(nCode, wParam, lParam uintptr) uintptr {
		if int32(nCode) >= 0 {
			k := (*kbdllhookstruct)(unsafe.Pointer(lParam))
			if k.flags&llkhfInjected == 0 {
				switch uint32(wParam) {
				case wmKeyDown, wmSysKeyDown:
					for _, b := range lookup[k.vkCode] {
						if !modsSatisfied(b.chord.Mod) {
							continue
						}
						// Auto-repeat arrives as more key-downs; fire once per press.
						if !swallowed[k.vkCode] {
							swallowed[k.vkCode] = true
							// Off the hook thread: Windows drops a low-level hook
							// that does not return within LowLevelHooksTimeout, and
							// the handler takes the focus snapshot and opens the mic.
							go dispatch(handler, b.id, log)
						}
						return 1
					}
				case wmKeyUp, wmSysKeyUp:
					if swallowed[k.vkCode] {
						delete(swallowed, k.vkCode)
						return 1
					}
				}
			}
		}
		ret, _, _ := procCallNextHookEx.Call(0, nCode, wParam, lParam)
		return ret
	})

	setup := func() (func(), error) {
		hook, _, callErr := procSetWindowsHookExW.Call(whKeyboardLL, callback, 0, 0)
		if hook == 0 {
			return nil, fmt.Errorf("SetWindowsHookExW: %w", callErr)
		}
		log.Info("low-level keyboard hook installed")
		return func() {
			procUnhookWindowsHookEx.Call(hook)
			log.Debug("low-level keyboard hook removed")
		}, nil
	}
	return start("hook", setup, nil, log)
}

func dispatch(handler Handler, id ID, log *logger.Logger) {
	defer func() {
		if r := recover(); r != nil {
			log.Error("hotkey handler panic", logger.Any("panic", r))
		}
	}()
	handler(id)
}
