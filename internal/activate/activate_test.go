package activate

import (
	"context"
	"strings"
	"testing"

	"ru2en/internal/apperr"
	"ru2en/internal/focus"
	"ru2en/internal/win32"
)

type fakeWS struct {
	calls []string

	valid        bool
	iconic       bool
	foregroundOK bool
	attachOK     bool
	focusOK      bool
	panicOnFocus bool
	showCmd      int
	focused      win32.HWND
}

func newFakeWS() *fakeWS {
	return &fakeWS{valid: true, foregroundOK: true, attachOK: true, focusOK: true}
}

func (f *fakeWS) IsWindow(win32.HWND) bool { return f.valid }
func (f *fakeWS) IsIconic(win32.HWND) bool { return f.iconic }

func (f *fakeWS) ShowWindow(_ win32.HWND, cmd int) bool {
	f.calls = append(f.calls, "show")
	f.showCmd = cmd
	return true
}

func (f *fakeWS) AllowSetForegroundWindow() bool {
	f.calls = append(f.calls, "allow")
	return true
}

func (f *fakeWS) SetForegroundWindow(win32.HWND) bool {
	f.calls = append(f.calls, "foreground")
	return f.foregroundOK
}

func (f *fakeWS) WindowThreadID(win32.HWND) uint32 { return 20 }
func (f *fakeWS) CurrentThreadID() uint32 { return 10 }

func (f *fakeWS) AttachThreadInput(from, to uint32, attach bool) bool {
	if attach {
		f.calls = append(f.calls, "attach")
		return f.attachOK
	}
	f.calls = append(f.calls, "detach")
	return true
}

func (f *fakeWS) SetFocus(h win32.HWND) bool {
	f.calls = append(f.calls, "focus")
	if f.panicOnFocus {
		panic("SetFocus exploded")
	}
	f.focused = h
	return f.focusOK
}

func (f *fakeWS) count(name string) int {
	n := 0
	for _, c := range f.calls {
		if c == name {
			n++
		}
	}
	return n
}

type fakeResolver struct{ control win32.HWND }

func (r fakeResolver) ResolveTarget(w win32.HWND) focus.Target {
	return focus.Target{Window: w, Control: r.control, Strategy: "fake"}
}

func target() focus.Target {
	return focus.Target{Window: 100, Control: 101, Strategy: "thread-focus"}
}

func TestActivateSequence(t *testing.T) {
	ws := newFakeWS()
	res, err := New(ws, nil, Timing{}, nil).Activate(context.Background(), target())
	if err != nil {
		t.Fatalf("Activate failed: %v", err)
	}
	if !res.Foreground || !res.Attached || !res.Focused || res.Control != 101 {
		t.Fatalf("unexpected result %+v", res)
	}
	want := "allow,show,foreground,attach,foreground,focus,detach"
	if got := strings.Join(ws.calls, ","); got != want {
		t.Fatalf("calls = %s, want %s", got, want)
	}
	if ws.showCmd != win32.SW_SHOW {
		t.Fatalf("show cmd = %d, want SW_SHOW", ws.showCmd)
	}
}

func TestActivateRestoresMinimized(t *testing.T) {
	ws := newFakeWS()
	ws.iconic = true
	if _, err := New(ws, nil, Timing{}, nil).Activate(context.Background(), target()); err != nil {
		t.Fatalf("Activate failed: %v", err)
	}
	if ws.showCmd != win32.SW_RESTORE {
		t.Fatalf("show cmd = %d, want SW_RESTORE", ws.showCmd)
	}
}

func TestActivateAttachFailureStillFocuses(t *testing.T) {
	ws := newFakeWS()
	ws.attachOK = false
	res, err := New(ws, nil, Timing{}, nil).Activate(context.Background(), target())
	if err != nil {
		t.Fatalf("Activate failed: %v", err)
	}
	if res.Attached {
		t.Fatal("result should report not attached")
	}
	if ws.count("focus") != 1 {
		t.Fatal("SetFocus not attempted after failed attach")
	}
	if ws.count("detach") != 0 {
		t.Fatal("detach issued for a link that was never made")
	}
}

func TestActivateDetachesOnPanic(t *testing.T) {
	ws := newFakeWS()
	ws.panicOnFocus = true

	func() {
		defer func() {
			if recover() == nil {
				t.Fatal("expected panic to propagate")
			}
		}()
		_, _ = New(ws, nil, Timing{}, nil).Activate(context.Background(), target())
	}()

	if ws.count("attach") != 1 || ws.count("detach") != 1 {
		t.Fatalf("attach/detach not balanced: %v", ws.calls)
	}
}

func TestActivateResolvesMissingControl(t *testing.T) {
	ws := newFakeWS()
	tgt := focus.Target{Window: 100}
	res, err := New(ws, fakeResolver{control: 555}, Timing{}, nil).Activate(context.Background(), tgt)
	if err != nil {
		t.Fatalf("Activate failed: %v", err)
	}
	if res.Control != 555 || ws.focused != 555 {
		t.Fatalf("focused %v, want 555", ws.focused)
	}

	ws = newFakeWS()
	res, _ = New(ws, nil, Timing{}, nil).Activate(context.Background(), tgt)
	if res.Control != 100 {
		t.Fatalf("without resolver control = %v, want window", res.Control)
	}
}

func TestActivateFailures(t *testing.T) {
	t.Run("window gone", func(t *testing.T) {
		ws := newFakeWS()
		ws.valid = false
		_, err := New(ws, nil, Timing{}, nil).Activate(context.Background(), target())
		if !apperr.Is(err, apperr.Activation) {
			t.Fatalf("expected activation error, got %v", err)
		}
		if len(ws.calls) != 0 {
			t.Fatalf("calls made for a closed window: %v", ws.calls)
		}
	})

	t.Run("no target", func(t *testing.T) {
		ws := newFakeWS()
		_, err := New(ws, nil, Timing{}, nil).Activate(context.Background(), focus.NoTarget)
		if !apperr.Is(err, apperr.Activation) {
			t.Fatalf("expected activation error, got %v", err)
		}
	})

	t.Run("nothing worked", func(t *testing.T) {
		ws := newFakeWS()
		ws.foregroundOK = false
		ws.focusOK = false
		res, err := New(ws, nil, Timing{}, nil).Activate(context.Background(), target())
		if !apperr.Is(err, apperr.Activation) {
			t.Fatalf("expected activation error, got %v", err)
		}
		if ws.count("detach") != 1 {
			t.Fatal("detach missing after failed activation")
		}
		if res.Foreground || res.Focused {
			t.Fatalf("unexpected result %+v", res)
		}
	})

	t.Run("context canceled", func(t *testing.T) {
		ws := newFakeWS()
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		_, err := New(ws, nil, DefaultTiming(), nil).Activate(ctx, target())
		if !apperr.Is(err, apperr.Activation) {
			t.Fatalf("expected activation error, got %v", err)
		}
		if ws.count("attach") != ws.count("detach") {
			t.Fatalf("attach/detach not balanced: %v", ws.calls)
		}
	})
}

func TestThreadInputGuard(t *testing.T) {
	ws := newFakeWS()

	g := AttachThreadInput(ws, 1, 2)
	if !g.Attached() {
		t.Fatal("guard should be attached")
	}
	g.Release()
	g.Release()
	if ws.count("detach") != 1 {
		t.Fatalf("detach count = %d, want 1", ws.count("detach"))
	}

	same := AttachThreadInput(ws, 3, 3)
	if !same.Attached() || ws.count("attach") != 1 {
		t.Fatal("same-thread guard should not call AttachThreadInput")
	}
	same.Release()

	zero := AttachThreadInput(ws, 0, 3)
	if zero.Attached() {
		t.Fatal("guard with unknown thread should not be attached")
	}
}
