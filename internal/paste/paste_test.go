package paste

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"

	"ru2en/internal/apperr"
	"ru2en/internal/win32"
)

type journal struct{ events []string }

func (j *journal) add(format string, args ...any) {
	j.events = append(j.events, fmt.Sprintf(format, args...))
}

type fakeClipboard struct {
	j    *journal
	text string
	err  error
}

func (c *fakeClipboard) WriteAll(text string) error {
	c.j.add("clipboard")
	if c.err != nil {
		return c.err
	}
	c.text = text
	return nil
}

type fakeKeyboard struct{ j *journal }

func (k *fakeKeyboard) KeyUp(vk uint16) { k.j.add("up:%#x", vk) }

type fakeStrategy struct {
	j     *journal
	name  string
	err   error
	calls int
}

func (s *fakeStrategy) Name() string { return s.name }

func (s *fakeStrategy) SendPaste() error {
	s.calls++
	s.j.add("send:%s", s.name)
	return s.err
}

func setup(primaryErr, fallbackErr error) (*Injector, *journal, *fakeClipboard, *fakeStrategy, *fakeStrategy) {
	j := &journal{}
	clip := &fakeClipboard{j: j}
	primary := &fakeStrategy{j: j, name: "keybd-event", err: primaryErr}
	fallback := &fakeStrategy{j: j, name: "send-input", err: fallbackErr}
	inj := New(clip, &fakeKeyboard{j: j}, []Strategy{primary, fallback}, Timing{}, nil)
	return inj, j, clip, primary, fallback
}

func TestPastePrimaryOnly(t *testing.T) {
	inj, j, clip, primary, fallback := setup(nil, nil)

	used, err := inj.Paste(context.Background(), "hello")
	if err != nil {
		t.Fatalf("Paste failed: %v", err)
	}
	if used != "keybd-event" {
		t.Fatalf("used %s, want keybd-event", used)
	}
	if primary.calls != 1 || fallback.calls != 0 {
		t.Fatalf("calls primary=%d fallback=%d, want exactly one paste", primary.calls, fallback.calls)
	}
	if clip.text != "hello" {
		t.Fatalf("clipboard = %q", clip.text)
	}

	want := []string{"clipboard", "up:0x11", "up:0x12", "up:0x10", "send:keybd-event"}
	if got, w := strings.Join(j.events, ","), strings.Join(want, ","); got != w {
		t.Fatalf("events = %s, want %s", got, w)
	}
}

func TestPasteFallback(t *testing.T) {
	inj, _, _, primary, fallback := setup(errors.New("keybd_event unavailable"), nil)

	used, err := inj.Paste(context.Background(), "hello")
	if err != nil {
		t.Fatalf("Paste failed: %v", err)
	}
	if used != "send-input" {
		t.Fatalf("used %s, want send-input", used)
	}
	if primary.calls != 1 || fallback.calls != 1 {
		t.Fatalf("calls primary=%d fallback=%d", primary.calls, fallback.calls)
	}
}

func TestPasteBothFail(t *testing.T) {
	inj, _, clip, _, _ := setup(errors.New("a"), errors.New("b"))

	_, err := inj.Paste(context.Background(), "keep me")
	if !apperr.Is(err, apperr.Injection) {
		t.Fatalf("expected injection error, got %v", err)
	}
	if !strings.Contains(apperr.MessageOf(err), "Ctrl+V") {
		t.Fatalf("message %q should point to manual paste", apperr.MessageOf(err))
	}
	if clip.text != "keep me" {
		t.Fatalf("clipboard = %q, text must stay for manual paste", clip.text)
	}
}

func TestPasteClipboardFailureSkipsKeystroke(t *testing.T) {
	inj, _, clip, primary, fallback := setup(nil, nil)
	clip.err = errors.New("locked")

	if _, err := inj.Paste(context.Background(), "x"); !apperr.Is(err, apperr.Injection) {
		t.Fatalf("expected injection error, got %v", err)
	}
	if primary.calls+fallback.calls != 0 {
		t.Fatal("keystroke sent without clipboard content")
	}
}

func TestPasteNoStrategies(t *testing.T) {
	j := &journal{}
	inj := New(&fakeClipboard{j: j}, &fakeKeyboard{j: j}, nil, Timing{}, nil)
	if _, err := inj.Paste(context.Background(), "x"); !apperr.Is(err, apperr.Injection) {
		t.Fatalf("expected injection error, got %v", err)
	}
}

type fakeSender struct {
	key  uint16
	mods []uint16
}

func (f *fakeSender) SendChord(key uint16, mods ...uint16) error {
	f.key, f.mods = key, mods
	return nil
}

func TestSendInputStrategySendsCtrlV(t *testing.T) {
	fs := &fakeSender{}
	s := DefaultStrategies(fs)
	if len(s) != 2 || s[0].Name() != "keybd-event" || s[1].Name() != "send-input" {
		t.Fatalf("unexpected default order")
	}
	if err := s[1].SendPaste(); err != nil {
		t.Fatalf("SendPaste failed: %v", err)
	}
	if fs.key != win32.VK_V || len(fs.mods) != 1 || fs.mods[0] != win32.VK_CONTROL {
		t.Fatalf("chord = %#x %v", fs.key, fs.mods)
	}
}
