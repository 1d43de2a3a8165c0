package tray

import (
	"context"
	"errors"
	"strings"
	"testing"
	"unicode/utf8"

	"ru2en/internal/status"
)

func TestTooltip(t *testing.T) {
	if got := Tooltip(status.Event{}); got != "ru2en" {
		t.Fatalf("Tooltip(empty) = %q", got)
	}
	if got := Tooltip(status.Event{Message: "Processing…"}); got != "ru2en: Processing…" {
		t.Fatalf("Tooltip = %q", got)
	}
	long := Tooltip(status.Event{Message: strings.Repeat("ы", 300)})
	if utf8.RuneCountInString(long) != maxTooltip || !strings.HasSuffix(long, "…") {
		t.Fatalf("long tooltip not truncated: %d runes", utf8.RuneCountInString(long))
	}
}

func TestDrainFansOut(t *testing.T) {
	events := make(chan status.Event, 3)
	events <- status.Event{Kind: status.Progress, Message: "Recording…"}
	events <- status.Event{Kind: status.Failure, Message: "Nothing recorded."}
	close(events)

	var shown, handled []string
	opts := Options{
		Events:   events,
		Handlers: []func(status.Event){func(e status.Event) { handled = append(handled, e.Message) }},
	}
	drain(context.Background(), opts, func(e status.Event) { shown = append(shown, e.Message) })

	if len(shown) != 2 || len(handled) != 2 || handled[1] != "Nothing recorded." {
		t.Fatalf("shown=%q handled=%q", shown, handled)
	}
}

func TestDrainStopsOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	done := make(chan struct{})
	go func() {
		drain(ctx, Options{Events: make(chan status.Event)}, nil)
		close(done)
	}()
	<-done
}

func TestCopyLast(t *testing.T) {
	var copied []string
	opts := Options{
		LastText: func() string { return "Hello" },
		Copy:     func(s string) error { copied = append(copied, s); return nil },
	}
	copyLast(opts, nil)
	if len(copied) != 1 || copied[0] != "Hello" {
		t.Fatalf("copied = %q", copied)
	}

	opts.LastText = func() string { return "" }
	copyLast(opts, nil)
	if len(copied) != 1 {
		t.Fatal("empty text must not be copied")
	}

	opts.LastText = func() string { return "x" }
	opts.Copy = func(string) error { return errors.New("busy") }
	copyLast(opts, nil)
}
