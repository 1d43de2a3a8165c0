// Package tray is the UI loop: it drains pipeline status events on its own
// goroutine, shows the latest one and fans it out to other sinks.
package tray

import (
	"context"
	_ "embed"
	"unicode/utf8"

	"ru2en/internal/logger"
	"ru2en/internal/status"
)

//go:embed icon.ico
var icon []byte

// Windows truncates notification-area tooltips at 128 UTF-16 units.
const maxTooltip = 120

const title = "ru2en"

// Options wire the tray to the rest of the program.
type Options struct {
	Events   <-chan status.Event
	Handlers []func(status.Event)
	// LastText and Copy back the "Copy last text" menu item.
	LastText func() string
	Copy     func(string) error
	// OnQuit runs when the user picks Quit.
	OnQuit func()
	Log    *logger.Logger
}

// Tooltip renders an event for the tray icon.
func Tooltip(e status.Event) string {
	s := title
	if e.Message != "" {
		s += ": " + e.Message
	}
	if utf8.RuneCountInString(s) <= maxTooltip {
		return s
	}
	r := []rune(s)
	return string(r[:maxTooltip-1]) + "…"
}

// drain delivers events to show and every handler until ctx ends or the
// channel closes.
func drain(ctx context.Context, opts Options, show func(status.Event)) {
	log := opts.Log
	if log == nil {
		log = logger.Nop()
	}
	for {
		select {
		case <-ctx.Done():
			return
		case e, ok := <-opts.Events:
			if !ok {
				return
			}
			fields := []logger.Field{
				logger.String("run", e.RunID),
				logger.String("state", e.State.String()),
				logger.String("kind", e.Kind.String()),
			}
			switch e.Kind {
			case status.Failure:
				log.Warn(e.Message, fields...)
			default:
				log.Info(e.Message, fields...)
			}
			if show != nil {
				show(e)
			}
			for _, h := range opts.Handlers {
				h(e)
			}
		}
	}
}

func copyLast(opts Options, log *logger.Logger) {
	if opts.LastText == nil || opts.Copy == nil {
		return
	}
	if log == nil {
		log = logger.Nop()
	}
	text := opts.LastText()
	if text == "" {
		log.Info("no text to copy yet")
		return
	}
	if err := opts.Copy(text); err != nil {
		log.Warn("copy last text failed", logger.Error(err))
		return
	}
	log.Info("last text copied to clipboard")
}
