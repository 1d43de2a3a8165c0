//go:build windows

package tray

import (
	"context"

	"github.com/getlantern/systray"

	"ru2en/internal/logger"
	"ru2en/internal/status"
)

// Run shows the notification-area icon and blocks until Quit is picked or
// ctx ends.
func Run(ctx context.Context, opts Options) {
	log := opts.Log
	if log == nil {
		log = logger.Nop()
	}
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	onReady := func() {
		systray.SetIcon(icon)
		systray.SetTitle(title)
		systray.SetTooltip(Tooltip(status.Event{Message: "idle"}))
		mCopy := systray.AddMenuItem("Copy last text", "Put the last result on the clipboard")
		systray.AddSeparator()
		mQuit := systray.AddMenuItem("Quit", "Quit ru2en")

		go drain(ctx, opts, func(e status.Event) {
			systray.SetTooltip(Tooltip(e))
		})

		go func() {
			for {
				select {
				case <-mCopy.ClickedCh:
					copyLast(opts, log)
				case <-mQuit.ClickedCh:
					log.Info("quit requested from tray")
					systray.Quit()
					return
				case <-ctx.Done():
					systray.Quit()
					return
				}
			}
		}()
	}
	onExit := func() {
		cancel()
		if opts.OnQuit != nil {
			opts.OnQuit()
		}
	}
	systray.Run(onReady, onExit)
}
