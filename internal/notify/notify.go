// Package notify shows desktop notifications for finished runs.
package notify

import (
	"github.com/gen2brain/beeep"

	"ru2en/internal/logger"
	"ru2en/internal/status"
)

// AppName is the notification title.
const AppName = "ru2en"

// Sender delivers one notification.
type Sender func(title, message string) error

// Beeep sends through the platform notification center.
func Beeep(title, message string) error {
	return beeep.Notify(title, message, "")
}

// Notifier turns terminal status events into notifications.
type Notifier struct {
	enabled bool
	send    Sender
	log     *logger.Logger
}

// New creates a notifier. A nil sender uses Beeep.
func New(enabled bool, send Sender, log *logger.Logger) *Notifier {
	if send == nil {
		send = Beeep
	}
	if log == nil {
		log = logger.Nop()
	}
	return &Notifier{enabled: enabled, send: send, log: log}
}

// Handle notifies about e if it ends a run. Progress is left to the tray
// tooltip.
func (n *Notifier) Handle(e status.Event) {
	if !n.enabled || !e.Terminal() || e.Message == "" {
		return
	}
	title := AppName
	switch e.Kind {
	case status.Warning:
		title += ": attention"
	case status.Failure:
		title += ": error"
	}
	if err := n.send(title, e.Message); err != nil {
		n.log.Debug("notification failed", logger.Error(err))
	}
}
