package paste

import (
	"github.com/micmonay/keybd_event"

	"ru2en/internal/win32"
)

// KeybdEvent sends Ctrl+V through the legacy keybd_event path.
type KeybdEvent struct{}

func (KeybdEvent) Name() string { return "keybd-event" }

func (KeybdEvent) SendPaste() error {
	kb, err := keybd_event.NewKeyBonding()
	if err != nil {
		return err
	}
	kb.HasCTRL(true)
	kb.SetKeys(keybd_event.VK_V)
	return kb.Launching()
}

// ChordSender is satisfied by win32.Desktop.
type ChordSender interface {
	SendChord(key uint16, mods ...uint16) error
}

// SendInput sends Ctrl+V as one SendInput batch.
type SendInput struct {
	Sender ChordSender
}

func (SendInput) Name() string { return "send-input" }

func (s SendInput) SendPaste() error {
	return s.Sender.SendChord(win32.VK_V, win32.VK_CONTROL)
}

// DefaultStrategies returns keybd_event first and SendInput as fallback.
func DefaultStrategies(sender ChordSender) []Strategy {
	return []Strategy{KeybdEvent{}, SendInput{Sender: sender}}
}
