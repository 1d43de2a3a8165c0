// Package hotkey listens for the global dictation chords.
package hotkey

import (
	"strings"

	"ru2en/internal/apperr"
)

// ID identifies which chord fired.
type ID int

const (
	Toggle ID = 1
	Cancel ID = 2
)

func (id ID) String() string {
	switch id {
	case Toggle:
		return "toggle"
	case Cancel:
		return "cancel"
	default:
		return "unknown"
	}
}

// Handler receives chord presses.
type Handler func(ID)

// Options select the chords and the listening mechanism.
type Options struct {
	Toggle string
	// Cancel is optional.
	Cancel string
	// Hook uses a low-level keyboard hook instead of RegisterHotKey.
	Hook bool
	// HookFallback installs the hook when RegisterHotKey fails.
	HookFallback bool
}

type binding struct {
	id    ID
	chord Chord
}

func (o Options) bindings() ([]binding, error) {
	toggle, err := Parse(o.Toggle)
	if err != nil {
		return nil, apperr.Configurationf(err, "Invalid hotkey: %v", err)
	}
	out := []binding{{id: Toggle, chord: toggle}}
	if strings.TrimSpace(o.Cancel) == "" {
		return out, nil
	}
	cancel, err := Parse(o.Cancel)
	if err != nil {
		return nil, apperr.Configurationf(err, "Invalid cancel key: %v", err)
	}
	if cancel.Mod == toggle.Mod && cancel.VK == toggle.VK {
		return nil, apperr.Configurationf(nil, "Cancel key %q duplicates the hotkey.", o.Cancel)
	}
	return append(out, binding{id: Cancel, chord: cancel}), nil
}

// Listener is a running hotkey loop.
type Listener struct {
	mode     string
	threadID uint32
	done     chan struct{}
}

// Mode reports "register" or "hook".
func (l *Listener) Mode() string { return l.mode }
