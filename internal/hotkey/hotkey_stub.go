//go:build !windows

package hotkey

import (
	"errors"

	"ru2en/internal/logger"
)

// ErrUnsupported is returned by Register outside Windows.
var ErrUnsupported = errors.New("global hotkeys are only supported on Windows")

// Register validates the chords and reports that no listener can run.
func Register(opts Options, _ Handler, _ *logger.Logger) (*Listener, error) {
	if _, err := opts.bindings(); err != nil {
		return nil, err
	}
	return nil, ErrUnsupported
}

// Stop does nothing.
func (l *Listener) Stop() {}
