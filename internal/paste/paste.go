// Package paste puts text on the clipboard and synthesizes Ctrl+V.
//
// Strategies are tried in order and the first success stops the sequence,
// so exactly one paste keystroke reaches the target. WM_PASTE is not used:
// some editors handle both the message and a later keystroke and paste
// twice.
package paste

import (
	"context"
	"errors"
	"fmt"
	"time"

	"ru2en/internal/apperr"
	"ru2en/internal/logger"
	"ru2en/internal/win32"
)

// Clipboard receives the text before the keystroke.
type Clipboard interface {
	WriteAll(text string) error
}

// Keyboard releases keys still held from the hotkey chord.
type Keyboard interface {
	KeyUp(vk uint16)
}

// Strategy sends one paste keystroke.
type Strategy interface {
	Name() string
	SendPaste() error
}

// Timing holds the waits around the keystroke.
type Timing struct {
	// Settle lets the clipboard owner finish before the target reads it.
	Settle time.Duration
	// AfterRelease separates the modifier key-ups from the paste chord.
	AfterRelease time.Duration
}

// DefaultTiming returns the waits used in production.
func DefaultTiming() Timing {
	return Timing{Settle: 220 * time.Millisecond, AfterRelease: 20 * time.Millisecond}
}

// Injector writes the clipboard and fires the first working strategy.
type Injector struct {
	clip       Clipboard
	kb         Keyboard
	strategies []Strategy
	timing     Timing
	log        *logger.Logger
}

// New creates an Injector.
func New(clip Clipboard, kb Keyboard, strategies []Strategy, timing Timing, log *logger.Logger) *Injector {
	if log == nil {
		log = logger.Nop()
	}
	return &Injector{clip: clip, kb: kb, strategies: strategies, timing: timing, log: log}
}

// Copy places text on the clipboard without pasting.
func (i *Injector) Copy(text string) error {
	if err := i.clip.WriteAll(text); err != nil {
		return apperr.Injectionf(err, "Could not write the clipboard: %v", err)
	}
	return nil
}

// Paste writes text to the clipboard and sends the paste keystroke. It
// returns the name of the strategy that fired. The clipboard keeps text
// afterwards whatever the outcome.
func (i *Injector) Paste(ctx context.Context, text string) (string, error) {
	if err := i.Copy(text); err != nil {
		return "", err
	}
	if err := sleep(ctx, i.timing.Settle); err != nil {
		return "", apperr.Injectionf(err, "Paste interrupted. Use Ctrl+V manually.")
	}

	for _, vk := range win32.Modifiers {
		i.kb.KeyUp(vk)
	}
	if err := sleep(ctx, i.timing.AfterRelease); err != nil {
		return "", apperr.Injectionf(err, "Paste interrupted. Use Ctrl+V manually.")
	}

	var errs []error
	for _, s := range i.strategies {
		err := s.SendPaste()
		if err == nil {
			i.log.Debug("paste sent", logger.String("strategy", s.Name()))
			return s.Name(), nil
		}
		i.log.Debug("paste strategy failed", logger.String("strategy", s.Name()), logger.Error(err))
		errs = append(errs, fmt.Errorf("%s: %w", s.Name(), err))
	}
	if len(errs) == 0 {
		errs = append(errs, errors.New("no paste strategy available"))
	}
	return "", apperr.Injectionf(errors.Join(errs...), "Paste failed. Use Ctrl+V manually.")
}

func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
