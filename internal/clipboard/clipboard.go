// Package clipboard wraps the system clipboard.
package clipboard

import (
	"fmt"

	"github.com/atotto/clipboard"
)

// System is the OS clipboard.
type System struct{}

// WriteAll replaces the clipboard content with text.
func (System) WriteAll(text string) error {
	if err := clipboard.WriteAll(text); err != nil {
		return fmt.Errorf("clipboard write failed: %w", err)
	}
	return nil
}

// Unsupported reports whether the clipboard backend is missing, as on
// Linux without xclip or xsel.
func Unsupported() bool { return clipboard.Unsupported }
