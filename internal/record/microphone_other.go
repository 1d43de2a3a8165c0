//go:build !windows

package record

import "errors"

type unavailable struct{}

// DefaultMicrophone returns a microphone that always fails outside Windows.
func DefaultMicrophone() Microphone { return unavailable{} }

func (unavailable) Open(int, int) (Stream, error) {
	return nil, errors.New("audio capture is only supported on windows")
}
