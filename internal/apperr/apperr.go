// Package apperr holds the error taxonomy shared by the dictation pipeline.
// Every failure that reaches the user is one of these kinds; Message is the
// text shown in the status surface.
package apperr

import (
	"errors"
	"fmt"
)

// Kind classifies a failure.
type Kind int

const (
	Internal Kind = iota
	Configuration
	Capture
	Service
	Activation
	Injection
)

func (k Kind) String() string {
	switch k {
	case Configuration:
		return "configuration"
	case Capture:
		return "capture"
	case Service:
		return "service"
	case Activation:
		return "activation"
	case Injection:
		return "injection"
	default:
		return "internal"
	}
}

// Fatal reports whether a failure of this kind aborts the pipeline run.
// Activation and injection failures leave the text on the clipboard.
func (k Kind) Fatal() bool {
	return k != Activation && k != Injection
}

// Error is a classified failure.
type Error struct {
	Kind    Kind
	Message string
	Cause   error
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s (cause: %v)", e.Kind, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error { return e.Cause }

// New creates a classified error.
func New(kind Kind, message string, cause error) *Error {
	return &Error{Kind: kind, Message: message, Cause: cause}
}

func Configurationf(cause error, format string, args ...any) *Error {
	return New(Configuration, fmt.Sprintf(format, args...), cause)
}

func Capturef(cause error, format string, args ...any) *Error {
	return New(Capture, fmt.Sprintf(format, args...), cause)
}

func Servicef(cause error, format string, args ...any) *Error {
	return New(Service, fmt.Sprintf(format, args...), cause)
}

func Activationf(cause error, format string, args ...any) *Error {
	return New(Activation, fmt.Sprintf(format, args...), cause)
}

func Injectionf(cause error, format string, args ...any) *Error {
	return New(Injection, fmt.Sprintf(format, args...), cause)
}

// KindOf returns the kind of the first classified error in the chain, or
// Internal when there is none.
func KindOf(err error) Kind {
	var ae *Error
	if errors.As(err, &ae) {
		return ae.Kind
	}
	return Internal
}

// Is reports whether err carries the given kind.
func Is(err error, kind Kind) bool {
	var ae *Error
	return errors.As(err, &ae) && ae.Kind == kind
}

// MessageOf returns the user-facing text of err.
func MessageOf(err error) string {
	if err == nil {
		return ""
	}
	var ae *Error
	if errors.As(err, &ae) {
		if ae.Cause != nil && ae.Kind == Service {
			return fmt.Sprintf("%s: %v", ae.Message, ae.Cause)
		}
		return ae.Message
	}
	return err.Error()
}
