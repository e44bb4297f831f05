package cutup

import (
	"fmt"

	"github.com/ossrs/go-oryx-lib/errors"
)

// Kind classifies why a cut-up run failed.
type Kind int

const (
	// KindUnknown is reported for errors that did not come from this package.
	KindUnknown Kind = iota
	// InputConstraintViolation: the buffer cannot be processed (mono, empty, ragged).
	InputConstraintViolation
	// InvalidParameter: hits per minute, schedule options or weighting are unusable.
	InvalidParameter
	// ConfigurationError: the operation registry is empty or has no weight.
	ConfigurationError
	// Fatal: an internal invariant broke mid-pass.
	Fatal
)

func (k Kind) String() string {
	switch k {
	case InputConstraintViolation:
		return "InputConstraintViolation"
	case InvalidParameter:
		return "InvalidParameter"
	case ConfigurationError:
		return "ConfigurationError"
	case Fatal:
		return "Fatal"
	}
	return "Unknown"
}

// Error is the root cause of every failure reported by the engine.
type Error struct {
	Kind Kind
	Msg  string
}

func (e *Error) Error() string {
	return fmt.Sprintf("%v: %v", e.Kind, e.Msg)
}

// Errorf builds an *Error of the given kind.
func Errorf(kind Kind, format string, a ...any) error {
	return &Error{Kind: kind, Msg: fmt.Sprintf(format, a...)}
}

// KindOf returns the Kind at the root of err, or KindUnknown.
func KindOf(err error) Kind {
	if err == nil {
		return KindUnknown
	}
	if e, ok := errors.Cause(err).(*Error); ok {
		return e.Kind
	}
	return KindUnknown
}

// IsKind reports whether err was caused by a failure of the given kind.
func IsKind(err error, kind Kind) bool {
	return err != nil && KindOf(err) == kind
}
