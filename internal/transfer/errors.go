package transfer

import (
	"errors"
	"fmt"
)

// ErrorKind classifies terminal failures so callers can tell bad input from
// mid-stream breakage without string matching.
type ErrorKind int

const (
	KindInputValidation ErrorKind = iota
	KindIOFailure
	KindTransportFailure
	KindConflict
	KindProtocol
)

func (k ErrorKind) String() string {
	switch k {
	case KindInputValidation:
		return "input validation"
	case KindIOFailure:
		return "io failure"
	case KindTransportFailure:
		return "transport failure"
	case KindConflict:
		return "conflict"
	case KindProtocol:
		return "protocol error"
	}
	return "error"
}

// Error wraps a cause with its taxonomy kind. Cancellation is a session
// state, never an Error.
type Error struct {
	Kind ErrorKind
	Err  error
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s: %v", e.Kind, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

func newError(kind ErrorKind, format string, args ...any) *Error {
	return &Error{Kind: kind, Err: fmt.Errorf(format, args...)}
}

// KindOf extracts the taxonomy kind from err, defaulting to transport.
func KindOf(err error) ErrorKind {
	var te *Error
	if errors.As(err, &te) {
		return te.Kind
	}
	return KindTransportFailure
}

// ErrDestinationBusy signals a second session started against a destination
// that a running session already owns.
var ErrDestinationBusy = errors.New("destination is owned by a running session")
