package rooms

import (
	"context"
	"errors"
	"fmt"
)

// Kind classifies why a room operation did not happen.
type Kind uint8

const (
	KindUnknown Kind = iota
	KindNotAuthorized
	KindNotInRoom
	KindInvalidArgument
	KindExternalCallFailed
	KindNotFound
)

func (k Kind) String() string {
	switch k {
	case KindNotAuthorized:
		return "not_authorized"
	case KindNotInRoom:
		return "not_in_room"
	case KindInvalidArgument:
		return "invalid_argument"
	case KindExternalCallFailed:
		return "external_call_failed"
	case KindNotFound:
		return "not_found"
	default:
		return "unknown"
	}
}

// Error carries a user-facing Reason next to the classifying Kind.
type Error struct {
	Kind   Kind
	Reason string
	Err    error
}

var (
	ErrNotAuthorized      = &Error{Kind: KindNotAuthorized}
	ErrNotInRoom          = &Error{Kind: KindNotInRoom}
	ErrInvalidArgument    = &Error{Kind: KindInvalidArgument}
	ErrExternalCallFailed = &Error{Kind: KindExternalCallFailed}
	ErrNotFound           = &Error{Kind: KindNotFound}
)

// ErrUnknownRoom is returned by Platform implementations when the referenced
// channel does not exist (anymore).
var ErrUnknownRoom = errors.New("unknown room")

func (e *Error) Error() string {
	msg := e.Kind.String()
	if e.Reason != "" {
		msg += ": " + e.Reason
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Is matches the bare sentinels above by kind.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok || t.Reason != "" || t.Err != nil {
		return false
	}
	return t.Kind == e.Kind
}

func newError(kind Kind, format string, args ...interface{}) *Error {
	return &Error{Kind: kind, Reason: fmt.Sprintf(format, args...)}
}

// KindOf returns the Kind of err, or KindUnknown.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindUnknown
}

// ReasonOf returns the user-facing reason of err.
func ReasonOf(err error) string {
	var e *Error
	if errors.As(err, &e) && e.Reason != "" {
		return e.Reason
	}
	if err == nil {
		return ""
	}
	return err.Error()
}

func externalError(op string, err error) *Error {
	switch {
	case errors.Is(err, ErrUnknownRoom):
		return &Error{Kind: KindNotFound, Reason: "the room no longer exists", Err: err}
	case errors.Is(err, context.DeadlineExceeded):
		return &Error{Kind: KindExternalCallFailed, Reason: op + " timed out", Err: err}
	default:
		return &Error{Kind: KindExternalCallFailed, Reason: op + " failed", Err: err}
	}
}
