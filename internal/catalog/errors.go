package catalog

import (
	"errors"
	"fmt"
)

// Kind classifies a catalog failure.
type Kind string

const (
	KindNotFound  Kind = "not_found"
	KindNetwork   Kind = "network"
	KindMalformed Kind = "malformed"
)

// ErrCanceled is returned when the caller cancels an in-flight request. It is
// not an *Error: cancellation is never reported as a catalog failure.
var ErrCanceled = errors.New("catalog: request canceled")

// Sentinels for errors.Is checks against a failure kind.
var (
	ErrNotFound  = &Error{Kind: KindNotFound}
	ErrNetwork   = &Error{Kind: KindNetwork}
	ErrMalformed = &Error{Kind: KindMalformed}
)

// Error is a typed catalog failure.
type Error struct {
	Kind    Kind
	Op      string
	Status  int
	Message string
	cause   error
}

func (e *Error) Error() string {
	msg := fmt.Sprintf("catalog: %s", e.Kind)
	if e.Op != "" {
		msg = fmt.Sprintf("catalog: %s: %s", e.Op, e.Kind)
	}
	if e.Status != 0 {
		msg = fmt.Sprintf("%s (status %d)", msg, e.Status)
	}
	if e.Message != "" {
		msg = msg + ": " + e.Message
	}
	if e.cause != nil {
		msg = fmt.Sprintf("%s: %v", msg, e.cause)
	}
	return msg
}

// Unwrap returns the underlying transport or decode error, if any.
func (e *Error) Unwrap() error {
	return e.cause
}

// Is matches any *Error with the same Kind.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Kind == e.Kind
}

func notFound(op, message string) *Error {
	return &Error{Kind: KindNotFound, Op: op, Message: message}
}

func network(op string, status int, cause error) *Error {
	return &Error{Kind: KindNetwork, Op: op, Status: status, cause: cause}
}

func malformed(op string, cause error) *Error {
	return &Error{Kind: KindMalformed, Op: op, cause: cause}
}
