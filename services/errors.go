package services

import (
	"errors"
	"fmt"
)

type Kind int

const (
	KindInvalidInput Kind = iota + 1
	KindNotFound
	KindConflict
	KindForbidden
	KindUpstream
)

func (k Kind) String() string {
	switch k {
	case KindInvalidInput:
		return "invalid input"
	case KindNotFound:
		return "not found"
	case KindConflict:
		return "conflict"
	case KindForbidden:
		return "forbidden"
	case KindUpstream:
		return "upstream failure"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

// Error is the service-layer failure type; Msg is safe to show to clients.
type Error struct {
	Kind Kind
	Msg  string
	Err  error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Msg, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Msg)
}

func (e *Error) Unwrap() error { return e.Err }

// KindOf reports the Kind of err; anything unclassified is an upstream failure.
func KindOf(err error) Kind {
	var se *Error
	if errors.As(err, &se) {
		return se.Kind
	}
	return KindUpstream
}

// Message returns the client-facing message carried by err.
func Message(err error) string {
	var se *Error
	if errors.As(err, &se) {
		return se.Msg
	}
	return "Internal server error"
}

func invalid(msg string) error            { return &Error{Kind: KindInvalidInput, Msg: msg} }
func notFound(msg string) error           { return &Error{Kind: KindNotFound, Msg: msg} }
func conflict(msg string) error           { return &Error{Kind: KindConflict, Msg: msg} }
func forbidden(msg string) error          { return &Error{Kind: KindForbidden, Msg: msg} }
func upstream(msg string, err error) error { return &Error{Kind: KindUpstream, Msg: msg, Err: err} }
