// Package errx provides application error kinds shared by the services and the HTTP layer.
package errx

import (
	"errors"
	"fmt"
)

// Kind classifies an error for callers that need to decide how to present it.
type Kind uint8

const (
	Unknown Kind = iota
	NotFound
	Conflict
	ValidationFailed
	Unauthenticated
	Forbidden
	Internal
)

// Error carries the operation that failed, its kind and the underlying cause.
type Error struct {
	Op   string
	Kind Kind
	Err  error
}

// E builds an *Error. A nil err yields nil so it can wrap a call result directly.
func E(op string, kind Kind, err error) error {
	if err == nil {
		return nil
	}

	return &Error{
		Op:   op,
		Kind: kind,
		Err:  err,
	}
}

// String returns the string representation of the error kind.
func (k Kind) String() string {
	switch k {
	case Unknown:
		return "Unknown"
	case NotFound:
		return "NotFound"
	case Conflict:
		return "Conflict"
	case ValidationFailed:
		return "ValidationFailed"
	case Unauthenticated:
		return "Unauthenticated"
	case Forbidden:
		return "Forbidden"
	case Internal:
		return "Internal"
	default:
		return fmt.Sprintf("Kind(%d)", k)
	}
}

func (e *Error) Error() string {
	if e.Err == nil {
		return e.Op
	}

	if e.Op == "" {
		return e.Err.Error()
	}

	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// KindOf returns the kind of the outermost *Error in the chain, or Unknown.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}

	return Unknown
}

// Is reports whether err carries the given kind.
func Is(err error, kind Kind) bool {
	return err != nil && KindOf(err) == kind
}
