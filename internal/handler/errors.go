package handler

import (
	"errors"
	"fmt"
)

type Kind int

const (
	KindInternal Kind = iota
	KindUnavailable
	KindBadRequest
	KindNotFound
	KindGeneration
	KindUpload
)

func (k Kind) String() string {
	switch k {
	case KindUnavailable:
		return "unavailable"
	case KindBadRequest:
		return "bad request"
	case KindNotFound:
		return "not found"
	case KindGeneration:
		return "generation failed"
	case KindUpload:
		return "upload failed"
	default:
		return "internal"
	}
}

// Error tags a failure with the stage that produced it.
type Error struct {
	Kind Kind
	Msg  string
	Err  error
}

func (e *Error) Error() string {
	if e.Err == nil {
		return e.Msg
	}
	return fmt.Sprintf("%s: %v", e.Msg, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

func newError(kind Kind, msg string, err error) *Error {
	return &Error{Kind: kind, Msg: msg, Err: err}
}

// BadRequest marks a malformed client input.
func BadRequest(msg string, err error) error {
	return newError(KindBadRequest, msg, err)
}

// KindOf reports the Kind of err, KindInternal when err carries none.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindInternal
}

// Unavailable marks a dependency that is not configured.
func Unavailable(msg string, err error) error {
	return newError(KindUnavailable, msg, err)
}
