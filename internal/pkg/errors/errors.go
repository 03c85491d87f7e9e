package errors

import (
	"errors"
	"fmt"
)

var (
	ErrNotFound     = errors.New("not found")
	ErrUnauthorized = errors.New("unauthorized")
	ErrInvalid      = errors.New("invalid")
	ErrRateLimited  = errors.New("rate limited")
	ErrInternal     = errors.New("internal")
)

// Error is a classified failure. It carries only text so that backend
// client error types stay behind the adapter that produced them.
type Error struct {
	kind error
	msg  string
}

func New(kind error, msg string) *Error {
	return &Error{kind: kind, msg: msg}
}

func Newf(kind error, format string, args ...interface{}) *Error {
	return New(kind, fmt.Sprintf(format, args...))
}

func Invalid(msg string) *Error {
	return New(ErrInvalid, msg)
}

func NotFound(msg string) *Error {
	return New(ErrNotFound, msg)
}

func RateLimited(msg string) *Error {
	return New(ErrRateLimited, msg)
}

// Internal flattens err into an internal error with the given context.
func Internal(op string, err error) *Error {
	if err == nil {
		return New(ErrInternal, op)
	}
	return New(ErrInternal, op+": "+err.Error())
}

func (e *Error) Error() string {
	if e.msg == "" {
		return e.kind.Error()
	}
	return e.msg
}

func (e *Error) Is(target error) bool {
	return target == e.kind
}

func (e *Error) Kind() error {
	return e.kind
}

func (e *Error) Message() string {
	return e.msg
}

// KindOf reports the taxonomy kind of err. Unclassified errors are internal.
func KindOf(err error) error {
	var e *Error
	if errors.As(err, &e) {
		return e.kind
	}
	switch {
	case errors.Is(err, ErrUnauthorized):
		return ErrUnauthorized
	case errors.Is(err, ErrInvalid):
		return ErrInvalid
	case errors.Is(err, ErrNotFound):
		return ErrNotFound
	case errors.Is(err, ErrRateLimited):
		return ErrRateLimited
	}
	return ErrInternal
}

func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

func IsRateLimited(err error) bool {
	return errors.Is(err, ErrRateLimited)
}
