package rrule

import (
	"errors"
	"fmt"
)

// ErrorKind classifies engine errors.
type ErrorKind string

const (
	KindInvalidRule     ErrorKind = "invalid_rule"
	KindInvalidArgument ErrorKind = "invalid_argument"
	KindLimitExceeded   ErrorKind = "limit_exceeded"
)

var (
	// ErrInvalidRule is matched by errors.Is for any rule text the parser rejects.
	ErrInvalidRule = errors.New("invalid recurrence rule")
	// ErrInvalidArgument is matched for bad caller arguments (empty range, N <= 0).
	ErrInvalidArgument = errors.New("invalid argument")
	// ErrLimitExceeded is matched when a query would expand past the configured bounds.
	ErrLimitExceeded = errors.New("expansion limit exceeded")
)

// Error is returned by every engine operation.
type Error struct {
	Kind    ErrorKind
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Is matches the sentinel belonging to the error's kind.
func (e *Error) Is(target error) bool {
	switch target {
	case ErrInvalidRule:
		return e.Kind == KindInvalidRule
	case ErrInvalidArgument:
		return e.Kind == KindInvalidArgument
	case ErrLimitExceeded:
		return e.Kind == KindLimitExceeded
	}
	return false
}

func invalidRule(format string, args ...any) *Error {
	return &Error{Kind: KindInvalidRule, Message: fmt.Sprintf(format, args...)}
}

func invalidArgument(format string, args ...any) *Error {
	return &Error{Kind: KindInvalidArgument, Message: fmt.Sprintf(format, args...)}
}

func limitExceeded(format string, args ...any) *Error {
	return &Error{Kind: KindLimitExceeded, Message: fmt.Sprintf(format, args...)}
}
