// Package storage defines the event store shared by the memory, SQLite and
// PostgreSQL backends.
package storage

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// Store persists recurring events. Implementations must be safe for
// concurrent use. Please use the error types provided.
type Store interface {
	// CreateEvent validates ev, assigns an ID when it has none and stores it.
	// Created and Modified are set by the store.
	CreateEvent(ctx context.Context, ev *Event) error
	// GetEvent finds an event by ID.
	GetEvent(ctx context.Context, id string) (*Event, error)
	// ListEvents returns every event ordered by start time, then ID.
	ListEvents(ctx context.Context) ([]Event, error)
	// DeleteEvent removes an event.
	DeleteEvent(ctx context.Context, id string) error
	// Close releases the backend.
	Close() error
}

// Event is a recurring event: the anchor instant plus the rule describing
// how it repeats. An empty Recurrence means a single occurrence.
type Event struct {
	ID          string
	Title       string
	Description string
	Location    string
	Start       time.Time
	Recurrence  string
	RDates      []time.Time // extra occurrences
	ExDates     []time.Time // cancelled occurrences
	Created     time.Time
	Modified    time.Time
}

// ErrorType classifies storage errors
type ErrorType string

const (
	TypeNotFound      ErrorType = "not_found"
	TypeAlreadyExists ErrorType = "already_exists"
	TypeInvalidInput  ErrorType = "invalid_input"
)

var (
	// ErrNotFound is returned when a requested event doesn't exist
	ErrNotFound = errors.New("resource not found")
	// ErrAlreadyExists is returned when an event ID is taken
	ErrAlreadyExists = errors.New("resource already exists")
	// ErrInvalidInput is returned when an event fails validation
	ErrInvalidInput = errors.New("invalid input parameters")
)

var sentinels = map[ErrorType]error{
	TypeNotFound:      ErrNotFound,
	TypeAlreadyExists: ErrAlreadyExists,
	TypeInvalidInput:  ErrInvalidInput,
}

// Error represents a storage-related error
type Error struct {
	Type    ErrorType
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Type, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Type, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Is matches the sentinel of the error's type, so that
// errors.Is(err, storage.ErrNotFound) works for every *Error.
func (e *Error) Is(target error) bool {
	return sentinels[e.Type] == target
}

// NotFound reports a missing event
func NotFound(id string) *Error {
	return &Error{Type: TypeNotFound, Message: fmt.Sprintf("event %q not found", id)}
}

// AlreadyExists reports an ID collision
func AlreadyExists(id string) *Error {
	return &Error{Type: TypeAlreadyExists, Message: fmt.Sprintf("event %q already exists", id)}
}

// InvalidInput reports an event that failed validation
func InvalidInput(message string, err error) *Error {
	return &Error{Type: TypeInvalidInput, Message: message, Err: err}
}
