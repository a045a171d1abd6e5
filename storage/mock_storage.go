package storage

import (
	"context"
	"time"

	"github.com/stretchr/testify/mock"
)

// MockStore implements the Store interface for testing
type MockStore struct {
	mock.Mock
}

var _ Store = (*MockStore)(nil)

func (m *MockStore) CreateEvent(ctx context.Context, ev *Event) error {
	args := m.Called(ctx, ev)
	return args.Error(0)
}

func (m *MockStore) GetEvent(ctx context.Context, id string) (*Event, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*Event), args.Error(1)
}

func (m *MockStore) ListEvents(ctx context.Context) ([]Event, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]Event), args.Error(1)
}

func (m *MockStore) DeleteEvent(ctx context.Context, id string) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func (m *MockStore) Close() error {
	args := m.Called()
	return args.Error(0)
}

// --- Helper methods for creating test data ---

// NewMockEvent creates a test Event with the given rule
func NewMockEvent(id, title string, start time.Time, rule string) Event {
	return Event{
		ID:         id,
		Title:      title,
		Start:      start,
		Recurrence: rule,
		Created:    start,
		Modified:   start,
	}
}
