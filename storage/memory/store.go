// memory based implementation for tests and the CLI's scratch mode
package memory

import (
	"context"
	"io"
	"log/slog"
	"slices"
	"sync"
	"time"

	"github.com/jakobjanot/pg-rrule/rrule"
	"github.com/jakobjanot/pg-rrule/storage"
)

// Store implements storage.Store using an in-memory map
type Store struct {
	mu     sync.RWMutex
	events map[string]*storage.Event // key: event ID

	engine *rrule.Engine
	logger *slog.Logger
	now    func() time.Time
}

var _ storage.Store = (*Store)(nil)

// Option configures a Store
type Option func(*Store)

// WithEngine sets the engine used to validate recurrence rules
func WithEngine(engine *rrule.Engine) Option {
	return func(s *Store) {
		if engine != nil {
			s.engine = engine
		}
	}
}

// WithLogger sets the logger for the store
func WithLogger(logger *slog.Logger) Option {
	return func(s *Store) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// New creates a new in-memory storage
func New(opts ...Option) *Store {
	s := &Store{
		events: make(map[string]*storage.Event),
		engine: rrule.NewEngine(),
		logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Store) CreateEvent(_ context.Context, ev *storage.Event) error {
	if err := storage.PrepareEvent(ev, s.engine, s.now()); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.events[ev.ID]; exists {
		return storage.AlreadyExists(ev.ID)
	}
	s.events[ev.ID] = cloneEvent(ev)
	s.logger.Debug("event created", "id", ev.ID, "title", ev.Title)
	return nil
}

func (s *Store) GetEvent(_ context.Context, id string) (*storage.Event, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ev, ok := s.events[id]
	if !ok {
		return nil, storage.NotFound(id)
	}
	return cloneEvent(ev), nil
}

func (s *Store) ListEvents(_ context.Context) ([]storage.Event, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	events := make([]storage.Event, 0, len(s.events))
	for _, ev := range s.events {
		events = append(events, *cloneEvent(ev))
	}
	storage.SortEvents(events)
	return events, nil
}

func (s *Store) DeleteEvent(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.events[id]; !ok {
		return storage.NotFound(id)
	}
	delete(s.events, id)
	s.logger.Debug("event deleted", "id", id)
	return nil
}

func (s *Store) Close() error {
	return nil
}

func cloneEvent(ev *storage.Event) *storage.Event {
	c := *ev
	c.RDates = slices.Clone(ev.RDates)
	c.ExDates = slices.Clone(ev.ExDates)
	return &c
}
