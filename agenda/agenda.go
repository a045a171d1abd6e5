// Package agenda answers calendar questions over every stored event: what
// happens next, what happens in a window and how often each event occurs.
package agenda

import (
	"cmp"
	"context"
	"fmt"
	"io"
	"log/slog"
	"slices"
	"time"

	"github.com/jakobjanot/pg-rrule/recurrence"
	"github.com/jakobjanot/pg-rrule/rrule"
	"github.com/jakobjanot/pg-rrule/storage"
	"github.com/samber/mo"
	"golang.org/x/sync/errgroup"
)

// defaultConcurrency bounds how many events are expanded at once
const defaultConcurrency = 8

// Occurrence is one instance of a stored event
type Occurrence struct {
	EventID string    `json:"event_id"`
	Title   string    `json:"title"`
	Start   time.Time `json:"start"`
	Added   bool      `json:"added,omitempty"`
}

// Next is the next instance of an event, if it has one
type Next struct {
	EventID string               `json:"event_id"`
	Title   string               `json:"title"`
	Next    mo.Option[time.Time] `json:"next"`
}

// Stat summarizes an event's instances in a window
type Stat struct {
	EventID string    `json:"event_id"`
	Title   string    `json:"title"`
	Count   int       `json:"count"`
	First   time.Time `json:"first"`
	Last    time.Time `json:"last"`
}

// Service expands stored events
type Service struct {
	store       storage.Store
	expander    *recurrence.Expander
	logger      *slog.Logger
	concurrency int
}

// Option configures a Service
type Option func(*Service)

// WithLogger sets the logger for the service
func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithConcurrency sets how many events are expanded in parallel
func WithConcurrency(n int) Option {
	return func(s *Service) {
		if n > 0 {
			s.concurrency = n
		}
	}
}

// New creates a service reading events from store and expanding them with
// engine.
func New(store storage.Store, engine *rrule.Engine, opts ...Option) *Service {
	s := &Service{
		store:       store,
		logger:      slog.New(slog.NewTextHandler(io.Discard, nil)),
		concurrency: defaultConcurrency,
	}
	for _, opt := range opts {
		opt(s)
	}
	s.expander = recurrence.NewExpander(engine, recurrence.WithLogger(s.logger))
	return s
}

// NextPerEvent returns the next instance of every event at or after now,
// soonest first. Events that will not occur again come last.
func (s *Service) NextPerEvent(ctx context.Context, now time.Time) ([]Next, error) {
	events, err := s.store.ListEvents(ctx)
	if err != nil {
		return nil, err
	}

	out := make([]Next, len(events))
	err = s.each(ctx, events, func(i int, ev *storage.Event) error {
		next, err := s.expander.NextOccurrence(ev.Series(), now)
		if err != nil {
			return fmt.Errorf("event %s: %w", ev.ID, err)
		}
		out[i] = Next{EventID: ev.ID, Title: ev.Title, Next: mo.None[time.Time]()}
		if o, ok := next.Get(); ok {
			out[i].Next = mo.Some(o.Start)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	slices.SortStableFunc(out, func(a, b Next) int {
		at, aok := a.Next.Get()
		bt, bok := b.Next.Get()
		switch {
		case aok && !bok:
			return -1
		case !aok && bok:
			return 1
		case aok && bok:
			if c := at.Compare(bt); c != 0 {
				return c
			}
		}
		return cmp.Compare(a.Title, b.Title)
	})
	return out, nil
}

// Schedule returns every instance of every event in [from, to], ordered by
// start.
func (s *Service) Schedule(ctx context.Context, from, to time.Time) ([]Occurrence, error) {
	perEvent, err := s.window(ctx, from, to)
	if err != nil {
		return nil, err
	}

	var out []Occurrence
	for _, occ := range perEvent {
		out = append(out, occ...)
	}
	slices.SortStableFunc(out, compareOccurrences)

	s.logger.Debug("schedule built", "from", from, "to", to, "occurrences", len(out))
	return out, nil
}

// Stats counts each event's instances in [from, to]. Events without any are
// left out; the rest are ordered by count, busiest first.
func (s *Service) Stats(ctx context.Context, from, to time.Time) ([]Stat, error) {
	perEvent, err := s.window(ctx, from, to)
	if err != nil {
		return nil, err
	}

	var out []Stat
	for _, occ := range perEvent {
		if len(occ) == 0 {
			continue
		}
		out = append(out, Stat{
			EventID: occ[0].EventID,
			Title:   occ[0].Title,
			Count:   len(occ),
			First:   occ[0].Start,
			Last:    occ[len(occ)-1].Start,
		})
	}
	slices.SortStableFunc(out, func(a, b Stat) int {
		if c := cmp.Compare(b.Count, a.Count); c != 0 {
			return c
		}
		return cmp.Compare(a.Title, b.Title)
	})
	return out, nil
}

// Upcoming returns the next n instances of one event at or after now
func (s *Service) Upcoming(ctx context.Context, eventID string, now time.Time, n int) ([]Occurrence, error) {
	ev, err := s.store.GetEvent(ctx, eventID)
	if err != nil {
		return nil, err
	}
	occ, err := s.expander.Upcoming(ev.Series(), now, n)
	if err != nil {
		return nil, err
	}
	return toOccurrences(ev, occ), nil
}

// Busy returns the events with an instance overlapping [from, to], ordered
// by start. Expansion of each event stops at its first such instance.
func (s *Service) Busy(ctx context.Context, from, to time.Time) ([]storage.Event, error) {
	if err := checkWindow(from, to); err != nil {
		return nil, err
	}

	events, err := s.store.ListEvents(ctx)
	if err != nil {
		return nil, err
	}

	busy := make([]bool, len(events))
	err = s.each(ctx, events, func(i int, ev *storage.Event) error {
		found, err := s.expander.HasOccurrenceInRange(ev.Series(), from, to)
		if err != nil {
			return fmt.Errorf("event %s: %w", ev.ID, err)
		}
		busy[i] = found
		return nil
	})
	if err != nil {
		return nil, err
	}

	var out []storage.Event
	for i := range events {
		if busy[i] {
			out = append(out, events[i])
		}
	}
	storage.SortEvents(out)
	return out, nil
}

func checkWindow(from, to time.Time) error {
	if from.After(to) {
		return fmt.Errorf("%w: window start %s is after end %s",
			rrule.ErrInvalidArgument, from.Format(time.RFC3339), to.Format(time.RFC3339))
	}
	return nil
}

// window expands every event over [from, to]. The result is indexed like
// the store's event list.
func (s *Service) window(ctx context.Context, from, to time.Time) ([][]Occurrence, error) {
	if err := checkWindow(from, to); err != nil {
		return nil, err
	}

	events, err := s.store.ListEvents(ctx)
	if err != nil {
		return nil, err
	}

	out := make([][]Occurrence, len(events))
	err = s.each(ctx, events, func(i int, ev *storage.Event) error {
		occ, err := s.expander.Occurrences(ev.Series(), from, to)
		if err != nil {
			return fmt.Errorf("event %s: %w", ev.ID, err)
		}
		out[i] = toOccurrences(ev, occ)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// each runs fn for every event, at most s.concurrency at a time. The first
// error cancels the rest.
func (s *Service) each(ctx context.Context, events []storage.Event, fn func(int, *storage.Event) error) error {
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(s.concurrency)

	for i := range events {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			return fn(i, &events[i])
		})
	}
	return g.Wait()
}

func toOccurrences(ev *storage.Event, occ []recurrence.Occurrence) []Occurrence {
	out := make([]Occurrence, len(occ))
	for i, o := range occ {
		out[i] = Occurrence{EventID: ev.ID, Title: ev.Title, Start: o.Start, Added: o.Added}
	}
	return out
}

func compareOccurrences(a, b Occurrence) int {
	if c := a.Start.Compare(b.Start); c != 0 {
		return c
	}
	if c := cmp.Compare(a.Title, b.Title); c != 0 {
		return c
	}
	return cmp.Compare(a.EventID, b.EventID)
}
