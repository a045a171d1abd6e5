package recurrence

import (
	"fmt"
	"io"
	"log/slog"
	"slices"
	"time"

	"github.com/jakobjanot/pg-rrule/rrule"
	"github.com/samber/mo"
)

// batchSize is how many ruled instances are fetched from the engine at once.
const batchSize = 64

// Expander expands series into occurrences. The rule itself is evaluated by
// an rrule.Engine; RDATE instances are added and EXDATE instances removed on
// top of it.
type Expander struct {
	engine *rrule.Engine
	logger *slog.Logger
}

// Option configures an Expander
type Option func(*Expander)

// WithLogger sets the logger for the expander
func WithLogger(logger *slog.Logger) Option {
	return func(x *Expander) {
		if logger != nil {
			x.logger = logger
		}
	}
}

// NewExpander creates an expander evaluating rules with engine
func NewExpander(engine *rrule.Engine, opts ...Option) *Expander {
	x := &Expander{
		engine: engine,
		logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for _, opt := range opts {
		opt(x)
	}
	return x
}

// Validate checks the series' rule, if any
func (x *Expander) Validate(s Series) error {
	if s.Recurrence.RRULE == "" {
		return nil
	}
	_, err := x.engine.Parse(s.Recurrence.RRULE)
	return err
}

// HasOccurrenceInRange checks if the series has any instance overlapping
// [rangeStart, rangeEnd]. It stops at the first one found.
func (x *Expander) HasOccurrenceInRange(s Series, rangeStart, rangeEnd time.Time) (bool, error) {
	found := false
	err := x.instances(s, rangeStart.Add(-s.Duration()), func(o Occurrence) bool {
		if o.Start.After(rangeEnd) {
			return false
		}
		if o.overlaps(rangeStart, rangeEnd) {
			found = true
			return false
		}
		return true
	})
	if err != nil {
		return false, fmt.Errorf("failed to check occurrences of %q: %w", s.UID, err)
	}
	return found, nil
}

// NextOccurrence returns the first instance starting at or after pivot
func (x *Expander) NextOccurrence(s Series, pivot time.Time) (mo.Option[Occurrence], error) {
	result := mo.None[Occurrence]()
	err := x.instances(s, pivot, func(o Occurrence) bool {
		result = mo.Some(o)
		return false
	})
	if err != nil {
		return mo.None[Occurrence](), err
	}
	return result, nil
}

// Upcoming returns up to n instances starting at or after pivot
func (x *Expander) Upcoming(s Series, pivot time.Time, n int) ([]Occurrence, error) {
	if n <= 0 {
		return nil, fmt.Errorf("count must be positive, got %d", n)
	}
	var out []Occurrence
	err := x.instances(s, pivot, func(o Occurrence) bool {
		out = append(out, o)
		return len(out) < n
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// Occurrences returns every instance overlapping [rangeStart, rangeEnd], in
// start order.
func (x *Expander) Occurrences(s Series, rangeStart, rangeEnd time.Time) ([]Occurrence, error) {
	if rangeStart.After(rangeEnd) {
		return nil, fmt.Errorf("range start %s is after end %s", rangeStart.Format(time.RFC3339), rangeEnd.Format(time.RFC3339))
	}

	duration := s.Duration()
	from := rangeStart.Add(-duration)

	var starts []time.Time
	if s.Recurrence.RRULE == "" {
		starts = []time.Time{s.Start}
	} else {
		p, err := x.engine.Parse(s.Recurrence.RRULE)
		if err != nil {
			return nil, err
		}
		if starts, err = x.engine.Between(p, from, rangeEnd, s.Start); err != nil {
			return nil, err
		}
	}

	out := make([]Occurrence, 0, len(starts)+len(s.Recurrence.RDATE))
	for _, start := range starts {
		out = append(out, Occurrence{Start: start, End: start.Add(duration)})
	}
	for _, rdate := range s.Recurrence.RDATE {
		out = append(out, Occurrence{Start: rdate, End: rdate.Add(duration), Added: true})
	}

	out = slices.DeleteFunc(out, func(o Occurrence) bool {
		return !o.overlaps(rangeStart, rangeEnd) || s.Recurrence.excludes(o.Start)
	})
	out = sortOccurrences(out)

	x.logger.Debug("expanded series",
		"uid", s.UID,
		"range_start", rangeStart,
		"range_end", rangeEnd,
		"occurrences", len(out))
	return out, nil
}

// instances feeds visit the instances starting at or after from in start
// order, merging the rule's sequence with RDATE and skipping EXDATE, until
// visit returns false.
func (x *Expander) instances(s Series, from time.Time, visit func(Occurrence) bool) error {
	duration := s.Duration()

	var rdates []Occurrence
	for _, rdate := range s.Recurrence.RDATE {
		if !rdate.Before(from) {
			rdates = append(rdates, Occurrence{Start: rdate, End: rdate.Add(duration), Added: true})
		}
	}
	rdates = sortOccurrences(rdates)

	// next yields the rule's instances one at a time.
	var next func() (mo.Option[time.Time], error)
	if s.Recurrence.RRULE == "" {
		done := s.Start.Before(from)
		next = func() (mo.Option[time.Time], error) {
			if done {
				return mo.None[time.Time](), nil
			}
			done = true
			return mo.Some(s.Start), nil
		}
	} else {
		p, err := x.engine.Parse(s.Recurrence.RRULE)
		if err != nil {
			return err
		}
		pivot := from
		var buf []time.Time
		exhausted := false
		next = func() (mo.Option[time.Time], error) {
			if len(buf) == 0 && !exhausted {
				size := batchSize
				if limit := x.engine.Config().MaxCount; limit > 0 && limit < size {
					size = limit
				}
				batch, err := x.engine.NextN(p, pivot, size, s.Start)
				if err != nil {
					return mo.None[time.Time](), err
				}
				exhausted = len(batch) < size
				if len(batch) > 0 {
					pivot = batch[len(batch)-1].Add(time.Nanosecond)
				}
				buf = batch
			}
			if len(buf) == 0 {
				return mo.None[time.Time](), nil
			}
			t := buf[0]
			buf = buf[1:]
			return mo.Some(t), nil
		}
	}

	ruled, err := next()
	if err != nil {
		return err
	}
	for {
		var o Occurrence
		t, hasRule := ruled.Get()
		switch {
		case hasRule && (len(rdates) == 0 || !rdates[0].Start.Before(t)):
			o = Occurrence{Start: t, End: t.Add(duration)}
			if len(rdates) > 0 && rdates[0].Start.Equal(t) {
				rdates = rdates[1:]
			}
			if ruled, err = next(); err != nil {
				return err
			}
		case len(rdates) > 0:
			o = rdates[0]
			rdates = rdates[1:]
		default:
			return nil
		}

		if s.Recurrence.excludes(o.Start) {
			continue
		}
		if !visit(o) {
			return nil
		}
	}
}

// sortOccurrences orders by start and drops RDATE instances that repeat a
// ruled one.
func sortOccurrences(occ []Occurrence) []Occurrence {
	slices.SortStableFunc(occ, func(a, b Occurrence) int { return a.Start.Compare(b.Start) })
	return slices.CompactFunc(occ, func(a, b Occurrence) bool { return a.Start.Equal(b.Start) })
}

// excludes checks if an instance starting at t is cancelled, either by an
// exact EXDATE or by a date-only one falling on t's calendar day.
func (r RecurrenceInfo) excludes(t time.Time) bool {
	for _, exdate := range r.EXDATE {
		if t.Equal(exdate) {
			return true
		}
	}
	y, m, d := t.Date()
	for _, day := range r.ExcludedDays {
		dy, dm, dd := day.Date()
		if y == dy && m == dm && d == dd {
			return true
		}
	}
	return false
}
