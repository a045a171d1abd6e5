package recurrence

import (
	"time"
)

// RecurrenceInfo contains all recurrence-related information for an event
type RecurrenceInfo struct {
	RRULE        string      // The RRULE string (without "RRULE:" prefix)
	RDATE        []time.Time // Additional recurrence dates
	EXDATE       []time.Time // Exception dates (excluded occurrences)
	ExcludedDays []time.Time // Date-only EXDATE values, each cancelling every instance on that day
	RecurrenceID *time.Time  // For override instances - which occurrence this replaces
}

// Series is the master instance of a recurring event
type Series struct {
	UID        string
	Summary    string
	Start      time.Time
	End        time.Time
	Recurrence RecurrenceInfo
}

// Duration is the length of every instance of the series
func (s Series) Duration() time.Duration {
	if s.End.Before(s.Start) {
		return 0
	}
	return s.End.Sub(s.Start)
}

// Occurrence represents a single instance of a series
type Occurrence struct {
	Start time.Time
	End   time.Time
	Added bool // True if the instance comes from RDATE rather than the rule
}

// overlaps reports whether the instance touches [rangeStart, rangeEnd],
// i.e. start <= rangeEnd and end >= rangeStart.
func (o Occurrence) overlaps(rangeStart, rangeEnd time.Time) bool {
	return !o.Start.After(rangeEnd) && !o.End.Before(rangeStart)
}
