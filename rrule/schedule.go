package rrule

import (
	"time"

	"github.com/robfig/cron/v3"
)

// Schedule drives a cron.Cron from a recurrence pattern.
type Schedule struct {
	pattern *Pattern
	anchor  time.Time
}

var _ cron.Schedule = (*Schedule)(nil)

// NewSchedule returns a cron.Schedule firing at every occurrence of p
// anchored at anchor.
func NewSchedule(p *Pattern, anchor time.Time) *Schedule {
	return &Schedule{pattern: p, anchor: anchor}
}

// Next returns the first occurrence strictly after t. The zero time tells
// cron the schedule will never fire again.
func (s *Schedule) Next(t time.Time) time.Time {
	it := NewIterator(s.pattern, s.anchor)
	it.seek(t)
	for {
		o, ok := it.Next()
		if !ok {
			return time.Time{}
		}
		if o.After(t) {
			return o
		}
	}
}
