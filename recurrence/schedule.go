package recurrence

import (
	"time"

	"github.com/robfig/cron/v3"
)

// seriesSchedule fires at every instance of a series, RDATE included and
// EXDATE left out.
type seriesSchedule struct {
	x      *Expander
	series Series
}

// Schedule returns a cron.Schedule firing at every instance of s. The rule
// is checked up front so a broken series is never handed to cron.
func (x *Expander) Schedule(s Series) (cron.Schedule, error) {
	if err := x.Validate(s); err != nil {
		return nil, err
	}
	return seriesSchedule{x: x, series: s}, nil
}

// Next returns the first instance strictly after t, or the zero time when
// the series is over.
func (sc seriesSchedule) Next(t time.Time) time.Time {
	next, err := sc.x.NextOccurrence(sc.series, t.Add(time.Nanosecond))
	if err != nil {
		sc.x.logger.Error("failed to schedule series", "uid", sc.series.UID, "error", err)
		return time.Time{}
	}
	if o, ok := next.Get(); ok {
		return o.Start
	}
	return time.Time{}
}
