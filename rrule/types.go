package rrule

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Frequency is the base repetition unit of a rule (FREQ).
type Frequency int

const (
	Secondly Frequency = iota
	Minutely
	Hourly
	Daily
	Weekly
	Monthly
	Yearly
)

var frequencyNames = map[Frequency]string{
	Secondly: "SECONDLY",
	Minutely: "MINUTELY",
	Hourly:   "HOURLY",
	Daily:    "DAILY",
	Weekly:   "WEEKLY",
	Monthly:  "MONTHLY",
	Yearly:   "YEARLY",
}

// String returns the RFC 5545 name of the frequency.
func (f Frequency) String() string {
	if name, ok := frequencyNames[f]; ok {
		return name
	}
	return "Frequency(" + strconv.Itoa(int(f)) + ")"
}

// subDaily reports whether the frequency steps by a fixed duration.
func (f Frequency) subDaily() bool {
	return f == Secondly || f == Minutely || f == Hourly
}

// duration is the length of one step for sub-daily frequencies.
func (f Frequency) duration() time.Duration {
	switch f {
	case Secondly:
		return time.Second
	case Minutely:
		return time.Minute
	case Hourly:
		return time.Hour
	}
	return 0
}

// Two-letter weekday codes used by BYDAY and WKST, indexed by time.Weekday.
var weekdayCodes = [7]string{"SU", "MO", "TU", "WE", "TH", "FR", "SA"}

func parseWeekday(code string) (time.Weekday, bool) {
	code = strings.ToUpper(code)
	for i, c := range weekdayCodes {
		if c == code {
			return time.Weekday(i), true
		}
	}
	return 0, false
}

// WeekdayNum is one BYDAY entry: a weekday with an optional ordinal.
// N == 0 means every such weekday in the period; N > 0 is the Nth one from
// the period start and N < 0 the Nth one counting back from the period end.
type WeekdayNum struct {
	Weekday time.Weekday
	N       int
}

func (w WeekdayNum) String() string {
	if w.N == 0 {
		return weekdayCodes[w.Weekday]
	}
	return strconv.Itoa(w.N) + weekdayCodes[w.Weekday]
}

// Pattern is a parsed and validated recurrence rule. Values are only built by
// Parse and must be treated as read-only afterwards.
type Pattern struct {
	Freq     Frequency
	Interval int

	// Count is the total number of occurrences (anchor included); 0 means unset.
	Count int

	// Until is the inclusive upper bound; the zero time means unset. When
	// UntilFloating is true the wall clock of Until is re-read in the
	// anchor's location before comparing.
	Until         time.Time
	UntilFloating bool

	ByDay      []WeekdayNum
	ByMonthDay []int
	ByMonth    []time.Month
	WeekStart  time.Weekday
}

// HasUntil reports whether the pattern is bounded by UNTIL.
func (p *Pattern) HasUntil() bool {
	return !p.Until.IsZero()
}

// Bounded reports whether the sequence generated from the pattern is finite
// by construction.
func (p *Pattern) Bounded() bool {
	return p.Count > 0 || p.HasUntil()
}

// untilIn returns the UNTIL bound expressed for an anchor in loc.
// unmodified reports whether p carries no BY* modifier, in which case every
// period holds exactly one occurrence.
func (p *Pattern) unmodified() bool {
	return len(p.ByDay) == 0 && len(p.ByMonthDay) == 0 && len(p.ByMonth) == 0
}

func (p *Pattern) untilIn(loc *time.Location) time.Time {
	if !p.UntilFloating {
		return p.Until
	}
	u := p.Until
	return time.Date(u.Year(), u.Month(), u.Day(), u.Hour(), u.Minute(), u.Second(), u.Nanosecond(), loc)
}

// String renders the canonical rule text. The output parses back to an
// equivalent Pattern.
func (p *Pattern) String() string {
	parts := []string{"FREQ=" + p.Freq.String()}

	if p.Interval > 1 {
		parts = append(parts, fmt.Sprintf("INTERVAL=%d", p.Interval))
	}
	if p.Count > 0 {
		parts = append(parts, fmt.Sprintf("COUNT=%d", p.Count))
	}
	if p.HasUntil() {
		layout := untilLayoutUTC
		if p.UntilFloating {
			layout = untilLayoutFloating
		}
		parts = append(parts, "UNTIL="+p.Until.Format(layout))
	}
	if len(p.ByDay) > 0 {
		days := make([]string, len(p.ByDay))
		for i, d := range p.ByDay {
			days[i] = d.String()
		}
		parts = append(parts, "BYDAY="+strings.Join(days, ","))
	}
	if len(p.ByMonthDay) > 0 {
		parts = append(parts, "BYMONTHDAY="+joinInts(p.ByMonthDay))
	}
	if len(p.ByMonth) > 0 {
		months := make([]int, len(p.ByMonth))
		for i, m := range p.ByMonth {
			months[i] = int(m)
		}
		parts = append(parts, "BYMONTH="+joinInts(months))
	}
	if p.WeekStart != time.Monday {
		parts = append(parts, "WKST="+weekdayCodes[p.WeekStart])
	}

	return strings.Join(parts, ";")
}

func joinInts(nums []int) string {
	strs := make([]string, len(nums))
	for i, n := range nums {
		strs[i] = strconv.Itoa(n)
	}
	return strings.Join(strs, ",")
}
