package rrule

import "time"

// Date arithmetic works on civil dates: midnight UTC values carrying only a
// year, month and day. The iterator combines them with the anchor's clock and
// location at the very end, so period arithmetic never sees DST gaps.

const secondsPerDay = 24 * 60 * 60

// DaysInMonth returns the number of days of month in year.
func DaysInMonth(year int, month time.Month) int {
	return time.Date(year, month+1, 0, 0, 0, 0, 0, time.UTC).Day()
}

// IsLeapYear reports whether year has a February 29th.
func IsLeapYear(year int) bool {
	return DaysInMonth(year, time.February) == 29
}

func civilDate(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

func addDays(d time.Time, n int) time.Time {
	return d.AddDate(0, 0, n)
}

// daysBetween returns the number of whole days from a to b for civil dates.
// Unix seconds keep it exact for spans beyond time.Duration's range.
func daysBetween(a, b time.Time) int {
	return int((b.Unix() - a.Unix()) / secondsPerDay)
}

// clampedDate returns the civil date year-month-day, moving day back to the
// last day of the month when the month is shorter. month may overflow.
func clampedDate(year int, month time.Month, day int) time.Time {
	first := time.Date(year, month, 1, 0, 0, 0, 0, time.UTC)
	if dim := DaysInMonth(first.Year(), first.Month()); day > dim {
		day = dim
	}
	return time.Date(first.Year(), first.Month(), day, 0, 0, 0, 0, time.UTC)
}

func monthPeriod(year int, month time.Month) (start, end time.Time) {
	start = time.Date(year, month, 1, 0, 0, 0, 0, time.UTC)
	return start, start.AddDate(0, 1, 0)
}

func yearPeriod(year int) (start, end time.Time) {
	start = time.Date(year, time.January, 1, 0, 0, 0, 0, time.UTC)
	return start, start.AddDate(1, 0, 0)
}

// AdvanceByFrequency steps t forward by interval units of freq. Sub-daily
// frequencies add an exact duration; DAILY and longer keep t's wall clock in
// t's location. MONTHLY and YEARLY clamp the day to the end of a shorter
// target month instead of rolling over into the next one.
func AdvanceByFrequency(t time.Time, freq Frequency, interval int) time.Time {
	switch freq {
	case Secondly, Minutely, Hourly:
		return t.Add(time.Duration(interval) * freq.duration())
	case Daily:
		return t.AddDate(0, 0, interval)
	case Weekly:
		return t.AddDate(0, 0, 7*interval)
	case Monthly:
		return atClock(clampedDate(t.Year(), t.Month()+time.Month(interval), t.Day()), t)
	case Yearly:
		return atClock(clampedDate(t.Year()+interval, t.Month(), t.Day()), t)
	}
	return t
}

// atClock places civil date d at the wall clock and location of tmpl.
func atClock(d, tmpl time.Time) time.Time {
	return time.Date(d.Year(), d.Month(), d.Day(),
		tmpl.Hour(), tmpl.Minute(), tmpl.Second(), tmpl.Nanosecond(), tmpl.Location())
}

// ResolveByDay expands weekday specifiers into the civil dates of the period
// [start, end). An ordinal N selects the Nth matching weekday from start, -N
// the Nth from the end; ordinals past the period's supply yield nothing.
// The result is unordered and may contain duplicates.
func ResolveByDay(start, end time.Time, days []WeekdayNum) []time.Time {
	var out []time.Time
	for _, wd := range days {
		switch {
		case wd.N == 0:
			for d := firstWeekday(start, wd.Weekday); d.Before(end); d = addDays(d, 7) {
				out = append(out, d)
			}
		case wd.N > 0:
			d := addDays(firstWeekday(start, wd.Weekday), 7*(wd.N-1))
			if d.Before(end) {
				out = append(out, d)
			}
		default:
			d := addDays(lastWeekday(end, wd.Weekday), 7*(wd.N+1))
			if !d.Before(start) {
				out = append(out, d)
			}
		}
	}
	return out
}

// ResolveByMonthDay resolves day numbers against the period [start, end),
// normally one month. Negative numbers count back from the last day.
func ResolveByMonthDay(start, end time.Time, days []int) []time.Time {
	length := daysBetween(start, end)
	var out []time.Time
	for _, n := range days {
		switch {
		case n > 0 && n <= length:
			out = append(out, addDays(start, n-1))
		case n < 0 && -n <= length:
			out = append(out, addDays(start, length+n))
		}
	}
	return out
}

// firstWeekday returns the first date on or after d falling on wd.
func firstWeekday(d time.Time, wd time.Weekday) time.Time {
	return addDays(d, (int(wd)-int(d.Weekday())+7)%7)
}

// lastWeekday returns the last date strictly before end falling on wd.
func lastWeekday(end time.Time, wd time.Weekday) time.Time {
	last := addDays(end, -1)
	return addDays(last, -((int(last.Weekday()) - int(wd) + 7) % 7))
}

// weekStart returns the first day of the week containing d.
func weekStart(d time.Time, wkst time.Weekday) time.Time {
	return addDays(d, -((int(d.Weekday()) - int(wkst) + 7) % 7))
}

// matchesByDay reports whether d satisfies any BYDAY entry, ordinals being
// counted within [start, end).
func matchesByDay(d, start, end time.Time, days []WeekdayNum) bool {
	for _, wd := range days {
		if d.Weekday() != wd.Weekday {
			continue
		}
		switch {
		case wd.N == 0:
			return true
		case wd.N > 0 && daysBetween(start, d)/7+1 == wd.N:
			return true
		case wd.N < 0 && -(daysBetween(d, addDays(end, -1))/7+1) == wd.N:
			return true
		}
	}
	return false
}

func matchesMonthDay(d time.Time, days []int) bool {
	dim := DaysInMonth(d.Year(), d.Month())
	for _, n := range days {
		if n > 0 && d.Day() == n || n < 0 && d.Day() == dim+n+1 {
			return true
		}
	}
	return false
}

func matchesMonth(m time.Month, months []time.Month) bool {
	if len(months) == 0 {
		return true
	}
	for _, x := range months {
		if x == m {
			return true
		}
	}
	return false
}
