package rrule

import (
	"iter"
	"slices"
	"time"
)

// maxYear bounds expansion so that rules whose modifiers can never match
// again still terminate.
const maxYear = 9999

// Iterator walks the occurrences of a Pattern from an anchor instant. It is
// the per-call cursor behind every query and must not be shared between
// goroutines; create one per traversal.
type Iterator struct {
	p      *Pattern
	anchor time.Time
	loc    *time.Location
	date   time.Time // civil date of the anchor
	week   time.Time // first day of the anchor's week
	until  time.Time

	period  int64 // index of the next period to expand
	pending []time.Time
	last    time.Time
	emitted int
	started bool
	done    bool
}

// NewIterator returns a cursor positioned before the anchor.
func NewIterator(p *Pattern, anchor time.Time) *Iterator {
	loc := anchor.Location()
	date := civilDate(anchor)
	return &Iterator{
		p:      p,
		anchor: anchor,
		loc:    loc,
		date:   date,
		week:   weekStart(date, p.WeekStart),
		until:  p.untilIn(loc),
	}
}

// Iterate returns the lazy ascending sequence of occurrences of p anchored at
// anchor. Each range over the result starts again from the anchor. The
// sequence is unbounded unless p carries COUNT or UNTIL.
func Iterate(p *Pattern, anchor time.Time) iter.Seq[time.Time] {
	return func(yield func(time.Time) bool) {
		it := NewIterator(p, anchor)
		for {
			t, ok := it.Next()
			if !ok || !yield(t) {
				return
			}
		}
	}
}

// Next returns the next occurrence, or false once the sequence has ended.
func (it *Iterator) Next() (time.Time, bool) {
	if it.done {
		return time.Time{}, false
	}
	if !it.started {
		it.started = true
		return it.emit(it.anchor)
	}
	for {
		for len(it.pending) > 0 {
			t := it.pending[0]
			it.pending = it.pending[1:]
			if t.After(it.last) {
				return it.emit(t)
			}
		}
		if !it.expand() {
			it.done = true
			return time.Time{}, false
		}
	}
}

func (it *Iterator) emit(t time.Time) (time.Time, bool) {
	if it.p.HasUntil() && t.After(it.until) {
		it.done = true
		return time.Time{}, false
	}
	it.last = t
	it.emitted++
	if it.p.Count > 0 && it.emitted >= it.p.Count {
		it.done = true
	}
	return t, true
}

// seek skips whole periods that end before pivot. With COUNT the running
// total must survive the skip; that is only known for rules without BY*
// modifiers, where period i holds exactly one occurrence and period 0 holds
// the anchor. Other counted rules walk from the anchor.
func (it *Iterator) seek(pivot time.Time) {
	if it.started || !pivot.After(it.anchor) {
		return
	}
	if it.p.Count > 0 && !it.p.unmodified() {
		return
	}
	interval := int64(it.p.Interval)
	local := pivot.In(it.loc)

	var k int64
	switch it.p.Freq {
	case Yearly:
		k = int64(local.Year()-it.date.Year())/interval - 1
	case Monthly:
		months := int64(local.Year()-it.date.Year())*12 + int64(local.Month()-it.date.Month())
		k = months/interval - 1
	case Weekly:
		k = int64(daysBetween(it.week, civilDate(local)))/7/interval - 1
	case Daily:
		k = int64(daysBetween(it.date, civilDate(local)))/interval - 1
	default:
		k = (pivot.Unix()-it.anchor.Unix())/it.step() - 1
	}

	it.started = true
	it.last = it.anchor
	if k > 0 {
		it.period = k
	}
	if it.p.Count > 0 {
		it.emitted = int(max(it.period, 1))
		if it.emitted >= it.p.Count {
			it.done = true
		}
	}
}

// step is the sub-daily period length in seconds.
func (it *Iterator) step() int64 {
	return int64(it.p.Interval) * int64(it.p.Freq.duration()/time.Second)
}

// expand fills pending with the candidates of the next period and advances
// the period index. It reports false when no later period can produce an
// occurrence.
func (it *Iterator) expand() bool {
	if it.p.Freq.subDaily() {
		return it.expandSubDaily()
	}

	interval := int(it.period) * it.p.Interval
	var start time.Time
	var days []time.Time

	switch it.p.Freq {
	case Yearly:
		start, _ = yearPeriod(it.date.Year() + interval)
		if start.Year() <= maxYear {
			days = it.yearDays(start.Year())
		}
	case Monthly:
		start = time.Date(it.date.Year(), it.date.Month()+time.Month(interval), 1, 0, 0, 0, 0, time.UTC)
		if start.Year() <= maxYear {
			days = it.monthDays(start.Year(), start.Month())
		}
	case Weekly:
		start = addDays(it.week, 7*interval)
		if start.Year() <= maxYear {
			days = it.weekDays(start)
		}
	case Daily:
		start = addDays(it.date, interval)
		if start.Year() <= maxYear {
			if it.dayMatches(start) {
				days = []time.Time{start}
			} else if !matchesMonth(start.Month(), it.p.ByMonth) {
				it.skipDailyTo(time.Date(start.Year(), start.Month()+1, 1, 0, 0, 0, 0, time.UTC))
				return !it.pastUntil(start)
			}
		}
	}

	if start.Year() > maxYear || it.pastUntil(start) {
		return false
	}
	it.period++

	pending := make([]time.Time, 0, len(days))
	for _, d := range days {
		pending = append(pending, atClock(d, it.anchor))
	}
	slices.SortFunc(pending, func(a, b time.Time) int { return a.Compare(b) })
	it.pending = slices.CompactFunc(pending, func(a, b time.Time) bool { return a.Equal(b) })
	return true
}

func (it *Iterator) expandSubDaily() bool {
	step := it.step()
	t := time.Unix(it.anchor.Unix()+it.period*step, int64(it.anchor.Nanosecond())).In(it.loc)
	if t.Year() > maxYear || it.pastUntil(civilDate(t)) {
		return false
	}

	var next time.Time
	switch {
	case !matchesMonth(t.Month(), it.p.ByMonth):
		next = time.Date(t.Year(), t.Month()+1, 1, 0, 0, 0, 0, it.loc)
	case !it.dayMatches(civilDate(t)):
		next = time.Date(t.Year(), t.Month(), t.Day()+1, 0, 0, 0, 0, it.loc)
	default:
		it.pending = []time.Time{t}
		it.period++
		return true
	}

	// Jump to the first step landing on or after next.
	k := ceilDiv(next.Unix()-it.anchor.Unix(), step)
	it.period = max(it.period+1, k)
	return true
}

func (it *Iterator) skipDailyTo(next time.Time) {
	k := ceilDiv(int64(daysBetween(it.date, next)), int64(it.p.Interval))
	it.period = max(it.period+1, k)
}

// pastUntil reports whether every candidate on or after civil date d is
// beyond UNTIL.
func (it *Iterator) pastUntil(d time.Time) bool {
	return it.p.HasUntil() && d.After(civilDate(it.until.In(it.loc)))
}

func (it *Iterator) yearDays(year int) []time.Time {
	p := it.p
	var days []time.Time

	switch {
	case len(p.ByMonthDay) > 0:
		for _, m := range it.months(allMonths) {
			ms, me := monthPeriod(year, m)
			scopeStart, scopeEnd := ms, me
			if len(p.ByMonth) == 0 {
				scopeStart, scopeEnd = yearPeriod(year)
			}
			for _, d := range ResolveByMonthDay(ms, me, p.ByMonthDay) {
				if len(p.ByDay) == 0 || matchesByDay(d, scopeStart, scopeEnd, p.ByDay) {
					days = append(days, d)
				}
			}
		}
	case len(p.ByDay) > 0:
		if len(p.ByMonth) == 0 {
			ys, ye := yearPeriod(year)
			return ResolveByDay(ys, ye, p.ByDay)
		}
		for _, m := range p.ByMonth {
			ms, me := monthPeriod(year, m)
			days = append(days, ResolveByDay(ms, me, p.ByDay)...)
		}
	default:
		for _, m := range it.months([]time.Month{it.date.Month()}) {
			days = append(days, clampedDate(year, m, it.date.Day()))
		}
	}
	return days
}

func (it *Iterator) monthDays(year int, month time.Month) []time.Time {
	p := it.p
	if !matchesMonth(month, p.ByMonth) {
		return nil
	}
	ms, me := monthPeriod(year, month)

	switch {
	case len(p.ByMonthDay) > 0:
		var days []time.Time
		for _, d := range ResolveByMonthDay(ms, me, p.ByMonthDay) {
			if len(p.ByDay) == 0 || matchesByDay(d, ms, me, p.ByDay) {
				days = append(days, d)
			}
		}
		return days
	case len(p.ByDay) > 0:
		return ResolveByDay(ms, me, p.ByDay)
	default:
		return []time.Time{clampedDate(year, month, it.date.Day())}
	}
}

func (it *Iterator) weekDays(start time.Time) []time.Time {
	var days []time.Time
	if len(it.p.ByDay) > 0 {
		days = ResolveByDay(start, addDays(start, 7), it.p.ByDay)
	} else {
		days = []time.Time{firstWeekday(start, it.date.Weekday())}
	}
	return slices.DeleteFunc(days, func(d time.Time) bool {
		return !matchesMonth(d.Month(), it.p.ByMonth)
	})
}

// dayMatches applies the limiting modifiers used by DAILY and shorter
// frequencies to civil date d.
func (it *Iterator) dayMatches(d time.Time) bool {
	p := it.p
	if !matchesMonth(d.Month(), p.ByMonth) {
		return false
	}
	if len(p.ByMonthDay) > 0 && !matchesMonthDay(d, p.ByMonthDay) {
		return false
	}
	if len(p.ByDay) > 0 && !matchesByDay(d, d, addDays(d, 1), p.ByDay) {
		return false
	}
	return true
}

var allMonths = []time.Month{
	time.January, time.February, time.March, time.April, time.May, time.June,
	time.July, time.August, time.September, time.October, time.November, time.December,
}

// months returns BYMONTH when present, fallback otherwise.
func (it *Iterator) months(fallback []time.Month) []time.Month {
	if len(it.p.ByMonth) > 0 {
		return it.p.ByMonth
	}
	return fallback
}

func ceilDiv(a, b int64) int64 {
	if a <= 0 {
		return 0
	}
	return (a + b - 1) / b
}
