package rrule

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func TestDaysInMonth(t *testing.T) {
	assert.Equal(t, 31, DaysInMonth(2024, time.January))
	assert.Equal(t, 29, DaysInMonth(2024, time.February))
	assert.Equal(t, 28, DaysInMonth(2023, time.February))
	assert.Equal(t, 28, DaysInMonth(1900, time.February))
	assert.Equal(t, 29, DaysInMonth(2000, time.February))
	assert.Equal(t, 30, DaysInMonth(2024, time.April))

	assert.True(t, IsLeapYear(2024))
	assert.False(t, IsLeapYear(2100))
}

func TestAdvanceByFrequency(t *testing.T) {
	at := func(y int, m time.Month, d, h, mi int) time.Time {
		return time.Date(y, m, d, h, mi, 0, 0, time.UTC)
	}

	tests := []struct {
		name     string
		from     time.Time
		freq     Frequency
		interval int
		want     time.Time
	}{
		{"seconds", at(2024, 1, 1, 9, 0), Secondly, 90, at(2024, 1, 1, 9, 1).Add(30 * time.Second)},
		{"minutes across midnight", at(2024, 1, 1, 23, 50), Minutely, 15, at(2024, 1, 2, 0, 5)},
		{"hours", at(2024, 1, 1, 9, 0), Hourly, 6, at(2024, 1, 1, 15, 0)},
		{"days keep the clock", at(2024, 2, 28, 9, 30), Daily, 2, at(2024, 3, 1, 9, 30)},
		{"weeks", at(2024, 1, 1, 9, 0), Weekly, 2, at(2024, 1, 15, 9, 0)},
		{"month end clamps in leap year", at(2024, 1, 31, 9, 0), Monthly, 1, at(2024, 2, 29, 9, 0)},
		{"month end clamps in common year", at(2023, 1, 31, 9, 0), Monthly, 1, at(2023, 2, 28, 9, 0)},
		{"month end into 30-day month", at(2024, 3, 31, 9, 0), Monthly, 1, at(2024, 4, 30, 9, 0)},
		{"months across a year", at(2024, 11, 15, 9, 0), Monthly, 3, at(2025, 2, 15, 9, 0)},
		{"leap day to common year", at(2024, 2, 29, 9, 0), Yearly, 1, at(2025, 2, 28, 9, 0)},
		{"leap day to leap year", at(2024, 2, 29, 9, 0), Yearly, 4, at(2028, 2, 29, 9, 0)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := AdvanceByFrequency(tt.from, tt.freq, tt.interval)
			assert.True(t, tt.want.Equal(got), "want %s, got %s", tt.want, got)
		})
	}
}

func TestAdvanceByFrequency_KeepsLocation(t *testing.T) {
	loc := time.FixedZone("UTC+9", 9*60*60)
	from := time.Date(2024, 1, 31, 9, 0, 0, 0, loc)

	got := AdvanceByFrequency(from, Monthly, 1)
	assert.Equal(t, loc, got.Location())
	assert.Equal(t, 9, got.Hour())
	assert.Equal(t, 29, got.Day())
}

func TestResolveByDay(t *testing.T) {
	janStart, janEnd := monthPeriod(2024, time.January)
	febStart, febEnd := monthPeriod(2024, time.February)
	weekStart, weekEnd := date(2024, 1, 1), date(2024, 1, 8)

	tests := []struct {
		name       string
		start, end time.Time
		days       []WeekdayNum
		want       []time.Time
	}{
		{
			name:  "every weekday in a week",
			start: weekStart, end: weekEnd,
			days: []WeekdayNum{{Weekday: time.Monday}, {Weekday: time.Wednesday}, {Weekday: time.Friday}},
			want: []time.Time{date(2024, 1, 1), date(2024, 1, 3), date(2024, 1, 5)},
		},
		{
			name:  "every monday in january",
			start: janStart, end: janEnd,
			days: []WeekdayNum{{Weekday: time.Monday}},
			want: []time.Time{date(2024, 1, 1), date(2024, 1, 8), date(2024, 1, 15), date(2024, 1, 22), date(2024, 1, 29)},
		},
		{
			name:  "second friday",
			start: janStart, end: janEnd,
			days: []WeekdayNum{{Weekday: time.Friday, N: 2}},
			want: []time.Time{date(2024, 1, 12)},
		},
		{
			name:  "last sunday",
			start: janStart, end: janEnd,
			days: []WeekdayNum{{Weekday: time.Sunday, N: -1}},
			want: []time.Time{date(2024, 1, 28)},
		},
		{
			name:  "fifth monday missing in february",
			start: febStart, end: febEnd,
			days: []WeekdayNum{{Weekday: time.Monday, N: 5}},
			want: nil,
		},
		{
			name:  "fifth thursday present in february of a leap year",
			start: febStart, end: febEnd,
			days: []WeekdayNum{{Weekday: time.Thursday, N: 5}},
			want: []time.Time{date(2024, 2, 29)},
		},
		{
			name:  "fifth from the end missing",
			start: febStart, end: febEnd,
			days: []WeekdayNum{{Weekday: time.Monday, N: -5}},
			want: nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ResolveByDay(tt.start, tt.end, tt.days)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestResolveByDay_Year(t *testing.T) {
	start, end := yearPeriod(2024)

	got := ResolveByDay(start, end, []WeekdayNum{{Weekday: time.Monday, N: 20}, {Weekday: time.Monday, N: -1}})
	assert.Equal(t, []time.Time{date(2024, 5, 13), date(2024, 12, 30)}, got)
}

func TestResolveByMonthDay(t *testing.T) {
	febStart, febEnd := monthPeriod(2024, time.February)
	aprStart, aprEnd := monthPeriod(2024, time.April)

	assert.Equal(t,
		[]time.Time{date(2024, 2, 1), date(2024, 2, 29), date(2024, 2, 28)},
		ResolveByMonthDay(febStart, febEnd, []int{1, -1, -2}))

	// The 31st and the 31st-from-last do not exist in April.
	assert.Equal(t,
		[]time.Time{date(2024, 4, 30)},
		ResolveByMonthDay(aprStart, aprEnd, []int{31, -31, 30}))
}

func TestMatchesByDay(t *testing.T) {
	start, end := monthPeriod(2024, time.January)

	assert.True(t, matchesByDay(date(2024, 1, 12), start, end, []WeekdayNum{{Weekday: time.Friday, N: 2}}))
	assert.False(t, matchesByDay(date(2024, 1, 19), start, end, []WeekdayNum{{Weekday: time.Friday, N: 2}}))
	assert.True(t, matchesByDay(date(2024, 1, 26), start, end, []WeekdayNum{{Weekday: time.Friday, N: -1}}))
	assert.True(t, matchesByDay(date(2024, 1, 19), start, end, []WeekdayNum{{Weekday: time.Friday}}))
	assert.False(t, matchesByDay(date(2024, 1, 20), start, end, []WeekdayNum{{Weekday: time.Friday}}))
}

func TestMatchesMonthDay(t *testing.T) {
	assert.True(t, matchesMonthDay(date(2024, 2, 29), []int{-1}))
	assert.False(t, matchesMonthDay(date(2023, 2, 28), []int{29}))
	assert.True(t, matchesMonthDay(date(2023, 2, 28), []int{-1}))
	assert.True(t, matchesMonthDay(date(2024, 3, 15), []int{1, 15}))
}
