package rrule

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParse_Valid(t *testing.T) {
	tests := []struct {
		name string
		rule string
		want Pattern
	}{
		{
			name: "daily",
			rule: "FREQ=DAILY",
			want: Pattern{Freq: Daily, Interval: 1, WeekStart: time.Monday},
		},
		{
			name: "weekday recurrence",
			rule: "FREQ=WEEKLY;BYDAY=MO,WE,FR",
			want: Pattern{
				Freq: Weekly, Interval: 1, WeekStart: time.Monday,
				ByDay: []WeekdayNum{{Weekday: time.Monday}, {Weekday: time.Wednesday}, {Weekday: time.Friday}},
			},
		},
		{
			name: "monthly on the 15th",
			rule: "FREQ=MONTHLY;BYMONTHDAY=15",
			want: Pattern{Freq: Monthly, Interval: 1, WeekStart: time.Monday, ByMonthDay: []int{15}},
		},
		{
			name: "lower case with prefix and trailing separator",
			rule: "RRULE:freq=monthly;byday=2fr,-1su;",
			want: Pattern{
				Freq: Monthly, Interval: 1, WeekStart: time.Monday,
				ByDay: []WeekdayNum{{Weekday: time.Friday, N: 2}, {Weekday: time.Sunday, N: -1}},
			},
		},
		{
			name: "interval and count",
			rule: "FREQ=HOURLY;INTERVAL=6;COUNT=4",
			want: Pattern{Freq: Hourly, Interval: 6, Count: 4, WeekStart: time.Monday},
		},
		{
			name: "utc until",
			rule: "FREQ=DAILY;UNTIL=20240105T090000Z",
			want: Pattern{
				Freq: Daily, Interval: 1, WeekStart: time.Monday,
				Until: time.Date(2024, 1, 5, 9, 0, 0, 0, time.UTC),
			},
		},
		{
			name: "floating until",
			rule: "FREQ=DAILY;UNTIL=20240105T090000",
			want: Pattern{
				Freq: Daily, Interval: 1, WeekStart: time.Monday,
				Until: time.Date(2024, 1, 5, 9, 0, 0, 0, time.UTC), UntilFloating: true,
			},
		},
		{
			name: "date until covers the whole day",
			rule: "FREQ=DAILY;UNTIL=20240105",
			want: Pattern{
				Freq: Daily, Interval: 1, WeekStart: time.Monday,
				Until: time.Date(2024, 1, 5, 23, 59, 59, 0, time.UTC), UntilFloating: true,
			},
		},
		{
			name: "yearly thanksgiving with week start",
			rule: "FREQ=YEARLY;BYMONTH=11;BYDAY=4TH;WKST=SU",
			want: Pattern{
				Freq: Yearly, Interval: 1, WeekStart: time.Sunday,
				ByMonth: []time.Month{time.November},
				ByDay:   []WeekdayNum{{Weekday: time.Thursday, N: 4}},
			},
		},
		{
			name: "negative month days",
			rule: "FREQ=MONTHLY;BYMONTHDAY=1,-1",
			want: Pattern{Freq: Monthly, Interval: 1, WeekStart: time.Monday, ByMonthDay: []int{1, -1}},
		},
		{
			name: "yearly ordinal beyond a month",
			rule: "FREQ=YEARLY;BYDAY=20MO",
			want: Pattern{
				Freq: Yearly, Interval: 1, WeekStart: time.Monday,
				ByDay: []WeekdayNum{{Weekday: time.Monday, N: 20}},
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Parse(tt.rule)
			require.NoError(t, err)
			assert.Equal(t, tt.want, *got)
			assert.True(t, IsValid(tt.rule))
		})
	}
}

func TestParse_Invalid(t *testing.T) {
	rules := map[string]string{
		"no equals sign":            "INVALID_RULE",
		"unknown frequency":         "FREQ=WRONG",
		"empty":                     "",
		"prefix only":               "RRULE:",
		"missing FREQ":              "INTERVAL=2",
		"unknown key":               "FREQ=DAILY;BYHOUR=9",
		"duplicate key":             "FREQ=DAILY;FREQ=WEEKLY",
		"empty value":               "FREQ=DAILY;COUNT=",
		"zero interval":             "FREQ=DAILY;INTERVAL=0",
		"negative interval":         "FREQ=DAILY;INTERVAL=-1",
		"non-numeric count":         "FREQ=DAILY;COUNT=ten",
		"count and until":           "FREQ=DAILY;COUNT=3;UNTIL=20240105T090000Z",
		"bad until":                 "FREQ=DAILY;UNTIL=tomorrow",
		"bad weekday":               "FREQ=WEEKLY;BYDAY=XX",
		"three letter weekday":      "FREQ=WEEKLY;BYDAY=MON",
		"zero ordinal":              "FREQ=MONTHLY;BYDAY=0MO",
		"ordinal out of range":      "FREQ=YEARLY;BYDAY=54MO",
		"monthly ordinal too large": "FREQ=MONTHLY;BYDAY=6MO",
		"ordinal with weekly":       "FREQ=WEEKLY;BYDAY=2MO",
		"ordinal with daily":        "FREQ=DAILY;BYDAY=1MO",
		"month day zero":            "FREQ=MONTHLY;BYMONTHDAY=0",
		"month day too large":       "FREQ=MONTHLY;BYMONTHDAY=32",
		"month day too small":       "FREQ=MONTHLY;BYMONTHDAY=-32",
		"month thirteen":            "FREQ=YEARLY;BYMONTH=13",
		"month zero":                "FREQ=YEARLY;BYMONTH=0",
		"empty list item":           "FREQ=YEARLY;BYMONTH=1,,2",
		"month day with weekly":     "FREQ=WEEKLY;BYMONTHDAY=1",
		"bad week start":            "FREQ=WEEKLY;WKST=XY",
	}

	for name, rule := range rules {
		t.Run(name, func(t *testing.T) {
			p, err := Parse(rule)
			require.Error(t, err)
			assert.Nil(t, p)
			assert.True(t, errors.Is(err, ErrInvalidRule), "got %v", err)
			assert.False(t, errors.Is(err, ErrInvalidArgument))

			var rerr *Error
			require.True(t, errors.As(err, &rerr))
			assert.Equal(t, KindInvalidRule, rerr.Kind)
			assert.False(t, IsValid(rule))
		})
	}
}

func TestParse_WrapsCause(t *testing.T) {
	_, err := Parse("FREQ=DAILY;INTERVAL=abc")
	require.Error(t, err)
	var rerr *Error
	require.True(t, errors.As(err, &rerr))
	assert.NotNil(t, errors.Unwrap(err))
	assert.Contains(t, err.Error(), "INTERVAL")
}

func TestPattern_StringRoundTrip(t *testing.T) {
	rules := []string{
		"FREQ=DAILY",
		"FREQ=WEEKLY;INTERVAL=2;COUNT=10;BYDAY=TU,TH;WKST=SU",
		"FREQ=MONTHLY;BYDAY=-1FR",
		"FREQ=MONTHLY;UNTIL=20241231T235959Z;BYMONTHDAY=1,-1",
		"FREQ=YEARLY;UNTIL=20301231T000000;BYDAY=4TH;BYMONTH=11",
	}

	for _, rule := range rules {
		t.Run(rule, func(t *testing.T) {
			p, err := Parse(rule)
			require.NoError(t, err)
			assert.Equal(t, rule, p.String())

			again, err := Parse(p.String())
			require.NoError(t, err)
			assert.Equal(t, p, again)
		})
	}
}
