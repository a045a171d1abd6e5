package recurrence

import (
	"testing"
	"time"

	"github.com/jakobjanot/pg-rrule/rrule"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExpander_Schedule(t *testing.T) {
	x := NewExpander(rrule.NewEngine())
	s := Series{
		UID:   "standup",
		Start: utc(2024, 1, 1, 9, 0),
		Recurrence: RecurrenceInfo{
			RRULE:  "FREQ=DAILY;COUNT=3",
			EXDATE: []time.Time{utc(2024, 1, 2, 9, 0)},
			RDATE:  []time.Time{utc(2024, 1, 10, 9, 0)},
		},
	}

	sched, err := x.Schedule(s)
	require.NoError(t, err)

	tests := []struct {
		after time.Time
		want  time.Time
	}{
		{utc(2024, 1, 1, 0, 0), utc(2024, 1, 1, 9, 0)},
		{utc(2024, 1, 1, 9, 0), utc(2024, 1, 3, 9, 0)},
		{utc(2024, 1, 3, 9, 0), utc(2024, 1, 10, 9, 0)},
		{utc(2024, 1, 10, 9, 0), time.Time{}},
	}
	for _, tt := range tests {
		t.Run(tt.after.Format(time.RFC3339), func(t *testing.T) {
			got := sched.Next(tt.after)
			assert.True(t, tt.want.Equal(got), "want %s, got %s", tt.want, got)
		})
	}
}

func TestExpander_ScheduleSingle(t *testing.T) {
	x := NewExpander(rrule.NewEngine())
	sched, err := x.Schedule(Series{Start: utc(2024, 1, 1, 9, 0)})
	require.NoError(t, err)

	assert.Equal(t, utc(2024, 1, 1, 9, 0), sched.Next(utc(2023, 12, 31, 0, 0)))
	assert.True(t, sched.Next(utc(2024, 1, 1, 9, 0)).IsZero())

	_, err = x.Schedule(Series{Start: utc(2024, 1, 1, 9, 0), Recurrence: RecurrenceInfo{RRULE: "FREQ=WRONG"}})
	assert.ErrorIs(t, err, rrule.ErrInvalidRule)
}
