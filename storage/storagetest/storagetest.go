// Package storagetest holds the behaviour every storage.Store must share.
// Backend tests call Run with a constructor for a fresh, empty store.
package storagetest

import (
	"context"
	"testing"
	"time"
	_ "time/tzdata"

	"github.com/jakobjanot/pg-rrule/recurrence"
	"github.com/jakobjanot/pg-rrule/rrule"
	"github.com/jakobjanot/pg-rrule/storage"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Run exercises store behaviour against stores made by newStore
func Run(t *testing.T, newStore func(t *testing.T) storage.Store) {
	t.Run("CreateAndGet", func(t *testing.T) { testCreateAndGet(t, newStore(t)) })
	t.Run("KeepsZone", func(t *testing.T) { testKeepsZone(t, newStore(t)) })
	t.Run("KeepsOffset", func(t *testing.T) { testKeepsOffset(t, newStore(t)) })
	t.Run("DateLists", func(t *testing.T) { testDateLists(t, newStore(t)) })
	t.Run("Validation", func(t *testing.T) { testValidation(t, newStore(t)) })
	t.Run("Duplicate", func(t *testing.T) { testDuplicate(t, newStore(t)) })
	t.Run("NotFound", func(t *testing.T) { testNotFound(t, newStore(t)) })
	t.Run("ListOrder", func(t *testing.T) { testListOrder(t, newStore(t)) })
	t.Run("Delete", func(t *testing.T) { testDelete(t, newStore(t)) })
}

func testCreateAndGet(t *testing.T, store storage.Store) {
	ctx := context.Background()
	start := time.Date(2024, 1, 1, 9, 0, 0, 0, time.UTC)

	ev := &storage.Event{
		Title:       "Team Standup",
		Description: "Daily sync",
		Location:    "Room 4",
		Start:       start,
		Recurrence:  "FREQ=WEEKLY;BYDAY=MO,WE,FR",
	}
	require.NoError(t, store.CreateEvent(ctx, ev))
	assert.NotEmpty(t, ev.ID)
	assert.False(t, ev.Created.IsZero())
	assert.Equal(t, ev.Created, ev.Modified)

	got, err := store.GetEvent(ctx, ev.ID)
	require.NoError(t, err)
	assert.Equal(t, ev.ID, got.ID)
	assert.Equal(t, "Team Standup", got.Title)
	assert.Equal(t, "Daily sync", got.Description)
	assert.Equal(t, "Room 4", got.Location)
	assert.Equal(t, "FREQ=WEEKLY;BYDAY=MO,WE,FR", got.Recurrence)
	assert.True(t, start.Equal(got.Start), "start %s", got.Start)
	assert.True(t, ev.Created.Equal(got.Created), "created %s", got.Created)
}

func testKeepsZone(t *testing.T, store storage.Store) {
	ctx := context.Background()
	ny, err := time.LoadLocation("America/New_York")
	require.NoError(t, err)

	ev := &storage.Event{
		Title:      "Standup",
		Start:      time.Date(2024, 3, 8, 9, 0, 0, 0, ny),
		Recurrence: "FREQ=DAILY",
	}
	require.NoError(t, store.CreateEvent(ctx, ev))

	got, err := store.GetEvent(ctx, ev.ID)
	require.NoError(t, err)
	assert.Equal(t, "America/New_York", got.Start.Location().String())
	assert.Equal(t, 9, got.Start.Hour())
}

func testKeepsOffset(t *testing.T, store storage.Store) {
	ctx := context.Background()
	plus5 := time.FixedZone("", 5*60*60)

	// Monday 02:00 at +05:00 is still Sunday in UTC.
	ev := &storage.Event{
		Title:      "Standup",
		Start:      time.Date(2024, 1, 1, 2, 0, 0, 0, plus5),
		Recurrence: "FREQ=WEEKLY;BYDAY=MO",
		ExDates:    []time.Time{time.Date(2024, 1, 8, 2, 0, 0, 0, plus5)},
	}
	require.NoError(t, store.CreateEvent(ctx, ev))

	got, err := store.GetEvent(ctx, ev.ID)
	require.NoError(t, err)
	_, offset := got.Start.Zone()
	assert.Equal(t, 5*60*60, offset)
	assert.Equal(t, time.Monday, got.Start.Weekday())
	assert.Equal(t, 2, got.Start.Hour())
	require.Len(t, got.ExDates, 1)
	assert.Equal(t, 2, got.ExDates[0].Hour())

	occ, err := recurrence.NewExpander(rrule.NewEngine()).Upcoming(got.Series(), got.Start, 3)
	require.NoError(t, err)
	require.Len(t, occ, 3)
	for i, day := range []int{1, 15, 22} {
		want := time.Date(2024, 1, day, 2, 0, 0, 0, plus5)
		assert.True(t, want.Equal(occ[i].Start), "occurrence %d: want %s, got %s", i, want, occ[i].Start)
		assert.Equal(t, time.Monday, occ[i].Start.Weekday())
	}
}

func testDateLists(t *testing.T, store storage.Store) {
	ctx := context.Background()
	start := time.Date(2024, 1, 1, 9, 0, 0, 0, time.UTC)

	ev := &storage.Event{
		Title:      "Standup",
		Start:      start,
		Recurrence: "FREQ=DAILY;COUNT=5",
		RDates:     []time.Time{time.Date(2024, 1, 10, 9, 0, 0, 0, time.UTC)},
		ExDates:    []time.Time{time.Date(2024, 1, 3, 9, 0, 0, 0, time.UTC)},
	}
	require.NoError(t, store.CreateEvent(ctx, ev))

	got, err := store.GetEvent(ctx, ev.ID)
	require.NoError(t, err)
	require.Len(t, got.RDates, 1)
	require.Len(t, got.ExDates, 1)
	assert.True(t, ev.RDates[0].Equal(got.RDates[0]))
	assert.True(t, ev.ExDates[0].Equal(got.ExDates[0]))
}

func testValidation(t *testing.T, store storage.Store) {
	ctx := context.Background()
	start := time.Date(2024, 1, 1, 9, 0, 0, 0, time.UTC)

	tests := map[string]storage.Event{
		"invalid rule":  {Title: "Broken", Start: start, Recurrence: "INVALID_RULE"},
		"unknown freq":  {Title: "Broken", Start: start, Recurrence: "FREQ=WRONG"},
		"missing title": {Start: start, Recurrence: "FREQ=DAILY"},
		"missing start": {Title: "No start", Recurrence: "FREQ=DAILY"},
	}
	for name, ev := range tests {
		t.Run(name, func(t *testing.T) {
			err := store.CreateEvent(ctx, &ev)
			require.Error(t, err)
			assert.ErrorIs(t, err, storage.ErrInvalidInput)
		})
	}

	events, err := store.ListEvents(ctx)
	require.NoError(t, err)
	assert.Empty(t, events)
}

func testDuplicate(t *testing.T, store storage.Store) {
	ctx := context.Background()
	start := time.Date(2024, 1, 1, 9, 0, 0, 0, time.UTC)

	first := &storage.Event{ID: "7d5c0c8e-7d3b-4d8e-9d63-0a6f2f1b2c3d", Title: "One", Start: start}
	require.NoError(t, store.CreateEvent(ctx, first))

	second := &storage.Event{ID: first.ID, Title: "Two", Start: start}
	err := store.CreateEvent(ctx, second)
	require.Error(t, err)
	assert.ErrorIs(t, err, storage.ErrAlreadyExists)

	got, err := store.GetEvent(ctx, first.ID)
	require.NoError(t, err)
	assert.Equal(t, "One", got.Title)
}

func testNotFound(t *testing.T, store storage.Store) {
	ctx := context.Background()

	_, err := store.GetEvent(ctx, "missing")
	require.Error(t, err)
	assert.ErrorIs(t, err, storage.ErrNotFound)

	var serr *storage.Error
	require.ErrorAs(t, err, &serr)
	assert.Equal(t, storage.TypeNotFound, serr.Type)

	assert.ErrorIs(t, store.DeleteEvent(ctx, "missing"), storage.ErrNotFound)
}

func testListOrder(t *testing.T, store storage.Store) {
	ctx := context.Background()

	for _, ev := range []storage.Event{
		{Title: "Monthly Review", Start: time.Date(2024, 1, 15, 14, 0, 0, 0, time.UTC), Recurrence: "FREQ=MONTHLY;BYMONTHDAY=15"},
		{Title: "Team Standup", Start: time.Date(2024, 1, 1, 9, 0, 0, 0, time.UTC), Recurrence: "FREQ=WEEKLY;BYDAY=MO,WE,FR"},
		{Title: "Quarterly Planning", Start: time.Date(2024, 1, 5, 10, 0, 0, 0, time.UTC), Recurrence: "FREQ=MONTHLY;INTERVAL=3"},
	} {
		require.NoError(t, store.CreateEvent(ctx, &ev))
	}

	events, err := store.ListEvents(ctx)
	require.NoError(t, err)
	require.Len(t, events, 3)
	assert.Equal(t, "Team Standup", events[0].Title)
	assert.Equal(t, "Quarterly Planning", events[1].Title)
	assert.Equal(t, "Monthly Review", events[2].Title)
}

func testDelete(t *testing.T, store storage.Store) {
	ctx := context.Background()

	ev := &storage.Event{Title: "Gone soon", Start: time.Date(2024, 1, 1, 9, 0, 0, 0, time.UTC)}
	require.NoError(t, store.CreateEvent(ctx, ev))
	require.NoError(t, store.DeleteEvent(ctx, ev.ID))

	_, err := store.GetEvent(ctx, ev.ID)
	assert.ErrorIs(t, err, storage.ErrNotFound)

	events, err := store.ListEvents(ctx)
	require.NoError(t, err)
	assert.Empty(t, events)
}
