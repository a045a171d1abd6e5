package server

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/jakobjanot/pg-rrule/agenda"
	"github.com/jakobjanot/pg-rrule/storage"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func seedEvents(t *testing.T, store storage.Store) map[string]string {
	t.Helper()
	ids := make(map[string]string)
	for _, ev := range []storage.Event{
		{Title: "Team Standup", Start: time.Date(2024, 1, 1, 9, 0, 0, 0, time.UTC), Recurrence: "FREQ=WEEKLY;BYDAY=MO,WE,FR"},
		{Title: "Monthly Review", Start: time.Date(2024, 1, 15, 14, 0, 0, 0, time.UTC), Recurrence: "FREQ=MONTHLY;BYMONTHDAY=15"},
		{Title: "Quarterly Planning", Start: time.Date(2024, 1, 5, 10, 0, 0, 0, time.UTC), Recurrence: "FREQ=MONTHLY;INTERVAL=3"},
	} {
		require.NoError(t, store.CreateEvent(context.Background(), &ev))
		ids[ev.Title] = ev.ID
	}
	return ids
}

func TestEvents_Lifecycle(t *testing.T) {
	srv, _ := newTestServer(t)

	rec := do(t, srv, http.MethodPost, "/api/v1/events", eventRequest{
		Title:      "Team Standup",
		Start:      "2024-03-08T09:00:00",
		Timezone:   "America/New_York",
		Recurrence: "FREQ=WEEKLY;BYDAY=MO,WE,FR",
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	created := decode[eventResponse](t, rec)
	require.NotEmpty(t, created.ID)
	assert.Equal(t, "America/New_York", created.Timezone)
	assert.Equal(t, "/api/v1/events/"+created.ID, rec.Header().Get("Location"))
	assert.True(t, time.Date(2024, 3, 8, 14, 0, 0, 0, time.UTC).Equal(created.Start))

	rec = do(t, srv, http.MethodGet, "/api/v1/events", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	list := decode[[]eventResponse](t, rec)
	require.Len(t, list, 1)
	assert.Equal(t, created.ID, list[0].ID)

	rec = do(t, srv, http.MethodGet, "/api/v1/events/"+created.ID, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "FREQ=WEEKLY;BYDAY=MO,WE,FR", decode[eventResponse](t, rec).Recurrence)

	rec = do(t, srv, http.MethodGet, "/api/v1/events/"+created.ID+"/upcoming?n=2&pivot=2024-03-11T00:00:00Z", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	occ := decode[[]agenda.Occurrence](t, rec)
	require.Len(t, occ, 2)
	// 09:00 New York after the DST change
	assert.True(t, time.Date(2024, 3, 11, 13, 0, 0, 0, time.UTC).Equal(occ[0].Start))
	assert.True(t, time.Date(2024, 3, 13, 13, 0, 0, 0, time.UTC).Equal(occ[1].Start))

	rec = do(t, srv, http.MethodDelete, "/api/v1/events/"+created.ID, nil)
	assert.Equal(t, http.StatusNoContent, rec.Code)

	rec = do(t, srv, http.MethodGet, "/api/v1/events/"+created.ID, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	rec = do(t, srv, http.MethodDelete, "/api/v1/events/"+created.ID, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestEvents_ICS(t *testing.T) {
	srv, store := newTestServer(t)
	ids := seedEvents(t, store)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/events/"+ids["Team Standup"], nil)
	req.Header.Set(headerAccept, "text/calendar")
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, mimeTypeCalendar, rec.Header().Get(headerContentType))
	assert.Contains(t, rec.Body.String(), "RRULE:FREQ=WEEKLY;BYDAY=MO,WE,FR")
	assert.Contains(t, rec.Body.String(), "SUMMARY:Team Standup")

	rec = do(t, srv, http.MethodGet, "/api/v1/events/"+ids["Team Standup"]+"?format=ics", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "BEGIN:VEVENT")
}

func TestEvents_CreateErrors(t *testing.T) {
	srv, _ := newTestServer(t)

	tests := []struct {
		name string
		body eventRequest
		code int
	}{
		{"invalid rule", eventRequest{Title: "Broken", Start: "2024-01-01T09:00:00Z", Recurrence: "INVALID_RULE"}, http.StatusBadRequest},
		{"missing title", eventRequest{Start: "2024-01-01T09:00:00Z"}, http.StatusBadRequest},
		{"missing start", eventRequest{Title: "No start"}, http.StatusBadRequest},
		{"bad start", eventRequest{Title: "Bad", Start: "soon"}, http.StatusBadRequest},
		{"unknown timezone", eventRequest{Title: "Bad", Start: "2024-01-01T09:00:00", Timezone: "Mars/Olympus"}, http.StatusBadRequest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := do(t, srv, http.MethodPost, "/api/v1/events", tt.body)
			assert.Equal(t, tt.code, rec.Code, rec.Body.String())
		})
	}

	dup := eventRequest{ID: "standup", Title: "Standup", Start: "2024-01-01T09:00:00Z"}
	require.Equal(t, http.StatusCreated, do(t, srv, http.MethodPost, "/api/v1/events", dup).Code)
	assert.Equal(t, http.StatusConflict, do(t, srv, http.MethodPost, "/api/v1/events", dup).Code)
}

func TestEvents_FixedOffsetStart(t *testing.T) {
	srv, _ := newTestServer(t)

	rec := do(t, srv, http.MethodPost, "/api/v1/events", eventRequest{
		Title:      "Standup",
		Start:      "2024-01-01T02:00:00+05:00",
		Recurrence: "FREQ=WEEKLY;BYDAY=MO",
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	created := decode[eventResponse](t, rec)
	assert.Equal(t, "+05:00", created.Timezone)

	rec = do(t, srv, http.MethodGet, "/api/v1/events/"+created.ID+"/upcoming?n=2&pivot=2023-12-31T00:00:00Z", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	occ := decode[[]agenda.Occurrence](t, rec)
	require.Len(t, occ, 2)
	assert.True(t, time.Date(2023, 12, 31, 21, 0, 0, 0, time.UTC).Equal(occ[0].Start))
	assert.True(t, time.Date(2024, 1, 7, 21, 0, 0, 0, time.UTC).Equal(occ[1].Start))

	// A local start with an offset timezone is read at that offset.
	rec = do(t, srv, http.MethodPost, "/api/v1/events", eventRequest{
		Title:    "Review",
		Start:    "2024-01-01T02:00:00",
		Timezone: "-03:00",
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	created = decode[eventResponse](t, rec)
	assert.Equal(t, "-03:00", created.Timezone)
	assert.True(t, time.Date(2024, 1, 1, 5, 0, 0, 0, time.UTC).Equal(created.Start))
}

func TestEvents_BasicAuth(t *testing.T) {
	srv, _ := newTestServer(t, WithBasicAuth("admin", "secret"))
	body := eventRequest{Title: "Standup", Start: "2024-01-01T09:00:00Z"}

	rec := do(t, srv, http.MethodPost, "/api/v1/events", body)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = do(t, srv, http.MethodGet, "/api/v1/events", nil)
	assert.Equal(t, http.StatusOK, rec.Code)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/events", nil)
	req.SetBasicAuth("admin", "wrong")
	rec = httptest.NewRecorder()
	srv.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	b := `{"title":"Standup","start":"2024-01-01T09:00:00Z"}`
	req = httptest.NewRequest(http.MethodPost, "/api/v1/events", strings.NewReader(b))
	req.Header.Set(headerContentType, "application/json")
	req.SetBasicAuth("admin", "secret")
	rec = httptest.NewRecorder()
	srv.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
}

func TestAgenda(t *testing.T) {
	srv, store := newTestServer(t)
	ids := seedEvents(t, store)

	rec := do(t, srv, http.MethodGet, "/api/v1/agenda/next", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	next := decode[[]struct {
		EventID string     `json:"event_id"`
		Title   string     `json:"title"`
		Next    *time.Time `json:"next"`
	}](t, rec)
	require.Len(t, next, 3)
	assert.Equal(t, ids["Team Standup"], next[0].EventID)
	require.NotNil(t, next[0].Next)
	assert.True(t, time.Date(2024, 1, 17, 9, 0, 0, 0, time.UTC).Equal(*next[0].Next))

	// default window: seven days from now
	rec = do(t, srv, http.MethodGet, "/api/v1/agenda", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	schedule := decode[[]agenda.Occurrence](t, rec)
	require.Len(t, schedule, 3)
	assert.True(t, time.Date(2024, 1, 17, 9, 0, 0, 0, time.UTC).Equal(schedule[0].Start))
	assert.True(t, time.Date(2024, 1, 22, 9, 0, 0, 0, time.UTC).Equal(schedule[2].Start))

	rec = do(t, srv, http.MethodGet, "/api/v1/agenda/stats?from=2024-01-01&to=2024-01-31T23:59:59Z", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	stats := decode[[]agenda.Stat](t, rec)
	require.Len(t, stats, 3)
	assert.Equal(t, "Team Standup", stats[0].Title)
	assert.Equal(t, 14, stats[0].Count)

	rec = do(t, srv, http.MethodGet, "/api/v1/agenda?from=2024-03-01&to=2024-02-01", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = do(t, srv, http.MethodGet, "/api/v1/agenda/stats?from=2030-01-01&to=2030-01-01T01:00:00Z", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `[]`, rec.Body.String())

	rec = do(t, srv, http.MethodGet, "/api/v1/agenda/busy?from=2024-01-15&to=2024-01-15T23:59:59Z", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	busy := decode[[]eventResponse](t, rec)
	require.Len(t, busy, 2)
	assert.Equal(t, ids["Team Standup"], busy[0].ID)
	assert.Equal(t, ids["Monthly Review"], busy[1].ID)

	rec = do(t, srv, http.MethodGet, "/api/v1/agenda/busy?from=2024-01-13&to=2024-01-13T23:59:59Z", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `[]`, rec.Body.String())

	rec = do(t, srv, http.MethodGet, "/api/v1/events/missing/upcoming", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}
