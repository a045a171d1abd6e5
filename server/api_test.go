package server

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"
	_ "time/tzdata"

	"github.com/jakobjanot/pg-rrule/internal/xcal"
	"github.com/jakobjanot/pg-rrule/rrule"
	"github.com/jakobjanot/pg-rrule/storage"
	"github.com/jakobjanot/pg-rrule/storage/memory"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testNow = time.Date(2024, 1, 16, 0, 0, 0, 0, time.UTC)

func newTestServer(t *testing.T, opts ...Option) (*Server, storage.Store) {
	t.Helper()
	engine := rrule.NewEngine()
	store := memory.New(memory.WithEngine(engine))
	srv, err := New(engine, store, opts...)
	require.NoError(t, err)
	srv.now = func() time.Time { return testNow }
	return srv, store
}

func do(t *testing.T, srv *Server, method, target string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body != nil {
		b, err := json.Marshal(body)
		require.NoError(t, err)
		req = httptest.NewRequest(method, target, bytes.NewReader(b))
		req.Header.Set(headerContentType, "application/json")
	} else {
		req = httptest.NewRequest(method, target, nil)
	}
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v), rec.Body.String())
	return v
}

func query(path string, params map[string]string) string {
	q := url.Values{}
	for k, v := range params {
		q.Set(k, v)
	}
	return path + "?" + q.Encode()
}

func TestNew_RequiresDependencies(t *testing.T) {
	_, err := New(nil, memory.New())
	assert.Error(t, err)
	_, err = New(rrule.NewEngine(), nil)
	assert.Error(t, err)
}

func TestHealth(t *testing.T) {
	srv, _ := newTestServer(t)
	rec := do(t, srv, http.MethodGet, "/healthz", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String())
}

func TestValidate(t *testing.T) {
	srv, _ := newTestServer(t)

	rec := do(t, srv, http.MethodGet, query("/api/v1/rules/validate", map[string]string{"rule": "FREQ=WEEKLY;BYDAY=MO,WE,FR"}), nil)
	require.Equal(t, http.StatusOK, rec.Code)
	ok := decode[validateResponse](t, rec)
	assert.True(t, ok.Valid)
	assert.Empty(t, ok.Error)

	for _, rule := range []string{"INVALID_RULE", "FREQ=WRONG", ""} {
		rec = do(t, srv, http.MethodGet, query("/api/v1/rules/validate", map[string]string{"rule": rule}), nil)
		require.Equal(t, http.StatusOK, rec.Code)
		bad := decode[validateResponse](t, rec)
		assert.False(t, bad.Valid, rule)
		assert.NotEmpty(t, bad.Error)
	}
}

func TestNext(t *testing.T) {
	srv, _ := newTestServer(t)

	rec := do(t, srv, http.MethodGet, query("/api/v1/rules/next", map[string]string{
		"rule":   "FREQ=DAILY",
		"anchor": "2024-01-01T09:00:00Z",
		"pivot":  "2024-01-10T12:00:00Z",
	}), nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"next":"2024-01-11T09:00:00Z"}`, rec.Body.String())

	// pivot defaults to now
	rec = do(t, srv, http.MethodGet, query("/api/v1/rules/next", map[string]string{
		"rule":   "FREQ=WEEKLY;BYDAY=MO,WE,FR",
		"anchor": "2024-01-01T09:00:00Z",
	}), nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"next":"2024-01-17T09:00:00Z"}`, rec.Body.String())

	rec = do(t, srv, http.MethodGet, query("/api/v1/rules/next", map[string]string{
		"rule":   "FREQ=DAILY;COUNT=2",
		"anchor": "2024-01-01T09:00:00Z",
	}), nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"next":null}`, rec.Body.String())
}

func TestNext_LocalTimes(t *testing.T) {
	ny, err := time.LoadLocation("America/New_York")
	require.NoError(t, err)
	srv, _ := newTestServer(t, WithLocation(ny))

	rec := do(t, srv, http.MethodGet, query("/api/v1/rules/next", map[string]string{
		"rule":   "FREQ=DAILY",
		"anchor": "2024-03-08T09:00:00",
		"pivot":  "2024-03-11",
	}), nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"next":"2024-03-11T09:00:00-04:00"}`, rec.Body.String())
}

func TestUpcoming(t *testing.T) {
	srv, _ := newTestServer(t)

	rec := do(t, srv, http.MethodGet, query("/api/v1/rules/upcoming", map[string]string{
		"rule":   "FREQ=MONTHLY;BYDAY=-1FR",
		"anchor": "2024-01-26T17:00:00Z",
		"pivot":  "2024-01-01T00:00:00Z",
		"n":      "3",
	}), nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"occurrences":["2024-01-26T17:00:00Z","2024-02-23T17:00:00Z","2024-03-29T17:00:00Z"]}`, rec.Body.String())
}

func TestOccurrences(t *testing.T) {
	srv, _ := newTestServer(t)
	params := map[string]string{
		"rule":   "FREQ=WEEKLY;BYDAY=MO,WE,FR",
		"anchor": "2024-01-01T09:00:00Z",
		"start":  "2024-01-01T00:00:00Z",
		"end":    "2024-01-31T23:59:59Z",
	}

	rec := do(t, srv, http.MethodGet, query("/api/v1/rules/occurrences", params), nil)
	require.Equal(t, http.StatusOK, rec.Code)
	resp := decode[occurrencesResponse](t, rec)
	assert.Len(t, resp.Occurrences, 14)

	params["start"] = "2024-02-02T00:00:00Z"
	params["end"] = "2024-02-02T01:00:00Z"
	rec = do(t, srv, http.MethodGet, query("/api/v1/rules/occurrences", params), nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"occurrences":[]}`, rec.Body.String())
}

func TestOccurrences_XCal(t *testing.T) {
	srv, _ := newTestServer(t)

	rec := do(t, srv, http.MethodGet, query("/api/v1/rules/occurrences", map[string]string{
		"rule":   "FREQ=DAILY;COUNT=3",
		"anchor": "2024-01-01T09:00:00Z",
		"start":  "2024-01-01T00:00:00Z",
		"end":    "2024-01-31T00:00:00Z",
		"format": "xcal",
		"uid":    "standup",
	}), nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, strings.HasPrefix(rec.Header().Get(headerContentType), "application/calendar+xml"))

	cal, err := xcal.ReadCalendar(rec.Body)
	require.NoError(t, err)
	require.Len(t, cal.Events, 3)
	assert.Equal(t, "standup", cal.Events[0].UID)
	assert.True(t, time.Date(2024, 1, 3, 9, 0, 0, 0, time.UTC).Equal(cal.Events[2].Start))
}

func TestRuleErrors(t *testing.T) {
	limited := rrule.DefaultEngineConfig
	limited.MaxRangeOccurrences = 5
	engine := rrule.NewEngineWithConfig(limited)
	srv, err := New(engine, memory.New())
	require.NoError(t, err)

	tests := []struct {
		name   string
		target string
		code   int
	}{
		{"missing rule", "/api/v1/rules/next?anchor=2024-01-01T09:00:00Z", http.StatusBadRequest},
		{"missing anchor", "/api/v1/rules/next?rule=FREQ=DAILY", http.StatusBadRequest},
		{"invalid rule", query("/api/v1/rules/next", map[string]string{"rule": "FREQ=WRONG", "anchor": "2024-01-01T09:00:00Z"}), http.StatusBadRequest},
		{"bad time", query("/api/v1/rules/next", map[string]string{"rule": "FREQ=DAILY", "anchor": "yesterday"}), http.StatusBadRequest},
		{"bad n", query("/api/v1/rules/upcoming", map[string]string{"rule": "FREQ=DAILY", "anchor": "2024-01-01T09:00:00Z", "n": "many"}), http.StatusBadRequest},
		{"zero n", query("/api/v1/rules/upcoming", map[string]string{"rule": "FREQ=DAILY", "anchor": "2024-01-01T09:00:00Z", "n": "0"}), http.StatusBadRequest},
		{"n above limit", query("/api/v1/rules/upcoming", map[string]string{"rule": "FREQ=DAILY", "anchor": "2024-01-01T09:00:00Z", "n": "10001"}), http.StatusBadRequest},
		{"empty range", query("/api/v1/rules/occurrences", map[string]string{
			"rule": "FREQ=DAILY", "anchor": "2024-01-01T09:00:00Z", "start": "2024-02-01T00:00:00Z", "end": "2024-01-01T00:00:00Z",
		}), http.StatusBadRequest},
		{"range limit", query("/api/v1/rules/occurrences", map[string]string{
			"rule": "FREQ=DAILY", "anchor": "2024-01-01T09:00:00Z", "start": "2024-01-01T00:00:00Z", "end": "2024-02-01T00:00:00Z",
		}), http.StatusUnprocessableEntity},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := do(t, srv, http.MethodGet, tt.target, nil)
			assert.Equal(t, tt.code, rec.Code, rec.Body.String())
			assert.Contains(t, rec.Body.String(), `"message"`)
		})
	}
}

func TestRequestLogging(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, nil))
	srv, _ := newTestServer(t, WithLogger(logger))

	do(t, srv, http.MethodGet, "/healthz", nil)
	assert.Contains(t, buf.String(), "msg=request")
	assert.Contains(t, buf.String(), "uri=/healthz")
	assert.Contains(t, buf.String(), "status=200")
}

func TestShutdown(t *testing.T) {
	srv, _ := newTestServer(t)
	assert.NoError(t, srv.Shutdown(context.Background()))
}
