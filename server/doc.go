/*
Package server exposes recurrence queries and stored events over HTTP with
echo.

# Basic Usage

	engine := rrule.NewEngine()
	srv, err := server.New(engine, memory.New(memory.WithEngine(engine)))
	if err != nil {
		log.Fatal(err)
	}
	log.Fatal(srv.Start(":8080"))

Server also implements http.Handler, so it can be mounted on another mux.

# Routes

Rule queries take the rule text and its anchor as query parameters:

	GET /api/v1/rules/validate?rule=FREQ=DAILY
	GET /api/v1/rules/next?rule=...&anchor=...&pivot=...
	GET /api/v1/rules/upcoming?rule=...&anchor=...&pivot=...&n=5
	GET /api/v1/rules/occurrences?rule=...&anchor=...&start=...&end=...[&format=xcal]

Stored events and the agenda built from them:

	GET    /api/v1/events
	POST   /api/v1/events
	GET    /api/v1/events/:id          (Accept: text/calendar for iCalendar)
	DELETE /api/v1/events/:id
	GET    /api/v1/events/:id/upcoming?n=5
	GET    /api/v1/agenda?from=...&to=...
	GET    /api/v1/agenda/next
	GET    /api/v1/agenda/stats?from=...&to=...
	GET    /api/v1/agenda/busy?from=...&to=...

Times are RFC 3339. Values without an offset (2024-01-15T09:00:00 or
2024-01-15) are read in the zone given by WithLocation.

# Errors

Errors are JSON objects with a "message" field. Invalid rules and arguments
answer 400, expansions beyond the engine's limits 422, unknown events 404
and duplicate IDs 409.
*/
package server
