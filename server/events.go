package server

import (
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/jakobjanot/pg-rrule/storage"
	"github.com/labstack/echo/v4"
)

// eventRequest is the body of POST /api/v1/events
type eventRequest struct {
	ID          string      `json:"id"`
	Title       string      `json:"title"`
	Description string      `json:"description"`
	Location    string      `json:"location"`
	Start       string      `json:"start"`
	Timezone    string      `json:"timezone"`
	Recurrence  string      `json:"recurrence"`
	RDates      []time.Time `json:"rdates"`
	ExDates     []time.Time `json:"exdates"`
}

type eventResponse struct {
	ID          string      `json:"id"`
	Title       string      `json:"title"`
	Description string      `json:"description,omitempty"`
	Location    string      `json:"location,omitempty"`
	Start       time.Time   `json:"start"`
	Timezone    string      `json:"timezone,omitempty"`
	Recurrence  string      `json:"recurrence,omitempty"`
	RDates      []time.Time `json:"rdates,omitempty"`
	ExDates     []time.Time `json:"exdates,omitempty"`
	Created     time.Time   `json:"created"`
	Modified    time.Time   `json:"modified"`
}

func toEventResponse(ev *storage.Event) eventResponse {
	return eventResponse{
		ID:          ev.ID,
		Title:       ev.Title,
		Description: ev.Description,
		Location:    ev.Location,
		Start:       ev.Start,
		Timezone:    storage.Zone(ev.Start),
		Recurrence:  ev.Recurrence,
		RDates:      ev.RDates,
		ExDates:     ev.ExDates,
		Created:     ev.Created,
		Modified:    ev.Modified,
	}
}

// toEvent resolves the request's start. A timezone in the request wins;
// otherwise an RFC 3339 start keeps its own offset and a local one is read
// in the server's location.
func (s *Server) toEvent(req eventRequest) (*storage.Event, error) {
	if req.Start == "" {
		return nil, badRequest("start is required", nil)
	}
	start, err := parseTime(req.Start, s.location)
	if err != nil {
		return nil, badRequest(fmt.Sprintf("invalid start: %v", err), err)
	}
	if req.Timezone != "" {
		loc, err := zoneParam(req.Timezone)
		if err != nil {
			return nil, badRequest(fmt.Sprintf("unknown timezone %q", req.Timezone), err)
		}
		if start, err = parseTime(req.Start, loc); err != nil {
			return nil, badRequest(fmt.Sprintf("invalid start: %v", err), err)
		}
		start = start.In(loc)
	}

	return &storage.Event{
		ID:          req.ID,
		Title:       req.Title,
		Description: req.Description,
		Location:    req.Location,
		Start:       start,
		Recurrence:  req.Recurrence,
		RDates:      req.RDates,
		ExDates:     req.ExDates,
	}, nil
}

func (s *Server) handleListEvents(c echo.Context) error {
	events, err := s.store.ListEvents(c.Request().Context())
	if err != nil {
		return httpError(err)
	}
	out := make([]eventResponse, len(events))
	for i := range events {
		out[i] = toEventResponse(&events[i])
	}
	return c.JSON(http.StatusOK, out)
}

func (s *Server) handleCreateEvent(c echo.Context) error {
	var req eventRequest
	if err := c.Bind(&req); err != nil {
		return err
	}
	ev, err := s.toEvent(req)
	if err != nil {
		return err
	}
	if err := s.store.CreateEvent(c.Request().Context(), ev); err != nil {
		return httpError(err)
	}
	c.Response().Header().Set(echo.HeaderLocation, "/api/v1/events/"+ev.ID)
	return c.JSON(http.StatusCreated, toEventResponse(ev))
}

func (s *Server) handleGetEvent(c echo.Context) error {
	ev, err := s.store.GetEvent(c.Request().Context(), c.Param("id"))
	if err != nil {
		return httpError(err)
	}

	if c.QueryParam("format") == "ics" || strings.Contains(c.Request().Header.Get(headerAccept), "text/calendar") {
		ics, err := ev.ToICS()
		if err != nil {
			return httpError(err)
		}
		return c.Blob(http.StatusOK, mimeTypeCalendar, []byte(ics))
	}
	return c.JSON(http.StatusOK, toEventResponse(ev))
}

func (s *Server) handleDeleteEvent(c echo.Context) error {
	if err := s.store.DeleteEvent(c.Request().Context(), c.Param("id")); err != nil {
		return httpError(err)
	}
	return c.NoContent(http.StatusNoContent)
}

func (s *Server) handleEventUpcoming(c echo.Context) error {
	n, err := intParamOr(c, "n", defaultUpcoming)
	if err != nil {
		return err
	}
	now, err := s.timeParamOr(c, "pivot", s.now())
	if err != nil {
		return err
	}

	return s.expand(c, func() error {
		occ, err := s.agenda.Upcoming(c.Request().Context(), c.Param("id"), now, n)
		if err != nil {
			return httpError(err)
		}
		return c.JSON(http.StatusOK, occ)
	})
}

func (s *Server) handleSchedule(c echo.Context) error {
	from, to, err := s.window(c)
	if err != nil {
		return err
	}
	return s.expand(c, func() error {
		occ, err := s.agenda.Schedule(c.Request().Context(), from, to)
		if err != nil {
			return httpError(err)
		}
		if occ == nil {
			return c.JSON(http.StatusOK, []struct{}{})
		}
		return c.JSON(http.StatusOK, occ)
	})
}

func (s *Server) handleAgendaNext(c echo.Context) error {
	now, err := s.timeParamOr(c, "now", s.now())
	if err != nil {
		return err
	}
	return s.expand(c, func() error {
		next, err := s.agenda.NextPerEvent(c.Request().Context(), now)
		if err != nil {
			return httpError(err)
		}
		return c.JSON(http.StatusOK, next)
	})
}

func (s *Server) handleStats(c echo.Context) error {
	from, to, err := s.window(c)
	if err != nil {
		return err
	}
	return s.expand(c, func() error {
		stats, err := s.agenda.Stats(c.Request().Context(), from, to)
		if err != nil {
			return httpError(err)
		}
		if stats == nil {
			return c.JSON(http.StatusOK, []struct{}{})
		}
		return c.JSON(http.StatusOK, stats)
	})
}

func (s *Server) handleBusy(c echo.Context) error {
	from, to, err := s.window(c)
	if err != nil {
		return err
	}
	return s.expand(c, func() error {
		events, err := s.agenda.Busy(c.Request().Context(), from, to)
		if err != nil {
			return httpError(err)
		}
		out := make([]eventResponse, len(events))
		for i := range events {
			out[i] = toEventResponse(&events[i])
		}
		return c.JSON(http.StatusOK, out)
	})
}
