package server

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
)

// Accepted layouts for times in query parameters and request bodies. The
// ones without an offset are read in the server's location.
var localLayouts = []string{
	"2006-01-02T15:04:05",
	"2006-01-02T15:04",
	"2006-01-02",
}

// parseTime reads an RFC 3339 instant or a local date-time in loc
func parseTime(value string, loc *time.Location) (time.Time, error) {
	if t, err := time.Parse(time.RFC3339Nano, value); err == nil {
		return t, nil
	}
	for _, layout := range localLayouts {
		if t, err := time.ParseInLocation(layout, value, loc); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("cannot parse %q as a time", value)
}

// zoneParam resolves an IANA zone name or a UTC offset such as "+05:00"
func zoneParam(zone string) (*time.Location, error) {
	if strings.HasPrefix(zone, "+") || strings.HasPrefix(zone, "-") {
		ref, err := time.Parse("-07:00", zone)
		if err != nil {
			return nil, err
		}
		_, offset := ref.Zone()
		return time.FixedZone(zone, offset), nil
	}
	return time.LoadLocation(zone)
}

// timeParam reads a required time query parameter
func (s *Server) timeParam(c echo.Context, name string) (time.Time, error) {
	value := c.QueryParam(name)
	if value == "" {
		return time.Time{}, badRequest(fmt.Sprintf("missing %q parameter", name), nil)
	}
	t, err := parseTime(value, s.location)
	if err != nil {
		return time.Time{}, badRequest(fmt.Sprintf("invalid %q parameter: %v", name, err), err)
	}
	return t, nil
}

// timeParamOr reads an optional time query parameter
func (s *Server) timeParamOr(c echo.Context, name string, def time.Time) (time.Time, error) {
	if c.QueryParam(name) == "" {
		return def, nil
	}
	return s.timeParam(c, name)
}

// intParamOr reads an optional integer query parameter
func intParamOr(c echo.Context, name string, def int) (int, error) {
	value := c.QueryParam(name)
	if value == "" {
		return def, nil
	}
	n, err := strconv.Atoi(value)
	if err != nil {
		return 0, badRequest(fmt.Sprintf("invalid %q parameter: %q is not an integer", name, value), err)
	}
	return n, nil
}

// window reads the from/to parameters, defaulting to the next seven days
func (s *Server) window(c echo.Context) (time.Time, time.Time, error) {
	from, err := s.timeParamOr(c, "from", s.now().In(s.location))
	if err != nil {
		return time.Time{}, time.Time{}, err
	}
	to, err := s.timeParamOr(c, "to", from.AddDate(0, 0, 7))
	if err != nil {
		return time.Time{}, time.Time{}, err
	}
	return from, to, nil
}
