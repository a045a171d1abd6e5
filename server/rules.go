package server

import (
	"bytes"
	"net/http"
	"time"

	"github.com/jakobjanot/pg-rrule/internal/xcal"
	"github.com/labstack/echo/v4"
	"github.com/samber/mo"
)

const defaultXCalUID = "rrule-occurrences"

type validateResponse struct {
	Rule  string `json:"rule"`
	Valid bool   `json:"valid"`
	Error string `json:"error,omitempty"`
}

type nextResponse struct {
	Next mo.Option[time.Time] `json:"next"`
}

type occurrencesResponse struct {
	Occurrences []time.Time `json:"occurrences"`
}

func ruleParam(c echo.Context) (string, error) {
	rule := c.QueryParam("rule")
	if rule == "" {
		return "", badRequest(`missing "rule" parameter`, nil)
	}
	return rule, nil
}

func (s *Server) handleValidate(c echo.Context) error {
	rule := c.QueryParam("rule")
	resp := validateResponse{Rule: rule, Valid: true}
	if _, err := s.engine.Parse(rule); err != nil {
		resp.Valid = false
		resp.Error = err.Error()
	}
	return c.JSON(http.StatusOK, resp)
}

func (s *Server) handleNext(c echo.Context) error {
	rule, err := ruleParam(c)
	if err != nil {
		return err
	}
	anchor, err := s.timeParam(c, "anchor")
	if err != nil {
		return err
	}
	pivot, err := s.timeParamOr(c, "pivot", s.now())
	if err != nil {
		return err
	}

	return s.expand(c, func() error {
		next, err := s.engine.NextOccurrence(rule, pivot, anchor)
		if err != nil {
			return httpError(err)
		}
		return c.JSON(http.StatusOK, nextResponse{Next: next})
	})
}

func (s *Server) handleUpcoming(c echo.Context) error {
	rule, err := ruleParam(c)
	if err != nil {
		return err
	}
	anchor, err := s.timeParam(c, "anchor")
	if err != nil {
		return err
	}
	pivot, err := s.timeParamOr(c, "pivot", s.now())
	if err != nil {
		return err
	}
	n, err := intParamOr(c, "n", defaultUpcoming)
	if err != nil {
		return err
	}

	return s.expand(c, func() error {
		list, err := s.engine.NextOccurrences(rule, pivot, n, anchor)
		if err != nil {
			return httpError(err)
		}
		return c.JSON(http.StatusOK, occurrencesResponse{Occurrences: nonNil(list)})
	})
}

func (s *Server) handleOccurrences(c echo.Context) error {
	rule, err := ruleParam(c)
	if err != nil {
		return err
	}
	anchor, err := s.timeParam(c, "anchor")
	if err != nil {
		return err
	}
	start, err := s.timeParam(c, "start")
	if err != nil {
		return err
	}
	end, err := s.timeParam(c, "end")
	if err != nil {
		return err
	}

	return s.expand(c, func() error {
		list, err := s.engine.Occurrences(rule, start, end, anchor)
		if err != nil {
			return httpError(err)
		}

		if c.QueryParam("format") != "xcal" {
			return c.JSON(http.StatusOK, occurrencesResponse{Occurrences: nonNil(list)})
		}

		uid := c.QueryParam("uid")
		if uid == "" {
			uid = defaultXCalUID
		}
		var buf bytes.Buffer
		if _, err := xcal.Expand(uid, rule, list).WriteTo(&buf); err != nil {
			return httpError(err)
		}
		return c.Blob(http.StatusOK, mimeTypeXCal, buf.Bytes())
	})
}

func nonNil(list []time.Time) []time.Time {
	if list == nil {
		return []time.Time{}
	}
	return list
}
