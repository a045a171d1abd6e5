package server

import (
	"errors"
	"net/http"

	"github.com/jakobjanot/pg-rrule/rrule"
	"github.com/jakobjanot/pg-rrule/storage"
	"github.com/labstack/echo/v4"
)

// httpError maps engine and storage errors to a status code
func httpError(err error) error {
	var he *echo.HTTPError
	if errors.As(err, &he) {
		return he
	}

	code := http.StatusInternalServerError
	switch {
	case errors.Is(err, storage.ErrNotFound):
		code = http.StatusNotFound
	case errors.Is(err, storage.ErrAlreadyExists):
		code = http.StatusConflict
	case errors.Is(err, rrule.ErrLimitExceeded):
		code = http.StatusUnprocessableEntity
	case errors.Is(err, storage.ErrInvalidInput),
		errors.Is(err, rrule.ErrInvalidRule),
		errors.Is(err, rrule.ErrInvalidArgument):
		code = http.StatusBadRequest
	}

	msg := err.Error()
	if code == http.StatusInternalServerError {
		msg = http.StatusText(code)
	}
	return echo.NewHTTPError(code, msg).SetInternal(err)
}

func badRequest(msg string, err error) error {
	return echo.NewHTTPError(http.StatusBadRequest, msg).SetInternal(err)
}
