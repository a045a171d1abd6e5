package server

import (
	"context"
	"crypto/subtle"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/jakobjanot/pg-rrule/agenda"
	"github.com/jakobjanot/pg-rrule/rrule"
	"github.com/jakobjanot/pg-rrule/storage"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"golang.org/x/sync/semaphore"
)

const (
	// HTTP headers
	headerContentType = "Content-Type"
	headerAccept      = "Accept"

	// MIME types
	mimeTypeCalendar = "text/calendar; charset=utf-8"
	mimeTypeXCal     = "application/calendar+xml; charset=utf-8"

	defaultMaxConcurrent = 16
	defaultUpcoming      = 10
	defaultRealm         = "pg-rrule"
)

// Server serves the occurrence queries and the event store over HTTP
type Server struct {
	echo   *echo.Echo
	engine *rrule.Engine
	store  storage.Store
	agenda *agenda.Service
	logger *slog.Logger

	location      *time.Location
	maxConcurrent int64
	expansions    *semaphore.Weighted
	user          string
	password      string
	now           func() time.Time
}

// Option configures a Server
type Option func(*Server)

// WithLogger sets the logger for the server. Every request is logged at Info.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Server) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithLocation sets the zone for query times given without an offset
func WithLocation(loc *time.Location) Option {
	return func(s *Server) {
		if loc != nil {
			s.location = loc
		}
	}
}

// WithMaxConcurrent bounds how many expansions run at once
func WithMaxConcurrent(n int) Option {
	return func(s *Server) {
		if n > 0 {
			s.maxConcurrent = int64(n)
		}
	}
}

// WithBasicAuth requires credentials on requests that modify events
func WithBasicAuth(user, password string) Option {
	return func(s *Server) {
		s.user = user
		s.password = password
	}
}

// New creates a server answering rule queries with engine and event queries
// from store.
func New(engine *rrule.Engine, store storage.Store, opts ...Option) (*Server, error) {
	if engine == nil {
		return nil, errors.New("engine is required")
	}
	if store == nil {
		return nil, errors.New("storage is required")
	}

	s := &Server{
		engine:        engine,
		store:         store,
		logger:        slog.New(slog.NewTextHandler(io.Discard, nil)),
		location:      time.UTC,
		maxConcurrent: defaultMaxConcurrent,
		now:           time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	s.expansions = semaphore.NewWeighted(s.maxConcurrent)
	s.agenda = agenda.New(store, engine, agenda.WithLogger(s.logger))

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Use(middleware.Recover())
	e.Use(middleware.RequestLoggerWithConfig(middleware.RequestLoggerConfig{
		LogMethod:   true,
		LogURI:      true,
		LogStatus:   true,
		LogLatency:  true,
		LogError:    true,
		HandleError: true,
		LogValuesFunc: func(c echo.Context, v middleware.RequestLoggerValues) error {
			attrs := []slog.Attr{
				slog.String("method", v.Method),
				slog.String("uri", v.URI),
				slog.Int("status", v.Status),
				slog.Duration("latency", v.Latency),
			}
			level := slog.LevelInfo
			if v.Error != nil {
				attrs = append(attrs, slog.String("error", v.Error.Error()))
				if v.Status >= http.StatusInternalServerError {
					level = slog.LevelError
				}
			}
			s.logger.LogAttrs(c.Request().Context(), level, "request", attrs...)
			return nil
		},
	}))
	s.echo = e
	s.routes()
	return s, nil
}

func (s *Server) routes() {
	s.echo.GET("/healthz", s.handleHealth)

	api := s.echo.Group("/api/v1")

	rules := api.Group("/rules")
	rules.GET("/validate", s.handleValidate)
	rules.GET("/next", s.handleNext)
	rules.GET("/upcoming", s.handleUpcoming)
	rules.GET("/occurrences", s.handleOccurrences)

	events := api.Group("/events")
	events.GET("", s.handleListEvents)
	events.POST("", s.handleCreateEvent, s.requireAuth())
	events.GET("/:id", s.handleGetEvent)
	events.DELETE("/:id", s.handleDeleteEvent, s.requireAuth())
	events.GET("/:id/upcoming", s.handleEventUpcoming)

	ag := api.Group("/agenda")
	ag.GET("", s.handleSchedule)
	ag.GET("/next", s.handleAgendaNext)
	ag.GET("/stats", s.handleStats)
	ag.GET("/busy", s.handleBusy)
}

// requireAuth checks basic auth credentials when WithBasicAuth was given
func (s *Server) requireAuth() echo.MiddlewareFunc {
	return middleware.BasicAuthWithConfig(middleware.BasicAuthConfig{
		Realm: defaultRealm,
		Skipper: func(echo.Context) bool {
			return s.user == ""
		},
		Validator: func(user, password string, _ echo.Context) (bool, error) {
			userOK := subtle.ConstantTimeCompare([]byte(user), []byte(s.user)) == 1
			passOK := subtle.ConstantTimeCompare([]byte(password), []byte(s.password)) == 1
			return userOK && passOK, nil
		},
	})
}

// ServeHTTP implements http.Handler interface
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.echo.ServeHTTP(w, r)
}

// Start listens on addr until Shutdown is called
func (s *Server) Start(addr string) error {
	s.logger.Info("listening", "addr", addr)
	err := s.echo.Start(addr)
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return err
}

// Shutdown stops the listener and waits for requests in flight
func (s *Server) Shutdown(ctx context.Context) error {
	return s.echo.Shutdown(ctx)
}

func (s *Server) handleHealth(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
}

// expand runs fn while holding an expansion slot
func (s *Server) expand(c echo.Context, fn func() error) error {
	ctx := c.Request().Context()
	if err := s.expansions.Acquire(ctx, 1); err != nil {
		return echo.NewHTTPError(http.StatusServiceUnavailable, "server busy").SetInternal(err)
	}
	defer s.expansions.Release(1)
	return fn()
}
