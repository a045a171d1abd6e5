// Package sqlite stores events in a SQLite database through the pure Go
// modernc.org/sqlite driver. Opening a store registers the rrule SQL
// functions, so queries can expand rules next to the data:
//
//	SELECT e.title, o.value
//	FROM events e, json_each(rrule_next_occurrences(e.recurrence, ?, 5, e.start_time, e.timezone)) o
package sqlite

import (
	"context"
	"database/sql"
	"embed"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/jakobjanot/pg-rrule/rrule"
	"github.com/jakobjanot/pg-rrule/storage"
	"github.com/pkg/errors"
)

//go:embed migrations.sql
var migrationsFS embed.FS

const eventColumns = `id, title, description, location, start_time, timezone, recurrence, rdates, exdates, created, modified`

// Config selects the database file
type Config struct {
	// Path of the database file, or ":memory:"
	Path        string
	BusyTimeout time.Duration
}

// Store implements storage.Store on SQLite
type Store struct {
	db     *sql.DB
	engine *rrule.Engine
	logger *slog.Logger
	now    func() time.Time
}

var _ storage.Store = (*Store)(nil)

// Option configures a Store
type Option func(*Store)

// WithEngine sets the engine validating rules and answering the SQL functions
func WithEngine(engine *rrule.Engine) Option {
	return func(s *Store) {
		if engine != nil {
			s.engine = engine
		}
	}
}

// WithLogger sets the logger for the store
func WithLogger(logger *slog.Logger) Option {
	return func(s *Store) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// Open opens (creating if needed) the database at cfg.Path and applies the
// schema.
func Open(ctx context.Context, cfg Config, opts ...Option) (*Store, error) {
	path := strings.TrimSpace(cfg.Path)
	if path == "" {
		return nil, errors.New("sqlite path is required")
	}

	s := &Store{
		engine: rrule.NewEngine(),
		logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}

	if err := RegisterFunctions(s.engine); err != nil {
		return nil, err
	}

	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, errors.Wrap(err, "failed to create database directory")
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, errors.Wrap(err, "failed to open db")
	}
	// SQLite prefers a single writer; one connection also keeps ":memory:"
	// databases alive across queries.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	s.db = db

	if cfg.BusyTimeout > 0 {
		_, _ = db.ExecContext(ctx, fmt.Sprintf("PRAGMA busy_timeout = %d", cfg.BusyTimeout.Milliseconds()))
	}
	_, _ = db.ExecContext(ctx, "PRAGMA journal_mode = WAL")
	_, _ = db.ExecContext(ctx, "PRAGMA synchronous = NORMAL")

	if err := s.migrate(ctx); err != nil {
		_ = db.Close()
		return nil, errors.Wrap(err, "failed to migrate")
	}
	s.logger.Debug("sqlite store opened", "path", path)
	return s, nil
}

func (s *Store) migrate(ctx context.Context) error {
	b, err := migrationsFS.ReadFile("migrations.sql")
	if err != nil {
		return err
	}
	_, err = s.db.ExecContext(ctx, string(b))
	return err
}

// DB exposes the underlying handle for ad hoc queries over the rrule functions
func (s *Store) DB() *sql.DB {
	return s.db
}

func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

func (s *Store) CreateEvent(ctx context.Context, ev *storage.Event) error {
	if err := storage.PrepareEvent(ev, s.engine, s.now()); err != nil {
		return err
	}
	rdates, err := storage.EncodeDates(ev.RDates)
	if err != nil {
		return errors.Wrap(err, "failed to encode rdates")
	}
	exdates, err := storage.EncodeDates(ev.ExDates)
	if err != nil {
		return errors.Wrap(err, "failed to encode exdates")
	}

	res, err := s.db.ExecContext(ctx,
		`INSERT INTO events(`+eventColumns+`)
		 VALUES(?,?,?,?,?,?,?,?,?,?,?)
		 ON CONFLICT(id) DO NOTHING`,
		ev.ID, ev.Title, ev.Description, ev.Location,
		storage.FormatTime(ev.Start), storage.Zone(ev.Start), ev.Recurrence,
		rdates, exdates,
		storage.FormatTime(ev.Created), storage.FormatTime(ev.Modified),
	)
	if err != nil {
		return errors.Wrapf(err, "failed to insert event %s", ev.ID)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return errors.Wrap(err, "failed to read affected rows")
	}
	if n == 0 {
		return storage.AlreadyExists(ev.ID)
	}
	s.logger.Debug("event created", "id", ev.ID, "title", ev.Title)
	return nil
}

func (s *Store) GetEvent(ctx context.Context, id string) (*storage.Event, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+eventColumns+` FROM events WHERE id = ?`, id)
	ev, err := scanEvent(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, storage.NotFound(id)
	}
	if err != nil {
		return nil, errors.Wrapf(err, "failed to get event %s", id)
	}
	return ev, nil
}

func (s *Store) ListEvents(ctx context.Context) ([]storage.Event, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT `+eventColumns+` FROM events ORDER BY start_time, id`)
	if err != nil {
		return nil, errors.Wrap(err, "failed to list events")
	}
	defer rows.Close()

	events := []storage.Event{}
	for rows.Next() {
		ev, err := scanEvent(rows)
		if err != nil {
			return nil, errors.Wrap(err, "failed to scan event")
		}
		events = append(events, *ev)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(err, "failed to list events")
	}
	return events, nil
}

func (s *Store) DeleteEvent(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM events WHERE id = ?`, id)
	if err != nil {
		return errors.Wrapf(err, "failed to delete event %s", id)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return errors.Wrap(err, "failed to read affected rows")
	}
	if n == 0 {
		return storage.NotFound(id)
	}
	s.logger.Debug("event deleted", "id", id)
	return nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanEvent(row scanner) (*storage.Event, error) {
	var (
		ev                        storage.Event
		start, zone, created, mod string
		rdates, exdates           string
	)
	if err := row.Scan(&ev.ID, &ev.Title, &ev.Description, &ev.Location,
		&start, &zone, &ev.Recurrence, &rdates, &exdates, &created, &mod); err != nil {
		return nil, err
	}

	var err error
	if ev.Start, err = storage.ParseTime(start); err != nil {
		return nil, err
	}
	ev.Start = storage.InZone(ev.Start, zone)
	if ev.RDates, err = storage.DecodeDates(rdates, zone); err != nil {
		return nil, err
	}
	if ev.ExDates, err = storage.DecodeDates(exdates, zone); err != nil {
		return nil, err
	}
	if ev.Created, err = storage.ParseTime(created); err != nil {
		return nil, err
	}
	if ev.Modified, err = storage.ParseTime(mod); err != nil {
		return nil, err
	}
	return &ev, nil
}
