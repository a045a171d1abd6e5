// Package postgres stores events in PostgreSQL through lib/pq. Rules are
// validated by the engine before they reach the database.
package postgres

import (
	"context"
	"database/sql"
	_ "embed"
	"fmt"
	"io"
	"log/slog"
	"time"

	// Import the PostgreSQL driver.
	_ "github.com/lib/pq"
	"github.com/pkg/errors"

	"github.com/jakobjanot/pg-rrule/rrule"
	"github.com/jakobjanot/pg-rrule/storage"
)

//go:embed migrations.sql
var migrations string

const eventColumns = `id, title, description, location, start_time, timezone, recurrence, rdates, exdates, created, modified`

// Store implements storage.Store on PostgreSQL
type Store struct {
	db     *sql.DB
	engine *rrule.Engine
	logger *slog.Logger
	now    func() time.Time
}

var _ storage.Store = (*Store)(nil)

// Option configures a Store
type Option func(*Store)

// WithEngine sets the engine validating rules
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

// Open connects to dsn, verifies the connection and applies the schema
func Open(ctx context.Context, dsn string, opts ...Option) (*Store, error) {
	if dsn == "" {
		return nil, errors.New("postgres dsn is required")
	}

	s := &Store{
		engine: rrule.NewEngine(),
		logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}

	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, errors.Wrap(err, "failed to open database")
	}
	db.SetMaxOpenConns(5)
	db.SetMaxIdleConns(2)
	db.SetConnMaxLifetime(2 * time.Hour)
	db.SetConnMaxIdleTime(15 * time.Minute)

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, errors.Wrap(err, "failed to ping database")
	}
	s.db = db

	if _, err := db.ExecContext(ctx, migrations); err != nil {
		_ = db.Close()
		return nil, errors.Wrap(err, "failed to migrate")
	}
	s.logger.Debug("postgres store opened")
	return s, nil
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

	values := []any{
		ev.ID, ev.Title, ev.Description, ev.Location,
		ev.Start.UTC(), storage.Zone(ev.Start), ev.Recurrence,
		rdates, exdates,
		ev.Created.UTC(), ev.Modified.UTC(),
	}
	stmt := `INSERT INTO events (` + eventColumns + `) VALUES (` + placeholders(len(values)) + `) ON CONFLICT (id) DO NOTHING`

	res, err := s.db.ExecContext(ctx, stmt, values...)
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
	row := s.db.QueryRowContext(ctx, `SELECT `+eventColumns+` FROM events WHERE id = `+placeholder(1), id)
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
	res, err := s.db.ExecContext(ctx, `DELETE FROM events WHERE id = `+placeholder(1), id)
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
		ev              storage.Event
		zone            string
		rdates, exdates []byte
	)
	if err := row.Scan(&ev.ID, &ev.Title, &ev.Description, &ev.Location,
		&ev.Start, &zone, &ev.Recurrence, &rdates, &exdates, &ev.Created, &ev.Modified); err != nil {
		return nil, err
	}

	var err error
	ev.Start = storage.InZone(ev.Start, zone)
	if ev.RDates, err = storage.DecodeDates(string(rdates), zone); err != nil {
		return nil, err
	}
	if ev.ExDates, err = storage.DecodeDates(string(exdates), zone); err != nil {
		return nil, err
	}
	return &ev, nil
}

func placeholder(n int) string {
	return "$" + fmt.Sprint(n)
}

func placeholders(n int) string {
	list := make([]byte, 0, n*4)
	for i := 1; i <= n; i++ {
		if i > 1 {
			list = append(list, ", "...)
		}
		list = append(list, placeholder(i)...)
	}
	return string(list)
}
