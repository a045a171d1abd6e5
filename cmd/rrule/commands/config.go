package commands

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/jakobjanot/pg-rrule/rrule"
	"github.com/jakobjanot/pg-rrule/storage"
	"github.com/jakobjanot/pg-rrule/storage/memory"
	"github.com/jakobjanot/pg-rrule/storage/postgres"
	"github.com/jakobjanot/pg-rrule/storage/sqlite"
	"github.com/spf13/viper"
)

// Configuration keys. Each is also read from RRULE_<KEY> with dots as
// underscores, e.g. RRULE_LOG_LEVEL.
const (
	KeyDriver       = "driver"
	KeyDSN          = "dsn"
	KeyListen       = "listen"
	KeyTimezone     = "timezone"
	KeyLogLevel     = "log.level"
	KeyLogFormat    = "log.format"
	KeyMaxCount     = "engine.max_count"
	KeyCache        = "engine.cache"
	KeyAuthUser     = "auth.user"
	KeyAuthPassword = "auth.password"
)

// Store drivers
const (
	DriverMemory   = "memory"
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
)

// SetDefaults registers the default of every key
func SetDefaults() {
	viper.SetDefault(KeyDriver, DriverSQLite)
	viper.SetDefault(KeyListen, ":8080")
	viper.SetDefault(KeyLogLevel, "info")
	viper.SetDefault(KeyLogFormat, "text")
	viper.SetDefault(KeyMaxCount, rrule.DefaultEngineConfig.MaxCount)
	viper.SetDefault(KeyCache, false)
}

var (
	logLevel   = new(slog.LevelVar)
	loggerOnce sync.Once
	logger     *slog.Logger
)

// Logger returns the process logger, writing to stderr in log.format at
// log.level. The level can be changed later with ApplyLogLevel.
func Logger() *slog.Logger {
	loggerOnce.Do(func() {
		_ = ApplyLogLevel()
		logger = newLogger(os.Stderr, viper.GetString(KeyLogFormat), logLevel)
	})
	return logger
}

func newLogger(w io.Writer, format string, level slog.Leveler) *slog.Logger {
	opts := &slog.HandlerOptions{Level: level}
	if strings.EqualFold(format, "json") {
		return slog.New(slog.NewJSONHandler(w, opts))
	}
	return slog.New(slog.NewTextHandler(w, opts))
}

// ApplyLogLevel sets the logger's level from log.level
func ApplyLogLevel() error {
	level, err := parseLevel(viper.GetString(KeyLogLevel))
	if err != nil {
		return err
	}
	logLevel.Set(level)
	return nil
}

func parseLevel(s string) (slog.Level, error) {
	var level slog.Level
	if s == "" {
		return slog.LevelInfo, nil
	}
	if err := level.UnmarshalText([]byte(s)); err != nil {
		return slog.LevelInfo, fmt.Errorf("invalid log level %q", s)
	}
	return level, nil
}

// newEngine builds the engine from the engine.* keys
func newEngine() *rrule.Engine {
	cfg := rrule.DefaultEngineConfig
	if viper.GetBool(KeyCache) {
		cfg = rrule.HighPerformanceConfig
	}
	if n := viper.GetInt(KeyMaxCount); n > 0 {
		cfg.MaxCount = n
	}
	return rrule.NewEngineWithConfig(cfg, rrule.WithLogger(Logger()))
}

// openStore opens the store selected by driver and dsn
func openStore(ctx context.Context, engine *rrule.Engine) (storage.Store, error) {
	log := Logger()
	dsn := viper.GetString(KeyDSN)

	switch driver := strings.ToLower(viper.GetString(KeyDriver)); driver {
	case DriverMemory:
		return memory.New(memory.WithEngine(engine), memory.WithLogger(log)), nil
	case DriverSQLite, "":
		if dsn == "" {
			dsn = defaultDatabasePath()
		}
		return sqlite.Open(ctx, sqlite.Config{Path: dsn, BusyTimeout: 5 * time.Second},
			sqlite.WithEngine(engine), sqlite.WithLogger(log))
	case DriverPostgres:
		return postgres.Open(ctx, dsn, postgres.WithEngine(engine), postgres.WithLogger(log))
	default:
		return nil, fmt.Errorf("unknown driver %q (want %s, %s or %s)", driver, DriverMemory, DriverSQLite, DriverPostgres)
	}
}

func defaultDatabasePath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(".rrule", "events.db")
	}
	return filepath.Join(home, ".rrule", "events.db")
}

// location is the zone for times given without an offset
func location() (*time.Location, error) {
	name := viper.GetString(KeyTimezone)
	if name == "" {
		return time.Local, nil
	}
	loc, err := time.LoadLocation(name)
	if err != nil {
		return nil, fmt.Errorf("invalid timezone %q: %w", name, err)
	}
	return loc, nil
}

var localLayouts = []string{
	"2006-01-02T15:04:05",
	"2006-01-02T15:04",
	"2006-01-02 15:04",
	"2006-01-02",
}

// parseTime reads an RFC 3339 instant, or a local date-time in loc
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
