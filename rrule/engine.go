package rrule

import (
	"io"
	"log/slog"
)

// Engine answers occurrence queries over rule text. It holds no state besides
// its configuration and an optional injected PatternCache, so one Engine may
// serve any number of goroutines.
type Engine struct {
	config    EngineConfig
	cache     PatternCache
	ownsCache *Cache
	logger    *slog.Logger
}

// Option configures an Engine.
type Option func(*Engine)

// WithLogger sets the logger for the engine
func WithLogger(logger *slog.Logger) Option {
	return func(e *Engine) {
		if logger != nil {
			e.logger = logger
		}
	}
}

// WithCache memoizes parsed patterns in cache. It overrides a cache created
// from EngineConfig.CacheEnabled.
func WithCache(cache PatternCache) Option {
	return func(e *Engine) {
		e.cache = cache
	}
}

// NewEngine creates an engine with DefaultEngineConfig.
func NewEngine(opts ...Option) *Engine {
	return NewEngineWithConfig(DefaultEngineConfig, opts...)
}

// NewEngineWithConfig creates an engine with custom configuration. When
// config.CacheEnabled is set the engine owns a Cache; release it with Close.
func NewEngineWithConfig(config EngineConfig, opts ...Option) *Engine {
	e := &Engine{
		config: config,
		logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	if config.CacheEnabled {
		e.ownsCache = NewCache(config.CacheConfig)
		e.cache = e.ownsCache
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Config returns the engine's configuration.
func (e *Engine) Config() EngineConfig {
	return e.config
}

// Close releases the cache the engine created for itself. Injected caches
// are left to their owner.
func (e *Engine) Close() {
	if e.ownsCache != nil {
		e.ownsCache.Close()
	}
}
