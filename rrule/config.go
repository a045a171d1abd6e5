package rrule

import (
	"time"
)

// EngineConfig holds the bounds and caching options of an Engine.
type EngineConfig struct {
	// Cache configuration
	CacheEnabled bool
	CacheConfig  CacheConfig

	// MaxCount is the largest N accepted by NextOccurrences (0 = unlimited).
	MaxCount int
	// MaxRangeOccurrences caps the size of an Occurrences result (0 = unlimited).
	MaxRangeOccurrences int
	// MaxScan caps how many occurrences a single query may walk past (0 = unlimited).
	MaxScan int
}

// DefaultEngineConfig mirrors the limits of the SQL functions this engine
// backs. Patterns are not memoized.
var DefaultEngineConfig = EngineConfig{
	CacheEnabled: false,

	MaxCount:            10000,
	MaxRangeOccurrences: 10000,
	MaxScan:             1_000_000,
}

// HighPerformanceConfig memoizes parsed patterns for servers that see the
// same rule text over and over.
var HighPerformanceConfig = EngineConfig{
	CacheEnabled: true,
	CacheConfig: CacheConfig{
		TTL:             30 * time.Minute,
		MaxEntries:      5000,
		CleanupInterval: 10 * time.Minute,
	},

	MaxCount:            10000,
	MaxRangeOccurrences: 10000,
	MaxScan:             1_000_000,
}

// LowMemoryConfig keeps a small cache and smaller result sets.
var LowMemoryConfig = EngineConfig{
	CacheEnabled: true,
	CacheConfig: CacheConfig{
		TTL:             5 * time.Minute,
		MaxEntries:      100,
		CleanupInterval: 2 * time.Minute,
	},

	MaxCount:            1000,
	MaxRangeOccurrences: 1000,
	MaxScan:             100_000,
}

// DisabledCacheConfig turns off caching and every expansion bound. Only use
// it when callers already bound their windows.
var DisabledCacheConfig = EngineConfig{
	CacheEnabled: false,
}
