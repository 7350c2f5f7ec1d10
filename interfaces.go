// interfaces.go: ambient service interfaces shared across warden subsystems
//
// Copyright (c) 2025 AGILira - A. Giordano
// Series: an AGILira library
// SPDX-License-Identifier: MPL-2.0

package warden

// Logger defines a minimal logging interface with zero overhead.
// Implementations should use structured logging and be allocation-free
// on the no-op path. See package zlog for a github.com/rs/zerolog
// adapter.
type Logger interface {
	// Debug logs a debug message with optional key-value pairs.
	Debug(msg string, keyvals ...interface{})

	// Info logs an info message with optional key-value pairs.
	Info(msg string, keyvals ...interface{})

	// Warn logs a warning message with optional key-value pairs.
	Warn(msg string, keyvals ...interface{})

	// Error logs an error message with optional key-value pairs.
	Error(msg string, keyvals ...interface{})
}

// NoOpLogger is a logger that does nothing. Used as default to avoid nil
// checks on every service actor's hot path.
type NoOpLogger struct{}

func (NoOpLogger) Debug(msg string, keyvals ...interface{}) {}
func (NoOpLogger) Info(msg string, keyvals ...interface{})  {}
func (NoOpLogger) Warn(msg string, keyvals ...interface{})  {}
func (NoOpLogger) Error(msg string, keyvals ...interface{}) {}

// TimeProvider provides the monotonic millisecond clock required by
// spec §4.B. All of modified/expiration comparisons and eviction
// ordering use the same clock instance.
type TimeProvider interface {
	// Now returns the current time in milliseconds.
	// This method must be fast and allocation-free.
	Now() int64
}

// MetricsCollector receives latency and outcome observations for cache
// operations. Implementations must be safe for concurrent use and must
// not block the calling operation for any meaningful duration.
// See package otel and package promcache for ready-made adapters.
type MetricsCollector interface {
	// RecordGet records a Get/Fetch-style read.
	RecordGet(latencyNs int64, hit bool)

	// RecordSet records a Put/Update/write-style operation.
	RecordSet(latencyNs int64)

	// RecordDelete records a Delete/Take operation.
	RecordDelete(latencyNs int64)

	// RecordEviction records a single size-bound eviction.
	RecordEviction()

	// RecordExpiration records a single lazy-purge or janitor removal.
	RecordExpiration()
}

// NoOpMetricsCollector discards every observation. Used as the default
// so the core never has to nil-check the collector.
type NoOpMetricsCollector struct{}

func (NoOpMetricsCollector) RecordGet(latencyNs int64, hit bool) {}
func (NoOpMetricsCollector) RecordSet(latencyNs int64)           {}
func (NoOpMetricsCollector) RecordDelete(latencyNs int64)        {}
func (NoOpMetricsCollector) RecordEviction()                     {}
func (NoOpMetricsCollector) RecordExpiration()                   {}

// CacheStats is the statistics payload described in spec §6, populated
// by the built-in stats hook (see stats.go) when one is installed.
type CacheStats struct {
	Operations  uint64
	Hits        uint64
	Misses      uint64
	Writes      uint64
	Updates     uint64
	Evictions   uint64
	Expirations uint64

	// PerCall counts invocations of each operation name (get, put,
	// delete, ...), keyed the same way hooks subscribe to actions.
	PerCall map[string]uint64
}

// HitRatio returns the cache hit ratio as a percentage (0-100).
func (s CacheStats) HitRatio() float64 {
	total := s.Hits + s.Misses
	if total == 0 {
		return 0
	}
	return float64(s.Hits) / float64(total) * 100
}

// MissRatio returns the cache miss ratio as a percentage (0-100).
func (s CacheStats) MissRatio() float64 {
	total := s.Hits + s.Misses
	if total == 0 {
		return 0
	}
	return float64(s.Misses) / float64(total) * 100
}
