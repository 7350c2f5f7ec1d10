// config.go: cache configuration (spec §3)
//
// Copyright (c) 2025 AGILira - A. Giordano
// Series: an AGILira library
// SPDX-License-Identifier: MPL-2.0

package warden

import "time"

// EvictionMode selects how the LRW eviction policy (spec §4.E) is
// triggered.
type EvictionMode int

const (
	// EvictionEvented runs the eviction pass as a post-hook after every
	// mutating action.
	EvictionEvented EvictionMode = iota

	// EvictionScheduled runs the eviction pass on a recurring timer
	// instead, at CacheConfig.EvictionInterval.
	EvictionScheduled
)

// CacheConfig holds the immutable-after-creation configuration for a
// Cache, covering every option enumerated in spec §3.
type CacheConfig struct {
	// Name identifies the cache instance; used in log lines and
	// provisioned to hooks that request it.
	Name string

	// DefaultExpiration is applied when a writer omits an explicit
	// expiration. Zero means entries never expire by default.
	DefaultExpiration time.Duration

	// LazyExpiration, if true, makes reads purge encountered expired
	// entries (spec §4.D). If false, only the janitor purges.
	LazyExpiration bool

	// JanitorInterval is the periodic sweep period. Zero disables
	// periodic sweeps entirely (manual purge() still works).
	JanitorInterval time.Duration

	// SizeLimit optionally caps the number of live entries. Zero means
	// unbounded.
	SizeLimit int

	// ReclaimFraction is the fraction (0, 1] of SizeLimit freed per
	// eviction pass. Defaults to DefaultReclaimFraction.
	ReclaimFraction float64

	// EvictionMode selects evented vs. scheduled eviction triggering.
	EvictionMode EvictionMode

	// EvictionInterval is the timer period used when EvictionMode is
	// EvictionScheduled. Ignored otherwise.
	EvictionInterval time.Duration

	// Transactional is recorded on the cache and reported by
	// InspectCache. Writes take the locksmith's per-key lock whether
	// it is true or false; uncontended writes never bypass locking.
	Transactional bool

	// Ordered, if true, the entry store preserves insertion order for
	// iteration (spec §4.A).
	Ordered bool

	// Hooks are the observers registered at start (spec §4.F).
	Hooks []HookConfig

	// Warmers are the periodic bulk loaders registered at start
	// (spec §4.H).
	Warmers []WarmerConfig

	// Commands are named read/write extensions invocable via Invoke.
	Commands map[string]Command

	// Router is the routing topology held by the cache (spec §4.K).
	// Nil installs NewLocalRouter. Cache operations do not consult it:
	// every key is served by the local store.
	Router Router

	// Logger is used by every service actor. Defaults to NoOpLogger.
	Logger Logger

	// TimeProvider supplies the monotonic millisecond clock. Defaults
	// to a go-timecache-backed implementation.
	TimeProvider TimeProvider

	// MetricsCollector receives per-operation observations. Defaults
	// to NoOpMetricsCollector.
	MetricsCollector MetricsCollector

	// EnableStats installs the built-in statistics hook (spec §6) that
	// backs Cache.Stats(). Off by default; Stats() returns an
	// ErrCodeStatsDisabled error until this is set.
	EnableStats bool
}

// Validate normalizes cfg in place, applying defaults, and returns a
// typed error for the handful of options the spec treats as genuine
// validation failures (invalid name, out-of-range size/reclaim limit,
// duplicate hook/warmer names). All other fields are defaulted rather
// than rejected, mirroring the teacher's Config.Validate.
func (c *CacheConfig) Validate() error {
	if c.Name == "" {
		return NewErrInvalidName(c.Name)
	}

	if c.SizeLimit < 0 {
		return NewErrInvalidLimit("size_limit must be >= 0")
	}

	if c.ReclaimFraction < 0 || c.ReclaimFraction > 1 {
		return NewErrInvalidLimit("reclaim_fraction must be in (0, 1]")
	}
	if c.ReclaimFraction == 0 && c.SizeLimit > 0 {
		c.ReclaimFraction = DefaultReclaimFraction
	}

	if c.JanitorInterval < 0 {
		return NewErrInvalidOption("janitor_interval", "must be >= 0")
	}
	if c.JanitorInterval > 0 && c.JanitorInterval < minJanitorInterval*time.Millisecond {
		c.JanitorInterval = minJanitorInterval * time.Millisecond
	}

	seenHooks := make(map[string]bool, len(c.Hooks))
	for _, h := range c.Hooks {
		if h.Name == "" {
			return NewErrInvalidHook(h.Name, "hook name must not be empty")
		}
		if seenHooks[h.Name] {
			return NewErrInvalidHook(h.Name, "duplicate hook name")
		}
		seenHooks[h.Name] = true
	}

	seenWarmers := make(map[string]bool, len(c.Warmers))
	for _, w := range c.Warmers {
		if w.Name == "" {
			return NewErrInvalidWarmer(w.Name, "warmer name must not be empty")
		}
		if seenWarmers[w.Name] {
			return NewErrInvalidWarmer(w.Name, "duplicate warmer name")
		}
		if w.Interval <= 0 {
			return NewErrInvalidWarmer(w.Name, "interval must be > 0")
		}
		seenWarmers[w.Name] = true
	}

	if c.Logger == nil {
		c.Logger = NoOpLogger{}
	}
	if c.TimeProvider == nil {
		c.TimeProvider = &systemTimeProvider{}
	}
	if c.MetricsCollector == nil {
		c.MetricsCollector = NoOpMetricsCollector{}
	}
	if c.Router == nil {
		c.Router = NewLocalRouter()
	}
	if c.Commands == nil {
		c.Commands = map[string]Command{}
	}

	return nil
}

// DefaultCacheConfig returns a CacheConfig with sensible defaults and
// the given name filled in; callers still need to set at least Name
// if they build a zero-value CacheConfig directly.
func DefaultCacheConfig(name string) CacheConfig {
	return CacheConfig{
		Name:             name,
		ReclaimFraction:  DefaultReclaimFraction,
		Logger:           NoOpLogger{},
		TimeProvider:     &systemTimeProvider{},
		MetricsCollector: NoOpMetricsCollector{},
		Router:           NewLocalRouter(),
		Commands:         map[string]Command{},
	}
}
