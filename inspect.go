// inspect.go: the diagnostics-only inspection surface (spec §6)
//
// These methods exist purely for operators and tests to look inside a
// running cache; nothing in the operation surface (operations.go)
// depends on them. Mirrors the teacher's separation of its exported
// Stats()/MemStats() helpers from the hot read/write path in cache.go.
//
// Copyright (c) 2025 AGILira - A. Giordano
// Series: an AGILira library
// SPDX-License-Identifier: MPL-2.0

package warden

import "unsafe"

// ExpiredInfo reports the entries the janitor or a lazy read would
// remove if it ran right now.
type ExpiredInfo[K comparable] struct {
	Count int
	Keys  []K
}

// JanitorInfo reports the janitor's last sweep, per spec §6's
// "janitor.last_run" option.
type JanitorInfo struct {
	// Enabled is false when JanitorInterval was zero at construction,
	// meaning no background sweep ever runs.
	Enabled bool

	// LastRunMs is the millisecond timestamp of the last completed
	// sweep. Zero if HasRun is false.
	LastRunMs int64

	// LastRemoved is how many entries the last sweep purged.
	LastRemoved int

	// HasRun is false until the janitor completes its first pass.
	HasRun bool
}

// MemoryInfo is a rough, allocation-aware estimate of cache footprint,
// not an exact accounting (Go gives no cheap way to size an arbitrary
// V without walking it, so this counts entry headers plus a shallow
// unsafe.Sizeof of one stored value, times the entry count).
type MemoryInfo struct {
	// Entries is the number of stored entries counted.
	Entries int

	// Bytes is the estimated resident size in bytes.
	Bytes int64

	// Words is Bytes expressed in machine words (8 bytes each on every
	// platform warden targets).
	Words int64
}

// EntryInfo is the per-key detail behind spec §6's inspect(entry, key).
type EntryInfo struct {
	Exists        bool
	HasExpiration bool

	// RemainingMs is the milliseconds left before expiration, valid
	// only when HasExpiration is true. Negative if already expired but
	// not yet purged (lazy expiration off, janitor hasn't run).
	RemainingMs int64

	ModifiedAtMs int64
}

// CacheInfo is the cache-wide snapshot behind spec §6's inspect(cache).
type CacheInfo struct {
	Name            string
	Size            int
	SizeLimit       int
	ReclaimFraction float64
	Transactional   bool
	LazyExpiration  bool
	StatsEnabled    bool
}

// InspectExpired lists entries that are expired as of this call,
// regardless of whether LazyExpiration would purge them on read.
func (c *Cache[K, V]) InspectExpired() ExpiredInfo[K] {
	var keys []K
	c.store.iterate(MatchExpired(), func(key K, _ *entry[V]) bool {
		keys = append(keys, key)
		return true
	})
	return ExpiredInfo[K]{Count: len(keys), Keys: keys}
}

// InspectJanitor reports the janitor's configuration and last sweep.
func (c *Cache[K, V]) InspectJanitor() JanitorInfo {
	lastRun, removed, hasRun := c.exp.lastSweep()
	return JanitorInfo{
		Enabled:     c.cfg.JanitorInterval > 0,
		LastRunMs:   lastRun,
		LastRemoved: removed,
		HasRun:      hasRun,
	}
}

// InspectMemory estimates the cache's resident footprint.
func (c *Cache[K, V]) InspectMemory() MemoryInfo {
	n := c.store.size()
	var sample V
	perEntry := int64(unsafe.Sizeof(entry[V]{})) + int64(unsafe.Sizeof(sample))
	total := perEntry * int64(n)
	return MemoryInfo{
		Entries: n,
		Bytes:   total,
		Words:   total / 8,
	}
}

// InspectEntry reports the raw liveness detail for key without the
// side effects Get/Exists have (no lazy purge, no LRW recency bump).
func (c *Cache[K, V]) InspectEntry(key K) EntryInfo {
	e, ok := c.store.lookup(key)
	if !ok {
		return EntryInfo{}
	}
	now := c.clock.Now()
	info := EntryInfo{
		Exists:        true,
		HasExpiration: e.hasExpiration,
		ModifiedAtMs:  e.modified,
	}
	if e.hasExpiration {
		info.RemainingMs = e.remaining(now)
	}
	return info
}

// InspectCache reports cache-wide configuration and size.
func (c *Cache[K, V]) InspectCache() CacheInfo {
	return CacheInfo{
		Name:            c.cfg.Name,
		Size:            c.store.size(),
		SizeLimit:       c.evict.limit(),
		ReclaimFraction: c.evict.fraction(),
		Transactional:   c.cfg.Transactional,
		LazyExpiration:  c.cfg.LazyExpiration,
		StatsEnabled:    c.stats != nil,
	}
}
