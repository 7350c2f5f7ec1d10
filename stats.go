// stats.go: the built-in statistics hook (spec §6 "Statistics payload")
//
// Stats are deliberately NOT special-cased in the core: the counters
// are an ordinary HookConfig installed at construction time when
// CacheConfig.EnableStats is set, observing the same event stream any
// external hook sees. This mirrors how the teacher keeps optional
// instrumentation (its OTel adapters) outside cache.go proper.
//
// Copyright (c) 2025 AGILira - A. Giordano
// Series: an AGILira library
// SPDX-License-Identifier: MPL-2.0

package warden

import (
	"context"
	"sync"
	"sync/atomic"
)

const statsHookName = "__warden_stats__"

// statsHook accumulates the counters behind CacheStats. One is created
// per Cache when CacheConfig.EnableStats is true.
type statsHook struct {
	operations  atomic.Uint64
	hits        atomic.Uint64
	misses      atomic.Uint64
	writes      atomic.Uint64
	updates     atomic.Uint64
	evictions   atomic.Uint64
	expirations atomic.Uint64

	mu      sync.Mutex
	perCall map[string]uint64
}

func newStatsHook() *statsHook {
	return &statsHook{perCall: make(map[string]uint64)}
}

// hookConfig wraps the hook in the HookConfig shape operations.go's
// pipeline already knows how to run. It is registered first so it sees
// the same events any caller-supplied hook would.
func (h *statsHook) hookConfig() HookConfig {
	return HookConfig{
		Name:    statsHookName,
		Handler: h.observe,
	}
}

// terminal reports whether event is the single point in an operation's
// lifecycle that should be counted. Get dispatches both a pre and a
// post event; only the post is terminal, so a get is counted once.
func (h *statsHook) terminal(event HookEvent) bool {
	switch event {
	case EventPostGet, EventPostSet, EventPostDelete, EventPostClear, EventExpire, EventPurge, EventEvict, EventFetch:
		return true
	default:
		return false
	}
}

func (h *statsHook) observe(_ context.Context, payload HookPayload) error {
	if !h.terminal(payload.Event) {
		return nil
	}

	h.operations.Add(1)
	h.countCall(payload.Via)

	switch payload.Event {
	case EventPostGet:
		// A nil Value means Get found nothing live for the key. This
		// misreads as a hit for a V that is itself a nil-able zero
		// value (a stored nil pointer/map/slice), an acceptable
		// approximation for a diagnostics-only counter.
		if payload.Value != nil {
			h.hits.Add(1)
		} else {
			h.misses.Add(1)
		}
	case EventPostSet:
		switch payload.Via {
		case "update", "get_and_update", "increment":
			h.updates.Add(1)
		default:
			h.writes.Add(1)
		}
	case EventEvict:
		h.evictions.Add(1)
	case EventExpire:
		h.expirations.Add(1)
	case EventPurge:
		// Value carries the whole sweep's removed count (spec §4.D
		// step 3's single {purge, removed_count} event), not one
		// expiration per key.
		if n, ok := payload.Value.(int); ok {
			h.expirations.Add(uint64(n))
		}
	}

	return nil
}

func (h *statsHook) countCall(via string) {
	if via == "" {
		return
	}
	h.mu.Lock()
	h.perCall[via]++
	h.mu.Unlock()
}

// snapshot returns the statistics payload described in spec §6.
func (h *statsHook) snapshot() CacheStats {
	h.mu.Lock()
	perCall := make(map[string]uint64, len(h.perCall))
	for k, v := range h.perCall {
		perCall[k] = v
	}
	h.mu.Unlock()

	return CacheStats{
		Operations:  h.operations.Load(),
		Hits:        h.hits.Load(),
		Misses:      h.misses.Load(),
		Writes:      h.writes.Load(),
		Updates:     h.updates.Load(),
		Evictions:   h.evictions.Load(),
		Expirations: h.expirations.Load(),
		PerCall:     perCall,
	}
}

// Stats returns the accumulated statistics payload for this cache.
// Returns an error if no stats hook was installed via
// CacheConfig.EnableStats.
func (c *Cache[K, V]) Stats() (CacheStats, error) {
	if c.stats == nil {
		return CacheStats{}, NewErrStatsDisabled()
	}
	return c.stats.snapshot(), nil
}
