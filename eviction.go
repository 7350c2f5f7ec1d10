// eviction.go: the LRW eviction policy (spec §4.E)
//
// Reclaim headroom (ReclaimFraction) avoids the thrash the teacher's
// own single-victim evictOne in cache.go accepts for its fixed-size
// table: evicting one entry per write that crosses SizeLimit only ever
// buys room for the next single write, so a sustained write burst pays
// the eviction-scan cost on every call. Freeing a fraction of the limit
// at once amortizes that scan.
//
// Copyright (c) 2025 AGILira - A. Giordano
// Series: an AGILira library
// SPDX-License-Identifier: MPL-2.0

package warden

import (
	"math"
	"sync/atomic"
	"time"
)

// evictionManager implements spec §4.E for one Cache instance.
type evictionManager[K comparable, V any] struct {
	store           *store[K, V]
	sizeLimit       atomic.Int64 // re-readable so hot-reload.go can retune a running cache
	reclaimFraction atomic.Uint64 // math.Float64bits of the fraction
	mode            EvictionMode
	interval        time.Duration
	onEvict         func(key K, e *entry[V])

	stopCh chan struct{}
}

func newEvictionManager[K comparable, V any](s *store[K, V], sizeLimit int, reclaimFraction float64, mode EvictionMode, interval time.Duration, onEvict func(K, *entry[V])) *evictionManager[K, V] {
	m := &evictionManager[K, V]{
		store:    s,
		mode:     mode,
		interval: interval,
		onEvict:  onEvict,
		stopCh:   make(chan struct{}),
	}
	m.sizeLimit.Store(int64(sizeLimit))
	m.reclaimFraction.Store(math.Float64bits(reclaimFraction))
	return m
}

// setSizeLimit retunes the size bound an already-running cache evicts
// against (spec §4.E, hot-reload.go).
func (m *evictionManager[K, V]) setSizeLimit(n int) {
	m.sizeLimit.Store(int64(n))
}

// setReclaimFraction retunes the per-pass reclaim headroom.
func (m *evictionManager[K, V]) setReclaimFraction(f float64) {
	m.reclaimFraction.Store(math.Float64bits(f))
}

func (m *evictionManager[K, V]) limit() int {
	return int(m.sizeLimit.Load())
}

func (m *evictionManager[K, V]) fraction() float64 {
	return math.Float64frombits(m.reclaimFraction.Load())
}

func (m *evictionManager[K, V]) enabled() bool {
	return m.limit() > 0
}

// maybeEvict reclaims entries if the store is over SizeLimit. It is
// called after every write when EvictionMode is EvictionEvented, and is
// otherwise driven by the scheduled ticker in startScheduled.
func (m *evictionManager[K, V]) maybeEvict() int {
	if !m.enabled() {
		return 0
	}
	limit := m.limit()
	size := m.store.size()
	if size <= limit {
		return 0
	}

	over := size - limit
	reclaim := over + int(math.Round(float64(limit)*m.fraction()))
	if reclaim < 1 {
		reclaim = 1
	}

	victims := m.store.oldestByModified(reclaim)
	removed := 0
	for _, k := range victims {
		e, ok := m.store.take(k)
		if !ok {
			continue
		}
		m.onEvict(k, e)
		removed++
	}
	return removed
}

// onWrite is the hook operations.go calls after every insert when
// EvictionMode is EvictionEvented.
func (m *evictionManager[K, V]) onWrite() {
	if m.mode == EvictionEvented {
		m.maybeEvict()
	}
}

// startScheduled launches the periodic eviction pass used when
// EvictionMode is EvictionScheduled. A non-positive interval disables
// it, in which case only explicit writes via onWrite ever evict, which
// for EvictionScheduled mode means never.
func (m *evictionManager[K, V]) startScheduled() {
	if m.mode != EvictionScheduled || m.interval <= 0 {
		return
	}
	go func() {
		ticker := time.NewTicker(m.interval)
		defer ticker.Stop()
		for {
			select {
			case <-m.stopCh:
				return
			case <-ticker.C:
				m.maybeEvict()
			}
		}
	}()
}

func (m *evictionManager[K, V]) stopScheduled() {
	close(m.stopCh)
}
