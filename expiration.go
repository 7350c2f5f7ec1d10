// expiration.go: lazy expiry and the janitor sweep actor (spec §4.D)
//
// The janitor is the same ticker-plus-stop-channel shape the warmer
// runtime uses (warmer.go) and the teacher's own cleanup goroutine in
// cache.go follows; lazy expiry is a read-path check layered on top of
// store.lookup rather than a separate background actor, per spec
// §4.D's "checked on access" requirement.
//
// Copyright (c) 2025 AGILira - A. Giordano
// Series: an AGILira library
// SPDX-License-Identifier: MPL-2.0

package warden

import (
	"sync"
	"sync/atomic"
	"time"
)

// expirationManager implements spec §4.D for one Cache instance.
type expirationManager[K comparable, V any] struct {
	store    *store[K, V]
	clock    TimeProvider
	lazy     bool
	interval atomic.Int64 // nanoseconds; re-readable so hot-reload.go can retune a running janitor
	onExpire func(key K, e *entry[V])
	onSweep  func(removed int)

	stopCh chan struct{}

	mu          sync.Mutex
	lastRun     int64
	lastRemoved int
	hasRun      bool
}

// onExpire fires once per key for the lazy read-path purge (spec §4.D:
// "a purge notification is emitted, action = purge, result = {ok, 1}
// style"). onSweep fires once per janitor/manual purge() call carrying
// the total removed count (spec §4.D step 3: "emits a single {purge,
// removed_count} event"), rather than replaying onExpire per victim.
func newExpirationManager[K comparable, V any](s *store[K, V], clock TimeProvider, lazy bool, interval time.Duration, onExpire func(K, *entry[V]), onSweep func(int)) *expirationManager[K, V] {
	m := &expirationManager[K, V]{
		store:    s,
		clock:    clock,
		lazy:     lazy,
		onExpire: onExpire,
		onSweep:  onSweep,
		stopCh:   make(chan struct{}),
	}
	m.interval.Store(int64(interval))
	return m
}

// setInterval retunes the janitor's sweep period. Only effective while
// the janitor loop is already running (it was started with a positive
// interval); a janitor that was never started because its initial
// interval was zero stays disabled.
func (m *expirationManager[K, V]) setInterval(d time.Duration) {
	m.interval.Store(int64(d))
}

// lookupLive returns key's entry only if it is live at the current
// time. If it is not live and lazy expiration is enabled, it is purged
// immediately and onExpire is invoked (spec §4.D).
func (m *expirationManager[K, V]) lookupLive(key K) (*entry[V], bool) {
	e, ok := m.store.lookup(key)
	if !ok {
		return nil, false
	}
	if e.live(m.clock.Now()) {
		return e, true
	}
	if m.lazy {
		if m.store.delete(key) {
			m.onExpire(key, e)
		}
	}
	return nil, false
}

// purge removes every currently-expired entry regardless of the lazy
// setting, records the sweep for inspection (spec §6's
// "janitor.last_run"), and emits a single summary event for the whole
// pass rather than one event per removed key (spec §4.D step 3).
func (m *expirationManager[K, V]) purge() int {
	var victims []K
	m.store.iterate(MatchExpired(), func(key K, e *entry[V]) bool {
		victims = append(victims, key)
		return true
	})

	removed := 0
	for _, k := range victims {
		if _, ok := m.store.take(k); ok {
			removed++
		}
	}
	if m.onSweep != nil {
		m.onSweep(removed)
	}

	m.mu.Lock()
	m.lastRun = m.clock.Now()
	m.lastRemoved = removed
	m.hasRun = true
	m.mu.Unlock()

	return removed
}

// lastSweep reports when the janitor last ran and how many entries it
// removed, for the inspection surface (spec §6).
func (m *expirationManager[K, V]) lastSweep() (ranAt int64, removed int, hasRun bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.lastRun, m.lastRemoved, m.hasRun
}

// startJanitor launches the periodic sweep goroutine. A non-positive
// initial interval disables it entirely; purge() remains callable
// manually either way. The loop re-reads interval on every cycle
// rather than building a fixed ticker, so setInterval (hot-reload.go)
// can retune the sweep period of an already-running janitor.
func (m *expirationManager[K, V]) startJanitor() {
	if m.interval.Load() <= 0 {
		return
	}
	go func() {
		for {
			iv := time.Duration(m.interval.Load())
			if iv <= 0 {
				iv = time.Second
			}
			select {
			case <-m.stopCh:
				return
			case <-time.After(iv):
				m.purge()
			}
		}
	}()
}

func (m *expirationManager[K, V]) stopJanitor() {
	close(m.stopCh)
}
