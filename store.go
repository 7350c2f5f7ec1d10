// store.go: the entry store and lookup engine (spec §4.A)
//
// A sharded keyed map with atomic per-key primitives. Sharding follows
// the teacher's preference for lock-free/fine-grained concurrency over
// a single global mutex, adapted here to a classic sharded-RWMutex
// design because spec §4.A's modify_fields/counter_update primitives
// need a compare-and-swap-sized critical section larger than a single
// atomic word, and because keys are now an arbitrary comparable type
// rather than a fixed-size string slot.
//
// Copyright (c) 2025 AGILira - A. Giordano
// Series: an AGILira library
// SPDX-License-Identifier: MPL-2.0

package warden

import (
	"sort"
	"sync"
)

const storeShardCount = 32

// store is the concurrent keyed table backing a Cache[K, V]. Each
// primitive below is atomic with respect to other primitives on the
// same key, per spec §4.A.
type store[K comparable, V any] struct {
	shards   [storeShardCount]shard[K, V]
	clock    TimeProvider
	ordered  bool
	orderMu  sync.Mutex
	order    []K // insertion order, only maintained when ordered=true
	orderPos map[K]int
}

type shard[K comparable, V any] struct {
	mu      sync.RWMutex
	entries map[K]*entry[V]
}

func newStore[K comparable, V any](clock TimeProvider, ordered bool) *store[K, V] {
	s := &store[K, V]{clock: clock, ordered: ordered}
	for i := range s.shards {
		s.shards[i].entries = make(map[K]*entry[V])
	}
	if ordered {
		s.orderPos = make(map[K]int)
	}
	return s
}

func (s *store[K, V]) shardFor(key K) *shard[K, V] {
	h := hashKey(key)
	return &s.shards[h%storeShardCount]
}

// lookup returns the raw entry for key, regardless of liveness; the
// liveness decision belongs to the expiration wrapper (spec §4.D), not
// to the store.
func (s *store[K, V]) lookup(key K) (*entry[V], bool) {
	sh := s.shardFor(key)
	sh.mu.RLock()
	defer sh.mu.RUnlock()
	e, ok := sh.entries[key]
	return e, ok
}

// insert overwrites any existing entry for key, per spec §4.A and the
// "at most one entry per key" invariant of spec §3.
func (s *store[K, V]) insert(key K, e *entry[V]) {
	sh := s.shardFor(key)
	sh.mu.Lock()
	_, existed := sh.entries[key]
	sh.entries[key] = e
	sh.mu.Unlock()
	if s.ordered && !existed {
		s.appendOrder(key)
	}
}

// modifyFields atomically applies patch to the existing entry for key,
// only if key exists; it returns whether key existed.
func (s *store[K, V]) modifyFields(key K, patch func(*entry[V])) bool {
	sh := s.shardFor(key)
	sh.mu.Lock()
	defer sh.mu.Unlock()
	e, ok := sh.entries[key]
	if !ok {
		return false
	}
	patch(e)
	return true
}

// delete removes key, returning whether it was present.
func (s *store[K, V]) delete(key K) bool {
	sh := s.shardFor(key)
	sh.mu.Lock()
	_, ok := sh.entries[key]
	if ok {
		delete(sh.entries, key)
	}
	sh.mu.Unlock()
	if ok && s.ordered {
		s.removeOrder(key)
	}
	return ok
}

// take removes and returns key's entry in one step.
func (s *store[K, V]) take(key K) (*entry[V], bool) {
	sh := s.shardFor(key)
	sh.mu.Lock()
	e, ok := sh.entries[key]
	if ok {
		delete(sh.entries, key)
	}
	sh.mu.Unlock()
	if ok && s.ordered {
		s.removeOrder(key)
	}
	return e, ok
}

// size returns the total number of entries across all shards,
// regardless of liveness.
func (s *store[K, V]) size() int {
	total := 0
	for i := range s.shards {
		s.shards[i].mu.RLock()
		total += len(s.shards[i].entries)
		s.shards[i].mu.RUnlock()
	}
	return total
}

// iterate calls fn for every entry matching spec, in shard order (or
// insertion order when the store is ordered). fn returning false stops
// iteration early.
func (s *store[K, V]) iterate(spec matchSpec, fn func(key K, e *entry[V]) bool) {
	pred := spec.compile()
	now := s.clock.Now()

	visit := func(key K, e *entry[V]) bool {
		if !pred(e.modified, e.hasExpiration, e.expiration, now) {
			return true
		}
		return fn(key, e)
	}

	if s.ordered {
		s.orderMu.Lock()
		keys := append([]K(nil), s.order...)
		s.orderMu.Unlock()
		for _, k := range keys {
			e, ok := s.lookup(k)
			if !ok {
				continue
			}
			if !visit(k, e) {
				return
			}
		}
		return
	}

	for i := range s.shards {
		sh := &s.shards[i]
		sh.mu.RLock()
		snapshot := make(map[K]*entry[V], len(sh.entries))
		for k, e := range sh.entries {
			snapshot[k] = e
		}
		sh.mu.RUnlock()
		for k, e := range snapshot {
			if !visit(k, e) {
				return
			}
		}
	}
}

// selectCount counts entries matching spec.
func (s *store[K, V]) selectCount(spec matchSpec) int {
	n := 0
	s.iterate(spec, func(K, *entry[V]) bool { n++; return true })
	return n
}

// selectDelete removes every entry matching spec and returns the
// number removed.
func (s *store[K, V]) selectDelete(spec matchSpec) int {
	var keys []K
	s.iterate(spec, func(key K, _ *entry[V]) bool {
		keys = append(keys, key)
		return true
	})
	removed := 0
	for _, k := range keys {
		if s.delete(k) {
			removed++
		}
	}
	return removed
}

// oldestByModified returns the n keys with the smallest modified
// timestamp, used by the LRW eviction policy (spec §4.E). Ties are
// broken by hashKey order, so the result is deterministic for a fixed
// input regardless of map iteration order.
func (s *store[K, V]) oldestByModified(n int) []K {
	if n <= 0 {
		return nil
	}
	var all []KeyModified[K]
	s.iterate(MatchAll(), func(key K, e *entry[V]) bool {
		all = append(all, KeyModified[K]{Key: key, Modified: e.modified})
		return true
	})
	sort.Slice(all, func(i, j int) bool {
		if all[i].Modified != all[j].Modified {
			return all[i].Modified < all[j].Modified
		}
		return hashKey(all[i].Key) < hashKey(all[j].Key)
	})
	if n > len(all) {
		n = len(all)
	}
	out := make([]K, n)
	for i := 0; i < n; i++ {
		out[i] = all[i].Key
	}
	return out
}

func (s *store[K, V]) appendOrder(key K) {
	s.orderMu.Lock()
	defer s.orderMu.Unlock()
	if _, ok := s.orderPos[key]; ok {
		return
	}
	s.orderPos[key] = len(s.order)
	s.order = append(s.order, key)
}

func (s *store[K, V]) removeOrder(key K) {
	s.orderMu.Lock()
	defer s.orderMu.Unlock()
	pos, ok := s.orderPos[key]
	if !ok {
		return
	}
	delete(s.orderPos, key)
	s.order = append(s.order[:pos], s.order[pos+1:]...)
	for i := pos; i < len(s.order); i++ {
		s.orderPos[s.order[i]] = i
	}
}
