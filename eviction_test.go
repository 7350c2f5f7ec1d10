// eviction_test.go: tests for the LRW eviction policy
//
// Copyright (c) 2025 AGILira - A. Giordano
// Series: an AGILira library
// SPDX-License-Identifier: MPL-2.0

package warden

import (
	"fmt"
	"testing"
)

func TestEvictionManager_DisabledWhenNoLimit(t *testing.T) {
	clock := newMockTimeProvider(0)
	s := newStore[string, int](clock, false)
	m := newEvictionManager[string, int](s, 0, 0.2, EvictionEvented, 0, func(string, *entry[int]) {})

	if m.enabled() {
		t.Error("eviction manager should be disabled when sizeLimit is 0")
	}
	if n := m.maybeEvict(); n != 0 {
		t.Errorf("maybeEvict() on a disabled manager = %d, want 0", n)
	}
}

func TestEvictionManager_MaybeEvictReclaimsFraction(t *testing.T) {
	clock := newMockTimeProvider(0)
	s := newStore[string, int](clock, false)
	for i := 0; i < 100; i++ {
		s.insert(fmt.Sprintf("k%d", i), &entry[int]{modified: int64(i), value: i})
	}

	var evicted []string
	m := newEvictionManager[string, int](s, 100, 0.2, EvictionEvented, 0, func(k string, _ *entry[int]) {
		evicted = append(evicted, k)
	})

	s.insert("one-more", &entry[int]{modified: 1000})
	n := m.maybeEvict()

	if n == 0 {
		t.Fatal("maybeEvict() should reclaim entries once over the size limit")
	}
	// over (1) + 20% of 100 (20) = 21 entries reclaimed per pass (spec §4.E).
	if n != 21 {
		t.Errorf("maybeEvict() reclaimed %d, want 21", n)
	}
	if len(evicted) != n {
		t.Errorf("onEvict fired %d times, want %d", len(evicted), n)
	}
	// Eviction should prefer the oldest-by-modified entries.
	if evicted[0] != "k0" {
		t.Errorf("first evicted key = %q, want k0 (oldest by modified)", evicted[0])
	}
}

func TestEvictionManager_MaybeEvictNoOpUnderLimit(t *testing.T) {
	clock := newMockTimeProvider(0)
	s := newStore[string, int](clock, false)
	s.insert("a", &entry[int]{})

	m := newEvictionManager[string, int](s, 10, 0.2, EvictionEvented, 0, func(string, *entry[int]) {})
	if n := m.maybeEvict(); n != 0 {
		t.Errorf("maybeEvict() under the limit = %d, want 0", n)
	}
}

func TestEvictionManager_SetSizeLimitAndFraction(t *testing.T) {
	clock := newMockTimeProvider(0)
	s := newStore[string, int](clock, false)
	m := newEvictionManager[string, int](s, 10, 0.1, EvictionEvented, 0, func(string, *entry[int]) {})

	m.setSizeLimit(500)
	if m.limit() != 500 {
		t.Errorf("limit() after setSizeLimit = %d, want 500", m.limit())
	}

	m.setReclaimFraction(0.5)
	if m.fraction() != 0.5 {
		t.Errorf("fraction() after setReclaimFraction = %v, want 0.5", m.fraction())
	}
}

func TestEvictionManager_OnWriteOnlyEvictsInEventedMode(t *testing.T) {
	clock := newMockTimeProvider(0)
	s := newStore[string, int](clock, false)
	for i := 0; i < 20; i++ {
		s.insert(fmt.Sprintf("k%d", i), &entry[int]{modified: int64(i)})
	}

	scheduled := newEvictionManager[string, int](s, 10, 0.5, EvictionScheduled, 0, func(string, *entry[int]) {})
	scheduled.onWrite()
	if s.size() != 20 {
		t.Errorf("EvictionScheduled's onWrite should not evict; size = %d, want 20", s.size())
	}

	evented := newEvictionManager[string, int](s, 10, 0.5, EvictionEvented, 0, func(string, *entry[int]) {})
	evented.onWrite()
	if s.size() >= 20 {
		t.Errorf("EvictionEvented's onWrite should evict when over the limit; size = %d", s.size())
	}
}
