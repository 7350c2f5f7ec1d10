// operations_test.go: tests for the Cache[K, V] operation surface
//
// Copyright (c) 2025 AGILira - A. Giordano
// Series: an AGILira library
// SPDX-License-Identifier: MPL-2.0

package warden

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"
)

func newTestCache(t *testing.T, configure func(*CacheConfig)) (*Cache[string, int], *mockTimeProvider) {
	t.Helper()
	clock := newMockTimeProvider(0)
	cfg := DefaultCacheConfig("test")
	cfg.TimeProvider = clock
	if configure != nil {
		configure(&cfg)
	}
	c, err := New[string, int](cfg)
	if err != nil {
		t.Fatalf("New() error: %v", err)
	}
	t.Cleanup(c.Close)
	return c, clock
}

func TestCache_NewValidatesConfig(t *testing.T) {
	_, err := New[string, int](CacheConfig{})
	if err == nil {
		t.Fatal("New() with an empty Name should fail validation")
	}
}

func TestCache_PutGet(t *testing.T) {
	c, _ := newTestCache(t, nil)
	ctx := context.Background()

	if err := c.Put(ctx, "a", 1, nil); err != nil {
		t.Fatalf("Put() error: %v", err)
	}
	if v, ok := c.Get(ctx, "a"); !ok || v != 1 {
		t.Errorf("Get(a) = %d, %v; want 1, true", v, ok)
	}
	if _, ok := c.Get(ctx, "missing"); ok {
		t.Error("Get() on an absent key should report false")
	}
}

func TestCache_PutOverwritesExisting(t *testing.T) {
	c, _ := newTestCache(t, nil)
	ctx := context.Background()

	_ = c.Put(ctx, "a", 1, nil)
	_ = c.Put(ctx, "a", 2, nil)
	if v, _ := c.Get(ctx, "a"); v != 2 {
		t.Errorf("Get(a) after overwrite = %d, want 2", v)
	}
	if c.Size() != 1 {
		t.Errorf("Size() = %d, want 1", c.Size())
	}
}

func TestCache_ExistsDoesNotReportExpiredEntries(t *testing.T) {
	c, clock := newTestCache(t, nil)
	ctx := context.Background()
	ttl := 50 * time.Millisecond

	_ = c.Put(ctx, "a", 1, &ttl)
	if !c.Exists("a") {
		t.Fatal("Exists(a) should be true before expiration")
	}
	clock.Advance(100 * time.Millisecond)
	if c.Exists("a") {
		t.Error("Exists(a) should be false once expired")
	}
}

func TestCache_TTLReportsRemaining(t *testing.T) {
	c, clock := newTestCache(t, nil)
	ctx := context.Background()
	ttl := 200 * time.Millisecond

	_ = c.Put(ctx, "a", 1, &ttl)
	clock.Advance(50 * time.Millisecond)

	remaining, ok := c.TTL("a")
	if !ok {
		t.Fatal("TTL(a) should report ok=true")
	}
	if remaining <= 0 || remaining > 200*time.Millisecond {
		t.Errorf("TTL(a) = %v, want between 0 and 200ms", remaining)
	}

	_ = c.Put(ctx, "b", 1, nil)
	if _, ok := c.TTL("b"); ok {
		t.Error("TTL(b) should report ok=false for an entry with no expiration")
	}
}

func TestCache_SizeKeysValuesEntries(t *testing.T) {
	c, _ := newTestCache(t, nil)
	ctx := context.Background()

	_ = c.Put(ctx, "a", 1, nil)
	_ = c.Put(ctx, "b", 2, nil)

	if c.Size() != 2 {
		t.Errorf("Size() = %d, want 2", c.Size())
	}
	if keys := c.Keys(); len(keys) != 2 {
		t.Errorf("Keys() len = %d, want 2", len(keys))
	}
	if vals := c.Values(); len(vals) != 2 {
		t.Errorf("Values() len = %d, want 2", len(vals))
	}
	entries := c.Entries()
	if len(entries) != 2 {
		t.Fatalf("Entries() len = %d, want 2", len(entries))
	}
	sum := 0
	for _, kv := range entries {
		sum += kv.Value
	}
	if sum != 3 {
		t.Errorf("Entries() values sum = %d, want 3", sum)
	}
}

func TestCache_StreamDeliversAllAndRespectsCancel(t *testing.T) {
	c, _ := newTestCache(t, nil)
	ctx := context.Background()
	for i := 0; i < 5; i++ {
		_ = c.Put(ctx, string(rune('a'+i)), i, nil)
	}

	count := 0
	for range c.Stream(ctx, MatchAll()) {
		count++
	}
	if count != 5 {
		t.Errorf("Stream delivered %d entries, want 5", count)
	}

	cancelCtx, cancel := context.WithCancel(context.Background())
	cancel()
	drained := 0
	for range c.Stream(cancelCtx, MatchAll()) {
		drained++
	}
	if drained > 5 {
		t.Errorf("Stream with a pre-cancelled context delivered %d, want at most 5", drained)
	}
}

func TestCache_PutManyAllOrNothing(t *testing.T) {
	c, _ := newTestCache(t, nil)
	ctx := context.Background()

	pairs := map[string]int{"a": 1, "b": 2, "c": 3}
	if err := c.PutMany(ctx, pairs, nil); err != nil {
		t.Fatalf("PutMany() error: %v", err)
	}
	if c.Size() != 3 {
		t.Errorf("Size() after PutMany = %d, want 3", c.Size())
	}

	if err := c.PutMany(ctx, nil, nil); err != nil {
		t.Errorf("PutMany() with an empty map should be a no-op, got error: %v", err)
	}
}

func TestCache_ImportIsPutManyAlias(t *testing.T) {
	c, _ := newTestCache(t, nil)
	ctx := context.Background()

	if err := c.Import(ctx, map[string]int{"x": 9}); err != nil {
		t.Fatalf("Import() error: %v", err)
	}
	if v, ok := c.Get(ctx, "x"); !ok || v != 9 {
		t.Errorf("Get(x) after Import = %d, %v; want 9, true", v, ok)
	}
}

func TestCache_UpdateAppliesFn(t *testing.T) {
	c, _ := newTestCache(t, nil)
	ctx := context.Background()
	_ = c.Put(ctx, "a", 10, nil)

	result, err := c.Update(ctx, "a", func(old int, existed bool) (int, error) {
		if !existed || old != 10 {
			t.Errorf("Update fn saw old=%d existed=%v, want 10, true", old, existed)
		}
		return old + 5, nil
	})
	if err != nil {
		t.Fatalf("Update() error: %v", err)
	}
	if result != 15 {
		t.Errorf("Update() result = %d, want 15", result)
	}

	result, err = c.Update(ctx, "missing", func(old int, existed bool) (int, error) {
		if existed {
			t.Error("Update fn should see existed=false for an absent key")
		}
		return 100, nil
	})
	if err != nil || result != 100 {
		t.Errorf("Update() on absent key = %d, %v; want 100, nil", result, err)
	}
}

func TestCache_UpdatePropagatesFnError(t *testing.T) {
	c, _ := newTestCache(t, nil)
	ctx := context.Background()
	wantErr := errors.New("refused")

	_, err := c.Update(ctx, "a", func(int, bool) (int, error) { return 0, wantErr })
	if !errors.Is(err, wantErr) {
		t.Errorf("Update() error = %v, want %v", err, wantErr)
	}
	if c.Exists("a") {
		t.Error("a failed Update should not create an entry")
	}
}

func TestCache_GetAndUpdate(t *testing.T) {
	c, _ := newTestCache(t, nil)
	ctx := context.Background()
	_ = c.Put(ctx, "a", 1, nil)

	old, existed, err := c.GetAndUpdate(ctx, "a", 2)
	if err != nil || !existed || old != 1 {
		t.Errorf("GetAndUpdate(a) = %d, %v, %v; want 1, true, nil", old, existed, err)
	}
	if v, _ := c.Get(ctx, "a"); v != 2 {
		t.Errorf("Get(a) after GetAndUpdate = %d, want 2", v)
	}

	_, existed, _ = c.GetAndUpdate(ctx, "missing", 9)
	if existed {
		t.Error("GetAndUpdate on an absent key should report existed=false")
	}
}

func TestCache_DeleteAndTake(t *testing.T) {
	c, _ := newTestCache(t, nil)
	ctx := context.Background()
	_ = c.Put(ctx, "a", 1, nil)

	removed, err := c.Delete(ctx, "a")
	if err != nil || !removed {
		t.Errorf("Delete(a) = %v, %v; want true, nil", removed, err)
	}
	if c.Exists("a") {
		t.Error("a should no longer exist after Delete")
	}

	// Delete is idempotent (spec §8 testable property 10): a second
	// delete of an already-absent key still reports true.
	removed, _ = c.Delete(ctx, "a")
	if !removed {
		t.Error("Delete on an already-absent key should still report true (idempotent)")
	}

	_ = c.Put(ctx, "b", 7, nil)
	val, existed, err := c.Take(ctx, "b")
	if err != nil || !existed || val != 7 {
		t.Errorf("Take(b) = %d, %v, %v; want 7, true, nil", val, existed, err)
	}
	if c.Exists("b") {
		t.Error("b should no longer exist after Take")
	}

	_, existed, _ = c.Take(ctx, "missing")
	if existed {
		t.Error("Take on an absent key should report existed=false")
	}
}

func TestCache_Clear(t *testing.T) {
	c, _ := newTestCache(t, nil)
	ctx := context.Background()
	_ = c.PutMany(ctx, map[string]int{"a": 1, "b": 2, "c": 3}, nil)

	n := c.Clear(ctx)
	if n != 3 {
		t.Errorf("Clear() = %d, want 3", n)
	}
	if c.Size() != 0 {
		t.Errorf("Size() after Clear = %d, want 0", c.Size())
	}
}

func TestCache_ExpireSetsOrClearsTTL(t *testing.T) {
	c, clock := newTestCache(t, nil)
	ctx := context.Background()
	_ = c.Put(ctx, "a", 1, nil)

	applied, err := c.Expire(ctx, "a", 100*time.Millisecond)
	if err != nil || !applied {
		t.Fatalf("Expire() = %v, %v; want true, nil", applied, err)
	}
	if _, ok := c.TTL("a"); !ok {
		t.Error("a should have a TTL after Expire")
	}

	clock.Advance(200 * time.Millisecond)
	if c.Exists("a") {
		t.Error("a should have expired after Expire's TTL elapsed")
	}

	_ = c.Put(ctx, "b", 1, nil)
	ttl := 50 * time.Millisecond
	_, _ = c.Expire(ctx, "b", ttl)
	applied, err = c.Expire(ctx, "b", NoExpiration)
	if err != nil || !applied {
		t.Fatalf("Expire(NoExpiration) = %v, %v", applied, err)
	}
	if c.Exists("b") {
		t.Error("b should have been deleted by Expire(NoExpiration)")
	}

	applied, err = c.Expire(ctx, "missing", time.Second)
	if err != nil || applied {
		t.Errorf("Expire on an absent key should report false, got %v, %v", applied, err)
	}
}

func TestCache_RefreshResetsDeadline(t *testing.T) {
	c, clock := newTestCache(t, nil)
	ctx := context.Background()
	ttl := 100 * time.Millisecond
	_ = c.Put(ctx, "a", 1, &ttl)

	clock.Advance(80 * time.Millisecond)
	applied, err := c.Refresh(ctx, "a")
	if err != nil || !applied {
		t.Fatalf("Refresh() = %v, %v", applied, err)
	}

	clock.Advance(80 * time.Millisecond)
	if !c.Exists("a") {
		t.Error("a should still be live 80ms after Refresh reset its 100ms deadline")
	}
}

func TestCache_TouchPreservesDeadline(t *testing.T) {
	c, clock := newTestCache(t, nil)
	ctx := context.Background()
	ttl := 100 * time.Millisecond
	_ = c.Put(ctx, "a", 1, &ttl)

	clock.Advance(80 * time.Millisecond)
	applied, err := c.Touch(ctx, "a")
	if err != nil || !applied {
		t.Fatalf("Touch() = %v, %v", applied, err)
	}

	clock.Advance(30 * time.Millisecond)
	if c.Exists("a") {
		t.Error("Touch should not extend the original deadline past 100ms total")
	}
}

func TestCache_Increment(t *testing.T) {
	c, _ := newTestCache(t, nil)
	ctx := context.Background()

	v, err := c.Increment(ctx, "counter", 5, 0)
	if err != nil || v != 5 {
		t.Fatalf("Increment(counter, 5, 0) on an absent key = %d, %v; want 5, nil", v, err)
	}
	v, err = c.Increment(ctx, "counter", 3, 0)
	if err != nil || v != 8 {
		t.Errorf("Increment(counter, 3, 0) = %d, %v; want 8, nil", v, err)
	}
}

func TestCache_IncrementSeedsFromInitial(t *testing.T) {
	c, _ := newTestCache(t, nil)
	ctx := context.Background()

	v, err := c.Increment(ctx, "hits", 1, 100)
	if err != nil || v != 101 {
		t.Fatalf("Increment(hits, 1, 100) on an absent key = %d, %v; want 101, nil", v, err)
	}
}

func TestCache_IncrementNonNumericFails(t *testing.T) {
	clock := newMockTimeProvider(0)
	cfg := DefaultCacheConfig("test")
	cfg.TimeProvider = clock
	c, err := New[string, string](cfg)
	if err != nil {
		t.Fatalf("New() error: %v", err)
	}
	defer c.Close()

	ctx := context.Background()
	_ = c.Put(ctx, "a", "not-a-number", nil)
	if _, err := c.Increment(ctx, "a", 1, "0"); err == nil {
		t.Error("Increment on a non-numeric value should fail")
	}
}

func TestCache_FetchLoadsOnMissAndCachesResult(t *testing.T) {
	c, _ := newTestCache(t, nil)
	ctx := context.Background()
	calls := 0

	loader := func(ctx context.Context, key string) (LoadResult[int], error) {
		calls++
		return LoadResult[int]{Value: 42, Outcome: LoadCommit}, nil
	}

	v, err := c.Fetch(ctx, "a", nil, loader)
	if err != nil || v != 42 {
		t.Fatalf("Fetch() = %d, %v; want 42, nil", v, err)
	}
	if !c.Exists("a") {
		t.Error("a successful Fetch with LoadCommit should populate the cache")
	}

	v, err = c.Fetch(ctx, "a", nil, loader)
	if err != nil || v != 42 {
		t.Fatalf("second Fetch() = %d, %v; want 42, nil", v, err)
	}
	if calls != 1 {
		t.Errorf("loader ran %d times, want 1 since the second Fetch should hit the cache", calls)
	}
}

func TestCache_FetchLoadIgnoreDoesNotCache(t *testing.T) {
	c, _ := newTestCache(t, nil)
	ctx := context.Background()

	v, err := c.Fetch(ctx, "a", nil, func(context.Context, string) (LoadResult[int], error) {
		return LoadResult[int]{Value: 7, Outcome: LoadIgnore}, nil
	})
	if err != nil || v != 7 {
		t.Fatalf("Fetch() = %d, %v; want 7, nil", v, err)
	}
	if c.Exists("a") {
		t.Error("LoadIgnore should not populate the cache")
	}
}

func TestCache_FetchLoaderErrorPropagates(t *testing.T) {
	c, _ := newTestCache(t, nil)
	ctx := context.Background()
	wantErr := errors.New("downstream unavailable")

	_, err := c.Fetch(ctx, "a", nil, func(context.Context, string) (LoadResult[int], error) {
		return LoadResult[int]{}, wantErr
	})
	if !errors.Is(err, wantErr) {
		t.Errorf("Fetch() error = %v, want %v", err, wantErr)
	}
}

func TestCache_TransactionLocksAllKeys(t *testing.T) {
	c, _ := newTestCache(t, nil)
	ctx := context.Background()
	_ = c.Put(ctx, "a", 1, nil)
	_ = c.Put(ctx, "b", 2, nil)

	err := c.Transaction(ctx, []string{"a", "b"}, func(ctx context.Context) error {
		av, _ := c.exp.lookupLive("a")
		bv, _ := c.exp.lookupLive("b")
		c.store.modifyFields("a", func(e *entry[int]) { e.value = av.value + bv.value })
		return nil
	})
	if err != nil {
		t.Fatalf("Transaction() error: %v", err)
	}
	if v, _ := c.Get(ctx, "a"); v != 3 {
		t.Errorf("Get(a) after transaction = %d, want 3", v)
	}
}

func TestCache_InvokeDispatchesRegisteredCommand(t *testing.T) {
	c, _ := newTestCache(t, func(cfg *CacheConfig) {
		cfg.Commands = map[string]Command{
			"echo": func(ctx context.Context, args ...any) (any, error) {
				return args[0], nil
			},
		}
	})

	out, err := c.Invoke(context.Background(), "echo", "hello")
	if err != nil || out != "hello" {
		t.Errorf("Invoke(echo) = %v, %v; want hello, nil", out, err)
	}

	_, err = c.Invoke(context.Background(), "missing")
	if err == nil {
		t.Error("Invoke on an unregistered command should fail")
	}
}

func TestCache_PurgeRunsOutOfBandSweep(t *testing.T) {
	c, clock := newTestCache(t, nil)
	ctx := context.Background()
	ttl := 10 * time.Millisecond
	_ = c.Put(ctx, "a", 1, &ttl)

	clock.Advance(50 * time.Millisecond)
	if n := c.Purge(ctx); n != 1 {
		t.Errorf("Purge() = %d, want 1", n)
	}
}

func TestCache_PruneRemovesMatching(t *testing.T) {
	c, _ := newTestCache(t, nil)
	ctx := context.Background()
	_ = c.PutMany(ctx, map[string]int{"a": 1, "b": 2}, nil)

	n := c.Prune(ctx, MatchAll())
	if n != 2 {
		t.Errorf("Prune(MatchAll) = %d, want 2", n)
	}
}

func TestCache_HotReloadSetters(t *testing.T) {
	c, _ := newTestCache(t, nil)

	c.SetDefaultExpiration(500 * time.Millisecond)
	if time.Duration(c.defaultExpirationMs.Load()) != 500*time.Millisecond {
		t.Error("SetDefaultExpiration did not update defaultExpirationMs")
	}

	c.SetSizeLimit(50)
	if c.evict.limit() != 50 {
		t.Errorf("SetSizeLimit did not propagate, limit() = %d", c.evict.limit())
	}

	c.SetReclaimFraction(0.3)
	if c.evict.fraction() != 0.3 {
		t.Errorf("SetReclaimFraction did not propagate, fraction() = %v", c.evict.fraction())
	}

	c.SetJanitorInterval(5 * time.Millisecond)
}

func TestCache_EvictionReclaimsUnderPressure(t *testing.T) {
	c, _ := newTestCache(t, func(cfg *CacheConfig) {
		cfg.SizeLimit = 10
		cfg.ReclaimFraction = 0.5
	})
	ctx := context.Background()

	for i := 0; i < 15; i++ {
		_ = c.Put(ctx, string(rune('a'+i)), i, nil)
	}
	if c.Size() > 10 {
		t.Errorf("Size() under eviction pressure = %d, want at most 10", c.Size())
	}
}

func TestCache_WarmerPopulatesCacheOnTick(t *testing.T) {
	loaded := make(chan struct{})
	var once sync.Once

	clock := newMockTimeProvider(0)
	cfg := DefaultCacheConfig("warmed")
	cfg.TimeProvider = clock
	cfg.Warmers = []WarmerConfig{
		{
			Name:     "seed",
			Interval: 5 * time.Millisecond,
			Load: func(ctx context.Context) (map[any]any, error) {
				once.Do(func() { close(loaded) })
				return map[any]any{"seeded": 1}, nil
			},
		},
	}
	c, err := New[string, int](cfg)
	if err != nil {
		t.Fatalf("New() error: %v", err)
	}
	defer c.Close()

	select {
	case <-loaded:
	case <-time.After(time.Second):
		t.Fatal("warmer never ran within 1s")
	}

	time.Sleep(10 * time.Millisecond)
	if !c.Exists("seeded") {
		t.Error("warmer's loaded pairs should have been applied via PutMany")
	}
}

func TestCache_StatsDisabledByDefault(t *testing.T) {
	c, _ := newTestCache(t, nil)
	if _, err := c.Stats(); err == nil {
		t.Error("Stats() should fail when EnableStats was not set")
	}
}

func TestCache_StatsTracksHitsAndMisses(t *testing.T) {
	c, _ := newTestCache(t, func(cfg *CacheConfig) { cfg.EnableStats = true })
	ctx := context.Background()

	_ = c.Put(ctx, "a", 1, nil)
	c.Get(ctx, "a")
	c.Get(ctx, "missing")

	stats, err := c.Stats()
	if err != nil {
		t.Fatalf("Stats() error: %v", err)
	}
	if stats.Hits != 1 {
		t.Errorf("Stats().Hits = %d, want 1", stats.Hits)
	}
	if stats.Misses != 1 {
		t.Errorf("Stats().Misses = %d, want 1", stats.Misses)
	}
	if stats.Writes != 1 {
		t.Errorf("Stats().Writes = %d, want 1", stats.Writes)
	}
}

func TestCache_ConcurrentPutGetDelete(t *testing.T) {
	c, _ := newTestCache(t, nil)
	ctx := context.Background()
	var wg sync.WaitGroup

	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			key := string(rune('a' + i%10))
			_ = c.Put(ctx, key, i, nil)
			c.Get(ctx, key)
			_, _ = c.Delete(ctx, key)
		}(i)
	}
	wg.Wait()
}
