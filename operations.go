// operations.go: the Cache[K, V] type and its operation surface (spec §4.I)
//
// Cache assembles the store, locksmith, expiration manager, eviction
// manager, hook pipeline, courier and warmer runtime into the single
// generic type client code interacts with, the same "one façade type
// wiring several single-purpose collaborators" shape the teacher's
// wtinyLFUCache constructor follows in cache.go.
//
// Copyright (c) 2025 AGILira - A. Giordano
// Series: an AGILira library
// SPDX-License-Identifier: MPL-2.0

package warden

import (
	"context"
	"reflect"
	"sync/atomic"
	"time"
)

// KV is a key/value pair returned by snapshot-style operations.
type KV[K comparable, V any] struct {
	Key   K
	Value V
}

// Cache is a named, in-process, concurrent key/value cache implementing
// every operation described in spec §4.I.
type Cache[K comparable, V any] struct {
	cfg CacheConfig

	store   *store[K, V]
	lock    *locksmith[K]
	exp     *expirationManager[K, V]
	evict   *evictionManager[K, V]
	hooks   *hookPipeline
	courier *courier[K, V]
	warmers *warmerRuntime

	clock    TimeProvider
	metrics  MetricsCollector
	logger   Logger
	commands map[string]Command
	router   Router
	stats    *statsHook

	// defaultExpirationMs backs CacheConfig.DefaultExpiration as a
	// retunable value so hot-reload.go can republish it without
	// rebuilding the cache.
	defaultExpirationMs atomic.Int64
}

// New constructs a Cache from cfg, applying defaults and starting its
// background actors (janitor, scheduled eviction, warmers).
func New[K comparable, V any](cfg CacheConfig) (*Cache[K, V], error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	s := newStore[K, V](cfg.TimeProvider, cfg.Ordered)

	c := &Cache[K, V]{
		cfg:      cfg,
		store:    s,
		clock:    cfg.TimeProvider,
		metrics:  cfg.MetricsCollector,
		logger:   cfg.Logger,
		commands: cfg.Commands,
		router:   cfg.Router,
	}

	c.defaultExpirationMs.Store(int64(cfg.DefaultExpiration))

	if cfg.EnableStats {
		c.stats = newStatsHook()
		cfg.Hooks = append([]HookConfig{c.stats.hookConfig()}, cfg.Hooks...)
	}

	c.hooks = newHookPipeline(cfg.Name, cfg.Hooks, cfg.Logger)
	c.lock = newLocksmith[K](cfg.Transactional)
	c.courier = newCourier[K, V]()

	c.exp = newExpirationManager[K, V](s, cfg.TimeProvider, cfg.LazyExpiration, cfg.JanitorInterval, c.onExpire, c.onJanitorSweep)
	c.evict = newEvictionManager[K, V](s, cfg.SizeLimit, cfg.ReclaimFraction, cfg.EvictionMode, cfg.EvictionInterval, c.onEvict)

	c.exp.startJanitor()
	c.evict.startScheduled()

	if len(cfg.Warmers) > 0 {
		c.warmers = newWarmerRuntime(cfg.Logger)
		c.warmers.start(cfg.Warmers, c.applyWarmerLoad)
	}

	// Two-phase startup (spec §4.F "provisions"): hooks are constructed
	// above from cfg.Hooks before this Cache exists, so any hook wanting
	// the resolved configuration gets it now, after the fact.
	c.hooks.provision(context.Background(), ProvisionConfig, cfg)

	return c, nil
}

// Close stops every background actor. It does not clear the cache.
func (c *Cache[K, V]) Close() {
	c.exp.stopJanitor()
	if c.cfg.EvictionMode == EvictionScheduled && c.cfg.EvictionInterval > 0 {
		c.evict.stopScheduled()
	}
	if c.warmers != nil {
		c.warmers.stop()
	}
}

// SetDefaultExpiration republishes the TTL applied to writes that omit
// an explicit one. Existing entries are unaffected.
func (c *Cache[K, V]) SetDefaultExpiration(d time.Duration) {
	c.defaultExpirationMs.Store(int64(d))
}

// SetJanitorInterval retunes the running janitor's sweep period. It has
// no effect if the cache was started with JanitorInterval <= 0, since
// the janitor goroutine was never launched.
func (c *Cache[K, V]) SetJanitorInterval(d time.Duration) {
	c.exp.setInterval(d)
}

// SetSizeLimit retunes the eviction policy's size bound.
func (c *Cache[K, V]) SetSizeLimit(n int) {
	c.evict.setSizeLimit(n)
}

// SetReclaimFraction retunes the eviction policy's per-pass reclaim
// headroom.
func (c *Cache[K, V]) SetReclaimFraction(f float64) {
	c.evict.setReclaimFraction(f)
}

func (c *Cache[K, V]) onExpire(key K, e *entry[V]) {
	c.metrics.RecordExpiration()
	c.hooks.dispatch(context.Background(), EventExpire, key, e.value, "expire", true)
}

// onJanitorSweep fires once per janitor or manual purge() pass, per
// spec §4.D step 3's single {purge, removed_count} event, rather than
// replaying onExpire once per removed key.
func (c *Cache[K, V]) onJanitorSweep(removed int) {
	for i := 0; i < removed; i++ {
		c.metrics.RecordExpiration()
	}
	c.hooks.dispatch(context.Background(), EventPurge, nil, removed, "purge", true)
}

func (c *Cache[K, V]) onEvict(key K, e *entry[V]) {
	c.metrics.RecordEviction()
	c.hooks.dispatch(context.Background(), EventEvict, key, e.value, "evict", true)
}

func (c *Cache[K, V]) applyWarmerLoad(name string, pairs map[any]any) {
	typed := make(map[K]V, len(pairs))
	for k, v := range pairs {
		kk, kok := k.(K)
		vv, vok := v.(V)
		if kok && vok {
			typed[kk] = vv
		}
	}
	if len(typed) == 0 {
		return
	}
	_ = c.PutMany(context.Background(), typed, nil)
}

// resolveTTL turns a caller-supplied ttl pointer into the hasExpiration
// flag and relative-expiration-in-milliseconds the store keeps per
// entry. nil means "apply CacheConfig.DefaultExpiration".
func (c *Cache[K, V]) resolveTTL(ttl *time.Duration) (hasExpiration bool, expirationMs int64, err error) {
	d := time.Duration(c.defaultExpirationMs.Load())
	if ttl != nil {
		d = *ttl
	}
	switch {
	case d == NoExpiration:
		return false, 0, nil
	case d == 0:
		return false, 0, nil
	case d > 0:
		return true, d.Milliseconds(), nil
	default:
		return false, 0, NewErrInvalidExpiration(int64(d))
	}
}

func (c *Cache[K, V]) newEntry(value V, ttl *time.Duration) (*entry[V], error) {
	hasExp, ms, err := c.resolveTTL(ttl)
	if err != nil {
		return nil, err
	}
	return &entry[V]{
		modified:      c.clock.Now(),
		hasExpiration: hasExp,
		expiration:    ms,
		value:         value,
	}, nil
}

// --- Reads -----------------------------------------------------------

// Get returns the live value stored at key, if any.
func (c *Cache[K, V]) Get(ctx context.Context, key K) (V, bool) {
	start := c.clock.Now()
	c.hooks.dispatch(ctx, EventPreGet, key, nil, "get", true)

	e, ok := c.exp.lookupLive(key)
	c.metrics.RecordGet(c.nsSince(start), ok)

	var zero V
	if !ok {
		c.hooks.dispatch(ctx, EventPostGet, key, nil, "get", true)
		return zero, false
	}
	c.hooks.dispatch(ctx, EventPostGet, key, e.value, "get", true)
	return e.value, true
}

// Exists reports whether key has a live entry, without affecting LRW
// recency.
func (c *Cache[K, V]) Exists(key K) bool {
	_, ok := c.exp.lookupLive(key)
	return ok
}

// TTL returns the remaining time-to-live for key. ok is false if key is
// absent, expired, or has no expiration set.
func (c *Cache[K, V]) TTL(key K) (remaining time.Duration, ok bool) {
	e, live := c.exp.lookupLive(key)
	if !live || !e.hasExpiration {
		return 0, false
	}
	return time.Duration(e.remaining(c.clock.Now())) * time.Millisecond, true
}

// Size returns the number of live entries.
func (c *Cache[K, V]) Size() int {
	return c.store.selectCount(MatchUnexpired())
}

// Keys returns a snapshot of every live key.
func (c *Cache[K, V]) Keys() []K {
	var keys []K
	c.store.iterate(MatchUnexpired(), func(key K, _ *entry[V]) bool {
		keys = append(keys, key)
		return true
	})
	return keys
}

// Values returns a snapshot of every live value.
func (c *Cache[K, V]) Values() []V {
	var vals []V
	c.store.iterate(MatchUnexpired(), func(_ K, e *entry[V]) bool {
		vals = append(vals, e.value)
		return true
	})
	return vals
}

// Entries returns a snapshot of every live key/value pair.
func (c *Cache[K, V]) Entries() []KV[K, V] {
	var out []KV[K, V]
	c.store.iterate(MatchUnexpired(), func(key K, e *entry[V]) bool {
		out = append(out, KV[K, V]{Key: key, Value: e.value})
		return true
	})
	return out
}

// Stream pushes every live key/value pair matching spec onto a channel,
// closing it when iteration completes or ctx is cancelled.
func (c *Cache[K, V]) Stream(ctx context.Context, spec matchSpec) <-chan KV[K, V] {
	out := make(chan KV[K, V])
	go func() {
		defer close(out)
		c.store.iterate(spec, func(key K, e *entry[V]) bool {
			select {
			case out <- KV[K, V]{Key: key, Value: e.value}:
				return true
			case <-ctx.Done():
				return false
			}
		})
	}()
	return out
}

// --- Writes ------------------------------------------------------------

// Put stores value at key, overwriting any existing entry. A nil ttl
// applies CacheConfig.DefaultExpiration.
func (c *Cache[K, V]) Put(ctx context.Context, key K, value V, ttl *time.Duration) error {
	start := c.clock.Now()
	e, err := c.newEntry(value, ttl)
	if err != nil {
		return err
	}
	c.hooks.dispatch(ctx, EventPreSet, key, nil, "put", true)
	err = c.lock.withWriteLock(ctx, key, func(ctx context.Context) error {
		c.store.insert(key, e)
		return nil
	})
	if err != nil {
		return err
	}
	c.metrics.RecordSet(c.nsSince(start))
	c.evict.onWrite()
	c.hooks.dispatch(ctx, EventPostSet, key, value, "put", true)
	return nil
}

// PutMany stores every pair in pairs as a single transaction spanning
// all of their keys (spec §4.I put_many: all-or-nothing application).
func (c *Cache[K, V]) PutMany(ctx context.Context, pairs map[K]V, ttl *time.Duration) error {
	if len(pairs) == 0 {
		return nil
	}
	keys := make([]K, 0, len(pairs))
	for k := range pairs {
		keys = append(keys, k)
	}

	entries := make(map[K]*entry[V], len(pairs))
	for k, v := range pairs {
		e, err := c.newEntry(v, ttl)
		if err != nil {
			return err
		}
		entries[k] = e
	}

	for k := range pairs {
		c.hooks.dispatch(ctx, EventPreSet, k, nil, "put_many", true)
	}

	start := c.clock.Now()
	err := c.lock.withTransaction(ctx, keys, func(ctx context.Context) error {
		for k, e := range entries {
			c.store.insert(k, e)
		}
		return nil
	})
	if err != nil {
		return err
	}
	c.metrics.RecordSet(c.nsSince(start))
	c.evict.onWrite()
	for k, v := range pairs {
		c.hooks.dispatch(ctx, EventPostSet, k, v, "put_many", true)
	}
	return nil
}

// Import is an alias for PutMany using CacheConfig.DefaultExpiration,
// intended for bulk-loading a previously Dump-ed or externally sourced
// dataset (spec §4.J).
func (c *Cache[K, V]) Import(ctx context.Context, pairs map[K]V) error {
	return c.PutMany(ctx, pairs, nil)
}

// Update atomically applies fn to the current value at key (zero value
// and existed=false if absent) and stores the result.
func (c *Cache[K, V]) Update(ctx context.Context, key K, fn func(old V, existed bool) (V, error)) (V, error) {
	c.hooks.dispatch(ctx, EventPreSet, key, nil, "update", true)
	var result V
	err := c.lock.withWriteLock(ctx, key, func(ctx context.Context) error {
		e, live := c.exp.lookupLive(key)
		var old V
		existed := false
		if live {
			old = e.value
			existed = true
		}
		newVal, err := fn(old, existed)
		if err != nil {
			return err
		}
		result = newVal
		ent, err := c.newEntry(newVal, nil)
		if err != nil {
			return err
		}
		c.store.insert(key, ent)
		return nil
	})
	if err != nil {
		var zero V
		return zero, err
	}
	c.evict.onWrite()
	c.hooks.dispatch(ctx, EventPostSet, key, result, "update", true)
	return result, nil
}

// GetAndUpdate atomically replaces key's value with newValue and
// returns whatever was there before (existed=false if absent). Spec
// §4.I runs this as a transaction on {key}.
func (c *Cache[K, V]) GetAndUpdate(ctx context.Context, key K, newValue V) (old V, existed bool, err error) {
	c.hooks.dispatch(ctx, EventPreSet, key, nil, "get_and_update", true)
	err = c.lock.withTransaction(ctx, []K{key}, func(ctx context.Context) error {
		e, live := c.exp.lookupLive(key)
		if live {
			old = e.value
			existed = true
		}
		ent, err := c.newEntry(newValue, nil)
		if err != nil {
			return err
		}
		c.store.insert(key, ent)
		return nil
	})
	if err != nil {
		var zero V
		return zero, false, err
	}
	c.evict.onWrite()
	c.hooks.dispatch(ctx, EventPostSet, key, newValue, "get_and_update", true)
	return old, existed, nil
}

// Delete removes key and always reports true on success, per spec
// §4.I/testable property 10: delete is idempotent, so a second delete
// of an already-absent key still returns true.
func (c *Cache[K, V]) Delete(ctx context.Context, key K) (bool, error) {
	start := c.clock.Now()
	c.hooks.dispatch(ctx, EventPreDelete, key, nil, "delete", true)
	err := c.lock.withWriteLock(ctx, key, func(ctx context.Context) error {
		c.store.delete(key)
		return nil
	})
	if err != nil {
		return false, err
	}
	c.metrics.RecordDelete(c.nsSince(start))
	c.hooks.dispatch(ctx, EventPostDelete, key, nil, "delete", true)
	return true, nil
}

// Take removes and returns key's live value in one step. An entry that
// had already expired is not returned; with LazyExpiration on, the
// expiration engine purges it and emits its EventExpire (spec §4.D).
func (c *Cache[K, V]) Take(ctx context.Context, key K) (V, bool, error) {
	start := c.clock.Now()
	c.hooks.dispatch(ctx, EventPreDelete, key, nil, "take", true)
	var val V
	var existed bool
	err := c.lock.withWriteLock(ctx, key, func(ctx context.Context) error {
		e, live := c.exp.lookupLive(key)
		if !live {
			return nil
		}
		if c.store.delete(key) {
			val = e.value
			existed = true
		}
		return nil
	})
	if err != nil {
		var zero V
		return zero, false, err
	}
	c.metrics.RecordDelete(c.nsSince(start))
	if existed {
		c.hooks.dispatch(ctx, EventPostDelete, key, val, "take", true)
	}
	return val, existed, nil
}

// Clear removes every entry, returning the number removed. Spec §4.I
// runs this as a transaction on the empty key set, giving it the same
// transaction bookkeeping (and ordering against concurrent
// transactions) as any other transaction without contending with
// per-key writers on disjoint keys.
func (c *Cache[K, V]) Clear(ctx context.Context) int {
	var n int
	_ = c.lock.withTransaction(ctx, nil, func(ctx context.Context) error {
		n = c.store.selectDelete(MatchAll())
		return nil
	})
	c.hooks.dispatch(ctx, EventPostClear, nil, nil, "clear", true)
	return n
}

// Expire sets key's expiration to ttl and bumps modified to now, or
// deletes key outright when ttl is NoExpiration or smaller (spec §4.I:
// "if ms > -1, set expiration=ms, modified=now; else delete key").
func (c *Cache[K, V]) Expire(ctx context.Context, key K, ttl time.Duration) (bool, error) {
	var applied bool
	err := c.lock.withWriteLock(ctx, key, func(ctx context.Context) error {
		if ttl <= NoExpiration {
			applied = c.store.delete(key)
			return nil
		}
		now := c.clock.Now()
		applied = c.store.modifyFields(key, func(e *entry[V]) {
			e.hasExpiration = true
			e.expiration = ttl.Milliseconds()
			e.modified = now
		})
		return nil
	})
	return applied, err
}

// Refresh resets key's deadline to now+expiration, using its existing
// TTL duration. Entries with no expiration are left alone.
func (c *Cache[K, V]) Refresh(ctx context.Context, key K) (bool, error) {
	var applied bool
	err := c.lock.withWriteLock(ctx, key, func(ctx context.Context) error {
		applied = c.store.modifyFields(key, func(e *entry[V]) {
			if !e.hasExpiration {
				return
			}
			e.modified = c.clock.Now()
		})
		return nil
	})
	return applied, err
}

// Touch bumps key's LRW recency without changing its absolute
// expiration deadline, the opposite tradeoff from Refresh.
func (c *Cache[K, V]) Touch(ctx context.Context, key K) (bool, error) {
	var applied bool
	err := c.lock.withTransaction(ctx, []K{key}, func(ctx context.Context) error {
		applied = c.store.modifyFields(key, func(e *entry[V]) {
			now := c.clock.Now()
			if e.hasExpiration {
				deadline := e.modified + e.expiration
				e.expiration = deadline - now
			}
			e.modified = now
		})
		return nil
	})
	return applied, err
}

// Increment adds delta to the numeric value stored at key and returns
// the updated value. A missing key seeds its starting value from
// initial (spec §4.I: "default entry uses initial and cache's default
// expiration") before delta is applied, rather than starting from V's
// zero value. Non-numeric values report ErrCodeNonNumericValue.
func (c *Cache[K, V]) Increment(ctx context.Context, key K, delta int64, initial V) (V, error) {
	c.hooks.dispatch(ctx, EventPreSet, key, nil, "increment", true)
	var result V
	err := c.lock.withWriteLock(ctx, key, func(ctx context.Context) error {
		e, live := c.exp.lookupLive(key)
		current := initial
		if live {
			current = e.value
		}
		updated, err := addDelta(current, delta)
		if err != nil {
			return err
		}
		result = updated
		ent, err := c.newEntry(updated, nil)
		if err != nil {
			return err
		}
		c.store.insert(key, ent)
		return nil
	})
	if err != nil {
		var zero V
		return zero, err
	}
	c.evict.onWrite()
	c.hooks.dispatch(ctx, EventPostSet, key, result, "increment", true)
	return result, nil
}

// addDelta implements increment's numeric dispatch via reflection,
// since V is an unconstrained type parameter and Go generics offer no
// arithmetic constraint broad enough to cover every numeric kind a
// cache value might hold.
func addDelta[V any](current V, delta int64) (V, error) {
	rv := reflect.ValueOf(current)
	switch rv.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		out := reflect.New(rv.Type()).Elem()
		out.SetInt(rv.Int() + delta)
		return out.Interface().(V), nil
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		out := reflect.New(rv.Type()).Elem()
		out.SetUint(rv.Uint() + uint64(delta))
		return out.Interface().(V), nil
	case reflect.Float32, reflect.Float64:
		out := reflect.New(rv.Type()).Elem()
		out.SetFloat(rv.Float() + float64(delta))
		return out.Interface().(V), nil
	default:
		var zero V
		return zero, NewErrNonNumericValue(current)
	}
}

// --- Read-through loading ----------------------------------------------

// Fetch returns key's live value, loading it through loader on a miss.
// Concurrent misses for the same key are coalesced by the courier.
// loader's LoadIgnore outcome always notifies hooks of the fetch
// attempt, even when the caller otherwise suppresses notifications.
func (c *Cache[K, V]) Fetch(ctx context.Context, key K, ttl *time.Duration, loader Loader[K, V]) (V, error) {
	if e, ok := c.exp.lookupLive(key); ok {
		return e.value, nil
	}

	result, err, _ := c.courier.fetch(ctx, key, loader)
	if err != nil {
		c.hooks.dispatch(ctx, EventFetch, key, err, "fetch", true)
		var zero V
		return zero, err
	}

	c.hooks.dispatch(ctx, EventFetch, key, result.Value, "fetch", true)

	if result.Outcome != LoadCommit {
		return result.Value, nil
	}

	effectiveTTL := ttl
	if result.HasExpiration {
		d := time.Duration(result.ExpirationMs) * time.Millisecond
		effectiveTTL = &d
	}
	ent, err := c.newEntry(result.Value, effectiveTTL)
	if err != nil {
		var zero V
		return zero, err
	}
	_ = c.lock.withWriteLock(ctx, key, func(ctx context.Context) error {
		c.store.insert(key, ent)
		return nil
	})
	c.evict.onWrite()
	return result.Value, nil
}

// --- Transactions and commands ------------------------------------------

// Transaction runs fn with exclusive access to every key in keys,
// coordinated by the locksmith (spec §4.C).
func (c *Cache[K, V]) Transaction(ctx context.Context, keys []K, fn func(ctx context.Context) error) error {
	return c.lock.withTransaction(ctx, keys, fn)
}

// Invoke dispatches to a named Command registered in CacheConfig.
func (c *Cache[K, V]) Invoke(ctx context.Context, name string, args ...any) (any, error) {
	cmd, ok := c.commands[name]
	if !ok {
		return nil, NewErrInvalidCommand(name)
	}
	return cmd(ctx, args...)
}

// --- Maintenance ----------------------------------------------------------

// Purge runs an out-of-band expiration sweep regardless of
// LazyExpiration/JanitorInterval, and returns the number removed.
func (c *Cache[K, V]) Purge(ctx context.Context) int {
	return c.exp.purge()
}

// Prune removes every entry matching spec and returns the number
// removed, a more general manual maintenance hook than Purge.
func (c *Cache[K, V]) Prune(ctx context.Context, spec matchSpec) int {
	return c.store.selectDelete(spec)
}

func (c *Cache[K, V]) nsSince(startMs int64) int64 {
	return (c.clock.Now() - startMs) * int64(time.Millisecond)
}
