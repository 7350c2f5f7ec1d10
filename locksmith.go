// locksmith.go: the concurrency coordinator (spec §4.C)
//
// Per-key writer locks are implemented as size-1 channel semaphores
// rather than sync.Mutex, the same "channel as a broadcast/rendezvous
// primitive" idiom the teacher uses for its inflight-call done channel
// in loading.go — here it buys a context-cancellable acquire, which
// spec §5's cancellation requirement (a blocked caller must be able to
// dequeue cleanly) a plain mutex cannot offer.
//
// Copyright (c) 2025 AGILira - A. Giordano
// Series: an AGILira library
// SPDX-License-Identifier: MPL-2.0

package warden

import (
	"context"
	"sort"
	"sync"

	"github.com/google/uuid"
)

// keySem is a context-cancellable binary semaphore guarding one key.
type keySem struct {
	ch chan struct{}
}

func newKeySem() *keySem {
	return &keySem{ch: make(chan struct{}, 1)}
}

func (s *keySem) lock(ctx context.Context) error {
	select {
	case s.ch <- struct{}{}:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (s *keySem) unlock() {
	<-s.ch
}

// txHandle identifies an in-flight transaction and the keys it holds,
// so nested calls from the transaction's own body (spec §4.C: "f MAY
// perform writes and reads; those skip the locksmith") can detect they
// are already covered and run inline.
type txHandle[K comparable] struct {
	id   string
	keys map[K]bool
}

func (t *txHandle[K]) holds(key K) bool {
	return t != nil && t.keys[key]
}

func (t *txHandle[K]) holdsAll(keys []K) bool {
	if t == nil {
		return false
	}
	for _, k := range keys {
		if !t.keys[k] {
			return false
		}
	}
	return true
}

type txContextKey struct{}

func txFromContext[K comparable](ctx context.Context) *txHandle[K] {
	v := ctx.Value(txContextKey{})
	if v == nil {
		return nil
	}
	tx, _ := v.(*txHandle[K])
	return tx
}

func withTxContext[K comparable](ctx context.Context, tx *txHandle[K]) context.Context {
	return context.WithValue(ctx, txContextKey{}, tx)
}

// locksmith implements spec §4.C's write-lock/transaction contract.
type locksmith[K comparable] struct {
	mu            sync.Mutex
	keyLocks      map[K]*keySem
	transactional bool
}

func newLocksmith[K comparable](transactional bool) *locksmith[K] {
	return &locksmith[K]{
		keyLocks:      make(map[K]*keySem),
		transactional: transactional,
	}
}

func (l *locksmith[K]) semFor(key K) *keySem {
	l.mu.Lock()
	defer l.mu.Unlock()
	s, ok := l.keyLocks[key]
	if !ok {
		s = newKeySem()
		l.keyLocks[key] = s
	}
	return s
}

// withWriteLock runs f under the per-key writer lock for key, unless
// the caller is already inside its own transaction holding key, in
// which case f runs inline (no double-locking, spec §4.C first bullet).
//
// The Transactional config flag does not change which mutex is taken
// here — a single key IS a transaction's key set of size one, so both
// paths already serialize against each other via the same semaphore.
// The flag is stored but not consulted: every single-key write in
// operations.go takes this lock, contended or not, and there is no
// lock-free path for uncontended writes.
func (l *locksmith[K]) withWriteLock(ctx context.Context, key K, f func(context.Context) error) error {
	if tx := txFromContext[K](ctx); tx.holds(key) {
		return f(ctx)
	}
	sem := l.semFor(key)
	if err := sem.lock(ctx); err != nil {
		return err
	}
	defer sem.unlock()
	return f(ctx)
}

// withTransaction runs f with exclusive access to every key in keys,
// per spec §4.C. Nested transactions from the same caller (detected
// via the context's txHandle) reuse the outer lock set instead of
// re-acquiring.
func (l *locksmith[K]) withTransaction(ctx context.Context, keys []K, f func(context.Context) error) error {
	if tx := txFromContext[K](ctx); tx.holdsAll(keys) {
		return f(ctx)
	}

	unique := dedupeKeys(keys)
	sort.Slice(unique, func(i, j int) bool { return hashKey(unique[i]) < hashKey(unique[j]) })

	sems := make([]*keySem, len(unique))
	for i, k := range unique {
		sems[i] = l.semFor(k)
	}

	acquired := 0
	for _, s := range sems {
		if err := s.lock(ctx); err != nil {
			// Cancellation mid-acquire: release everything already
			// held so no partial lock state persists (spec §4.C
			// cancellation guarantee).
			for i := 0; i < acquired; i++ {
				sems[i].unlock()
			}
			return err
		}
		acquired++
	}
	defer func() {
		for _, s := range sems {
			s.unlock()
		}
	}()

	held := make(map[K]bool, len(unique))
	for _, k := range unique {
		held[k] = true
	}
	tx := &txHandle[K]{id: uuid.NewString(), keys: held}
	return f(withTxContext(ctx, tx))
}

func dedupeKeys[K comparable](keys []K) []K {
	seen := make(map[K]bool, len(keys))
	out := make([]K, 0, len(keys))
	for _, k := range keys {
		if !seen[k] {
			seen[k] = true
			out = append(out, k)
		}
	}
	return out
}
