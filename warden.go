// Package warden provides a named, in-process, concurrent key/value cache
// with time-based expiration, size-bounded eviction, transactional
// multi-key operations, read-through loading, periodic background
// maintenance, and a hook/observer pipeline.
//
// Clients interact through a single generic type, Cache[K, V], which
// exposes one method per core operation: Get, Put, PutMany, Update,
// Delete, Take, Clear, Size, Exists, Expire, Refresh, Touch, TTL,
// Increment, Fetch, GetAndUpdate, Transaction, Invoke, Purge, Prune,
// Stream, Keys, Values, Entries, Dump, Save, Load, Restore and Import.
//
// Example usage:
//
//	cache, err := warden.New[string, int](warden.CacheConfig{
//		Name:              "sessions",
//		DefaultExpiration: 5 * time.Minute,
//		LazyExpiration:    true,
//		JanitorInterval:   time.Minute,
//	})
//	if err != nil {
//		log.Fatal(err)
//	}
//	defer cache.Close()
//
//	cache.Put(context.Background(), "user:42", 7, nil)
//	v, ok := cache.Get(context.Background(), "user:42")
//
// Copyright (c) 2025 AGILira - A. Giordano
// Series: an AGILira library
// SPDX-License-Identifier: MPL-2.0
package warden

import "time"

// NoExpiration is the sentinel *time.Duration value callers pass to
// Put/PutMany/Fetch to store a value that never expires, overriding
// any CacheConfig.DefaultExpiration. A nil ttl means "use the default"
// rather than "never expire".
const NoExpiration time.Duration = -1

const (
	// Version of the warden cache library.
	Version = "v0.1.0-dev"

	// DefaultReclaimFraction is used when a CacheConfig sets a SizeLimit
	// but leaves ReclaimFraction unset.
	DefaultReclaimFraction = 0.1

	// DefaultJanitorInterval is a sweep period callers may assign to
	// JanitorInterval. Validate never applies it: a cache that leaves
	// JanitorInterval at zero runs no janitor.
	DefaultJanitorInterval = 30000 // milliseconds

	// minJanitorInterval is the smallest interval the janitor accepts;
	// anything shorter is rounded up so the sweep actor cannot busy-loop.
	minJanitorInterval = 10 // milliseconds
)
