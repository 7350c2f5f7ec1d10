// keyhash.go: shard assignment for arbitrary comparable keys
//
// Copyright (c) 2025 AGILira - A. Giordano
// Series: an AGILira library
// SPDX-License-Identifier: MPL-2.0

package warden

import (
	"fmt"
	"hash/fnv"
)

// hashKey derives a shard index seed for an arbitrary comparable key.
// Unlike the teacher's fixed string-keyed table (which hashes the raw
// bytes directly), spec §3 allows any hashable key type, so this falls
// back to a stable textual representation. This is the one place in
// the store that is not zero-allocation; it runs once per operation,
// not once per probe, so the cost is bounded and predictable.
func hashKey[K comparable](key K) uint64 {
	h := fnv.New64a()
	fmt.Fprintf(h, "%#v", key)
	return h.Sum64()
}
