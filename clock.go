// clock.go: monotonic millisecond clock (spec §4.B)
//
// Copyright (c) 2025 AGILira - A. Giordano
// Series: an AGILira library
// SPDX-License-Identifier: MPL-2.0

package warden

import "github.com/agilira/go-timecache"

// systemTimeProvider is the default TimeProvider, backed by
// go-timecache's cached clock. This provides a significantly faster
// path than time.Now() for the hot read/write operations that check
// liveness on every call, at the cost of millisecond-granularity
// staleness the teacher's own benchmarks show is negligible relative
// to the TTLs cache users configure.
type systemTimeProvider struct{}

func (t *systemTimeProvider) Now() int64 {
	return timecache.CachedTimeNano() / int64(1e6)
}
