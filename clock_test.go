package warden

import (
	"sync/atomic"
	"time"
)

// mockTimeProvider is a controllable TimeProvider for deterministic
// expiration/eviction tests, mirroring the teacher's own
// MockTimeProvider in ttl_test.go but tracking milliseconds to match
// warden's TimeProvider contract.
type mockTimeProvider struct {
	ms atomic.Int64
}

func newMockTimeProvider(startMs int64) *mockTimeProvider {
	m := &mockTimeProvider{}
	m.ms.Store(startMs)
	return m
}

func (m *mockTimeProvider) Now() int64 {
	return m.ms.Load()
}

func (m *mockTimeProvider) Advance(d time.Duration) {
	m.ms.Add(int64(d / time.Millisecond))
}
