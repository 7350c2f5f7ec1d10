// warmer_test.go: tests for the periodic bulk loader runtime
//
// Copyright (c) 2025 AGILira - A. Giordano
// Series: an AGILira library
// SPDX-License-Identifier: MPL-2.0

package warden

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"
)

func TestWarmerRuntime_TickFeedsSink(t *testing.T) {
	r := newWarmerRuntime(NoOpLogger{})
	w := WarmerConfig{
		Name: "w1",
		Load: func(ctx context.Context) (map[any]any, error) {
			return map[any]any{"a": 1, "b": 2}, nil
		},
	}

	var gotName string
	var gotPairs map[any]any
	r.tick(w, func(name string, pairs map[any]any) {
		gotName = name
		gotPairs = pairs
	})

	if gotName != "w1" {
		t.Errorf("sink name = %q, want w1", gotName)
	}
	if len(gotPairs) != 2 {
		t.Errorf("sink pairs len = %d, want 2", len(gotPairs))
	}
}

func TestWarmerRuntime_TickSkipsSinkOnEmptyLoad(t *testing.T) {
	r := newWarmerRuntime(NoOpLogger{})
	w := WarmerConfig{
		Name: "w1",
		Load: func(ctx context.Context) (map[any]any, error) {
			return nil, nil
		},
	}

	called := false
	r.tick(w, func(string, map[any]any) { called = true })
	if called {
		t.Error("sink should not be called when Load returns no pairs")
	}
}

func TestWarmerRuntime_TickSwallowsLoadError(t *testing.T) {
	r := newWarmerRuntime(NoOpLogger{})
	w := WarmerConfig{
		Name: "w1",
		Load: func(ctx context.Context) (map[any]any, error) {
			return nil, errors.New("backend down")
		},
	}

	called := false
	// Must not panic; failure is isolated and logged.
	r.tick(w, func(string, map[any]any) { called = true })
	if called {
		t.Error("sink should not be called when Load fails")
	}
}

func TestWarmerRuntime_TickRecoversPanic(t *testing.T) {
	r := newWarmerRuntime(NoOpLogger{})
	w := WarmerConfig{
		Name: "w1",
		Load: func(ctx context.Context) (map[any]any, error) {
			panic("warmer exploded")
		},
	}
	// Must return normally rather than crash the caller.
	r.tick(w, func(string, map[any]any) {})
}

func TestWarmerRuntime_StartRunsOnInterval(t *testing.T) {
	r := newWarmerRuntime(NoOpLogger{})
	var ticks atomic.Int32
	w := WarmerConfig{
		Name:     "w1",
		Interval: 10 * time.Millisecond,
		Load: func(ctx context.Context) (map[any]any, error) {
			ticks.Add(1)
			return map[any]any{"k": 1}, nil
		},
	}

	r.start([]WarmerConfig{w}, func(string, map[any]any) {})
	defer r.stop()

	time.Sleep(55 * time.Millisecond)
	if ticks.Load() < 2 {
		t.Errorf("expected at least 2 ticks in 55ms at a 10ms interval, got %d", ticks.Load())
	}
}

func TestWarmerRuntime_StopStopsAllWarmers(t *testing.T) {
	r := newWarmerRuntime(NoOpLogger{})
	var ticks atomic.Int32
	w := WarmerConfig{
		Name:     "w1",
		Interval: 5 * time.Millisecond,
		Load: func(ctx context.Context) (map[any]any, error) {
			ticks.Add(1)
			return nil, nil
		},
	}

	r.start([]WarmerConfig{w}, func(string, map[any]any) {})
	time.Sleep(15 * time.Millisecond)
	r.stop()
	after := ticks.Load()

	time.Sleep(30 * time.Millisecond)
	if ticks.Load() != after {
		t.Errorf("warmer kept ticking after stop: before=%d after=%d", after, ticks.Load())
	}
}
