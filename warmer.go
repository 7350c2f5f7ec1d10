// warmer.go: periodic bulk loader runtime (spec §4.H)
//
// Mirrors the janitor's own ticker-goroutine-stop-channel shape (see
// expiration.go) rather than introducing a second scheduling idiom.
//
// Copyright (c) 2025 AGILira - A. Giordano
// Series: an AGILira library
// SPDX-License-Identifier: MPL-2.0

package warden

import (
	"context"
	"time"
)

// WarmerConfig registers one periodic bulk loader (spec §4.H). Load is
// called every Interval and its result is written through PutMany.
type WarmerConfig struct {
	Name     string
	Interval time.Duration
	Load     func(ctx context.Context) (map[any]any, error)
}

// warmerRuntime drives every configured warmer on its own ticker and
// feeds its results into a supplied sink, decoupling the warmer from
// any particular Cache[K, V] instantiation.
type warmerRuntime struct {
	stopCh chan struct{}
	logger Logger
}

func newWarmerRuntime(logger Logger) *warmerRuntime {
	return &warmerRuntime{stopCh: make(chan struct{}), logger: logger}
}

// start launches one goroutine per warmer, calling sink with the
// loaded pairs after every successful Load.
func (r *warmerRuntime) start(warmers []WarmerConfig, sink func(name string, pairs map[any]any)) {
	for _, w := range warmers {
		go r.run(w, sink)
	}
}

func (r *warmerRuntime) run(w WarmerConfig, sink func(name string, pairs map[any]any)) {
	ticker := time.NewTicker(w.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-r.stopCh:
			return
		case <-ticker.C:
			r.tick(w, sink)
		}
	}
}

func (r *warmerRuntime) tick(w WarmerConfig, sink func(name string, pairs map[any]any)) {
	defer func() {
		if rec := recover(); rec != nil {
			r.logger.Error("warden: warmer panicked, isolated", "warmer", w.Name, "panic", rec)
		}
	}()

	ctx, cancel := context.WithTimeout(context.Background(), w.Interval)
	defer cancel()

	pairs, err := w.Load(ctx)
	if err != nil {
		r.logger.Warn("warden: warmer load failed", "warmer", w.Name, "error", err)
		return
	}
	if len(pairs) > 0 {
		sink(w.Name, pairs)
	}
}

func (r *warmerRuntime) stop() {
	close(r.stopCh)
}
