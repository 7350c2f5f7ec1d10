// hooks.go: the hook/observer pipeline (spec §4.F)
//
// Dispatch follows the same "recover, log, move on" isolation the
// teacher applies around user-supplied OnEvict/OnExpire callbacks in
// cache.go: a misbehaving hook must never take the calling goroutine
// (sync hooks) or the pipeline (async hooks) down with it.
//
// Copyright (c) 2025 AGILira - A. Giordano
// Series: an AGILira library
// SPDX-License-Identifier: MPL-2.0

package warden

import (
	"context"
	"time"
)

// HookEvent names a point in an operation's lifecycle a hook can
// observe (spec §4.F).
type HookEvent string

const (
	EventPreGet     HookEvent = "pre_get"
	EventPostGet    HookEvent = "post_get"
	EventPreSet     HookEvent = "pre_set"
	EventPostSet    HookEvent = "post_set"
	EventPreDelete  HookEvent = "pre_delete"
	EventPostDelete HookEvent = "post_delete"
	EventPostClear  HookEvent = "post_clear"
	EventExpire     HookEvent = "expire"
	EventPurge      HookEvent = "purge"
	EventEvict      HookEvent = "evict"
	EventFetch      HookEvent = "fetch"
)

// ProvisionConfig is the name under which a hook requests the cache's
// resolved CacheConfig be pushed to it after startup (spec §4.F
// "provisions": "late-bound handle to a service not yet constructed at
// hook init"). It is the only provision this module grants.
const ProvisionConfig = "config"

// HookPayload is what a hook receives on every dispatch.
type HookPayload struct {
	Cache string
	Event HookEvent
	Key   any
	Value any
	Via   string // override describing why the event fired, e.g. "clear"
	Meta  map[string]any
}

// HookFunc is the signature every registered hook implements.
type HookFunc func(ctx context.Context, payload HookPayload) error

// HookConfig registers one observer (spec §4.F). A hook with no Events
// listed receives every event.
type HookConfig struct {
	Name    string
	Events  []HookEvent
	Handler HookFunc

	// Async delivers this hook on its own goroutine without blocking
	// the triggering operation. Sync hooks (the default) run inline,
	// bounded by Timeout.
	Async bool

	// Timeout bounds a synchronous hook's execution; zero means no
	// timeout is imposed beyond the caller's own context.
	Timeout time.Duration

	// Service marks this hook as a long-lived, supervised observer
	// rather than an ordinary pre/post callback (spec §4.F hook
	// "type": service). A panic inside a service hook is logged as a
	// restart rather than a plain isolation, but otherwise follows the
	// same crash-isolation path as any other hook: the pipeline keeps
	// delivering later events to it regardless.
	Service bool

	// Provisions lists runtime handles this hook wants pushed to it
	// once the cache has finished starting (spec §4.F "provisions").
	// ProvisionConfig is the only name this module currently grants.
	Provisions []string

	// OnProvision delivers one requested provision's value after
	// startup; called once per matching name in Provisions.
	OnProvision func(ctx context.Context, name string, value any) error
}

func (h HookConfig) wantsProvision(name string) bool {
	for _, p := range h.Provisions {
		if p == name {
			return true
		}
	}
	return false
}

func (h HookConfig) wants(event HookEvent) bool {
	if len(h.Events) == 0 {
		return true
	}
	for _, e := range h.Events {
		if e == event {
			return true
		}
	}
	return false
}

// Command is a named read/write extension invocable through a Cache's
// Invoke operation (spec §4.F). Implementations that need access to
// the owning cache close over it after construction, since CacheConfig
// is built before the Cache it configures exists.
type Command func(ctx context.Context, args ...any) (any, error)

// hookPipeline fans a cache event out to every interested hook,
// honoring each hook's sync/async and timeout settings.
type hookPipeline struct {
	cacheName string
	hooks     []HookConfig
	logger    Logger
}

func newHookPipeline(cacheName string, hooks []HookConfig, logger Logger) *hookPipeline {
	return &hookPipeline{cacheName: cacheName, hooks: hooks, logger: logger}
}

// dispatch delivers event to every hook that wants it. notify=false
// suppresses delivery entirely and dispatch becomes a no-op; every
// call site in this package, Fetch's ignore path included, passes
// true.
func (p *hookPipeline) dispatch(ctx context.Context, event HookEvent, key, value any, via string, notify bool) {
	if !notify || len(p.hooks) == 0 {
		return
	}
	payload := HookPayload{
		Cache: p.cacheName,
		Event: event,
		Key:   key,
		Value: value,
		Via:   via,
	}
	for _, h := range p.hooks {
		if !h.wants(event) {
			continue
		}
		if h.Async {
			go p.runAsync(h, payload)
			continue
		}
		p.runSync(ctx, h, payload)
	}
}

func (p *hookPipeline) runSync(ctx context.Context, h HookConfig, payload HookPayload) {
	defer p.recoverPanic(h)

	if h.Timeout <= 0 {
		if err := h.Handler(ctx, payload); err != nil {
			p.logger.Warn("warden: hook returned error", "hook", h.Name, "event", string(payload.Event), "error", err)
		}
		return
	}

	hctx, cancel := context.WithTimeout(ctx, h.Timeout)
	defer cancel()

	done := make(chan error, 1)
	go func() {
		defer p.recoverPanic(h)
		done <- h.Handler(hctx, payload)
	}()

	select {
	case err := <-done:
		if err != nil {
			p.logger.Warn("warden: hook returned error", "hook", h.Name, "event", string(payload.Event), "error", err)
		}
	case <-hctx.Done():
		p.logger.Warn("warden: hook timed out", "hook", h.Name, "event", string(payload.Event))
	}
}

func (p *hookPipeline) runAsync(h HookConfig, payload HookPayload) {
	defer p.recoverPanic(h)
	ctx := context.Background()
	if h.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, h.Timeout)
		defer cancel()
	}
	if err := h.Handler(ctx, payload); err != nil {
		p.logger.Warn("warden: async hook returned error", "hook", h.Name, "event", string(payload.Event), "error", err)
	}
}

// provision delivers value under name to every hook that requested it
// via Provisions, implementing spec §4.F's two-phase startup: hooks are
// constructed first, then broadcast the handles they asked for once the
// owning Cache exists.
func (p *hookPipeline) provision(ctx context.Context, name string, value any) {
	for _, h := range p.hooks {
		if h.OnProvision == nil || !h.wantsProvision(name) {
			continue
		}
		p.runProvision(ctx, h, name, value)
	}
}

func (p *hookPipeline) runProvision(ctx context.Context, h HookConfig, name string, value any) {
	defer p.recoverPanic(h)
	if err := h.OnProvision(ctx, name, value); err != nil {
		p.logger.Warn("warden: hook provision failed", "hook", h.Name, "provision", name, "error", err)
	}
}

// recoverPanic isolates a hook crash from the caller (sync) or the
// pipeline (async). Service-typed hooks log as restarted rather than
// merely isolated, since spec §4.F supervises them across events: the
// pipeline keeps delivering the next event to the same hook regardless.
func (p *hookPipeline) recoverPanic(h HookConfig) {
	if r := recover(); r != nil {
		if h.Service {
			p.logger.Error("warden: service hook panicked, restarting", "hook", h.Name, "panic", r)
			return
		}
		p.logger.Error("warden: hook panicked, isolated", "hook", h.Name, "panic", r)
	}
}
