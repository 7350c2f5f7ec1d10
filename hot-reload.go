// hot-reload.go: dynamic configuration with Argus integration
//
// Copyright (c) 2025 AGILira - A. Giordano
// Series: an AGILira library
// SPDX-License-Identifier: MPL-2.0

package warden

import (
	"fmt"
	"sync"
	"time"

	"github.com/agilira/argus"
)

// Tunable is the subset of a Cache's configuration spec §9 allows to
// be republished without rebuilding the cache: default_expiration,
// janitor_interval, size_limit and reclaim_fraction. Every Cache[K, V]
// satisfies this, so HotConfig itself never needs to be generic.
type Tunable interface {
	SetDefaultExpiration(d time.Duration)
	SetJanitorInterval(d time.Duration)
	SetSizeLimit(n int)
	SetReclaimFraction(f float64)
}

// TunableConfig is the snapshot of dynamically-reloadable settings
// HotConfig tracks across reloads.
type TunableConfig struct {
	DefaultExpiration time.Duration
	JanitorInterval   time.Duration
	SizeLimit         int
	ReclaimFraction   float64
}

// HotConfig provides dynamic configuration reload capabilities using
// Argus. It watches a configuration file and republishes the cache's
// dynamic knobs when changes are detected.
type HotConfig struct {
	cache   Tunable
	watcher *argus.Watcher
	mu      sync.RWMutex
	config  TunableConfig

	// OnReload is called after configuration is successfully reloaded.
	// This callback is optional and must be fast and non-blocking.
	OnReload func(oldConfig, newConfig TunableConfig)
}

// HotConfigOptions configures hot reload behavior.
type HotConfigOptions struct {
	// ConfigPath is the path to the configuration file to watch.
	// Supports JSON, YAML, TOML, HCL, INI, Properties formats.
	ConfigPath string

	// PollInterval is how often to check for configuration changes.
	// Default: 1 second. Minimum: 100ms.
	PollInterval time.Duration

	// Initial seeds the tracked configuration so the first reload's
	// oldConfig reflects the cache's actual starting values rather
	// than a zero TunableConfig.
	Initial TunableConfig

	// OnReload is called after configuration is successfully reloaded.
	OnReload func(oldConfig, newConfig TunableConfig)

	// Logger for hot reload operations. If nil, NoOpLogger is used.
	Logger Logger
}

// NewHotConfig creates a new hot-reloadable configuration for a cache
// and starts watching the configuration file immediately.
//
// Example configuration file (YAML):
//
//	cache:
//	  default_expiration: "5m"
//	  janitor_interval: "30s"
//	  size_limit: 100000
//	  reclaim_fraction: 0.1
func NewHotConfig(cache Tunable, opts HotConfigOptions) (*HotConfig, error) {
	if opts.ConfigPath == "" {
		return nil, fmt.Errorf("config_path is required")
	}

	if opts.PollInterval == 0 {
		opts.PollInterval = 1 * time.Second
	} else if opts.PollInterval < 100*time.Millisecond {
		opts.PollInterval = 100 * time.Millisecond
	}

	if opts.Logger == nil {
		opts.Logger = NoOpLogger{}
	}

	hc := &HotConfig{
		cache:    cache,
		OnReload: opts.OnReload,
		config:   opts.Initial,
	}

	argusConfig := argus.Config{
		PollInterval: opts.PollInterval,
	}

	watcher, err := argus.UniversalConfigWatcherWithConfig(opts.ConfigPath, hc.handleConfigChange, argusConfig)
	if err != nil {
		return nil, err
	}
	hc.watcher = watcher

	return hc, nil
}

// Start begins watching the configuration file for changes.
func (hc *HotConfig) Start() error {
	if hc.watcher.IsRunning() {
		return nil
	}
	return hc.watcher.Start()
}

// Stop stops watching the configuration file.
func (hc *HotConfig) Stop() error {
	return hc.watcher.Stop()
}

// GetConfig returns the last applied configuration (thread-safe).
func (hc *HotConfig) GetConfig() TunableConfig {
	hc.mu.RLock()
	defer hc.mu.RUnlock()
	return hc.config
}

// handleConfigChange is called by Argus when the watched file changes.
func (hc *HotConfig) handleConfigChange(configData map[string]interface{}) {
	hc.mu.Lock()
	oldConfig := hc.config
	newConfig := hc.parseConfig(configData, oldConfig)
	hc.config = newConfig
	hc.mu.Unlock()

	hc.applyChanges(oldConfig, newConfig)

	if hc.OnReload != nil {
		hc.OnReload(oldConfig, newConfig)
	}
}

// parseNonNegativeInt extracts a zero-or-positive integer, used for
// size_limit where zero legitimately means "unbounded".
func parseNonNegativeInt(value interface{}) (int, bool) {
	switch v := value.(type) {
	case int:
		if v >= 0 {
			return v, true
		}
	case float64:
		if v >= 0 {
			return int(v), true
		}
	}
	return 0, false
}

// parseDuration extracts a time.Duration from a string value.
func parseDuration(value interface{}) (time.Duration, bool) {
	if str, ok := value.(string); ok {
		if d, err := time.ParseDuration(str); err == nil {
			return d, true
		}
	}
	return 0, false
}

// parseFloatInRange extracts a float64 within the specified range (min, max].
func parseFloatInRange(value interface{}, min, max float64) (float64, bool) {
	if v, ok := value.(float64); ok {
		if v > min && v <= max {
			return v, true
		}
	}
	return 0, false
}

// parseConfig extracts the four dynamically-reloadable knobs from
// Argus config data, leaving anything absent or malformed at its
// previous value.
func (hc *HotConfig) parseConfig(data map[string]interface{}, previous TunableConfig) TunableConfig {
	config := previous

	cacheSection, ok := data["cache"].(map[string]interface{})
	if !ok {
		if _, hasDefaultExpiration := data["default_expiration"]; hasDefaultExpiration {
			cacheSection = data
		} else {
			return config
		}
	}

	if d, ok := parseDuration(cacheSection["default_expiration"]); ok {
		config.DefaultExpiration = d
	}
	if d, ok := parseDuration(cacheSection["janitor_interval"]); ok {
		config.JanitorInterval = d
	}
	if n, ok := parseNonNegativeInt(cacheSection["size_limit"]); ok {
		config.SizeLimit = n
	}
	if f, ok := parseFloatInRange(cacheSection["reclaim_fraction"], 0, 1); ok {
		config.ReclaimFraction = f
	}

	return config
}

// applyChanges republishes whatever differs between old and new onto
// the running cache.
func (hc *HotConfig) applyChanges(old, new TunableConfig) {
	if new.DefaultExpiration != old.DefaultExpiration {
		hc.cache.SetDefaultExpiration(new.DefaultExpiration)
	}
	if new.JanitorInterval != old.JanitorInterval {
		hc.cache.SetJanitorInterval(new.JanitorInterval)
	}
	if new.SizeLimit != old.SizeLimit {
		hc.cache.SetSizeLimit(new.SizeLimit)
	}
	if new.ReclaimFraction != old.ReclaimFraction {
		hc.cache.SetReclaimFraction(new.ReclaimFraction)
	}
}
