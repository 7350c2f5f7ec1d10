// Package promcache provides a Prometheus client_golang implementation
// of warden.MetricsCollector, an alternative to package otel for
// deployments that already scrape Prometheus directly rather than
// going through an OTEL SDK.
//
// Copyright (c) 2025 AGILira - A. Giordano
// Series: an AGILira library
// SPDX-License-Identifier: MPL-2.0
package promcache

import (
	"github.com/agilira/warden"
	"github.com/prometheus/client_golang/prometheus"
)

// PromMetricsCollector implements warden.MetricsCollector using
// Prometheus counters and histograms.
//
// Thread-safety: safe for concurrent use; the underlying
// client_golang instruments are themselves safe for concurrent use.
type PromMetricsCollector struct {
	getLatency    prometheus.Histogram
	setLatency    prometheus.Histogram
	deleteLatency prometheus.Histogram
	hits          prometheus.Counter
	misses        prometheus.Counter
	evictions     prometheus.Counter
	expirations   prometheus.Counter
}

// Options configures PromMetricsCollector.
type Options struct {
	// Namespace and Subsystem are passed to every instrument's
	// prometheus.Opts, e.g. "myapp"/"sessions" produces metric names
	// like myapp_sessions_get_latency_seconds.
	Namespace string
	Subsystem string

	// Registerer receives every instrument this collector creates.
	// Defaults to prometheus.DefaultRegisterer.
	Registerer prometheus.Registerer
}

// Option is a functional option for configuring PromMetricsCollector.
type Option func(*Options)

// WithNamespace sets the metric namespace.
func WithNamespace(ns string) Option {
	return func(o *Options) { o.Namespace = ns }
}

// WithSubsystem sets the metric subsystem.
func WithSubsystem(sub string) Option {
	return func(o *Options) { o.Subsystem = sub }
}

// WithRegisterer overrides the Prometheus registry instruments are
// registered against.
func WithRegisterer(reg prometheus.Registerer) Option {
	return func(o *Options) { o.Registerer = reg }
}

// New creates a PromMetricsCollector and registers its instruments.
func New(opts ...Option) (*PromMetricsCollector, error) {
	options := Options{Registerer: prometheus.DefaultRegisterer}
	for _, opt := range opts {
		opt(&options)
	}

	c := &PromMetricsCollector{
		getLatency: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: options.Namespace,
			Subsystem: options.Subsystem,
			Name:      "get_latency_seconds",
			Help:      "Latency of Get/Fetch operations in seconds.",
			Buckets:   prometheus.DefBuckets,
		}),
		setLatency: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: options.Namespace,
			Subsystem: options.Subsystem,
			Name:      "set_latency_seconds",
			Help:      "Latency of Put/Update operations in seconds.",
			Buckets:   prometheus.DefBuckets,
		}),
		deleteLatency: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: options.Namespace,
			Subsystem: options.Subsystem,
			Name:      "delete_latency_seconds",
			Help:      "Latency of Delete/Take operations in seconds.",
			Buckets:   prometheus.DefBuckets,
		}),
		hits: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: options.Namespace,
			Subsystem: options.Subsystem,
			Name:      "hits_total",
			Help:      "Total number of cache hits.",
		}),
		misses: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: options.Namespace,
			Subsystem: options.Subsystem,
			Name:      "misses_total",
			Help:      "Total number of cache misses.",
		}),
		evictions: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: options.Namespace,
			Subsystem: options.Subsystem,
			Name:      "evictions_total",
			Help:      "Total number of size-bound evictions.",
		}),
		expirations: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: options.Namespace,
			Subsystem: options.Subsystem,
			Name:      "expirations_total",
			Help:      "Total number of TTL-based expirations.",
		}),
	}

	for _, coll := range []prometheus.Collector{
		c.getLatency, c.setLatency, c.deleteLatency,
		c.hits, c.misses, c.evictions, c.expirations,
	} {
		if err := options.Registerer.Register(coll); err != nil {
			return nil, err
		}
	}

	return c, nil
}

// RecordGet implements warden.MetricsCollector.
func (c *PromMetricsCollector) RecordGet(latencyNs int64, hit bool) {
	c.getLatency.Observe(float64(latencyNs) / 1e9)
	if hit {
		c.hits.Inc()
	} else {
		c.misses.Inc()
	}
}

// RecordSet implements warden.MetricsCollector.
func (c *PromMetricsCollector) RecordSet(latencyNs int64) {
	c.setLatency.Observe(float64(latencyNs) / 1e9)
}

// RecordDelete implements warden.MetricsCollector.
func (c *PromMetricsCollector) RecordDelete(latencyNs int64) {
	c.deleteLatency.Observe(float64(latencyNs) / 1e9)
}

// RecordEviction implements warden.MetricsCollector.
func (c *PromMetricsCollector) RecordEviction() {
	c.evictions.Inc()
}

// RecordExpiration implements warden.MetricsCollector.
func (c *PromMetricsCollector) RecordExpiration() {
	c.expirations.Inc()
}

var _ warden.MetricsCollector = (*PromMetricsCollector)(nil)
