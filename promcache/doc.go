// Package promcache implements warden.MetricsCollector directly on top
// of github.com/prometheus/client_golang, for services that scrape
// Prometheus without an intervening OTEL SDK.
//
//	reg := prometheus.NewRegistry()
//	collector, _ := promcache.New(promcache.WithRegisterer(reg), promcache.WithNamespace("sessions"))
//
//	cache, _ := warden.New[string, string](warden.CacheConfig{
//	    Name:             "sessions",
//	    SizeLimit:        10000,
//	    MetricsCollector: collector,
//	})
//
//	http.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
package promcache
