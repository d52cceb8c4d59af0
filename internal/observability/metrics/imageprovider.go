package metrics

import (
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
)

// ImageProviderMetrics contains Prometheus metrics for illustration lookups.
// It implements imageprovider.CacheMetrics.
type ImageProviderMetrics struct {
	CacheHits   prometheus.Counter
	CacheMisses prometheus.Counter
	Served      prometheus.Counter
	ServedBytes prometheus.Counter
	registry    *prometheus.Registry
}

// NewImageProviderMetrics creates a new instance of ImageProviderMetrics.
// It requires a Prometheus registry to register the metrics.
// It returns an error if metric registration fails.
func NewImageProviderMetrics(registry *prometheus.Registry) (*ImageProviderMetrics, error) {
	m := &ImageProviderMetrics{registry: registry}
	m.initMetrics()
	if err := registry.Register(m); err != nil {
		return nil, fmt.Errorf("failed to register ImageProvider metrics: %w", err)
	}
	return m, nil
}

func (m *ImageProviderMetrics) initMetrics() {
	m.CacheHits = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "image_provider_cache_hits_total",
		Help: "Total number of illustration cache hits.",
	})

	m.CacheMisses = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "image_provider_cache_misses_total",
		Help: "Total number of illustration cache misses.",
	})

	m.Served = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "image_provider_served_total",
		Help: "Total number of illustrations served over HTTP.",
	})

	m.ServedBytes = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "image_provider_served_bytes_total",
		Help: "Total bytes of illustrations served over HTTP.",
	})
}

// IncrementCacheHits increases the cache hit counter by one.
func (m *ImageProviderMetrics) IncrementCacheHits() {
	m.CacheHits.Inc()
}

// IncrementCacheMisses increases the cache miss counter by one.
func (m *ImageProviderMetrics) IncrementCacheMisses() {
	m.CacheMisses.Inc()
}

// RecordServed counts an illustration written to a client.
func (m *ImageProviderMetrics) RecordServed(sizeBytes int64) {
	m.Served.Inc()
	m.ServedBytes.Add(float64(sizeBytes))
}

// Collect implements the prometheus.Collector interface.
func (m *ImageProviderMetrics) Collect(ch chan<- prometheus.Metric) {
	ch <- m.CacheHits
	ch <- m.CacheMisses
	ch <- m.Served
	ch <- m.ServedBytes
}

// Describe implements the prometheus.Collector interface.
func (m *ImageProviderMetrics) Describe(ch chan<- *prometheus.Desc) {
	ch <- m.CacheHits.Desc()
	ch <- m.CacheMisses.Desc()
	ch <- m.Served.Desc()
	ch <- m.ServedBytes.Desc()
}
