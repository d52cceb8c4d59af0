package metrics

import (
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// MQTTMetrics tracks delivery of classification results to the broker.
type MQTTMetrics struct {
	Connected      prometheus.Gauge
	Published      prometheus.Counter
	PublishedBytes prometheus.Counter
	Errors         prometheus.Counter
	Reconnects     prometheus.Counter
	PublishLatency prometheus.Histogram
	registry       *prometheus.Registry
}

// NewMQTTMetrics creates and registers the result publishing collectors.
func NewMQTTMetrics(registry *prometheus.Registry) (*MQTTMetrics, error) {
	m := &MQTTMetrics{registry: registry}
	m.initMetrics()
	if err := registry.Register(m); err != nil {
		return nil, fmt.Errorf("failed to register MQTT metrics: %w", err)
	}
	return m, nil
}

func (m *MQTTMetrics) initMetrics() {
	m.Connected = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "birdsound_mqtt_connected",
		Help: "1 while the result publisher holds a broker connection",
	})

	m.Published = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "birdsound_mqtt_results_published_total",
		Help: "Classification results acknowledged by the broker",
	})

	m.PublishedBytes = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "birdsound_mqtt_published_bytes_total",
		Help: "Payload bytes of published classification results",
	})

	m.Errors = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "birdsound_mqtt_errors_total",
		Help: "Failed connects, lost connections and failed publishes",
	})

	m.Reconnects = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "birdsound_mqtt_reconnects_total",
		Help: "Automatic reconnection attempts",
	})

	m.PublishLatency = prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "birdsound_mqtt_publish_duration_seconds",
		Help:    "Time from publish to broker acknowledgement",
		Buckets: prometheus.ExponentialBuckets(BucketStart1ms, BucketFactor2, BucketCount10),
	})
}

// SetConnected records the broker connection state.
func (m *MQTTMetrics) SetConnected(connected bool) {
	if connected {
		m.Connected.Set(1)
		return
	}
	m.Connected.Set(0)
}

// RecordPublished counts one acknowledged result of size bytes.
func (m *MQTTMetrics) RecordPublished(size int, d time.Duration) {
	m.Published.Inc()
	m.PublishedBytes.Add(float64(size))
	m.PublishLatency.Observe(d.Seconds())
}

// RecordError counts a connect or publish failure.
func (m *MQTTMetrics) RecordError() {
	m.Errors.Inc()
}

// RecordReconnect counts an automatic reconnection attempt.
func (m *MQTTMetrics) RecordReconnect() {
	m.Reconnects.Inc()
}

func (m *MQTTMetrics) collectors() []prometheus.Collector {
	return []prometheus.Collector{
		m.Connected, m.Published, m.PublishedBytes, m.Errors, m.Reconnects, m.PublishLatency,
	}
}

// Collect implements the prometheus.Collector interface.
func (m *MQTTMetrics) Collect(ch chan<- prometheus.Metric) {
	for _, c := range m.collectors() {
		c.Collect(ch)
	}
}

// Describe implements the prometheus.Collector interface.
func (m *MQTTMetrics) Describe(ch chan<- *prometheus.Desc) {
	for _, c := range m.collectors() {
		c.Describe(ch)
	}
}
