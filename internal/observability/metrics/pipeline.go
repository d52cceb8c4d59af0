// Package metrics provides Prometheus collectors for the classification pipeline.
package metrics

import (
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/tphakala/birdsound-go/internal/errors"
)

// PipelineMetrics records classification stages, outcomes and artifact loads.
// It implements pipeline.Recorder.
type PipelineMetrics struct {
	StageDuration    *prometheus.HistogramVec
	Classifications  *prometheus.CounterVec
	Predictions      *prometheus.CounterVec
	Confidence       prometheus.Histogram
	Errors           *prometheus.CounterVec
	ArtifactLoads    *prometheus.CounterVec
	ArtifactLoadTime *prometheus.HistogramVec
	registry         *prometheus.Registry
}

// NewPipelineMetrics creates and registers the pipeline collectors.
func NewPipelineMetrics(registry *prometheus.Registry) (*PipelineMetrics, error) {
	m := &PipelineMetrics{registry: registry}
	m.initMetrics()
	if err := registry.Register(m); err != nil {
		return nil, fmt.Errorf("failed to register pipeline metrics: %w", err)
	}
	return m, nil
}

func (m *PipelineMetrics) initMetrics() {
	m.StageDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "birdsound_stage_duration_seconds",
			Help:    "Time spent in each classification stage",
			Buckets: prometheus.ExponentialBuckets(BucketStart1ms, BucketFactor2, BucketCount12),
		},
		[]string{"stage"}, // labels, decode, features, model_load, inference, illustration, total
	)

	m.Classifications = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "birdsound_classifications_total",
			Help: "Total number of classifications by outcome",
		},
		[]string{"status"},
	)

	m.Predictions = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "birdsound_predictions_total",
			Help: "Total number of predictions per species",
		},
		[]string{"species_id"},
	)

	m.Confidence = prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "birdsound_prediction_confidence_percent",
		Help:    "Confidence of returned predictions in percent",
		Buckets: ConfidenceBuckets,
	})

	m.Errors = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "birdsound_errors_total",
			Help: "Total number of failed classifications by stage and error kind",
		},
		[]string{"stage", "kind"},
	)

	m.ArtifactLoads = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "birdsound_artifact_loads_total",
			Help: "Total number of label map and model loads",
		},
		[]string{"artifact"},
	)

	m.ArtifactLoadTime = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "birdsound_artifact_load_duration_seconds",
			Help:    "Time taken to load label maps and models",
			Buckets: prometheus.ExponentialBuckets(BucketStart10ms, BucketFactor2, BucketCount10),
		},
		[]string{"artifact"},
	)
}

// ObserveStage records the duration of one pipeline stage.
func (m *PipelineMetrics) ObserveStage(stage string, d time.Duration) {
	m.StageDuration.WithLabelValues(stage).Observe(d.Seconds())
}

// RecordResult counts a successful classification.
func (m *PipelineMetrics) RecordResult(id string, confidence float64) {
	m.Classifications.WithLabelValues(StatusSuccess).Inc()
	m.Predictions.WithLabelValues(id).Inc()
	m.Confidence.Observe(confidence)
}

// RecordError counts a failed classification.
func (m *PipelineMetrics) RecordError(stage string, kind errors.Kind) {
	label := string(kind)
	if !kind.Valid() {
		label = KindNone
	}
	m.Classifications.WithLabelValues(StatusError).Inc()
	m.Errors.WithLabelValues(stage, label).Inc()
}

// RecordArtifactLoad records a label map or model load.
func (m *PipelineMetrics) RecordArtifactLoad(artifact string, d time.Duration) {
	m.ArtifactLoads.WithLabelValues(artifact).Inc()
	m.ArtifactLoadTime.WithLabelValues(artifact).Observe(d.Seconds())
}

// Collect implements the prometheus.Collector interface.
func (m *PipelineMetrics) Collect(ch chan<- prometheus.Metric) {
	m.StageDuration.Collect(ch)
	m.Classifications.Collect(ch)
	m.Predictions.Collect(ch)
	m.Confidence.Collect(ch)
	m.Errors.Collect(ch)
	m.ArtifactLoads.Collect(ch)
	m.ArtifactLoadTime.Collect(ch)
}

// Describe implements the prometheus.Collector interface.
func (m *PipelineMetrics) Describe(ch chan<- *prometheus.Desc) {
	m.StageDuration.Describe(ch)
	m.Classifications.Describe(ch)
	m.Predictions.Describe(ch)
	m.Confidence.Describe(ch)
	m.Errors.Describe(ch)
	m.ArtifactLoads.Describe(ch)
	m.ArtifactLoadTime.Describe(ch)
}
