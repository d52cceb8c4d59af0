package pipeline

import (
	"context"
	"time"

	"github.com/tphakala/birdsound-go/internal/errors"
)

// Stage names reported to a Recorder
const (
	StageLabels       = "labels"
	StageDecode       = "decode"
	StageFeatures     = "features"
	StageModelLoad    = "model_load"
	StageInference    = "inference"
	StageIllustration = "illustration"
	StageTotal        = "total"
)

// Artifact names reported to a Recorder
const (
	ArtifactLabels = "labels"
	ArtifactModel  = "model"
)

// Recorder receives pipeline measurements.
type Recorder interface {
	ObserveStage(stage string, d time.Duration)
	RecordResult(id string, confidence float64)
	RecordError(stage string, kind errors.Kind)
	RecordArtifactLoad(artifact string, d time.Duration)
}

// Publisher forwards successful results, for example to an MQTT broker.
// Publish errors are logged and never fail a classification.
type Publisher interface {
	Publish(ctx context.Context, result Result) error
}

type noopRecorder struct{}

func (noopRecorder) ObserveStage(string, time.Duration)       {}
func (noopRecorder) RecordResult(string, float64)             {}
func (noopRecorder) RecordError(string, errors.Kind)          {}
func (noopRecorder) RecordArtifactLoad(string, time.Duration) {}
