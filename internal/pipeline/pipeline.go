// Package pipeline classifies bird sound clips.
//
// A Pipeline turns one audio clip into a species prediction: it loads the
// label map, decodes the clip, extracts the mean MFCC vector, runs the
// classifier, picks the most probable class and resolves an illustration
// for it. Label maps and models are loaded lazily and shared across calls
// unless artifact caching is disabled.
package pipeline

import (
	"context"
	"fmt"
	"strings"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/afero"

	"github.com/tphakala/birdsound-go/internal/errors"
	"github.com/tphakala/birdsound-go/internal/features"
	"github.com/tphakala/birdsound-go/internal/imageprovider"
	"github.com/tphakala/birdsound-go/internal/labels"
	"github.com/tphakala/birdsound-go/internal/logger"
	"github.com/tphakala/birdsound-go/internal/model"
	"github.com/tphakala/birdsound-go/internal/myaudio"
	"github.com/tphakala/birdsound-go/internal/species"
)

// Config holds the artifact locations and extraction parameters. It is
// resolved once at startup and never changes for the life of a Pipeline.
type Config struct {
	LabelsPath     string
	Model          model.Config
	Features       features.Config
	CacheArtifacts bool
}

// ModelOpener loads a classifier. model.Open is the default.
type ModelOpener func(model.Config) (model.Classifier, error)

// Option configures a Pipeline.
type Option func(*Pipeline)

// WithFS sets the filesystem used for label maps and clip paths.
func WithFS(fsys afero.Fs) Option {
	return func(p *Pipeline) { p.fs = fsys }
}

// WithCatalog sets the species catalog used to name predictions.
func WithCatalog(c *species.Catalog) Option {
	return func(p *Pipeline) { p.catalog = c }
}

// WithImages enables illustration lookup.
func WithImages(images imageprovider.ImageProvider) Option {
	return func(p *Pipeline) { p.images = images }
}

// WithRecorder sets the metrics sink.
func WithRecorder(r Recorder) Option {
	return func(p *Pipeline) {
		if r != nil {
			p.recorder = r
		}
	}
}

// WithPublisher forwards every successful result to pub.
func WithPublisher(pub Publisher) Option {
	return func(p *Pipeline) { p.publisher = pub }
}

// WithModelOpener replaces the classifier loader.
func WithModelOpener(open ModelOpener) Option {
	return func(p *Pipeline) {
		if open != nil {
			p.openModel = open
		}
	}
}

// Pipeline is safe for concurrent use.
type Pipeline struct {
	cfg       Config
	fs        afero.Fs
	extractor *features.Extractor
	catalog   *species.Catalog
	images    imageprovider.ImageProvider
	recorder  Recorder
	publisher Publisher
	openModel ModelOpener
	artifacts *artifactCache
	closed    atomic.Bool
}

// GetLogger returns the pipeline logger.
func GetLogger() logger.Logger {
	return logger.Global().Module("pipeline")
}

// New validates cfg and builds a Pipeline. No artifact is loaded until the
// first classification.
func New(cfg Config, opts ...Option) (*Pipeline, error) {
	if strings.TrimSpace(cfg.LabelsPath) == "" {
		return nil, errors.Newf("label map path is empty").
			Component("pipeline").
			Category(errors.CategoryConfiguration).
			Build()
	}

	extractor, err := features.NewExtractor(cfg.Features)
	if err != nil {
		return nil, err
	}

	p := &Pipeline{
		cfg:       cfg,
		fs:        afero.NewOsFs(),
		extractor: extractor,
		recorder:  noopRecorder{},
		openModel: model.Open,
		artifacts: newArtifactCache(),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p, nil
}

// Config returns the pipeline configuration.
func (p *Pipeline) Config() Config {
	return p.cfg
}

// Classify predicts the species in clip. Every failure aborts the call and
// carries an errors.Kind; a missing illustration does not.
func (p *Pipeline) Classify(ctx context.Context, clip Clip) (*Result, error) {
	if p.closed.Load() {
		return nil, errors.WithKind(fmt.Errorf("pipeline is closed"), errors.KindModelUnavailable).
			Component("pipeline").
			Build()
	}

	requestID := logger.TraceIDFromContext(ctx)
	if requestID == "" {
		requestID = uuid.NewString()
		ctx = logger.WithTraceID(ctx, requestID)
	}
	log := GetLogger().WithContext(ctx)
	start := time.Now()

	// 1. label map
	stageStart := time.Now()
	set, err := p.labelSet()
	if err != nil {
		return nil, p.fail(log, StageLabels, err)
	}
	labelMap := set.labels
	p.recorder.ObserveStage(StageLabels, time.Since(stageStart))

	// 2. decode and extract
	stageStart = time.Now()
	wf, err := p.decode(clip)
	if err != nil {
		return nil, p.fail(log, StageDecode, err)
	}
	p.recorder.ObserveStage(StageDecode, time.Since(stageStart))

	stageStart = time.Now()
	vector, err := p.extractor.Extract(ctx, wf)
	if err != nil {
		return nil, p.fail(log, StageFeatures, err)
	}
	p.recorder.ObserveStage(StageFeatures, time.Since(stageStart))

	// 3. model and inference
	stageStart = time.Now()
	classifier, release, err := p.classifier()
	if err != nil {
		return nil, p.fail(log, StageModelLoad, err)
	}
	defer release()
	p.recorder.ObserveStage(StageModelLoad, time.Since(stageStart))

	if err := ctx.Err(); err != nil {
		return nil, p.fail(log, StageInference, canceled(err))
	}

	stageStart = time.Now()
	probs, err := classifier.Predict(ctx, vector)
	if err != nil {
		return nil, p.fail(log, StageInference, p.inferenceError(err, classifier.Backend()))
	}
	if err := model.ValidateOutput(probs); err != nil {
		return nil, p.fail(log, StageInference, errors.WithKind(err, errors.KindModelUnavailable).
			Component("pipeline").
			ModelContext(p.cfg.Model.Path, classifier.Backend()).
			Build())
	}
	p.recorder.ObserveStage(StageInference, time.Since(stageStart))

	// 4-6. argmax, label, confidence
	index, best := Argmax(probs)
	label, err := labelMap.Lookup(index)
	if err != nil {
		return nil, p.fail(log, StageInference, err)
	}
	if len(probs) != labelMap.Len() {
		log.Debug("model output and label map sizes differ",
			logger.Int("outputs", len(probs)),
			logger.Int("labels", labelMap.Len()))
	}

	sp := set.registry.Resolve(label)
	result := &Result{
		RequestID:   requestID,
		SpeciesName: label,
		SpeciesID:   sp.ID,
		DisplayName: sp.DisplayName,
		ClassIndex:  index,
		Confidence:  ConfidencePercent(best),
	}

	// 7. illustration, never fatal
	stageStart = time.Now()
	result.Illustration = p.illustration(log, sp)
	p.recorder.ObserveStage(StageIllustration, time.Since(stageStart))

	p.recorder.ObserveStage(StageTotal, time.Since(start))
	p.recorder.RecordResult(sp.ID.String(), result.Confidence)

	log.Info("clip classified",
		logger.String("species", label),
		logger.Int("class_index", index),
		logger.Float64("confidence", result.Confidence),
		logger.Bool("illustration", result.HasIllustration()),
		logger.Duration("elapsed", time.Since(start)))

	if p.publisher != nil {
		if err := p.publisher.Publish(ctx, *result); err != nil {
			log.Warn("failed to publish result", logger.Error(err))
		}
	}

	return result, nil
}

// ClassifyFile classifies the clip at path on the pipeline filesystem.
func (p *Pipeline) ClassifyFile(ctx context.Context, path string) (*Result, error) {
	return p.Classify(ctx, Clip{Name: path, Path: path})
}

// Registry returns the species of every class, with unique ids.
func (p *Pipeline) Registry() (*species.Registry, error) {
	set, err := p.labelSet()
	if err != nil {
		return nil, err
	}
	return set.registry, nil
}

// Close releases cached classifiers. Classify fails after Close.
func (p *Pipeline) Close() error {
	if !p.closed.CompareAndSwap(false, true) {
		return nil
	}
	return p.artifacts.closeAll()
}

// labelSet is a label map together with the species resolved for it.
type labelSet struct {
	labels   *labels.LabelMap
	registry *species.Registry
}

func (p *Pipeline) labelSet() (*labelSet, error) {
	load := func() (any, error) {
		start := time.Now()
		m, err := labels.Load(p.fs, p.cfg.LabelsPath)
		if err != nil {
			return nil, err
		}
		p.recorder.RecordArtifactLoad(ArtifactLabels, time.Since(start))
		return &labelSet{labels: m, registry: species.NewRegistry(m.Entries(), p.catalog)}, nil
	}

	if !p.cfg.CacheArtifacts {
		v, err := load()
		if err != nil {
			return nil, err
		}
		return v.(*labelSet), nil
	}

	v, _, err := p.artifacts.getOrLoad("labels:"+p.cfg.LabelsPath, load)
	if err != nil {
		return nil, err
	}
	return v.(*labelSet), nil
}

// classifier returns a model and a release func. Uncached models are closed on release.
func (p *Pipeline) classifier() (model.Classifier, func(), error) {
	load := func() (any, error) {
		start := time.Now()
		c, err := p.openModel(p.cfg.Model)
		if err != nil {
			return nil, err
		}
		p.recorder.RecordArtifactLoad(ArtifactModel, time.Since(start))
		return c, nil
	}

	if !p.cfg.CacheArtifacts {
		v, err := load()
		if err != nil {
			return nil, nil, err
		}
		c := v.(model.Classifier)
		return c, func() {
			if err := c.Close(); err != nil {
				GetLogger().Warn("failed to close classifier", logger.Error(err))
			}
		}, nil
	}

	key := "model:" + strings.ToLower(p.cfg.Model.Backend) + ":" + p.cfg.Model.Path
	v, _, err := p.artifacts.getOrLoad(key, load)
	if err != nil {
		return nil, nil, err
	}
	return v.(model.Classifier), func() {}, nil
}

func (p *Pipeline) decode(clip Clip) (*myaudio.Waveform, error) {
	opts := myaudio.DecodeOptions{
		TargetRate: p.cfg.Features.SampleRate,
		NameHint:   clip.Name,
	}
	if clip.Data != nil {
		return myaudio.DecodeBytes(clip.Data, opts)
	}
	if clip.Path == "" {
		return nil, errors.WithKind(fmt.Errorf("clip has neither data nor path"), errors.KindEmptySignal).
			Component("pipeline").
			Build()
	}
	if opts.NameHint == "" {
		opts.NameHint = clip.Path
	}
	return myaudio.DecodeFile(p.fs, clip.Path, opts)
}

func (p *Pipeline) illustration(log logger.Logger, sp species.Species) *imageprovider.Illustration {
	if p.images == nil {
		return nil
	}
	ill, err := p.images.Fetch(sp)
	switch {
	case err == nil:
		return &ill
	case errors.Is(err, imageprovider.ErrImageNotFound):
		log.Debug("no illustration for species", logger.String("species", sp.Label))
	default:
		log.Warn("illustration lookup failed",
			logger.String("species", sp.Label),
			logger.Error(err))
	}
	return nil
}

func (p *Pipeline) fail(log logger.Logger, stage string, err error) error {
	kind := errors.KindOf(err)
	p.recorder.RecordError(stage, kind)
	log.Debug("classification failed",
		logger.String("stage", stage),
		logger.String("kind", string(kind)),
		logger.Error(err))
	return err
}

// inferenceError tags a kindless Predict failure as ModelUnavailable.
// Cancellation stays kindless.
func (p *Pipeline) inferenceError(err error, backend string) error {
	switch {
	case errors.IsCategory(err, errors.CategoryCancellation):
		return err
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return canceled(err)
	case errors.KindOf(err) != "":
		return err
	}
	return errors.WithKind(fmt.Errorf("inference failed: %w", err), errors.KindModelUnavailable).
		Component("pipeline").
		Category(errors.CategoryInference).
		ModelContext(p.cfg.Model.Path, backend).
		Build()
}

func canceled(err error) error {
	return errors.New(err).
		Component("pipeline").
		Category(errors.CategoryCancellation).
		Build()
}
