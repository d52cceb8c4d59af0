package pipeline

import (
	"context"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/go-audio/audio"
	"github.com/go-audio/wav"
	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/tphakala/birdsound-go/internal/errors"
	"github.com/tphakala/birdsound-go/internal/features"
	"github.com/tphakala/birdsound-go/internal/imageprovider"
	"github.com/tphakala/birdsound-go/internal/logger"
	"github.com/tphakala/birdsound-go/internal/model"
	"github.com/tphakala/birdsound-go/internal/species"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

const guanLabels = `{"0": "Andean Guan_sound", "1": "Baudo Guan_sound"}`

// fakeClassifier returns fixed probabilities and counts its lifecycle.
type fakeClassifier struct {
	probs  []float32
	err    error
	calls  atomic.Int64
	closed atomic.Bool
	inputs [][]float32
	mu     sync.Mutex
}

func (f *fakeClassifier) Predict(_ context.Context, features []float32) ([]float32, error) {
	f.calls.Add(1)
	f.mu.Lock()
	f.inputs = append(f.inputs, append([]float32(nil), features...))
	f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	return append([]float32(nil), f.probs...), nil
}

func (f *fakeClassifier) InputSize() int  { return 40 }
func (f *fakeClassifier) OutputSize() int { return len(f.probs) }
func (f *fakeClassifier) Backend() string { return "fake" }
func (f *fakeClassifier) Close() error {
	f.closed.Store(true)
	return nil
}

// countingOpener hands out the same classifier and counts loads.
type countingOpener struct {
	classifier *fakeClassifier
	loads      atomic.Int64
	delay      time.Duration
}

func (o *countingOpener) open(model.Config) (model.Classifier, error) {
	o.loads.Add(1)
	if o.delay > 0 {
		time.Sleep(o.delay)
	}
	return o.classifier, nil
}

type recordingRecorder struct {
	mu      sync.Mutex
	stages  map[string]int
	errs    map[string]errors.Kind
	results int
	loads   map[string]int
}

func newRecordingRecorder() *recordingRecorder {
	return &recordingRecorder{
		stages: map[string]int{},
		errs:   map[string]errors.Kind{},
		loads:  map[string]int{},
	}
}

func (r *recordingRecorder) ObserveStage(stage string, _ time.Duration) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.stages[stage]++
}

func (r *recordingRecorder) RecordResult(string, float64) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.results++
}

func (r *recordingRecorder) RecordError(stage string, kind errors.Kind) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.errs[stage] = kind
}

func (r *recordingRecorder) RecordArtifactLoad(artifact string, _ time.Duration) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.loads[artifact]++
}

type failingPublisher struct {
	calls atomic.Int64
}

func (p *failingPublisher) Publish(context.Context, Result) error {
	p.calls.Add(1)
	return errors.NewStd("broker unreachable")
}

// toneWAV returns a one second 16-bit mono WAV clip.
func toneWAV(t *testing.T, freq float64) []byte {
	t.Helper()

	const rate = 22050
	ints := make([]int, rate)
	for i := range ints {
		ints[i] = int(math.Round(0.5 * 32767 * math.Sin(2*math.Pi*freq*float64(i)/rate)))
	}

	path := filepath.Join(t.TempDir(), "clip.wav")
	f, err := os.Create(path)
	require.NoError(t, err)
	enc := wav.NewEncoder(f, rate, 16, 1, 1)
	require.NoError(t, enc.Write(&audio.IntBuffer{
		Data:           ints,
		Format:         &audio.Format{NumChannels: 1, SampleRate: rate},
		SourceBitDepth: 16,
	}))
	require.NoError(t, enc.Close())
	require.NoError(t, f.Close())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	return data
}

func testFS(t *testing.T, labelJSON string) afero.Fs {
	t.Helper()
	fsys := afero.NewMemMapFs()
	require.NoError(t, afero.WriteFile(fsys, "labels.json", []byte(labelJSON), 0o644))
	return fsys
}

func testConfig() Config {
	return Config{
		LabelsPath:     "labels.json",
		Model:          model.Config{Path: "model.tflite", Backend: model.BackendTFLite},
		Features:       features.DefaultConfig(),
		CacheArtifacts: true,
	}
}

func newTestPipeline(t *testing.T, probs []float32, opts ...Option) (*Pipeline, *countingOpener) {
	t.Helper()
	opener := &countingOpener{classifier: &fakeClassifier{probs: probs}}
	opts = append([]Option{
		WithFS(testFS(t, guanLabels)),
		WithModelOpener(opener.open),
	}, opts...)
	p, err := New(testConfig(), opts...)
	require.NoError(t, err)
	t.Cleanup(func() { _ = p.Close() })
	return p, opener
}

func TestClassifyAndeanGuan(t *testing.T) {
	t.Parallel()

	fsys := testFS(t, guanLabels)
	require.NoError(t, afero.WriteFile(fsys, "images/Andean Guan_sound.jpg", []byte("jpeg"), 0o644))
	images := imageprovider.NewDirectoryProvider(fsys, "images", nil)
	recorder := newRecordingRecorder()

	p, _ := newTestPipeline(t, []float32{0.92, 0.08},
		WithFS(fsys), WithImages(images), WithRecorder(recorder))

	res, err := p.Classify(t.Context(), Clip{Name: "guan.wav", Data: toneWAV(t, 1000)})
	require.NoError(t, err)

	assert.Equal(t, "Andean Guan_sound", res.SpeciesName)
	assert.Equal(t, species.ID("andean-guan"), res.SpeciesID)
	assert.Equal(t, "Andean Guan", res.DisplayName)
	assert.Equal(t, 0, res.ClassIndex)
	assert.InDelta(t, 92.0, res.Confidence, 1e-9)
	assert.NotEmpty(t, res.RequestID)
	require.True(t, res.HasIllustration())
	assert.Equal(t, "Andean Guan_sound.jpg", res.Illustration.FileName)

	assert.Equal(t, 1, recorder.results)
	for _, stage := range []string{StageLabels, StageDecode, StageFeatures, StageModelLoad, StageInference, StageIllustration, StageTotal} {
		assert.Equal(t, 1, recorder.stages[stage], stage)
	}
	assert.Empty(t, recorder.errs)
}

func TestClassifyFeedsModelFortyCoefficients(t *testing.T) {
	t.Parallel()

	p, opener := newTestPipeline(t, []float32{0.5, 0.5})
	_, err := p.Classify(t.Context(), Clip{Data: toneWAV(t, 440)})
	require.NoError(t, err)

	require.Len(t, opener.classifier.inputs, 1)
	assert.Len(t, opener.classifier.inputs[0], 40)
}

func TestClassifySelection(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name       string
		labels     string
		probs      []float32
		wantLabel  string
		wantIndex  int
		confidence float64
		wantKind   errors.Kind
	}{
		{
			name:       "first maximum wins on ties",
			labels:     `{"0": "Andean Guan_sound", "1": "Baudo Guan_sound", "2": "Cauca Guan_sound"}`,
			probs:      []float32{0.4, 0.4, 0.2},
			wantLabel:  "Andean Guan_sound",
			wantIndex:  0,
			confidence: 40,
		},
		{
			name:       "later maximum",
			labels:     `{"0": "Andean Guan_sound", "1": "Baudo Guan_sound", "2": "Cauca Guan_sound"}`,
			probs:      []float32{0.1, 0.2, 0.7},
			wantLabel:  "Cauca Guan_sound",
			wantIndex:  2,
			confidence: 70,
		},
		{
			name:       "confidence rounds to two decimals",
			labels:     guanLabels,
			probs:      []float32{0.123456, 0.876544},
			wantLabel:  "Baudo Guan_sound",
			wantIndex:  1,
			confidence: 87.65,
		},
		{
			name:     "index beyond label map",
			labels:   `{"0": "Andean Guan_sound"}`,
			probs:    []float32{0.1, 0.9},
			wantKind: errors.KindUnknownClassIndex,
		},
		{
			name:     "sparse label map gap",
			labels:   `{"0": "Andean Guan_sound", "2": "Cauca Guan_sound"}`,
			probs:    []float32{0.2, 0.6, 0.2},
			wantKind: errors.KindUnknownClassIndex,
		},
		{
			name:     "output outside unit interval",
			labels:   guanLabels,
			probs:    []float32{1.5, 0.1},
			wantKind: errors.KindModelUnavailable,
		},
		{
			name:     "empty output",
			labels:   guanLabels,
			probs:    []float32{},
			wantKind: errors.KindModelUnavailable,
		},
	}

	wavData := toneWAV(t, 2000)

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			opener := &countingOpener{classifier: &fakeClassifier{probs: tt.probs}}
			p, err := New(testConfig(), WithFS(testFS(t, tt.labels)), WithModelOpener(opener.open))
			require.NoError(t, err)
			defer func() { _ = p.Close() }()

			res, err := p.Classify(t.Context(), Clip{Data: wavData})
			if tt.wantKind != "" {
				require.Error(t, err)
				assert.Nil(t, res, "no partial result")
				assert.Equal(t, tt.wantKind, errors.KindOf(err))
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantLabel, res.SpeciesName)
			assert.Equal(t, tt.wantIndex, res.ClassIndex)
			assert.InDelta(t, tt.confidence, res.Confidence, 1e-9)
		})
	}
}

func TestClassifyDeterministic(t *testing.T) {
	t.Parallel()

	p, opener := newTestPipeline(t, []float32{0.3, 0.7})
	data := toneWAV(t, 3000)

	first, err := p.Classify(t.Context(), Clip{Data: data})
	require.NoError(t, err)
	second, err := p.Classify(t.Context(), Clip{Data: data})
	require.NoError(t, err)

	assert.Equal(t, first.SpeciesName, second.SpeciesName)
	assert.Equal(t, first.Confidence, second.Confidence)
	assert.NotEqual(t, first.RequestID, second.RequestID)
	require.Len(t, opener.classifier.inputs, 2)
	assert.Equal(t, opener.classifier.inputs[0], opener.classifier.inputs[1], "identical clips give identical features")
}

func TestClassifyMissingIllustration(t *testing.T) {
	t.Parallel()

	fsys := testFS(t, guanLabels)
	images := imageprovider.NewDirectoryProvider(fsys, "images", nil)

	p, _ := newTestPipeline(t, []float32{0.92, 0.08}, WithFS(fsys), WithImages(images))
	res, err := p.Classify(t.Context(), Clip{Data: toneWAV(t, 1000)})
	require.NoError(t, err)
	assert.Equal(t, "Andean Guan_sound", res.SpeciesName)
	assert.False(t, res.HasIllustration())
}

func TestClassifyUsesCatalog(t *testing.T) {
	t.Parallel()

	catalog, err := species.NewCatalog([]species.CatalogEntry{
		{Label: "Andean Guan_sound", ID: "penelope-montagnii", Name: "Andean Guan (Penelope montagnii)"},
	})
	require.NoError(t, err)

	p, _ := newTestPipeline(t, []float32{0.92, 0.08}, WithCatalog(catalog))
	res, err := p.Classify(t.Context(), Clip{Data: toneWAV(t, 1000)})
	require.NoError(t, err)
	assert.Equal(t, species.ID("penelope-montagnii"), res.SpeciesID)
	assert.Equal(t, "Andean Guan (Penelope montagnii)", res.DisplayName)
	assert.Equal(t, "Andean Guan_sound", res.SpeciesName)
}

func TestClassifyDisambiguatesSpeciesID(t *testing.T) {
	t.Parallel()

	opener := &countingOpener{classifier: &fakeClassifier{probs: []float32{0.1, 0.2, 0.7}}}
	p, err := New(testConfig(),
		WithFS(testFS(t, `{"0": "Andean Guan_sound", "1": "Andean Guan", "2": "ヤマガラ_sound"}`)),
		WithModelOpener(opener.open))
	require.NoError(t, err)
	t.Cleanup(func() { _ = p.Close() })

	res, err := p.Classify(t.Context(), Clip{Data: toneWAV(t, 1000)})
	require.NoError(t, err)
	assert.Equal(t, "ヤマガラ_sound", res.SpeciesName)
	assert.Equal(t, species.ID("class-2"), res.SpeciesID)

	registry, err := p.Registry()
	require.NoError(t, err)
	class, ok := registry.ByID("andean-guan-1")
	require.True(t, ok)
	assert.Equal(t, "Andean Guan", class.Label)
}

func TestClassifyFailures(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name      string
		setup     func(t *testing.T) (*Pipeline, *countingOpener)
		clip      func(t *testing.T) Clip
		wantKind  errors.Kind
		wantStage string
		noPredict bool
	}{
		{
			name: "undecodable clip",
			setup: func(t *testing.T) (*Pipeline, *countingOpener) {
				return newTestPipeline(t, []float32{1, 0})
			},
			clip:      func(*testing.T) Clip { return Clip{Name: "notes.txt", Data: []byte("definitely not audio")} },
			wantKind:  errors.KindUnsupportedFormat,
			wantStage: StageDecode,
			noPredict: true,
		},
		{
			name: "empty clip",
			setup: func(t *testing.T) (*Pipeline, *countingOpener) {
				return newTestPipeline(t, []float32{1, 0})
			},
			clip:      func(*testing.T) Clip { return Clip{Data: []byte{}} },
			wantKind:  errors.KindEmptySignal,
			wantStage: StageDecode,
			noPredict: true,
		},
		{
			name: "missing label map",
			setup: func(t *testing.T) (*Pipeline, *countingOpener) {
				opener := &countingOpener{classifier: &fakeClassifier{probs: []float32{1}}}
				p, err := New(testConfig(), WithFS(afero.NewMemMapFs()), WithModelOpener(opener.open))
				require.NoError(t, err)
				return p, opener
			},
			clip:      func(t *testing.T) Clip { return Clip{Data: toneWAV(t, 1000)} },
			wantKind:  errors.KindResourceNotFound,
			wantStage: StageLabels,
			noPredict: true,
		},
		{
			name: "malformed label map",
			setup: func(t *testing.T) (*Pipeline, *countingOpener) {
				opener := &countingOpener{classifier: &fakeClassifier{probs: []float32{1}}}
				p, err := New(testConfig(), WithFS(testFS(t, `["Andean Guan_sound"]`)), WithModelOpener(opener.open))
				require.NoError(t, err)
				return p, opener
			},
			clip:      func(t *testing.T) Clip { return Clip{Data: toneWAV(t, 1000)} },
			wantKind:  errors.KindMalformedData,
			wantStage: StageLabels,
			noPredict: true,
		},
		{
			name: "shape mismatch from model",
			setup: func(t *testing.T) (*Pipeline, *countingOpener) {
				return newTestPipelineWithErr(t, errors.WithKind(errors.NewStd("want 128 features"), errors.KindShapeMismatch).Build())
			},
			clip:      func(t *testing.T) Clip { return Clip{Data: toneWAV(t, 1000)} },
			wantKind:  errors.KindShapeMismatch,
			wantStage: StageInference,
		},
		{
			name: "runtime failure from model",
			setup: func(t *testing.T) (*Pipeline, *countingOpener) {
				return newTestPipelineWithErr(t, errors.NewStd("tensor arena exhausted"))
			},
			clip:      func(t *testing.T) Clip { return Clip{Data: toneWAV(t, 1000)} },
			wantKind:  errors.KindModelUnavailable,
			wantStage: StageInference,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			p, opener := tt.setup(t)
			defer func() { _ = p.Close() }()
			recorder := newRecordingRecorder()
			p.recorder = recorder

			res, err := p.Classify(t.Context(), tt.clip(t))
			require.Error(t, err)
			assert.Nil(t, res)
			assert.Equal(t, tt.wantKind, errors.KindOf(err))
			assert.Equal(t, tt.wantKind, recorder.errs[tt.wantStage])
			if tt.noPredict {
				assert.Zero(t, opener.classifier.calls.Load())
			}
		})
	}
}

func newTestPipelineWithErr(t *testing.T, predictErr error) (*Pipeline, *countingOpener) {
	t.Helper()
	opener := &countingOpener{classifier: &fakeClassifier{err: predictErr}}
	p, err := New(testConfig(), WithFS(testFS(t, guanLabels)), WithModelOpener(opener.open))
	require.NoError(t, err)
	return p, opener
}

func TestClassifyMissingModel(t *testing.T) {
	t.Parallel()

	cfg := testConfig()
	cfg.Model.Path = filepath.Join(t.TempDir(), "absent.tflite")
	p, err := New(cfg, WithFS(testFS(t, guanLabels)))
	require.NoError(t, err)
	defer func() { _ = p.Close() }()

	res, err := p.Classify(t.Context(), Clip{Data: toneWAV(t, 1000)})
	require.Error(t, err)
	assert.Nil(t, res)
	assert.Equal(t, errors.KindModelUnavailable, errors.KindOf(err))

	// failures are not cached
	_, err = p.Classify(t.Context(), Clip{Data: toneWAV(t, 1000)})
	assert.Equal(t, errors.KindModelUnavailable, errors.KindOf(err))
	assert.Equal(t, 1, p.artifacts.len(), "only the label map is cached")
}

func TestClassifyConcurrentLoadsOnce(t *testing.T) {
	t.Parallel()

	opener := &countingOpener{classifier: &fakeClassifier{probs: []float32{0.6, 0.4}}, delay: 20 * time.Millisecond}
	recorder := newRecordingRecorder()
	p, err := New(testConfig(), WithFS(testFS(t, guanLabels)), WithModelOpener(opener.open), WithRecorder(recorder))
	require.NoError(t, err)
	defer func() { _ = p.Close() }()

	data := toneWAV(t, 1500)

	var wg sync.WaitGroup
	errs := make(chan error, 8)
	for range 8 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := p.Classify(context.Background(), Clip{Data: data})
			errs <- err
		}()
	}
	wg.Wait()
	close(errs)

	for err := range errs {
		require.NoError(t, err)
	}
	assert.Equal(t, int64(1), opener.loads.Load())
	assert.Equal(t, 1, recorder.loads[ArtifactModel])
	assert.Equal(t, 1, recorder.loads[ArtifactLabels])
	assert.Equal(t, int64(8), opener.classifier.calls.Load())
}

func TestClassifyWithoutArtifactCache(t *testing.T) {
	t.Parallel()

	cfg := testConfig()
	cfg.CacheArtifacts = false
	opener := &countingOpener{classifier: &fakeClassifier{probs: []float32{0.6, 0.4}}}
	p, err := New(cfg, WithFS(testFS(t, guanLabels)), WithModelOpener(opener.open))
	require.NoError(t, err)
	defer func() { _ = p.Close() }()

	data := toneWAV(t, 1500)
	for range 3 {
		_, err := p.Classify(t.Context(), Clip{Data: data})
		require.NoError(t, err)
	}
	assert.Equal(t, int64(3), opener.loads.Load())
	assert.True(t, opener.classifier.closed.Load(), "per-call models are closed")
	assert.Zero(t, p.artifacts.len())
}

func TestClassifyPublisherFailureIsNotFatal(t *testing.T) {
	t.Parallel()

	pub := &failingPublisher{}
	p, _ := newTestPipeline(t, []float32{0.92, 0.08}, WithPublisher(pub))

	res, err := p.Classify(t.Context(), Clip{Data: toneWAV(t, 1000)})
	require.NoError(t, err)
	assert.Equal(t, "Andean Guan_sound", res.SpeciesName)
	assert.Equal(t, int64(1), pub.calls.Load())
}

func TestClassifyKeepsTraceID(t *testing.T) {
	t.Parallel()

	p, _ := newTestPipeline(t, []float32{0.92, 0.08})
	ctx := logger.WithTraceID(t.Context(), "req-42")

	res, err := p.Classify(ctx, Clip{Data: toneWAV(t, 1000)})
	require.NoError(t, err)
	assert.Equal(t, "req-42", res.RequestID)
}

func TestClassifyFile(t *testing.T) {
	t.Parallel()

	fsys := testFS(t, guanLabels)
	require.NoError(t, afero.WriteFile(fsys, "clips/guan.wav", toneWAV(t, 1000), 0o644))
	p, _ := newTestPipeline(t, []float32{0.92, 0.08}, WithFS(fsys))

	res, err := p.ClassifyFile(t.Context(), "clips/guan.wav")
	require.NoError(t, err)
	assert.Equal(t, "Andean Guan_sound", res.SpeciesName)

	_, err = p.ClassifyFile(t.Context(), "clips/missing.wav")
	assert.Equal(t, errors.KindResourceNotFound, errors.KindOf(err))
}

func TestClassifyCanceled(t *testing.T) {
	t.Parallel()

	p, opener := newTestPipeline(t, []float32{0.92, 0.08})
	ctx, cancel := context.WithCancel(t.Context())
	cancel()

	_, err := p.Classify(ctx, Clip{Data: toneWAV(t, 1000)})
	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Zero(t, opener.classifier.calls.Load())
}

func TestClassifyCanceledDuringPredict(t *testing.T) {
	t.Parallel()

	p, _ := newTestPipelineWithErr(t, fmt.Errorf("invoke interrupted: %w", context.DeadlineExceeded))
	defer func() { _ = p.Close() }()

	_, err := p.Classify(t.Context(), Clip{Data: toneWAV(t, 1000)})
	require.Error(t, err)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.True(t, errors.IsCategory(err, errors.CategoryCancellation))
	assert.Empty(t, errors.KindOf(err))
}

func TestCloseReleasesClassifier(t *testing.T) {
	t.Parallel()

	p, opener := newTestPipeline(t, []float32{0.92, 0.08})
	_, err := p.Classify(t.Context(), Clip{Data: toneWAV(t, 1000)})
	require.NoError(t, err)

	require.NoError(t, p.Close())
	assert.True(t, opener.classifier.closed.Load())
	require.NoError(t, p.Close(), "close is idempotent")

	_, err = p.Classify(t.Context(), Clip{Data: toneWAV(t, 1000)})
	assert.Equal(t, errors.KindModelUnavailable, errors.KindOf(err))
}

func TestNewRejectsInvalidConfig(t *testing.T) {
	t.Parallel()

	cfg := testConfig()
	cfg.LabelsPath = " "
	_, err := New(cfg)
	require.Error(t, err)
	assert.True(t, errors.IsCategory(err, errors.CategoryConfiguration))

	cfg = testConfig()
	cfg.Features.HopLength = 0
	_, err = New(cfg)
	require.Error(t, err)
}

func TestArgmax(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name      string
		probs     []float32
		wantIndex int
		wantValue float32
	}{
		{"empty", nil, -1, 0},
		{"single", []float32{0.3}, 0, 0.3},
		{"tie picks first", []float32{0.4, 0.4, 0.2}, 0, 0.4},
		{"all equal", []float32{0.25, 0.25, 0.25, 0.25}, 0, 0.25},
		{"last", []float32{0.1, 0.2, 0.7}, 2, 0.7},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			idx, val := Argmax(tt.probs)
			assert.Equal(t, tt.wantIndex, idx)
			assert.InDelta(t, tt.wantValue, val, 1e-9)
		})
	}
}

func TestConfidencePercent(t *testing.T) {
	t.Parallel()

	tests := []struct {
		p    float32
		want float64
	}{
		{0, 0},
		{1, 100},
		{0.92, 92},
		{0.5, 50},
		{0.123456, 12.35},
		{0.99999, 100},
		{0.00004, 0},
	}

	for _, tt := range tests {
		got := ConfidencePercent(tt.p)
		assert.InDelta(t, tt.want, got, 1e-9, "p=%v", tt.p)
		assert.GreaterOrEqual(t, got, 0.0)
		assert.LessOrEqual(t, got, 100.0)
	}
}
