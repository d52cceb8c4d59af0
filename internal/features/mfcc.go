package features

import (
	"context"
	"fmt"
	"math"
	"time"

	"gonum.org/v1/gonum/dsp/fourier"

	"github.com/tphakala/birdsound-go/internal/errors"
	"github.com/tphakala/birdsound-go/internal/logger"
	"github.com/tphakala/birdsound-go/internal/myaudio"
)

const (
	// amin is the power floor before the log
	amin = 1e-10
	// ctxCheckFrames is how many frames are processed between cancellation checks
	ctxCheckFrames = 256
)

// Extractor computes mean MFCC vectors. It is immutable and safe for
// concurrent use; FFT plans are allocated per call.
type Extractor struct {
	cfg     Config
	window  []float64
	filters []melFilter
	dct     [][]float64 // [coefficient][mel band]
}

// NewExtractor validates cfg and precomputes the window, filterbank and DCT basis.
func NewExtractor(cfg Config) (*Extractor, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &Extractor{
		cfg:     cfg,
		window:  periodicHann(cfg.FFTSize),
		filters: melFilterbank(cfg.SampleRate, cfg.FFTSize, cfg.MelBands, cfg.FMin, cfg.fmax()),
		dct:     dctBasis(cfg.NumCoefficients, cfg.MelBands),
	}, nil
}

// Config returns the extraction parameters.
func (e *Extractor) Config() Config {
	return e.cfg
}

// Dim returns the feature vector length.
func (e *Extractor) Dim() int {
	return e.cfg.NumCoefficients
}

// Extract returns the per-coefficient mean MFCC of wf. A waveform at another
// rate is resampled first. Zero samples or non-finite samples fail with
// KindEmptySignal.
func (e *Extractor) Extract(ctx context.Context, wf *myaudio.Waveform) ([]float32, error) {
	start := time.Now()

	if wf == nil || len(wf.Samples) == 0 {
		return nil, emptySignal(fmt.Errorf("waveform has no samples"), 0)
	}
	for i, s := range wf.Samples {
		if math.IsNaN(float64(s)) || math.IsInf(float64(s), 0) {
			return nil, emptySignal(fmt.Errorf("sample %d is not finite", i), len(wf.Samples))
		}
	}

	samples := wf.Samples
	if wf.SampleRate != e.cfg.SampleRate {
		var err error
		samples, err = myaudio.ResampleAudio(samples, wf.SampleRate, e.cfg.SampleRate)
		if err != nil {
			return nil, errors.WithKind(err, errors.KindUnsupportedFormat).
				Component("features").
				Context("source_rate", wf.SampleRate).
				Build()
		}
		if len(samples) == 0 {
			return nil, emptySignal(fmt.Errorf("clip too short after resampling"), len(wf.Samples))
		}
	}

	melDB, err := e.logMelSpectrogram(ctx, samples)
	if err != nil {
		return nil, err
	}

	coeffs := e.meanCepstrum(melDB)

	GetLogger().Debug("features extracted",
		logger.Int("samples", len(samples)),
		logger.Int("frames", len(melDB)),
		logger.Int("coefficients", len(coeffs)),
		logger.Duration("elapsed", time.Since(start)))

	return coeffs, nil
}

// logMelSpectrogram returns power_to_db(mel power) per frame, [frame][band].
func (e *Extractor) logMelSpectrogram(ctx context.Context, samples []float32) ([][]float64, error) {
	n := e.cfg.FFTSize
	pad := n / 2
	frames := 1 + len(samples)/e.cfg.HopLength

	fft := fourier.NewFFT(n)
	frame := make([]float64, n)
	coeffs := make([]complex128, n/2+1)
	power := make([]float64, n/2+1)

	melDB := make([][]float64, frames)
	peak := math.Inf(-1)

	for t := range frames {
		if t%ctxCheckFrames == 0 {
			if err := ctx.Err(); err != nil {
				return nil, errors.New(err).
					Component("features").
					Category(errors.CategoryCancellation).
					Context("frame", t).
					Build()
			}
		}

		// frame t covers padded[t*hop : t*hop+n], padded = zeros(pad) + samples + zeros(pad)
		offset := t*e.cfg.HopLength - pad
		for k := range n {
			idx := offset + k
			if idx >= 0 && idx < len(samples) {
				frame[k] = float64(samples[idx]) * e.window[k]
			} else {
				frame[k] = 0
			}
		}

		coeffs = fft.Coefficients(coeffs, frame)
		for k, c := range coeffs {
			re, im := real(c), imag(c)
			power[k] = re*re + im*im
		}

		row := make([]float64, len(e.filters))
		for m, f := range e.filters {
			db := 10 * math.Log10(math.Max(amin, f.apply(power)))
			row[m] = db
			peak = math.Max(peak, db)
		}
		melDB[t] = row
	}

	if e.cfg.TopDB > 0 {
		floor := peak - e.cfg.TopDB
		for _, row := range melDB {
			for m, v := range row {
				if v < floor {
					row[m] = floor
				}
			}
		}
	}

	return melDB, nil
}

// meanCepstrum applies the DCT to every frame and averages over frames.
func (e *Extractor) meanCepstrum(melDB [][]float64) []float32 {
	sums := make([]float64, len(e.dct))
	for _, row := range melDB {
		for k, basis := range e.dct {
			var c float64
			for m, b := range basis {
				c += b * row[m]
			}
			sums[k] += c
		}
	}

	out := make([]float32, len(sums))
	for k, s := range sums {
		out[k] = float32(s / float64(len(melDB)))
	}
	return out
}

// periodicHann is the DFT-even Hann window, 0.5 - 0.5 cos(2πn/N).
func periodicHann(n int) []float64 {
	w := make([]float64, n)
	for i := range w {
		w[i] = 0.5 - 0.5*math.Cos(2*math.Pi*float64(i)/float64(n))
	}
	return w
}

// dctBasis returns the first k rows of the orthonormal DCT-II matrix of size n.
func dctBasis(k, n int) [][]float64 {
	basis := make([][]float64, k)
	for i := range k {
		scale := math.Sqrt(2 / float64(n))
		if i == 0 {
			scale = math.Sqrt(1 / float64(n))
		}
		row := make([]float64, n)
		for j := range n {
			row[j] = scale * math.Cos(math.Pi*float64(i)*(2*float64(j)+1)/(2*float64(n)))
		}
		basis[i] = row
	}
	return basis
}

func emptySignal(err error, samples int) error {
	return errors.WithKind(err, errors.KindEmptySignal).
		Component("features").
		Category(errors.CategoryFeature).
		Context("samples", samples).
		Build()
}
