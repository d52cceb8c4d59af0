package myaudio

import (
	"bytes"
	"fmt"
	"io"
	"io/fs"
	"math"
	"time"

	"github.com/spf13/afero"

	"github.com/tphakala/birdsound-go/internal/errors"
	"github.com/tphakala/birdsound-go/internal/logger"
)

// Waveform is a decoded mono clip.
type Waveform struct {
	Samples    []float32
	SampleRate int

	// Source properties before downmix and resampling
	SourceFormat   Format
	SourceRate     int
	SourceChannels int
	SourceBitDepth int
}

// Duration returns the clip length.
func (w *Waveform) Duration() time.Duration {
	if w == nil || w.SampleRate <= 0 {
		return 0
	}
	return time.Duration(float64(len(w.Samples)) / float64(w.SampleRate) * float64(time.Second))
}

// pcm is the intermediate result of a container decoder.
type pcm struct {
	samples  []float32 // interleaved, normalized to [-1, 1)
	rate     int
	channels int
	bitDepth int
}

// DecodeOptions controls Decode.
type DecodeOptions struct {
	// TargetRate is the output sample rate. Zero keeps the source rate.
	TargetRate int
	// NameHint is a file name whose extension is consulted when the header
	// does not identify the container.
	NameHint string
}

// Decode reads a complete clip from r.
func Decode(r io.Reader, opts DecodeOptions) (*Waveform, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, errors.New(fmt.Errorf("read audio clip: %w", err)).
			Component("myaudio").
			Category(errors.CategoryFileIO).
			Context("operation", "read_clip").
			Build()
	}
	return DecodeBytes(data, opts)
}

// DecodeFile reads and decodes the clip at path.
func DecodeFile(fsys afero.Fs, path string, opts DecodeOptions) (*Waveform, error) {
	data, err := afero.ReadFile(fsys, path)
	if err != nil {
		kind := errors.KindUnsupportedFormat
		if errors.Is(err, fs.ErrNotExist) {
			kind = errors.KindResourceNotFound
		}
		return nil, errors.WithKind(fmt.Errorf("read audio file: %w", err), kind).
			Component("myaudio").
			FileContext(path, 0).
			Build()
	}
	if opts.NameHint == "" {
		opts.NameHint = path
	}
	return DecodeBytes(data, opts)
}

// DecodeBytes decodes an in-memory clip.
func DecodeBytes(data []byte, opts DecodeOptions) (*Waveform, error) {
	start := time.Now()

	if len(data) == 0 {
		return nil, errors.WithKind(fmt.Errorf("audio clip is empty"), errors.KindEmptySignal).
			Component("myaudio").
			Context("operation", "decode").
			Build()
	}

	format := DetectFormat(data[:min(len(data), sniffLen)])
	if format == FormatUnknown {
		format = FormatFromExtension(opts.NameHint)
	}

	var (
		decoded *pcm
		err     error
	)
	switch format {
	case FormatWAV:
		decoded, err = decodeWAV(bytes.NewReader(data))
	case FormatFLAC:
		decoded, err = decodeFLAC(bytes.NewReader(data), len(data))
	case FormatMP3:
		decoded, err = decodeMP3(bytes.NewReader(data))
	default:
		err = fmt.Errorf("unrecognized audio container")
	}
	if err != nil {
		return nil, errors.WithKind(fmt.Errorf("decode %s audio: %w", formatName(format), err), errors.KindUnsupportedFormat).
			Component("myaudio").
			Context("format", formatName(format)).
			Context("size_bytes", len(data)).
			Build()
	}

	mono := Downmix(decoded.samples, decoded.channels)
	if len(mono) == 0 {
		return nil, errors.WithKind(fmt.Errorf("%s clip contains no samples", formatName(format)), errors.KindEmptySignal).
			Component("myaudio").
			Context("format", formatName(format)).
			Build()
	}

	rate := decoded.rate
	if opts.TargetRate > 0 && opts.TargetRate != rate {
		mono, err = ResampleAudio(mono, rate, opts.TargetRate)
		if err != nil {
			return nil, errors.WithKind(err, errors.KindUnsupportedFormat).
				Component("myaudio").
				Context("operation", "resample").
				Context("source_rate", rate).
				Context("target_rate", opts.TargetRate).
				Build()
		}
		rate = opts.TargetRate
	}
	if len(mono) == 0 {
		return nil, errors.WithKind(fmt.Errorf("clip too short to resample"), errors.KindEmptySignal).
			Component("myaudio").
			Context("source_rate", decoded.rate).
			Build()
	}

	wf := &Waveform{
		Samples:        mono,
		SampleRate:     rate,
		SourceFormat:   format,
		SourceRate:     decoded.rate,
		SourceChannels: decoded.channels,
		SourceBitDepth: decoded.bitDepth,
	}

	GetLogger().Debug("audio decoded",
		logger.String("format", string(format)),
		logger.Int("source_rate", decoded.rate),
		logger.Int("channels", decoded.channels),
		logger.Int("samples", len(mono)),
		logger.Duration("clip_duration", wf.Duration()),
		logger.Duration("elapsed", time.Since(start)))

	return wf, nil
}

func formatName(f Format) string {
	if f == FormatUnknown {
		return "unknown"
	}
	return string(f)
}

// Downmix averages interleaved channels into a mono signal.
func Downmix(interleaved []float32, channels int) []float32 {
	if channels <= 1 {
		return interleaved
	}

	frames := len(interleaved) / channels
	mono := make([]float32, frames)
	scale := 1 / float32(channels)
	for i := range frames {
		var sum float32
		for c := range channels {
			sum += interleaved[i*channels+c]
		}
		mono[i] = sum * scale
	}
	return mono
}

// getAudioDivisor returns the full-scale value for signed PCM of bitDepth.
func getAudioDivisor(bitDepth int) (float32, error) {
	switch bitDepth {
	case 8, 16, 24, 32:
		return float32(math.Exp2(float64(bitDepth - 1))), nil
	default:
		return 0, fmt.Errorf("unsupported audio bit depth: %d", bitDepth)
	}
}
