package myaudio

import (
	"fmt"
	"io"

	"github.com/go-audio/wav"
)

// wavFormatPCM is the WAVE_FORMAT_PCM tag; float and compressed WAV are not decoded.
const wavFormatPCM = 1

func decodeWAV(r io.ReadSeeker) (*pcm, error) {
	decoder := wav.NewDecoder(r)
	decoder.ReadInfo()
	if err := decoder.Err(); err != nil {
		return nil, err
	}
	if !decoder.IsValidFile() {
		return nil, fmt.Errorf("input is not a valid WAV audio file")
	}
	if decoder.WavAudioFormat != wavFormatPCM {
		return nil, fmt.Errorf("unsupported WAV encoding tag %d, only integer PCM is supported", decoder.WavAudioFormat)
	}

	bitDepth := int(decoder.BitDepth)
	divisor, err := getAudioDivisor(bitDepth)
	if err != nil {
		return nil, err
	}

	channels := int(decoder.NumChans)
	if channels < 1 || decoder.SampleRate == 0 {
		return nil, fmt.Errorf("invalid WAV header: %d channels at %d Hz", channels, decoder.SampleRate)
	}

	buf, err := decoder.FullPCMBuffer()
	if err != nil {
		return nil, fmt.Errorf("read PCM data: %w", err)
	}

	samples := make([]float32, len(buf.Data))
	if bitDepth == 8 {
		// 8-bit WAV is unsigned with a 128 midpoint
		for i, v := range buf.Data {
			samples[i] = float32(v-128) / divisor
		}
	} else {
		for i, v := range buf.Data {
			samples[i] = float32(v) / divisor
		}
	}

	return &pcm{
		samples:  samples,
		rate:     int(decoder.SampleRate),
		channels: channels,
		bitDepth: bitDepth,
	}, nil
}
