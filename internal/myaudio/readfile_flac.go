package myaudio

import (
	"encoding/binary"
	"fmt"
	"io"

	"github.com/tphakala/flac"
)

// maxFLACPrealloc caps the sample buffer sized from STREAMINFO, which is
// untrusted and may claim up to 2^36 samples per channel.
const maxFLACPrealloc = 1 << 22

func decodeFLAC(r io.Reader, size int) (*pcm, error) {
	decoder, err := flac.NewDecoder(r)
	if err != nil {
		return nil, err
	}

	divisor, err := getAudioDivisor(decoder.BitsPerSample)
	if err != nil {
		return nil, err
	}
	if decoder.NChannels < 1 || decoder.SampleRate <= 0 {
		return nil, fmt.Errorf("invalid FLAC stream info: %d channels at %d Hz", decoder.NChannels, decoder.SampleRate)
	}

	bytesPerSample := decoder.BitsPerSample / 8
	// only a capacity hint; append grows past it for well-compressed streams
	prealloc := min(decoder.TotalSamples*int64(decoder.NChannels), int64(size), maxFLACPrealloc)
	samples := make([]float32, 0, max(prealloc, 0))

	for {
		frame, err := decoder.Next()
		if err == io.EOF {
			break
		} else if err != nil {
			return nil, err
		}

		for i := 0; i+bytesPerSample <= len(frame); i += bytesPerSample {
			var sample int32
			switch decoder.BitsPerSample {
			case 8:
				sample = int32(int8(frame[i]))
			case 16:
				sample = int32(int16(binary.LittleEndian.Uint16(frame[i:])))
			case 24:
				sample = int32(frame[i]) | int32(frame[i+1])<<8 | int32(frame[i+2])<<16
				if sample&0x00800000 != 0 {
					sample |= ^0x00FFFFFF
				}
			case 32:
				sample = int32(binary.LittleEndian.Uint32(frame[i:]))
			}
			samples = append(samples, float32(sample)/divisor)
		}
	}

	return &pcm{
		samples:  samples,
		rate:     decoder.SampleRate,
		channels: decoder.NChannels,
		bitDepth: decoder.BitsPerSample,
	}, nil
}
