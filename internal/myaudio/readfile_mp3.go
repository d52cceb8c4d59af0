package myaudio

import (
	"encoding/binary"
	"fmt"
	"io"

	"github.com/hajimehoshi/go-mp3"
)

// go-mp3 always produces 16-bit little endian stereo
const (
	mp3Channels = 2
	mp3BitDepth = 16
)

func decodeMP3(r io.Reader) (*pcm, error) {
	decoder, err := mp3.NewDecoder(r)
	if err != nil {
		return nil, err
	}
	if decoder.SampleRate() <= 0 {
		return nil, fmt.Errorf("invalid MP3 sample rate %d", decoder.SampleRate())
	}

	raw, err := io.ReadAll(decoder)
	if err != nil {
		return nil, fmt.Errorf("read MP3 frames: %w", err)
	}

	divisor, _ := getAudioDivisor(mp3BitDepth)
	samples := make([]float32, len(raw)/2)
	for i := range samples {
		samples[i] = float32(int16(binary.LittleEndian.Uint16(raw[i*2:]))) / divisor
	}

	return &pcm{
		samples:  samples,
		rate:     decoder.SampleRate(),
		channels: mp3Channels,
		bitDepth: mp3BitDepth,
	}, nil
}
