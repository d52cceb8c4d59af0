// Package myaudio decodes audio clips into mono float32 waveforms.
//
// Supported containers are WAV (integer PCM), FLAC and MP3. The container is
// sniffed from the leading bytes; a file extension is only a hint used when
// the header is inconclusive. Decoded audio is downmixed to mono by averaging
// channels and resampled to the requested rate with cubic interpolation.
//
// Failures carry an errors.Kind: input that cannot be decoded is
// KindUnsupportedFormat, a clip that decodes to zero samples is
// KindEmptySignal.
package myaudio

import "github.com/tphakala/birdsound-go/internal/logger"

// GetLogger returns the myaudio logger.
func GetLogger() logger.Logger {
	return logger.Global().Module("audio")
}
