package myaudio

import (
	"bytes"
	"path/filepath"
	"strings"
)

// Format identifies an audio container.
type Format string

const (
	FormatUnknown Format = ""
	FormatWAV     Format = "wav"
	FormatFLAC    Format = "flac"
	FormatMP3     Format = "mp3"
)

// sniffLen is the number of leading bytes DetectFormat inspects.
const sniffLen = 12

// DetectFormat identifies the container from the leading bytes of a clip.
func DetectFormat(header []byte) Format {
	switch {
	case len(header) >= 12 && bytes.Equal(header[0:4], []byte("RIFF")) && bytes.Equal(header[8:12], []byte("WAVE")):
		return FormatWAV
	case len(header) >= 4 && bytes.Equal(header[0:4], []byte("fLaC")):
		return FormatFLAC
	case len(header) >= 3 && bytes.Equal(header[0:3], []byte("ID3")):
		return FormatMP3
	case len(header) >= 2 && isMPEGFrameSync(header[0], header[1]):
		return FormatMP3
	}
	return FormatUnknown
}

// isMPEGFrameSync reports an 11-bit frame sync followed by a layer III header.
func isMPEGFrameSync(b0, b1 byte) bool {
	if b0 != 0xFF || b1&0xE0 != 0xE0 {
		return false
	}
	version := (b1 >> 3) & 0x03
	layer := (b1 >> 1) & 0x03
	return version != 0x01 && layer == 0x01
}

// FormatFromExtension maps a file name to a format by extension.
func FormatFromExtension(name string) Format {
	switch strings.ToLower(strings.TrimPrefix(filepath.Ext(name), ".")) {
	case "wav", "wave":
		return FormatWAV
	case "flac":
		return FormatFLAC
	case "mp3":
		return FormatMP3
	}
	return FormatUnknown
}
