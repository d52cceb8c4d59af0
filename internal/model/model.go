// Package model runs the pre-trained species classifier.
//
// Two runtimes are supported: TensorFlow Lite (the default, loaded through
// go-tflite) and ONNX Runtime. The classifier takes a feature vector shaped
// as [1, N, 1] and returns a probability per class.
package model

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/tphakala/birdsound-go/internal/errors"
	"github.com/tphakala/birdsound-go/internal/logger"
)

// Backend names
const (
	BackendAuto   = "auto"
	BackendTFLite = "tflite"
	BackendONNX   = "onnx"
)

// Classifier maps a feature vector to a class probability distribution.
// Implementations are safe for concurrent use.
type Classifier interface {
	// Predict runs one forward pass on features shaped as [1, len(features), 1].
	Predict(ctx context.Context, features []float32) ([]float32, error)
	// InputSize is the feature vector length the model expects.
	InputSize() int
	// OutputSize is the number of classes.
	OutputSize() int
	// Backend names the runtime.
	Backend() string
	Close() error
}

// Config selects and configures a classifier.
type Config struct {
	Path        string
	Backend     string // auto, tflite or onnx
	Threads     int    // 0 = derive from CPU topology
	ONNXRuntime string // onnxruntime shared library, empty = platform default
	InputName   string // onnx input tensor, empty = first input
	OutputName  string // onnx output tensor, empty = first output
}

// GetLogger returns the model logger.
func GetLogger() logger.Logger {
	return logger.Global().Module("model")
}

// ResolveBackend returns the concrete backend for cfg, using the file
// extension when the backend is auto.
func ResolveBackend(cfg Config) (string, error) {
	backend := strings.ToLower(strings.TrimSpace(cfg.Backend))
	switch backend {
	case BackendTFLite, BackendONNX:
		return backend, nil
	case "", BackendAuto:
		switch strings.ToLower(filepath.Ext(cfg.Path)) {
		case ".onnx", ".ort":
			return BackendONNX, nil
		case ".tflite", ".lite", "":
			return BackendTFLite, nil
		default:
			return "", fmt.Errorf("cannot infer model backend from extension %q", filepath.Ext(cfg.Path))
		}
	default:
		return "", fmt.Errorf("unknown model backend %q", cfg.Backend)
	}
}

// Open loads the model artifact at cfg.Path. A missing or unloadable artifact
// fails with KindModelUnavailable.
func Open(cfg Config) (Classifier, error) {
	backend, err := ResolveBackend(cfg)
	if err != nil {
		return nil, unavailable(err, cfg, backend)
	}

	info, err := os.Stat(cfg.Path)
	switch {
	case errors.Is(err, fs.ErrNotExist):
		return nil, unavailable(fmt.Errorf("model artifact not found: %w", err), cfg, backend)
	case err != nil:
		return nil, unavailable(fmt.Errorf("stat model artifact: %w", err), cfg, backend)
	case info.IsDir():
		return nil, unavailable(fmt.Errorf("model path %s is a directory", cfg.Path), cfg, backend)
	}

	switch backend {
	case BackendONNX:
		return openONNX(cfg)
	default:
		return openTFLite(cfg)
	}
}

func unavailable(err error, cfg Config, backend string) error {
	return errors.WithKind(err, errors.KindModelUnavailable).
		Component("model").
		ModelContext(cfg.Path, backend).
		Build()
}

// canceled carries no Kind; a canceled request is not a classification failure.
func canceled(err error) error {
	return errors.New(err).
		Component("model").
		Category(errors.CategoryCancellation).
		Build()
}
