package model

import (
	"context"
	"math"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tphakala/birdsound-go/internal/errors"
)

func TestResolveBackend(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		cfg     Config
		want    string
		wantErr bool
	}{
		{"auto tflite", Config{Path: "model/model.tflite"}, BackendTFLite, false},
		{"auto onnx", Config{Path: "model/model.ONNX", Backend: "auto"}, BackendONNX, false},
		{"auto ort", Config{Path: "model/model.ort"}, BackendONNX, false},
		{"explicit overrides extension", Config{Path: "model.bin", Backend: "ONNX"}, BackendONNX, false},
		{"auto unknown extension", Config{Path: "model.h5"}, "", true},
		{"unknown backend", Config{Path: "model.tflite", Backend: "keras"}, "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got, err := ResolveBackend(tt.cfg)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestOpenUnavailable(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()

	tests := []struct {
		name string
		cfg  Config
	}{
		{"missing tflite", Config{Path: filepath.Join(dir, "missing.tflite")}},
		{"missing onnx", Config{Path: filepath.Join(dir, "missing.onnx")}},
		{"directory", Config{Path: dir, Backend: BackendTFLite}},
		{"unknown backend", Config{Path: filepath.Join(dir, "model.tflite"), Backend: "keras"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			c, err := Open(tt.cfg)
			require.Error(t, err)
			assert.Nil(t, c)
			assert.Equal(t, errors.KindModelUnavailable, errors.KindOf(err))
		})
	}
}

func TestOpenCorruptTFLite(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "model.tflite")
	require.NoError(t, os.WriteFile(path, []byte("this is not a flatbuffer"), 0o600))

	_, err := Open(Config{Path: path, Threads: 1})
	require.Error(t, err)
	assert.Equal(t, errors.KindModelUnavailable, errors.KindOf(err))
}

func TestCompatibleShape(t *testing.T) {
	t.Parallel()

	tests := []struct {
		dims []int64
		n    int
		want bool
	}{
		{[]int64{1, 40, 1}, 40, true},
		{[]int64{1, 40}, 40, true},
		{[]int64{40}, 40, true},
		{[]int64{1, 1, 40, 1}, 40, true},
		{[]int64{1, 39, 1}, 40, false},
		{[]int64{1, 20, 2}, 40, false},
		{[]int64{1, 40, 1}, 20, false},
		{[]int64{1, 1, 1}, 1, true},
		{[]int64{1, 2, 1}, 1, false},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, compatibleShape(tt.dims, tt.n), "dims %v n %d", tt.dims, tt.n)
	}
}

func TestResolveInputDims(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		dims    []int64
		n       int
		want    []int64
		wantErr bool
	}{
		{"static", []int64{1, 40, 1}, 40, []int64{1, 40, 1}, false},
		{"dynamic batch", []int64{-1, 40, 1}, 40, []int64{1, 40, 1}, false},
		{"dynamic sequence", []int64{1, -1, 1}, 40, []int64{1, 40, 1}, false},
		{"dynamic batch and sequence", []int64{-1, -1, 1}, 40, []int64{1, 40, 1}, false},
		{"two dynamic inner dims", []int64{1, -1, -1}, 40, nil, true},
		{"indivisible", []int64{1, -1, 3}, 40, nil, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got, err := resolveInputDims(tt.dims, tt.n)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestShapeMismatchKind(t *testing.T) {
	t.Parallel()

	err := shapeMismatch([]int64{1, 20, 1}, 40, Config{Path: "model.tflite"}, BackendTFLite)
	assert.Equal(t, errors.KindShapeMismatch, errors.KindOf(err))
	assert.Contains(t, err.Error(), "[1 20 1]")
}

func TestValidateOutput(t *testing.T) {
	t.Parallel()

	nan := float32(math.NaN())

	tests := []struct {
		name  string
		out   []float32
		valid bool
	}{
		{"distribution", []float32{0.92, 0.08}, true},
		{"one hot", []float32{0, 1, 0}, true},
		{"empty", nil, false},
		{"negative", []float32{-0.1, 1.1}, false},
		{"above one", []float32{1.5}, false},
		{"nan", []float32{nan, 0.5}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			err := ValidateOutput(tt.out)
			if tt.valid {
				assert.NoError(t, err)
			} else {
				assert.Error(t, err)
			}
		})
	}
}

func TestPredictCanceledHasNoKind(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(t.Context())
	cancel()

	for _, c := range []Classifier{&tfliteClassifier{}, &onnxClassifier{}} {
		_, err := c.Predict(ctx, make([]float32, 40))
		require.Error(t, err, c.Backend())
		assert.ErrorIs(t, err, context.Canceled)
		assert.True(t, errors.IsCategory(err, errors.CategoryCancellation), c.Backend())
		assert.Empty(t, errors.KindOf(err), c.Backend())
	}
}

func TestProduct(t *testing.T) {
	t.Parallel()

	assert.Equal(t, int64(40), product(InputShape(40)))
	assert.Zero(t, product([]int64{-1, 40, 1}))
	assert.Zero(t, product([]int64{-1, -1, 1}))
}
