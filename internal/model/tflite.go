package model

import (
	"context"
	"fmt"
	"os"
	"runtime"
	"sync"
	"time"

	tflite "github.com/tphakala/go-tflite"

	"github.com/tphakala/birdsound-go/internal/cpuspec"
	"github.com/tphakala/birdsound-go/internal/errors"
	"github.com/tphakala/birdsound-go/internal/logger"
)

type tfliteClassifier struct {
	cfg         Config
	model       *tflite.Model
	options     *tflite.InterpreterOptions
	interpreter *tflite.Interpreter
	inputDims   []int64
	inputSize   int
	outputSize  int
	mu          sync.Mutex
}

func openTFLite(cfg Config) (Classifier, error) {
	start := time.Now()

	modelData, err := os.ReadFile(cfg.Path)
	if err != nil {
		return nil, unavailable(fmt.Errorf("read model artifact: %w", err), cfg, BackendTFLite)
	}

	model := tflite.NewModel(modelData)
	if model == nil {
		return nil, errors.WithKind(fmt.Errorf("cannot load TensorFlow Lite model"), errors.KindModelUnavailable).
			Component("model").
			Category(errors.CategoryModelInit).
			ModelContext(cfg.Path, BackendTFLite).
			Context("model_size_mb", len(modelData)/1024/1024).
			Timing("model-init", time.Since(start)).
			Build()
	}

	threads := cpuspec.ThreadCount(cfg.Threads)
	options := tflite.NewInterpreterOptions()
	options.SetNumThread(threads)
	options.SetErrorReporter(func(msg string, _ any) {
		GetLogger().Error("TFLite error", logger.String("message", msg))
	}, nil)

	c := &tfliteClassifier{cfg: cfg, model: model, options: options}

	c.interpreter = tflite.NewInterpreter(model, options)
	if c.interpreter == nil {
		_ = c.Close()
		return nil, unavailable(fmt.Errorf("cannot create interpreter"), cfg, BackendTFLite)
	}
	if status := c.interpreter.AllocateTensors(); status != tflite.OK {
		_ = c.Close()
		return nil, unavailable(fmt.Errorf("tensor allocation failed: %v", status), cfg, BackendTFLite)
	}

	input := c.interpreter.GetInputTensor(0)
	output := c.interpreter.GetOutputTensor(0)
	if input == nil || output == nil {
		_ = c.Close()
		return nil, unavailable(fmt.Errorf("model has no input or output tensor"), cfg, BackendTFLite)
	}
	if input.Type() != tflite.Float32 || output.Type() != tflite.Float32 {
		_ = c.Close()
		return nil, unavailable(fmt.Errorf("model tensors are %v -> %v, want float32", input.Type(), output.Type()), cfg, BackendTFLite)
	}

	c.inputDims = tensorDims(input)
	c.inputSize = int(product(c.inputDims))
	c.outputSize = output.Dim(output.NumDims() - 1)

	// TFLite keeps its own copy of the flatbuffer
	runtime.GC()

	GetLogger().Info("classifier model loaded",
		logger.String("backend", BackendTFLite),
		logger.String("path", cfg.Path),
		logger.Int("threads", threads),
		logger.String("input_shape", fmt.Sprint(c.inputDims)),
		logger.Int("classes", c.outputSize),
		logger.Duration("elapsed", time.Since(start)))

	return c, nil
}

func tensorDims(t *tflite.Tensor) []int64 {
	dims := make([]int64, t.NumDims())
	for i := range dims {
		dims[i] = int64(t.Dim(i))
	}
	return dims
}

// Predict implements Classifier.
func (c *tfliteClassifier) Predict(ctx context.Context, features []float32) ([]float32, error) {
	if err := ctx.Err(); err != nil {
		return nil, canceled(err)
	}
	if !compatibleShape(c.inputDims, len(features)) {
		return nil, shapeMismatch(c.inputDims, len(features), c.cfg, BackendTFLite)
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.interpreter == nil {
		return nil, unavailable(fmt.Errorf("classifier is closed"), c.cfg, BackendTFLite)
	}

	start := time.Now()
	input := c.interpreter.GetInputTensor(0)
	copy(input.Float32s(), features)

	if status := c.interpreter.Invoke(); status != tflite.OK {
		return nil, errors.WithKind(fmt.Errorf("tensor invoke failed: %v", status), errors.KindModelUnavailable).
			Component("model").
			Category(errors.CategoryInference).
			ModelContext(c.cfg.Path, BackendTFLite).
			Timing("invoke", time.Since(start)).
			Build()
	}

	output := c.interpreter.GetOutputTensor(0)
	predictions := make([]float32, c.outputSize)
	copy(predictions, output.Float32s())

	if err := ValidateOutput(predictions); err != nil {
		return nil, unavailable(err, c.cfg, BackendTFLite)
	}
	return predictions, nil
}

func (c *tfliteClassifier) InputSize() int  { return c.inputSize }
func (c *tfliteClassifier) OutputSize() int { return c.outputSize }
func (c *tfliteClassifier) Backend() string { return BackendTFLite }

// Close releases the interpreter and model.
func (c *tfliteClassifier) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.interpreter != nil {
		c.interpreter.Delete()
		c.interpreter = nil
	}
	if c.options != nil {
		c.options.Delete()
		c.options = nil
	}
	if c.model != nil {
		c.model.Delete()
		c.model = nil
	}
	return nil
}
