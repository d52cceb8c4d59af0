package model

import (
	"context"
	"fmt"
	"slices"
	"sync"
	"time"

	ort "github.com/yalue/onnxruntime_go"

	"github.com/tphakala/birdsound-go/internal/cpuspec"
	"github.com/tphakala/birdsound-go/internal/errors"
	"github.com/tphakala/birdsound-go/internal/logger"
)

// ortEnvMu guards the process-wide onnxruntime environment.
var ortEnvMu sync.Mutex

func initONNXEnvironment(libraryPath string) error {
	ortEnvMu.Lock()
	defer ortEnvMu.Unlock()

	if ort.IsInitialized() {
		return nil
	}
	if libraryPath != "" {
		ort.SetSharedLibraryPath(libraryPath)
	}
	if err := ort.InitializeEnvironment(); err != nil {
		return fmt.Errorf("failed to initialize ONNX environment: %w", err)
	}
	return nil
}

type onnxClassifier struct {
	cfg          Config
	session      *ort.AdvancedSession
	inputTensor  *ort.Tensor[float32]
	outputTensor *ort.Tensor[float32]
	inputNames   []string
	outputNames  []string
	inputDims    []int64
	outputSize   int
	mu           sync.Mutex
}

func openONNX(cfg Config) (Classifier, error) {
	start := time.Now()

	if err := initONNXEnvironment(cfg.ONNXRuntime); err != nil {
		return nil, unavailable(err, cfg, BackendONNX)
	}

	inputs, outputs, err := ort.GetInputOutputInfo(cfg.Path)
	if err != nil {
		return nil, unavailable(fmt.Errorf("read model graph: %w", err), cfg, BackendONNX)
	}

	in, err := pickTensor(inputs, cfg.InputName, "input")
	if err != nil {
		return nil, unavailable(err, cfg, BackendONNX)
	}
	out, err := pickTensor(outputs, cfg.OutputName, "output")
	if err != nil {
		return nil, unavailable(err, cfg, BackendONNX)
	}
	if in.DataType != ort.TensorElementDataTypeFloat || out.DataType != ort.TensorElementDataTypeFloat {
		return nil, unavailable(fmt.Errorf("model tensors are %v -> %v, want float32", in.DataType, out.DataType), cfg, BackendONNX)
	}

	outputDims := slices.Clone([]int64(out.Dimensions))
	if len(outputDims) > 0 && outputDims[0] <= 0 {
		outputDims[0] = 1
	}
	if product(outputDims) <= 0 {
		return nil, unavailable(fmt.Errorf("output %q has unresolved shape %v", out.Name, out.Dimensions), cfg, BackendONNX)
	}

	// the input tensor is created on first Predict, when dynamic dims can be resolved
	c := &onnxClassifier{
		cfg:         cfg,
		inputNames:  []string{in.Name},
		outputNames: []string{out.Name},
		inputDims:   slices.Clone([]int64(in.Dimensions)),
		outputSize:  int(outputDims[len(outputDims)-1]),
	}

	outputTensor, err := ort.NewEmptyTensor[float32](ort.NewShape(outputDims...))
	if err != nil {
		return nil, unavailable(fmt.Errorf("failed to create output tensor: %w", err), cfg, BackendONNX)
	}
	c.outputTensor = outputTensor

	GetLogger().Info("classifier model loaded",
		logger.String("backend", BackendONNX),
		logger.String("path", cfg.Path),
		logger.String("input", in.Name),
		logger.String("input_shape", fmt.Sprint(in.Dimensions)),
		logger.String("output", out.Name),
		logger.Int("classes", c.outputSize),
		logger.Duration("elapsed", time.Since(start)))

	return c, nil
}

func pickTensor(infos []ort.InputOutputInfo, name, role string) (ort.InputOutputInfo, error) {
	if len(infos) == 0 {
		return ort.InputOutputInfo{}, fmt.Errorf("model has no %s tensor", role)
	}
	if name == "" {
		return infos[0], nil
	}
	for _, info := range infos {
		if info.Name == name {
			return info, nil
		}
	}
	return ort.InputOutputInfo{}, fmt.Errorf("model has no %s tensor named %q", role, name)
}

// ensureSession creates the session for a feature length. Callers hold c.mu.
func (c *onnxClassifier) ensureSession(n int) error {
	if c.session != nil {
		return nil
	}

	dims, err := resolveInputDims(c.inputDims, n)
	if err != nil || !compatibleShape(dims, n) {
		return shapeMismatch(c.inputDims, n, c.cfg, BackendONNX)
	}

	inputTensor, err := ort.NewEmptyTensor[float32](ort.NewShape(dims...))
	if err != nil {
		return unavailable(fmt.Errorf("failed to create input tensor: %w", err), c.cfg, BackendONNX)
	}

	options, err := ort.NewSessionOptions()
	if err != nil {
		_ = inputTensor.Destroy()
		return unavailable(fmt.Errorf("failed to create session options: %w", err), c.cfg, BackendONNX)
	}
	defer func() { _ = options.Destroy() }()
	if err := options.SetIntraOpNumThreads(cpuspec.ThreadCount(c.cfg.Threads)); err != nil {
		_ = inputTensor.Destroy()
		return unavailable(fmt.Errorf("failed to set thread count: %w", err), c.cfg, BackendONNX)
	}

	session, err := ort.NewAdvancedSession(c.cfg.Path,
		c.inputNames, c.outputNames,
		[]ort.Value{inputTensor}, []ort.Value{c.outputTensor},
		options)
	if err != nil {
		_ = inputTensor.Destroy()
		return unavailable(fmt.Errorf("failed to create ONNX session: %w", err), c.cfg, BackendONNX)
	}

	c.inputTensor = inputTensor
	c.inputDims = dims
	c.session = session
	return nil
}

// Predict implements Classifier.
func (c *onnxClassifier) Predict(ctx context.Context, features []float32) ([]float32, error) {
	if err := ctx.Err(); err != nil {
		return nil, canceled(err)
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.outputTensor == nil {
		return nil, unavailable(fmt.Errorf("classifier is closed"), c.cfg, BackendONNX)
	}
	if c.session != nil && !compatibleShape(c.inputDims, len(features)) {
		return nil, shapeMismatch(c.inputDims, len(features), c.cfg, BackendONNX)
	}
	if err := c.ensureSession(len(features)); err != nil {
		return nil, err
	}

	start := time.Now()
	copy(c.inputTensor.GetData(), features)

	if err := c.session.Run(); err != nil {
		return nil, errors.WithKind(fmt.Errorf("inference failed: %w", err), errors.KindModelUnavailable).
			Component("model").
			Category(errors.CategoryInference).
			ModelContext(c.cfg.Path, BackendONNX).
			Timing("run", time.Since(start)).
			Build()
	}

	predictions := slices.Clone(c.outputTensor.GetData()[:c.outputSize])
	if err := ValidateOutput(predictions); err != nil {
		return nil, unavailable(err, c.cfg, BackendONNX)
	}
	return predictions, nil
}

// InputSize returns the resolved input length, or 0 while the input shape is
// still dynamic.
func (c *onnxClassifier) InputSize() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	if p := product(c.inputDims); p > 0 {
		return int(p)
	}
	return 0
}

func (c *onnxClassifier) OutputSize() int { return c.outputSize }
func (c *onnxClassifier) Backend() string { return BackendONNX }

// Close releases the session and tensors. The shared environment stays up.
func (c *onnxClassifier) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	var errs []error
	if c.session != nil {
		errs = append(errs, c.session.Destroy())
		c.session = nil
	}
	if c.inputTensor != nil {
		errs = append(errs, c.inputTensor.Destroy())
		c.inputTensor = nil
	}
	if c.outputTensor != nil {
		errs = append(errs, c.outputTensor.Destroy())
		c.outputTensor = nil
	}
	return errors.Join(errs...)
}
