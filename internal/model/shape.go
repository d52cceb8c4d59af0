package model

import (
	"fmt"
	"math"

	"github.com/tphakala/birdsound-go/internal/errors"
)

// InputShape is the tensor shape a feature vector of n values is fed as.
func InputShape(n int) []int64 {
	return []int64{1, int64(n), 1}
}

// squeeze drops unit dimensions.
func squeeze(dims []int64) []int64 {
	out := make([]int64, 0, len(dims))
	for _, d := range dims {
		if d != 1 {
			out = append(out, d)
		}
	}
	return out
}

// compatibleShape reports whether a model input of dims accepts [1, n, 1].
// Shapes are compared after dropping unit dimensions, so [1, n], [n] and
// [1, n, 1] are all accepted.
func compatibleShape(dims []int64, n int) bool {
	s := squeeze(dims)
	if n == 1 {
		return len(s) == 0
	}
	return len(s) == 1 && s[0] == int64(n)
}

// resolveInputDims fills dynamic (non-positive) dimensions: a leading one is
// the batch and becomes 1, a single remaining one takes the feature length.
func resolveInputDims(dims []int64, n int) ([]int64, error) {
	out := make([]int64, len(dims))
	copy(out, dims)

	dynamic := -1
	for i, d := range out {
		if d > 0 {
			continue
		}
		if i == 0 && len(out) > 1 {
			out[i] = 1
			continue
		}
		if dynamic >= 0 {
			return nil, fmt.Errorf("input shape %v has more than one dynamic dimension", dims)
		}
		dynamic = i
	}

	if dynamic >= 0 {
		known := int64(1)
		for i, d := range out {
			if i != dynamic {
				known *= d
			}
		}
		if known == 0 || int64(n)%known != 0 {
			return nil, fmt.Errorf("input shape %v cannot hold %d features", dims, n)
		}
		out[dynamic] = int64(n) / known
	}
	return out, nil
}

func shapeMismatch(dims []int64, n int, cfg Config, backend string) error {
	return errors.WithKind(fmt.Errorf("model expects input %v, got %v", dims, InputShape(n)), errors.KindShapeMismatch).
		Component("model").
		ModelContext(cfg.Path, backend).
		Context("expected_shape", fmt.Sprint(dims)).
		Context("feature_length", n).
		Build()
}

// ValidateOutput checks that out is a usable probability distribution: non-empty,
// finite and every value in [0, 1].
func ValidateOutput(out []float32) error {
	if len(out) == 0 {
		return fmt.Errorf("model produced an empty output")
	}
	for i, p := range out {
		v := float64(p)
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return fmt.Errorf("output %d is not finite", i)
		}
		if v < 0 || v > 1 {
			return fmt.Errorf("output %d = %g is not a probability", i, v)
		}
	}
	return nil
}

// product is the element count of dims, 0 while any dimension is dynamic.
func product(dims []int64) int64 {
	p := int64(1)
	for _, d := range dims {
		if d <= 0 {
			return 0
		}
		p *= d
	}
	return p
}
