// Package features computes the fixed-length MFCC summary a clip is
// classified on.
//
// The parameters follow librosa's defaults so vectors match the ones the
// model was trained with: centered frames with zero padding, a periodic Hann
// window, a Slaney-normalized mel filterbank, power_to_db with an 80 dB floor
// and an orthonormal DCT-II. The vector is the per-coefficient mean over all
// frames.
package features

import (
	"fmt"

	"github.com/tphakala/birdsound-go/internal/errors"
	"github.com/tphakala/birdsound-go/internal/logger"
)

// Config holds extraction parameters.
type Config struct {
	SampleRate      int
	NumCoefficients int
	FFTSize         int
	HopLength       int
	MelBands        int
	FMin            float64
	FMax            float64 // 0 = Nyquist
	TopDB           float64 // <= 0 disables the dynamic range clamp
}

// DefaultConfig returns the parameters the bundled model expects.
func DefaultConfig() Config {
	return Config{
		SampleRate:      22050,
		NumCoefficients: 40,
		FFTSize:         2048,
		HopLength:       512,
		MelBands:        128,
		FMin:            0,
		FMax:            0,
		TopDB:           80,
	}
}

// GetLogger returns the features logger.
func GetLogger() logger.Logger {
	return logger.Global().Module("features")
}

func (c Config) nyquist() float64 {
	return float64(c.SampleRate) / 2
}

func (c Config) fmax() float64 {
	if c.FMax <= 0 {
		return c.nyquist()
	}
	return c.FMax
}

// Validate reports every invalid parameter.
func (c Config) Validate() error {
	var errs []error
	if c.SampleRate <= 0 {
		errs = append(errs, fmt.Errorf("sample rate must be positive, got %d", c.SampleRate))
	}
	if c.FFTSize < 2 || c.FFTSize%2 != 0 {
		errs = append(errs, fmt.Errorf("fft size must be an even number >= 2, got %d", c.FFTSize))
	}
	if c.HopLength <= 0 {
		errs = append(errs, fmt.Errorf("hop length must be positive, got %d", c.HopLength))
	}
	if c.MelBands <= 0 {
		errs = append(errs, fmt.Errorf("mel band count must be positive, got %d", c.MelBands))
	}
	if c.NumCoefficients <= 0 || c.NumCoefficients > c.MelBands {
		errs = append(errs, fmt.Errorf("coefficient count must be in 1..%d, got %d", c.MelBands, c.NumCoefficients))
	}
	if c.FMin < 0 || c.FMin >= c.fmax() || c.fmax() > c.nyquist() {
		errs = append(errs, fmt.Errorf("mel frequency range %.1f..%.1f Hz is outside 0..%.1f Hz", c.FMin, c.fmax(), c.nyquist()))
	}
	if len(errs) == 0 {
		return nil
	}

	return errors.New(errors.Join(errs...)).
		Component("features").
		Category(errors.CategoryConfiguration).
		Context("operation", "validate_feature_config").
		Build()
}
