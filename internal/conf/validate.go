// conf/validate.go

package conf

import (
	"fmt"
	"strings"

	"github.com/labstack/gommon/bytes"
	"github.com/tphakala/birdsound-go/internal/errors"
)

// ValidationError represents a collection of validation errors
type ValidationError struct {
	Errors []string
}

// Error returns a string representation of the validation errors
func (ve ValidationError) Error() string {
	return fmt.Sprintf("validation errors: %v", ve.Errors)
}

// ErrorCategory implements errors.CategorizedError.
func (ve ValidationError) ErrorCategory() errors.ErrorCategory {
	return errors.CategoryConfiguration
}

// ValidateSettings validates the entire Settings struct
func ValidateSettings(settings *Settings) error {
	ve := ValidationError{}

	validators := []func(*Settings) error{
		func(s *Settings) error { return validateModelSettings(&s.Model) },
		func(s *Settings) error { return validateLabelSettings(&s.Labels) },
		func(s *Settings) error { return validateFeatureSettings(&s.Features) },
		func(s *Settings) error { return validateWebServerSettings(&s.WebServer) },
		func(s *Settings) error { return validateMQTTSettings(&s.MQTT) },
		func(s *Settings) error { return validateSentrySettings(&s.Sentry) },
	}

	for _, validate := range validators {
		if err := validate(settings); err != nil {
			ve.Errors = append(ve.Errors, err.Error())
		}
	}

	if len(ve.Errors) > 0 {
		return ve
	}
	return nil
}

func validateModelSettings(settings *ModelSettings) error {
	if settings.Path == "" {
		return fmt.Errorf("model.path is required")
	}

	settings.Backend = strings.ToLower(settings.Backend)
	if settings.Backend == "" {
		settings.Backend = BackendAuto
	}
	if err := validateEnvBackend(settings.Backend); err != nil {
		return fmt.Errorf("model.backend %w", err)
	}

	if settings.Threads < 0 {
		return fmt.Errorf("model.threads must be >= 0, got %d", settings.Threads)
	}

	return nil
}

func validateLabelSettings(settings *LabelSettings) error {
	if settings.Path == "" {
		return fmt.Errorf("labels.path is required")
	}
	return nil
}

func validateFeatureSettings(settings *FeatureSettings) error {
	var problems []string

	if settings.SampleRate <= 0 {
		problems = append(problems, fmt.Sprintf("samplerate must be positive, got %d", settings.SampleRate))
	}
	if settings.NumCoefficients <= 0 {
		problems = append(problems, fmt.Sprintf("numcoefficients must be positive, got %d", settings.NumCoefficients))
	}
	if settings.MelBands < settings.NumCoefficients {
		problems = append(problems, fmt.Sprintf("melbands (%d) must be >= numcoefficients (%d)", settings.MelBands, settings.NumCoefficients))
	}
	if settings.FFTSize < 2 || settings.FFTSize%2 != 0 {
		problems = append(problems, fmt.Sprintf("fftsize must be an even number >= 2, got %d", settings.FFTSize))
	}
	if settings.HopLength <= 0 {
		problems = append(problems, fmt.Sprintf("hoplength must be positive, got %d", settings.HopLength))
	}
	nyquist := float64(settings.SampleRate) / 2
	if settings.FMin < 0 || (settings.FMax != 0 && (settings.FMax <= settings.FMin || settings.FMax > nyquist)) {
		problems = append(problems, fmt.Sprintf("fmin/fmax must satisfy 0 <= fmin < fmax <= %.0f", nyquist))
	}
	if settings.TopDB < 0 {
		problems = append(problems, "topdb must be >= 0")
	}

	if len(problems) > 0 {
		return fmt.Errorf("features: %s", strings.Join(problems, "; "))
	}
	return nil
}

func validateWebServerSettings(settings *WebServerSettings) error {
	if settings.Port < 1 || settings.Port > 65535 {
		return fmt.Errorf("webserver.port must be between 1 and 65535, got %d", settings.Port)
	}
	if _, err := bytes.Parse(settings.BodyLimit); err != nil {
		return fmt.Errorf("webserver.bodylimit %q is not a valid size: %w", settings.BodyLimit, err)
	}
	if settings.MaxConcurrent < 1 {
		return fmt.Errorf("webserver.maxconcurrent must be >= 1, got %d", settings.MaxConcurrent)
	}
	if settings.RateLimit < 0 {
		return fmt.Errorf("webserver.ratelimit must be >= 0")
	}
	return nil
}

func validateMQTTSettings(settings *MQTTSettings) error {
	if !settings.Enabled {
		return nil
	}
	if settings.Broker == "" {
		return fmt.Errorf("mqtt.broker is required when MQTT is enabled")
	}
	if settings.Topic == "" {
		return fmt.Errorf("mqtt.topic is required when MQTT is enabled")
	}
	return nil
}

func validateSentrySettings(settings *SentrySettings) error {
	if !settings.Enabled {
		return nil
	}
	if settings.DSN == "" {
		return fmt.Errorf("sentry.dsn is required when Sentry is enabled")
	}
	if settings.SampleRate < 0 || settings.SampleRate > 1 {
		return fmt.Errorf("sentry.samplerate must be between 0 and 1")
	}
	return nil
}
