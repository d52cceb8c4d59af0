// env.go - environment variable configuration and validation
package conf

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/spf13/viper"
)

// envBinding holds metadata for environment variable bindings
type envBinding struct {
	ConfigKey string             // Viper config key
	EnvVar    string             // Environment variable name
	Validate  func(string) error // Optional validation function
}

// getEnvBindings returns the explicitly validated environment variables.
// Every other key is still reachable through AutomaticEnv.
func getEnvBindings() []envBinding {
	return []envBinding{
		{"model.path", EnvPrefix + "_MODEL_PATH", validateEnvPath},
		{"model.backend", EnvPrefix + "_MODEL_BACKEND", validateEnvBackend},
		{"model.threads", EnvPrefix + "_MODEL_THREADS", validateEnvThreads},
		{"labels.path", EnvPrefix + "_LABELS_PATH", validateEnvPath},
		{"illustrations.path", EnvPrefix + "_ILLUSTRATIONS_PATH", validateEnvPath},
		{"webserver.port", EnvPrefix + "_WEBSERVER_PORT", validateEnvPort},
		{"sentry.enabled", EnvPrefix + "_SENTRY_ENABLED", validateEnvBool},
		{"mqtt.enabled", EnvPrefix + "_MQTT_ENABLED", validateEnvBool},
		{"debug", EnvPrefix + "_DEBUG", validateEnvBool},
	}
}

// bindEnvVars binds and validates the explicit environment variables
func bindEnvVars() error {
	var warnings []string

	for _, binding := range getEnvBindings() {
		if err := viper.BindEnv(binding.ConfigKey, binding.EnvVar); err != nil {
			warnings = append(warnings, fmt.Sprintf("failed to bind %s: %v", binding.EnvVar, err))
			continue
		}

		if binding.Validate == nil {
			continue
		}
		if envValue := os.Getenv(binding.EnvVar); envValue != "" {
			if err := binding.Validate(envValue); err != nil {
				warnings = append(warnings, fmt.Sprintf("invalid %s value %q: %v", binding.EnvVar, envValue, err))
			}
		}
	}

	if len(warnings) > 0 {
		return fmt.Errorf("environment variable issues:\n  - %s", strings.Join(warnings, "\n  - "))
	}

	return nil
}

func validateEnvBool(value string) error {
	if _, err := strconv.ParseBool(value); err != nil {
		return fmt.Errorf("must be true or false")
	}
	return nil
}

func validateEnvThreads(value string) error {
	n, err := strconv.Atoi(value)
	if err != nil {
		return fmt.Errorf("must be an integer")
	}
	if n < 0 {
		return fmt.Errorf("must be >= 0")
	}
	return nil
}

func validateEnvPort(value string) error {
	n, err := strconv.Atoi(value)
	if err != nil || n < 1 || n > 65535 {
		return fmt.Errorf("must be a port number between 1 and 65535")
	}
	return nil
}

func validateEnvBackend(value string) error {
	switch strings.ToLower(value) {
	case BackendAuto, BackendTFLite, BackendONNX:
		return nil
	default:
		return fmt.Errorf("must be one of %s, %s, %s", BackendAuto, BackendTFLite, BackendONNX)
	}
}

func validateEnvPath(value string) error {
	if strings.ContainsRune(value, 0) {
		return fmt.Errorf("path contains a NUL byte")
	}
	return nil
}
