// Package conf provides configuration management for birdsound.
package conf

import (
	"embed"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/spf13/viper"

	"github.com/tphakala/birdsound-go/internal/errors"
	"github.com/tphakala/birdsound-go/internal/logger"
)

//go:embed config.yaml
var configFiles embed.FS

// EnvPrefix prefixes every environment override, e.g. BIRDSOUND_MODEL_PATH.
const EnvPrefix = "BIRDSOUND"

// MainSettings contains the application identity
type MainSettings struct {
	Name string // instance name reported in health checks and MQTT payloads
}

// ModelSettings selects and configures the classifier runtime
type ModelSettings struct {
	Path        string // model artifact, .tflite or .onnx
	Backend     string // auto, tflite or onnx
	Threads     int    // inference threads, 0 = derive from CPU
	ONNXRuntime string // path to the onnxruntime shared library
	InputName   string // onnx input tensor name, empty = first input
	OutputName  string // onnx output tensor name, empty = first output
}

// LabelSettings locates the class index to species label map
type LabelSettings struct {
	Path string // JSON object {"0": "Andean Guan_sound", ...}
}

// SpeciesSettings configures the optional species catalog
type SpeciesSettings struct {
	Catalog string // YAML table mapping species ids to display names and images
}

// IllustrationSettings configures species image lookup
type IllustrationSettings struct {
	Path       string        // directory holding one image per species
	Extensions []string      // extensions tried in order when no catalog entry exists
	CacheTTL   time.Duration // lookup cache lifetime, 0 = never expire
}

// FeatureSettings configures MFCC extraction
type FeatureSettings struct {
	SampleRate      int     // decoder output rate in Hz
	NumCoefficients int     // MFCC count, equals model input length
	FFTSize         int     // STFT window length
	HopLength       int     // STFT hop in samples
	MelBands        int     // mel filter count
	FMin            float64 // lowest mel frequency in Hz
	FMax            float64 // highest mel frequency in Hz, 0 = Nyquist
	TopDB           float64 // dynamic range clamp for power_to_db
}

// PipelineSettings controls artifact caching
type PipelineSettings struct {
	CacheArtifacts bool // keep loaded label maps and models for the process lifetime
}

// WebServerSettings configures the HTTP boundary
type WebServerSettings struct {
	Host          string
	Port          int
	BodyLimit     string // max upload size, e.g. "25M"
	ReadTimeout   time.Duration
	WriteTimeout  time.Duration
	MaxConcurrent int     // simultaneous classifications
	RateLimit     float64 // requests per second per client, 0 = off
	RateBurst     int
}

// MQTTSettings configures optional prediction publishing
type MQTTSettings struct {
	Enabled  bool
	Broker   string
	Topic    string
	ClientID string
	Username string
	Password string
	Retain   bool
}

// SentrySettings configures opt-in error telemetry
type SentrySettings struct {
	Enabled     bool
	DSN         string
	Environment string
	SampleRate  float64
	Debug       bool
}

// MetricsSettings configures the Prometheus endpoint
type MetricsSettings struct {
	Enabled bool
	Path    string
}

// Settings contains all configuration options
type Settings struct {
	Debug bool

	Main          MainSettings
	Logging       logger.LoggingConfig
	Model         ModelSettings
	Labels        LabelSettings
	Species       SpeciesSettings
	Illustrations IllustrationSettings
	Features      FeatureSettings
	Pipeline      PipelineSettings
	WebServer     WebServerSettings
	MQTT          MQTTSettings
	Sentry        SentrySettings
	Metrics       MetricsSettings
}

var (
	settingsInstance *Settings
	settingsMutex    sync.RWMutex
)

// Load reads configuration from configFile, or from the default search
// paths when configFile is empty, applies environment overrides and validates.
func Load(configFile string) (*Settings, error) {
	settingsMutex.Lock()
	defer settingsMutex.Unlock()

	if err := initViper(configFile); err != nil {
		return nil, fmt.Errorf("error initializing viper: %w", err)
	}

	settings := &Settings{}
	if err := viper.Unmarshal(settings); err != nil {
		return nil, errors.New(fmt.Errorf("error unmarshaling config into struct: %w", err)).
			Category(errors.CategoryConfiguration).
			Context("operation", "unmarshal-config").
			Build()
	}

	if err := ValidateSettings(settings); err != nil {
		return nil, fmt.Errorf("error validating settings: %w", err)
	}

	settingsInstance = settings
	return settingsInstance, nil
}

// initViper sets defaults, environment bindings and reads the config file.
func initViper(configFile string) error {
	setDefaultConfig()

	viper.SetEnvPrefix(EnvPrefix)
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()
	if err := bindEnvVars(); err != nil {
		// Bad env values are reported but the file config still applies
		GetLogger().Warn("environment configuration issues", logger.Error(err))
	}

	if configFile != "" {
		viper.SetConfigFile(configFile)
		if err := viper.ReadInConfig(); err != nil {
			return errors.New(fmt.Errorf("error reading config file %s: %w", configFile, err)).
				Category(errors.CategoryConfiguration).
				FileContext(configFile, 0).
				Build()
		}
		return nil
	}

	viper.SetConfigName("config")
	viper.SetConfigType("yaml")

	configPaths, err := GetDefaultConfigPaths()
	if err != nil {
		return fmt.Errorf("error getting default config paths: %w", err)
	}
	for _, path := range configPaths {
		viper.AddConfigPath(path)
	}

	err = viper.ReadInConfig()
	if err == nil {
		return nil
	}

	var configFileNotFoundError viper.ConfigFileNotFoundError
	if errors.As(err, &configFileNotFoundError) {
		return createDefaultConfig(configPaths)
	}
	return fmt.Errorf("fatal error reading config file: %w", err)
}

// createDefaultConfig writes the embedded config.yaml to the first search
// path. When that is not writable the built-in defaults are used as is.
func createDefaultConfig(configPaths []string) error {
	if len(configPaths) == 0 {
		return nil
	}
	configPath := filepath.Join(configPaths[0], "config.yaml")

	if err := os.MkdirAll(filepath.Dir(configPath), 0o755); err != nil {
		GetLogger().Warn("cannot create config directory, using defaults",
			logger.String("path", configPath), logger.Error(err))
		return nil
	}

	if err := os.WriteFile(configPath, []byte(getDefaultConfig()), 0o644); err != nil {
		GetLogger().Warn("cannot write default config, using defaults",
			logger.String("path", configPath), logger.Error(err))
		return nil
	}

	GetLogger().Info("created default config file", logger.String("path", configPath))
	return viper.ReadInConfig()
}

// getDefaultConfig returns the embedded default config.yaml.
func getDefaultConfig() string {
	data, err := fs.ReadFile(configFiles, "config.yaml")
	if err != nil {
		// The file is compiled in; a read failure is a build defect
		panic(fmt.Sprintf("embedded config.yaml missing: %v", err))
	}
	return string(data)
}

// GetSettings returns the settings loaded by the last successful Load.
func GetSettings() *Settings {
	settingsMutex.RLock()
	defer settingsMutex.RUnlock()
	return settingsInstance
}

// GetLogger returns the config package logger.
func GetLogger() logger.Logger {
	return logger.Global().Module("config")
}
