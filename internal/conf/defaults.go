// conf/defaults.go default values for settings
package conf

import (
	"time"

	"github.com/spf13/viper"
)

// Sets default values for the configuration.
func setDefaultConfig() {
	viper.SetDefault("debug", false)

	viper.SetDefault("main.name", "BirdSound")

	viper.SetDefault("logging.default_level", "info")
	viper.SetDefault("logging.timezone", "Local")
	viper.SetDefault("logging.console.enabled", true)
	viper.SetDefault("logging.console.level", "info")
	viper.SetDefault("logging.file_output.enabled", false)
	viper.SetDefault("logging.file_output.path", "logs/birdsound.log")
	viper.SetDefault("logging.file_output.level", "info")

	viper.SetDefault("model.path", "model/model.tflite")
	viper.SetDefault("model.backend", BackendAuto)
	viper.SetDefault("model.threads", 0)
	viper.SetDefault("model.onnxruntime", "")
	viper.SetDefault("model.inputname", "")
	viper.SetDefault("model.outputname", "")

	viper.SetDefault("labels.path", "model/prediction.json")

	viper.SetDefault("species.catalog", "")

	viper.SetDefault("illustrations.path", "assets/species")
	viper.SetDefault("illustrations.extensions", []string{".jpg", ".jpeg", ".png", ".webp"})
	viper.SetDefault("illustrations.cachettl", 10*time.Minute)

	// librosa.feature.mfcc defaults
	viper.SetDefault("features.samplerate", 22050)
	viper.SetDefault("features.numcoefficients", 40)
	viper.SetDefault("features.fftsize", 2048)
	viper.SetDefault("features.hoplength", 512)
	viper.SetDefault("features.melbands", 128)
	viper.SetDefault("features.fmin", 0.0)
	viper.SetDefault("features.fmax", 0.0)
	viper.SetDefault("features.topdb", 80.0)

	viper.SetDefault("pipeline.cacheartifacts", true)

	viper.SetDefault("webserver.host", "")
	viper.SetDefault("webserver.port", 8080)
	viper.SetDefault("webserver.bodylimit", "25M")
	viper.SetDefault("webserver.readtimeout", 30*time.Second)
	viper.SetDefault("webserver.writetimeout", 60*time.Second)
	viper.SetDefault("webserver.maxconcurrent", 1)
	viper.SetDefault("webserver.ratelimit", 0.0)
	viper.SetDefault("webserver.rateburst", 5)

	viper.SetDefault("mqtt.enabled", false)
	viper.SetDefault("mqtt.broker", "tcp://localhost:1883")
	viper.SetDefault("mqtt.topic", "birdsound/predictions")
	viper.SetDefault("mqtt.clientid", "birdsound")
	viper.SetDefault("mqtt.username", "")
	viper.SetDefault("mqtt.password", "")
	viper.SetDefault("mqtt.retain", false)

	viper.SetDefault("sentry.enabled", false)
	viper.SetDefault("sentry.dsn", "")
	viper.SetDefault("sentry.environment", "production")
	viper.SetDefault("sentry.samplerate", 1.0)
	viper.SetDefault("sentry.debug", false)

	viper.SetDefault("metrics.enabled", true)
	viper.SetDefault("metrics.path", "/metrics")
}
