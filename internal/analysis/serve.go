package analysis

import (
	"context"

	"github.com/spf13/afero"

	"github.com/tphakala/birdsound-go/internal/api"
	"github.com/tphakala/birdsound-go/internal/buildinfo"
	"github.com/tphakala/birdsound-go/internal/conf"
	"github.com/tphakala/birdsound-go/internal/errors"
	"github.com/tphakala/birdsound-go/internal/logger"
	"github.com/tphakala/birdsound-go/internal/mqtt"
	"github.com/tphakala/birdsound-go/internal/observability"
	"github.com/tphakala/birdsound-go/internal/observability/metrics"
	"github.com/tphakala/birdsound-go/internal/pipeline"
)

// Service is the HTTP classification service with its optional metrics and
// MQTT publisher.
type Service struct {
	Components *Components
	Server     *api.Server
	Metrics    *observability.Metrics // nil when metrics are disabled
	publisher  *mqtt.Publisher
}

// NewService wires settings into a ready to start Service. extra options are
// applied to the pipeline last. An unreachable MQTT broker is logged and does
// not prevent startup.
func NewService(ctx context.Context, settings *conf.Settings, info buildinfo.BuildInfo, fsys afero.Fs, extra ...pipeline.Option) (*Service, error) {
	log := GetLogger()
	s := &Service{}

	var opts []pipeline.Option
	var mqttMetrics *metrics.MQTTMetrics

	if settings.Metrics.Enabled {
		m, err := observability.NewMetrics()
		if err != nil {
			return nil, err
		}
		s.Metrics = m
		mqttMetrics = m.MQTT
		opts = append(opts, pipeline.WithRecorder(m.Pipeline))
	}

	if settings.MQTT.Enabled {
		pub, err := newPublisher(ctx, settings, mqttMetrics)
		if err != nil {
			return nil, err
		}
		s.publisher = pub
		opts = append(opts, pipeline.WithPublisher(pub))
	}

	components, err := NewComponents(settings, fsys, append(opts, extra...)...)
	if err != nil {
		s.closePublisher()
		return nil, err
	}
	s.Components = components

	serverOpts := []api.ServerOption{api.WithBuildInfo(info)}
	if s.Metrics != nil {
		serverOpts = append(serverOpts, api.WithMetrics(s.Metrics))
	}
	if components.Images != nil {
		if s.Metrics != nil {
			components.Images.SetMetrics(s.Metrics.ImageProvider)
		}
		serverOpts = append(serverOpts, api.WithIllustrations(components.Images))
	}

	server, err := api.New(api.ConfigFromSettings(settings), components.Pipeline, serverOpts...)
	if err != nil {
		_ = components.Close()
		s.closePublisher()
		return nil, err
	}
	s.Server = server

	log.Info("service configured",
		logger.Bool("metrics", s.Metrics != nil),
		logger.Bool("mqtt", s.publisher != nil))

	return s, nil
}

func newPublisher(ctx context.Context, settings *conf.Settings, m *metrics.MQTTMetrics) (*mqtt.Publisher, error) {
	cfg := mqtt.DefaultConfig()
	cfg.Broker = settings.MQTT.Broker
	cfg.ClientID = settings.MQTT.ClientID
	cfg.Username = settings.MQTT.Username
	cfg.Password = settings.MQTT.Password
	cfg.Retain = settings.MQTT.Retain
	if settings.MQTT.Topic != "" {
		cfg.Topic = settings.MQTT.Topic
	}

	client, err := mqtt.NewClient(cfg, m)
	if err != nil {
		return nil, err
	}
	if err := client.Connect(ctx); err != nil {
		GetLogger().Warn("mqtt broker unreachable, predictions will not be published until it recovers",
			logger.String("broker", cfg.Broker),
			logger.Error(err))
	}

	return mqtt.NewPublisher(client, cfg.Topic, settings.Main.Name), nil
}

// Run serves until ctx is canceled or the server fails to start, then shuts down.
func (s *Service) Run(ctx context.Context) error {
	s.Server.Start()
	select {
	case <-ctx.Done():
		GetLogger().Info("shutdown signal received")
		return s.Close()
	case err := <-s.Server.Err():
		return errors.Join(err, s.Close())
	}
}

// Close stops the server and releases the pipeline and publisher.
func (s *Service) Close() error {
	var errs []error
	if s.Server != nil {
		if err := s.Server.Shutdown(); err != nil {
			errs = append(errs, err)
		}
	}
	s.closePublisher()
	if err := s.Components.Close(); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}

func (s *Service) closePublisher() {
	if s.publisher != nil {
		s.publisher.Close()
		s.publisher = nil
	}
}
