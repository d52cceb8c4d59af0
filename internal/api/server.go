package api

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"golang.org/x/sync/semaphore"

	mw "github.com/tphakala/birdsound-go/internal/api/middleware"
	"github.com/tphakala/birdsound-go/internal/buildinfo"
	"github.com/tphakala/birdsound-go/internal/errors"
	"github.com/tphakala/birdsound-go/internal/imageprovider"
	"github.com/tphakala/birdsound-go/internal/logger"
	"github.com/tphakala/birdsound-go/internal/observability"
	"github.com/tphakala/birdsound-go/internal/pipeline"
	"github.com/tphakala/birdsound-go/internal/species"
)

// Classifier is the part of the pipeline the HTTP boundary uses.
type Classifier interface {
	Classify(ctx context.Context, clip pipeline.Clip) (*pipeline.Result, error)
	Registry() (*species.Registry, error)
}

// Illustrations looks up and opens species images.
type Illustrations interface {
	imageprovider.ImageProvider
	imageprovider.Opener
}

// Server is the HTTP server for birdsound.
type Server struct {
	echo   *echo.Echo
	config *Config
	log    logger.Logger

	// Dependencies
	classifier Classifier
	images     Illustrations
	metrics    *observability.Metrics
	build      buildinfo.BuildInfo

	// classification slots
	slots *semaphore.Weighted

	// Lifecycle management
	wg        sync.WaitGroup
	serveErr  chan error
	startTime time.Time
}

// ServerOption is a functional option for configuring the Server.
type ServerOption func(*Server)

// WithLogger sets the server logger.
func WithLogger(log logger.Logger) ServerOption {
	return func(s *Server) {
		s.log = log
	}
}

// WithIllustrations enables the illustration route.
func WithIllustrations(images Illustrations) ServerOption {
	return func(s *Server) {
		s.images = images
	}
}

// WithMetrics sets the observability metrics for the server.
func WithMetrics(m *observability.Metrics) ServerOption {
	return func(s *Server) {
		s.metrics = m
	}
}

// WithBuildInfo sets the version reported by the health endpoint.
func WithBuildInfo(info buildinfo.BuildInfo) ServerOption {
	return func(s *Server) {
		s.build = info
	}
}

// New creates a new HTTP server classifying clips with classifier.
func New(config *Config, classifier Classifier, opts ...ServerOption) (*Server, error) {
	if config == nil {
		config = DefaultConfig()
	}
	if err := config.Validate(); err != nil {
		return nil, errors.New(fmt.Errorf("invalid server configuration: %w", err)).
			Component("api").
			Category(errors.CategoryConfiguration).
			Build()
	}
	if classifier == nil {
		return nil, errors.Newf("api server requires a classifier").
			Component("api").
			Category(errors.CategoryConfiguration).
			Build()
	}

	s := &Server{
		config:     config,
		classifier: classifier,
		slots:      semaphore.NewWeighted(int64(config.MaxConcurrent)),
		serveErr:   make(chan error, 1),
		startTime:  time.Now(),
	}

	for _, opt := range opts {
		opt(s)
	}

	if s.log == nil {
		s.log = GetLogger()
	}
	if s.build == nil {
		s.build = buildinfo.NewContext("", "")
	}

	s.echo = echo.New()
	s.echo.HideBanner = true
	s.echo.HidePort = true
	s.echo.Debug = config.Debug
	s.echo.HTTPErrorHandler = s.handleError

	s.echo.Server.ReadTimeout = config.ReadTimeout
	s.echo.Server.WriteTimeout = config.WriteTimeout
	s.echo.Server.IdleTimeout = config.IdleTimeout

	s.setupMiddleware()
	s.setupRoutes()

	s.log.Info("HTTP server initialized",
		logger.String("address", config.Address()),
		logger.Int("max_concurrent", config.MaxConcurrent),
		logger.Bool("debug", config.Debug))

	return s, nil
}

// setupMiddleware configures the Echo middleware stack.
func (s *Server) setupMiddleware() {
	// Recovery middleware - should be first
	s.echo.Use(echomw.Recover())

	s.echo.Use(echomw.RequestIDWithConfig(echomw.RequestIDConfig{
		Generator: uuid.NewString,
	}))

	if s.metrics != nil {
		s.echo.Use(mw.NewMetrics(s.metrics.HTTP))
	}

	s.echo.Use(mw.NewRequestLogger(s.log.Module("http")))

	securityConfig := mw.DefaultSecurityConfig()
	securityConfig.AllowedOrigins = s.config.AllowedOrigins

	s.echo.Use(mw.NewCORS(securityConfig))
	s.echo.Use(mw.NewBodyLimit(s.config.BodyLimit))
	s.echo.Use(mw.NewSecureHeaders(securityConfig))
}

// setupRoutes configures all HTTP routes.
func (s *Server) setupRoutes() {
	v1 := s.echo.Group("/api/v1")

	v1.GET("/health", s.healthCheck)
	v1.POST("/classify", s.classify, mw.NewRateLimiter(s.config.RateLimit, s.config.RateBurst))
	v1.GET("/species", s.listSpecies)
	v1.GET("/species/:id/illustration", s.illustration)

	if s.metrics != nil && s.config.MetricsPath != "" {
		s.echo.GET(s.config.MetricsPath, echo.WrapHandler(s.metrics.Handler()))
	}
}

// Start begins serving HTTP requests in a background goroutine and returns
// immediately. A failure to bind or serve is delivered on Err. Use Shutdown
// to stop the server.
func (s *Server) Start() {
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		if err := s.startBlocking(); err != nil {
			s.log.Error("server error", logger.Error(err))
			s.serveErr <- err
		}
	}()
}

// Err receives the error that stopped the server, such as an address already
// in use. It never receives after a clean Shutdown.
func (s *Server) Err() <-chan error {
	return s.serveErr
}

// startBlocking serves HTTP requests until the server is shut down.
func (s *Server) startBlocking() error {
	addr := s.config.Address()
	s.log.Info("starting HTTP server", logger.String("address", addr))

	if err := s.echo.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return errors.New(fmt.Errorf("server error: %w", err)).
			Component("api").
			Category(errors.CategorySystem).
			Context("address", addr).
			Build()
	}
	return nil
}

// Shutdown gracefully stops the server.
func (s *Server) Shutdown() error {
	ctx, cancel := context.WithTimeout(context.Background(), s.config.ShutdownTimeout)
	defer cancel()

	if err := s.echo.Shutdown(ctx); err != nil {
		s.log.Error("error during server shutdown", logger.Error(err))
		return fmt.Errorf("shutdown error: %w", err)
	}

	s.wg.Wait()

	s.log.Info("server shutdown complete")
	return nil
}

// Echo returns the underlying Echo instance.
func (s *Server) Echo() *echo.Echo {
	return s.echo
}
