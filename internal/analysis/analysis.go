// Package analysis builds the classification pipeline from settings and runs
// it for a single file, for the species listing or as an HTTP service.
package analysis

import (
	"github.com/spf13/afero"

	"github.com/tphakala/birdsound-go/internal/conf"
	"github.com/tphakala/birdsound-go/internal/errors"
	"github.com/tphakala/birdsound-go/internal/features"
	"github.com/tphakala/birdsound-go/internal/imageprovider"
	"github.com/tphakala/birdsound-go/internal/logger"
	"github.com/tphakala/birdsound-go/internal/model"
	"github.com/tphakala/birdsound-go/internal/pipeline"
	"github.com/tphakala/birdsound-go/internal/species"
)

// GetLogger returns the analysis logger.
func GetLogger() logger.Logger {
	return logger.Global().Module("analysis")
}

// Components is the pipeline together with the lookups built for it.
type Components struct {
	Pipeline *pipeline.Pipeline
	Catalog  *species.Catalog         // nil without species.catalog
	Images   *imageprovider.ImageCache // nil without illustrations.path
}

// PipelineConfig translates settings into a pipeline configuration.
func PipelineConfig(settings *conf.Settings) pipeline.Config {
	return pipeline.Config{
		LabelsPath: settings.Labels.Path,
		Model: model.Config{
			Path:        settings.Model.Path,
			Backend:     settings.Model.Backend,
			Threads:     settings.Model.Threads,
			ONNXRuntime: settings.Model.ONNXRuntime,
			InputName:   settings.Model.InputName,
			OutputName:  settings.Model.OutputName,
		},
		Features: features.Config{
			SampleRate:      settings.Features.SampleRate,
			NumCoefficients: settings.Features.NumCoefficients,
			FFTSize:         settings.Features.FFTSize,
			HopLength:       settings.Features.HopLength,
			MelBands:        settings.Features.MelBands,
			FMin:            settings.Features.FMin,
			FMax:            settings.Features.FMax,
			TopDB:           settings.Features.TopDB,
		},
		CacheArtifacts: settings.Pipeline.CacheArtifacts,
	}
}

// NewComponents loads the species catalog, prepares illustration lookup and
// builds the pipeline on fsys. Label maps and models load on first use.
func NewComponents(settings *conf.Settings, fsys afero.Fs, opts ...pipeline.Option) (*Components, error) {
	if settings == nil {
		return nil, errors.Newf("settings are required").
			Component("analysis").
			Category(errors.CategoryConfiguration).
			Build()
	}

	c := &Components{}

	if settings.Species.Catalog != "" {
		catalog, err := species.LoadCatalog(fsys, settings.Species.Catalog)
		if err != nil {
			return nil, err
		}
		c.Catalog = catalog
	}

	if settings.Illustrations.Path != "" {
		provider := imageprovider.NewDirectoryProvider(fsys, settings.Illustrations.Path, settings.Illustrations.Extensions)
		c.Images = imageprovider.NewImageCache(provider, settings.Illustrations.CacheTTL)
	}

	base := []pipeline.Option{
		pipeline.WithFS(fsys),
		pipeline.WithCatalog(c.Catalog),
	}
	if c.Images != nil {
		base = append(base, pipeline.WithImages(c.Images))
	}

	p, err := pipeline.New(PipelineConfig(settings), append(base, opts...)...)
	if err != nil {
		return nil, err
	}
	c.Pipeline = p

	GetLogger().Debug("pipeline ready",
		logger.String("labels", settings.Labels.Path),
		logger.String("model", settings.Model.Path),
		logger.Bool("catalog", c.Catalog != nil),
		logger.Bool("illustrations", c.Images != nil))

	return c, nil
}

// Close releases the pipeline.
func (c *Components) Close() error {
	if c == nil || c.Pipeline == nil {
		return nil
	}
	return c.Pipeline.Close()
}
