package api

import (
	"context"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/tphakala/birdsound-go/internal/errors"
	"github.com/tphakala/birdsound-go/internal/imageprovider"
	"github.com/tphakala/birdsound-go/internal/logger"
	"github.com/tphakala/birdsound-go/internal/pipeline"
	"github.com/tphakala/birdsound-go/internal/species"
)

// AudioField is the multipart form field carrying the clip.
const AudioField = "audio"

// ClassifyResponse is the body of a successful classification.
type ClassifyResponse struct {
	*pipeline.Result
	IllustrationURL string `json:"illustration_url,omitempty"`
}

// SpeciesResponse describes one class of the loaded label map.
type SpeciesResponse struct {
	ClassIndex      int        `json:"class_index"`
	Label           string     `json:"label"`
	ID              species.ID `json:"id"`
	DisplayName     string     `json:"display_name"`
	HasIllustration bool       `json:"has_illustration"`
	IllustrationURL string     `json:"illustration_url,omitempty"`
}

// illustrationURL returns the route serving the image of id.
func illustrationURL(id species.ID) string {
	return "/api/v1/species/" + url.PathEscape(id.String()) + "/illustration"
}

// classify handles POST /api/v1/classify.
func (s *Server) classify(c echo.Context) error {
	fh, err := c.FormFile(AudioField)
	if err != nil {
		var he *echo.HTTPError
		if errors.As(err, &he) {
			return he
		}
		return echo.NewHTTPError(http.StatusBadRequest, `multipart field "audio" is required`).SetInternal(err)
	}

	data, err := readUpload(fh)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "cannot read uploaded clip").SetInternal(err)
	}

	requestID := c.Response().Header().Get(echo.HeaderXRequestID)
	ctx := logger.WithTraceID(c.Request().Context(), requestID)

	if err := s.acquireSlot(ctx); err != nil {
		return echo.NewHTTPError(http.StatusServiceUnavailable, "gave up waiting for a classification slot").SetInternal(err)
	}
	defer s.releaseSlot()

	result, err := s.classifier.Classify(ctx, pipeline.Clip{Name: fh.Filename, Data: data})
	if err != nil {
		return err
	}

	resp := ClassifyResponse{Result: result}
	if result.HasIllustration() {
		resp.IllustrationURL = illustrationURL(result.SpeciesID)
	}
	return c.JSON(http.StatusOK, resp)
}

func readUpload(fh *multipart.FileHeader) ([]byte, error) {
	f, err := fh.Open()
	if err != nil {
		return nil, err
	}
	defer func() { _ = f.Close() }()
	return io.ReadAll(f)
}

// acquireSlot waits for a classification slot or for ctx to end.
func (s *Server) acquireSlot(ctx context.Context) error {
	start := time.Now()
	if err := s.slots.Acquire(ctx, 1); err != nil {
		if s.metrics != nil {
			s.metrics.HTTP.ClassifyRejected()
		}
		return err
	}
	if s.metrics != nil {
		s.metrics.HTTP.ClassifyStarted(time.Since(start).Seconds())
	}
	return nil
}

func (s *Server) releaseSlot() {
	s.slots.Release(1)
	if s.metrics != nil {
		s.metrics.HTTP.ClassifyFinished()
	}
}

// listSpecies handles GET /api/v1/species.
func (s *Server) listSpecies(c echo.Context) error {
	registry, err := s.classifier.Registry()
	if err != nil {
		return err
	}

	classes := registry.Classes()
	out := make([]SpeciesResponse, 0, len(classes))
	for _, class := range classes {
		item := SpeciesResponse{
			ClassIndex:  class.Index,
			Label:       class.Label,
			ID:          class.ID,
			DisplayName: class.DisplayName,
		}
		if s.hasIllustration(class.Species) {
			item.HasIllustration = true
			item.IllustrationURL = illustrationURL(class.ID)
		}
		out = append(out, item)
	}

	return c.JSON(http.StatusOK, out)
}

func (s *Server) hasIllustration(sp species.Species) bool {
	if s.images == nil {
		return false
	}
	_, err := s.images.Fetch(sp)
	switch {
	case err == nil:
		return true
	case errors.Is(err, imageprovider.ErrImageNotFound):
		return false
	default:
		s.log.Warn("illustration lookup failed",
			logger.String("species_id", sp.ID.String()),
			logger.Error(err))
		return false
	}
}

// illustration handles GET /api/v1/species/:id/illustration.
func (s *Server) illustration(c echo.Context) error {
	id := species.ID(c.Param("id"))

	sp, found, err := s.speciesByID(id)
	if err != nil {
		return err
	}
	if !found {
		return echo.NewHTTPError(http.StatusNotFound, "unknown species "+id.String())
	}
	if s.images == nil {
		return echo.NewHTTPError(http.StatusNotFound, "illustrations are not configured")
	}

	ill, err := s.images.Fetch(sp)
	if errors.Is(err, imageprovider.ErrImageNotFound) {
		return echo.NewHTTPError(http.StatusNotFound, "no illustration for "+id.String())
	}
	if err != nil {
		return err
	}

	f, err := s.images.Open(ill)
	if err != nil {
		return err
	}
	defer func() { _ = f.Close() }()

	if ill.ContentType != "" {
		c.Response().Header().Set(echo.HeaderContentType, ill.ContentType)
	}
	http.ServeContent(c.Response(), c.Request(), ill.FileName, ill.ModTime, f)

	if s.metrics != nil {
		s.metrics.ImageProvider.RecordServed(c.Response().Size)
	}
	return nil
}

// speciesByID finds the label map class whose species id is id.
func (s *Server) speciesByID(id species.ID) (species.Species, bool, error) {
	registry, err := s.classifier.Registry()
	if err != nil {
		return species.Species{}, false, err
	}
	class, ok := registry.ByID(id)
	return class.Species, ok, nil
}

// healthCheck handles GET /api/v1/health.
func (s *Server) healthCheck(c echo.Context) error {
	uptime := time.Since(s.startTime)

	return c.JSON(http.StatusOK, map[string]any{
		"status":         "healthy",
		"version":        s.build.Version(),
		"build_date":     s.build.BuildDate(),
		"uptime":         uptime.String(),
		"uptime_seconds": uptime.Seconds(),
		"timestamp":      time.Now().Format(time.RFC3339),
	})
}
