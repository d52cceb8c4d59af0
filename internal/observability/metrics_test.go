package observability

import (
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewMetricsPrivateRegistries(t *testing.T) {
	t.Parallel()

	// each instance owns its registry, so repeated construction never collides
	first, err := NewMetrics()
	require.NoError(t, err)
	second, err := NewMetrics()
	require.NoError(t, err)

	assert.NotSame(t, first.Registry(), second.Registry())
	assert.NotNil(t, first.Pipeline)
	assert.NotNil(t, first.ImageProvider)
	assert.NotNil(t, first.HTTP)
	assert.NotNil(t, first.MQTT)
}

func TestMetricsHandler(t *testing.T) {
	t.Parallel()

	m, err := NewMetrics()
	require.NoError(t, err)
	m.Pipeline.RecordResult("andean-guan", 92)
	m.ImageProvider.IncrementCacheHits()

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", http.NoBody))

	require.Equal(t, http.StatusOK, rec.Code)
	body, err := io.ReadAll(rec.Body)
	require.NoError(t, err)
	assert.Contains(t, string(body), `birdsound_predictions_total{species_id="andean-guan"} 1`)
	assert.Contains(t, string(body), "image_provider_cache_hits_total 1")
	assert.Contains(t, string(body), "go_goroutines")
}
