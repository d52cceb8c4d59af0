package middleware

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tphakala/birdsound-go/internal/errors"
	"github.com/tphakala/birdsound-go/internal/observability/metrics"
)

func TestRateLimiterDisabledPassesThrough(t *testing.T) {
	t.Parallel()

	e := echo.New()
	e.GET("/", func(c echo.Context) error { return c.NoContent(http.StatusNoContent) }, NewRateLimiter(0, 0))

	for range 5 {
		rec := httptest.NewRecorder()
		e.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
		assert.Equal(t, http.StatusNoContent, rec.Code)
	}
}

func TestRateLimiterPerClient(t *testing.T) {
	t.Parallel()

	e := echo.New()
	e.GET("/", func(c echo.Context) error { return c.NoContent(http.StatusNoContent) }, NewRateLimiter(0.001, 2))

	request := func(ip string) int {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.RemoteAddr = ip + ":4000"
		rec := httptest.NewRecorder()
		e.ServeHTTP(rec, req)
		return rec.Code
	}

	assert.Equal(t, http.StatusNoContent, request("192.0.2.1"))
	assert.Equal(t, http.StatusNoContent, request("192.0.2.1"))
	assert.Equal(t, http.StatusTooManyRequests, request("192.0.2.1"))
	assert.Equal(t, http.StatusNoContent, request("192.0.2.2"), "buckets are per client")
}

func TestMetricsRecordsRouteTemplate(t *testing.T) {
	t.Parallel()

	m, err := metrics.NewHTTPMetrics(prometheus.NewRegistry())
	require.NoError(t, err)

	e := echo.New()
	e.Use(NewMetrics(m))
	e.GET("/species/:id", func(c echo.Context) error { return c.String(http.StatusOK, "guan") })
	e.GET("/fail", func(echo.Context) error {
		return errors.WithKind(errors.NewStd("no samples"), errors.KindEmptySignal).Build()
	})

	for _, path := range []string{"/species/andean-guan", "/species/baudo-guan", "/fail"} {
		e.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, path, nil))
	}

	expected := `
# HELP http_request_errors_total Total number of HTTP request errors
# TYPE http_request_errors_total counter
http_request_errors_total{error_type="EmptySignal",method="GET",path="/fail"} 1
`
	require.NoError(t, testutil.CollectAndCompare(m, strings.NewReader(expected), "http_request_errors_total"))

	assert.Equal(t, 2, testutil.CollectAndCount(m, "http_requests_total"), "one series per route template and status")
}

func TestNewMetricsNil(t *testing.T) {
	t.Parallel()

	e := echo.New()
	e.Use(NewMetrics(nil))
	e.GET("/", func(c echo.Context) error { return c.NoContent(http.StatusNoContent) })

	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusNoContent, rec.Code)
}

func TestErrorType(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		err  error
		want string
	}{
		{"kind", errors.KindModelUnavailable, "ModelUnavailable"},
		{"http error", echo.NewHTTPError(http.StatusBadRequest), "http"},
		{"plain", errors.NewStd("boom"), ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, errorType(tt.err))
		})
	}
}
