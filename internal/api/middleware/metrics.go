package middleware

import (
	"time"

	"github.com/labstack/echo/v4"

	"github.com/tphakala/birdsound-go/internal/errors"
	"github.com/tphakala/birdsound-go/internal/observability/metrics"
)

// unmatchedRoute labels requests that hit no registered route, keeping the
// path label bounded.
const unmatchedRoute = "unmatched"

// NewMetrics records request counts, latency and response size per route
// template. It must run outside the request logger so errors are already
// rendered when the status is read.
func NewMetrics(m *metrics.HTTPMetrics) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		if m == nil {
			return next
		}
		return func(c echo.Context) error {
			start := time.Now()
			err := next(c)
			if err != nil && !c.Response().Committed {
				c.Error(err)
			}

			method := c.Request().Method
			path := c.Path()
			if path == "" {
				path = unmatchedRoute
			}

			m.RecordHTTPRequest(method, path, c.Response().Status, time.Since(start).Seconds())
			m.RecordHTTPResponseSize(method, path, c.Response().Size)
			if err != nil {
				m.RecordHTTPRequestError(method, path, errorType(err))
			}
			return err
		}
	}
}

func errorType(err error) string {
	if kind := errors.KindOf(err); kind != "" {
		return string(kind)
	}
	var he *echo.HTTPError
	if errors.As(err, &he) {
		return "http"
	}
	return ""
}
