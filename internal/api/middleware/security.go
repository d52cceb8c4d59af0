package middleware

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
)

// apiContentSecurityPolicy allows nothing but same-origin images, which is
// all an illustration response needs.
const apiContentSecurityPolicy = "default-src 'none'; img-src 'self'; frame-ancestors 'none'"

// SecurityConfig holds the cross-origin and header settings for the API.
type SecurityConfig struct {
	AllowedOrigins []string
	// HSTSMaxAge is only sent over TLS; 0 disables the header.
	HSTSMaxAge            int
	ContentSecurityPolicy string
}

// DefaultSecurityConfig returns an open CORS policy for the unauthenticated API.
func DefaultSecurityConfig() SecurityConfig {
	return SecurityConfig{
		AllowedOrigins:        []string{"*"},
		ContentSecurityPolicy: apiContentSecurityPolicy,
	}
}

// NewCORS lets browser clients upload clips and read the request id header.
func NewCORS(config SecurityConfig) echo.MiddlewareFunc {
	return middleware.CORSWithConfig(middleware.CORSConfig{
		AllowOrigins: config.AllowedOrigins,
		AllowMethods: []string{http.MethodGet, http.MethodHead, http.MethodPost, http.MethodOptions},
		AllowHeaders: []string{
			echo.HeaderOrigin,
			echo.HeaderContentType,
			echo.HeaderAccept,
			echo.HeaderXRequestID,
		},
		ExposeHeaders: []string{echo.HeaderXRequestID},
	})
}

// NewSecureHeaders sets nosniff, frame and CSP headers on every response.
func NewSecureHeaders(config SecurityConfig) echo.MiddlewareFunc {
	return middleware.SecureWithConfig(middleware.SecureConfig{
		ContentTypeNosniff:    "nosniff",
		XFrameOptions:         "DENY",
		HSTSMaxAge:            config.HSTSMaxAge,
		ContentSecurityPolicy: config.ContentSecurityPolicy,
		ReferrerPolicy:        "no-referrer",
	})
}

// NewBodyLimit rejects uploads larger than limit (e.g. "25M") with 413.
func NewBodyLimit(limit string) echo.MiddlewareFunc {
	return middleware.BodyLimit(limit)
}
