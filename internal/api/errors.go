package api

import (
	"fmt"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/tphakala/birdsound-go/internal/errors"
	"github.com/tphakala/birdsound-go/internal/logger"
)

// errorInternal is reported for failures that carry no Kind.
const errorInternal = "InternalError"

// ErrorResponse is the JSON body of every failed request.
type ErrorResponse struct {
	Error     string `json:"error"` // error kind, or the HTTP status text
	Message   string `json:"message"`
	Code      int    `json:"code"`
	RequestID string `json:"request_id,omitempty"`
}

// StatusForKind maps a classification failure to an HTTP status.
func StatusForKind(kind errors.Kind) int {
	switch kind {
	case errors.KindUnsupportedFormat:
		return http.StatusUnsupportedMediaType
	case errors.KindEmptySignal:
		return http.StatusUnprocessableEntity
	case errors.KindModelUnavailable:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// NewErrorResponse renders err for a client.
func NewErrorResponse(err error, requestID string) *ErrorResponse {
	var he *echo.HTTPError
	if errors.As(err, &he) {
		return &ErrorResponse{
			Error:     http.StatusText(he.Code),
			Message:   fmt.Sprint(he.Message),
			Code:      he.Code,
			RequestID: requestID,
		}
	}

	if kind := errors.KindOf(err); kind != "" {
		return &ErrorResponse{
			Error:     string(kind),
			Message:   err.Error(),
			Code:      StatusForKind(kind),
			RequestID: requestID,
		}
	}

	return &ErrorResponse{
		Error:     errorInternal,
		Message:   http.StatusText(http.StatusInternalServerError),
		Code:      http.StatusInternalServerError,
		RequestID: requestID,
	}
}

// handleError is the echo HTTPErrorHandler.
func (s *Server) handleError(err error, c echo.Context) {
	if c.Response().Committed {
		return
	}

	resp := NewErrorResponse(err, c.Response().Header().Get(echo.HeaderXRequestID))
	if resp.Code >= http.StatusInternalServerError {
		s.log.Error("request failed",
			logger.String("request_id", resp.RequestID),
			logger.String("path", c.Path()),
			logger.String("kind", resp.Error),
			logger.Error(err))
	}

	var writeErr error
	if c.Request().Method == http.MethodHead {
		writeErr = c.NoContent(resp.Code)
	} else {
		writeErr = c.JSON(resp.Code, resp)
	}
	if writeErr != nil {
		s.log.Debug("failed to write error response", logger.Error(writeErr))
	}
}
