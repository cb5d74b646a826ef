package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/compasshq/compass-backend/internal/platform/apierr"
	"github.com/compasshq/compass-backend/internal/platform/logger"
	"github.com/compasshq/compass-backend/internal/sse"
)

// APIError is the wire shape of a failure.
type APIError struct {
	Message string `json:"message"`
	Code    string `json:"code,omitempty"`
}

// ErrorEnvelope wraps every non-2xx response body.
type ErrorEnvelope struct {
	Error APIError `json:"error"`
}

// RespondError maps err onto the JSON error envelope. Internal causes
// are logged but never leaked for 5xx responses.
func RespondError(c *gin.Context, log *logger.Logger, err error) {
	status := apierr.StatusOf(err)
	code := apierr.CodeOf(err)

	message := err.Error()
	if status >= http.StatusInternalServerError {
		log.Error("request failed", "path", c.FullPath(), "status", status, "error", err)
		message = "internal server error"
		if code == "" {
			code = "internal_error"
		}
	}
	c.JSON(status, ErrorEnvelope{Error: APIError{Message: message, Code: code}})
}

// StreamError logs internal causes and forwards the failure to an
// in-flight event stream, which masks them on the wire.
func StreamError(stream *sse.Stream, log *logger.Logger, err error) {
	if apierr.StatusOf(err) >= http.StatusInternalServerError {
		log.Error("stream failed", "error", err)
	}
	stream.Error(err)
}

// RespondOK writes data as the 200 response body.
func RespondOK(c *gin.Context, data any) {
	c.JSON(http.StatusOK, data)
}
