// internal/pkg/response/response.go
package response

import (
	"errors"
	"net/http"

	xerrors "ledgerdesk/internal/pkg/errors"
	"ledgerdesk/internal/pkg/validate"

	"github.com/gin-gonic/gin"
)

// Response defines the standard API response format.
type Response struct {
	Success bool        `json:"success"`
	Message string      `json:"message"`
	Data    interface{} `json:"data,omitempty"`
	Error   string      `json:"error,omitempty"`
}

// Success sends a successful response with a message and optional data.
func Success(c *gin.Context, status int, message string, data interface{}) {
	if status == 0 {
		status = http.StatusOK
	}

	c.JSON(status, Response{
		Success: true,
		Message: message,
		Data:    data,
	})
}

// Error sends a standardized error response.
func Error(c *gin.Context, code int, message string, err error, data ...interface{}) {
	// Abort before writing so later handlers in the chain never run.
	c.Abort()

	resp := Response{
		Success: false,
		Message: message,
	}

	if err != nil {
		resp.Error = err.Error()
	}

	if len(data) > 0 {
		resp.Data = data[0]
	}

	c.JSON(code, resp)
}

// FromError picks the status from the wrapped sentinel. Internal errors are not echoed.
func FromError(c *gin.Context, message string, err error) {
	code := xerrors.StatusCode(err)
	if code == http.StatusInternalServerError {
		Error(c, code, message, xerrors.ErrInternal)
		return
	}
	Error(c, code, message, err)
}

// ValidationError sends a 400 Bad Request response for invalid input.
func ValidationError(c *gin.Context, message string, err error) {
	Error(c, http.StatusBadRequest, message, err)
}

// BindError reports a failed ShouldBind with per-field messages when available.
func BindError(c *gin.Context, err error) {
	err = validate.Translate(err)
	var fields validate.FieldErrors
	if errors.As(err, &fields) {
		Error(c, http.StatusBadRequest, "validation failed", err, fields)
		return
	}
	Error(c, http.StatusBadRequest, "invalid request", err)
}

// Unauthorized sends a 401 Unauthorized response.
func Unauthorized(c *gin.Context, message string) {
	Error(c, http.StatusUnauthorized, message, nil)
}

// Forbidden sends a 403 Forbidden response.
func Forbidden(c *gin.Context, message string) {
	Error(c, http.StatusForbidden, message, nil)
}

// NotFound sends a 404 Not Found response.
func NotFound(c *gin.Context, message string) {
	Error(c, http.StatusNotFound, message, nil)
}
