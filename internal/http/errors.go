package http

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/adamkwhite/claude-memory-mcp-sub001/internal/pathguard"
	"github.com/adamkwhite/claude-memory-mcp-sub001/internal/sanitize"
)

// statusFor maps domain errors to HTTP status codes and a reason label.
func statusFor(err error) (int, string) {
	switch {
	case sanitize.IsValidationError(err):
		return http.StatusBadRequest, "validation_error"
	case errors.Is(err, pathguard.ErrSecurity):
		return http.StatusForbidden, "security_error"
	default:
		return http.StatusInternalServerError, "storage_error"
	}
}

// writeError renders err as an ErrorResponse. Internal error details are not
// exposed to clients.
func writeError(c echo.Context, err error) error {
	status, reason := statusFor(err)
	msg := err.Error()
	if status == http.StatusInternalServerError {
		msg = "failed to store conversation"
	}
	return c.JSON(status, ErrorResponse{Error: msg, Reason: reason})
}
