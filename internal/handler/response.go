package handler

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/mpelkone/timeclock/internal/domain"
)

// HTTPErrorHandler is the global error handler for echo. Authentication
// failures bounce to the login page; everything else renders a plain error
// page with the mapped status code.
func HTTPErrorHandler(err error, c echo.Context) {
	if c.Response().Committed {
		return
	}

	if errors.Is(err, domain.ErrUnauthorized) {
		if redirectErr := c.Redirect(http.StatusSeeOther, "/login"); redirectErr != nil {
			slog.Error("failed to redirect to login", "error", redirectErr)
		}
		return
	}

	status, message := mapError(err)
	if renderErr := c.String(status, message); renderErr != nil {
		slog.Error("failed to send error response", "error", renderErr)
	}
}

func mapError(err error) (int, string) {
	// Handle echo's own HTTP errors (404, 405, etc.)
	var echoErr *echo.HTTPError
	if errors.As(err, &echoErr) {
		msg, _ := echoErr.Message.(string)
		if msg == "" {
			msg = http.StatusText(echoErr.Code)
		}
		return echoErr.Code, msg
	}

	switch {
	case errors.Is(err, domain.ErrNotFound):
		return http.StatusNotFound, "The requested resource was not found."
	case errors.Is(err, domain.ErrForbidden):
		return http.StatusForbidden, "You do not have permission to perform this action."
	case errors.Is(err, domain.ErrInvalidInput):
		return http.StatusBadRequest, "The request is invalid."
	case errors.Is(err, domain.ErrConflict):
		return http.StatusConflict, "The resource already exists or conflicts with current state."
	default:
		var validationErr *domain.ValidationError
		if errors.As(err, &validationErr) {
			return http.StatusBadRequest, validationErr.Message
		}

		slog.Error("unhandled error", "error", err)
		return http.StatusInternalServerError, "An unexpected error occurred."
	}
}
