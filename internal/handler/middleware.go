package handler

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
)

const (
	contextKeyAccountID = "account_id"

	// SessionCookie carries the signed session token.
	SessionCookie = "timeclock_session"
)

// Sessions resolves and revokes login sessions for the middleware and the
// auth handler.
type Sessions interface {
	Issue(ctx context.Context, accountID int64) (string, error)
	Resolve(ctx context.Context, cookieValue string) (int64, error)
	Destroy(ctx context.Context, cookieValue string) error
	TTL() time.Duration
}

// RequestLogger logs each HTTP request with structured fields.
func RequestLogger() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			start := time.Now()

			err := next(c)

			slog.Info("http request",
				"method", c.Request().Method,
				"path", c.Request().URL.Path,
				"status", c.Response().Status,
				"duration_ms", time.Since(start).Milliseconds(),
				"request_id", c.Response().Header().Get(echo.HeaderXRequestID),
			)

			return err
		}
	}
}

// RequireSession resolves the session cookie and injects the account id into
// echo context. Requests without a valid session are redirected to the login
// page before the wrapped handler can run.
func RequireSession(sessions Sessions) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			cookie, err := c.Cookie(SessionCookie)
			if err != nil {
				return c.Redirect(http.StatusSeeOther, "/login")
			}

			accountID, err := sessions.Resolve(c.Request().Context(), cookie.Value)
			if err != nil {
				return c.Redirect(http.StatusSeeOther, "/login")
			}

			c.Set(contextKeyAccountID, accountID)
			return next(c)
		}
	}
}

// GetAccountID extracts the authenticated account id from echo context.
func GetAccountID(c echo.Context) (int64, bool) {
	id, ok := c.Get(contextKeyAccountID).(int64)
	return id, ok
}
