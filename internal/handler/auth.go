package handler

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/mpelkone/timeclock/internal/domain"
)

// Authenticator is the auth service interface consumed by AuthHandler.
type Authenticator interface {
	Authenticate(ctx context.Context, name, password string) (int64, error)
	Register(ctx context.Context, name, password, repeat string) error
}

// AuthHandler handles the login, registration and logout pages.
type AuthHandler struct {
	auth     Authenticator
	sessions Sessions
	secure   bool
}

// NewAuthHandler creates a new AuthHandler. secure controls the Secure flag
// on the session cookie.
func NewAuthHandler(auth Authenticator, sessions Sessions, secure bool) *AuthHandler {
	return &AuthHandler{auth: auth, sessions: sessions, secure: secure}
}

type loginForm struct {
	Username string `form:"username" validate:"required"`
	Password string `form:"password" validate:"required"`
}

type registerForm struct {
	Username string `form:"username" validate:"required"`
	Password string `form:"password" validate:"required"`
	RepeatPw string `form:"repeat_pw" validate:"required"`
}

type authPage struct {
	Flash string
}

// LoginPage renders the login form, or goes straight to the manager when the
// visitor already has a session.
func (h *AuthHandler) LoginPage(c echo.Context) error {
	if h.loggedIn(c) {
		return c.Redirect(http.StatusSeeOther, "/app")
	}
	return c.Render(http.StatusOK, "login.html", authPage{Flash: popFlash(c)})
}

// Login authenticates the posted credentials and establishes a session.
// Any existing session is destroyed first, so a failed attempt never leaves
// stale state behind.
func (h *AuthHandler) Login(c echo.Context) error {
	h.clearSession(c)

	var form loginForm
	if err := c.Bind(&form); err != nil || c.Validate(&form) != nil {
		return c.Render(http.StatusOK, "login.html", authPage{})
	}

	ctx := c.Request().Context()
	accountID, err := h.auth.Authenticate(ctx, form.Username, form.Password)
	if err != nil {
		if errors.Is(err, domain.ErrInvalidCredentials) {
			setFlash(c, "Invalid username or password.")
			return c.Redirect(http.StatusSeeOther, "/login")
		}
		return err
	}

	token, err := h.sessions.Issue(ctx, accountID)
	if err != nil {
		return err
	}
	h.setSessionCookie(c, token, int(h.sessions.TTL().Seconds()))
	return c.Redirect(http.StatusSeeOther, "/app")
}

// RegisterPage renders the registration form.
func (h *AuthHandler) RegisterPage(c echo.Context) error {
	if h.loggedIn(c) {
		return c.Redirect(http.StatusSeeOther, "/app")
	}
	return c.Render(http.StatusOK, "register.html", authPage{Flash: popFlash(c)})
}

// Register creates a new account from the posted form.
func (h *AuthHandler) Register(c echo.Context) error {
	h.clearSession(c)

	var form registerForm
	if err := c.Bind(&form); err != nil || c.Validate(&form) != nil {
		return c.Render(http.StatusOK, "register.html", authPage{})
	}

	err := h.auth.Register(c.Request().Context(), form.Username, form.Password, form.RepeatPw)
	if err != nil {
		var validationErr *domain.ValidationError
		switch {
		case errors.As(err, &validationErr):
			setFlash(c, validationErr.Message)
			return c.Redirect(http.StatusSeeOther, "/register")
		case errors.Is(err, domain.ErrConflict):
			setFlash(c, "Username already exists.")
			return c.Redirect(http.StatusSeeOther, "/register")
		default:
			return err
		}
	}

	setFlash(c, fmt.Sprintf("User %s has been successfully created.", form.Username))
	return c.Redirect(http.StatusSeeOther, "/login")
}

// Logout destroys the current session, if any, and returns to the login page.
func (h *AuthHandler) Logout(c echo.Context) error {
	h.clearSession(c)
	return c.Redirect(http.StatusSeeOther, "/login")
}

func (h *AuthHandler) loggedIn(c echo.Context) bool {
	cookie, err := c.Cookie(SessionCookie)
	if err != nil {
		return false
	}
	_, err = h.sessions.Resolve(c.Request().Context(), cookie.Value)
	return err == nil
}

func (h *AuthHandler) clearSession(c echo.Context) {
	cookie, err := c.Cookie(SessionCookie)
	if err != nil {
		return
	}
	if err := h.sessions.Destroy(c.Request().Context(), cookie.Value); err != nil {
		// Logout must succeed from the caller's point of view either way.
		slog.Warn("session destroy failed", "error", err)
	}
	h.setSessionCookie(c, "", -1)
}

func (h *AuthHandler) setSessionCookie(c echo.Context, value string, maxAge int) {
	c.SetCookie(&http.Cookie{
		Name:     SessionCookie,
		Value:    value,
		Path:     "/",
		MaxAge:   maxAge,
		HttpOnly: true,
		Secure:   h.secure,
		SameSite: http.SameSiteLaxMode,
	})
}
