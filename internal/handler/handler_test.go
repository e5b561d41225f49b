package handler

import (
	"context"
	"crypto/tls"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mpelkone/timeclock/internal/domain"
	"github.com/mpelkone/timeclock/internal/service"
)

func newTestEcho(t *testing.T) *echo.Echo {
	t.Helper()

	renderer, err := NewRenderer()
	require.NoError(t, err)

	e := echo.New()
	e.Renderer = renderer
	e.Validator = NewAppValidator()
	e.HTTPErrorHandler = HTTPErrorHandler
	return e
}

type fakeSessions struct {
	tokens map[string]int64
	nextID int
}

func newFakeSessions() *fakeSessions {
	return &fakeSessions{tokens: make(map[string]int64)}
}

func (s *fakeSessions) Issue(_ context.Context, accountID int64) (string, error) {
	s.nextID++
	token := "tok-" + strings.Repeat("x", s.nextID)
	s.tokens[token] = accountID
	return token, nil
}

func (s *fakeSessions) Resolve(_ context.Context, cookieValue string) (int64, error) {
	accountID, ok := s.tokens[cookieValue]
	if !ok {
		return 0, domain.ErrUnauthorized
	}
	return accountID, nil
}

func (s *fakeSessions) Destroy(_ context.Context, cookieValue string) error {
	delete(s.tokens, cookieValue)
	return nil
}

func (s *fakeSessions) TTL() time.Duration { return time.Hour }

type fakeAuth struct {
	accountID   int64
	authErr     error
	registerErr error

	registered []string
}

func (a *fakeAuth) Authenticate(_ context.Context, name, _ string) (int64, error) {
	if a.authErr != nil {
		return 0, a.authErr
	}
	return a.accountID, nil
}

func (a *fakeAuth) Register(_ context.Context, name, _, _ string) error {
	if a.registerErr != nil {
		return a.registerErr
	}
	a.registered = append(a.registered, name)
	return nil
}

type fakeAccounts struct{}

func (fakeAccounts) GetAccount(_ context.Context, id int64) (*domain.Account, error) {
	return &domain.Account{ID: id, Name: "erkki"}, nil
}

type fakeTracker struct {
	startCalls []int64
	overview   service.Overview
	finished   []domain.ProjectSummary
}

func (tr *fakeTracker) Start(_ context.Context, _, projectID int64) (bool, error) {
	tr.startCalls = append(tr.startCalls, projectID)
	return true, nil
}

func (tr *fakeTracker) Stop(context.Context, int64, int64) (bool, error)   { return true, nil }
func (tr *fakeTracker) Finish(context.Context, int64, int64) (bool, error) { return true, nil }

func (tr *fakeTracker) CreateProject(_ context.Context, accountID, companyID int64, name string) (*domain.Project, error) {
	return &domain.Project{ID: 1, Name: name, CompanyID: companyID, UserID: accountID, State: domain.StatePaused}, nil
}

func (tr *fakeTracker) Companies(context.Context) ([]domain.Company, error) {
	return []domain.Company{{ID: 1, Name: "Internal"}}, nil
}

func (tr *fakeTracker) Overview(context.Context, int64) (*service.Overview, error) {
	return &tr.overview, nil
}

func (tr *fakeTracker) Finished(context.Context, int64) ([]domain.ProjectSummary, error) {
	return tr.finished, nil
}

func flashValue(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()
	for _, cookie := range rec.Result().Cookies() {
		if cookie.Name == flashCookie && cookie.MaxAge >= 0 {
			value, err := url.QueryUnescape(cookie.Value)
			require.NoError(t, err)
			return value
		}
	}
	return ""
}

func sessionCookieValue(rec *httptest.ResponseRecorder) *http.Cookie {
	for _, cookie := range rec.Result().Cookies() {
		if cookie.Name == SessionCookie {
			return cookie
		}
	}
	return nil
}

func TestRequireSessionRedirectsWithoutCookie(t *testing.T) {
	e := newTestEcho(t)
	e.GET("/app", func(c echo.Context) error { return c.String(http.StatusOK, "data") },
		RequireSession(newFakeSessions()))

	req := httptest.NewRequest(http.MethodGet, "/app", nil)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, "/login", rec.Header().Get("Location"))
	assert.NotContains(t, rec.Body.String(), "data")
}

func TestRequireSessionAcceptsValidSession(t *testing.T) {
	sessions := newFakeSessions()
	token, err := sessions.Issue(context.Background(), 42)
	require.NoError(t, err)

	e := newTestEcho(t)
	e.GET("/app", func(c echo.Context) error {
		accountID, ok := GetAccountID(c)
		require.True(t, ok)
		assert.Equal(t, int64(42), accountID)
		return c.String(http.StatusOK, "ok")
	}, RequireSession(sessions))

	req := httptest.NewRequest(http.MethodGet, "/app", nil)
	req.AddCookie(&http.Cookie{Name: SessionCookie, Value: token})
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestLoginSuccessSetsSessionCookie(t *testing.T) {
	sessions := newFakeSessions()
	h := NewAuthHandler(&fakeAuth{accountID: 7}, sessions, false)

	e := newTestEcho(t)
	e.POST("/login", h.Login)

	form := url.Values{"username": {"erkki"}, "password": {"some password"}}
	req := httptest.NewRequest(http.MethodPost, "/login", strings.NewReader(form.Encode()))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationForm)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, "/app", rec.Header().Get("Location"))

	cookie := sessionCookieValue(rec)
	require.NotNil(t, cookie)
	accountID, err := sessions.Resolve(context.Background(), cookie.Value)
	require.NoError(t, err)
	assert.Equal(t, int64(7), accountID)
}

func TestLoginFailureFlashesGenericMessage(t *testing.T) {
	h := NewAuthHandler(&fakeAuth{authErr: domain.ErrInvalidCredentials}, newFakeSessions(), false)

	e := newTestEcho(t)
	e.POST("/login", h.Login)

	form := url.Values{"username": {"erkki"}, "password": {"wrong password"}}
	req := httptest.NewRequest(http.MethodPost, "/login", strings.NewReader(form.Encode()))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationForm)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, "/login", rec.Header().Get("Location"))
	assert.Equal(t, "Invalid username or password.", flashValue(t, rec))
	assert.Nil(t, sessionCookieValue(rec))
}

func TestFlashCookieSecureOverTLS(t *testing.T) {
	h := NewAuthHandler(&fakeAuth{authErr: domain.ErrInvalidCredentials}, newFakeSessions(), true)

	e := newTestEcho(t)
	e.POST("/login", h.Login)

	form := url.Values{"username": {"erkki"}, "password": {"wrong password"}}
	req := httptest.NewRequest(http.MethodPost, "https://example.test/login", strings.NewReader(form.Encode()))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationForm)
	req.TLS = &tls.ConnectionState{}
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)

	var flash *http.Cookie
	for _, cookie := range rec.Result().Cookies() {
		if cookie.Name == flashCookie {
			flash = cookie
		}
	}
	require.NotNil(t, flash)
	assert.True(t, flash.Secure, "flash cookie must be Secure on TLS requests")
}

func TestFlashCookiePlainHTTP(t *testing.T) {
	h := NewAuthHandler(&fakeAuth{authErr: domain.ErrInvalidCredentials}, newFakeSessions(), false)

	e := newTestEcho(t)
	e.POST("/login", h.Login)

	form := url.Values{"username": {"erkki"}, "password": {"wrong password"}}
	req := httptest.NewRequest(http.MethodPost, "/login", strings.NewReader(form.Encode()))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationForm)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)

	var flash *http.Cookie
	for _, cookie := range rec.Result().Cookies() {
		if cookie.Name == flashCookie {
			flash = cookie
		}
	}
	require.NotNil(t, flash)
	assert.False(t, flash.Secure)
}

func TestLoginMissingFieldsRendersForm(t *testing.T) {
	h := NewAuthHandler(&fakeAuth{accountID: 7}, newFakeSessions(), false)

	e := newTestEcho(t)
	e.POST("/login", h.Login)

	form := url.Values{"username": {"erkki"}}
	req := httptest.NewRequest(http.MethodPost, "/login", strings.NewReader(form.Encode()))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationForm)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "Log in")
}

func TestRegisterSuccessRedirectsToLogin(t *testing.T) {
	auth := &fakeAuth{}
	h := NewAuthHandler(auth, newFakeSessions(), false)

	e := newTestEcho(t)
	e.POST("/register", h.Register)

	form := url.Values{
		"username":  {"erkki.esimerkki"},
		"password":  {"long enough pw"},
		"repeat_pw": {"long enough pw"},
	}
	req := httptest.NewRequest(http.MethodPost, "/register", strings.NewReader(form.Encode()))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationForm)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, "/login", rec.Header().Get("Location"))
	assert.Equal(t, []string{"erkki.esimerkki"}, auth.registered)
	assert.Contains(t, flashValue(t, rec), "successfully created")
}

func TestRegisterValidationFailureFlashesMessage(t *testing.T) {
	auth := &fakeAuth{registerErr: &domain.ValidationError{
		Field:   "password",
		Message: "Password must be at least 10 characters.",
	}}
	h := NewAuthHandler(auth, newFakeSessions(), false)

	e := newTestEcho(t)
	e.POST("/register", h.Register)

	form := url.Values{
		"username":  {"erkki"},
		"password":  {"shortpw"},
		"repeat_pw": {"shortpw"},
	}
	req := httptest.NewRequest(http.MethodPost, "/register", strings.NewReader(form.Encode()))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationForm)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, "/register", rec.Header().Get("Location"))
	assert.Equal(t, "Password must be at least 10 characters.", flashValue(t, rec))
}

func TestLogoutDestroysSession(t *testing.T) {
	sessions := newFakeSessions()
	token, err := sessions.Issue(context.Background(), 7)
	require.NoError(t, err)

	h := NewAuthHandler(&fakeAuth{}, sessions, false)
	e := newTestEcho(t)
	e.GET("/logout", h.Logout)

	req := httptest.NewRequest(http.MethodGet, "/logout", nil)
	req.AddCookie(&http.Cookie{Name: SessionCookie, Value: token})
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, "/login", rec.Header().Get("Location"))

	_, err = sessions.Resolve(context.Background(), token)
	assert.ErrorIs(t, err, domain.ErrUnauthorized)
}

func TestManagerRendersOverview(t *testing.T) {
	tracker := &fakeTracker{overview: service.Overview{
		Active: []domain.ProjectSummary{
			{ID: 2, Name: "Running one", Company: "Acme Oy", State: domain.StateRunning, Elapsed: 90 * time.Second},
		},
		TodaysTotal: time.Hour,
	}}
	sessions := newFakeSessions()
	token, err := sessions.Issue(context.Background(), 7)
	require.NoError(t, err)

	h := NewTrackerHandler(tracker, fakeAccounts{})
	e := newTestEcho(t)
	e.GET("/app", h.Manager, RequireSession(sessions))

	req := httptest.NewRequest(http.MethodGet, "/app", nil)
	req.AddCookie(&http.Cookie{Name: SessionCookie, Value: token})
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "Running one")
	assert.Contains(t, rec.Body.String(), "00:01:30")
	assert.Contains(t, rec.Body.String(), "01:00:00")
	assert.Contains(t, rec.Body.String(), "Logged in as erkki")
}

func TestStartRedirectsToManager(t *testing.T) {
	tracker := &fakeTracker{}
	sessions := newFakeSessions()
	token, err := sessions.Issue(context.Background(), 7)
	require.NoError(t, err)

	h := NewTrackerHandler(tracker, fakeAccounts{})
	e := newTestEcho(t)
	e.GET("/start/:id", h.Start, RequireSession(sessions))

	req := httptest.NewRequest(http.MethodGet, "/start/5", nil)
	req.AddCookie(&http.Cookie{Name: SessionCookie, Value: token})
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, "/app", rec.Header().Get("Location"))
	assert.Equal(t, []int64{5}, tracker.startCalls)
}

func TestStartMalformedIDStillRedirects(t *testing.T) {
	tracker := &fakeTracker{}
	sessions := newFakeSessions()
	token, err := sessions.Issue(context.Background(), 7)
	require.NoError(t, err)

	h := NewTrackerHandler(tracker, fakeAccounts{})
	e := newTestEcho(t)
	e.GET("/start/:id", h.Start, RequireSession(sessions))

	req := httptest.NewRequest(http.MethodGet, "/start/bogus", nil)
	req.AddCookie(&http.Cookie{Name: SessionCookie, Value: token})
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, "/app", rec.Header().Get("Location"))
	assert.Empty(t, tracker.startCalls)
}
