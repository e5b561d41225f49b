package handler

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/mpelkone/timeclock/internal/domain"
	"github.com/mpelkone/timeclock/internal/service"
)

// Tracker is the tracker service interface consumed by TrackerHandler.
type Tracker interface {
	Start(ctx context.Context, accountID, projectID int64) (bool, error)
	Stop(ctx context.Context, accountID, projectID int64) (bool, error)
	Finish(ctx context.Context, accountID, projectID int64) (bool, error)
	CreateProject(ctx context.Context, accountID, companyID int64, name string) (*domain.Project, error)
	Companies(ctx context.Context) ([]domain.Company, error)
	Overview(ctx context.Context, accountID int64) (*service.Overview, error)
	Finished(ctx context.Context, accountID int64) ([]domain.ProjectSummary, error)
}

// AccountLookup resolves account ids to accounts for display purposes.
type AccountLookup interface {
	GetAccount(ctx context.Context, id int64) (*domain.Account, error)
}

// TrackerHandler handles the manager views and project transitions.
type TrackerHandler struct {
	tracker  Tracker
	accounts AccountLookup
}

// NewTrackerHandler creates a new TrackerHandler.
func NewTrackerHandler(tracker Tracker, accounts AccountLookup) *TrackerHandler {
	return &TrackerHandler{tracker: tracker, accounts: accounts}
}

type managerPage struct {
	Flash        string
	Username     string
	Active       []domain.ProjectSummary
	StoppedToday []domain.ProjectSummary
	TodaysTotal  time.Duration
	Companies    []domain.Company
}

type finishedPage struct {
	Projects []domain.ProjectSummary
}

// Manager renders the main view: active projects, projects stopped today and
// the day's total time.
func (h *TrackerHandler) Manager(c echo.Context) error {
	accountID, ok := GetAccountID(c)
	if !ok {
		return domain.ErrUnauthorized
	}
	ctx := c.Request().Context()

	overview, err := h.tracker.Overview(ctx, accountID)
	if err != nil {
		return err
	}
	companies, err := h.tracker.Companies(ctx)
	if err != nil {
		return err
	}

	// The greeting is cosmetic; a lookup failure must not take the page down.
	username := ""
	if account, err := h.accounts.GetAccount(ctx, accountID); err == nil {
		username = account.Name
	}

	return c.Render(http.StatusOK, "manager.html", managerPage{
		Flash:        popFlash(c),
		Username:     username,
		Active:       overview.Active,
		StoppedToday: overview.StoppedToday,
		TodaysTotal:  overview.TodaysTotal,
		Companies:    companies,
	})
}

// FinishedProjects renders the list of finished projects.
func (h *TrackerHandler) FinishedProjects(c echo.Context) error {
	accountID, ok := GetAccountID(c)
	if !ok {
		return domain.ErrUnauthorized
	}

	projects, err := h.tracker.Finished(c.Request().Context(), accountID)
	if err != nil {
		return err
	}
	return c.Render(http.StatusOK, "finished.html", finishedPage{Projects: projects})
}

// Start opens a work interval on the project. The redirect back to the
// manager does not betray whether anything happened; unknown ids and
// already-running projects land on the same page.
func (h *TrackerHandler) Start(c echo.Context) error {
	return h.transition(c, h.tracker.Start)
}

// Stop closes the open interval and pauses the project.
func (h *TrackerHandler) Stop(c echo.Context) error {
	return h.transition(c, h.tracker.Stop)
}

// Finish closes any open interval and marks the project finished.
func (h *TrackerHandler) Finish(c echo.Context) error {
	return h.transition(c, h.tracker.Finish)
}

func (h *TrackerHandler) transition(c echo.Context, op func(context.Context, int64, int64) (bool, error)) error {
	accountID, ok := GetAccountID(c)
	if !ok {
		return domain.ErrUnauthorized
	}

	projectID, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		return c.Redirect(http.StatusSeeOther, "/app")
	}

	if _, err := op(c.Request().Context(), accountID, projectID); err != nil {
		return err
	}
	return c.Redirect(http.StatusSeeOther, "/app")
}

type projectForm struct {
	Name      string `form:"name" validate:"required,max=100"`
	CompanyID int64  `form:"company_id" validate:"required,gt=0"`
}

// CreateProject creates a new paused project from the manager page form.
func (h *TrackerHandler) CreateProject(c echo.Context) error {
	accountID, ok := GetAccountID(c)
	if !ok {
		return domain.ErrUnauthorized
	}

	var form projectForm
	if err := c.Bind(&form); err != nil {
		setFlash(c, "Invalid project form.")
		return c.Redirect(http.StatusSeeOther, "/app")
	}
	if err := c.Validate(&form); err != nil {
		var validationErr *domain.ValidationError
		if errors.As(err, &validationErr) {
			setFlash(c, "Invalid project form: "+validationErr.Error())
		} else {
			setFlash(c, "Invalid project form.")
		}
		return c.Redirect(http.StatusSeeOther, "/app")
	}

	if _, err := h.tracker.CreateProject(c.Request().Context(), accountID, form.CompanyID, form.Name); err != nil {
		var validationErr *domain.ValidationError
		if errors.As(err, &validationErr) {
			setFlash(c, validationErr.Message)
			return c.Redirect(http.StatusSeeOther, "/app")
		}
		return err
	}
	return c.Redirect(http.StatusSeeOther, "/app")
}
