package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/mpelkone/timeclock/internal/domain"
)

// ProjectStore defines the project/entry data access interface consumed by
// TrackerService.
type ProjectStore interface {
	FindOwned(ctx context.Context, accountID, projectID int64) (*domain.Project, error)
	Create(ctx context.Context, accountID, companyID int64, name string) (*domain.Project, error)
	ListCompanies(ctx context.Context) ([]domain.Company, error)

	LatestEntry(ctx context.Context, projectID int64) (*domain.Entry, error)
	OpenInterval(ctx context.Context, projectID int64) error
	CloseInterval(ctx context.Context, projectID int64, next domain.ProjectState) (bool, error)

	ActiveSummaries(ctx context.Context, accountID int64) ([]domain.ProjectSummary, error)
	StoppedTodaySummaries(ctx context.Context, accountID int64) ([]domain.ProjectSummary, error)
	FinishedSummaries(ctx context.Context, accountID int64) ([]domain.ProjectSummary, error)
	TodaysTotal(ctx context.Context, accountID int64) (time.Duration, error)
}

// Overview is the manager view data: active work plus what finished today.
type Overview struct {
	Active       []domain.ProjectSummary
	StoppedToday []domain.ProjectSummary
	TodaysTotal  time.Duration
}

// TrackerService owns the project/entry state machine and the aggregated
// views over it.
type TrackerService struct {
	projects ProjectStore
}

// NewTrackerService creates a new TrackerService.
func NewTrackerService(projects ProjectStore) *TrackerService {
	return &TrackerService{projects: projects}
}

// Start opens a new work interval on the project and moves it to running.
// It reports whether a new interval was actually opened: projects that are
// not owned by the account and projects that are already running are silent
// no-ops, so a stranger probing ids learns nothing and a double click cannot
// open a second interval.
func (s *TrackerService) Start(ctx context.Context, accountID, projectID int64) (bool, error) {
	if _, err := s.projects.FindOwned(ctx, accountID, projectID); err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return false, nil
		}
		return false, fmt.Errorf("start project %d: %w", projectID, err)
	}

	latest, err := s.projects.LatestEntry(ctx, projectID)
	if err != nil && !errors.Is(err, domain.ErrNotFound) {
		return false, fmt.Errorf("start project %d: %w", projectID, err)
	}
	if latest != nil && latest.Open() {
		return false, nil
	}

	if err := s.projects.OpenInterval(ctx, projectID); err != nil {
		if errors.Is(err, domain.ErrConflict) {
			// Lost a race against a concurrent start; the other call
			// already opened the interval.
			slog.Info("concurrent start suppressed", "project_id", projectID)
			return false, nil
		}
		return false, fmt.Errorf("start project %d: %w", projectID, err)
	}
	return true, nil
}

// Stop closes the project's open interval and moves it to paused. Not-owned
// projects and projects without an open interval are silent no-ops.
func (s *TrackerService) Stop(ctx context.Context, accountID, projectID int64) (bool, error) {
	return s.close(ctx, accountID, projectID, domain.StatePaused)
}

// Finish closes any open interval and moves the project to finished. Unlike
// Stop, finishing an already-paused project still updates the state.
func (s *TrackerService) Finish(ctx context.Context, accountID, projectID int64) (bool, error) {
	return s.close(ctx, accountID, projectID, domain.StateFinished)
}

func (s *TrackerService) close(ctx context.Context, accountID, projectID int64, next domain.ProjectState) (bool, error) {
	if _, err := s.projects.FindOwned(ctx, accountID, projectID); err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return false, nil
		}
		return false, fmt.Errorf("close project %d: %w", projectID, err)
	}

	closed, err := s.projects.CloseInterval(ctx, projectID, next)
	if err != nil {
		return false, fmt.Errorf("close project %d: %w", projectID, err)
	}
	return closed, nil
}

// CreateProject creates a paused project for the account under the company.
func (s *TrackerService) CreateProject(ctx context.Context, accountID, companyID int64, name string) (*domain.Project, error) {
	if name == "" {
		return nil, &domain.ValidationError{Field: "name", Message: "Project name is required."}
	}

	project, err := s.projects.Create(ctx, accountID, companyID, name)
	if err != nil {
		return nil, fmt.Errorf("create project %q: %w", name, err)
	}
	return project, nil
}

// Companies lists the companies projects can be filed under.
func (s *TrackerService) Companies(ctx context.Context) ([]domain.Company, error) {
	return s.projects.ListCompanies(ctx)
}

// Overview assembles the manager view: active projects, projects stopped
// today and the day's total work time, all evaluated against now.
func (s *TrackerService) Overview(ctx context.Context, accountID int64) (*Overview, error) {
	active, err := s.projects.ActiveSummaries(ctx, accountID)
	if err != nil {
		return nil, fmt.Errorf("overview for account %d: %w", accountID, err)
	}

	stoppedToday, err := s.projects.StoppedTodaySummaries(ctx, accountID)
	if err != nil {
		return nil, fmt.Errorf("overview for account %d: %w", accountID, err)
	}

	total, err := s.projects.TodaysTotal(ctx, accountID)
	if err != nil {
		return nil, fmt.Errorf("overview for account %d: %w", accountID, err)
	}

	return &Overview{Active: active, StoppedToday: stoppedToday, TodaysTotal: total}, nil
}

// Finished lists the account's finished projects.
func (s *TrackerService) Finished(ctx context.Context, accountID int64) ([]domain.ProjectSummary, error) {
	summaries, err := s.projects.FinishedSummaries(ctx, accountID)
	if err != nil {
		return nil, fmt.Errorf("finished projects for account %d: %w", accountID, err)
	}
	return summaries, nil
}
