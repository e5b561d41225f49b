package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/mpelkone/timeclock/internal/domain"
)

// ProjectRepository handles project and entry data access operations,
// including the state transitions that must touch both tables atomically.
type ProjectRepository struct {
	db *sqlx.DB
}

// NewProjectRepository creates a new ProjectRepository.
func NewProjectRepository(db *sqlx.DB) *ProjectRepository {
	return &ProjectRepository{db: db}
}

// FindOwned retrieves a project only when it belongs to the given account.
func (r *ProjectRepository) FindOwned(ctx context.Context, accountID, projectID int64) (*domain.Project, error) {
	var project domain.Project
	err := r.db.GetContext(ctx, &project,
		`SELECT id, name, company_id, user_id, state
		 FROM project WHERE id = $1 AND user_id = $2`, projectID, accountID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("find project %d for account %d: %w", projectID, accountID, err)
	}
	return &project, nil
}

// Create inserts a new project in the paused state.
func (r *ProjectRepository) Create(ctx context.Context, accountID, companyID int64, name string) (*domain.Project, error) {
	var project domain.Project
	err := r.db.QueryRowxContext(ctx,
		`INSERT INTO project (name, company_id, user_id, state)
		 VALUES ($1, $2, $3, $4)
		 RETURNING id, name, company_id, user_id, state`,
		name, companyID, accountID, domain.StatePaused,
	).StructScan(&project)
	if err != nil {
		return nil, fmt.Errorf("create project %q: %w", name, err)
	}
	return &project, nil
}

// ListCompanies returns all companies, ordered by name.
func (r *ProjectRepository) ListCompanies(ctx context.Context) ([]domain.Company, error) {
	var companies []domain.Company
	err := r.db.SelectContext(ctx, &companies,
		`SELECT id, name FROM company ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("list companies: %w", err)
	}
	return companies, nil
}

// LatestEntry returns the newest entry of a project by start time, or
// domain.ErrNotFound when the project has no entries yet.
func (r *ProjectRepository) LatestEntry(ctx context.Context, projectID int64) (*domain.Entry, error) {
	var entry domain.Entry
	err := r.db.GetContext(ctx, &entry,
		`SELECT id, project_id, start, "end", comment
		 FROM entry WHERE project_id = $1
		 ORDER BY start DESC LIMIT 1`, projectID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("latest entry for project %d: %w", projectID, err)
	}
	return &entry, nil
}

// OpenInterval inserts a new open entry and moves the project to running,
// both in one transaction. The partial unique index on open entries turns a
// racing double start into domain.ErrConflict instead of a second interval.
func (r *ProjectRepository) OpenInterval(ctx context.Context, projectID int64) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin open interval: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx,
		`INSERT INTO entry (project_id, start) VALUES ($1, NOW())`, projectID); err != nil {
		if isUniqueViolation(err) {
			return domain.ErrConflict
		}
		return fmt.Errorf("insert entry for project %d: %w", projectID, err)
	}

	if _, err := tx.ExecContext(ctx,
		`UPDATE project SET state = $1 WHERE id = $2`, domain.StateRunning, projectID); err != nil {
		return fmt.Errorf("set project %d running: %w", projectID, err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit open interval: %w", err)
	}
	return nil
}

// CloseInterval closes the project's open entry, if any, and moves the
// project to next, both in one transaction. It reports whether an open entry
// was actually closed. When no entry is open, the state is still updated only
// for transitions to finished, so pausing an idle project stays a no-op.
func (r *ProjectRepository) CloseInterval(ctx context.Context, projectID int64, next domain.ProjectState) (bool, error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return false, fmt.Errorf("begin close interval: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	res, err := tx.ExecContext(ctx,
		`UPDATE entry SET "end" = NOW() WHERE project_id = $1 AND "end" IS NULL`, projectID)
	if err != nil {
		return false, fmt.Errorf("close entry for project %d: %w", projectID, err)
	}
	closed, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("close entry rows affected: %w", err)
	}

	if closed == 0 && next != domain.StateFinished {
		// Nothing was running and the project is not being finished.
		return false, tx.Commit()
	}

	if _, err := tx.ExecContext(ctx,
		`UPDATE project SET state = $1 WHERE id = $2`, next, projectID); err != nil {
		return false, fmt.Errorf("set project %d state %d: %w", projectID, next, err)
	}

	if err := tx.Commit(); err != nil {
		return false, fmt.Errorf("commit close interval: %w", err)
	}
	return closed > 0, nil
}
