package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/mpelkone/timeclock/internal/domain"
)

// summarySelect annotates each project with its total elapsed time and the
// newest non-rounding comment. COALESCE("end", NOW()) makes open intervals
// count up to the moment of the query, so running projects show live totals.
const summarySelect = `
	SELECT
		p.id, p.name, c.name AS company, p.state,
		(SELECT SUM(EXTRACT(EPOCH FROM COALESCE(e."end", NOW()) - e.start))
		 FROM entry e WHERE e.project_id = p.id) AS seconds,
		(SELECT e.comment FROM entry e
		 WHERE e.project_id = p.id
		   AND e.comment IS NOT NULL
		   AND e.comment <> $2
		 ORDER BY e.start DESC LIMIT 1) AS comment
	FROM project p
	JOIN company c ON p.company_id = c.id
	WHERE p.user_id = $1`

const summaryOrder = ` ORDER BY p.state DESC, p.id DESC`

type summaryRow struct {
	ID      int64               `db:"id"`
	Name    string              `db:"name"`
	Company string              `db:"company"`
	State   domain.ProjectState `db:"state"`
	Seconds *float64            `db:"seconds"`
	Comment *string             `db:"comment"`
}

func (row summaryRow) toSummary() domain.ProjectSummary {
	summary := domain.ProjectSummary{
		ID:      row.ID,
		Name:    row.Name,
		Company: row.Company,
		State:   row.State,
		Comment: row.Comment,
	}
	if row.Seconds != nil {
		summary.Elapsed = time.Duration(*row.Seconds * float64(time.Second))
	}
	return summary
}

func (r *ProjectRepository) selectSummaries(ctx context.Context, query string, args ...any) ([]domain.ProjectSummary, error) {
	var rows []summaryRow
	if err := r.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, err
	}
	summaries := make([]domain.ProjectSummary, 0, len(rows))
	for _, row := range rows {
		summaries = append(summaries, row.toSummary())
	}
	return summaries, nil
}

// ActiveSummaries returns the account's paused and running projects,
// running first, newest first within a state.
func (r *ProjectRepository) ActiveSummaries(ctx context.Context, accountID int64) ([]domain.ProjectSummary, error) {
	summaries, err := r.selectSummaries(ctx,
		summarySelect+` AND p.state > 0`+summaryOrder,
		accountID, domain.RoundingComment)
	if err != nil {
		return nil, fmt.Errorf("active summaries for account %d: %w", accountID, err)
	}
	return summaries, nil
}

// StoppedTodaySummaries returns the account's finished projects whose latest
// entry started on the current date.
func (r *ProjectRepository) StoppedTodaySummaries(ctx context.Context, accountID int64) ([]domain.ProjectSummary, error) {
	summaries, err := r.selectSummaries(ctx,
		summarySelect+` AND p.state = 0
		AND (SELECT DATE(e.start) FROM entry e
		     WHERE e.project_id = p.id
		     ORDER BY e.start DESC LIMIT 1) = CURRENT_DATE`+summaryOrder,
		accountID, domain.RoundingComment)
	if err != nil {
		return nil, fmt.Errorf("stopped-today summaries for account %d: %w", accountID, err)
	}
	return summaries, nil
}

// FinishedSummaries returns all of the account's finished projects.
func (r *ProjectRepository) FinishedSummaries(ctx context.Context, accountID int64) ([]domain.ProjectSummary, error) {
	summaries, err := r.selectSummaries(ctx,
		summarySelect+` AND p.state = 0`+summaryOrder,
		accountID, domain.RoundingComment)
	if err != nil {
		return nil, fmt.Errorf("finished summaries for account %d: %w", accountID, err)
	}
	return summaries, nil
}

// TodaysTotal sums the account's work time across all entries that started
// on the current date, counting open intervals up to now.
func (r *ProjectRepository) TodaysTotal(ctx context.Context, accountID int64) (time.Duration, error) {
	var seconds float64
	err := r.db.GetContext(ctx, &seconds,
		`SELECT COALESCE(SUM(EXTRACT(EPOCH FROM COALESCE(e."end", NOW()) - e.start)), 0)
		 FROM entry e
		 JOIN project p ON e.project_id = p.id
		 WHERE p.user_id = $1 AND DATE(e.start) = CURRENT_DATE`, accountID)
	if err != nil {
		return 0, fmt.Errorf("today's total for account %d: %w", accountID, err)
	}
	return time.Duration(seconds * float64(time.Second)), nil
}
