package domain

import "time"

// ProjectState represents the lifecycle state of a project. The numeric
// values are stored directly in the project table.
type ProjectState int

const (
	StateFinished ProjectState = 0
	StatePaused   ProjectState = 1
	StateRunning  ProjectState = 2
)

// String returns a human-readable state name for templates and logs.
func (s ProjectState) String() string {
	switch s {
	case StateFinished:
		return "finished"
	case StatePaused:
		return "paused"
	case StateRunning:
		return "running"
	default:
		return "unknown"
	}
}

// Project represents a billable project owned by one account under one company.
type Project struct {
	ID        int64        `json:"id" db:"id"`
	Name      string       `json:"name" db:"name"`
	CompanyID int64        `json:"company_id" db:"company_id"`
	UserID    int64        `json:"user_id" db:"user_id"`
	State     ProjectState `json:"state" db:"state"`
}

// Company represents a client company that projects are billed against.
// Company lifecycle is managed outside this application; rows are seeded.
type Company struct {
	ID   int64  `json:"id" db:"id"`
	Name string `json:"name" db:"name"`
}

// ProjectSummary is a project annotated with aggregated elapsed time and the
// most recent entry comment. Elapsed is recomputed against the clock at query
// time, so running projects show live totals without a background updater.
type ProjectSummary struct {
	ID      int64        `db:"id"`
	Name    string       `db:"name"`
	Company string       `db:"company"`
	State   ProjectState `db:"state"`
	Elapsed time.Duration
	Comment *string `db:"comment"`
}
