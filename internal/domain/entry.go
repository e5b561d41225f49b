package domain

import "time"

// RoundingComment is a sentinel comment used for manual time corrections.
// Entries carrying it are excluded when picking a project's display comment.
const RoundingComment = "Rounding entry."

// Entry represents one contiguous work interval on a project.
// End is nil while the interval is still open (the project is running).
type Entry struct {
	ID        int64      `json:"id" db:"id"`
	ProjectID int64      `json:"project_id" db:"project_id"`
	Start     time.Time  `json:"start" db:"start"`
	End       *time.Time `json:"end,omitempty" db:"end"`
	Comment   *string    `json:"comment,omitempty" db:"comment"`
}

// Open reports whether the entry's interval has not been closed yet.
func (e Entry) Open() bool {
	return e.End == nil
}

// Elapsed returns the interval length, measured against now for open entries.
func (e Entry) Elapsed(now time.Time) time.Duration {
	if e.End != nil {
		return e.End.Sub(e.Start)
	}
	return now.Sub(e.Start)
}
