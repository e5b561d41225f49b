package domain

import (
	"fmt"
	"time"
)

// FormatDuration renders a duration as HH:MM:SS with days folded into hours.
// Negative totals, which can appear after manual rounding entries, get a
// leading minus sign.
func FormatDuration(d time.Duration) string {
	total := int64(d.Seconds())
	sign := ""
	if total < 0 {
		sign = "-"
		total = -total
	}
	hours := total / 3600
	minutes := total / 60 % 60
	seconds := total % 60
	return fmt.Sprintf("%s%02d:%02d:%02d", sign, hours, minutes, seconds)
}
