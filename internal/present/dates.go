package present

import (
	"time"

	"expensetracker/internal/core"
)

// FormatDate renders a calendar date as "Mar 1, 2025"; the zero date is "".
func FormatDate(d core.Date) string {
	if d.IsZero() {
		return ""
	}
	return d.Format("Jan 2, 2006")
}

// FormatTimestamp renders the date part of a server timestamp.
func FormatTimestamp(t core.Timestamp) string {
	if t.IsZero() {
		return ""
	}
	return t.Format("Jan 2, 2006")
}

// MonthLabel turns a "YYYY-MM" key into "Mar 2025". Malformed keys are
// returned unchanged.
func MonthLabel(key string) string {
	t, err := time.Parse("2006-01", key)
	if err != nil {
		return key
	}
	return t.Format("Jan 2006")
}
