package schedule

import (
	"strings"
	"time"

	"github.com/wolfman30/medvisit-platform/internal/directory"
)

// DayFormat is the ISO calendar-date layout used by all record date fields.
const DayFormat = "2006-01-02"

// parseDay parses an ISO calendar date. ok is false for absent or malformed
// input, which callers treat as "no date" rather than an error.
func parseDay(s string) (time.Time, bool) {
	t, err := time.Parse(DayFormat, strings.TrimSpace(s))
	if err != nil {
		return time.Time{}, false
	}
	return t, true
}

// truncateDay normalizes a timestamp to midnight UTC so comparisons work at
// day granularity only.
func truncateDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// WeekdayName maps a date to its legacy availability key, Monday first.
func WeekdayName(t time.Time) string {
	return directory.Weekdays[(int(t.Weekday())+6)%7]
}
